package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/dukerupert/bitematch/internal/cookmode"
	"github.com/dukerupert/bitematch/internal/mealdb"
	"github.com/dukerupert/bitematch/internal/model"
)

// MealSource is the part of the meal catalogue the meal endpoints read.
type MealSource interface {
	Categories(ctx context.Context) ([]string, error)
	ByID(ctx context.Context, id string) (*model.MealDetail, error)
}

type MealHandler struct {
	source MealSource
	logger *slog.Logger
}

func NewMealHandler(source MealSource, logger *slog.Logger) *MealHandler {
	return &MealHandler{source: source, logger: logger}
}

func (h *MealHandler) Categories(w http.ResponseWriter, r *http.Request) {
	cats, err := h.source.Categories(r.Context())
	if err != nil {
		h.logger.Error("list categories", "error", err)
		writeError(w, http.StatusServiceUnavailable, "failed to list categories")
		return
	}
	writeJSON(w, http.StatusOK, map[string][]string{"categories": cats})
}

func (h *MealHandler) Get(w http.ResponseWriter, r *http.Request) {
	meal, ok := h.lookup(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, meal)
}

type stepsResponse struct {
	MealID string          `json:"meal_id"`
	Title  string          `json:"title"`
	Steps  []cookmode.Step `json:"steps"`
}

// Steps serves the meal's instructions split for cook mode.
func (h *MealHandler) Steps(w http.ResponseWriter, r *http.Request) {
	meal, ok := h.lookup(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, stepsResponse{
		MealID: meal.ID,
		Title:  meal.Title,
		Steps:  cookmode.Steps(meal.Instructions),
	})
}

func (h *MealHandler) lookup(w http.ResponseWriter, r *http.Request) (*model.MealDetail, bool) {
	id := strings.TrimSpace(r.PathValue("id"))
	if id == "" || !isDigits(id) {
		writeError(w, http.StatusBadRequest, "invalid id")
		return nil, false
	}

	meal, err := h.source.ByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, mealdb.ErrUnavailable) {
			h.logger.Warn("meal lookup unavailable", "meal_id", id, "error", err)
			writeError(w, http.StatusServiceUnavailable, "meal source unavailable")
			return nil, false
		}
		h.logger.Error("meal lookup", "meal_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get meal")
		return nil, false
	}
	if meal == nil {
		writeError(w, http.StatusNotFound, "meal not found")
		return nil, false
	}
	return meal, true
}

func isDigits(s string) bool {
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}
