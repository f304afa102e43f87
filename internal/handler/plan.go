package handler

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/dukerupert/bitematch/internal/auth"
	"github.com/dukerupert/bitematch/internal/plan"
)

type PlanHandler struct {
	svc       *plan.Service
	viewLimit int
	logger    *slog.Logger
}

func NewPlanHandler(svc *plan.Service, viewLimit int, logger *slog.Logger) *PlanHandler {
	return &PlanHandler{svc: svc, viewLimit: viewLimit, logger: logger}
}

func (h *PlanHandler) Likes(w http.ResponseWriter, r *http.Request) {
	limit, ok := queryLimit(r, 100)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid limit")
		return
	}
	likes, err := h.svc.Likes(r.Context(), auth.UserID(r.Context()), limit)
	if err != nil {
		h.logger.Error("list likes", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list likes")
		return
	}
	writeJSON(w, http.StatusOK, likes)
}

func (h *PlanHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, ok := queryLimit(r, h.viewLimit)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid limit")
		return
	}
	entries, err := h.svc.Snapshot(r.Context(), auth.UserID(r.Context()), limit)
	if err != nil {
		h.logger.Error("list plan", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list plan")
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (h *PlanHandler) Remove(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(r.PathValue("id"))
	if id == "" {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	ok, err := h.svc.Remove(r.Context(), auth.UserID(r.Context()), id)
	if err != nil {
		h.logger.Error("remove plan entry", "entry_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to remove entry")
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, "entry not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
