package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/dukerupert/bitematch/internal/auth"
	"github.com/dukerupert/bitematch/internal/deck"
)

type DeckHandler struct {
	registry *deck.Registry
	logger   *slog.Logger
}

func NewDeckHandler(registry *deck.Registry, logger *slog.Logger) *DeckHandler {
	return &DeckHandler{registry: registry, logger: logger}
}

type deckResponse struct {
	deck.State
	Pending bool `json:"pending"`
}

type filterRequest struct {
	Categories []string `json:"categories"`
}

func (h *DeckHandler) controller(w http.ResponseWriter, r *http.Request) (*deck.Controller, bool) {
	id, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return nil, false
	}
	ctrl, err := h.registry.Get(r.Context(), id.UserID)
	if err != nil {
		if errors.Is(err, deck.ErrClosed) {
			writeError(w, http.StatusServiceUnavailable, "shutting down")
			return nil, false
		}
		// Caller went away while the deck was loading.
		writeError(w, http.StatusServiceUnavailable, "deck not ready")
		return nil, false
	}
	return ctrl, true
}

func writeDeck(w http.ResponseWriter, status int, ctrl *deck.Controller) {
	writeJSON(w, status, deckResponse{State: ctrl.Deck().Snapshot(), Pending: ctrl.Pending()})
}

func (h *DeckHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := h.controller(w, r)
	if !ok {
		return
	}
	writeDeck(w, http.StatusOK, ctrl)
}

// SetFilter replaces the category selection. Load failures are reported in
// the returned state's error field rather than as an HTTP error.
func (h *DeckHandler) SetFilter(w http.ResponseWriter, r *http.Request) {
	var req filterRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	ctrl, ok := h.controller(w, r)
	if !ok {
		return
	}

	err := ctrl.Deck().SetFilter(r.Context(), req.Categories)
	switch {
	case err == nil, errors.Is(err, deck.ErrLoadFailed), errors.Is(err, deck.ErrPoolFailed):
	case errors.Is(err, deck.ErrClosed):
		writeError(w, http.StatusServiceUnavailable, "deck closed")
		return
	default:
		h.logger.Error("set filter", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to set filter")
		return
	}
	writeDeck(w, http.StatusOK, ctrl)
}

func (h *DeckHandler) Pass(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := h.controller(w, r)
	if !ok {
		return
	}
	if !ctrl.Pass(r.Context()) {
		writeError(w, http.StatusConflict, "a swipe is already in progress")
		return
	}
	writeDeck(w, http.StatusAccepted, ctrl)
}

func (h *DeckHandler) Like(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := h.controller(w, r)
	if !ok {
		return
	}
	if !ctrl.Like(r.Context(), auth.UserID(r.Context())) {
		writeError(w, http.StatusConflict, "a swipe is already in progress")
		return
	}
	writeDeck(w, http.StatusAccepted, ctrl)
}

func (h *DeckHandler) ClearError(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := h.controller(w, r)
	if !ok {
		return
	}
	ctrl.Deck().ClearError()
	writeDeck(w, http.StatusOK, ctrl)
}
