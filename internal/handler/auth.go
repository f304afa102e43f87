package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/dukerupert/bitematch/internal/auth"
	"github.com/dukerupert/bitematch/internal/middleware"
)

// DeckDropper forgets a user's deck.
type DeckDropper interface {
	Drop(userID int64)
}

type AuthHandler struct {
	gw           *auth.Gateway
	decks        DeckDropper
	secureCookie bool
	logger       *slog.Logger
}

func NewAuthHandler(gw *auth.Gateway, decks DeckDropper, secureCookie bool, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{gw: gw, decks: decks, secureCookie: secureCookie, logger: logger}
}

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
	Phone    string `json:"phone"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, err := h.gw.User(r.Context(), auth.UserID(r.Context()))
	if err != nil {
		h.logger.Error("get current user", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get user")
		return
	}
	if user == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// Register attaches credentials to the current guest. If the email already
// belongs to an account and the password matches, the session moves to that
// account instead.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	id, _ := auth.FromContext(r.Context())

	user, err := h.gw.Upgrade(r.Context(), id.UserID, id.SessionID, auth.Credentials{
		Email:    req.Email,
		Password: req.Password,
		Name:     req.Name,
		Phone:    req.Phone,
	})
	if err != nil {
		h.writeAuthError(w, "register", err)
		return
	}
	if user.ID != id.UserID && h.decks != nil {
		h.decks.Drop(id.UserID)
	}
	writeJSON(w, http.StatusOK, user)
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	id, _ := auth.FromContext(r.Context())

	user, sess, err := h.gw.SignIn(r.Context(), req.Email, req.Password)
	if err != nil {
		h.writeAuthError(w, "login", err)
		return
	}

	// The guest session is replaced by the signed-in one.
	if id.SessionID != 0 {
		if err := h.gw.SignOut(r.Context(), id.SessionID); err != nil {
			h.logger.Warn("close guest session", "session_id", id.SessionID, "error", err)
		}
		if h.decks != nil && id.UserID != user.ID {
			h.decks.Drop(id.UserID)
		}
	}
	middleware.SetSessionCookie(w, sess, h.secureCookie)
	h.logger.Info("signed in", "user_id", user.ID)
	writeJSON(w, http.StatusOK, user)
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.FromContext(r.Context())
	if id.SessionID != 0 {
		if err := h.gw.SignOut(r.Context(), id.SessionID); err != nil {
			h.logger.Error("sign out", "session_id", id.SessionID, "error", err)
			writeError(w, http.StatusInternalServerError, "failed to sign out")
			return
		}
	}
	if h.decks != nil {
		h.decks.Drop(id.UserID)
	}
	middleware.ClearSessionCookie(w, h.secureCookie)
	w.WriteHeader(http.StatusNoContent)
}

func (h *AuthHandler) writeAuthError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, auth.ErrInvalidEmail), errors.Is(err, auth.ErrWeakPassword):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, auth.ErrEmailTaken), errors.Is(err, auth.ErrAlreadyRegistered):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, auth.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, err.Error())
	default:
		h.logger.Error(op, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to "+op)
	}
}
