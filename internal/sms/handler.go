package sms

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/dukerupert/bitematch/internal/middleware"
)

// Callable error statuses.
const (
	StatusInvalidArgument   = "INVALID_ARGUMENT"
	StatusUnauthenticated   = "UNAUTHENTICATED"
	StatusResourceExhausted = "RESOURCE_EXHAUSTED"
	StatusInternal          = "INTERNAL"
)

type callRequest struct {
	Data struct {
		To   string `json:"to"`
		Body string `json:"body"`
	} `json:"data"`
}

type callResponse struct {
	Result Result `json:"result"`
}

type callError struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

type callErrorResponse struct {
	Error callError `json:"error"`
}

// Handler serves the relay's callable endpoint.
type Handler struct {
	relay   *Relay
	tokens  *Tokens
	limiter *middleware.RateLimiter
	logger  *slog.Logger
}

// NewHandler creates the relay handler. A nil limiter disables rate limiting.
func NewHandler(relay *Relay, tokens *Tokens, limiter *middleware.RateLimiter, logger *slog.Logger) *Handler {
	return &Handler{relay: relay, tokens: tokens, limiter: limiter, logger: logger}
}

// SendSms handles POST /sendSms.
func (h *Handler) SendSms(w http.ResponseWriter, r *http.Request) {
	raw, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !ok || raw == "" {
		writeCallError(w, http.StatusUnauthorized, StatusUnauthenticated, "missing bearer token")
		return
	}
	subject, err := h.tokens.Verify(raw)
	if err != nil {
		h.logger.Debug("rejected token", "error", err)
		writeCallError(w, http.StatusUnauthorized, StatusUnauthenticated, "invalid bearer token")
		return
	}

	if h.limiter != nil && !h.limiter.Allow(subject) {
		w.Header().Set("Retry-After", "60")
		writeCallError(w, http.StatusTooManyRequests, StatusResourceExhausted, "too many messages, try again later")
		return
	}

	var req callRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 64<<10)).Decode(&req); err != nil {
		writeCallError(w, http.StatusBadRequest, StatusInvalidArgument, "invalid request body")
		return
	}

	res, err := h.relay.Send(r.Context(), req.Data.To, req.Data.Body)
	if err != nil {
		var verr *ValidationError
		if errors.As(err, &verr) {
			writeCallError(w, http.StatusBadRequest, StatusInvalidArgument, verr.Error())
			return
		}
		h.logger.Error("relay send", "subject", subject, "error", err)
		writeCallError(w, http.StatusInternalServerError, StatusInternal, "could not send message")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(callResponse{Result: res})
}

func writeCallError(w http.ResponseWriter, code int, status, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(callErrorResponse{Error: callError{Status: status, Message: msg}})
}
