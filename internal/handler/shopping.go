package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/dukerupert/bitematch/internal/auth"
	"github.com/dukerupert/bitematch/internal/model"
	"github.com/dukerupert/bitematch/internal/plan"
	"github.com/dukerupert/bitematch/internal/shopping"
	"github.com/dukerupert/bitematch/internal/sms"
)

// SMSSender delivers a text message. Both sms.Relay and sms.RemoteClient
// satisfy it.
type SMSSender interface {
	SendCustomSms(ctx context.Context, to, body string) (sms.Result, error)
}

// TextSender delivers a message to a Telegram chat.
type TextSender interface {
	SendText(ctx context.Context, chatID int64, text string) (int, error)
}

const (
	channelSMS      = "sms"
	channelTelegram = "telegram"
)

type ShoppingHandler struct {
	svc      *plan.Service
	sms      SMSSender
	telegram TextSender
	limit    int
	locale   string
	logger   *slog.Logger
}

// NewShoppingHandler creates the shopping list handler. Either sender may be
// nil, which disables that channel.
func NewShoppingHandler(svc *plan.Service, smsSender SMSSender, telegram TextSender, limit int, locale string, logger *slog.Logger) *ShoppingHandler {
	return &ShoppingHandler{
		svc:      svc,
		sms:      smsSender,
		telegram: telegram,
		limit:    limit,
		locale:   locale,
		logger:   logger,
	}
}

type shoppingResponse struct {
	Items  []model.ShoppingItem  `json:"items"`
	Text   string                `json:"text"`
	Aisles []shopping.AisleGroup `json:"aisles,omitempty"`
}

func (h *ShoppingHandler) build(ctx context.Context, limit int) ([]model.ShoppingItem, error) {
	entries, err := h.svc.Snapshot(ctx, auth.UserID(ctx), limit)
	if err != nil {
		return nil, err
	}
	return shopping.Aggregate(entries, shopping.Options{Locale: h.locale}), nil
}

// List serves the aggregated list for the newest plan entries, as JSON or,
// with format=text, as plain text.
func (h *ShoppingHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, ok := queryLimit(r, h.limit)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid limit")
		return
	}
	items, err := h.build(r.Context(), limit)
	if err != nil {
		h.logger.Error("build shopping list", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to build shopping list")
		return
	}
	text := shopping.FormatPlain(items, shopping.FormatOptions{})

	if r.URL.Query().Get("format") == "text" {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(text))
		return
	}
	resp := shoppingResponse{Items: items, Text: text}
	if r.URL.Query().Get("group") == "aisle" {
		resp.Aisles = shopping.GroupByAisle(items)
	}
	writeJSON(w, http.StatusOK, resp)
}

type sendRequest struct {
	Channel string `json:"channel"`
	To      string `json:"to"`
}

type sendResponse struct {
	Channel   string `json:"channel"`
	MessageID string `json:"message_id"`
	Status    string `json:"status,omitempty"`
}

// Send delivers the plain text shopping list by SMS or Telegram.
func (h *ShoppingHandler) Send(w http.ResponseWriter, r *http.Request) {
	var req sendRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	req.Channel = strings.ToLower(strings.TrimSpace(req.Channel))
	if req.Channel == "" {
		req.Channel = channelSMS
	}
	req.To = strings.TrimSpace(req.To)

	items, err := h.build(r.Context(), h.limit)
	if err != nil {
		h.logger.Error("build shopping list", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to build shopping list")
		return
	}
	if len(items) == 0 {
		writeError(w, http.StatusBadRequest, "shopping list is empty")
		return
	}
	text := shopping.FormatPlain(items, shopping.FormatOptions{})

	switch req.Channel {
	case channelSMS:
		h.sendSMS(w, r, req.To, text)
	case channelTelegram:
		h.sendTelegram(w, r, req.To, text)
	default:
		writeError(w, http.StatusBadRequest, "channel must be sms or telegram")
	}
}

func (h *ShoppingHandler) sendSMS(w http.ResponseWriter, r *http.Request, to, text string) {
	if h.sms == nil {
		writeError(w, http.StatusServiceUnavailable, "sms delivery not configured")
		return
	}
	res, err := h.sms.SendCustomSms(r.Context(), to, text)
	if err != nil {
		var verr *sms.ValidationError
		if errors.As(err, &verr) {
			writeError(w, http.StatusBadRequest, verr.Error())
			return
		}
		h.logger.Warn("send shopping list sms", "error", err)
		writeError(w, http.StatusBadGateway, "failed to send sms")
		return
	}
	writeJSON(w, http.StatusOK, sendResponse{Channel: channelSMS, MessageID: res.ProviderMessageID, Status: res.Status})
}

func (h *ShoppingHandler) sendTelegram(w http.ResponseWriter, r *http.Request, to, text string) {
	if h.telegram == nil {
		writeError(w, http.StatusServiceUnavailable, "telegram delivery not configured")
		return
	}
	chatID, err := strconv.ParseInt(to, 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "to must be a telegram chat id")
		return
	}
	msgID, err := h.telegram.SendText(r.Context(), chatID, text)
	if err != nil {
		h.logger.Warn("send shopping list telegram", "error", err)
		writeError(w, http.StatusBadGateway, "failed to send telegram message")
		return
	}
	writeJSON(w, http.StatusOK, sendResponse{Channel: channelTelegram, MessageID: strconv.Itoa(msgID)})
}
