package sms

import (
	"context"
	"log/slog"
	"strings"

	"github.com/dukerupert/bitematch/internal/metrics"
)

// Provider delivers an already validated message.
type Provider interface {
	Send(ctx context.Context, to, body string) (Result, error)
}

// Relay validates messages and hands them to a Provider.
type Relay struct {
	provider Provider
	metrics  metrics.Recorder
	logger   *slog.Logger
}

func NewRelay(provider Provider, rec metrics.Recorder, logger *slog.Logger) *Relay {
	if rec == nil {
		rec = metrics.Nop{}
	}
	return &Relay{provider: provider, metrics: rec, logger: logger}
}

// Send validates to and body, then sends. Invalid input never reaches the
// provider.
func (r *Relay) Send(ctx context.Context, to, body string) (Result, error) {
	body, err := Validate(to, body)
	if err != nil {
		r.metrics.RecordSMSSend("invalid")
		return Result{}, err
	}

	res, err := r.provider.Send(ctx, strings.TrimSpace(to), body)
	if err != nil {
		r.metrics.RecordSMSSend("failed")
		r.logger.Warn("sms send failed", "error", err)
		return Result{}, err
	}
	r.metrics.RecordSMSSend("sent")
	r.logger.Info("sms sent", "sid", res.ProviderMessageID, "status", res.Status)
	return res, nil
}

// SendCustomSms sends through the in-process relay. It lets a Relay stand in
// for a RemoteClient.
func (r *Relay) SendCustomSms(ctx context.Context, to, body string) (Result, error) {
	return r.Send(ctx, to, body)
}
