package sms

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// RemoteError is a failure reported by the relay service.
type RemoteError struct {
	StatusCode int
	Status     string
	Message    string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("sms relay error: status %d: %s: %s", e.StatusCode, e.Status, e.Message)
}

// RemoteClient calls a relay service over HTTP, authenticating with a short
// lived bearer token.
type RemoteClient struct {
	baseURL    string
	tokens     *Tokens
	subject    string
	httpClient *http.Client
}

type RemoteOption func(*RemoteClient)

func WithRemoteHTTPClient(c *http.Client) RemoteOption {
	return func(rc *RemoteClient) {
		rc.httpClient = c
	}
}

// WithSubject sets the subject of minted tokens. The relay rate limits per
// subject.
func WithSubject(subject string) RemoteOption {
	return func(rc *RemoteClient) {
		rc.subject = subject
	}
}

func NewRemoteClient(baseURL, secret string, opts ...RemoteOption) *RemoteClient {
	rc := &RemoteClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		tokens:     NewTokens(secret),
		subject:    "bitematch",
		httpClient: &http.Client{Timeout: 20 * time.Second},
	}
	for _, opt := range opts {
		opt(rc)
	}
	return rc
}

// SendCustomSms validates locally, then asks the relay to send.
func (c *RemoteClient) SendCustomSms(ctx context.Context, to, body string) (Result, error) {
	body, err := Validate(to, body)
	if err != nil {
		return Result{}, err
	}

	token, err := c.tokens.Mint(c.subject)
	if err != nil {
		return Result{}, err
	}

	var payload callRequest
	payload.Data.To = strings.TrimSpace(to)
	payload.Data.Body = body
	data, err := json.Marshal(payload)
	if err != nil {
		return Result{}, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/sendSms", bytes.NewReader(data))
	if err != nil {
		return Result{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("call relay: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Result{}, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var ce callErrorResponse
		_ = json.Unmarshal(raw, &ce)
		switch ce.Error.Status {
		case StatusInvalidArgument:
			return Result{}, &ValidationError{Message: ce.Error.Message}
		case StatusUnauthenticated:
			return Result{}, fmt.Errorf("%w: %s", ErrUnauthenticated, ce.Error.Message)
		}
		return Result{}, &RemoteError{StatusCode: resp.StatusCode, Status: ce.Error.Status, Message: ce.Error.Message}
	}

	var cr callResponse
	if err := json.Unmarshal(raw, &cr); err != nil {
		return Result{}, fmt.Errorf("decode response: %w", err)
	}
	return cr.Result, nil
}
