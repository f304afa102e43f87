package sms

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const DefaultTwilioBaseURL = "https://api.twilio.com"

// Result is the provider's answer to a send.
type Result struct {
	ProviderMessageID string `json:"sid"`
	Status            string `json:"status"`
}

// ProviderError is a non-2xx response from Twilio.
type ProviderError struct {
	StatusCode int
	Code       int
	Message    string
}

func (e *ProviderError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("twilio API error: status %d", e.StatusCode)
	}
	return fmt.Sprintf("twilio API error: status %d: %s (code %d)", e.StatusCode, e.Message, e.Code)
}

// Twilio sends messages through the Twilio Messages API using a messaging
// service.
type Twilio struct {
	accountSID string
	authToken  string
	msgService string
	baseURL    string
	httpClient *http.Client
}

type Option func(*Twilio)

func WithHTTPClient(c *http.Client) Option {
	return func(t *Twilio) {
		t.httpClient = c
	}
}

// WithBaseURL points the client at another API host.
func WithBaseURL(u string) Option {
	return func(t *Twilio) {
		if u != "" {
			t.baseURL = strings.TrimRight(u, "/")
		}
	}
}

func NewTwilio(accountSID, authToken, msgService string, opts ...Option) *Twilio {
	t := &Twilio{
		accountSID: accountSID,
		authToken:  authToken,
		msgService: msgService,
		baseURL:    DefaultTwilioBaseURL,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Configured returns true if credentials and a messaging service are set.
func (t *Twilio) Configured() bool {
	return t.accountSID != "" && t.authToken != "" && t.msgService != ""
}

type twilioError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (t *Twilio) Send(ctx context.Context, to, body string) (Result, error) {
	if !t.Configured() {
		return Result{}, fmt.Errorf("twilio client not configured")
	}

	form := url.Values{}
	form.Set("To", to)
	form.Set("Body", body)
	form.Set("MessagingServiceSid", t.msgService)

	endpoint := fmt.Sprintf("%s/2010-04-01/Accounts/%s/Messages.json", t.baseURL, url.PathEscape(t.accountSID))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return Result{}, fmt.Errorf("create request: %w", err)
	}
	req.SetBasicAuth(t.accountSID, t.authToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("send sms: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Result{}, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		var te twilioError
		_ = json.Unmarshal(data, &te)
		return Result{}, &ProviderError{StatusCode: resp.StatusCode, Code: te.Code, Message: te.Message}
	}

	var res Result
	if err := json.Unmarshal(data, &res); err != nil {
		return Result{}, fmt.Errorf("decode response: %w", err)
	}
	return res, nil
}
