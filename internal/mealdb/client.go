package mealdb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/dukerupert/bitematch/internal/metrics"
	"github.com/dukerupert/bitematch/internal/model"
)

const DefaultBaseURL = "https://www.themealdb.com/api/json/v1/1"

// Shortest wait between retries.
const minBackoff = 10 * time.Millisecond

// ErrUnavailable wraps every failure to reach or decode the upstream API.
var ErrUnavailable = errors.New("meal source unavailable")

// FallbackCategories is served when the category endpoint cannot be reached.
var FallbackCategories = []string{
	"Beef", "Breakfast", "Chicken", "Dessert", "Goat", "Lamb", "Pasta",
	"Pork", "Seafood", "Side", "Starter", "Vegan", "Vegetarian",
}

// StatusError is returned for non-200 upstream responses.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("upstream returned status %d", e.Code)
}

// Client talks to a TheMealDB-compatible JSON API.
type Client struct {
	baseURL  string
	http     *http.Client
	timeout  time.Duration
	retries  uint64
	backoff  time.Duration
	cache    Cache
	cacheTTL time.Duration
	metrics  metrics.Recorder
	logger   *slog.Logger
	clean    *sanitizer
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithTimeout bounds each call, retries included.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// WithRetries sets how many times a transient failure is retried and the
// constant wait between attempts. A non-positive backoff waits minBackoff.
func WithRetries(n int, backoff time.Duration) Option {
	return func(c *Client) {
		if n < 0 {
			n = 0
		}
		if backoff <= 0 {
			backoff = minBackoff
		}
		c.retries = uint64(n)
		c.backoff = backoff
	}
}

func WithCache(cache Cache, ttl time.Duration) Option {
	return func(c *Client) {
		c.cache = cache
		c.cacheTTL = ttl
	}
}

func WithMetrics(m metrics.Recorder) Option {
	return func(c *Client) { c.metrics = m }
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

func New(baseURL string, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		http:     &http.Client{},
		timeout:  10 * time.Second,
		retries:  1,
		backoff:  200 * time.Millisecond,
		cache:    NewMemoryCache(),
		cacheTTL: time.Hour,
		metrics:  metrics.Nop{},
		logger:   slog.Default(),
		clean:    newSanitizer(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Random returns one random meal, or nil when the API has none to give.
func (c *Client) Random(ctx context.Context) (*model.MealDetail, error) {
	var resp mealsResponse
	if err := c.get(ctx, "random", "/random.php", nil, &resp); err != nil {
		return nil, err
	}
	if len(resp.Meals) == 0 {
		return nil, nil
	}
	meal := c.clean.detail(resp.Meals[0])
	if meal.ID != "" {
		c.cache.Set(ctx, meal.ID, meal, c.cacheTTL)
	}
	return &meal, nil
}

// ByCategory returns the summaries of every meal in category.
func (c *Client) ByCategory(ctx context.Context, category string) ([]model.MealSummary, error) {
	var resp mealsResponse
	if err := c.get(ctx, "filter", "/filter.php", url.Values{"c": {category}}, &resp); err != nil {
		return nil, err
	}
	out := make([]model.MealSummary, 0, len(resp.Meals))
	for _, m := range resp.Meals {
		s := c.clean.summary(m)
		if s.ID == "" {
			continue
		}
		out = append(out, s)
	}
	return out, nil
}

// ByID returns the meal with the given id, or nil when it does not exist.
func (c *Client) ByID(ctx context.Context, id string) (*model.MealDetail, error) {
	if meal, ok := c.cache.Get(ctx, id); ok {
		return meal, nil
	}
	var resp mealsResponse
	if err := c.get(ctx, "lookup", "/lookup.php", url.Values{"i": {id}}, &resp); err != nil {
		return nil, err
	}
	if len(resp.Meals) == 0 {
		return nil, nil
	}
	meal := c.clean.detail(resp.Meals[0])
	c.cache.Set(ctx, id, meal, c.cacheTTL)
	return &meal, nil
}

// Categories lists the category names. When the upstream call fails the
// fixed FallbackCategories list is returned instead of an error.
func (c *Client) Categories(ctx context.Context) ([]string, error) {
	var resp categoriesResponse
	if err := c.get(ctx, "categories", "/categories.php", nil, &resp); err != nil {
		c.logger.Warn("categories unavailable, using fallback", "error", err)
		return append([]string(nil), FallbackCategories...), nil
	}
	out := make([]string, 0, len(resp.Categories))
	for _, cat := range resp.Categories {
		if name := strings.TrimSpace(cat.Name); name != "" {
			out = append(out, name)
		}
	}
	if len(out) == 0 {
		return append([]string(nil), FallbackCategories...), nil
	}
	return out, nil
}

func (c *Client) get(ctx context.Context, op, path string, query url.Values, out any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	b := retry.WithMaxRetries(c.retries, retry.NewConstant(c.backoff))
	err := retry.Do(ctx, b, func(ctx context.Context) error {
		return c.do(ctx, u, out)
	})
	c.metrics.RecordMealFetch(op, time.Since(start), err)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrUnavailable, op, err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, u string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return err
		}
		return retry.RetryableError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		io.Copy(io.Discard, resp.Body)
		return retry.RetryableError(&StatusError{Code: resp.StatusCode})
	}
	if resp.StatusCode != http.StatusOK {
		return &StatusError{Code: resp.StatusCode}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
