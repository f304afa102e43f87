package deck

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/dukerupert/bitematch/internal/metrics"
)

const DefaultIdleTTL = 30 * time.Minute

// RegistryConfig configures the decks a Registry creates.
type RegistryConfig struct {
	Source      Source
	Liker       Liker
	Metrics     metrics.Recorder
	Logger      *slog.Logger
	SettleDelay time.Duration
	IdleTTL     time.Duration
}

type registryEntry struct {
	ctrl     *Controller
	lastUsed time.Time
	ready    chan struct{}
}

// Registry owns one deck and controller per user. A deck is created and
// loaded in random mode on first use and closed after IdleTTL without use.
type Registry struct {
	cfg RegistryConfig
	now func() time.Time

	mu      sync.Mutex
	entries map[int64]*registryEntry
	closed  bool
}

func NewRegistry(cfg RegistryConfig) *Registry {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Metrics == nil {
		cfg.Metrics = metrics.Nop{}
	}
	if cfg.SettleDelay <= 0 {
		cfg.SettleDelay = DefaultSettleDelay
	}
	if cfg.IdleTTL <= 0 {
		cfg.IdleTTL = DefaultIdleTTL
	}
	return &Registry{
		cfg:     cfg,
		now:     time.Now,
		entries: make(map[int64]*registryEntry),
	}
}

// Get returns the user's controller, creating and loading its deck if needed.
// Concurrent first calls for the same user share one initial load.
func (r *Registry) Get(ctx context.Context, userID int64) (*Controller, error) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil, ErrClosed
	}
	e, ok := r.entries[userID]
	if ok {
		e.lastUsed = r.now()
		r.mu.Unlock()
		select {
		case <-e.ready:
			return e.ctrl, nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	logger := r.cfg.Logger.With("user_id", userID)
	d := New(r.cfg.Source, WithLogger(logger), WithSettleDelay(r.cfg.SettleDelay))
	e = &registryEntry{
		ctrl:     NewController(d, r.cfg.Liker, r.cfg.Metrics, logger),
		lastUsed: r.now(),
		ready:    make(chan struct{}),
	}
	r.entries[userID] = e
	r.mu.Unlock()

	// A failed initial load leaves the message in the deck's error slot.
	_ = d.SetFilter(ctx, nil)
	close(e.ready)
	return e.ctrl, nil
}

// EvictIdle closes decks unused for longer than IdleTTL and returns how
// many were removed.
func (r *Registry) EvictIdle() int {
	cutoff := r.now().Add(-r.cfg.IdleTTL)

	r.mu.Lock()
	var evicted []*registryEntry
	for id, e := range r.entries {
		if e.lastUsed.Before(cutoff) {
			evicted = append(evicted, e)
			delete(r.entries, id)
		}
	}
	r.mu.Unlock()

	for _, e := range evicted {
		e.ctrl.Deck().Close()
	}
	return len(evicted)
}

// Drop closes and forgets the user's deck, if any.
func (r *Registry) Drop(userID int64) {
	r.mu.Lock()
	e, ok := r.entries[userID]
	delete(r.entries, userID)
	r.mu.Unlock()
	if ok {
		e.ctrl.Deck().Close()
	}
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Close closes every deck and waits for outstanding like writes.
func (r *Registry) Close() {
	r.mu.Lock()
	r.closed = true
	entries := r.entries
	r.entries = make(map[int64]*registryEntry)
	r.mu.Unlock()

	for _, e := range entries {
		e.ctrl.Deck().Close()
	}
	for _, e := range entries {
		e.ctrl.Wait()
	}
}
