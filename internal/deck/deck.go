// Package deck holds the per-user card stack: a random or category-filtered
// queue of meal details fed from the meal source, plus the controller that
// turns swipes into deck advances and likes.
package deck

import (
	"context"
	"errors"
	"log/slog"
	"math/rand/v2"
	"slices"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dukerupert/bitematch/internal/model"
)

const (
	// BufferSize is the most detailed cards held ready in filtered mode.
	BufferSize = 5
	// RandomBatch is how many random meals are fetched when the filter is cleared.
	RandomBatch        = 4
	DefaultSettleDelay = 150 * time.Millisecond

	fetchConcurrency = 8
)

// Messages shown in the deck's error slot.
const (
	MsgLoadFailed   = "could not load meals"
	MsgPoolFailed   = "could not load the selected categories"
	MsgRefillFailed = "could not load more meals"
	MsgLikeFailed   = "could not save your like"
)

var (
	ErrClosed     = errors.New("deck closed")
	ErrLoadFailed = errors.New(MsgLoadFailed)
	ErrPoolFailed = errors.New(MsgPoolFailed)
)

// Source is the meal catalogue the deck draws from.
type Source interface {
	Random(ctx context.Context) (*model.MealDetail, error)
	ByCategory(ctx context.Context, category string) ([]model.MealSummary, error)
	ByID(ctx context.Context, id string) (*model.MealDetail, error)
}

type Mode int

const (
	ModeRandom Mode = iota
	ModeFiltered
)

func (m Mode) String() string {
	if m == ModeFiltered {
		return "filtered"
	}
	return "random"
}

// State is a copy of the deck for rendering.
type State struct {
	Mode       string             `json:"mode"`
	Categories []string           `json:"categories"`
	Cards      []model.MealDetail `json:"cards"`
	Cursor     int                `json:"cursor"`
	PoolSize   int                `json:"pool_size"`
	Loading    bool               `json:"loading"`
	Error      string             `json:"error,omitempty"`
}

// Deck is safe for concurrent use. Network calls run without the lock held;
// their results are applied only if the generation they started under is
// still current, so switching filters or closing the deck discards them.
type Deck struct {
	source  Source
	logger  *slog.Logger
	settle  time.Duration
	shuffle func([]string)

	baseCtx    context.Context
	baseCancel context.CancelFunc
	wg         sync.WaitGroup

	mu         sync.Mutex
	gen        uint64
	genCtx     context.Context
	genCancel  context.CancelFunc
	closed     bool
	mode       Mode
	categories []string
	pool       []string
	cursor     int
	buffer     []model.MealDetail
	loading    bool
	filling    bool
	pendingOps int
	errMsg     string
}

type Option func(*Deck)

func WithLogger(l *slog.Logger) Option {
	return func(d *Deck) { d.logger = l }
}

func WithSettleDelay(delay time.Duration) Option {
	return func(d *Deck) { d.settle = delay }
}

// WithShuffle replaces the pool shuffle. Tests use it to get a fixed order.
func WithShuffle(fn func([]string)) Option {
	return func(d *Deck) { d.shuffle = fn }
}

func New(source Source, opts ...Option) *Deck {
	d := &Deck{
		source:  source,
		logger:  slog.Default(),
		settle:  DefaultSettleDelay,
		shuffle: fisherYates,
	}
	for _, o := range opts {
		o(d)
	}
	d.baseCtx, d.baseCancel = context.WithCancel(context.Background())
	d.genCtx, d.genCancel = context.WithCancel(d.baseCtx)
	return d
}

func fisherYates(ids []string) {
	for i := len(ids) - 1; i > 0; i-- {
		j := rand.IntN(i + 1)
		ids[i], ids[j] = ids[j], ids[i]
	}
}

// SetFilter replaces the selection. An empty selection switches to random
// mode and loads RandomBatch meals; otherwise the category pool is rebuilt
// and the buffer refilled. Any operation started for the previous selection
// is abandoned. The load is tied to the deck rather than to ctx, so a caller
// that goes away does not cut it short. A nil error with a superseded
// selection means the result was discarded.
func (d *Deck) SetFilter(ctx context.Context, categories []string) error {
	cats := normalizeCategories(categories)

	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return ErrClosed
	}
	gen, genCtx := d.bumpLocked()
	d.categories = cats
	d.pool = nil
	d.cursor = 0
	d.buffer = nil
	d.errMsg = ""
	d.filling = false
	d.loading = true
	if len(cats) == 0 {
		d.mode = ModeRandom
	} else {
		d.mode = ModeFiltered
	}
	d.mu.Unlock()

	ctx, cancel := mergeContext(context.WithoutCancel(ctx), genCtx)
	defer cancel()

	if len(cats) == 0 {
		return d.loadRandom(ctx, gen)
	}
	return d.loadPool(ctx, gen, cats)
}

func (d *Deck) loadRandom(ctx context.Context, gen uint64) error {
	meals := d.fetchRandom(ctx, RandomBatch)

	d.mu.Lock()
	defer d.mu.Unlock()
	if gen != d.gen {
		return nil
	}
	d.loading = false
	d.appendUniqueLocked(meals)
	if len(meals) == 0 {
		d.errMsg = MsgLoadFailed
		return ErrLoadFailed
	}
	return nil
}

func (d *Deck) loadPool(ctx context.Context, gen uint64, cats []string) error {
	lists := make([][]model.MealSummary, len(cats))
	failed := make([]bool, len(cats))

	var g errgroup.Group
	g.SetLimit(fetchConcurrency)
	for i, cat := range cats {
		g.Go(func() error {
			meals, err := d.source.ByCategory(ctx, cat)
			if err != nil {
				failed[i] = true
				if ctx.Err() == nil {
					d.logger.Warn("category query failed", "category", cat, "error", err)
				}
				return nil
			}
			lists[i] = meals
			return nil
		})
	}
	g.Wait()

	allFailed := !slices.Contains(failed, false)

	seen := make(map[string]bool)
	var pool []string
	for _, list := range lists {
		for _, m := range list {
			if m.ID == "" || seen[m.ID] {
				continue
			}
			seen[m.ID] = true
			pool = append(pool, m.ID)
		}
	}
	d.shuffle(pool)

	d.mu.Lock()
	if gen != d.gen {
		d.mu.Unlock()
		return nil
	}
	d.loading = false
	if allFailed {
		d.errMsg = MsgPoolFailed
		d.mu.Unlock()
		return ErrPoolFailed
	}
	d.pool = pool
	d.cursor = 0
	d.mu.Unlock()

	return d.refill(ctx, gen)
}

// Refill tops the buffer up from the pool in filtered mode. It is a no-op in
// random mode, while another refill is in flight, when the buffer is full or
// when the pool is used up. The cursor advances by every id attempted,
// including ones that fail to load.
func (d *Deck) Refill(ctx context.Context) error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return ErrClosed
	}
	gen, genCtx := d.gen, d.genCtx
	d.mu.Unlock()

	ctx, cancel := mergeContext(context.WithoutCancel(ctx), genCtx)
	defer cancel()
	return d.refill(ctx, gen)
}

func (d *Deck) refill(ctx context.Context, gen uint64) error {
	for {
		d.mu.Lock()
		if gen != d.gen || d.mode != ModeFiltered || d.filling ||
			len(d.buffer) >= BufferSize || d.cursor >= len(d.pool) {
			d.mu.Unlock()
			return nil
		}
		need := min(BufferSize-len(d.buffer), len(d.pool)-d.cursor)
		ids := slices.Clone(d.pool[d.cursor : d.cursor+need])
		d.filling = true
		d.mu.Unlock()

		meals := make([]*model.MealDetail, len(ids))
		errs := make([]error, len(ids))
		var g errgroup.Group
		g.SetLimit(fetchConcurrency)
		for i, id := range ids {
			g.Go(func() error {
				meals[i], errs[i] = d.source.ByID(ctx, id)
				if errs[i] != nil && ctx.Err() == nil {
					d.logger.Warn("meal lookup failed", "meal_id", id, "error", errs[i])
				}
				return nil
			})
		}
		g.Wait()

		d.mu.Lock()
		if gen != d.gen {
			d.mu.Unlock()
			return nil
		}
		d.filling = false
		var got []model.MealDetail
		for _, m := range meals {
			if m != nil {
				got = append(got, *m)
			}
		}
		d.appendUniqueLocked(got)
		d.cursor += need
		if !slices.Contains(errs, nil) {
			d.errMsg = MsgRefillFailed
		}
		d.mu.Unlock()
	}
}

// Advance drops the top card now and schedules its replacement after the
// settle delay. The returned channel is closed once the replacement has been
// applied, skipped or discarded as stale.
func (d *Deck) Advance(ctx context.Context) <-chan struct{} {
	_, _, done := d.Take(ctx)
	return done
}

// Take is Advance that also returns the card it removed.
func (d *Deck) Take(ctx context.Context) (model.MealDetail, bool, <-chan struct{}) {
	done := make(chan struct{})

	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		close(done)
		return model.MealDetail{}, false, done
	}
	var top model.MealDetail
	ok := len(d.buffer) > 0
	if ok {
		top = d.buffer[0]
		d.buffer = slices.Delete(slices.Clone(d.buffer), 0, 1)
	}
	gen, mode, genCtx := d.gen, d.mode, d.genCtx
	d.pendingOps++
	d.wg.Add(1)
	d.mu.Unlock()

	opCtx, cancel := mergeContext(context.WithoutCancel(ctx), genCtx)
	go func() {
		defer d.wg.Done()
		defer close(done)
		defer d.opFinished()
		defer cancel()

		timer := time.NewTimer(d.settle)
		select {
		case <-timer.C:
		case <-opCtx.Done():
			timer.Stop()
			return
		}

		if mode == ModeRandom {
			d.replaceRandom(opCtx, gen)
			return
		}
		d.refill(opCtx, gen)
	}()

	return top, ok, done
}

func (d *Deck) opFinished() {
	d.mu.Lock()
	d.pendingOps--
	d.mu.Unlock()
}

func (d *Deck) replaceRandom(ctx context.Context, gen uint64) {
	meal, err := d.source.Random(ctx)

	d.mu.Lock()
	defer d.mu.Unlock()
	if gen != d.gen {
		return
	}
	if err != nil {
		d.logger.Warn("random replacement failed", "error", err)
		if len(d.buffer) == 0 {
			d.errMsg = MsgLoadFailed
		}
		return
	}
	if meal != nil {
		d.appendUniqueLocked([]model.MealDetail{*meal})
	}
}

func (d *Deck) fetchRandom(ctx context.Context, n int) []model.MealDetail {
	results := make([]*model.MealDetail, n)
	var g errgroup.Group
	g.SetLimit(fetchConcurrency)
	for i := range n {
		g.Go(func() error {
			meal, err := d.source.Random(ctx)
			if err != nil {
				if ctx.Err() == nil {
					d.logger.Warn("random meal fetch failed", "error", err)
				}
				return nil
			}
			results[i] = meal
			return nil
		})
	}
	g.Wait()

	var meals []model.MealDetail
	for _, m := range results {
		if m != nil {
			meals = append(meals, *m)
		}
	}
	return meals
}

// appendUniqueLocked adds meals whose ids are not already on the stack.
func (d *Deck) appendUniqueLocked(meals []model.MealDetail) {
	for _, m := range meals {
		if slices.ContainsFunc(d.buffer, func(b model.MealDetail) bool { return b.ID == m.ID }) {
			continue
		}
		d.buffer = append(d.buffer, m)
	}
}

func (d *Deck) Top() (model.MealDetail, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.buffer) == 0 {
		return model.MealDetail{}, false
	}
	return d.buffer[0], true
}

func (d *Deck) Snapshot() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return State{
		Mode:       d.mode.String(),
		Categories: slices.Clone(d.categories),
		Cards:      slices.Clone(d.buffer),
		Cursor:     d.cursor,
		PoolSize:   len(d.pool),
		Loading:    d.loading || d.filling || d.pendingOps > 0,
		Error:      d.errMsg,
	}
}

// SetError fills the error slot. The newest message wins.
func (d *Deck) SetError(msg string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.errMsg = msg
}

func (d *Deck) ClearError() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.errMsg = ""
}

// Close abandons all in-flight work. Later calls are no-ops.
func (d *Deck) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}
	d.closed = true
	d.bumpLocked()
	d.baseCancel()
}

// Wait blocks until every scheduled replacement has finished.
func (d *Deck) Wait() {
	d.wg.Wait()
}

func (d *Deck) bumpLocked() (uint64, context.Context) {
	d.gen++
	d.genCancel()
	d.genCtx, d.genCancel = context.WithCancel(d.baseCtx)
	return d.gen, d.genCtx
}

func normalizeCategories(categories []string) []string {
	var out []string
	for _, c := range categories {
		c = strings.TrimSpace(c)
		if c == "" || slices.Contains(out, c) {
			continue
		}
		out = append(out, c)
	}
	return out
}

// mergeContext returns a context cancelled when either parent or other is done.
func mergeContext(parent, other context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	stop := context.AfterFunc(other, cancel)
	return ctx, func() {
		stop()
		cancel()
	}
}
