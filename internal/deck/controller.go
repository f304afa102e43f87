package deck

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dukerupert/bitematch/internal/metrics"
	"github.com/dukerupert/bitematch/internal/model"
)

const likeWriteTimeout = 10 * time.Second

// Liker persists a liked meal for a user.
type Liker interface {
	Like(ctx context.Context, userID int64, meal model.MealDetail) error
}

// Controller serialises swipes on one deck: while an action is pending,
// further swipes are rejected.
type Controller struct {
	deck    *Deck
	liker   Liker
	metrics metrics.Recorder
	logger  *slog.Logger

	pending atomic.Bool
	wg      sync.WaitGroup
}

func NewController(d *Deck, liker Liker, rec metrics.Recorder, logger *slog.Logger) *Controller {
	if rec == nil {
		rec = metrics.Nop{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{deck: d, liker: liker, metrics: rec, logger: logger}
}

func (c *Controller) Deck() *Deck {
	return c.deck
}

// Pass discards the top card. It returns false without doing anything when
// another action is still pending.
func (c *Controller) Pass(ctx context.Context) bool {
	if !c.pending.CompareAndSwap(false, true) {
		return false
	}
	c.metrics.RecordSwipe("pass")
	c.releaseWhenSettled(c.deck.Advance(ctx))
	return true
}

// Like saves the top card for userID and advances the deck. The advance does
// not wait for the write and is never undone; a failed write is logged and
// reported on the deck's error slot.
func (c *Controller) Like(ctx context.Context, userID int64) bool {
	if !c.pending.CompareAndSwap(false, true) {
		return false
	}
	c.metrics.RecordSwipe("like")

	meal, ok, settled := c.deck.Take(ctx)
	if ok {
		c.wg.Add(1)
		go func() {
			defer c.wg.Done()
			writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), likeWriteTimeout)
			defer cancel()
			if err := c.liker.Like(writeCtx, userID, meal); err != nil {
				c.logger.Warn("like write failed", "user_id", userID, "meal_id", meal.ID, "error", err)
				c.metrics.RecordLikeWriteFailure()
				c.deck.SetError(MsgLikeFailed)
			}
		}()
	}
	c.releaseWhenSettled(settled)
	return true
}

func (c *Controller) releaseWhenSettled(settled <-chan struct{}) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		<-settled
		c.pending.Store(false)
	}()
}

func (c *Controller) Pending() bool {
	return c.pending.Load()
}

// Wait blocks until pending swipes have settled and like writes have returned.
func (c *Controller) Wait() {
	c.wg.Wait()
	c.deck.Wait()
}
