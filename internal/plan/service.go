// Package plan owns a user's likes and weekly plan, and streams plan
// snapshots to watchers as they change.
package plan

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dukerupert/bitematch/internal/model"
	"github.com/dukerupert/bitematch/internal/realtime"
	"github.com/dukerupert/bitematch/internal/store"
)

// DefaultCap is the number of entries kept in a weekly plan.
const DefaultCap = 20

const entityPlan = "plan"

type Service struct {
	likes  *store.LikeStore
	plan   *store.PlanStore
	hub    *realtime.Hub
	cap    int
	logger *slog.Logger
	now    func() time.Time
}

func New(likes *store.LikeStore, plan *store.PlanStore, hub *realtime.Hub, cap int, logger *slog.Logger) *Service {
	if cap < 1 {
		cap = DefaultCap
	}
	return &Service{
		likes:  likes,
		plan:   plan,
		hub:    hub,
		cap:    cap,
		logger: logger,
		now:    time.Now,
	}
}

// Cap returns the number of entries the plan keeps.
func (s *Service) Cap() int {
	return s.cap
}

// Like records meal as liked by the user and adds it to the weekly plan,
// trimming the plan down to its cap.
func (s *Service) Like(ctx context.Context, userID int64, meal model.MealDetail) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	likedAt := s.now().UTC()
	if err := s.likes.Upsert(userID, meal, likedAt); err != nil {
		return fmt.Errorf("record like: %w", err)
	}
	entry, trimmed, err := s.plan.InsertAndTrim(userID, meal, likedAt, s.cap)
	if err != nil {
		return fmt.Errorf("add to plan: %w", err)
	}
	if trimmed > 0 {
		s.logger.Debug("plan trimmed", "user_id", userID, "removed", trimmed)
	}
	s.hub.Publish(userID, realtime.NewEvent(entityPlan, "added", entry.ID))
	return nil
}

// Remove deletes one plan entry. It reports false when the entry was not found.
func (s *Service) Remove(ctx context.Context, userID int64, entryID string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	ok, err := s.plan.Delete(userID, entryID)
	if err != nil {
		return false, err
	}
	if ok {
		s.hub.Publish(userID, realtime.NewEvent(entityPlan, "removed", entryID))
	}
	return ok, nil
}

// Snapshot returns up to limit plan entries, newest first. A limit outside
// 1..cap is clamped to the cap.
func (s *Service) Snapshot(ctx context.Context, userID int64, limit int) ([]model.PlanEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.plan.ListRecent(userID, s.clamp(limit))
}

// Likes returns up to limit likes, newest first.
func (s *Service) Likes(ctx context.Context, userID int64, limit int) ([]model.LikeRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if limit < 1 {
		limit = 100
	}
	likes, err := s.likes.List(userID, limit)
	if err != nil {
		return nil, err
	}
	if likes == nil {
		likes = []model.LikeRecord{}
	}
	return likes, nil
}

func (s *Service) clamp(limit int) int {
	if limit < 1 || limit > s.cap {
		return s.cap
	}
	return limit
}

// Snapshot is one state of the plan delivered by a Stream.
type Snapshot struct {
	Entries []model.PlanEntry
	Err     error
}

// Stream delivers plan snapshots until closed. A consumer that falls behind
// only ever sees the latest snapshot.
type Stream struct {
	out    chan Snapshot
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

// C returns the snapshot channel. It is closed when the stream ends.
func (st *Stream) C() <-chan Snapshot {
	return st.out
}

// Close stops the stream and waits for it to finish.
func (st *Stream) Close() {
	st.once.Do(st.cancel)
	<-st.done
}

// Watch emits the current plan immediately and again after every change to
// the user's plan, until ctx is cancelled or the stream is closed.
func (s *Service) Watch(ctx context.Context, userID int64, limit int) *Stream {
	ctx, cancel := context.WithCancel(ctx)
	st := &Stream{
		out:    make(chan Snapshot, 1),
		cancel: cancel,
		done:   make(chan struct{}),
	}
	// Subscribe before the first read so no change is missed in between.
	sub := s.hub.Subscribe(userID)
	limit = s.clamp(limit)

	go func() {
		defer close(st.done)
		defer close(st.out)
		defer sub.Close()

		emit := func() {
			entries, err := s.plan.ListRecent(userID, limit)
			if err != nil {
				s.logger.Warn("plan snapshot failed", "user_id", userID, "error", err)
			}
			// Replace any snapshot the consumer has not picked up yet.
			select {
			case <-st.out:
			default:
			}
			st.out <- Snapshot{Entries: entries, Err: err}
		}

		emit()
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-sub.C():
				if !ok {
					return
				}
				emit()
			}
		}
	}()
	return st
}
