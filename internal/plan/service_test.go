package plan

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/dukerupert/bitematch/internal/database"
	"github.com/dukerupert/bitematch/internal/model"
	"github.com/dukerupert/bitematch/internal/realtime"
	"github.com/dukerupert/bitematch/internal/store"
)

func setup(t *testing.T, cap int) (*Service, *sql.DB, int64) {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	u, err := store.NewUserStore(db).CreateAnonymous()
	if err != nil {
		t.Fatalf("create anonymous user: %v", err)
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := New(store.NewLikeStore(db), store.NewPlanStore(db), realtime.NewHub(logger), cap, logger)

	// Strictly increasing timestamps keep ordering deterministic.
	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	tick := 0
	svc.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Second)
	}
	return svc, db, u.ID
}

func meal(id string) model.MealDetail {
	return model.MealDetail{
		ID:          id,
		Title:       "Meal " + id,
		Ingredients: []model.Ingredient{{Name: "Salt", Measure: "1 tsp"}},
	}
}

func recv(t *testing.T, st *Stream) Snapshot {
	t.Helper()
	select {
	case snap, ok := <-st.C():
		if !ok {
			t.Fatal("stream closed")
		}
		return snap
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for snapshot")
	}
	return Snapshot{}
}

func TestLikeAddsToPlanAndLikes(t *testing.T) {
	svc, _, userID := setup(t, 20)
	ctx := context.Background()

	if err := svc.Like(ctx, userID, meal("1")); err != nil {
		t.Fatalf("Like: %v", err)
	}
	if err := svc.Like(ctx, userID, meal("1")); err != nil {
		t.Fatalf("Like again: %v", err)
	}

	entries, err := svc.Snapshot(ctx, userID, 0)
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 plan entries, got %d", len(entries))
	}
	if entries[0].ID == entries[1].ID {
		t.Error("expected distinct entry ids")
	}

	likes, err := svc.Likes(ctx, userID, 0)
	if err != nil {
		t.Fatalf("Likes: %v", err)
	}
	if len(likes) != 1 {
		t.Fatalf("expected 1 like, got %d", len(likes))
	}
}

func TestLikeTrimsToCap(t *testing.T) {
	svc, _, userID := setup(t, 3)
	ctx := context.Background()

	for i := 1; i <= 5; i++ {
		if err := svc.Like(ctx, userID, meal(fmt.Sprint(i))); err != nil {
			t.Fatalf("Like %d: %v", i, err)
		}
	}

	entries, err := svc.Snapshot(ctx, userID, 10)
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}
	for i, want := range []string{"5", "4", "3"} {
		if entries[i].MealID != want {
			t.Errorf("entries[%d] = %s, want %s", i, entries[i].MealID, want)
		}
	}
}

func TestRemove(t *testing.T) {
	svc, _, userID := setup(t, 20)
	ctx := context.Background()

	if err := svc.Like(ctx, userID, meal("1")); err != nil {
		t.Fatalf("Like: %v", err)
	}
	entries, _ := svc.Snapshot(ctx, userID, 0)

	ok, err := svc.Remove(ctx, userID, entries[0].ID)
	if err != nil || !ok {
		t.Fatalf("Remove = %v, %v", ok, err)
	}
	ok, err = svc.Remove(ctx, userID, entries[0].ID)
	if err != nil || ok {
		t.Fatalf("second Remove = %v, %v; want false, nil", ok, err)
	}
}

func TestLikeCancelledContext(t *testing.T) {
	svc, _, userID := setup(t, 20)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := svc.Like(ctx, userID, meal("1")); err == nil {
		t.Fatal("expected error for cancelled context")
	}
	entries, _ := svc.Snapshot(context.Background(), userID, 0)
	if len(entries) != 0 {
		t.Errorf("expected no entries, got %d", len(entries))
	}
}

func TestWatchEmitsInitialAndChanges(t *testing.T) {
	svc, _, userID := setup(t, 20)
	ctx := context.Background()

	st := svc.Watch(ctx, userID, 5)
	defer st.Close()

	first := recv(t, st)
	if first.Err != nil || len(first.Entries) != 0 {
		t.Fatalf("initial snapshot = %+v", first)
	}

	if err := svc.Like(ctx, userID, meal("1")); err != nil {
		t.Fatalf("Like: %v", err)
	}
	next := recv(t, st)
	if len(next.Entries) != 1 || next.Entries[0].MealID != "1" {
		t.Fatalf("snapshot after like = %+v", next.Entries)
	}

	if _, err := svc.Remove(ctx, userID, next.Entries[0].ID); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	after := recv(t, st)
	if len(after.Entries) != 0 {
		t.Fatalf("snapshot after remove = %+v", after.Entries)
	}
}

func TestWatchIgnoresOtherUsers(t *testing.T) {
	svc, db, userID := setup(t, 20)
	ctx := context.Background()

	other, err := store.NewUserStore(db).CreateAnonymous()
	if err != nil {
		t.Fatalf("create other user: %v", err)
	}

	st := svc.Watch(ctx, userID, 5)
	defer st.Close()
	recv(t, st)

	if err := svc.Like(ctx, other.ID, meal("9")); err != nil {
		t.Fatalf("Like: %v", err)
	}
	select {
	case snap := <-st.C():
		t.Fatalf("unexpected snapshot %+v", snap)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestWatchSlowConsumerGetsLatest(t *testing.T) {
	svc, _, userID := setup(t, 20)
	ctx := context.Background()

	st := svc.Watch(ctx, userID, 20)
	defer st.Close()
	recv(t, st)

	for i := 1; i <= 4; i++ {
		if err := svc.Like(ctx, userID, meal(fmt.Sprint(i))); err != nil {
			t.Fatalf("Like %d: %v", i, err)
		}
	}

	// Keep reading until the newest state shows up; there must never be
	// more queued snapshots than the channel holds.
	deadline := time.After(2 * time.Second)
	for {
		if len(st.C()) > 1 {
			t.Fatal("more than one snapshot queued")
		}
		select {
		case snap := <-st.C():
			if len(snap.Entries) == 4 {
				return
			}
		case <-deadline:
			t.Fatal("never observed the latest snapshot")
		}
	}
}

func TestWatchCloseAndContextCancel(t *testing.T) {
	svc, _, userID := setup(t, 20)

	st := svc.Watch(context.Background(), userID, 5)
	recv(t, st)
	st.Close()
	st.Close()
	if _, ok := <-st.C(); ok {
		t.Error("expected closed channel after Close")
	}
	if n := svc.hub.SubscriberCount(userID); n != 0 {
		t.Errorf("expected 0 subscribers, got %d", n)
	}

	ctx, cancel := context.WithCancel(context.Background())
	st = svc.Watch(ctx, userID, 5)
	recv(t, st)
	cancel()
	select {
	case _, ok := <-st.C():
		if ok {
			t.Error("expected closed channel after cancel")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("stream did not end after cancel")
	}
}
