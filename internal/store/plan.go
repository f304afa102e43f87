package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dukerupert/bitematch/internal/model"
)

type PlanStore struct {
	db *sql.DB
}

func NewPlanStore(db *sql.DB) *PlanStore {
	return &PlanStore{db: db}
}

func scanPlanEntry(scanner interface{ Scan(...any) error }) (*model.PlanEntry, error) {
	var e model.PlanEntry
	var mealJSON string
	if err := scanner.Scan(&e.ID, &e.MealID, &e.LikedAt, &mealJSON); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(mealJSON), &e.Meal); err != nil {
		return nil, fmt.Errorf("decode meal %s: %w", e.MealID, err)
	}
	return &e, nil
}

const planCols = `id, meal_id, liked_at, meal_json`

// InsertAndTrim adds a plan entry and then deletes everything but the newest
// keep entries for the user. Both steps run in one transaction, and the trim
// works from a read taken after the insert. It returns the new entry and the
// number of entries removed.
func (s *PlanStore) InsertAndTrim(userID int64, meal model.MealDetail, likedAt time.Time, keep int) (*model.PlanEntry, int64, error) {
	if keep < 1 {
		return nil, 0, fmt.Errorf("keep must be at least 1, got %d", keep)
	}
	mealJSON, err := json.Marshal(meal)
	if err != nil {
		return nil, 0, fmt.Errorf("encode meal: %w", err)
	}

	entry := &model.PlanEntry{
		ID:      uuid.NewString(),
		MealID:  meal.ID,
		LikedAt: likedAt.UTC(),
		Meal:    meal,
	}

	tx, err := s.db.Begin()
	if err != nil {
		return nil, 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		`INSERT INTO plan_entries (id, user_id, meal_id, liked_at, meal_json) VALUES (?, ?, ?, ?, ?)`,
		entry.ID, userID, entry.MealID, entry.LikedAt, string(mealJSON),
	)
	if err != nil {
		return nil, 0, fmt.Errorf("insert plan entry: %w", err)
	}

	result, err := tx.Exec(
		`DELETE FROM plan_entries
		 WHERE user_id = ? AND seq NOT IN (
		     SELECT seq FROM plan_entries WHERE user_id = ?
		     ORDER BY liked_at DESC, seq DESC LIMIT ?
		 )`,
		userID, userID, keep,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("trim plan entries: %w", err)
	}
	trimmed, err := result.RowsAffected()
	if err != nil {
		return nil, 0, fmt.Errorf("rows affected: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, 0, fmt.Errorf("commit: %w", err)
	}
	return entry, trimmed, nil
}

// ListRecent returns up to limit entries, newest first.
func (s *PlanStore) ListRecent(userID int64, limit int) ([]model.PlanEntry, error) {
	rows, err := s.db.Query(
		`SELECT `+planCols+` FROM plan_entries WHERE user_id = ? ORDER BY liked_at DESC, seq DESC LIMIT ?`,
		userID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list plan entries: %w", err)
	}
	defer rows.Close()

	entries := []model.PlanEntry{}
	for rows.Next() {
		e, err := scanPlanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan plan entry: %w", err)
		}
		entries = append(entries, *e)
	}
	return entries, rows.Err()
}

// Delete removes a single entry. It reports false when the entry does not
// exist or belongs to another user.
func (s *PlanStore) Delete(userID int64, entryID string) (bool, error) {
	result, err := s.db.Exec(`DELETE FROM plan_entries WHERE id = ? AND user_id = ?`, entryID, userID)
	if err != nil {
		return false, fmt.Errorf("delete plan entry: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}

func (s *PlanStore) Count(userID int64) (int, error) {
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM plan_entries WHERE user_id = ?`, userID).Scan(&n); err != nil {
		return 0, fmt.Errorf("count plan entries: %w", err)
	}
	return n, nil
}
