package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dukerupert/bitematch/internal/model"
)

type LikeStore struct {
	db *sql.DB
}

func NewLikeStore(db *sql.DB) *LikeStore {
	return &LikeStore{db: db}
}

func scanLike(scanner interface{ Scan(...any) error }) (*model.LikeRecord, error) {
	var l model.LikeRecord
	var mealJSON string
	if err := scanner.Scan(&l.MealID, &l.LikedAt, &mealJSON); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(mealJSON), &l.Meal); err != nil {
		return nil, fmt.Errorf("decode meal %s: %w", l.MealID, err)
	}
	return &l, nil
}

const likeCols = `meal_id, liked_at, meal_json`

// Upsert records a like for (userID, meal.ID). Liking the same meal again
// refreshes the timestamp and snapshot.
func (s *LikeStore) Upsert(userID int64, meal model.MealDetail, likedAt time.Time) error {
	mealJSON, err := json.Marshal(meal)
	if err != nil {
		return fmt.Errorf("encode meal: %w", err)
	}
	_, err = s.db.Exec(
		`INSERT INTO likes (user_id, meal_id, liked_at, meal_json) VALUES (?, ?, ?, ?)
		 ON CONFLICT(user_id, meal_id) DO UPDATE SET liked_at = excluded.liked_at, meal_json = excluded.meal_json`,
		userID, meal.ID, likedAt.UTC(), string(mealJSON),
	)
	if err != nil {
		return fmt.Errorf("upsert like: %w", err)
	}
	return nil
}

func (s *LikeStore) Get(userID int64, mealID string) (*model.LikeRecord, error) {
	row := s.db.QueryRow(`SELECT `+likeCols+` FROM likes WHERE user_id = ? AND meal_id = ?`, userID, mealID)
	l, err := scanLike(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get like: %w", err)
	}
	return l, nil
}

// List returns the user's likes, most recent first.
func (s *LikeStore) List(userID int64, limit int) ([]model.LikeRecord, error) {
	rows, err := s.db.Query(
		`SELECT `+likeCols+` FROM likes WHERE user_id = ? ORDER BY liked_at DESC, meal_id LIMIT ?`,
		userID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list likes: %w", err)
	}
	defer rows.Close()

	var likes []model.LikeRecord
	for rows.Next() {
		l, err := scanLike(rows)
		if err != nil {
			return nil, fmt.Errorf("scan like: %w", err)
		}
		likes = append(likes, *l)
	}
	return likes, rows.Err()
}
