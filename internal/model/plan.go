package model

import "time"

// LikeRecord is the per-user, per-meal like. Re-liking refreshes LikedAt.
type LikeRecord struct {
	MealID  string     `json:"meal_id"`
	LikedAt time.Time  `json:"liked_at"`
	Meal    MealDetail `json:"meal"`
}

// PlanEntry is one weekly-plan row. ID is generated per insert, so the same
// meal may appear more than once.
type PlanEntry struct {
	ID      string     `json:"id"`
	MealID  string     `json:"meal_id"`
	LikedAt time.Time  `json:"liked_at"`
	Meal    MealDetail `json:"meal"`
}

type ShoppingItem struct {
	Key            string   `json:"key"`
	Name           string   `json:"name"`
	Aisle          string   `json:"aisle"`
	Measures       []string `json:"measures"`
	NoMeasureCount int      `json:"no_measure_count"`
}
