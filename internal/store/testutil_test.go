package store

import (
	"database/sql"
	"testing"

	"github.com/dukerupert/bitematch/internal/database"
	"github.com/dukerupert/bitematch/internal/model"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func createGuest(t *testing.T, db *sql.DB) *model.User {
	t.Helper()
	u, err := NewUserStore(db).CreateAnonymous()
	if err != nil {
		t.Fatalf("create anonymous user: %v", err)
	}
	return u
}

func testMeal(id, title string) model.MealDetail {
	return model.MealDetail{
		ID:    id,
		Title: title,
		Ingredients: []model.Ingredient{
			{Name: "Salt", Measure: "1 tsp"},
		},
	}
}
