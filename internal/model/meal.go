package model

// MealSummary is the short form returned by category queries.
type MealSummary struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	ThumbnailURL string `json:"thumbnail_url"`
}

type Ingredient struct {
	Name    string `json:"name"`
	Measure string `json:"measure"`
}

// MealDetail is a fully fetched meal. It is treated as immutable once fetched.
type MealDetail struct {
	ID           string       `json:"id"`
	Title        string       `json:"title"`
	ThumbnailURL string       `json:"thumbnail_url"`
	Area         string       `json:"area"`
	Category     string       `json:"category"`
	Tags         []string     `json:"tags"`
	Instructions string       `json:"instructions"`
	Ingredients  []Ingredient `json:"ingredients"`
	SourceURL    string       `json:"source_url,omitempty"`
	VideoURL     string       `json:"video_url,omitempty"`
}

// Summary returns the summary view of the meal.
func (m MealDetail) Summary() MealSummary {
	return MealSummary{ID: m.ID, Title: m.Title, ThumbnailURL: m.ThumbnailURL}
}
