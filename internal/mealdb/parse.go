package mealdb

import (
	"fmt"
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"

	"github.com/dukerupert/bitematch/internal/model"
)

// MaxIngredientSlots is the number of strIngredientN/strMeasureN pairs the
// upstream API returns per meal.
const MaxIngredientSlots = 20

type rawMeal map[string]any

func (m rawMeal) str(key string) string {
	switch v := m[key].(type) {
	case string:
		return v
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

type mealsResponse struct {
	Meals []rawMeal `json:"meals"`
}

type categoriesResponse struct {
	Categories []struct {
		Name string `json:"strCategory"`
	} `json:"categories"`
}

type sanitizer struct {
	policy *bluemonday.Policy
}

func newSanitizer() *sanitizer {
	return &sanitizer{policy: bluemonday.StrictPolicy()}
}

// text strips any markup and decodes entities so the result is plain text.
func (s *sanitizer) text(in string) string {
	return strings.TrimSpace(html.UnescapeString(s.policy.Sanitize(in)))
}

func (s *sanitizer) detail(m rawMeal) model.MealDetail {
	return model.MealDetail{
		ID:           strings.TrimSpace(m.str("idMeal")),
		Title:        s.text(m.str("strMeal")),
		ThumbnailURL: strings.TrimSpace(m.str("strMealThumb")),
		Area:         strings.TrimSpace(m.str("strArea")),
		Category:     strings.TrimSpace(m.str("strCategory")),
		Tags:         ParseTags(m.str("strTags")),
		Instructions: s.text(m.str("strInstructions")),
		Ingredients:  parseIngredients(m),
		SourceURL:    strings.TrimSpace(m.str("strSource")),
		VideoURL:     strings.TrimSpace(m.str("strYoutube")),
	}
}

func (s *sanitizer) summary(m rawMeal) model.MealSummary {
	return model.MealSummary{
		ID:           strings.TrimSpace(m.str("idMeal")),
		Title:        s.text(m.str("strMeal")),
		ThumbnailURL: strings.TrimSpace(m.str("strMealThumb")),
	}
}

// parseIngredients reads the numbered slots, skipping ones whose name is
// blank. Measures may be blank or missing.
func parseIngredients(m rawMeal) []model.Ingredient {
	var out []model.Ingredient
	for i := 1; i <= MaxIngredientSlots; i++ {
		name := strings.TrimSpace(m.str(fmt.Sprintf("strIngredient%d", i)))
		if name == "" {
			continue
		}
		out = append(out, model.Ingredient{
			Name:    name,
			Measure: strings.TrimSpace(m.str(fmt.Sprintf("strMeasure%d", i))),
		})
	}
	return out
}

// ParseTags splits a comma-separated tag string, dropping blanks.
func ParseTags(s string) []string {
	var tags []string
	for _, t := range strings.Split(s, ",") {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}
