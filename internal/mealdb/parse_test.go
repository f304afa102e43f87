package mealdb

import (
	"reflect"
	"testing"
)

func TestParseTags(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"", nil},
		{"Meat,Casserole", []string{"Meat", "Casserole"}},
		{" Spicy , ,Curry ,", []string{"Spicy", "Curry"}},
	}
	for _, tt := range tests {
		if got := ParseTags(tt.in); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("ParseTags(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestParseIngredientsSkipsBlankNames(t *testing.T) {
	raw := rawMeal{
		"strIngredient1":  "Flour",
		"strMeasure1":     "200g",
		"strIngredient2":  "   ",
		"strMeasure2":     "1 tsp",
		"strIngredient20": "Eggs",
	}
	got := parseIngredients(raw)
	if len(got) != 2 {
		t.Fatalf("got %+v, want 2 ingredients", got)
	}
	if got[1].Name != "Eggs" || got[1].Measure != "" {
		t.Errorf("slot 20 = %+v", got[1])
	}
}

func TestSanitizerText(t *testing.T) {
	s := newSanitizer()
	if got := s.text(`Fish & Chips <script>alert(1)</script>`); got != "Fish & Chips" {
		t.Errorf("text = %q", got)
	}
	if got := s.text(`Mom's "best" pie`); got != `Mom's "best" pie` {
		t.Errorf("text = %q, entities not decoded", got)
	}
}
