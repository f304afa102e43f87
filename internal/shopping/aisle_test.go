package shopping

import (
	"testing"

	"github.com/dukerupert/bitematch/internal/model"
)

func TestAisleExactMatch(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"salt", AisleSpices},
		{"eggs", AisleDairy},
		{"garlic", AisleProduce},
		{"olive oil", AislePantry},
		{"plain flour", AislePantry},
		{"baguette", AisleBakery},
		{"frozen peas", AisleFrozen},
		{"black pepper", AisleSpices},
	}
	for _, tt := range tests {
		if got := Aisle(tt.input); got != tt.want {
			t.Errorf("Aisle(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestAisleKeywordMatch(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"chicken breast", AisleMeat},
		{"minced beef", AisleMeat},
		{"chicken stock cube", AislePantry},
		{"red wine vinegar", AislePantry},
		{"sesame oil", AislePantry},
		{"cheddar cheese", AisleDairy},
		{"frozen spinach", AisleFrozen},
		{"ground black pepper", AisleSpices},
		{"red pepper", AisleProduce},
		{"chestnut mushrooms", AisleProduce},
	}
	for _, tt := range tests {
		if got := Aisle(tt.input); got != tt.want {
			t.Errorf("Aisle(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestAisleUnknown(t *testing.T) {
	for _, in := range []string{"", "xanthan gum", "water"} {
		if got := Aisle(in); got != AisleOther {
			t.Errorf("Aisle(%q) = %q, want %q", in, got, AisleOther)
		}
	}
}

func TestGroupByAisle(t *testing.T) {
	items := []model.ShoppingItem{
		{Key: "salt", Name: "Salt", Aisle: AisleSpices},
		{Key: "garlic", Name: "Garlic", Aisle: AisleProduce},
		{Key: "water", Name: "Water"},
		{Key: "onion", Name: "Onion", Aisle: AisleProduce},
	}

	groups := GroupByAisle(items)
	if len(groups) != 3 {
		t.Fatalf("got %d groups, want 3", len(groups))
	}
	want := []string{AisleProduce, AisleSpices, AisleOther}
	for i, g := range groups {
		if g.Aisle != want[i] {
			t.Errorf("group %d = %q, want %q", i, g.Aisle, want[i])
		}
	}
	if groups[0].Items[0].Key != "garlic" || groups[0].Items[1].Key != "onion" {
		t.Errorf("produce order = %+v", groups[0].Items)
	}
	if groups[2].Items[0].Key != "water" {
		t.Errorf("fallback aisle = %+v", groups[2].Items)
	}

	if got := GroupByAisle(nil); got == nil || len(got) != 0 {
		t.Errorf("GroupByAisle(nil) = %#v, want empty", got)
	}
}
