// Package shopping folds weekly-plan meals into an aggregated shopping list
// and renders it as plain text. Everything here is pure.
package shopping

import (
	"fmt"
	"slices"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/dukerupert/bitematch/internal/model"
)

const (
	DefaultLocale = "sv"
	DefaultBullet = "• "
)

type Options struct {
	// Locale is a BCP 47 tag used to order items by name. Empty means DefaultLocale.
	Locale string
}

// Aggregate merges the ingredients of entries by normalised name. The first
// spelling seen becomes the display name; blank measures are counted rather
// than listed.
func Aggregate(entries []model.PlanEntry, opts Options) []model.ShoppingItem {
	index := make(map[string]int)
	var items []model.ShoppingItem

	for _, e := range entries {
		for _, ing := range e.Meal.Ingredients {
			name := strings.TrimSpace(ing.Name)
			key := NormalizeKey(name)
			if key == "" {
				continue
			}
			i, ok := index[key]
			if !ok {
				display := name
				if display == "" {
					display = capitalize(key)
				}
				items = append(items, model.ShoppingItem{Key: key, Name: display, Aisle: Aisle(key), Measures: []string{}})
				i = len(items) - 1
				index[key] = i
			}
			if m := strings.TrimSpace(ing.Measure); m != "" {
				items[i].Measures = append(items[i].Measures, m)
			} else {
				items[i].NoMeasureCount++
			}
		}
	}

	col := newCollator(opts.Locale)
	slices.SortStableFunc(items, func(a, b model.ShoppingItem) int {
		if c := col.CompareString(a.Name, b.Name); c != 0 {
			return c
		}
		return strings.Compare(a.Key, b.Key)
	})
	if items == nil {
		items = []model.ShoppingItem{}
	}
	return items
}

// newCollator builds a collator for locale. Collators are not safe for
// concurrent use, so each call gets its own.
func newCollator(locale string) *collate.Collator {
	if locale == "" {
		locale = DefaultLocale
	}
	tag, err := language.Parse(locale)
	if err != nil {
		tag = language.Make(DefaultLocale)
	}
	return collate.New(tag)
}

// NormalizeKey trims, lowercases and collapses runs of whitespace.
func NormalizeKey(name string) string {
	return strings.Join(strings.Fields(strings.ToLower(name)), " ")
}

func normalizeMeasure(m string) string {
	return strings.Join(strings.Fields(m), " ")
}

func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}

// SummarizeMeasures counts identical measures in first-seen order, e.g.
// ["1 tsp", "2 cups", "1 tsp"] becomes "2× 1 tsp, 2 cups".
func SummarizeMeasures(measures []string) string {
	var order []string
	counts := make(map[string]int)
	for _, m := range measures {
		k := normalizeMeasure(m)
		if k == "" {
			continue
		}
		if counts[k] == 0 {
			order = append(order, k)
		}
		counts[k]++
	}

	parts := make([]string, len(order))
	for i, k := range order {
		if n := counts[k]; n > 1 {
			parts[i] = fmt.Sprintf("%d× %s", n, k)
		} else {
			parts[i] = k
		}
	}
	return strings.Join(parts, ", ")
}

type FormatOptions struct {
	// Bullet prefixes each line. Nil means DefaultBullet; point at "" for none.
	Bullet *string
	// HideNoMeasure drops the "(no measure)" clause.
	HideNoMeasure bool
}

// FormatPlain renders one line per item, joined by newlines.
func FormatPlain(items []model.ShoppingItem, opts FormatOptions) string {
	if len(items) == 0 {
		return ""
	}
	bullet := DefaultBullet
	if opts.Bullet != nil {
		bullet = *opts.Bullet
	}

	lines := make([]string, len(items))
	for i, it := range items {
		var details []string
		if s := SummarizeMeasures(it.Measures); s != "" {
			details = append(details, s)
		}
		if it.NoMeasureCount > 0 && !opts.HideNoMeasure {
			details = append(details, fmt.Sprintf("%d× (no measure)", it.NoMeasureCount))
		}
		if len(details) == 0 {
			lines[i] = bullet + it.Name
			continue
		}
		lines[i] = bullet + it.Name + " — " + strings.Join(details, ", ")
	}
	return strings.Join(lines, "\n")
}
