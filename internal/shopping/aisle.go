package shopping

import (
	"strings"

	"github.com/dukerupert/bitematch/internal/model"
)

// Store aisles an ingredient can be filed under.
const (
	AisleProduce = "Produce"
	AisleDairy   = "Dairy & Eggs"
	AisleMeat    = "Meat & Seafood"
	AisleBakery  = "Bakery"
	AislePantry  = "Pantry"
	AisleSpices  = "Spices & Herbs"
	AisleFrozen  = "Frozen"
	AisleOther   = "Other"
)

// aisleOrder is the walking order used when grouping a list.
var aisleOrder = []string{
	AisleProduce, AisleBakery, AisleMeat, AisleDairy,
	AislePantry, AisleSpices, AisleFrozen, AisleOther,
}

// Aisle returns the store aisle for a normalised ingredient key. Exact
// names are tried first, then keywords; unknown ingredients go to Other.
func Aisle(key string) string {
	if key == "" {
		return AisleOther
	}
	if a, ok := aisleExact[key]; ok {
		return a
	}
	for _, kw := range aisleKeywords {
		if strings.Contains(key, kw.keyword) {
			return kw.aisle
		}
	}
	return AisleOther
}

// AisleGroup is the items of one aisle.
type AisleGroup struct {
	Aisle string               `json:"aisle"`
	Items []model.ShoppingItem `json:"items"`
}

// GroupByAisle splits items by aisle in walking order. Item order within
// an aisle is kept.
func GroupByAisle(items []model.ShoppingItem) []AisleGroup {
	byAisle := make(map[string][]model.ShoppingItem)
	for _, it := range items {
		a := it.Aisle
		if a == "" {
			a = Aisle(it.Key)
		}
		byAisle[a] = append(byAisle[a], it)
	}
	groups := []AisleGroup{}
	for _, a := range aisleOrder {
		if its, ok := byAisle[a]; ok {
			groups = append(groups, AisleGroup{Aisle: a, Items: its})
		}
	}
	return groups
}

// Names as they appear in meal ingredient lists.
var aisleExact = map[string]string{
	"salt":          AisleSpices,
	"sea salt":      AisleSpices,
	"pepper":        AisleSpices,
	"black pepper":  AisleSpices,
	"paprika":       AisleSpices,
	"cumin":         AisleSpices,
	"turmeric":      AisleSpices,
	"cinnamon":      AisleSpices,
	"nutmeg":        AisleSpices,
	"oregano":       AisleSpices,
	"thyme":         AisleSpices,
	"bay leaf":      AisleSpices,
	"bay leaves":    AisleSpices,
	"garam masala":  AisleSpices,
	"chilli powder": AisleSpices,

	"egg":           AisleDairy,
	"eggs":          AisleDairy,
	"milk":          AisleDairy,
	"butter":        AisleDairy,
	"cream":         AisleDairy,
	"double cream":  AisleDairy,
	"creme fraiche": AisleDairy,
	"yogurt":        AisleDairy,
	"greek yogurt":  AisleDairy,
	"parmesan":      AisleDairy,
	"cheddar":       AisleDairy,
	"mozzarella":    AisleDairy,
	"feta":          AisleDairy,

	"onion":         AisleProduce,
	"onions":        AisleProduce,
	"red onions":    AisleProduce,
	"garlic":        AisleProduce,
	"garlic clove":  AisleProduce,
	"ginger":        AisleProduce,
	"carrots":       AisleProduce,
	"potatoes":      AisleProduce,
	"tomatoes":      AisleProduce,
	"lemon":         AisleProduce,
	"lime":          AisleProduce,
	"spinach":       AisleProduce,
	"coriander":     AisleProduce,
	"parsley":       AisleProduce,
	"basil":         AisleProduce,
	"mint":          AisleProduce,
	"spring onions": AisleProduce,
	"zucchini":      AisleProduce,
	"courgettes":    AisleProduce,
	"aubergine":     AisleProduce,
	"avocado":       AisleProduce,

	"plain flour":        AislePantry,
	"self-raising flour": AislePantry,
	"sugar":              AislePantry,
	"caster sugar":       AislePantry,
	"brown sugar":        AislePantry,
	"rice":               AislePantry,
	"basmati rice":       AislePantry,
	"olive oil":          AislePantry,
	"vegetable oil":      AislePantry,
	"soy sauce":          AislePantry,
	"honey":              AislePantry,
	"chicken stock":      AislePantry,
	"beef stock":         AislePantry,
	"tomato puree":       AislePantry,
	"chopped tomatoes":   AislePantry,
	"coconut milk":       AislePantry,
	"baking powder":      AislePantry,

	"bread":       AisleBakery,
	"baguette":    AisleBakery,
	"tortillas":   AisleBakery,
	"pitta bread": AisleBakery,

	"frozen peas": AisleFrozen,
	"peas":        AisleFrozen,
	"ice cream":   AisleFrozen,
}

type aisleKeyword struct {
	keyword string
	aisle   string
}

// Checked in order, so longer and more specific keywords come first.
var aisleKeywords = []aisleKeyword{
	{"frozen", AisleFrozen},
	{"stock", AislePantry},
	{"sauce", AislePantry},
	{"flour", AislePantry},
	{"sugar", AislePantry},
	{"vinegar", AislePantry},
	{"pasta", AislePantry},
	{"noodles", AislePantry},
	{" oil", AislePantry},
	{"beans", AislePantry},
	{"lentils", AislePantry},
	{"cheese", AisleDairy},
	{"yogurt", AisleDairy},
	{"cream", AisleDairy},
	{"chicken", AisleMeat},
	{"beef", AisleMeat},
	{"pork", AisleMeat},
	{"lamb", AisleMeat},
	{"bacon", AisleMeat},
	{"sausage", AisleMeat},
	{"mince", AisleMeat},
	{"salmon", AisleMeat},
	{"prawns", AisleMeat},
	{"fish", AisleMeat},
	{"bread", AisleBakery},
	{"ground", AisleSpices},
	{"powder", AisleSpices},
	{"seeds", AisleSpices},
	{"dried", AisleSpices},
	{"pepper", AisleProduce},
	{"chilli", AisleProduce},
	{"mushroom", AisleProduce},
	{"onion", AisleProduce},
	{"potato", AisleProduce},
	{"tomato", AisleProduce},
	{"leaves", AisleProduce},
}
