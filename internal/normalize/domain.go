package normalize

import "strings"

// genericTitles are normalized names too vague to be trusted as match
// targets. Left unchecked they become high-degree hubs that "match"
// everything in their category.
var genericTitles = map[string]struct{}{
	"shampoo bar":             {},
	"shampoo bars":            {},
	"conditioner bar":         {},
	"conditioner bars":        {},
	"hair shampoo bar":        {},
	"shampoo soap bars":       {},
	"body butter":             {},
	"body butters":            {},
	"face serum":              {},
	"serum":                   {},
	"brightening serum":       {},
	"whipped body butter":     {},
	"body butter moisturiser": {},
}

// subcategoryKeywords maps a tag to the name fragments that imply it.
// Order matters for tagging: the first tag whose keyword appears wins.
var subcategoryKeywords = []struct {
	tag      string
	keywords []string
}{
	{"vitc", []string{"vitamin c", "vit c", "ascorbic"}},
	{"niacinamide", []string{"niacinamide", "vitamin b3", "vit b3"}},
	{"hyaluronic", []string{"hyaluronic", "ha ", " hyal ", "hyaluronic acid"}},
	{"retinol", []string{"retinol", "retinoid"}},
	{"anti_dandruff", []string{"anti dandruff", "anti-dandruff", "dandruff"}},
	{"curl", []string{"curly", "curl", "coily", "wavy"}},
	{"shea", []string{"shea butter", "shea"}},
	{"vanilla", []string{"vanilla"}},
	{"mango", []string{"mango"}},
}

// IsGenericTitle reports whether a whole normalized name is one of the known
// overly generic titles. Partial containment does not count.
func IsGenericTitle(nameNormalized string) bool {
	if nameNormalized == "" {
		return false
	}
	_, ok := genericTitles[nameNormalized]
	return ok
}

// Subcategory assigns at most one ingredient/function tag to a normalized
// name by first keyword match. Returns "" when nothing matches.
func Subcategory(nameNormalized string) string {
	if nameNormalized == "" {
		return ""
	}
	for _, sc := range subcategoryKeywords {
		for _, kw := range sc.keywords {
			if strings.Contains(nameNormalized, kw) {
				return sc.tag
			}
		}
	}
	return ""
}
