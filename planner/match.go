package planner

import (
	"strings"
	"unicode"
)

// defaultSynonyms maps alternative ingredient names to one canonical name. Keys and values
// are in normalized, singular form.
var defaultSynonyms = map[string]string{
	"scallion":            "green onion",
	"spring onion":        "green onion",
	"coriander":           "cilantro",
	"garbanzo bean":       "chickpea",
	"capsicum":            "bell pepper",
	"courgette":           "zucchini",
	"aubergine":           "eggplant",
	"minced beef":         "ground beef",
	"beef mince":          "ground beef",
	"powdered sugar":      "confectioners sugar",
	"icing sugar":         "confectioners sugar",
	"prawn":               "shrimp",
	"rocket":              "arugula",
	"cornflour":           "cornstarch",
	"corn flour":          "cornstarch",
	"bicarbonate of soda": "baking soda",
	"double cream":        "heavy cream",
	"whipping cream":      "heavy cream",
}

// descriptors are dropped before comparing names ("fresh spinach" is spinach).
var descriptors = map[string]bool{
	"fresh": true, "large": true, "small": true, "medium": true, "chopped": true,
	"diced": true, "sliced": true, "whole": true, "organic": true, "raw": true,
}

// Matcher decides whether a recipe ingredient and a pantry item name the same thing.
type Matcher struct {
	synonyms map[string]string
}

// NewMatcher returns a Matcher using the built-in synonyms plus extra (alias -> canonical).
func NewMatcher(extra map[string]string) *Matcher {
	m := &Matcher{synonyms: make(map[string]string, len(defaultSynonyms)+len(extra))}
	for _, table := range []map[string]string{defaultSynonyms, extra} {
		for alias, canon := range table {
			m.synonyms[m.phrase(alias)] = m.phrase(canon)
		}
	}
	return m
}

// Key returns the canonical form of an ingredient name: lower case, punctuation and
// descriptors removed, each word singular, synonyms resolved.
func (m *Matcher) Key(name string) string {
	p := m.phrase(name)
	if canon, ok := m.synonyms[p]; ok {
		return canon
	}
	return p
}

// Match reports whether the recipe ingredient and the pantry item denote the same
// ingredient: equal keys, or one key is a whole-word run inside the other
// ("chicken" matches "chicken breast" but "egg" does not match "eggplant").
func (m *Matcher) Match(recipeIngredient, pantryItem string) bool {
	a, b := m.Key(recipeIngredient), m.Key(pantryItem)
	if a == "" || b == "" {
		return false
	}
	if a == b {
		return true
	}
	return containsWords(a, b) || containsWords(b, a)
}

func (m *Matcher) phrase(name string) string {
	fields := strings.FieldsFunc(strings.ToLower(name), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	words := make([]string, 0, len(fields))
	for _, f := range fields {
		if descriptors[f] {
			continue
		}
		words = append(words, singular(f))
	}
	return strings.Join(words, " ")
}

// containsWords reports whether needle appears in haystack on word boundaries.
func containsWords(haystack, needle string) bool {
	return strings.Contains(" "+haystack+" ", " "+needle+" ")
}

func singular(w string) string {
	switch {
	case len(w) > 4 && strings.HasSuffix(w, "ies"):
		return w[:len(w)-3] + "y"
	case len(w) > 4 && strings.HasSuffix(w, "oes"):
		return w[:len(w)-2]
	case strings.HasSuffix(w, "ches"), strings.HasSuffix(w, "shes"),
		strings.HasSuffix(w, "sses"), strings.HasSuffix(w, "xes"):
		return w[:len(w)-2]
	case len(w) > 3 && strings.HasSuffix(w, "s") && !strings.HasSuffix(w, "ss") && !strings.HasSuffix(w, "us"):
		return w[:len(w)-1]
	}
	return w
}

func normalizeWord(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
