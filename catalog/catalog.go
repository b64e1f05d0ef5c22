// Package catalog loads pantry and recipe snapshots and serves supplementary recipes to
// the planner.
package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sort"
	"strings"

	"pantryplanner/catalog/storage"
	"pantryplanner/planner"
)

// Catalog is an in-memory recipe collection that implements planner.RecipeFetcher.
type Catalog struct {
	recipes []planner.Recipe
	matcher *planner.Matcher
}

// NewCatalog returns a Catalog over recipes. synonyms extend the matcher used to compare
// recipe ingredients with the queried pantry items.
func NewCatalog(recipes []planner.Recipe, synonyms map[string]string) *Catalog {
	return &Catalog{recipes: recipes, matcher: planner.NewMatcher(synonyms)}
}

// LoadCatalog builds a Catalog from a stored recipe document.
func LoadCatalog(ctx context.Context, src storage.Source, synonyms map[string]string) (*Catalog, error) {
	recipes, err := LoadRecipes(ctx, src)
	if err != nil {
		return nil, err
	}
	return NewCatalog(recipes, synonyms), nil
}

// Len returns the number of recipes in the catalog.
func (c *Catalog) Len() int { return len(c.recipes) }

// Lookup returns the recipes with the given ids, in id order. Unknown ids are an error.
func (c *Catalog) Lookup(ids ...string) ([]planner.Recipe, error) {
	byID := make(map[string]planner.Recipe, len(c.recipes))
	for _, r := range c.recipes {
		byID[r.ID] = r
	}
	out := make([]planner.Recipe, 0, len(ids))
	var missing []string
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		r, ok := byID[id]
		if !ok {
			missing = append(missing, id)
			continue
		}
		out = append(out, r)
	}
	if len(missing) > 0 {
		return out, fmt.Errorf("unknown recipe ids: %s", strings.Join(missing, ", "))
	}
	return out, nil
}

type candidate struct {
	recipe  planner.Recipe
	matches int
	cuisine bool
}

// FetchRecipes returns up to q.Limit recipes not in q.ExcludeIDs that satisfy every
// dietary preference, ranked by the number of queried ingredients they use, then by
// cuisine preference, then by popularity.
func (c *Catalog) FetchRecipes(ctx context.Context, q planner.RecipeQuery) ([]planner.Recipe, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	excluded := make(map[string]bool, len(q.ExcludeIDs))
	for _, id := range q.ExcludeIDs {
		excluded[id] = true
	}

	var candidates []candidate
	for _, r := range c.recipes {
		if excluded[r.ID] || !satisfiesDiets(r, q.Dietary) {
			continue
		}
		candidates = append(candidates, candidate{
			recipe:  r,
			matches: c.countMatches(r, q.Ingredients),
			cuisine: hasAny(r.Cuisines, q.Cuisines),
		})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.matches != b.matches {
			return a.matches > b.matches
		}
		if a.cuisine != b.cuisine {
			return a.cuisine
		}
		return a.recipe.Popularity > b.recipe.Popularity
	})

	if q.Limit > 0 && len(candidates) > q.Limit {
		candidates = candidates[:q.Limit]
	}

	out := make([]planner.Recipe, 0, len(candidates))
	for _, cand := range candidates {
		out = append(out, cand.recipe)
	}
	slog.Debug("CATALOG: Fetched recipes", "ingredients", len(q.Ingredients), "excluded", len(excluded), "returned", len(out))
	return out, nil
}

func (c *Catalog) countMatches(r planner.Recipe, items []string) int {
	n := 0
	for _, item := range items {
		for _, ing := range r.Ingredients {
			if c.matcher.Match(ing.Name, item) {
				n++
				break
			}
		}
	}
	return n
}

// satisfiesDiets reports whether r is labelled with every wanted diet.
func satisfiesDiets(r planner.Recipe, wanted []string) bool {
	for _, w := range wanted {
		if !hasAny(r.Diets, []string{w}) {
			return false
		}
	}
	return true
}

func hasAny(have, want []string) bool {
	return slices.ContainsFunc(want, func(w string) bool {
		return slices.ContainsFunc(have, func(h string) bool {
			return strings.EqualFold(strings.TrimSpace(h), strings.TrimSpace(w))
		})
	})
}
