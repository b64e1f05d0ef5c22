package planner

import (
	"math"
	"sort"
	"time"
)

const (
	expiryWeight      = 10.0
	newIngredientCost = 2.0
	ingredientBudget  = 30.0
	repetitionWeight  = 3.0
	overlapWeight     = 20.0
)

// Scorer ranks recipes against a pantry snapshot and the meals already in a plan.
type Scorer struct {
	matcher *Matcher
	now     time.Time
}

func NewScorer(matcher *Matcher, now time.Time) *Scorer {
	if matcher == nil {
		matcher = NewMatcher(nil)
	}
	return &Scorer{matcher: matcher, now: now}
}

// Score computes the base score, the overlap bonus and their non-negative total.
//
//	base    = Σ 10/daysLeft(matched item) − 2·new + 30/max(1,n) − 3·(k+1)²
//	overlap = 20 · shared/n
//	total   = max(0, base+overlap)
//
// where n is the ingredient count, new the ingredients not found in the pantry, k the
// number of days the recipe already occupies and shared the ingredients already claimed
// by the plan.
func (s *Scorer) Score(r Recipe, pantry []PantryItem, st *State) Score {
	n := len(r.Ingredients)

	var expirySum float64
	var newIngredients, shared int
	matched := make(map[int]bool, len(pantry))

	for _, ing := range r.Ingredients {
		found := false
		for i, item := range pantry {
			if !s.matcher.Match(ing.Name, item.Name) {
				continue
			}
			found = true
			if !matched[i] {
				matched[i] = true
				expirySum += expiryWeight / float64(DaysUntilExpiry(item, s.now))
			}
		}
		if !found {
			newIngredients++
		}
		if st != nil && st.HasClaimed(s.matcher.Key(ing.Name)) {
			shared++
		}
	}

	k := 0
	if st != nil {
		k = st.DaysUsed(r.ID)
	}
	penalty := repetitionWeight * float64((k+1)*(k+1))
	countBonus := ingredientBudget / float64(max(1, n))

	base := expirySum - newIngredientCost*float64(newIngredients) + countBonus - penalty

	var overlap float64
	if n > 0 {
		overlap = overlapWeight * float64(shared) / float64(n)
	}

	return Score{
		Base:    base,
		Overlap: overlap,
		Total:   math.Max(0, base+overlap),
	}
}

// Rank scores every recipe in pool and returns them ordered by total score, highest
// first. Equal scores keep their pool order.
func (s *Scorer) Rank(pool []Recipe, pantry []PantryItem, st *State) []ScoredRecipe {
	ranked := make([]ScoredRecipe, 0, len(pool))
	for _, r := range pool {
		sc := s.Score(r, pantry, st)
		ranked = append(ranked, ScoredRecipe{Recipe: r, Score: sc.Total, Calculated: sc})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})
	return ranked
}

// usesUrgent reports whether r consumes a pantry item expiring within urgentDays that the
// plan has not claimed yet.
func (s *Scorer) usesUrgent(r Recipe, urgent []PantryItem, st *State) bool {
	for _, item := range urgent {
		if st.claimsPantryItem(s.matcher, item) {
			continue
		}
		for _, ing := range r.Ingredients {
			if s.matcher.Match(ing.Name, item.Name) {
				return true
			}
		}
	}
	return false
}

// urgentItems returns the pantry items expiring within days, most urgent first.
func (s *Scorer) urgentItems(pantry []PantryItem, days int) []PantryItem {
	var urgent []PantryItem
	for _, item := range pantry {
		if DaysUntilExpiry(item, s.now) <= days {
			urgent = append(urgent, item)
		}
	}
	sort.SliceStable(urgent, func(i, j int) bool {
		return DaysUntilExpiry(urgent[i], s.now) < DaysUntilExpiry(urgent[j], s.now)
	})
	return urgent
}
