package planner

import (
	"log/slog"
)

// Tier identifies how far eligibility had to be relaxed to fill a slot.
type Tier int

const (
	TierStrict Tier = iota // weekly cap and no consecutive days
	TierConsecutive        // consecutive days allowed
	TierReset              // usage of recipes idle for more than two days reset
	TierAny                // whole pool, weekly cap ignored
	tierNone
)

func (t Tier) String() string {
	switch t {
	case TierStrict:
		return "strict"
	case TierConsecutive:
		return "consecutive"
	case TierReset:
		return "reset"
	case TierAny:
		return "any"
	}
	return "none"
}

// Allocation summarizes one greedy pass.
type Allocation struct {
	Filled   int
	Relaxed  map[Tier]int
	Unfilled []Slot
}

// Greedy is the rule-based allocator. It visits every slot of the week once, in day then
// meal order, and commits the best scoring eligible recipe.
type Greedy struct {
	scorer     *Scorer
	urgentDays int
	repeatFill bool
}

// NewGreedy returns an allocator. Candidates using a pantry item that expires within
// urgentDays and is not yet used by the plan are preferred over all others. With
// repeatFill the last two fallback tiers may exceed MaxUsesPerWeek to fill every slot.
func NewGreedy(scorer *Scorer, urgentDays int, repeatFill bool) *Greedy {
	return &Greedy{scorer: scorer, urgentDays: urgentDays, repeatFill: repeatFill}
}

// Allocate fills the empty slots of st from pool. Occupied slots are left alone. It never
// fails: slots it cannot fill are reported in Allocation.Unfilled.
func (g *Greedy) Allocate(pool []Recipe, pantry []PantryItem, mealsPerDay int, st *State) Allocation {
	alloc := Allocation{Relaxed: make(map[Tier]int)}
	urgent := g.scorer.urgentItems(pantry, g.urgentDays)

	for _, slot := range Slots(mealsPerDay) {
		if st.Occupied(slot) {
			continue
		}

		eligible, tier := g.eligible(pool, slot.Day, st)
		if len(eligible) == 0 {
			slog.Info("GREEDY: No eligible recipe for slot", "day", slot.Day, "meal_type", slot.MealType, "pool_size", len(pool))
			alloc.Unfilled = append(alloc.Unfilled, slot)
			continue
		}

		if len(urgent) > 0 {
			var preferred []Recipe
			for _, r := range eligible {
				if g.scorer.usesUrgent(r, urgent, st) {
					preferred = append(preferred, r)
				}
			}
			if len(preferred) > 0 {
				eligible = preferred
			}
		}

		best, score := g.best(eligible, pantry, st)

		var err error
		if tier == TierAny {
			_, err = st.commit(best, slot, score)
		} else {
			_, err = st.Commit(best, slot, score)
		}
		if err != nil {
			// eligibility is computed from st, so this only happens on a broken invariant
			slog.Error("GREEDY: Commit failed", "error", err, "recipe_id", best.ID, "day", slot.Day, "meal_type", slot.MealType)
			alloc.Unfilled = append(alloc.Unfilled, slot)
			continue
		}

		alloc.Filled++
		if tier != TierStrict {
			alloc.Relaxed[tier]++
		}
		slog.Debug("GREEDY: Committed recipe",
			"day", slot.Day,
			"meal_type", slot.MealType,
			"recipe_id", best.ID,
			"tier", tier.String(),
			"total_score", score.Total,
			"overlap_bonus", score.Overlap,
		)
	}

	return alloc
}

// eligible applies the fallback tiers in order and returns the first non-empty set.
func (g *Greedy) eligible(pool []Recipe, day int, st *State) ([]Recipe, Tier) {
	if out := filter(pool, func(r Recipe) bool {
		return st.UsageCount(r.ID) < MaxUsesPerWeek && !st.usedNear(r.ID, day)
	}); len(out) > 0 {
		return out, TierStrict
	}

	underCap := func(r Recipe) bool { return st.UsageCount(r.ID) < MaxUsesPerWeek }
	if out := filter(pool, underCap); len(out) > 0 {
		return out, TierConsecutive
	}

	if !g.repeatFill {
		return nil, tierNone
	}

	for _, r := range pool {
		if last := st.LastUsedDay(r.ID); last != -1 && day-last > 2 {
			st.resetUsage(r.ID)
		}
	}
	if out := filter(pool, underCap); len(out) > 0 {
		return out, TierReset
	}

	return pool, TierAny
}

// best returns the highest scoring recipe; the first one wins a tie.
func (g *Greedy) best(candidates []Recipe, pantry []PantryItem, st *State) (Recipe, Score) {
	var best Recipe
	var bestScore Score
	for i, r := range candidates {
		sc := g.scorer.Score(r, pantry, st)
		if i == 0 || sc.Total > bestScore.Total {
			best, bestScore = r, sc
		}
	}
	return best, bestScore
}

func filter(pool []Recipe, keep func(Recipe) bool) []Recipe {
	var out []Recipe
	for _, r := range pool {
		if keep(r) {
			out = append(out, r)
		}
	}
	return out
}
