package planner

import (
	"fmt"
	"strings"
)

// shoppingList returns the claimed ingredient keys no pantry item covers.
func shoppingList(st *State, pantry []PantryItem, m *Matcher) []string {
	out := make([]string, 0)
	for _, key := range st.Claimed() {
		covered := false
		for _, item := range pantry {
			if m.Match(key, item.Name) {
				covered = true
				break
			}
		}
		if !covered {
			out = append(out, key)
		}
	}
	return out
}

// explain builds the explanation string of a result. Assisted explanations are passed
// through; greedy plans get a synthesized summary of the expiry, overlap and variety
// strategy.
func explain(res Result, st *State, pantry []PantryItem, scorer *Scorer, alloc Allocation, pool []Recipe, urgentDays int) string {
	var parts []string

	if res.Explanations != nil {
		ex := res.Explanations
		for _, s := range []string{ex.PantryUsage, ex.ExpiryOptimization, ex.VarietyStrategy, ex.SuggestedRecipesUsage} {
			if s = strings.TrimSpace(s); s != "" {
				parts = append(parts, s)
			}
		}
		if res.Source == SourceAssistedGapFill {
			parts = append(parts, fmt.Sprintf("%d remaining slots were filled by the rule-based planner.", alloc.Filled))
		}
		if note := varietyNote(res.Fill, pool, alloc); note != "" {
			parts = append(parts, note)
		}
		return strings.Join(parts, " ")
	}

	parts = append(parts, fmt.Sprintf("Planned %d of %d meals with the rule-based planner.", res.Fill.SlotsFilled, res.Fill.SlotsNeeded))

	var used, unused []string
	for _, item := range scorer.urgentItems(pantry, urgentDays) {
		days := DaysUntilExpiry(item, scorer.now)
		label := fmt.Sprintf("%s (%s)", item.Name, dayCount(days))
		if st.claimsPantryItem(scorer.matcher, item) {
			used = append(used, label)
		} else {
			unused = append(unused, label)
		}
	}
	if len(used) > 0 {
		parts = append(parts, "Ingredients expiring soon are used first: "+strings.Join(used, ", ")+".")
	}
	if len(unused) > 0 {
		parts = append(parts, "No available recipe uses "+strings.Join(unused, ", ")+".")
	}

	switch n := len(res.ShoppingList); n {
	case 0:
		parts = append(parts, "Every ingredient is already in the pantry.")
	default:
		parts = append(parts, fmt.Sprintf("Recipes were chosen to share ingredients, leaving %d to buy: %s.", n, strings.Join(res.ShoppingList, ", ")))
	}

	parts = append(parts, fmt.Sprintf("Each recipe appears at most %d times a week and not on consecutive days where possible.", MaxUsesPerWeek))
	if note := varietyNote(res.Fill, pool, alloc); note != "" {
		parts = append(parts, note)
	}
	return strings.Join(parts, " ")
}

// varietyNote explains a partial fill or relaxed variety rules; empty when neither applies.
func varietyNote(fill FillRate, pool []Recipe, alloc Allocation) string {
	var notes []string
	if n := alloc.Relaxed[TierConsecutive]; n > 0 {
		notes = append(notes, fmt.Sprintf("%d meals repeat a recipe on the same or the previous day.", n))
	}
	if n := alloc.Relaxed[TierReset] + alloc.Relaxed[TierAny]; n > 0 {
		notes = append(notes, fmt.Sprintf("%d meals repeat recipes beyond the weekly limit to fill the week.", n))
	}
	if !fill.Complete() {
		notes = append(notes, fmt.Sprintf("%d slots are empty because only %d recipes were available; add more recipes to fill the week.",
			fill.SlotsNeeded-fill.SlotsFilled, len(pool)))
	}
	return strings.Join(notes, " ")
}

func dayCount(days int) string {
	if days == 1 {
		return "1 day"
	}
	return fmt.Sprintf("%d days", days)
}
