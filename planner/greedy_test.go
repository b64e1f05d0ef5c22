package planner

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestGreedy(repeatFill bool) *Greedy {
	return NewGreedy(NewScorer(NewMatcher(nil), testNow), DefaultUrgentWithinDays, repeatFill)
}

func TestGreedy_PrefersExpiringIngredient(t *testing.T) {
	pantry := []PantryItem{pantryItem("Spinach", 1)}
	pool := []Recipe{recipe("R1", "spinach", "egg"), recipe("R2", "egg")}

	st := NewState(nil)
	alloc := newTestGreedy(false).Allocate(pool, pantry, 1, st)

	meals := st.Meals()
	require.NotEmpty(t, meals)
	assert.Equal(t, 0, meals[0].Day)
	assert.Equal(t, Breakfast, meals[0].MealType)
	assert.Equal(t, "R1", meals[0].RecipeID)
	assert.Equal(t, alloc.Filled, st.Len())
}

func TestGreedy_SingleRecipeHonorsWeeklyCap(t *testing.T) {
	st := NewState(nil)
	alloc := newTestGreedy(false).Allocate([]Recipe{recipe("R1", "rice", "beans")}, nil, 3, st)

	assert.Equal(t, MaxUsesPerWeek, alloc.Filled)
	assert.Len(t, alloc.Unfilled, 21-MaxUsesPerWeek)
	assert.Equal(t, MaxUsesPerWeek, st.UsageCount("R1"))
	assert.Equal(t, 2, alloc.Relaxed[TierConsecutive])
	for _, m := range st.Meals() {
		assert.Equal(t, 0, m.Day)
	}
}

func TestGreedy_RepeatFillCompletesWeek(t *testing.T) {
	st := NewState(nil)
	alloc := newTestGreedy(true).Allocate([]Recipe{recipe("R1", "rice", "beans")}, nil, 3, st)

	assert.Equal(t, 21, alloc.Filled)
	assert.Empty(t, alloc.Unfilled)
	assert.Equal(t, 21, st.Len())
	assert.Positive(t, alloc.Relaxed[TierAny])
}

func TestGreedy_VarietyWithEnoughRecipes(t *testing.T) {
	pool := []Recipe{
		recipe("A", "rice", "beans"),
		recipe("B", "pasta", "tomato"),
		recipe("C", "bread", "cheese"),
	}
	st := NewState(nil)
	alloc := newTestGreedy(false).Allocate(pool, nil, 1, st)

	require.Equal(t, DaysInWeek, alloc.Filled)
	assert.Empty(t, alloc.Relaxed)

	lastDay := map[string]int{}
	for _, m := range st.Meals() {
		if prev, ok := lastDay[m.RecipeID]; ok {
			assert.Greater(t, m.Day-prev, 1, "recipe %s on consecutive days", m.RecipeID)
		}
		lastDay[m.RecipeID] = m.Day
	}
	for _, r := range pool {
		assert.LessOrEqual(t, st.UsageCount(r.ID), MaxUsesPerWeek)
	}
}

func TestGreedy_OneMealPerSlot(t *testing.T) {
	pool := []Recipe{
		recipe("A", "rice"), recipe("B", "pasta"), recipe("C", "bread"),
		recipe("D", "oats"), recipe("E", "potato"), recipe("F", "noodle"),
		recipe("G", "tortilla"), recipe("H", "quinoa"),
	}
	st := NewState(nil)
	alloc := newTestGreedy(false).Allocate(pool, nil, 3, st)

	assert.Equal(t, 21, alloc.Filled)
	seen := map[Slot]bool{}
	for _, m := range st.Meals() {
		slot := Slot{Day: m.Day, MealType: m.MealType}
		assert.False(t, seen[slot], "slot %v filled twice", slot)
		seen[slot] = true
		assert.GreaterOrEqual(t, m.Score, 0.0)
	}
}

func TestGreedy_Deterministic(t *testing.T) {
	pantry := []PantryItem{pantryItem("spinach", 2), pantryItem("milk", 4), pantryItem("rice", 0)}
	pool := []Recipe{
		recipe("A", "spinach", "egg"),
		recipe("B", "milk", "oats"),
		recipe("C", "rice", "beans"),
		recipe("D", "rice", "spinach", "garlic"),
	}

	run := func() []MealPlanItem {
		st := NewState(nil)
		newTestGreedy(false).Allocate(pool, pantry, 2, st)
		return st.Meals()
	}

	first := run()
	assert.Equal(t, first, run())
	assert.NotEmpty(t, first)
}

func TestGreedy_SkipsOccupiedSlots(t *testing.T) {
	st := NewState(nil)
	require.NoError(t, st.Seed(MealPlanItem{ID: "pinned", RecipeID: "P", Day: 0, MealType: Breakfast}))

	alloc := newTestGreedy(false).Allocate([]Recipe{recipe("A", "rice"), recipe("B", "pasta")}, nil, 1, st)

	assert.Equal(t, DaysInWeek-1, alloc.Filled)
	meals := st.Meals()
	require.Len(t, meals, DaysInWeek)
	assert.Equal(t, "pinned", meals[0].ID)
	assert.Equal(t, "P", meals[0].RecipeID)
}

func TestGreedy_EmptyPool(t *testing.T) {
	for _, repeatFill := range []bool{false, true} {
		st := NewState(nil)
		alloc := newTestGreedy(repeatFill).Allocate(nil, nil, 2, st)

		assert.Zero(t, alloc.Filled)
		assert.Len(t, alloc.Unfilled, 14)
		assert.Zero(t, st.Len())
	}
}
