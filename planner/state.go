package planner

import (
	"fmt"
	"sort"

	"github.com/google/uuid"
)

// itemNamespace seeds the name-based ids of committed meals so that repeated runs over the
// same input produce identical plans.
var itemNamespace = uuid.MustParse("6f1c9a52-8e0b-4c6e-9d7a-3b2f5e4d1a90")

// State is the working set of one planning run. It is not safe for concurrent use; a run
// owns its State and discards it once the result is published.
type State struct {
	matcher  *Matcher
	meals    []MealPlanItem
	bySlot   map[Slot]string
	usage    map[string]int
	lastUsed map[string]int
	claimed  map[string]int // ingredient key -> number of meals claiming it
	seq      int
}

func NewState(matcher *Matcher) *State {
	if matcher == nil {
		matcher = NewMatcher(nil)
	}
	return &State{
		matcher:  matcher,
		bySlot:   make(map[Slot]string),
		usage:    make(map[string]int),
		lastUsed: make(map[string]int),
		claimed:  make(map[string]int),
	}
}

// Seed places an existing item, typically one pinned by the caller, into the plan.
// The item keeps its id.
func (s *State) Seed(item MealPlanItem) error {
	slot := Slot{Day: item.Day, MealType: item.MealType}
	if !slot.valid(len(mealOrder)) {
		return fmt.Errorf("%w: day %d %s", ErrInvalidSlot, item.Day, item.MealType)
	}
	if s.Occupied(slot) {
		return fmt.Errorf("%w: day %d %s", ErrSlotTaken, item.Day, item.MealType)
	}
	if s.usage[item.RecipeID] >= MaxUsesPerWeek {
		return fmt.Errorf("%w: %s", ErrUsageCap, item.RecipeID)
	}
	item.Ingredients = s.keys(item.Ingredients)
	if item.ID == "" {
		item.ID = s.nextID(item.RecipeID, slot)
	}
	s.add(item)
	return nil
}

// Commit places recipe r into slot. It fails when the slot is taken or r already reached
// MaxUsesPerWeek.
func (s *State) Commit(r Recipe, slot Slot, sc Score) (MealPlanItem, error) {
	if s.usage[r.ID] >= MaxUsesPerWeek {
		return MealPlanItem{}, fmt.Errorf("%w: %s", ErrUsageCap, r.ID)
	}
	return s.commit(r, slot, sc)
}

// commit places r without checking the weekly cap.
func (s *State) commit(r Recipe, slot Slot, sc Score) (MealPlanItem, error) {
	if !slot.valid(len(mealOrder)) {
		return MealPlanItem{}, fmt.Errorf("%w: day %d %s", ErrInvalidSlot, slot.Day, slot.MealType)
	}
	if s.Occupied(slot) {
		return MealPlanItem{}, fmt.Errorf("%w: day %d %s", ErrSlotTaken, slot.Day, slot.MealType)
	}
	calc := sc
	item := MealPlanItem{
		ID:          s.nextID(r.ID, slot),
		RecipeID:    r.ID,
		Title:       r.Title,
		Image:       r.Image,
		Day:         slot.Day,
		MealType:    slot.MealType,
		Score:       sc.Total,
		Ingredients: s.keys(r.IngredientNames()),
		Calculated:  &calc,
	}
	s.add(item)
	return item, nil
}

func (s *State) add(item MealPlanItem) {
	s.meals = append(s.meals, item)
	s.bySlot[Slot{Day: item.Day, MealType: item.MealType}] = item.ID
	s.usage[item.RecipeID]++
	if last, ok := s.lastUsed[item.RecipeID]; !ok || item.Day > last {
		s.lastUsed[item.RecipeID] = item.Day
	}
	for _, key := range item.Ingredients {
		s.claimed[key]++
	}
}

// Remove deletes the item with the given id and releases its slot, usage and ingredients.
func (s *State) Remove(id string) (MealPlanItem, bool) {
	idx := -1
	for i, m := range s.meals {
		if m.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return MealPlanItem{}, false
	}
	item := s.meals[idx]
	s.meals = append(s.meals[:idx], s.meals[idx+1:]...)
	delete(s.bySlot, Slot{Day: item.Day, MealType: item.MealType})

	if s.usage[item.RecipeID] > 0 {
		s.usage[item.RecipeID]--
	}
	last := -1
	for _, m := range s.meals {
		if m.RecipeID == item.RecipeID && m.Day > last {
			last = m.Day
		}
	}
	if last < 0 {
		delete(s.lastUsed, item.RecipeID)
	} else {
		s.lastUsed[item.RecipeID] = last
	}

	for _, key := range item.Ingredients {
		if s.claimed[key]--; s.claimed[key] <= 0 {
			delete(s.claimed, key)
		}
	}
	return item, true
}

// Occupied reports whether slot already holds a meal.
func (s *State) Occupied(slot Slot) bool {
	_, ok := s.bySlot[slot]
	return ok
}

// Len returns the number of committed meals.
func (s *State) Len() int { return len(s.meals) }

// Meals returns a copy of the committed meals ordered by day and meal type.
func (s *State) Meals() []MealPlanItem {
	out := make([]MealPlanItem, len(s.meals))
	copy(out, s.meals)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Day != out[j].Day {
			return out[i].Day < out[j].Day
		}
		return out[i].MealType.index() < out[j].MealType.index()
	})
	return out
}

// UsageCount returns how often recipeID counts against the weekly cap.
func (s *State) UsageCount(recipeID string) int { return s.usage[recipeID] }

// LastUsedDay returns the latest day recipeID was placed on, or -1.
func (s *State) LastUsedDay(recipeID string) int {
	if d, ok := s.lastUsed[recipeID]; ok {
		return d
	}
	return -1
}

// DaysUsed counts the distinct days recipeID occupies.
func (s *State) DaysUsed(recipeID string) int {
	days := make(map[int]bool)
	for _, m := range s.meals {
		if m.RecipeID == recipeID {
			days[m.Day] = true
		}
	}
	return len(days)
}

// HasClaimed reports whether a committed meal uses the ingredient key.
func (s *State) HasClaimed(key string) bool { return s.claimed[key] > 0 }

// Claimed returns the sorted union of ingredient keys over all committed meals.
func (s *State) Claimed() []string {
	keys := make([]string, 0, len(s.claimed))
	for k := range s.claimed {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// usedNear reports whether recipeID is placed on day or an adjacent day, in either
// direction.
func (s *State) usedNear(recipeID string, day int) bool {
	for _, m := range s.meals {
		if m.RecipeID == recipeID && m.Day >= day-1 && m.Day <= day+1 {
			return true
		}
	}
	return false
}

// resetUsage clears the usage counter of recipeID; used by the repeat-fill tier.
func (s *State) resetUsage(recipeID string) { s.usage[recipeID] = 0 }

func (s *State) claimsPantryItem(m *Matcher, item PantryItem) bool {
	for key := range s.claimed {
		if m.Match(key, item.Name) {
			return true
		}
	}
	return false
}

// keys canonicalizes names into a de-duplicated ingredient set, preserving first-seen order.
func (s *State) keys(names []string) []string {
	seen := make(map[string]bool, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		k := s.matcher.Key(n)
		if k == "" || seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, k)
	}
	return out
}

func (s *State) nextID(recipeID string, slot Slot) string {
	s.seq++
	name := fmt.Sprintf("%d/%d/%s/%s", s.seq, slot.Day, slot.MealType, recipeID)
	return uuid.NewSHA1(itemNamespace, []byte(name)).String()
}
