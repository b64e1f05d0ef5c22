// Package planner allocates recipes to the breakfast, lunch and dinner slots of a week.
//
// Recipes are scored against a pantry snapshot so that ingredients close to expiring are
// used first, ingredients already bought for the plan are reused, and the same recipe is
// not served on consecutive days or more than a bounded number of times. An optional
// AssistedPlanner may propose the week; the greedy allocator is the fallback and always
// produces a usable result.
package planner

import (
	"errors"
	"time"
)

// DaysInWeek is the planning horizon.
const DaysInWeek = 7

// MaxUsesPerWeek bounds how often a single recipe may appear in one plan.
const MaxUsesPerWeek = 3

var (
	ErrNoRecipes         = errors.New("no recipes available to plan with")
	ErrSlotTaken         = errors.New("slot already has a meal")
	ErrUsageCap          = errors.New("recipe reached its weekly usage cap")
	ErrInvalidSlot       = errors.New("invalid slot")
	ErrMalformedResponse = errors.New("malformed assisted planner response")
)

type MealType string

const (
	Breakfast MealType = "breakfast"
	Lunch     MealType = "lunch"
	Dinner    MealType = "dinner"
)

var mealOrder = []MealType{Breakfast, Lunch, Dinner}

// MealTypesFor returns the meal types filled for a meals-per-day preference, clamped to 1..3.
func MealTypesFor(mealsPerDay int) []MealType {
	return mealOrder[:clampMeals(mealsPerDay)]
}

// ParseMealType accepts a meal type name in any case.
func ParseMealType(s string) (MealType, bool) {
	for _, mt := range mealOrder {
		if string(mt) == normalizeWord(s) {
			return mt, true
		}
	}
	return "", false
}

func (m MealType) index() int {
	for i, mt := range mealOrder {
		if mt == m {
			return i
		}
	}
	return len(mealOrder)
}

func clampMeals(n int) int {
	if n < 1 {
		return 1
	}
	if n > len(mealOrder) {
		return len(mealOrder)
	}
	return n
}

type Category string

const (
	CategoryProduce Category = "produce"
	CategoryDairy   Category = "dairy"
	CategoryMeat    Category = "meat"
	CategorySeafood Category = "seafood"
	CategoryBakery  Category = "bakery"
	CategoryFrozen  Category = "frozen"
	CategoryPantry  Category = "pantry"
	CategoryOther   Category = "other"
)

// ParseCategory maps free text to a Category, defaulting to CategoryOther.
func ParseCategory(s string) Category {
	switch c := Category(normalizeWord(s)); c {
	case CategoryProduce, CategoryDairy, CategoryMeat, CategorySeafood,
		CategoryBakery, CategoryFrozen, CategoryPantry:
		return c
	}
	return CategoryOther
}

type PantryItem struct {
	Name       string     `json:"name"`
	ExpiryDate *time.Time `json:"expiryDate,omitempty"`
	Category   Category   `json:"category"`
}

type Ingredient struct {
	Name   string `json:"name"`
	Amount string `json:"amount,omitempty"`
}

type Recipe struct {
	ID          string       `json:"id"`
	Title       string       `json:"title"`
	Image       string       `json:"image,omitempty"`
	Ingredients []Ingredient `json:"ingredients"`
	Cuisines    []string     `json:"cuisines,omitempty"`
	Popularity  int          `json:"popularity,omitempty"`
	Diets       []string     `json:"diets,omitempty"`
}

// IngredientNames returns the raw ingredient names in recipe order.
func (r Recipe) IngredientNames() []string {
	names := make([]string, 0, len(r.Ingredients))
	for _, ing := range r.Ingredients {
		names = append(names, ing.Name)
	}
	return names
}

// Score is the breakdown produced by the Scorer.
type Score struct {
	Base    float64 `json:"baseScore"`
	Overlap float64 `json:"overlapBonus"`
	Total   float64 `json:"totalScore"`
}

type ScoredRecipe struct {
	Recipe
	Score        float64 `json:"score"`
	Calculated   Score   `json:"calculatedScore"`
	UserSelected bool    `json:"isUserSelected"`
}

type MealPlanItem struct {
	ID          string   `json:"id"`
	RecipeID    string   `json:"recipeId"`
	Title       string   `json:"title"`
	Image       string   `json:"image,omitempty"`
	Day         int      `json:"dayIndex"`
	MealType    MealType `json:"mealType"`
	Score       float64  `json:"score"`
	Ingredients []string `json:"ingredients"`
	Calculated  *Score   `json:"calculatedScore,omitempty"`
	Pinned      bool     `json:"pinned,omitempty"`
}

// Slot is a (day, meal type) pair filled by at most one MealPlanItem.
type Slot struct {
	Day      int
	MealType MealType
}

func (s Slot) valid(mealsPerDay int) bool {
	return s.Day >= 0 && s.Day < DaysInWeek && s.MealType.index() < clampMeals(mealsPerDay)
}

// Slots lists every slot of the week in allocation order.
func Slots(mealsPerDay int) []Slot {
	types := MealTypesFor(mealsPerDay)
	slots := make([]Slot, 0, DaysInWeek*len(types))
	for day := 0; day < DaysInWeek; day++ {
		for _, mt := range types {
			slots = append(slots, Slot{Day: day, MealType: mt})
		}
	}
	return slots
}

type Preferences struct {
	MealsPerDay int      `json:"mealsPerDay"`
	Dietary     []string `json:"dietaryPreferences,omitempty"`
	Cuisines    []string `json:"cuisinePreferences,omitempty"`
}

// FillRate tells the caller how much of the week could be planned.
type FillRate struct {
	SlotsFilled int `json:"slotsFilled"`
	SlotsNeeded int `json:"slotsNeeded"`
}

func (f FillRate) Complete() bool { return f.SlotsFilled >= f.SlotsNeeded }
