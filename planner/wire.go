package planner

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"time"
)

// soonToExpireLimit caps Request.SoonToExpireItems.
const soonToExpireLimit = 10

// Request is the payload sent to an AssistedPlanner.
type Request struct {
	Recipes             []RequestRecipe              `json:"recipes"`
	PantryItems         []RequestPantryItem          `json:"pantryItems"`
	SoonToExpireItems   []RequestPantryItem          `json:"soonToExpireItems"`
	DietaryPreferences  []string                     `json:"dietaryPreferences"`
	CuisinePreferences  []string                     `json:"cuisinePreferences"`
	MealsPerDay         int                          `json:"mealsPerDay"`
	DaysInWeek          int                          `json:"daysInWeek"`
	InitialScores       []InitialScore               `json:"initialScores"`
	ExistingAssignments map[string]map[string]string `json:"existingAssignments"`
}

type RequestRecipe struct {
	ID             string   `json:"id"`
	Title          string   `json:"title"`
	IsUserSelected bool     `json:"isUserSelected"`
	Ingredients    []string `json:"ingredients"`
	Cuisines       []string `json:"cuisines"`
}

type RequestPantryItem struct {
	Name            string   `json:"name"`
	ExpiryDate      string   `json:"expiryDate,omitempty"`
	DaysUntilExpiry int      `json:"daysUntilExpiry"`
	Category        Category `json:"category"`
}

type InitialScore struct {
	ID             string  `json:"id"`
	Score          float64 `json:"score"`
	IsUserSelected bool    `json:"isUserSelected"`
}

// Response is what a well-behaved AssistedPlanner returns.
type Response struct {
	MealPlan     []Assignment `json:"mealPlan"`
	Explanations Explanations `json:"explanations"`
}

type Assignment struct {
	DayIndex  int    `json:"dayIndex"`
	MealType  string `json:"mealType"`
	RecipeID  string `json:"recipeId"`
	Reasoning string `json:"reasoning,omitempty"`
}

type Explanations struct {
	PantryUsage           string `json:"pantryUsage"`
	ExpiryOptimization    string `json:"expiryOptimization"`
	VarietyStrategy       string `json:"varietyStrategy"`
	SuggestedRecipesUsage string `json:"suggestedRecipesUsage"`
}

// BuildRequest assembles the assisted planning request from the ranked candidate pool,
// the pantry snapshot and the meals already placed in st.
func BuildRequest(ranked []ScoredRecipe, pantry []PantryItem, prefs Preferences, st *State, now time.Time) Request {
	req := Request{
		Recipes:             make([]RequestRecipe, 0, len(ranked)),
		PantryItems:         make([]RequestPantryItem, 0, len(pantry)),
		SoonToExpireItems:   make([]RequestPantryItem, 0, soonToExpireLimit),
		DietaryPreferences:  nonNil(prefs.Dietary),
		CuisinePreferences:  nonNil(prefs.Cuisines),
		MealsPerDay:         clampMeals(prefs.MealsPerDay),
		DaysInWeek:          DaysInWeek,
		InitialScores:       make([]InitialScore, 0, len(ranked)),
		ExistingAssignments: make(map[string]map[string]string),
	}

	for _, r := range ranked {
		req.Recipes = append(req.Recipes, RequestRecipe{
			ID:             r.ID,
			Title:          r.Title,
			IsUserSelected: r.UserSelected,
			Ingredients:    r.IngredientNames(),
			Cuisines:       nonNil(r.Cuisines),
		})
		req.InitialScores = append(req.InitialScores, InitialScore{
			ID:             r.ID,
			Score:          r.Score,
			IsUserSelected: r.UserSelected,
		})
	}

	byUrgency := make([]PantryItem, len(pantry))
	copy(byUrgency, pantry)
	sort.SliceStable(byUrgency, func(i, j int) bool {
		return DaysUntilExpiry(byUrgency[i], now) < DaysUntilExpiry(byUrgency[j], now)
	})
	for _, item := range byUrgency {
		wire := RequestPantryItem{
			Name:            item.Name,
			DaysUntilExpiry: DaysUntilExpiry(item, now),
			Category:        item.Category,
		}
		if item.ExpiryDate != nil {
			wire.ExpiryDate = item.ExpiryDate.Format(time.DateOnly)
		}
		req.PantryItems = append(req.PantryItems, wire)
		if wire.DaysUntilExpiry < NoExpiry && len(req.SoonToExpireItems) < soonToExpireLimit {
			req.SoonToExpireItems = append(req.SoonToExpireItems, wire)
		}
	}

	if st != nil {
		for _, m := range st.Meals() {
			day := strconv.Itoa(m.Day)
			if req.ExistingAssignments[day] == nil {
				req.ExistingAssignments[day] = make(map[string]string)
			}
			req.ExistingAssignments[day][string(m.MealType)] = m.RecipeID
		}
	}

	return req
}

// ParseResponse decodes an assisted planner response. It fails when the payload is not
// JSON, has no assignments, or an assignment lacks a recipe id or a known meal type.
// Whether the referenced recipes exist is checked later, against the candidate pool.
func ParseResponse(data []byte) (Response, error) {
	var resp Response
	dec := json.NewDecoder(bytes.NewReader(bytes.TrimSpace(data)))
	if err := dec.Decode(&resp); err != nil {
		return Response{}, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if len(resp.MealPlan) == 0 {
		return Response{}, fmt.Errorf("%w: mealPlan is empty", ErrMalformedResponse)
	}
	for i, a := range resp.MealPlan {
		if a.RecipeID == "" {
			return Response{}, fmt.Errorf("%w: mealPlan[%d] has no recipeId", ErrMalformedResponse, i)
		}
		mt, ok := ParseMealType(a.MealType)
		if !ok {
			return Response{}, fmt.Errorf("%w: mealPlan[%d] has unknown mealType %q", ErrMalformedResponse, i, a.MealType)
		}
		resp.MealPlan[i].MealType = string(mt)
	}
	return resp, nil
}

// EncodePlan serializes committed meals in the Response wire format.
func EncodePlan(meals []MealPlanItem, ex Explanations) ([]byte, error) {
	resp := Response{
		MealPlan:     make([]Assignment, 0, len(meals)),
		Explanations: ex,
	}
	for _, m := range meals {
		resp.MealPlan = append(resp.MealPlan, Assignment{
			DayIndex: m.Day,
			MealType: string(m.MealType),
			RecipeID: m.RecipeID,
		})
	}
	return json.Marshal(resp)
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
