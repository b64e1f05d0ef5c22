package planner

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodePlan_RoundTrip(t *testing.T) {
	st := NewState(nil)
	pool := []Recipe{recipe("A", "rice"), recipe("B", "pasta"), recipe("C", "bread"), recipe("D", "oats")}
	newTestGreedy(false).Allocate(pool, nil, 3, st)
	meals := st.Meals()
	require.NotEmpty(t, meals)

	data, err := EncodePlan(meals, Explanations{VarietyStrategy: "rotate"})
	require.NoError(t, err)

	resp, err := ParseResponse(data)
	require.NoError(t, err)
	require.Len(t, resp.MealPlan, len(meals))
	assert.Equal(t, "rotate", resp.Explanations.VarietyStrategy)

	for i, m := range meals {
		a := resp.MealPlan[i]
		assert.Equal(t, m.Day, a.DayIndex)
		assert.Equal(t, string(m.MealType), a.MealType)
		assert.Equal(t, m.RecipeID, a.RecipeID)
	}
}

func TestParseResponse(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		wantErr bool
		check   func(t *testing.T, resp Response)
	}{
		{
			name: "valid with explanations",
			payload: `{"mealPlan":[{"dayIndex":1,"mealType":"Dinner","recipeId":"R1","reasoning":"uses spinach"}],
				"explanations":{"pantryUsage":"p","expiryOptimization":"e","varietyStrategy":"v","suggestedRecipesUsage":"s"}}`,
			check: func(t *testing.T, resp Response) {
				require.Len(t, resp.MealPlan, 1)
				assert.Equal(t, Assignment{DayIndex: 1, MealType: "dinner", RecipeID: "R1", Reasoning: "uses spinach"}, resp.MealPlan[0])
				assert.Equal(t, Explanations{PantryUsage: "p", ExpiryOptimization: "e", VarietyStrategy: "v", SuggestedRecipesUsage: "s"}, resp.Explanations)
			},
		},
		{
			name:    "surrounding whitespace and unknown fields",
			payload: "\n  {\"mealPlan\":[{\"dayIndex\":0,\"mealType\":\"lunch\",\"recipeId\":\"R2\",\"confidence\":0.9}]}  \n",
			check: func(t *testing.T, resp Response) {
				require.Len(t, resp.MealPlan, 1)
				assert.Equal(t, "R2", resp.MealPlan[0].RecipeID)
			},
		},
		{name: "not json", payload: "Here is your plan!", wantErr: true},
		{name: "truncated", payload: `{"mealPlan":[{"dayIndex":0,`, wantErr: true},
		{name: "empty object", payload: `{}`, wantErr: true},
		{name: "empty plan", payload: `{"mealPlan":[]}`, wantErr: true},
		{name: "missing recipe id", payload: `{"mealPlan":[{"dayIndex":0,"mealType":"lunch"}]}`, wantErr: true},
		{name: "unknown meal type", payload: `{"mealPlan":[{"dayIndex":0,"mealType":"brunch","recipeId":"R1"}]}`, wantErr: true},
		{name: "wrong field type", payload: `{"mealPlan":[{"dayIndex":"zero","mealType":"lunch","recipeId":"R1"}]}`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := ParseResponse([]byte(tt.payload))
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrMalformedResponse)
				return
			}
			require.NoError(t, err)
			tt.check(t, resp)
		})
	}
}

func TestBuildRequest(t *testing.T) {
	pantry := []PantryItem{pantryItem("flour", 0)}
	for i := 12; i >= 1; i-- {
		pantry = append(pantry, pantryItem(fmt.Sprintf("item-%02d", i), i))
	}

	st := NewState(nil)
	_, err := st.Commit(recipe("R1", "rice"), Slot{Day: 2, MealType: Lunch}, Score{})
	require.NoError(t, err)

	ranked := []ScoredRecipe{
		{Recipe: recipe("R1", "rice", "beans"), Score: 12.5, UserSelected: true},
		{Recipe: recipe("R2", "pasta"), Score: 3},
	}
	req := BuildRequest(ranked, pantry, Preferences{MealsPerDay: 5, Cuisines: []string{"thai"}}, st, testNow)

	assert.Equal(t, DaysInWeek, req.DaysInWeek)
	assert.Equal(t, 3, req.MealsPerDay)
	assert.Equal(t, []string{"thai"}, req.CuisinePreferences)
	assert.Equal(t, []string{}, req.DietaryPreferences)

	require.Len(t, req.Recipes, 2)
	assert.Equal(t, RequestRecipe{ID: "R1", Title: "Recipe R1", IsUserSelected: true, Ingredients: []string{"rice", "beans"}, Cuisines: []string{}}, req.Recipes[0])
	assert.Equal(t, []InitialScore{{ID: "R1", Score: 12.5, IsUserSelected: true}, {ID: "R2", Score: 3}}, req.InitialScores)

	require.Len(t, req.PantryItems, 13)
	assert.Equal(t, "item-01", req.PantryItems[0].Name)
	assert.Equal(t, "flour", req.PantryItems[12].Name)
	assert.Equal(t, NoExpiry, req.PantryItems[12].DaysUntilExpiry)
	assert.Empty(t, req.PantryItems[12].ExpiryDate)
	assert.Equal(t, "2025-03-11", req.PantryItems[0].ExpiryDate)

	require.Len(t, req.SoonToExpireItems, soonToExpireLimit)
	assert.Equal(t, "item-10", req.SoonToExpireItems[9].Name)

	assert.Equal(t, map[string]map[string]string{"2": {"lunch": "R1"}}, req.ExistingAssignments)

	data, err := json.Marshal(req)
	require.NoError(t, err)
	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	for _, key := range []string{"recipes", "pantryItems", "soonToExpireItems", "dietaryPreferences", "cuisinePreferences", "mealsPerDay", "daysInWeek", "initialScores", "existingAssignments"} {
		assert.Contains(t, raw, key)
	}
}
