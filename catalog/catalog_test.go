package catalog

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pantryplanner/catalog/storage"
	"pantryplanner/planner"
)

var now = time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)

func TestLoadPantry(t *testing.T) {
	tests := []struct {
		name     string
		data     string
		wantName []string
		wantDays []int
		wantErr  bool
	}{
		{
			name: "items with dates and days left",
			data: `{"items": [
				{"name": "Spinach", "category": "Produce", "expiry_date": "2025-03-11"},
				{"name": "Milk", "expiryDate": "2025-03-14T00:00:00Z"},
				{"name": "Eggs", "days_left": 5},
				{"name": "Rice"}
			]}`,
			wantName: []string{"Spinach", "Milk", "Eggs", "Rice"},
			wantDays: []int{1, 4, 5, planner.NoExpiry},
		},
		{
			name:     "ingredients key with days left",
			data:     `{"ingredients": [{"name": "tomato", "days_left": 2}]}`,
			wantName: []string{"tomato"},
			wantDays: []int{2},
		},
		{
			name:     "bare array",
			data:     `[{"name": "basil", "expiry_date": "2025-03-12"}]`,
			wantName: []string{"basil"},
			wantDays: []int{2},
		},
		{
			name:     "unreadable date and unnamed item",
			data:     `{"items": [{"name": "cheese", "expiry_date": "next week"}, {"name": "  "}]}`,
			wantName: []string{"cheese"},
			wantDays: []int{planner.NoExpiry},
		},
		{
			name:    "invalid json",
			data:    `{"items": [`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			items, err := LoadPantry(context.Background(), storage.NewMemorySource([]byte(tt.data)), now)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Len(t, items, len(tt.wantName))
			for i, item := range items {
				assert.Equal(t, tt.wantName[i], item.Name)
				assert.Equal(t, tt.wantDays[i], planner.DaysUntilExpiry(item, now), item.Name)
			}
		})
	}
}

func TestLoadPantry_Category(t *testing.T) {
	items, err := LoadPantry(context.Background(), storage.NewMemorySource([]byte(`[{"name":"a","category":"DAIRY"},{"name":"b","category":"snacks"}]`)), now)
	require.NoError(t, err)
	assert.Equal(t, planner.CategoryDairy, items[0].Category)
	assert.Equal(t, planner.CategoryOther, items[1].Category)
}

func TestLoadPantry_SourceError(t *testing.T) {
	_, err := LoadPantry(context.Background(), storage.NewMemorySourceWithError(nil), now)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestLoadRecipes(t *testing.T) {
	data := `{"recipes": [
		{"id": 715538, "title": "Spinach Omelette", "ingredients": ["spinach", {"name": "eggs", "amount": "2"}], "cuisines": ["French"], "popularity": 40},
		{"id": "R2", "name": "Rice Bowl", "ingredients": [{"name": "rice", "qty": 1.5, "unit": "cup"}], "diets": ["vegan"]},
		{"id": "R3", "title": "Nothing", "ingredients": []},
		{"title": "No id", "ingredients": ["salt"]}
	]}`

	recipes, err := LoadRecipes(context.Background(), storage.NewMemorySource([]byte(data)))
	require.NoError(t, err)
	require.Len(t, recipes, 2)

	assert.Equal(t, "715538", recipes[0].ID)
	assert.Equal(t, []string{"spinach", "eggs"}, recipes[0].IngredientNames())
	assert.Equal(t, "2", recipes[0].Ingredients[1].Amount)
	assert.Equal(t, 40, recipes[0].Popularity)

	assert.Equal(t, "Rice Bowl", recipes[1].Title)
	assert.Equal(t, "1.5 cup", recipes[1].Ingredients[0].Amount)
	assert.Equal(t, []string{"vegan"}, recipes[1].Diets)
}

func TestLoadRecipes_Array(t *testing.T) {
	recipes, err := LoadRecipes(context.Background(), storage.NewMemorySource([]byte(`[{"id":"a","title":"A","ingredients":["x"]}]`)))
	require.NoError(t, err)
	require.Len(t, recipes, 1)
	assert.Equal(t, "a", recipes[0].ID)

	_, err = LoadRecipes(context.Background(), storage.NewMemorySource([]byte(`[{"id": true}]`)))
	assert.Error(t, err)
}

func testCatalog() *Catalog {
	ing := func(names ...string) []planner.Ingredient {
		out := make([]planner.Ingredient, 0, len(names))
		for _, n := range names {
			out = append(out, planner.Ingredient{Name: n})
		}
		return out
	}
	return NewCatalog([]planner.Recipe{
		{ID: "pasta", Title: "Pasta", Ingredients: ing("pasta", "tomato"), Cuisines: []string{"Italian"}, Popularity: 90},
		{ID: "salad", Title: "Salad", Ingredients: ing("baby spinach", "tomatoes"), Diets: []string{"vegan", "vegetarian"}, Popularity: 10},
		{ID: "curry", Title: "Curry", Ingredients: ing("chickpeas", "spinach"), Cuisines: []string{"indian"}, Diets: []string{"vegan"}, Popularity: 50},
		{ID: "toast", Title: "Toast", Ingredients: ing("bread"), Popularity: 99},
	}, nil)
}

func TestCatalog_FetchRecipes(t *testing.T) {
	tests := []struct {
		name  string
		query planner.RecipeQuery
		want  []string
	}{
		{
			name:  "popularity only",
			query: planner.RecipeQuery{},
			want:  []string{"toast", "pasta", "curry", "salad"},
		},
		{
			name:  "ingredient matches first",
			query: planner.RecipeQuery{Ingredients: []string{"spinach", "tomato"}},
			want:  []string{"salad", "pasta", "curry", "toast"},
		},
		{
			name:  "cuisine breaks ties",
			query: planner.RecipeQuery{Ingredients: []string{"spinach"}, Cuisines: []string{"Indian"}},
			want:  []string{"curry", "salad", "toast", "pasta"},
		},
		{
			name:  "dietary filter and exclusions",
			query: planner.RecipeQuery{Dietary: []string{"Vegan"}, ExcludeIDs: []string{"curry"}},
			want:  []string{"salad"},
		},
		{
			name:  "limit",
			query: planner.RecipeQuery{Limit: 2},
			want:  []string{"toast", "pasta"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recipes, err := testCatalog().FetchRecipes(context.Background(), tt.query)
			require.NoError(t, err)

			ids := make([]string, 0, len(recipes))
			for _, r := range recipes {
				ids = append(ids, r.ID)
			}
			assert.Equal(t, tt.want, ids)
		})
	}
}

func TestCatalog_FetchRecipes_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := testCatalog().FetchRecipes(ctx, planner.RecipeQuery{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCatalog_Lookup(t *testing.T) {
	c := testCatalog()
	assert.Equal(t, 4, c.Len())

	recipes, err := c.Lookup("curry", " pasta ", "")
	require.NoError(t, err)
	require.Len(t, recipes, 2)
	assert.Equal(t, "curry", recipes[0].ID)
	assert.Equal(t, "pasta", recipes[1].ID)

	recipes, err = c.Lookup("toast", "waffles")
	assert.ErrorContains(t, err, "waffles")
	assert.Len(t, recipes, 1)
}

func TestLoadCatalog(t *testing.T) {
	c, err := LoadCatalog(context.Background(), storage.NewMemorySource([]byte(`[{"id":"a","ingredients":["x"]}]`)), nil)
	require.NoError(t, err)
	assert.Equal(t, 1, c.Len())

	_, err = LoadCatalog(context.Background(), storage.NewMemorySourceWithError(nil), nil)
	assert.Error(t, err)
}

// satisfies the planner's fetcher contract
var _ planner.RecipeFetcher = (*Catalog)(nil)
