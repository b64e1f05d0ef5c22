package planner

import (
	"time"
)

var testNow = time.Date(2025, time.March, 10, 8, 0, 0, 0, time.UTC)

func recipe(id string, ingredients ...string) Recipe {
	r := Recipe{ID: id, Title: "Recipe " + id}
	for _, name := range ingredients {
		r.Ingredients = append(r.Ingredients, Ingredient{Name: name})
	}
	return r
}

func expiresIn(days int) *time.Time {
	t := testNow.Add(time.Duration(days) * 24 * time.Hour)
	return &t
}

func pantryItem(name string, days int) PantryItem {
	item := PantryItem{Name: name, Category: CategoryOther}
	if days > 0 {
		item.ExpiryDate = expiresIn(days)
	}
	return item
}

func recipeIDs(meals []MealPlanItem) []string {
	ids := make([]string, 0, len(meals))
	for _, m := range meals {
		ids = append(ids, m.RecipeID)
	}
	return ids
}
