package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"pantryplanner/catalog/storage"
	"pantryplanner/planner"
)

// flexID accepts ids written as JSON strings or numbers.
type flexID string

func (id *flexID) UnmarshalJSON(b []byte) error {
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = flexID(s)
		return nil
	}
	var n json.Number
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	if err := dec.Decode(&n); err != nil {
		return fmt.Errorf("recipe id must be a string or number: %w", err)
	}
	*id = flexID(n.String())
	return nil
}

// ingredient accepts either "2 eggs" style strings or {"name", "amount"} objects.
type ingredient planner.Ingredient

func (ing *ingredient) UnmarshalJSON(b []byte) error {
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		ing.Name = s
		return nil
	}
	var obj struct {
		Name   string  `json:"name"`
		Amount string  `json:"amount"`
		Qty    float64 `json:"qty"`
		Unit   string  `json:"unit"`
	}
	if err := json.Unmarshal(b, &obj); err != nil {
		return err
	}
	ing.Name = obj.Name
	ing.Amount = obj.Amount
	if ing.Amount == "" && obj.Qty > 0 {
		ing.Amount = strings.TrimSpace(strconv.FormatFloat(obj.Qty, 'f', -1, 64) + " " + obj.Unit)
	}
	return nil
}

type recipeDoc struct {
	ID          flexID       `json:"id"`
	Title       string       `json:"title"`
	Name        string       `json:"name"`
	Image       string       `json:"image"`
	Ingredients []ingredient `json:"ingredients"`
	Cuisines    []string     `json:"cuisines"`
	Popularity  int          `json:"popularity"`
	Diets       []string     `json:"diets"`
}

// LoadRecipes reads a recipe catalog: a JSON array of recipes, or an object with a
// "recipes" array. Recipes without an id or ingredients are skipped.
func LoadRecipes(ctx context.Context, src storage.Source) ([]planner.Recipe, error) {
	b, err := src.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("read recipes: %w", err)
	}

	var docs []recipeDoc
	if trimmed := bytes.TrimSpace(b); len(trimmed) > 0 && trimmed[0] == '{' {
		var wrapper struct {
			Recipes []recipeDoc `json:"recipes"`
		}
		if err := json.Unmarshal(b, &wrapper); err != nil {
			return nil, fmt.Errorf("parse recipes: %w", err)
		}
		docs = wrapper.Recipes
	} else if err := json.Unmarshal(b, &docs); err != nil {
		return nil, fmt.Errorf("parse recipes: %w", err)
	}

	recipes := make([]planner.Recipe, 0, len(docs))
	for _, d := range docs {
		r := d.recipe()
		if r.ID == "" || len(r.Ingredients) == 0 {
			slog.Warn("CATALOG: Skipping incomplete recipe", "id", r.ID, "title", r.Title)
			continue
		}
		recipes = append(recipes, r)
	}
	slog.Debug("CATALOG: Loaded recipes", "recipes", len(recipes))
	return recipes, nil
}

func (d recipeDoc) recipe() planner.Recipe {
	title := d.Title
	if title == "" {
		title = d.Name
	}
	r := planner.Recipe{
		ID:         strings.TrimSpace(string(d.ID)),
		Title:      title,
		Image:      d.Image,
		Cuisines:   d.Cuisines,
		Popularity: d.Popularity,
		Diets:      d.Diets,
	}
	for _, ing := range d.Ingredients {
		if strings.TrimSpace(ing.Name) == "" {
			continue
		}
		r.Ingredients = append(r.Ingredients, planner.Ingredient(ing))
	}
	return r
}
