// Package assist holds what the assisted planner transports share: the system prompt, the
// user message built from a planning request, the response schema and response decoding.
package assist

import (
	"encoding/json"
	"fmt"
	"strings"

	"pantryplanner/planner"

	"github.com/modelcontextprotocol/go-sdk/jsonschema"
)

// ToolName is the tool a model calls to hand back its plan when the transport supports
// tool use.
const ToolName = "submit_meal_plan"

const ToolDescription = "Submit the weekly meal plan and the explanation of how it was built."

const SystemPrompt = `You are a meal-planning assistant that fills a 7-day calendar.

GOAL:
Assign one recipe to each requested (dayIndex, mealType) slot so that
- pantry items closest to expiring are used first (see soonToExpireItems and daysUntilExpiry),
- recipes share ingredients so the shopping list stays short,
- the week has variety.

INPUT:
The user message is a JSON object with recipes, pantryItems, soonToExpireItems,
dietaryPreferences, cuisinePreferences, mealsPerDay, daysInWeek, initialScores and
existingAssignments.

RULES:
- dayIndex is 0-based and must be lower than daysInWeek.
- Use only the first mealsPerDay meal types of breakfast, lunch, dinner, in that order.
- Only use recipe ids from the recipes list. Never invent ids.
- Never place a recipe into a slot listed in existingAssignments; those are fixed.
- A recipe may appear at most 3 times in the week and should not appear on consecutive days.
- Prefer recipes with isUserSelected=true and high initialScores.
- Respect dietaryPreferences; favour cuisinePreferences.

OUTPUT:
Return ONLY a JSON object, no markdown, no text before or after it, matching this schema:
%s
`

// ResponseSchema describes the Response payload a model must produce.
func ResponseSchema() *jsonschema.Schema {
	minDay := 0.0
	maxDay := float64(planner.DaysInWeek - 1)
	minItems := 1
	return &jsonschema.Schema{
		Type: "object",
		Properties: map[string]*jsonschema.Schema{
			"mealPlan": {
				Type:     "array",
				MinItems: &minItems,
				Items: &jsonschema.Schema{
					Type: "object",
					Properties: map[string]*jsonschema.Schema{
						"dayIndex":  {Type: "integer", Minimum: &minDay, Maximum: &maxDay},
						"mealType":  {Type: "string", Enum: []any{string(planner.Breakfast), string(planner.Lunch), string(planner.Dinner)}},
						"recipeId":  {Type: "string"},
						"reasoning": {Type: "string"},
					},
					Required: []string{"dayIndex", "mealType", "recipeId"},
				},
			},
			"explanations": {
				Type: "object",
				Properties: map[string]*jsonschema.Schema{
					"pantryUsage":           {Type: "string"},
					"expiryOptimization":    {Type: "string"},
					"varietyStrategy":       {Type: "string"},
					"suggestedRecipesUsage": {Type: "string"},
				},
			},
		},
		Required: []string{"mealPlan", "explanations"},
	}
}

// SchemaMap returns ResponseSchema as a generic map, the form SDK document types expect.
func SchemaMap() (map[string]any, error) {
	// round trip through JSON so the schema's own MarshalJSON decides the shape
	b, err := json.Marshal(ResponseSchema())
	if err != nil {
		return nil, fmt.Errorf("failed to marshal response schema: %w", err)
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response schema: %w", err)
	}
	return m, nil
}

// SystemPromptWithSchema renders SystemPrompt with the indented response schema.
func SystemPromptWithSchema() (string, error) {
	b, err := json.MarshalIndent(ResponseSchema(), "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal response schema: %w", err)
	}
	return fmt.Sprintf(SystemPrompt, string(b)), nil
}

// UserMessage renders the planning request as the user turn.
func UserMessage(req planner.Request) (string, error) {
	b, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("failed to marshal planning request: %w", err)
	}
	return "Plan the week for this request:\n" + string(b), nil
}

// ExtractJSON returns the outermost JSON object in text, dropping markdown fences and any
// prose around it. Text without an object is returned trimmed.
func ExtractJSON(text string) string {
	s := strings.TrimSpace(text)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	s = strings.TrimSpace(s)

	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return s
	}
	return s[start : end+1]
}

// Decode parses model text into a planner.Response.
func Decode(text string) (planner.Response, error) {
	return planner.ParseResponse([]byte(ExtractJSON(text)))
}
