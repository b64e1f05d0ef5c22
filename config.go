package pantryplanner

import "time"

type ModelConfig struct {
	ModelID     string  `env:"MODEL_ID"`
	MaxTokens   int32   `env:"MAX_TOKENS,default=2048"`
	Temperature float32 `env:"TEMPERATURE,default=0.2"`
	TopP        float32 `env:"TOP_P,default=0.9"`
}

type PlannerConfig struct {
	PantryPath        string        `env:"PANTRY_PATH,default=artifacts/pantry.json"`
	RecipesPath       string        `env:"RECIPES_PATH,default=artifacts/recipes.json"`
	SelectedRecipeIDs []string      `env:"SELECTED_RECIPE_IDS"`
	MealsPerDay       int           `env:"MEALS_PER_DAY,default=3"`
	Dietary           []string      `env:"DIETARY_PREFERENCES"`
	Cuisines          []string      `env:"CUISINE_PREFERENCES"`
	AssistProvider    string        `env:"ASSIST_PROVIDER,default=none"`
	AssistTimeout     time.Duration `env:"ASSIST_TIMEOUT,default=30s"`
	UrgentWithinDays  int           `env:"URGENT_WITHIN_DAYS,default=3"`
	RepeatFill        bool          `env:"REPEAT_FILL,default=false"`
	SupplementLimit   int           `env:"SUPPLEMENT_LIMIT,default=20"`
	OutputPath        string        `env:"OUTPUT_PATH"`
	OllamaEndpoint    string        `env:"OLLAMA_ENDPOINT,default=http://localhost:11434"`
	GeminiAPIKey      string        `env:"GEMINI_API_KEY"`
	SlackWebhookURL   string        `env:"SLACK_WEBHOOK_URL"`
	SlackChannel      string        `env:"SLACK_CHANNEL,default=#meal-plan"`
	Debug             bool          `env:"PLANNER_DEBUG,default=false"`
}

type S3Config struct {
	Bucket     string `env:"ARTIFACTS_S3_BUCKET,required"`
	PantryKey  string `env:"ARTIFACTS_PANTRY_S3_KEY,default=pantry.json"`
	RecipesKey string `env:"ARTIFACTS_RECIPES_S3_KEY,default=recipes.json"`
	PlanKey    string `env:"ARTIFACTS_PLAN_S3_KEY"`
}
