// Package app wires configuration, storage, the assisted planner and notifications into
// one planning run. The CLI and Lambda entry points differ only in where they load from.
package app

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"

	"pantryplanner"
	"pantryplanner/assist/bedrock"
	"pantryplanner/assist/gemini"
	"pantryplanner/assist/ollama"
	"pantryplanner/catalog"
	"pantryplanner/catalog/storage"
	"pantryplanner/planner"
)

// PlanPoster publishes a finished plan; *slack.Client implements it.
type PlanPoster interface {
	PostPlan(ctx context.Context, channel string, res planner.Result) error
}

// Deps are the collaborators of a run. Output, Assist and Slack are optional.
type Deps struct {
	Pantry  storage.Source
	Recipes storage.Source
	Output  storage.Sink
	Assist  planner.AssistedPlanner
	Slack   PlanPoster
	Logger  pantryplanner.RunLogger
	Now     func() time.Time
}

// NewAssist builds the assisted planner selected by cfg.AssistProvider. The returned
// close function releases provider resources and is never nil.
func NewAssist(ctx context.Context, cfg pantryplanner.PlannerConfig, model pantryplanner.ModelConfig) (planner.AssistedPlanner, func() error, error) {
	noop := func() error { return nil }

	switch provider := strings.ToLower(strings.TrimSpace(cfg.AssistProvider)); provider {
	case "", pantryplanner.ProviderNone:
		slog.Info("SETUP: Assisted planning disabled, using rule-based planner only")
		return nil, noop, nil

	case pantryplanner.ProviderBedrock:
		awsCfg, err := config.LoadDefaultConfig(ctx, config.WithRetryMaxAttempts(5))
		if err != nil {
			return nil, noop, fmt.Errorf("failed to load AWS config: %w", err)
		}
		client := bedrock.NewClient(bedrockruntime.NewFromConfig(awsCfg), bedrock.Options{
			ModelID:     model.ModelID,
			MaxTokens:   model.MaxTokens,
			Temperature: model.Temperature,
			TopP:        model.TopP,
		})
		return client, noop, nil

	case pantryplanner.ProviderOllama:
		client, err := ollama.NewClient(ollama.ClientOpts{
			BaseEndpoint: cfg.OllamaEndpoint,
			ModelID:      model.ModelID,
			Temperature:  float64(model.Temperature),
			HTTPClient:   http.DefaultClient,
		})
		if err != nil {
			return nil, noop, err
		}
		return client, noop, nil

	case pantryplanner.ProviderGemini:
		client, err := gemini.NewClient(ctx, cfg.GeminiAPIKey, model.ModelID, model.Temperature)
		if err != nil {
			return nil, noop, err
		}
		return client, client.Close, nil

	default:
		return nil, noop, fmt.Errorf("unknown assist provider %q", provider)
	}
}

// Options maps configuration onto planner options.
func Options(cfg pantryplanner.PlannerConfig) planner.Options {
	return planner.Options{
		AssistTimeout:    cfg.AssistTimeout,
		UrgentWithinDays: cfg.UrgentWithinDays,
		RepeatFill:       cfg.RepeatFill,
		SupplementLimit:  cfg.SupplementLimit,
	}
}

// Execute loads the pantry and recipes, plans the week, saves the result to deps.Output
// and posts a summary to Slack. Saving and posting failures are logged, not returned.
func Execute(ctx context.Context, cfg pantryplanner.PlannerConfig, deps Deps) (planner.Result, error) {
	now := time.Now
	if deps.Now != nil {
		now = deps.Now
	}

	pantry, err := catalog.LoadPantry(ctx, deps.Pantry, now())
	if err != nil {
		return planner.Result{}, err
	}
	slog.Info("SETUP: Pantry loaded", "items", len(pantry))

	cat, err := catalog.LoadCatalog(ctx, deps.Recipes, nil)
	if err != nil {
		return planner.Result{}, err
	}
	slog.Info("SETUP: Recipe catalog loaded", "recipes", cat.Len())

	selected, err := cat.Lookup(cfg.SelectedRecipeIDs...)
	if err != nil {
		slog.Warn("SETUP: Some selected recipes are not in the catalog", "error", err)
	}

	opts := Options(cfg)
	opts.Logger = deps.Logger
	opts.Now = now

	p := planner.NewPlanner(deps.Assist, cat, opts)
	res, err := p.Plan(ctx, planner.Input{
		Pantry:   pantry,
		Selected: selected,
		Preferences: planner.Preferences{
			MealsPerDay: cfg.MealsPerDay,
			Dietary:     cfg.Dietary,
			Cuisines:    cfg.Cuisines,
		},
	})
	if err != nil {
		slog.Error("RESULT: Planning failed", "error", err)
		return planner.Result{}, err
	}
	slog.Info("RESULT: Plan ready",
		"source", res.Source,
		"slots_filled", res.Fill.SlotsFilled,
		"slots_needed", res.Fill.SlotsNeeded,
		"shopping_items", len(res.ShoppingList))

	if cfg.Debug {
		pantryplanner.Dump(os.Stderr, res)
	}

	if deps.Output != nil {
		if err := save(ctx, deps.Output, res); err != nil {
			slog.Error("RESULT: Failed to save plan", "error", err)
		}
	}

	if deps.Slack != nil {
		if err := deps.Slack.PostPlan(ctx, cfg.SlackChannel, res); err != nil {
			slog.Error("RESULT: Failed to post plan to Slack", "error", err)
		}
	}

	return res, nil
}

func save(ctx context.Context, sink storage.Sink, res planner.Result) error {
	data, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return err
	}
	return sink.Save(ctx, data)
}
