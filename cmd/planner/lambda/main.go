package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/joeshaw/envdecode"

	"pantryplanner"
	"pantryplanner/app"
	"pantryplanner/catalog/storage"
	"pantryplanner/planner"
	"pantryplanner/slack"
)

// Params override the environment configuration for one invocation.
type Params struct {
	SelectedRecipeIDs []string `json:"selectedRecipeIds"`
	MealsPerDay       int      `json:"mealsPerDay"`
	Dietary           []string `json:"dietaryPreferences"`
	Cuisines          []string `json:"cuisinePreferences"`
}

type Results struct {
	Plan planner.Result `json:"plan"`
}

func main() {
	fn := func(ctx context.Context, params Params) (Results, error) {
		var modelConfig pantryplanner.ModelConfig
		if err := envdecode.Decode(&modelConfig); err != nil {
			return Results{}, fmt.Errorf("failed to decode model config: %w", err)
		}

		var plannerConfig pantryplanner.PlannerConfig
		if err := envdecode.Decode(&plannerConfig); err != nil {
			return Results{}, fmt.Errorf("failed to decode planner config: %w", err)
		}
		params.apply(&plannerConfig)

		var s3Config pantryplanner.S3Config
		if err := envdecode.Decode(&s3Config); err != nil {
			return Results{}, fmt.Errorf("missing S3 config: %w", err)
		}

		awsCfg, err := config.LoadDefaultConfig(ctx)
		if err != nil {
			return Results{}, fmt.Errorf("failed to load AWS config: %w", err)
		}
		s3Client := s3.NewFromConfig(awsCfg)

		otelShutdown, err := pantryplanner.InitOtel(ctx)
		if err != nil {
			slog.Error("SETUP: Failed to initialize OpenTelemetry", "error", err)
			return Results{}, err
		}
		defer func() {
			if err := otelShutdown(ctx); err != nil {
				slog.Error("SETUP: Failed to shutdown OpenTelemetry", "error", err)
			}
		}()

		assist, closeAssist, err := app.NewAssist(ctx, plannerConfig, modelConfig)
		if err != nil {
			slog.Error("SETUP: Failed to create assisted planner", "error", err)
			return Results{}, err
		}
		defer closeAssist() // nolint: errcheck

		deps := app.Deps{
			Pantry:  storage.NewS3Source(s3Client, s3Config.Bucket, s3Config.PantryKey),
			Recipes: storage.NewS3Source(s3Client, s3Config.Bucket, s3Config.RecipesKey),
			Assist:  assist,
			Logger:  pantryplanner.NewStdoutRunLogger(),
		}
		if s3Config.PlanKey != "" {
			deps.Output = storage.NewS3Sink(s3Client, s3Config.Bucket, s3Config.PlanKey)
		}
		if plannerConfig.SlackWebhookURL != "" {
			deps.Slack = slack.NewClient(plannerConfig.SlackWebhookURL, http.DefaultClient)
		}
		slog.Info("SETUP: S3 pantry and recipe sources initialized", "bucket", s3Config.Bucket)

		res, err := app.Execute(ctx, plannerConfig, deps)
		if err != nil {
			slog.Error("RESULT: Error planning the week", "error", err)
			return Results{}, err
		}

		return Results{Plan: res}, nil
	}

	lambda.Start(fn)
}

func (p Params) apply(cfg *pantryplanner.PlannerConfig) {
	if len(p.SelectedRecipeIDs) > 0 {
		cfg.SelectedRecipeIDs = p.SelectedRecipeIDs
	}
	if p.MealsPerDay > 0 {
		cfg.MealsPerDay = p.MealsPerDay
	}
	if len(p.Dietary) > 0 {
		cfg.Dietary = p.Dietary
	}
	if len(p.Cuisines) > 0 {
		cfg.Cuisines = p.Cuisines
	}
}
