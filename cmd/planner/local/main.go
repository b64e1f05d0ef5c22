package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"

	"github.com/joeshaw/envdecode"

	"pantryplanner"
	"pantryplanner/app"
	"pantryplanner/catalog/storage"
	"pantryplanner/slack"
)

func main() {
	ctx := context.Background()

	var modelConfig pantryplanner.ModelConfig
	if err := envdecode.Decode(&modelConfig); err != nil {
		log.Fatalf("SETUP: Failed to decode: %s", err)
	}

	var plannerConfig pantryplanner.PlannerConfig
	if err := envdecode.Decode(&plannerConfig); err != nil {
		log.Fatalf("SETUP: Failed to decode: %s", err)
	}

	if plannerConfig.Debug {
		slog.SetLogLoggerLevel(slog.LevelDebug)
	}

	otelShutdown, err := pantryplanner.InitOtel(ctx)
	if err != nil {
		slog.Error("SETUP: Failed to initialize OpenTelemetry", "error", err)
		return
	}
	defer func() {
		if err := otelShutdown(ctx); err != nil {
			slog.Error("SETUP: Failed to shutdown OpenTelemetry", "error", err)
		}
	}()

	assist, closeAssist, err := app.NewAssist(ctx, plannerConfig, modelConfig)
	if err != nil {
		slog.Error("SETUP: Failed to create assisted planner", "error", err)
		return
	}
	defer closeAssist() // nolint: errcheck

	logger, cleanup, err := newRunLogger(plannerConfig.AssistProvider)
	if err != nil {
		slog.Error("SETUP: Failed to create run logger", "error", err)
		return
	}
	defer func() {
		if err := cleanup(); err != nil {
			slog.Error("SETUP: Failed to flush run log", "error", err)
		}
	}()

	deps := app.Deps{
		Pantry:  storage.NewFileSource(plannerConfig.PantryPath),
		Recipes: storage.NewFileSource(plannerConfig.RecipesPath),
		Assist:  assist,
		Logger:  logger,
	}
	if plannerConfig.OutputPath != "" {
		deps.Output = storage.NewFileSink(plannerConfig.OutputPath)
	}
	if plannerConfig.SlackWebhookURL != "" {
		deps.Slack = slack.NewClient(plannerConfig.SlackWebhookURL, http.DefaultClient)
	}

	res, err := app.Execute(ctx, plannerConfig, deps)
	if err != nil {
		slog.Error("RESULT: Error planning the week", "error", err)
		return
	}

	fmt.Println(slack.FormatPlan(res))
}

func newRunLogger(provider string) (pantryplanner.RunLogger, func() error, error) {
	logFilePath := pantryplanner.NewRunLogFilePath(provider)
	if err := os.MkdirAll(filepath.Dir(logFilePath), 0755); err != nil {
		return nil, func() error { return err }, fmt.Errorf("failed to create log directory: %w", err)
	}
	logFile, err := os.OpenFile(logFilePath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return nil, func() error { return err }, fmt.Errorf("failed to open log file: %w", err)
	}

	logger := pantryplanner.NewFileRunLogger(logFile)
	cleanup := func() error {
		return errors.Join(logger.Flush(), logFile.Close())
	}
	return logger, cleanup, nil
}
