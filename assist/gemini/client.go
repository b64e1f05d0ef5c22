// Package gemini asks a Google Gemini model for a meal plan.
package gemini

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"pantryplanner"
	"pantryplanner/assist"
	"pantryplanner/planner"

	"github.com/google/generative-ai-go/genai"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"google.golang.org/api/option"
)

const defaultModel = "gemini-1.5-flash"

// generator is the part of *genai.GenerativeModel the client uses.
type generator interface {
	GenerateContent(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error)
}

type Client struct {
	gen    generator
	client *genai.Client
}

// NewClient creates a Gemini API client whose model answers in JSON.
func NewClient(ctx context.Context, apiKey, modelName string, temperature float32) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini: API key is required")
	}
	if modelName == "" {
		modelName = defaultModel
	}

	system, err := assist.SystemPromptWithSchema()
	if err != nil {
		return nil, err
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	model := client.GenerativeModel(modelName)
	model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(system)}}
	model.ResponseMIMEType = "application/json"
	if temperature > 0 {
		model.SetTemperature(temperature)
	}

	return &Client{gen: model, client: client}, nil
}

func (c *Client) Plan(ctx context.Context, req planner.Request) (planner.Response, error) {
	ctx, span := otel.Tracer(pantryplanner.TracerNameAssist).Start(ctx, "gemini.Client.Plan")
	defer span.End()

	user, err := assist.UserMessage(req)
	if err != nil {
		return planner.Response{}, err
	}

	slog.Info("ASSIST: Invoking Gemini", "prompt_size_bytes", len(user))
	resp, err := c.gen.GenerateContent(ctx, genai.Text(user))
	if err != nil {
		span.SetStatus(codes.Error, "generate failed")
		span.RecordError(err)
		return planner.Response{}, fmt.Errorf("failed to generate content: %w", err)
	}

	text := responseText(resp)
	if text == "" {
		err := fmt.Errorf("%w: no content generated", planner.ErrMalformedResponse)
		span.SetStatus(codes.Error, "empty response")
		span.RecordError(err)
		return planner.Response{}, err
	}
	slog.Info("ASSIST: Gemini response received", "content_length", len(text))

	out, err := assist.Decode(text)
	if err != nil {
		span.SetStatus(codes.Error, "invalid response")
		span.RecordError(err)
		return planner.Response{}, err
	}
	return out, nil
}

// Close closes the underlying Gemini client.
func (c *Client) Close() error {
	if c.client == nil {
		return nil
	}
	return c.client.Close()
}

// responseText joins the text parts of the first candidate.
func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if t, ok := part.(genai.Text); ok {
			b.WriteString(string(t))
		}
	}
	return strings.TrimSpace(b.String())
}
