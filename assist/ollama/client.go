// Package ollama asks a local Ollama model for a meal plan through /api/chat.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"pantryplanner"
	"pantryplanner/assist"
	"pantryplanner/planner"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const defaultModelID = "llama3.2"

type options struct {
	Temperature   float64 `json:"temperature,omitempty"`
	TopP          float64 `json:"top_p,omitempty"`
	RepeatPenalty float64 `json:"repeat_penalty,omitempty"`
	NumCtx        int     `json:"num_ctx,omitempty"`
}

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type wireRequest struct {
	Model    string         `json:"model"`
	Messages []Message      `json:"messages"`
	Stream   bool           `json:"stream"`
	Format   map[string]any `json:"format,omitempty"` // JSON schema the output must follow
	Options  options        `json:"options,omitempty"`
}

type wireResponse struct {
	Message Message `json:"message"`
	Done    bool    `json:"done"`
	// other metadata omitted but available
}

type Client struct {
	endpoint   string
	model      string
	httpClient pantryplanner.HTTPClient
	options    options
}

type ClientOpts struct {
	BaseEndpoint string
	ModelID      string
	Temperature  float64
	HTTPClient   pantryplanner.HTTPClient
}

func NewClient(opts ClientOpts) (*Client, error) {
	if strings.TrimSpace(opts.BaseEndpoint) == "" {
		return nil, fmt.Errorf("ollama: base endpoint is required")
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}
	if opts.ModelID == "" {
		opts.ModelID = defaultModelID
	}
	if opts.Temperature == 0 {
		opts.Temperature = 0.2
	}

	return &Client{
		model:      opts.ModelID,
		httpClient: opts.HTTPClient,
		endpoint:   strings.TrimRight(opts.BaseEndpoint, "/") + "/api/chat",
		options: options{
			Temperature:   opts.Temperature,
			TopP:          0.9,
			RepeatPenalty: 1.05,
			NumCtx:        16384, // recipe lists get long; raise if your machine can handle it
		},
	}, nil
}

// Plan sends the request as a single chat turn and decodes the model's JSON answer.
func (c *Client) Plan(ctx context.Context, req planner.Request) (planner.Response, error) {
	ctx, span := otel.Tracer(pantryplanner.TracerNameAssist).Start(ctx, "ollama.Client.Plan")
	defer span.End()

	body, err := c.buildRequest(req)
	if err != nil {
		return planner.Response{}, err
	}
	span.SetAttributes(attribute.Int("prompt_size_bytes", len(body)))
	slog.Info("ASSIST: Invoking Ollama", "model", c.model, "endpoint", c.endpoint, "prompt_size_bytes", len(body))

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewBuffer(body))
	if err != nil {
		return planner.Response{}, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		span.SetStatus(codes.Error, "request failed")
		span.RecordError(err)
		return planner.Response{}, fmt.Errorf("ollama: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return planner.Response{}, fmt.Errorf("ollama: read body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		err := fmt.Errorf("ollama: %s: %s", resp.Status, strings.TrimSpace(string(raw)))
		span.SetStatus(codes.Error, resp.Status)
		span.RecordError(err)
		return planner.Response{}, err
	}

	var wr wireResponse
	if err := json.Unmarshal(raw, &wr); err != nil {
		return planner.Response{}, fmt.Errorf("%w: ollama envelope: %v", planner.ErrMalformedResponse, err)
	}
	slog.Info("ASSIST: Ollama response received", "content_length", len(wr.Message.Content))

	out, err := assist.Decode(wr.Message.Content)
	if err != nil {
		span.SetStatus(codes.Error, "invalid response")
		span.RecordError(err)
		return planner.Response{}, err
	}
	return out, nil
}

func (c *Client) buildRequest(req planner.Request) ([]byte, error) {
	system, err := assist.SystemPromptWithSchema()
	if err != nil {
		return nil, err
	}
	user, err := assist.UserMessage(req)
	if err != nil {
		return nil, err
	}
	schema, err := assist.SchemaMap()
	if err != nil {
		return nil, err
	}

	return json.Marshal(wireRequest{
		Model: c.model,
		Messages: []Message{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		Stream:  false,
		Format:  schema,
		Options: c.options,
	})
}
