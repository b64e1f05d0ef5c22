// Package bedrock asks a Bedrock-hosted model for a meal plan through the Converse API.
package bedrock

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"pantryplanner"
	"pantryplanner/assist"
	"pantryplanner/planner"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/document"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const (
	// defaultModelID is an inference profile ID, not the foundation model's ID.
	// See https://docs.aws.amazon.com/bedrock/latest/userguide/inference-profiles.html.
	defaultModelID = "us.anthropic.claude-3-7-sonnet-20250219-v1:0"

	// A full week with reasoning per slot needs more room than a single chat turn.
	defaultMaxTokens = 2048

	// Low temperature keeps structured output consistent.
	defaultTemperature = 0.2

	defaultTopP = 0.9
)

var (
	ErrMaxTokens = errors.New("model hit MaxTokens limit")
	ErrFiltered  = errors.New("model response blocked by Bedrock safety filters")
)

type bedrockRuntimeClient interface {
	Converse(context.Context, *bedrockruntime.ConverseInput, ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseOutput, error)
}

type Options struct {
	ModelID     string
	MaxTokens   int32
	Temperature float32
	TopP        float32
}

// Client implements planner.AssistedPlanner on top of Bedrock Converse. The model is
// forced to call the submit_meal_plan tool, whose input schema is the response schema.
type Client struct {
	brc  bedrockRuntimeClient
	opts Options
}

func NewClient(brc bedrockRuntimeClient, opts Options) *Client {
	if opts.ModelID == "" {
		opts.ModelID = defaultModelID
	}
	if opts.MaxTokens == 0 {
		opts.MaxTokens = defaultMaxTokens
	}
	if opts.Temperature == 0 {
		opts.Temperature = defaultTemperature
	}
	if opts.TopP == 0 {
		opts.TopP = defaultTopP
	}
	return &Client{brc: brc, opts: opts}
}

func (c *Client) Plan(ctx context.Context, req planner.Request) (planner.Response, error) {
	ctx, span := otel.Tracer(pantryplanner.TracerNameAssist).Start(ctx, "bedrock.Client.Plan")
	defer span.End()

	in, err := c.buildInput(req)
	if err != nil {
		span.SetStatus(codes.Error, "failed to build input")
		span.RecordError(err)
		return planner.Response{}, err
	}

	slog.Info("ASSIST: Invoking Bedrock", "model_id", c.opts.ModelID, "recipes", len(req.Recipes))

	out, err := c.brc.Converse(ctx, in)
	if err != nil {
		slog.Error("ASSIST: Bedrock invoke failed", "error", err)
		span.SetStatus(codes.Error, "converse failed")
		span.RecordError(err)
		return planner.Response{}, fmt.Errorf("bedrock converse: %w", err)
	}

	attrs := []any{"stop_reason", out.StopReason}
	if out.Metrics != nil {
		attrs = append(attrs, "latency_ms", aws.ToInt64(out.Metrics.LatencyMs))
	}
	if out.Usage != nil {
		attrs = append(attrs,
			"input_tokens", aws.ToInt32(out.Usage.InputTokens),
			"output_tokens", aws.ToInt32(out.Usage.OutputTokens),
		)
		span.SetAttributes(
			attribute.Int("llm.input_tokens", int(aws.ToInt32(out.Usage.InputTokens))),
			attribute.Int("llm.output_tokens", int(aws.ToInt32(out.Usage.OutputTokens))),
		)
	}
	slog.Info("ASSIST: Bedrock invoke succeeded", attrs...)

	switch out.StopReason {
	case types.StopReasonMaxTokens:
		slog.Warn("ASSIST: Model hit MaxTokens limit; consider raising MAX_TOKENS")
		return planner.Response{}, ErrMaxTokens
	case types.StopReasonContentFiltered, types.StopReasonGuardrailIntervened:
		slog.Warn("ASSIST: Model response blocked by Bedrock safety filters")
		return planner.Response{}, ErrFiltered
	}

	resp, err := responseFromOutput(out)
	if err != nil {
		span.SetStatus(codes.Error, "invalid response")
		span.RecordError(err)
		return planner.Response{}, err
	}
	span.SetAttributes(attribute.Int("plan.assignments", len(resp.MealPlan)))
	return resp, nil
}

func (c *Client) buildInput(req planner.Request) (*bedrockruntime.ConverseInput, error) {
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

	return &bedrockruntime.ConverseInput{
		ModelId: aws.String(c.opts.ModelID),
		System:  []types.SystemContentBlock{&types.SystemContentBlockMemberText{Value: system}},
		Messages: []types.Message{{
			Role:    types.ConversationRoleUser,
			Content: []types.ContentBlock{&types.ContentBlockMemberText{Value: user}},
		}},
		InferenceConfig: &types.InferenceConfiguration{
			MaxTokens:   aws.Int32(c.opts.MaxTokens),
			Temperature: aws.Float32(c.opts.Temperature),
			TopP:        aws.Float32(c.opts.TopP),
		},
		ToolConfig: &types.ToolConfiguration{
			Tools: []types.Tool{&types.ToolMemberToolSpec{Value: types.ToolSpecification{
				Name:        aws.String(assist.ToolName),
				Description: aws.String(assist.ToolDescription),
				InputSchema: &types.ToolInputSchemaMemberJson{Value: document.NewLazyDocument(schema)},
			}}},
			ToolChoice: &types.ToolChoiceMemberTool{Value: types.SpecificToolChoice{Name: aws.String(assist.ToolName)}},
		},
	}, nil
}

// responseFromOutput prefers the submit_meal_plan tool input and falls back to a JSON
// object in the assistant text.
func responseFromOutput(out *bedrockruntime.ConverseOutput) (planner.Response, error) {
	msg, ok := out.Output.(*types.ConverseOutputMemberMessage)
	if !ok || msg == nil || len(msg.Value.Content) == 0 {
		return planner.Response{}, fmt.Errorf("%w: empty model output", planner.ErrMalformedResponse)
	}

	var text string
	for _, cb := range msg.Value.Content {
		switch b := cb.(type) {
		case *types.ContentBlockMemberToolUse:
			if aws.ToString(b.Value.Name) != assist.ToolName || b.Value.Input == nil {
				continue
			}
			raw, err := b.Value.Input.MarshalSmithyDocument()
			if err != nil {
				return planner.Response{}, fmt.Errorf("%w: tool input: %v", planner.ErrMalformedResponse, err)
			}
			slog.Info("ASSIST: Extracted tool input", "tool", assist.ToolName, "bytes", len(raw))
			return planner.ParseResponse(raw)
		case *types.ContentBlockMemberText:
			if b.Value != "" {
				text = b.Value
			}
		}
	}

	if text == "" {
		return planner.Response{}, fmt.Errorf("%w: no tool call or text in model output", planner.ErrMalformedResponse)
	}
	return assist.Decode(text)
}
