// ABOUTME: OpenAIProducer streams chat completions from any OpenAI-compatible endpoint via openai-go.
// ABOUTME: Content deltas become message events; finished tool calls become tool_call events and may run locally.

package upstream

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/2389-research/cardstream/tools"
)

// DefaultModel is used when the configuration leaves the model empty.
const DefaultModel = "gpt-4o-mini"

// DefaultMaxRounds bounds the tool-call round trips in one turn.
const DefaultMaxRounds = 4

// ToolRunner executes tool calls requested by the model.
type ToolRunner interface {
	Has(name string) bool
	Run(ctx context.Context, name string, args json.RawMessage) (string, error)
}

// ToolFunc runs one tool.
type ToolFunc func(ctx context.Context, args json.RawMessage) (string, error)

// ToolFuncs is a ToolRunner backed by a map of functions.
type ToolFuncs map[string]ToolFunc

// Has implements ToolRunner.
func (f ToolFuncs) Has(name string) bool {
	_, ok := f[name]
	return ok
}

// Run implements ToolRunner.
func (f ToolFuncs) Run(ctx context.Context, name string, args json.RawMessage) (string, error) {
	fn, ok := f[name]
	if !ok {
		return "", fmt.Errorf("unknown tool %q", name)
	}
	return fn(ctx, args)
}

// Think acknowledges a reasoning step so the model can continue.
func Think(_ context.Context, args json.RawMessage) (string, error) {
	var in struct {
		Thought string `json:"thought"`
	}
	if err := json.Unmarshal(args, &in); err != nil {
		return "", fmt.Errorf("think: %w", err)
	}
	return "Thought recorded.", nil
}

// OpenAIConfig configures an OpenAIProducer.
type OpenAIConfig struct {
	APIKey       string
	BaseURL      string
	Model        string
	SystemPrompt string
	MaxRounds    int
	Runner       ToolRunner
	Catalog      *tools.Catalog
}

// OpenAIProducer answers messages with a streaming chat completion.
type OpenAIProducer struct {
	client    openai.Client
	model     string
	system    string
	maxRounds int
	runner    ToolRunner
	catalog   *tools.Catalog
}

// NewOpenAIProducer builds a producer. BaseURL may point at any
// OpenAI-compatible provider.
func NewOpenAIProducer(cfg OpenAIConfig) *OpenAIProducer {
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.MaxRounds <= 0 {
		cfg.MaxRounds = DefaultMaxRounds
	}
	if cfg.Catalog == nil {
		cfg.Catalog = tools.Default()
	}
	return &OpenAIProducer{
		client:    openai.NewClient(opts...),
		model:     cfg.Model,
		system:    cfg.SystemPrompt,
		maxRounds: cfg.MaxRounds,
		runner:    cfg.Runner,
		catalog:   cfg.Catalog,
	}
}

// Name implements Producer.
func (p *OpenAIProducer) Name() string { return "openai" }

type finishedCall struct {
	ID        string
	Name      string
	Arguments string
}

// Produce implements Producer.
func (p *OpenAIProducer) Produce(ctx context.Context, message string, emit Emitter) error {
	var messages []openai.ChatCompletionMessageParamUnion
	if p.system != "" {
		messages = append(messages, openai.SystemMessage(p.system))
	}
	messages = append(messages, openai.UserMessage(message))

	for round := 0; ; round++ {
		params := openai.ChatCompletionNewParams{
			Model:    p.model,
			Messages: messages,
		}
		advertise := p.runner != nil && round < p.maxRounds
		if advertise {
			params.Tools = p.toolParams()
		}

		text, calls, err := p.streamRound(ctx, params, emit)
		if err != nil {
			return err
		}
		if !advertise || len(calls) == 0 {
			return nil
		}

		messages = append(messages, assistantMessage(text, calls))
		for _, call := range calls {
			result, err := p.runner.Run(ctx, call.Name, json.RawMessage(call.Arguments))
			if err != nil {
				log.Printf("component=upstream action=tool_failed tool=%s err=%v", call.Name, err)
				result = "error: " + err.Error()
			}
			messages = append(messages, openai.ToolMessage(result, call.ID))
		}
	}
}

// streamRound runs one completion, emitting content deltas and tool calls as
// they finish. It returns the round's text and tool calls.
func (p *OpenAIProducer) streamRound(ctx context.Context, params openai.ChatCompletionNewParams, emit Emitter) (string, []finishedCall, error) {
	stream := p.client.Chat.Completions.NewStreaming(ctx, params)
	defer stream.Close()

	var acc openai.ChatCompletionAccumulator
	var calls []finishedCall
	seen := make(map[string]bool)

	for stream.Next() {
		chunk := stream.Current()
		acc.AddChunk(chunk)

		if len(chunk.Choices) > 0 && chunk.Choices[0].Delta.Content != "" {
			if err := emit.Message(chunk.Choices[0].Delta.Content); err != nil {
				return "", nil, err
			}
		}

		if tc, ok := acc.JustFinishedToolCall(); ok {
			call := finishedCall{ID: tc.ID, Name: tc.Name, Arguments: tc.Arguments}
			seen[call.ID] = true
			calls = append(calls, call)
			if err := emitToolCall(emit, call); err != nil {
				return "", nil, err
			}
		}
	}
	if err := stream.Err(); err != nil {
		return "", nil, fmt.Errorf("chat completion stream: %w", err)
	}

	var text string
	if len(acc.Choices) > 0 {
		msg := acc.Choices[0].Message
		text = msg.Content
		// A stream that ends without a finish reason never reports its last call as finished.
		for _, tc := range msg.ToolCalls {
			if seen[tc.ID] {
				continue
			}
			call := finishedCall{ID: tc.ID, Name: tc.Function.Name, Arguments: tc.Function.Arguments}
			calls = append(calls, call)
			if err := emitToolCall(emit, call); err != nil {
				return "", nil, err
			}
		}
	}
	return text, calls, nil
}

func emitToolCall(emit Emitter, call finishedCall) error {
	var args map[string]any
	if call.Arguments != "" {
		if err := json.Unmarshal([]byte(call.Arguments), &args); err != nil {
			log.Printf("component=upstream action=bad_tool_args tool=%s err=%v", call.Name, err)
			args = map[string]any{}
		}
	}
	return emit.ToolCall(call.Name, args)
}

// toolParams advertises the catalog tools the runner can execute.
func (p *OpenAIProducer) toolParams() []openai.ChatCompletionToolParam {
	var params []openai.ChatCompletionToolParam
	for _, entry := range p.catalog.Entries() {
		if !p.runner.Has(entry.Name) {
			continue
		}
		params = append(params, openai.ChatCompletionToolParam{
			Type: "function",
			Function: openai.FunctionDefinitionParam{
				Name:        entry.Name,
				Description: openai.String(entry.Description),
				Parameters:  openai.FunctionParameters(entry.Parameters),
			},
		})
	}
	return params
}

func assistantMessage(text string, calls []finishedCall) openai.ChatCompletionMessageParamUnion {
	toolCalls := make([]openai.ChatCompletionMessageToolCallParam, 0, len(calls))
	for _, call := range calls {
		toolCalls = append(toolCalls, openai.ChatCompletionMessageToolCallParam{
			ID:   call.ID,
			Type: "function",
			Function: openai.ChatCompletionMessageToolCallFunctionParam{
				Name:      call.Name,
				Arguments: call.Arguments,
			},
		})
	}
	msg := openai.ChatCompletionAssistantMessageParam{
		Role:      "assistant",
		ToolCalls: toolCalls,
	}
	if text != "" {
		msg.Content = openai.ChatCompletionAssistantMessageParamContentUnion{
			OfString: openai.String(text),
		}
	}
	return openai.ChatCompletionMessageParamUnion{OfAssistant: &msg}
}
