package contracts

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"google.golang.org/genai"
)

var errClientMissing = errors.New("client not initialized")

// GenerateOption represents options for generation
type GenerateOption func(*generateConfig)

type generateConfig struct {
	ModelName       string
	Prompt          string
	Temperature     *float32
	MaxOutputTokens int32
}

// WithModelName sets the model name
func WithModelName(name string) GenerateOption {
	return func(cfg *generateConfig) { cfg.ModelName = name }
}

// WithPrompt sets the user prompt text.
func WithPrompt(prompt string) GenerateOption {
	return func(cfg *generateConfig) { cfg.Prompt = prompt }
}

// WithTemperature overrides the sampling temperature (default 0).
func WithTemperature(t float32) GenerateOption {
	return func(cfg *generateConfig) { cfg.Temperature = &t }
}

// WithMaxOutputTokens bounds the response size.
func WithMaxOutputTokens(n int32) GenerateOption {
	return func(cfg *generateConfig) { cfg.MaxOutputTokens = n }
}

// GenerateBytes asks a Gemini model for a JSON response to a text prompt.
func GenerateBytes(ctx context.Context, client *genai.Client, log *slog.Logger, opts ...GenerateOption) ([]byte, error) {
	var zero float32
	cfg := generateConfig{ModelName: DefaultModel, Temperature: &zero, MaxOutputTokens: 8192}
	for _, opt := range opts {
		opt(&cfg)
	}

	if client == nil {
		return nil, errClientMissing
	}
	if cfg.Prompt == "" {
		return nil, fmt.Errorf("no prompt provided")
	}

	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{genai.NewPartFromText(cfg.Prompt)}, genai.RoleUser),
	}
	config := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		Temperature:      cfg.Temperature,
		MaxOutputTokens:  cfg.MaxOutputTokens,
	}

	log.Debug("Generating content", "model", cfg.ModelName, "prompt_length", len(cfg.Prompt))
	resp, err := client.Models.GenerateContent(ctx, cfg.ModelName, contents, config)
	if err != nil {
		return nil, fmt.Errorf("failed to generate content: %w", err)
	}

	if len(resp.Candidates) == 0 {
		log.Debug("No candidates in response")
		return nil, fmt.Errorf("no candidates in response")
	}
	candidate := resp.Candidates[0]
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return nil, fmt.Errorf("no parts in candidate content")
	}

	text := resp.Text()
	if text == "" {
		return nil, fmt.Errorf("no text in response")
	}
	log.Debug("Generated content successfully", "response_length", len(text))
	return []byte(text), nil
}

// genaiInvoker implements the Invoker interface using Google GenAI
type genaiInvoker struct {
	client *genai.Client
	log    *slog.Logger
}

// NewGenAIInvoker wraps a genai client as an Invoker.
func NewGenAIInvoker(client *genai.Client, log *slog.Logger) Invoker {
	if log == nil {
		log = slog.Default()
	}
	return &genaiInvoker{client: client, log: log}
}

func (gv *genaiInvoker) Generate(ctx context.Context, model Model, prompt string) ([]byte, error) {
	gv.log.Debug("Starting generation", "model", string(model), "prompt_length", len(prompt))
	return GenerateBytes(ctx, gv.client, gv.log,
		WithModelName(string(model)),
		WithPrompt(prompt),
	)
}
