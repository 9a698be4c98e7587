package reasoning

import (
	"context"
	"errors"
	"fmt"

	"github.com/sashabaranov/go-openai"
	"github.com/tmc/langchaingo/llms"
	lcopenai "github.com/tmc/langchaingo/llms/openai"
)

const (
	DefaultModel               = "gpt-4o-mini"
	DefaultRecommendationModel = "gpt-4"
)

var (
	ErrMissingAPIKey   = errors.New("OpenAI API key is required")
	ErrEmptyCompletion = errors.New("completion returned no choices")
)

// Completer turns a free-text prompt into free text. It is the only thing the
// simulation knows about the text-generation endpoint.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// CompleterFunc adapts a function into a Completer.
type CompleterFunc func(ctx context.Context, prompt string) (string, error)

// Complete calls f.
func (f CompleterFunc) Complete(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

// OpenAICompleter talks to the chat completions API through go-openai
type OpenAICompleter struct {
	client      *openai.Client
	model       string
	temperature float32
}

// OpenAIOptions configures an OpenAICompleter
type OpenAIOptions struct {
	APIKey      string
	Model       string
	BaseURL     string
	Temperature float32
}

// NewOpenAICompleter creates a chat completion client for one model
func NewOpenAICompleter(opts OpenAIOptions) (*OpenAICompleter, error) {
	if opts.APIKey == "" {
		return nil, ErrMissingAPIKey
	}
	if opts.Model == "" {
		opts.Model = DefaultModel
	}

	cfg := openai.DefaultConfig(opts.APIKey)
	if opts.BaseURL != "" {
		cfg.BaseURL = opts.BaseURL
	}

	return &OpenAICompleter{
		client:      openai.NewClientWithConfig(cfg),
		model:       opts.Model,
		temperature: opts.Temperature,
	}, nil
}

// Complete sends the prompt as a single user message
func (c *OpenAICompleter) Complete(ctx context.Context, prompt string) (string, error) {
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleUser,
				Content: prompt,
			},
		},
		Temperature: c.temperature,
	})
	if err != nil {
		return "", fmt.Errorf("chat completion with %s failed: %w", c.model, err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyCompletion
	}
	return resp.Choices[0].Message.Content, nil
}

// LangChainCompleter drives any langchaingo LLM
type LangChainCompleter struct {
	llm llms.LLM
}

// NewLangChainCompleter builds a langchaingo OpenAI model
func NewLangChainCompleter(opts OpenAIOptions) (*LangChainCompleter, error) {
	if opts.APIKey == "" {
		return nil, ErrMissingAPIKey
	}
	if opts.Model == "" {
		opts.Model = DefaultModel
	}

	lcOpts := []lcopenai.Option{
		lcopenai.WithToken(opts.APIKey),
		lcopenai.WithModel(opts.Model),
	}
	if opts.BaseURL != "" {
		lcOpts = append(lcOpts, lcopenai.WithBaseURL(opts.BaseURL))
	}

	llm, err := lcopenai.New(lcOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create LLM: %w", err)
	}
	return &LangChainCompleter{llm: llm}, nil
}

// NewLangChainCompleterFromModel wraps an existing langchaingo LLM
func NewLangChainCompleterFromModel(m llms.LLM) *LangChainCompleter {
	return &LangChainCompleter{llm: m}
}

// Complete generates a single completion for the prompt
func (c *LangChainCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	completion, err := c.llm.Call(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("failed to generate completion: %w", err)
	}
	return completion, nil
}
