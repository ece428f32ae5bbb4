package provider

import (
	"context"
	"errors"
	"time"

	openai_provider "github.com/apantall-runway/ai-chatbot/provider/openai"
)

// Client represents different LLM providers
type Client string

const (
	OpenAI    Client = "openai"
	Anthropic Client = "anthropic"
	Gemini    Client = "gemini"
)

// Provider is the incremental text producer behind summary generation.
// Summarize streams each produced fragment to onDelta as it arrives and
// returns the full concatenated text once the producer signals completion.
type Provider interface {
	Summarize(ctx context.Context, prompt string, onDelta func(delta string) error) (string, error)
}

// Options carries the model configuration a provider client needs.
type Options struct {
	APIKey      string
	Model       string
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
}

// NewProvider creates an LLM client. A missing API key is a configuration
// error and fails here, before any generation is attempted.
func NewProvider(client Client, opts Options) (Provider, error) {
	switch client {
	case OpenAI:
		if opts.APIKey == "" {
			return nil, errors.New("openai api key not configured")
		}
		model := opts.Model
		if model == "" {
			model = "gpt-4o-mini"
		}
		timeout := opts.Timeout
		if timeout == 0 {
			timeout = 60 * time.Second
		}
		return openai_provider.NewOpenAIClient(opts.APIKey, model, opts.Temperature, opts.MaxTokens, timeout), nil
	case Anthropic:
		return nil, errors.New("anthropic client not implemented yet")
	case Gemini:
		return nil, errors.New("gemini client not implemented yet")
	default:
		return nil, errors.New("unsupported LLM provider")
	}
}
