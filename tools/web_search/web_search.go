package web_search

import (
	"context"
	"errors"

	"github.com/apantall-runway/ai-chatbot/tools/web_search/brave"
	"github.com/apantall-runway/ai-chatbot/tools/web_search/models"
	"github.com/apantall-runway/ai-chatbot/tools/web_search/serper"
	"github.com/apantall-runway/ai-chatbot/tools/web_search/tavily"
)

// WebSearcher issues one search request per query string.
type WebSearcher interface {
	Search(ctx context.Context, q string, k int) ([]models.Result, error)
}

type Provider string

const (
	TavilyProvider Provider = "tavily"
	SerperProvider Provider = "serper"
	BraveProvider  Provider = "brave"
)

var (
	ErrUnsupportedProvider = errors.New("unsupported search provider")
	ErrMissingAPIKey       = errors.New("search provider api key not configured")
)

// Options carries provider-specific knobs; zero values mean provider defaults.
type Options struct {
	Endpoint    string
	SearchDepth string
}

// NewWebSearcher builds a searcher for the given provider. A missing API key
// is a configuration error and fails here, before any search is attempted.
func NewWebSearcher(provider Provider, apiKey string, opts Options) (WebSearcher, error) {
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}
	switch provider {
	case TavilyProvider:
		return tavily.Search{ApiKey: apiKey, Endpoint: opts.Endpoint, SearchDepth: opts.SearchDepth}, nil
	case SerperProvider:
		return serper.Search{ApiKey: apiKey}, nil
	case BraveProvider:
		return brave.Search{ApiKey: apiKey}, nil
	default:
		return nil, ErrUnsupportedProvider
	}
}
