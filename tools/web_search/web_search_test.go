package web_search

import (
	"errors"
	"testing"
)

func TestNewWebSearcherMissingKey(t *testing.T) {
	if _, err := NewWebSearcher(TavilyProvider, "", Options{}); !errors.Is(err, ErrMissingAPIKey) {
		t.Fatalf("expected ErrMissingAPIKey, got %v", err)
	}
}

func TestNewWebSearcherUnsupported(t *testing.T) {
	if _, err := NewWebSearcher(Provider("altavista"), "key", Options{}); !errors.Is(err, ErrUnsupportedProvider) {
		t.Fatalf("expected ErrUnsupportedProvider, got %v", err)
	}
}

func TestNewWebSearcherProviders(t *testing.T) {
	for _, p := range []Provider{TavilyProvider, BraveProvider, SerperProvider} {
		if _, err := NewWebSearcher(p, "key", Options{}); err != nil {
			t.Fatalf("provider %s: %v", p, err)
		}
	}
}
