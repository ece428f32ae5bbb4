package tavily

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestSearchParsesResults(t *testing.T) {
	var gotBody map[string]any
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode request: %v", err)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"query":         "golang",
			"response_time": 0.42,
			"results": []map[string]any{
				{"title": "Go", "url": "https://go.dev", "content": "the go programming language", "score": 0.99},
				{"title": "Wiki", "url": "https://en.wikipedia.org/wiki/Go", "content": "go wiki", "score": 0.71},
			},
		})
	}))
	defer ts.Close()

	s := Search{ApiKey: "key-1", Endpoint: ts.URL}
	results, err := s.Search(context.Background(), "golang", 5)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].URL != "https://go.dev" || results[0].Score != 0.99 {
		t.Fatalf("unexpected first result: %+v", results[0])
	}

	if gotBody["api_key"] != "key-1" {
		t.Fatalf("api_key not sent: %v", gotBody)
	}
	if gotBody["include_answer"] != false {
		t.Fatalf("include_answer must be false: %v", gotBody)
	}
	if gotBody["max_results"] != float64(5) {
		t.Fatalf("max_results must be 5: %v", gotBody)
	}
	if gotBody["search_depth"] != "basic" {
		t.Fatalf("search_depth default must be basic: %v", gotBody)
	}
}

func TestSearchCapsResults(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		results := make([]map[string]any, 8)
		for i := range results {
			results[i] = map[string]any{"title": "t", "url": "https://example.com", "content": "c", "score": 0.5}
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"query": "q", "results": results})
	}))
	defer ts.Close()

	s := Search{ApiKey: "key-1", Endpoint: ts.URL}
	results, err := s.Search(context.Background(), "q", 5)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 5 {
		t.Fatalf("expected cap of 5, got %d", len(results))
	}
}

func TestSearchNonSuccessStatus(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "too many requests", http.StatusTooManyRequests)
	}))
	defer ts.Close()

	s := Search{ApiKey: "key-1", Endpoint: ts.URL}
	if _, err := s.Search(context.Background(), "q", 5); err == nil {
		t.Fatal("expected error for non-200 status")
	}
}
