package tavily

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/apantall-runway/ai-chatbot/tools/web_search/models"
)

const defaultEndpoint = "https://api.tavily.com/search"

type Search struct {
	ApiKey      string
	Endpoint    string
	SearchDepth string
}

func (s Search) Search(ctx context.Context, q string, k int) ([]models.Result, error) {
	// https://docs.tavily.com/docs/rest-api/api-reference
	endpoint := s.Endpoint
	if endpoint == "" {
		endpoint = defaultEndpoint
	}
	depth := s.SearchDepth
	if depth == "" {
		depth = "basic"
	}
	payload := map[string]any{
		"api_key":        s.ApiKey,
		"query":          q,
		"search_depth":   depth,
		"include_answer": false,
		"max_results":    k,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, "POST", endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("tavily: status %d", resp.StatusCode)
	}
	var raw struct {
		Query        string  `json:"query"`
		ResponseTime float64 `json:"response_time"`
		Results      []struct {
			Title   string  `json:"title"`
			URL     string  `json:"url"`
			Content string  `json:"content"`
			Score   float64 `json:"score"`
		} `json:"results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, err
	}
	var out []models.Result
	for i, r := range raw.Results {
		if i >= k {
			break
		}
		out = append(out, models.Result{Title: r.Title, URL: r.URL, Content: r.Content, Score: r.Score})
	}
	return out, nil
}
