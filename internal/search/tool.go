package search

import (
	"context"
	"errors"
	"log"
	"sync"

	"github.com/google/uuid"

	"github.com/apantall-runway/ai-chatbot/internal/stream"
	"github.com/apantall-runway/ai-chatbot/provider"
	"github.com/apantall-runway/ai-chatbot/tools/web_search"
	"github.com/apantall-runway/ai-chatbot/tools/web_search/models"
)

const (
	// MaxResultsPerQuery caps how many hits a single sub-query may
	// contribute to a call's source set.
	MaxResultsPerQuery = 5

	// PersistedContentLimit truncates source content in the returned
	// (persisted) result; the full content still reaches the summarizer.
	PersistedContentLimit = 150

	noResultsSummary = "No relevant search results found."
)

// ErrEmptyQueryBatch rejects an invocation with no queries before any event
// is emitted.
var ErrEmptyQueryBatch = errors.New("query batch must contain at least one query")

// Result is the value returned to the surrounding chat turn and persisted
// as the call's terminal state.
type Result struct {
	ToolCallID string          `json:"toolCallId"`
	Summary    string          `json:"summary"`
	Sources    []stream.Source `json:"sources"`
	Error      string          `json:"error,omitempty"`
}

// ResultSink persists a call's terminal state. Implemented by the store.
type ResultSink interface {
	SaveCallResult(ctx context.Context, conversationID string, status string, res Result) error
}

// Tool runs the search-and-summarize operation: it fans sub-queries out to
// the search provider, merges the deduplicated hits, and streams progress
// to the conversation channel while the summary is generated.
type Tool struct {
	searcher web_search.WebSearcher
	llm      provider.Provider
	hub      *stream.Hub
	sink     ResultSink
	logger   *log.Logger
}

// NewTool wires a Tool. sink may be nil when terminal-result persistence is
// not configured.
func NewTool(searcher web_search.WebSearcher, llm provider.Provider, hub *stream.Hub, sink ResultSink, logger *log.Logger) *Tool {
	if logger == nil {
		logger = log.New(log.Writer(), "[SEARCH] ", log.LstdFlags)
	}
	return &Tool{searcher: searcher, llm: llm, hub: hub, sink: sink, logger: logger}
}

type queryOutcome struct {
	query   string
	results []models.Result
}

// Run executes one call for the given query batch. Per-query provider
// failures degrade to empty results and never abort the batch; the call
// always terminates in exactly one terminal status. The returned error is
// non-nil only for invalid input, never for a search or summary failure —
// those surface through the Error status and the error-flagged Result.
func (t *Tool) Run(ctx context.Context, conversationID string, queries []string) (Result, error) {
	if len(queries) == 0 {
		return Result{}, ErrEmptyQueryBatch
	}

	ch := t.hub.Channel(conversationID)
	callID := uuid.NewString()

	ch.Publish(stream.TypeSearchStatus, stream.Content{
		ToolCallID: callID,
		Status:     stream.StatusSearching,
		Sources:    []stream.Source{},
	})

	// Fan-out: one goroutine per sub-query, joined on an all-complete
	// barrier. Merged batches are emitted in completion order, not
	// submission order.
	outcomes := make(chan queryOutcome, len(queries))
	var wg sync.WaitGroup
	for _, q := range queries {
		wg.Add(1)
		go func(q string) {
			defer wg.Done()
			results, err := t.searcher.Search(ctx, q, MaxResultsPerQuery)
			stream.RecordSearchQuery(ctx, err != nil)
			if err != nil {
				// Absorbed: a failed sub-query contributes an empty
				// result, indistinguishable from a true empty answer.
				t.logger.Printf("call %s: query %q failed: %v", callID, q, err)
				outcomes <- queryOutcome{query: q}
				return
			}
			outcomes <- queryOutcome{query: q, results: results}
		}(q)
	}
	go func() {
		wg.Wait()
		close(outcomes)
	}()

	var sources []stream.Source
	seen := make(map[string]bool)
	for out := range outcomes {
		var batch []stream.Source
		for i, r := range out.results {
			if i >= MaxResultsPerQuery {
				break
			}
			if r.URL == "" || seen[r.URL] {
				continue
			}
			seen[r.URL] = true
			src := stream.Source{Title: r.Title, URL: r.URL, Content: r.Content, Score: r.Score}
			sources = append(sources, src)
			batch = append(batch, src)
		}
		if len(batch) > 0 {
			ch.Publish(stream.TypeSearchSources, stream.Content{
				ToolCallID: callID,
				Sources:    batch,
			})
		}
	}

	if len(sources) == 0 {
		ch.Publish(stream.TypeSearchStatus, stream.Content{
			ToolCallID: callID,
			Status:     stream.StatusNoResults,
			Sources:    []stream.Source{},
		})
		res := Result{ToolCallID: callID, Summary: noResultsSummary, Sources: []stream.Source{}}
		t.persist(ctx, conversationID, stream.StatusNoResults, res)
		return res, nil
	}

	ch.Publish(stream.TypeSearchStatus, stream.Content{
		ToolCallID: callID,
		Status:     stream.StatusSummarizing,
		Sources:    sources,
	})

	prompt := BuildSummaryPrompt(queries, sources)
	summary, err := t.llm.Summarize(ctx, prompt, func(delta string) error {
		ch.Publish(stream.TypeSummaryDelta, stream.Content{
			ToolCallID: callID,
			Delta:      delta,
		})
		return nil
	})
	if err != nil {
		t.logger.Printf("call %s: summary generation failed: %v", callID, err)
		ch.Publish(stream.TypeSearchStatus, stream.Content{
			ToolCallID: callID,
			Status:     stream.StatusError,
			Error:      err.Error(),
		})
		res := Result{
			ToolCallID: callID,
			Summary:    "An error occurred while searching.",
			Sources:    []stream.Source{},
			Error:      err.Error(),
		}
		t.persist(ctx, conversationID, stream.StatusError, res)
		return res, nil
	}

	ch.Publish(stream.TypeSearchStatus, stream.Content{
		ToolCallID: callID,
		Status:     stream.StatusComplete,
		Sources:    sources,
		Summary:    summary,
	})
	res := Result{ToolCallID: callID, Summary: summary, Sources: truncateContent(sources, PersistedContentLimit)}
	t.persist(ctx, conversationID, stream.StatusComplete, res)
	return res, nil
}

func (t *Tool) persist(ctx context.Context, conversationID, status string, res Result) {
	if t.sink == nil {
		return
	}
	if err := t.sink.SaveCallResult(ctx, conversationID, status, res); err != nil {
		t.logger.Printf("call %s: persist terminal result: %v", res.ToolCallID, err)
	}
}

func truncateContent(sources []stream.Source, limit int) []stream.Source {
	out := make([]stream.Source, len(sources))
	for i, s := range sources {
		if len(s.Content) > limit {
			s.Content = s.Content[:limit] + "..."
		}
		out[i] = s
	}
	return out
}
