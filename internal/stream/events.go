package stream

import (
	"time"
)

// Event types carried on a conversation channel.
const (
	TypeSearchStatus  = "tavily-search-status"
	TypeSearchSources = "tavily-search-sources"
	TypeSummaryDelta  = "tavily-summary-delta"
)

// Status values a call moves through. The last three are terminal.
const (
	StatusSearching   = "Searching..."
	StatusSummarizing = "Summarizing..."
	StatusComplete    = "Complete"
	StatusNoResults   = "No results found."
	StatusError       = "Error occurred during search."
)

// IsTerminal reports whether no further state-affecting events are expected
// for a call once this status has been observed.
func IsTerminal(status string) bool {
	switch status {
	case StatusComplete, StatusNoResults, StatusError:
		return true
	}
	return false
}

// Source is one deduplicated search hit attached to a call. URL is the
// dedup key; first-seen wins within a call.
type Source struct {
	Title   string  `json:"title"`
	URL     string  `json:"url"`
	Content string  `json:"content"`
	Score   float64 `json:"score,omitempty"`
}

// Content is the per-event payload. Field presence depends on the event
// type: status events always carry Status and may carry Sources, Summary
// and Error; sources events carry Sources only; delta events carry Delta
// only. ToolCallID is always present.
type Content struct {
	ToolCallID string   `json:"toolCallId"`
	Status     string   `json:"status,omitempty"`
	Sources    []Source `json:"sources,omitempty"`
	Delta      string   `json:"delta,omitempty"`
	Summary    string   `json:"summary,omitempty"`
	Error      string   `json:"error,omitempty"`
}

// Event is one immutable, append-only message on a conversation channel.
// Seq is assigned by the single writer and increases monotonically per
// call; consumers use it to make replay idempotent under duplicate
// delivery.
type Event struct {
	ID        string    `json:"event_id"`
	Seq       uint64    `json:"seq"`
	Type      string    `json:"type"`
	Content   Content   `json:"content"`
	EmittedAt time.Time `json:"emitted_at"`
}
