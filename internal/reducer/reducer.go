// Package reducer folds a conversation's event log into the displayable
// state of a single call. The fold is pure: feeding the same events in the
// same order always yields the same state, and duplicated events are
// ignored via the writer-assigned sequence numbers, so the reduction is
// safe under at-least-once delivery.
package reducer

import (
	"github.com/apantall-runway/ai-chatbot/internal/stream"
)

// CallState is the renderable state of one call, reconstructed purely from
// the filtered event log (or seeded from a persisted terminal result).
type CallState struct {
	ToolCallID string          `json:"toolCallId"`
	Status     string          `json:"status"`
	Sources    []stream.Source `json:"sources"`
	Summary    string          `json:"summary"`
	Error      string          `json:"error,omitempty"`

	// LastSeq is the highest writer sequence applied so far; events at or
	// below it are duplicates and are dropped.
	LastSeq uint64 `json:"last_seq"`
}

// Seed carries a call's already-terminal persisted result. Supplying it at
// construction is the sole reload recovery path: no intermediate events are
// replayed for a terminated call.
type Seed struct {
	Status  string
	Summary string
	Sources []stream.Source
	Error   string
}

// NewCallState builds the initial state for a call. seed may be nil for a
// live call that will be driven by events.
func NewCallState(toolCallID string, seed *Seed) CallState {
	st := CallState{
		ToolCallID: toolCallID,
		Status:     stream.StatusSearching,
		Sources:    []stream.Source{},
	}
	if seed != nil {
		st.Status = seed.Status
		st.Summary = seed.Summary
		st.Sources = mergeSources(nil, seed.Sources)
		st.Error = seed.Error
	}
	return st
}

// Reduce folds one event into the state. Events for other calls and
// duplicate deliveries leave the state unchanged. Terminal statuses do not
// block later events; any post-terminal event is merged idempotently
// rather than rejected.
func Reduce(state CallState, ev stream.Event) CallState {
	if ev.Content.ToolCallID != state.ToolCallID {
		return state
	}
	if ev.Seq != 0 && ev.Seq <= state.LastSeq {
		return state
	}
	if ev.Seq > state.LastSeq {
		state.LastSeq = ev.Seq
	}

	switch ev.Type {
	case stream.TypeSearchStatus:
		if ev.Content.Status != "" {
			state.Status = ev.Content.Status
		}
		if len(ev.Content.Sources) > 0 {
			state.Sources = mergeSources(state.Sources, ev.Content.Sources)
		}
		if ev.Content.Summary != "" {
			// Status events replace the summary wholesale; only delta
			// events append.
			state.Summary = ev.Content.Summary
		}
		if ev.Content.Error != "" {
			state.Error = ev.Content.Error
		}
	case stream.TypeSearchSources:
		state.Sources = mergeSources(state.Sources, ev.Content.Sources)
	case stream.TypeSummaryDelta:
		state.Summary += ev.Content.Delta
	}
	return state
}

// ReduceAll folds an event log, filtered to the state's call, in arrival
// order.
func ReduceAll(state CallState, events []stream.Event) CallState {
	for _, ev := range events {
		state = Reduce(state, ev)
	}
	return state
}

// mergeSources append-merges incoming sources, deduplicating by url with
// first-seen-wins semantics. The existing slice is never mutated; order is
// first-seen order.
func mergeSources(existing, incoming []stream.Source) []stream.Source {
	out := make([]stream.Source, 0, len(existing)+len(incoming))
	seen := make(map[string]bool, len(existing)+len(incoming))
	for _, s := range existing {
		if s.URL == "" || seen[s.URL] {
			continue
		}
		seen[s.URL] = true
		out = append(out, s)
	}
	for _, s := range incoming {
		if s.URL == "" || seen[s.URL] {
			continue
		}
		seen[s.URL] = true
		out = append(out, s)
	}
	return out
}
