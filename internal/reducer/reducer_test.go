package reducer

import (
	"strings"
	"testing"

	"github.com/apantall-runway/ai-chatbot/internal/stream"
)

func statusEvent(callID string, seq uint64, status string, sources []stream.Source, summary, errMsg string) stream.Event {
	return stream.Event{
		Seq:  seq,
		Type: stream.TypeSearchStatus,
		Content: stream.Content{
			ToolCallID: callID,
			Status:     status,
			Sources:    sources,
			Summary:    summary,
			Error:      errMsg,
		},
	}
}

func sourcesEvent(callID string, seq uint64, sources []stream.Source) stream.Event {
	return stream.Event{
		Seq:     seq,
		Type:    stream.TypeSearchSources,
		Content: stream.Content{ToolCallID: callID, Sources: sources},
	}
}

func deltaEvent(callID string, seq uint64, delta string) stream.Event {
	return stream.Event{
		Seq:     seq,
		Type:    stream.TypeSummaryDelta,
		Content: stream.Content{ToolCallID: callID, Delta: delta},
	}
}

func TestReduceDedupKeepsFirstSeen(t *testing.T) {
	st := NewCallState("call-1", nil)
	st = Reduce(st, sourcesEvent("call-1", 1, []stream.Source{
		{Title: "first", URL: "https://a.example", Content: "alpha"},
		{Title: "other", URL: "https://b.example", Content: "beta"},
	}))
	st = Reduce(st, sourcesEvent("call-1", 2, []stream.Source{
		{Title: "second", URL: "https://a.example", Content: "gamma"},
	}))
	st = Reduce(st, statusEvent("call-1", 3, stream.StatusSummarizing, []stream.Source{
		{Title: "third", URL: "https://a.example", Content: "delta"},
		{Title: "new", URL: "https://c.example", Content: "epsilon"},
	}, "", ""))

	if len(st.Sources) != 3 {
		t.Fatalf("expected 3 deduplicated sources, got %d", len(st.Sources))
	}
	if st.Sources[0].Title != "first" || st.Sources[0].Content != "alpha" {
		t.Fatalf("first-seen record not preserved: %+v", st.Sources[0])
	}
	if st.Sources[0].URL != "https://a.example" || st.Sources[1].URL != "https://b.example" || st.Sources[2].URL != "https://c.example" {
		t.Fatalf("unexpected source order: %+v", st.Sources)
	}
}

func TestReduceIdempotentReplay(t *testing.T) {
	events := []stream.Event{
		statusEvent("call-1", 1, stream.StatusSearching, nil, "", ""),
		sourcesEvent("call-1", 2, []stream.Source{{Title: "a", URL: "https://a.example"}}),
		statusEvent("call-1", 3, stream.StatusSummarizing, []stream.Source{{Title: "a", URL: "https://a.example"}}, "", ""),
		deltaEvent("call-1", 4, "hello "),
		deltaEvent("call-1", 5, "world"),
	}

	once := ReduceAll(NewCallState("call-1", nil), events)

	twice := NewCallState("call-1", nil)
	for _, ev := range events {
		twice = Reduce(twice, ev)
		twice = Reduce(twice, ev) // duplicate delivery
	}

	if once.Summary != twice.Summary {
		t.Fatalf("summary diverged under replay: %q vs %q", once.Summary, twice.Summary)
	}
	if len(once.Sources) != len(twice.Sources) {
		t.Fatalf("sources diverged under replay: %d vs %d", len(once.Sources), len(twice.Sources))
	}
	if once.Status != twice.Status {
		t.Fatalf("status diverged under replay: %q vs %q", once.Status, twice.Status)
	}
	if once.Summary != "hello world" {
		t.Fatalf("expected accumulated summary, got %q", once.Summary)
	}
}

func TestReduceSummaryAccumulationMatchesTerminal(t *testing.T) {
	fragments := []string{"The ", "answer ", "is ", "42."}
	st := NewCallState("call-1", nil)
	var seq uint64 = 1
	st = Reduce(st, statusEvent("call-1", seq, stream.StatusSummarizing, nil, "", ""))
	for _, f := range fragments {
		seq++
		st = Reduce(st, deltaEvent("call-1", seq, f))
	}
	full := strings.Join(fragments, "")
	if st.Summary != full {
		t.Fatalf("accumulated %q, want %q", st.Summary, full)
	}

	seq++
	st = Reduce(st, statusEvent("call-1", seq, stream.StatusComplete, nil, full, ""))
	if st.Summary != full {
		t.Fatalf("terminal overwrite changed summary: %q", st.Summary)
	}
	if st.Status != stream.StatusComplete {
		t.Fatalf("expected Complete, got %q", st.Status)
	}
}

func TestReduceStatusOverwritesSummary(t *testing.T) {
	st := NewCallState("call-1", nil)
	st = Reduce(st, deltaEvent("call-1", 1, "partial text"))
	st = Reduce(st, statusEvent("call-1", 2, stream.StatusComplete, nil, "final text", ""))
	if st.Summary != "final text" {
		t.Fatalf("status summary must overwrite, got %q", st.Summary)
	}
}

func TestReduceIgnoresOtherCalls(t *testing.T) {
	st := NewCallState("call-1", nil)
	st = Reduce(st, deltaEvent("call-2", 1, "noise"))
	st = Reduce(st, sourcesEvent("call-2", 2, []stream.Source{{URL: "https://x.example"}}))
	if st.Summary != "" || len(st.Sources) != 0 {
		t.Fatalf("events of another call leaked into state: %+v", st)
	}
}

func TestReduceErrorStatus(t *testing.T) {
	st := NewCallState("call-1", nil)
	st = Reduce(st, statusEvent("call-1", 1, stream.StatusError, nil, "", "provider exploded"))
	if st.Status != stream.StatusError {
		t.Fatalf("expected error status, got %q", st.Status)
	}
	if st.Error != "provider exploded" {
		t.Fatalf("expected error message, got %q", st.Error)
	}
}

func TestReducePostTerminalEventsMergeDefensively(t *testing.T) {
	st := NewCallState("call-1", nil)
	st = Reduce(st, statusEvent("call-1", 1, stream.StatusComplete, []stream.Source{{URL: "https://a.example"}}, "done", ""))
	st = Reduce(st, sourcesEvent("call-1", 2, []stream.Source{
		{URL: "https://a.example"},
		{URL: "https://b.example"},
	}))
	if len(st.Sources) != 2 {
		t.Fatalf("post-terminal merge should dedup, got %d sources", len(st.Sources))
	}
	if st.Status != stream.StatusComplete {
		t.Fatalf("post-terminal sources event changed status: %q", st.Status)
	}
}

func TestNewCallStateSeedsFromPersistedResult(t *testing.T) {
	seed := &Seed{
		Status:  stream.StatusComplete,
		Summary: "persisted summary",
		Sources: []stream.Source{{Title: "a", URL: "https://a.example"}},
	}
	st := NewCallState("call-1", seed)
	if st.Status != stream.StatusComplete {
		t.Fatalf("expected seeded status, got %q", st.Status)
	}
	if st.Summary != "persisted summary" {
		t.Fatalf("expected seeded summary, got %q", st.Summary)
	}
	if len(st.Sources) != 1 {
		t.Fatalf("expected seeded sources, got %d", len(st.Sources))
	}
}

func TestNewCallStateDefaults(t *testing.T) {
	st := NewCallState("call-1", nil)
	if st.Status != stream.StatusSearching {
		t.Fatalf("initial status must be Searching, got %q", st.Status)
	}
	if st.Sources == nil || len(st.Sources) != 0 {
		t.Fatalf("initial sources must be empty, got %v", st.Sources)
	}
	if st.Summary != "" || st.Error != "" {
		t.Fatalf("initial summary/error must be empty")
	}
}
