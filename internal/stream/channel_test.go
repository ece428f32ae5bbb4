package stream

import (
	"testing"
	"time"
)

func TestPublishAssignsPerCallSequence(t *testing.T) {
	hub := NewHub(nil, nil)
	ch := hub.Channel("conv-1")

	a1 := ch.Publish(TypeSearchStatus, Content{ToolCallID: "call-a", Status: StatusSearching})
	b1 := ch.Publish(TypeSearchStatus, Content{ToolCallID: "call-b", Status: StatusSearching})
	a2 := ch.Publish(TypeSummaryDelta, Content{ToolCallID: "call-a", Delta: "x"})

	if a1.Seq != 1 || a2.Seq != 2 {
		t.Fatalf("call-a sequence wrong: %d then %d", a1.Seq, a2.Seq)
	}
	if b1.Seq != 1 {
		t.Fatalf("call-b must have its own sequence, got %d", b1.Seq)
	}
	if a1.ID == "" || a1.ID == a2.ID {
		t.Fatalf("event ids must be unique, got %q and %q", a1.ID, a2.ID)
	}
}

func TestSubscribeReplaysAndFollows(t *testing.T) {
	hub := NewHub(nil, nil)
	ch := hub.Channel("conv-1")
	ch.Publish(TypeSearchStatus, Content{ToolCallID: "call-a", Status: StatusSearching})

	replay, live, cancel := ch.Subscribe()
	defer cancel()
	if len(replay) != 1 {
		t.Fatalf("expected 1 replayed event, got %d", len(replay))
	}

	published := ch.Publish(TypeSummaryDelta, Content{ToolCallID: "call-a", Delta: "hi"})
	select {
	case got := <-live:
		if got.ID != published.ID {
			t.Fatalf("live event mismatch: %q vs %q", got.ID, published.ID)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for live event")
	}
}

func TestSubscribeCancelStopsDelivery(t *testing.T) {
	hub := NewHub(nil, nil)
	ch := hub.Channel("conv-1")
	_, live, cancel := ch.Subscribe()
	cancel()
	if _, ok := <-live; ok {
		t.Fatal("expected closed subscription channel")
	}
	// Publishing after cancel must not panic or block.
	ch.Publish(TypeSearchStatus, Content{ToolCallID: "call-a", Status: StatusSearching})
}

func TestHubReturnsSameChannelPerConversation(t *testing.T) {
	hub := NewHub(nil, nil)
	if hub.Channel("conv-1") != hub.Channel("conv-1") {
		t.Fatal("same conversation must map to the same channel")
	}
	if hub.Channel("conv-1") == hub.Channel("conv-2") {
		t.Fatal("different conversations must not share a channel")
	}
}

func TestEventsReturnsCopy(t *testing.T) {
	hub := NewHub(nil, nil)
	ch := hub.Channel("conv-1")
	ch.Publish(TypeSearchStatus, Content{ToolCallID: "call-a", Status: StatusSearching})
	events := ch.Events()
	events[0].Type = "mutated"
	if ch.Events()[0].Type != TypeSearchStatus {
		t.Fatal("Events must return a copy of the log")
	}
}

func TestIsTerminal(t *testing.T) {
	for _, s := range []string{StatusComplete, StatusNoResults, StatusError} {
		if !IsTerminal(s) {
			t.Fatalf("%q should be terminal", s)
		}
	}
	for _, s := range []string{StatusSearching, StatusSummarizing, ""} {
		if IsTerminal(s) {
			t.Fatalf("%q should not be terminal", s)
		}
	}
}
