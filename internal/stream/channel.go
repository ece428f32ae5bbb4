package stream

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
)

const subscriberBuffer = 1024

// Channel is the append-only, single-writer event log for one conversation.
// Multiple calls share a channel and are disambiguated by ToolCallID.
// Writes are appends; readers either scan the accumulated log or follow a
// subscription. A subscriber that falls more than subscriberBuffer events
// behind starts dropping; the full log remains available via Events.
type Channel struct {
	conversationID string

	mu      sync.RWMutex
	events  []Event
	seq     map[string]uint64
	subs    map[int]chan Event
	nextSub int

	onPublish func(Event)
	logger    *log.Logger
}

func newChannel(conversationID string, onPublish func(Event), logger *log.Logger) *Channel {
	return &Channel{
		conversationID: conversationID,
		seq:            make(map[string]uint64),
		subs:           make(map[int]chan Event),
		onPublish:      onPublish,
		logger:         logger,
	}
}

// ConversationID returns the conversation this channel belongs to.
func (c *Channel) ConversationID() string { return c.conversationID }

// Publish appends a typed event to the log and fans it out to subscribers.
// The event ID and per-call sequence number are assigned here.
func (c *Channel) Publish(typ string, content Content) Event {
	c.mu.Lock()
	c.seq[content.ToolCallID]++
	ev := Event{
		ID:        uuid.NewString(),
		Seq:       c.seq[content.ToolCallID],
		Type:      typ,
		Content:   content,
		EmittedAt: time.Now().UTC(),
	}
	c.events = append(c.events, ev)
	for id, sub := range c.subs {
		select {
		case sub <- ev:
		default:
			recordSubscriberDrop(context.Background())
			if c.logger != nil {
				c.logger.Printf("conversation %s: subscriber %d lagging, dropped event %s", c.conversationID, id, ev.ID)
			}
		}
	}
	c.mu.Unlock()

	recordEventPublished(context.Background(), typ)
	if c.onPublish != nil {
		c.onPublish(ev)
	}
	return ev
}

// Events returns a copy of the accumulated log.
func (c *Channel) Events() []Event {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Event, len(c.events))
	copy(out, c.events)
	return out
}

// Subscribe returns the log so far plus a live feed of subsequent events.
// The caller must invoke cancel when done.
func (c *Channel) Subscribe() (replay []Event, live <-chan Event, cancel func()) {
	ch := make(chan Event, subscriberBuffer)
	c.mu.Lock()
	replay = make([]Event, len(c.events))
	copy(replay, c.events)
	id := c.nextSub
	c.nextSub++
	c.subs[id] = ch
	c.mu.Unlock()

	cancel = func() {
		c.mu.Lock()
		if sub, ok := c.subs[id]; ok {
			delete(c.subs, id)
			close(sub)
		}
		c.mu.Unlock()
	}
	return replay, ch, cancel
}

// Hub hands out per-conversation channels, creating them on first use.
// When a redis publisher is configured, every published event is mirrored
// to the conversation's redis stream for durability.
type Hub struct {
	mu        sync.Mutex
	channels  map[string]*Channel
	publisher *Publisher
	logger    *log.Logger
}

// NewHub creates a Hub. publisher may be nil when redis is not configured.
func NewHub(publisher *Publisher, logger *log.Logger) *Hub {
	if logger == nil {
		logger = log.New(log.Writer(), "[STREAM] ", log.LstdFlags)
	}
	return &Hub{
		channels:  make(map[string]*Channel),
		publisher: publisher,
		logger:    logger,
	}
}

// Channel returns the event channel for a conversation.
func (h *Hub) Channel(conversationID string) *Channel {
	h.mu.Lock()
	defer h.mu.Unlock()
	if ch, ok := h.channels[conversationID]; ok {
		return ch
	}
	var mirror func(Event)
	if h.publisher != nil {
		pub := h.publisher
		convID := conversationID
		logger := h.logger
		mirror = func(ev Event) {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if _, err := pub.Publish(ctx, convID, ev); err != nil {
				logger.Printf("conversation %s: redis mirror failed: %v", convID, err)
			}
		}
	}
	ch := newChannel(conversationID, mirror, h.logger)
	h.channels[conversationID] = ch
	return ch
}
