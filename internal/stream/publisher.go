package stream

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Envelope is the canonical wrapper persisted to Redis Streams. It mirrors
// the in-memory Event so a detached reader can reconstruct the same log.
type Envelope struct {
	EventID    string          `json:"event_id"`
	EventType  string          `json:"event_type"`
	CallID     string          `json:"call_id"`
	Seq        uint64          `json:"seq"`
	OccurredAt time.Time       `json:"occurred_at"`
	Data       json.RawMessage `json:"data"`
}

// ValidateBasic ensures mandatory envelope fields are present.
func (e *Envelope) ValidateBasic() error {
	if e.EventID == "" {
		return fmt.Errorf("event_id is required")
	}
	if e.EventType == "" {
		return fmt.Errorf("event_type is required")
	}
	if e.CallID == "" {
		return fmt.Errorf("call_id is required")
	}
	if e.OccurredAt.IsZero() {
		e.OccurredAt = time.Now().UTC()
	}
	if len(e.Data) == 0 {
		return fmt.Errorf("data payload is required")
	}
	return nil
}

// Marshal returns the JSON encoding of the envelope.
func (e *Envelope) Marshal() ([]byte, error) {
	if err := e.ValidateBasic(); err != nil {
		return nil, err
	}
	return json.Marshal(e)
}

// UnmarshalEnvelope parses JSON bytes into an Envelope and validates
// required fields.
func UnmarshalEnvelope(b []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(b, &env); err != nil {
		return env, fmt.Errorf("unmarshal envelope: %w", err)
	}
	if err := env.ValidateBasic(); err != nil {
		return env, err
	}
	return env, nil
}

// EnvelopeFromEvent wraps a channel event for stream persistence.
func EnvelopeFromEvent(ev Event) (Envelope, error) {
	data, err := json.Marshal(ev.Content)
	if err != nil {
		return Envelope{}, fmt.Errorf("marshal event content: %w", err)
	}
	return Envelope{
		EventID:    ev.ID,
		EventType:  ev.Type,
		CallID:     ev.Content.ToolCallID,
		Seq:        ev.Seq,
		OccurredAt: ev.EmittedAt,
		Data:       data,
	}, nil
}

// StreamKey names the redis stream holding a conversation's events.
func StreamKey(conversationID string) string {
	return "chat:events:" + conversationID
}

// Publisher mirrors channel events to Redis Streams.
type Publisher struct {
	client *redis.Client
	maxLen int64
}

// PublishOption allows configuring XADD behaviour.
type PublishOption func(*redis.XAddArgs)

// WithMaxLenApprox sets an approximate max length for the stream.
func WithMaxLenApprox(maxLen int64) PublishOption {
	return func(args *redis.XAddArgs) {
		if maxLen > 0 {
			args.MaxLen = maxLen
			args.Approx = true
		}
	}
}

// NewPublisher creates a Publisher instance.
func NewPublisher(client *redis.Client, maxLen int64) *Publisher {
	return &Publisher{client: client, maxLen: maxLen}
}

// Publish wraps the event in an envelope and appends it to the
// conversation's stream.
func (p *Publisher) Publish(ctx context.Context, conversationID string, ev Event, opts ...PublishOption) (string, error) {
	if conversationID == "" {
		return "", fmt.Errorf("conversation id is required")
	}
	env, err := EnvelopeFromEvent(ev)
	if err != nil {
		return "", err
	}
	raw, err := env.Marshal()
	if err != nil {
		return "", err
	}

	args := &redis.XAddArgs{
		Stream: StreamKey(conversationID),
		Values: map[string]interface{}{"envelope": raw},
	}
	if p.maxLen > 0 {
		args.MaxLen = p.maxLen
		args.Approx = true
	}
	for _, opt := range opts {
		opt(args)
	}

	id, err := p.client.XAdd(ctx, args).Result()
	if err != nil {
		return "", fmt.Errorf("xadd: %w", err)
	}
	return id, nil
}
