package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/apantall-runway/ai-chatbot/internal/search"
	"github.com/apantall-runway/ai-chatbot/internal/stream"
)

// Store persists terminal call results. A reloaded page seeds its reducer
// from these rows instead of replaying intermediate events.
type Store struct {
	DB *sql.DB
}

// ErrNotFound is returned when no terminal result exists for a call.
var ErrNotFound = errors.New("call result not found")

// CallResult is one persisted terminal call state.
type CallResult struct {
	ToolCallID     string          `json:"toolCallId"`
	ConversationID string          `json:"conversation_id"`
	Status         string          `json:"status"`
	Summary        string          `json:"summary"`
	Sources        []stream.Source `json:"sources"`
	Error          string          `json:"error,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
}

// NewWithDSN opens a postgres connection and verifies it.
func NewWithDSN(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &Store{DB: db}, nil
}

// SaveCallResult records a call's terminal state. Terminal results are
// immutable; a repeated save for the same call is a no-op.
func (s *Store) SaveCallResult(ctx context.Context, conversationID string, status string, res search.Result) error {
	sources := res.Sources
	if sources == nil {
		sources = []stream.Source{}
	}
	raw, err := json.Marshal(sources)
	if err != nil {
		return fmt.Errorf("marshal sources: %w", err)
	}
	_, err = s.DB.ExecContext(ctx,
		`INSERT INTO call_results (tool_call_id, conversation_id, status, summary, sources, error, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (tool_call_id) DO NOTHING`,
		res.ToolCallID, conversationID, status, res.Summary, raw, res.Error, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("insert call result: %w", err)
	}
	return nil
}

// GetCallResult loads one terminal call result by its identifier.
func (s *Store) GetCallResult(ctx context.Context, toolCallID string) (CallResult, error) {
	row := s.DB.QueryRowContext(ctx,
		`SELECT tool_call_id, conversation_id, status, summary, sources, error, created_at
		 FROM call_results WHERE tool_call_id = $1`, toolCallID)
	return scanCallResult(row)
}

// ListCallResults returns a conversation's terminal results, oldest first.
func (s *Store) ListCallResults(ctx context.Context, conversationID string) ([]CallResult, error) {
	rows, err := s.DB.QueryContext(ctx,
		`SELECT tool_call_id, conversation_id, status, summary, sources, error, created_at
		 FROM call_results WHERE conversation_id = $1 ORDER BY created_at`, conversationID)
	if err != nil {
		return nil, fmt.Errorf("list call results: %w", err)
	}
	defer rows.Close()
	var out []CallResult
	for rows.Next() {
		cr, err := scanCallResult(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, cr)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCallResult(row rowScanner) (CallResult, error) {
	var cr CallResult
	var raw []byte
	err := row.Scan(&cr.ToolCallID, &cr.ConversationID, &cr.Status, &cr.Summary, &raw, &cr.Error, &cr.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return CallResult{}, ErrNotFound
	}
	if err != nil {
		return CallResult{}, fmt.Errorf("scan call result: %w", err)
	}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &cr.Sources); err != nil {
			return CallResult{}, fmt.Errorf("unmarshal sources: %w", err)
		}
	}
	if cr.Sources == nil {
		cr.Sources = []stream.Source{}
	}
	return cr, nil
}
