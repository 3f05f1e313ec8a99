package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Schema for the audit table. Applied with CREATE IF NOT EXISTS on startup;
// the table is append-only and read by moderator tooling.
const schema = `
CREATE TABLE IF NOT EXISTS moderation_events (
	id BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
	request_id TEXT NOT NULL,
	author_id TEXT NOT NULL,
	content_kind TEXT NOT NULL,
	approved BOOLEAN NOT NULL,
	confidence DOUBLE PRECISION NOT NULL,
	violations JSONB NOT NULL DEFAULT '[]',
	masked BOOLEAN NOT NULL DEFAULT FALSE,
	requires_human_review BOOLEAN NOT NULL DEFAULT FALSE,
	bot_trigger TEXT NOT NULL DEFAULT 'none',
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// PostgresSink persists audit events with pgx
type PostgresSink struct {
	pool *pgxpool.Pool
}

// NewPostgresSink creates a sink on an existing connection pool and ensures
// the audit table exists.
func NewPostgresSink(ctx context.Context, pool *pgxpool.Pool) (*PostgresSink, error) {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return nil, fmt.Errorf("failed to ensure moderation_events table: %w", err)
	}
	return &PostgresSink{pool: pool}, nil
}

// Record inserts one audit event
func (s *PostgresSink) Record(ctx context.Context, event *ModerationEvent) error {
	violations, err := json.Marshal(event.Violations)
	if err != nil {
		return fmt.Errorf("failed to marshal violations: %w", err)
	}

	query := `
		INSERT INTO moderation_events
			(request_id, author_id, content_kind, approved, confidence, violations, masked, requires_human_review, bot_trigger, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err = s.pool.Exec(ctx, query,
		event.RequestID,
		event.AuthorID,
		string(event.Kind),
		event.Approved,
		event.Confidence,
		violations,
		event.Masked,
		event.RequiresHumanReview,
		string(event.BotTrigger),
		event.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert moderation event: %w", err)
	}
	return nil
}
