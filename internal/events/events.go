// Package events records one audit event per moderation request for
// moderator tooling. The pipeline never depends on the sink succeeding: a
// failed write is logged and the verdict is returned regardless.
package events

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/beatguard/pkg/models"
)

// ModerationEvent is the audit record for one pipeline run
type ModerationEvent struct {
	RequestID           string                     `json:"request_id"`
	AuthorID            string                     `json:"author_id"`
	Kind                models.ContentKind         `json:"content_kind"`
	Approved            bool                       `json:"approved"`
	Confidence          float64                    `json:"confidence"`
	Violations          []models.ViolationCategory `json:"violations"`
	Masked              bool                       `json:"masked"`
	RequiresHumanReview bool                       `json:"requires_human_review"`
	BotTrigger          models.TriggerReason       `json:"bot_trigger"`
	CreatedAt           time.Time                  `json:"created_at"`
}

// Sink receives audit events
type Sink interface {
	Record(ctx context.Context, event *ModerationEvent) error
}

// LogSink writes events to the structured log. It is the default sink when
// no database is configured.
type LogSink struct {
	log zerolog.Logger
}

// NewLogSink creates a log-backed sink
func NewLogSink(log zerolog.Logger) *LogSink {
	return &LogSink{log: log}
}

// Record logs the event at info level
func (s *LogSink) Record(_ context.Context, event *ModerationEvent) error {
	violations := make([]string, 0, len(event.Violations))
	for _, v := range event.Violations {
		violations = append(violations, string(v))
	}
	s.log.Info().
		Str("request_id", event.RequestID).
		Str("author_id", event.AuthorID).
		Str("content_kind", string(event.Kind)).
		Bool("approved", event.Approved).
		Float64("confidence", event.Confidence).
		Strs("violations", violations).
		Bool("masked", event.Masked).
		Bool("requires_human_review", event.RequiresHumanReview).
		Str("bot_trigger", string(event.BotTrigger)).
		Msg("moderation event")
	return nil
}
