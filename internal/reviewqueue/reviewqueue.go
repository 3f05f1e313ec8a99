// Package reviewqueue escalates verdicts that need a human moderator. Jobs
// go through a River queue backed by the same Postgres instance as the
// audit sink, so escalations survive process restarts and retries are
// handled by the queue rather than the pipeline.
package reviewqueue

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
	"github.com/rs/zerolog"

	"github.com/beatguard/pkg/models"
)

const queueTableSchema = `
CREATE TABLE IF NOT EXISTS human_review_queue (
	id BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
	request_id TEXT NOT NULL UNIQUE,
	author_id TEXT NOT NULL,
	content_kind TEXT NOT NULL,
	content TEXT NOT NULL,
	violations TEXT[] NOT NULL DEFAULT '{}',
	confidence DOUBLE PRECISION NOT NULL,
	status TEXT NOT NULL DEFAULT 'pending',
	enqueued_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// HumanReviewArgs are the job arguments for one escalation
type HumanReviewArgs struct {
	RequestID  string   `json:"request_id"`
	AuthorID   string   `json:"author_id"`
	ContentKind string  `json:"content_kind"`
	Content    string   `json:"content"`
	Violations []string `json:"violations"`
	Confidence float64  `json:"confidence"`
}

// Kind returns the job kind for River
func (HumanReviewArgs) Kind() string {
	return "human_review"
}

// HumanReviewWorker lands escalations in the moderator queue table
type HumanReviewWorker struct {
	river.WorkerDefaults[HumanReviewArgs]
	pool *pgxpool.Pool
	log  zerolog.Logger
}

// Work inserts the escalation. Duplicate request IDs are ignored: one
// escalation per request regardless of queue retries.
func (w *HumanReviewWorker) Work(ctx context.Context, job *river.Job[HumanReviewArgs]) error {
	args := job.Args

	query := `
		INSERT INTO human_review_queue
			(request_id, author_id, content_kind, content, violations, confidence, enqueued_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (request_id) DO NOTHING
	`
	_, err := w.pool.Exec(ctx, query,
		args.RequestID,
		args.AuthorID,
		args.ContentKind,
		args.Content,
		args.Violations,
		args.Confidence,
		time.Now(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert human review entry: %w", err)
	}

	w.log.Info().Str("request_id", args.RequestID).Strs("violations", args.Violations).
		Msg("escalated to human review queue")
	return nil
}

// Queue manages the River client for human-review jobs
type Queue struct {
	client *river.Client[pgx.Tx]
	pool   *pgxpool.Pool
	log    zerolog.Logger
}

// NewQueue creates the queue on an existing pool and ensures the moderator
// table exists. River's own schema must already be migrated.
func NewQueue(ctx context.Context, pool *pgxpool.Pool, maxWorkers int, log zerolog.Logger) (*Queue, error) {
	if maxWorkers <= 0 {
		maxWorkers = 4
	}

	if _, err := pool.Exec(ctx, queueTableSchema); err != nil {
		return nil, fmt.Errorf("failed to ensure human_review_queue table: %w", err)
	}

	workers := river.NewWorkers()
	river.AddWorker(workers, &HumanReviewWorker{pool: pool, log: log})

	client, err := river.NewClient(riverpgxv5.New(pool), &river.Config{
		Queues: map[string]river.QueueConfig{
			river.QueueDefault: {MaxWorkers: maxWorkers},
		},
		Workers: workers,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create River client: %w", err)
	}

	return &Queue{client: client, pool: pool, log: log}, nil
}

// Start starts the queue workers
func (q *Queue) Start(ctx context.Context) error {
	return q.client.Start(ctx)
}

// Stop stops the queue workers
func (q *Queue) Stop(ctx context.Context) error {
	return q.client.Stop(ctx)
}

// Escalate enqueues a human-review job for a pipeline result
func (q *Queue) Escalate(ctx context.Context, result *models.PipelineResult, content string, req models.ModerationRequest) error {
	violations := make([]string, 0, len(result.Verdict.Violations))
	for _, v := range result.Verdict.Violations {
		violations = append(violations, string(v))
	}

	args := HumanReviewArgs{
		RequestID:  result.RequestID,
		AuthorID:   req.AuthorID,
		ContentKind: string(req.Kind),
		Content:    content,
		Violations: violations,
		Confidence: result.Verdict.Confidence,
	}

	if _, err := q.client.Insert(ctx, args, nil); err != nil {
		return fmt.Errorf("failed to queue human review job: %w", err)
	}
	return nil
}
