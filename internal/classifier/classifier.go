// Package classifier delegates nuanced policy judgment (spam, harassment,
// hate speech, NSFW, off-topic) to the external text-understanding service
// and normalizes its answer into a strict verdict. Every failure path fails
// open: ordinary content keeps flowing, flagged for human review.
package classifier

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/beatguard/internal/breaker"
	"github.com/beatguard/internal/llm"
	"github.com/beatguard/internal/retry"
	"github.com/beatguard/pkg/models"
)

// fallback verdict constants per the moderation contract
const fallbackConfidence = 0.5

// Options configures the classifier's resilience envelope
type Options struct {
	Timeout          time.Duration // per-call budget including retries (default 8s)
	ReviewThreshold  float64       // confidence below this flags human review (default 0.6)
	Retry            retry.Config
	BreakerThreshold int
	BreakerCooldown  time.Duration
}

// DefaultOptions returns the standard resilience settings
func DefaultOptions() Options {
	return Options{
		Timeout:          8 * time.Second,
		ReviewThreshold:  0.6,
		Retry:            retry.ClassifierConfig(),
		BreakerThreshold: 5,
		BreakerCooldown:  30 * time.Second,
	}
}

// Classifier wraps the LLM client with timeout, retry, and circuit
// breaking. Safe for concurrent use; the breaker is the only shared state.
type Classifier struct {
	client  llm.Client
	opts    Options
	breaker *breaker.Breaker
	log     zerolog.Logger
}

// New creates a classifier around the given LLM client
func New(client llm.Client, opts Options, log zerolog.Logger) *Classifier {
	if opts.Timeout <= 0 {
		opts.Timeout = 8 * time.Second
	}
	if opts.ReviewThreshold <= 0 {
		opts.ReviewThreshold = 0.6
	}
	return &Classifier{
		client:  client,
		opts:    opts,
		breaker: breaker.New(opts.BreakerThreshold, opts.BreakerCooldown),
		log:     log,
	}
}

// verdictWire is the JSON shape the service is instructed to return
type verdictWire struct {
	Approved      bool     `json:"approved"`
	Confidence    float64  `json:"confidence"`
	Violations    []string `json:"violations"`
	Suggestion    string   `json:"suggestion"`
	MaskedContent string   `json:"maskedContent"`
}

// Classify runs the content through the external service and returns a
// verdict. It never returns an error: timeouts, network failures,
// malformed responses, and an open circuit all yield the fallback verdict
// with RequiresHumanReview set.
func (c *Classifier) Classify(ctx context.Context, req models.ModerationRequest) models.ModerationVerdict {
	if !c.breaker.Allow() {
		c.log.Warn().Str("author_id", req.AuthorID).Msg("circuit open, returning fallback verdict")
		return c.fallbackVerdict()
	}

	ctx, cancel := context.WithTimeout(ctx, c.opts.Timeout)
	defer cancel()

	prompt := buildPrompt(req)

	var raw string
	result := retry.Do(ctx, c.opts.Retry, c.log, func() error {
		response, err := c.client.GenerateResponse(ctx, prompt)
		if err != nil {
			return err
		}
		raw = response
		return nil
	})
	if !result.Success {
		c.breaker.Failure()
		c.log.Warn().Err(result.LastError).Int("attempts", result.Attempts).
			Msg("classification call failed, returning fallback verdict")
		return c.fallbackVerdict()
	}

	verdict, err := c.parseVerdict(raw, req.Content)
	if err != nil {
		// A response that fails schema validation counts the same as a
		// network failure.
		c.breaker.Failure()
		c.log.Warn().Err(err).Msg("unusable classification response, returning fallback verdict")
		return c.fallbackVerdict()
	}

	c.breaker.Success()
	return verdict
}

// parseVerdict converts raw model output into a validated verdict
func (c *Classifier) parseVerdict(raw, originalContent string) (models.ModerationVerdict, error) {
	var wire verdictWire
	if err := llm.ParseJSONResponse(raw, &wire); err != nil {
		return models.ModerationVerdict{}, err
	}

	if wire.Confidence < 0.0 || wire.Confidence > 1.0 {
		return models.ModerationVerdict{}, fmt.Errorf("confidence %v out of range", wire.Confidence)
	}

	verdict := models.ModerationVerdict{
		Approved:   wire.Approved,
		Confidence: wire.Confidence,
		Suggestion: wire.Suggestion,
	}
	for _, v := range wire.Violations {
		verdict.AddViolation(models.ParseViolationCategory(v))
	}
	// A rejection must always be attributable to a category.
	if !verdict.Approved && len(verdict.Violations) == 0 {
		verdict.AddViolation(models.ViolationOther)
	}

	// The service may propose a cleaned rewrite. Accept it only when it
	// looks like a rewrite of the input rather than a hallucination.
	if wire.MaskedContent != "" && wire.MaskedContent != originalContent &&
		len(wire.MaskedContent) <= 4*len(originalContent) {
		verdict.MaskedContent = wire.MaskedContent
		// A rewrite is a masking action and must be attributable to a
		// category, same as a rejection.
		if len(verdict.Violations) == 0 {
			verdict.AddViolation(models.ViolationOther)
		}
	}

	verdict.RequiresHumanReview = verdict.Confidence < c.opts.ReviewThreshold
	return verdict, nil
}

// fallbackVerdict is the conservative fail-open default: content is
// approved so a moderation outage cannot silently block the platform, but
// every fallback is flagged for the human moderator queue.
func (c *Classifier) fallbackVerdict() models.ModerationVerdict {
	return models.ModerationVerdict{
		Approved:            true,
		Confidence:          fallbackConfidence,
		Violations:          nil,
		RequiresHumanReview: true,
	}
}

// BreakerOpen exposes circuit state for health reporting
func (c *Classifier) BreakerOpen() bool {
	return c.breaker.Open()
}
