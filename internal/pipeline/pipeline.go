// Package pipeline composes the pre-filter, policy classifier, and bot
// engagement engine into the single entry point the submission layer calls.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/beatguard/internal/events"
	"github.com/beatguard/internal/prefilter"
	"github.com/beatguard/pkg/models"
)

// The only hard errors the pipeline ever returns. Every downstream failure
// degrades into the verdict instead.
var (
	ErrEmptyContent = errors.New("content is empty")
	ErrInvalidKind  = errors.New("unknown content kind")
)

// PolicyClassifier is the classification stage contract
type PolicyClassifier interface {
	Classify(ctx context.Context, req models.ModerationRequest) models.ModerationVerdict
}

// EngagementEngine is the bot decision stage contract
type EngagementEngine interface {
	Decide(ctx context.Context, req models.ModerationRequest, verdict models.ModerationVerdict) models.BotDecision
}

// Escalator forwards human-review verdicts to the moderator queue
type Escalator interface {
	Escalate(ctx context.Context, result *models.PipelineResult, content string, req models.ModerationRequest) error
}

// Pipeline runs each request through scanning, classification, and
// engagement, and merges the outputs. Each Process call is independent and
// reentrant; shared state lives inside the classifier and bot engine.
type Pipeline struct {
	scanner    *prefilter.Scanner
	classifier PolicyClassifier
	bot        EngagementEngine
	sink       events.Sink
	escalator  Escalator // optional
	autoReject map[models.ViolationCategory]bool
	log        zerolog.Logger
}

// New wires the pipeline stages together. escalator may be nil when no
// queue is configured.
func New(scanner *prefilter.Scanner, classifier PolicyClassifier, bot EngagementEngine,
	sink events.Sink, escalator Escalator, autoReject map[models.ViolationCategory]bool,
	log zerolog.Logger) *Pipeline {
	if autoReject == nil {
		autoReject = map[models.ViolationCategory]bool{}
	}
	return &Pipeline{
		scanner:    scanner,
		classifier: classifier,
		bot:        bot,
		sink:       sink,
		escalator:  escalator,
		autoReject: autoReject,
		log:        log,
	}
}

// Process runs one request through the full pipeline. The pre-filter always
// runs; classification always follows, on the masked text, because masking
// only removes contact data and does not certify the rest as safe. The bot
// engine runs only on approved verdicts.
//
// The only error returns are invalid input; every other failure mode has
// already been absorbed into the verdict by the stage that hit it.
func (p *Pipeline) Process(ctx context.Context, req models.ModerationRequest) (*models.PipelineResult, error) {
	if strings.TrimSpace(req.Content) == "" {
		return nil, ErrEmptyContent
	}
	if !req.Kind.IsValid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidKind, req.Kind)
	}

	requestID := uuid.NewString()

	// Scanning
	scan := p.scanner.Scan(req.Content)

	prefilterApproved := true
	if scan.Severity == models.SeverityHigh {
		for _, v := range scan.Violations {
			if p.autoReject[v] {
				prefilterApproved = false
				break
			}
		}
	}

	// Classifying, on the masked text
	classifyReq := req
	classifyReq.Content = scan.MaskedContent
	verdict := p.classifier.Classify(ctx, classifyReq)

	merged := p.merge(req, scan, verdict, prefilterApproved)

	// Engaging
	var decision models.BotDecision
	if merged.Approved {
		decision = p.bot.Decide(ctx, req, merged)
	} else {
		decision = models.NoResponse()
	}

	result := &models.PipelineResult{
		RequestID: requestID,
		Verdict:   merged,
		Bot:       decision,
	}

	p.record(ctx, req, scan, result)
	return result, nil
}

// merge combines pre-filter and classifier outputs: union of violations,
// conservative AND of approvals, and the masked text whichever stage
// produced it.
func (p *Pipeline) merge(req models.ModerationRequest, scan prefilter.ScanResult,
	verdict models.ModerationVerdict, prefilterApproved bool) models.ModerationVerdict {

	merged := verdict
	for _, v := range scan.Violations {
		merged.AddViolation(v)
	}
	merged.Approved = prefilterApproved && verdict.Approved

	// The classifier saw masked input, so its rewrite (when present) is
	// already free of contact data and wins over the plain masked text.
	switch {
	case verdict.MaskedContent != "":
		merged.MaskedContent = verdict.MaskedContent
	case scan.Changed(req.Content):
		merged.MaskedContent = scan.MaskedContent
	default:
		merged.MaskedContent = ""
	}

	// Masked output without a category would leave the rewrite
	// unattributable; violations are empty only for untouched approvals.
	if merged.MaskedContent != "" && len(merged.Violations) == 0 {
		merged.AddViolation(models.ViolationOther)
	}

	if !merged.Approved {
		if len(merged.Violations) == 0 {
			merged.AddViolation(models.ViolationOther)
		}
		if merged.Suggestion == "" {
			merged.Suggestion = suggestionFor(merged.Violations)
		}
	}
	return merged
}

// record emits the audit event and, when flagged, the human-review
// escalation. Neither failure surfaces to the caller.
func (p *Pipeline) record(ctx context.Context, req models.ModerationRequest,
	scan prefilter.ScanResult, result *models.PipelineResult) {

	event := &events.ModerationEvent{
		RequestID:           result.RequestID,
		AuthorID:            req.AuthorID,
		Kind:                req.Kind,
		Approved:            result.Verdict.Approved,
		Confidence:          result.Verdict.Confidence,
		Violations:          result.Verdict.Violations,
		Masked:              result.Verdict.MaskedContent != "",
		RequiresHumanReview: result.Verdict.RequiresHumanReview,
		BotTrigger:          result.Bot.Trigger,
		CreatedAt:           time.Now(),
	}
	if err := p.sink.Record(ctx, event); err != nil {
		p.log.Error().Err(err).Str("request_id", result.RequestID).Msg("failed to record moderation event")
	}

	if result.Verdict.RequiresHumanReview && p.escalator != nil {
		// The queue receives the masked text, never the raw submission.
		content := scan.MaskedContent
		if err := p.escalator.Escalate(ctx, result, content, req); err != nil {
			p.log.Error().Err(err).Str("request_id", result.RequestID).Msg("failed to escalate for human review")
		}
	}
}

// suggestionFor picks a remediation hint for a rejection
func suggestionFor(violations []models.ViolationCategory) string {
	for _, v := range violations {
		switch v {
		case models.ViolationContactEmail, models.ViolationContactPhone, models.ViolationContactHandle:
			return "Remove contact details and keep conversations on the platform."
		case models.ViolationOffPlatform:
			return "Keep bookings and collaborations in the platform's messaging tools."
		case models.ViolationSpamSelfPromotion:
			return "Share your work in the promotion thread instead of unrelated discussions."
		case models.ViolationHarassment, models.ViolationHateSpeech:
			return "Rewrite the message so it addresses the music, not the person."
		case models.ViolationNSFW:
			return "Keep content safe for a general audience."
		case models.ViolationOffTopic:
			return "Move this to a channel where it fits the topic."
		}
	}
	return "Revise the content to follow the community guidelines."
}
