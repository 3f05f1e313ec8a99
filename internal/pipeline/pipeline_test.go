package pipeline

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/beatguard/internal/classifier"
	"github.com/beatguard/internal/events"
	"github.com/beatguard/internal/prefilter"
	"github.com/beatguard/pkg/models"
)

// stubClassifier returns a fixed verdict and records what it saw.
type stubClassifier struct {
	verdict models.ModerationVerdict
	seen    models.ModerationRequest
}

func (s *stubClassifier) Classify(ctx context.Context, req models.ModerationRequest) models.ModerationVerdict {
	s.seen = req
	return s.verdict
}

// stubBot records whether it was invoked.
type stubBot struct {
	decision models.BotDecision
	invoked  bool
}

func (s *stubBot) Decide(ctx context.Context, req models.ModerationRequest, verdict models.ModerationVerdict) models.BotDecision {
	s.invoked = true
	return s.decision
}

// captureEscalator remembers the last escalation.
type captureEscalator struct {
	result  *models.PipelineResult
	content string
	calls   int
}

func (c *captureEscalator) Escalate(ctx context.Context, result *models.PipelineResult, content string, req models.ModerationRequest) error {
	c.calls++
	c.result = result
	c.content = content
	return nil
}

type failingClient struct{}

func (failingClient) GenerateResponse(ctx context.Context, prompt string) (string, error) {
	return "", errors.New("service unavailable")
}

func approvedVerdict() models.ModerationVerdict {
	return models.ModerationVerdict{Approved: true, Confidence: 0.95}
}

func newPipeline(t *testing.T, cls PolicyClassifier, bot EngagementEngine, esc Escalator,
	autoReject map[models.ViolationCategory]bool) *Pipeline {
	t.Helper()
	scanner, err := prefilter.New(prefilter.DefaultRules())
	require.NoError(t, err)
	return New(scanner, cls, bot, events.NewLogSink(zerolog.Nop()), esc, autoReject, zerolog.Nop())
}

func TestProcessRejectsEmptyContent(t *testing.T) {
	p := newPipeline(t, &stubClassifier{verdict: approvedVerdict()}, &stubBot{}, nil, nil)

	_, err := p.Process(context.Background(), models.ModerationRequest{Content: "   ", Kind: models.ContentKindPost})
	assert.ErrorIs(t, err, ErrEmptyContent)
}

func TestProcessRejectsInvalidKind(t *testing.T) {
	p := newPipeline(t, &stubClassifier{verdict: approvedVerdict()}, &stubBot{}, nil, nil)

	_, err := p.Process(context.Background(), models.ModerationRequest{Content: "hello", Kind: "tweet"})
	assert.ErrorIs(t, err, ErrInvalidKind)
}

func TestProcessMasksEmailAndClassifiesMaskedText(t *testing.T) {
	cls := &stubClassifier{verdict: approvedVerdict()}
	bot := &stubBot{decision: models.NoResponse()}
	p := newPipeline(t, cls, bot, nil, nil)

	content := "email me at dj@example.com for bookings"
	result, err := p.Process(context.Background(), models.ModerationRequest{
		Content: content, Kind: models.ContentKindComment, AuthorID: "user-1",
	})
	require.NoError(t, err)

	assert.NotEmpty(t, result.RequestID)
	assert.True(t, result.Verdict.Approved)
	assert.NotContains(t, result.Verdict.MaskedContent, "dj@example.com")
	assert.Len(t, result.Verdict.MaskedContent, len(content))
	assert.Contains(t, result.Verdict.Violations, models.ViolationContactEmail)

	// The classifier must never see the raw address.
	assert.NotContains(t, cls.seen.Content, "dj@example.com")
	assert.True(t, bot.invoked, "approved content reaches the bot")
}

func TestProcessAutoRejectSkipsBot(t *testing.T) {
	cls := &stubClassifier{verdict: approvedVerdict()}
	bot := &stubBot{decision: models.BotDecision{ShouldRespond: true, ResponseText: "hi"}}
	autoReject := map[models.ViolationCategory]bool{models.ViolationContactEmail: true}
	p := newPipeline(t, cls, bot, nil, autoReject)

	result, err := p.Process(context.Background(), models.ModerationRequest{
		Content: "email me at dj@example.com", Kind: models.ContentKindComment, AuthorID: "user-1",
	})
	require.NoError(t, err)

	assert.False(t, result.Verdict.Approved)
	assert.NotEmpty(t, result.Verdict.Suggestion)
	assert.False(t, bot.invoked, "rejected content must not reach the bot")
	assert.Equal(t, models.NoResponse(), result.Bot)
}

func TestProcessClassifierRejectionSilencesBot(t *testing.T) {
	cls := &stubClassifier{verdict: models.ModerationVerdict{
		Approved:   false,
		Confidence: 0.9,
		Violations: []models.ViolationCategory{models.ViolationHarassment},
	}}
	bot := &stubBot{}
	p := newPipeline(t, cls, bot, nil, nil)

	result, err := p.Process(context.Background(), models.ModerationRequest{
		Content: "you are a talentless hack", Kind: models.ContentKindComment, AuthorID: "user-2",
	})
	require.NoError(t, err)

	assert.False(t, result.Verdict.Approved)
	assert.Contains(t, result.Verdict.Violations, models.ViolationHarassment)
	assert.NotEmpty(t, result.Verdict.Suggestion)
	assert.False(t, bot.invoked)
}

func TestProcessClassifierOutageFailsOpenAndEscalates(t *testing.T) {
	// A real classifier wrapping a dead client: the pipeline must still
	// return a verdict, flagged for review, and hand the masked text to the
	// escalator.
	cls := classifier.New(&failingClient{}, classifier.Options{}, zerolog.Nop())
	esc := &captureEscalator{}
	p := newPipeline(t, cls, &stubBot{decision: models.NoResponse()}, esc, nil)

	content := "call 555-123-4567 about the gig"
	result, err := p.Process(context.Background(), models.ModerationRequest{
		Content: content, Kind: models.ContentKindPost, AuthorID: "user-3",
	})
	require.NoError(t, err, "downstream outages never surface as errors")

	assert.True(t, result.Verdict.Approved)
	assert.True(t, result.Verdict.RequiresHumanReview)
	assert.Equal(t, 1, esc.calls)
	assert.NotContains(t, esc.content, "555-123-4567", "the review queue receives masked text only")
	assert.Contains(t, esc.content, strings.Repeat("*", len("555-123-4567")))
}

func TestProcessClassifierRewriteWinsOverScanMask(t *testing.T) {
	cls := &stubClassifier{verdict: models.ModerationVerdict{
		Approved:      true,
		Confidence:    0.9,
		MaskedContent: "email me at [removed] for bookings",
	}}
	p := newPipeline(t, cls, &stubBot{decision: models.NoResponse()}, nil, nil)

	result, err := p.Process(context.Background(), models.ModerationRequest{
		Content: "email me at dj@example.com for bookings", Kind: models.ContentKindComment, AuthorID: "user-4",
	})
	require.NoError(t, err)

	assert.Equal(t, "email me at [removed] for bookings", result.Verdict.MaskedContent)
}

func TestProcessRewriteWithoutViolationsGetsCategory(t *testing.T) {
	// A classifier that volunteers a rewrite but reports no violations must
	// not yield masked output with an empty violations set.
	cls := &stubClassifier{verdict: models.ModerationVerdict{
		Approved:      true,
		Confidence:    0.9,
		MaskedContent: "loving the synth pack [tidied]",
	}}
	p := newPipeline(t, cls, &stubBot{decision: models.NoResponse()}, nil, nil)

	result, err := p.Process(context.Background(), models.ModerationRequest{
		Content: "loving the synth pack", Kind: models.ContentKindPost, AuthorID: "user-6",
	})
	require.NoError(t, err)

	assert.Equal(t, "loving the synth pack [tidied]", result.Verdict.MaskedContent)
	assert.NotEmpty(t, result.Verdict.Violations, "masked output must carry at least one category")
	assert.Contains(t, result.Verdict.Violations, models.ViolationOther)
}

func TestProcessCleanContentUnchanged(t *testing.T) {
	cls := &stubClassifier{verdict: approvedVerdict()}
	p := newPipeline(t, cls, &stubBot{decision: models.NoResponse()}, nil, nil)

	result, err := p.Process(context.Background(), models.ModerationRequest{
		Content: "loving the new synth pack", Kind: models.ContentKindPost, AuthorID: "user-5",
	})
	require.NoError(t, err)

	assert.True(t, result.Verdict.Approved)
	assert.Empty(t, result.Verdict.MaskedContent, "unchanged content carries no rewrite")
	assert.Empty(t, result.Verdict.Violations)
}
