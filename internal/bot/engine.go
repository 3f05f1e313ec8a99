// Package bot decides whether the community bot should post a contextual
// reply to approved content, and generates (or falls back to) the reply
// text. The only shared state is the process-wide ambient cooldown limiter.
package bot

import (
	"context"
	"math/rand"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/beatguard/internal/llm"
	"github.com/beatguard/pkg/models"
)

const (
	mentionConfidence   = 0.9
	heuristicConfidence = 0.65
	ambientConfidence   = 0.3
)

// production/community vocabulary that makes content worth a bot reply
var heuristicTerms = regexp.MustCompile(`(?i)\b(mix(?:ing|down)?|master(?:ing)?|bpm|daw|sample[sd]?|synth|808|kick|snare|vocal[s]?|beat[s]?|track|gig|setlist|plugin|vst|sidechain|reverb|tempo|loop)\b`)

var questionTerms = regexp.MustCompile(`(?i)\b(how|what|which|anyone|recommend|advice|help)\b`)

// Options configures the engagement engine
type Options struct {
	Name               string        // bot display name, e.g. "Maestro"
	Handle             string        // mention handle, e.g. "@maestro"
	AmbientCooldown    time.Duration // minimum gap between ambient messages (default 5m)
	AmbientProbability float64       // chance an eligible request fires an ambient message (default 0.2)
	GenerationTimeout  time.Duration // budget for LLM reply generation (default 8s)
}

// Engine evaluates triggers in priority order and produces a BotDecision.
// Safe for concurrent use.
type Engine struct {
	client    llm.Client
	opts      Options
	ambient   *rate.Limiter
	randFloat func() float64
	log       zerolog.Logger
}

// New creates an engagement engine with the process-wide ambient limiter
func New(client llm.Client, opts Options, log zerolog.Logger) *Engine {
	if opts.AmbientCooldown <= 0 {
		opts.AmbientCooldown = 5 * time.Minute
	}
	if opts.AmbientProbability <= 0 {
		opts.AmbientProbability = 0.2
	}
	if opts.GenerationTimeout <= 0 {
		opts.GenerationTimeout = 8 * time.Second
	}
	if opts.Name == "" {
		opts.Name = "Maestro"
	}
	if opts.Handle == "" {
		opts.Handle = "@" + strings.ToLower(opts.Name)
	}
	return &Engine{
		client:    client,
		opts:      opts,
		ambient:   rate.NewLimiter(rate.Every(opts.AmbientCooldown), 1),
		randFloat: rand.Float64,
		log:       log,
	}
}

// NewWithRand injects the randomness source, for tests
func NewWithRand(client llm.Client, opts Options, log zerolog.Logger, randFloat func() float64) *Engine {
	e := New(client, opts, log)
	e.randFloat = randFloat
	return e
}

// Decide evaluates the triggers in order: explicit mention, content
// heuristic, periodic ambient. First match wins. Only invoked on approved
// verdicts; the orchestrator guards that.
func (e *Engine) Decide(ctx context.Context, req models.ModerationRequest, verdict models.ModerationVerdict) models.BotDecision {
	// The bot works from the masked text so a reply can never echo
	// redacted contact data.
	content := req.Content
	if verdict.MaskedContent != "" {
		content = verdict.MaskedContent
	}

	if e.isMentioned(content) {
		text := e.generateReply(ctx, req, content)
		return models.BotDecision{
			ShouldRespond: true,
			ResponseText:  text,
			Trigger:       models.TriggerExplicitMention,
			Confidence:    mentionConfidence,
		}
	}

	if matchesHeuristics(content) {
		text := e.generateReply(ctx, req, content)
		return models.BotDecision{
			ShouldRespond: true,
			ResponseText:  text,
			Trigger:       models.TriggerContentHeuristic,
			Confidence:    heuristicConfidence,
		}
	}

	// Probability gate first so a losing roll doesn't consume the cooldown
	// token; the limiter then guarantees at most one ambient message per
	// window under concurrent calls.
	if e.randFloat() < e.opts.AmbientProbability && e.ambient.Allow() {
		text := pickTemplate(ambientPool, e.randFloat)
		e.log.Debug().Msg("ambient bot message fired")
		return models.BotDecision{
			ShouldRespond: true,
			ResponseText:  text,
			Trigger:       models.TriggerPeriodicAmbient,
			Confidence:    ambientConfidence,
		}
	}

	return models.NoResponse()
}

// isMentioned reports whether the content references the bot by name or handle
func (e *Engine) isMentioned(content string) bool {
	lower := strings.ToLower(content)
	return strings.Contains(lower, strings.ToLower(e.opts.Handle)) ||
		strings.Contains(lower, strings.ToLower(e.opts.Name))
}

// matchesHeuristics reports whether the content is community-relevant
// enough for an unprompted reply: production vocabulary, or an explicit
// question in that vocabulary's vicinity.
func matchesHeuristics(content string) bool {
	if !heuristicTerms.MatchString(content) {
		return false
	}
	if strings.Contains(content, "?") && questionTerms.MatchString(content) {
		return true
	}
	// Two or more distinct production terms also qualify without a question;
	// repeating the same word is not vocabulary breadth.
	seen := map[string]bool{}
	for _, term := range heuristicTerms.FindAllString(content, -1) {
		seen[strings.ToLower(term)] = true
		if len(seen) >= 2 {
			return true
		}
	}
	return false
}

// generateReply asks the LLM for a persona-constrained reply and degrades
// to the static template pool on any failure. The bot never goes silent on
// a trigger: a generic reply beats no reply.
func (e *Engine) generateReply(ctx context.Context, req models.ModerationRequest, content string) string {
	ctx, cancel := context.WithTimeout(ctx, e.opts.GenerationTimeout)
	defer cancel()

	response, err := e.client.GenerateResponse(ctx, e.personaPrompt(req, content))
	if err != nil {
		e.log.Debug().Err(err).Msg("reply generation failed, using template fallback")
		return e.fallbackReply(content)
	}
	response = strings.TrimSpace(response)
	if response == "" {
		return e.fallbackReply(content)
	}
	return response
}

// personaPrompt constrains the reply to the bot's voice and the thread
func (e *Engine) personaPrompt(req models.ModerationRequest, content string) string {
	var prompt strings.Builder
	prompt.WriteString("You are ")
	prompt.WriteString(e.opts.Name)
	prompt.WriteString(", the upbeat resident bot of an online music-production community.\n")
	prompt.WriteString("Write a single short reply (max two sentences) to the message below.\n")
	prompt.WriteString("Be friendly and specific to the music topic; never ask for or share contact details; plain text only.\n\n")
	if req.AuthorDisplayName != "" {
		prompt.WriteString("The author is " + req.AuthorDisplayName + ".\n")
	}
	if len(req.ConversationContext) > 0 {
		prompt.WriteString("Recent thread:\n")
		for _, msg := range req.ConversationContext {
			prompt.WriteString("- " + msg + "\n")
		}
	}
	prompt.WriteString("\nMessage:\n")
	prompt.WriteString(content)
	prompt.WriteString("\n")
	return prompt.String()
}

// fallbackReply picks a static template keyed by what the content looks like
func (e *Engine) fallbackReply(content string) string {
	lower := strings.ToLower(content)
	switch {
	case strings.Contains(lower, "new here") || strings.Contains(lower, "just joined") ||
		strings.Contains(lower, "hello") || strings.Contains(lower, "hi everyone"):
		return pickTemplate(welcomePool, e.randFloat)
	case strings.Contains(lower, "upload") || strings.Contains(lower, "file") ||
		strings.Contains(lower, ".wav") || strings.Contains(lower, ".mp3"):
		return pickTemplate(fileSizePool, e.randFloat)
	default:
		return pickTemplate(genericPool, e.randFloat)
	}
}

func pickTemplate(pool []string, randFloat func() float64) string {
	idx := int(randFloat() * float64(len(pool)))
	if idx >= len(pool) {
		idx = len(pool) - 1
	}
	return pool[idx]
}
