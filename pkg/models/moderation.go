package models

// Moderation pipeline models shared across the pre-filter, classifier,
// bot engine, and orchestrator.

// ContentKind identifies which submission surface a piece of text came from
type ContentKind string

const (
	ContentKindPost       ContentKind = "post"
	ContentKindComment    ContentKind = "comment"
	ContentKindMemePrompt ContentKind = "meme_prompt"
	ContentKindBio        ContentKind = "bio"
)

// IsValid reports whether the kind is one of the known submission surfaces
func (k ContentKind) IsValid() bool {
	switch k {
	case ContentKindPost, ContentKindComment, ContentKindMemePrompt, ContentKindBio:
		return true
	}
	return false
}

// ModerationRequest is the input unit handed to the pipeline by the
// submission layer. It is consumed once and never persisted here.
type ModerationRequest struct {
	Content           string      `json:"content"`
	Kind              ContentKind `json:"content_kind"`
	AuthorID          string      `json:"author_id"`
	AuthorDisplayName string      `json:"author_display_name"`
	// ConversationContext holds recent related messages, most-recent-last,
	// bounded by the caller (typically the last 5).
	ConversationContext []string `json:"conversation_context,omitempty"`
}

// ViolationCategory is the closed set of reasons content can be masked,
// rejected, or flagged. Every masking or rejection action is attributable
// to at least one category.
type ViolationCategory string

const (
	ViolationContactEmail      ViolationCategory = "contact_info_email"
	ViolationContactPhone      ViolationCategory = "contact_info_phone"
	ViolationContactHandle     ViolationCategory = "contact_info_handle"
	ViolationOffPlatform       ViolationCategory = "off_platform_solicitation"
	ViolationSpamSelfPromotion ViolationCategory = "spam_self_promotion"
	ViolationHarassment        ViolationCategory = "harassment"
	ViolationHateSpeech        ViolationCategory = "hate_speech"
	ViolationNSFW              ViolationCategory = "nsfw"
	ViolationOffTopic          ViolationCategory = "off_topic"
	ViolationOther             ViolationCategory = "other"
)

// ParseViolationCategory maps a wire string to a known category. Unknown
// strings collapse to ViolationOther so the set stays closed.
func ParseViolationCategory(s string) ViolationCategory {
	switch ViolationCategory(s) {
	case ViolationContactEmail, ViolationContactPhone, ViolationContactHandle,
		ViolationOffPlatform, ViolationSpamSelfPromotion, ViolationHarassment,
		ViolationHateSpeech, ViolationNSFW, ViolationOffTopic, ViolationOther:
		return ViolationCategory(s)
	}
	return ViolationOther
}

// Severity orders pre-filter outcomes: none < low < medium < high
type Severity int

const (
	SeverityNone Severity = iota
	SeverityLow
	SeverityMedium
	SeverityHigh
)

func (s Severity) String() string {
	switch s {
	case SeverityLow:
		return "low"
	case SeverityMedium:
		return "medium"
	case SeverityHigh:
		return "high"
	default:
		return "none"
	}
}

// ParseSeverity converts a config string to a Severity, defaulting to medium
func ParseSeverity(s string) Severity {
	switch s {
	case "low":
		return SeverityLow
	case "medium":
		return SeverityMedium
	case "high":
		return SeverityHigh
	case "none", "":
		return SeverityNone
	}
	return SeverityMedium
}

// MaskStrategy selects how a matched span is rewritten
type MaskStrategy string

const (
	// MaskFull replaces every matched character with the mask character,
	// preserving the character length of the text.
	MaskFull MaskStrategy = "full_mask"
	// MaskCategoryLabel replaces the matched span with a bracketed category
	// label. Not length-preserving; used for spans where the shape of the
	// removed text must not be inferable at all.
	MaskCategoryLabel MaskStrategy = "category_label_replace"
)

// PatternRule is a static pre-filter rule, loaded once at process start.
// Exactly one of Pattern (a regular expression) or Phrase (a
// case-insensitive substring) is set.
type PatternRule struct {
	ID       string            `json:"id" koanf:"id"`
	Category ViolationCategory `json:"category" koanf:"category"`
	Pattern  string            `json:"pattern,omitempty" koanf:"pattern"`
	Phrase   string            `json:"phrase,omitempty" koanf:"phrase"`
	Mask     MaskStrategy      `json:"mask,omitempty" koanf:"mask"`
	Severity string            `json:"severity" koanf:"severity"`
}

// ModerationVerdict is the pipeline's output unit for a single request.
type ModerationVerdict struct {
	Approved   bool                `json:"approved"`
	Confidence float64             `json:"confidence"`
	Violations []ViolationCategory `json:"violations"`
	// MaskedContent carries the rewritten text when the pre-filter or
	// classifier altered it; empty means the original text is unchanged.
	MaskedContent       string `json:"masked_content,omitempty"`
	Suggestion          string `json:"suggestion,omitempty"`
	RequiresHumanReview bool   `json:"requires_human_review"`
}

// HasViolation reports whether the verdict already carries the category
func (v *ModerationVerdict) HasViolation(c ViolationCategory) bool {
	for _, existing := range v.Violations {
		if existing == c {
			return true
		}
	}
	return false
}

// AddViolation appends a category if it is not already present
func (v *ModerationVerdict) AddViolation(c ViolationCategory) {
	if !v.HasViolation(c) {
		v.Violations = append(v.Violations, c)
	}
}

// TriggerReason records why the bot decided to speak (or not)
type TriggerReason string

const (
	TriggerExplicitMention  TriggerReason = "explicit_mention"
	TriggerContentHeuristic TriggerReason = "content_heuristic"
	TriggerPeriodicAmbient  TriggerReason = "periodic_ambient"
	TriggerNone             TriggerReason = "none"
)

// BotDecision is the engagement engine's output. ShouldRespond implies a
// non-empty ResponseText on every path, including fallbacks.
type BotDecision struct {
	ShouldRespond bool          `json:"should_respond"`
	ResponseText  string        `json:"response_text,omitempty"`
	Trigger       TriggerReason `json:"trigger_reason"`
	Confidence    float64       `json:"confidence"`
}

// NoResponse is the decision for content the bot stays silent on
func NoResponse() BotDecision {
	return BotDecision{ShouldRespond: false, Trigger: TriggerNone}
}

// PipelineResult is the merged outcome handed back to the caller.
type PipelineResult struct {
	RequestID string            `json:"request_id"`
	Verdict   ModerationVerdict `json:"verdict"`
	Bot       BotDecision       `json:"bot_decision"`
}
