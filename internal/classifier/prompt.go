package classifier

import (
	"fmt"
	"strings"

	"github.com/beatguard/pkg/models"
)

// buildPrompt generates the fixed instruction contract for the
// classification service. The response must be a single JSON object; the
// parser tolerates fences and minor damage, but the contract is strict
// about fields and the category vocabulary.
func buildPrompt(req models.ModerationRequest) string {
	var prompt strings.Builder

	prompt.WriteString("You are the content-safety reviewer for an online music-production community.\n")
	prompt.WriteString("Judge whether the submission below complies with community policy.\n\n")

	prompt.WriteString("Policy areas to evaluate: spam or self-promotion, harassment, hate speech, ")
	prompt.WriteString("NSFW content, and content unrelated to music or the community (off-topic).\n")
	prompt.WriteString("Contact information has already been masked upstream; do not penalize masked spans (runs of '*').\n\n")

	prompt.WriteString("Respond with ONLY a JSON object in this exact structure:\n")
	prompt.WriteString("```json\n")
	prompt.WriteString("{\n")
	prompt.WriteString("  \"approved\": true,\n")
	prompt.WriteString("  \"confidence\": 0.0,\n")
	prompt.WriteString("  \"violations\": [\"spam_self_promotion\"],\n")
	prompt.WriteString("  \"suggestion\": \"Optional: how the author could fix the content\",\n")
	prompt.WriteString("  \"maskedContent\": \"Optional: a cleaned rewrite, only if minor edits would make it acceptable\"\n")
	prompt.WriteString("}\n")
	prompt.WriteString("```\n\n")

	prompt.WriteString("Rules:\n")
	prompt.WriteString("- confidence is a number between 0.0 and 1.0.\n")
	prompt.WriteString("- violations entries must come from: spam_self_promotion, harassment, hate_speech, nsfw, off_topic, off_platform_solicitation, other.\n")
	prompt.WriteString("- if approved is false, violations must not be empty.\n")
	prompt.WriteString("- omit suggestion and maskedContent rather than leaving them empty.\n\n")

	prompt.WriteString(fmt.Sprintf("Submission kind: %s\n", req.Kind))
	if req.AuthorDisplayName != "" {
		prompt.WriteString(fmt.Sprintf("Author: %s\n", req.AuthorDisplayName))
	}

	if len(req.ConversationContext) > 0 {
		prompt.WriteString("\nRecent conversation (oldest first):\n")
		for _, msg := range req.ConversationContext {
			prompt.WriteString(fmt.Sprintf("- %s\n", msg))
		}
	}

	prompt.WriteString("\nSubmission:\n")
	prompt.WriteString(req.Content)
	prompt.WriteString("\n")

	return prompt.String()
}
