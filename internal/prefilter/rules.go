package prefilter

import "github.com/beatguard/pkg/models"

// DefaultRules is the compiled-in pattern set used when the configuration
// file carries no [[prefilter.rules]] entries. The exact patterns are
// tuning data, not a contract; operators override them in config.
func DefaultRules() []models.PatternRule {
	return []models.PatternRule{
		{
			ID:       "contact-email",
			Category: models.ViolationContactEmail,
			Pattern:  `[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`,
			Mask:     models.MaskFull,
			Severity: "high",
		},
		{
			ID:       "contact-phone",
			Category: models.ViolationContactPhone,
			Pattern:  `(\+?\d{1,3}[ .\-]?)?\(?\d{3}\)?[ .\-]?\d{3}[ .\-]?\d{4}`,
			Mask:     models.MaskFull,
			Severity: "high",
		},
		{
			ID:       "contact-social-handle",
			Category: models.ViolationContactHandle,
			Pattern:  `(?i)(telegram|whatsapp|discord|insta(?:gram)?|snap(?:chat)?|signal)\s*[:\-]?\s*@?[A-Za-z0-9_.]{3,}`,
			Mask:     models.MaskFull,
			Severity: "high",
		},
		{
			ID:       "solicit-email-me",
			Category: models.ViolationOffPlatform,
			Phrase:   "email me",
		},
		{
			ID:       "solicit-dm-me",
			Category: models.ViolationOffPlatform,
			Phrase:   "dm me",
		},
		{
			ID:       "solicit-text-me",
			Category: models.ViolationOffPlatform,
			Phrase:   "text me",
		},
		{
			ID:       "solicit-hit-me-up",
			Category: models.ViolationOffPlatform,
			Phrase:   "hit me up",
		},
		{
			ID:       "solicit-contact-me-at",
			Category: models.ViolationOffPlatform,
			Phrase:   "contact me at",
		},
		{
			ID:       "spam-link-in-bio",
			Category: models.ViolationSpamSelfPromotion,
			Phrase:   "link in bio",
		},
		{
			ID:       "spam-follow-me",
			Category: models.ViolationSpamSelfPromotion,
			Phrase:   "follow me on",
		},
		{
			ID:       "spam-subscribe",
			Category: models.ViolationSpamSelfPromotion,
			Phrase:   "subscribe to my",
		},
	}
}
