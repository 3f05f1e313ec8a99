package prefilter

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/beatguard/pkg/models"
)

const maskChar = '*'

// ScanResult is the outcome of running every configured rule against one
// piece of content.
type ScanResult struct {
	MaskedContent string
	Violations    []models.ViolationCategory
	Severity      models.Severity
}

// Changed reports whether any rule rewrote the content
func (r ScanResult) Changed(original string) bool {
	return r.MaskedContent != original
}

type compiledRule struct {
	rule     models.PatternRule
	re       *regexp.Regexp // nil for phrase rules
	phrase   string         // lowercased, non-empty for phrase rules
	severity models.Severity
}

// Scanner runs a fixed rule set against submitted text. It is pure and
// deterministic: no I/O, no failure mode, safe for concurrent use.
type Scanner struct {
	rules []compiledRule
}

// New compiles the rule set. Rules are sorted by ID so scan output does not
// depend on configuration order.
func New(rules []models.PatternRule) (*Scanner, error) {
	compiled := make([]compiledRule, 0, len(rules))
	for _, r := range rules {
		cr := compiledRule{rule: r, severity: models.ParseSeverity(r.Severity)}
		switch {
		case r.Pattern != "":
			re, err := regexp.Compile(r.Pattern)
			if err != nil {
				return nil, fmt.Errorf("rule %s: invalid pattern: %w", r.ID, err)
			}
			cr.re = re
			if cr.rule.Mask == "" {
				cr.rule.Mask = models.MaskFull
			}
		case r.Phrase != "":
			cr.phrase = strings.ToLower(r.Phrase)
			// Phrase rules never rewrite and always flag at medium.
			cr.severity = models.SeverityMedium
		default:
			return nil, fmt.Errorf("rule %s: needs a pattern or a phrase", r.ID)
		}
		if r.Category == "" {
			return nil, fmt.Errorf("rule %s: category is required", r.ID)
		}
		compiled = append(compiled, cr)
	}
	sort.Slice(compiled, func(i, j int) bool { return compiled[i].rule.ID < compiled[j].rule.ID })
	return &Scanner{rules: compiled}, nil
}

type span struct{ start, end int }

// Scan runs every rule independently against content and returns the masked
// text, the union of matched categories, and the highest matched severity.
// Full-mask rewrites preserve character length, so masking is idempotent:
// scanning already-masked output changes nothing.
func (s *Scanner) Scan(content string) ScanResult {
	result := ScanResult{MaskedContent: content, Severity: models.SeverityNone}

	var maskSpans []span
	var labelSpans []labelSpan
	lower := strings.ToLower(content)

	for _, cr := range s.rules {
		switch {
		case cr.re != nil:
			matches := cr.re.FindAllStringIndex(content, -1)
			if len(matches) == 0 {
				continue
			}
			for _, m := range matches {
				if cr.rule.Mask == models.MaskCategoryLabel {
					labelSpans = append(labelSpans, labelSpan{span{m[0], m[1]}, cr.rule.Category})
				} else {
					maskSpans = append(maskSpans, span{m[0], m[1]})
				}
			}
			result.Violations = appendCategory(result.Violations, cr.rule.Category)
			if cr.severity > result.Severity {
				result.Severity = cr.severity
			}
		case cr.phrase != "":
			if strings.Contains(lower, cr.phrase) {
				result.Violations = appendCategory(result.Violations, cr.rule.Category)
				if cr.severity > result.Severity {
					result.Severity = cr.severity
				}
			}
		}
	}

	masked := applyMask(content, mergeSpans(maskSpans))

	// Label replacements shift byte offsets, so overlapping spans are
	// coalesced first and the substitutions run last, right to left.
	if len(labelSpans) > 0 {
		merged := mergeLabelSpans(labelSpans)
		for i := len(merged) - 1; i >= 0; i-- {
			ls := merged[i]
			if ls.end > len(masked) {
				continue
			}
			masked = masked[:ls.start] + "[" + string(ls.category) + "]" + masked[ls.end:]
		}
	}

	result.MaskedContent = masked
	return result
}

type labelSpan struct {
	span
	category models.ViolationCategory
}

// mergeLabelSpans sorts and coalesces overlapping label spans so one
// replacement never slices into another's inserted text. The earliest
// span's category labels the merged region.
func mergeLabelSpans(spans []labelSpan) []labelSpan {
	sort.Slice(spans, func(i, j int) bool { return spans[i].start < spans[j].start })
	merged := spans[:1]
	for _, sp := range spans[1:] {
		last := &merged[len(merged)-1]
		if sp.start <= last.end {
			if sp.end > last.end {
				last.end = sp.end
			}
			continue
		}
		merged = append(merged, sp)
	}
	return merged
}

// mergeSpans sorts and coalesces overlapping or adjacent spans
func mergeSpans(spans []span) []span {
	if len(spans) == 0 {
		return nil
	}
	sort.Slice(spans, func(i, j int) bool { return spans[i].start < spans[j].start })
	merged := spans[:1]
	for _, sp := range spans[1:] {
		last := &merged[len(merged)-1]
		if sp.start <= last.end {
			if sp.end > last.end {
				last.end = sp.end
			}
			continue
		}
		merged = append(merged, sp)
	}
	return merged
}

// applyMask replaces every character inside the spans with the mask
// character. One mask character per rune keeps the character count of the
// text identical, so surrounding structure is preserved.
func applyMask(content string, spans []span) string {
	if len(spans) == 0 {
		return content
	}
	var b strings.Builder
	b.Grow(len(content))
	prev := 0
	for _, sp := range spans {
		if sp.start < prev || sp.end > len(content) {
			continue
		}
		b.WriteString(content[prev:sp.start])
		for range content[sp.start:sp.end] {
			b.WriteByte(maskChar)
		}
		prev = sp.end
	}
	b.WriteString(content[prev:])
	return b.String()
}

func appendCategory(cats []models.ViolationCategory, c models.ViolationCategory) []models.ViolationCategory {
	for _, existing := range cats {
		if existing == c {
			return cats
		}
	}
	return append(cats, c)
}
