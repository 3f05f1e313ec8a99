package llm

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/kaptinlin/jsonrepair"
)

// Model output rarely arrives as clean JSON: it gets wrapped in markdown
// fences, truncated at token limits, or sprinkled with trailing commas.
// ParseJSONResponse extracts the JSON payload, repairs it when needed, and
// unmarshals into target.

// ParseJSONResponse extracts and decodes a JSON object from a raw model
// completion. Returns an error only when no parseable object remains after
// repair; callers map that to their fallback behavior.
func ParseJSONResponse(response string, target interface{}) error {
	jsonStr := ExtractJSON(response)
	if jsonStr == "" {
		return fmt.Errorf("no JSON object found in response (%d chars)", len(response))
	}

	if err := json.Unmarshal([]byte(jsonStr), target); err == nil {
		return nil
	}

	repaired, err := jsonrepair.JSONRepair(jsonStr)
	if err != nil {
		return fmt.Errorf("JSON repair failed: %w", err)
	}
	if err := json.Unmarshal([]byte(repaired), target); err != nil {
		return fmt.Errorf("failed to parse repaired JSON response: %w", err)
	}
	return nil
}

// ExtractJSON pulls the JSON object out of a completion, handling markdown
// code fences and leading/trailing prose.
func ExtractJSON(response string) string {
	trimmed := strings.TrimSpace(response)

	// Prefer a fenced block when present.
	if start := strings.Index(trimmed, "```"); start != -1 {
		rest := trimmed[start:]
		if open := strings.Index(rest, "{"); open != -1 {
			if end := strings.LastIndex(rest, "}"); end > open {
				return rest[open : end+1]
			}
			// Truncated fence: return from the opening brace and let the
			// repair pass close the structure.
			return rest[open:]
		}
	}

	if open := strings.Index(trimmed, "{"); open != -1 {
		if end := strings.LastIndex(trimmed, "}"); end > open {
			return trimmed[open : end+1]
		}
		return trimmed[open:]
	}
	return ""
}
