package completion

import (
	"encoding/json"
	"strings"
)

// structuredAnswer matches the JSON schema the model is instructed to
// produce.
type structuredAnswer struct {
	Answer  string   `json:"answer"`
	Sources []string `json:"sources"`
}

// parseAnswer normalizes raw model output. Structurally valid JSON with
// an answer field wins; anything else is treated as plain text, never as
// an error. structured reports which path was taken — a plain-text
// answer carries no model-claimed sources.
func parseAnswer(raw string) (answer string, sources []string, structured bool) {
	text := stripFences(raw)
	if text == "" {
		return "", nil, false
	}

	if strings.HasPrefix(text, "{") {
		var parsed structuredAnswer
		if err := json.Unmarshal([]byte(repairJSON(text)), &parsed); err == nil {
			if strings.TrimSpace(parsed.Answer) != "" {
				return strings.TrimSpace(parsed.Answer), parsed.Sources, true
			}
			// Valid JSON with an empty answer is an empty response,
			// not a plain-text one.
			return "", nil, true
		}
	}

	return text, nil, false
}

// stripFences removes markdown code fences around a JSON payload.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// joinContinuation appends a continuation to already-produced text,
// removing the largest overlap between the end of the first part and the
// start of the continuation so no sentence boundary is duplicated.
func joinContinuation(produced, continuation string) string {
	produced = strings.TrimRight(produced, " \t\n")
	continuation = strings.TrimLeft(continuation, " \t\n")
	if continuation == "" {
		return produced
	}

	maxOverlap := len(produced)
	if len(continuation) < maxOverlap {
		maxOverlap = len(continuation)
	}
	if maxOverlap > continuationTailLen {
		maxOverlap = continuationTailLen
	}
	for n := maxOverlap; n > 0; n-- {
		if strings.HasSuffix(produced, continuation[:n]) {
			continuation = continuation[n:]
			break
		}
	}

	if continuation == "" {
		return produced
	}
	return produced + " " + strings.TrimLeft(continuation, " \t\n")
}
