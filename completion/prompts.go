package completion

import (
	"fmt"
	"strings"

	"github.com/poiesic/answerit/core"
)

const systemPromptTemplate = `You are a knowledgeable assistant answering questions about a user's stored data and general domain knowledge.

Output ONLY valid JSON matching this schema. Do not include any preamble, explanation, greeting, or acknowledgment. Start your response directly with the opening brace { and end with the closing brace }:

{
  "answer": "<your answer as a single string>",
  "sources": ["<entry id>", ...]
}

Rules:
- Base the answer on the knowledge entries when they are relevant; say so plainly when they are not.
- The sources array must list only the ids of entries you actually used, exactly as given (for example "KB-2").
- When no entry was used, return "sources": [].
- Answer in the language tagged %q.
- The JSON must parse without errors; no trailing commas, no extra keys, and no extraneous text outside the object.`

// BuildSystemPrompt renders the system prompt for the given locale.
// An empty locale defaults to "en".
func BuildSystemPrompt(locale string) string {
	if strings.TrimSpace(locale) == "" {
		locale = "en"
	}
	return fmt.Sprintf(systemPromptTemplate, locale)
}

// BuildUserPrompt renders the question together with the numbered
// knowledge entries and returns the entry ids that were offered, in
// order. With no entries, the prompt asks for a general-knowledge answer.
func BuildUserPrompt(question string, entries []*core.Snippet) (prompt string, knownIDs []string) {
	question = strings.TrimSpace(question)

	if len(entries) == 0 {
		return "Question: " + question + "\n\nNo stored knowledge entries matched. Answer from general domain knowledge.", nil
	}

	var b strings.Builder
	b.WriteString("Knowledge entries:\n")
	knownIDs = make([]string, 0, len(entries))
	for i, entry := range entries {
		id := fmt.Sprintf("KB-%d", i+1)
		knownIDs = append(knownIDs, id)
		fmt.Fprintf(&b, "[%s] (%s) %s\n", id, entry.Dataset, strings.TrimSpace(entry.Text))
	}
	b.WriteString("\nQuestion: ")
	b.WriteString(question)
	return b.String(), knownIDs
}

// continuationTailLen bounds how much already-produced text is echoed
// back to the model when asking it to continue a truncated answer.
const continuationTailLen = 1200

// BuildContinuationPrompt re-sends the original prompt with the tail of
// the text produced so far, asking the model to pick up exactly where it
// stopped.
func BuildContinuationPrompt(original, produced string) string {
	return original +
		"\n\nYour previous response was cut off. Continue exactly where it stopped; do not repeat anything. It ended with:\n" +
		tail(produced, continuationTailLen)
}

// tail returns the last max bytes of s, cut at a rune boundary.
func tail(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := s[len(s)-max:]
	// Drop a leading partial rune
	for i := 0; i < len(cut); i++ {
		if (cut[i] & 0xC0) != 0x80 {
			return cut[i:]
		}
	}
	return cut
}
