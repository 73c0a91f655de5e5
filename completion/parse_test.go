package completion

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseAnswer(t *testing.T) {
	t.Run("structured answer with sources", func(t *testing.T) {
		answer, sources, structured := parseAnswer(`{"answer": "Paris.", "sources": ["KB-1", "KB-3"]}`)
		assert.True(t, structured)
		assert.Equal(t, "Paris.", answer)
		assert.Equal(t, []string{"KB-1", "KB-3"}, sources)
	})

	t.Run("fenced JSON", func(t *testing.T) {
		answer, sources, structured := parseAnswer("```json\n{\"answer\": \"Lyon.\", \"sources\": []}\n```")
		assert.True(t, structured)
		assert.Equal(t, "Lyon.", answer)
		assert.Empty(t, sources)
	})

	t.Run("plain text", func(t *testing.T) {
		answer, sources, structured := parseAnswer("The capital of France is Paris.")
		assert.False(t, structured)
		assert.Equal(t, "The capital of France is Paris.", answer)
		assert.Nil(t, sources)
	})

	t.Run("JSON with empty answer is empty, not plain text", func(t *testing.T) {
		answer, _, structured := parseAnswer(`{"answer": "", "sources": ["KB-1"]}`)
		assert.True(t, structured)
		assert.Empty(t, answer)
	})

	t.Run("malformed JSON falls back to plain text", func(t *testing.T) {
		raw := `{"answer": "unterminated`
		answer, _, structured := parseAnswer(raw)
		assert.False(t, structured)
		assert.Equal(t, raw, answer)
	})

	t.Run("missing key quote is repaired", func(t *testing.T) {
		answer, sources, structured := parseAnswer(`{"answer": "Nice.", sources": ["KB-2"]}`)
		assert.True(t, structured)
		assert.Equal(t, "Nice.", answer)
		assert.Equal(t, []string{"KB-2"}, sources)
	})

	t.Run("empty input", func(t *testing.T) {
		answer, sources, structured := parseAnswer("   \n  ")
		assert.False(t, structured)
		assert.Empty(t, answer)
		assert.Nil(t, sources)
	})
}

func TestJoinContinuation(t *testing.T) {
	t.Run("plain append", func(t *testing.T) {
		got := joinContinuation("The answer starts here", "and continues here.")
		assert.Equal(t, "The answer starts here and continues here.", got)
	})

	t.Run("overlapping restart is deduplicated", func(t *testing.T) {
		got := joinContinuation(
			"Water boils at 100 degrees",
			"at 100 degrees Celsius at sea level.",
		)
		assert.Equal(t, "Water boils at 100 degrees Celsius at sea level.", got)
	})

	t.Run("continuation that fully repeats adds nothing", func(t *testing.T) {
		got := joinContinuation("Complete sentence.", "sentence.")
		assert.Equal(t, "Complete sentence.", got)
	})

	t.Run("empty continuation", func(t *testing.T) {
		got := joinContinuation("Unfinished thought", "")
		assert.Equal(t, "Unfinished thought", got)
	})
}

func TestStripFences(t *testing.T) {
	assert.Equal(t, `{"a":1}`, stripFences("```json\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, stripFences("```\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, stripFences(`{"a":1}`))
	assert.Equal(t, "plain", stripFences("  plain  "))
}

func TestRepairJSON(t *testing.T) {
	assert.Equal(t,
		`{"answer": "x", "sources": []}`,
		repairJSON(`{"answer": "x", sources": []}`))
	// Already valid input passes through untouched.
	valid := `{"answer": "x", "sources": ["KB-1"]}`
	assert.Equal(t, valid, repairJSON(valid))
}
