package completion

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/answerit/ai"
	"github.com/poiesic/answerit/ai/mock"
	"github.com/poiesic/answerit/core"
)

func newTestEngine(t *testing.T, completer *mock.MockCompleter) *Engine {
	t.Helper()
	engine, err := NewEngine(completer)
	require.NoError(t, err)
	return engine
}

func TestCompleteFiltersSourcesToOfferedIDs(t *testing.T) {
	completer := mock.NewMockCompleter()
	completer.ScriptText(`{"answer": "From the second entry.", "sources": ["KB-2", "KB-9", "made-up"]}`, ai.StopReasonStop)

	engine := newTestEngine(t, completer)
	knownIDs := []string{"KB-1", "KB-2", "KB-3", "KB-4", "KB-5", "KB-6"}

	result, err := engine.Complete(context.Background(), "sys", "user", knownIDs, core.Budget{})
	require.NoError(t, err)
	require.NotNil(t, result)

	assert.Equal(t, "From the second entry.", result.Answer)
	// Only ids that were actually offered survive.
	assert.Equal(t, []string{"KB-2"}, result.Sources)
}

func TestCompleteEmptyModelSourcesFallBackToOffered(t *testing.T) {
	completer := mock.NewMockCompleter()
	completer.ScriptText(`{"answer": "Used everything implicitly.", "sources": []}`, ai.StopReasonStop)

	engine := newTestEngine(t, completer)
	knownIDs := []string{"KB-1", "KB-2"}

	result, err := engine.Complete(context.Background(), "sys", "user", knownIDs, core.Budget{})
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, knownIDs, result.Sources)
}

func TestCompleteWithoutEntriesUsesGeneralMarker(t *testing.T) {
	completer := mock.NewMockCompleter()
	completer.ScriptText(`{"answer": "General wisdom.", "sources": []}`, ai.StopReasonStop)

	engine := newTestEngine(t, completer)

	result, err := engine.Complete(context.Background(), "sys", "user", nil, core.Budget{})
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, []string{core.GeneralKnowledgeSource}, result.Sources)
}

func TestCompleteAccumulatesToolCalls(t *testing.T) {
	completer := mock.NewMockCompleter()
	completer.Script(&ai.Completion{
		Content:    `{"answer": "Looked something up`,
		StopReason: ai.StopReasonLength,
		ToolCalls:  2,
	})
	completer.Script(&ai.Completion{
		Content:    ` first.", "sources": []}`,
		StopReason: ai.StopReasonStop,
		ToolCalls:  1,
	})

	engine := newTestEngine(t, completer)

	result, err := engine.Complete(context.Background(), "sys", "user", nil, core.Budget{})
	require.NoError(t, err)
	require.NotNil(t, result)
	// Both the primary call and its continuation contribute.
	assert.Equal(t, 3, result.ToolCalls)
}

func TestCompleteContinuesTruncatedAnswerOnce(t *testing.T) {
	completer := mock.NewMockCompleter()
	completer.ScriptText(`{"answer": "The process has several stages`, ai.StopReasonLength)
	completer.ScriptText(`, ending with assembly.", "sources": ["KB-1"]}`, ai.StopReasonStop)

	engine := newTestEngine(t, completer)

	result, err := engine.Complete(context.Background(), "sys", "user", []string{"KB-1"}, core.Budget{})
	require.NoError(t, err)
	require.NotNil(t, result)

	assert.Equal(t, "The process has several stages , ending with assembly.", result.Answer)
	assert.Equal(t, []string{"KB-1"}, result.Sources)
	assert.Equal(t, 2, completer.CallCount())
}

func TestCompleteContinuationUsedAtMostOnce(t *testing.T) {
	completer := mock.NewMockCompleter()
	// Primary and continuation both truncated; the engine must not issue
	// a second continuation.
	completer.ScriptText("first half of a plain answer", ai.StopReasonLength)
	completer.ScriptText("that is still cut off", ai.StopReasonLength)

	engine := newTestEngine(t, completer)

	result, err := engine.Complete(context.Background(), "sys", "user", nil, core.Budget{MaxAttempts: 1})
	require.NoError(t, err)
	require.NotNil(t, result)

	assert.Equal(t, "first half of a plain answer that is still cut off", result.Answer)
	assert.Equal(t, 2, completer.CallCount())
}

func TestCompleteRetriesOnEmptyAnswer(t *testing.T) {
	completer := mock.NewMockCompleter()
	completer.ScriptText(`{"answer": "", "sources": []}`, ai.StopReasonStop)
	completer.ScriptText(`{"answer": "Second try worked.", "sources": []}`, ai.StopReasonStop)

	engine := newTestEngine(t, completer)

	result, err := engine.Complete(context.Background(), "sys", "user", nil, core.Budget{MaxAttempts: 2})
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, "Second try worked.", result.Answer)
	assert.Equal(t, 2, completer.CallCount())
}

func TestCompleteExhaustedAttemptsReturnsNil(t *testing.T) {
	completer := mock.NewMockCompleter()
	// Queue is empty: every call yields an empty completion.

	engine := newTestEngine(t, completer)

	result, err := engine.Complete(context.Background(), "sys", "user", nil, core.Budget{MaxAttempts: 2})
	require.NoError(t, err)
	assert.Nil(t, result)
	assert.Equal(t, 2, completer.CallCount())
}

func TestCompleteProviderErrorSurfaces(t *testing.T) {
	providerErr := errors.New("connection refused")
	completer := mock.NewMockCompleter()
	completer.ScriptError(providerErr)

	engine := newTestEngine(t, completer)

	result, err := engine.Complete(context.Background(), "sys", "user", nil, core.Budget{})
	assert.Nil(t, result)
	assert.ErrorIs(t, err, providerErr)
}

func TestCompleteFailedContinuationKeepsPartial(t *testing.T) {
	completer := mock.NewMockCompleter()
	completer.ScriptText("a partial but usable answer", ai.StopReasonLength)
	completer.ScriptError(errors.New("continuation failed"))

	engine := newTestEngine(t, completer)

	result, err := engine.Complete(context.Background(), "sys", "user", nil, core.Budget{MaxAttempts: 1})
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, "a partial but usable answer", result.Answer)
}

func TestBuildUserPrompt(t *testing.T) {
	entries := []*core.Snippet{
		{Text: "first fact", Dataset: "subject-1"},
		{Text: "second fact", Dataset: "global"},
	}

	prompt, knownIDs := BuildUserPrompt("what is it?", entries)
	assert.Equal(t, []string{"KB-1", "KB-2"}, knownIDs)
	assert.Contains(t, prompt, "[KB-1] (subject-1) first fact")
	assert.Contains(t, prompt, "[KB-2] (global) second fact")
	assert.Contains(t, prompt, "Question: what is it?")

	prompt, knownIDs = BuildUserPrompt("anything?", nil)
	assert.Nil(t, knownIDs)
	assert.Contains(t, prompt, "general domain knowledge")
}

func TestBuildSystemPromptLocale(t *testing.T) {
	assert.Contains(t, BuildSystemPrompt("de"), `"de"`)
	assert.Contains(t, BuildSystemPrompt(""), `"en"`)
}
