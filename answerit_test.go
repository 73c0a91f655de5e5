// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package answerit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/answerit/ai"
	"github.com/poiesic/answerit/ai/mock"
	"github.com/poiesic/answerit/core"
	"github.com/poiesic/answerit/pipeline"
)

func newTestSystem(t *testing.T) (*System, *mock.MockCompleter) {
	t.Helper()

	embedder := mock.NewMockEmbedder()
	embedder.EmbedTextFunc = func(ctx context.Context, text string) ([]float32, error) {
		return []float32{1, 0}, nil
	}
	completer := mock.NewMockCompleter()

	system, err := NewSystem("",
		WithInMemoryStore(),
		WithProvider(mock.NewMockProviderWithServices(embedder, completer)),
		WithBudget(core.Budget{MaxAttempts: 1, MaxWait: 5 * time.Second}),
	)
	require.NoError(t, err)
	t.Cleanup(func() { system.Close() })

	return system, completer
}

func TestSystemEndToEnd(t *testing.T) {
	system, completer := newTestSystem(t)
	ctx := context.Background()

	err := system.AddKnowledge(ctx, &core.Snippet{
		Text:      "the backup runs every night at 2am",
		Dataset:   "subject-1",
		Kind:      core.KindNote,
		Timestamp: time.Now().UTC(),
	})
	require.NoError(t, err)

	// Wait for the background indexer so the row is searchable.
	system.Flush()

	indexed, err := system.Repository().CountIndexed(ctx, "subject-1")
	require.NoError(t, err)
	require.Equal(t, 1, indexed)

	completer.ScriptText(`{"answer": "Nightly at 2am.", "sources": ["KB-1"]}`, ai.StopReasonStop)

	result, err := system.Answer(ctx, &pipeline.Request{
		SubjectID: 1,
		Prompt:    "when do backups run?",
		Mode:      core.ModeKnowledge,
	})
	require.NoError(t, err)

	assert.Equal(t, "Nightly at 2am.", result.Answer)
	assert.Equal(t, core.OriginPrimary, result.Origin)
	assert.Equal(t, []string{"KB-1"}, result.Sources)
}

func TestSystemAnswerBeforeIndexing(t *testing.T) {
	system, completer := newTestSystem(t)
	ctx := context.Background()

	// Store a row but keep the indexer from ever seeing it; the raw
	// fallback still grounds the answer in the subject's data.
	_, err := system.Repository().AddSnippets(ctx, &core.Snippet{
		Text:      "freshly written, not yet embedded",
		Dataset:   "subject-2",
		Kind:      core.KindNote,
		Timestamp: time.Now().UTC(),
	})
	require.NoError(t, err)

	completer.ScriptText(`{"answer": "Answered from raw rows.", "sources": []}`, ai.StopReasonStop)

	result, err := system.Answer(ctx, &pipeline.Request{
		SubjectID: 2,
		Prompt:    "what was just written?",
		Mode:      core.ModeKnowledge,
	})
	require.NoError(t, err)
	assert.Equal(t, "Answered from raw rows.", result.Answer)
	// Empty model sources fall back to all offered entries.
	assert.Equal(t, []string{"KB-1"}, result.Sources)
}
