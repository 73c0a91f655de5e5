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


package pipeline

import (
	"context"
	"log/slog"
	"strconv"
	"strings"

	"github.com/poiesic/answerit/completion"
	"github.com/poiesic/answerit/core"
	"github.com/poiesic/answerit/retrieval"
)

// Orchestrator runs the degraded stages after the primary completion
// has produced nothing: one fallback completion over freshly retrieved
// entries, then an extractive summary of those entries, then an abort.
// A request passes through here at most once.
type Orchestrator struct {
	retriever *retrieval.Retriever
	engine    *completion.Engine
	logger    *slog.Logger
}

// NewOrchestrator builds the fallback chain. retriever may be nil when
// the caller has no knowledge store at all; the extractive stage is
// then skipped and empty primaries abort.
func NewOrchestrator(retriever *retrieval.Retriever, engine *completion.Engine, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		retriever: retriever,
		engine:    engine,
		logger:    logger.With("component", "fallback"),
	}
}

// Run walks the degraded stages. entries are what the primary stage
// already retrieved; when the primary saw nothing, retrieval is tried
// once more here before giving up on the knowledge store.
func (o *Orchestrator) Run(ctx context.Context, rc *core.RequestContext, prompt string, entries []*core.Snippet) (*core.QAResult, error) {
	if rc.FallbackUsed {
		return nil, core.NewAbort(core.AbortUnavailable, "fallback already exhausted")
	}
	rc.FallbackUsed = true

	if len(entries) == 0 && o.retriever != nil {
		var err error
		entries, _, err = o.retriever.Retrieve(ctx, rc.SubjectID, prompt, topK, rc.RequestID)
		if err != nil {
			o.logger.Warn("fallback retrieval degraded", "error", err, "requestId", rc.RequestID)
		}
	}

	if result := o.complete(ctx, rc, prompt, entries); result != nil {
		result.Origin = core.OriginFallback
		return result, nil
	}
	if ctx.Err() != nil {
		return nil, core.NewAbort(core.AbortTimeout, "fallback completion")
	}

	if len(entries) > 0 {
		o.logger.Info("answering with extractive summary",
			"entries", len(entries), "requestId", rc.RequestID)
		return Summarize(entries, rc.SubjectID), nil
	}

	return nil, core.NewAbort(core.AbortUnavailable, "no model answer and no knowledge entries")
}

// complete runs the fallback completion and rewrites its entry-id
// sources into the dataset aliases those entries came from, so the
// caller sees where the knowledge lives rather than prompt-local ids.
func (o *Orchestrator) complete(ctx context.Context, rc *core.RequestContext, prompt string, entries []*core.Snippet) *core.QAResult {
	system := completion.BuildSystemPrompt(rc.Locale)
	user, knownIDs := completion.BuildUserPrompt(prompt, entries)

	// The fallback completion gets a single attempt; the retry budget
	// was already spent on the primary.
	budget := core.Budget{MaxAttempts: 1, MaxWait: rc.Budget.MaxWait}

	result, err := o.engine.Complete(ctx, system, user, knownIDs, budget)
	if err != nil || result == nil {
		if err != nil {
			o.logger.Warn("fallback completion failed", "error", err, "requestId", rc.RequestID)
		}
		return nil
	}
	rc.ToolCallsUsed += result.ToolCalls
	result.Sources = datasetsForIDs(result.Sources, entries)
	return result
}

// datasetsForIDs maps cited entry ids back to the datasets of the
// entries they name, first-seen order, deduplicated. Non-entry sources
// such as the general-knowledge marker pass through untouched.
func datasetsForIDs(sources []string, entries []*core.Snippet) []string {
	if len(entries) == 0 {
		return sources
	}
	seen := make(map[string]bool, len(sources))
	mapped := make([]string, 0, len(sources))
	for _, src := range sources {
		name := src
		if idx, ok := parseEntryID(src); ok && idx <= len(entries) {
			name = entries[idx-1].Dataset
		}
		if !seen[name] {
			seen[name] = true
			mapped = append(mapped, name)
		}
	}
	return mapped
}

// parseEntryID recognizes the KB-n ids assigned to prompt entries and
// returns the 1-based index.
func parseEntryID(src string) (int, bool) {
	rest, ok := strings.CutPrefix(src, "KB-")
	if !ok {
		return 0, false
	}
	idx, err := strconv.Atoi(rest)
	if err != nil || idx < 1 {
		return 0, false
	}
	return idx, true
}
