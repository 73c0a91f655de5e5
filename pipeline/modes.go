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

	"github.com/poiesic/answerit/completion"
	"github.com/poiesic/answerit/core"
	"github.com/poiesic/answerit/retrieval"
)

// topK bounds how many knowledge entries a single answer may draw on.
const topK = 6

// Handler produces an answer for one request mode.
type Handler interface {
	Mode() core.Mode
	Handle(ctx context.Context, rc *core.RequestContext, prompt string) (*core.QAResult, error)
}

// knowledgeHandler grounds the answer in retrieved snippets and falls
// back through the orchestrator when the primary completion comes up
// empty.
type knowledgeHandler struct {
	retriever    *retrieval.Retriever
	engine       *completion.Engine
	orchestrator *Orchestrator
	logger       *slog.Logger
}

func (h *knowledgeHandler) Mode() core.Mode { return core.ModeKnowledge }

func (h *knowledgeHandler) Handle(ctx context.Context, rc *core.RequestContext, prompt string) (*core.QAResult, error) {
	var entries []*core.Snippet
	if h.retriever != nil {
		var datasets []string
		var err error
		entries, datasets, err = h.retriever.Retrieve(ctx, rc.SubjectID, prompt, topK, rc.RequestID)
		if err != nil {
			// Retrieval degradation is survivable; the fallback chain
			// still has the generic stages to try.
			h.logger.Warn("retrieval degraded", "error", err, "requestId", rc.RequestID)
		}
		h.logger.Debug("retrieval done",
			"entries", len(entries), "datasets", datasets, "requestId", rc.RequestID)
	}

	system := completion.BuildSystemPrompt(rc.Locale)
	user, knownIDs := completion.BuildUserPrompt(prompt, entries)

	result, err := h.engine.Complete(ctx, system, user, knownIDs, rc.Budget)
	if err == nil && result != nil {
		rc.ToolCallsUsed += result.ToolCalls
		result.Origin = core.OriginPrimary
		return result, nil
	}
	if ctx.Err() != nil {
		return nil, core.NewAbort(core.AbortTimeout, "knowledge completion")
	}
	return h.orchestrator.Run(ctx, rc, prompt, entries)
}

// generalHandler answers from the model alone. There is nothing to
// retrieve and nothing to summarize, so an absent answer aborts
// directly.
type generalHandler struct {
	engine *completion.Engine
	logger *slog.Logger
}

func (h *generalHandler) Mode() core.Mode { return core.ModeGeneral }

func (h *generalHandler) Handle(ctx context.Context, rc *core.RequestContext, prompt string) (*core.QAResult, error) {
	system := completion.BuildSystemPrompt(rc.Locale)
	user, _ := completion.BuildUserPrompt(prompt, nil)

	result, err := h.engine.Complete(ctx, system, user, nil, rc.Budget)
	if err != nil || result == nil {
		if ctx.Err() != nil {
			return nil, core.NewAbort(core.AbortTimeout, "general completion")
		}
		return nil, core.NewAbort(core.AbortModelEmptyResponse, "general completion produced no answer")
	}
	rc.ToolCallsUsed += result.ToolCalls
	result.Origin = core.OriginPrimary
	return result, nil
}
