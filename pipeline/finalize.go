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
	"strings"

	"github.com/poiesic/answerit/core"
	"github.com/poiesic/answerit/retrieval"
)

// Finalize normalizes a stage result before it leaves the pipeline.
// The invariant it enforces: a returned result always has a non-empty
// answer and a non-empty source list. Sources are deduplicated and
// ordered private → conversation → global → everything else, keeping
// first-seen order inside each group.
func Finalize(result *core.QAResult) (*core.QAResult, error) {
	if result == nil || strings.TrimSpace(result.Answer) == "" {
		return nil, core.NewAbort(core.AbortModelEmptyResponse, "finalizer received an empty answer")
	}

	result.Answer = strings.TrimSpace(result.Answer)
	result.Sources = orderSources(result.Sources)
	if len(result.Sources) == 0 {
		result.Sources = []string{core.GeneralKnowledgeSource}
	}
	return result, nil
}

func orderSources(sources []string) []string {
	var private, chat, global, other []string
	seen := make(map[string]bool, len(sources))
	for _, src := range sources {
		src = strings.TrimSpace(src)
		if src == "" || seen[src] {
			continue
		}
		seen[src] = true
		switch {
		case retrieval.IsPrivateDataset(src):
			private = append(private, src)
		case retrieval.IsChatDataset(src):
			chat = append(chat, src)
		case src == retrieval.GlobalDataset:
			global = append(global, src)
		default:
			other = append(other, src)
		}
	}

	ordered := make([]string, 0, len(seen))
	ordered = append(ordered, private...)
	ordered = append(ordered, chat...)
	ordered = append(ordered, global...)
	ordered = append(ordered, other...)
	return ordered
}
