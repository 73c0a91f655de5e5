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

const (
	// maxSummaryEntries caps how many snippets the extractive summary
	// quotes.
	maxSummaryEntries = 3

	// maxExcerptLen is the per-snippet excerpt length, cut back to the
	// nearest word boundary.
	maxExcerptLen = 280
)

// Summarize builds a model-free answer by quoting the most relevant
// snippets verbatim. Entries from the subject's own datasets are
// preferred over shared ones; within each group the retrieval order is
// kept.
func Summarize(entries []*core.Snippet, subjectID int64) *core.QAResult {
	picked := pickSummaryEntries(entries, subjectID)
	if len(picked) == 0 {
		return nil
	}

	var b strings.Builder
	b.WriteString("I could not generate a direct answer, but here is what I found:\n")
	for _, e := range picked {
		b.WriteString("\n- ")
		b.WriteString(excerpt(e.Text))
	}

	seen := make(map[string]bool, len(picked))
	sources := make([]string, 0, len(picked))
	for _, e := range picked {
		if !seen[e.Dataset] {
			seen[e.Dataset] = true
			sources = append(sources, e.Dataset)
		}
	}

	return &core.QAResult{
		Answer:  b.String(),
		Sources: sources,
		Origin:  core.OriginExtractive,
	}
}

func pickSummaryEntries(entries []*core.Snippet, subjectID int64) []*core.Snippet {
	picked := make([]*core.Snippet, 0, maxSummaryEntries)
	for _, e := range entries {
		if retrieval.IsSubjectDataset(e.Dataset, subjectID) {
			picked = append(picked, e)
			if len(picked) == maxSummaryEntries {
				return picked
			}
		}
	}
	for _, e := range entries {
		if !retrieval.IsSubjectDataset(e.Dataset, subjectID) {
			picked = append(picked, e)
			if len(picked) == maxSummaryEntries {
				break
			}
		}
	}
	return picked
}

// excerpt shortens text to maxExcerptLen runes, backing up to the last
// space so a word is never cut in half.
func excerpt(text string) string {
	text = strings.TrimSpace(text)
	runes := []rune(text)
	if len(runes) <= maxExcerptLen {
		return text
	}
	cut := string(runes[:maxExcerptLen])
	if i := strings.LastIndexByte(cut, ' '); i > 0 {
		cut = cut[:i]
	}
	return strings.TrimRight(cut, " .,;:") + "…"
}
