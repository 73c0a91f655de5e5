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


package core

import (
	"fmt"
	"strings"
	"time"
)

// ValidateSnippet validates a Snippet according to domain rules.
//
// Validation rules:
//   - Text must not be empty after trimming
//   - Dataset must not be empty
//   - Kind must be valid
//   - Timestamp must not be in the future
//
// NOT validated (populated by the indexer):
//   - Vector (empty until the indexer runs)
//   - Indexed (false until the indexer runs)
//   - ID (0 is valid before content hashing)
func ValidateSnippet(snippet *Snippet) error {
	if snippet == nil {
		return fmt.Errorf("%w: snippet is nil", ErrInvalidSnippet)
	}

	if strings.TrimSpace(snippet.Text) == "" {
		return fmt.Errorf("%w: %w", ErrInvalidSnippet, ErrEmptyText)
	}

	if snippet.Dataset == "" {
		return fmt.Errorf("%w: %w", ErrInvalidSnippet, ErrEmptyDataset)
	}

	if err := ValidateKind(snippet.Kind); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidSnippet, err)
	}

	if !IsValidTimestamp(snippet.Timestamp) {
		return fmt.Errorf("%w: %w", ErrInvalidSnippet, ErrInvalidTimestamp)
	}

	return nil
}

// ValidateKind validates that a Kind has a valid value.
func ValidateKind(kind Kind) error {
	if kind != KindDocument && kind != KindMessage && kind != KindNote {
		return fmt.Errorf("%w: value %d", ErrInvalidKind, kind)
	}
	return nil
}

// ValidateRequestContext validates the immutable fields of a request.
func ValidateRequestContext(rc *RequestContext) error {
	if rc == nil {
		return fmt.Errorf("%w: context is nil", ErrInvalidRequest)
	}

	if rc.SubjectID <= 0 {
		return fmt.Errorf("%w: %w", ErrInvalidRequest, ErrInvalidSubject)
	}

	if rc.Mode != ModeKnowledge && rc.Mode != ModeGeneral {
		return fmt.Errorf("%w: %w", ErrInvalidRequest, ErrInvalidMode)
	}

	return nil
}

// IsValidTimestamp checks if a timestamp is valid (not in the future).
func IsValidTimestamp(ts time.Time) bool {
	return !ts.After(time.Now())
}
