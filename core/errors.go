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
	"errors"
	"fmt"
)

// Domain validation errors
var (
	// ErrInvalidSnippet indicates a Snippet failed validation.
	ErrInvalidSnippet = errors.New("invalid snippet")

	// ErrEmptyText indicates the Text field is empty after trimming.
	ErrEmptyText = errors.New("text cannot be empty")

	// ErrEmptyDataset indicates the Dataset field is empty.
	ErrEmptyDataset = errors.New("dataset cannot be empty")

	// ErrInvalidKind indicates an invalid Kind value.
	ErrInvalidKind = errors.New("invalid snippet kind")

	// ErrInvalidTimestamp indicates a timestamp is in the future.
	ErrInvalidTimestamp = errors.New("timestamp cannot be in the future")

	// ErrInvalidRequest indicates an inbound request failed validation.
	ErrInvalidRequest = errors.New("invalid request")

	// ErrEmptyPrompt indicates the request prompt is empty after trimming.
	ErrEmptyPrompt = errors.New("prompt cannot be empty")

	// ErrInvalidMode indicates an unrecognized request mode.
	ErrInvalidMode = errors.New("invalid mode")

	// ErrInvalidSubject indicates a non-positive subject id.
	ErrInvalidSubject = errors.New("subject id must be positive")
)

// Abort reasons surfaced to callers on a non-200 outcome. These are the
// machine-readable half of the wire contract; the human message travels
// separately.
const (
	AbortTimeout             = "timeout"
	AbortMaxAttemptsExceeded = "max_attempts_exceeded"
	AbortKnowledgeBaseEmpty  = "knowledge_base_empty"
	AbortModelEmptyResponse  = "model_empty_response"
	AbortUnavailable         = "ask_ai_unavailable"
)

// AbortError is the only error class surfaced to callers as a distinct
// non-200 outcome. Reason is machine-readable, Detail is for humans.
type AbortError struct {
	Reason string
	Detail string
}

// Error implements the error interface.
func (e *AbortError) Error() string {
	return fmt.Sprintf("request aborted (%s): %s", e.Reason, e.Detail)
}

// NewAbort creates an AbortError with the given reason and detail.
func NewAbort(reason, detail string) *AbortError {
	return &AbortError{Reason: reason, Detail: detail}
}

// AsAbort unwraps err into an AbortError if it is one.
func AsAbort(err error) (*AbortError, bool) {
	var abort *AbortError
	if errors.As(err, &abort) {
		return abort, true
	}
	return nil, false
}
