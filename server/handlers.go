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


package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/poiesic/answerit/core"
	"github.com/poiesic/answerit/pipeline"
)

// answerRequest is the POST /answer body.
type answerRequest struct {
	SubjectID   int64        `json:"subject_id" binding:"required"`
	Prompt      string       `json:"prompt" binding:"required"`
	Locale      string       `json:"locale"`
	Mode        string       `json:"mode"`
	Attachments []attachment `json:"attachments"`
}

// attachment carries a client-computed content digest. Only the first
// attachment's digest participates in request identity.
type attachment struct {
	Digest string `json:"digest"`
}

func (r *answerRequest) attachmentDigest() string {
	if len(r.Attachments) == 0 {
		return ""
	}
	return r.Attachments[0].Digest
}

// answerResponse is the 200 body. The result's origin tag stays
// internal: a repeat served from the dedupe cache must produce the
// same bytes as the answer it collapsed onto.
type answerResponse struct {
	Answer  string   `json:"answer"`
	Sources []string `json:"sources"`
}

// errorResponse carries the machine-readable reason plus a human detail
// on every non-200 outcome.
type errorResponse struct {
	Reason string `json:"reason"`
	Detail string `json:"detail"`
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleAnswer(c *gin.Context) {
	var req answerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, errorResponse{
			Reason: "invalid_request",
			Detail: err.Error(),
		})
		return
	}

	mode := core.ModeKnowledge
	if req.Mode != "" {
		var ok bool
		mode, ok = core.ParseMode(req.Mode)
		if !ok {
			c.JSON(http.StatusUnprocessableEntity, errorResponse{
				Reason: "invalid_mode",
				Detail: "unknown mode: " + req.Mode,
			})
			return
		}
	}

	result, err := s.service.Answer(c.Request.Context(), &pipeline.Request{
		SubjectID:        req.SubjectID,
		Prompt:           req.Prompt,
		Locale:           req.Locale,
		Mode:             mode,
		AttachmentDigest: req.attachmentDigest(),
		RequestID:        c.GetHeader("X-Request-Id"),
	})
	if err != nil {
		s.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, answerResponse{
		Answer:  result.Answer,
		Sources: result.Sources,
	})
}

// respondError maps pipeline failures onto the wire contract: aborts
// are 408 with their reason, validation failures are 422, anything else
// is a 503.
func (s *Server) respondError(c *gin.Context, err error) {
	if abort, ok := core.AsAbort(err); ok {
		c.JSON(http.StatusRequestTimeout, errorResponse{
			Reason: abort.Reason,
			Detail: abort.Detail,
		})
		return
	}
	if errors.Is(err, core.ErrInvalidRequest) || errors.Is(err, core.ErrInvalidMode) {
		c.JSON(http.StatusUnprocessableEntity, errorResponse{
			Reason: "invalid_request",
			Detail: err.Error(),
		})
		return
	}
	s.logger.Error("request failed", "error", err)
	c.JSON(http.StatusServiceUnavailable, errorResponse{
		Reason: "internal_error",
		Detail: err.Error(),
	})
}
