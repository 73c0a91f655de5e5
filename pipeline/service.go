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
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/poiesic/answerit/completion"
	"github.com/poiesic/answerit/core"
	"github.com/poiesic/answerit/dedupe"
	"github.com/poiesic/answerit/retrieval"
)

// Errors returned when a Service is built without its required parts.
var (
	ErrEngineRequired = errors.New("pipeline: completion engine is required")
)

// Defaults applied when the caller leaves the budget unset.
const (
	defaultMaxAttempts = 2
	defaultMaxWait     = 25 * time.Second
)

// Request is one inbound question.
type Request struct {
	SubjectID        int64
	Prompt           string
	Locale           string
	Mode             core.Mode
	AttachmentDigest string
	RequestID        string
}

// Service is the entry point for answering. It collapses identical
// concurrent requests onto one pipeline run, serves recent repeats from
// the dedupe cache, and dispatches the rest to the handler for the
// request's mode.
type Service struct {
	handlers map[core.Mode]Handler
	cache    *dedupe.Cache
	group    singleflight.Group
	budget   core.Budget
	logger   *slog.Logger
}

// Option configures a Service.
type Option func(*Service) error

// WithDedupeCache installs the request-collapsing cache. Without one,
// every request runs the pipeline.
func WithDedupeCache(cache *dedupe.Cache) Option {
	return func(s *Service) error {
		s.cache = cache
		return nil
	}
}

// WithBudget overrides the default per-request budget.
func WithBudget(budget core.Budget) Option {
	return func(s *Service) error {
		if budget.MaxAttempts > 0 {
			s.budget.MaxAttempts = budget.MaxAttempts
		}
		if budget.MaxWait > 0 {
			s.budget.MaxWait = budget.MaxWait
		}
		return nil
	}
}

// WithLogger sets the logger for the service and its handlers.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) error {
		if logger != nil {
			s.logger = logger
		}
		return nil
	}
}

// NewService wires the mode handlers around a retriever and engine.
// retriever may be nil; knowledge-mode requests then answer from the
// model alone or abort.
func NewService(retriever *retrieval.Retriever, engine *completion.Engine, opts ...Option) (*Service, error) {
	if engine == nil {
		return nil, ErrEngineRequired
	}

	s := &Service{
		budget: core.Budget{MaxAttempts: defaultMaxAttempts, MaxWait: defaultMaxWait},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	s.logger = s.logger.With("component", "pipeline")

	orchestrator := NewOrchestrator(retriever, engine, s.logger)
	s.handlers = map[core.Mode]Handler{
		core.ModeKnowledge: &knowledgeHandler{
			retriever:    retriever,
			engine:       engine,
			orchestrator: orchestrator,
			logger:       s.logger,
		},
		core.ModeGeneral: &generalHandler{
			engine: engine,
			logger: s.logger,
		},
	}
	return s, nil
}

// Answer resolves one request. Byte-identical requests arriving while
// one is in flight share that run's result; repeats within the cache
// TTL are served without touching the model at all and come back with
// OriginCached.
func (s *Service) Answer(ctx context.Context, req *Request) (*core.QAResult, error) {
	if req == nil || strings.TrimSpace(req.Prompt) == "" {
		return nil, fmt.Errorf("%w: %w", core.ErrInvalidRequest, core.ErrEmptyPrompt)
	}
	if req.SubjectID <= 0 {
		return nil, fmt.Errorf("%w: %w", core.ErrInvalidRequest, core.ErrInvalidSubject)
	}
	if _, ok := s.handlers[req.Mode]; !ok {
		return nil, fmt.Errorf("%w: %q", core.ErrInvalidMode, req.Mode)
	}

	fp := dedupe.Fingerprint(req.SubjectID, req.Mode, req.Prompt, req.AttachmentDigest)

	if s.cache != nil {
		if cached, ok := s.cache.Lookup(fp); ok {
			s.logger.Debug("dedupe cache hit", "subjectId", req.SubjectID, "requestId", req.RequestID)
			return &core.QAResult{
				Answer:  cached.Answer,
				Sources: cached.Sources,
				Origin:  core.OriginCached,
			}, nil
		}
	}

	v, err, shared := s.group.Do(fp, func() (any, error) {
		return s.run(ctx, req, fp)
	})
	if err != nil {
		return nil, err
	}
	if shared {
		s.logger.Debug("request collapsed onto in-flight run",
			"subjectId", req.SubjectID, "requestId", req.RequestID)
	}
	return v.(*core.QAResult), nil
}

func (s *Service) run(ctx context.Context, req *Request, fp string) (*core.QAResult, error) {
	rc := &core.RequestContext{
		SubjectID: req.SubjectID,
		Locale:    req.Locale,
		Mode:      req.Mode,
		Budget:    s.budget,
		RequestID: requestID(req, fp),
	}

	ctx, cancel := context.WithTimeout(ctx, rc.Budget.MaxWait)
	defer cancel()

	started := time.Now()
	result, err := s.handlers[rc.Mode].Handle(ctx, rc, req.Prompt)
	if err != nil {
		if _, ok := core.AsAbort(err); !ok && ctx.Err() != nil {
			err = core.NewAbort(core.AbortTimeout, "request budget exhausted")
		}
		s.logger.Warn("request aborted",
			"subjectId", rc.SubjectID,
			"requestId", rc.RequestID,
			"error", err,
			"elapsed", time.Since(started))
		return nil, err
	}

	result, err = Finalize(result)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		s.cache.Store(fp, result)
	}
	s.logger.Info("request answered",
		"subjectId", rc.SubjectID,
		"requestId", rc.RequestID,
		"origin", result.Origin,
		"sources", len(result.Sources),
		"toolCalls", rc.ToolCallsUsed,
		"elapsed", time.Since(started))
	return result, nil
}

// requestID keeps a caller-provided id and otherwise derives a stable
// short one from the fingerprint.
func requestID(req *Request, fp string) string {
	if req.RequestID != "" {
		return req.RequestID
	}
	if len(fp) > 12 {
		return fp[:12]
	}
	return fp
}
