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
	"log/slog"
	"time"

	"github.com/poiesic/answerit/ai"
	"github.com/poiesic/answerit/ai/openai"
	"github.com/poiesic/answerit/completion"
	"github.com/poiesic/answerit/core"
	"github.com/poiesic/answerit/dedupe"
	"github.com/poiesic/answerit/ingestion"
	"github.com/poiesic/answerit/pipeline"
	"github.com/poiesic/answerit/projection"
	"github.com/poiesic/answerit/retrieval"
	"github.com/poiesic/answerit/storage"
	"github.com/poiesic/answerit/storage/badger"
)

// System wires storage, ingestion, retrieval and the answering pipeline
// into one unit with a single Close.
type System struct {
	backend *badger.Backend
	repo    storage.SnippetRepository
	indexer *ingestion.Indexer
	tracker *projection.Tracker
	provider ai.AIProvider
	cache   *dedupe.Cache
	service *pipeline.Service
	logger  *slog.Logger
}

// SystemOption configures a System.
type SystemOption func(*systemOptions)

type systemOptions struct {
	aiConfig *ai.Config
	provider ai.AIProvider
	budget   core.Budget
	dedupeTTL time.Duration
	inMemory bool
	logger   *slog.Logger
}

// WithAIConfig sets the AI provider configuration.
func WithAIConfig(config *ai.Config) SystemOption {
	return func(o *systemOptions) {
		o.aiConfig = config
	}
}

// WithProvider injects a pre-built AI provider, mainly for tests.
func WithProvider(provider ai.AIProvider) SystemOption {
	return func(o *systemOptions) {
		o.provider = provider
	}
}

// WithBudget sets the per-request attempt and wall-clock budget.
func WithBudget(budget core.Budget) SystemOption {
	return func(o *systemOptions) {
		o.budget = budget
	}
}

// WithDedupeTTL sets how long an answered fingerprint is served from
// cache.
func WithDedupeTTL(ttl time.Duration) SystemOption {
	return func(o *systemOptions) {
		o.dedupeTTL = ttl
	}
}

// WithInMemoryStore keeps the knowledge store in memory instead of on
// disk, mainly for tests.
func WithInMemoryStore() SystemOption {
	return func(o *systemOptions) {
		o.inMemory = true
	}
}

// WithLogger sets the logger shared by all components.
func WithLogger(logger *slog.Logger) SystemOption {
	return func(o *systemOptions) {
		o.logger = logger
	}
}

// NewSystem opens the store at filePath and assembles the full
// answering stack on top of it.
func NewSystem(filePath string, opts ...SystemOption) (*System, error) {
	options := &systemOptions{
		aiConfig:  ai.DefaultConfig(),
		dedupeTTL: dedupe.DefaultTTL,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(options)
	}

	backend, err := badger.OpenBackend(filePath, options.inMemory)
	if err != nil {
		return nil, err
	}

	repo, err := badger.NewSnippetRepository(backend)
	if err != nil {
		backend.Close()
		return nil, err
	}

	provider := options.provider
	if provider == nil {
		provider, err = openai.NewProvider(options.aiConfig)
		if err != nil {
			backend.Close()
			return nil, err
		}
	}

	indexer, err := ingestion.NewIndexer(repo, provider.Embedder(), ingestion.WithLogger(options.logger))
	if err != nil {
		provider.Close()
		backend.Close()
		return nil, err
	}

	prober, err := projection.NewStoreProber(repo)
	if err != nil {
		indexer.Close()
		provider.Close()
		backend.Close()
		return nil, err
	}
	tracker, err := projection.NewTracker(prober, projection.WithLogger(options.logger))
	if err != nil {
		indexer.Close()
		provider.Close()
		backend.Close()
		return nil, err
	}

	retriever, err := retrieval.NewRetriever(repo, provider.Embedder(), tracker,
		retrieval.WithLogger(options.logger))
	if err != nil {
		indexer.Close()
		provider.Close()
		backend.Close()
		return nil, err
	}

	engine, err := completion.NewEngine(provider.Completer(),
		completion.WithLogger(options.logger),
		completion.WithMaxTokens(options.aiConfig.MaxTokens))
	if err != nil {
		indexer.Close()
		provider.Close()
		backend.Close()
		return nil, err
	}

	cache, err := dedupe.NewCache(options.dedupeTTL)
	if err != nil {
		indexer.Close()
		provider.Close()
		backend.Close()
		return nil, err
	}

	serviceOpts := []pipeline.Option{
		pipeline.WithDedupeCache(cache),
		pipeline.WithLogger(options.logger),
	}
	if options.budget.MaxAttempts > 0 || options.budget.MaxWait > 0 {
		serviceOpts = append(serviceOpts, pipeline.WithBudget(options.budget))
	}
	service, err := pipeline.NewService(retriever, engine, serviceOpts...)
	if err != nil {
		cache.Close()
		indexer.Close()
		provider.Close()
		backend.Close()
		return nil, err
	}

	return &System{
		backend: backend,
		repo:    repo,
		indexer: indexer,
		tracker: tracker,
		provider: provider,
		cache:   cache,
		service: service,
		logger:  options.logger,
	}, nil
}

// Answer resolves one question through the pipeline.
func (s *System) Answer(ctx context.Context, req *pipeline.Request) (*core.QAResult, error) {
	return s.service.Answer(ctx, req)
}

// AddKnowledge stores snippets and queues them for embedding. The rows
// are visible to raw reads immediately; semantic search sees them once
// the background indexer has run.
func (s *System) AddKnowledge(ctx context.Context, snippets ...*core.Snippet) error {
	if _, err := s.repo.AddSnippets(ctx, snippets...); err != nil {
		return err
	}
	return s.indexer.Submit(ctx, snippets...)
}

// Flush blocks until all queued indexing work has finished.
func (s *System) Flush() {
	s.indexer.Flush()
}

// Service exposes the answering pipeline, e.g. for mounting the HTTP
// server.
func (s *System) Service() *pipeline.Service {
	return s.service
}

// Repository exposes the snippet store.
func (s *System) Repository() storage.SnippetRepository {
	return s.repo
}

// Tracker exposes dataset readiness state.
func (s *System) Tracker() *projection.Tracker {
	return s.tracker
}

func (s *System) Close() error {
	if err := s.indexer.Close(); err != nil {
		s.logger.Error("error closing indexer", "err", err)
	}
	s.cache.Close()
	if err := s.provider.Close(); err != nil {
		s.logger.Error("error closing AI provider", "err", err)
	}
	if err := s.backend.Close(); err != nil {
		s.logger.Error("error closing backend storage", "err", err)
		return err
	}
	return nil
}
