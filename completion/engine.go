package completion

import (
	"context"
	"errors"
	"log/slog"

	"github.com/poiesic/answerit/ai"
	"github.com/poiesic/answerit/core"
)

// ErrCompleterRequired is returned when a completer is not provided.
var ErrCompleterRequired = errors.New("completer required")

const (
	defaultMaxAttempts = 2
	defaultMaxTokens   = 1024
)

// Engine orchestrates one logical completion: the primary call, at most
// one continuation when the provider truncates, and at most one retry
// when the extracted answer is empty.
type Engine struct {
	completer   ai.Completer
	maxTokens   int
	maxAttempts int
	logger      *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine) error

// WithMaxTokens sets the per-call token budget.
// Default is 1024.
func WithMaxTokens(n int) Option {
	return func(e *Engine) error {
		if n > 0 {
			e.maxTokens = n
		}
		return nil
	}
}

// WithMaxAttempts sets the default attempt cap used when a request
// budget doesn't carry one. Default is 2.
func WithMaxAttempts(n int) Option {
	return func(e *Engine) error {
		if n > 0 {
			e.maxAttempts = n
		}
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) error {
		if logger == nil {
			logger = slog.Default()
		}
		e.logger = logger
		return nil
	}
}

// NewEngine creates a completion engine over the given completer.
func NewEngine(completer ai.Completer, opts ...Option) (*Engine, error) {
	if completer == nil {
		return nil, ErrCompleterRequired
	}

	e := &Engine{
		completer:   completer,
		maxTokens:   defaultMaxTokens,
		maxAttempts: defaultMaxAttempts,
		logger:      slog.Default().With("component", "completion-engine"),
	}

	for _, opt := range opts {
		if err := opt(e); err != nil {
			return nil, err
		}
	}

	return e, nil
}

// Complete runs one logical completion over the given prompts. knownIDs
// are the entry ids that were offered to the model; sources the model
// claims outside that set are discarded. A (nil, nil) return means the
// model produced no usable answer within the attempt budget; the caller
// decides what stage comes next.
//
// The returned result carries no Origin; the pipeline stage that invoked
// the engine assigns it.
func (e *Engine) Complete(ctx context.Context, systemPrompt, userPrompt string, knownIDs []string, budget core.Budget) (*core.QAResult, error) {
	maxAttempts := budget.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = e.maxAttempts
	}

	continuationUsed := false
	toolCalls := 0

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		completion, err := e.completer.Complete(ctx, systemPrompt, userPrompt, e.maxTokens)
		if err != nil {
			// Transport/provider failure escalates to the next
			// pipeline stage, it does not abort the request here.
			e.logger.Warn("completion call failed", "attempt", attempt, "err", err)
			return nil, err
		}

		content := completion.Content
		toolCalls += completion.ToolCalls

		// Truncated output gets exactly one continuation per logical
		// answer, even if the continuation itself is truncated again.
		if completion.Truncated() && !continuationUsed {
			continuationUsed = true
			var contCalls int
			content, contCalls = e.continueAnswer(ctx, systemPrompt, userPrompt, content)
			toolCalls += contCalls
		}

		answer, modelSources, structured := parseAnswer(content)
		if answer == "" {
			e.logger.Debug("empty answer from model",
				"attempt", attempt, "structured", structured)
			continue
		}

		return &core.QAResult{
			Answer:    answer,
			Sources:   resolveSources(modelSources, knownIDs),
			ToolCalls: toolCalls,
		}, nil
	}

	return nil, nil
}

// continueAnswer issues the single continuation call and joins its
// output onto what was already produced, reporting the continuation's
// tool-call count. A failed continuation leaves the truncated text in
// place; partial is better than nothing.
func (e *Engine) continueAnswer(ctx context.Context, systemPrompt, userPrompt, produced string) (string, int) {
	contPrompt := BuildContinuationPrompt(userPrompt, produced)
	continuation, err := e.completer.Complete(ctx, systemPrompt, contPrompt, e.maxTokens)
	if err != nil {
		e.logger.Warn("continuation call failed", "err", err)
		return produced, 0
	}
	if continuation.Content == "" {
		return produced, continuation.ToolCalls
	}
	return joinContinuation(produced, continuation.Content), continuation.ToolCalls
}

// resolveSources applies the source attribution policy: model-claimed
// sources filtered to the offered set; an emptied set falls back to the
// full offered list; with nothing offered at all, the general-knowledge
// marker stands in. The result is never empty.
func resolveSources(modelSources, knownIDs []string) []string {
	if len(knownIDs) == 0 {
		return []string{core.GeneralKnowledgeSource}
	}

	known := make(map[string]bool, len(knownIDs))
	for _, id := range knownIDs {
		known[id] = true
	}

	var filtered []string
	seen := make(map[string]bool)
	for _, s := range modelSources {
		if known[s] && !seen[s] {
			filtered = append(filtered, s)
			seen[s] = true
		}
	}

	if len(filtered) == 0 {
		return append([]string(nil), knownIDs...)
	}
	return filtered
}
