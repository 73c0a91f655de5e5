package openai

import (
	"context"
	"log/slog"
	"time"

	"github.com/poiesic/answerit/ai"
)

// LoggingCompleter decorates an ai.Completer with structured request and
// response logging. It is composed explicitly at construction, so any
// completer implementation can be observed without touching its client.
type LoggingCompleter struct {
	inner  ai.Completer
	logger *slog.Logger
}

var _ ai.Completer = (*LoggingCompleter)(nil)

// NewLoggingCompleter wraps a completer with logging. A nil logger uses
// slog.Default().
func NewLoggingCompleter(inner ai.Completer, logger *slog.Logger) *LoggingCompleter {
	if logger == nil {
		logger = slog.Default()
	}
	return &LoggingCompleter{
		inner:  inner,
		logger: logger.With("component", "completer"),
	}
}

// Complete delegates to the wrapped completer, logging the call shape and
// outcome.
func (l *LoggingCompleter) Complete(ctx context.Context, system, user string, maxTokens int) (*ai.Completion, error) {
	start := time.Now()
	l.logger.Debug("completion call",
		"system_len", len(system),
		"user_len", len(user),
		"max_tokens", maxTokens,
	)

	completion, err := l.inner.Complete(ctx, system, user, maxTokens)
	if err != nil {
		l.logger.Error("completion failed", "elapsed", time.Since(start), "err", err)
		return nil, err
	}

	l.logger.Debug("completion done",
		"elapsed", time.Since(start),
		"content_len", len(completion.Content),
		"stop_reason", completion.StopReason,
		"tool_calls", completion.ToolCalls,
	)
	return completion, nil
}
