package mock

import (
	"context"
	"sync"

	"github.com/poiesic/answerit/ai"
)

// scripted is one queued Complete outcome.
type scripted struct {
	completion *ai.Completion
	err        error
}

// MockCompleter is a test double for ai.Completer. Outcomes are queued
// with Script/ScriptError and returned in order; when the queue is empty
// the completer returns an empty Completion with StopReason "stop".
type MockCompleter struct {
	// CompleteFunc is called by Complete if set, bypassing the queue.
	CompleteFunc func(ctx context.Context, system, user string, maxTokens int) (*ai.Completion, error)

	mu        sync.Mutex
	queue     []scripted
	calls     []CompleteCall
	callCount int
}

// CompleteCall records the arguments of one Complete invocation.
type CompleteCall struct {
	System    string
	User      string
	MaxTokens int
}

// NewMockCompleter creates an empty mock completer.
func NewMockCompleter() *MockCompleter {
	return &MockCompleter{}
}

// Script queues a completion outcome.
func (m *MockCompleter) Script(completion *ai.Completion) *MockCompleter {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queue = append(m.queue, scripted{completion: completion})
	return m
}

// ScriptText queues a plain text completion with the given stop reason.
func (m *MockCompleter) ScriptText(content, stopReason string) *MockCompleter {
	return m.Script(&ai.Completion{Content: content, StopReason: stopReason})
}

// ScriptError queues an error outcome.
func (m *MockCompleter) ScriptError(err error) *MockCompleter {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queue = append(m.queue, scripted{err: err})
	return m
}

// Complete returns the next scripted outcome.
func (m *MockCompleter) Complete(ctx context.Context, system, user string, maxTokens int) (*ai.Completion, error) {
	m.mu.Lock()
	m.callCount++
	m.calls = append(m.calls, CompleteCall{System: system, User: user, MaxTokens: maxTokens})
	var next *scripted
	if len(m.queue) > 0 {
		next = &m.queue[0]
		m.queue = m.queue[1:]
	}
	fn := m.CompleteFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, system, user, maxTokens)
	}
	if next == nil {
		return &ai.Completion{StopReason: ai.StopReasonStop}, nil
	}
	if next.err != nil {
		return nil, next.err
	}
	return next.completion, nil
}

// CallCount returns the number of Complete invocations.
func (m *MockCompleter) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.callCount
}

// Calls returns the recorded invocations in order.
func (m *MockCompleter) Calls() []CompleteCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]CompleteCall, len(m.calls))
	copy(out, m.calls)
	return out
}

// Reset clears the queue, recorded calls, and overrides.
func (m *MockCompleter) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queue = nil
	m.calls = nil
	m.callCount = 0
	m.CompleteFunc = nil
}
