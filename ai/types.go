package ai

// Stop reasons reported by OpenAI-compatible providers. The pipeline only
// distinguishes "length" (truncation); everything else is terminal.
const (
	StopReasonStop   = "stop"
	StopReasonLength = "length"
)

// Completion is the normalized provider response envelope. Providers map
// their raw response shapes onto this explicit schema; unknown shapes
// fail closed to an empty Content rather than being probed further.
type Completion struct {
	// Content is the trimmed text of the first choice, empty when the
	// provider returned no choices or no message content.
	Content string

	// StopReason is the provider's finish reason for the first choice.
	// Empty when the provider omitted it.
	StopReason string

	// ToolCalls counts tool invocations the model requested. The
	// pipeline tracks these against the request budget but does not
	// execute them.
	ToolCalls int
}

// Truncated reports whether the completion stopped because the token
// budget ran out.
func (c *Completion) Truncated() bool {
	return c.StopReason == StopReasonLength
}
