package core

import (
	"encoding/binary"
	"time"

	"github.com/go-crypt/x/blake2b"
)

// ID is a unique identifier for domain entities.
// It is generated using content-based hashing.
type ID uint64

// IDFromContent generates a deterministic ID from text content using BLAKE2b hashing.
// This ensures that identical content produces identical IDs.
func IDFromContent(text string) ID {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(text))
	sum := h.Sum(nil)
	return ID(binary.LittleEndian.Uint64(sum))
}

// Kind identifies where a knowledge snippet originally came from.
type Kind int

const (
	// KindDocument represents text ingested from a stored document.
	KindDocument Kind = iota + 1
	// KindMessage represents a conversation turn.
	KindMessage
	// KindNote represents a free-form note attached to a subject.
	KindNote
)

// Snippet represents a single unit of knowledge stored in a dataset.
// It may be enriched with an embedding after insertion; until the indexer
// has run, the row is visible to raw reads but not to semantic search.
type Snippet struct {
	Id         ID
	Text       string
	Dataset    string
	Kind       Kind
	Vector     []float32 // Embedding vector for semantic search (populated by the indexer)
	Indexed    bool      // True once the embedding has been written
	Timestamp  time.Time // When the underlying content was produced
	InsertedAt time.Time // When the row was inserted into the store
	UpdatedAt  time.Time // When the row was last updated
	Metadata   map[string]string
}

// Origin identifies which pipeline stage produced an answer.
type Origin int

const (
	// OriginPrimary means the first completion attempt produced the answer.
	OriginPrimary Origin = iota + 1
	// OriginFallback means the answer came from the fallback completion.
	OriginFallback
	// OriginExtractive means the answer was synthesized directly from
	// retrieved snippets without a model call.
	OriginExtractive
	// OriginCached means the answer was served from the dedupe cache.
	OriginCached
)

// String returns the wire name of the origin.
func (o Origin) String() string {
	switch o {
	case OriginPrimary:
		return "primary"
	case OriginFallback:
		return "fallback"
	case OriginExtractive:
		return "extractive"
	case OriginCached:
		return "cached"
	}
	return "unknown"
}

// QAResult is the final outcome of one answered request.
// Answer is never empty in a returned result, and Sources is never empty
// when Answer is non-empty.
type QAResult struct {
	Answer  string
	Sources []string
	Origin  Origin

	// ToolCalls counts provider tool invocations observed while
	// producing this answer. Bookkeeping only, never serialized.
	ToolCalls int
}

// Mode selects how a request is answered.
type Mode int

const (
	// ModeKnowledge answers from the subject's knowledge datasets.
	ModeKnowledge Mode = iota + 1
	// ModeGeneral answers from general domain knowledge without retrieval.
	ModeGeneral
)

// String returns the wire name of the mode.
func (m Mode) String() string {
	switch m {
	case ModeKnowledge:
		return "knowledge"
	case ModeGeneral:
		return "general"
	}
	return "unknown"
}

// ParseMode maps a wire name to a Mode. The boolean reports whether the
// name was recognized.
func ParseMode(s string) (Mode, bool) {
	switch s {
	case "knowledge":
		return ModeKnowledge, true
	case "general":
		return ModeGeneral, true
	}
	return 0, false
}

// Budget caps the work one request may consume.
type Budget struct {
	MaxAttempts int           // Completion attempts per stage (continuations excluded)
	MaxWait     time.Duration // Wall-clock cap for the whole request
}

// RequestContext carries per-request state through the pipeline.
// It is created at pipeline entry and discarded at the end of the call;
// only the bookkeeping fields are mutated as the pipeline progresses.
type RequestContext struct {
	SubjectID int64
	Locale    string
	Mode      Mode
	Budget    Budget
	RequestID string

	// Bookkeeping, mutated by the pipeline.
	FallbackUsed  bool
	ToolCallsUsed int
}

// GeneralKnowledgeSource is the source marker used when an answer is not
// grounded in any offered knowledge entry.
const GeneralKnowledgeSource = "general_knowledge"
