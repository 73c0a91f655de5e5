package ingestion

import "errors"

var (
	// ErrRepositoryRequired is returned when a snippet repository is not provided.
	ErrRepositoryRequired = errors.New("snippet repository required")

	// ErrEmbedderRequired is returned when an embedder is not provided.
	ErrEmbedderRequired = errors.New("embedder required")

	// ErrIndexerClosed is returned when submitting to a closed indexer.
	ErrIndexerClosed = errors.New("indexer is closed")
)
