package retrieval

import (
	"github.com/poiesic/answerit/core"
	"github.com/poiesic/answerit/projection"
)

// Monitor provides hooks to observe the retrieval process.
// Implement this interface to track intermediate steps during retrieval.
type Monitor interface {
	Start(query string, candidates []string)
	DatasetSkipped(dataset string, status projection.Status)
	AfterSemanticSearch(datasets []string, hits int)
	RawFallback(dataset string, rows int)
	Finish(entries []*core.Snippet)
}

// noopMonitor is a no-op implementation of Monitor
type noopMonitor struct{}

var _ Monitor = (*noopMonitor)(nil)

func (n *noopMonitor) Start(_ string, _ []string)                    {}
func (n *noopMonitor) DatasetSkipped(_ string, _ projection.Status)  {}
func (n *noopMonitor) AfterSemanticSearch(_ []string, _ int)         {}
func (n *noopMonitor) RawFallback(_ string, _ int)                   {}
func (n *noopMonitor) Finish(_ []*core.Snippet)                      {}
