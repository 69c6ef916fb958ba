package search

import (
	"github.com/poiesic/yqlguard/ai"
	"github.com/poiesic/yqlguard/core"
)

// SearchMonitor provides hooks to observe the search process.
// Implement this interface to track intermediate steps and results during search.
type SearchMonitor interface {
	Start(req Request)
	AfterFilterExtraction(filters *ai.ExtractedFilters)
	AfterEmbedding(dimensions int)
	AfterCompile(query core.ScopedQuery)
	AfterSearch(totalCount int, hits []*core.Hit)
	DroppedHit(hit *core.Hit)
	Finish(result *Result)
}

// noopMonitor is a no-op implementation of SearchMonitor
type noopMonitor struct{}

var _ SearchMonitor = (*noopMonitor)(nil)

func (n *noopMonitor) Start(_ Request)                               {}
func (n *noopMonitor) AfterFilterExtraction(_ *ai.ExtractedFilters) {}
func (n *noopMonitor) AfterEmbedding(_ int)                          {}
func (n *noopMonitor) AfterCompile(_ core.ScopedQuery)               {}
func (n *noopMonitor) AfterSearch(_ int, _ []*core.Hit)              {}
func (n *noopMonitor) DroppedHit(_ *core.Hit)                        {}
func (n *noopMonitor) Finish(_ *Result)                              {}
