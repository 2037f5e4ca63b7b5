// Package taxonomy holds the process-wide concept graph shared by all
// concurrent questions. Reads are stale-tolerant snapshots; weight updates
// are the only mutation and are serialized.
package taxonomy

import (
	"fmt"
	"sync"

	"github.com/plenumlab/speechqa/internal/core/domain"
)

type Store struct {
	mu    sync.RWMutex
	graph domain.TaxonomyGraph
}

func NewStore(graph *domain.TaxonomyGraph) *Store {
	s := &Store{}
	if graph != nil {
		s.graph = cloneGraph(*graph)
	}
	clampWeights(&s.graph)
	return s
}

// Snapshot returns a deep copy of the graph. Concurrent weight updates may or
// may not be visible; readers tolerate staleness.
func (s *Store) Snapshot() domain.TaxonomyGraph {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneGraph(s.graph)
}

// AdjustWeight applies a serialized delta to one tag's weight, clamped to
// [MinTagWeight, MaxTagWeight], and returns the resulting weight.
func (s *Store) AdjustWeight(tagID string, delta float64) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for di := range s.graph.Dimensions {
		tags := s.graph.Dimensions[di].Tags
		for ti := range tags {
			if tags[ti].ID != tagID {
				continue
			}
			tags[ti].Weight = domain.ClampTagWeight(tags[ti].Weight + delta)
			return tags[ti].Weight, nil
		}
	}
	return 0, fmt.Errorf("unknown taxonomy tag: %s", tagID)
}

// Replace swaps the whole graph, e.g. after a reload from the repository.
func (s *Store) Replace(graph *domain.TaxonomyGraph) {
	if graph == nil {
		return
	}
	next := cloneGraph(*graph)
	clampWeights(&next)

	s.mu.Lock()
	s.graph = next
	s.mu.Unlock()
}

func (s *Store) Empty() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.graph.Topics) == 0 && len(s.graph.Dimensions) == 0
}

func cloneGraph(g domain.TaxonomyGraph) domain.TaxonomyGraph {
	out := domain.TaxonomyGraph{
		Topics:     make([]domain.TaxonomyTopic, len(g.Topics)),
		Dimensions: make([]domain.TaxonomyDimension, len(g.Dimensions)),
	}
	for i, topic := range g.Topics {
		topic.Keywords = append([]string(nil), topic.Keywords...)
		topic.Dimensions = append([]string(nil), topic.Dimensions...)
		out.Topics[i] = topic
	}
	for i, dim := range g.Dimensions {
		tags := make([]domain.TaxonomyTag, len(dim.Tags))
		for j, tag := range dim.Tags {
			tag.Keywords = append([]string(nil), tag.Keywords...)
			tag.QueryTemplates = append([]string(nil), tag.QueryTemplates...)
			tag.ActiveYears = append([]int(nil), tag.ActiveYears...)
			tag.Organizations = append([]string(nil), tag.Organizations...)
			tags[j] = tag
		}
		dim.Tags = tags
		out.Dimensions[i] = dim
	}
	return out
}

func clampWeights(g *domain.TaxonomyGraph) {
	for di := range g.Dimensions {
		for ti := range g.Dimensions[di].Tags {
			tag := &g.Dimensions[di].Tags[ti]
			if tag.Weight == 0 {
				tag.Weight = 1.0
				continue
			}
			tag.Weight = domain.ClampTagWeight(tag.Weight)
		}
	}
}
