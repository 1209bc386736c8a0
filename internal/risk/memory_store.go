package risk

import (
	"context"
	"sync"
)

// maxMemoryAssessments caps the in-memory audit trail.
const maxMemoryAssessments = 10000

// MemoryStore is an in-memory implementation of Store for demo/test use.
type MemoryStore struct {
	mu          sync.RWMutex
	assessments []*Assessment
}

// NewMemoryStore creates an in-memory assessment store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Record(ctx context.Context, assessment *Assessment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.assessments = append(s.assessments, copyAssessment(assessment))
	if len(s.assessments) > maxMemoryAssessments {
		s.assessments = s.assessments[len(s.assessments)-maxMemoryAssessments:]
	}
	return nil
}

func (s *MemoryStore) ListRecent(ctx context.Context, limit int) ([]*Assessment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.assessments) == 0 || limit <= 0 {
		return nil, nil
	}

	// Most recent first, up to limit
	start := len(s.assessments) - limit
	if start < 0 {
		start = 0
	}

	result := make([]*Assessment, 0, len(s.assessments)-start)
	for i := len(s.assessments) - 1; i >= start; i-- {
		result = append(result, copyAssessment(s.assessments[i]))
	}
	return result, nil
}

func copyAssessment(a *Assessment) *Assessment {
	features := make(map[string]float64, len(a.Features))
	for k, v := range a.Features {
		features[k] = v
	}
	c := *a
	c.Features = features
	return &c
}
