package memory

import (
	"context"
	"sort"
	"sync"

	"washtrade-lab/internal/storage"
)

// IngestLogStore is an in-memory implementation of storage.IngestLogStore.
type IngestLogStore struct {
	mu   sync.RWMutex
	runs map[string]*storage.IngestRun // keyed by source
}

// NewIngestLogStore creates a new in-memory ingest log.
func NewIngestLogStore() *IngestLogStore {
	return &IngestLogStore{
		runs: make(map[string]*storage.IngestRun),
	}
}

// Record saves a run. Returns ErrDuplicateKey if the source was already ingested.
func (s *IngestLogStore) Record(_ context.Context, run *storage.IngestRun) error {
	if run == nil || run.Source == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.runs[run.Source]; exists {
		return storage.ErrDuplicateKey
	}
	copy := *run
	s.runs[run.Source] = &copy
	return nil
}

// GetBySource returns the run for source.
func (s *IngestLogStore) GetBySource(_ context.Context, source string) (*storage.IngestRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	run, exists := s.runs[source]
	if !exists {
		return nil, storage.ErrNotFound
	}
	copy := *run
	return &copy, nil
}

// List returns all runs ordered by ingestion time.
func (s *IngestLogStore) List(_ context.Context) ([]*storage.IngestRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*storage.IngestRun, 0, len(s.runs))
	for _, run := range s.runs {
		copy := *run
		result = append(result, &copy)
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].IngestedAt.Equal(result[j].IngestedAt) {
			return result[i].IngestedAt.Before(result[j].IngestedAt)
		}
		return result[i].Source < result[j].Source
	})
	return result, nil
}

var _ storage.IngestLogStore = (*IngestLogStore)(nil)
