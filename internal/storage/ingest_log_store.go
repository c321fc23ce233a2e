package storage

import (
	"context"
	"time"
)

// IngestRun records one source loaded into a BetRecordStore.
type IngestRun struct {
	RunID      string
	Source     string
	TotalRows  int
	Valid      int
	Dropped    int
	IngestedAt time.Time
}

// IngestLogStore tracks which sources were ingested, so the same export is
// never loaded twice.
type IngestLogStore interface {
	// Record saves a run. Returns ErrDuplicateKey if the source was already ingested.
	Record(ctx context.Context, run *IngestRun) error

	// GetBySource returns the run for source. Returns ErrNotFound if never ingested.
	GetBySource(ctx context.Context, source string) (*IngestRun, error)

	// List returns all runs ordered by ingestion time.
	List(ctx context.Context) ([]*IngestRun, error)
}
