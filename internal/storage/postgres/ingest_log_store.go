package postgres

import (
	"context"
	"fmt"

	"washtrade-lab/internal/storage"
)

// IngestLogStore is a PostgreSQL implementation of storage.IngestLogStore.
// Source is the primary key of ingest_runs.
type IngestLogStore struct {
	pool *Pool
}

// NewIngestLogStore creates a new PostgreSQL ingest log.
func NewIngestLogStore(pool *Pool) *IngestLogStore {
	return &IngestLogStore{pool: pool}
}

// Compile-time interface check.
var _ storage.IngestLogStore = (*IngestLogStore)(nil)

// Record saves a run. Returns ErrDuplicateKey if the source was already ingested.
func (s *IngestLogStore) Record(ctx context.Context, run *storage.IngestRun) error {
	if run == nil || run.Source == "" {
		return storage.ErrInvalidInput
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO ingest_runs (source, run_id, total_rows, valid, dropped, ingested_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, run.Source, run.RunID, run.TotalRows, run.Valid, run.Dropped, run.IngestedAt)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert ingest run: %w", err)
	}
	return nil
}

// GetBySource returns the run for source.
func (s *IngestLogStore) GetBySource(ctx context.Context, source string) (*storage.IngestRun, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT source, run_id, total_rows, valid, dropped, ingested_at
		FROM ingest_runs
		WHERE source = $1
	`, source)

	var run storage.IngestRun
	err := row.Scan(&run.Source, &run.RunID, &run.TotalRows, &run.Valid, &run.Dropped, &run.IngestedAt)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get ingest run: %w", err)
	}
	return &run, nil
}

// List returns all runs ordered by ingestion time.
func (s *IngestLogStore) List(ctx context.Context) ([]*storage.IngestRun, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT source, run_id, total_rows, valid, dropped, ingested_at
		FROM ingest_runs
		ORDER BY ingested_at, source
	`)
	if err != nil {
		return nil, fmt.Errorf("list ingest runs: %w", err)
	}
	defer rows.Close()

	var runs []*storage.IngestRun
	for rows.Next() {
		var run storage.IngestRun
		if err := rows.Scan(&run.Source, &run.RunID, &run.TotalRows, &run.Valid, &run.Dropped, &run.IngestedAt); err != nil {
			return nil, fmt.Errorf("scan ingest run: %w", err)
		}
		runs = append(runs, &run)
	}
	return runs, rows.Err()
}
