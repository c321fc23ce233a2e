package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"washtrade-lab/internal/ingestion"
	"washtrade-lab/internal/normalization"
	"washtrade-lab/internal/observability"
	"washtrade-lab/internal/storage"
)

// Ingester loads raw exports into a BetRecordStore.
// Records are stored in source row order; duplicates are rejected by the
// storage layer (ErrDuplicateKey).
type Ingester struct {
	normalizer *normalization.Normalizer
	store      storage.BetRecordStore
	runs       storage.IngestLogStore

	metrics *observability.Metrics
	now     func() time.Time
	logger  zerolog.Logger
}

// IngesterOptions contains configuration for creating an Ingester.
type IngesterOptions struct {
	Normalizer *normalization.Normalizer
	Store      storage.BetRecordStore

	Runs    storage.IngestLogStore // nil disables the already-ingested check
	Metrics *observability.Metrics // nil disables metrics
	Clock   func() time.Time
	Logger  *zerolog.Logger
}

// IngestResult describes one ingested source.
type IngestResult struct {
	RunID   string
	Source  string
	Stats   normalization.Stats
	Stored  int
	Skipped bool // source was ingested by an earlier run
}

// NewIngester creates a new Ingester.
func NewIngester(opts IngesterOptions) (*Ingester, error) {
	if opts.Normalizer == nil || opts.Store == nil {
		return nil, errors.New("ingester: normalizer and store are required")
	}
	logger := zerolog.Nop()
	if opts.Logger != nil {
		logger = opts.Logger.With().Str("component", "ingest").Logger()
	}
	now := opts.Clock
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &Ingester{
		normalizer: opts.Normalizer,
		store:      opts.Store,
		runs:       opts.Runs,
		metrics:    opts.Metrics,
		now:        now,
		logger:     logger,
	}, nil
}

// IngestFile reads a CSV export and ingests it.
func (i *Ingester) IngestFile(ctx context.Context, path string) (*IngestResult, error) {
	table, err := ingestion.ReadCSVFile(path)
	if err != nil {
		i.recordStatus("error")
		return nil, err
	}
	return i.IngestTable(ctx, table)
}

// IngestTable normalizes a table and stores the valid records atomically.
func (i *Ingester) IngestTable(ctx context.Context, table *ingestion.RawTable) (*IngestResult, error) {
	result := &IngestResult{RunID: uuid.NewString(), Source: table.Source}
	log := i.logger.With().Str("source", table.Source).Logger()

	if i.runs != nil {
		prev, err := i.runs.GetBySource(ctx, table.Source)
		switch {
		case err == nil:
			log.Info().Str("previous_run", prev.RunID).Msg("source already ingested, skipping")
			result.Skipped = true
			i.recordStatus("skipped")
			return result, nil
		case !errors.Is(err, storage.ErrNotFound):
			i.recordStatus("error")
			return nil, fmt.Errorf("check ingest log: %w", err)
		}
	}

	bets, stats, err := i.normalizer.NormalizeTable(table)
	if err != nil {
		i.recordStatus("error")
		return nil, fmt.Errorf("normalize %s: %w", table.Source, err)
	}
	result.Stats = stats
	if i.metrics != nil {
		i.metrics.ObserveIngestion(stats.TotalRows, stats.Valid, stats.DropReasons())
	}

	if len(bets) > 0 {
		if err := i.store.InsertBulk(ctx, bets); err != nil {
			i.recordStatus("error")
			return nil, fmt.Errorf("store %s: %w", table.Source, err)
		}
	}
	result.Stored = len(bets)

	if i.runs != nil {
		run := &storage.IngestRun{
			RunID:      result.RunID,
			Source:     table.Source,
			TotalRows:  stats.TotalRows,
			Valid:      stats.Valid,
			Dropped:    stats.Dropped(),
			IngestedAt: i.now(),
		}
		if err := i.runs.Record(ctx, run); err != nil {
			i.recordStatus("error")
			return nil, fmt.Errorf("record ingest run: %w", err)
		}
	}

	i.recordStatus("success")
	if i.metrics != nil {
		i.metrics.LastSuccessfulIngestion.Set(float64(i.now().Unix()))
	}
	log.Info().
		Int("rows", stats.TotalRows).
		Int("stored", result.Stored).
		Int("dropped", stats.Dropped()).
		Msg("source ingested")
	return result, nil
}

func (i *Ingester) recordStatus(status string) {
	if i.metrics != nil {
		i.metrics.IngestionsTotal.WithLabelValues(status).Inc()
	}
}
