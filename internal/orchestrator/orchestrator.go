// Package orchestrator runs one detection batch end to end.
// It coordinates: load records → detect → verify → report
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"washtrade-lab/internal/config"
	"washtrade-lab/internal/detection"
	"washtrade-lab/internal/domain"
	"washtrade-lab/internal/observability"
	"washtrade-lab/internal/reporting"
	"washtrade-lab/internal/storage"
	"washtrade-lab/internal/verification"
)

// Orchestrator coordinates a batch detection run.
type Orchestrator struct {
	store     storage.BetRecordStore
	engine    *detection.Engine
	policy    config.Detection
	lotteries []string

	outputDir string
	verify    bool

	metrics *observability.Metrics
	now     func() time.Time
	logger  zerolog.Logger
}

// Options for creating Orchestrator.
type Options struct {
	// Required
	Store     storage.BetRecordStore
	Detection config.Detection

	// Optional
	Lotteries []string               // restrict the batch; empty loads every lottery
	OutputDir string                 // empty skips writing report files
	Verify    bool                   // run detection twice and compare
	Metrics   *observability.Metrics // nil disables metrics
	Clock     func() time.Time       // nil uses time.Now().UTC()
	Logger    *zerolog.Logger        // nil disables logging
}

// New creates a new Orchestrator. The detection policy is validated here.
func New(opts Options) (*Orchestrator, error) {
	if opts.Store == nil {
		return nil, errors.New("orchestrator: store is required")
	}

	logger := zerolog.Nop()
	if opts.Logger != nil {
		logger = opts.Logger.With().Str("component", "orchestrator").Logger()
	}

	engine, err := detection.NewEngine(detection.Options{
		Detection: opts.Detection,
		Logger:    opts.Logger,
	})
	if err != nil {
		return nil, err
	}

	now := opts.Clock
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}

	return &Orchestrator{
		store:     opts.Store,
		engine:    engine,
		policy:    opts.Detection,
		lotteries: opts.Lotteries,
		outputDir: opts.OutputDir,
		verify:    opts.Verify,
		metrics:   opts.Metrics,
		now:       now,
		logger:    logger,
	}, nil
}

// RunResult contains results from orchestrator execution.
type RunResult struct {
	RunID        string
	Records      int
	Result       *detection.Result
	Report       *reporting.Report
	Verification *verification.Report // nil unless verification ran
	Files        []string
}

// Run executes the batch.
// Phases:
//  1. Load bet records from the store
//  2. Run detection
//  3. Optionally verify idempotence
//  4. Build the report and write output files
//
// A failed idempotence check still writes the report, then returns an error
// wrapping verification.ErrNotDeterministic.
func (o *Orchestrator) Run(ctx context.Context) (*RunResult, error) {
	start := time.Now()
	result := &RunResult{RunID: uuid.NewString()}
	log := o.logger.With().Str("run_id", result.RunID).Logger()

	// Phase 1: Load
	log.Info().Strs("lotteries", o.lotteries).Msg("loading bet records")
	records, err := o.load(ctx)
	if err != nil {
		o.recordRun("load", "error", start)
		return nil, fmt.Errorf("phase 1 (load records) failed: %w", err)
	}
	result.Records = len(records)
	log.Info().Int("records", len(records)).Msg("bet records loaded")

	// Phase 2: Detect
	detected, err := o.engine.Run(ctx, records)
	if err != nil {
		o.recordRun("detect", "error", start)
		return nil, fmt.Errorf("phase 2 (detection) failed: %w", err)
	}
	result.Result = detected
	if o.metrics != nil {
		o.metrics.ObserveDetection(detected.Summary)
	}

	// Phase 3: Verify
	var verifyErr error
	if o.verify {
		log.Info().Msg("verifying idempotence")
		vr, err := verification.VerifyIdempotence(ctx, o.engine, records)
		if err != nil && !errors.Is(err, verification.ErrNotDeterministic) {
			o.recordRun("verify", "error", start)
			return nil, fmt.Errorf("phase 3 (verification) failed: %w", err)
		}
		result.Verification = vr
		verifyErr = err
		if verifyErr != nil {
			log.Error().
				Int("divergent", vr.DivergentPatterns).
				Int("missing", len(vr.MissingInSecond)).
				Int("extra", len(vr.ExtraInSecond)).
				Msg("idempotence check failed")
		}
	}

	// Phase 4: Report
	report, err := reporting.NewGenerator(o.policy).WithClock(o.now).Generate(detected)
	if err != nil {
		o.recordRun("report", "error", start)
		return nil, fmt.Errorf("phase 4 (report) failed: %w", err)
	}
	report.RunID = result.RunID
	if result.Verification != nil {
		match := result.Verification.Match
		report.Reproducibility.Verified = &match
	}
	result.Report = report

	if o.outputDir != "" {
		files, err := reporting.WriteFiles(o.outputDir, report)
		if err != nil {
			o.recordRun("report", "error", start)
			return nil, fmt.Errorf("phase 4 (write report) failed: %w", err)
		}
		result.Files = files
		if o.metrics != nil {
			o.metrics.ReportsGenerated.Inc()
		}
		log.Info().Strs("files", files).Msg("report written")
	}

	if verifyErr != nil {
		o.recordRun("verify", "error", start)
		return result, fmt.Errorf("phase 3 (verification) failed: %w", verifyErr)
	}

	o.recordRun("run", "success", start)
	if o.metrics != nil {
		o.metrics.LastSuccessfulPipeline.Set(float64(o.now().Unix()))
	}
	log.Info().
		Int("records", result.Records).
		Int("patterns", len(detected.Patterns)).
		Str("fingerprint", report.Reproducibility.Fingerprint).
		Dur("elapsed", time.Since(start)).
		Msg("run complete")

	return result, nil
}

// load reads the batch. Lotteries are read in the configured order.
func (o *Orchestrator) load(ctx context.Context) ([]domain.BetRecord, error) {
	if len(o.lotteries) == 0 {
		bets, err := o.store.GetAll(ctx)
		if err != nil {
			return nil, err
		}
		return domain.Records(bets), nil
	}

	var records []domain.BetRecord
	for _, lottery := range o.lotteries {
		bets, err := o.store.GetByLottery(ctx, lottery)
		if err != nil {
			return nil, fmt.Errorf("lottery %s: %w", lottery, err)
		}
		records = append(records, domain.Records(bets)...)
	}
	return records, nil
}

func (o *Orchestrator) recordRun(phase, status string, start time.Time) {
	if o.metrics == nil {
		return
	}
	o.metrics.PipelineRunsTotal.WithLabelValues(phase, status).Inc()
	o.metrics.PipelineDuration.WithLabelValues(phase).Observe(time.Since(start).Seconds())
}
