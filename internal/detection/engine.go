// Package detection finds account groups that repeatedly stake both sides of
// an opposite pair in the same lottery round with near-equal totals.
//
// A run is a pure function of (records, policy): validate, drop multi
// direction accounts per round, profile activity, enumerate round candidates
// for every group size, then aggregate candidates into patterns.
package detection

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"washtrade-lab/internal/config"
	"washtrade-lab/internal/domain"
)

// Engine runs detection for one validated policy. Safe for concurrent use.
type Engine struct {
	model     domain.DirectionModel
	generator *Generator
	policy    Policy
	minAmount decimal.Decimal
	sizes     []int
	workers   int
	scope     string
	logger    zerolog.Logger
}

// Options for creating Engine.
type Options struct {
	Detection config.Detection
	Logger    *zerolog.Logger // nil disables logging
}

// Summary describes one run.
type Summary struct {
	InputRecords    int
	FilteredRecords int
	ExcludedRecords int // dropped by the single-direction filter
	Rounds          int
	Accounts        int
	Lotteries       int

	Tasks            int
	SearchSpace      int // account combinations examined
	CandidatesBySize map[int]int
	Candidates       int

	Aggregate AggregateStats
	Workers   int
	Elapsed   time.Duration
}

// Result is the output of Run.
type Result struct {
	Patterns  []domain.AccountGroupPattern
	Decisions []GroupDecision
	Snapshot  domain.ActivitySnapshot
	Summary   Summary
}

// NewEngine validates the policy and creates an Engine.
func NewEngine(opts Options) (*Engine, error) {
	d := opts.Detection
	if err := d.Validate(); err != nil {
		return nil, err
	}
	model, _ := d.DirectionModel()
	thresholds, _ := d.ThresholdTable()
	tiers, _ := d.Tiers()
	minAmount, _ := d.MinStake()

	scope := d.ProfileScope
	if scope == "" {
		scope = config.ProfileScopeBatch
	}

	logger := zerolog.Nop()
	if opts.Logger != nil {
		logger = opts.Logger.With().Str("component", "detection").Logger()
	}

	return &Engine{
		model:     model,
		generator: NewGenerator(model.Pairs, thresholds),
		policy:    Policy{Tiers: tiers, MaxPeriodDisparity: d.MaxPeriodDisparity},
		minAmount: minAmount,
		sizes:     d.GroupSizes(),
		workers:   d.WorkerCount(),
		scope:     scope,
		logger:    logger,
	}, nil
}

type task struct {
	partition int
	k         int
}

// Run executes detection over records. Malformed input fails the whole run
// with a *MalformedRecordError. Output is identical regardless of worker
// count or input order.
func (e *Engine) Run(ctx context.Context, records []domain.BetRecord) (*Result, error) {
	start := time.Now()

	if err := ValidateRecords(records, e.model, e.minAmount); err != nil {
		return nil, err
	}

	filtered := FilterSingleDirection(records)
	profiled := records
	if e.scope == config.ProfileScopeFiltered {
		profiled = filtered
	}
	snapshot := ProfileActivity(profiled)
	partitions := BuildPartitions(filtered)

	summary := Summary{
		InputRecords:     len(records),
		FilteredRecords:  len(filtered),
		ExcludedRecords:  len(records) - len(filtered),
		Rounds:           len(partitions),
		CandidatesBySize: make(map[int]int, len(e.sizes)),
		Workers:          e.workers,
	}
	summary.Accounts, summary.Lotteries = countDistinct(records)

	e.logger.Debug().
		Int("records", summary.InputRecords).
		Int("excluded", summary.ExcludedRecords).
		Int("rounds", summary.Rounds).
		Str("profile_scope", e.scope).
		Msg("input prepared")

	tasks, space := e.plan(partitions)
	summary.Tasks = len(tasks)
	summary.SearchSpace = space

	results := make([][]domain.RoundCandidate, len(tasks))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)
	for i, t := range tasks {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			cands, err := e.generator.Generate(gctx, partitions[t.partition], t.k)
			if err != nil {
				return err
			}
			results[i] = cands
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("generate candidates: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("generate candidates: %w", err)
	}

	var candidates []domain.RoundCandidate
	for i, cands := range results {
		summary.CandidatesBySize[tasks[i].k] += len(cands)
		candidates = append(candidates, cands...)
	}
	summary.Candidates = len(candidates)

	agg := Aggregate(candidates, snapshot, e.policy)
	summary.Aggregate = agg.Stats
	summary.Elapsed = time.Since(start)

	for _, d := range agg.Decisions {
		if d.State != GroupRejected {
			continue
		}
		e.logger.Debug().
			Str("lottery", d.LotteryID).
			Strs("accounts", d.Accounts).
			Int("rounds", d.QualifyingRounds).
			Str("reason", d.Reason).
			Msg(d.Detail)
	}

	e.logger.Info().
		Int("records", summary.InputRecords).
		Int("candidates", summary.Candidates).
		Int("groups", agg.Stats.Groups).
		Int("patterns", agg.Stats.Accepted).
		Int("rejected_disparity", agg.Stats.RejectedDisparity).
		Int("rejected_threshold", agg.Stats.RejectedThreshold).
		Dur("elapsed", summary.Elapsed).
		Msg("detection complete")

	return &Result{
		Patterns:  agg.Patterns,
		Decisions: agg.Decisions,
		Snapshot:  snapshot,
		Summary:   summary,
	}, nil
}

// plan lists one task per (partition, k) that can hold a k-group, k-major so
// the merged candidate order is fixed, and sizes the search space.
func (e *Engine) plan(partitions []RoundPartition) ([]task, int) {
	sides := make([][]int, len(partitions))
	for i, p := range partitions {
		buckets := splitByPair(p.Stakes, e.model)
		sides[i] = make([]int, len(buckets))
		for j, b := range buckets {
			sides[i][j] = len(b)
		}
	}

	var tasks []task
	space := 0
	for _, k := range e.sizes {
		for i := range partitions {
			n := 0
			for _, size := range sides[i] {
				n = addSaturating(n, binomial(size, k))
			}
			if n == 0 {
				continue
			}
			tasks = append(tasks, task{partition: i, k: k})
			space = addSaturating(space, n)
		}
	}
	return tasks, space
}

func countDistinct(records []domain.BetRecord) (accounts, lotteries int) {
	acc := make(map[string]struct{})
	lot := make(map[string]struct{})
	for _, r := range records {
		acc[r.AccountID] = struct{}{}
		lot[r.LotteryID] = struct{}{}
	}
	return len(acc), len(lot)
}
