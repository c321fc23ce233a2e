// Package config holds the detection policy and the run-level settings, and
// loads them from TOML, .env and WASHTRADE_* environment variables.
package config

import (
	"runtime"

	"github.com/shopspring/decimal"

	"washtrade-lab/internal/domain"
)

// Profile scopes for the activity profiler.
const (
	ProfileScopeBatch    = "batch"    // all validated records
	ProfileScopeFiltered = "filtered" // records surviving the single-direction filter
)

// Config is the top-level configuration.
type Config struct {
	LogLevel  string `toml:"log_level"`
	LogPretty bool   `toml:"log_pretty"`

	Detection     Detection     `toml:"detection"`
	Normalization Normalization `toml:"normalization"`
	Storage       Storage       `toml:"storage"`
	Output        Output        `toml:"output"`
}

// Normalization controls how raw exports become bet records.
type Normalization struct {
	DefaultLottery string `toml:"default_lottery"` // used when the export has no lottery column
	// DirectionSynonyms replaces the built-in catalogue for the listed
	// directions. Keys are canonical direction names.
	DirectionSynonyms map[string][]string `toml:"direction_synonyms"`
}

// Storage selects where bet records are read from.
type Storage struct {
	Source        string `toml:"source"` // csv | memory | postgres | clickhouse
	PostgresDSN   string `toml:"postgres_dsn"`
	ClickhouseDSN string `toml:"clickhouse_dsn"`
}

// Output controls report files.
type Output struct {
	Dir         string `toml:"dir"`
	Verify      bool   `toml:"verify"` // run detection twice and compare
	MetricsAddr string `toml:"metrics_addr"`
}

// PairConfig declares one opposite pair.
type PairConfig struct {
	First  string `toml:"first"`
	Second string `toml:"second"`
}

// ThresholdConfig overrides the similarity threshold for one group size.
type ThresholdConfig struct {
	GroupSize     int     `toml:"group_size"`
	MinSimilarity float64 `toml:"min_similarity"`
}

// TierConfig declares one activity tier.
type TierConfig struct {
	Name                string `toml:"name"`
	MaxRounds           int    `toml:"max_rounds"` // 0 = unbounded, last tier only
	MinQualifyingRounds int    `toml:"min_qualifying_rounds"`
}

// Detection is the policy consumed by the detection engine.
type Detection struct {
	Directions           []string          `toml:"directions"`
	OppositePairs        []PairConfig      `toml:"opposite_pairs"`
	MaxGroupSize         int               `toml:"max_group_size"`
	SimilarityThreshold  float64           `toml:"similarity_threshold"`
	SimilarityThresholds []ThresholdConfig `toml:"similarity_thresholds"`
	ActivityTiers        []TierConfig      `toml:"activity_tiers"`
	MaxPeriodDisparity   int               `toml:"max_period_disparity"`
	MinAmount            string            `toml:"min_amount"`
	Workers              int               `toml:"workers"`
	ProfileScope         string            `toml:"profile_scope"`
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	return Config{
		LogLevel:  "info",
		Detection: DefaultDetection(),
		Normalization: Normalization{
			DefaultLottery: "UNKNOWN",
		},
		Storage: Storage{
			Source: "csv",
		},
		Output: Output{
			Dir: "output",
		},
	}
}

// DefaultDetection returns the default detection policy.
func DefaultDetection() Detection {
	return Detection{
		Directions: []string{"BIG", "SMALL", "ODD", "EVEN"},
		OppositePairs: []PairConfig{
			{First: "BIG", Second: "SMALL"},
			{First: "ODD", Second: "EVEN"},
		},
		MaxGroupSize:        5,
		SimilarityThreshold: 0.9,
		ActivityTiers: []TierConfig{
			{Name: "low", MaxRounds: 10, MinQualifyingRounds: 3},
			{Name: "medium", MaxRounds: 50, MinQualifyingRounds: 5},
			{Name: "high", MaxRounds: 100, MinQualifyingRounds: 8},
			{Name: "very_high", MaxRounds: 0, MinQualifyingRounds: 10},
		},
		MaxPeriodDisparity: 150,
		MinAmount:          "10",
		Workers:            0,
		ProfileScope:       ProfileScopeBatch,
	}
}

// Validate checks the policy. Every failure is a *ConfigurationError.
func (d *Detection) Validate() error {
	if _, err := d.DirectionModel(); err != nil {
		return err
	}
	if d.MaxGroupSize < 2 {
		return configErr("max_group_size", "must be >= 2, got %d", d.MaxGroupSize)
	}
	if _, err := d.ThresholdTable(); err != nil {
		return err
	}
	if _, err := d.Tiers(); err != nil {
		return err
	}
	if d.MaxPeriodDisparity < 0 {
		return configErr("max_period_disparity", "must be >= 0, got %d", d.MaxPeriodDisparity)
	}
	if _, err := d.MinStake(); err != nil {
		return err
	}
	if d.Workers < 0 {
		return configErr("workers", "must be >= 0, got %d", d.Workers)
	}
	switch d.ProfileScope {
	case "", ProfileScopeBatch, ProfileScopeFiltered:
	default:
		return configErr("profile_scope", "unknown scope %q", d.ProfileScope)
	}
	return nil
}

// DirectionModel builds the validated direction catalogue.
func (d *Detection) DirectionModel() (domain.DirectionModel, error) {
	var model domain.DirectionModel
	seen := make(map[domain.Direction]bool, len(d.Directions))
	for _, raw := range d.Directions {
		dir := domain.Direction(raw)
		if raw == "" {
			return model, configErr("directions", "empty direction")
		}
		if seen[dir] {
			return model, configErr("directions", "duplicate direction %q", raw)
		}
		seen[dir] = true
		model.Directions = append(model.Directions, dir)
	}

	if len(d.OppositePairs) == 0 {
		return model, configErr("opposite_pairs", "at least one pair is required")
	}
	paired := make(map[domain.Direction]int)
	for i, p := range d.OppositePairs {
		first, second := domain.Direction(p.First), domain.Direction(p.Second)
		if first == second {
			return model, configErr("opposite_pairs", "pair %d must have two distinct directions", i)
		}
		for _, dir := range []domain.Direction{first, second} {
			if !seen[dir] {
				return model, configErr("opposite_pairs", "pair %d uses unknown direction %q", i, dir)
			}
			if j, dup := paired[dir]; dup {
				return model, configErr("opposite_pairs", "direction %q appears in pairs %d and %d", dir, j, i)
			}
			paired[dir] = i
		}
		model.Pairs = append(model.Pairs, domain.OppositePair{First: first, Second: second})
	}
	return model, nil
}

// ThresholdTable resolves the similarity threshold for every k in
// 2..MaxGroupSize. The table must be non-decreasing in k.
func (d *Detection) ThresholdTable() (map[int]float64, error) {
	table := make(map[int]float64, d.MaxGroupSize)
	for k := 2; k <= d.MaxGroupSize; k++ {
		if d.SimilarityThreshold > 0 {
			table[k] = d.SimilarityThreshold
		}
	}
	for _, t := range d.SimilarityThresholds {
		if t.GroupSize < 2 || t.GroupSize > d.MaxGroupSize {
			return nil, configErr("similarity_thresholds", "group size %d outside 2..%d", t.GroupSize, d.MaxGroupSize)
		}
		table[t.GroupSize] = t.MinSimilarity
	}

	prev := 0.0
	for k := 2; k <= d.MaxGroupSize; k++ {
		v, ok := table[k]
		if !ok {
			return nil, configErr("similarity_thresholds", "no threshold for group size %d", k)
		}
		if v <= 0 || v > 1 {
			return nil, configErr("similarity_thresholds", "threshold for group size %d must be in (0,1], got %g", k, v)
		}
		if v < prev {
			return nil, configErr("similarity_thresholds", "threshold for group size %d (%g) is below group size %d (%g)", k, v, k-1, prev)
		}
		prev = v
	}
	return table, nil
}

// ThresholdFor returns the similarity threshold for group size k. The policy
// must have been validated.
func (d *Detection) ThresholdFor(k int) float64 {
	table, err := d.ThresholdTable()
	if err != nil {
		return 1
	}
	return table[k]
}

// Tiers returns the validated activity tiers ordered by bound.
func (d *Detection) Tiers() ([]domain.ActivityTier, error) {
	if len(d.ActivityTiers) == 0 {
		return nil, configErr("activity_tiers", "at least one tier is required")
	}
	tiers := make([]domain.ActivityTier, 0, len(d.ActivityTiers))
	prevBound, prevMin := 0, 0
	for i, t := range d.ActivityTiers {
		last := i == len(d.ActivityTiers)-1
		if t.Name == "" {
			return nil, configErr("activity_tiers", "tier %d has no name", i)
		}
		if t.MinQualifyingRounds < 1 {
			return nil, configErr("activity_tiers", "tier %q must require at least 1 round", t.Name)
		}
		if t.MinQualifyingRounds < prevMin {
			return nil, configErr("activity_tiers", "tier %q requires fewer rounds than the tier below it", t.Name)
		}
		switch {
		case t.MaxRounds < 0:
			return nil, configErr("activity_tiers", "tier %q has negative bound", t.Name)
		case t.MaxRounds == 0 && !last:
			return nil, configErr("activity_tiers", "only the last tier may be unbounded, %q is not last", t.Name)
		case t.MaxRounds != 0 && last:
			return nil, configErr("activity_tiers", "last tier %q must be unbounded (max_rounds = 0)", t.Name)
		case t.MaxRounds != 0 && t.MaxRounds <= prevBound:
			return nil, configErr("activity_tiers", "tier %q bound %d must exceed %d", t.Name, t.MaxRounds, prevBound)
		}
		prevBound, prevMin = t.MaxRounds, t.MinQualifyingRounds
		tiers = append(tiers, domain.ActivityTier{
			Name:                t.Name,
			MaxRounds:           t.MaxRounds,
			MinQualifyingRounds: t.MinQualifyingRounds,
		})
	}
	return tiers, nil
}

// MinStake parses the minimum stake.
func (d *Detection) MinStake() (decimal.Decimal, error) {
	v, err := decimal.NewFromString(d.MinAmount)
	if err != nil {
		return decimal.Zero, configErr("min_amount", "not a decimal: %q", d.MinAmount)
	}
	if !v.IsPositive() {
		return decimal.Zero, configErr("min_amount", "must be > 0, got %s", v)
	}
	return v, nil
}

// WorkerCount resolves Workers = 0 to GOMAXPROCS.
func (d *Detection) WorkerCount() int {
	if d.Workers > 0 {
		return d.Workers
	}
	return runtime.GOMAXPROCS(0)
}

// GroupSizes returns 2..MaxGroupSize ascending.
func (d *Detection) GroupSizes() []int {
	sizes := make([]int, 0, d.MaxGroupSize)
	for k := 2; k <= d.MaxGroupSize; k++ {
		sizes = append(sizes, k)
	}
	return sizes
}
