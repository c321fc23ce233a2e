package reporting

import (
	"time"

	"github.com/shopspring/decimal"
)

// Report is the detection report rendered to Markdown and CSV.
type Report struct {
	// Metadata
	RunID       string
	GeneratedAt time.Time

	Summary SummarySection
	Policy  PolicySection

	// Distributions over accepted patterns
	TierDistribution      []DistributionRow // in tier order, every tier listed
	GroupSizeDistribution []DistributionRow // k ascending, every k listed

	// Patterns grouped by lottery, lotteries ascending
	Lotteries []LotterySection

	// Flat tables backing the CSV exports
	Patterns []PatternRow
	Rounds   []RoundRow

	Reproducibility Reproducibility
}

// SummarySection describes the run.
type SummarySection struct {
	InputRecords      int
	FilteredRecords   int
	ExcludedRecords   int
	Rounds            int
	Accounts          int
	Lotteries         int
	SearchSpace       int
	CandidatesBySize  []DistributionRow
	Candidates        int
	Groups            int
	Patterns          int
	RejectedDisparity int
	RejectedThreshold int
	Workers           int
	Elapsed           time.Duration
}

// PolicySection lists the thresholds in force.
type PolicySection struct {
	Pairs              []string
	MaxGroupSize       int
	Thresholds         []ThresholdRow
	Tiers              []TierRow
	MaxPeriodDisparity int
	MinAmount          string
	ProfileScope       string
}

// ThresholdRow is the similarity threshold for one group size.
type ThresholdRow struct {
	GroupSize     int
	MinSimilarity float64
}

// TierRow is one activity tier.
type TierRow struct {
	Name                string
	MaxRounds           int // 0 = unbounded
	MinQualifyingRounds int
}

// DistributionRow is one bucket of a count distribution.
type DistributionRow struct {
	Label string
	Count int
}

// LotterySection holds the patterns of one lottery.
type LotterySection struct {
	LotteryID string
	Patterns  []PatternRow
}

// PatternRow is one accepted account group pattern.
type PatternRow struct {
	PatternID         string
	ShortID           string
	LotteryID         string
	Accounts          []string
	GroupSize         int
	QualifyingRounds  int
	RequiredRounds    int
	Tier              string
	MinTotalRounds    int
	Members           []MemberRow
	TotalAmount       decimal.Decimal
	MeanSimilarity    float64
	DominantPair      string
	PairDistribution  []DistributionRow // label ascending
	ShapeDistribution []DistributionRow // label ascending
	DisparityChecked  bool
	DisparitySpread   int
	DisparityLimit    int
}

// MemberRow is one member's activity in the pattern's lottery.
type MemberRow struct {
	AccountID    string
	TotalRounds  int
	TotalRecords int
	HasStats     bool
}

// RoundRow is one qualifying round of a pattern.
type RoundRow struct {
	PatternID   string
	LotteryID   string
	RoundID     string
	Accounts    []string
	Pair        string
	Shape       string
	FirstTotal  decimal.Decimal
	SecondTotal decimal.Decimal
	Similarity  float64
	Stakes      []StakeRow
}

// StakeRow is one account's stake in a round.
type StakeRow struct {
	AccountID string
	Direction string
	Amount    decimal.Decimal
}

// Reproducibility identifies the output for later comparison.
type Reproducibility struct {
	Fingerprint string
	Verified    *bool // nil when verification was not run
}
