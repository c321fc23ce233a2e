package verification

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/shopspring/decimal"

	"washtrade-lab/internal/config"
	"washtrade-lab/internal/detection"
	"washtrade-lab/internal/domain"
	"washtrade-lab/internal/idhash"
)

func bet(round, account string, dir domain.Direction, amount string) domain.BetRecord {
	return domain.BetRecord{
		RoundID:   round,
		LotteryID: "K3",
		AccountID: account,
		Direction: dir,
		Amount:    decimal.RequireFromString(amount),
	}
}

func hedgeRecords() []domain.BetRecord {
	var records []domain.BetRecord
	for r := 1; r <= 5; r++ {
		round := fmt.Sprintf("%d", r)
		records = append(records,
			bet(round, "A", domain.DirectionBig, "100"),
			bet(round, "B", domain.DirectionSmall, "95"),
			bet(round, "C", domain.DirectionOdd, "40"),
			bet(round, "D", domain.DirectionEven, "20"),
			bet(round, "E", domain.DirectionEven, "20"),
		)
	}
	return records
}

func testPattern(accounts ...string) domain.AccountGroupPattern {
	round := domain.RoundCandidate{
		RoundID:     "1",
		LotteryID:   "K3",
		Accounts:    accounts,
		PairLabel:   "BIG-SMALL",
		FirstTotal:  decimal.NewFromInt(100),
		SecondTotal: decimal.NewFromInt(100),
		Similarity:  1,
		GroupSize:   len(accounts),
	}
	return domain.AccountGroupPattern{
		PatternID:         idhash.ComputePatternID("K3", accounts),
		Accounts:          accounts,
		LotteryID:         "K3",
		GroupSize:         len(accounts),
		Rounds:            []domain.RoundCandidate{round},
		QualifyingRounds:  1,
		TotalAmount:       decimal.NewFromInt(200),
		MeanSimilarity:    1,
		DominantPair:      "BIG-SMALL",
		ShapeDistribution: map[string]int{"BIG(1) vs SMALL(1)": 1},
		Tier:              domain.ActivityTier{Name: "low", MaxRounds: 10, MinQualifyingRounds: 1},
		RequiredRounds:    1,
	}
}

// flakyRunner returns a different pattern list on every call.
type flakyRunner struct {
	calls int
}

func (f *flakyRunner) Run(_ context.Context, _ []domain.BetRecord) (*detection.Result, error) {
	f.calls++
	p := testPattern("A", "B")
	if f.calls > 1 {
		p.MeanSimilarity = 0.99
		p.TotalAmount = decimal.NewFromInt(201)
	}
	return &detection.Result{Patterns: []domain.AccountGroupPattern{p}}, nil
}

type failingRunner struct{}

func (failingRunner) Run(_ context.Context, _ []domain.BetRecord) (*detection.Result, error) {
	return nil, errors.New("boom")
}

func TestVerifyIdempotence_Engine(t *testing.T) {
	d := config.DefaultDetection()
	d.Workers = 4
	eng, err := detection.NewEngine(detection.Options{Detection: d})
	if err != nil {
		t.Fatalf("NewEngine failed: %v", err)
	}

	report, err := VerifyIdempotence(context.Background(), eng, hedgeRecords())
	if err != nil {
		t.Fatalf("VerifyIdempotence failed: %v", err)
	}
	if !report.Match {
		t.Error("Expected fingerprints to match")
	}
	if report.FirstPatterns == 0 {
		t.Error("Expected patterns from hedge records")
	}
	if report.DivergentPatterns != 0 || len(report.MissingInSecond) != 0 || len(report.ExtraInSecond) != 0 {
		t.Errorf("Unexpected divergence: %+v", report)
	}
	for _, r := range report.Results {
		if !r.Match {
			t.Errorf("Pattern %s diverged: %+v", r.PatternID, r.Divergences)
		}
	}
}

func TestVerifyIdempotence_Divergent(t *testing.T) {
	report, err := VerifyIdempotence(context.Background(), &flakyRunner{}, nil)
	if !errors.Is(err, ErrNotDeterministic) {
		t.Fatalf("Expected ErrNotDeterministic, got %v", err)
	}
	if report == nil {
		t.Fatal("Expected report alongside error")
	}
	if report.Match {
		t.Error("Fingerprints should differ")
	}
	if report.DivergentPatterns != 1 {
		t.Errorf("Expected 1 divergent pattern, got %d", report.DivergentPatterns)
	}

	fields := make(map[string]bool)
	for _, d := range report.Results[0].Divergences {
		fields[d.Field] = true
	}
	for _, want := range []string{"MeanSimilarity", "TotalAmount"} {
		if !fields[want] {
			t.Errorf("Expected divergence on %s, got %v", want, report.Results[0].Divergences)
		}
	}
}

func TestVerifyIdempotence_RunError(t *testing.T) {
	_, err := VerifyIdempotence(context.Background(), failingRunner{}, nil)
	if err == nil || errors.Is(err, ErrNotDeterministic) {
		t.Errorf("Expected run error, got %v", err)
	}
}

func TestCompare_MissingAndExtra(t *testing.T) {
	ab := testPattern("A", "B")
	cd := testPattern("C", "D")
	ef := testPattern("E", "F")

	report := Compare([]domain.AccountGroupPattern{ab, cd}, []domain.AccountGroupPattern{ab, ef})

	if report.Match {
		t.Error("Expected mismatch")
	}
	if len(report.MissingInSecond) != 1 || report.MissingInSecond[0] != cd.PatternID {
		t.Errorf("MissingInSecond: got %v", report.MissingInSecond)
	}
	if len(report.ExtraInSecond) != 1 || report.ExtraInSecond[0] != ef.PatternID {
		t.Errorf("ExtraInSecond: got %v", report.ExtraInSecond)
	}
	if len(report.Results) != 1 || !report.Results[0].Match {
		t.Errorf("Expected one matching shared pattern, got %+v", report.Results)
	}
}

func TestComparePatterns_ExactMatch(t *testing.T) {
	p := testPattern("A", "B")
	if d := ComparePatterns(p, testPattern("A", "B")); len(d) != 0 {
		t.Errorf("Expected no divergences, got %v", d)
	}
}

func TestComparePatterns_RoundDivergence(t *testing.T) {
	a := testPattern("A", "B")
	b := testPattern("A", "B")
	b.Rounds = []domain.RoundCandidate{a.Rounds[0]}
	b.Rounds[0].Similarity = 0.5

	d := ComparePatterns(a, b)
	if len(d) != 1 || d[0].Field != "Rounds[1].Similarity" {
		t.Errorf("Expected one round similarity divergence, got %v", d)
	}
}
