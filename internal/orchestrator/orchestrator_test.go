package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"

	"washtrade-lab/internal/config"
	"washtrade-lab/internal/detection"
	"washtrade-lab/internal/domain"
	"washtrade-lab/internal/idhash"
	"washtrade-lab/internal/observability"
	"washtrade-lab/internal/reporting"
	"washtrade-lab/internal/storage"
	"washtrade-lab/internal/storage/memory"
)

var fixedTime = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func ingested(row int, lottery, round, account string, dir domain.Direction, amount string) *domain.IngestedBet {
	return &domain.IngestedBet{
		RecordID: idhash.ComputeRecordID("test.csv", row),
		Source:   "test.csv",
		Row:      row,
		BetRecord: domain.BetRecord{
			RoundID:   round,
			LotteryID: lottery,
			AccountID: account,
			Direction: dir,
			Amount:    decimal.RequireFromString(amount),
		},
	}
}

// seedStore stores a BIG/SMALL hedge between A and B for 4 rounds of K3,
// and an ODD/EVEN hedge between C and D for 3 rounds of PK10.
func seedStore(t *testing.T) *memory.BetRecordStore {
	t.Helper()
	store := memory.NewBetRecordStore()
	var bets []*domain.IngestedBet
	row := 0
	next := func() int { row++; return row }
	for r := 1; r <= 4; r++ {
		round := fmt.Sprintf("%d", r)
		bets = append(bets,
			ingested(next(), "K3", round, "A", domain.DirectionBig, "100"),
			ingested(next(), "K3", round, "B", domain.DirectionSmall, "100"),
		)
	}
	for r := 1; r <= 3; r++ {
		round := fmt.Sprintf("%d", r)
		bets = append(bets,
			ingested(next(), "PK10", round, "C", domain.DirectionOdd, "30"),
			ingested(next(), "PK10", round, "D", domain.DirectionEven, "30"),
		)
	}
	if err := store.InsertBulk(context.Background(), bets); err != nil {
		t.Fatalf("InsertBulk failed: %v", err)
	}
	return store
}

type failingStore struct {
	storage.BetRecordStore
}

func (failingStore) GetAll(context.Context) ([]*domain.IngestedBet, error) {
	return nil, errors.New("connection refused")
}

func TestOrchestrator_Run_EmptyStore(t *testing.T) {
	orch, err := New(Options{
		Store:     memory.NewBetRecordStore(),
		Detection: config.DefaultDetection(),
		Clock:     func() time.Time { return fixedTime },
	})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	result, err := orch.Run(context.Background())
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if result.Records != 0 {
		t.Errorf("expected 0 records, got %d", result.Records)
	}
	if len(result.Result.Patterns) != 0 {
		t.Errorf("expected 0 patterns, got %d", len(result.Result.Patterns))
	}
	if result.Report == nil {
		t.Fatal("expected a report for an empty batch")
	}
	if len(result.Files) != 0 {
		t.Errorf("expected no files without output dir, got %v", result.Files)
	}
}

func TestOrchestrator_Run_WritesReport(t *testing.T) {
	dir := t.TempDir()
	reg := prometheus.NewRegistry()

	orch, err := New(Options{
		Store:     seedStore(t),
		Detection: config.DefaultDetection(),
		OutputDir: dir,
		Verify:    true,
		Metrics:   observability.NewMetricsWith(reg, "test"),
		Clock:     func() time.Time { return fixedTime },
	})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	result, err := orch.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if result.RunID == "" {
		t.Error("expected a run id")
	}
	if result.Records != 14 {
		t.Errorf("expected 14 records, got %d", result.Records)
	}
	if len(result.Result.Patterns) != 2 {
		t.Fatalf("expected 2 patterns, got %d", len(result.Result.Patterns))
	}
	if result.Verification == nil || !result.Verification.Match {
		t.Error("expected a passing verification report")
	}
	if result.Report.RunID != result.RunID {
		t.Errorf("report run id %q does not match %q", result.Report.RunID, result.RunID)
	}
	if v := result.Report.Reproducibility.Verified; v == nil || !*v {
		t.Error("expected report to carry the verification outcome")
	}

	if len(result.Files) != 3 {
		t.Fatalf("expected 3 files, got %v", result.Files)
	}
	for _, name := range []string{reporting.ReportFile, reporting.PatternsFile, reporting.RoundsFile} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("missing %s: %v", name, err)
		}
	}

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather failed: %v", err)
	}
	found := false
	for _, f := range families {
		if f.GetName() == "test_detection_patterns_detected_total" {
			found = f.GetMetric()[0].GetCounter().GetValue() == 2
		}
	}
	if !found {
		t.Error("expected patterns metric to count 2")
	}
}

func TestOrchestrator_Run_LotteryFilter(t *testing.T) {
	orch, err := New(Options{
		Store:     seedStore(t),
		Detection: config.DefaultDetection(),
		Lotteries: []string{"PK10"},
	})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	result, err := orch.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if result.Records != 6 {
		t.Errorf("expected 6 records, got %d", result.Records)
	}
	if len(result.Result.Patterns) != 1 || result.Result.Patterns[0].LotteryID != "PK10" {
		t.Errorf("expected one PK10 pattern, got %+v", result.Result.Patterns)
	}
}

func TestOrchestrator_Run_LoadError(t *testing.T) {
	orch, err := New(Options{
		Store:     failingStore{},
		Detection: config.DefaultDetection(),
	})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	if _, err := orch.Run(context.Background()); err == nil {
		t.Error("expected load error")
	}
}

func TestOrchestrator_Run_MalformedRecord(t *testing.T) {
	store := memory.NewBetRecordStore()
	bad := ingested(1, "K3", "1", "A", domain.Direction("HIGH"), "100")
	if err := store.Insert(context.Background(), bad); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	orch, err := New(Options{Store: store, Detection: config.DefaultDetection()})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	_, err = orch.Run(context.Background())
	var malformed *detection.MalformedRecordError
	if !errors.As(err, &malformed) {
		t.Fatalf("expected MalformedRecordError, got %v", err)
	}
	if malformed.Rule != detection.RuleUnknownDirection {
		t.Errorf("expected rule %s, got %s", detection.RuleUnknownDirection, malformed.Rule)
	}
}

func TestNew_Validation(t *testing.T) {
	if _, err := New(Options{Detection: config.DefaultDetection()}); err == nil {
		t.Error("expected error for missing store")
	}

	bad := config.DefaultDetection()
	bad.MaxGroupSize = 1
	_, err := New(Options{Store: memory.NewBetRecordStore(), Detection: bad})
	if !errors.Is(err, config.ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig, got %v", err)
	}
}
