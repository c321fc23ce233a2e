package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"washtrade-lab/internal/domain"
	"washtrade-lab/internal/idhash"
	"washtrade-lab/internal/storage"
)

func ingested(source string, row int, lottery, account string, dir domain.Direction, amount int64) *domain.IngestedBet {
	return &domain.IngestedBet{
		RecordID: idhash.ComputeRecordID(source, row),
		Source:   source,
		Row:      row,
		BetRecord: domain.BetRecord{
			RoundID:   "001",
			LotteryID: lottery,
			AccountID: account,
			Direction: dir,
			Amount:    decimal.NewFromInt(amount),
		},
	}
}

func TestBetRecordStore_InsertAndGet(t *testing.T) {
	store := NewBetRecordStore()
	ctx := context.Background()

	bet := ingested("a.csv", 1, "K3", "u1", domain.DirectionBig, 100)
	if err := store.Insert(ctx, bet); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	got, err := store.GetByID(ctx, bet.RecordID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if !got.Amount.Equal(decimal.NewFromInt(100)) {
		t.Errorf("Amount mismatch: got %s, want 100", got.Amount)
	}

	// Mutating the returned copy must not leak into the store.
	got.AccountID = "changed"
	again, _ := store.GetByID(ctx, bet.RecordID)
	if again.AccountID != "u1" {
		t.Errorf("store mutated through returned pointer: %s", again.AccountID)
	}
}

func TestBetRecordStore_DuplicateKey(t *testing.T) {
	store := NewBetRecordStore()
	ctx := context.Background()

	bet := ingested("a.csv", 1, "K3", "u1", domain.DirectionBig, 100)
	if err := store.Insert(ctx, bet); err != nil {
		t.Fatalf("First insert failed: %v", err)
	}
	if err := store.Insert(ctx, bet); !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("Expected ErrDuplicateKey, got %v", err)
	}
}

func TestBetRecordStore_NotFound(t *testing.T) {
	store := NewBetRecordStore()

	_, err := store.GetByID(context.Background(), "nonexistent")
	if !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestBetRecordStore_InvalidInput(t *testing.T) {
	store := NewBetRecordStore()
	ctx := context.Background()

	if err := store.Insert(ctx, nil); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput for nil, got %v", err)
	}
	if err := store.Insert(ctx, &domain.IngestedBet{}); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput for empty id, got %v", err)
	}
}

func TestBetRecordStore_InsertBulk(t *testing.T) {
	store := NewBetRecordStore()
	ctx := context.Background()

	bets := []*domain.IngestedBet{
		ingested("b.csv", 2, "PK10", "u3", domain.DirectionOdd, 30),
		ingested("a.csv", 2, "K3", "u2", domain.DirectionSmall, 20),
		ingested("a.csv", 1, "K3", "u1", domain.DirectionBig, 10),
	}
	if err := store.InsertBulk(ctx, bets); err != nil {
		t.Fatalf("InsertBulk failed: %v", err)
	}

	all, err := store.GetAll(ctx)
	if err != nil {
		t.Fatalf("GetAll failed: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("Expected 3 records, got %d", len(all))
	}
	if all[0].AccountID != "u1" || all[1].AccountID != "u2" || all[2].AccountID != "u3" {
		t.Errorf("Wrong order: %s, %s, %s", all[0].AccountID, all[1].AccountID, all[2].AccountID)
	}

	k3, err := store.GetByLottery(ctx, "K3")
	if err != nil {
		t.Fatalf("GetByLottery failed: %v", err)
	}
	if len(k3) != 2 {
		t.Errorf("Expected 2 K3 records, got %d", len(k3))
	}

	lotteries, err := store.ListLotteries(ctx)
	if err != nil {
		t.Fatalf("ListLotteries failed: %v", err)
	}
	if len(lotteries) != 2 || lotteries[0] != "K3" || lotteries[1] != "PK10" {
		t.Errorf("Unexpected lotteries: %v", lotteries)
	}

	n, err := store.Count(ctx)
	if err != nil || n != 3 {
		t.Errorf("Count = %d, %v; want 3", n, err)
	}
}

func TestBetRecordStore_InsertBulkAtomic(t *testing.T) {
	store := NewBetRecordStore()
	ctx := context.Background()

	existing := ingested("a.csv", 1, "K3", "u1", domain.DirectionBig, 10)
	if err := store.Insert(ctx, existing); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	batch := []*domain.IngestedBet{
		ingested("a.csv", 2, "K3", "u2", domain.DirectionSmall, 10),
		existing,
	}
	if err := store.InsertBulk(ctx, batch); !errors.Is(err, storage.ErrDuplicateKey) {
		t.Fatalf("Expected ErrDuplicateKey, got %v", err)
	}

	// Intra-batch duplicate.
	dup := ingested("c.csv", 1, "K3", "u9", domain.DirectionBig, 10)
	if err := store.InsertBulk(ctx, []*domain.IngestedBet{dup, dup}); !errors.Is(err, storage.ErrDuplicateKey) {
		t.Fatalf("Expected ErrDuplicateKey for intra-batch duplicate, got %v", err)
	}

	n, _ := store.Count(ctx)
	if n != 1 {
		t.Errorf("Failed batches must not insert anything: count = %d", n)
	}
}
