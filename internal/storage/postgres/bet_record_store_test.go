package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"washtrade-lab/internal/domain"
	"washtrade-lab/internal/storage"
)

func TestBetRecordStore_InsertAndGetByID(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewBetRecordStore(pool)

	bet := testBet("a.csv", 1, "K3", "20240101001", "u1", domain.DirectionBig, "123.4567890123")
	require.NoError(t, store.Insert(ctx, bet))

	got, err := store.GetByID(ctx, bet.RecordID)
	require.NoError(t, err)
	assert.Equal(t, bet.RecordID, got.RecordID)
	assert.Equal(t, "a.csv", got.Source)
	assert.Equal(t, 1, got.Row)
	assert.Equal(t, domain.DirectionBig, got.Direction)
	assert.True(t, bet.Amount.Equal(got.Amount), "amount %s != %s", got.Amount, bet.Amount)

	_, err = store.GetByID(ctx, "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestBetRecordStore_DuplicateKey(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewBetRecordStore(pool)

	bet := testBet("a.csv", 1, "K3", "1", "u1", domain.DirectionBig, "10")
	require.NoError(t, store.Insert(ctx, bet))
	assert.ErrorIs(t, store.Insert(ctx, bet), storage.ErrDuplicateKey)
}

func TestBetRecordStore_InsertBulkAndQueries(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewBetRecordStore(pool)

	bets := []*domain.IngestedBet{
		testBet("b.csv", 1, "PK10", "1", "u3", domain.DirectionOdd, "30"),
		testBet("a.csv", 2, "K3", "1", "u2", domain.DirectionSmall, "20"),
		testBet("a.csv", 1, "K3", "1", "u1", domain.DirectionBig, "20"),
	}
	require.NoError(t, store.InsertBulk(ctx, bets))

	all, err := store.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "u1", all[0].AccountID)
	assert.Equal(t, "u2", all[1].AccountID)
	assert.Equal(t, "u3", all[2].AccountID)

	k3, err := store.GetByLottery(ctx, "K3")
	require.NoError(t, err)
	assert.Len(t, k3, 2)

	lotteries, err := store.ListLotteries(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"K3", "PK10"}, lotteries)

	n, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestBetRecordStore_InsertBulkAtomic(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewBetRecordStore(pool)

	existing := testBet("a.csv", 1, "K3", "1", "u1", domain.DirectionBig, "10")
	require.NoError(t, store.Insert(ctx, existing))

	err := store.InsertBulk(ctx, []*domain.IngestedBet{
		testBet("a.csv", 2, "K3", "1", "u2", domain.DirectionSmall, "10"),
		existing,
	})
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)

	n, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n, "failed batch must roll back")
}

func TestIngestLogStore(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewIngestLogStore(pool)

	_, err := store.GetBySource(ctx, "a.csv")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	at := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	run := &storage.IngestRun{RunID: "run-1", Source: "a.csv", TotalRows: 10, Valid: 8, Dropped: 2, IngestedAt: at}
	require.NoError(t, store.Record(ctx, run))
	assert.ErrorIs(t, store.Record(ctx, run), storage.ErrDuplicateKey)

	got, err := store.GetBySource(ctx, "a.csv")
	require.NoError(t, err)
	assert.Equal(t, "run-1", got.RunID)
	assert.Equal(t, 8, got.Valid)
	assert.True(t, at.Equal(got.IngestedAt))

	list, err := store.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}
