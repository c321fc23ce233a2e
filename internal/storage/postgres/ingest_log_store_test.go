package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"washtrade-lab/internal/storage"
)

func TestIngestLogStore_RecordAndGet(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewIngestLogStore(pool)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	_, err := store.GetBySource(ctx, "a.csv")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	require.NoError(t, store.Record(ctx, &storage.IngestRun{
		RunID: "r2", Source: "b.csv", TotalRows: 5, Valid: 4, Dropped: 1, IngestedAt: base.Add(time.Minute),
	}))
	require.NoError(t, store.Record(ctx, &storage.IngestRun{
		RunID: "r1", Source: "a.csv", TotalRows: 3, Valid: 3, IngestedAt: base,
	}))

	err = store.Record(ctx, &storage.IngestRun{RunID: "r3", Source: "a.csv", IngestedAt: base})
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)
	assert.ErrorIs(t, store.Record(ctx, &storage.IngestRun{}), storage.ErrInvalidInput)

	got, err := store.GetBySource(ctx, "b.csv")
	require.NoError(t, err)
	assert.Equal(t, "r2", got.RunID)
	assert.Equal(t, 1, got.Dropped)
	assert.True(t, got.IngestedAt.Equal(base.Add(time.Minute)))

	runs, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "a.csv", runs[0].Source)
	assert.Equal(t, "b.csv", runs[1].Source)
}
