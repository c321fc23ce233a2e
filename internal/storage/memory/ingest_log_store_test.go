package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"washtrade-lab/internal/storage"
)

func TestIngestLogStore(t *testing.T) {
	store := NewIngestLogStore()
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	if _, err := store.GetBySource(ctx, "a.csv"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("Expected ErrNotFound, got %v", err)
	}

	runs := []*storage.IngestRun{
		{RunID: "r2", Source: "b.csv", TotalRows: 5, Valid: 4, Dropped: 1, IngestedAt: base.Add(time.Minute)},
		{RunID: "r1", Source: "a.csv", TotalRows: 3, Valid: 3, IngestedAt: base},
	}
	for _, r := range runs {
		if err := store.Record(ctx, r); err != nil {
			t.Fatalf("Record failed: %v", err)
		}
	}

	if err := store.Record(ctx, &storage.IngestRun{Source: "a.csv"}); !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("Expected ErrDuplicateKey, got %v", err)
	}
	if err := store.Record(ctx, &storage.IngestRun{}); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput, got %v", err)
	}

	got, err := store.GetBySource(ctx, "b.csv")
	if err != nil {
		t.Fatalf("GetBySource failed: %v", err)
	}
	if got.Valid != 4 || got.Dropped != 1 {
		t.Errorf("Unexpected run: %+v", got)
	}

	list, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(list) != 2 || list[0].Source != "a.csv" || list[1].Source != "b.csv" {
		t.Errorf("Unexpected order: %+v", list)
	}
}
