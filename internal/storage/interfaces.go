package storage

import (
	"context"

	"washtrade-lab/internal/domain"
)

// BetRecordStore provides access to bet_records storage.
// Reads are ordered by (source, row) so a batch replays in ingestion order.
type BetRecordStore interface {
	// Insert adds a new record. Returns ErrDuplicateKey if record_id exists.
	Insert(ctx context.Context, b *domain.IngestedBet) error

	// InsertBulk adds multiple records atomically. Fails entire batch on any duplicate.
	InsertBulk(ctx context.Context, bets []*domain.IngestedBet) error

	// GetByID retrieves a record by its ID. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, recordID string) (*domain.IngestedBet, error)

	// GetAll retrieves every stored record.
	GetAll(ctx context.Context) ([]*domain.IngestedBet, error)

	// GetByLottery retrieves all records of one lottery.
	GetByLottery(ctx context.Context, lotteryID string) ([]*domain.IngestedBet, error)

	// ListLotteries returns the distinct lottery ids, ascending.
	ListLotteries(ctx context.Context) ([]string, error)

	// Count returns the number of stored records.
	Count(ctx context.Context) (int, error)
}
