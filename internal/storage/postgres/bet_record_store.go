package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"washtrade-lab/internal/domain"
	"washtrade-lab/internal/storage"
)

// BetRecordStore implements storage.BetRecordStore using PostgreSQL.
type BetRecordStore struct {
	pool *Pool
}

// NewBetRecordStore creates a new BetRecordStore.
func NewBetRecordStore(pool *Pool) *BetRecordStore {
	return &BetRecordStore{pool: pool}
}

// Compile-time interface check.
var _ storage.BetRecordStore = (*BetRecordStore)(nil)

// Amounts travel as text so NUMERIC keeps every digit.
const insertBetQuery = `
	INSERT INTO bet_records (
		record_id, source, row_number,
		lottery_id, round_id, account_id, direction, amount
	) VALUES (
		$1, $2, $3,
		$4, $5, $6, $7, CAST($8::text AS NUMERIC)
	)
`

const selectBetColumns = `
	SELECT record_id, source, row_number,
	       lottery_id, round_id, account_id, direction, amount::text
	FROM bet_records
`

func betArgs(b *domain.IngestedBet) []any {
	return []any{
		b.RecordID, b.Source, b.Row,
		b.LotteryID, b.RoundID, b.AccountID, string(b.Direction), b.Amount.String(),
	}
}

// Insert adds a new record. Returns ErrDuplicateKey if record_id exists.
func (s *BetRecordStore) Insert(ctx context.Context, b *domain.IngestedBet) error {
	if b == nil || b.RecordID == "" {
		return storage.ErrInvalidInput
	}

	_, err := s.pool.Exec(ctx, insertBetQuery, betArgs(b)...)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert bet record: %w", err)
	}
	return nil
}

// InsertBulk adds multiple records atomically. Fails entire batch on any duplicate.
func (s *BetRecordStore) InsertBulk(ctx context.Context, bets []*domain.IngestedBet) error {
	if len(bets) == 0 {
		return nil
	}
	for _, b := range bets {
		if b == nil || b.RecordID == "" {
			return storage.ErrInvalidInput
		}
	}

	return s.pool.withTx(ctx, func(tx pgx.Tx) error {
		batch := &pgx.Batch{}
		for _, b := range bets {
			batch.Queue(insertBetQuery, betArgs(b)...)
		}

		br := tx.SendBatch(ctx, batch)
		for range bets {
			if _, err := br.Exec(); err != nil {
				br.Close()
				if isDuplicateKeyError(err) {
					return storage.ErrDuplicateKey
				}
				return fmt.Errorf("insert bet record in bulk: %w", err)
			}
		}
		if err := br.Close(); err != nil {
			return fmt.Errorf("close batch: %w", err)
		}
		return nil
	})
}

// GetByID retrieves a record by its ID. Returns ErrNotFound if not exists.
func (s *BetRecordStore) GetByID(ctx context.Context, recordID string) (*domain.IngestedBet, error) {
	row := s.pool.QueryRow(ctx, selectBetColumns+` WHERE record_id = $1`, recordID)

	b, err := scanBet(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get bet record: %w", err)
	}
	return b, nil
}

// GetAll retrieves every record, ordered by (source, row).
func (s *BetRecordStore) GetAll(ctx context.Context) ([]*domain.IngestedBet, error) {
	rows, err := s.pool.Query(ctx, selectBetColumns+` ORDER BY source, row_number, record_id`)
	if err != nil {
		return nil, fmt.Errorf("query bet records: %w", err)
	}
	defer rows.Close()

	return scanBets(rows)
}

// GetByLottery retrieves all records of one lottery, ordered by (source, row).
func (s *BetRecordStore) GetByLottery(ctx context.Context, lotteryID string) ([]*domain.IngestedBet, error) {
	rows, err := s.pool.Query(ctx,
		selectBetColumns+` WHERE lottery_id = $1 ORDER BY source, row_number, record_id`, lotteryID)
	if err != nil {
		return nil, fmt.Errorf("query bet records by lottery: %w", err)
	}
	defer rows.Close()

	return scanBets(rows)
}

// ListLotteries returns the distinct lottery ids, ascending.
func (s *BetRecordStore) ListLotteries(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx, `SELECT DISTINCT lottery_id FROM bet_records ORDER BY lottery_id`)
	if err != nil {
		return nil, fmt.Errorf("list lotteries: %w", err)
	}
	defer rows.Close()

	lotteries := make([]string, 0)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan lottery: %w", err)
		}
		lotteries = append(lotteries, id)
	}
	return lotteries, rows.Err()
}

// Count returns the number of stored records.
func (s *BetRecordStore) Count(ctx context.Context) (int, error) {
	var n int64
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM bet_records`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count bet records: %w", err)
	}
	return int(n), nil
}

func scanBet(row pgx.Row) (*domain.IngestedBet, error) {
	var (
		b         domain.IngestedBet
		direction string
		amount    string
	)
	err := row.Scan(
		&b.RecordID, &b.Source, &b.Row,
		&b.LotteryID, &b.RoundID, &b.AccountID, &direction, &amount,
	)
	if err != nil {
		return nil, err
	}

	b.Direction = domain.Direction(direction)
	b.Amount, err = decimal.NewFromString(amount)
	if err != nil {
		return nil, fmt.Errorf("parse amount %q: %w", amount, err)
	}
	return &b, nil
}

func scanBets(rows pgx.Rows) ([]*domain.IngestedBet, error) {
	bets := make([]*domain.IngestedBet, 0)
	for rows.Next() {
		b, err := scanBet(rows)
		if err != nil {
			return nil, fmt.Errorf("scan bet record: %w", err)
		}
		bets = append(bets, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate bet records: %w", err)
	}
	return bets, nil
}
