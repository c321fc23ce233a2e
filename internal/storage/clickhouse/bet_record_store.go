package clickhouse

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"washtrade-lab/internal/domain"
	"washtrade-lab/internal/storage"
)

// existsChunk bounds the IN list of duplicate checks.
const existsChunk = 1000

// BetRecordStore implements storage.BetRecordStore using ClickHouse.
// MergeTree does not enforce uniqueness, so inserts check record ids first.
type BetRecordStore struct {
	conn *Conn
}

// NewBetRecordStore creates a new BetRecordStore.
func NewBetRecordStore(conn *Conn) *BetRecordStore {
	return &BetRecordStore{conn: conn}
}

// Compile-time interface check.
var _ storage.BetRecordStore = (*BetRecordStore)(nil)

const selectBetColumns = `
	SELECT record_id, source, row_number, lottery_id, round_id, account_id, direction, amount
	FROM bet_records
`

// Insert adds a new record. Returns ErrDuplicateKey if record_id exists.
func (s *BetRecordStore) Insert(ctx context.Context, b *domain.IngestedBet) error {
	return s.InsertBulk(ctx, []*domain.IngestedBet{b})
}

// InsertBulk adds multiple records in one batch. Fails entire batch on duplicate.
func (s *BetRecordStore) InsertBulk(ctx context.Context, bets []*domain.IngestedBet) error {
	if len(bets) == 0 {
		return nil
	}

	ids := make([]string, 0, len(bets))
	seen := make(map[string]struct{}, len(bets))
	for _, b := range bets {
		if b == nil || b.RecordID == "" {
			return storage.ErrInvalidInput
		}
		if _, exists := seen[b.RecordID]; exists {
			return storage.ErrDuplicateKey
		}
		seen[b.RecordID] = struct{}{}
		ids = append(ids, b.RecordID)
	}

	exists, err := s.anyExists(ctx, ids)
	if err != nil {
		return fmt.Errorf("check exists: %w", err)
	}
	if exists {
		return storage.ErrDuplicateKey
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO bet_records (
			record_id, source, row_number, lottery_id, round_id, account_id, direction, amount
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, b := range bets {
		err = batch.Append(
			b.RecordID, b.Source, uint32(b.Row),
			b.LotteryID, b.RoundID, b.AccountID, string(b.Direction), b.Amount,
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}
	return nil
}

// GetByID retrieves a record by its ID. Returns ErrNotFound if not exists.
func (s *BetRecordStore) GetByID(ctx context.Context, recordID string) (*domain.IngestedBet, error) {
	rows, err := s.conn.Query(ctx, selectBetColumns+` WHERE record_id = ? LIMIT 1`, recordID)
	if err != nil {
		return nil, fmt.Errorf("query by record id: %w", err)
	}
	defer rows.Close()

	bets, err := scanBets(rows)
	if err != nil {
		return nil, err
	}
	if len(bets) == 0 {
		return nil, storage.ErrNotFound
	}
	return bets[0], nil
}

// GetAll retrieves every record, ordered by (source, row).
func (s *BetRecordStore) GetAll(ctx context.Context) ([]*domain.IngestedBet, error) {
	rows, err := s.conn.Query(ctx, selectBetColumns+` ORDER BY source, row_number, record_id`)
	if err != nil {
		return nil, fmt.Errorf("query bet records: %w", err)
	}
	defer rows.Close()

	return scanBets(rows)
}

// GetByLottery retrieves all records of one lottery, ordered by (source, row).
func (s *BetRecordStore) GetByLottery(ctx context.Context, lotteryID string) ([]*domain.IngestedBet, error) {
	rows, err := s.conn.Query(ctx,
		selectBetColumns+` WHERE lottery_id = ? ORDER BY source, row_number, record_id`, lotteryID)
	if err != nil {
		return nil, fmt.Errorf("query by lottery: %w", err)
	}
	defer rows.Close()

	return scanBets(rows)
}

// ListLotteries returns the distinct lottery ids, ascending.
func (s *BetRecordStore) ListLotteries(ctx context.Context) ([]string, error) {
	rows, err := s.conn.Query(ctx, `SELECT DISTINCT lottery_id FROM bet_records ORDER BY lottery_id`)
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
	var n uint64
	if err := s.conn.QueryRow(ctx, `SELECT count(*) FROM bet_records`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count bet records: %w", err)
	}
	return int(n), nil
}

// anyExists reports whether any of ids is already stored.
func (s *BetRecordStore) anyExists(ctx context.Context, ids []string) (bool, error) {
	for start := 0; start < len(ids); start += existsChunk {
		end := start + existsChunk
		if end > len(ids) {
			end = len(ids)
		}

		var count uint64
		err := s.conn.QueryRow(ctx,
			`SELECT count(*) FROM bet_records WHERE record_id IN (?)`, ids[start:end]).Scan(&count)
		if err != nil {
			return false, err
		}
		if count > 0 {
			return true, nil
		}
	}
	return false, nil
}

// chRows is the subset of driver.Rows used by the scanners.
type chRows interface {
	Next() bool
	Scan(dest ...interface{}) error
	Err() error
}

func scanBets(rows chRows) ([]*domain.IngestedBet, error) {
	bets := make([]*domain.IngestedBet, 0)

	for rows.Next() {
		var (
			b         domain.IngestedBet
			row       uint32
			direction string
			amount    decimal.Decimal
		)
		err := rows.Scan(&b.RecordID, &b.Source, &row, &b.LotteryID, &b.RoundID, &b.AccountID, &direction, &amount)
		if err != nil {
			return nil, fmt.Errorf("scan bet row: %w", err)
		}
		b.Row = int(row)
		b.Direction = domain.Direction(direction)
		b.Amount = amount
		bets = append(bets, &b)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate bet rows: %w", err)
	}
	return bets, nil
}
