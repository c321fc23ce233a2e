package memory

import (
	"context"
	"sort"
	"sync"

	"washtrade-lab/internal/domain"
	"washtrade-lab/internal/storage"
)

// BetRecordStore is an in-memory implementation of storage.BetRecordStore.
type BetRecordStore struct {
	mu   sync.RWMutex
	data map[string]*domain.IngestedBet // keyed by record_id
}

// NewBetRecordStore creates a new in-memory bet record store.
func NewBetRecordStore() *BetRecordStore {
	return &BetRecordStore{
		data: make(map[string]*domain.IngestedBet),
	}
}

// Insert adds a new record. Returns ErrDuplicateKey if record_id exists.
func (s *BetRecordStore) Insert(_ context.Context, b *domain.IngestedBet) error {
	if b == nil || b.RecordID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[b.RecordID]; exists {
		return storage.ErrDuplicateKey
	}

	copy := *b
	s.data[b.RecordID] = &copy
	return nil
}

// InsertBulk adds multiple records atomically. Fails entire batch on any duplicate.
func (s *BetRecordStore) InsertBulk(_ context.Context, bets []*domain.IngestedBet) error {
	if len(bets) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	batchKeys := make(map[string]struct{}, len(bets))
	for _, b := range bets {
		if b == nil || b.RecordID == "" {
			return storage.ErrInvalidInput
		}
		if _, exists := s.data[b.RecordID]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[b.RecordID]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[b.RecordID] = struct{}{}
	}

	for _, b := range bets {
		copy := *b
		s.data[b.RecordID] = &copy
	}
	return nil
}

// GetByID retrieves a record by its ID. Returns ErrNotFound if not exists.
func (s *BetRecordStore) GetByID(_ context.Context, recordID string) (*domain.IngestedBet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, exists := s.data[recordID]
	if !exists {
		return nil, storage.ErrNotFound
	}

	copy := *b
	return &copy, nil
}

// GetAll retrieves every record, ordered by (source, row).
func (s *BetRecordStore) GetAll(_ context.Context) ([]*domain.IngestedBet, error) {
	return s.filter(func(*domain.IngestedBet) bool { return true }), nil
}

// GetByLottery retrieves all records of one lottery, ordered by (source, row).
func (s *BetRecordStore) GetByLottery(_ context.Context, lotteryID string) ([]*domain.IngestedBet, error) {
	return s.filter(func(b *domain.IngestedBet) bool { return b.LotteryID == lotteryID }), nil
}

// ListLotteries returns the distinct lottery ids, ascending.
func (s *BetRecordStore) ListLotteries(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[string]struct{})
	for _, b := range s.data {
		seen[b.LotteryID] = struct{}{}
	}
	result := make([]string, 0, len(seen))
	for id := range seen {
		result = append(result, id)
	}
	sort.Strings(result)
	return result, nil
}

// Count returns the number of stored records.
func (s *BetRecordStore) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data), nil
}

func (s *BetRecordStore) filter(keep func(*domain.IngestedBet) bool) []*domain.IngestedBet {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.IngestedBet, 0, len(s.data))
	for _, b := range s.data {
		if keep(b) {
			copy := *b
			result = append(result, &copy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].Source != result[j].Source {
			return result[i].Source < result[j].Source
		}
		if result[i].Row != result[j].Row {
			return result[i].Row < result[j].Row
		}
		return result[i].RecordID < result[j].RecordID
	})
	return result
}

var _ storage.BetRecordStore = (*BetRecordStore)(nil)
