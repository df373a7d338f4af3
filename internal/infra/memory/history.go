package memory

import (
	"context"
	"sync"

	"quiz-battle-service/internal/domain"
)

// HistoryStore keeps battle records in process.
type HistoryStore struct {
	mu      sync.RWMutex
	records []domain.BattleRecord
}

func NewHistoryStore() *HistoryStore {
	return &HistoryStore{}
}

func (s *HistoryStore) RecordMatch(_ context.Context, record domain.BattleRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, record)
	return nil
}

// Records returns the stored records, oldest first.
func (s *HistoryStore) Records() []domain.BattleRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.BattleRecord, len(s.records))
	copy(out, s.records)
	return out
}
