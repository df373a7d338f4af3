package memory

import (
	"context"
	"sync"
)

// Counters are a user's lifetime battle answer counters.
type Counters struct {
	Solved    int
	Attempted int
}

// AnalyticsSink accumulates per-user counters in process.
type AnalyticsSink struct {
	mu       sync.Mutex
	counters map[int64]Counters
}

func NewAnalyticsSink() *AnalyticsSink {
	return &AnalyticsSink{counters: make(map[int64]Counters)}
}

func (s *AnalyticsSink) RecordAttempts(_ context.Context, userID int64, solved, attempted int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.counters[userID]
	c.Solved += solved
	c.Attempted += attempted
	s.counters[userID] = c
	return nil
}

func (s *AnalyticsSink) Counters(userID int64) Counters {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counters[userID]
}
