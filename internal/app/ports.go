package app

import (
	"context"

	"quiz-battle-service/internal/domain"
)

// Conn is an attached client transport. Rooms hold Conns as weak handles: the
// transport layer owns the connection and detaches it on disconnect.
type Conn interface {
	Send(ev domain.Event) error
}

// UserDirectory resolves bearer tokens and stores ratings.
type UserDirectory interface {
	Authenticate(ctx context.Context, token string) (domain.Identity, error)
	UpdateRating(ctx context.Context, userID int64, rating int) error
}

// TaskCatalog selects tasks for a match.
type TaskCatalog interface {
	QueryTasks(ctx context.Context, filter domain.TaskFilter) ([]domain.Task, error)
}

// HistoryRepository persists finished matches.
type HistoryRepository interface {
	RecordMatch(ctx context.Context, record domain.BattleRecord) error
}

// AnalyticsSink records per-user solved/attempted counters.
type AnalyticsSink interface {
	RecordAttempts(ctx context.Context, userID int64, solved, attempted int) error
}

// RoomObserver is notified when rooms appear, change and disappear from the
// registry. RoomUpdated also fires periodically for active rooms.
type RoomObserver interface {
	RoomOpened(room domain.RoomSummary)
	RoomUpdated(room domain.RoomSummary)
	RoomClosed(roomID int64)
}

// Grader decides whether a submitted answer matches the task's canonical answer.
type Grader interface {
	Grade(ctx context.Context, task domain.Task, answer string) (bool, error)
}
