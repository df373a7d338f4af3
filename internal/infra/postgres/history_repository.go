package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v4/pgxpool"
	"quiz-battle-service/internal/domain"
)

// HistoryRepository appends finished matches to battle_history.
type HistoryRepository struct {
	pool *pgxpool.Pool
}

func NewHistoryRepository(pool *pgxpool.Pool) *HistoryRepository {
	return &HistoryRepository{pool: pool}
}

func (r *HistoryRepository) RecordMatch(ctx context.Context, rec domain.BattleRecord) error {
	_, err := r.pool.Exec(ctx, `
INSERT INTO battle_history
  (id1, id2, result1, result2, points1, points2, solvingtime1, solvingtime2, rating1, rating2, date)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		rec.Player1ID, rec.Player2ID,
		rec.Result1, rec.Result2,
		rec.Points1, rec.Points2,
		intArray(rec.SolveTimes1), intArray(rec.SolveTimes2),
		rec.Rating1, rec.Rating2,
		rec.Date,
	)
	if err != nil {
		return fmt.Errorf("insert battle history: %w", err)
	}
	return nil
}

// intArray keeps nil slices from being written as NULL.
func intArray(v []int) []int32 {
	out := make([]int32, len(v))
	for i, n := range v {
		out[i] = int32(n)
	}
	return out
}
