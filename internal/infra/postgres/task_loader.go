package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v4/pgxpool"
	"quiz-battle-service/internal/domain"
)

// TaskLoader reads candidate pools from the tasks table.
type TaskLoader struct {
	pool *pgxpool.Pool
}

func NewTaskLoader(pool *pgxpool.Pool) *TaskLoader {
	return &TaskLoader{pool: pool}
}

const selectTasks = `
SELECT id, level, category, subcategory, condition, solution, answer, source, answer_type
FROM tasks
WHERE level >= $1
  AND ($2 = 0 OR level <= $2)
  AND ($3 = '' OR category = $3)
  AND (cardinality($4::text[]) = 0 OR subcategory && $4::text[])
ORDER BY id`

// LoadTasks returns every task matching the filter's level range, category and
// subcategory overlap, ordered by id.
func (l *TaskLoader) LoadTasks(ctx context.Context, filter domain.TaskFilter) ([]domain.Task, error) {
	subs := filter.Subcategories
	if subs == nil {
		subs = []string{}
	}
	rows, err := l.pool.Query(ctx, selectTasks, filter.LevelStart, filter.LevelEnd, filter.Category, subs)
	if err != nil {
		return nil, fmt.Errorf("load tasks: %w", err)
	}
	defer rows.Close()

	var tasks []domain.Task
	for rows.Next() {
		var t domain.Task
		if err := rows.Scan(&t.ID, &t.Level, &t.Category, &t.Subcategory, &t.Condition, &t.Solution, &t.Answer, &t.Source, &t.AnswerType); err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load tasks: %w", err)
	}
	return tasks, nil
}
