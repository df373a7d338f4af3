package redis

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
	"quiz-battle-service/internal/domain"
	"quiz-battle-service/internal/infra/memory"
)

// TaskCatalog caches candidate pools in Redis so every instance shares one
// copy, and falls back to a loader on miss.
// Pools are stored as JSON: SET battle:tasks:{poolKey} [...]
type TaskCatalog struct {
	client *redis.Client
	loader memory.TaskLoader
	ttl    time.Duration
	logger *zap.Logger
	sf     singleflight.Group
}

func NewTaskCatalog(client *redis.Client, loader memory.TaskLoader, ttl time.Duration, logger *zap.Logger) *TaskCatalog {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TaskCatalog{
		client: client,
		loader: loader,
		ttl:    ttl,
		logger: logger,
	}
}

func (c *TaskCatalog) QueryTasks(ctx context.Context, filter domain.TaskFilter) ([]domain.Task, error) {
	pool, err := c.pool(ctx, filter)
	if err != nil {
		return nil, err
	}
	if len(pool) == 0 {
		return nil, domain.ErrNoTasks
	}
	return filter.Pick(pool), nil
}

func (c *TaskCatalog) pool(ctx context.Context, filter domain.TaskFilter) ([]domain.Task, error) {
	key := c.key(filter)
	if tasks, ok := c.cached(ctx, key); ok {
		return tasks, nil
	}

	result, err, _ := c.sf.Do(key, func() (interface{}, error) {
		// Another caller may have filled the key meanwhile.
		if tasks, ok := c.cached(ctx, key); ok {
			return tasks, nil
		}
		tasks, err := c.loader.LoadTasks(ctx, filter)
		if err != nil {
			return nil, err
		}
		raw, err := json.Marshal(tasks)
		if err != nil {
			return nil, err
		}
		if err := c.client.Set(ctx, key, raw, memory.TTLWithJitter(c.ttl)).Err(); err != nil {
			c.logger.Warn("cache task pool", zap.String("key", key), zap.Error(err))
		}
		return tasks, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.Task), nil
}

func (c *TaskCatalog) cached(ctx context.Context, key string) ([]domain.Task, bool) {
	raw, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn("read task pool", zap.String("key", key), zap.Error(err))
		}
		return nil, false
	}
	var tasks []domain.Task
	if err := json.Unmarshal(raw, &tasks); err != nil {
		c.logger.Warn("decode task pool", zap.String("key", key), zap.Error(err))
		return nil, false
	}
	return tasks, true
}

func (c *TaskCatalog) key(filter domain.TaskFilter) string {
	return "battle:tasks:" + filter.PoolKey()
}
