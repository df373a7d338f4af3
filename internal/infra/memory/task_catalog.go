package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
	"quiz-battle-service/internal/domain"
)

// TaskLoader fetches every task matching a filter's level range, category and
// subcategories. Count and Random are applied by the catalog.
type TaskLoader interface {
	LoadTasks(ctx context.Context, filter domain.TaskFilter) ([]domain.Task, error)
}

// TaskCatalog caches candidate pools with a TTL so that starting a match does
// not hit the database every time. Concurrent misses for one pool share a load.
type TaskCatalog struct {
	loader TaskLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group

	mu    sync.RWMutex
	cache map[string]cachedPool
}

type cachedPool struct {
	tasks     []domain.Task
	expiresAt time.Time
}

func NewTaskCatalog(loader TaskLoader, ttl time.Duration) *TaskCatalog {
	return &TaskCatalog{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		cache:  make(map[string]cachedPool),
	}
}

// QueryTasks returns up to filter.Count tasks from the matching pool.
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
	key := filter.PoolKey()
	now := c.clock()

	c.mu.RLock()
	if entry, ok := c.cache[key]; ok && entry.expiresAt.After(now) {
		c.mu.RUnlock()
		return entry.tasks, nil
	}
	c.mu.RUnlock()

	result, err, _ := c.sf.Do(key, func() (interface{}, error) {
		now := c.clock()
		c.mu.RLock()
		if entry, ok := c.cache[key]; ok && entry.expiresAt.After(now) {
			c.mu.RUnlock()
			return entry.tasks, nil
		}
		c.mu.RUnlock()

		tasks, err := c.loader.LoadTasks(ctx, filter)
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		c.cache[key] = cachedPool{
			tasks:     tasks,
			expiresAt: now.Add(TTLWithJitter(c.ttl)),
		}
		c.mu.Unlock()
		return tasks, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.Task), nil
}

// TTLWithJitter adds up to 10% to ttl to spread expirations.
func TTLWithJitter(ttl time.Duration) time.Duration {
	if ttl <= 0 {
		return 0
	}
	jitterMax := int64(ttl) / 10
	return ttl + time.Duration(rand.Int63n(jitterMax+1))
}

// StaticTaskLoader filters a fixed task list. It backs demos and tests.
type StaticTaskLoader struct {
	tasks []domain.Task
}

func NewStaticTaskLoader(tasks []domain.Task) *StaticTaskLoader {
	return &StaticTaskLoader{tasks: tasks}
}

func (l *StaticTaskLoader) LoadTasks(_ context.Context, filter domain.TaskFilter) ([]domain.Task, error) {
	var out []domain.Task
	for _, t := range l.tasks {
		if filter.Matches(t) {
			out = append(out, t)
		}
	}
	return out, nil
}
