package redis

import (
	"context"
	"strconv"

	"github.com/redis/go-redis/v9"
)

// AnalyticsSink keeps per-user battle counters in a hash:
// HINCRBY battle:stats:{userID} solved|attempted n
type AnalyticsSink struct {
	client *redis.Client
}

func NewAnalyticsSink(client *redis.Client) *AnalyticsSink {
	return &AnalyticsSink{client: client}
}

func (s *AnalyticsSink) RecordAttempts(ctx context.Context, userID int64, solved, attempted int) error {
	key := s.key(userID)
	pipe := s.client.TxPipeline()
	pipe.HIncrBy(ctx, key, "solved", int64(solved))
	pipe.HIncrBy(ctx, key, "attempted", int64(attempted))
	_, err := pipe.Exec(ctx)
	return err
}

func (s *AnalyticsSink) key(userID int64) string {
	return "battle:stats:" + strconv.FormatInt(userID, 10)
}
