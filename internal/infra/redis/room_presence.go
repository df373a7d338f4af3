package redis

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"quiz-battle-service/internal/domain"
)

const presenceTimeout = 2 * time.Second

// RoomPresence mirrors open rooms into Redis so other instances and tooling
// can see them. Rooms themselves stay in process; each key is a best-effort
// liveness marker that expires on its own if this instance dies. The service
// republishes active rooms well within the TTL.
//
//	SET battle:room:{id} {summary json} EX ttl
type RoomPresence struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

func NewRoomPresence(client *redis.Client, ttl time.Duration, logger *zap.Logger) *RoomPresence {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RoomPresence{client: client, ttl: ttl, logger: logger}
}

func (p *RoomPresence) RoomOpened(summary domain.RoomSummary) {
	p.publish(summary)
}

// RoomUpdated rewrites the summary and restarts its TTL.
func (p *RoomPresence) RoomUpdated(summary domain.RoomSummary) {
	p.publish(summary)
}

func (p *RoomPresence) RoomClosed(roomID int64) {
	ctx, cancel := context.WithTimeout(context.Background(), presenceTimeout)
	defer cancel()
	if err := p.client.Del(ctx, p.key(roomID)).Err(); err != nil {
		p.logger.Warn("clear room presence", zap.Int64("room_id", roomID), zap.Error(err))
	}
}

func (p *RoomPresence) publish(summary domain.RoomSummary) {
	raw, err := json.Marshal(summary)
	if err != nil {
		p.logger.Warn("encode room presence", zap.Int64("room_id", summary.ID), zap.Error(err))
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), presenceTimeout)
	defer cancel()
	if err := p.client.Set(ctx, p.key(summary.ID), raw, p.ttl).Err(); err != nil {
		p.logger.Warn("publish room presence", zap.Int64("room_id", summary.ID), zap.Error(err))
	}
}

func (p *RoomPresence) key(roomID int64) string {
	return "battle:room:" + strconv.FormatInt(roomID, 10)
}
