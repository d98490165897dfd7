package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// AlarmGate suppresses repeated love alarms for the same pair of users.
type AlarmGate struct {
	client *redis.Client
}

// NewAlarmGate creates a new AlarmGate.
func NewAlarmGate(client *redis.Client) *AlarmGate {
	return &AlarmGate{client: client}
}

// Allow returns true the first time it is called for (fromID, toID) within ttl.
func (g *AlarmGate) Allow(ctx context.Context, fromID, toID string, ttl time.Duration) (bool, error) {
	key := fmt.Sprintf("alarm:%s:%s", fromID, toID)

	ok, err := g.client.SetNX(ctx, key, "1", ttl).Result()
	if err != nil {
		return false, err
	}

	return ok, nil
}
