package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/alanyoungcy/crossbot/internal/domain"
)

// PairCooldown implements domain.PairCooldown using Redis SETNX with a TTL.
// The cooldown survives process restarts, so a crash loop cannot spam the
// same alert every boot.
type PairCooldown struct {
	rdb *redis.Client
}

// NewPairCooldown creates a PairCooldown backed by the given Client.
func NewPairCooldown(c *Client) *PairCooldown {
	return &PairCooldown{rdb: c.Underlying()}
}

func cooldownKey(kalshiID, polyID string) string {
	return "cooldown:" + kalshiID + ":" + polyID
}

// Mark records an emission for the pair. It returns true when the pair was
// quiet, false when a previous emission inside the window suppresses this one.
func (pc *PairCooldown) Mark(ctx context.Context, kalshiID, polyID string, window time.Duration) (bool, error) {
	ok, err := pc.rdb.SetNX(ctx, cooldownKey(kalshiID, polyID), time.Now().UTC().Format(time.RFC3339), window).Result()
	if err != nil {
		return false, fmt.Errorf("redis: mark cooldown %s/%s: %w", kalshiID, polyID, err)
	}
	return ok, nil
}

// Compile-time interface check.
var _ domain.PairCooldown = (*PairCooldown)(nil)
