package redisstore

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// CooldownStore enforces per-key cooldowns (OTP resends) and sliding-window
// rate limits (per-IP request caps).
type CooldownStore struct {
	client *redis.Client
}

func NewCooldownStore(client *redis.Client) *CooldownStore {
	return &CooldownStore{client: client}
}

// StartCooldown marks key as cooling down for ttl. Returns false without
// touching the key when a cooldown is already active.
func (s *CooldownStore) StartCooldown(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ok, err := s.client.SetNX(ctx, "cooldown:"+key, time.Now().Unix(), ttl).Result()
	if err != nil {
		return false, err
	}
	return ok, nil
}

// CooldownRemaining reports how long the key's cooldown has left; zero when
// no cooldown is active.
func (s *CooldownStore) CooldownRemaining(ctx context.Context, key string) (time.Duration, error) {
	ttl, err := s.client.TTL(ctx, "cooldown:"+key).Result()
	if err != nil {
		return 0, err
	}
	if ttl < 0 {
		return 0, nil
	}
	return ttl, nil
}

// Allow counts a hit against key and reports whether the caller is within
// limit for the window. Fails open on Redis errors: a broken cache should
// not lock users out of auth.
func (s *CooldownStore) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	rk := "ratelimit:" + key

	count, err := s.client.Incr(ctx, rk).Result()
	if err != nil {
		return true, err
	}
	if count == 1 {
		s.client.Expire(ctx, rk, window)
	}
	return count <= int64(limit), nil
}
