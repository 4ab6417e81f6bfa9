package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/Domenick1991/servicebooking/config"
	"github.com/Domenick1991/servicebooking/internal/domain"
	"github.com/redis/go-redis/v9"
)

type RedisCache struct {
	client    *redis.Client
	workerTTL time.Duration
}

func NewRedisClient(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB})
}

func NewRedisCache(client *redis.Client, workerTTL time.Duration) *RedisCache {
	return &RedisCache{
		client:    client,
		workerTTL: workerTTL,
	}
}

// GetWorker returns nil, nil on a cache miss.
func (c *RedisCache) GetWorker(ctx context.Context, id string) (*domain.Worker, error) {
	data, err := c.client.Get(ctx, workerKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}

	var w domain.Worker
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, err
	}
	return &w, nil
}

func (c *RedisCache) SetWorker(ctx context.Context, w *domain.Worker) error {
	payload, err := json.Marshal(w)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, workerKey(w.ID), payload, c.workerTTL).Err()
}

func (c *RedisCache) InvalidateWorker(ctx context.Context, id string) error {
	return c.client.Del(ctx, workerKey(id)).Err()
}

// AcquireClaimLock lets one claimant at a time reach the database for a booking.
func (c *RedisCache) AcquireClaimLock(ctx context.Context, bookingID string, ttl time.Duration) (bool, error) {
	return c.client.SetNX(ctx, claimLockKey(bookingID), "locked", ttl).Result()
}

func (c *RedisCache) ReleaseClaimLock(ctx context.Context, bookingID string) error {
	return c.client.Del(ctx, claimLockKey(bookingID)).Err()
}

func workerKey(id string) string {
	return "cache:worker:" + id
}

func claimLockKey(bookingID string) string {
	return "lock:booking:" + bookingID + ":claim"
}
