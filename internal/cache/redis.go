package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mkravets/travelbooking/config"
)

type RedisCache struct {
	client     *redis.Client
	sessionTTL time.Duration
}

func NewRedisCache(cfg config.RedisConfig, sessionTTL time.Duration) *RedisCache {
	return &RedisCache{
		client:     redis.NewClient(&redis.Options{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB}),
		sessionTTL: sessionTTL,
	}
}

// SessionRole returns the role currently held by the session. A subject
// without a session entry reports found=false; a revoked session is an
// entry holding the empty role.
func (c *RedisCache) SessionRole(ctx context.Context, subject string) (string, bool, error) {
	role, err := c.client.Get(ctx, sessionRoleKey(subject)).Result()
	if err != nil {
		if err == redis.Nil {
			return "", false, nil
		}
		return "", false, err
	}
	return role, true, nil
}

func (c *RedisCache) SetSessionRole(ctx context.Context, subject, role string) error {
	return c.client.Set(ctx, sessionRoleKey(subject), role, c.sessionTTL).Err()
}

// RevokeSession downgrades the subject to anonymous. The empty role is
// stored rather than the key deleted, so revocation is distinguishable
// from a subject that never had a session entry.
func (c *RedisCache) RevokeSession(ctx context.Context, subject string) error {
	return c.client.Set(ctx, sessionRoleKey(subject), "", c.sessionTTL).Err()
}

// MarkIntentProcessed records that a payment intent's terminal event was
// handled. Returns false when the intent was already marked, which is how
// duplicate webhook deliveries are detected. Only the gateway's intent id
// is stored, never the client secret.
func (c *RedisCache) MarkIntentProcessed(ctx context.Context, intentID string, ttl time.Duration) (bool, error) {
	return c.client.SetNX(ctx, intentKey(intentID), "done", ttl).Result()
}

func sessionRoleKey(subject string) string {
	return fmt.Sprintf("session:role:%s", subject)
}

func intentKey(intentID string) string {
	return fmt.Sprintf("payment:intent:%s", intentID)
}
