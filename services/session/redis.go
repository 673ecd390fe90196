package sessionsvc

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/trezcool/shule/core"
)

const keyPrefix = "revoked_token:"

type redisStore struct {
	client *redis.Client
}

var _ core.SessionStore = (*redisStore)(nil)

// NewRedisClient connects to redis with short timeouts.
func NewRedisClient(conf *core.Config) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         conf.Redis.Addr,
		Password:     conf.Redis.Password,
		DB:           conf.Redis.DB,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  1 * time.Second,
		WriteTimeout: 1 * time.Second,
	})
}

func NewRedisStore(client *redis.Client) core.SessionStore {
	return &redisStore{client: client}
}

func (s redisStore) Revoke(ctx context.Context, tokenID string, until time.Time) error {
	ttl := time.Until(until)
	if ttl <= 0 { // already expired
		return nil
	}
	return errors.Wrap(s.client.Set(ctx, keyPrefix+tokenID, 1, ttl).Err(), "revoking token")
}

func (s redisStore) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	n, err := s.client.Exists(ctx, keyPrefix+tokenID).Result()
	if err != nil {
		return false, errors.Wrap(err, "checking revoked token")
	}
	return n > 0, nil
}

func (s redisStore) PingContext(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
