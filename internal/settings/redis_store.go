package settings

import (
	"context"
	stderrors "errors"

	"github.com/redis/go-redis/v9"

	"github.com/MathNerdzRule/dietary-menu-advisor/internal/common/errors"
)

// RedisStore keeps records as plain Redis strings without expiry.
type RedisStore struct {
	client redis.Cmdable
	prefix string
}

func NewRedisStore(client redis.Cmdable, prefix string) *RedisStore {
	return &RedisStore{client: client, prefix: prefix}
}

func (s *RedisStore) key(k string) string {
	return s.prefix + k
}

func (s *RedisStore) Get(ctx context.Context, key string) (string, bool, error) {
	val, err := s.client.Get(ctx, s.key(key)).Result()
	if stderrors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, errors.NewPreferencesStorageError(key, err)
	}
	return val, true, nil
}

func (s *RedisStore) Set(ctx context.Context, key, value string) error {
	if err := s.client.Set(ctx, s.key(key), value, 0).Err(); err != nil {
		return errors.NewPreferencesStorageError(key, err)
	}
	return nil
}
