package lock

import (
	"context"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// Owner checks run server-side so a lease that expired and was re-acquired
// by someone else is never renewed or deleted by the old holder.
var (
	renewScript = goredis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
  return redis.call("pexpire", KEYS[1], ARGV[2])
else
  return 0
end`)

	releaseScript = goredis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
  return redis.call("del", KEYS[1])
else
  return 0
end`)
)

// RedisStore implements Store on a shared Redis, making the lock valid
// across process and machine boundaries.
type RedisStore struct {
	rdb goredis.UniversalClient
}

var _ Store = (*RedisStore)(nil)

func NewRedisStore(client goredis.UniversalClient) *RedisStore {
	return &RedisStore{rdb: client}
}

func (s *RedisStore) TryAcquire(ctx context.Context, key, owner string, ttl time.Duration) (bool, error) {
	return s.rdb.SetNX(ctx, key, owner, ttl).Result()
}

func (s *RedisStore) Renew(ctx context.Context, key, owner string, ttl time.Duration) (bool, error) {
	n, err := renewScript.Run(ctx, s.rdb, []string{key}, owner, ttl.Milliseconds()).Int64()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (s *RedisStore) Release(ctx context.Context, key, owner string) (bool, error) {
	n, err := releaseScript.Run(ctx, s.rdb, []string{key}, owner).Int64()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// Close is a no-op; the Redis client is owned by the caller (it is usually
// shared with the result store).
func (s *RedisStore) Close(context.Context) error { return nil }
