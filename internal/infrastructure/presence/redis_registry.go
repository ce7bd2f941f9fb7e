package presence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// release decrements the connection count and drops the key once it reaches zero.
var release = redis.NewScript(`
local n = redis.call("DECR", KEYS[1])
if n <= 0 then
	redis.call("DEL", KEYS[1])
	return 0
end
return n
`)

// RedisRegistry stores a per-user connection count under
// <prefix>:presence:<id>. The TTL bounds how long a crashed node can keep a
// user online; live connections renew it with Touch.
type RedisRegistry struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

func NewRedisRegistry(client *redis.Client, prefix string, ttl time.Duration) *RedisRegistry {
	return &RedisRegistry{client: client, prefix: prefix, ttl: ttl}
}

func (r *RedisRegistry) key(userID int64) string {
	return fmt.Sprintf("%s:presence:%d", r.prefix, userID)
}

func (r *RedisRegistry) MarkOnline(ctx context.Context, userID int64) error {
	key := r.key(userID)
	pipe := r.client.TxPipeline()
	pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, r.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("presence online %d: %w", userID, err)
	}
	return nil
}

func (r *RedisRegistry) MarkOffline(ctx context.Context, userID int64) error {
	if err := release.Run(ctx, r.client, []string{r.key(userID)}).Err(); err != nil {
		return fmt.Errorf("presence offline %d: %w", userID, err)
	}
	return nil
}

func (r *RedisRegistry) IsOnline(ctx context.Context, userID int64) (bool, error) {
	n, err := r.client.Get(ctx, r.key(userID)).Int64()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("presence lookup %d: %w", userID, err)
	}
	return n > 0, nil
}

// Touch renews the TTL for a user that still holds a connection.
func (r *RedisRegistry) Touch(ctx context.Context, userID int64) error {
	return r.client.Expire(ctx, r.key(userID), r.ttl).Err()
}

func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	return client, nil
}
