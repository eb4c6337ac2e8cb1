package janitor

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Lease elects one sweeper among replicas.
type Lease interface {
	// Acquire takes or renews the lease and reports whether this holder owns it.
	Acquire(ctx context.Context) (bool, error)
	Release(ctx context.Context) error
}

// renewScript extends the TTL only when the caller still owns the key.
var renewScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0
`)

var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

type RedisLease struct {
	rdb    *redis.Client
	key    string
	holder string
	ttl    time.Duration
}

func NewRedisLease(rdb *redis.Client, key string, ttl time.Duration) *RedisLease {
	return &RedisLease{rdb: rdb, key: key, holder: uuid.NewString(), ttl: ttl}
}

func (l *RedisLease) Acquire(ctx context.Context) (bool, error) {
	ok, err := l.rdb.SetNX(ctx, l.key, l.holder, l.ttl).Result()
	if err != nil {
		return false, err
	}
	if ok {
		return true, nil
	}

	renewed, err := renewScript.Run(ctx, l.rdb, []string{l.key}, l.holder, l.ttl.Milliseconds()).Int()
	if err != nil {
		return false, err
	}
	return renewed == 1, nil
}

func (l *RedisLease) Release(ctx context.Context) error {
	return releaseScript.Run(ctx, l.rdb, []string{l.key}, l.holder).Err()
}

// AlwaysLease is used when a single janitor runs without redis.
type AlwaysLease struct{}

func (AlwaysLease) Acquire(context.Context) (bool, error) { return true, nil }
func (AlwaysLease) Release(context.Context) error         { return nil }
