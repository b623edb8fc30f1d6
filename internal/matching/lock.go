// internal/matching/lock.go

package matching

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/go-redis/redis/v8"
)

// Locker grants a lease on a scheduled task so one replica runs each tick
type Locker interface {
	TryLock(ctx context.Context, task string, ttl time.Duration) (bool, error)
}

// acquireScript takes a free lease, or renews one already held by the
// same owner
var acquireScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	redis.call("PEXPIRE", KEYS[1], ARGV[2])
	return 1
end
if redis.call("SET", KEYS[1], ARGV[1], "NX", "PX", ARGV[2]) then
	return 1
end
return 0
`)

// RedisLocker takes leases in Redis. The lease is left to expire so that
// other replicas ticking shortly after skip the run.
type RedisLocker struct {
	client *redis.Client
	owner  string
}

func NewRedisLocker(client *redis.Client) *RedisLocker {
	host, _ := os.Hostname()
	return &RedisLocker{
		client: client,
		owner:  fmt.Sprintf("%s:%d", host, os.Getpid()),
	}
}

func (l *RedisLocker) TryLock(ctx context.Context, task string, ttl time.Duration) (bool, error) {
	n, err := acquireScript.Run(ctx, l.client, []string{lockKey(task)}, l.owner, ttl.Milliseconds()).Int()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func lockKey(task string) string {
	return "xperia:lock:" + task
}
