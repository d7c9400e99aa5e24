// internal/store/redis_lock.go
package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"dispatch-workers/internal/common/logger"
	"dispatch-workers/internal/common/metrics"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var ErrLockUnavailable = errors.New("doctor lock unavailable")

const lockKeyPrefix = "dispatch:lock:doctor:"

// Deletes the key only while it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

type LockOptions struct {
	TTL           time.Duration
	Wait          time.Duration
	RetryInterval time.Duration
}

// RedisLocker serialises dispatch operations per doctor with SET NX PX locks.
type RedisLocker struct {
	client   redis.Cmdable
	opts     LockOptions
	logger   logger.Logger
	newToken func() string
}

func NewRedisLocker(client redis.Cmdable, opts LockOptions, log logger.Logger) *RedisLocker {
	if opts.TTL <= 0 {
		opts.TTL = 10 * time.Second
	}
	if opts.RetryInterval <= 0 {
		opts.RetryInterval = 50 * time.Millisecond
	}
	return &RedisLocker{
		client:   client,
		opts:     opts,
		logger:   log.WithFields(map[string]interface{}{"component": "redis-locker"}),
		newToken: uuid.NewString,
	}
}

// Acquire locks every named doctor in sorted order. On failure the locks already taken are
// released before returning. The returned func releases all of them.
func (l *RedisLocker) Acquire(ctx context.Context, doctorNames []string) (func(), error) {
	names := uniqueSorted(doctorNames)
	start := time.Now()

	type held struct{ key, token string }
	acquired := make([]held, 0, len(names))

	releaseAll := func() {
		rctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		for i := len(acquired) - 1; i >= 0; i-- {
			if err := releaseScript.Run(rctx, l.client, []string{acquired[i].key}, acquired[i].token).Err(); err != nil {
				l.logger.Warn("failed to release doctor lock", map[string]interface{}{
					"key":   acquired[i].key,
					"error": err.Error(),
				})
			}
		}
	}

	for _, name := range names {
		key := lockKeyPrefix + name
		token := l.newToken()
		if err := l.acquireOne(ctx, key, token); err != nil {
			releaseAll()
			metrics.DispatchLockFailures.Inc()
			return nil, fmt.Errorf("lock %q: %w", name, err)
		}
		acquired = append(acquired, held{key: key, token: token})
	}

	metrics.DispatchLockWait.Observe(time.Since(start).Seconds())
	return releaseAll, nil
}

func (l *RedisLocker) acquireOne(ctx context.Context, key, token string) error {
	deadline := time.Now().Add(l.opts.Wait)
	for {
		ok, err := l.client.SetNX(ctx, key, token, l.opts.TTL).Result()
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
		if !time.Now().Before(deadline) {
			return ErrLockUnavailable
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(l.opts.RetryInterval):
		}
	}
}

func uniqueSorted(names []string) []string {
	seen := make(map[string]bool, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}
