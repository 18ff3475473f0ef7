// Package runlock keeps at most one clustering run in flight.
package runlock

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrBusy is returned when the lock is already held.
var ErrBusy = errors.New("run lock busy")

// Local is a process-local lock.
type Local struct {
	mu sync.Mutex
}

// NewLocal creates a process-local lock.
func NewLocal() *Local {
	return &Local{}
}

// TryAcquire takes the lock without waiting.
func (l *Local) TryAcquire(_ context.Context) (func(), error) {
	if !l.mu.TryLock() {
		return nil, ErrBusy
	}
	var once sync.Once
	return func() { once.Do(l.mu.Unlock) }, nil
}

// releaseScript deletes the key only while it still carries our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Redis is a lease lock shared by every process talking to the same Redis.
// The lease expires after TTL so a crashed holder cannot block runs forever.
type Redis struct {
	client *redis.Client
	key    string
	ttl    time.Duration
	log    *slog.Logger
}

// NewRedis creates a lease lock stored under key. A nil logger discards
// release failures.
func NewRedis(client *redis.Client, key string, ttl time.Duration, logger *slog.Logger) *Redis {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Redis{client: client, key: key, ttl: ttl, log: logger}
}

// TryAcquire sets the lease if nobody holds it.
func (r *Redis) TryAcquire(ctx context.Context) (func(), error) {
	token := uuid.NewString()
	ok, err := r.client.SetNX(ctx, r.key, token, r.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("acquire %s: %w", r.key, err)
	}
	if !ok {
		return nil, ErrBusy
	}

	var once sync.Once
	release := func() {
		once.Do(func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := releaseScript.Run(ctx, r.client, []string{r.key}, token).Err(); err != nil {
				// The lease still expires after ttl.
				r.log.Warn("release run lock", slog.String("key", r.key), slog.Duration("ttl", r.ttl), slog.Any("err", err))
			}
		})
	}
	return release, nil
}
