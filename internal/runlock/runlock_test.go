package runlock_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/DeafMist/story-radar/internal/runlock"
)

func TestLocalRejectsSecondHolder(t *testing.T) {
	lock := runlock.NewLocal()
	ctx := context.Background()

	release, err := lock.TryAcquire(ctx)
	require.NoError(t, err)

	_, err = lock.TryAcquire(ctx)
	require.ErrorIs(t, err, runlock.ErrBusy)

	release()
	release()

	again, err := lock.TryAcquire(ctx)
	require.NoError(t, err)
	again()
}

func TestRedisLease(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { _ = client.Close() })

	ctx := context.Background()
	key := "story-radar:test:" + uuid.NewString()
	a := runlock.NewRedis(client, key, time.Minute, nil)
	b := runlock.NewRedis(client, key, time.Minute, nil)

	release, err := a.TryAcquire(ctx)
	require.NoError(t, err)

	_, err = b.TryAcquire(ctx)
	require.ErrorIs(t, err, runlock.ErrBusy)

	release()

	releaseB, err := b.TryAcquire(ctx)
	require.NoError(t, err)
	releaseB()
}

// flakyRelease answers SET NX locally and fails every script call, so the
// lease is granted but can never be released.
type flakyRelease struct{}

func (flakyRelease) DialHook(next redis.DialHook) redis.DialHook { return next }

func (flakyRelease) ProcessHook(redis.ProcessHook) redis.ProcessHook {
	return func(_ context.Context, cmd redis.Cmder) error {
		switch cmd.Name() {
		case "set":
			cmd.(*redis.BoolCmd).SetVal(true)
			return nil
		default:
			err := errors.New("connection reset by peer")
			cmd.SetErr(err)
			return err
		}
	}
}

func (flakyRelease) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return next
}

func TestRedisReleaseFailureIsLogged(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:0"})
	client.AddHook(flakyRelease{})
	t.Cleanup(func() { _ = client.Close() })

	var buf bytes.Buffer
	log := slog.New(slog.NewTextHandler(&buf, nil))
	lock := runlock.NewRedis(client, "story-radar:test:release", time.Minute, log)

	release, err := lock.TryAcquire(context.Background())
	require.NoError(t, err)
	release()

	require.Contains(t, buf.String(), "release run lock")
	require.Contains(t, buf.String(), "story-radar:test:release")
	require.Contains(t, buf.String(), "connection reset by peer")
}
