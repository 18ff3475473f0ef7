package main

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/DeafMist/story-radar/internal/cluster"
)

const retentionTimeout = 2 * time.Minute

type clusterRunner interface {
	Run(ctx context.Context) (cluster.RunResult, error)
}

type documentPruner interface {
	DeleteOlderThan(ctx context.Context, maxAge time.Duration, batchSize int) (int64, error)
}

// job is one scheduled tick: a clustering run, then the retention sweep.
type job struct {
	log       *slog.Logger
	runner    clusterRunner
	retention documentPruner
	maxAge    time.Duration
	batchSize int
}

// loop runs immediately and then on every interval until ctx is done.
func (j *job) loop(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	j.runOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			j.log.Info("shutdown signal received")
			return
		case <-ticker.C:
			j.runOnce(ctx)
		}
	}
}

// runOnce never fails; errors are logged and retried on the next tick.
func (j *job) runOnce(ctx context.Context) {
	j.cluster(ctx)
	j.prune(ctx)
}

func (j *job) cluster(ctx context.Context) {
	result, err := j.runner.Run(ctx)
	switch {
	case errors.Is(err, cluster.ErrRunInProgress):
		j.log.Info("clustering run skipped, another run is in progress")
	case err != nil:
		j.log.Warn("clustering run failed (will retry on next interval)", slog.Any("err", err))
	default:
		j.log.Debug("clustering tick finished",
			slog.Int("stories", result.StoriesCreated),
			slog.Int("documents", result.DocumentsAssigned),
		)
	}
}

func (j *job) prune(ctx context.Context) {
	if j.maxAge <= 0 || j.retention == nil {
		return
	}

	subCtx, cancel := context.WithTimeout(ctx, retentionTimeout)
	defer cancel()

	deleted, err := j.retention.DeleteOlderThan(subCtx, j.maxAge, j.batchSize)
	if err != nil {
		j.log.Warn("retention run failed (will retry on next interval)", slog.Any("err", err))
		return
	}

	if deleted > 0 {
		j.log.Info("retention run completed", slog.Int64("deleted", deleted))
	} else {
		j.log.Debug("retention run completed, no old documents found")
	}
}
