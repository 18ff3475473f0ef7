package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/DeafMist/story-radar/internal/cluster"
	"github.com/DeafMist/story-radar/internal/config"
	"github.com/DeafMist/story-radar/internal/elasticsearch"
	"github.com/DeafMist/story-radar/internal/logger"
	"github.com/DeafMist/story-radar/internal/runlock"
)

func main() {
	_ = godotenv.Load()

	log := logger.New("clusterer")
	cfg, err := config.LoadClusterer()
	if err != nil {
		log.Error("load config", slog.Any("err", err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	esClient, err := connect(ctx, log, cfg)
	if err != nil {
		log.Error("failed to connect to elasticsearch after retries", slog.Any("err", err))
		os.Exit(1)
	}
	log.Info("connected to elasticsearch")

	if err := esClient.EnsureDocumentsIndex(ctx); err != nil {
		log.Error("ensure documents index", slog.Any("err", err))
		os.Exit(1)
	}

	var lock cluster.Locker = runlock.NewLocal()
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
		defer rdb.Close()
		lock = runlock.NewRedis(rdb, cfg.Lock.Key, cfg.Lock.TTL, log)
	} else {
		log.Warn("REDIS_ADDR not set, run lock is process-local; run a single clusterer replica")
	}

	runner := cluster.NewRunner(esClient, esClient, lock, cluster.RunnerConfig{
		Window:   cfg.Window,
		PoolSize: cfg.PoolSize,
		Timeout:  cfg.RunTimeout,
	}, log)

	j := &job{
		log:       log,
		runner:    runner,
		retention: esClient,
		maxAge:    cfg.RetentionMaxAge,
		batchSize: cfg.RetentionBatchSize,
	}

	log.Info("clusterer running",
		slog.Duration("interval", cfg.Interval),
		slog.Duration("window", cfg.Window),
		slog.Duration("retention_max_age", cfg.RetentionMaxAge),
	)

	j.loop(ctx, cfg.Interval)
}

// connect creates the Elasticsearch client and waits for it to answer,
// backing off exponentially up to 30s between attempts.
func connect(ctx context.Context, log *slog.Logger, cfg *config.Clusterer) (*elasticsearch.Client, error) {
	const maxRetries = 10
	retryDelay := 2 * time.Second

	var lastErr error
	for i := range maxRetries {
		esClient, err := elasticsearch.New(cfg.ElasticsearchAddr, cfg.DocumentsIndex, cfg.StoriesAlias, log)
		if err != nil {
			lastErr = err
			log.Warn("failed to create elasticsearch client, retrying",
				slog.Any("err", err),
				slog.Int("attempt", i+1),
				slog.Int("max_retries", maxRetries),
			)
		} else {
			pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			lastErr = esClient.Ping(pingCtx)
			cancel()
			if lastErr == nil {
				return esClient, nil
			}
			log.Warn("elasticsearch ping failed, retrying",
				slog.Any("err", lastErr),
				slog.Int("attempt", i+1),
				slog.Int("max_retries", maxRetries),
				slog.Duration("retry_in", retryDelay),
			)
		}

		select {
		case <-time.After(retryDelay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		retryDelay = min(retryDelay*2, 30*time.Second)
	}
	return nil, lastErr
}
