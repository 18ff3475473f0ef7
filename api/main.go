package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/DeafMist/story-radar/internal/analysis"
	"github.com/DeafMist/story-radar/internal/cluster"
	"github.com/DeafMist/story-radar/internal/config"
	"github.com/DeafMist/story-radar/internal/detail"
	"github.com/DeafMist/story-radar/internal/elasticsearch"
	"github.com/DeafMist/story-radar/internal/logger"
	"github.com/DeafMist/story-radar/internal/runlock"
)

func main() {
	_ = godotenv.Load()

	log := logger.New("api")
	cfg, err := config.LoadAPI()
	if err != nil {
		log.Error("load config", slog.Any("err", err))
		os.Exit(1)
	}

	esClient, err := elasticsearch.New(cfg.ElasticsearchAddr, cfg.DocumentsIndex, cfg.StoriesAlias, log)
	if err != nil {
		log.Error("init elasticsearch", slog.Any("err", err))
		os.Exit(1)
	}

	// The admin trigger shares the clusterer's Redis lock; config validation
	// guarantees REDIS_ADDR when it is enabled.
	var runner clusterRunner
	if cfg.AdminCluster {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
		defer rdb.Close()
		runner = cluster.NewRunner(esClient, esClient, runlock.NewRedis(rdb, cfg.Lock.Key, cfg.Lock.TTL, log), cluster.RunnerConfig{
			Window:   cfg.Window,
			PoolSize: cfg.PoolSize,
			Timeout:  cfg.RunTimeout,
		}, log)
		log.Info("admin cluster trigger enabled", slog.String("redis", cfg.RedisAddr))
	}

	synth := &detail.Synthesizer{
		Timeout:     cfg.Analysis.Timeout,
		MaxTokens:   cfg.Analysis.MaxTokens,
		Concurrency: cfg.SynthesisParallel,
		Logger:      log,
	}
	if cfg.Analysis.Enabled() {
		synth.Analyzer = analysis.New(analysis.Config{
			APIKey:        cfg.Analysis.APIKey,
			BaseURL:       cfg.Analysis.BaseURL,
			Model:         cfg.Analysis.Model,
			RatePerMinute: cfg.Analysis.RatePerMinute,
			MaxRetries:    cfg.Analysis.MaxRetries,
		})
		log.Info("external analysis enabled", slog.String("model", cfg.Analysis.Model))
	}

	srv := &server{
		log:         log,
		cfg:         cfg,
		health:      esClient,
		stories:     esClient,
		docs:        esClient,
		runner:      runner,
		synthesizer: synth,
	}

	httpServer := &http.Server{
		Addr:              cfg.BindAddr,
		Handler:           srv.routes(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      cfg.RunTimeout + 30*time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	go func() {
		log.Info("api server starting", slog.String("addr", cfg.BindAddr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server stopped", slog.Any("err", err))
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	log.Info("shutdown signal received")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("server shutdown", slog.Any("err", err))
	}
}
