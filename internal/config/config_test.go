package config_test

import (
	"testing"
	"time"

	"github.com/DeafMist/story-radar/internal/config"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T, keys ...string) {
	t.Helper()
	for _, k := range keys {
		t.Setenv(k, "")
	}
}

func TestLoadWorkerDefaults(t *testing.T) {
	clearEnv(t, "ELASTICSEARCH_ADDR", "ELASTICSEARCH_INDEX", "KAFKA_BROKERS", "KAFKA_TOPIC", "KAFKA_CONSUMER_GROUP")

	cfg, err := config.LoadWorker()
	require.NoError(t, err)

	require.Equal(t, "http://elasticsearch:9200", cfg.ElasticsearchAddr)
	require.Equal(t, "documents", cfg.DocumentsIndex)
	require.Equal(t, "stories", cfg.StoriesAlias)
	require.Equal(t, []string{"kafka:9092"}, cfg.KafkaBrokers)
	require.Equal(t, "documents_raw", cfg.KafkaTopic)
	require.Equal(t, "documents-worker", cfg.KafkaConsumer)
	require.Equal(t, 24*time.Hour, cfg.DedupeTTL)
}

func TestLoadWorkerOverrides(t *testing.T) {
	t.Setenv("ELASTICSEARCH_ADDR", "http://localhost:9999")
	t.Setenv("ELASTICSEARCH_INDEX", "custom")
	t.Setenv("KAFKA_BROKERS", "broker-a:29092, broker-b:29093,")
	t.Setenv("KAFKA_TOPIC", "custom_topic")
	t.Setenv("KAFKA_CONSUMER_GROUP", "custom-group")
	t.Setenv("WORKER_DEDUPE_CAPACITY", "5")
	t.Setenv("WORKER_DEDUPE_TTL", "48h")

	cfg, err := config.LoadWorker()
	require.NoError(t, err)

	require.Equal(t, "http://localhost:9999", cfg.ElasticsearchAddr)
	require.Equal(t, "custom", cfg.DocumentsIndex)
	require.Equal(t, []string{"broker-a:29092", "broker-b:29093"}, cfg.KafkaBrokers)
	require.Equal(t, "custom_topic", cfg.KafkaTopic)
	require.Equal(t, "custom-group", cfg.KafkaConsumer)
	require.Equal(t, 5, cfg.DedupeCapacity)
	require.Equal(t, 48*time.Hour, cfg.DedupeTTL)
}

func TestLoadWorkerValidation(t *testing.T) {
	t.Setenv("KAFKA_BROKERS", " , ")
	_, err := config.LoadWorker()
	require.Error(t, err)
}

func TestLoadAPI(t *testing.T) {
	t.Setenv("API_BIND_ADDR", ":9090")
	t.Setenv("API_PAGE_SIZE", "15")
	t.Setenv("API_MAX_PAGE_SIZE", "200")
	t.Setenv("ELASTICSEARCH_STORIES_ALIAS", "stories-live")
	t.Setenv("OPENAI_API_KEY", "  sk-test  ")
	t.Setenv("ANALYSIS_TIMEOUT", "3s")
	t.Setenv("CLUSTER_WINDOW", "24h")
	t.Setenv("REDIS_ADDR", "redis:6379")
	t.Setenv("API_ADMIN_CLUSTER", "true")

	cfg, err := config.LoadAPI()
	require.NoError(t, err)
	require.Equal(t, ":9090", cfg.BindAddr)
	require.Equal(t, 15, cfg.DefaultPage)
	require.Equal(t, 200, cfg.MaxPage)
	require.Equal(t, "stories-live", cfg.StoriesAlias)
	require.True(t, cfg.Analysis.Enabled())
	require.Equal(t, "sk-test", cfg.Analysis.APIKey)
	require.Equal(t, "gpt-4o-mini", cfg.Analysis.Model)
	require.Equal(t, 3*time.Second, cfg.Analysis.Timeout)
	require.Equal(t, 300, cfg.Analysis.MaxTokens)
	require.Equal(t, 24*time.Hour, cfg.Window)
	require.Equal(t, 200, cfg.PoolSize)
	require.Equal(t, "redis:6379", cfg.RedisAddr)
	require.Equal(t, 5*time.Minute, cfg.Lock.TTL)
	require.Equal(t, 4*time.Minute, cfg.RunTimeout)
	require.True(t, cfg.AdminCluster)
}

func TestLoadAPIAdminClusterDefaultsOff(t *testing.T) {
	cfg, err := config.LoadAPI()
	require.NoError(t, err)
	require.False(t, cfg.AdminCluster)
}

func TestLoadAPIValidation(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{name: "page above max", env: map[string]string{"API_PAGE_SIZE": "50", "API_MAX_PAGE_SIZE": "10"}},
		{name: "zero pool", env: map[string]string{"CLUSTER_POOL_SIZE": "0"}},
		{name: "zero max tokens", env: map[string]string{"ANALYSIS_MAX_TOKENS": "0"}},
		{name: "negative retries", env: map[string]string{"ANALYSIS_MAX_RETRIES": "-1"}},
		{name: "admin trigger without shared lock", env: map[string]string{"API_ADMIN_CLUSTER": "true", "REDIS_ADDR": ""}},
		{name: "lease not longer than run", env: map[string]string{"CLUSTER_LOCK_TTL": "4m", "CLUSTER_RUN_TIMEOUT": "4m"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := config.LoadAPI()
			require.Error(t, err)
		})
	}
}

func TestLoadClusterer(t *testing.T) {
	t.Setenv("CLUSTER_INTERVAL", "10m")
	t.Setenv("RETENTION_MAX_AGE", "72h")
	t.Setenv("RETENTION_BATCH_SIZE", "123")
	t.Setenv("CLUSTER_LOCK_KEY", "lock")
	t.Setenv("CLUSTER_LOCK_TTL", "not-a-duration")

	cfg, err := config.LoadClusterer()
	require.NoError(t, err)
	require.Equal(t, 10*time.Minute, cfg.Interval)
	require.Equal(t, 72*time.Hour, cfg.RetentionMaxAge)
	require.Equal(t, 123, cfg.RetentionBatchSize)
	require.Equal(t, "lock", cfg.Key)
	require.Equal(t, 5*time.Minute, cfg.TTL)
	require.Equal(t, 48*time.Hour, cfg.Window)
}

func TestLoadClustererLeaseOutlivesRun(t *testing.T) {
	t.Setenv("CLUSTER_RUN_TIMEOUT", "10m")
	_, err := config.LoadClusterer()
	require.Error(t, err)

	t.Setenv("CLUSTER_LOCK_TTL", "11m")
	cfg, err := config.LoadClusterer()
	require.NoError(t, err)
	require.Equal(t, 10*time.Minute, cfg.RunTimeout)
}

func TestLoadClustererRetention(t *testing.T) {
	t.Setenv("RETENTION_MAX_AGE", "0s")
	cfg, err := config.LoadClusterer()
	require.NoError(t, err)
	require.Zero(t, cfg.RetentionMaxAge)

	t.Setenv("RETENTION_MAX_AGE", "12h")
	_, err = config.LoadClusterer()
	require.Error(t, err)
}
