package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Common contains Elasticsearch parameters shared by every service.
type Common struct {
	ElasticsearchAddr string
	DocumentsIndex    string
	StoriesAlias      string
}

// Clustering tunes clustering runs. RunTimeout bounds one run once the run
// lock is held and must stay below the lock TTL.
type Clustering struct {
	Window     time.Duration
	PoolSize   int
	RunTimeout time.Duration
}

// Lock configures the single-in-flight run guard. Without RedisAddr the
// guard is process-local.
type Lock struct {
	RedisAddr     string
	RedisPassword string
	Key           string
	TTL           time.Duration
}

// Analysis configures the optional external analysis of story detail.
type Analysis struct {
	APIKey        string
	BaseURL       string
	Model         string
	Timeout       time.Duration
	MaxTokens     int
	RatePerMinute int
	MaxRetries    int
}

// Enabled reports whether an API key is configured.
func (a Analysis) Enabled() bool {
	return a.APIKey != ""
}

// Worker holds configuration for the Kafka -> Elasticsearch worker.
type Worker struct {
	Common
	KafkaBrokers   []string
	KafkaTopic     string
	KafkaConsumer  string
	DedupeCapacity int
	DedupeTTL      time.Duration
}

// API describes HTTP-layer configuration. AdminCluster exposes
// POST /admin/cluster and requires a shared Redis lock, since the clusterer
// rebuilds the same stories alias.
type API struct {
	Common
	Clustering
	Lock
	Analysis
	BindAddr          string
	DefaultPage       int
	MaxPage           int
	SynthesisParallel int
	AdminCluster      bool
}

// Clusterer configures the scheduled clustering and retention loop.
type Clusterer struct {
	Common
	Clustering
	Lock
	Interval           time.Duration
	RetentionMaxAge    time.Duration
	RetentionBatchSize int
}

// LoadWorker builds a Worker config from environment variables.
func LoadWorker() (*Worker, error) {
	c := &Worker{
		Common:         loadCommon(),
		KafkaBrokers:   splitAndTrim(getEnv("KAFKA_BROKERS", "kafka:9092")),
		KafkaTopic:     getEnv("KAFKA_TOPIC", "documents_raw"),
		KafkaConsumer:  getEnv("KAFKA_CONSUMER_GROUP", "documents-worker"),
		DedupeCapacity: getInt("WORKER_DEDUPE_CAPACITY", 20000),
		DedupeTTL:      getDuration("WORKER_DEDUPE_TTL", "24h"),
	}

	if len(c.KafkaBrokers) == 0 {
		return nil, fmt.Errorf("KAFKA_BROKERS must contain at least one broker")
	}
	if c.DedupeCapacity <= 0 {
		return nil, fmt.Errorf("WORKER_DEDUPE_CAPACITY must be positive")
	}
	if c.DedupeTTL <= 0 {
		return nil, fmt.Errorf("WORKER_DEDUPE_TTL must be positive")
	}

	return c, nil
}

// LoadAPI builds an API config from environment variables.
func LoadAPI() (*API, error) {
	c := &API{
		Common:            loadCommon(),
		Clustering:        loadClustering(),
		Lock:              loadLock(),
		Analysis:          loadAnalysis(),
		BindAddr:          getEnv("API_BIND_ADDR", "0.0.0.0:8080"),
		DefaultPage:       getInt("API_PAGE_SIZE", 20),
		MaxPage:           getInt("API_MAX_PAGE_SIZE", 100),
		SynthesisParallel: getInt("API_SYNTHESIS_PARALLEL", 4),
		AdminCluster:      getBool("API_ADMIN_CLUSTER", false),
	}

	if c.DefaultPage <= 0 {
		return nil, fmt.Errorf("API_PAGE_SIZE must be positive")
	}
	if c.MaxPage <= 0 {
		return nil, fmt.Errorf("API_MAX_PAGE_SIZE must be positive")
	}
	if c.DefaultPage > c.MaxPage {
		return nil, fmt.Errorf("API_PAGE_SIZE cannot exceed API_MAX_PAGE_SIZE")
	}
	if c.SynthesisParallel <= 0 {
		return nil, fmt.Errorf("API_SYNTHESIS_PARALLEL must be positive")
	}
	if c.AdminCluster && c.RedisAddr == "" {
		return nil, fmt.Errorf("API_ADMIN_CLUSTER requires REDIS_ADDR so runs are serialized with the clusterer")
	}
	if err := c.Clustering.validate(); err != nil {
		return nil, err
	}
	if err := c.Lock.validate(c.Clustering); err != nil {
		return nil, err
	}
	if err := c.Analysis.validate(); err != nil {
		return nil, err
	}

	return c, nil
}

// LoadClusterer builds a Clusterer config from environment variables.
func LoadClusterer() (*Clusterer, error) {
	c := &Clusterer{
		Common:             loadCommon(),
		Clustering:         loadClustering(),
		Lock:               loadLock(),
		Interval:           getDuration("CLUSTER_INTERVAL", "30m"),
		RetentionMaxAge:    getDuration("RETENTION_MAX_AGE", "168h"),
		RetentionBatchSize: getInt("RETENTION_BATCH_SIZE", 500),
	}

	if c.Interval <= 0 {
		return nil, fmt.Errorf("CLUSTER_INTERVAL must be positive")
	}
	if c.RetentionMaxAge < 0 {
		return nil, fmt.Errorf("RETENTION_MAX_AGE cannot be negative")
	}
	if c.RetentionBatchSize <= 0 {
		return nil, fmt.Errorf("RETENTION_BATCH_SIZE must be positive")
	}
	if c.RetentionMaxAge > 0 && c.RetentionMaxAge < c.Window {
		return nil, fmt.Errorf("RETENTION_MAX_AGE must not be shorter than CLUSTER_WINDOW")
	}
	if err := c.Clustering.validate(); err != nil {
		return nil, err
	}
	if err := c.Lock.validate(c.Clustering); err != nil {
		return nil, err
	}

	return c, nil
}

func loadCommon() Common {
	return Common{
		ElasticsearchAddr: getEnv("ELASTICSEARCH_ADDR", "http://elasticsearch:9200"),
		DocumentsIndex:    getEnv("ELASTICSEARCH_INDEX", "documents"),
		StoriesAlias:      getEnv("ELASTICSEARCH_STORIES_ALIAS", "stories"),
	}
}

func loadClustering() Clustering {
	return Clustering{
		Window:     getDuration("CLUSTER_WINDOW", "48h"),
		PoolSize:   getInt("CLUSTER_POOL_SIZE", 200),
		RunTimeout: getDuration("CLUSTER_RUN_TIMEOUT", "4m"),
	}
}

func (c Clustering) validate() error {
	if c.Window <= 0 {
		return fmt.Errorf("CLUSTER_WINDOW must be positive")
	}
	if c.PoolSize <= 0 {
		return fmt.Errorf("CLUSTER_POOL_SIZE must be positive")
	}
	if c.RunTimeout <= 0 {
		return fmt.Errorf("CLUSTER_RUN_TIMEOUT must be positive")
	}
	return nil
}

func loadLock() Lock {
	return Lock{
		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		Key:           getEnv("CLUSTER_LOCK_KEY", "story-radar:cluster-run"),
		TTL:           getDuration("CLUSTER_LOCK_TTL", "5m"),
	}
}

// validate checks the lease outlives a run; the lease is never renewed.
func (l Lock) validate(c Clustering) error {
	if l.TTL <= 0 {
		return fmt.Errorf("CLUSTER_LOCK_TTL must be positive")
	}
	if l.TTL <= c.RunTimeout {
		return fmt.Errorf("CLUSTER_LOCK_TTL must exceed CLUSTER_RUN_TIMEOUT")
	}
	return nil
}

func loadAnalysis() Analysis {
	return Analysis{
		APIKey:        strings.TrimSpace(getEnv("OPENAI_API_KEY", "")),
		BaseURL:       getEnv("ANALYSIS_BASE_URL", ""),
		Model:         getEnv("ANALYSIS_MODEL", "gpt-4o-mini"),
		Timeout:       getDuration("ANALYSIS_TIMEOUT", "15s"),
		MaxTokens:     getInt("ANALYSIS_MAX_TOKENS", 300),
		RatePerMinute: getInt("ANALYSIS_RATE_PER_MIN", 30),
		MaxRetries:    getInt("ANALYSIS_MAX_RETRIES", 2),
	}
}

func (a Analysis) validate() error {
	if a.Timeout <= 0 {
		return fmt.Errorf("ANALYSIS_TIMEOUT must be positive")
	}
	if a.MaxTokens <= 0 {
		return fmt.Errorf("ANALYSIS_MAX_TOKENS must be positive")
	}
	if a.RatePerMinute <= 0 {
		return fmt.Errorf("ANALYSIS_RATE_PER_MIN must be positive")
	}
	if a.MaxRetries < 0 {
		return fmt.Errorf("ANALYSIS_MAX_RETRIES cannot be negative")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			return parsed
		}
	}
	return fallback
}

func getBool(key string, fallback bool) bool {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if parsed, err := strconv.ParseBool(v); err == nil {
			return parsed
		}
	}
	return fallback
}

func getDuration(key, fallback string) time.Duration {
	if d, err := time.ParseDuration(getEnv(key, fallback)); err == nil {
		return d
	}
	d, err := time.ParseDuration(fallback)
	if err != nil {
		panic(fmt.Sprintf("invalid fallback duration %q: %v", fallback, err))
	}
	return d
}

func splitAndTrim(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
