package cluster

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/DeafMist/story-radar/internal/models"
	"github.com/DeafMist/story-radar/internal/runlock"
)

const (
	// DefaultWindow is the recency window of candidate documents.
	DefaultWindow = 48 * time.Hour
	// DefaultRunTimeout bounds one run after the lock is taken.
	DefaultRunTimeout = 4 * time.Minute
)

// ErrRunInProgress is returned when another clustering run holds the lock.
var ErrRunInProgress = errors.New("clustering run already in progress")

// DocumentSource supplies the documents a run partitions.
type DocumentSource interface {
	// FetchCandidateDocuments returns documents published within window,
	// deduplicated by identifier and most-recent-first.
	FetchCandidateDocuments(ctx context.Context, window time.Duration) ([]models.Document, error)
}

// StoryStore persists the result of a run.
type StoryStore interface {
	BeginRebuild(ctx context.Context) (Rebuild, error)
}

// Rebuild is a scoped replacement of the whole story set. Nothing written
// through it is visible to readers until Commit succeeds; Rollback discards
// it and leaves the previous story set in place.
type Rebuild interface {
	ClearAllStories(ctx context.Context) error
	InsertStory(ctx context.Context, story models.Story) error
	LinkMember(ctx context.Context, storyID, docID string) error
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// Locker guards against overlapping runs.
type Locker interface {
	TryAcquire(ctx context.Context) (release func(), err error)
}

// RunResult summarizes one clustering run.
type RunResult struct {
	StoriesCreated    int `json:"stories_created"`
	DocumentsAssigned int `json:"documents_assigned"`
	LargestCluster    int `json:"largest_cluster"`
}

// RunnerConfig tunes a Runner. Timeout must be shorter than the lease of
// a shared lock so a run never outlives its lock.
type RunnerConfig struct {
	Window   time.Duration
	PoolSize int
	Timeout  time.Duration
}

// Runner executes full clustering runs: fetch the window, partition it and
// atomically replace the persisted story set.
type Runner struct {
	source  DocumentSource
	store   StoryStore
	lock    Locker
	engine  *Engine
	window  time.Duration
	timeout time.Duration
	log     *slog.Logger
	now     func() time.Time
}

// NewRunner wires a Runner. A nil lock falls back to a process-local one.
func NewRunner(source DocumentSource, store StoryStore, lock Locker, cfg RunnerConfig, logger *slog.Logger) *Runner {
	if lock == nil {
		lock = runlock.NewLocal()
	}
	if cfg.Window <= 0 {
		cfg.Window = DefaultWindow
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultRunTimeout
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Runner{
		source:  source,
		store:   store,
		lock:    lock,
		engine:  NewEngine(cfg.PoolSize),
		window:  cfg.Window,
		timeout: cfg.Timeout,
		log:     logger,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Run performs one clustering run. Only one run may be in flight; a second
// caller gets ErrRunInProgress. Persistence failures are returned and leave
// the previously committed stories untouched.
func (r *Runner) Run(ctx context.Context) (RunResult, error) {
	release, err := r.lock.TryAcquire(ctx)
	if err != nil {
		if errors.Is(err, runlock.ErrBusy) {
			return RunResult{}, ErrRunInProgress
		}
		return RunResult{}, fmt.Errorf("acquire run lock: %w", err)
	}
	defer release()

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	now := r.now()
	docs, err := r.source.FetchCandidateDocuments(ctx, r.window)
	if err != nil {
		return RunResult{}, fmt.Errorf("fetch candidate documents: %w", err)
	}
	docs = withinWindow(docs, now, r.window)
	if len(docs) == 0 {
		r.log.Info("no candidate documents in window", slog.Duration("window", r.window))
		return RunResult{}, nil
	}

	clusters := r.engine.Partition(docs)
	result, err := r.persist(ctx, clusters, now)
	if err != nil {
		return RunResult{}, err
	}

	r.log.Info("clustering run completed",
		slog.Int("candidates", len(docs)),
		slog.Int("stories", result.StoriesCreated),
		slog.Int("largest", result.LargestCluster),
		slog.Duration("took", time.Since(now)),
	)
	return result, nil
}

func (r *Runner) persist(ctx context.Context, clusters []Cluster, now time.Time) (result RunResult, err error) {
	tx, err := r.store.BeginRebuild(ctx)
	if err != nil {
		return RunResult{}, fmt.Errorf("begin rebuild: %w", err)
	}
	committed := false
	defer func() {
		if committed {
			return
		}
		if rbErr := tx.Rollback(context.WithoutCancel(ctx)); rbErr != nil {
			r.log.Warn("rollback rebuild", slog.Any("err", rbErr))
		}
	}()

	if err := tx.ClearAllStories(ctx); err != nil {
		return RunResult{}, fmt.Errorf("clear stories: %w", err)
	}

	for _, c := range clusters {
		story := BuildStory(c, now)
		if err := tx.InsertStory(ctx, story); err != nil {
			return RunResult{}, fmt.Errorf("insert story %s: %w", story.ID, err)
		}
		for _, d := range c.Members {
			if err := tx.LinkMember(ctx, story.ID, d.ID); err != nil {
				return RunResult{}, fmt.Errorf("link %s to story %s: %w", d.ID, story.ID, err)
			}
		}
		result.StoriesCreated++
		result.DocumentsAssigned += len(c.Members)
		result.LargestCluster = max(result.LargestCluster, len(c.Members))
	}

	if err := tx.Commit(ctx); err != nil {
		return RunResult{}, fmt.Errorf("commit rebuild: %w", err)
	}
	committed = true
	return result, nil
}

// withinWindow drops documents without a usable timestamp or published
// outside the window ending at now.
func withinWindow(docs []models.Document, now time.Time, window time.Duration) []models.Document {
	cutoff := now.Add(-window)
	out := docs[:0:0]
	for _, d := range docs {
		if d.PublishedAt.IsZero() || d.PublishedAt.Before(cutoff) {
			continue
		}
		out = append(out, d)
	}
	return out
}
