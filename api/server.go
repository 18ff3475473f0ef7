package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/DeafMist/story-radar/internal/cluster"
	"github.com/DeafMist/story-radar/internal/config"
	"github.com/DeafMist/story-radar/internal/detail"
	"github.com/DeafMist/story-radar/internal/models"
	"github.com/DeafMist/story-radar/internal/signals"
)

const memberLoadParallel = 8

type healthChecker interface {
	Health(ctx context.Context) error
}

type storyReader interface {
	ListStoriesWithMembers(ctx context.Context) ([]models.StoryWithMembers, error)
	GetStory(ctx context.Context, id string) (models.StoryWithMembers, error)
}

type documentReader interface {
	FetchDocumentsByIDs(ctx context.Context, ids []string) ([]models.Document, error)
	RecentDocuments(ctx context.Context, limit int) ([]models.Document, error)
}

type clusterRunner interface {
	Run(ctx context.Context) (cluster.RunResult, error)
}

type server struct {
	log         *slog.Logger
	cfg         *config.API
	health      healthChecker
	stories     storyReader
	docs        documentReader
	runner      clusterRunner // nil disables POST /admin/cluster
	synthesizer *detail.Synthesizer
}

type errorResponse struct {
	Error string `json:"error"`
}

type storyView struct {
	ID          string         `json:"id"`
	Title       string         `json:"title"`
	Topic       models.Topic   `json:"topic"`
	Region      models.Region  `json:"region"`
	Summary     string         `json:"summary"`
	SourceCount int            `json:"source_count"`
	Publishers  []string       `json:"publishers"`
	PublishedAt time.Time      `json:"published_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	Signals     signals.Result `json:"signals"`
	Detail      *detail.Result `json:"detail,omitempty"`
}

type storiesResponse struct {
	Stories   []storyView       `json:"stories"`
	Fallback  bool              `json:"fallback"`
	Documents []models.Document `json:"documents,omitempty"`
}

type sourceView struct {
	ID          string    `json:"id"`
	Publisher   string    `json:"publisher"`
	SourceType  string    `json:"source_type"`
	Title       string    `json:"title"`
	URL         string    `json:"url,omitempty"`
	PublishedAt time.Time `json:"published_at"`
}

type storyDetailResponse struct {
	storyView
	Sources      []sourceView   `json:"sources"`
	Blocks       []detail.Block `json:"blocks"`
	QuotedVoices []detail.Voice `json:"quoted_voices"`
}

func (s *server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/health", s.handleHealth)
	r.Get("/stories", s.handleStories)
	r.Get("/stories/{id}", s.handleStory)
	if s.runner != nil {
		r.Post("/admin/cluster", s.handleCluster)
	}
	return r
}

func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := s.health.Health(ctx); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *server) handleStories(w http.ResponseWriter, r *http.Request) {
	withDetail, _ := strconv.ParseBool(r.URL.Query().Get("detail"))
	timeout := 10 * time.Second
	if withDetail {
		timeout = 30 * time.Second
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeout)
	defer cancel()

	size := clampInt(r.URL.Query().Get("size"), s.cfg.DefaultPage, s.cfg.MaxPage)

	stories, err := s.stories.ListStoriesWithMembers(ctx)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}

	if len(stories) == 0 {
		docs, err := s.docs.RecentDocuments(ctx, size)
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, storiesResponse{Stories: []storyView{}, Fallback: true, Documents: docs})
		return
	}

	if len(stories) > size {
		stories = stories[:size]
	}

	members, err := s.loadMembers(ctx, stories)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}

	views := make([]storyView, 0, len(stories))
	groups := make([][]models.Document, 0, len(stories))
	for i, st := range stories {
		if len(members[i]) == 0 {
			continue
		}
		views = append(views, newStoryView(st.Story, members[i]))
		groups = append(groups, members[i])
	}

	if withDetail {
		for i, res := range s.synthesizer.SynthesizeMany(ctx, groups) {
			views[i].Detail = &res
		}
	}

	writeJSON(w, http.StatusOK, storiesResponse{Stories: views})
}

// loadMembers fetches the member documents of every story concurrently.
// The result is indexed like stories.
func (s *server) loadMembers(ctx context.Context, stories []models.StoryWithMembers) ([][]models.Document, error) {
	out := make([][]models.Document, len(stories))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(memberLoadParallel)
	for i, st := range stories {
		g.Go(func() error {
			docs, err := s.docs.FetchDocumentsByIDs(gctx, st.MemberIDs)
			if err != nil {
				return err
			}
			out[i] = docs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *server) handleStory(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	id := chi.URLParam(r, "id")
	st, err := s.stories.GetStory(ctx, id)
	if errors.Is(err, models.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "story not found"})
		return
	}
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}

	docs, err := s.docs.FetchDocumentsByIDs(ctx, st.MemberIDs)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}
	if len(docs) == 0 {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "story has no documents"})
		return
	}

	synthesis := s.synthesizer.Synthesize(ctx, docs)

	sources := make([]sourceView, len(docs))
	for i, d := range docs {
		sources[i] = sourceView{
			ID:          d.ID,
			Publisher:   d.Publisher,
			SourceType:  detail.InferSourceType(d.Publisher),
			Title:       d.Title,
			URL:         d.URL,
			PublishedAt: d.PublishedAt,
		}
	}

	writeJSON(w, http.StatusOK, storyDetailResponse{
		storyView:    newStoryView(st.Story, docs),
		Sources:      sources,
		Blocks:       synthesis.Blocks,
		QuotedVoices: synthesis.QuotedVoices,
	})
}

func (s *server) handleCluster(w http.ResponseWriter, r *http.Request) {
	result, err := s.runner.Run(r.Context())
	if errors.Is(err, cluster.ErrRunInProgress) {
		writeJSON(w, http.StatusConflict, errorResponse{Error: err.Error()})
		return
	}
	if err != nil {
		s.log.Error("clustering run failed", slog.Any("err", err))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func newStoryView(st models.Story, docs []models.Document) storyView {
	var newest time.Time
	for _, d := range docs {
		if d.PublishedAt.After(newest) {
			newest = d.PublishedAt
		}
	}
	return storyView{
		ID:          st.ID,
		Title:       st.Title,
		Topic:       st.Topic,
		Region:      st.Region,
		Summary:     detail.PickSummary(docs),
		SourceCount: len(docs),
		Publishers:  detail.UniquePublishers(docs),
		PublishedAt: newest,
		UpdatedAt:   st.UpdatedAt,
		Signals:     signals.Score(docs),
	}
}

func clampInt(raw string, fallback, max int) int {
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	if value <= 0 {
		return fallback
	}
	if value > max {
		return max
	}
	return value
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
