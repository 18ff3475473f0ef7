// Package memstore is an in-memory document source and story store.
package memstore

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/DeafMist/story-radar/internal/cluster"
	"github.com/DeafMist/story-radar/internal/models"
)

// Store keeps documents and the committed story set in memory. It is safe
// for concurrent use.
type Store struct {
	mu      sync.RWMutex
	docs    map[string]models.Document
	stories map[string]models.StoryWithMembers
	now     func() time.Time
}

// New creates an empty store.
func New() *Store {
	return &Store{
		docs:    make(map[string]models.Document),
		stories: make(map[string]models.StoryWithMembers),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// AddDocuments stores docs, ignoring identifiers already present.
// It returns the number of newly stored documents.
func (s *Store) AddDocuments(docs ...models.Document) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	added := 0
	for _, d := range docs {
		if _, ok := s.docs[d.ID]; ok {
			continue
		}
		s.docs[d.ID] = d
		added++
	}
	return added
}

// FetchCandidateDocuments returns documents published within window,
// most-recent-first.
func (s *Store) FetchCandidateDocuments(_ context.Context, window time.Duration) ([]models.Document, error) {
	cutoff := s.now().Add(-window)

	s.mu.RLock()
	out := make([]models.Document, 0, len(s.docs))
	for _, d := range s.docs {
		if d.PublishedAt.Before(cutoff) {
			continue
		}
		out = append(out, d)
	}
	s.mu.RUnlock()

	sortRecentFirst(out)
	return out, nil
}

// RecentDocuments returns up to limit documents, most-recent-first.
func (s *Store) RecentDocuments(_ context.Context, limit int) ([]models.Document, error) {
	s.mu.RLock()
	out := make([]models.Document, 0, len(s.docs))
	for _, d := range s.docs {
		out = append(out, d)
	}
	s.mu.RUnlock()

	sortRecentFirst(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// FetchDocumentsByIDs returns the stored documents among ids, in ids order.
// Unknown identifiers are skipped.
func (s *Store) FetchDocumentsByIDs(_ context.Context, ids []string) ([]models.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Document, 0, len(ids))
	for _, id := range ids {
		if d, ok := s.docs[id]; ok {
			out = append(out, d)
		}
	}
	return out, nil
}

// ListStoriesWithMembers returns the committed stories, newest update first.
func (s *Store) ListStoriesWithMembers(_ context.Context) ([]models.StoryWithMembers, error) {
	s.mu.RLock()
	out := make([]models.StoryWithMembers, 0, len(s.stories))
	for _, st := range s.stories {
		out = append(out, copyStory(st))
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		a, b := out[i].Story, out[j].Story
		if !a.UpdatedAt.Equal(b.UpdatedAt) {
			return a.UpdatedAt.After(b.UpdatedAt)
		}
		return a.ID < b.ID
	})
	return out, nil
}

// GetStory returns one committed story or models.ErrNotFound.
func (s *Store) GetStory(_ context.Context, id string) (models.StoryWithMembers, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st, ok := s.stories[id]
	if !ok {
		return models.StoryWithMembers{}, fmt.Errorf("story %s: %w", id, models.ErrNotFound)
	}
	return copyStory(st), nil
}

// BeginRebuild starts a staged replacement of the story set.
func (s *Store) BeginRebuild(_ context.Context) (cluster.Rebuild, error) {
	return &rebuild{store: s, staged: make(map[string]models.StoryWithMembers)}, nil
}

type rebuild struct {
	store  *Store
	staged map[string]models.StoryWithMembers
	done   bool
}

func (r *rebuild) ClearAllStories(_ context.Context) error {
	if r.done {
		return errFinished
	}
	r.staged = make(map[string]models.StoryWithMembers)
	return nil
}

func (r *rebuild) InsertStory(_ context.Context, story models.Story) error {
	if r.done {
		return errFinished
	}
	existing := r.staged[story.ID]
	r.staged[story.ID] = models.StoryWithMembers{Story: story, MemberIDs: existing.MemberIDs}
	return nil
}

func (r *rebuild) LinkMember(_ context.Context, storyID, docID string) error {
	if r.done {
		return errFinished
	}
	st, ok := r.staged[storyID]
	if !ok {
		return fmt.Errorf("link member: story %s: %w", storyID, models.ErrNotFound)
	}
	for _, id := range st.MemberIDs {
		if id == docID {
			return nil
		}
	}
	st.MemberIDs = append(st.MemberIDs, docID)
	r.staged[storyID] = st
	return nil
}

// Commit swaps the staged set in under the store lock.
func (r *rebuild) Commit(_ context.Context) error {
	if r.done {
		return errFinished
	}
	r.done = true

	r.store.mu.Lock()
	r.store.stories = r.staged
	r.store.mu.Unlock()
	return nil
}

func (r *rebuild) Rollback(_ context.Context) error {
	r.done = true
	r.staged = nil
	return nil
}

var errFinished = errors.New("rebuild already finished")

func copyStory(st models.StoryWithMembers) models.StoryWithMembers {
	st.MemberIDs = append([]string(nil), st.MemberIDs...)
	return st
}

func sortRecentFirst(docs []models.Document) {
	sort.SliceStable(docs, func(i, j int) bool {
		if !docs[i].PublishedAt.Equal(docs[j].PublishedAt) {
			return docs[i].PublishedAt.After(docs[j].PublishedAt)
		}
		return docs[i].ID < docs[j].ID
	})
}
