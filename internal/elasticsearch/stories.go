package elasticsearch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sort"

	"github.com/google/uuid"

	"github.com/DeafMist/story-radar/internal/cluster"
	"github.com/DeafMist/story-radar/internal/models"
)

// ListStoriesWithMembers returns every story behind the stories alias,
// newest update first. A missing alias means no run has committed yet.
func (c *Client) ListStoriesWithMembers(ctx context.Context) ([]models.StoryWithMembers, error) {
	var out []models.StoryWithMembers
	err := c.scan(ctx, "search stories", c.storiesAlias, storiesQuery(searchPageSize), func(raw json.RawMessage) error {
		var doc storyDoc
		if err := json.Unmarshal(raw, &doc); err != nil {
			return err
		}
		out = append(out, doc.withMembers())
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// GetStory loads one story through the alias or returns models.ErrNotFound.
func (c *Client) GetStory(ctx context.Context, id string) (models.StoryWithMembers, error) {
	res, err := c.es.Get(c.storiesAlias, id, c.es.Get.WithContext(ctx))
	if err != nil {
		return models.StoryWithMembers{}, fmt.Errorf("get story: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusNotFound {
		return models.StoryWithMembers{}, fmt.Errorf("story %s: %w", id, models.ErrNotFound)
	}
	if res.IsError() {
		return models.StoryWithMembers{}, responseError("get story", res)
	}

	var parsed struct {
		Found  bool     `json:"found"`
		Source storyDoc `json:"_source"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return models.StoryWithMembers{}, fmt.Errorf("decode story: %w", err)
	}
	if !parsed.Found {
		return models.StoryWithMembers{}, fmt.Errorf("story %s: %w", id, models.ErrNotFound)
	}
	return parsed.Source.withMembers(), nil
}

// BeginRebuild starts a replacement of the story set. Stories are staged in
// memory and written to a fresh index on Commit; the alias then moves to it
// in a single request, so readers never see a partial set.
func (c *Client) BeginRebuild(_ context.Context) (cluster.Rebuild, error) {
	return &rebuild{client: c, staged: make(map[string]*storyDoc)}, nil
}

var errRebuildFinished = errors.New("rebuild already finished")

type rebuild struct {
	client *Client
	staged map[string]*storyDoc
	order  []string
	done   bool
}

func (r *rebuild) ClearAllStories(_ context.Context) error {
	if r.done {
		return errRebuildFinished
	}
	r.staged = make(map[string]*storyDoc)
	r.order = nil
	return nil
}

func (r *rebuild) InsertStory(_ context.Context, story models.Story) error {
	if r.done {
		return errRebuildFinished
	}
	if existing, ok := r.staged[story.ID]; ok {
		existing.Story = story
		return nil
	}
	r.staged[story.ID] = &storyDoc{Story: story}
	r.order = append(r.order, story.ID)
	return nil
}

func (r *rebuild) LinkMember(_ context.Context, storyID, docID string) error {
	if r.done {
		return errRebuildFinished
	}
	d, ok := r.staged[storyID]
	if !ok {
		return fmt.Errorf("link member: story %s: %w", storyID, models.ErrNotFound)
	}
	for _, id := range d.MemberIDs {
		if id == docID {
			return nil
		}
	}
	d.MemberIDs = append(d.MemberIDs, docID)
	return nil
}

func (r *rebuild) Rollback(_ context.Context) error {
	r.done = true
	r.staged = nil
	return nil
}

// Commit writes the staged stories into a new generation index and swaps
// the alias onto it. Previous generations are deleted afterwards on a best
// effort basis.
func (r *rebuild) Commit(ctx context.Context) error {
	if r.done {
		return errRebuildFinished
	}
	r.done = true

	c := r.client
	next := c.storiesAlias + "-" + uuid.NewString()
	if err := c.createIndex(ctx, next, storiesMapping); err != nil {
		return err
	}

	docs := make([]storyDoc, 0, len(r.order))
	for _, id := range r.order {
		docs = append(docs, *r.staged[id])
	}

	if err := c.commitGeneration(ctx, next, docs); err != nil {
		if delErr := c.deleteIndices(context.WithoutCancel(ctx), next); delErr != nil {
			c.log.Warn("drop unused stories index", slog.String("index", next), slog.Any("err", delErr))
		}
		return err
	}
	return nil
}

func (c *Client) commitGeneration(ctx context.Context, next string, docs []storyDoc) error {
	if err := c.bulkIndex(ctx, next, docs); err != nil {
		return err
	}

	previous, err := c.aliasIndices(ctx)
	if err != nil {
		return err
	}
	if err := c.swapAlias(ctx, next, previous); err != nil {
		return err
	}

	if err := c.deleteIndices(ctx, previous...); err != nil {
		c.log.Warn("delete previous stories indices", slog.Any("indices", previous), slog.Any("err", err))
	}
	c.log.Info("stories alias swapped", slog.String("index", next), slog.Int("stories", len(docs)))
	return nil
}

func (c *Client) bulkIndex(ctx context.Context, index string, docs []storyDoc) error {
	if len(docs) == 0 {
		return nil
	}
	body, err := bulkIndexBody(docs)
	if err != nil {
		return err
	}

	res, err := c.es.Bulk(
		bytes.NewReader(body),
		c.es.Bulk.WithContext(ctx),
		c.es.Bulk.WithIndex(index),
		c.es.Bulk.WithRefresh("wait_for"),
	)
	if err != nil {
		return fmt.Errorf("bulk index stories: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return responseError("bulk index stories", res)
	}

	var parsed struct {
		Errors bool `json:"errors"`
		Items  []map[string]struct {
			ID     string          `json:"_id"`
			Status int             `json:"status"`
			Error  json.RawMessage `json:"error"`
		} `json:"items"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return fmt.Errorf("decode bulk response: %w", err)
	}
	if !parsed.Errors {
		return nil
	}
	for _, item := range parsed.Items {
		for _, op := range item {
			if op.Status >= http.StatusBadRequest {
				return fmt.Errorf("bulk index story %s: %s", op.ID, string(op.Error))
			}
		}
	}
	return errors.New("bulk index stories reported errors")
}

// aliasIndices returns the indices currently behind the stories alias.
func (c *Client) aliasIndices(ctx context.Context) ([]string, error) {
	res, err := c.es.Indices.GetAlias(
		c.es.Indices.GetAlias.WithContext(ctx),
		c.es.Indices.GetAlias.WithName(c.storiesAlias),
	)
	if err != nil {
		return nil, fmt.Errorf("get stories alias: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if res.IsError() {
		return nil, responseError("get stories alias", res)
	}

	var parsed map[string]json.RawMessage
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode alias response: %w", err)
	}
	indices := make([]string, 0, len(parsed))
	for idx := range parsed {
		indices = append(indices, idx)
	}
	sort.Strings(indices)
	return indices, nil
}

func (c *Client) swapAlias(ctx context.Context, next string, previous []string) error {
	payload, err := json.Marshal(aliasSwapActions(c.storiesAlias, next, previous))
	if err != nil {
		return fmt.Errorf("marshal alias actions: %w", err)
	}

	res, err := c.es.Indices.UpdateAliases(
		bytes.NewReader(payload),
		c.es.Indices.UpdateAliases.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("swap stories alias: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return responseError("swap stories alias", res)
	}
	return nil
}
