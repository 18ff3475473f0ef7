package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/DeafMist/story-radar/internal/dedupe"
	"github.com/DeafMist/story-radar/internal/models"
	"github.com/DeafMist/story-radar/internal/processing"
)

// rawDocument is the feed item produced upstream onto the raw topic.
type rawDocument struct {
	Title       string `json:"title"`
	Summary     string `json:"summary"`
	Content     string `json:"content"`
	Topic       string `json:"topic"`
	Region      string `json:"region"`
	Publisher   string `json:"publisher"`
	PublishedAt string `json:"published_at"`
	URL         string `json:"url"`
}

type documentIndexer interface {
	IndexDocument(ctx context.Context, doc models.Document) error
}

type ingester struct {
	log     *slog.Logger
	indexer documentIndexer
	cache   *dedupe.Cache
	now     func() time.Time
}

// processMessage normalizes one raw item and indexes it. Items without a
// title are dropped without error; malformed payloads and unknown
// topic/region values are returned as errors.
func (in *ingester) processMessage(ctx context.Context, msg kafka.Message) error {
	var payload rawDocument
	if err := json.Unmarshal(msg.Value, &payload); err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}

	doc, ok, err := in.normalize(payload)
	if err != nil {
		return err
	}
	if !ok {
		in.log.Debug("skipping item without title", slog.Int64("offset", msg.Offset))
		return nil
	}

	if in.cache.Contains(doc.ID) {
		in.log.Debug("duplicate document", slog.String("id", doc.ID))
		return nil
	}

	if err := in.indexer.IndexDocument(ctx, doc); err != nil {
		return err
	}

	in.cache.Add(doc.ID)
	in.log.Info("indexed document", slog.String("id", doc.ID), slog.String("title", doc.Title))
	return nil
}

func (in *ingester) normalize(p rawDocument) (models.Document, bool, error) {
	title := processing.StripHTML(p.Title)
	if title == "" {
		return models.Document{}, false, nil
	}

	topic, err := models.ParseTopic(p.Topic)
	if err != nil {
		return models.Document{}, false, err
	}
	region, err := models.ParseRegion(p.Region)
	if err != nil {
		return models.Document{}, false, err
	}

	now := in.now()
	publishedAt, ok := processing.ParseTimestamp(p.PublishedAt)
	if !ok {
		publishedAt = now
	}

	publisher := strings.TrimSpace(p.Publisher)
	if publisher == "" {
		publisher = "unknown"
	}

	url := strings.TrimSpace(p.URL)
	if url == "" {
		url = processing.FirstURL(p.Summary, p.Content)
	}

	return models.Document{
		ID:          processing.BuildDocumentID(title, publisher, publishedAt),
		Title:       title,
		Summary:     processing.BuildSummary(p.Summary, p.Content, title),
		Topic:       topic,
		Region:      region,
		Publisher:   publisher,
		PublishedAt: publishedAt,
		IngestedAt:  now,
		URL:         url,
	}, true, nil
}
