package elasticsearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/elastic/go-elasticsearch/v8/esapi"

	"github.com/DeafMist/story-radar/internal/models"
)

// IndexDocument writes a document under its identifier, so re-ingesting
// the same item overwrites instead of duplicating.
func (c *Client) IndexDocument(ctx context.Context, doc models.Document) error {
	payload, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal doc: %w", err)
	}

	req := esapi.IndexRequest{
		Index:      c.docsIndex,
		DocumentID: doc.ID,
		Body:       bytes.NewReader(payload),
		Refresh:    "false",
	}

	res, err := req.Do(ctx, c.es)
	if err != nil {
		return fmt.Errorf("index doc: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return responseError("index doc", res)
	}

	return nil
}

// FetchCandidateDocuments returns every document published within window,
// most-recent-first. Results are paged with search_after, so the window is
// not capped by index.max_result_window.
func (c *Client) FetchCandidateDocuments(ctx context.Context, window time.Duration) ([]models.Document, error) {
	cutoff := time.Now().UTC().Add(-window)

	var docs []models.Document
	seen := make(map[string]struct{})
	err := c.scan(ctx, "search documents", c.docsIndex, candidateQuery(cutoff, searchPageSize), func(raw json.RawMessage) error {
		var doc models.Document
		if err := json.Unmarshal(raw, &doc); err != nil {
			return err
		}
		if _, dup := seen[doc.ID]; dup {
			return nil
		}
		seen[doc.ID] = struct{}{}
		docs = append(docs, doc)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return docs, nil
}

// RecentDocuments returns up to limit documents, most-recent-first.
func (c *Client) RecentDocuments(ctx context.Context, limit int) ([]models.Document, error) {
	if limit <= 0 || limit > maxResultWindow {
		limit = maxResultWindow
	}

	hits, err := c.searchPage(ctx, "search documents", c.docsIndex, recentQuery(limit))
	if err != nil {
		return nil, err
	}

	docs := make([]models.Document, 0, len(hits))
	seen := make(map[string]struct{}, len(hits))
	for _, hit := range hits {
		var doc models.Document
		if err := json.Unmarshal(hit.Source, &doc); err != nil {
			return nil, fmt.Errorf("decode search hit: %w", err)
		}
		if _, dup := seen[doc.ID]; dup {
			continue
		}
		seen[doc.ID] = struct{}{}
		docs = append(docs, doc)
	}
	return docs, nil
}

// FetchDocumentsByIDs loads documents by identifier, in ids order. Missing
// identifiers are skipped.
func (c *Client) FetchDocumentsByIDs(ctx context.Context, ids []string) ([]models.Document, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	payload, err := json.Marshal(map[string]any{"ids": ids})
	if err != nil {
		return nil, fmt.Errorf("marshal mget body: %w", err)
	}

	res, err := c.es.Mget(
		bytes.NewReader(payload),
		c.es.Mget.WithContext(ctx),
		c.es.Mget.WithIndex(c.docsIndex),
	)
	if err != nil {
		return nil, fmt.Errorf("mget documents: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, responseError("mget documents", res)
	}

	var parsed struct {
		Docs []struct {
			Found  bool            `json:"found"`
			Source models.Document `json:"_source"`
		} `json:"docs"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode mget response: %w", err)
	}

	docs := make([]models.Document, 0, len(parsed.Docs))
	for _, d := range parsed.Docs {
		if d.Found {
			docs = append(docs, d.Source)
		}
	}
	return docs, nil
}

// DeleteOlderThan removes documents published more than maxAge ago using
// batched delete-by-query. It loops until a batch deletes fewer documents
// than batchSize.
func (c *Client) DeleteOlderThan(ctx context.Context, maxAge time.Duration, batchSize int) (int64, error) {
	if batchSize <= 0 {
		batchSize = 1000
	}

	payload, err := json.Marshal(olderThanQuery(time.Now().Add(-maxAge)))
	if err != nil {
		return 0, fmt.Errorf("marshal delete body: %w", err)
	}

	totalDeleted := int64(0)
	for {
		deleted, err := c.deleteBatch(ctx, payload, batchSize)
		totalDeleted += deleted
		if err != nil {
			return totalDeleted, err
		}
		if deleted < int64(batchSize) {
			return totalDeleted, nil
		}
	}
}

func (c *Client) deleteBatch(ctx context.Context, payload []byte, batchSize int) (int64, error) {
	res, err := c.es.DeleteByQuery(
		[]string{c.docsIndex},
		bytes.NewReader(payload),
		c.es.DeleteByQuery.WithContext(ctx),
		c.es.DeleteByQuery.WithWaitForCompletion(true),
		c.es.DeleteByQuery.WithConflicts("proceed"),
		c.es.DeleteByQuery.WithScrollSize(batchSize),
		c.es.DeleteByQuery.WithMaxDocs(batchSize),
	)
	if err != nil {
		return 0, fmt.Errorf("delete by query: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return 0, responseError("delete by query", res)
	}

	var parsed struct {
		Deleted int64 `json:"deleted"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return 0, fmt.Errorf("decode delete response: %w", err)
	}
	return parsed.Deleted, nil
}
