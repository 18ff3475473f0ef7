package elasticsearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"net/http"
)

// searchPageSize is the page size of full scans. It stays below
// maxResultWindow; search_after has no depth limit.
const searchPageSize = 1000

type searchHit struct {
	Source json.RawMessage `json:"_source"`
	Sort   json.RawMessage `json:"sort"`
}

// scan pages through every hit of query on index with search_after and
// calls fn with each _source in order. query must sort on a unique
// tiebreaker. A missing index yields no hits.
func (c *Client) scan(ctx context.Context, op, index string, query map[string]any, fn func(json.RawMessage) error) error {
	pageSize := c.pageSize
	if pageSize <= 0 {
		pageSize = searchPageSize
	}

	var after json.RawMessage
	for {
		body := maps.Clone(query)
		body["size"] = pageSize
		if after != nil {
			body["search_after"] = after
		}

		hits, err := c.searchPage(ctx, op, index, body)
		if err != nil {
			return err
		}
		for _, h := range hits {
			if err := fn(h.Source); err != nil {
				return fmt.Errorf("%s: decode hit: %w", op, err)
			}
		}
		if len(hits) < pageSize {
			return nil
		}

		after = hits[len(hits)-1].Sort
		if len(after) == 0 {
			return fmt.Errorf("%s: hit without sort values, cannot page", op)
		}
	}
}

func (c *Client) searchPage(ctx context.Context, op, index string, body map[string]any) ([]searchHit, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal %s body: %w", op, err)
	}

	res, err := c.es.Search(
		c.es.Search.WithContext(ctx),
		c.es.Search.WithIndex(index),
		c.es.Search.WithBody(bytes.NewReader(payload)),
		c.es.Search.WithIgnoreUnavailable(true),
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if res.IsError() {
		return nil, responseError(op, res)
	}

	var parsed struct {
		Hits struct {
			Hits []searchHit `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode %s response: %w", op, err)
	}
	return parsed.Hits.Hits, nil
}
