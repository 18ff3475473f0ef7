package elasticsearch

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/DeafMist/story-radar/internal/models"
)

// maxResultWindow is the default index.max_result_window of Elasticsearch.
const maxResultWindow = 10000

var documentsMapping = map[string]any{
	"mappings": map[string]any{
		"properties": map[string]any{
			"id":           map[string]any{"type": "keyword"},
			"title":        map[string]any{"type": "text"},
			"summary":      map[string]any{"type": "text"},
			"topic":        map[string]any{"type": "keyword"},
			"region":       map[string]any{"type": "keyword"},
			"publisher":    map[string]any{"type": "keyword"},
			"published_at": map[string]any{"type": "date"},
			"ingested_at":  map[string]any{"type": "date"},
			"url":          map[string]any{"type": "keyword", "index": false},
		},
	},
}

var storiesMapping = map[string]any{
	"mappings": map[string]any{
		"properties": map[string]any{
			"id":                map[string]any{"type": "keyword"},
			"title":             map[string]any{"type": "text"},
			"topic":             map[string]any{"type": "keyword"},
			"region":            map[string]any{"type": "keyword"},
			"representative_id": map[string]any{"type": "keyword"},
			"member_ids":        map[string]any{"type": "keyword"},
			"created_at":        map[string]any{"type": "date"},
			"updated_at":        map[string]any{"type": "date"},
		},
	},
}

// storyDoc is the stored form of a story: the story fields plus its members.
type storyDoc struct {
	models.Story
	MemberIDs []string `json:"member_ids"`
}

func (d storyDoc) withMembers() models.StoryWithMembers {
	return models.StoryWithMembers{Story: d.Story, MemberIDs: d.MemberIDs}
}

var recentFirst = []map[string]any{
	{"published_at": map[string]any{"order": "desc"}},
	{"id": map[string]any{"order": "asc"}},
}

// candidateQuery selects documents published at or after cutoff,
// most-recent-first.
func candidateQuery(cutoff time.Time, size int) map[string]any {
	return map[string]any{
		"size": size,
		"query": map[string]any{
			"bool": map[string]any{
				"filter": []map[string]any{
					{"range": map[string]any{
						"published_at": map[string]any{"gte": cutoff.UTC().Format(time.RFC3339)},
					}},
				},
			},
		},
		"sort": recentFirst,
	}
}

func recentQuery(size int) map[string]any {
	return map[string]any{
		"size":  size,
		"query": map[string]any{"match_all": map[string]any{}},
		"sort":  recentFirst,
	}
}

func olderThanQuery(cutoff time.Time) map[string]any {
	return map[string]any{
		"query": map[string]any{
			"range": map[string]any{
				"published_at": map[string]any{"lte": cutoff.UTC().Format(time.RFC3339)},
			},
		},
	}
}

func storiesQuery(size int) map[string]any {
	return map[string]any{
		"size":  size,
		"query": map[string]any{"match_all": map[string]any{}},
		"sort": []map[string]any{
			{"updated_at": map[string]any{"order": "desc"}},
			{"id": map[string]any{"order": "asc"}},
		},
	}
}

// aliasSwapActions moves alias from every index in previous to next in one
// atomic update.
func aliasSwapActions(alias, next string, previous []string) map[string]any {
	actions := make([]map[string]any, 0, len(previous)+1)
	for _, idx := range previous {
		actions = append(actions, map[string]any{
			"remove": map[string]any{"index": idx, "alias": alias},
		})
	}
	actions = append(actions, map[string]any{
		"add": map[string]any{"index": next, "alias": alias},
	})
	return map[string]any{"actions": actions}
}

// bulkIndexBody renders stories as an NDJSON bulk index request.
func bulkIndexBody(docs []storyDoc) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, d := range docs {
		meta := map[string]any{"index": map[string]any{"_id": d.ID}}
		if err := enc.Encode(meta); err != nil {
			return nil, fmt.Errorf("encode bulk meta: %w", err)
		}
		if err := enc.Encode(d); err != nil {
			return nil, fmt.Errorf("encode story %s: %w", d.ID, err)
		}
	}
	return buf.Bytes(), nil
}
