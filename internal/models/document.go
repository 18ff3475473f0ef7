package models

import (
	"fmt"
	"strings"
	"time"
)

// Topic is the editorial section a feed is configured under.
type Topic string

const (
	TopicPolitics Topic = "Politics"
	TopicClimate  Topic = "Climate"
	TopicBusiness Topic = "Business"
)

// Region is the geographic scope of a feed.
type Region string

const (
	RegionUS Region = "US"
	RegionPA Region = "PA"
)

var topics = []Topic{TopicPolitics, TopicClimate, TopicBusiness}

var regions = []Region{RegionUS, RegionPA}

// ParseTopic matches raw case-insensitively against the known topics.
func ParseTopic(raw string) (Topic, error) {
	raw = strings.TrimSpace(raw)
	for _, t := range topics {
		if strings.EqualFold(raw, string(t)) {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown topic %q", raw)
}

// ParseRegion matches raw case-insensitively against the known regions.
func ParseRegion(raw string) (Region, error) {
	raw = strings.TrimSpace(raw)
	for _, r := range regions {
		if strings.EqualFold(raw, string(r)) {
			return r, nil
		}
	}
	return "", fmt.Errorf("unknown region %q", raw)
}

// Document is a single ingested news item as stored in Elasticsearch.
// Documents are immutable once indexed.
type Document struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Summary     string    `json:"summary"`
	Topic       Topic     `json:"topic"`
	Region      Region    `json:"region"`
	Publisher   string    `json:"publisher"`
	PublishedAt time.Time `json:"published_at"`
	IngestedAt  time.Time `json:"ingested_at"`
	URL         string    `json:"url,omitempty"`
}

// GroupKey identifies the (topic, region) partition a document belongs to.
func (d Document) GroupKey() string {
	return string(d.Topic) + "|" + string(d.Region)
}
