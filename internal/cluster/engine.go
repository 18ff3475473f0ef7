package cluster

import (
	"github.com/DeafMist/story-radar/internal/models"
)

// DefaultPoolSize bounds the pairwise comparison pool of one (topic, region) group.
const DefaultPoolSize = 200

// Cluster is one group of documents judged to describe the same event.
type Cluster struct {
	Members []models.Document
}

// IDs returns the member document identifiers in discovery order.
func (c Cluster) IDs() []string {
	ids := make([]string, len(c.Members))
	for i, d := range c.Members {
		ids[i] = d.ID
	}
	return ids
}

// Engine partitions a document window into clusters.
type Engine struct {
	PoolSize int
}

// NewEngine creates an engine with the given comparison pool size.
func NewEngine(poolSize int) *Engine {
	if poolSize <= 0 {
		poolSize = DefaultPoolSize
	}
	return &Engine{PoolSize: poolSize}
}

// Partition splits docs into clusters. docs are expected most-recent-first
// within each (topic, region) group; similarity is only evaluated inside a
// group. The pool is the first PoolSize documents of a group. Every input
// document ends up in exactly one cluster: documents beyond the pool and
// documents without a usable title become singletons.
//
// The result depends on input order but is deterministic for a given order.
func (e *Engine) Partition(docs []models.Document) []Cluster {
	if len(docs) == 0 {
		return nil
	}
	poolSize := e.PoolSize
	if poolSize <= 0 {
		poolSize = DefaultPoolSize
	}

	// Features are memoized for this call only.
	memo := make(map[string]Features, len(docs))
	features := func(d models.Document) Features {
		if f, ok := memo[d.ID]; ok {
			return f
		}
		f := Extract(d.Title)
		memo[d.ID] = f
		return f
	}

	var clusters []Cluster
	for _, group := range groupByTopicRegion(docs) {
		pool := group
		var overflow []models.Document
		if len(group) > poolSize {
			pool, overflow = group[:poolSize], group[poolSize:]
		}

		var usable, unusable []models.Document
		for _, d := range pool {
			if len(features(d).Tokens) == 0 {
				unusable = append(unusable, d)
				continue
			}
			usable = append(usable, d)
		}

		clusters = append(clusters, expand(usable, features)...)
		for _, d := range unusable {
			clusters = append(clusters, Cluster{Members: []models.Document{d}})
		}
		for _, d := range overflow {
			clusters = append(clusters, Cluster{Members: []models.Document{d}})
		}
	}
	return clusters
}

// expand runs breadth-first expansion over pool, seeding a new cluster from
// each document not yet assigned.
func expand(pool []models.Document, features func(models.Document) Features) []Cluster {
	assigned := make([]bool, len(pool))
	var clusters []Cluster

	for i := range pool {
		if assigned[i] {
			continue
		}
		assigned[i] = true
		members := []models.Document{pool[i]}
		queue := []int{i}

		for len(queue) > 0 && len(members) < MaxClusterSize {
			current := queue[0]
			queue = queue[1:]
			fa := features(pool[current])

			for j := range pool {
				if assigned[j] {
					continue
				}
				if !Adjacent(fa, features(pool[j]), len(members)) {
					continue
				}
				assigned[j] = true
				members = append(members, pool[j])
				queue = append(queue, j)
			}
		}

		clusters = append(clusters, Cluster{Members: members})
	}
	return clusters
}

// groupByTopicRegion buckets docs by (topic, region), keeping first-seen
// group order and the input order inside each group.
func groupByTopicRegion(docs []models.Document) [][]models.Document {
	index := make(map[string]int)
	var groups [][]models.Document
	seen := make(map[string]struct{}, len(docs))

	for _, d := range docs {
		if _, dup := seen[d.ID]; dup {
			continue
		}
		seen[d.ID] = struct{}{}

		key := d.GroupKey()
		i, ok := index[key]
		if !ok {
			i = len(groups)
			index[key] = i
			groups = append(groups, nil)
		}
		groups[i] = append(groups[i], d)
	}
	return groups
}
