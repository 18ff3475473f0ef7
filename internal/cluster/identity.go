package cluster

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
	"time"

	"github.com/DeafMist/story-radar/internal/lexical"
	"github.com/DeafMist/story-radar/internal/models"
)

const storyIDLen = 16

// StoryID derives a story identifier from its membership alone, so the same
// member set always yields the same identifier regardless of discovery order.
func StoryID(docIDs []string) string {
	sorted := append([]string(nil), docIDs...)
	sort.Strings(sorted)
	sum := sha256.Sum256([]byte(strings.Join(sorted, "|")))
	return hex.EncodeToString(sum[:])[:storyIDLen]
}

// CanonicalTitle picks the member title whose normalized form recurs most,
// preferring more descriptive titles: score = occurrences*10 + token count.
// Ties keep the first-seen title.
func CanonicalTitle(docs []models.Document) string {
	if len(docs) == 0 {
		return ""
	}

	type candidate struct {
		count    int
		original string
		tokens   int
	}
	index := make(map[string]int)
	var candidates []candidate

	for _, d := range docs {
		tokens := lexical.Normalize(d.Title)
		if len(tokens) == 0 {
			continue
		}
		norm := strings.Join(tokens, " ")
		if i, ok := index[norm]; ok {
			candidates[i].count++
			continue
		}
		index[norm] = len(candidates)
		candidates = append(candidates, candidate{count: 1, original: d.Title, tokens: len(tokens)})
	}

	best := docs[0].Title
	bestScore := 0
	for _, c := range candidates {
		score := c.count*10 + c.tokens
		if score > bestScore {
			bestScore = score
			best = c.original
		}
	}
	return best
}

// Representative returns the most recently published member. Ties keep the
// earlier member.
func Representative(docs []models.Document) (models.Document, bool) {
	if len(docs) == 0 {
		return models.Document{}, false
	}
	rep := docs[0]
	for _, d := range docs[1:] {
		if d.PublishedAt.After(rep.PublishedAt) {
			rep = d
		}
	}
	return rep, true
}

// BuildStory derives the persisted story record of c.
func BuildStory(c Cluster, now time.Time) models.Story {
	story := models.Story{
		ID:        StoryID(c.IDs()),
		Title:     CanonicalTitle(c.Members),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if rep, ok := Representative(c.Members); ok {
		story.RepresentativeID = rep.ID
		story.Topic = rep.Topic
		story.Region = rep.Region
	}
	return story
}
