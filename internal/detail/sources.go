package detail

import (
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/DeafMist/story-radar/internal/models"
)

// Source types of a publisher.
const (
	SourceWire        = "Wire Service"
	SourceInstitution = "Institution"
	SourcePublication = "Publication"
)

var (
	wireServices = map[string]struct{}{
		"Reuters": {}, "AP": {}, "AFP": {}, "Associated Press": {}, "BBC": {},
	}
	institutions = map[string]struct{}{
		"NASA": {}, "European Commission": {}, "WTO": {}, "IEA": {}, "CDC": {}, "NASA Climate": {},
	}
)

// InferSourceType classifies a publisher name.
func InferSourceType(publisher string) string {
	if _, ok := wireServices[publisher]; ok {
		return SourceWire
	}
	if _, ok := institutions[publisher]; ok {
		return SourceInstitution
	}
	return SourcePublication
}

const (
	summaryExcerptLen    = 150
	summaryExcerptMin    = 50
	summaryExcerptProbe  = 30
	summaryExtraExcerpts = 2
)

// PickSummary returns the longest member summary, followed by short
// excerpts of up to two other summaries that add new text.
func PickSummary(docs []models.Document) string {
	if len(docs) == 0 {
		return ""
	}

	sorted := append([]models.Document(nil), docs...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return utf8.RuneCountInString(sorted[i].Summary) > utf8.RuneCountInString(sorted[j].Summary)
	})
	best := sorted[0].Summary
	if len(docs) == 1 {
		return best
	}

	parts := []string{best}
	for _, d := range sorted[1:min(len(sorted), 1+summaryExtraExcerpts)] {
		n := utf8.RuneCountInString(d.Summary)
		if d.Summary == best || n <= summaryExcerptMin {
			continue
		}
		excerpt := strings.TrimSpace(truncateRunes(d.Summary, summaryExcerptLen))
		if excerpt == "" || containsAny(parts, truncateRunes(excerpt, summaryExcerptProbe)) {
			continue
		}
		if n > summaryExcerptLen {
			excerpt += "…"
		}
		parts = append(parts, excerpt)
	}
	return strings.Join(parts, " ")
}

// UniquePublishers lists the distinct publishers of docs in first-seen order.
func UniquePublishers(docs []models.Document) []string {
	seen := make(map[string]struct{}, len(docs))
	var out []string
	for _, d := range docs {
		if _, ok := seen[d.Publisher]; ok {
			continue
		}
		seen[d.Publisher] = struct{}{}
		out = append(out, d.Publisher)
	}
	return out
}

func containsAny(parts []string, probe string) bool {
	for _, p := range parts {
		if strings.Contains(p, probe) {
			return true
		}
	}
	return false
}
