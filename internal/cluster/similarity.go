package cluster

import "github.com/DeafMist/story-radar/internal/lexical"

// Thresholds of the adjacency predicate. Display logic downstream is tuned
// against these exact values.
const (
	MaxClusterSize        = 25
	LargeClusterSize      = 12
	JaccardThreshold      = 0.27
	LargeJaccardThreshold = 0.45
)

// Features are the lexical token sets of one document title.
type Features struct {
	Tokens   lexical.Set
	Keys     lexical.Set
	Entities lexical.Set
}

// Extract computes the features of title.
func Extract(title string) Features {
	return Features{
		Tokens:   lexical.Tokenize(title),
		Keys:     lexical.KeyTokens(title),
		Entities: lexical.EntityTokens(title),
	}
}

// Jaccard returns |a∩b| / |a∪b|. Two empty sets are identical; one empty set
// shares nothing.
func Jaccard(a, b lexical.Set) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1
	}
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	inter := SharedCount(a, b)
	union := len(a) + len(b) - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}

// SharedCount returns |a∩b|.
func SharedCount(a, b lexical.Set) int {
	if len(b) < len(a) {
		a, b = b, a
	}
	n := 0
	for t := range a {
		if b.Has(t) {
			n++
		}
	}
	return n
}

// Adjacent decides whether b may join the cluster currently grown from a.
// clusterSize is the size of that cluster before b is added; the bar rises
// once the cluster is large and no cluster grows past MaxClusterSize.
func Adjacent(a, b Features, clusterSize int) bool {
	if clusterSize >= MaxClusterSize {
		return false
	}

	sim := Jaccard(a.Tokens, b.Tokens)
	keys := SharedCount(a.Keys, b.Keys)
	entities := SharedCount(a.Entities, b.Entities)

	if clusterSize >= LargeClusterSize {
		return sim >= LargeJaccardThreshold || (keys >= 3 && entities >= 1)
	}

	return sim >= JaccardThreshold ||
		keys >= 2 ||
		entities >= 2 ||
		(entities >= 1 && keys >= 1)
}
