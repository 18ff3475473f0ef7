// Package lexical turns headlines into comparable token sets.
//
// Every function here is a pure, case-insensitive function of its input and
// is idempotent: feeding the joined output of Normalize back into Normalize
// yields the same tokens.
package lexical

import (
	"regexp"
	"strings"
)

// Set is a string set.
type Set map[string]struct{}

// NewSet builds a set from tokens.
func NewSet(tokens ...string) Set {
	s := make(Set, len(tokens))
	for _, t := range tokens {
		s[t] = struct{}{}
	}
	return s
}

// Has reports whether token is in the set.
func (s Set) Has(token string) bool {
	_, ok := s[token]
	return ok
}

const (
	minKeyTokenLen = 5

	// A tail is only an outlet tag when it is short and the head keeps
	// more words than the tail.
	maxTagWords     = 4
	minTagHeadWords = 2
)

var (
	// "Title | Outlet", "Title - The Guardian", "Title — Outlet News"
	publisherTag = regexp.MustCompile(`(?:\s*\|\s*|\s+[-–—]\s+)([A-Z][A-Za-z0-9.&' ]{1,40})$`)
	nonWord      = regexp.MustCompile(`[^\w\s]`)
	whitespace   = regexp.MustCompile(`\s+`)
	capitalized  = regexp.MustCompile(`\b[A-Z][a-z]+\b`)
	acronym      = regexp.MustCompile(`\b[A-Z]{2,5}\b`)
)

// Stopwords are dropped from every normalized title.
var Stopwords = NewSet(
	"a", "an", "the", "and", "or", "but", "in", "on", "at", "to", "for", "of",
	"with", "by", "from", "as", "is", "was", "are", "were", "be", "been",
	"being", "have", "has", "had", "do", "does", "did", "will", "would",
	"could", "should", "may", "might", "must", "shall", "can", "need",
	"that", "which", "who", "whom", "this", "these", "those", "it", "its",
)

// Fluff are generic journalism words that never count as key tokens.
var Fluff = NewSet(
	"breaking", "live", "update", "updates", "latest", "exclusive", "analysis", "opinion",
	"explainer", "watch", "video", "podcast", "photos", "why", "how", "what", "says", "said",
	"report", "reports", "amid", "after", "before", "new", "today",
)

// GenericEntities look like names but are too common to identify an event.
var GenericEntities = NewSet(
	"state", "states", "court", "courts", "congress", "house", "government", "city",
	"county", "police", "department", "officials", "official", "federal", "national",
	"president", "governor", "us", "usa", "america", "american", "americans", "news",
	"week", "year", "people", "world", "public", "party",
)

// SeedEntities are well-known persons, organizations, places and policies
// that count as entities even when they are not capitalized in a title.
var SeedEntities = NewSet(
	"biden", "trump", "harris", "obama", "vance", "pelosi", "schumer", "mcconnell",
	"shapiro", "fetterman", "mccormick", "casey", "putin", "zelensky", "netanyahu",
	"musk", "powell", "nato", "opec", "imf", "epa", "fda", "cdc", "nasa", "irs",
	"doj", "fbi", "sec", "fema", "ukraine", "russia", "china", "israel", "gaza",
	"iran", "mexico", "canada", "pennsylvania", "philadelphia", "pittsburgh",
	"harrisburg", "medicare", "medicaid", "obamacare", "tariff", "tariffs",
	"fed", "senate", "scotus", "ira", "chips",
)

// StripPublisherTag removes a trailing outlet tag such as "| Reuters" or
// " - The Guardian". Section prefixes ("Opinion | ...") and dash-joined
// headlines whose tail is as long as the head are left intact.
func StripPublisherTag(title string) string {
	loc := publisherTag.FindStringSubmatchIndex(title)
	if loc == nil {
		return strings.TrimSpace(title)
	}
	head := title[:loc[0]]
	headWords := len(strings.Fields(head))
	tailWords := len(strings.Fields(title[loc[2]:loc[3]]))
	if headWords < minTagHeadWords || tailWords > maxTagWords || tailWords >= headWords {
		return strings.TrimSpace(title)
	}
	return strings.TrimSpace(head)
}

// Normalize lowercases title, replaces punctuation with spaces and drops
// single-character tokens and stopwords.
func Normalize(title string) []string {
	s := strings.ToLower(StripPublisherTag(title))
	s = nonWord.ReplaceAllString(s, " ")
	s = strings.TrimSpace(whitespace.ReplaceAllString(s, " "))
	if s == "" {
		return nil
	}

	out := make([]string, 0, 8)
	for _, w := range strings.Split(s, " ") {
		if len(w) <= 1 || Stopwords.Has(w) {
			continue
		}
		out = append(out, w)
	}
	return out
}

// Tokenize returns the normalized tokens of title as a set.
func Tokenize(title string) Set {
	return NewSet(Normalize(title)...)
}

// KeyTokens returns the normalized tokens that are long enough to be
// distinctive and are not generic journalism words.
func KeyTokens(title string) Set {
	keys := make(Set)
	for _, t := range Normalize(title) {
		if len(t) >= minKeyTokenLen && !Fluff.Has(t) {
			keys[t] = struct{}{}
		}
	}
	return keys
}

// EntityTokens returns lowercased tokens that probably name a person,
// organization, place or policy: capitalized words, short acronyms and
// members of SeedEntities. GenericEntities are removed after matching.
func EntityTokens(title string) Set {
	raw := StripPublisherTag(title)
	entities := make(Set)

	for _, w := range capitalized.FindAllString(raw, -1) {
		lw := strings.ToLower(w)
		if len(lw) < 3 || Stopwords.Has(lw) || Fluff.Has(lw) {
			continue
		}
		entities[lw] = struct{}{}
	}
	for _, w := range acronym.FindAllString(raw, -1) {
		entities[strings.ToLower(w)] = struct{}{}
	}
	for _, t := range Normalize(raw) {
		if SeedEntities.Has(t) {
			entities[t] = struct{}{}
		}
	}

	for t := range entities {
		if GenericEntities.Has(t) {
			delete(entities, t)
		}
	}
	return entities
}
