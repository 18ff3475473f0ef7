package detail

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/DeafMist/story-radar/internal/models"
)

const (
	minSentenceLen         = 30
	maxFactualSentenceLen  = 400
	maxFallbackSentenceLen = 300
	dedupePrefixLen        = 80
	dedupeOverlap          = 0.8
	minAttributionLen      = 3
	quoteKeyLen            = 50
)

var (
	digit     = regexp.MustCompile(`\d`)
	dateLike  = regexp.MustCompile(`(?i)\b(?:19|20)\d{2}\b|\b(?:jan|feb|mar|apr|may|jun|jul|aug|sep|oct|nov|dec)\.?\s+\d{1,2}|\b\d{1,2}\s+(?:jan|feb|mar|apr|may|jun|jul|aug|sep|oct|nov|dec)`)
	properRun = regexp.MustCompile(`\b[A-Z][a-z]+(?:\s+[A-Z][a-z]+)+\b`)
	spaces    = regexp.MustCompile(`\s+`)
)

// Attribution patterns, tried in order. They run on the unquoted text
// around one quoted span, never across another quote character.
var (
	// "…" said X
	quoteThenAttribution = regexp.MustCompile(`(?i)^(?:,\s*)?\s+(?:said|stated|argued|explained|told|added|noted)\s+([^."]+)`)
	// X said "…"
	attributionThenQuote = regexp.MustCompile(`(?i)([^."]{3,60}?)\s+(?:said|stated|argued|explained|told|added|noted)\s+$`)
	// according to X, … "…"
	accordingTo = regexp.MustCompile(`(?i)according to\s+([^,."]+)[^"]*$`)
)

const minQuoteLen = 20

// quotedSpan is the text between one opening quote mark and its closing
// mark, with the unquoted text on either side.
type quotedSpan struct {
	text   string
	before string
	after  string
}

// quotedSpans pairs quote marks in order (1st with 2nd, 3rd with 4th) and
// returns the spans of at least minQuoteLen characters. An unmatched final
// mark is ignored.
func quotedSpans(text string) []quotedSpan {
	var marks []int
	for i := 0; i < len(text); i++ {
		if text[i] == '"' {
			marks = append(marks, i)
		}
	}

	var spans []quotedSpan
	prevEnd := 0
	for i := 0; i+1 < len(marks); i += 2 {
		open, closing := marks[i], marks[i+1]
		nextOpen := len(text)
		if i+2 < len(marks) {
			nextOpen = marks[i+2]
		}
		inner := text[open+1 : closing]
		if utf8.RuneCountInString(inner) >= minQuoteLen {
			spans = append(spans, quotedSpan{
				text:   inner,
				before: text[prevEnd:open],
				after:  text[closing+1 : nextOpen],
			})
		}
		prevEnd = closing + 1
	}
	return spans
}

var (
	rolePresident  = regexp.MustCompile(`\bpresident\b`)
	roleElected    = regexp.MustCompile(`\b(?:senator|rep\.|representative|governor|congressman|congresswoman)\b`)
	roleAnalyst    = regexp.MustCompile(`\b(?:analyst|researcher|economist|expert)\b`)
	roleGovernment = regexp.MustCompile(`\b(?:official|spokesperson|spokesman|spokeswoman)\b`)
	roleOutlet     = regexp.MustCompile(`^(?:reuters|ap|bbc|cnn|npr|the guardian|politico|bloomberg)\b`)
)

// InferRole guesses the role of a quoted source from its attribution text.
func InferRole(attribution string) string {
	lower := strings.ToLower(attribution)
	switch {
	case rolePresident.MatchString(lower):
		return "Policy Maker"
	case roleElected.MatchString(lower):
		return "Elected Official"
	case roleAnalyst.MatchString(lower):
		return "Independent Analyst"
	case roleGovernment.MatchString(lower):
		return "Government Official"
	case roleOutlet.MatchString(lower):
		return "News Outlet"
	default:
		return "Source"
	}
}

type quote struct {
	text        string
	attribution string
}

// extractQuotes returns up to maxQuotedVoices literal quotes that carry an
// attribution. Nothing is ever paraphrased into a quote.
func extractQuotes(text string) []quote {
	var out []quote
	seen := make(map[string]struct{})
	add := func(q, attribution string) {
		q = strings.TrimSpace(q)
		attribution = strings.TrimSpace(attribution)
		if utf8.RuneCountInString(attribution) < minAttributionLen {
			return
		}
		key := truncateRunes(q, quoteKeyLen) + "|" + attribution
		if _, dup := seen[key]; dup {
			return
		}
		seen[key] = struct{}{}
		out = append(out, quote{text: q, attribution: attribution})
	}

	spans := quotedSpans(text)
	for _, sp := range spans {
		if m := quoteThenAttribution.FindStringSubmatch(sp.after); m != nil {
			add(sp.text, m[1])
		}
	}
	for _, sp := range spans {
		if m := attributionThenQuote.FindStringSubmatch(sp.before); m != nil {
			add(sp.text, m[1])
		}
	}
	for _, sp := range spans {
		if m := accordingTo.FindStringSubmatch(sp.before); m != nil {
			add(sp.text, m[1])
		}
	}

	if len(out) > maxQuotedVoices {
		out = out[:maxQuotedVoices]
	}
	return out
}

// extractFactual keeps sentences of titles and summaries that carry a
// number, a date or a multi-word proper name, dropping near duplicates.
func extractFactual(docs []models.Document) []string {
	parts := make([]string, len(docs))
	for i, d := range docs {
		parts[i] = d.Title + ". " + d.Summary
	}

	var kept []string
	for _, s := range splitSentences(strings.Join(parts, " ")) {
		n := utf8.RuneCountInString(s)
		if n < minSentenceLen || n > maxFactualSentenceLen {
			continue
		}
		if !digit.MatchString(s) && !dateLike.MatchString(s) && !properRun.MatchString(s) {
			continue
		}
		if nearDuplicate(s, kept) {
			continue
		}
		kept = append(kept, s)
		if len(kept) == maxFactualBlocks {
			break
		}
	}
	return kept
}

// fallbackSentences returns the first plain sentences of text when no
// sentence qualifies as factual.
func fallbackSentences(text string) []string {
	var out []string
	for _, s := range splitSentences(text) {
		n := utf8.RuneCountInString(s)
		if n < minSentenceLen || n > maxFallbackSentenceLen {
			continue
		}
		out = append(out, s)
		if len(out) == maxFactualBlocks {
			break
		}
	}
	return out
}

// splitSentences squeezes whitespace and splits after '.', '!' or '?'
// followed by whitespace.
func splitSentences(text string) []string {
	text = strings.TrimSpace(spaces.ReplaceAllString(text, " "))
	if text == "" {
		return nil
	}

	var out []string
	start := 0
	for i := 0; i < len(text)-1; i++ {
		switch text[i] {
		case '.', '!', '?':
			if text[i+1] != ' ' {
				continue
			}
			if s := strings.TrimSpace(text[start : i+1]); s != "" {
				out = append(out, s)
			}
			start = i + 2
		}
	}
	if start < len(text) {
		if s := strings.TrimSpace(text[start:]); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func nearDuplicate(s string, kept []string) bool {
	prefix := normalizedPrefix(s)
	words := strings.Fields(strings.ToLower(s))
	for _, k := range kept {
		if normalizedPrefix(k) == prefix {
			return true
		}
		if wordOverlap(strings.Fields(strings.ToLower(k)), words) >= dedupeOverlap {
			return true
		}
	}
	return false
}

func normalizedPrefix(s string) string {
	return truncateRunes(spaces.ReplaceAllString(strings.ToLower(s), " "), dedupePrefixLen)
}

// wordOverlap is the share of a's words found in b, over the longer length.
func wordOverlap(a, b []string) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	inB := make(map[string]struct{}, len(b))
	for _, w := range b {
		inB[w] = struct{}{}
	}
	shared := 0
	for _, w := range a {
		if _, ok := inB[w]; ok {
			shared++
		}
	}
	return float64(shared) / float64(max(len(a), len(b)))
}
