package processing

import (
	"crypto/sha256"
	"encoding/hex"
	"html"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"
)

// SummaryMaxLen bounds stored summaries, in characters.
const SummaryMaxLen = 500

const (
	documentIDLen = 16
	isoMillis     = "2006-01-02T15:04:05.000Z"
)

var (
	urlRegex   = regexp.MustCompile(`https?://[^\s"'<>]+`)
	htmlTag    = regexp.MustCompile(`<[^>]+>`)
	whitespace = regexp.MustCompile(`[\s\p{Zs}]+`)
)

var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	time.RFC1123Z,
	time.RFC1123,
	"2006-01-02 15:04:05",
}

// ExtractURLs extracts all HTTP(S) URLs from the input text.
func ExtractURLs(input string) []string {
	if input == "" {
		return nil
	}
	matches := urlRegex.FindAllString(input, -1)
	if len(matches) == 0 {
		return nil
	}
	// Remove duplicates while preserving order
	seen := make(map[string]struct{})
	var urls []string
	for _, url := range matches {
		if _, ok := seen[url]; !ok {
			seen[url] = struct{}{}
			urls = append(urls, url)
		}
	}
	return urls
}

// FirstURL returns the first URL found in any of texts, or "".
func FirstURL(texts ...string) string {
	for _, t := range texts {
		if urls := ExtractURLs(t); len(urls) > 0 {
			return urls[0]
		}
	}
	return ""
}

// StripHTML removes tags, decodes entities and squeezes whitespace.
func StripHTML(input string) string {
	if input == "" {
		return ""
	}
	s := htmlTag.ReplaceAllString(input, " ")
	s = html.UnescapeString(s)
	return strings.TrimSpace(whitespace.ReplaceAllString(s, " "))
}

// TruncateSummary strips HTML from text and cuts it to maxLen characters,
// appending "..." when it was cut.
func TruncateSummary(text string, maxLen int) string {
	s := StripHTML(text)
	if maxLen <= 0 || utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	r := []rune(s)
	return strings.TrimSpace(string(r[:maxLen])) + "..."
}

// BuildSummary picks the first non-empty of summary, content and title and
// normalizes it for storage.
func BuildSummary(summary, content, title string) string {
	for _, candidate := range []string{summary, content, title} {
		if s := TruncateSummary(candidate, SummaryMaxLen); s != "" {
			return s
		}
	}
	return ""
}

// BuildDocumentID hashes title, publisher and publication time, so the same
// item from the same outlet always maps to the same identifier.
func BuildDocumentID(title, publisher string, publishedAt time.Time) string {
	s := sha256.Sum256([]byte(title + "|" + publisher + "|" + publishedAt.UTC().Format(isoMillis)))
	return hex.EncodeToString(s[:])[:documentIDLen]
}

// ParseTimestamp parses raw with the feed layouts seen in practice. It
// reports false when raw is empty or matches none of them.
func ParseTimestamp(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, raw); err == nil {
			return ts.UTC(), true
		}
	}
	return time.Time{}, false
}
