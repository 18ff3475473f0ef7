package processing_test

import (
	"strings"
	"testing"
	"time"

	"github.com/DeafMist/story-radar/internal/processing"
	"github.com/stretchr/testify/require"
)

func TestStripHTML(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "empty", input: "", want: ""},
		{name: "tags", input: "<p>Senate <b>passes</b> bill</p>", want: "Senate passes bill"},
		{name: "entities", input: "Rates &amp; jobs&nbsp;report", want: "Rates & jobs report"},
		{name: "collapse whitespace", input: "foo\n\nbar\t baz", want: "foo bar baz"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, processing.StripHTML(tt.input))
		})
	}
}

func TestTruncateSummary(t *testing.T) {
	short := "A short summary."
	require.Equal(t, short, processing.TruncateSummary(short, processing.SummaryMaxLen))

	long := strings.Repeat("word ", 200)
	got := processing.TruncateSummary(long, processing.SummaryMaxLen)
	require.True(t, strings.HasSuffix(got, "..."))
	require.LessOrEqual(t, len([]rune(got)), processing.SummaryMaxLen+3)

	require.Equal(t, "Zürich...", processing.TruncateSummary("Zürich ist teuer", 6))
}

func TestBuildSummary(t *testing.T) {
	require.Equal(t, "summary", processing.BuildSummary(" summary ", "content", "title"))
	require.Equal(t, "content", processing.BuildSummary("<br/>", "<p>content</p>", "title"))
	require.Equal(t, "title", processing.BuildSummary("", "", "title"))
}

func TestBuildDocumentID(t *testing.T) {
	ts := time.Date(2024, 2, 3, 4, 5, 6, 0, time.UTC)
	id1 := processing.BuildDocumentID("title", "AP", ts)
	id2 := processing.BuildDocumentID("title", "AP", ts.In(time.FixedZone("EST", -5*3600)))
	require.Len(t, id1, 16)
	require.Equal(t, id1, id2)
	require.NotEqual(t, id1, processing.BuildDocumentID("title", "BBC", ts))
	require.NotEqual(t, id1, processing.BuildDocumentID("title", "AP", ts.Add(time.Millisecond)))
}

func TestParseTimestamp(t *testing.T) {
	want := time.Date(2024, 2, 3, 4, 5, 6, 0, time.UTC)
	tests := []struct {
		raw string
		ok  bool
	}{
		{raw: "2024-02-03T04:05:06Z", ok: true},
		{raw: "2024-02-03T06:05:06+02:00", ok: true},
		{raw: "Sat, 03 Feb 2024 04:05:06 +0000", ok: true},
		{raw: "2024-02-03 04:05:06", ok: true},
		{raw: "", ok: false},
		{raw: "yesterday", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, ok := processing.ParseTimestamp(tt.raw)
			require.Equal(t, tt.ok, ok)
			if tt.ok {
				require.Equal(t, want, got)
			}
		})
	}
}

func TestExtractURLs(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{name: "empty", input: "", want: nil},
		{name: "none", input: "no links here", want: nil},
		{name: "dedupe", input: "see https://a.example/x and https://a.example/x or http://b.example", want: []string{"https://a.example/x", "http://b.example"}},
		{name: "stops at markup", input: `<a href="https://a.example/story">`, want: []string{"https://a.example/story"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, processing.ExtractURLs(tt.input))
		})
	}

	require.Equal(t, "https://b.example", processing.FirstURL("none", "at https://b.example now"))
	require.Empty(t, processing.FirstURL())
}
