// Package signals scores the transparency of a story from its member
// documents.
package signals

import (
	"math"
	"regexp"
	"strings"

	"github.com/DeafMist/story-radar/internal/models"
)

// Diversity buckets the number of distinct publishers covering a story.
type Diversity string

const (
	DiversityLow      Diversity = "low"
	DiversityModerate Diversity = "moderate"
	DiversityHigh     Diversity = "high"
)

// Composition is the estimated factual/opinion/interpretation split of a
// story's text, in percent. The three values always sum to 100.
type Composition struct {
	Factual        int `json:"factual"`
	Opinion        int `json:"opinion"`
	Interpretation int `json:"interpretation"`
}

// Result holds the signals of one story.
type Result struct {
	SourceDiversity       Diversity   `json:"source_diversity"`
	HasAttributionClarity bool        `json:"has_attribution_clarity"`
	HasPrimaryData        bool        `json:"has_primary_data"`
	SensationalLanguage   bool        `json:"sensational_language"`
	Composition           Composition `json:"composition"`
}

// AttributionCues mark sourced statements.
var AttributionCues = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bsaid\b`),
	regexp.MustCompile(`(?i)\bAccording to\b`),
	regexp.MustCompile(`(?i)\baccording to\b`),
	regexp.MustCompile(`(?i)\bquoted\b`),
	regexp.MustCompile(`(?i)\bstated\b`),
	regexp.MustCompile(`(?i)\breported\b`),
	regexp.MustCompile(`(?i)\bexplained\b`),
	regexp.MustCompile(`\b"[^"]+"\s+said\b`),
	regexp.MustCompile(`\b—\s*[A-Z][a-z]+`),
}

// PrimarySourceHints point at primary material: government domains,
// reports, datasets and institutions.
var PrimarySourceHints = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\.gov\b`),
	regexp.MustCompile(`(?i)\breport\b`),
	regexp.MustCompile(`(?i)\bdata\b`),
	regexp.MustCompile(`(?i)\bcourt\b`),
	regexp.MustCompile(`(?i)\bWTO\b`),
	regexp.MustCompile(`(?i)\bEU\b`),
	regexp.MustCompile(`(?i)\bIEA\b`),
	regexp.MustCompile(`(?i)\bNASA\b`),
	regexp.MustCompile(`(?i)\bCDC\b`),
	regexp.MustCompile(`(?i)\bFBI\b`),
	regexp.MustCompile(`(?i)\bstudy\b`),
	regexp.MustCompile(`(?i)\bsurvey\b`),
	regexp.MustCompile(`(?i)\bofficial\b`),
	regexp.MustCompile(`(?i)\bannounced\b`),
}

// SensationalWords is the loaded vocabulary; two distinct hits flag a story.
var SensationalWords = []string{
	"shocking", "devastating", "explosive", "bombshell", "crisis",
	"chaos", "fury", "outrage", "scandal", "nightmare", "horror",
	"disaster", "panic", "terrifying", "alarming", "stunning",
}

// InterpretationCues mark hedged or analytical language.
var InterpretationCues = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\blikely\b`),
	regexp.MustCompile(`(?i)\bsuggests\b`),
	regexp.MustCompile(`(?i)\banalysts\b`),
	regexp.MustCompile(`(?i)\bwidely seen\b`),
	regexp.MustCompile(`(?i)\bcould\b`),
	regexp.MustCompile(`(?i)\bmay\b`),
	regexp.MustCompile(`(?i)\bmight\b`),
	regexp.MustCompile(`(?i)\bpotential\b`),
	regexp.MustCompile(`(?i)\bexperts say\b`),
	regexp.MustCompile(`(?i)\bseems\b`),
	regexp.MustCompile(`(?i)\bappears\b`),
	regexp.MustCompile(`(?i)\binterpreted\b`),
}

// OpinionCues mark quoted or attributed opinion.
var OpinionCues = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b"[^"]+"\s+(?:said|stated|explained)\b`),
	regexp.MustCompile(`(?i)\b(?:said|stated|argued)\s+"`),
	regexp.MustCompile(`(?i)\baccording to\b`),
	regexp.MustCompile(`(?i)\b"\s+said\b`),
}

var sensationalPatterns = func() []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(SensationalWords))
	for i, w := range SensationalWords {
		out[i] = regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(w) + `\b`)
	}
	return out
}()

const (
	opinionScale        = 400
	interpretationScale = 350
	maxOpinion          = 35
	maxInterpretation   = 35
	minFactual          = 20
)

// Score computes the signals of docs. Title and summary of every member are
// analysed together. An empty document set scores as fully factual with
// every flag off.
func Score(docs []models.Document) Result {
	if len(docs) == 0 {
		return Result{
			SourceDiversity: DiversityLow,
			Composition:     Composition{Factual: 100},
		}
	}

	text := CombinedText(docs)

	return Result{
		SourceDiversity:       diversity(docs),
		HasAttributionClarity: countMatches(text, AttributionCues) >= min(2, len(docs)),
		HasPrimaryData:        anyMatch(text, PrimarySourceHints),
		SensationalLanguage:   distinctMatches(text, sensationalPatterns) >= 2,
		Composition:           compose(text),
	}
}

// CombinedText joins "title summary" of each document with single spaces.
func CombinedText(docs []models.Document) string {
	parts := make([]string, len(docs))
	for i, d := range docs {
		parts[i] = d.Title + " " + d.Summary
	}
	return strings.Join(parts, " ")
}

func diversity(docs []models.Document) Diversity {
	publishers := make(map[string]struct{}, len(docs))
	for _, d := range docs {
		publishers[d.Publisher] = struct{}{}
	}
	switch n := len(publishers); {
	case n >= 4:
		return DiversityHigh
	case n >= 2:
		return DiversityModerate
	default:
		return DiversityLow
	}
}

func compose(text string) Composition {
	words := len(strings.Fields(text))
	if words == 0 {
		words = 1
	}

	opinion := min(maxOpinion, roundInt(float64(countMatches(text, OpinionCues))/float64(words)*opinionScale))
	interpretation := min(maxInterpretation, roundInt(float64(countMatches(text, InterpretationCues))/float64(words)*interpretationScale))
	factual := max(minFactual, 100-opinion-interpretation)

	total := float64(factual + opinion + interpretation)
	factual = roundInt(float64(factual) / total * 100)
	opinion = roundInt(float64(opinion) / total * 100)
	return Composition{
		Factual:        factual,
		Opinion:        opinion,
		Interpretation: 100 - factual - opinion,
	}
}

func countMatches(text string, patterns []*regexp.Regexp) int {
	n := 0
	for _, p := range patterns {
		n += len(p.FindAllStringIndex(text, -1))
	}
	return n
}

func anyMatch(text string, patterns []*regexp.Regexp) bool {
	for _, p := range patterns {
		if p.MatchString(text) {
			return true
		}
	}
	return false
}

func distinctMatches(text string, patterns []*regexp.Regexp) int {
	n := 0
	for _, p := range patterns {
		if p.MatchString(text) {
			n++
		}
	}
	return n
}

func roundInt(f float64) int {
	return int(math.Round(f))
}
