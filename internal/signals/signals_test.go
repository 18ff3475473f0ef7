package signals_test

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/DeafMist/story-radar/internal/models"
	"github.com/DeafMist/story-radar/internal/signals"
)

func doc(publisher, title, summary string) models.Document {
	return models.Document{ID: publisher + title, Publisher: publisher, Title: title, Summary: summary}
}

func TestScoreModerateAttributedPrimary(t *testing.T) {
	docs := []models.Document{
		doc("Reuters", "Senate Passes Infrastructure Bill", "The bill passed 52-48, the majority leader said on Tuesday."),
		doc("AP", "Infrastructure Bill Clears Senate", "A spokesperson said the vote followed weeks of talks."),
		doc("NPR", "Senate Approves Spending Plan", "A budget office report projects costs over ten years."),
	}

	got := signals.Score(docs)
	require.Equal(t, signals.DiversityModerate, got.SourceDiversity)
	require.True(t, got.HasAttributionClarity)
	require.True(t, got.HasPrimaryData)
	require.False(t, got.SensationalLanguage)
}

func TestScoreDiversity(t *testing.T) {
	tests := []struct {
		name       string
		publishers []string
		want       signals.Diversity
	}{
		{name: "single", publishers: []string{"AP", "AP"}, want: signals.DiversityLow},
		{name: "two", publishers: []string{"AP", "BBC"}, want: signals.DiversityModerate},
		{name: "four", publishers: []string{"AP", "BBC", "NPR", "CNN"}, want: signals.DiversityHigh},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			docs := make([]models.Document, len(tt.publishers))
			for i, p := range tt.publishers {
				docs[i] = doc(p, fmt.Sprintf("title %d", i), "")
			}
			require.Equal(t, tt.want, signals.Score(docs).SourceDiversity)
		})
	}
}

func TestScoreSensationalLanguage(t *testing.T) {
	tests := []struct {
		name string
		text string
		want bool
	}{
		{name: "two distinct words", text: "A shocking scandal at city hall", want: true},
		{name: "one word repeated", text: "Crisis talks continue as crisis deepens", want: false},
		{name: "substring only", text: "Crisisland and chaotic scenes", want: false},
		{name: "case insensitive", text: "STUNNING reversal sparks PANIC", want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := signals.Score([]models.Document{doc("AP", tt.text, "")})
			require.Equal(t, tt.want, got.SensationalLanguage)
		})
	}
}

func TestScoreAttributionThresholdFollowsMemberCount(t *testing.T) {
	single := signals.Score([]models.Document{doc("AP", "Mayor Resigns", "The mayor said she would step down.")})
	require.True(t, single.HasAttributionClarity)

	pair := signals.Score([]models.Document{
		doc("AP", "Mayor Resigns", "The mayor said she would step down."),
		doc("BBC", "Mayor Steps Down", "The resignation takes effect Friday."),
	})
	require.False(t, pair.HasAttributionClarity)
}

func TestScoreCompositionSumsTo100(t *testing.T) {
	texts := []string{
		"",
		"Rates held steady.",
		`"This could be a turning point for the economy," said the analyst, according to Reuters.`,
		strings.Repeat("Analysts say it may likely suggest potential change that could appear. ", 20),
		strings.Repeat(`"We argued for this for years," said Smith. According to aides, "it is done" said Jones. `, 10),
	}

	for i, text := range texts {
		t.Run(fmt.Sprintf("text %d", i), func(t *testing.T) {
			c := signals.Score([]models.Document{doc("AP", text, text)}).Composition
			require.GreaterOrEqual(t, c.Factual, 0)
			require.GreaterOrEqual(t, c.Opinion, 0)
			require.GreaterOrEqual(t, c.Interpretation, 0)
			require.Equal(t, 100, c.Factual+c.Opinion+c.Interpretation)
			require.LessOrEqual(t, c.Opinion, 35)
			require.LessOrEqual(t, c.Interpretation, 35)
		})
	}
}

func TestScoreEmpty(t *testing.T) {
	got := signals.Score(nil)
	require.Equal(t, signals.Result{
		SourceDiversity: signals.DiversityLow,
		Composition:     signals.Composition{Factual: 100},
	}, got)
}
