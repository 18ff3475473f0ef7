package cluster_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/DeafMist/story-radar/internal/cluster"
	"github.com/DeafMist/story-radar/internal/models"
)

func TestStoryID(t *testing.T) {
	id := cluster.StoryID([]string{"b", "a", "c"})
	require.Len(t, id, 16)
	require.Equal(t, id, cluster.StoryID([]string{"c", "b", "a"}))
	require.NotEqual(t, id, cluster.StoryID([]string{"a", "b"}))
	require.NotEqual(t, id, cluster.StoryID([]string{"a", "b", "c", "d"}))
}

func TestCanonicalTitle(t *testing.T) {
	tests := []struct {
		name   string
		titles []string
		want   string
	}{
		{
			name:   "recurring title wins",
			titles: []string{"Fed Holds Rates", "Fed holds rates | Reuters", "Fed Keeps Interest Rates Unchanged Again"},
			want:   "Fed Holds Rates",
		},
		{
			name:   "longer title wins on single occurrences",
			titles: []string{"Fed Holds Rates", "Fed Keeps Interest Rates Unchanged Again"},
			want:   "Fed Keeps Interest Rates Unchanged Again",
		},
		{
			name:   "first seen wins ties",
			titles: []string{"Fed Holds Rates", "Powell Keeps Rates"},
			want:   "Fed Holds Rates",
		},
		{
			name:   "falls back to first title",
			titles: []string{"!!!", "???"},
			want:   "!!!",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			docs := make([]models.Document, len(tt.titles))
			for i, title := range tt.titles {
				docs[i] = models.Document{ID: title, Title: title}
			}
			require.Equal(t, tt.want, cluster.CanonicalTitle(docs))
		})
	}

	require.Empty(t, cluster.CanonicalTitle(nil))
}

func TestBuildStory(t *testing.T) {
	now := time.Date(2026, 3, 14, 13, 0, 0, 0, time.UTC)
	c := cluster.Cluster{Members: []models.Document{
		newDoc("a", "Senate Passes Infrastructure Bill", models.TopicPolitics, models.RegionUS, 2*time.Hour),
		newDoc("b", "Infrastructure Bill Clears Senate", models.TopicPolitics, models.RegionUS, 0),
		newDoc("c", "Senate Approves Infrastructure Bill", models.TopicPolitics, models.RegionUS, 0),
	}}

	story := cluster.BuildStory(c, now)
	require.Equal(t, cluster.StoryID([]string{"a", "b", "c"}), story.ID)
	require.Equal(t, "b", story.RepresentativeID)
	require.Equal(t, models.TopicPolitics, story.Topic)
	require.Equal(t, models.RegionUS, story.Region)
	require.Equal(t, "Senate Passes Infrastructure Bill", story.Title)
	require.Equal(t, now, story.CreatedAt)
	require.Equal(t, now, story.UpdatedAt)

	_, ok := cluster.Representative(nil)
	require.False(t, ok)
}
