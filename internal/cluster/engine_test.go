package cluster_test

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/DeafMist/story-radar/internal/cluster"
	"github.com/DeafMist/story-radar/internal/models"
)

var baseTime = time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

func newDoc(id, title string, topic models.Topic, region models.Region, age time.Duration) models.Document {
	return models.Document{
		ID:          id,
		Title:       title,
		Topic:       topic,
		Region:      region,
		Publisher:   "pub-" + id,
		PublishedAt: baseTime.Add(-age),
	}
}

func TestPartitionScenarios(t *testing.T) {
	t.Run("related headlines cluster", func(t *testing.T) {
		docs := []models.Document{
			newDoc("a", "Senate Passes Infrastructure Bill After Close Vote", models.TopicPolitics, models.RegionUS, 0),
			newDoc("b", "Infrastructure Bill Clears Senate in Narrow Vote", models.TopicPolitics, models.RegionUS, time.Hour),
		}
		clusters := cluster.NewEngine(0).Partition(docs)
		require.Len(t, clusters, 1)
		require.Equal(t, []string{"a", "b"}, clusters[0].IDs())
	})

	t.Run("unrelated headlines stay apart", func(t *testing.T) {
		docs := []models.Document{
			newDoc("a", "Fed Holds Rates Steady", models.TopicBusiness, models.RegionUS, 0),
			newDoc("b", "Wildfire Season Forecast Worsens", models.TopicBusiness, models.RegionUS, time.Hour),
		}
		clusters := cluster.NewEngine(0).Partition(docs)
		require.Len(t, clusters, 2)
	})

	t.Run("section-prefixed headlines stay apart", func(t *testing.T) {
		docs := []models.Document{
			newDoc("a", "Opinion | Fed Holds Rates Steady", models.TopicBusiness, models.RegionUS, 0),
			newDoc("b", "Opinion | Wildfire Season Forecast Worsens", models.TopicBusiness, models.RegionUS, time.Hour),
		}
		clusters := cluster.NewEngine(0).Partition(docs)
		require.Len(t, clusters, 2)
	})

	t.Run("same headline in another region stays apart", func(t *testing.T) {
		docs := []models.Document{
			newDoc("a", "Senate Passes Infrastructure Bill", models.TopicPolitics, models.RegionUS, 0),
			newDoc("b", "Senate Passes Infrastructure Bill", models.TopicPolitics, models.RegionPA, 0),
		}
		clusters := cluster.NewEngine(0).Partition(docs)
		require.Len(t, clusters, 2)
	})
}

func TestPartitionCapsClusterSize(t *testing.T) {
	docs := make([]models.Document, 0, 40)
	for i := range 40 {
		title := fmt.Sprintf("Senate Infrastructure Bill Passes Final Vote Round %d", i+1)
		docs = append(docs, newDoc(fmt.Sprintf("d%02d", i), title, models.TopicPolitics, models.RegionUS, time.Duration(i)*time.Minute))
	}

	clusters := cluster.NewEngine(cluster.DefaultPoolSize).Partition(docs)
	require.Greater(t, len(clusters), 1)

	total := 0
	for _, c := range clusters {
		require.LessOrEqual(t, len(c.Members), cluster.MaxClusterSize)
		total += len(c.Members)
	}
	require.Equal(t, 40, total)
	require.Len(t, clusters[0].Members, cluster.MaxClusterSize)
}

func TestPartitionIsTotalAndUniform(t *testing.T) {
	titles := []string{
		"Senate Passes Infrastructure Bill After Close Vote",
		"Infrastructure Bill Clears Senate in Narrow Vote",
		"Fed Holds Rates Steady",
		"Powell Signals Fed Will Hold Rates",
		"Wildfire Season Forecast Worsens",
		"!!!",
		"",
		"Shapiro Signs Pennsylvania Budget",
		"Pennsylvania Budget Signed by Shapiro",
		"EPA Tightens Methane Rules",
	}
	topics := []models.Topic{models.TopicPolitics, models.TopicClimate, models.TopicBusiness}
	regions := []models.Region{models.RegionUS, models.RegionPA}

	var docs []models.Document
	for i := range 60 {
		docs = append(docs, newDoc(
			fmt.Sprintf("doc-%d", i),
			titles[i%len(titles)],
			topics[i%len(topics)],
			regions[(i/len(topics))%len(regions)],
			time.Duration(i)*time.Minute,
		))
	}
	// duplicate identifiers are collapsed
	docs = append(docs, docs[0], docs[1])

	clusters := cluster.NewEngine(5).Partition(docs)

	seen := make(map[string]int)
	for _, c := range clusters {
		require.NotEmpty(t, c.Members)
		for _, d := range c.Members {
			seen[d.ID]++
			require.Equal(t, c.Members[0].Topic, d.Topic)
			require.Equal(t, c.Members[0].Region, d.Region)
		}
	}
	require.Len(t, seen, 60)
	for id, n := range seen {
		require.Equal(t, 1, n, "document %s assigned %d times", id, n)
	}
}

func TestPartitionUnusableTitlesAreSingletons(t *testing.T) {
	docs := []models.Document{
		newDoc("a", "", models.TopicPolitics, models.RegionUS, 0),
		newDoc("b", "the of and", models.TopicPolitics, models.RegionUS, 0),
	}
	clusters := cluster.NewEngine(0).Partition(docs)
	require.Len(t, clusters, 2)
	require.Empty(t, cluster.NewEngine(0).Partition(nil))
}

func TestPartitionPoolOverflowSingletons(t *testing.T) {
	docs := []models.Document{
		newDoc("a", "Senate Passes Infrastructure Bill", models.TopicPolitics, models.RegionUS, 0),
		newDoc("b", "Senate Passes Infrastructure Bill Again", models.TopicPolitics, models.RegionUS, time.Minute),
		newDoc("c", "Senate Passes Infrastructure Bill Once More", models.TopicPolitics, models.RegionUS, 2*time.Minute),
	}
	clusters := cluster.NewEngine(2).Partition(docs)
	require.Len(t, clusters, 2)
	require.Equal(t, []string{"a", "b"}, clusters[0].IDs())
	require.Equal(t, []string{"c"}, clusters[1].IDs())
}

func TestPartitionPoolCountsUnusableTitles(t *testing.T) {
	docs := []models.Document{
		newDoc("a", "the of and", models.TopicPolitics, models.RegionUS, 0),
		newDoc("b", "Senate Passes Infrastructure Bill", models.TopicPolitics, models.RegionUS, time.Minute),
		newDoc("c", "Senate Passes Infrastructure Bill Again", models.TopicPolitics, models.RegionUS, 2*time.Minute),
		newDoc("d", "Senate Passes Infrastructure Bill Once More", models.TopicPolitics, models.RegionPA, 0),
	}

	clusters := cluster.NewEngine(2).Partition(docs)

	ids := make([][]string, len(clusters))
	for i, c := range clusters {
		ids[i] = c.IDs()
	}
	require.ElementsMatch(t, [][]string{{"a"}, {"b"}, {"c"}, {"d"}}, ids)
}
