// Package trend computes windowed per-topic rollups over stored alerts and
// ranks them by a trending score.
package trend

import (
	"context"
	"sort"
	"time"

	"github.com/linnemanlabs/citypulse/internal/alert"
)

// DefaultWindow is the aggregation window when the caller does not specify one.
const DefaultWindow = 6 * time.Hour

// TopicTrend is one topic's rollup inside the window. Recomputed per query,
// never stored.
type TopicTrend struct {
	Topic         string    `json:"topic"`
	AlertCount    int       `json:"alert_count"`
	AvgConfidence float64   `json:"avg_confidence"`
	Sources       []string  `json:"source_set"`
	LatestAt      time.Time `json:"latest_timestamp"`
	Score         float64   `json:"trending_score"`
}

// Aggregator reads active alerts from the store and groups them by topic.
type Aggregator struct {
	store alert.Store
}

// New creates an aggregator over the given store.
func New(store alert.Store) *Aggregator {
	return &Aggregator{store: store}
}

// TopTopics returns the top-N topics by trending score inside the window,
// ties broken by topic name ascending. A window <= 0 uses DefaultWindow;
// limit <= 0 returns all topics.
//
// The confidence average is a recency-weighted blend, avg = (avg+new)/2 in
// arrival order, not a true mean. Ranking depends on this exact rule; do
// not replace it with an arithmetic mean.
func (g *Aggregator) TopTopics(ctx context.Context, window time.Duration, limit int) ([]TopicTrend, error) {
	if window <= 0 {
		window = DefaultWindow
	}

	alerts, err := g.store.ActiveSince(ctx, time.Now().UTC().Add(-window))
	if err != nil {
		return nil, err
	}

	trends := Build(alerts)
	if limit > 0 && len(trends) > limit {
		trends = trends[:limit]
	}
	return trends, nil
}

// Build computes ranked topic trends from alerts already in arrival order.
func Build(alerts []alert.Alert) []TopicTrend {
	byTopic := make(map[string]*TopicTrend)
	seenSources := make(map[string]map[string]bool)

	for _, a := range alerts {
		t, ok := byTopic[a.Topic]
		if !ok {
			t = &TopicTrend{Topic: a.Topic}
			byTopic[a.Topic] = t
			seenSources[a.Topic] = make(map[string]bool)
		}

		t.AlertCount++
		if t.AlertCount == 1 {
			t.AvgConfidence = a.Confidence
		} else {
			t.AvgConfidence = (t.AvgConfidence + a.Confidence) / 2
		}

		for _, src := range a.Sources {
			if !seenSources[a.Topic][src] {
				seenSources[a.Topic][src] = true
				t.Sources = append(t.Sources, src)
			}
		}
		if a.CreatedAt.After(t.LatestAt) {
			t.LatestAt = a.CreatedAt
		}
	}

	out := make([]TopicTrend, 0, len(byTopic))
	for _, t := range byTopic {
		t.Score = float64(t.AlertCount) * t.AvgConfidence
		out = append(out, *t)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].Topic < out[j].Topic
	})
	return out
}
