package trend

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/linnemanlabs/citypulse/internal/alert"
)

// mockStore implements alert.Store with a fixed ActiveSince result.
type mockStore struct {
	alerts []alert.Alert
	err    error
	since  time.Time
}

func (m *mockStore) Store(context.Context, *alert.Alert) (string, error) { return "", nil }
func (m *mockStore) QueryByTopic(context.Context, string, int) ([]alert.Alert, error) {
	return nil, nil
}
func (m *mockStore) QueryHighConfidence(context.Context, float64, time.Duration) ([]alert.Alert, error) {
	return nil, nil
}
func (m *mockStore) MarkProcessed(context.Context, string) (bool, error) { return false, nil }
func (m *mockStore) PurgeOlderThan(context.Context, time.Duration) (int, error) {
	return 0, nil
}

func (m *mockStore) ActiveSince(_ context.Context, since time.Time) ([]alert.Alert, error) {
	m.since = since
	if m.err != nil {
		return nil, m.err
	}
	return m.alerts, nil
}

func mkAlert(topic string, confidence float64, sources []string, at time.Time) alert.Alert {
	return alert.Alert{
		Topic:      topic,
		Confidence: confidence,
		Sources:    sources,
		CreatedAt:  at,
	}
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestBuild_BlendedConfidence(t *testing.T) {
	t.Parallel()

	base := time.Now().UTC()
	alerts := []alert.Alert{
		mkAlert("flooding", 0.6, []string{"social"}, base),
		mkAlert("flooding", 0.8, []string{"cityfeed"}, base.Add(time.Minute)),
		mkAlert("flooding", 0.9, []string{"social"}, base.Add(2*time.Minute)),
	}

	trends := Build(alerts)
	if len(trends) != 1 {
		t.Fatalf("len = %d, want 1", len(trends))
	}

	tr := trends[0]
	if tr.AlertCount != 3 {
		t.Errorf("AlertCount = %d, want 3", tr.AlertCount)
	}
	// Arrival-order blend: 0.6, then (0.6+0.8)/2=0.7, then (0.7+0.9)/2=0.8.
	if !almostEqual(tr.AvgConfidence, 0.8) {
		t.Errorf("AvgConfidence = %v, want 0.8", tr.AvgConfidence)
	}
	if !almostEqual(tr.Score, 2.4) {
		t.Errorf("Score = %v, want 2.4", tr.Score)
	}
}

func TestBuild_SingleAlertAvgIsConfidence(t *testing.T) {
	t.Parallel()

	trends := Build([]alert.Alert{
		mkAlert("closure", 0.6, []string{"news"}, time.Now().UTC()),
	})
	if len(trends) != 1 {
		t.Fatalf("len = %d, want 1", len(trends))
	}
	if !almostEqual(trends[0].AvgConfidence, 0.6) {
		t.Errorf("AvgConfidence = %v, want 0.6 (not halved)", trends[0].AvgConfidence)
	}
	if !almostEqual(trends[0].Score, 0.6) {
		t.Errorf("Score = %v, want 0.6", trends[0].Score)
	}
}

func TestBuild_SourceSetDeduplicated(t *testing.T) {
	t.Parallel()

	base := time.Now().UTC()
	trends := Build([]alert.Alert{
		mkAlert("flooding", 0.5, []string{"social", "news"}, base),
		mkAlert("flooding", 0.5, []string{"social", "cityfeed"}, base.Add(time.Minute)),
	})

	got := trends[0].Sources
	want := []string{"social", "news", "cityfeed"}
	if len(got) != len(want) {
		t.Fatalf("sources = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("sources[%d] = %q, want %q (first-seen order)", i, got[i], want[i])
		}
	}
}

func TestBuild_LatestTimestamp(t *testing.T) {
	t.Parallel()

	base := time.Now().UTC()
	latest := base.Add(10 * time.Minute)
	trends := Build([]alert.Alert{
		mkAlert("flooding", 0.5, []string{"social"}, base),
		mkAlert("flooding", 0.5, []string{"social"}, latest),
	})

	if !trends[0].LatestAt.Equal(latest) {
		t.Errorf("LatestAt = %v, want %v", trends[0].LatestAt, latest)
	}
}

func TestBuild_RankingAndTieBreak(t *testing.T) {
	t.Parallel()

	base := time.Now().UTC()
	alerts := []alert.Alert{
		// score 2*0.9 = 1.8
		mkAlert("bravo", 0.9, []string{"social"}, base),
		mkAlert("bravo", 0.9, []string{"social"}, base.Add(time.Minute)),
		// score 1*0.5 = 0.5
		mkAlert("delta", 0.5, []string{"news"}, base),
		// score 1*0.5 = 0.5, ties with delta, alpha sorts first
		mkAlert("alpha", 0.5, []string{"news"}, base),
	}

	trends := Build(alerts)
	if len(trends) != 3 {
		t.Fatalf("len = %d, want 3", len(trends))
	}
	if trends[0].Topic != "bravo" {
		t.Errorf("first = %q, want bravo", trends[0].Topic)
	}
	if trends[1].Topic != "alpha" {
		t.Errorf("second = %q, want alpha (tie broken by topic asc)", trends[1].Topic)
	}
	if trends[2].Topic != "delta" {
		t.Errorf("third = %q, want delta", trends[2].Topic)
	}
}

func TestBuild_Empty(t *testing.T) {
	t.Parallel()

	trends := Build(nil)
	if len(trends) != 0 {
		t.Errorf("len = %d, want 0", len(trends))
	}
}

func TestTopTopics_AppliesWindowAndLimit(t *testing.T) {
	t.Parallel()

	base := time.Now().UTC()
	store := &mockStore{alerts: []alert.Alert{
		mkAlert("a", 0.9, []string{"social"}, base),
		mkAlert("b", 0.8, []string{"social"}, base),
		mkAlert("c", 0.7, []string{"social"}, base),
	}}
	g := New(store)

	trends, err := g.TopTopics(context.Background(), 2*time.Hour, 2)
	if err != nil {
		t.Fatalf("TopTopics: %v", err)
	}
	if len(trends) != 2 {
		t.Errorf("len = %d, want 2 (limit applied)", len(trends))
	}

	wantCutoff := time.Now().UTC().Add(-2 * time.Hour)
	if diff := store.since.Sub(wantCutoff); diff < -time.Second || diff > time.Second {
		t.Errorf("cutoff = %v, want ~%v", store.since, wantCutoff)
	}
}

func TestTopTopics_DefaultWindow(t *testing.T) {
	t.Parallel()

	store := &mockStore{}
	g := New(store)

	if _, err := g.TopTopics(context.Background(), 0, 10); err != nil {
		t.Fatalf("TopTopics: %v", err)
	}

	wantCutoff := time.Now().UTC().Add(-DefaultWindow)
	if diff := store.since.Sub(wantCutoff); diff < -time.Second || diff > time.Second {
		t.Errorf("cutoff = %v, want ~%v", store.since, wantCutoff)
	}
}

func TestTopTopics_StoreError(t *testing.T) {
	t.Parallel()

	g := New(&mockStore{err: errors.New("db down")})

	_, err := g.TopTopics(context.Background(), time.Hour, 10)
	if err == nil {
		t.Fatal("expected error from store")
	}
}
