// Package memstore provides an in-memory implementation of alert.Store.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/linnemanlabs/citypulse/internal/alert"
)

// Store holds alerts in memory. Suitable for dev/testing and for running
// without a database-url configured.
type Store struct {
	mu     sync.RWMutex
	alerts map[string]*alert.Alert // alert ID -> alert
	now    func() time.Time
}

// New initializes a new in-memory Store.
func New() *Store {
	return &Store{
		alerts: make(map[string]*alert.Alert),
		now:    time.Now,
	}
}

// Store validates and persists a copy of the alert, assigning a ULID.
// A caller-provided CreatedAt is respected (backfill); otherwise the
// current time is stamped.
func (s *Store) Store(_ context.Context, a *alert.Alert) (string, error) {
	if err := a.Validate(); err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *a
	cp.ID = ulid.Make().String()
	now := s.now().UTC()
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = now
	}
	cp.UpdatedAt = now
	cp.Status = alert.StatusActive
	if cp.ExpiresAt == nil {
		exp := alert.ExpiryFor(cp.Severity, cp.CreatedAt)
		cp.ExpiresAt = &exp
	}

	s.alerts[cp.ID] = &cp
	return cp.ID, nil
}

// Get retrieves an alert by ID. Returns a copy.
func (s *Store) Get(_ context.Context, id string) (*alert.Alert, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.alerts[id]
	if !ok {
		return nil, false, nil
	}
	cp := *a
	return &cp, true, nil
}

// QueryByTopic returns active alerts for the topic, newest first. A
// non-positive limit applies alert.DefaultQueryLimit.
func (s *Store) QueryByTopic(_ context.Context, topic string, limit int) ([]alert.Alert, error) {
	if limit <= 0 {
		limit = alert.DefaultQueryLimit
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []alert.Alert
	for _, a := range s.alerts {
		if a.Status == alert.StatusActive && a.Topic == topic {
			out = append(out, *a)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// QueryHighConfidence returns recent active alerts at or above the
// confidence floor, highest confidence first.
func (s *Store) QueryHighConfidence(_ context.Context, min float64, window time.Duration) ([]alert.Alert, error) {
	cutoff := s.now().UTC().Add(-window)

	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []alert.Alert
	for _, a := range s.alerts {
		if a.Status == alert.StatusActive && a.Confidence >= min && !a.CreatedAt.Before(cutoff) {
			out = append(out, *a)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Confidence != out[j].Confidence {
			return out[i].Confidence > out[j].Confidence
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// ActiveSince returns active alerts created at or after the cutoff in
// arrival order (created_at ascending, ID ascending on ties).
func (s *Store) ActiveSince(_ context.Context, since time.Time) ([]alert.Alert, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []alert.Alert
	for _, a := range s.alerts {
		if a.Status == alert.StatusActive && !a.CreatedAt.Before(since) {
			out = append(out, *a)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// MarkProcessed transitions active -> processed. Returns false when the ID
// is unknown or the alert is already processed.
func (s *Store) MarkProcessed(_ context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.alerts[id]
	if !ok || a.Status == alert.StatusProcessed {
		return false, nil
	}
	a.Status = alert.StatusProcessed
	a.UpdatedAt = s.now().UTC()
	return true, nil
}

// PurgeOlderThan deletes alerts created before now-age regardless of status.
func (s *Store) PurgeOlderThan(_ context.Context, age time.Duration) (int, error) {
	cutoff := s.now().UTC().Add(-age)

	s.mu.Lock()
	defer s.mu.Unlock()

	var removed int
	for id, a := range s.alerts {
		if a.CreatedAt.Before(cutoff) {
			delete(s.alerts, id)
			removed++
		}
	}
	return removed, nil
}
