package alert

import (
	"context"
	"time"
)

// DefaultQueryLimit caps topic queries when the caller passes a
// non-positive limit.
const DefaultQueryLimit = 50

// Store is the persistence boundary for alerts. Implementations validate on
// Store, assign IDs, and own created_at/updated_at stamping.
type Store interface {
	// Store validates the alert, stamps timestamps, sets status active,
	// assigns a store-generated ID, and performs one durable write.
	Store(ctx context.Context, a *Alert) (id string, err error)

	// QueryByTopic returns active alerts matching the topic, newest first,
	// capped at limit. A non-positive limit applies DefaultQueryLimit.
	QueryByTopic(ctx context.Context, topic string, limit int) ([]Alert, error)

	// QueryHighConfidence returns active alerts with confidence >= min
	// created within the window, highest confidence first.
	QueryHighConfidence(ctx context.Context, min float64, window time.Duration) ([]Alert, error)

	// ActiveSince returns active alerts created at or after the cutoff in
	// arrival order (created_at ascending). Feeds the trend aggregator.
	ActiveSince(ctx context.Context, since time.Time) ([]Alert, error)

	// MarkProcessed transitions active -> processed and bumps updated_at.
	// Returns false without error when the ID does not exist or the alert
	// is already processed; it never flips processed back to active.
	MarkProcessed(ctx context.Context, id string) (bool, error)

	// PurgeOlderThan deletes alerts created before now-age regardless of
	// status and returns the number removed. Maintenance only, not part of
	// the per-cycle write path.
	PurgeOlderThan(ctx context.Context, age time.Duration) (int, error)
}
