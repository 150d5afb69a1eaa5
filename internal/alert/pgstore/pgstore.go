// Package pgstore provides a PostgreSQL implementation of alert.Store.
package pgstore

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/oklog/ulid/v2"

	"github.com/linnemanlabs/citypulse/internal/alert"
)

var tracer = otel.Tracer("github.com/linnemanlabs/citypulse/internal/alert/pgstore")

//go:embed schema.sql
var schema string

// Store persists alerts in PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
}

// New applies the schema on the given pool and returns a ready Store.
func New(ctx context.Context, pool *pgxpool.Pool) (*Store, error) {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{pool: pool}, nil
}

const alertColumns = `id, topic, title, area, severity, category, sources, description,
	keywords, confidence, url, status, created_at, updated_at, expires_at`

// Store validates the alert and inserts it with a fresh ULID. A
// caller-provided CreatedAt is respected (backfill); otherwise the current
// time is stamped.
func (s *Store) Store(ctx context.Context, a *alert.Alert) (string, error) {
	ctx, span := tracer.Start(ctx, "pgstore.Store", trace.WithAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation.name", "INSERT"),
	))
	defer span.End()

	if err := a.Validate(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}

	id := ulid.Make().String()
	now := time.Now().UTC()
	createdAt := a.CreatedAt
	if createdAt.IsZero() {
		createdAt = now
	}
	expiresAt := a.ExpiresAt
	if expiresAt == nil {
		exp := alert.ExpiryFor(a.Severity, createdAt)
		expiresAt = &exp
	}

	query := `INSERT INTO alerts (` + alertColumns + `)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)`

	_, err := s.pool.Exec(ctx, query,
		id, a.Topic, a.Title, a.Area, a.Severity, string(a.Category), a.Sources,
		a.Description, a.Keywords, a.Confidence, a.URL, string(alert.StatusActive),
		createdAt, now, expiresAt,
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", fmt.Errorf("insert alert: %w", err)
	}
	return id, nil
}

// Get retrieves an alert by ID.
func (s *Store) Get(ctx context.Context, id string) (*alert.Alert, bool, error) {
	ctx, span := tracer.Start(ctx, "pgstore.Get", trace.WithAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation.name", "SELECT"),
	))
	defer span.End()

	query := `SELECT ` + alertColumns + ` FROM alerts WHERE id = $1`
	a, err := scanAlertRow(s.pool.QueryRow(ctx, query, id))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, false, err
	}
	if a == nil {
		return nil, false, nil
	}
	return a, true, nil
}

// QueryByTopic returns active alerts for the topic, newest first. A
// non-positive limit applies alert.DefaultQueryLimit.
func (s *Store) QueryByTopic(ctx context.Context, topic string, limit int) ([]alert.Alert, error) {
	ctx, span := tracer.Start(ctx, "pgstore.QueryByTopic", trace.WithAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation.name", "SELECT"),
	))
	defer span.End()

	if limit <= 0 {
		limit = alert.DefaultQueryLimit
	}

	query := `SELECT ` + alertColumns + ` FROM alerts
		WHERE status = 'active' AND topic = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2`

	rows, err := s.pool.Query(ctx, query, topic, limit)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("query by topic: %w", err)
	}
	return collectAlerts(rows)
}

// QueryHighConfidence returns recent active alerts at or above the
// confidence floor, highest confidence first.
func (s *Store) QueryHighConfidence(ctx context.Context, min float64, window time.Duration) ([]alert.Alert, error) {
	ctx, span := tracer.Start(ctx, "pgstore.QueryHighConfidence", trace.WithAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation.name", "SELECT"),
	))
	defer span.End()

	cutoff := time.Now().UTC().Add(-window)

	query := `SELECT ` + alertColumns + ` FROM alerts
		WHERE status = 'active' AND confidence >= $1 AND created_at >= $2
		ORDER BY confidence DESC, id ASC`

	rows, err := s.pool.Query(ctx, query, min, cutoff)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("query high confidence: %w", err)
	}
	return collectAlerts(rows)
}

// ActiveSince returns active alerts created at or after the cutoff in
// arrival order.
func (s *Store) ActiveSince(ctx context.Context, since time.Time) ([]alert.Alert, error) {
	ctx, span := tracer.Start(ctx, "pgstore.ActiveSince", trace.WithAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation.name", "SELECT"),
	))
	defer span.End()

	query := `SELECT ` + alertColumns + ` FROM alerts
		WHERE status = 'active' AND created_at >= $1
		ORDER BY created_at ASC, id ASC`

	rows, err := s.pool.Query(ctx, query, since)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("query active since: %w", err)
	}
	return collectAlerts(rows)
}

// MarkProcessed transitions active -> processed. Returns false when the ID
// is unknown or the alert is already processed.
func (s *Store) MarkProcessed(ctx context.Context, id string) (bool, error) {
	ctx, span := tracer.Start(ctx, "pgstore.MarkProcessed", trace.WithAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation.name", "UPDATE"),
	))
	defer span.End()

	tag, err := s.pool.Exec(ctx,
		`UPDATE alerts SET status = 'processed', updated_at = $1
		 WHERE id = $2 AND status = 'active'`,
		time.Now().UTC(), id,
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return false, fmt.Errorf("mark processed: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// PurgeOlderThan deletes alerts created before now-age regardless of status.
func (s *Store) PurgeOlderThan(ctx context.Context, age time.Duration) (int, error) {
	ctx, span := tracer.Start(ctx, "pgstore.PurgeOlderThan", trace.WithAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation.name", "DELETE"),
	))
	defer span.End()

	cutoff := time.Now().UTC().Add(-age)

	tag, err := s.pool.Exec(ctx, `DELETE FROM alerts WHERE created_at < $1`, cutoff)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return 0, fmt.Errorf("purge alerts: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

func collectAlerts(rows pgx.Rows) ([]alert.Alert, error) {
	defer rows.Close()

	var out []alert.Alert
	for rows.Next() {
		a, err := scanAlert(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate alerts: %w", err)
	}
	return out, nil
}

func scanAlert(row pgx.Row) (*alert.Alert, error) {
	var (
		a        alert.Alert
		category string
		status   string
	)
	err := row.Scan(
		&a.ID, &a.Topic, &a.Title, &a.Area, &a.Severity, &category, &a.Sources,
		&a.Description, &a.Keywords, &a.Confidence, &a.URL, &status,
		&a.CreatedAt, &a.UpdatedAt, &a.ExpiresAt,
	)
	if err != nil {
		return nil, fmt.Errorf("scan: %w", err)
	}
	a.Category = alert.Category(category)
	a.Status = alert.Status(status)
	return &a, nil
}

// scanAlertRow scans a single row, returning (nil, nil) when no row is found.
func scanAlertRow(row pgx.Row) (*alert.Alert, error) {
	a, err := scanAlert(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return a, nil
}
