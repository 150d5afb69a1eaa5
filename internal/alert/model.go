package alert

import (
	"fmt"
	"time"
)

// Status tracks where an alert is in its lifecycle.
type Status string

const (
	// StatusActive means stored and awaiting operator attention.
	StatusActive Status = "active"

	// StatusProcessed means an operator has handled the alert. A processed
	// alert is immutable except for UpdatedAt.
	StatusProcessed Status = "processed"
)

// Category classifies the kind of event an alert describes.
type Category string

const (
	CategoryTransportation Category = "transportation"
	CategorySafety         Category = "safety"
	CategoryWeather        Category = "weather"
	CategoryInfrastructure Category = "infrastructure"
	CategorySocial         Category = "social"
	CategoryOther          Category = "other"
)

// Alert is a severity-scored, categorized finding derived from one or more
// raw signals. IDs are assigned at storage time, not before.
type Alert struct {
	ID          string     `json:"id"`
	Topic       string     `json:"topic"`
	Title       string     `json:"title,omitempty"`
	Area        string     `json:"area"` // geographic label, may be "Citywide"
	Severity    int        `json:"severity"` // 1..10
	Category    Category   `json:"category"`
	Sources     []string   `json:"contributing_sources"`
	Description string     `json:"description,omitempty"`
	Keywords    []string   `json:"keywords,omitempty"`
	Confidence  float64    `json:"confidence"` // 0.0..1.0
	URL         string     `json:"url"`
	Status      Status     `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
}

// ValidationError reports a required field missing or out of range at the
// storage boundary. It is recorded per-alert and never aborts a cycle.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("alert validation: %s: %s", e.Field, e.Reason)
}

// Validate checks the fields required before any durable write.
func (a *Alert) Validate() error {
	if a.Topic == "" {
		return &ValidationError{Field: "topic", Reason: "required"}
	}
	if a.URL == "" {
		return &ValidationError{Field: "url", Reason: "required"}
	}
	if len(a.Sources) == 0 {
		return &ValidationError{Field: "contributing_sources", Reason: "at least one source required"}
	}
	if a.Category == "" {
		return &ValidationError{Field: "category", Reason: "required"}
	}
	if a.Confidence < 0.0 || a.Confidence > 1.0 {
		return &ValidationError{Field: "confidence", Reason: fmt.Sprintf("%v outside [0.0, 1.0]", a.Confidence)}
	}
	if a.Severity < 1 || a.Severity > 10 {
		return &ValidationError{Field: "severity", Reason: fmt.Sprintf("%d outside 1..10", a.Severity)}
	}
	return nil
}

// Retention hints by severity band. High-severity alerts are kept longer so
// they survive several aggregation windows.
const (
	retentionUrgent  = 7 * 24 * time.Hour
	retentionNotable = 72 * time.Hour
	retentionDefault = 24 * time.Hour
)

// ExpiryFor returns the severity-dependent expiry hint for an alert created
// at the given time.
func ExpiryFor(severity int, createdAt time.Time) time.Time {
	switch {
	case severity >= 8:
		return createdAt.Add(retentionUrgent)
	case severity >= 5:
		return createdAt.Add(retentionNotable)
	default:
		return createdAt.Add(retentionDefault)
	}
}
