// Package classify turns a batch of raw signals into severity-scored
// alerts. The classification capability itself is external; this package
// owns the boundary types, prompt construction, and strict parsing of the
// capability's output.
package classify

import (
	"context"

	"github.com/linnemanlabs/citypulse/internal/alert"
	"github.com/linnemanlabs/citypulse/internal/signal"
)

// Classifier accepts one cycle's signals grouped by source and returns the
// triage outcome. A failed or unparseable classification surfaces as an
// error; it never fabricates alerts.
type Classifier interface {
	Classify(ctx context.Context, bySource map[string][]signal.Raw) (*Result, error)
}

// Result is the structured outcome of one classification call.
type Result struct {
	Summary        string        `json:"summary"`
	Alerts         []alert.Alert `json:"alerts"`
	NormalActivity []Observation `json:"normal_activity,omitempty"`
}

// Observation is a non-alerting finding: activity the classifier saw and
// judged routine. Reported for context, never persisted.
type Observation struct {
	Topic       string `json:"topic"`
	Description string `json:"description,omitempty"`
	Source      string `json:"source,omitempty"`
}
