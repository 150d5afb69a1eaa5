package pipeline

import (
	"sync"
	"time"
)

// Phase tracks where a cycle is in its lifecycle.
type Phase string

const (
	PhaseIdle        Phase = "idle"
	PhaseCollecting  Phase = "collecting"
	PhaseClassifying Phase = "classifying"
	PhaseStoring     Phase = "storing"
	PhaseCompleted   Phase = "completed"
)

// Report is the per-cycle statistics record returned to the caller. It is
// never persisted. Success means the error list is empty; a partial
// collector failure always shows up here even when the cycle otherwise
// produced alerts.
type Report struct {
	StartTime            time.Time `json:"start_time"`
	EndTime              time.Time `json:"end_time"`
	ExecutionTimeSeconds float64   `json:"execution_time_seconds"`
	CollectorsUsed       int       `json:"collectors_used"`
	SignalsCollected     int       `json:"signals_collected"`
	AlertsGenerated      int       `json:"alerts_generated"`
	AlertsStored         int       `json:"alerts_stored"`
	Errors               []string  `json:"errors"`
	Success              bool      `json:"success"`
}

// errorList is the append-only error accumulator shared across concurrent
// collector tasks.
type errorList struct {
	mu   sync.Mutex
	msgs []string
}

func (l *errorList) append(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.msgs = append(l.msgs, msg)
}

func (l *errorList) all() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]string, len(l.msgs))
	copy(out, l.msgs)
	return out
}
