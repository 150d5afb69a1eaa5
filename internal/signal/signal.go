// Package signal defines the raw evidence unit flowing into the pipeline
// and the collector capability that produces it.
package signal

import (
	"context"
	"time"
)

// Raw is one unit of unclassified evidence from a single source.
// It is immutable once collected and is never persisted directly; only
// classification output is durable.
type Raw struct {
	Source      string            `json:"source"`
	Title       string            `json:"title"`
	Content     string            `json:"content"`
	URL         string            `json:"url"`
	PublishedAt time.Time         `json:"published_at"`
	Engagement  float64           `json:"engagement"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// Collector is a capability CityPulse polls for raw signals. Each
// implementation owns its own credentials and endpoint configuration.
// A collector may fail or return nothing without affecting the others.
type Collector interface {
	SourceName() string
	Collect(ctx context.Context) ([]Raw, error)
}

// Registry holds the configured collectors keyed by source name.
type Registry struct {
	collectors map[string]Collector
	order      []string
}

// NewRegistry creates an empty collector registry.
func NewRegistry() *Registry {
	return &Registry{collectors: make(map[string]Collector)}
}

// Register adds a collector, keyed by its SourceName. Registering the
// same source twice replaces the earlier collector.
func (r *Registry) Register(c Collector) {
	if _, ok := r.collectors[c.SourceName()]; !ok {
		r.order = append(r.order, c.SourceName())
	}
	r.collectors[c.SourceName()] = c
}

// Get retrieves a collector by source name.
func (r *Registry) Get(source string) (Collector, bool) {
	c, ok := r.collectors[source]
	return c, ok
}

// All returns the registered collectors in registration order.
func (r *Registry) All() []Collector {
	out := make([]Collector, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.collectors[name])
	}
	return out
}

// Len reports how many collectors are registered.
func (r *Registry) Len() int { return len(r.collectors) }
