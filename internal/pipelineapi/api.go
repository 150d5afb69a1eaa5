// Package pipelineapi exposes the persistence boundary, trend queries, and
// an on-demand cycle trigger over HTTP.
package pipelineapi

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/linnemanlabs/go-core/log"
	"github.com/linnemanlabs/go-core/xerrors"

	"github.com/linnemanlabs/citypulse/internal/alert"
	"github.com/linnemanlabs/citypulse/internal/pipeline"
	"github.com/linnemanlabs/citypulse/internal/trend"
)

// CycleRunner runs one pipeline cycle on demand.
type CycleRunner interface {
	RunCycle(ctx context.Context) *pipeline.Report
}

// TrendQuerier computes windowed topic trends.
type TrendQuerier interface {
	TopTopics(ctx context.Context, window time.Duration, limit int) ([]trend.TopicTrend, error)
}

// API holds dependencies for HTTP handlers.
type API struct {
	logger log.Logger
	store  alert.Store
	runner CycleRunner
	trends TrendQuerier
}

// New creates a new API handler.
func New(logger log.Logger, store alert.Store, runner CycleRunner, trends TrendQuerier) *API {
	if logger == nil {
		logger = log.Nop()
	}
	if store == nil {
		panic(xerrors.New("alert store is required"))
	}
	if runner == nil {
		panic(xerrors.New("cycle runner is required"))
	}
	if trends == nil {
		panic(xerrors.New("trend querier is required"))
	}
	return &API{
		logger: logger,
		store:  store,
		runner: runner,
		trends: trends,
	}
}

// RegisterRoutes attaches API endpoints to the router.
func (a *API) RegisterRoutes(r chi.Router) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/cycles/run", a.handleRunCycle)
		r.Get("/alerts", a.handleQueryByTopic)
		r.Get("/alerts/high-confidence", a.handleQueryHighConfidence)
		r.Post("/alerts/{id}/processed", a.handleMarkProcessed)
		r.Delete("/alerts", a.handlePurge)
		r.Get("/trends", a.handleTrends)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
