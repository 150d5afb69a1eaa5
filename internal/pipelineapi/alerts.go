package pipelineapi

import (
	"net/http"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/go-chi/chi/v5"
)

const (
	defaultQueryLimit    = 50
	defaultMinConfidence = 0.7
	defaultQueryWindow   = 24 * time.Hour
)

func (a *API) handleQueryByTopic(w http.ResponseWriter, r *http.Request) {
	topic := r.URL.Query().Get("topic")
	if topic == "" {
		writeError(w, http.StatusBadRequest, "topic is required")
		return
	}

	limit := defaultQueryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	span := trace.SpanFromContext(r.Context())
	span.SetAttributes(attribute.String("citypulse.topic", topic))

	alerts, err := a.store.QueryByTopic(r.Context(), topic, limit)
	if err != nil {
		a.logger.Error(r.Context(), err, "query by topic failed", "topic", topic)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"topic":  topic,
		"alerts": alerts,
	})
}

func (a *API) handleQueryHighConfidence(w http.ResponseWriter, r *http.Request) {
	min := defaultMinConfidence
	if raw := r.URL.Query().Get("min_confidence"); raw != "" {
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil || f < 0 || f > 1 {
			writeError(w, http.StatusBadRequest, "min_confidence must be in [0, 1]")
			return
		}
		min = f
	}

	window := defaultQueryWindow
	if raw := r.URL.Query().Get("window"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil || d <= 0 {
			writeError(w, http.StatusBadRequest, "window must be a positive duration")
			return
		}
		window = d
	}

	alerts, err := a.store.QueryHighConfidence(r.Context(), min, window)
	if err != nil {
		a.logger.Error(r.Context(), err, "high confidence query failed")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"min_confidence": min,
		"window":         window.String(),
		"alerts":         alerts,
	})
}

func (a *API) handleMarkProcessed(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	span := trace.SpanFromContext(r.Context())
	span.SetAttributes(attribute.String("citypulse.alert.id", id))

	ok, err := a.store.MarkProcessed(r.Context(), id)
	if err != nil {
		a.logger.Error(r.Context(), err, "mark processed failed", "id", id)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, "not found or already processed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"id": id, "status": "processed"})
}

func (a *API) handlePurge(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("older_than")
	if raw == "" {
		writeError(w, http.StatusBadRequest, "older_than is required")
		return
	}
	age, err := time.ParseDuration(raw)
	if err != nil || age <= 0 {
		writeError(w, http.StatusBadRequest, "older_than must be a positive duration")
		return
	}

	removed, err := a.store.PurgeOlderThan(r.Context(), age)
	if err != nil {
		a.logger.Error(r.Context(), err, "purge failed", "older_than", age)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	a.logger.Info(r.Context(), "alerts purged", "older_than", age.String(), "removed", removed)
	writeJSON(w, http.StatusOK, map[string]any{"removed": removed})
}
