package pipelineapi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/linnemanlabs/citypulse/internal/trend"
)

const defaultTrendLimit = 10

func (a *API) handleTrends(w http.ResponseWriter, r *http.Request) {
	window := trend.DefaultWindow
	if raw := r.URL.Query().Get("window"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil || d <= 0 {
			writeError(w, http.StatusBadRequest, "window must be a positive duration")
			return
		}
		window = d
	}

	limit := defaultTrendLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	trends, err := a.trends.TopTopics(r.Context(), window, limit)
	if err != nil {
		a.logger.Error(r.Context(), err, "trend query failed")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"window": window.String(),
		"topics": trends,
	})
}
