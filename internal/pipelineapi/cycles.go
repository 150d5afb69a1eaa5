package pipelineapi

import "net/http"

// handleRunCycle triggers one pipeline cycle synchronously and returns its
// report. The scheduler serializes scheduled runs; callers of this endpoint
// are expected not to race it in production.
func (a *API) handleRunCycle(w http.ResponseWriter, r *http.Request) {
	report := a.runner.RunCycle(r.Context())
	writeJSON(w, http.StatusOK, report)
}
