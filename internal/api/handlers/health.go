// Package handlers contains HTTP request handlers
package handlers

import (
	"net/http"
	"time"
)

type HealthHandler struct {
	startTime time.Time
	status    StatusProvider
}

func NewHealthHandler(status StatusProvider) *HealthHandler {
	return &HealthHandler{startTime: time.Now(), status: status}
}

// Health reports uptime and the freshness of the carpark snapshot. It never
// triggers an upstream refresh.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	snapshot := map[string]any{"loaded": false}
	status := "OK"

	st, ok := h.status.Status()
	switch {
	case !ok:
		status = "STARTING"
	case !st.Fresh && st.LastError != "":
		status = "DEGRADED"
	}

	if ok {
		snapshot = map[string]any{
			"loaded":     true,
			"carparks":   st.Carparks,
			"fetched_at": st.FetchedAt.UTC().Format(time.RFC3339),
			"age":        st.Age.Round(time.Second).String(),
			"ttl":        st.TTL.String(),
			"fresh":      st.Fresh,
			"merge":      st.Stats,
		}
	}
	if st.LastError != "" {
		snapshot["last_error"] = st.LastError
		snapshot["last_failure"] = st.LastFailure.UTC().Format(time.RFC3339)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":    status,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"version":   "1.0.0",
		"uptime":    time.Since(h.startTime).String(),
		"snapshot":  snapshot,
	})
}
