package api

import (
	"net/http"
	"time"
)

// StatsProvider reports evaluator runtime statistics.
type StatsProvider interface {
	GetStats() map[string]interface{}
}

// StatsHandler serves GET /stats.
type StatsHandler struct {
	statsProvider StatsProvider
	startedAt     time.Time
}

// NewStatsHandler creates a stats handler. Uptime is measured from this call.
func NewStatsHandler(statsProvider StatsProvider) *StatsHandler {
	return &StatsHandler{statsProvider: statsProvider, startedAt: time.Now()}
}

// HandleStats merges the provider's stats with server time and uptime.
func (h *StatsHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", ErrMethodNotAllowed)
		return
	}
	out := make(map[string]interface{})
	for k, v := range h.statsProvider.GetStats() {
		out[k] = v
	}
	now := time.Now()
	out["serverTime"] = now.UTC().Format(time.RFC3339)
	out["uptimeSeconds"] = int64(now.Sub(h.startedAt).Seconds())
	writeJSON(w, http.StatusOK, out)
}
