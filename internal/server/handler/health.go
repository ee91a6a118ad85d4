package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/OkeyDezz/FloatHunter-Discord/internal/domain"
)

// StatusProvider exposes the scanner's connection state and liveness
// counters. Satisfied by the stream manager's health tracker.
type StatusProvider interface {
	Status() (domain.ConnectionState, domain.HealthSnapshot)
}

// HealthHandler serves the health-check and status endpoints.
type HealthHandler struct {
	status StatusProvider
	logger *slog.Logger
}

// NewHealthHandler creates a HealthHandler over the given status provider.
func NewHealthHandler(status StatusProvider, logger *slog.Logger) *HealthHandler {
	return &HealthHandler{status: status, logger: logger}
}

// HealthCheck responds with the scanner's liveness. The HTTP status degrades
// with the connection: 200 while Connected, 503 otherwise, so external
// supervisors can probe it directly.
// GET /api/health
func (h *HealthHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	state, _ := h.status.Status()

	code := http.StatusOK
	status := "ok"
	if state != domain.StateConnected {
		code = http.StatusServiceUnavailable
		status = "degraded"
	}

	writeJSON(w, code, map[string]any{
		"status":    status,
		"state":     state.String(),
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// Status responds with the full connection health snapshot.
// GET /api/status
func (h *HealthHandler) Status(w http.ResponseWriter, r *http.Request) {
	state, snap := h.status.Status()
	now := time.Now()

	writeJSON(w, http.StatusOK, map[string]any{
		"state":                state.String(),
		"last_data_age_secs":   now.Sub(snap.LastData).Seconds(),
		"last_stable_age_secs": now.Sub(snap.LastStable).Seconds(),
		"consecutive_failures": snap.ConsecutiveFailures,
		"total_reconnects":     snap.TotalReconnects,
		"total_restarts":       snap.TotalRestarts,
		"evaluation_failures":  snap.EvalFailures,
		"timestamp":            now.UTC().Format(time.RFC3339),
	})
}
