package handler

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/OkeyDezz/FloatHunter-Discord/internal/domain"
)

type fakeStatus struct {
	state domain.ConnectionState
	snap  domain.HealthSnapshot
}

func (f *fakeStatus) Status() (domain.ConnectionState, domain.HealthSnapshot) {
	return f.state, f.snap
}

func newHandler(state domain.ConnectionState, snap domain.HealthSnapshot) *HealthHandler {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewHealthHandler(&fakeStatus{state: state, snap: snap}, logger)
}

func TestHealthCheckConnected(t *testing.T) {
	h := newHandler(domain.StateConnected, domain.HealthSnapshot{})

	rec := httptest.NewRecorder()
	h.HealthCheck(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["status"] != "ok" || body["state"] != "connected" {
		t.Errorf("body = %v", body)
	}
}

func TestHealthCheckDegraded(t *testing.T) {
	for _, state := range []domain.ConnectionState{
		domain.StateDisconnected,
		domain.StateConnecting,
		domain.StateDegraded,
		domain.StateRestarting,
	} {
		h := newHandler(state, domain.HealthSnapshot{})

		rec := httptest.NewRecorder()
		h.HealthCheck(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))

		if rec.Code != http.StatusServiceUnavailable {
			t.Errorf("state %v: status = %d, want 503", state, rec.Code)
		}
	}
}

func TestStatusCounters(t *testing.T) {
	now := time.Now()
	h := newHandler(domain.StateConnected, domain.HealthSnapshot{
		LastData:            now.Add(-10 * time.Second),
		LastStable:          now.Add(-10 * time.Second),
		ConsecutiveFailures: 3,
		TotalReconnects:     7,
		TotalRestarts:       1,
		EvalFailures:        2,
	})

	rec := httptest.NewRecorder()
	h.Status(rec, httptest.NewRequest(http.MethodGet, "/api/status", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["consecutive_failures"].(float64) != 3 {
		t.Errorf("consecutive_failures = %v", body["consecutive_failures"])
	}
	if body["total_reconnects"].(float64) != 7 {
		t.Errorf("total_reconnects = %v", body["total_reconnects"])
	}
	if age := body["last_data_age_secs"].(float64); age < 9 || age > 60 {
		t.Errorf("last_data_age_secs = %v", age)
	}
}
