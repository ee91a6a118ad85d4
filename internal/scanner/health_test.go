package scanner

import (
	"testing"
	"time"

	"github.com/OkeyDezz/FloatHunter-Discord/internal/domain"
)

func TestHealthMarkDataOnlyStableWhileConnected(t *testing.T) {
	now := time.Now()
	h := NewHealth(now)

	later := now.Add(time.Minute)
	h.MarkData(later)
	snap := h.Snapshot()
	if !snap.LastData.Equal(later) {
		t.Errorf("LastData = %v, want %v", snap.LastData, later)
	}
	if !snap.LastStable.Equal(now) {
		t.Errorf("LastStable advanced while disconnected")
	}

	h.MarkConnected(later)
	evenLater := later.Add(time.Minute)
	h.MarkData(evenLater)
	snap = h.Snapshot()
	if !snap.LastStable.Equal(evenLater) {
		t.Errorf("LastStable = %v, want %v", snap.LastStable, evenLater)
	}

	// Timestamps never move backward.
	h.MarkData(now)
	snap = h.Snapshot()
	if !snap.LastData.Equal(evenLater) || !snap.LastStable.Equal(evenLater) {
		t.Errorf("timestamps moved backward: %+v", snap)
	}
}

func TestHealthMarkDegradedOnlyWhileConnected(t *testing.T) {
	h := NewHealth(time.Now())
	if h.MarkDegraded() {
		t.Error("MarkDegraded must not apply while disconnected")
	}
	if h.State() != domain.StateDisconnected {
		t.Errorf("state = %v, want Disconnected", h.State())
	}

	h.MarkConnected(time.Now())
	if !h.MarkDegraded() {
		t.Error("MarkDegraded should apply while connected")
	}
	if h.State() != domain.StateDegraded {
		t.Errorf("state = %v, want Degraded", h.State())
	}
	if h.MarkDegraded() {
		t.Error("MarkDegraded must not apply twice")
	}
}

func TestHealthRestartPreservesTotals(t *testing.T) {
	now := time.Now()
	h := NewHealth(now)
	h.MarkFailure()
	h.MarkFailure()
	h.MarkEvalFailure()

	h.MarkRestart(now.Add(time.Minute))
	snap := h.Snapshot()
	if snap.ConsecutiveFailures != 0 {
		t.Errorf("ConsecutiveFailures = %d, want 0 after restart", snap.ConsecutiveFailures)
	}
	if snap.TotalReconnects != 2 || snap.TotalRestarts != 1 || snap.EvalFailures != 1 {
		t.Errorf("totals not preserved: %+v", snap)
	}
	if h.State() != domain.StateRestarting {
		t.Errorf("state = %v, want Restarting", h.State())
	}
}

func TestHealthOnlyConnectResetsFailures(t *testing.T) {
	h := NewHealth(time.Now())
	h.MarkFailure()
	h.MarkFailure()
	h.SetState(domain.StateConnecting)
	h.SetState(domain.StateAuthenticating)
	if snap := h.Snapshot(); snap.ConsecutiveFailures != 2 {
		t.Errorf("state transitions must not reset failures, got %d", snap.ConsecutiveFailures)
	}

	h.MarkConnected(time.Now())
	if snap := h.Snapshot(); snap.ConsecutiveFailures != 0 {
		t.Errorf("MarkConnected must reset failures, got %d", snap.ConsecutiveFailures)
	}
}
