package scanner

import (
	"sync"
	"time"

	"github.com/OkeyDezz/FloatHunter-Discord/internal/domain"
)

// Health is the shared connection state and liveness bookkeeping. The
// connection manager is the sole writer of the timestamps; the health monitor
// reads snapshots on its own schedule and requests transitions through the
// manager. The mutex guards only in-memory mutation, never I/O.
type Health struct {
	mu    sync.Mutex
	state domain.ConnectionState
	snap  domain.HealthSnapshot
}

// NewHealth returns a Health in the Disconnected state with both timestamps
// initialised to now, so staleness windows are measured from process start.
func NewHealth(now time.Time) *Health {
	return &Health{
		state: domain.StateDisconnected,
		snap: domain.HealthSnapshot{
			LastData:   now,
			LastStable: now,
		},
	}
}

// State returns the current connection state.
func (h *Health) State() domain.ConnectionState {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state
}

// Snapshot returns a copy of the current health snapshot.
func (h *Health) Snapshot() domain.HealthSnapshot {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.snap
}

// Status returns state and snapshot atomically for the health endpoint.
func (h *Health) Status() (domain.ConnectionState, domain.HealthSnapshot) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state, h.snap
}

// SetState records a state transition.
func (h *Health) SetState(s domain.ConnectionState) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.state = s
}

// MarkConnected records a confirmed authenticated session. This is the only
// place the consecutive-failure count resets to zero.
func (h *Health) MarkConnected(now time.Time) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.state = domain.StateConnected
	h.snap.ConsecutiveFailures = 0
	h.snap.LastData = now
	h.snap.LastStable = now
}

// MarkData records successful data arrival. LastStable only advances while
// the connection is Connected and never moves backward.
func (h *Health) MarkData(now time.Time) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if now.After(h.snap.LastData) {
		h.snap.LastData = now
	}
	if h.state == domain.StateConnected && now.After(h.snap.LastStable) {
		h.snap.LastStable = now
	}
}

// MarkFailure records a failed connect/auth attempt or a dropped session and
// returns the new consecutive-failure count.
func (h *Health) MarkFailure() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.state = domain.StateDisconnected
	h.snap.ConsecutiveFailures++
	h.snap.TotalReconnects++
	return h.snap.ConsecutiveFailures
}

// MarkDegraded flags a silently stalled connection. It only applies while
// Connected; a race with a concurrent disconnect must not resurrect the state.
func (h *Health) MarkDegraded() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.state != domain.StateConnected {
		return false
	}
	h.state = domain.StateDegraded
	return true
}

// MarkRestart resets the snapshot for a full subsystem restart, preserving
// the observability totals.
func (h *Health) MarkRestart(now time.Time) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.state = domain.StateRestarting
	h.snap.ConsecutiveFailures = 0
	h.snap.LastData = now
	h.snap.LastStable = now
	h.snap.TotalRestarts++
}

// MarkEvalFailure counts one dropped evaluation. Evaluation faults are local
// to a single item and never touch the connection state.
func (h *Health) MarkEvalFailure() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.snap.EvalFailures++
}

// SetTimestamps overwrites the liveness timestamps. Test hook.
func (h *Health) SetTimestamps(lastData, lastStable time.Time) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.snap.LastData = lastData
	h.snap.LastStable = lastStable
}
