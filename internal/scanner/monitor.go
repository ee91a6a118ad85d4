package scanner

import (
	"context"
	"log/slog"
	"time"

	"github.com/OkeyDezz/FloatHunter-Discord/internal/domain"
)

// RecoveryRequester is the slice of the Manager the monitor needs: it never
// touches the transport itself, only asks the owning loop to act.
type RecoveryRequester interface {
	RequestReconnect()
	RequestRestart()
}

// MonitorConfig holds the periodic liveness-check parameters.
type MonitorConfig struct {
	// Interval between ticks.
	Interval time.Duration

	// StallAfter flags a Connected session as Degraded when no item data has
	// arrived for this long, inclusive.
	StallAfter time.Duration

	// RestartFailureLimit and RestartStaleAfter mirror the manager's
	// forced-restart conditions so the monitor can trigger them from any state.
	RestartFailureLimit int
	RestartStaleAfter   time.Duration
}

// Monitor is the connection health watchdog. It runs independently of the
// dispatch loop and detects the failures the transport layer cannot: a socket
// that is technically open but delivering nothing.
type Monitor struct {
	health *Health
	mgr    RecoveryRequester
	cfg    MonitorConfig
	logger *slog.Logger
}

// NewMonitor creates a Monitor observing the given health state.
func NewMonitor(health *Health, mgr RecoveryRequester, cfg MonitorConfig, logger *slog.Logger) *Monitor {
	return &Monitor{
		health: health,
		mgr:    mgr,
		cfg:    cfg,
		logger: logger.With(slog.String("component", "health_monitor")),
	}
}

// Run ticks until ctx is cancelled.
func (m *Monitor) Run(ctx context.Context) error {
	ticker := time.NewTicker(m.cfg.Interval)
	defer ticker.Stop()

	m.logger.Info("health monitor started", slog.Duration("interval", m.cfg.Interval))
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-ticker.C:
			m.tick(now)
		}
	}
}

// tick performs one health evaluation. Restart conditions are checked first;
// they apply regardless of the current state.
func (m *Monitor) tick(now time.Time) {
	state, snap := m.health.Status()

	mgrCfg := ManagerConfig{
		RestartFailureLimit: m.cfg.RestartFailureLimit,
		RestartStaleAfter:   m.cfg.RestartStaleAfter,
	}
	if restartDue(snap, state, now, mgrCfg) {
		m.logger.Error("hard-restart condition met",
			slog.Int("consecutive_failures", snap.ConsecutiveFailures),
			slog.Duration("since_stable", now.Sub(snap.LastStable)),
		)
		m.mgr.RequestRestart()
		return
	}

	if state == domain.StateConnected && now.Sub(snap.LastData) >= m.cfg.StallAfter {
		if m.health.MarkDegraded() {
			m.logger.Warn("silent stall detected, forcing reconnect",
				slog.Duration("since_data", now.Sub(snap.LastData)),
			)
			m.mgr.RequestReconnect()
		}
	}
}
