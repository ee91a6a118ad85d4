package scanner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/OkeyDezz/FloatHunter-Discord/internal/domain"
)

// Session-exit reasons used internally by the run loop.
var (
	errReconnectRequested = errors.New("reconnect requested")
	errRestartRequested   = errors.New("restart requested")
)

// ManagerConfig holds the connection lifecycle parameters.
type ManagerConfig struct {
	// ConnectTimeout bounds the transport-level connect (dial + credential fetch).
	ConnectTimeout time.Duration

	// AuthTimeout bounds the wait for the server's authentication ack.
	AuthTimeout time.Duration

	// BackoffBase and BackoffMax shape the reconnect delay:
	// delay = min(BackoffMax, BackoffBase << consecutiveFailures).
	BackoffBase time.Duration
	BackoffMax  time.Duration

	// RestartFailureLimit forces a full restart once the consecutive-failure
	// count reaches it.
	RestartFailureLimit int

	// RestartStaleAfter forces a full restart when that much time has passed
	// since the last stable moment without reaching Connected.
	RestartStaleAfter time.Duration

	// FatalRestartLimit escalates to a fatal error after this many restarts
	// without an authenticated session in between. Zero disables escalation.
	FatalRestartLimit int

	// EvalTimeout bounds the handling of a single item event.
	EvalTimeout time.Duration
}

// Manager owns the single streaming connection: it connects, authenticates,
// dispatches item events to the evaluator in arrival order, reconnects with
// exponential backoff, and performs full restarts when the health monitor or
// the failure tally demands one. Transport teardown always happens on the
// run-loop goroutine that owns the handle.
type Manager struct {
	factory   TransportFactory
	evaluator *Evaluator
	health    *Health
	cfg       ManagerConfig
	logger    *slog.Logger

	reconnectCh chan struct{}
	restartCh   chan struct{}

	// restartsSinceStable counts restarts with no authenticated session in
	// between; it drives the fatal escalation.
	restartsSinceStable int
}

// NewManager creates a Manager. The factory is invoked for every connection
// attempt so no transport handle outlives its session.
func NewManager(factory TransportFactory, evaluator *Evaluator, health *Health, cfg ManagerConfig, logger *slog.Logger) *Manager {
	return &Manager{
		factory:     factory,
		evaluator:   evaluator,
		health:      health,
		cfg:         cfg,
		logger:      logger.With(slog.String("component", "stream_manager")),
		reconnectCh: make(chan struct{}, 1),
		restartCh:   make(chan struct{}, 1),
	}
}

// Health exposes the shared state for the monitor and the health endpoint.
func (m *Manager) Health() *Health {
	return m.health
}

// RequestReconnect asks the run loop to tear down the current session and
// reconnect. Duplicate requests while one is pending are coalesced.
func (m *Manager) RequestReconnect() {
	select {
	case m.reconnectCh <- struct{}{}:
	default:
	}
}

// RequestRestart asks the run loop for a full subsystem restart: fresh
// transport, reset health snapshot, zero backoff.
func (m *Manager) RequestRestart() {
	select {
	case m.restartCh <- struct{}{}:
	default:
	}
}

// Run establishes the connection and drives the dispatch loop until ctx is
// cancelled or the fatal-restart escalation trips. Cancellation releases the
// transport handle on the way out.
func (m *Manager) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		m.health.SetState(domain.StateConnecting)
		tr := m.factory()
		err := m.runSession(ctx, tr)

		if ctx.Err() != nil {
			return ctx.Err()
		}

		switch {
		case errors.Is(err, errRestartRequested):
			if ferr := m.restart(); ferr != nil {
				return ferr
			}

		default:
			failures := m.health.MarkFailure()
			m.logger.Warn("stream session ended",
				slog.String("error", err.Error()),
				slog.Int("consecutive_failures", failures),
			)

			snap := m.health.Snapshot()
			if restartDue(snap, m.health.State(), time.Now(), m.cfg) {
				if ferr := m.restart(); ferr != nil {
					return ferr
				}
				continue
			}

			delay := backoffDelay(failures, m.cfg.BackoffBase, m.cfg.BackoffMax)
			m.logger.Info("reconnecting after backoff", slog.Duration("delay", delay))
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}
}

// restart discards all session state and re-enters Connecting with zero
// backoff. It returns a fatal error once restarts keep failing to produce an
// authenticated session, so the supervisor can recycle the whole process.
func (m *Manager) restart() error {
	m.restartsSinceStable++
	if m.cfg.FatalRestartLimit > 0 && m.restartsSinceStable > m.cfg.FatalRestartLimit {
		return fmt.Errorf("stream manager: %d restarts without a stable session: %w",
			m.restartsSinceStable, domain.ErrUnrecoverable)
	}

	m.health.MarkRestart(time.Now())
	m.logger.Warn("forcing full stream restart",
		slog.Int("restarts_since_stable", m.restartsSinceStable),
	)
	return nil
}

// runSession drives one transport from connect through the dispatch loop.
// The deferred Close is the single teardown point, so every exit path
// (normal stop, forced restart, read error) releases the handle.
func (m *Manager) runSession(ctx context.Context, tr Transport) error {
	defer func() {
		if err := tr.Close(); err != nil {
			m.logger.Debug("transport close", slog.String("error", err.Error()))
		}
	}()

	connectCtx, cancel := context.WithTimeout(ctx, m.cfg.ConnectTimeout)
	err := tr.Connect(connectCtx)
	cancel()
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}

	m.health.SetState(domain.StateAuthenticating)
	authCtx, cancel := context.WithTimeout(ctx, m.cfg.AuthTimeout)
	err = tr.Authenticate(authCtx)
	cancel()
	if err != nil {
		return fmt.Errorf("authenticate: %w", err)
	}

	m.health.MarkConnected(time.Now())
	m.restartsSinceStable = 0
	m.logger.Info("stream authenticated")

	sessionCtx, cancelSession := context.WithCancel(ctx)
	defer cancelSession()

	events := make(chan domain.ItemEvent)
	readErr := make(chan error, 1)
	go func() {
		for {
			ev, rerr := tr.ReadEvent(sessionCtx)
			if rerr != nil {
				readErr <- rerr
				return
			}
			select {
			case events <- ev:
			case <-sessionCtx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case <-m.reconnectCh:
			return errReconnectRequested

		case <-m.restartCh:
			return errRestartRequested

		case rerr := <-readErr:
			return fmt.Errorf("read: %w", rerr)

		case ev := <-events:
			m.health.MarkData(time.Now())
			m.handleEvent(ctx, ev)
		}
	}
}

// handleEvent runs one bounded evaluation. A timed-out or failed evaluation
// is dropped and counted as an evaluation failure, never a connection fault.
func (m *Manager) handleEvent(ctx context.Context, ev domain.ItemEvent) {
	evalCtx, cancel := context.WithTimeout(ctx, m.cfg.EvalTimeout)
	defer cancel()

	if err := m.evaluator.Process(evalCtx, ev); err != nil {
		m.health.MarkEvalFailure()
		m.logger.Warn("evaluation dropped",
			slog.String("key", ev.Key),
			slog.String("error", err.Error()),
		)
	}
}

// backoffDelay computes min(max, base << failures). The shift is clamped so
// large failure counts cannot overflow.
func backoffDelay(failures int, base, max time.Duration) time.Duration {
	if failures < 0 {
		failures = 0
	}
	if failures > 30 {
		return max
	}
	delay := base << uint(failures)
	if delay > max || delay <= 0 {
		return max
	}
	return delay
}

// restartDue reports whether either forced-restart condition holds: the
// consecutive-failure limit is reached, or the connection has been away from
// stable for the full stale window without reaching Connected.
func restartDue(snap domain.HealthSnapshot, state domain.ConnectionState, now time.Time, cfg ManagerConfig) bool {
	if cfg.RestartFailureLimit > 0 && snap.ConsecutiveFailures >= cfg.RestartFailureLimit {
		return true
	}
	if cfg.RestartStaleAfter > 0 && state != domain.StateConnected &&
		now.Sub(snap.LastStable) >= cfg.RestartStaleAfter {
		return true
	}
	return false
}
