package scanner

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/OkeyDezz/FloatHunter-Discord/internal/domain"
)

func testManagerConfig() ManagerConfig {
	return ManagerConfig{
		ConnectTimeout:      time.Second,
		AuthTimeout:         time.Second,
		BackoffBase:         time.Millisecond,
		BackoffMax:          10 * time.Millisecond,
		RestartFailureLimit: 10,
		RestartStaleAfter:   time.Hour,
		EvalTimeout:         time.Second,
	}
}

// sessionCounters track successful opens against completed closes across all
// transports a test creates.
type sessionCounters struct {
	opens  atomic.Int32
	closes atomic.Int32
}

type fakeTransport struct {
	counters   *sessionCounters
	connectErr error
	authErr    error
	events     chan domain.ItemEvent

	mu     sync.Mutex
	opened bool
	closed bool
}

func newFakeTransport(c *sessionCounters) *fakeTransport {
	return &fakeTransport{counters: c, events: make(chan domain.ItemEvent)}
}

func (f *fakeTransport) Connect(ctx context.Context) error {
	if f.connectErr != nil {
		return f.connectErr
	}
	f.mu.Lock()
	f.opened = true
	f.mu.Unlock()
	f.counters.opens.Add(1)
	return nil
}

func (f *fakeTransport) Authenticate(ctx context.Context) error {
	return f.authErr
}

func (f *fakeTransport) ReadEvent(ctx context.Context) (domain.ItemEvent, error) {
	select {
	case <-ctx.Done():
		return domain.ItemEvent{}, ctx.Err()
	case ev, ok := <-f.events:
		if !ok {
			return domain.ItemEvent{}, domain.ErrWSDisconnect
		}
		return ev, nil
	}
}

func (f *fakeTransport) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return nil
	}
	f.closed = true
	if f.opened {
		f.counters.closes.Add(1)
	}
	return nil
}

func (f *fakeTransport) wasClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

// fakeFactory hands out one transport per connection attempt, built by next.
type fakeFactory struct {
	mu   sync.Mutex
	made []*fakeTransport
	next func(attempt int) *fakeTransport
}

func (f *fakeFactory) New() Transport {
	f.mu.Lock()
	defer f.mu.Unlock()
	tr := f.next(len(f.made))
	f.made = append(f.made, tr)
	return tr
}

func (f *fakeFactory) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.made)
}

func (f *fakeFactory) transports() []*fakeTransport {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*fakeTransport(nil), f.made...)
}

func waitFor(t *testing.T, msg string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", msg)
}

func newTestManager(factory *fakeFactory, cfg ManagerConfig) (*Manager, *fakeDispatcher) {
	refs := &fakeRefStore{record: domain.ReferenceRecord{Key: "AK47-RedLine", ReferencePrice: 650.0, LiquidityScore: 0.8}}
	disp := &fakeDispatcher{}
	eval := NewEvaluator(refs, disp, nil, testEvalConfig(), testLogger())
	health := NewHealth(time.Now())
	return NewManager(factory.New, eval, health, cfg, testLogger()), disp
}

func TestBackoffDelay(t *testing.T) {
	base, max := time.Second, 300*time.Second

	tests := []struct {
		failures int
		want     time.Duration
	}{
		{0, 1 * time.Second},
		{1, 2 * time.Second},
		{2, 4 * time.Second},
		{3, 8 * time.Second},
		{6, 64 * time.Second},
		{8, 256 * time.Second},
		{9, 300 * time.Second},
		{10, 300 * time.Second},
		{40, 300 * time.Second},
		{-1, 1 * time.Second},
	}
	for _, tt := range tests {
		if got := backoffDelay(tt.failures, base, max); got != tt.want {
			t.Errorf("backoffDelay(%d) = %v, want %v", tt.failures, got, tt.want)
		}
	}
}

func TestRestartDue(t *testing.T) {
	cfg := ManagerConfig{RestartFailureLimit: 10, RestartStaleAfter: time.Hour}
	now := time.Now()

	tests := []struct {
		name     string
		failures int
		state    domain.ConnectionState
		stable   time.Time
		want     bool
	}{
		{"below failure limit", 9, domain.StateDisconnected, now, false},
		{"at failure limit", 10, domain.StateDisconnected, now, true},
		{"over failure limit", 11, domain.StateDisconnected, now, true},
		{"stale just under window", 0, domain.StateDisconnected, now.Add(-time.Hour + time.Second), false},
		{"stale at window", 0, domain.StateDisconnected, now.Add(-time.Hour), true},
		{"stale but connected", 0, domain.StateConnected, now.Add(-2 * time.Hour), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snap := domain.HealthSnapshot{ConsecutiveFailures: tt.failures, LastStable: tt.stable}
			if got := restartDue(snap, tt.state, now, cfg); got != tt.want {
				t.Errorf("restartDue = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRunClosesEveryTransport(t *testing.T) {
	counters := &sessionCounters{}
	dialErr := errors.New("dial refused")
	factory := &fakeFactory{next: func(attempt int) *fakeTransport {
		tr := newFakeTransport(counters)
		if attempt < 2 {
			tr.connectErr = dialErr
		}
		return tr
	}}

	m, _ := newTestManager(factory, testManagerConfig())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- m.Run(ctx) }()

	waitFor(t, "authenticated session", func() bool {
		return m.Health().State() == domain.StateConnected
	})

	snap := m.Health().Snapshot()
	if snap.ConsecutiveFailures != 0 {
		t.Errorf("consecutive failures after reauth = %d, want 0", snap.ConsecutiveFailures)
	}
	if snap.TotalReconnects != 2 {
		t.Errorf("total reconnects = %d, want 2", snap.TotalReconnects)
	}

	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Fatalf("Run returned %v, want context.Canceled", err)
	}

	for i, tr := range factory.transports() {
		if !tr.wasClosed() {
			t.Errorf("transport %d never closed", i)
		}
	}
	if opens, closes := counters.opens.Load(), counters.closes.Load(); opens != closes {
		t.Errorf("opens = %d, closes = %d; every open session must be torn down", opens, closes)
	}
}

func TestRunReconnectRequest(t *testing.T) {
	counters := &sessionCounters{}
	factory := &fakeFactory{next: func(int) *fakeTransport {
		return newFakeTransport(counters)
	}}

	m, _ := newTestManager(factory, testManagerConfig())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- m.Run(ctx) }()

	waitFor(t, "first session", func() bool {
		return m.Health().State() == domain.StateConnected
	})

	m.RequestReconnect()

	waitFor(t, "second session", func() bool {
		return factory.count() == 2 && m.Health().State() == domain.StateConnected
	})

	snap := m.Health().Snapshot()
	if snap.ConsecutiveFailures != 0 {
		t.Errorf("consecutive failures after reauth = %d, want 0", snap.ConsecutiveFailures)
	}
	if snap.TotalReconnects != 1 {
		t.Errorf("total reconnects = %d, want 1", snap.TotalReconnects)
	}

	cancel()
	<-done
	if opens, closes := counters.opens.Load(), counters.closes.Load(); opens != closes {
		t.Errorf("opens = %d, closes = %d", opens, closes)
	}
}

func TestRunRestartRequestResetsFailures(t *testing.T) {
	counters := &sessionCounters{}
	authErr := errors.New("auth rejected")
	factory := &fakeFactory{next: func(attempt int) *fakeTransport {
		tr := newFakeTransport(counters)
		if attempt < 2 {
			tr.authErr = authErr
		}
		return tr
	}}

	cfg := testManagerConfig()
	m, _ := newTestManager(factory, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- m.Run(ctx) }()

	waitFor(t, "failures to accumulate", func() bool {
		return m.Health().Snapshot().ConsecutiveFailures == 2
	})

	m.RequestRestart()

	waitFor(t, "restarted session", func() bool {
		snap := m.Health().Snapshot()
		return m.Health().State() == domain.StateConnected && snap.TotalRestarts == 1
	})

	if snap := m.Health().Snapshot(); snap.ConsecutiveFailures != 0 {
		t.Errorf("restart must reset consecutive failures, got %d", snap.ConsecutiveFailures)
	}

	cancel()
	<-done
}

func TestRunForcedRestartAtFailureLimit(t *testing.T) {
	counters := &sessionCounters{}
	dialErr := errors.New("dial refused")
	factory := &fakeFactory{next: func(attempt int) *fakeTransport {
		tr := newFakeTransport(counters)
		if attempt < 3 {
			tr.connectErr = dialErr
		}
		return tr
	}}

	cfg := testManagerConfig()
	cfg.RestartFailureLimit = 3
	m, _ := newTestManager(factory, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- m.Run(ctx) }()

	waitFor(t, "forced restart then recovery", func() bool {
		snap := m.Health().Snapshot()
		return snap.TotalRestarts == 1 && m.Health().State() == domain.StateConnected
	})

	if snap := m.Health().Snapshot(); snap.ConsecutiveFailures != 0 {
		t.Errorf("consecutive failures after restart = %d, want 0", snap.ConsecutiveFailures)
	}

	cancel()
	<-done
}

func TestRunEscalatesWhenRestartsKeepFailing(t *testing.T) {
	counters := &sessionCounters{}
	authErr := errors.New("auth rejected")
	factory := &fakeFactory{next: func(int) *fakeTransport {
		tr := newFakeTransport(counters)
		tr.authErr = authErr
		return tr
	}}

	cfg := testManagerConfig()
	cfg.RestartFailureLimit = 2
	cfg.FatalRestartLimit = 1
	m, _ := newTestManager(factory, cfg)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := m.Run(ctx)
	if !errors.Is(err, domain.ErrUnrecoverable) {
		t.Fatalf("Run returned %v, want ErrUnrecoverable", err)
	}
	if opens, closes := counters.opens.Load(), counters.closes.Load(); opens != closes {
		t.Errorf("opens = %d, closes = %d", opens, closes)
	}
}

func TestRunDispatchesEventsInOrder(t *testing.T) {
	counters := &sessionCounters{}
	factory := &fakeFactory{next: func(int) *fakeTransport {
		return newFakeTransport(counters)
	}}

	m, disp := newTestManager(factory, testManagerConfig())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- m.Run(ctx) }()

	waitFor(t, "session", func() bool {
		return m.Health().State() == domain.StateConnected
	})

	tr := factory.transports()[0]
	tr.events <- domain.ItemEvent{Key: "AK47-RedLine", Price: 900, Kind: domain.KindNew, ReceivedAt: time.Now()}
	tr.events <- domain.ItemEvent{Key: "AK47-RedLine", Price: 1000, Kind: domain.KindUpdate, ReceivedAt: time.Now()}

	waitFor(t, "both dispatches", func() bool { return disp.dispatched() == 2 })

	disp.mu.Lock()
	first, second := disp.results[0], disp.results[1]
	disp.mu.Unlock()
	if first.NormalizedPrice >= second.NormalizedPrice {
		t.Errorf("events dispatched out of arrival order: %v then %v",
			first.NormalizedPrice, second.NormalizedPrice)
	}

	cancel()
	<-done
}

func TestRunEvalFaultDoesNotDropConnection(t *testing.T) {
	counters := &sessionCounters{}
	factory := &fakeFactory{next: func(int) *fakeTransport {
		return newFakeTransport(counters)
	}}

	refs := &fakeRefStore{err: errors.New("store down")}
	disp := &fakeDispatcher{}
	eval := NewEvaluator(refs, disp, nil, testEvalConfig(), testLogger())
	health := NewHealth(time.Now())
	m := NewManager(factory.New, eval, health, testManagerConfig(), testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- m.Run(ctx) }()

	waitFor(t, "session", func() bool {
		return m.Health().State() == domain.StateConnected
	})

	factory.transports()[0].events <- domain.ItemEvent{Key: "AK47-RedLine", Price: 1000, Kind: domain.KindNew}

	waitFor(t, "eval failure recorded", func() bool {
		return m.Health().Snapshot().EvalFailures == 1
	})

	if state := m.Health().State(); state != domain.StateConnected {
		t.Errorf("evaluation fault must not touch the connection, state = %v", state)
	}
	if snap := m.Health().Snapshot(); snap.ConsecutiveFailures != 0 {
		t.Errorf("consecutive failures = %d, want 0", snap.ConsecutiveFailures)
	}

	cancel()
	<-done
}
