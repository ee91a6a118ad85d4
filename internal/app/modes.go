package app

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/OkeyDezz/FloatHunter-Discord/internal/notify"
	"github.com/OkeyDezz/FloatHunter-Discord/internal/pipeline"
	"github.com/OkeyDezz/FloatHunter-Discord/internal/platform/empire"
	"github.com/OkeyDezz/FloatHunter-Discord/internal/scanner"
	"github.com/OkeyDezz/FloatHunter-Discord/internal/server"
	"github.com/OkeyDezz/FloatHunter-Discord/internal/server/handler"
)

// ScanMode runs the full pipeline: the streaming connection, the opportunity
// evaluator with live notifications, the health monitor, the HTTP health API,
// and the retention archiver when enabled.
func (a *App) ScanMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting scan mode")

	g, ctx := errgroup.WithContext(ctx)

	evaluator := scanner.NewEvaluator(
		deps.ReferenceStore,
		deps.Notifier,
		deps.OpportunityStore,
		a.evaluatorConfig(),
		a.logger,
	)
	a.startStream(ctx, g, deps, evaluator)

	if deps.Archiver != nil {
		archiver := pipeline.NewArchiver(deps.Archiver, a.cfg.Archive.RetentionDays, a.logger)
		g.Go(func() error {
			return archiver.RunEvery(ctx, a.cfg.Archive.Interval.Duration)
		})
	}

	return g.Wait()
}

// MonitorMode runs the stream and the health API without dispatching
// notifications or logging opportunities. Useful for verifying connectivity
// and reference coverage before going live.
func (a *App) MonitorMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting monitor mode")

	g, ctx := errgroup.WithContext(ctx)

	// A notifier with no senders evaluates everything but delivers nothing.
	evaluator := scanner.NewEvaluator(
		deps.ReferenceStore,
		notify.NewNotifier(nil, a.logger),
		nil,
		a.evaluatorConfig(),
		a.logger,
	)
	a.startStream(ctx, g, deps, evaluator)

	return g.Wait()
}

// startStream adds the stream manager, the health monitor, and (when enabled)
// the HTTP health server to the given errgroup.
func (a *App) startStream(ctx context.Context, g *errgroup.Group, deps *Dependencies, evaluator *scanner.Evaluator) {
	health := scanner.NewHealth(time.Now())

	// The server-side listing filter takes coin cents; the evaluator's USD
	// thresholds stay authoritative.
	priceMax := a.cfg.Scanner.MaxPrice / a.cfg.Empire.CoinFactor * 100

	factory := func() scanner.Transport {
		return empire.NewTransport(deps.Empire, a.cfg.Empire.WSURL, priceMax, a.logger)
	}

	mgr := scanner.NewManager(factory, evaluator, health, scanner.ManagerConfig{
		ConnectTimeout:      a.cfg.Stream.ConnectTimeout.Duration,
		AuthTimeout:         a.cfg.Stream.AuthTimeout.Duration,
		BackoffBase:         a.cfg.Stream.BackoffBase.Duration,
		BackoffMax:          a.cfg.Stream.BackoffMax.Duration,
		RestartFailureLimit: a.cfg.Stream.RestartFailureLimit,
		RestartStaleAfter:   a.cfg.Stream.RestartStaleAfter.Duration,
		FatalRestartLimit:   a.cfg.Stream.FatalRestartLimit,
		EvalTimeout:         a.cfg.Scanner.EvalTimeout.Duration,
	}, a.logger)

	monitor := scanner.NewMonitor(health, mgr, scanner.MonitorConfig{
		Interval:            a.cfg.Stream.MonitorInterval.Duration,
		StallAfter:          a.cfg.Stream.StallAfter.Duration,
		RestartFailureLimit: a.cfg.Stream.RestartFailureLimit,
		RestartStaleAfter:   a.cfg.Stream.RestartStaleAfter.Duration,
	}, a.logger)

	g.Go(func() error {
		return mgr.Run(ctx)
	})
	g.Go(func() error {
		return monitor.Run(ctx)
	})

	if a.cfg.Server.Enabled {
		a.startHTTPServer(ctx, g, health)
	}
}

// startHTTPServer adds the health API goroutine to the given errgroup. The
// server is shut down gracefully when the context is cancelled.
func (a *App) startHTTPServer(ctx context.Context, g *errgroup.Group, health *scanner.Health) {
	srv := server.NewServer(
		server.Config{Port: a.cfg.Server.Port},
		handler.NewHealthHandler(health, a.logger),
		a.logger,
	)

	g.Go(func() error {
		return srv.Start()
	})

	g.Go(func() error {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutCtx)
	})
}

// evaluatorConfig maps the scanner section of the configuration onto the
// evaluator's thresholds.
func (a *App) evaluatorConfig() scanner.EvaluatorConfig {
	return scanner.EvaluatorConfig{
		Factor:          a.cfg.Empire.CoinFactor,
		MinProfitPct:    a.cfg.Scanner.MinProfitPct,
		MinLiquidity:    a.cfg.Scanner.MinLiquidity,
		MinPrice:        a.cfg.Scanner.MinPrice,
		MaxPrice:        a.cfg.Scanner.MaxPrice,
		LookupTimeout:   a.cfg.Scanner.LookupTimeout.Duration,
		DispatchTimeout: a.cfg.Scanner.DispatchTimeout.Duration,
	}
}
