// Command librarysim drives the lending engine with a simulated library: it seeds a catalog,
// lets concurrent borrowers borrow and return books day by day, sweeps overdue loans every
// evening and finally verifies that availability flags match the active loans.
//
// Usage:
//
//	librarysim -engine=memory -days=90 -workers=16
//	librarysim -config=librarysim.toml -engine=postgres
//
// The JSON report goes to stdout. The exit code is 1 on failure and 2 when the
// availability invariant is broken.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"go.opentelemetry.io/otel"

	"github.com/AntonStoeckl/library-lending-go/config"
	"github.com/AntonStoeckl/library-lending-go/lending"
	"github.com/AntonStoeckl/library-lending-go/lending/memengine"
	"github.com/AntonStoeckl/library-lending-go/lending/oteladapters"
	"github.com/AntonStoeckl/library-lending-go/lending/postgresengine"
	"github.com/AntonStoeckl/library-lending-go/lifecycle"
)

const instrumentationName = "library-lending-simulation"

var errInvariantViolated = errors.New("availability invariant violated")

func main() {
	err := run()

	switch {
	case err == nil:
	case errors.Is(err, errInvariantViolated):
		log.Printf("Simulation finished: %v", err)
		os.Exit(2)
	default:
		log.Fatalf("Simulation failed: %v", err)
	}
}

func run() error {
	opts, err := parseFlags(os.Args[1:])
	if err != nil {
		return err
	}

	cfg, err := opts.resolve()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	observers, shutdown, err := newObservers(ctx, cfg.Observability, opts.verbose)
	if err != nil {
		return err
	}
	defer shutdown()

	engine, closeEngine, err := openEngine(ctx, cfg, observers)
	if err != nil {
		return err
	}
	defer closeEngine()

	log.Printf("Using %s engine (adapter %s), %d books, %d borrowers, %d workers, %d days",
		cfg.Postgres.Engine, cfg.Postgres.Adapter,
		cfg.Simulation.Books, cfg.Simulation.Borrowers, cfg.Simulation.Workers, cfg.Simulation.Days)

	sim, err := NewSimulation(engine, cfg, observers)
	if err != nil {
		return err
	}

	report, err := sim.Run(ctx)
	if err != nil {
		return err
	}

	if err := writeReport(os.Stdout, report); err != nil {
		return err
	}

	if !report.Invariant.Holds {
		return fmt.Errorf("%w: %d books affected", errInvariantViolated, len(report.Invariant.Violations))
	}

	return nil
}

// observers bundles the observability adapters handed to the engine and the manager.
type observers struct {
	logger           lending.Logger
	contextualLogger lending.ContextualLogger
	metrics          lending.MetricsCollector
	tracing          lending.TracingCollector
}

func newObservers(ctx context.Context, cfg config.ObservabilityConfig, verbose bool) (observers, func(), error) {
	var obs observers

	if verbose {
		obs.logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}

	if !cfg.Enabled {
		return obs, func() {}, nil
	}

	providers, err := config.NewObservabilityProviders(ctx, cfg)
	if err != nil {
		return observers{}, nil, fmt.Errorf("failed to create observability providers: %w", err)
	}

	obs.contextualLogger = oteladapters.NewSlogBridgeLogger(instrumentationName)
	obs.metrics = oteladapters.NewMetricsCollector(otel.Meter(instrumentationName))
	obs.tracing = oteladapters.NewTracingCollector(otel.Tracer(instrumentationName))

	shutdown := func() {
		if shutdownErr := providers.Shutdown(context.Background()); shutdownErr != nil {
			log.Printf("Shutting down observability providers failed: %v", shutdownErr)
		}
	}

	return obs, shutdown, nil
}

func openEngine(ctx context.Context, cfg config.Config, obs observers) (lending.Engine, func(), error) {
	if cfg.Postgres.Engine == config.EngineMemory {
		var options []memengine.Option
		if obs.logger != nil {
			options = append(options, memengine.WithLogger(obs.logger))
		}

		return memengine.NewEngine(options...), func() {}, nil
	}

	options := []postgresengine.Option{
		postgresengine.WithLogger(obs.logger),
		postgresengine.WithContextualLogger(obs.contextualLogger),
		postgresengine.WithMetrics(obs.metrics),
		postgresengine.WithTracing(obs.tracing),
	}

	pg, err := config.OpenPostgresEngine(ctx, cfg.Postgres.Adapter, cfg.Postgres.DSN, cfg.Postgres.ReplicaDSN, options...)
	if err != nil {
		return nil, nil, err
	}

	if err := pg.Engine.EnsureSchema(ctx); err != nil {
		pg.Close()
		return nil, nil, err
	}

	if err := pg.Engine.Truncate(ctx); err != nil {
		pg.Close()
		return nil, nil, err
	}

	return pg.Engine, pg.Close, nil
}

func managerOptions(cfg config.Config, clock lending.Clock, obs observers) []lifecycle.Option {
	return []lifecycle.Option{
		lifecycle.WithClock(clock),
		lifecycle.WithLoanPeriod(cfg.Lending.LoanPeriodDays),
		lifecycle.WithRetryOptions(lifecycle.WithMaxAttempts(cfg.Lending.RetryAttempts)),
		lifecycle.WithLogger(obs.logger),
		lifecycle.WithContextualLogger(obs.contextualLogger),
		lifecycle.WithMetrics(obs.metrics),
		lifecycle.WithTracing(obs.tracing),
	}
}
