// Package app wires configuration, storage, the promotion engine and the
// HTTP server together.
package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/fairway-promos/internal/clock"
	"github.com/xenking/fairway-promos/internal/domain/promotion"
	"github.com/xenking/fairway-promos/internal/handler"
	"github.com/xenking/fairway-promos/internal/seed"
	"github.com/xenking/fairway-promos/internal/storage/memory"
	"github.com/xenking/fairway-promos/internal/storage/postgres"
	"github.com/xenking/fairway-promos/pkg/health"
	"github.com/xenking/fairway-promos/pkg/httpmiddleware"
)

// store is what both storage backends provide.
type store interface {
	promotion.LedgerStore
	promotion.AdminStore
	seed.Store
}

// Run creates all dependencies, starts the HTTP server, and handles graceful
// shutdown. It is the single wiring point for the application.
func Run(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config) error {
	lg.Info("Initializing", zap.String("addr", cfg.Addr))

	healthSvc := health.New()
	healthSvc.AddLivenessCheck("goroutines", time.Second, health.GoroutineCountCheck(10000))
	healthSvc.AddLivenessCheck("gc", time.Second, health.GCMaxPauseCheck(time.Second), health.WithFailureThreshold(3))

	st, closeStore, err := openStore(ctx, lg, cfg, healthSvc)
	if err != nil {
		return err
	}
	defer closeStore()

	h, err := newHandler(ctx, m, cfg, st, healthSvc)
	if err != nil {
		return err
	}

	healthSvc.Start(ctx, 10*time.Second)
	healthSvc.SetReady(true)

	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		Addr:              cfg.Addr,
		Handler:           h,
	}

	// Graceful shutdown: wait for context cancellation, drain, then stop.
	shutdownDone := make(chan struct{})
	go func() {
		<-ctx.Done()
		healthSvc.SetReady(false)
		lg.Info("Readiness set to false, draining", zap.Duration("delay", cfg.Graceful.ReadinessDelay))
		time.Sleep(cfg.Graceful.ReadinessDelay)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Graceful.ShutdownTimeout)
		defer cancel()

		lg.Info("Shutting down server", zap.Duration("timeout", cfg.Graceful.ShutdownTimeout))
		if err := server.Shutdown(shutdownCtx); err != nil {
			lg.Error("Server shutdown error", zap.Error(err))
		}
		healthSvc.Stop()
		close(shutdownDone)
	}()

	lg.Info("Server listening", zap.String("addr", cfg.Addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "server")
	}
	<-shutdownDone
	return nil
}

// newHandler builds the engine on top of st and returns the fully wrapped
// HTTP handler, health endpoints included.
func newHandler(
	ctx context.Context,
	t httpmiddleware.Telemetry,
	cfg *Config,
	st store,
	healthSvc *health.Health,
) (http.Handler, error) {
	lg := zctx.From(ctx)

	start, err := cfg.SimulationStart()
	if err != nil {
		return nil, err
	}
	clk := clock.NewSimulation(start)
	lg.Info("Simulation clock ready", zap.Time("now", clk.Now()), zap.Bool("pinned", clk.Pinned()))

	// Domain services.
	opts := []promotion.Option{
		promotion.WithMeterProvider(t.MeterProvider()),
		promotion.WithTracerProvider(t.TracerProvider()),
	}
	resolver, err := promotion.NewResolver(st, st, clk, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "create resolver")
	}
	ledger, err := promotion.NewLedger(st, clk, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "create ledger")
	}
	admin := promotion.NewAdmin(st, clk)

	// Router: health endpoints + API routes on one server.
	routes := handler.New(admin, resolver, ledger, clk).Routes()
	routeFinder := handler.RouteFinder(routes)
	root := chi.NewRouter()
	root.Get("/livez", healthSvc.LiveEndpoint)
	root.Get("/readyz", healthSvc.ReadyEndpoint)
	root.Mount("/", routes)

	return httpmiddleware.Wrap(root,
		httpmiddleware.Recovery(),
		httpmiddleware.RateLimitWithCleanup(ctx, httpmiddleware.RateLimitConfig{
			Rate:  cfg.RateLimit.Rate,
			Burst: cfg.RateLimit.Burst,
		}),
		httpmiddleware.RequestID(),
		httpmiddleware.InjectLogger(lg),
		httpmiddleware.Instrument("promo-api", routeFinder, t),
		httpmiddleware.LogRequests(routeFinder),
	), nil
}

// openStore selects PostgreSQL when a database URL is configured and the
// in-memory store otherwise.
func openStore(ctx context.Context, lg *zap.Logger, cfg *Config, healthSvc *health.Health) (store, func(), error) {
	if cfg.DatabaseURL == "" {
		st := memory.New()
		if cfg.Seed {
			n, err := seed.Load(ctx, st)
			if err != nil {
				return nil, nil, errors.Wrap(err, "seed memory store")
			}
			lg.Info("Seeded in-memory store", zap.Int("definitions", n))
		}
		lg.Warn("No database configured, state is lost on restart")
		return st, func() {}, nil
	}

	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, errors.Wrap(err, "create db pool")
	}
	if err := postgres.RunMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, errors.Wrap(err, "run migrations")
	}
	st := postgres.New(pool)
	healthSvc.AddReadinessCheck("postgres", 5*time.Second, health.PingCheck("postgres", st))
	return st, pool.Close, nil
}
