// Skylift — over-the-air update distribution control plane
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/skylift/skylift/internal/access"
	skyliftapi "github.com/skylift/skylift/internal/api"
	"github.com/skylift/skylift/internal/api/handler"
	"github.com/skylift/skylift/internal/config"
	"github.com/skylift/skylift/internal/db"
	"github.com/skylift/skylift/internal/health"
	"github.com/skylift/skylift/internal/identity"
	"github.com/skylift/skylift/internal/idp"
	"github.com/skylift/skylift/internal/observability"
	"github.com/skylift/skylift/internal/onboarding"
	"github.com/skylift/skylift/internal/rbac"
	"github.com/skylift/skylift/internal/seed"
	"github.com/skylift/skylift/internal/session"
	"github.com/skylift/skylift/internal/version"
	"github.com/skylift/skylift/internal/worker"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "fatal:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- Observability -------------------------------------------------------
	obs, log, err := observability.New(ctx, &observability.Config{
		ServiceName:    "skylift",
		ServiceVersion: version.Version,
		LogLevel:       cfg.Log.Level,
		LogFormat:      cfg.Log.Format,
		OTLPEndpoint:   cfg.OTel.OTLPEndpoint,
	})
	if err != nil {
		return fmt.Errorf("init observability: %w", err)
	}
	defer obs.Shutdown(context.Background())
	slog.SetDefault(log)
	log.Info("starting skylift", "version", version.Version, "commit", version.Commit, "db_driver", cfg.DB.Driver)

	// --- Database ------------------------------------------------------------
	// db.New opens the connection, runs migrations (AutoMigrate for SQLite,
	// golang-migrate for Postgres), and returns the GORM handle plus an
	// optional pgxpool (non-nil only for postgres, used by River).
	gormDB, pool, err := db.New(ctx, &cfg.DB)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	if pool != nil {
		defer pool.Close()
	}
	log.Info("database ready", "driver", cfg.DB.Driver)

	// --- Seed ----------------------------------------------------------------
	if err := seed.EnsureRoles(ctx, gormDB, log); err != nil {
		return fmt.Errorf("seed roles: %w", err)
	}
	if err := seed.EnsureAdmin(ctx, gormDB, seed.AdminOptions{
		Email:    cfg.App.SeedAdminEmail,
		Password: cfg.App.SeedAdminPassword,
	}, log); err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}

	// --- Core services -------------------------------------------------------
	provider := idp.NewJWT(cfg.JWT.Secret, cfg.JWT.AccessTTL, log)
	resolver := identity.NewResolver(provider, identity.NewStore(gormDB), log)
	ledger := session.NewLedger(session.NewGormStore(gormDB), cfg.Session.TTL, log)
	checker := access.NewChecker(access.NewGormStore(gormDB), log)
	engine := rbac.NewEngine(rbac.NewResolver(rbac.NewGormStore(gormDB), log), log)
	saga := onboarding.NewSaga(onboarding.NewGormStore(gormDB), log)

	// --- Worker queue --------------------------------------------------------
	// River migrations only run when Postgres is available.
	if pool != nil {
		if err := worker.MigrateRiver(ctx, pool); err != nil {
			return fmt.Errorf("river migrations: %w", err)
		}
		log.Info("river migrations applied")
	}

	wq, err := worker.New(ctx, pool, ledger, worker.Options{
		Driver:        cfg.DB.Driver,
		Concurrency:   cfg.Worker.Concurrency,
		PurgeInterval: cfg.Session.PurgeInterval,
	}, log)
	if err != nil {
		return fmt.Errorf("create worker: %w", err)
	}
	if err := wq.Start(ctx); err != nil {
		return fmt.Errorf("start worker: %w", err)
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := wq.Stop(stopCtx); err != nil {
			log.Error("worker stop error", "err", err)
		}
	}()

	// --- HTTP routes ---------------------------------------------------------
	mux := http.NewServeMux()
	skyliftapi.RegisterRoutes(mux,
		skyliftapi.Handlers{
			Health:     health.New(db.NewPinger(gormDB)),
			Auth:       handler.NewAuthHandler(gormDB, ledger, provider, provider),
			Onboarding: handler.NewOnboardingHandler(saga),
			Apps:       handler.NewAppHandler(gormDB),
			Users:      handler.NewUserHandler(gormDB),
		},
		skyliftapi.Guards{
			Resolver: resolver,
			Sessions: ledger,
			Authz:    engine,
			Checker:  checker,
		})
	// Prometheus metrics endpoint
	mux.Handle("GET /metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// --- Start server --------------------------------------------------------
	log.Info("http server listening", "addr", srv.Addr)
	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
		log.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}
	log.Info("server stopped cleanly")
	return nil
}
