// Package worker bootstraps the River job queue.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
	"github.com/riverqueue/river/rivermigrate"
)

// SessionPurger removes expired session rows and reports how many were
// deleted. Satisfied by session.Ledger.
type SessionPurger interface {
	PurgeExpired(ctx context.Context) (int64, error)
}

// SessionPurgeArgs is the periodic job that sweeps expired sessions. The
// ledger already refuses expired tokens; this job reclaims the rows its
// best-effort lazy deletes leave behind.
type SessionPurgeArgs struct{}

// Kind returns the unique job type identifier for session purge jobs.
func (SessionPurgeArgs) Kind() string { return "session_purge" }

type sessionPurgeWorker struct {
	river.WorkerDefaults[SessionPurgeArgs]
	purger SessionPurger
	log    *slog.Logger
}

func (w *sessionPurgeWorker) Work(ctx context.Context, _ *river.Job[SessionPurgeArgs]) error {
	n, err := w.purger.PurgeExpired(ctx)
	if err != nil {
		return fmt.Errorf("session purge job: %w", err)
	}
	w.log.Debug("session purge job executed", "deleted", n)
	return nil
}

// Queue is the interface exposed by both the real River client and noopQueue.
type Queue interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

// Client wraps river.Client and exposes a Start/Stop lifecycle.
type Client struct {
	client *river.Client[pgx.Tx]
	log    *slog.Logger
}

// Start begins processing queued jobs.
func (c *Client) Start(ctx context.Context) error { return c.client.Start(ctx) }

// Stop gracefully shuts down the worker client.
func (c *Client) Stop(ctx context.Context) error { return c.client.Stop(ctx) }

// noopQueue is used when River is unavailable (e.g. DB_DRIVER=sqlite).
// Expired sessions are still unusable on SQLite; only the periodic sweep is
// missing, and the ledger's lazy deletes cover the common case.
type noopQueue struct{ log *slog.Logger }

func (n *noopQueue) Start(_ context.Context) error {
	n.log.Info("worker queue disabled (sqlite driver — River requires postgres)")
	return nil
}
func (n *noopQueue) Stop(_ context.Context) error { return nil }

// Options configures the queue.
type Options struct {
	Driver        string
	Concurrency   int
	PurgeInterval time.Duration
}

// New creates a queue implementation appropriate for the given driver.
//   - "postgres": returns a fully-functional River client backed by pool,
//     with the session purge job scheduled every opts.PurgeInterval.
//   - anything else: returns a no-op queue that logs a startup notice.
//
// pool may be nil when driver != "postgres".
func New(_ context.Context, pool *pgxpool.Pool, purger SessionPurger, opts Options, log *slog.Logger) (Queue, error) {
	if opts.Driver != "postgres" {
		return &noopQueue{log: log}, nil
	}
	workers := river.NewWorkers()
	river.AddWorker(workers, &sessionPurgeWorker{purger: purger, log: log})

	client, err := river.NewClient(riverpgxv5.New(pool), &river.Config{
		Queues: map[string]river.QueueConfig{
			river.QueueDefault: {MaxWorkers: opts.Concurrency},
		},
		Workers: workers,
		Logger:  log,
		PeriodicJobs: []*river.PeriodicJob{
			river.NewPeriodicJob(
				river.PeriodicInterval(opts.PurgeInterval),
				func() (river.JobArgs, *river.InsertOpts) {
					return SessionPurgeArgs{}, nil
				},
				&river.PeriodicJobOpts{RunOnStart: true},
			),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("create river client: %w", err)
	}
	return &Client{client: client, log: log}, nil
}

// MigrateRiver runs River's built-in schema migrations against the given pool.
// Only call this when DB_DRIVER=postgres.
func MigrateRiver(ctx context.Context, db *pgxpool.Pool) error {
	migrator, err := rivermigrate.New(riverpgxv5.New(db), nil)
	if err != nil {
		return fmt.Errorf("create river migrator: %w", err)
	}
	if _, err := migrator.Migrate(ctx, rivermigrate.DirectionUp, nil); err != nil {
		return fmt.Errorf("run river migrations: %w", err)
	}
	return nil
}
