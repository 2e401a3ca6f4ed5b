// Package main is the entry point of the rewards background worker.
//
// The worker:
//   - runs the expiry sweep on an interval when enabled
//   - serves Prometheus metrics
//   - listens for events from other instances so its catalog cache is
//     invalidated by definitions created elsewhere; trigger-driven awards
//     run in the process that recorded the activity
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/learnquest/rewards-engine/config"
	"github.com/learnquest/rewards-engine/internal/app"
	"github.com/learnquest/rewards-engine/internal/infrastructure/scheduler"
	"github.com/learnquest/rewards-engine/internal/infrastructure/scheduler/jobs"
)

func main() {
	if err := run(); err != nil {
		slog.Error("worker failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// ─────────────────────────────────────────────────────────────────────────
	// 1. CONFIGURATION
	// ─────────────────────────────────────────────────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ─────────────────────────────────────────────────────────────────────────
	// 2. ENGINE (store, event bus, cache, handlers)
	// ─────────────────────────────────────────────────────────────────────────
	engine, err := app.New(ctx, cfg, app.Options{SubscribeRemote: true})
	if err != nil {
		return err
	}
	defer func() {
		if err := engine.Close(); err != nil {
			engine.Logger.Error("close engine", "error", err)
		}
	}()
	log := engine.Logger
	slog.SetDefault(log)

	// ─────────────────────────────────────────────────────────────────────────
	// 3. SCHEDULER
	// ─────────────────────────────────────────────────────────────────────────
	sched := scheduler.NewScheduler(scheduler.SchedulerConfig{
		Logger:   log,
		Observer: engine.Metrics,
	})

	if cfg.Scheduler.SweepEnabled {
		schedule, err := scheduler.NewIntervalSchedule(cfg.Scheduler.SweepInterval)
		if err != nil {
			return err
		}
		job := jobs.NewExpireRewardsJob(engine.Commands.ExpireRewards, jobs.ExpireRewardsConfig{
			BatchSize:  cfg.Scheduler.SweepBatchSize,
			MaxBatches: cfg.Scheduler.SweepMaxBatches,
			Timeout:    cfg.Scheduler.JobTimeout,
		}, log)
		if err := sched.Register(job, schedule); err != nil {
			return err
		}
	} else {
		log.Info("expiry sweep disabled")
	}

	if err := sched.Start(ctx); err != nil {
		return err
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 4. METRICS ENDPOINT
	// ─────────────────────────────────────────────────────────────────────────
	var srv *http.Server
	if cfg.Observability.MetricsEnabled {
		mux := http.NewServeMux()
		mux.Handle("/metrics", engine.Metrics.Handler())
		mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
			checkCtx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()

			status, err := engine.Health(checkCtx)
			w.Header().Set("Content-Type", "application/json")
			if err != nil {
				w.WriteHeader(http.StatusServiceUnavailable)
			}
			_ = json.NewEncoder(w).Encode(status)
		})
		srv = &http.Server{
			Addr:              cfg.Observability.MetricsAddr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			log.Info("metrics endpoint listening", "addr", srv.Addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("metrics endpoint failed", "error", err)
				stop()
			}
		}()
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 5. GRACEFUL SHUTDOWN
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("worker running", "store", cfg.Database.Driver, "redis", cfg.Redis.Enabled)
	<-ctx.Done()
	log.Info("shutting down", "timeout", cfg.App.ShutdownTimeout.String())

	shutdownCtx, cancel := engine.ShutdownContext()
	defer cancel()

	if srv != nil {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Warn("metrics endpoint shutdown", "error", err)
		}
	}
	if err := sched.Stop(); err != nil && !errors.Is(err, scheduler.ErrSchedulerNotRunning) {
		log.Warn("scheduler shutdown", "error", err)
	}

	log.Info("shutdown completed")
	return nil
}
