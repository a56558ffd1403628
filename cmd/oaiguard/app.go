package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/steveyegge/oaiguard/internal/ai"
	"github.com/steveyegge/oaiguard/internal/config"
	"github.com/steveyegge/oaiguard/internal/heuristics"
	"github.com/steveyegge/oaiguard/internal/incident"
	"github.com/steveyegge/oaiguard/internal/metrics"
	"github.com/steveyegge/oaiguard/internal/poll"
	"github.com/steveyegge/oaiguard/internal/remediation"
	"github.com/steveyegge/oaiguard/internal/storage"
	"github.com/steveyegge/oaiguard/internal/triage"
)

// app bundles the collaborators built from the process configuration.
type app struct {
	cfg   config.Config
	orch  *triage.Orchestrator
	store *incident.Store
	cache storage.HistoryCache // nil when the cache could not be opened
	opts  triage.Options
}

// newApp wires the triage pipeline. Only the incident directory is
// mandatory: a broken cache or an unusable model degrade the pipeline.
func newApp(ctx context.Context, cfg config.Config, logger *slog.Logger) (*app, error) {
	store, err := incident.NewStore(cfg.IncidentDir)
	if err != nil {
		return nil, fmt.Errorf("failed to open incident directory: %w", err)
	}

	a := &app{cfg: cfg, store: store, opts: triage.OptionsFromConfig(cfg)}

	// Opened even when reads are off so fresh answers still reach the cache.
	cache, err := storage.NewHistoryCache(ctx, storage.Config{Path: cfg.HistoryPath()})
	if err != nil {
		logger.Warn("history cache unavailable, continuing without it", "path", cfg.HistoryPath(), "error", err)
	} else {
		a.cache = cache
		if cfg.HistoryRetention > 0 {
			if n, err := cache.Prune(ctx, time.Now().Add(-cfg.HistoryRetention)); err != nil {
				logger.Warn("history prune failed", "error", err)
			} else if n > 0 {
				logger.Info("pruned stale history entries", "count", n)
			}
		}
	}

	var client ai.Client
	if !cfg.FastOnly {
		client, err = newInferenceClient(cfg, logger)
		if err != nil {
			logger.Warn("inference disabled", "engine", cfg.Engine, "error", err)
			client = nil
		}
	}

	runner := remediation.NewRunner(cfg.CommandTimeout, logger)
	rem := &remediation.Remediator{
		Runner:         runner,
		Authorizer:     remediation.NewAuthorizer(cfg.AutoPolicy, cfg.WhitelistFile),
		VerifyTimeout:  cfg.VerifyTimeout,
		VerifyInterval: cfg.VerifyInterval,
		Poller:         poll.Poller{},
		Logger:         logger,
	}

	deps := triage.Deps{
		Cache:            a.cache,
		Matcher:          heuristics.New(nil),
		Client:           client,
		Diagnostics:      runner,
		Fixes:            rem,
		Store:            store,
		Allowlist:        cfg.AllowlistCopy(),
		InferenceTimeout: cfg.InferenceTimeout,
		Engine:           cfg.Engine,
		Model:            cfg.EffectiveModel(),
		Logger:           logger,
		Metrics:          metrics.New(),
	}
	a.orch, err = triage.New(deps)
	if err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func newInferenceClient(cfg config.Config, logger *slog.Logger) (ai.Client, error) {
	inner, err := ai.NewClient(ai.Config{
		Engine:      cfg.Engine,
		Model:       cfg.EffectiveModel(),
		BaseURL:     cfg.EffectiveBaseURL(),
		APIKey:      cfg.APIKey,
		MaxTokens:   cfg.MaxTokens,
		Temperature: cfg.Temperature,
		KeepAlive:   cfg.KeepAlive,
		Logger:      logger,
	})
	if err != nil {
		return nil, err
	}
	return ai.NewSupervisor(inner, ai.SupervisorConfig{
		MaxConcurrentCalls: cfg.MaxConcurrentInference,
		RequestsPerSecond:  cfg.InferenceRPS,
		Logger:             logger,
	})
}

// Close releases the history cache.
func (a *app) Close() {
	if a.cache != nil {
		if err := a.cache.Close(); err != nil {
			logger.Warn("failed to close history cache", "error", err)
		}
	}
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// startMetricsServer serves /metrics until ctx ends. It is a no-op when
// addr is empty.
func startMetricsServer(ctx context.Context, addr string, logger *slog.Logger) {
	if addr == "" {
		return
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		logger.Info("serving metrics", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", "error", err)
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
}
