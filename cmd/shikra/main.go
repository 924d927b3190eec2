// Shikra - Loan applicant fraud screening.
// Copyright (c) 2025 opensource.finance
// Licensed under the Apache License 2.0

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

	"github.com/opensource-finance/shikra/internal/api"
	"github.com/opensource-finance/shikra/internal/bus"
	"github.com/opensource-finance/shikra/internal/cache"
	"github.com/opensource-finance/shikra/internal/domain"
	"github.com/opensource-finance/shikra/internal/engine"
	"github.com/opensource-finance/shikra/internal/repository"
	"github.com/opensource-finance/shikra/internal/rules"
	"github.com/opensource-finance/shikra/internal/screening"
	"github.com/opensource-finance/shikra/internal/worker"
)

// Version information (set via ldflags)
var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

func main() {
	// Initialize structured logger
	logLevel := slog.LevelInfo
	if os.Getenv("SHIKRA_DEBUG") == "true" {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	// Log startup
	slog.Info("starting shikra",
		"version", Version,
		"commit", Commit,
		"build_date", BuildDate,
	)

	// Load configuration
	cfg := domain.DefaultConfig()

	// Check for Pro tier via environment
	if os.Getenv("SHIKRA_TIER") == "pro" {
		cfg = domain.ProConfig()
		slog.Info("running in Pro tier mode")
	}

	slog.Info("configuration loaded",
		"tier", cfg.Tier,
		"repository", cfg.Repository.Driver,
		"cache", cfg.Cache.Type,
		"eventbus", cfg.EventBus.Type,
	)

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		slog.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	// Initialize Repository
	repo, err := repository.New(cfg.Repository)
	if err != nil {
		slog.Error("failed to initialize repository", "error", err)
		os.Exit(1)
	}
	defer repo.Close()
	slog.Info("repository initialized", "driver", cfg.Repository.Driver)

	// Seed the built-in rule catalog. Existing definitions are left
	// untouched so operator tuning survives restarts.
	if seeded, err := rules.SeedDefaults(ctx, repo); err != nil {
		slog.Error("failed to seed rule catalog", "error", err)
		os.Exit(1)
	} else if seeded > 0 {
		slog.Info("rule catalog seeded", "rules", seeded)
	}

	// Initialize Cache
	cacheImpl, err := cache.New(cfg.Cache)
	if err != nil {
		slog.Error("failed to initialize cache", "error", err)
		os.Exit(1)
	}
	defer cacheImpl.Close()
	slog.Info("cache initialized", "type", cfg.Cache.Type)

	// Initialize EventBus
	busImpl, err := bus.New(cfg.EventBus)
	if err != nil {
		slog.Error("failed to initialize event bus", "error", err)
		os.Exit(1)
	}
	defer busImpl.Close()
	slog.Info("event bus initialized", "type", cfg.EventBus.Type)

	// Initialize rule catalog reader with the cache in front
	catalog := rules.NewCatalog(repo, cacheImpl, cfg.Cache.LocalTTL)

	// Initialize the expression engine and load any EXPRESSION rules
	custom, err := rules.NewExpressionEngine()
	if err != nil {
		slog.Error("failed to initialize expression engine", "error", err)
		os.Exit(1)
	}
	if err := loadExpressionRules(ctx, catalog, custom); err != nil {
		slog.Error("failed to load expression rules", "error", err)
		os.Exit(1)
	}
	slog.Info("expression engine initialized", "expressions", custom.Count())

	// Initialize the detection engines in execution order
	detectors := []engine.Detector{
		engine.NewIdentity(repo, catalog),
		engine.NewFinancial(catalog),
		engine.NewEmployment(catalog),
		engine.NewCrossVerify(repo, catalog),
	}
	slog.Info("detection engines initialized", "count", len(detectors))

	// Initialize the screening service
	svc := screening.New(repo, catalog, detectors, custom, busImpl, cfg.Screening)
	slog.Info("screening service initialized",
		"max_internal_score", cfg.Screening.MaxInternalScore,
		"risk_score_threshold", cfg.Screening.RiskScoreThreshold,
	)

	// Initialize async Worker (Pro tier)
	var asyncWorker *worker.Worker
	if cfg.Tier == domain.TierPro || os.Getenv("SHIKRA_ASYNC_WORKER") == "true" {
		asyncWorker = worker.NewWorker(busImpl, svc)
		if err := asyncWorker.Start(); err != nil {
			slog.Error("failed to start async worker", "error", err)
		} else {
			slog.Info("async worker started")
		}
	}

	// Initialize Server
	srv := api.NewServer(cfg.Server, repo, cacheImpl, busImpl, svc, catalog, custom, Version)

	// Start Server in goroutine
	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			slog.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	slog.Info("shikra is ready",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
	)

	printBanner(cfg, Version)

	// Wait for shutdown signal
	<-ctx.Done()
	slog.Info("shutting down...")

	// Stop async worker first
	if asyncWorker != nil {
		if err := asyncWorker.Stop(); err != nil {
			slog.Error("failed to stop async worker", "error", err)
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
	}

	slog.Info("shikra shutdown complete")
}

// loadExpressionRules compiles the active EXPRESSION rules from the
// catalog. An empty catalog is fine; rules can be added via POST /rules.
func loadExpressionRules(ctx context.Context, catalog *rules.Catalog, custom *rules.ExpressionEngine) error {
	defs, err := catalog.ActiveRules(ctx)
	if err != nil {
		slog.Warn("failed to read rule catalog", "error", err)
		return nil
	}
	return custom.Reload(defs)
}

func printBanner(cfg *domain.Config, version string) {
	fmt.Println()
	fmt.Println("  ╔═══════════════════════════════════════════╗")
	fmt.Println("  ║               🦅 SHIKRA                   ║")
	fmt.Println("  ║      Loan Fraud Screening Engine          ║")
	fmt.Println("  ║      Every applicant, verified.           ║")
	fmt.Println("  ╚═══════════════════════════════════════════╝")
	fmt.Println()
	fmt.Printf("  Version:  %s\n", version)
	fmt.Printf("  Tier:     %s\n", cfg.Tier)
	fmt.Printf("  Server:   http://%s:%d\n", cfg.Server.Host, cfg.Server.Port)
	fmt.Println()
	fmt.Println("  Endpoints:")
	fmt.Println("    POST /applicants                        - Register an applicant profile")
	fmt.Println("    GET  /applicants/{id}                   - Get an applicant profile")
	fmt.Println("    POST /screenings/{applicantID}          - Run a screening")
	fmt.Println("    POST /screenings/{applicantID}/async    - Queue a screening")
	fmt.Println("    GET  /screenings/{applicantID}/enhanced - Normalized 0-100 assessment")
	fmt.Println("    GET  /applicants/{id}/flags             - Fraud flags for an applicant")
	fmt.Println("    GET  /loans/{id}/flags                  - Fraud flags for a loan")
	fmt.Println("    GET  /flags?severity=HIGH               - Flags at or above a severity")
	fmt.Println("    GET  /rules                             - List the active rule catalog")
	fmt.Println("    POST /rules                             - Create or update a rule")
	fmt.Println("    POST /rules/reload                      - Hot-reload rules")
	fmt.Println("    PUT  /rules/{code}/active               - Toggle a rule")
	fmt.Println("    GET  /health                            - Health check")
	fmt.Println()
}
