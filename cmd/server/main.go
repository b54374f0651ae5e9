// Command server runs the escrow engines' HTTP surface: the fiber app
// in internal/api, the websocket event hub, the Prometheus metrics
// endpoint, and the program release scheduler — wired together the way
// the teacher's (absent in this snapshot) server entrypoint would have,
// generalized from the config/slog idiom internal/config already
// carries.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/grainlify/escrow-engine/internal/api"
	"github.com/grainlify/escrow-engine/internal/audit"
	"github.com/grainlify/escrow-engine/internal/authn"
	"github.com/grainlify/escrow-engine/internal/bounty"
	"github.com/grainlify/escrow-engine/internal/breaker"
	"github.com/grainlify/escrow-engine/internal/config"
	"github.com/grainlify/escrow-engine/internal/events"
	"github.com/grainlify/escrow-engine/internal/fee"
	"github.com/grainlify/escrow-engine/internal/invariant"
	"github.com/grainlify/escrow-engine/internal/ledger"
	"github.com/grainlify/escrow-engine/internal/metrics"
	"github.com/grainlify/escrow-engine/internal/program"
	"github.com/grainlify/escrow-engine/internal/store"
	"github.com/grainlify/escrow-engine/internal/token"
	"github.com/grainlify/escrow-engine/internal/upgrade"
)

func main() {
	cfg := config.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel()}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	const contract = "escrow-engine"
	hub := events.NewHub(logger, contract)
	go hub.Run(ctx)

	st, closeStore := buildStore(ctx, cfg, logger)
	if closeStore != nil {
		defer closeStore()
	}
	tok := token.NewInMemory()

	rt := ledger.NewRuntime(ledger.SystemClock{}, ledger.CallerAuthorizer{}, hub, contract)

	adminCtx := ledger.WithCaller(ctx, cfg.AdminAddress)

	bountyEngine := bounty.New(rt, st, tok)
	if cfg.AdminAddress != "" {
		if err := bountyEngine.Init(adminCtx, cfg.AdminAddress, "native"); err != nil {
			logger.Warn("bounty engine init skipped", "error", err)
		}
		if err := bountyEngine.UpdateFeeConfig(adminCtx, bounty.FeeConfig{
			ReleaseFeeRateBp: cfg.DefaultFeeRateBp,
			FeeRecipient:     cfg.FeeRecipient,
			Enabled:          cfg.FeeEnabled,
		}); err != nil {
			logger.Warn("bounty fee config not applied at startup", "error", err)
		}
		if err := bountyEngine.SetClaimWindow(adminCtx, cfg.ClaimWindowSeconds); err != nil {
			logger.Warn("bounty claim window not applied at startup", "error", err)
		}
	}

	programEngine := program.New(rt, st, tok, cfg.AdminAddress)
	if err := programEngine.SetCircuitConfig(adminCtx, breaker.Config{
		FailureThreshold: cfg.CircuitFailureThreshold,
		SuccessThreshold: cfg.CircuitSuccessThreshold,
		MaxErrorLog:      cfg.CircuitMaxErrorLog,
	}); err != nil {
		logger.Warn("program circuit config not applied at startup", "error", err)
	}
	if err := programEngine.UpdateFeeConfig(adminCtx, fee.Config{
		PayoutFeeRateBp: cfg.DefaultFeeRateBp,
		FeeRecipient:    cfg.FeeRecipient,
		Enabled:         cfg.FeeEnabled,
	}); err != nil {
		logger.Warn("program fee config not applied at startup", "error", err)
	}

	sched, err := program.NewScheduler(programEngine, logger, "* * * * *")
	if err != nil {
		logger.Error("failed to build release scheduler", "error", err)
		os.Exit(1)
	}
	sched.Start()
	defer sched.Stop()

	checker := invariant.New(cfg.InvariantChecksEnabled)
	go runInvariantSweeps(ctx, checker, bountyEngine, programEngine, logger)

	metrics.Register(prometheus.DefaultRegisterer)
	auditLog := audit.Default(contract)
	issuer := authn.NewIssuer(cfg.JWTSecret, time.Hour)
	upgradeCtl := upgrade.New(rt, cfg.AdminAddress, cfg.InitialWasmHash)

	app := api.New(cfg, api.Deps{
		Bounty:  bountyEngine,
		Program: programEngine,
		Upgrade: upgradeCtl,
		Hub:     hub,
		Issuer:  issuer,
		Audit:   auditLog,
	})

	errCh := make(chan error, 1)
	go func() {
		errCh <- app.Listen(cfg.HTTPAddr)
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := app.ShutdownWithContext(shutdownCtx); err != nil {
			logger.Error("graceful shutdown failed", "error", err)
		}
	case err := <-errCh:
		if err != nil {
			logger.Error("server exited", "error", err)
			os.Exit(1)
		}
	}
}

func buildStore(ctx context.Context, cfg config.Config, logger *slog.Logger) (store.Store, func()) {
	if cfg.DBURL == "" {
		return store.NewMemory(), nil
	}
	pg, err := store.NewPostgres(ctx, cfg.DBURL)
	if err != nil {
		logger.Warn("postgres unavailable, falling back to in-memory store", "error", err)
		return store.NewMemory(), nil
	}
	return pg, pg.Close
}

// runInvariantSweeps re-derives and asserts both engines' post-condition
// invariants on a fixed interval, the CI-only pass of spec.md §4.14 run
// continuously in production as well — a violation panics, which this
// goroutine recovers and logs rather than taking the whole process down
// on what is meant to be a diagnostic check.
func runInvariantSweeps(ctx context.Context, checker *invariant.Checker, b *bounty.Engine, p *program.Engine, logger *slog.Logger) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sweep(checker, b, p, logger)
		}
	}
}

func sweep(checker *invariant.Checker, b *bounty.Engine, p *program.Engine, logger *slog.Logger) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("invariant check failed", "panic", r)
		}
	}()
	checker.CheckBounty(b)
	checker.CheckProgram(p)
}
