// Package api wires the escrow engines' operations (spec.md §6) onto a
// Fiber HTTP surface, grounded on the teacher's internal/api.New app-
// wiring idiom (requestid -> recover -> cors -> logger middleware
// chain, route groups, fiber.Map error bodies) but replacing
// its GitHub/KYC/webhook routes entirely with bounty/program endpoints.
package api

import (
	"context"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"github.com/grainlify/escrow-engine/internal/audit"
	"github.com/grainlify/escrow-engine/internal/authn"
	"github.com/grainlify/escrow-engine/internal/bounty"
	"github.com/grainlify/escrow-engine/internal/cerr"
	"github.com/grainlify/escrow-engine/internal/config"
	"github.com/grainlify/escrow-engine/internal/events"
	"github.com/grainlify/escrow-engine/internal/ledger"
	"github.com/grainlify/escrow-engine/internal/program"
	"github.com/grainlify/escrow-engine/internal/upgrade"
)

// Deps bundles the constructed engines and collaborators the routes
// dispatch into. Built once in cmd/server and handed to New.
type Deps struct {
	Bounty  *bounty.Engine
	Program *program.Engine
	Upgrade *upgrade.Controller
	Hub     *events.Hub
	Issuer  *authn.Issuer
	Audit   *audit.Logger
}

// New builds the Fiber app. The middleware ordering mirrors the
// teacher's: requestid first so every log line (including the panic
// recover's) carries it, then recover, then CORS, then access logging.
func New(cfg config.Config, deps Deps) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:      "escrow-engine-api",
		IdleTimeout:  60 * time.Second,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	})

	explicitOrigins := map[string]struct{}{}
	for _, o := range strings.Split(cfg.CORSOrigins, ",") {
		o = strings.TrimSpace(o)
		if o != "" {
			explicitOrigins[o] = struct{}{}
		}
	}

	app.Use(requestid.New())
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowMethods:     "GET,POST,PUT,PATCH,DELETE,OPTIONS",
		AllowCredentials: true,
		AllowOriginsFunc: func(origin string) bool {
			if strings.HasPrefix(origin, "http://localhost:") || strings.HasPrefix(origin, "http://127.0.0.1:") {
				return true
			}
			_, ok := explicitOrigins[origin]
			return ok
		},
	}))
	app.Use(logger.New())
	app.Use(ingressThrottle(20, time.Minute))

	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"service": "escrow-engine-api", "status": "running"})
	})
	app.Get("/health", func(c *fiber.Ctx) error { return c.JSON(fiber.Map{"status": "ok"}) })
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))
	app.Get("/events", adaptor.HTTPHandlerFunc(deps.Hub.ServeWS))

	authMW := requireBearer(deps.Issuer)

	bountyGroup := app.Group("/bounty")
	bountyGroup.Post("/init", authMW, initBounty(deps))
	bountyGroup.Post("/lock", authMW, lockFunds(deps))
	bountyGroup.Post("/:id/release", authMW, releaseFunds(deps))
	bountyGroup.Post("/:id/partial-release", authMW, partialRelease(deps))
	bountyGroup.Post("/:id/authorize-claim", authMW, authorizeClaim(deps))
	bountyGroup.Post("/:id/claim", authMW, claim(deps))
	bountyGroup.Post("/:id/approve-refund", authMW, approveRefund(deps))
	bountyGroup.Post("/:id/refund", authMW, refund(deps))
	bountyGroup.Get("/:id", getBounty(deps))
	bountyGroup.Get("/", queryBounties(deps))

	programGroup := app.Group("/program")
	programGroup.Post("/init", authMW, initProgram(deps))
	programGroup.Post("/batch-init", authMW, batchInitPrograms(deps))
	programGroup.Post("/:id/lock", authMW, lockProgramFunds(deps))
	programGroup.Post("/:id/payout", authMW, singlePayout(deps))
	programGroup.Post("/:id/payout/:recipient/approve", authMW, approvePayout(deps))
	programGroup.Post("/:id/batch-payout", authMW, batchPayout(deps))
	programGroup.Post("/:id/schedule", authMW, createSchedule(deps))
	programGroup.Post("/trigger-releases", authMW, triggerReleases(deps))
	programGroup.Get("/:id", getProgram(deps))

	adminGroup := app.Group("/admin", authMW, requireAdmin())
	adminGroup.Post("/bounty/pause", pauseBounty(deps))
	adminGroup.Post("/program/pause", pauseProgram(deps))
	adminGroup.Post("/program/circuit/reset", resetCircuit(deps))
	adminGroup.Post("/upgrade", doUpgrade(deps))

	app.Use(func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not_found", "path": c.Path()})
	})

	return app
}

// ingressThrottle rate-limits requests globally per caller IP with
// golang.org/x/time/rate, ahead of and independent from the engines'
// own per-address operation rate limiter (internal/ratelimit) — this is
// the HTTP ingress's own defense, not a domain concern.
func ingressThrottle(rps int, burstWindow time.Duration) fiber.Handler {
	limiters := newIPLimiterStore(rate.Limit(float64(rps)/burstWindow.Seconds()), rps)
	return func(c *fiber.Ctx) error {
		if !limiters.allow(c.IP()) {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{"error": "rate_limited"})
		}
		return c.Next()
	}
}

func writeErr(c *fiber.Ctx, err error) error {
	if ce, ok := err.(*cerr.Error); ok {
		return c.Status(statusForCode(ce.Code)).JSON(fiber.Map{
			"error":   cerr.Name(ce.Code),
			"code":    uint32(ce.Code),
			"message": ce.Message,
		})
	}
	slog.Error("unhandled api error", "err", err)
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal"})
}

func statusForCode(code cerr.Code) int {
	switch code {
	case cerr.Unauthorized:
		return fiber.StatusForbidden
	case cerr.NotFound:
		return fiber.StatusNotFound
	case cerr.AlreadyInitialized, cerr.AlreadyExists, cerr.DuplicateId, cerr.ProgramAlreadyExists:
		return fiber.StatusConflict
	case cerr.InvalidAmount, cerr.InvalidFeeRate, cerr.BatchInvalidSize:
		return fiber.StatusBadRequest
	case cerr.Paused, cerr.CircuitOpen, cerr.RateLimit, cerr.Cooldown:
		return fiber.StatusServiceUnavailable
	default:
		return fiber.StatusUnprocessableEntity
	}
}

func ctxWithCaller(c *fiber.Ctx) context.Context {
	ctx := c.UserContext()
	if addr, ok := c.Locals("caller").(string); ok && addr != "" {
		ctx = ledger.WithCaller(ctx, addr)
	}
	return ctx
}

func paramUint64(c *fiber.Ctx, name string) (uint64, error) {
	return strconv.ParseUint(c.Params(name), 10, 64)
}
