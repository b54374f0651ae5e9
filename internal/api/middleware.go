package api

import (
	"strings"
	"sync"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/time/rate"

	"github.com/grainlify/escrow-engine/internal/authn"
)

// requireBearer validates the Authorization: Bearer <jwt> header via
// issuer and stashes the authenticated address under "caller" /
// "admin" fiber.Locals, mirroring bmachimbira-loyalty's RequireAuth
// middleware shape. This populates the caller identity ledger.WithCaller
// reads; it is not the engines' own RequireAuth assertion.
func requireBearer(issuer *authn.Issuer) fiber.Handler {
	return func(c *fiber.Ctx) error {
		header := c.Get("Authorization")
		token := strings.TrimPrefix(header, "Bearer ")
		if token == "" || token == header {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "missing_bearer_token"})
		}
		claims, err := issuer.Verify(token)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid_token"})
		}
		c.Locals("caller", claims.Address)
		c.Locals("admin", claims.Admin)
		return c.Next()
	}
}

// requireAdmin rejects callers whose token was not minted with the
// admin claim. Only gates reaching the handler; the engines still
// re-check RequireAuth/admin identity themselves.
func requireAdmin() fiber.Handler {
	return func(c *fiber.Ctx) error {
		admin, _ := c.Locals("admin").(bool)
		if !admin {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "admin_required"})
		}
		return c.Next()
	}
}

// ipLimiterStore keeps one golang.org/x/time/rate.Limiter per source IP
// for ingress throttling, grounded on the standard per-key limiter map
// pattern in the x/time/rate godoc.
type ipLimiterStore struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	r        rate.Limit
	burst    int
}

func newIPLimiterStore(r rate.Limit, burst int) *ipLimiterStore {
	return &ipLimiterStore{limiters: make(map[string]*rate.Limiter), r: r, burst: burst}
}

func (s *ipLimiterStore) allow(ip string) bool {
	s.mu.Lock()
	l, ok := s.limiters[ip]
	if !ok {
		l = rate.NewLimiter(s.r, s.burst)
		s.limiters[ip] = l
	}
	s.mu.Unlock()
	return l.Allow()
}
