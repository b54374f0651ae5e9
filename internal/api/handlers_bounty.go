package api

import (
	"github.com/gofiber/fiber/v2"

	"github.com/grainlify/escrow-engine/internal/amount"
	"github.com/grainlify/escrow-engine/internal/bounty"
)

func initBounty(deps Deps) fiber.Handler {
	var body struct {
		Admin        string `json:"admin"`
		TokenAddress string `json:"token_address"`
	}
	return func(c *fiber.Ctx) error {
		if err := c.BodyParser(&body); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_body"})
		}
		if err := deps.Bounty.Init(ctxWithCaller(c), body.Admin, body.TokenAddress); err != nil {
			deps.Audit.Mutator("init", body.Admin, err)
			return writeErr(c, err)
		}
		deps.Audit.Mutator("init", body.Admin, nil)
		return c.JSON(fiber.Map{"ok": true})
	}
}

func lockFunds(deps Deps) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body struct {
			Depositor string `json:"depositor"`
			BountyID  uint64 `json:"bounty_id"`
			Amount    string `json:"amount"`
			Deadline  uint64 `json:"deadline"`
		}
		if err := c.BodyParser(&body); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_body"})
		}
		amt, err := amount.FromString(body.Amount)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_amount"})
		}
		err = deps.Bounty.LockFunds(ctxWithCaller(c), body.Depositor, body.BountyID, amt, body.Deadline)
		deps.Audit.Mutator("lock_funds", body.Depositor, err)
		if err != nil {
			return writeErr(c, err)
		}
		return c.JSON(fiber.Map{"ok": true})
	}
}

func releaseFunds(deps Deps) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := paramUint64(c, "id")
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_id"})
		}
		var body struct {
			Contributor string `json:"contributor"`
		}
		_ = c.BodyParser(&body)
		err = deps.Bounty.ReleaseFunds(ctxWithCaller(c), id, body.Contributor)
		deps.Audit.Mutator("release_funds", body.Contributor, err)
		if err != nil {
			return writeErr(c, err)
		}
		return c.JSON(fiber.Map{"ok": true})
	}
}

func partialRelease(deps Deps) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := paramUint64(c, "id")
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_id"})
		}
		var body struct {
			Contributor string `json:"contributor"`
			Amount      string `json:"amount"`
		}
		if err := c.BodyParser(&body); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_body"})
		}
		amt, err := amount.FromString(body.Amount)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_amount"})
		}
		err = deps.Bounty.PartialRelease(ctxWithCaller(c), id, body.Contributor, amt)
		deps.Audit.Mutator("partial_release", body.Contributor, err)
		if err != nil {
			return writeErr(c, err)
		}
		return c.JSON(fiber.Map{"ok": true})
	}
}

func authorizeClaim(deps Deps) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := paramUint64(c, "id")
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_id"})
		}
		var body struct {
			Claimant string `json:"claimant"`
		}
		if err := c.BodyParser(&body); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_body"})
		}
		err = deps.Bounty.AuthorizeClaim(ctxWithCaller(c), id, body.Claimant)
		deps.Audit.Mutator("authorize_claim", body.Claimant, err)
		if err != nil {
			return writeErr(c, err)
		}
		return c.JSON(fiber.Map{"ok": true})
	}
}

func claim(deps Deps) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := paramUint64(c, "id")
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_id"})
		}
		caller, _ := c.Locals("caller").(string)
		err = deps.Bounty.Claim(ctxWithCaller(c), id)
		deps.Audit.Mutator("claim", caller, err)
		if err != nil {
			return writeErr(c, err)
		}
		return c.JSON(fiber.Map{"ok": true})
	}
}

func approveRefund(deps Deps) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := paramUint64(c, "id")
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_id"})
		}
		var body struct {
			Amount string `json:"amount"`
			To     string `json:"to"`
			Mode   string `json:"mode"`
		}
		if err := c.BodyParser(&body); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_body"})
		}
		amt, err := amount.FromString(body.Amount)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_amount"})
		}
		mode := bounty.RefundPartial
		if body.Mode == "full" {
			mode = bounty.RefundFull
		}
		caller, _ := c.Locals("caller").(string)
		err = deps.Bounty.ApproveRefund(ctxWithCaller(c), id, amt, body.To, mode)
		deps.Audit.Mutator("approve_refund", caller, err)
		if err != nil {
			return writeErr(c, err)
		}
		return c.JSON(fiber.Map{"ok": true})
	}
}

func refund(deps Deps) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := paramUint64(c, "id")
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_id"})
		}
		caller, _ := c.Locals("caller").(string)
		err = deps.Bounty.Refund(ctxWithCaller(c), id)
		deps.Audit.Mutator("refund", caller, err)
		if err != nil {
			return writeErr(c, err)
		}
		return c.JSON(fiber.Map{"ok": true})
	}
}

func getBounty(deps Deps) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := paramUint64(c, "id")
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_id"})
		}
		en, err := deps.Bounty.GetEscrowInfo(id)
		if err != nil {
			return writeErr(c, err)
		}
		return c.JSON(en)
	}
}

func queryBounties(deps Deps) fiber.Handler {
	return func(c *fiber.Ctx) error {
		status := c.Query("status")
		offset := c.QueryInt("offset", 0)
		limit := c.QueryInt("limit", 50)
		if status == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "status_required"})
		}
		ids := deps.Bounty.QueryByStatus(bounty.Status(status), offset, limit)
		return c.JSON(fiber.Map{"ids": ids})
	}
}

func pauseBounty(deps Deps) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body struct {
			Lock    *bool `json:"lock"`
			Release *bool `json:"release"`
			Refund  *bool `json:"refund"`
		}
		if err := c.BodyParser(&body); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_body"})
		}
		caller, _ := c.Locals("caller").(string)
		err := deps.Bounty.SetPaused(ctxWithCaller(c), body.Lock, body.Release, body.Refund)
		deps.Audit.Mutator("set_paused_bounty", caller, err)
		if err != nil {
			return writeErr(c, err)
		}
		return c.JSON(fiber.Map{"ok": true})
	}
}
