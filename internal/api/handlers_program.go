package api

import (
	"github.com/gofiber/fiber/v2"

	"github.com/grainlify/escrow-engine/internal/amount"
	"github.com/grainlify/escrow-engine/internal/program"
)

func initProgram(deps Deps) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body struct {
			ProgramID      string `json:"program_id"`
			AuthorizedKey  string `json:"authorized_payout_key"`
			TokenAddress   string `json:"token_address"`
		}
		if err := c.BodyParser(&body); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_body"})
		}
		caller, _ := c.Locals("caller").(string)
		err := deps.Program.InitProgram(ctxWithCaller(c), body.ProgramID, body.AuthorizedKey, body.TokenAddress)
		deps.Audit.Mutator("init_program", caller, err)
		if err != nil {
			return writeErr(c, err)
		}
		return c.JSON(fiber.Map{"ok": true})
	}
}

func batchInitPrograms(deps Deps) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body struct {
			Items []struct {
				ProgramID     string `json:"program_id"`
				AuthorizedKey string `json:"authorized_payout_key"`
				TokenAddress  string `json:"token_address"`
			} `json:"items"`
		}
		if err := c.BodyParser(&body); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_body"})
		}
		items := make([]program.BatchInitRequest, len(body.Items))
		for i, it := range body.Items {
			items[i] = program.BatchInitRequest{ProgramID: it.ProgramID, AuthorizedKey: it.AuthorizedKey, TokenAddress: it.TokenAddress}
		}
		caller, _ := c.Locals("caller").(string)
		err := deps.Program.BatchInitializePrograms(ctxWithCaller(c), items)
		deps.Audit.Mutator("batch_initialize_programs", caller, err)
		if err != nil {
			return writeErr(c, err)
		}
		return c.JSON(fiber.Map{"ok": true})
	}
}

func lockProgramFunds(deps Deps) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		var body struct {
			Amount string `json:"amount"`
		}
		if err := c.BodyParser(&body); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_body"})
		}
		amt, err := amount.FromString(body.Amount)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_amount"})
		}
		caller, _ := c.Locals("caller").(string)
		err = deps.Program.LockProgramFunds(ctxWithCaller(c), id, amt)
		deps.Audit.Mutator("lock_program_funds", caller, err)
		if err != nil {
			return writeErr(c, err)
		}
		return c.JSON(fiber.Map{"ok": true})
	}
}

func singlePayout(deps Deps) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		var body struct {
			Recipient string `json:"recipient"`
			Amount    string `json:"amount"`
		}
		if err := c.BodyParser(&body); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_body"})
		}
		amt, err := amount.FromString(body.Amount)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_amount"})
		}
		caller, _ := c.Locals("caller").(string)
		approvalID, err := deps.Program.SinglePayout(ctxWithCaller(c), id, body.Recipient, amt)
		deps.Audit.Mutator("single_payout", caller, err)
		if err != nil {
			return writeErr(c, err)
		}
		return c.JSON(fiber.Map{"ok": true, "approval_id": approvalID})
	}
}

func approvePayout(deps Deps) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		recipient := c.Params("recipient")
		caller, _ := c.Locals("caller").(string)
		err := deps.Program.ApprovePayout(ctxWithCaller(c), id, recipient, caller)
		deps.Audit.Mutator("approve_payout", caller, err)
		if err != nil {
			return writeErr(c, err)
		}
		return c.JSON(fiber.Map{"ok": true})
	}
}

func batchPayout(deps Deps) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		var body struct {
			Recipients []string `json:"recipients"`
			Amounts    []string `json:"amounts"`
		}
		if err := c.BodyParser(&body); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_body"})
		}
		amts := make([]amount.Amount, len(body.Amounts))
		for i, s := range body.Amounts {
			a, err := amount.FromString(s)
			if err != nil {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_amount"})
			}
			amts[i] = a
		}
		caller, _ := c.Locals("caller").(string)
		err := deps.Program.BatchPayout(ctxWithCaller(c), id, body.Recipients, amts)
		deps.Audit.Mutator("batch_payout", caller, err)
		if err != nil {
			return writeErr(c, err)
		}
		return c.JSON(fiber.Map{"ok": true})
	}
}

func createSchedule(deps Deps) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		var body struct {
			Recipient         string `json:"recipient"`
			Amount            string `json:"amount"`
			ReleaseTimestamp  uint64 `json:"release_timestamp"`
		}
		if err := c.BodyParser(&body); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_body"})
		}
		amt, err := amount.FromString(body.Amount)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_amount"})
		}
		caller, _ := c.Locals("caller").(string)
		scheduleID, err := deps.Program.CreateProgramReleaseSchedule(ctxWithCaller(c), id, body.Recipient, amt, body.ReleaseTimestamp)
		deps.Audit.Mutator("create_program_release_schedule", caller, err)
		if err != nil {
			return writeErr(c, err)
		}
		return c.JSON(fiber.Map{"ok": true, "schedule_id": scheduleID})
	}
}

func triggerReleases(deps Deps) fiber.Handler {
	return func(c *fiber.Ctx) error {
		caller, _ := c.Locals("caller").(string)
		n, err := deps.Program.TriggerProgramReleases(ctxWithCaller(c))
		deps.Audit.Mutator("trigger_program_releases", caller, err)
		if err != nil {
			return writeErr(c, err)
		}
		return c.JSON(fiber.Map{"ok": true, "released": n})
	}
}

func getProgram(deps Deps) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		data, err := deps.Program.GetProgram(id)
		if err != nil {
			return writeErr(c, err)
		}
		return c.JSON(data)
	}
}

func pauseProgram(deps Deps) fiber.Handler {
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
		err := deps.Program.SetPaused(ctxWithCaller(c), body.Lock, body.Release, body.Refund)
		deps.Audit.Mutator("set_paused_program", caller, err)
		if err != nil {
			return writeErr(c, err)
		}
		return c.JSON(fiber.Map{"ok": true})
	}
}

func resetCircuit(deps Deps) fiber.Handler {
	return func(c *fiber.Ctx) error {
		caller, _ := c.Locals("caller").(string)
		err := deps.Program.ResetCircuitBreaker(ctxWithCaller(c), caller)
		deps.Audit.Mutator("reset_circuit_breaker", caller, err)
		if err != nil {
			return writeErr(c, err)
		}
		return c.JSON(fiber.Map{"ok": true})
	}
}
