package api

import "github.com/gofiber/fiber/v2"

func doUpgrade(deps Deps) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body struct {
			NewHash string `json:"new_hash"`
		}
		if err := c.BodyParser(&body); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_body"})
		}
		err := deps.Upgrade.Upgrade(ctxWithCaller(c), body.NewHash)
		if err != nil {
			return writeErr(c, err)
		}
		deps.Audit.Upgrade(body.NewHash)
		return c.JSON(fiber.Map{"ok": true, "active_hash": deps.Upgrade.ActiveHash()})
	}
}
