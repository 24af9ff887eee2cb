package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/codebuildervaibhav/video-summary/internal/diagnostics"
)

// Health answers the liveness probe
func Health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"ok": true})
}

// Logs serves recent log lines from fn
func Logs(fn func() []string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"logs": fn()})
	}
}

// Diagnostics serves the external tool report
func Diagnostics(checker *diagnostics.Checker, settings diagnostics.Settings) fiber.Handler {
	return func(c *fiber.Ctx) error {
		report := checker.Run(settings)
		status := fiber.StatusOK
		if report.HasFailures {
			status = fiber.StatusServiceUnavailable
		}
		return c.Status(status).JSON(report)
	}
}
