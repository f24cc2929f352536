package api

import (
	"os"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
)

// SetupRouter registers middleware and all endpoints.
func SetupRouter(app *fiber.App, chat *ChatHandler, admin *AdminHandler) {
	// Middleware
	app.Use(logger.New())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"status":  "healthy",
			"version": os.Getenv("APP_VERSION"),
			"env":     os.Getenv("ENV"),
		})
	})

	// API Versioning
	v1 := app.Group("/v1")
	v1.Post("/chat", chat.HandleChat)

	adm := v1.Group("/admin")
	adm.Get("/config", admin.GetEffectiveConfig)
	adm.Put("/config", admin.UpdateScope)
	adm.Get("/config/export", admin.ExportConfig)
	adm.Get("/providers", admin.ListProviders)
	adm.Post("/providers/:id/probe", admin.ProbeProvider)
}
