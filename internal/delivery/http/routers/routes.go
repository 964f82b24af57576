package routers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/swagger"

	"tusflow/internal/delivery/http/handlers"
	"tusflow/pkg/constants"
)

// SetupUploadRoutes mounts C4's TUS endpoint at /api/upload/, plus the
// swagger UI and a health check, matching the teacher's app.Group
// layout.
func SetupUploadRoutes(app *fiber.App, h *handlers.TusHandler) {
	app.Get("/swagger/*", swagger.HandlerDefault)

	api := app.Group("/api/upload")
	api.Post("/", h.Create)
	api.Options("/", h.Options)
	api.Patch("/:id", h.Append)
	api.Head("/:id", h.Head)
	api.Delete("/:id", h.Delete)

	app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": constants.StatusOK})
	})
}
