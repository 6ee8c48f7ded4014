package router

import (
	apiv1 "github.com/bsam2019/mygrownet-engine/internal/api/v1"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
)

type ApiRouter struct {
	server *apiv1.Server
}

func (h ApiRouter) InstallRouter(app *fiber.App) {
	api := app.Group("/api", limiter.New())
	api.Get("/", func(ctx *fiber.Ctx) error {
		return ctx.Status(fiber.StatusOK).JSON(fiber.Map{
			"message": "Hello from api",
		})
	})

	// API v1 routes
	v1 := api.Group("/v1")
	v1.Get("/ping", h.server.GetPing)

	v1.Post("/participants", h.server.PostParticipant)
	v1.Get("/participants/:id", h.server.GetParticipant)
	v1.Get("/participants/:id/qualification/:month", h.server.GetQualification)

	v1.Post("/events", h.server.PostEvent)

	v1.Post("/investments", h.server.PostInvestment)
	v1.Get("/investments/:id/penalty", h.server.GetPenaltyQuote)

	v1.Post("/distributions", h.server.PostDistribution)
	v1.Get("/distributions/:id", h.server.GetDistribution)
	v1.Post("/distributions/:id/approve", h.server.PostDistributionApprove)
	v1.Post("/distributions/:id/process", h.server.PostDistributionProcess)

	v1.Get("/jobs/stats", h.server.GetJobStats)
}

func NewApiRouter(server *apiv1.Server) *ApiRouter {
	return &ApiRouter{server: server}
}
