package routes

import (
	"time"

	"github.com/familyassistant/safety-engine/internal/config"
	"github.com/familyassistant/safety-engine/internal/handlers"
	"github.com/familyassistant/safety-engine/internal/middleware"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"gorm.io/gorm"
)

func Setup(
	app *fiber.App,
	cfg *config.Config,
	db *gorm.DB,
	healthHandler *handlers.HealthHandler,
	memberHandler *handlers.MemberHandler,
	permissionHandler *handlers.PermissionHandler,
	controlsHandler *handlers.ControlsHandler,
	filterHandler *handlers.FilterHandler,
	screenTimeHandler *handlers.ScreenTimeHandler,
	auditHandler *handlers.AuditHandler,
) {
	api := app.Group("/api")

	// General API rate limiter: 120 req/min per IP. Screen-time reports
	// and filter checks arrive frequently from devices, so this is
	// looser than a typical user-facing API.
	api.Use(limiter.New(limiter.Config{
		Max:               120,
		Expiration:        1 * time.Minute,
		LimiterMiddleware: limiter.SlidingWindow{},
		KeyGenerator:      func(c *fiber.Ctx) string { return c.IP() },
	}))

	// Health (public)
	api.Get("/health", healthHandler.Check)

	jwt := middleware.JWTProtected(cfg)
	guardian := middleware.GuardianRequired(db, cfg)

	// Device-facing checks (JWT only): resolver query, filter decision,
	// usage reports.
	api.Get("/permissions/check", jwt, permissionHandler.Check)
	api.Post("/filter/check", jwt, filterHandler.Check)
	api.Post("/screentime", jwt, screenTimeHandler.Record)
	api.Get("/screentime/:user_id/:date", jwt, screenTimeHandler.DayLog)
	api.Get("/screentime/:user_id", jwt, screenTimeHandler.History)

	// Member directory: reads for any authenticated member, writes for
	// guardians.
	api.Get("/members", jwt, memberHandler.List)
	api.Get("/members/:id", jwt, memberHandler.Get)
	api.Post("/members", jwt, guardian, memberHandler.Enroll)
	api.Patch("/members/:id", jwt, guardian, memberHandler.Update)
	api.Delete("/members/:id", jwt, guardian, memberHandler.Deactivate)

	// Permission overrides (guardian only; the service additionally
	// verifies the acting member's role)
	api.Post("/permissions/grant", jwt, guardian, permissionHandler.Grant)
	api.Post("/permissions/revoke", jwt, guardian, permissionHandler.Revoke)
	api.Get("/members/:id/permissions", jwt, guardian, permissionHandler.ListForMember)

	// Parental controls (guardian only)
	controls := api.Group("/controls", jwt, guardian)
	controls.Post("/", controlsHandler.Create)
	controls.Put("/:child_id", controlsHandler.Update)
	controls.Get("/:child_id", controlsHandler.List)
	controls.Get("/:child_id/effective", controlsHandler.Effective)
	controls.Post("/:child_id/keywords", controlsHandler.AddKeyword)
	controls.Delete("/:child_id/keywords/:keyword", controlsHandler.RemoveKeyword)
	controls.Post("/:child_id/blocked-domains", controlsHandler.AddBlockedDomain)
	controls.Post("/:child_id/allowed-domains", controlsHandler.AddAllowedDomain)

	// Filter review and audit (guardian only)
	api.Get("/filter/logs", jwt, guardian, filterHandler.Logs)
	api.Get("/filter/stats", jwt, guardian, filterHandler.Stats)
	api.Get("/audit", jwt, guardian, auditHandler.Query)
}
