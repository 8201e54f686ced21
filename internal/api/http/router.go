package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/spec-kit/account-api/internal/api/http/handlers"
	"github.com/spec-kit/account-api/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Prefix         string
	Root           *handlers.RootHandler
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Users          *handlers.UsersHandler
	AuthMiddleware *auth.AuthMiddleware
	Gatherer       prometheus.Gatherer
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/", cfg.Root.Info)
	if cfg.Gatherer != nil {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{})))
	}

	api := app.Group(cfg.Prefix)

	api.Get("/health", cfg.Health.Health)
	api.Get("/health/live", cfg.Health.Live)
	api.Get("/health/ready", cfg.Health.Ready)

	authGroup := api.Group("/auth")
	authGroup.Post("/login", cfg.Auth.Login)
	authGroup.Post("/refresh", cfg.Auth.Refresh)
	authGroup.Post("/logout", cfg.AuthMiddleware.Optional, cfg.Auth.Logout)

	users := api.Group("/users")
	users.Post("/", cfg.Users.Create)

	requireAuth := cfg.AuthMiddleware.Handle
	users.Get("/me", requireAuth, cfg.Users.Me)
	users.Patch("/me", requireAuth, cfg.Users.UpdateMe)
	users.Get("/:id", requireAuth, cfg.Users.Get)
	users.Patch("/:id", requireAuth, cfg.Users.Update)
	users.Delete("/:id", requireAuth, auth.RequireSuperuser(), cfg.Users.Delete)
}
