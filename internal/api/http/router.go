package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/coverage-service/internal/api/http/handlers"
	"github.com/spec-kit/coverage-service/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Escalations    *handlers.EscalationsHandler
	Watchlist      *handlers.WatchlistHandler
	Catalog        *handlers.CatalogHandler
	AuthMiddleware *auth.AuthMiddleware
	Metrics        fiber.Handler
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	if cfg.Metrics != nil {
		app.Get("/metrics", cfg.Metrics)
	}

	api := app.Group("/api/v1", cfg.AuthMiddleware.Handle)

	escalations := api.Group("/escalations")
	escalations.Post("/", cfg.Escalations.Submit)
	escalations.Get("/", cfg.Escalations.List)
	escalations.Get("/:id", cfg.Escalations.Get)
	escalations.Patch("/:id/status", cfg.Escalations.UpdateStatus)
	escalations.Post("/:id/comments", cfg.Escalations.AddComment)
	escalations.Get("/:id/history", cfg.Escalations.History)

	api.Get("/history", cfg.Escalations.HistoryForMarket)

	api.Get("/watchlist", cfg.Watchlist.List)
	api.Post("/watchlist", cfg.Watchlist.Add)
	api.Delete("/watchlist/:id", cfg.Watchlist.Remove)

	api.Get("/products", cfg.Catalog.ListProducts)
	api.Get("/products/:id", cfg.Catalog.GetProduct)
	api.Get("/etl/status", cfg.Catalog.EtlStatus)
}
