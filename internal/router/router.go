// Package router wires HTTP routes to handlers and applies the auth, role,
// rate-limit and cache middleware per route group.
package router

import (
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/andeanbmx/race-manager/internal/config"
	"github.com/andeanbmx/race-manager/internal/handler"
	"github.com/andeanbmx/race-manager/internal/middleware"
)

// Handlers bundles every handler the router registers.
type Handlers struct {
	Auth          *handler.AuthHandler
	Riders        *handler.RiderHandler
	Categories    *handler.CategoryHandler
	Events        *handler.EventHandler
	Registrations *handler.RegistrationHandler
	Races         *handler.RaceHandler
	Results       *handler.ResultHandler
	Reports       *handler.ReportHandler
	Admin         *handler.AdminHandler
}

// Register sets up every route of the API.
//
// Access model: reads are open to any authenticated user; the registration
// desk (SECRETARIA) owns riders, categories, events, registrations and race
// setup; the timing desk (CRONOMETRAJE) owns results; ADMIN passes every
// check and owns the admin console.
func Register(e *echo.Echo, h Handlers, cfg config.Config, rdb *redis.Client) {
	e.GET("/healthz", handler.Health)

	rateLimit := middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb)
	cache := middleware.NewRedisCache(config.LoadCacheConfig(), rdb)

	// Unauthenticated auth endpoints.
	authG := e.Group("/v1/auth", rateLimit)
	authG.POST("/register", h.Auth.Register)
	authG.POST("/login", h.Auth.Login)
	authG.POST("/refresh", h.Auth.Refresh)
	authG.POST("/refresh-access", h.Auth.RefreshAccess)
	authG.POST("/logout", h.Auth.Logout)

	// Everything else requires a valid access token.
	v1 := e.Group("/v1", rateLimit, middleware.JWTAuth(cfg.JWTSecret))

	v1.GET("/me", h.Auth.Me)
	v1.POST("/me/password", h.Auth.ChangePassword)
	v1.POST("/logout", h.Auth.Logout)

	read := middleware.RequireAnyRole()
	desk := middleware.RequireRole(middleware.RoleSecretaria)
	timing := middleware.RequireRole(middleware.RoleCronometraje)
	admin := middleware.RequireRole()

	// Rider registry.
	v1.GET("/riders", h.Riders.List, read)
	v1.GET("/riders/:id", h.Riders.Get, read)
	v1.POST("/riders", h.Riders.Create, desk)
	v1.PUT("/riders/:id", h.Riders.Update, desk)
	v1.DELETE("/riders/:id", h.Riders.Delete, desk)

	// Categories.
	v1.GET("/categories", h.Categories.List, read)
	v1.GET("/categories/:id", h.Categories.Get, read)
	v1.GET("/categories/:id/eligible-riders", h.Categories.EligibleRiders, desk)
	v1.POST("/categories", h.Categories.Create, desk)
	v1.PUT("/categories/:id", h.Categories.Update, desk)
	v1.DELETE("/categories/:id", h.Categories.Delete, desk)

	// Events and registrations.
	v1.GET("/events", h.Events.List, read)
	v1.GET("/events/:id", h.Events.Get, read)
	v1.GET("/events/:id/dashboard", h.Events.Dashboard, read)
	v1.POST("/events", h.Events.Create, desk)
	v1.PUT("/events/:id", h.Events.Update, desk)
	v1.DELETE("/events/:id", h.Events.Delete, desk)
	v1.GET("/events/:id/registrations", h.Registrations.ListByEvent, read)
	v1.POST("/events/:id/registrations", h.Registrations.Create, desk)
	v1.POST("/events/:id/registrations/bulk", h.Registrations.CreateBulk, desk)
	v1.PUT("/registrations/:regID", h.Registrations.Update, desk)
	v1.DELETE("/registrations/:regID", h.Registrations.Delete, desk)

	// Races: setup and the build/standings/final pipeline.
	v1.GET("/races", h.Races.List, read)
	v1.GET("/races/:id", h.Races.Get, read)
	v1.GET("/races/:id/standings", h.Races.Standings, read, cache)
	v1.POST("/races", h.Races.Create, desk)
	v1.POST("/races/:id/build", h.Races.Build, desk)
	v1.POST("/races/:id/final-assignment", h.Races.AssignFinal, desk)
	v1.DELETE("/races/:id", h.Races.Delete, desk)

	// Results: timing desk only.
	v1.GET("/heats/:heatID/results", h.Results.ListByHeat, read)
	v1.POST("/results", h.Results.Create, timing)
	v1.POST("/results/bulk", h.Results.CreateBulk, timing)
	v1.PUT("/results/:id", h.Results.Update, timing)
	v1.DELETE("/results/:id", h.Results.Delete, timing)

	// Reports: read-only, cached.
	v1.GET("/reports/events/:id/starting-lists", h.Reports.StartingLists, read, cache)
	v1.GET("/reports/events/:id/results", h.Reports.EventResults, read, cache)
	v1.GET("/reports/events/:id/podium", h.Reports.Podium, read, cache)
	v1.GET("/reports/annual-ranking", h.Reports.AnnualRanking, read, cache)

	// Admin console.
	v1.GET("/admin/points", h.Admin.GetPoints, admin)
	v1.PUT("/admin/points", h.Admin.UpdatePoints, admin)
	v1.GET("/admin/users", h.Admin.ListUsers, admin)
	v1.POST("/admin/users", h.Admin.CreateUser, admin)
	v1.PUT("/admin/users/:id", h.Admin.UpdateUser, admin)
}
