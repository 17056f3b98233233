// Package router defines how HTTP routes are registered for the API.
package router

import (
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/hanyue/activity-seats/internal/config"
	"github.com/hanyue/activity-seats/internal/handler"
	"github.com/hanyue/activity-seats/internal/middleware"
)

// Handlers bundles every handler the router wires up.
type Handlers struct {
	Auth     *handler.AuthHandler
	Profile  *handler.ProfileHandler
	Admin    *handler.AdminActivityHandler
	Activity *handler.ActivityHandler
	Seat     *handler.SeatHandler
}

// Register wires all routes onto the Echo instance.
//
// Identity is resolved once, globally, by CookieAuth. It never rejects,
// so public routes (health, listing) share the chain and each handler
// enforces its own auth level. The rate limiter guards the auth endpoints
// (credential stuffing) and seat occupy (the seat-grab hot path). The
// response cache wraps only the paginated listing; the seat map in the
// detail view must stay live.
func Register(e *echo.Echo, h Handlers, cfg config.Config, rdb *redis.Client) {
	e.Use(middleware.CookieAuth(cfg.JWTSecret))

	limiter := middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb)
	cache := middleware.NewRedisCache(config.LoadCacheConfig(), rdb)

	e.GET("/healthz", handler.Health)

	auth := e.Group("/api/auth", limiter)
	auth.POST("/register", h.Auth.Register)
	auth.POST("/login", h.Auth.Login)
	auth.POST("/wechat-login", h.Auth.WeChatLogin)
	auth.GET("/me", h.Auth.Me)

	user := e.Group("/api/user")
	user.PUT("/profile", h.Profile.UpdateProfile)
	user.POST("/unbind-wechat", h.Profile.UnbindWeChat)

	activities := e.Group("/api/activities")
	activities.GET("", h.Activity.List, cache)
	activities.GET("/:id", h.Activity.Detail)

	admin := activities.Group("/admin")
	admin.GET("", h.Admin.ListOwn)
	admin.POST("/create", h.Admin.Create)
	admin.POST("/update", h.Admin.Update)

	seats := activities.Group("/seats")
	seats.POST("/occupy", h.Seat.Occupy, limiter)
	seats.POST("/release", h.Seat.Release)
	seats.POST("/update-remark", h.Seat.UpdateRemark)
}
