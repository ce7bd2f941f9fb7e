package router

import (
	"github.com/labstack/echo/v4"

	"pairchat/internal/adapter/api/handler"
	"pairchat/internal/adapter/api/middleware"
	"pairchat/internal/infrastructure/ratelimit"
)

func SetupUserRouter(api *echo.Group, limiter *ratelimit.RateLimiter) {
	userHandler := handler.GetUserHandler()

	api.GET("/users/:username", userHandler.SearchUsers, middleware.RateLimit(limiter, ratelimit.ActionGeneral))
}
