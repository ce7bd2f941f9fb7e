package router

import (
	"github.com/labstack/echo/v4"

	"pairchat/internal/adapter/api/handler"
	"pairchat/internal/adapter/api/middleware"
	"pairchat/internal/infrastructure/ratelimit"
)

// SetupAuthRouter initializes auth routes
func SetupAuthRouter(e *echo.Echo, authMiddleware *middleware.AuthMiddleware, limiter *ratelimit.RateLimiter) {
	authHandler := handler.GetAuthHandler()

	auth := e.Group("/auth")

	throttle := middleware.RateLimit(limiter, ratelimit.ActionAuth)
	auth.POST("/register", authHandler.Register, throttle)
	auth.POST("/login", authHandler.Login, throttle)

	auth.DELETE("/logout", authHandler.Logout)
	auth.GET("/user", authHandler.CurrentUser, authMiddleware.Optional)
}
