package router

import (
	"github.com/labstack/echo/v4"

	"pairchat/internal/adapter/api/handler"
	"pairchat/internal/adapter/api/middleware"
	"pairchat/internal/infrastructure/ratelimit"
)

func Setup(
	e *echo.Echo,
	authMiddleware *middleware.AuthMiddleware,
	limiter *ratelimit.RateLimiter,
	wsHandler *handler.WebSocketHandler,
	healthHandler *handler.HealthHandler,
) {
	SetupAuthRouter(e, authMiddleware, limiter)

	api := e.Group("/api", authMiddleware.Authenticate)
	SetupUserRouter(api, limiter)
	SetupChatRouter(api, limiter)

	SetupWebSocketRouter(e, wsHandler)
	SetupHealthRouter(e, healthHandler)
}
