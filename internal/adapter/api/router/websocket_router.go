package router

import (
	"github.com/labstack/echo/v4"

	"pairchat/internal/adapter/api/handler"
)

// SetupWebSocketRouter sets up WebSocket routes. Authentication happens
// inside the handler from the token query parameter.
func SetupWebSocketRouter(e *echo.Echo, wsHandler *handler.WebSocketHandler) {
	e.GET("/ws", wsHandler.HandleWebSocket)
}
