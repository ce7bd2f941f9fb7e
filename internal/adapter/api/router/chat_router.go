package router

import (
	"github.com/labstack/echo/v4"

	"pairchat/internal/adapter/api/handler"
	"pairchat/internal/adapter/api/middleware"
	"pairchat/internal/infrastructure/ratelimit"
)

// SetupChatRouter sets up message and conversation routes
func SetupChatRouter(api *echo.Group, limiter *ratelimit.RateLimiter) {
	messageHandler := handler.GetMessageHandler()
	conversationHandler := handler.GetConversationHandler()

	api.POST("/messages", messageHandler.SendMessage, middleware.RateLimit(limiter, ratelimit.ActionSendMessage))

	conversations := api.Group("/conversations", middleware.RateLimit(limiter, ratelimit.ActionGeneral))
	conversations.GET("", conversationHandler.ListConversations)
	conversations.PATCH("/viewed/:id/:senderId", conversationHandler.MarkViewed)
	conversations.PATCH("/markSeen/:id/:senderId/:messageId", conversationHandler.MarkSeen)
}
