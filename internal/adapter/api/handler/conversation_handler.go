package handler

import (
	"strconv"

	"github.com/labstack/echo/v4"

	"pairchat/internal/adapter/api/middleware"
	"pairchat/internal/usecase"
	"pairchat/pkg/errors"
	"pairchat/pkg/response"
)

type ConversationHandler struct {
	conversationUseCase *usecase.ConversationUseCase
}

func NewConversationHandler(conversationUseCase *usecase.ConversationUseCase) *ConversationHandler {
	return &ConversationHandler{
		conversationUseCase: conversationUseCase,
	}
}

func idParam(c echo.Context, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.InvalidArgument("Invalid "+name, err)
	}
	return id, nil
}

// ListConversations handles GET /api/conversations
func (h *ConversationHandler) ListConversations(c echo.Context) error {
	userID, ok := middleware.UserID(c)
	if !ok {
		return response.Error(c, errors.Unauthorized("Authentication required", nil))
	}

	views, err := h.conversationUseCase.List(c.Request().Context(), userID)
	if err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, views)
}

// MarkViewed handles PATCH /api/conversations/viewed/:id/:senderId
func (h *ConversationHandler) MarkViewed(c echo.Context) error {
	userID, ok := middleware.UserID(c)
	if !ok {
		return response.Error(c, errors.Unauthorized("Authentication required", nil))
	}

	conversationID, err := idParam(c, "id")
	if err != nil {
		return response.Error(c, err)
	}
	senderID, err := idParam(c, "senderId")
	if err != nil {
		return response.Error(c, err)
	}

	state, err := h.conversationUseCase.MarkViewed(c.Request().Context(), userID, conversationID, senderID)
	if err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, state)
}

// MarkSeen handles PATCH /api/conversations/markSeen/:id/:senderId/:messageId
func (h *ConversationHandler) MarkSeen(c echo.Context) error {
	userID, ok := middleware.UserID(c)
	if !ok {
		return response.Error(c, errors.Unauthorized("Authentication required", nil))
	}

	conversationID, err := idParam(c, "id")
	if err != nil {
		return response.Error(c, err)
	}
	senderID, err := idParam(c, "senderId")
	if err != nil {
		return response.Error(c, err)
	}
	messageID, err := idParam(c, "messageId")
	if err != nil {
		return response.Error(c, err)
	}

	state, err := h.conversationUseCase.MarkSeen(c.Request().Context(), userID, conversationID, senderID, messageID)
	if err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, state)
}
