package handler

import (
	"github.com/labstack/echo/v4"

	"pairchat/internal/adapter/api/middleware"
	"pairchat/internal/usecase"
	"pairchat/pkg/errors"
	"pairchat/pkg/response"
)

type MessageHandler struct {
	messageUseCase *usecase.MessageUseCase
}

func NewMessageHandler(messageUseCase *usecase.MessageUseCase) *MessageHandler {
	return &MessageHandler{
		messageUseCase: messageUseCase,
	}
}

type sendMessageRequest struct {
	RecipientID    int64  `json:"recipient_id" validate:"omitempty,gt=0"`
	ConversationID int64  `json:"conversation_id" validate:"omitempty,gt=0"`
	Text           string `json:"text" validate:"required"`
}

// SendMessage handles POST /api/messages
func (h *MessageHandler) SendMessage(c echo.Context) error {
	userID, ok := middleware.UserID(c)
	if !ok {
		return response.Error(c, errors.Unauthorized("Authentication required", nil))
	}

	var req sendMessageRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, errors.BadRequest("Invalid request body", err))
	}
	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	result, err := h.messageUseCase.Send(c.Request().Context(), usecase.SendMessageInput{
		SenderID:       userID,
		RecipientID:    req.RecipientID,
		ConversationID: req.ConversationID,
		Text:           req.Text,
	})
	if err != nil {
		return response.Error(c, err)
	}
	return response.Created(c, result)
}
