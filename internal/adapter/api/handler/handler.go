package handler

import (
	"pairchat/internal/usecase"
)

var (
	authHandler         *AuthHandler
	userHandler         *UserHandler
	messageHandler      *MessageHandler
	conversationHandler *ConversationHandler
)

func Setup(
	authUseCase *usecase.AuthUseCase,
	userUseCase *usecase.UserUseCase,
	messageUseCase *usecase.MessageUseCase,
	conversationUseCase *usecase.ConversationUseCase,
) {
	authHandler = NewAuthHandler(authUseCase)
	userHandler = NewUserHandler(userUseCase)
	messageHandler = NewMessageHandler(messageUseCase)
	conversationHandler = NewConversationHandler(conversationUseCase)
}

func GetAuthHandler() *AuthHandler {
	return authHandler
}

func GetUserHandler() *UserHandler {
	return userHandler
}

func GetMessageHandler() *MessageHandler {
	return messageHandler
}

func GetConversationHandler() *ConversationHandler {
	return conversationHandler
}
