package repository

import (
	"context"

	"pairchat/internal/domain/entity"
)

// MessageRepository is append-only. Append trusts the caller to have checked
// that senderID belongs to the conversation.
type MessageRepository interface {
	Append(ctx context.Context, conversationID, senderID int64, text string) (*entity.Message, error)
	ListByConversation(ctx context.Context, conversationID int64) ([]*entity.Message, error)
	GetByID(ctx context.Context, conversationID, messageID int64) (*entity.Message, error)
}
