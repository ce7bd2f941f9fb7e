package repository

import (
	"context"

	"pairchat/internal/domain/entity"
)

// ConversationRepository owns conversation records. Counter and watermark
// changes go through the dedicated methods so each one is a single atomic
// storage operation; there is no general Update.
type ConversationRepository interface {
	// FindByPair matches the unordered pair and returns nil, nil when absent.
	FindByPair(ctx context.Context, userA, userB int64) (*entity.Conversation, error)
	GetByID(ctx context.Context, id int64) (*entity.Conversation, error)
	ListByUser(ctx context.Context, userID int64) ([]*entity.Conversation, error)

	// Create is idempotent per pair: a caller that loses a creation race
	// receives the winner's conversation. Invalid pairs fail with
	// INVALID_ARGUMENT. Stores that enforce user references also report an
	// unknown participant as INVALID_ARGUMENT; the others accept any
	// positive id and leave that check to the caller.
	Create(ctx context.Context, senderID, recipientID int64) (*entity.Conversation, error)

	IncrementUnseen(ctx context.Context, id int64) (*entity.Conversation, error)
	ResetUnseen(ctx context.Context, id int64) (*entity.Conversation, error)
	SetWatermark(ctx context.Context, id, participantID, messageID int64) (*entity.Conversation, error)
}
