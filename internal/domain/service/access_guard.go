package service

import (
	"context"

	"pairchat/internal/domain/repository"
	"pairchat/pkg/errors"
	"pairchat/pkg/logger"
)

// AccessGuard decides who may clear or advance a conversation's read state.
// Only the recipient of the claimed sender's messages may do so.
type AccessGuard struct {
	conversations repository.ConversationRepository
}

func NewAccessGuard(conversations repository.ConversationRepository) *AccessGuard {
	return &AccessGuard{conversations: conversations}
}

// CanMutateReadState fails closed: an unknown conversation or a claimed
// sender outside the pair yields false without an error. Only storage
// failures are returned.
func (g *AccessGuard) CanMutateReadState(ctx context.Context, conversationID, claimedSenderID, actingUserID int64) (bool, error) {
	conversation, err := g.conversations.GetByID(ctx, conversationID)
	if err != nil {
		if errors.Is(err, errors.CodeNotFound) {
			return false, nil
		}
		return false, err
	}

	recipient, ok := conversation.OtherParticipant(claimedSenderID)
	if !ok {
		logger.Debug("AccessGuard: claimed sender %d is not in conversation %d", claimedSenderID, conversationID)
		return false, nil
	}

	return recipient == actingUserID, nil
}
