package usecase

import (
	"context"

	"pairchat/internal/domain/entity"
	"pairchat/internal/domain/repository"
	"pairchat/internal/domain/service"
	"pairchat/pkg/errors"
	"pairchat/pkg/logger"
)

type ConversationUseCase struct {
	conversations repository.ConversationRepository
	messages      repository.MessageRepository
	users         repository.UserRepository
	guard         *service.AccessGuard
	projector     *service.ConversationProjector
}

func NewConversationUseCase(
	conversations repository.ConversationRepository,
	messages repository.MessageRepository,
	users repository.UserRepository,
	presence service.PresenceRegistry,
) *ConversationUseCase {
	return &ConversationUseCase{
		conversations: conversations,
		messages:      messages,
		users:         users,
		guard:         service.NewAccessGuard(conversations),
		projector:     service.NewConversationProjector(presence),
	}
}

// ReadState is what a viewer gets back after clearing or advancing read state.
type ReadState struct {
	ConversationID    int64  `json:"conversation_id"`
	UnseenCount       int    `json:"unseen_count"`
	LastReadMessageID *int64 `json:"last_read_message_id"`
}

func readStateFor(conversation *entity.Conversation, viewerID int64) *ReadState {
	watermark, _ := conversation.WatermarkFor(viewerID)
	return &ReadState{
		ConversationID:    conversation.ID,
		UnseenCount:       conversation.UnseenCount,
		LastReadMessageID: watermark,
	}
}

// List returns every conversation viewerID takes part in, most recently
// active first, projected for that viewer.
func (uc *ConversationUseCase) List(ctx context.Context, viewerID int64) ([]entity.ConversationView, error) {
	conversations, err := uc.conversations.ListByUser(ctx, viewerID)
	if err != nil {
		return nil, err
	}

	views := make([]entity.ConversationView, 0, len(conversations))
	for _, conversation := range conversations {
		messages, err := uc.messages.ListByConversation(ctx, conversation.ID)
		if err != nil {
			return nil, err
		}

		otherID, _ := conversation.OtherParticipant(viewerID)
		other, err := uc.users.GetByID(ctx, otherID)
		if err != nil {
			if !errors.Is(err, errors.CodeNotFound) {
				return nil, err
			}
			logger.Warn("List: participant %d of conversation %d has no user record", otherID, conversation.ID)
			other = nil
		}

		views = append(views, uc.projector.Project(ctx, viewerID, conversation, messages, other))
	}
	return views, nil
}

// MarkViewed clears the unseen counter. Only the recipient of claimedSenderID's
// messages may do so.
func (uc *ConversationUseCase) MarkViewed(ctx context.Context, viewerID, conversationID, claimedSenderID int64) (*ReadState, error) {
	if err := uc.authorize(ctx, conversationID, claimedSenderID, viewerID); err != nil {
		return nil, err
	}

	conversation, err := uc.conversations.ResetUnseen(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	return readStateFor(conversation, viewerID), nil
}

// MarkSeen advances the viewer's own watermark to messageID, which must
// belong to the conversation.
func (uc *ConversationUseCase) MarkSeen(ctx context.Context, viewerID, conversationID, claimedSenderID, messageID int64) (*ReadState, error) {
	if messageID <= 0 {
		return nil, errors.InvalidArgument("Invalid message id", nil)
	}
	if err := uc.authorize(ctx, conversationID, claimedSenderID, viewerID); err != nil {
		return nil, err
	}

	if _, err := uc.messages.GetByID(ctx, conversationID, messageID); err != nil {
		if errors.Is(err, errors.CodeNotFound) {
			return nil, errors.InvalidArgument("Message does not belong to this conversation", nil)
		}
		return nil, err
	}

	conversation, err := uc.conversations.SetWatermark(ctx, conversationID, viewerID, messageID)
	if err != nil {
		return nil, err
	}
	return readStateFor(conversation, viewerID), nil
}

func (uc *ConversationUseCase) authorize(ctx context.Context, conversationID, claimedSenderID, viewerID int64) error {
	allowed, err := uc.guard.CanMutateReadState(ctx, conversationID, claimedSenderID, viewerID)
	if err != nil {
		return err
	}
	if !allowed {
		return errors.Forbidden("Not allowed to update this conversation", nil)
	}
	return nil
}
