package service

import (
	"context"

	"pairchat/internal/domain/entity"
	"pairchat/pkg/logger"
)

type ConversationProjector struct {
	presence PresenceRegistry
}

func NewConversationProjector(presence PresenceRegistry) *ConversationProjector {
	return &ConversationProjector{presence: presence}
}

// Project renders conversation for viewerID. messages must be in ascending
// order; other is the profile of the participant that is not the viewer.
func (p *ConversationProjector) Project(ctx context.Context, viewerID int64, conversation *entity.Conversation, messages []*entity.Message, other *entity.User) entity.ConversationView {
	watermark, _ := conversation.WatermarkFor(viewerID)

	view := entity.ConversationView{
		ID:                conversation.ID,
		OtherUser:         p.profile(ctx, conversation, viewerID, other),
		LastReadMessageID: watermark,
		UnseenCount:       conversation.UnseenCount,
		IsTyping:          false,
		Messages:          messages,
	}
	if view.Messages == nil {
		view.Messages = []*entity.Message{}
	}
	if n := len(messages); n > 0 {
		view.LatestMessageText = messages[n-1].Text
	}
	return view
}

func (p *ConversationProjector) profile(ctx context.Context, conversation *entity.Conversation, viewerID int64, other *entity.User) entity.UserProfile {
	if other == nil {
		otherID, _ := conversation.OtherParticipant(viewerID)
		other = &entity.User{ID: otherID}
	}
	return other.Profile(IsOnline(ctx, p.presence, other.ID))
}

// IsOnline reads presence and treats a registry failure as offline.
func IsOnline(ctx context.Context, presence PresenceRegistry, userID int64) bool {
	if presence == nil {
		return false
	}
	online, err := presence.IsOnline(ctx, userID)
	if err != nil {
		logger.Warn("Presence lookup for user %d failed: %v", userID, err)
		return false
	}
	return online
}
