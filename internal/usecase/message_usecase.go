package usecase

import (
	"context"
	"strings"
	"unicode/utf8"

	"pairchat/internal/domain/entity"
	"pairchat/internal/domain/repository"
	"pairchat/internal/domain/service"
	"pairchat/internal/infrastructure/metrics"
	"pairchat/pkg/errors"
	"pairchat/pkg/logger"
)

type MessageUseCase struct {
	conversations repository.ConversationRepository
	messages      repository.MessageRepository
	users         repository.UserRepository
	presence      service.PresenceRegistry
	notifier      service.DeliveryNotifier
}

func NewMessageUseCase(
	conversations repository.ConversationRepository,
	messages repository.MessageRepository,
	users repository.UserRepository,
	presence service.PresenceRegistry,
	notifier service.DeliveryNotifier,
) *MessageUseCase {
	return &MessageUseCase{
		conversations: conversations,
		messages:      messages,
		users:         users,
		presence:      presence,
		notifier:      notifier,
	}
}

// SendMessageInput addresses the message either by RecipientID (creating the
// conversation on first contact) or by an existing ConversationID.
type SendMessageInput struct {
	SenderID       int64
	RecipientID    int64
	ConversationID int64
	Text           string
}

type SendResult struct {
	Message        *entity.Message    `json:"message"`
	Sender         entity.UserProfile `json:"sender"`
	ConversationID int64              `json:"conversation_id"`
	RecipientID    int64              `json:"recipient_id"`
	// UnseenSynced is false when the message was stored but the unseen
	// counter could not be incremented.
	UnseenSynced bool `json:"unseen_synced"`
}

// Send stores a message. Only the append is allowed to fail the call;
// the counter, presence and delivery steps are reported or logged.
func (uc *MessageUseCase) Send(ctx context.Context, input SendMessageInput) (*SendResult, error) {
	text := strings.TrimSpace(input.Text)
	if text == "" {
		return nil, errors.InvalidArgument("Message text is required", nil)
	}
	if utf8.RuneCountInString(text) > entity.MaxMessageLength {
		return nil, errors.InvalidArgument("Message text is too long", nil)
	}
	if input.SenderID <= 0 {
		return nil, errors.InvalidArgument("Invalid sender", nil)
	}

	conversation, err := uc.resolveConversation(ctx, input)
	if err != nil {
		return nil, err
	}
	recipientID, _ := conversation.OtherParticipant(input.SenderID)

	message, err := uc.messages.Append(ctx, conversation.ID, input.SenderID, text)
	if err != nil {
		logger.Error("Send: failed to append message to conversation %d: %v", conversation.ID, err)
		return nil, err
	}
	metrics.MessagesSent.Inc()

	result := &SendResult{
		Message:        message,
		ConversationID: conversation.ID,
		RecipientID:    recipientID,
		UnseenSynced:   true,
	}

	if _, err := uc.conversations.IncrementUnseen(ctx, conversation.ID); err != nil {
		logger.Error("Send: message %d stored but unseen counter for conversation %d not incremented: %v", message.ID, conversation.ID, err)
		metrics.UnseenIncrementFailures.Inc()
		result.UnseenSynced = false
	}

	result.Sender = uc.senderProfile(ctx, input.SenderID)

	if uc.notifier != nil {
		err := uc.notifier.Notify(ctx, service.Delivery{
			RecipientID: recipientID,
			Message:     message,
			Sender:      result.Sender,
		})
		if err != nil {
			logger.Warn("Send: delivery of message %d to user %d failed: %v", message.ID, recipientID, err)
		}
	}

	return result, nil
}

func (uc *MessageUseCase) resolveConversation(ctx context.Context, input SendMessageInput) (*entity.Conversation, error) {
	if input.ConversationID != 0 {
		conversation, err := uc.conversations.GetByID(ctx, input.ConversationID)
		if err != nil && !errors.Is(err, errors.CodeNotFound) {
			return nil, err
		}
		if conversation == nil || !conversation.HasParticipant(input.SenderID) {
			return nil, errors.Forbidden("Conversation not available", nil)
		}
		if input.RecipientID != 0 {
			if other, _ := conversation.OtherParticipant(input.SenderID); other != input.RecipientID {
				return nil, errors.InvalidArgument("Recipient does not match conversation", nil)
			}
		}
		return conversation, nil
	}

	if err := repository.ValidatePair(input.SenderID, input.RecipientID); err != nil {
		return nil, err
	}

	conversation, err := uc.conversations.FindByPair(ctx, input.SenderID, input.RecipientID)
	if err != nil {
		return nil, err
	}
	if conversation != nil {
		return conversation, nil
	}

	if _, err := uc.users.GetByID(ctx, input.RecipientID); err != nil {
		if errors.Is(err, errors.CodeNotFound) {
			return nil, errors.InvalidArgument("Recipient does not exist", nil)
		}
		return nil, err
	}

	conversation, err = uc.conversations.Create(ctx, input.SenderID, input.RecipientID)
	if err != nil {
		return nil, err
	}
	metrics.ConversationsCreated.Inc()
	logger.Debug("Send: conversation %d ready for users %d and %d", conversation.ID, input.SenderID, input.RecipientID)
	return conversation, nil
}

func (uc *MessageUseCase) senderProfile(ctx context.Context, senderID int64) entity.UserProfile {
	online := service.IsOnline(ctx, uc.presence, senderID)
	sender, err := uc.users.GetByID(ctx, senderID)
	if err != nil {
		logger.Warn("Send: could not load sender %d: %v", senderID, err)
		return entity.UserProfile{ID: senderID, Online: online}
	}
	return sender.Profile(online)
}
