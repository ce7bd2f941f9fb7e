package repository

import (
	"context"
	"time"

	"pairchat/internal/domain/entity"
	"pairchat/internal/domain/repository"
	"pairchat/pkg/errors"
)

type memoryMessageRepository struct {
	db *MemoryDatabase
}

func NewMemoryMessageRepository(db *MemoryDatabase) repository.MessageRepository {
	return &memoryMessageRepository{db: db}
}

func (r *memoryMessageRepository) Append(ctx context.Context, conversationID, senderID int64, text string) (*entity.Message, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if _, ok := r.db.conversations[conversationID]; !ok {
		return nil, errors.NotFound("Conversation", nil)
	}

	r.db.lastMessageID++
	message := &entity.Message{
		ID:             r.db.lastMessageID,
		ConversationID: conversationID,
		SenderID:       senderID,
		Text:           text,
		CreatedAt:      time.Now(),
	}
	r.db.messages[conversationID] = append(r.db.messages[conversationID], message)

	out := *message
	return &out, nil
}

func (r *memoryMessageRepository) ListByConversation(ctx context.Context, conversationID int64) ([]*entity.Message, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	stored := r.db.messages[conversationID]
	out := make([]*entity.Message, 0, len(stored))
	for _, m := range stored {
		cp := *m
		out = append(out, &cp)
	}
	return out, nil
}

func (r *memoryMessageRepository) GetByID(ctx context.Context, conversationID, messageID int64) (*entity.Message, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	for _, m := range r.db.messages[conversationID] {
		if m.ID == messageID {
			cp := *m
			return &cp, nil
		}
	}
	return nil, errors.NotFound("Message", nil)
}
