package repository

import (
	"context"
	"sort"
	"time"

	"pairchat/internal/domain/entity"
	"pairchat/internal/domain/repository"
	"pairchat/pkg/errors"
)

type memoryConversationRepository struct {
	db *MemoryDatabase
}

func NewMemoryConversationRepository(db *MemoryDatabase) repository.ConversationRepository {
	return &memoryConversationRepository{db: db}
}

func (r *memoryConversationRepository) FindByPair(ctx context.Context, userA, userB int64) (*entity.Conversation, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	id, ok := r.db.pairs[pairKey(userA, userB)]
	if !ok {
		return nil, nil
	}
	return r.db.conversations[id].Clone(), nil
}

func (r *memoryConversationRepository) GetByID(ctx context.Context, id int64) (*entity.Conversation, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	conversation, ok := r.db.conversations[id]
	if !ok {
		return nil, errors.NotFound("Conversation", nil)
	}
	return conversation.Clone(), nil
}

func (r *memoryConversationRepository) ListByUser(ctx context.Context, userID int64) ([]*entity.Conversation, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	var out []*entity.Conversation
	for _, conversation := range r.db.conversations {
		if conversation.HasParticipant(userID) {
			out = append(out, conversation.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].UpdatedAt.After(out[j].UpdatedAt) ||
			(out[i].UpdatedAt.Equal(out[j].UpdatedAt) && out[i].ID > out[j].ID)
	})
	return out, nil
}

func (r *memoryConversationRepository) Create(ctx context.Context, senderID, recipientID int64) (*entity.Conversation, error) {
	if err := repository.ValidatePair(senderID, recipientID); err != nil {
		return nil, err
	}

	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	key := pairKey(senderID, recipientID)
	if id, ok := r.db.pairs[key]; ok {
		return r.db.conversations[id].Clone(), nil
	}

	r.db.lastConversationID++
	conversation := entity.NewConversation(senderID, recipientID)
	conversation.ID = r.db.lastConversationID
	now := time.Now()
	conversation.CreatedAt = now
	conversation.UpdatedAt = now

	r.db.conversations[conversation.ID] = conversation
	r.db.pairs[key] = conversation.ID
	return conversation.Clone(), nil
}

func (r *memoryConversationRepository) IncrementUnseen(ctx context.Context, id int64) (*entity.Conversation, error) {
	return r.mutate(id, func(c *entity.Conversation) error {
		c.UnseenCount++
		return nil
	})
}

func (r *memoryConversationRepository) ResetUnseen(ctx context.Context, id int64) (*entity.Conversation, error) {
	return r.mutate(id, func(c *entity.Conversation) error {
		c.UnseenCount = 0
		return nil
	})
}

func (r *memoryConversationRepository) SetWatermark(ctx context.Context, id, participantID, messageID int64) (*entity.Conversation, error) {
	return r.mutate(id, func(c *entity.Conversation) error {
		if !c.HasParticipant(participantID) {
			return errors.Forbidden("User is not a participant in this conversation", nil)
		}
		c.AdvanceWatermark(participantID, messageID)
		return nil
	})
}

// mutate applies fn to a copy and only stores it when fn succeeds.
func (r *memoryConversationRepository) mutate(id int64, fn func(c *entity.Conversation) error) (*entity.Conversation, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	stored, ok := r.db.conversations[id]
	if !ok {
		return nil, errors.NotFound("Conversation", nil)
	}

	next := stored.Clone()
	if err := fn(next); err != nil {
		return nil, err
	}
	next.UpdatedAt = time.Now()
	r.db.conversations[id] = next
	return next.Clone(), nil
}
