package repository

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"

	"pairchat/internal/domain/entity"
	"pairchat/internal/domain/repository"
	"pairchat/pkg/errors"
	"pairchat/pkg/logger"
)

type messageRecord struct {
	ID             int64     `firestore:"id"`
	ConversationID int64     `firestore:"conversationId"`
	SenderID       int64     `firestore:"senderId"`
	Text           string    `firestore:"text"`
	CreatedAt      time.Time `firestore:"createdAt"`
}

func (rec *messageRecord) toEntity() *entity.Message {
	return &entity.Message{
		ID:             rec.ID,
		ConversationID: rec.ConversationID,
		SenderID:       rec.SenderID,
		Text:           rec.Text,
		CreatedAt:      rec.CreatedAt,
	}
}

type firestoreMessageRepository struct {
	db *FirestoreDatabase
}

func NewFirestoreMessageRepository(db *FirestoreDatabase) repository.MessageRepository {
	return &firestoreMessageRepository{db: db}
}

// Append allocates the message id from the conversation's own sequence, so
// sends only contend with other sends in the same conversation.
func (r *firestoreMessageRepository) Append(ctx context.Context, conversationID, senderID int64, text string) (*entity.Message, error) {
	var result *entity.Message
	err := r.db.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		conversationRef := r.db.conversationDoc(conversationID)
		snap, err := tx.Get(conversationRef)
		if err != nil {
			return err
		}
		var conversation conversationRecord
		if err := snap.DataTo(&conversation); err != nil {
			return err
		}

		now := time.Now()
		rec := messageRecord{
			ID:             conversation.LastMessageID + 1,
			ConversationID: conversationID,
			SenderID:       senderID,
			Text:           text,
			CreatedAt:      now,
		}
		if err := tx.Update(conversationRef, []firestore.Update{
			{Path: "lastMessageId", Value: rec.ID},
			{Path: "updatedAt", Value: now},
		}); err != nil {
			return err
		}
		if err := tx.Create(r.db.messageDoc(conversationID, rec.ID), rec); err != nil {
			return err
		}
		result = rec.toEntity()
		return nil
	})
	if err != nil {
		return nil, mapFirestoreError(err, "Conversation")
	}
	return result, nil
}

func (r *firestoreMessageRepository) ListByConversation(ctx context.Context, conversationID int64) ([]*entity.Message, error) {
	iter := r.db.conversationDoc(conversationID).Collection(collectionMessages).
		OrderBy("id", firestore.Asc).
		Documents(ctx)
	defer iter.Stop()

	messages := []*entity.Message{}
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			logger.Error("Firestore error while iterating messages for conversation %d: %v", conversationID, err)
			return nil, mapFirestoreError(err, "Message")
		}

		var rec messageRecord
		if err := doc.DataTo(&rec); err != nil {
			return nil, errors.Internal("Failed to parse message data", err)
		}
		messages = append(messages, rec.toEntity())
	}
	return messages, nil
}

func (r *firestoreMessageRepository) GetByID(ctx context.Context, conversationID, messageID int64) (*entity.Message, error) {
	doc, err := r.db.messageDoc(conversationID, messageID).Get(ctx)
	if err != nil {
		return nil, mapFirestoreError(err, "Message")
	}

	var rec messageRecord
	if err := doc.DataTo(&rec); err != nil {
		return nil, errors.Internal("Failed to parse message data", err)
	}
	return rec.toEntity(), nil
}
