package repository

import (
	"context"
	"sort"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"pairchat/internal/domain/entity"
	"pairchat/internal/domain/repository"
	"pairchat/pkg/errors"
	"pairchat/pkg/logger"
)

type conversationRecord struct {
	ID           int64     `firestore:"id"`
	UserLow      int64     `firestore:"userLow"`
	UserHigh     int64     `firestore:"userHigh"`
	LowLastRead  *int64    `firestore:"lowLastRead"`
	HighLastRead *int64    `firestore:"highLastRead"`
	UnseenCount  int64     `firestore:"unseenCount"`
	CreatedAt    time.Time `firestore:"createdAt"`
	UpdatedAt    time.Time `firestore:"updatedAt"`

	// LastMessageID is the conversation's own message id sequence.
	LastMessageID int64 `firestore:"lastMessageId"`
}

func (rec *conversationRecord) toEntity() *entity.Conversation {
	return &entity.Conversation{
		ID: rec.ID,
		Participants: [2]entity.Participant{
			{UserID: rec.UserLow, LastReadMessageID: rec.LowLastRead},
			{UserID: rec.UserHigh, LastReadMessageID: rec.HighLastRead},
		},
		UnseenCount: int(rec.UnseenCount),
		CreatedAt:   rec.CreatedAt,
		UpdatedAt:   rec.UpdatedAt,
	}
}

type pairRecord struct {
	ConversationID int64 `firestore:"conversationId"`
}

type firestoreConversationRepository struct {
	db *FirestoreDatabase
}

func NewFirestoreConversationRepository(db *FirestoreDatabase) repository.ConversationRepository {
	return &firestoreConversationRepository{db: db}
}

func decodeConversation(doc *firestore.DocumentSnapshot) (*entity.Conversation, error) {
	var rec conversationRecord
	if err := doc.DataTo(&rec); err != nil {
		return nil, errors.Internal("Failed to parse conversation data", err)
	}
	return rec.toEntity(), nil
}

func (r *firestoreConversationRepository) FindByPair(ctx context.Context, userA, userB int64) (*entity.Conversation, error) {
	doc, err := r.db.pairDoc(userA, userB).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, nil
		}
		return nil, mapFirestoreError(err, "Conversation")
	}

	var pair pairRecord
	if err := doc.DataTo(&pair); err != nil {
		return nil, errors.Internal("Failed to parse conversation pair", err)
	}
	return r.GetByID(ctx, pair.ConversationID)
}

func (r *firestoreConversationRepository) GetByID(ctx context.Context, id int64) (*entity.Conversation, error) {
	doc, err := r.db.conversationDoc(id).Get(ctx)
	if err != nil {
		return nil, mapFirestoreError(err, "Conversation")
	}
	return decodeConversation(doc)
}

// ListByUser runs one query per participant slot because Firestore cannot OR
// across fields without a composite filter index.
func (r *firestoreConversationRepository) ListByUser(ctx context.Context, userID int64) ([]*entity.Conversation, error) {
	var out []*entity.Conversation
	for _, field := range []string{"userLow", "userHigh"} {
		iter := r.db.collection(collectionConversations).Where(field, "==", userID).Documents(ctx)
		for {
			doc, err := iter.Next()
			if err == iterator.Done {
				break
			}
			if err != nil {
				iter.Stop()
				logger.Error("Firestore error while listing conversations for user %d: %v", userID, err)
				return nil, mapFirestoreError(err, "Conversation")
			}
			conversation, err := decodeConversation(doc)
			if err != nil {
				iter.Stop()
				return nil, err
			}
			out = append(out, conversation)
		}
		iter.Stop()
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].UpdatedAt.After(out[j].UpdatedAt) ||
			(out[i].UpdatedAt.Equal(out[j].UpdatedAt) && out[i].ID > out[j].ID)
	})
	return out, nil
}

// Create serializes on the pair document: a transaction that finds it already
// written returns the existing conversation instead of allocating a new one.
func (r *firestoreConversationRepository) Create(ctx context.Context, senderID, recipientID int64) (*entity.Conversation, error) {
	if err := repository.ValidatePair(senderID, recipientID); err != nil {
		return nil, err
	}

	var result *entity.Conversation
	err := r.db.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		pairRef := r.db.pairDoc(senderID, recipientID)
		pairSnap, err := tx.Get(pairRef)
		if err != nil && status.Code(err) != codes.NotFound {
			return err
		}
		if pairSnap != nil && pairSnap.Exists() {
			var pair pairRecord
			if err := pairSnap.DataTo(&pair); err != nil {
				return err
			}
			doc, err := tx.Get(r.db.conversationDoc(pair.ConversationID))
			if err != nil {
				return err
			}
			result, err = decodeConversation(doc)
			return err
		}

		id, commitCounter, err := r.db.nextID(tx, collectionConversations)
		if err != nil {
			return err
		}

		low, high := entity.CanonicalPair(senderID, recipientID)
		now := time.Now()
		rec := conversationRecord{
			ID:        id,
			UserLow:   low,
			UserHigh:  high,
			CreatedAt: now,
			UpdatedAt: now,
		}

		if err := commitCounter(); err != nil {
			return err
		}
		if err := tx.Create(r.db.conversationDoc(id), rec); err != nil {
			return err
		}
		if err := tx.Create(pairRef, pairRecord{ConversationID: id}); err != nil {
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

func (r *firestoreConversationRepository) IncrementUnseen(ctx context.Context, id int64) (*entity.Conversation, error) {
	_, err := r.db.conversationDoc(id).Update(ctx, []firestore.Update{
		{Path: "unseenCount", Value: firestore.Increment(1)},
		{Path: "updatedAt", Value: time.Now()},
	})
	if err != nil {
		return nil, mapFirestoreError(err, "Conversation")
	}
	return r.GetByID(ctx, id)
}

func (r *firestoreConversationRepository) ResetUnseen(ctx context.Context, id int64) (*entity.Conversation, error) {
	_, err := r.db.conversationDoc(id).Update(ctx, []firestore.Update{
		{Path: "unseenCount", Value: 0},
		{Path: "updatedAt", Value: time.Now()},
	})
	if err != nil {
		return nil, mapFirestoreError(err, "Conversation")
	}
	return r.GetByID(ctx, id)
}

func (r *firestoreConversationRepository) SetWatermark(ctx context.Context, id, participantID, messageID int64) (*entity.Conversation, error) {
	var result *entity.Conversation
	err := r.db.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		ref := r.db.conversationDoc(id)
		doc, err := tx.Get(ref)
		if err != nil {
			return err
		}
		conversation, err := decodeConversation(doc)
		if err != nil {
			return err
		}
		if !conversation.AdvanceWatermark(participantID, messageID) {
			return errors.Forbidden("User is not a participant in this conversation", nil)
		}

		field := "lowLastRead"
		if conversation.Participants[1].UserID == participantID {
			field = "highLastRead"
		}
		watermark, _ := conversation.WatermarkFor(participantID)
		conversation.UpdatedAt = time.Now()

		result = conversation
		return tx.Update(ref, []firestore.Update{
			{Path: field, Value: *watermark},
			{Path: "updatedAt", Value: conversation.UpdatedAt},
		})
	})
	if err != nil {
		return nil, mapFirestoreError(err, "Conversation")
	}
	return result, nil
}
