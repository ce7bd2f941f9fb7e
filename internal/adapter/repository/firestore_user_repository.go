package repository

import (
	"context"
	"sort"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"pairchat/internal/domain/entity"
	"pairchat/internal/domain/repository"
	"pairchat/pkg/errors"
)

type userRecord struct {
	ID            int64     `firestore:"id"`
	Username      string    `firestore:"username"`
	UsernameLower string    `firestore:"usernameLower"`
	Email         string    `firestore:"email"`
	PhotoURL      string    `firestore:"photoUrl"`
	PasswordHash  string    `firestore:"passwordHash"`
	CreatedAt     time.Time `firestore:"createdAt"`
	UpdatedAt     time.Time `firestore:"updatedAt"`
}

func (rec *userRecord) toEntity() *entity.User {
	return &entity.User{
		ID:           rec.ID,
		Username:     rec.Username,
		Email:        rec.Email,
		PhotoURL:     rec.PhotoURL,
		PasswordHash: rec.PasswordHash,
		CreatedAt:    rec.CreatedAt,
		UpdatedAt:    rec.UpdatedAt,
	}
}

type userIndexRecord struct {
	UserID int64 `firestore:"userId"`
}

type firestoreUserRepository struct {
	db *FirestoreDatabase
}

func NewFirestoreUserRepository(db *FirestoreDatabase) repository.UserRepository {
	return &firestoreUserRepository{db: db}
}

func decodeUser(doc *firestore.DocumentSnapshot) (*entity.User, error) {
	var rec userRecord
	if err := doc.DataTo(&rec); err != nil {
		return nil, errors.Internal("Failed to parse user data", err)
	}
	return rec.toEntity(), nil
}

// Create claims lower-cased username and email index documents in the same
// transaction as the user document, so neither can be taken twice.
func (r *firestoreUserRepository) Create(ctx context.Context, user *entity.User) error {
	usernameRef := r.db.collection(collectionUsernames).Doc(indexKey(user.Username))
	emailRef := r.db.collection(collectionEmails).Doc(indexKey(user.Email))

	var created userRecord
	err := r.db.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		for _, ref := range []*firestore.DocumentRef{usernameRef, emailRef} {
			snap, err := tx.Get(ref)
			if err != nil && status.Code(err) != codes.NotFound {
				return err
			}
			if snap != nil && snap.Exists() {
				return errors.Conflict("User already exists")
			}
		}

		id, commitCounter, err := r.db.nextID(tx, collectionUsers)
		if err != nil {
			return err
		}

		now := time.Now()
		created = userRecord{
			ID:            id,
			Username:      user.Username,
			UsernameLower: strings.ToLower(user.Username),
			Email:         user.Email,
			PhotoURL:      user.PhotoURL,
			PasswordHash:  user.PasswordHash,
			CreatedAt:     now,
			UpdatedAt:     now,
		}

		if err := commitCounter(); err != nil {
			return err
		}
		if err := tx.Create(usernameRef, userIndexRecord{UserID: id}); err != nil {
			return err
		}
		if err := tx.Create(emailRef, userIndexRecord{UserID: id}); err != nil {
			return err
		}
		return tx.Create(r.db.userDoc(id), created)
	})
	if err != nil {
		return mapFirestoreError(err, "User")
	}

	user.ID = created.ID
	user.CreatedAt = created.CreatedAt
	user.UpdatedAt = created.UpdatedAt
	return nil
}

func (r *firestoreUserRepository) GetByID(ctx context.Context, id int64) (*entity.User, error) {
	doc, err := r.db.userDoc(id).Get(ctx)
	if err != nil {
		return nil, mapFirestoreError(err, "User")
	}
	return decodeUser(doc)
}

func (r *firestoreUserRepository) GetByUsername(ctx context.Context, username string) (*entity.User, error) {
	iter := r.db.collection(collectionUsers).Where("usernameLower", "==", strings.ToLower(username)).Limit(1).Documents(ctx)
	defer iter.Stop()

	doc, err := iter.Next()
	if err != nil {
		if err == iterator.Done {
			return nil, errors.NotFound("User", nil)
		}
		return nil, mapFirestoreError(err, "User")
	}
	return decodeUser(doc)
}

// SearchByUsername scans usernames in order and filters client-side, since
// Firestore has no substring operator.
func (r *firestoreUserRepository) SearchByUsername(ctx context.Context, fragment string, excludeID int64, limit int) ([]*entity.User, error) {
	needle := strings.ToLower(fragment)
	iter := r.db.collection(collectionUsers).OrderBy("usernameLower", firestore.Asc).Documents(ctx)
	defer iter.Stop()

	var out []*entity.User
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, mapFirestoreError(err, "User")
		}

		var rec userRecord
		if err := doc.DataTo(&rec); err != nil {
			return nil, errors.Internal("Failed to parse user data", err)
		}
		if rec.ID == excludeID || !strings.Contains(rec.UsernameLower, needle) {
			continue
		}
		out = append(out, rec.toEntity())
		if limit > 0 && len(out) >= limit {
			break
		}
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out, nil
}
