package repository

import (
	"crypto/sha256"
	"encoding/hex"
	stderrors "errors"
	"fmt"
	"strconv"
	"strings"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"pairchat/pkg/errors"
)

const (
	collectionUsers         = "users"
	collectionUsernames     = "usernames"
	collectionEmails        = "emails"
	collectionConversations = "conversations"
	collectionPairs         = "conversationPairs"
	collectionMessages      = "messages"
	collectionCounters      = "counters"
)

// FirestoreDatabase groups the collections used by the Firestore
// repositories. prefix namespaces every top-level collection so several
// deployments or test runs can share one project.
type FirestoreDatabase struct {
	client *firestore.Client
	prefix string
}

func NewFirestoreDatabase(client *firestore.Client, prefix string) *FirestoreDatabase {
	return &FirestoreDatabase{client: client, prefix: prefix}
}

func (d *FirestoreDatabase) collection(name string) *firestore.CollectionRef {
	return d.client.Collection(d.prefix + name)
}

func (d *FirestoreDatabase) conversationDoc(id int64) *firestore.DocumentRef {
	return d.collection(collectionConversations).Doc(strconv.FormatInt(id, 10))
}

func (d *FirestoreDatabase) pairDoc(userA, userB int64) *firestore.DocumentRef {
	k := pairKey(userA, userB)
	return d.collection(collectionPairs).Doc(fmt.Sprintf("%d_%d", k[0], k[1]))
}

// messageDoc zero-pads the id so lexical document order matches numeric order.
func (d *FirestoreDatabase) messageDoc(conversationID, messageID int64) *firestore.DocumentRef {
	return d.conversationDoc(conversationID).Collection(collectionMessages).Doc(fmt.Sprintf("%020d", messageID))
}

// indexKey turns a case-insensitive unique value into a document id. Raw
// values may contain '/' or match reserved ids, so they are hashed.
func indexKey(value string) string {
	sum := sha256.Sum256([]byte(strings.ToLower(value)))
	return hex.EncodeToString(sum[:])
}

func (d *FirestoreDatabase) userDoc(id int64) *firestore.DocumentRef {
	return d.collection(collectionUsers).Doc(strconv.FormatInt(id, 10))
}

type counterRecord struct {
	Value int64 `firestore:"value"`
}

// nextID allocates the next value of the named counter inside tx. It must be
// called before any write in the same transaction.
func (d *FirestoreDatabase) nextID(tx *firestore.Transaction, name string) (int64, func() error, error) {
	ref := d.collection(collectionCounters).Doc(name)
	doc, err := tx.Get(ref)
	if err != nil && status.Code(err) != codes.NotFound {
		return 0, nil, err
	}

	var counter counterRecord
	if doc != nil && doc.Exists() {
		if err := doc.DataTo(&counter); err != nil {
			return 0, nil, err
		}
	}
	next := counter.Value + 1
	commit := func() error {
		return tx.Set(ref, counterRecord{Value: next})
	}
	return next, commit, nil
}

// mapFirestoreError converts gRPC status errors into AppErrors.
func mapFirestoreError(err error, resource string) error {
	if err == nil {
		return nil
	}
	var appErr *errors.AppError
	if stderrors.As(err, &appErr) {
		return appErr
	}
	switch status.Code(err) {
	case codes.NotFound:
		return errors.NotFound(resource, err)
	case codes.AlreadyExists:
		return errors.Conflict(resource + " already exists")
	case codes.Unavailable, codes.DeadlineExceeded, codes.Aborted, codes.ResourceExhausted:
		return errors.StorageUnavailable("Firestore unavailable", err)
	}
	return errors.Internal("Firestore error on "+resource, err)
}
