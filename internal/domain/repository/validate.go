package repository

import (
	"pairchat/pkg/errors"
)

// ValidatePair applies the creation rules shared by every ConversationRepository.
func ValidatePair(senderID, recipientID int64) error {
	if senderID <= 0 || recipientID <= 0 {
		return errors.InvalidArgument("Two valid user ids are needed to create a conversation", nil)
	}
	if senderID == recipientID {
		return errors.InvalidArgument("A conversation needs two different users", nil)
	}
	return nil
}
