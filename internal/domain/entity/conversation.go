package entity

import "time"

// Participant is one side of a two-party conversation together with the
// highest message id that participant has acknowledged reading.
type Participant struct {
	UserID            int64  `json:"user_id"`
	LastReadMessageID *int64 `json:"-"`
}

// Conversation links exactly two users. Participants is kept in ascending
// UserID order so the unordered pair has a single canonical form.
type Conversation struct {
	ID           int64          `json:"id"`
	Participants [2]Participant `json:"-"`
	UnseenCount  int            `json:"unseen_count"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

// CanonicalPair orders two user ids so that the smaller one comes first.
func CanonicalPair(a, b int64) (int64, int64) {
	if a > b {
		return b, a
	}
	return a, b
}

// NewConversation builds an unsaved conversation for the pair with zeroed read state.
func NewConversation(userA, userB int64) *Conversation {
	low, high := CanonicalPair(userA, userB)
	return &Conversation{
		Participants: [2]Participant{{UserID: low}, {UserID: high}},
	}
}

func (c *Conversation) HasParticipant(userID int64) bool {
	return c.slot(userID) >= 0
}

// OtherParticipant returns the participant that is not userID. ok is false
// when userID is not part of the conversation.
func (c *Conversation) OtherParticipant(userID int64) (int64, bool) {
	switch c.slot(userID) {
	case 0:
		return c.Participants[1].UserID, true
	case 1:
		return c.Participants[0].UserID, true
	default:
		return 0, false
	}
}

// WatermarkFor returns the watermark owned by userID.
func (c *Conversation) WatermarkFor(userID int64) (*int64, bool) {
	i := c.slot(userID)
	if i < 0 {
		return nil, false
	}
	return c.Participants[i].LastReadMessageID, true
}

// AdvanceWatermark moves userID's watermark to messageID unless it already
// points at a later message. It reports false when userID is not a participant.
func (c *Conversation) AdvanceWatermark(userID, messageID int64) bool {
	i := c.slot(userID)
	if i < 0 {
		return false
	}
	current := c.Participants[i].LastReadMessageID
	if current != nil && *current >= messageID {
		return true
	}
	id := messageID
	c.Participants[i].LastReadMessageID = &id
	return true
}

// Clone returns a deep copy so stored state is never shared with callers.
func (c *Conversation) Clone() *Conversation {
	out := *c
	for i := range out.Participants {
		if w := c.Participants[i].LastReadMessageID; w != nil {
			v := *w
			out.Participants[i].LastReadMessageID = &v
		}
	}
	return &out
}

func (c *Conversation) slot(userID int64) int {
	for i, p := range c.Participants {
		if p.UserID == userID {
			return i
		}
	}
	return -1
}
