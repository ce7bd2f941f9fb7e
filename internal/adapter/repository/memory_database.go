package repository

import (
	"sync"

	"pairchat/internal/domain/entity"
)

// MemoryDatabase is the process-local backing store used by STORAGE_DRIVER=memory
// and by tests. One mutex serializes every mutation, which gives the same
// atomicity the SQL and Firestore adapters get from their storage engines.
type MemoryDatabase struct {
	mu sync.Mutex

	lastConversationID int64
	lastMessageID      int64
	lastUserID         int64

	conversations map[int64]*entity.Conversation
	pairs         map[[2]int64]int64
	messages      map[int64][]*entity.Message
	users         map[int64]*entity.User
}

func NewMemoryDatabase() *MemoryDatabase {
	return &MemoryDatabase{
		conversations: make(map[int64]*entity.Conversation),
		pairs:         make(map[[2]int64]int64),
		messages:      make(map[int64][]*entity.Message),
		users:         make(map[int64]*entity.User),
	}
}

func pairKey(a, b int64) [2]int64 {
	low, high := entity.CanonicalPair(a, b)
	return [2]int64{low, high}
}
