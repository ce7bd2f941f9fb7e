package presence

import (
	"context"
	"sync"
)

// MemoryRegistry counts live connections per user. A user with two open
// sockets stays online until both have closed.
type MemoryRegistry struct {
	mu          sync.RWMutex
	connections map[int64]int
}

func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{connections: make(map[int64]int)}
}

func (r *MemoryRegistry) MarkOnline(ctx context.Context, userID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.connections[userID]++
	return nil
}

func (r *MemoryRegistry) MarkOffline(ctx context.Context, userID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.connections[userID] <= 1 {
		delete(r.connections, userID)
		return nil
	}
	r.connections[userID]--
	return nil
}

func (r *MemoryRegistry) IsOnline(ctx context.Context, userID int64) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.connections[userID] > 0, nil
}

// OnlineUsers returns a snapshot of every user with at least one connection.
func (r *MemoryRegistry) OnlineUsers() []int64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]int64, 0, len(r.connections))
	for id := range r.connections {
		out = append(out, id)
	}
	return out
}
