package websocket

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"pairchat/internal/domain/repository"
	"pairchat/internal/domain/service"
	"pairchat/internal/infrastructure/metrics"
	"pairchat/pkg/logger"
)

// Manager tracks every live connection. A user may hold several connections
// at once; presence flips only on the first connect and the last disconnect.
type Manager struct {
	clients       map[int64]map[string]*Client
	Register      chan *Client
	Unregister    chan *Client
	presence      service.PresenceRegistry
	conversations repository.ConversationRepository
	done          chan struct{}
	mutex         sync.RWMutex
}

// toucher is implemented by presence registries whose entries expire.
type toucher interface {
	Touch(ctx context.Context, userID int64) error
}

func NewManager(presence service.PresenceRegistry, conversations repository.ConversationRepository) *Manager {
	return &Manager{
		clients:       make(map[int64]map[string]*Client),
		Register:      make(chan *Client),
		Unregister:    make(chan *Client),
		presence:      presence,
		conversations: conversations,
		done:          make(chan struct{}),
	}
}

// Start runs the manager's main loop in a goroutine
func (m *Manager) Start(ctx context.Context) {
	go func() {
		for {
			select {
			case client := <-m.Register:
				m.register(ctx, client)
			case client := <-m.Unregister:
				m.unregister(ctx, client)
			case <-ctx.Done():
				close(m.done)
				m.closeAll()
				return
			}
		}
	}()
}

func (m *Manager) register(ctx context.Context, client *Client) {
	m.mutex.Lock()
	conns, ok := m.clients[client.UserID]
	if !ok {
		conns = make(map[string]*Client)
		m.clients[client.UserID] = conns
	}
	conns[client.ID] = client
	metrics.Connections.Inc()
	first := len(conns) == 1
	online := m.onlineUsersLocked()
	m.mutex.Unlock()

	if err := m.presence.MarkOnline(ctx, client.UserID); err != nil {
		logger.Warn("WebSocket: failed to mark user %d online: %v", client.UserID, err)
	}
	logger.Info("WebSocket: client %s registered for user %d", client.ID, client.UserID)

	m.sendToClient(client, newWSMessage(MessageTypeOnlineUsers, OnlineUsersData{UserIDs: online}))
	if first {
		m.broadcastExcept(client.UserID, newWSMessage(MessageTypeAddOnlineUser, PresenceData{UserID: client.UserID, Online: true}))
	}
}

func (m *Manager) unregister(ctx context.Context, client *Client) {
	m.mutex.Lock()
	conns, ok := m.clients[client.UserID]
	if !ok || conns[client.ID] == nil {
		m.mutex.Unlock()
		return
	}
	delete(conns, client.ID)
	close(client.Send)
	metrics.Connections.Dec()
	last := len(conns) == 0
	if last {
		delete(m.clients, client.UserID)
	}
	m.mutex.Unlock()

	if err := m.presence.MarkOffline(ctx, client.UserID); err != nil {
		logger.Warn("WebSocket: failed to mark user %d offline: %v", client.UserID, err)
	}
	logger.Info("WebSocket: client %s unregistered for user %d", client.ID, client.UserID)

	if last {
		m.broadcastExcept(client.UserID, newWSMessage(MessageTypeRemoveOfflineUser, PresenceData{UserID: client.UserID, Online: false}))
	}
}

// closeAll runs after the loop's context is gone, so presence is cleared
// under a fresh deadline.
func (m *Manager) closeAll() {
	m.mutex.Lock()
	var dropped []int64
	for userID, conns := range m.clients {
		for _, client := range conns {
			close(client.Send)
			metrics.Connections.Dec()
			dropped = append(dropped, userID)
		}
		delete(m.clients, userID)
	}
	m.mutex.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for _, userID := range dropped {
		if err := m.presence.MarkOffline(ctx, userID); err != nil {
			logger.Warn("WebSocket: failed to mark user %d offline on shutdown: %v", userID, err)
		}
	}
}

func (m *Manager) onlineUsersLocked() []int64 {
	out := make([]int64, 0, len(m.clients))
	for id := range m.clients {
		out = append(out, id)
	}
	return out
}

// SendToUser delivers message to every connection userID holds. It reports
// whether at least one connection accepted it.
func (m *Manager) SendToUser(userID int64, message WSMessage) bool {
	payload, err := json.Marshal(message)
	if err != nil {
		logger.Error("WebSocket: failed to marshal %s message: %v", message.Type, err)
		return false
	}

	m.mutex.RLock()
	defer m.mutex.RUnlock()

	delivered := false
	for _, client := range m.clients[userID] {
		if m.enqueue(client, payload) {
			delivered = true
		}
	}
	return delivered
}

func (m *Manager) broadcastExcept(userID int64, message WSMessage) {
	payload, err := json.Marshal(message)
	if err != nil {
		logger.Error("WebSocket: failed to marshal %s message: %v", message.Type, err)
		return
	}

	m.mutex.RLock()
	defer m.mutex.RUnlock()
	for id, conns := range m.clients {
		if id == userID {
			continue
		}
		for _, client := range conns {
			m.enqueue(client, payload)
		}
	}
}

func (m *Manager) sendToClient(client *Client, message WSMessage) {
	payload, err := json.Marshal(message)
	if err != nil {
		logger.Error("WebSocket: failed to marshal %s message: %v", message.Type, err)
		return
	}
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	if conns := m.clients[client.UserID]; conns != nil && conns[client.ID] != nil {
		m.enqueue(client, payload)
	}
}

// enqueue never blocks. A client whose buffer is full is dropped. Callers
// hold at least the read lock, so Send cannot be closed underneath us.
func (m *Manager) enqueue(client *Client, payload []byte) bool {
	select {
	case client.Send <- payload:
		return true
	default:
		logger.Warn("WebSocket: send buffer full for client %s, dropping", client.ID)
		go m.release(client)
		return false
	}
}

// Add hands a new client to the main loop. It returns false once the
// manager has stopped, in which case the caller owns the connection.
func (m *Manager) Add(client *Client) bool {
	select {
	case m.Register <- client:
		return true
	case <-m.done:
		return false
	}
}

// release hands client to the main loop unless the manager has stopped.
func (m *Manager) release(client *Client) {
	select {
	case m.Unregister <- client:
	case <-m.done:
	}
}

func (m *Manager) touch(userID int64) {
	t, ok := m.presence.(toucher)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := t.Touch(ctx, userID); err != nil {
		logger.Warn("WebSocket: failed to renew presence for user %d: %v", userID, err)
	}
}

// ConnectionCount returns how many live connections userID holds.
func (m *Manager) ConnectionCount(userID int64) int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return len(m.clients[userID])
}
