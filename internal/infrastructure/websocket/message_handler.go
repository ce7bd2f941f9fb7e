package websocket

import (
	"context"
	"encoding/json"
	"time"

	"pairchat/internal/domain/entity"
	"pairchat/internal/domain/service"
	"pairchat/pkg/logger"
)

// WebSocket Message Types
const (
	MessageTypePing              = "ping"
	MessageTypePong              = "pong"
	MessageTypeError             = "error"
	MessageTypeTyping            = "typing"
	MessageTypeNewMessage        = "new-message"
	MessageTypeOnlineUsers       = "online-users"
	MessageTypeAddOnlineUser     = "add-online-user"
	MessageTypeRemoveOfflineUser = "remove-offline-user"
)

const typingTTL = 5 * time.Second

type WSMessage struct {
	Type      string      `json:"type"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp string      `json:"timestamp"`
}

// inboundMessage keeps Data raw so each handler decodes its own shape.
type inboundMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

type NewMessageData struct {
	Message *entity.Message    `json:"message"`
	Sender  entity.UserProfile `json:"sender"`
}

type TypingData struct {
	ConversationID int64  `json:"conversation_id"`
	UserID         int64  `json:"user_id"`
	Typing         bool   `json:"typing"`
	ExpiresAt      string `json:"expires_at,omitempty"`
}

type PresenceData struct {
	UserID int64 `json:"user_id"`
	Online bool  `json:"online"`
}

type OnlineUsersData struct {
	UserIDs []int64 `json:"user_ids"`
}

type ErrorData struct {
	Message string `json:"message"`
}

func newWSMessage(messageType string, data interface{}) WSMessage {
	return WSMessage{
		Type:      messageType,
		Data:      data,
		Timestamp: time.Now().Format(time.RFC3339),
	}
}

// HandleClientMessage processes incoming WebSocket messages
func (m *Manager) HandleClientMessage(client *Client, raw []byte) {
	var msg inboundMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		logger.Debug("WebSocket: failed to unmarshal message from client %s: %v", client.ID, err)
		m.sendErrorToClient(client, "Invalid message format")
		return
	}

	switch msg.Type {
	case MessageTypePing:
		m.touch(client.UserID)
		m.sendToClient(client, newWSMessage(MessageTypePong, map[string]string{"status": "alive"}))

	case MessageTypeTyping:
		m.handleTyping(client, msg.Data)

	default:
		logger.Debug("WebSocket: unknown message type '%s' from client %s", msg.Type, client.ID)
		m.sendErrorToClient(client, "Unknown message type")
	}
}

// handleTyping relays a typing indicator to the other participant. Nothing
// is persisted; conversation views always report isTyping=false.
func (m *Manager) handleTyping(client *Client, data json.RawMessage) {
	var typing TypingData
	if err := json.Unmarshal(data, &typing); err != nil || typing.ConversationID <= 0 {
		m.sendErrorToClient(client, "Invalid typing payload")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	conversation, err := m.conversations.GetByID(ctx, typing.ConversationID)
	if err != nil {
		m.sendErrorToClient(client, "Conversation not available")
		return
	}
	recipient, ok := conversation.OtherParticipant(client.UserID)
	if !ok {
		m.sendErrorToClient(client, "Conversation not available")
		return
	}

	typing.UserID = client.UserID
	if typing.Typing {
		typing.ExpiresAt = time.Now().Add(typingTTL).Format(time.RFC3339)
	}
	m.SendToUser(recipient, newWSMessage(MessageTypeTyping, typing))
}

func (m *Manager) sendErrorToClient(client *Client, errorMsg string) {
	m.sendToClient(client, newWSMessage(MessageTypeError, ErrorData{Message: errorMsg}))
}

// Notify pushes a stored message to the recipient's open connections. A
// recipient without connections is not an error; they will see it on the
// next conversation list.
func (m *Manager) Notify(ctx context.Context, delivery service.Delivery) error {
	delivered := m.SendToUser(delivery.RecipientID, newWSMessage(MessageTypeNewMessage, NewMessageData{
		Message: delivery.Message,
		Sender:  delivery.Sender,
	}))
	if !delivered {
		logger.Debug("WebSocket: user %d has no live connection for message %d", delivery.RecipientID, delivery.Message.ID)
	}
	return nil
}
