package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/nats-io/nats.go"

	"pairchat/internal/domain/service"
	"pairchat/pkg/logger"
)

const SubjectMessageCreated = "message.created"

// MessageCreatedEvent is the wire form published for every stored message.
type MessageCreatedEvent struct {
	MessageID      int64     `json:"message_id"`
	ConversationID int64     `json:"conversation_id"`
	SenderID       int64     `json:"sender_id"`
	RecipientID    int64     `json:"recipient_id"`
	Text           string    `json:"text"`
	SenderOnline   bool      `json:"sender_online"`
	CreatedAt      time.Time `json:"created_at"`
}

// Publisher fans stored messages out to other nodes and consumers over NATS.
type Publisher struct {
	nc      *nats.Conn
	subject string
}

func NewPublisher(url string) (*Publisher, error) {
	nc, err := nats.Connect(url,
		nats.Name("pairchat"),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("NATS disconnected: %v", err)
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("NATS reconnected to %s", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to nats: %w", err)
	}
	return &Publisher{nc: nc, subject: SubjectMessageCreated}, nil
}

func NewPublisherWithConn(nc *nats.Conn) *Publisher {
	return &Publisher{nc: nc, subject: SubjectMessageCreated}
}

func (p *Publisher) Notify(ctx context.Context, delivery service.Delivery) error {
	if p == nil || p.nc == nil {
		return nil
	}

	m := delivery.Message
	payload, err := json.Marshal(MessageCreatedEvent{
		MessageID:      m.ID,
		ConversationID: m.ConversationID,
		SenderID:       m.SenderID,
		RecipientID:    delivery.RecipientID,
		Text:           m.Text,
		SenderOnline:   delivery.Sender.Online,
		CreatedAt:      m.CreatedAt,
	})
	if err != nil {
		return fmt.Errorf("marshal %s: %w", p.subject, err)
	}

	msg := nats.NewMsg(p.subject)
	msg.Data = payload
	msg.Header.Set("Recipient-Id", strconv.FormatInt(delivery.RecipientID, 10))
	msg.Header.Set(nats.MsgIdHdr, fmt.Sprintf("%d-%d", m.ConversationID, m.ID))

	if err := p.nc.PublishMsg(msg); err != nil {
		return fmt.Errorf("publish %s: %w", p.subject, err)
	}
	return nil
}

func (p *Publisher) Close() {
	if p == nil || p.nc == nil {
		return
	}
	if err := p.nc.Drain(); err != nil {
		logger.Warn("NATS drain failed: %v", err)
	}
}
