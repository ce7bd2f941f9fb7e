package events

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pairchat/internal/domain/entity"
	"pairchat/internal/domain/service"
)

type recordingNotifier struct {
	calls int
	err   error
}

func (r *recordingNotifier) Notify(ctx context.Context, delivery service.Delivery) error {
	r.calls++
	return r.err
}

func sampleDelivery() service.Delivery {
	return service.Delivery{
		RecipientID: 2,
		Message:     &entity.Message{ID: 41, ConversationID: 3, SenderID: 1, Text: "hello", CreatedAt: time.Now()},
		Sender:      entity.UserProfile{ID: 1, Username: "thomas", Online: true},
	}
}

func TestFanoutCallsEveryNotifier(t *testing.T) {
	first := &recordingNotifier{err: errors.New("socket gone")}
	second := &recordingNotifier{}

	fanout := NewFanout().Add("websocket", first).Add("nats", second).Add("missing", nil)
	err := fanout.Notify(context.Background(), sampleDelivery())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "websocket: socket gone")
	assert.Equal(t, 1, first.calls)
	assert.Equal(t, 1, second.calls)
}

func TestFanoutEmpty(t *testing.T) {
	assert.NoError(t, NewFanout().Notify(context.Background(), sampleDelivery()))
}

func TestNilPublisherIsNoop(t *testing.T) {
	var p *Publisher
	assert.NoError(t, p.Notify(context.Background(), sampleDelivery()))
}

func TestPublisherPublishesMessageCreated(t *testing.T) {
	url := os.Getenv("TEST_NATS_URL")
	if url == "" {
		t.Skip("TEST_NATS_URL not set")
	}

	nc, err := nats.Connect(url)
	require.NoError(t, err)
	defer nc.Close()

	sub, err := nc.SubscribeSync(SubjectMessageCreated)
	require.NoError(t, err)
	require.NoError(t, nc.Flush())

	publisher := NewPublisherWithConn(nc)
	require.NoError(t, publisher.Notify(context.Background(), sampleDelivery()))

	msg, err := sub.NextMsg(2 * time.Second)
	require.NoError(t, err)
	assert.Equal(t, "2", msg.Header.Get("Recipient-Id"))

	var event MessageCreatedEvent
	require.NoError(t, json.Unmarshal(msg.Data, &event))
	assert.Equal(t, int64(41), event.MessageID)
	assert.Equal(t, "hello", event.Text)
	assert.True(t, event.SenderOnline)
}
