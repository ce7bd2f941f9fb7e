package service

import (
	"context"

	"pairchat/internal/domain/entity"
)

// Delivery is the payload handed to the realtime layer after a message is stored.
type Delivery struct {
	RecipientID int64              `json:"recipient_id"`
	Message     *entity.Message    `json:"message"`
	Sender      entity.UserProfile `json:"sender"`
}

type DeliveryNotifier interface {
	Notify(ctx context.Context, delivery Delivery) error
}
