package service

import "context"

// PresenceRegistry tracks which users currently hold a live connection.
// The realtime transport mutates it; the messaging core only reads it.
type PresenceRegistry interface {
	MarkOnline(ctx context.Context, userID int64) error
	MarkOffline(ctx context.Context, userID int64) error
	IsOnline(ctx context.Context, userID int64) (bool, error)
}
