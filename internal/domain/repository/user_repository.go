package repository

import (
	"context"

	"pairchat/internal/domain/entity"
)

type UserRepository interface {
	Create(ctx context.Context, user *entity.User) error
	GetByID(ctx context.Context, id int64) (*entity.User, error)
	GetByUsername(ctx context.Context, username string) (*entity.User, error)
	SearchByUsername(ctx context.Context, fragment string, excludeID int64, limit int) ([]*entity.User, error)
}
