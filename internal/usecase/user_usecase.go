package usecase

import (
	"context"
	"strings"

	"pairchat/internal/domain/entity"
	"pairchat/internal/domain/repository"
	"pairchat/internal/domain/service"
	"pairchat/pkg/errors"
)

const defaultSearchLimit = 20

type UserUseCase struct {
	userRepo repository.UserRepository
	presence service.PresenceRegistry
}

func NewUserUseCase(userRepo repository.UserRepository, presence service.PresenceRegistry) *UserUseCase {
	return &UserUseCase{userRepo: userRepo, presence: presence}
}

// Search finds users whose username contains fragment, excluding the caller.
func (uc *UserUseCase) Search(ctx context.Context, callerID int64, fragment string, limit int) ([]entity.UserProfile, error) {
	fragment = strings.TrimSpace(fragment)
	if fragment == "" {
		return nil, errors.BadRequest("Search term is required", nil)
	}
	if limit <= 0 || limit > 100 {
		limit = defaultSearchLimit
	}

	users, err := uc.userRepo.SearchByUsername(ctx, fragment, callerID, limit)
	if err != nil {
		return nil, err
	}

	profiles := make([]entity.UserProfile, 0, len(users))
	for _, u := range users {
		profiles = append(profiles, u.Profile(service.IsOnline(ctx, uc.presence, u.ID)))
	}
	return profiles, nil
}
