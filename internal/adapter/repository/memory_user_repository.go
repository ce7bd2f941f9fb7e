package repository

import (
	"context"
	"sort"
	"strings"
	"time"

	"pairchat/internal/domain/entity"
	"pairchat/internal/domain/repository"
	"pairchat/pkg/errors"
)

type memoryUserRepository struct {
	db *MemoryDatabase
}

func NewMemoryUserRepository(db *MemoryDatabase) repository.UserRepository {
	return &memoryUserRepository{db: db}
}

func (r *memoryUserRepository) Create(ctx context.Context, user *entity.User) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	for _, existing := range r.db.users {
		if strings.EqualFold(existing.Username, user.Username) || strings.EqualFold(existing.Email, user.Email) {
			return errors.Conflict("User already exists")
		}
	}

	if user.ID == 0 {
		r.db.lastUserID++
		user.ID = r.db.lastUserID
	} else if user.ID > r.db.lastUserID {
		r.db.lastUserID = user.ID
	}
	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now

	stored := *user
	r.db.users[user.ID] = &stored
	return nil
}

func (r *memoryUserRepository) GetByID(ctx context.Context, id int64) (*entity.User, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	user, ok := r.db.users[id]
	if !ok {
		return nil, errors.NotFound("User", nil)
	}
	out := *user
	return &out, nil
}

func (r *memoryUserRepository) GetByUsername(ctx context.Context, username string) (*entity.User, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	for _, user := range r.db.users {
		if strings.EqualFold(user.Username, username) {
			out := *user
			return &out, nil
		}
	}
	return nil, errors.NotFound("User", nil)
}

func (r *memoryUserRepository) SearchByUsername(ctx context.Context, fragment string, excludeID int64, limit int) ([]*entity.User, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	needle := strings.ToLower(fragment)
	var out []*entity.User
	for _, user := range r.db.users {
		if user.ID == excludeID || !strings.Contains(strings.ToLower(user.Username), needle) {
			continue
		}
		cp := *user
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
