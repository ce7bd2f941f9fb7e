package usecase

import (
	"context"
	"regexp"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"pairchat/internal/domain/entity"
	"pairchat/internal/domain/repository"
	"pairchat/pkg/errors"
	"pairchat/pkg/logger"
)

const MinPasswordLength = 6

var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9._-]{1,64}$`)

// ValidUsername reports whether name only uses letters, digits, '.', '_'
// and '-', and is at most 64 characters long.
func ValidUsername(name string) bool {
	return usernamePattern.MatchString(name)
}

// TokenIssuer signs session tokens for a user id.
type TokenIssuer interface {
	Generate(userID int64) (string, time.Time, error)
}

type AuthUseCase struct {
	userRepo repository.UserRepository
	tokens   TokenIssuer
	cost     int
}

func NewAuthUseCase(userRepo repository.UserRepository, tokens TokenIssuer) *AuthUseCase {
	return &AuthUseCase{
		userRepo: userRepo,
		tokens:   tokens,
		cost:     bcrypt.DefaultCost,
	}
}

type RegisterInput struct {
	Username string
	Email    string
	Password string
	PhotoURL string
}

type AuthResult struct {
	User      *entity.User `json:"user"`
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
}

func (uc *AuthUseCase) Register(ctx context.Context, input RegisterInput) (*AuthResult, error) {
	username := strings.TrimSpace(input.Username)
	email := strings.TrimSpace(input.Email)
	if username == "" || email == "" || input.Password == "" {
		return nil, errors.BadRequest("Username, email and password are required", nil)
	}
	if !ValidUsername(username) {
		return nil, errors.BadRequest("Username may only contain letters, digits, '.', '_' and '-'", nil)
	}
	if len(input.Password) < MinPasswordLength {
		return nil, errors.BadRequest("Password must be at least 6 characters", nil)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), uc.cost)
	if err != nil {
		return nil, errors.Internal("Failed to hash password", err)
	}

	user := &entity.User{
		Username:     username,
		Email:        email,
		PhotoURL:     input.PhotoURL,
		PasswordHash: string(hash),
	}
	if err := uc.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}
	logger.Info("Registered user %d (%s)", user.ID, user.Username)

	return uc.issue(user)
}

// Login never reveals whether the username or the password was wrong.
func (uc *AuthUseCase) Login(ctx context.Context, username, password string) (*AuthResult, error) {
	invalid := errors.Unauthorized("Invalid username or password", nil)

	user, err := uc.userRepo.GetByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, errors.CodeNotFound) {
			return nil, invalid
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, invalid
	}

	return uc.issue(user)
}

func (uc *AuthUseCase) CurrentUser(ctx context.Context, userID int64) (*entity.User, error) {
	return uc.userRepo.GetByID(ctx, userID)
}

func (uc *AuthUseCase) issue(user *entity.User) (*AuthResult, error) {
	token, expiresAt, err := uc.tokens.Generate(user.ID)
	if err != nil {
		return nil, errors.Internal("Failed to generate authentication token", err)
	}
	return &AuthResult{User: user, Token: token, ExpiresAt: expiresAt}, nil
}
