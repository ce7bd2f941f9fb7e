package usecase_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pairchat/internal/adapter/repository"
	"pairchat/internal/infrastructure/presence"
	"pairchat/internal/infrastructure/token"
	"pairchat/internal/usecase"
	"pairchat/pkg/errors"
)

func newAuth(t *testing.T) (*usecase.AuthUseCase, *token.JWTManager, *usecase.UserUseCase, *presence.MemoryRegistry) {
	t.Helper()
	db := repository.NewMemoryDatabase()
	users := repository.NewMemoryUserRepository(db)
	tokens := token.NewJWTManager("test-secret", time.Hour)
	registry := presence.NewMemoryRegistry()
	return usecase.NewAuthUseCase(users, tokens), tokens, usecase.NewUserUseCase(users, registry), registry
}

func TestRegisterAndLogin(t *testing.T) {
	auth, tokens, _, _ := newAuth(t)
	ctx := context.Background()

	registered, err := auth.Register(ctx, usecase.RegisterInput{
		Username: "thomas",
		Email:    "thomas@example.com",
		Password: "secret1",
	})
	require.NoError(t, err)
	assert.NotZero(t, registered.User.ID)
	assert.NotEqual(t, "secret1", registered.User.PasswordHash)

	userID, err := tokens.Verify(registered.Token)
	require.NoError(t, err)
	assert.Equal(t, registered.User.ID, userID)

	loggedIn, err := auth.Login(ctx, "thomas", "secret1")
	require.NoError(t, err)
	assert.Equal(t, registered.User.ID, loggedIn.User.ID)

	me, err := auth.CurrentUser(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, "thomas", me.Username)
}

func TestRegisterValidation(t *testing.T) {
	auth, _, _, _ := newAuth(t)
	ctx := context.Background()

	_, err := auth.Register(ctx, usecase.RegisterInput{Username: "thomas", Email: "t@example.com", Password: "short"})
	assert.True(t, errors.Is(err, errors.CodeBadRequest))

	_, err = auth.Register(ctx, usecase.RegisterInput{Username: " ", Email: "t@example.com", Password: "secret1"})
	assert.True(t, errors.Is(err, errors.CodeBadRequest))

	_, err = auth.Register(ctx, usecase.RegisterInput{Username: "thomas", Email: "t@example.com", Password: "secret1"})
	require.NoError(t, err)
	_, err = auth.Register(ctx, usecase.RegisterInput{Username: "thomas", Email: "t2@example.com", Password: "secret1"})
	assert.True(t, errors.Is(err, errors.CodeConflict))
}

func TestRegisterRejectsUnsafeUsernames(t *testing.T) {
	auth, _, _, _ := newAuth(t)
	ctx := context.Background()

	for _, name := range []string{"team/thomas", "thomas lee", "a\\b"} {
		_, err := auth.Register(ctx, usecase.RegisterInput{Username: name, Email: "t@example.com", Password: "secret1"})
		assert.True(t, errors.Is(err, errors.CodeBadRequest), name)
	}
	assert.True(t, usecase.ValidUsername("hua.ling_2-x"))
	assert.False(t, usecase.ValidUsername(""))
}

func TestLoginFailuresAreIndistinguishable(t *testing.T) {
	auth, _, _, _ := newAuth(t)
	ctx := context.Background()
	_, err := auth.Register(ctx, usecase.RegisterInput{Username: "thomas", Email: "t@example.com", Password: "secret1"})
	require.NoError(t, err)

	_, wrongPassword := auth.Login(ctx, "thomas", "nope")
	_, unknownUser := auth.Login(ctx, "nobody", "secret1")

	assert.True(t, errors.Is(wrongPassword, errors.CodeUnauthorized))
	assert.True(t, errors.Is(unknownUser, errors.CodeUnauthorized))
	assert.Equal(t, wrongPassword.Error(), unknownUser.Error())
}

func TestSearchUsersAnnotatesPresence(t *testing.T) {
	auth, _, users, registry := newAuth(t)
	ctx := context.Background()

	ids := map[string]int64{}
	for _, name := range []string{"thomas", "santiago", "chiumbo", "hualing"} {
		res, err := auth.Register(ctx, usecase.RegisterInput{Username: name, Email: name + "@example.com", Password: "secret1"})
		require.NoError(t, err)
		ids[name] = res.User.ID
	}
	require.NoError(t, registry.MarkOnline(ctx, ids["hualing"]))

	found, err := users.Search(ctx, ids["santiago"], "a", 0)
	require.NoError(t, err)
	require.Len(t, found, 2)
	assert.Equal(t, "hualing", found[0].Username)
	assert.True(t, found[0].Online)
	assert.Equal(t, "thomas", found[1].Username)
	assert.False(t, found[1].Online)

	_, err = users.Search(ctx, ids["santiago"], "  ", 10)
	assert.True(t, errors.Is(err, errors.CodeBadRequest))
}
