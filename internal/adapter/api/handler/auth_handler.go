package handler

import (
	"time"

	"github.com/labstack/echo/v4"

	"pairchat/internal/adapter/api/middleware"
	"pairchat/internal/domain/entity"
	"pairchat/internal/usecase"
	"pairchat/pkg/errors"
	"pairchat/pkg/response"
)

type AuthHandler struct {
	authUseCase *usecase.AuthUseCase
}

func NewAuthHandler(authUseCase *usecase.AuthUseCase) *AuthHandler {
	return &AuthHandler{
		authUseCase: authUseCase,
	}
}

type registerRequest struct {
	Username string `json:"username" validate:"required,username"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
	PhotoURL string `json:"photo_url" validate:"omitempty,url"`
}

type loginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type userResponse struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	PhotoURL string `json:"photo_url,omitempty"`
}

type authResponse struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      userResponse `json:"user"`
}

func toUserResponse(u *entity.User) userResponse {
	return userResponse{
		ID:       u.ID,
		Username: u.Username,
		Email:    u.Email,
		PhotoURL: u.PhotoURL,
	}
}

func toAuthResponse(result *usecase.AuthResult) authResponse {
	return authResponse{
		Token:     result.Token,
		ExpiresAt: result.ExpiresAt,
		User:      toUserResponse(result.User),
	}
}

func (h *AuthHandler) Register(c echo.Context) error {
	var req registerRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, errors.BadRequest("Invalid request body", err))
	}
	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	result, err := h.authUseCase.Register(c.Request().Context(), usecase.RegisterInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
		PhotoURL: req.PhotoURL,
	})
	if err != nil {
		return response.Error(c, err)
	}

	return response.Created(c, toAuthResponse(result))
}

func (h *AuthHandler) Login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, errors.BadRequest("Invalid request body", err))
	}
	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	result, err := h.authUseCase.Login(c.Request().Context(), req.Username, req.Password)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, toAuthResponse(result))
}

// Logout is stateless; tokens simply expire.
func (h *AuthHandler) Logout(c echo.Context) error {
	return response.NoContent(c)
}

// CurrentUser returns the caller, or an empty object for anonymous requests.
func (h *AuthHandler) CurrentUser(c echo.Context) error {
	userID, ok := middleware.UserID(c)
	if !ok {
		return response.Success(c, struct{}{})
	}

	user, err := h.authUseCase.CurrentUser(c.Request().Context(), userID)
	if err != nil {
		if errors.Is(err, errors.CodeNotFound) {
			return response.Success(c, struct{}{})
		}
		return response.Error(c, err)
	}
	return response.Success(c, toUserResponse(user))
}
