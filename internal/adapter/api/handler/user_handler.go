package handler

import (
	"strconv"

	"github.com/labstack/echo/v4"

	"pairchat/internal/adapter/api/middleware"
	"pairchat/internal/usecase"
	"pairchat/pkg/errors"
	"pairchat/pkg/response"
)

type UserHandler struct {
	userUseCase *usecase.UserUseCase
}

func NewUserHandler(userUseCase *usecase.UserUseCase) *UserHandler {
	return &UserHandler{
		userUseCase: userUseCase,
	}
}

// SearchUsers handles GET /api/users/:username
func (h *UserHandler) SearchUsers(c echo.Context) error {
	userID, ok := middleware.UserID(c)
	if !ok {
		return response.Error(c, errors.Unauthorized("Authentication required", nil))
	}

	limit, _ := strconv.Atoi(c.QueryParam("limit"))

	users, err := h.userUseCase.Search(c.Request().Context(), userID, c.Param("username"), limit)
	if err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, users)
}
