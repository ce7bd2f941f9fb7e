package api

import (
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"pairchat/internal/usecase"
	"pairchat/pkg/logger"
	"pairchat/pkg/response"
)

type CustomValidator struct {
	validator *validator.Validate
}

func NewValidator() *CustomValidator {
	v := validator.New()
	_ = v.RegisterValidation("username", func(fl validator.FieldLevel) bool {
		return usecase.ValidUsername(fl.Field().String())
	})
	return &CustomValidator{validator: v}
}

func (cv *CustomValidator) Validate(i interface{}) error {
	return cv.validator.Struct(i)
}

// ErrorHandler renders every error returned by a handler or middleware in
// the standard envelope.
func ErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	if werr := response.Error(c, err); werr != nil {
		logger.Error("Failed to write error response: %v", werr)
	}
	if c.Response().Status >= 500 {
		logger.Error("%s %s: %v", c.Request().Method, c.Request().URL.Path, err)
	}
}
