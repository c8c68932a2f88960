package handler

import (
	"context"
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/lyycrypto/jebalrepository/internal/middleware"
	"github.com/lyycrypto/jebalrepository/internal/utils"
)

func requestContext(c *fiber.Ctx) context.Context {
	ctx := c.UserContext()
	if ctx == nil {
		ctx = context.Background()
	}
	return middleware.ContextWithCorrelation(ctx, middleware.GetCorrelationID(c))
}

func requestLogger(base zerolog.Logger, c *fiber.Ctx) *zerolog.Logger {
	logger := base
	if c != nil {
		builder := base.With()
		if correlation := middleware.GetCorrelationID(c); correlation != "" {
			builder = builder.Str("correlation_id", correlation)
		}
		if session := middleware.GetSessionID(c); session != "" {
			builder = builder.Str("session_id", session)
		}
		logger = builder.Logger()
	}
	return &logger
}

func isValidationError(err error) bool {
	var validationErrors validator.ValidationErrors
	return errors.As(err, &validationErrors)
}

func internalError(base zerolog.Logger, c *fiber.Ctx, err error) error {
	requestLogger(base, c).Error().Err(err).Str("path", c.Path()).Msg("internal server error")
	return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
}
