package utils

import (
	"github.com/gofiber/fiber/v2"

	"github.com/lyycrypto/jebalrepository/internal/middleware"
)

// APIResponse is the envelope every board endpoint answers with. The
// correlation id lets a client quote a failing request back to operators.
type APIResponse struct {
	Success       bool        `json:"success"`
	Data          interface{} `json:"data,omitempty"`
	Message       string      `json:"message"`
	CorrelationID string      `json:"correlationId,omitempty"`
}

// SendSuccess answers 200 with data.
func SendSuccess(c *fiber.Ctx, message string, data interface{}) error {
	return SendSuccessWithStatus(c, fiber.StatusOK, message, data)
}

// SendSuccessWithStatus answers status with data; 0 means 200.
func SendSuccessWithStatus(c *fiber.Ctx, status int, message string, data interface{}) error {
	if message == "" {
		message = "success"
	}
	if status == 0 {
		status = fiber.StatusOK
	}

	return c.Status(status).JSON(APIResponse{
		Success:       true,
		Data:          data,
		Message:       message,
		CorrelationID: middleware.GetCorrelationID(c),
	})
}

// SendError answers status with a message and no data.
func SendError(c *fiber.Ctx, status int, message string) error {
	if message == "" {
		message = "error"
	}

	return c.Status(status).JSON(APIResponse{
		Success:       false,
		Message:       message,
		CorrelationID: middleware.GetCorrelationID(c),
	})
}
