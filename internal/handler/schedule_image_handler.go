package handler

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/lyycrypto/jebalrepository/internal/dto"
	"github.com/lyycrypto/jebalrepository/internal/service"
	"github.com/lyycrypto/jebalrepository/internal/utils"
)

// ScheduleImageHandler manages the timetable image.
type ScheduleImageHandler struct {
	service   service.ScheduleService
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewScheduleImageHandler constructs the handler.
func NewScheduleImageHandler(service service.ScheduleService, validator *validator.Validate, logger zerolog.Logger) *ScheduleImageHandler {
	return &ScheduleImageHandler{
		service:   service,
		validator: validator,
		logger:    logger.With().Str("component", "schedule_image_handler").Logger(),
	}
}

// Register binds the schedule image routes.
func (h *ScheduleImageHandler) Register(router fiber.Router, writeLimiter fiber.Handler) {
	if writeLimiter == nil {
		writeLimiter = func(c *fiber.Ctx) error { return c.Next() }
	}

	router.Get("", h.get)
	router.Put("", writeLimiter, h.put)
	router.Delete("", writeLimiter, h.remove)
}

func (h *ScheduleImageHandler) get(c *fiber.Ctx) error {
	return utils.SendSuccess(c, "schedule image", h.service.Current())
}

func (h *ScheduleImageHandler) put(c *fiber.Ctx) error {
	if strings.HasPrefix(c.Get(fiber.HeaderContentType), fiber.MIMEMultipartForm) {
		file, err := c.FormFile("image")
		if err != nil {
			return utils.SendError(c, fiber.StatusBadRequest, "image file is required")
		}

		image, err := h.service.Upload(requestContext(c), file)
		if err != nil {
			return h.handleError(c, err)
		}
		return utils.SendSuccess(c, "schedule image updated", image)
	}

	var payload dto.ScheduleImageRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}
	if err := h.validator.Struct(payload); err != nil {
		return h.handleError(c, err)
	}

	image, err := h.service.SetDataURI(requestContext(c), payload.DataURI)
	if err != nil {
		return h.handleError(c, err)
	}
	return utils.SendSuccess(c, "schedule image updated", image)
}

func (h *ScheduleImageHandler) remove(c *fiber.Ctx) error {
	if err := h.service.Remove(requestContext(c)); err != nil {
		return h.handleError(c, err)
	}
	return utils.SendSuccess(c, "schedule image removed", nil)
}

func (h *ScheduleImageHandler) handleError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, service.ErrImageTooLarge):
		return utils.SendError(c, fiber.StatusRequestEntityTooLarge, err.Error())
	case errors.Is(err, service.ErrImageTypeNotAllowed):
		return utils.SendError(c, fiber.StatusUnsupportedMediaType, err.Error())
	case errors.Is(err, service.ErrInvalidDataURI), errors.Is(err, service.ErrImageRequired):
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	case isValidationError(err):
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	default:
		return internalError(h.logger, c, err)
	}
}
