package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/lyycrypto/jebalrepository/internal/service"
	"github.com/lyycrypto/jebalrepository/internal/utils"
)

// ViewHandler serves the weekly, per-subject and calendar lenses.
type ViewHandler struct {
	service service.BoardService
	logger  zerolog.Logger
}

// NewViewHandler constructs the handler.
func NewViewHandler(service service.BoardService, logger zerolog.Logger) *ViewHandler {
	return &ViewHandler{
		service: service,
		logger:  logger.With().Str("component", "view_handler").Logger(),
	}
}

// Register binds the view routes.
func (h *ViewHandler) Register(router fiber.Router) {
	router.Get("/weeks", h.weeks)
	router.Get("/subjects", h.subjects)
	router.Get("/calendar", h.calendar)
	router.Get("/calendar/:date", h.day)
}

func (h *ViewHandler) weeks(c *fiber.Ctx) error {
	weeks, err := h.service.Weeks(c.Query("order"))
	if err != nil {
		return h.handleError(c, err)
	}
	return utils.SendSuccess(c, "weekly view", weeks)
}

func (h *ViewHandler) subjects(c *fiber.Ctx) error {
	return utils.SendSuccess(c, "subject view", h.service.Subjects())
}

func (h *ViewHandler) calendar(c *fiber.Ctx) error {
	calendar, err := h.service.Calendar(c.Query("month"))
	if err != nil {
		return h.handleError(c, err)
	}
	return utils.SendSuccess(c, "calendar view", calendar)
}

func (h *ViewHandler) day(c *fiber.Ctx) error {
	day, err := h.service.Day(c.Params("date"))
	if err != nil {
		return h.handleError(c, err)
	}
	return utils.SendSuccess(c, "assignments for date", day)
}

func (h *ViewHandler) handleError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, service.ErrInvalidWeekOrder),
		errors.Is(err, service.ErrInvalidMonth),
		errors.Is(err, service.ErrInvalidDate):
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	default:
		return internalError(h.logger, c, err)
	}
}
