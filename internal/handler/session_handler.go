package handler

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/lyycrypto/jebalrepository/internal/board"
	"github.com/lyycrypto/jebalrepository/internal/dto"
	"github.com/lyycrypto/jebalrepository/internal/service"
	"github.com/lyycrypto/jebalrepository/internal/utils"
)

// SessionHandler exposes board sessions: active tab, add-assignment modal and
// calendar navigation.
type SessionHandler struct {
	service   service.SessionService
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewSessionHandler constructs the handler.
func NewSessionHandler(service service.SessionService, validator *validator.Validate, logger zerolog.Logger) *SessionHandler {
	return &SessionHandler{
		service:   service,
		validator: validator,
		logger:    logger.With().Str("component", "session_handler").Logger(),
	}
}

// Register binds the session routes.
func (h *SessionHandler) Register(router fiber.Router, writeLimiter fiber.Handler) {
	if writeLimiter == nil {
		writeLimiter = func(c *fiber.Ctx) error { return c.Next() }
	}

	router.Post("", h.create)
	router.Get("/:id", h.get)
	router.Delete("/:id", h.delete)
	router.Post("/:id/modal/open", h.open)
	router.Post("/:id/modal/close", h.close)
	router.Patch("/:id/draft", h.updateDraft)
	router.Post("/:id/draft/submit", writeLimiter, h.submit)
	router.Put("/:id/tab", h.selectTab)
	router.Put("/:id/date", h.selectDate)
	router.Post("/:id/month", h.shiftMonth)
}

func (h *SessionHandler) create(c *fiber.Ctx) error {
	session, err := h.service.Create(requestContext(c))
	if err != nil {
		return h.handleError(c, err)
	}
	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "session created", session)
}

func (h *SessionHandler) get(c *fiber.Ctx) error {
	session, err := h.service.Get(requestContext(c), c.Params("id"))
	if err != nil {
		return h.handleError(c, err)
	}
	return utils.SendSuccess(c, "session", session)
}

func (h *SessionHandler) delete(c *fiber.Ctx) error {
	if err := h.service.Delete(requestContext(c), c.Params("id")); err != nil {
		return h.handleError(c, err)
	}
	return utils.SendSuccess(c, "session deleted", fiber.Map{"id": c.Params("id")})
}

func (h *SessionHandler) open(c *fiber.Ctx) error {
	session, err := h.service.Open(requestContext(c), c.Params("id"))
	if err != nil {
		return h.handleError(c, err)
	}
	return utils.SendSuccess(c, "modal opened", session)
}

func (h *SessionHandler) close(c *fiber.Ctx) error {
	session, err := h.service.Close(requestContext(c), c.Params("id"))
	if err != nil {
		return h.handleError(c, err)
	}
	return utils.SendSuccess(c, "modal closed", session)
}

func (h *SessionHandler) updateDraft(c *fiber.Ctx) error {
	var patch board.DraftPatch
	if err := c.BodyParser(&patch); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	session, err := h.service.UpdateDraft(requestContext(c), c.Params("id"), patch)
	if err != nil {
		return h.handleError(c, err)
	}
	return utils.SendSuccess(c, "draft updated", session)
}

func (h *SessionHandler) submit(c *fiber.Ctx) error {
	result, err := h.service.Submit(requestContext(c), c.Params("id"))
	if err != nil {
		return h.handleError(c, err)
	}
	if !result.Submitted {
		return utils.SendSuccess(c, "draft incomplete, nothing submitted", result)
	}
	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "draft submitted", result)
}

func (h *SessionHandler) selectTab(c *fiber.Ctx) error {
	var payload dto.SessionTabRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}
	if err := h.validator.Struct(payload); err != nil {
		return h.handleError(c, err)
	}

	session, err := h.service.SelectTab(requestContext(c), c.Params("id"), *payload.Tab)
	if err != nil {
		return h.handleError(c, err)
	}
	return utils.SendSuccess(c, "tab selected", session)
}

func (h *SessionHandler) selectDate(c *fiber.Ctx) error {
	var payload dto.SessionDateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}
	if err := h.validator.Struct(payload); err != nil {
		return h.handleError(c, err)
	}

	session, err := h.service.SelectDate(requestContext(c), c.Params("id"), payload.Date)
	if err != nil {
		return h.handleError(c, err)
	}
	return utils.SendSuccess(c, "date selected", session)
}

func (h *SessionHandler) shiftMonth(c *fiber.Ctx) error {
	var payload dto.SessionMonthRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}
	if err := h.validator.Struct(payload); err != nil {
		return h.handleError(c, err)
	}

	session, err := h.service.ShiftMonth(requestContext(c), c.Params("id"), payload.Delta)
	if err != nil {
		return h.handleError(c, err)
	}
	return utils.SendSuccess(c, "month changed", session)
}

func (h *SessionHandler) handleError(c *fiber.Ctx, err error) error {
	var validationErrors validator.ValidationErrors
	switch {
	case errors.Is(err, service.ErrSessionNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "session not found")
	case errors.Is(err, board.ErrInvalidTab), errors.Is(err, board.ErrInvalidDate):
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	case errors.As(err, &validationErrors):
		return utils.SendError(c, fiber.StatusBadRequest, validationErrors.Error())
	case errors.Is(err, service.ErrDraftIncomplete):
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	default:
		return internalError(h.logger, c, err)
	}
}
