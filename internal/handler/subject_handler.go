package handler

import (
	"net/url"

	"github.com/gofiber/fiber/v2"

	"github.com/lyycrypto/jebalrepository/internal/models"
	"github.com/lyycrypto/jebalrepository/internal/utils"
)

// SubjectStyleResponse is the colour lookup result for one subject name.
type SubjectStyleResponse struct {
	Name  string              `json:"name"`
	Known bool                `json:"known"`
	Style models.SubjectStyle `json:"style"`
}

// SubjectHandler exposes the fixed subject registry.
type SubjectHandler struct{}

// NewSubjectHandler constructs the handler.
func NewSubjectHandler() *SubjectHandler {
	return &SubjectHandler{}
}

// Register binds the subject routes.
func (h *SubjectHandler) Register(router fiber.Router) {
	router.Get("", h.list)
	router.Get("/:name/style", h.style)
}

func (h *SubjectHandler) list(c *fiber.Ctx) error {
	return utils.SendSuccess(c, "subjects", fiber.Map{
		"subjects":       models.Subjects(),
		"defaultSubject": models.DefaultSubject(),
		"defaultStyle":   models.DefaultStyle,
		"dayLabels":      models.DayLabels,
	})
}

func (h *SubjectHandler) style(c *fiber.Ctx) error {
	name, err := url.PathUnescape(c.Params("name"))
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid subject name")
	}

	return utils.SendSuccess(c, "subject style", SubjectStyleResponse{
		Name:  name,
		Known: models.IsKnownSubject(name),
		Style: models.StyleFor(name),
	})
}
