package dto

import (
	"github.com/lyycrypto/jebalrepository/internal/models"
)

// AssignmentCreateRequest is the add-assignment form payload.
type AssignmentCreateRequest struct {
	Subject     string `json:"subject" validate:"omitempty,max=64"`
	DueDate     string `json:"dueDate" validate:"required,datetime=2006-01-02"`
	Name        string `json:"name" validate:"required,max=255"`
	Description string `json:"description" validate:"max=2000"`
	IsRepeating bool   `json:"isRepeating"`
	RepeatCount int    `json:"repeatCount" validate:"required_if=IsRepeating true,min=0,max=20"`
}

// Draft converts the payload into the expander input.
func (r AssignmentCreateRequest) Draft() models.Draft {
	return models.Draft{
		Subject:     r.Subject,
		DueDate:     r.DueDate,
		Name:        r.Name,
		Description: r.Description,
		IsRepeating: r.IsRepeating,
		RepeatCount: r.RepeatCount,
	}
}

// NewAssignmentCreateRequest builds a payload from a session draft.
func NewAssignmentCreateRequest(draft models.Draft) AssignmentCreateRequest {
	return AssignmentCreateRequest{
		Subject:     draft.Subject,
		DueDate:     draft.DueDate,
		Name:        draft.Name,
		Description: draft.Description,
		IsRepeating: draft.IsRepeating,
		RepeatCount: draft.RepeatCount,
	}
}

// AssignmentCompletedRequest sets the completed flag explicitly.
type AssignmentCompletedRequest struct {
	Completed *bool `json:"completed" validate:"required"`
}

// AssignmentResponse is an assignment card: the record plus its subject colours.
type AssignmentResponse struct {
	ID          string              `json:"id"`
	Subject     string              `json:"subject"`
	DueDate     string              `json:"dueDate"`
	Name        string              `json:"name"`
	Description string              `json:"description"`
	Completed   bool                `json:"completed"`
	Style       models.SubjectStyle `json:"style"`
}

// NewAssignmentResponse converts a model into a DTO.
func NewAssignmentResponse(model models.Assignment) AssignmentResponse {
	return AssignmentResponse{
		ID:          model.ID,
		Subject:     model.Subject,
		DueDate:     model.DueDate,
		Name:        model.Name,
		Description: model.Description,
		Completed:   model.Completed,
		Style:       model.Style(),
	}
}

// NewAssignmentResponseSlice converts a slice of models into DTOs.
func NewAssignmentResponseSlice(assignments []models.Assignment) []AssignmentResponse {
	responses := make([]AssignmentResponse, 0, len(assignments))
	for _, assignment := range assignments {
		responses = append(responses, NewAssignmentResponse(assignment))
	}

	return responses
}
