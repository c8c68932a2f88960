package dto

import (
	"time"

	"github.com/lyycrypto/jebalrepository/internal/board"
	"github.com/lyycrypto/jebalrepository/internal/models"
)

// SessionResponse serializes a board session.
type SessionResponse struct {
	ID           string       `json:"id"`
	ActiveTab    int          `json:"activeTab"`
	ModalOpen    bool         `json:"modalOpen"`
	Draft        models.Draft `json:"draft"`
	CanSubmit    bool         `json:"canSubmit"`
	SelectedDate string       `json:"selectedDate,omitempty"`
	Month        string       `json:"month"`
	UpdatedAt    time.Time    `json:"updatedAt"`
}

// SessionSubmitResponse reports the outcome of submitting the draft.
type SessionSubmitResponse struct {
	Session   SessionResponse      `json:"session"`
	Submitted bool                 `json:"submitted"`
	Created   []AssignmentResponse `json:"created"`
}

// SessionTabRequest selects the active board view.
type SessionTabRequest struct {
	Tab *int `json:"tab" validate:"required,min=0,max=3"`
}

// SessionDateRequest selects a calendar day; empty clears it.
type SessionDateRequest struct {
	Date string `json:"date" validate:"omitempty,datetime=2006-01-02"`
}

// SessionMonthRequest moves the displayed month.
type SessionMonthRequest struct {
	Delta int `json:"delta" validate:"min=-120,max=120"`
}

// NewSessionResponse converts a session into its DTO.
func NewSessionResponse(session *board.Session) SessionResponse {
	return SessionResponse{
		ID:           session.ID,
		ActiveTab:    int(session.ActiveTab),
		ModalOpen:    session.ModalOpen,
		Draft:        session.Draft,
		CanSubmit:    session.CanSubmit(),
		SelectedDate: session.SelectedDate,
		Month:        time.Date(session.Year, session.Month, 1, 0, 0, 0, 0, time.UTC).Format("2006-01"),
		UpdatedAt:    session.UpdatedAt,
	}
}
