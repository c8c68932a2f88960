// Package board holds the per-client board state: the active tab, the
// add-assignment modal with its draft, and the calendar navigation.
package board

import (
	"errors"
	"strings"
	"time"

	"github.com/lyycrypto/jebalrepository/internal/models"
	"github.com/lyycrypto/jebalrepository/internal/views"
)

// Tab identifies one of the four board views.
type Tab int

const (
	TabList Tab = iota
	TabWeekly
	TabSubjects
	TabCalendar
)

var (
	// ErrInvalidTab indicates a tab index outside 0..3.
	ErrInvalidTab = errors.New("tab must be between 0 and 3")
	// ErrInvalidDate indicates a selected date that is not YYYY-MM-DD.
	ErrInvalidDate = errors.New("date must be formatted as YYYY-MM-DD")
)

// Valid reports whether t names a board view.
func (t Tab) Valid() bool {
	return t >= TabList && t <= TabCalendar
}

// Session is the state one client keeps between requests. The draft survives
// closing the modal and is only reset by a successful submission.
type Session struct {
	ID           string       `json:"id"`
	ActiveTab    Tab          `json:"activeTab"`
	ModalOpen    bool         `json:"modalOpen"`
	Draft        models.Draft `json:"draft"`
	SelectedDate string       `json:"selectedDate,omitempty"`
	Year         int          `json:"year"`
	Month        time.Month   `json:"month"`
	UpdatedAt    time.Time    `json:"updatedAt"`
}

// DraftPatch updates the named draft fields; nil fields are left alone.
type DraftPatch struct {
	Subject     *string `json:"subject"`
	DueDate     *string `json:"dueDate"`
	Name        *string `json:"name"`
	Description *string `json:"description"`
	IsRepeating *bool   `json:"isRepeating"`
	RepeatCount *int    `json:"repeatCount"`
}

// NewSession starts on the list tab with a default draft, showing the month of today.
func NewSession(id string, today time.Time) *Session {
	return &Session{
		ID:        id,
		ActiveTab: TabList,
		Draft:     models.NewDraft(),
		Year:      today.Year(),
		Month:     today.Month(),
		UpdatedAt: today,
	}
}

// Open shows the modal with whatever draft was left in it.
func (s *Session) Open() {
	s.ModalOpen = true
}

// Close hides the modal and keeps the draft.
func (s *Session) Close() {
	s.ModalOpen = false
}

// CanSubmit is false while the draft lacks a name or a due date.
func (s *Session) CanSubmit() bool {
	return s.Draft.Complete()
}

// UpdateDraft applies patch to the draft.
func (s *Session) UpdateDraft(patch DraftPatch) {
	if patch.Subject != nil {
		s.Draft.Subject = *patch.Subject
	}
	if patch.DueDate != nil {
		s.Draft.DueDate = strings.TrimSpace(*patch.DueDate)
	}
	if patch.Name != nil {
		s.Draft.Name = *patch.Name
	}
	if patch.Description != nil {
		s.Draft.Description = *patch.Description
	}
	if patch.IsRepeating != nil {
		s.Draft.IsRepeating = *patch.IsRepeating
	}
	if patch.RepeatCount != nil {
		s.Draft.RepeatCount = *patch.RepeatCount
	}
}

// Submit hands the draft to create. It does nothing while CanSubmit is false.
// On success the draft is reset to defaults and the modal closes; on failure
// both are left as they were.
func (s *Session) Submit(create func(models.Draft) error) (bool, error) {
	if !s.CanSubmit() {
		return false, nil
	}

	if err := create(s.Draft); err != nil {
		return false, err
	}

	s.Draft = models.NewDraft()
	s.ModalOpen = false
	return true, nil
}

// SelectTab switches the active view.
func (s *Session) SelectTab(tab Tab) error {
	if !tab.Valid() {
		return ErrInvalidTab
	}
	s.ActiveTab = tab
	return nil
}

// SelectDate marks a calendar day; an empty value clears the selection.
func (s *Session) SelectDate(date string) error {
	date = strings.TrimSpace(date)
	if date == "" {
		s.SelectedDate = ""
		return nil
	}

	parsed, ok := models.ParseDate(date)
	if !ok {
		return ErrInvalidDate
	}
	s.SelectedDate = models.FormatDate(parsed)
	return nil
}

// ShiftMonth moves the displayed calendar month by delta.
func (s *Session) ShiftMonth(delta int) {
	s.Year, s.Month = views.ShiftMonth(s.Year, s.Month, delta)
}
