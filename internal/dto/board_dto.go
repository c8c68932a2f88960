package dto

import (
	"time"

	"github.com/lyycrypto/jebalrepository/internal/models"
	"github.com/lyycrypto/jebalrepository/internal/views"
)

// WeekResponse is one row of the weekly grid.
type WeekResponse struct {
	Key        string                  `json:"key"`
	Year       int                     `json:"year"`
	WeekNumber int                     `json:"weekNumber"`
	Days       [7][]AssignmentResponse `json:"days"`
	DayLabels  [7]string               `json:"dayLabels"`
}

// SubjectGroupResponse is one card of the per-subject view.
type SubjectGroupResponse struct {
	Subject     models.Subject       `json:"subject"`
	Count       int                  `json:"count"`
	Assignments []AssignmentResponse `json:"assignments"`
}

// CalendarCellResponse is a real day of the month grid.
type CalendarCellResponse struct {
	Date        string               `json:"date"`
	Day         int                  `json:"day"`
	IsToday     bool                 `json:"isToday"`
	Assignments []AssignmentResponse `json:"assignments"`
	Preview     []AssignmentResponse `json:"preview"`
	Overflow    int                  `json:"overflow"`
}

// CalendarResponse is the month view; null cells pad the first week.
type CalendarResponse struct {
	Year      int                     `json:"year"`
	Month     int                     `json:"month"`
	DayLabels [7]string               `json:"dayLabels"`
	Cells     []*CalendarCellResponse `json:"cells"`
}

// DayResponse lists the assignments due on one date.
type DayResponse struct {
	Date        string               `json:"date"`
	Assignments []AssignmentResponse `json:"assignments"`
}

// BoardSnapshot is what live clients receive on connect and after each change.
type BoardSnapshot struct {
	Type          string               `json:"type"`
	Loaded        bool                 `json:"loaded"`
	Version       uint64               `json:"version"`
	Assignments   []AssignmentResponse `json:"assignments"`
	ScheduleImage string               `json:"scheduleImage,omitempty"`
	SentAt        time.Time            `json:"sentAt"`
}

// NewWeekResponseSlice converts week buckets into DTOs.
func NewWeekResponseSlice(weeks []views.Week) []WeekResponse {
	responses := make([]WeekResponse, 0, len(weeks))
	for _, week := range weeks {
		response := WeekResponse{
			Key:        week.Key,
			Year:       week.Year,
			WeekNumber: week.Number,
			DayLabels:  models.DayLabels,
		}
		for i, day := range week.Days {
			response.Days[i] = NewAssignmentResponseSlice(day)
		}
		responses = append(responses, response)
	}
	return responses
}

// NewSubjectGroupResponseSlice converts subject groups into DTOs.
func NewSubjectGroupResponseSlice(groups []views.SubjectGroup) []SubjectGroupResponse {
	responses := make([]SubjectGroupResponse, 0, len(groups))
	for _, group := range groups {
		responses = append(responses, SubjectGroupResponse{
			Subject:     group.Subject,
			Count:       len(group.Assignments),
			Assignments: NewAssignmentResponseSlice(group.Assignments),
		})
	}
	return responses
}

// NewCalendarResponse converts a month calendar into its DTO.
func NewCalendarResponse(calendar views.Calendar) CalendarResponse {
	cells := make([]*CalendarCellResponse, len(calendar.Cells))
	for i, cell := range calendar.Cells {
		if cell == nil {
			continue
		}
		cells[i] = &CalendarCellResponse{
			Date:        cell.Date,
			Day:         cell.Day,
			IsToday:     cell.IsToday,
			Assignments: NewAssignmentResponseSlice(cell.Assignments),
			Preview:     NewAssignmentResponseSlice(cell.Preview),
			Overflow:    cell.Overflow,
		}
	}

	return CalendarResponse{
		Year:      calendar.Year,
		Month:     calendar.Month,
		DayLabels: calendar.DayLabels,
		Cells:     cells,
	}
}

// ScheduleImageRequest replaces the timetable image with a data URI.
type ScheduleImageRequest struct {
	DataURI string `json:"dataUri" validate:"required"`
}

// ScheduleImageResponse describes the stored timetable image.
type ScheduleImageResponse struct {
	Present  bool   `json:"present"`
	DataURI  string `json:"dataUri,omitempty"`
	MimeType string `json:"mimeType,omitempty"`
}
