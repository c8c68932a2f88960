package service

import (
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/lyycrypto/jebalrepository/internal/dto"
	"github.com/lyycrypto/jebalrepository/internal/models"
	"github.com/lyycrypto/jebalrepository/internal/repository"
	"github.com/lyycrypto/jebalrepository/internal/views"
)

const (
	// WeekOrderKey orders week buckets by comparing their keys as strings.
	WeekOrderKey = "key"
	// WeekOrderChronological orders week buckets by year, then week number.
	WeekOrderChronological = "chronological"

	monthLayout = "2006-01"
)

var (
	// ErrInvalidWeekOrder indicates an unknown week ordering was requested.
	ErrInvalidWeekOrder = errors.New("order must be key or chronological")
	// ErrInvalidMonth indicates a month that is not YYYY-MM.
	ErrInvalidMonth = errors.New("month must be formatted as YYYY-MM")
	// ErrInvalidDate indicates a date that is not YYYY-MM-DD.
	ErrInvalidDate = errors.New("date must be formatted as YYYY-MM-DD")
)

// BoardService serves the read side: the sorted list and the derived views.
type BoardService interface {
	Snapshot() dto.BoardSnapshot
	List() []dto.AssignmentResponse
	Weeks(order string) ([]dto.WeekResponse, error)
	Subjects() []dto.SubjectGroupResponse
	Calendar(month string) (dto.CalendarResponse, error)
	Day(date string) (dto.DayResponse, error)
	Today() time.Time
}

type boardService struct {
	assignments *repository.AssignmentRepository
	images      *repository.ScheduleImageRepository
	location    *time.Location
	now         func() time.Time
	logger      zerolog.Logger
}

// NewBoardService builds the view service. A nil location means UTC.
func NewBoardService(assignments *repository.AssignmentRepository, images *repository.ScheduleImageRepository, location *time.Location, logger zerolog.Logger) BoardService {
	if location == nil {
		location = time.UTC
	}

	return &boardService{
		assignments: assignments,
		images:      images,
		location:    location,
		now:         time.Now,
		logger:      logger.With().Str("component", "board_service").Logger(),
	}
}

func (s *boardService) Snapshot() dto.BoardSnapshot {
	snapshot := dto.BoardSnapshot{
		Type:        "snapshot",
		Loaded:      s.assignments.Loaded(),
		Version:     s.assignments.Version(),
		Assignments: dto.NewAssignmentResponseSlice(sortedAssignments(s.assignments)),
		SentAt:      s.now().UTC(),
	}
	if s.images != nil {
		snapshot.ScheduleImage, _ = s.images.Current()
	}
	return snapshot
}

func (s *boardService) List() []dto.AssignmentResponse {
	return dto.NewAssignmentResponseSlice(sortedAssignments(s.assignments))
}

func (s *boardService) Weeks(order string) ([]dto.WeekResponse, error) {
	sorted := sortedAssignments(s.assignments)

	switch strings.ToLower(strings.TrimSpace(order)) {
	case "", WeekOrderKey:
		return dto.NewWeekResponseSlice(views.WeekBuckets(sorted)), nil
	case WeekOrderChronological:
		return dto.NewWeekResponseSlice(views.ChronologicalWeekBuckets(sorted)), nil
	default:
		return nil, ErrInvalidWeekOrder
	}
}

func (s *boardService) Subjects() []dto.SubjectGroupResponse {
	return dto.NewSubjectGroupResponseSlice(views.BySubject(sortedAssignments(s.assignments)))
}

func (s *boardService) Calendar(month string) (dto.CalendarResponse, error) {
	today := s.Today()
	year, mon := today.Year(), today.Month()

	if value := strings.TrimSpace(month); value != "" {
		parsed, err := time.Parse(monthLayout, value)
		if err != nil {
			return dto.CalendarResponse{}, ErrInvalidMonth
		}
		year, mon = parsed.Year(), parsed.Month()
	}

	calendar := views.BuildCalendar(s.assignments.All(), year, mon, today)
	return dto.NewCalendarResponse(calendar), nil
}

func (s *boardService) Day(date string) (dto.DayResponse, error) {
	parsed, ok := models.ParseDate(strings.TrimSpace(date))
	if !ok {
		return dto.DayResponse{}, ErrInvalidDate
	}

	return dto.DayResponse{
		Date:        models.FormatDate(parsed),
		Assignments: dto.NewAssignmentResponseSlice(views.AssignmentsOnDate(s.assignments.All(), parsed)),
	}, nil
}

// Today is the current calendar day in the board's time zone, at UTC midnight
// so it compares with parsed due dates.
func (s *boardService) Today() time.Time {
	local := s.now().In(s.location)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, time.UTC)
}

func sortedAssignments(repo *repository.AssignmentRepository) []models.Assignment {
	return views.SortedByDueDate(repo.All())
}
