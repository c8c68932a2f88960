// Package views derives the list, weekly, per-subject and calendar lenses from
// a set of assignments. Every function is pure: the same set (and, where it
// matters, the same reference day) always yields the same result.
package views

import (
	"fmt"
	"sort"
	"time"

	"github.com/lyycrypto/jebalrepository/internal/models"
)

// PreviewSize is how many assignments a calendar cell lists before "+N".
const PreviewSize = 2

// Week is one week bucket of the weekly grid. Days are Monday first.
type Week struct {
	Key    string                 `json:"key"`
	Year   int                    `json:"year"`
	Number int                    `json:"weekNumber"`
	Days   [7][]models.Assignment `json:"days"`
}

// SubjectGroup lists the assignments of one registered subject.
type SubjectGroup struct {
	Subject     models.Subject      `json:"subject"`
	Assignments []models.Assignment `json:"assignments"`
}

// CalendarCell is one real day of the month calendar.
type CalendarCell struct {
	Date        string              `json:"date"`
	Day         int                 `json:"day"`
	IsToday     bool                `json:"isToday"`
	Assignments []models.Assignment `json:"assignments"`
	Preview     []models.Assignment `json:"preview"`
	Overflow    int                 `json:"overflow"`
}

// Calendar is a Monday-first month grid; nil cells are leading padding.
type Calendar struct {
	Year      int             `json:"year"`
	Month     int             `json:"month"`
	DayLabels [7]string       `json:"dayLabels"`
	Cells     []*CalendarCell `json:"cells"`
}

// WeekNumber numbers weeks as ceil((dayOfYear0 + weekday(Jan 1) + 1) / 7).
// This is not ISO-8601 numbering: weeks roll over on Sunday and week 1 is
// whatever partial week holds January 1st.
func WeekNumber(date time.Time) int {
	jan1 := time.Date(date.Year(), time.January, 1, 0, 0, 0, 0, time.UTC)
	days := date.YearDay() - 1
	return (days + int(jan1.Weekday()) + 1 + 6) / 7
}

// MondayIndex maps a date to its column, Monday=0 through Sunday=6.
func MondayIndex(date time.Time) int {
	return (int(date.Weekday()) + 6) % 7
}

// WeekKey is the bucket key "year-week" of a date.
func WeekKey(date time.Time) string {
	return fmt.Sprintf("%d-%d", date.Year(), WeekNumber(date))
}

// SortedByDueDate orders the set by due date, keeping the relative order of
// equal dates. Records whose date does not parse go last.
func SortedByDueDate(set []models.Assignment) []models.Assignment {
	type keyed struct {
		assignment models.Assignment
		due        time.Time
		valid      bool
	}

	items := make([]keyed, len(set))
	for i, assignment := range set {
		due, ok := assignment.Due()
		items[i] = keyed{assignment: assignment, due: due, valid: ok}
	}

	sort.SliceStable(items, func(i, j int) bool {
		if items[i].valid != items[j].valid {
			return items[i].valid
		}
		if !items[i].valid {
			return false
		}
		return items[i].due.Before(items[j].due)
	})

	out := make([]models.Assignment, len(items))
	for i, item := range items {
		out[i] = item.assignment
	}
	return out
}

// WeekBuckets groups the set into weeks ordered by comparing their keys as
// strings, so "2024-10" sorts before "2024-9".
func WeekBuckets(set []models.Assignment) []Week {
	weeks := bucketWeeks(set)
	sort.SliceStable(weeks, func(i, j int) bool {
		return weeks[i].Key < weeks[j].Key
	})
	return weeks
}

// ChronologicalWeekBuckets groups like WeekBuckets but orders by (year, week).
func ChronologicalWeekBuckets(set []models.Assignment) []Week {
	weeks := bucketWeeks(set)
	sort.SliceStable(weeks, func(i, j int) bool {
		if weeks[i].Year != weeks[j].Year {
			return weeks[i].Year < weeks[j].Year
		}
		return weeks[i].Number < weeks[j].Number
	})
	return weeks
}

func bucketWeeks(set []models.Assignment) []Week {
	weeks := make([]Week, 0)
	positions := make(map[string]int)

	for _, assignment := range set {
		due, ok := assignment.Due()
		if !ok {
			continue
		}

		key := WeekKey(due)
		pos, exists := positions[key]
		if !exists {
			week := Week{Key: key, Year: due.Year(), Number: WeekNumber(due)}
			for d := range week.Days {
				week.Days[d] = []models.Assignment{}
			}
			weeks = append(weeks, week)
			pos = len(weeks) - 1
			positions[key] = pos
		}

		slot := MondayIndex(due)
		weeks[pos].Days[slot] = append(weeks[pos].Days[slot], assignment)
	}

	return weeks
}

// BySubject filters an already sorted list into one group per registered
// subject, in registry order. Unregistered subjects get no group.
func BySubject(sorted []models.Assignment) []SubjectGroup {
	registry := models.Subjects()
	groups := make([]SubjectGroup, 0, len(registry))
	for _, subject := range registry {
		group := SubjectGroup{Subject: subject, Assignments: []models.Assignment{}}
		for _, assignment := range sorted {
			if assignment.Subject == subject.Name {
				group.Assignments = append(group.Assignments, assignment)
			}
		}
		groups = append(groups, group)
	}
	return groups
}

// MonthGrid lays a month out Monday first: (weekday(1st)+6)%7 nil cells, then
// one cell per day, without trailing padding.
func MonthGrid(year int, month time.Month) []*time.Time {
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	padding := MondayIndex(first)
	days := DaysInMonth(year, month)

	cells := make([]*time.Time, padding, padding+days)
	for day := 1; day <= days; day++ {
		date := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
		cells = append(cells, &date)
	}
	return cells
}

// DaysInMonth returns the length of month in year.
func DaysInMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// ShiftMonth moves delta months from year/month.
func ShiftMonth(year int, month time.Month, delta int) (int, time.Month) {
	shifted := time.Date(year, month+time.Month(delta), 1, 0, 0, 0, 0, time.UTC)
	return shifted.Year(), shifted.Month()
}

// AssignmentsOnDate returns the records due exactly on date, in set order.
func AssignmentsOnDate(set []models.Assignment, date time.Time) []models.Assignment {
	target := models.FormatDate(date)
	out := make([]models.Assignment, 0)
	for _, assignment := range set {
		if assignment.DueDate == target {
			out = append(out, assignment)
		}
	}
	return out
}

// BuildCalendar decorates MonthGrid with each day's assignments, the cell
// preview and the today marker.
func BuildCalendar(set []models.Assignment, year int, month time.Month, today time.Time) Calendar {
	byDate := make(map[string][]models.Assignment)
	for _, assignment := range set {
		byDate[assignment.DueDate] = append(byDate[assignment.DueDate], assignment)
	}

	todayKey := models.FormatDate(today)
	grid := MonthGrid(year, month)
	cells := make([]*CalendarCell, len(grid))
	for i, date := range grid {
		if date == nil {
			continue
		}

		key := models.FormatDate(*date)
		dayAssignments := byDate[key]
		if dayAssignments == nil {
			dayAssignments = []models.Assignment{}
		}

		preview := dayAssignments
		overflow := 0
		if len(preview) > PreviewSize {
			overflow = len(preview) - PreviewSize
			preview = preview[:PreviewSize]
		}

		cells[i] = &CalendarCell{
			Date:        key,
			Day:         date.Day(),
			IsToday:     key == todayKey,
			Assignments: dayAssignments,
			Preview:     preview,
			Overflow:    overflow,
		}
	}

	return Calendar{
		Year:      year,
		Month:     int(month),
		DayLabels: models.DayLabels,
		Cells:     cells,
	}
}
