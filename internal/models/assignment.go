package models

import "time"

// DateLayout is the stored form of a due date.
const DateLayout = "2006-01-02"

// AssignmentRecord is the value stored under assignments/{id}.
type AssignmentRecord struct {
	Subject     string `json:"subject"`
	DueDate     string `json:"dueDate"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Completed   bool   `json:"completed"`
}

// Assignment is a record together with its store key.
type Assignment struct {
	ID string `json:"id"`
	AssignmentRecord
}

// Record strips the id off the assignment.
func (a Assignment) Record() AssignmentRecord {
	return a.AssignmentRecord
}

// Due parses the due date as a UTC calendar day.
func (a Assignment) Due() (time.Time, bool) {
	return ParseDate(a.DueDate)
}

// Style returns the display colours of the assignment's subject.
func (a Assignment) Style() SubjectStyle {
	return StyleFor(a.Subject)
}

// ParseDate parses a YYYY-MM-DD string at UTC midnight.
func ParseDate(value string) (time.Time, bool) {
	parsed, err := time.Parse(DateLayout, value)
	if err != nil {
		return time.Time{}, false
	}
	return parsed, true
}

// FormatDate renders the calendar day of t as YYYY-MM-DD.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// Draft is the add-assignment form content.
type Draft struct {
	Subject     string `json:"subject"`
	DueDate     string `json:"dueDate"`
	Name        string `json:"name"`
	Description string `json:"description"`
	IsRepeating bool   `json:"isRepeating"`
	RepeatCount int    `json:"repeatCount"`
}

// NewDraft returns the defaults a form starts from and resets to.
func NewDraft() Draft {
	return Draft{
		Subject:     DefaultSubject(),
		RepeatCount: 1,
	}
}

// Complete reports whether the draft carries the fields needed to create anything.
func (d Draft) Complete() bool {
	return d.Name != "" && d.DueDate != ""
}
