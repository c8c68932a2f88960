package models

// SubjectStyle is the display colour pair of a subject badge.
type SubjectStyle struct {
	Color      string `json:"color"`
	Background string `json:"background"`
}

// Subject is one entry of the fixed subject registry.
type Subject struct {
	Name string `json:"name"`
	SubjectStyle
}

var subjects = []Subject{
	{Name: "국어", SubjectStyle: SubjectStyle{Color: "#EF4444", Background: "#FEE2E2"}},
	{Name: "언매", SubjectStyle: SubjectStyle{Color: "#F97316", Background: "#FFEDD5"}},
	{Name: "미적분", SubjectStyle: SubjectStyle{Color: "#EAB308", Background: "#FEF9C3"}},
	{Name: "수학공통", SubjectStyle: SubjectStyle{Color: "#22C55E", Background: "#DCFCE7"}},
	{Name: "영어", SubjectStyle: SubjectStyle{Color: "#3B82F6", Background: "#DBEAFE"}},
	{Name: "사문", SubjectStyle: SubjectStyle{Color: "#6366F1", Background: "#E0E7FF"}},
	{Name: "세계사", SubjectStyle: SubjectStyle{Color: "#A855F7", Background: "#F3E8FF"}},
}

// DefaultStyle is returned for subjects outside the registry.
var DefaultStyle = SubjectStyle{Color: "#6B7280", Background: "#F3F4F6"}

// DayLabels head the columns of the Monday-first grids.
var DayLabels = [7]string{"월", "화", "수", "목", "금", "토", "일"}

// Subjects returns the registry in display order.
func Subjects() []Subject {
	out := make([]Subject, len(subjects))
	copy(out, subjects)
	return out
}

// DefaultSubject is the subject preselected on a fresh draft.
func DefaultSubject() string {
	return subjects[0].Name
}

// StyleFor looks the subject up by exact name and falls back to DefaultStyle.
func StyleFor(name string) SubjectStyle {
	for _, subject := range subjects {
		if subject.Name == name {
			return subject.SubjectStyle
		}
	}
	return DefaultStyle
}

// IsKnownSubject reports whether name is one of the registry entries.
func IsKnownSubject(name string) bool {
	for _, subject := range subjects {
		if subject.Name == name {
			return true
		}
	}
	return false
}
