package model

// Semester tags a course with the half of the academic year it belongs to.
type Semester int

const (
	SemesterOne Semester = 1
	SemesterTwo Semester = 2
)

// Valid reports whether s is one of the two known semesters.
func (s Semester) Valid() bool {
	return s == SemesterOne || s == SemesterTwo
}

// Course is a single course record. The JSON shape is the persisted slot
// layout; Grade and Points are derived from Score and are never set on their own.
type Course struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Credits  int      `json:"credits"`
	Score    float64  `json:"score"`
	Grade    string   `json:"grade"`
	Points   float64  `json:"points"`
	Semester Semester `json:"semester"`
	IsCustom bool     `json:"isCustom,omitempty"`
}
