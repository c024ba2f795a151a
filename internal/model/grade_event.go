package model

import "time"

type GradeAction string

const (
	GradeActionAdd    GradeAction = "add"
	GradeActionUpdate GradeAction = "update"
	GradeActionRemove GradeAction = "remove"
	GradeActionReset  GradeAction = "reset"
)

// GradeEvent describes a course list mutation and the GPA that resulted.
type GradeEvent struct {
	UserID       string      `json:"user_id"`
	Action       GradeAction `json:"action"`
	CourseID     string      `json:"course_id,omitempty"`
	TotalCredits int         `json:"total_credits"`
	TotalPoints  float64     `json:"total_points"`
	GPA          float64     `json:"gpa"`
	Persisted    bool        `json:"persisted"`
	OccurredAt   time.Time   `json:"occurred_at"`
}
