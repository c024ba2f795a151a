package dto

import (
	"gpadash/internal/grading"
	"gpadash/internal/model"
)

// CourseCreateDTO is used for incoming course creation requests
type CourseCreateDTO struct {
	Semester int `json:"semester" validate:"required,oneof=1 2"`
}

// CourseUpdateDTO is used for incoming course update requests. Omitted
// fields are left unchanged.
type CourseUpdateDTO struct {
	Name     *string  `json:"name,omitempty" validate:"omitempty,max=200"`
	Credits  *int     `json:"credits,omitempty" validate:"omitempty,min=1"`
	Score    *float64 `json:"score,omitempty"`
	Semester *int     `json:"semester,omitempty" validate:"omitempty,oneof=1 2"`
}

// CourseResponseDTO is returned in API responses for courses
type CourseResponseDTO struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Credits  int     `json:"credits"`
	Score    float64 `json:"score"`
	Grade    string  `json:"grade"`
	Points   float64 `json:"points"`
	Semester int     `json:"semester"`
	IsCustom bool    `json:"isCustom"`
}

// CourseListResponseDTO is the dashboard payload: every course plus the GPA header.
type CourseListResponseDTO struct {
	Courses   []CourseResponseDTO `json:"courses"`
	Summary   grading.Summary     `json:"summary"`
	Persisted *bool               `json:"persisted,omitempty"`
}

// CourseMutationResponseDTO is returned after adding or editing a course.
// Persisted is false when the change is live but the slot write failed.
type CourseMutationResponseDTO struct {
	Course    CourseResponseDTO `json:"course"`
	Summary   grading.Summary   `json:"summary"`
	Persisted bool              `json:"persisted"`
}

// GradingRuleDTO is one row of the grading scale.
type GradingRuleDTO struct {
	Grade  string  `json:"grade"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Points float64 `json:"points"`
}

func NewCourseResponseDTO(c model.Course) CourseResponseDTO {
	return CourseResponseDTO{
		ID:       c.ID,
		Name:     c.Name,
		Credits:  c.Credits,
		Score:    c.Score,
		Grade:    c.Grade,
		Points:   c.Points,
		Semester: int(c.Semester),
		IsCustom: c.IsCustom,
	}
}

func NewCourseResponseDTOs(courses []model.Course) []CourseResponseDTO {
	out := make([]CourseResponseDTO, 0, len(courses))
	for _, c := range courses {
		out = append(out, NewCourseResponseDTO(c))
	}
	return out
}
