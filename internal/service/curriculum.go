package service

import "gpadash/internal/model"

// prepYear is the Preparatory Year seed curriculum. Every course starts
// ungraded at score 0.
var prepYear = []struct {
	id       string
	name     string
	credits  int
	semester model.Semester
}{
	{"sci001", "Mathematics (1)", 3, model.SemesterOne},
	{"sci002", "Mechanics (1)", 3, model.SemesterOne},
	{"sci003", "Physics (1)", 3, model.SemesterOne},
	{"prd001", "Production Technology", 3, model.SemesterOne},
	{"prd002", "Eng. Drawing & Projection (1)", 3, model.SemesterOne},
	{"huu001", "English Language", 2, model.SemesterOne},
	{"huf001", "History of Eng. & Tech", 2, model.SemesterOne},

	{"sci005", "Mathematics (2)", 3, model.SemesterTwo},
	{"sci006", "Mechanics (2)", 3, model.SemesterTwo},
	{"sci007", "Physics (2)", 3, model.SemesterTwo},
	{"sci004", "Engineering Chemistry", 3, model.SemesterTwo},
	{"prd003", "Eng. Drawing & Projection (2)", 3, model.SemesterTwo},
	{"cce001", "Computer & Programming", 3, model.SemesterTwo},
	{"huu002", "Human Rights", 2, model.SemesterTwo},
}

// Curriculum returns a fresh copy of the seed course list.
func Curriculum() []model.Course {
	courses := make([]model.Course, 0, len(prepYear))
	for _, c := range prepYear {
		courses = append(courses, model.Course{
			ID:       c.id,
			Name:     c.name,
			Credits:  c.credits,
			Score:    0,
			Grade:    "F",
			Points:   0,
			Semester: c.semester,
		})
	}
	return courses
}
