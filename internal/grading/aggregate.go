package grading

import (
	"unicode/utf8"

	"gpadash/internal/model"
)

// GraduationCredits is the approximate credit load needed to graduate.
const GraduationCredits = 170

// AggregateResult is recomputed on demand and never stored.
type AggregateResult struct {
	TotalCredits int     `json:"totalCredits"`
	TotalPoints  float64 `json:"totalPoints"`
	GPA          float64 `json:"gpa"`
}

// Aggregate sums credits and credit-weighted points. Every course counts,
// including ungraded zero-score placeholders.
func Aggregate(courses []model.Course) AggregateResult {
	var res AggregateResult
	for _, c := range courses {
		res.TotalCredits += c.Credits
		res.TotalPoints += c.Points * float64(c.Credits)
	}
	if res.TotalCredits != 0 {
		res.GPA = res.TotalPoints / float64(res.TotalCredits)
	}
	return res
}

type SemesterSummary struct {
	Semester model.Semester `json:"semester"`
	Courses  int            `json:"courses"`
	AggregateResult
}

// Summary is the dashboard header: cumulative GPA, per-semester GPA and
// progress towards GraduationCredits as a percentage.
type Summary struct {
	Cumulative AggregateResult   `json:"cumulative"`
	Semesters  []SemesterSummary `json:"semesters"`
	Progress   float64           `json:"progress"`
}

func Summarize(courses []model.Course) Summary {
	sum := Summary{Cumulative: Aggregate(courses)}
	for _, sem := range []model.Semester{model.SemesterOne, model.SemesterTwo} {
		var in []model.Course
		for _, c := range courses {
			if c.Semester == sem {
				in = append(in, c)
			}
		}
		sum.Semesters = append(sum.Semesters, SemesterSummary{
			Semester:        sem,
			Courses:         len(in),
			AggregateResult: Aggregate(in),
		})
	}
	sum.Progress = float64(sum.Cumulative.TotalCredits) / GraduationCredits * 100
	if sum.Progress > 100 {
		sum.Progress = 100
	}
	return sum
}

type Band string

const (
	BandHigh Band = "high"
	BandMid  Band = "mid"
	BandLow  Band = "low"
)

// ChartPoint is one bar of the per-course performance chart.
type ChartPoint struct {
	ID     string  `json:"id"`
	Label  string  `json:"label"`
	Score  float64 `json:"score"`
	Points float64 `json:"points"`
	Band   Band    `json:"band"`
}

const chartLabelRunes = 10

func Chart(courses []model.Course) []ChartPoint {
	points := make([]ChartPoint, 0, len(courses))
	for _, c := range courses {
		points = append(points, ChartPoint{
			ID:     c.ID,
			Label:  chartLabel(c.Name),
			Score:  c.Score,
			Points: c.Points,
			Band:   bandFor(c.Points),
		})
	}
	return points
}

func chartLabel(name string) string {
	if utf8.RuneCountInString(name) <= chartLabelRunes {
		return name
	}
	return string([]rune(name)[:chartLabelRunes]) + "..."
}

func bandFor(points float64) Band {
	switch {
	case points >= 3.0:
		return BandHigh
	case points >= 2.0:
		return BandMid
	}
	return BandLow
}
