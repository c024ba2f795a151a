// Package grading maps numeric scores to letter grades and aggregates
// course lists into credit-weighted GPA figures.
package grading

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

const (
	MinScore = 0.0
	MaxScore = 100.0
)

// Rule maps the half-open score range [Min, Max) to a letter grade.
type Rule struct {
	Grade  string  `json:"grade"`
	Points float64 `json:"points"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
}

// Scale is an ordered rule table. The last rule is the fallback when no
// range matches.
type Scale []Rule

// DefaultScale is the faculty grading table. The A+ upper bound of 101 lets
// a perfect 100 match A+ without reaching the F fallback.
var DefaultScale = Scale{
	{Grade: "A+", Points: 4.0, Min: 97, Max: 101},
	{Grade: "A", Points: 4.0, Min: 93, Max: 97},
	{Grade: "A-", Points: 3.7, Min: 89, Max: 93},
	{Grade: "B+", Points: 3.3, Min: 84, Max: 89},
	{Grade: "B", Points: 3.0, Min: 80, Max: 84},
	{Grade: "B-", Points: 2.7, Min: 76, Max: 80},
	{Grade: "C+", Points: 2.3, Min: 73, Max: 76},
	{Grade: "C", Points: 2.0, Min: 70, Max: 73},
	{Grade: "C-", Points: 1.7, Min: 67, Max: 70},
	{Grade: "D+", Points: 1.3, Min: 64, Max: 67},
	{Grade: "D", Points: 1.0, Min: 60, Max: 64},
	{Grade: "F", Points: 0.0, Min: 0, Max: 60},
}

var ErrEmptyScale = errors.New("grading scale has no rules")

// Clamp forces score into [MinScore, MaxScore]. NaN clamps to MinScore.
func Clamp(score float64) float64 {
	switch {
	case math.IsNaN(score), score < MinScore:
		return MinScore
	case score > MaxScore:
		return MaxScore
	}
	return score
}

// Classify returns the grade and points for score. Callers clamp first.
func (s Scale) Classify(score float64) (string, float64) {
	if len(s) == 0 {
		return "", 0
	}
	for _, r := range s {
		if score >= r.Min && score < r.Max {
			return r.Grade, r.Points
		}
	}
	last := s[len(s)-1]
	return last.Grade, last.Points
}

// Classify clamps score and classifies it against DefaultScale.
func Classify(score float64) (string, float64) {
	return DefaultScale.Classify(Clamp(score))
}

// Validate checks that the rules tile [MinScore, MaxScore] with no gaps or
// overlaps once sorted by Min.
func (s Scale) Validate() error {
	if len(s) == 0 {
		return ErrEmptyScale
	}
	sorted := make(Scale, len(s))
	copy(sorted, s)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Min < sorted[j].Min })

	if sorted[0].Min != MinScore {
		return fmt.Errorf("lowest rule %q starts at %v, want %v", sorted[0].Grade, sorted[0].Min, MinScore)
	}
	for i, r := range sorted {
		if r.Max <= r.Min {
			return fmt.Errorf("rule %q has empty range [%v, %v)", r.Grade, r.Min, r.Max)
		}
		if i > 0 && sorted[i-1].Max != r.Min {
			return fmt.Errorf("rules %q and %q are not contiguous", sorted[i-1].Grade, r.Grade)
		}
	}
	if top := sorted[len(sorted)-1]; top.Max <= MaxScore {
		return fmt.Errorf("top rule %q ends at %v and does not cover %v", top.Grade, top.Max, MaxScore)
	}
	return nil
}
