package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"gpadash/internal/grading"
	"gpadash/internal/model"
	"gpadash/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	newCourseName    = "New Course"
	newCourseCredits = 3
)

var (
	ErrInvalidSemester = errors.New("semester must be 1 or 2")
	ErrInvalidCredits  = errors.New("credits must be a positive integer")
	// ErrNotPersisted wraps a failed slot write. The in-memory change it
	// accompanies has already been applied and is kept.
	ErrNotPersisted = errors.New("course list not persisted")
	// ErrSlotUnavailable means the slot could not be read. Nothing is
	// seeded or cached, so the next access retries.
	ErrSlotUnavailable = errors.New("course slot unavailable")
)

// CourseUpdate names the fields to change. Nil fields are left alone.
// Grade and points are not settable: they follow Score.
type CourseUpdate struct {
	Name     *string
	Credits  *int
	Score    *float64
	Semester *model.Semester
}

// CourseStore owns one course list and its durable slot. Every mutation
// writes the full list through to the slot before returning.
type CourseStore struct {
	mu      sync.Mutex
	key     string
	slots   repository.SlotRepository
	scale   grading.Scale
	courses []model.Course
	newID   func() string
	logger  zerolog.Logger
}

// OpenCourseStore builds a store for key and loads the persisted list, or
// the seed curriculum when there is none. A slot that cannot be read is an
// error: seeding over it would lose the user's data on the next write.
func OpenCourseStore(ctx context.Context, slots repository.SlotRepository, key string, logger zerolog.Logger) (*CourseStore, error) {
	s := &CourseStore{
		key:    key,
		slots:  slots,
		scale:  grading.DefaultScale,
		newID:  uuid.NewString,
		logger: logger.With().Str("service", "CourseStore").Str("slot_key", key).Logger(),
	}
	if _, err := s.Load(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// Load replaces the in-memory list with the slot contents. A missing or
// malformed slot yields the seed curriculum. Read failures leave the
// current list untouched and return ErrSlotUnavailable.
func (s *CourseStore) Load(ctx context.Context) ([]model.Course, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	courses, err := s.readSlot(ctx)
	if err != nil {
		return nil, err
	}
	s.courses = courses
	return cloneCourses(s.courses), nil
}

func (s *CourseStore) readSlot(ctx context.Context) ([]model.Course, error) {
	raw, err := s.slots.Get(ctx, s.key)
	if errors.Is(err, repository.ErrSlotNotFound) {
		return Curriculum(), nil
	}
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to read course slot")
		return nil, fmt.Errorf("%w: %w", ErrSlotUnavailable, err)
	}

	var courses []model.Course
	if err := json.Unmarshal(raw, &courses); err != nil || courses == nil {
		s.logger.Warn().Err(err).Msg("Malformed course slot, using default curriculum")
		return Curriculum(), nil
	}
	if err := validateLoaded(courses); err != nil {
		s.logger.Warn().Err(err).Msg("Malformed course slot, using default curriculum")
		return Curriculum(), nil
	}
	// Hand-edited slots may carry stale grades.
	for i := range courses {
		s.applyScore(&courses[i], courses[i].Score)
	}
	return courses, nil
}

// validateLoaded rejects records no store operation could have produced.
func validateLoaded(courses []model.Course) error {
	seen := make(map[string]bool, len(courses))
	for i, c := range courses {
		switch {
		case c.ID == "":
			return fmt.Errorf("course %d has no id", i)
		case seen[c.ID]:
			return fmt.Errorf("duplicate course id %q", c.ID)
		case c.Credits <= 0:
			return fmt.Errorf("course %q: %w", c.ID, ErrInvalidCredits)
		case !c.Semester.Valid():
			return fmt.Errorf("course %q: %w", c.ID, ErrInvalidSemester)
		}
		seen[c.ID] = true
	}
	return nil
}

// Courses returns a copy of the current list.
func (s *CourseStore) Courses() []model.Course {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneCourses(s.courses)
}

func (s *CourseStore) Get(id string) (model.Course, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.indexOf(id); i >= 0 {
		return s.courses[i], true
	}
	return model.Course{}, false
}

// Add appends a custom placeholder course to semester.
func (s *CourseStore) Add(ctx context.Context, semester model.Semester) (model.Course, error) {
	if !semester.Valid() {
		return model.Course{}, ErrInvalidSemester
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	c := model.Course{
		ID:       s.newID(),
		Name:     newCourseName,
		Credits:  newCourseCredits,
		Semester: semester,
		IsCustom: true,
	}
	s.applyScore(&c, 0)
	s.courses = append(s.courses, c)
	return c, s.persistLocked(ctx)
}

// Update applies upd to the course with id. An unknown id is a no-op and
// reports false.
func (s *CourseStore) Update(ctx context.Context, id string, upd CourseUpdate) (model.Course, bool, error) {
	if upd.Credits != nil && *upd.Credits <= 0 {
		return model.Course{}, false, ErrInvalidCredits
	}
	if upd.Semester != nil && !upd.Semester.Valid() {
		return model.Course{}, false, ErrInvalidSemester
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return model.Course{}, false, nil
	}
	c := &s.courses[i]
	if upd.Name != nil {
		c.Name = *upd.Name
	}
	if upd.Credits != nil {
		c.Credits = *upd.Credits
	}
	if upd.Semester != nil {
		c.Semester = *upd.Semester
	}
	if upd.Score != nil {
		s.applyScore(c, *upd.Score)
	}
	return *c, true, s.persistLocked(ctx)
}

// Remove deletes the course with id. Callers obtain the user's consent first.
func (s *CourseStore) Remove(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return false, nil
	}
	s.courses = append(s.courses[:i], s.courses[i+1:]...)
	return true, s.persistLocked(ctx)
}

// ResetToDefault discards every edit and custom course. Callers obtain the
// user's consent first.
func (s *CourseStore) ResetToDefault(ctx context.Context) ([]model.Course, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.courses = Curriculum()
	return cloneCourses(s.courses), s.persistLocked(ctx)
}

// Persist writes the full list to the slot.
func (s *CourseStore) Persist(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.persistLocked(ctx)
}

func (s *CourseStore) Summary() grading.Summary {
	s.mu.Lock()
	defer s.mu.Unlock()
	return grading.Summarize(s.courses)
}

func (s *CourseStore) Chart() []grading.ChartPoint {
	s.mu.Lock()
	defer s.mu.Unlock()
	return grading.Chart(s.courses)
}

func (s *CourseStore) persistLocked(ctx context.Context) error {
	list := s.courses
	if list == nil {
		list = []model.Course{}
	}
	raw, err := json.Marshal(list)
	if err == nil {
		err = s.slots.Put(ctx, s.key, raw)
	}
	if err != nil {
		s.logger.Error().Err(err).Int("courses", len(list)).Msg("Failed to persist course list")
		return fmt.Errorf("%w: %w", ErrNotPersisted, err)
	}
	return nil
}

// applyScore is the only place score, grade and points change.
func (s *CourseStore) applyScore(c *model.Course, score float64) {
	c.Score = grading.Clamp(score)
	c.Grade, c.Points = s.scale.Classify(c.Score)
}

func (s *CourseStore) indexOf(id string) int {
	for i := range s.courses {
		if s.courses[i].ID == id {
			return i
		}
	}
	return -1
}

func cloneCourses(in []model.Course) []model.Course {
	out := make([]model.Course, len(in))
	copy(out, in)
	return out
}
