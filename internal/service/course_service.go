package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"gpadash/internal/config"
	"gpadash/internal/grading"
	"gpadash/internal/model"
	"gpadash/internal/repository"

	"github.com/rs/zerolog"
)

var ErrCourseNotFound = errors.New("course not found")

// GradeNotifier receives an event after every course list mutation.
type GradeNotifier interface {
	NotifyGradeChange(ctx context.Context, event model.GradeEvent)
}

type nopNotifier struct{}

func (nopNotifier) NotifyGradeChange(context.Context, model.GradeEvent) {}

// NopNotifier discards grade events.
var NopNotifier GradeNotifier = nopNotifier{}

// CourseService defines the per-user course operations. Mutations that
// were applied but could not be written to the slot return the result
// together with an error wrapping ErrNotPersisted.
type CourseService interface {
	ListCourses(ctx context.Context, userID string) ([]model.Course, error)
	AddCourse(ctx context.Context, userID string, semester model.Semester) (*model.Course, error)
	UpdateCourse(ctx context.Context, userID, courseID string, upd CourseUpdate) (*model.Course, error)
	DeleteCourse(ctx context.Context, userID, courseID string) error
	ResetCourses(ctx context.Context, userID string) ([]model.Course, error)
	GetSummary(ctx context.Context, userID string) (grading.Summary, error)
	GetChart(ctx context.Context, userID string) ([]grading.ChartPoint, error)
}

type courseService struct {
	slots    repository.SlotRepository
	baseKey  string
	notifier GradeNotifier
	logger   zerolog.Logger

	mu     sync.Mutex
	stores map[string]*CourseStore
}

// NewCourseService creates a new CourseService. Each user gets one
// CourseStore, opened on first use and kept for the life of the process.
func NewCourseService(slots repository.SlotRepository, baseKey string, notifier GradeNotifier, logger zerolog.Logger) CourseService {
	if notifier == nil {
		notifier = NopNotifier
	}
	return &courseService{
		slots:    slots,
		baseKey:  baseKey,
		notifier: notifier,
		logger:   logger.With().Str("service", "CourseService").Logger(),
		stores:   map[string]*CourseStore{},
	}
}

// SlotKey is the slot a user's course list lives in.
func SlotKey(baseKey, userID string) string {
	if userID == "" || userID == config.AnonymousUserID {
		return baseKey
	}
	return baseKey + ":" + userID
}

// storeFor returns the user's store, opening it on first use. The slot read
// happens outside s.mu so one slow backend call does not stall other users.
// A failed open is not cached.
func (s *courseService) storeFor(ctx context.Context, userID string) (*CourseStore, error) {
	key := SlotKey(s.baseKey, userID)

	s.mu.Lock()
	st, ok := s.stores[key]
	s.mu.Unlock()
	if ok {
		return st, nil
	}

	opened, err := OpenCourseStore(ctx, s.slots, key, s.logger)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	// Another request may have opened the same key meanwhile.
	if st, ok := s.stores[key]; ok {
		return st, nil
	}
	s.stores[key] = opened
	return opened, nil
}

func (s *courseService) ListCourses(ctx context.Context, userID string) ([]model.Course, error) {
	st, err := s.storeFor(ctx, userID)
	if err != nil {
		return nil, err
	}
	return st.Courses(), nil
}

func (s *courseService) AddCourse(ctx context.Context, userID string, semester model.Semester) (*model.Course, error) {
	st, err := s.storeFor(ctx, userID)
	if err != nil {
		return nil, err
	}
	c, err := st.Add(ctx, semester)
	if errors.Is(err, ErrInvalidSemester) {
		return nil, err
	}
	s.notify(ctx, st, userID, model.GradeActionAdd, c.ID, err)
	return &c, err
}

func (s *courseService) UpdateCourse(ctx context.Context, userID, courseID string, upd CourseUpdate) (*model.Course, error) {
	st, err := s.storeFor(ctx, userID)
	if err != nil {
		return nil, err
	}
	c, found, err := st.Update(ctx, courseID, upd)
	if err != nil && !errors.Is(err, ErrNotPersisted) {
		return nil, err
	}
	if !found {
		return nil, ErrCourseNotFound
	}
	s.notify(ctx, st, userID, model.GradeActionUpdate, courseID, err)
	return &c, err
}

func (s *courseService) DeleteCourse(ctx context.Context, userID, courseID string) error {
	st, err := s.storeFor(ctx, userID)
	if err != nil {
		return err
	}
	found, err := st.Remove(ctx, courseID)
	if !found {
		return ErrCourseNotFound
	}
	s.notify(ctx, st, userID, model.GradeActionRemove, courseID, err)
	return err
}

func (s *courseService) ResetCourses(ctx context.Context, userID string) ([]model.Course, error) {
	st, err := s.storeFor(ctx, userID)
	if err != nil {
		return nil, err
	}
	courses, err := st.ResetToDefault(ctx)
	s.notify(ctx, st, userID, model.GradeActionReset, "", err)
	return courses, err
}

func (s *courseService) GetSummary(ctx context.Context, userID string) (grading.Summary, error) {
	st, err := s.storeFor(ctx, userID)
	if err != nil {
		return grading.Summary{}, err
	}
	return st.Summary(), nil
}

func (s *courseService) GetChart(ctx context.Context, userID string) ([]grading.ChartPoint, error) {
	st, err := s.storeFor(ctx, userID)
	if err != nil {
		return nil, err
	}
	return st.Chart(), nil
}

func (s *courseService) notify(ctx context.Context, st *CourseStore, userID string, action model.GradeAction, courseID string, persistErr error) {
	sum := st.Summary()
	s.notifier.NotifyGradeChange(ctx, model.GradeEvent{
		UserID:       userID,
		Action:       action,
		CourseID:     courseID,
		TotalCredits: sum.Cumulative.TotalCredits,
		TotalPoints:  sum.Cumulative.TotalPoints,
		GPA:          sum.Cumulative.GPA,
		Persisted:    persistErr == nil,
		OccurredAt:   time.Now().UTC(),
	})
}
