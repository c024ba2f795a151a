package handler

import (
	"errors"
	"net/http"
	"strings"

	"gpadash/internal/api/v1/dto"
	"gpadash/internal/grading"
	"gpadash/internal/model"
	"gpadash/internal/service"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

// CourseHandler handles course and GPA endpoints
type CourseHandler struct {
	courseService service.CourseService
	validate      *validator.Validate
	logger        zerolog.Logger
}

// NewCourseHandler creates a new CourseHandler
func NewCourseHandler(courseService service.CourseService, validate *validator.Validate, logger zerolog.Logger) *CourseHandler {
	return &CourseHandler{
		courseService: courseService,
		validate:      validate,
		logger:        logger.With().Str("handler", "CourseHandler").Logger(),
	}
}

// RegisterRoutes mounts course routes
func (h *CourseHandler) RegisterRoutes(mux *http.ServeMux, authMw func(http.Handler) http.Handler) {
	mux.Handle("/courses", authMw(http.HandlerFunc(h.handleCourses)))
	mux.Handle("/courses/", authMw(http.HandlerFunc(h.handleCourse)))
	mux.Handle("/gpa", authMw(http.HandlerFunc(h.getGPA)))
	mux.Handle("/analytics", authMw(http.HandlerFunc(h.getAnalytics)))
	mux.HandleFunc("/grading-scale", h.getGradingScale)
}

func (h *CourseHandler) handleCourses(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.listCourses(w, r)
	case http.MethodPost:
		h.createCourse(w, r)
	default:
		http.NotFound(w, r)
	}
}

func (h *CourseHandler) handleCourse(w http.ResponseWriter, r *http.Request) {
	courseID := strings.TrimPrefix(r.URL.Path, "/courses/")
	if courseID == "" || strings.Contains(courseID, "/") {
		http.NotFound(w, r)
		return
	}
	switch {
	case courseID == "reset" && r.Method == http.MethodPost:
		h.resetCourses(w, r)
	case r.Method == http.MethodPatch:
		h.updateCourse(w, r, courseID)
	case r.Method == http.MethodDelete:
		h.deleteCourse(w, r, courseID)
	default:
		http.NotFound(w, r)
	}
}

// listCourses godoc
// @Summary List courses
// @Description Returns every course of the authenticated user together with the GPA summary.
// @Tags courses
// @Produce json
// @Success 200 {object} dto.CourseListResponseDTO
// @Failure 401 {string} string "Unauthorized: User ID not found in context"
// @Failure 500 {string} string "Failed to list courses"
// @Failure 503 {string} string "Course slot unavailable"
// @Router /courses [get]
func (h *CourseHandler) listCourses(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	courses, err := h.courseService.ListCourses(r.Context(), userID)
	if err != nil {
		http.Error(w, "Failed to list courses: "+err.Error(), readStatus(err))
		return
	}
	writeJSON(w, http.StatusOK, dto.CourseListResponseDTO{
		Courses: dto.NewCourseResponseDTOs(courses),
		Summary: grading.Summarize(courses),
	})
}

// createCourse godoc
// @Summary Add a course
// @Description Appends a custom course with default values to the given semester.
// @Tags courses
// @Accept json
// @Produce json
// @Param course body dto.CourseCreateDTO true "Course creation request"
// @Success 201 {object} dto.CourseMutationResponseDTO
// @Failure 400 {string} string "Invalid JSON payload or validation failed"
// @Failure 401 {string} string "Unauthorized: User ID not found in context"
// @Failure 500 {string} string "Failed to create course"
// @Router /courses [post]
func (h *CourseHandler) createCourse(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	var req dto.CourseCreateDTO
	if !decodeAndValidate(w, r, h.validate, &req) {
		return
	}
	course, err := h.courseService.AddCourse(r.Context(), userID, model.Semester(req.Semester))
	persisted, ok := h.mutationOutcome(w, userID, "create course", err)
	if !ok {
		return
	}
	h.writeMutation(w, r, userID, http.StatusCreated, course, persisted)
}

// updateCourse godoc
// @Summary Update a course
// @Description Edits name, credits, score or semester. Grade and points are re-derived from the score.
// @Tags courses
// @Accept json
// @Produce json
// @Param courseId path string true "Course ID"
// @Param course body dto.CourseUpdateDTO true "Course update request"
// @Success 200 {object} dto.CourseMutationResponseDTO
// @Failure 400 {string} string "Invalid JSON payload or validation failed"
// @Failure 401 {string} string "Unauthorized: User ID not found in context"
// @Failure 404 {string} string "Course not found"
// @Failure 500 {string} string "Failed to update course"
// @Router /courses/{courseId} [patch]
func (h *CourseHandler) updateCourse(w http.ResponseWriter, r *http.Request, courseID string) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	var req dto.CourseUpdateDTO
	if !decodeAndValidate(w, r, h.validate, &req) {
		return
	}
	upd := service.CourseUpdate{Name: req.Name, Credits: req.Credits, Score: req.Score}
	if req.Semester != nil {
		sem := model.Semester(*req.Semester)
		upd.Semester = &sem
	}
	course, err := h.courseService.UpdateCourse(r.Context(), userID, courseID, upd)
	persisted, ok := h.mutationOutcome(w, userID, "update course", err)
	if !ok {
		return
	}
	h.writeMutation(w, r, userID, http.StatusOK, course, persisted)
}

// deleteCourse godoc
// @Summary Delete a course
// @Description Removes a course. Requires confirm=true.
// @Tags courses
// @Produce json
// @Param courseId path string true "Course ID"
// @Param confirm query bool true "Must be true"
// @Success 204 "No Content"
// @Success 200 {object} dto.CourseListResponseDTO "Removed but not persisted"
// @Failure 401 {string} string "Unauthorized: User ID not found in context"
// @Failure 404 {string} string "Course not found"
// @Failure 428 {string} string "Confirmation required"
// @Failure 500 {string} string "Failed to delete course"
// @Router /courses/{courseId} [delete]
func (h *CourseHandler) deleteCourse(w http.ResponseWriter, r *http.Request, courseID string) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	if !confirmed(w, r) {
		return
	}
	err := h.courseService.DeleteCourse(r.Context(), userID, courseID)
	persisted, ok := h.mutationOutcome(w, userID, "delete course", err)
	if !ok {
		return
	}
	if persisted {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	h.writeList(w, r, userID, false)
}

// resetCourses godoc
// @Summary Reset courses
// @Description Discards all edits and restores the seed curriculum. Requires confirm=true.
// @Tags courses
// @Produce json
// @Param confirm query bool true "Must be true"
// @Success 200 {object} dto.CourseListResponseDTO
// @Failure 401 {string} string "Unauthorized: User ID not found in context"
// @Failure 428 {string} string "Confirmation required"
// @Failure 500 {string} string "Failed to reset courses"
// @Router /courses/reset [post]
func (h *CourseHandler) resetCourses(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	if !confirmed(w, r) {
		return
	}
	_, err := h.courseService.ResetCourses(r.Context(), userID)
	persisted, ok := h.mutationOutcome(w, userID, "reset courses", err)
	if !ok {
		return
	}
	h.writeList(w, r, userID, persisted)
}

// getGPA godoc
// @Summary GPA summary
// @Description Cumulative and per-semester GPA plus progress towards graduation credits.
// @Tags gpa
// @Produce json
// @Success 200 {object} grading.Summary
// @Failure 401 {string} string "Unauthorized: User ID not found in context"
// @Failure 500 {string} string "Failed to compute GPA"
// @Router /gpa [get]
func (h *CourseHandler) getGPA(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	summary, err := h.courseService.GetSummary(r.Context(), userID)
	if err != nil {
		http.Error(w, "Failed to compute GPA: "+err.Error(), readStatus(err))
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// getAnalytics godoc
// @Summary Course performance chart
// @Description One point per course with a truncated label and a colour band.
// @Tags gpa
// @Produce json
// @Success 200 {array} grading.ChartPoint
// @Failure 401 {string} string "Unauthorized: User ID not found in context"
// @Failure 500 {string} string "Failed to build analytics"
// @Router /analytics [get]
func (h *CourseHandler) getAnalytics(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	points, err := h.courseService.GetChart(r.Context(), userID)
	if err != nil {
		http.Error(w, "Failed to build analytics: "+err.Error(), readStatus(err))
		return
	}
	writeJSON(w, http.StatusOK, points)
}

// getGradingScale godoc
// @Summary Grading scale
// @Description The score ranges, letter grades and grade points used for every course.
// @Tags gpa
// @Produce json
// @Success 200 {array} dto.GradingRuleDTO
// @Router /grading-scale [get]
func (h *CourseHandler) getGradingScale(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	rules := make([]dto.GradingRuleDTO, 0, len(grading.DefaultScale))
	for _, rule := range grading.DefaultScale {
		rules = append(rules, dto.GradingRuleDTO{Grade: rule.Grade, Min: rule.Min, Max: rule.Max, Points: rule.Points})
	}
	writeJSON(w, http.StatusOK, rules)
}

// mutationOutcome maps a service error to a response. It returns
// ok=false once it has written an error; persisted is false when the
// change was applied but the slot write failed.
func (h *CourseHandler) mutationOutcome(w http.ResponseWriter, userID, action string, err error) (persisted bool, ok bool) {
	switch {
	case err == nil:
		return true, true
	case errors.Is(err, service.ErrNotPersisted):
		h.logger.Warn().Err(err).Str("user_id", userID).Msgf("Failed to persist after %s", action)
		return false, true
	case errors.Is(err, service.ErrCourseNotFound):
		http.Error(w, "Course not found", http.StatusNotFound)
	case errors.Is(err, service.ErrSlotUnavailable):
		h.logger.Error().Err(err).Str("user_id", userID).Msgf("Failed to %s", action)
		http.Error(w, "Failed to "+action+": "+err.Error(), http.StatusServiceUnavailable)
	case errors.Is(err, service.ErrInvalidSemester), errors.Is(err, service.ErrInvalidCredits):
		http.Error(w, "Validation failed: "+err.Error(), http.StatusBadRequest)
	default:
		h.logger.Error().Err(err).Str("user_id", userID).Msgf("Failed to %s", action)
		http.Error(w, "Failed to "+action+": "+err.Error(), http.StatusInternalServerError)
	}
	return false, false
}

func (h *CourseHandler) writeMutation(w http.ResponseWriter, r *http.Request, userID string, status int, course *model.Course, persisted bool) {
	summary, err := h.courseService.GetSummary(r.Context(), userID)
	if err != nil {
		http.Error(w, "Failed to compute GPA: "+err.Error(), readStatus(err))
		return
	}
	writeJSON(w, status, dto.CourseMutationResponseDTO{
		Course:    dto.NewCourseResponseDTO(*course),
		Summary:   summary,
		Persisted: persisted,
	})
}

func (h *CourseHandler) writeList(w http.ResponseWriter, r *http.Request, userID string, persisted bool) {
	courses, err := h.courseService.ListCourses(r.Context(), userID)
	if err != nil {
		http.Error(w, "Failed to list courses: "+err.Error(), readStatus(err))
		return
	}
	writeJSON(w, http.StatusOK, dto.CourseListResponseDTO{
		Courses:   dto.NewCourseResponseDTOs(courses),
		Summary:   grading.Summarize(courses),
		Persisted: &persisted,
	})
}

// readStatus answers 503 while the course slot cannot be read so clients retry.
func readStatus(err error) int {
	if errors.Is(err, service.ErrSlotUnavailable) {
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// confirmed guards destructive operations behind an explicit confirm=true.
func confirmed(w http.ResponseWriter, r *http.Request) bool {
	if r.URL.Query().Get("confirm") != "true" {
		http.Error(w, "Confirmation required: pass confirm=true", http.StatusPreconditionRequired)
		return false
	}
	return true
}
