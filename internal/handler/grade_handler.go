package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sms-core-api/internal/dto"
	"github.com/noah-isme/sms-core-api/internal/models"
	"github.com/noah-isme/sms-core-api/pkg/response"
)

type gradeService interface {
	GradeSummary(ctx context.Context, studentID, courseID string) (*models.GradeSummary, error)
	AddGrade(ctx context.Context, req dto.AddGradeRequest, actor string) (*models.Grade, error)
	CourseGradeStatistics(ctx context.Context, courseID string) (*models.CourseGradeStatistics, error)
	CreateAssignment(ctx context.Context, req dto.CreateAssignmentRequest) (*models.Assignment, error)
	SubmitAssignment(ctx context.Context, assignmentID string, req dto.SubmitAssignmentRequest) (*models.Submission, error)
}

// GradeHandler exposes grade and coursework recording and aggregation endpoints.
type GradeHandler struct {
	grades gradeService
}

// NewGradeHandler constructs GradeHandler.
func NewGradeHandler(grades gradeService) *GradeHandler {
	return &GradeHandler{grades: grades}
}

// Create godoc
// @Summary Record a grade
// @Tags Grades
// @Accept json
// @Produce json
// @Param payload body dto.AddGradeRequest true "Grade payload"
// @Success 201 {object} response.Envelope
// @Router /grades [post]
func (h *GradeHandler) Create(c *gin.Context) {
	var req dto.AddGradeRequest
	if !bindJSON(c, &req) {
		return
	}
	grade, err := h.grades.AddGrade(c.Request.Context(), req, actorID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, grade)
}

// StudentSummary godoc
// @Summary Grade summary of a student
// @Tags Grades
// @Produce json
// @Param id path string true "Student ID"
// @Param course_id query string false "Restrict to one course"
// @Success 200 {object} response.Envelope
// @Router /students/{id}/grades/summary [get]
func (h *GradeHandler) StudentSummary(c *gin.Context) {
	summary, err := h.grades.GradeSummary(c.Request.Context(), c.Param("id"), c.Query("course_id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	ok(c, summary)
}

// CourseStatistics godoc
// @Summary Grade statistics of a course
// @Tags Grades
// @Produce json
// @Param id path string true "Course ID"
// @Success 200 {object} response.Envelope
// @Router /courses/{id}/grades/statistics [get]
func (h *GradeHandler) CourseStatistics(c *gin.Context) {
	stats, err := h.grades.CourseGradeStatistics(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	ok(c, stats)
}

// CreateAssignment godoc
// @Summary Add an assignment to a course
// @Tags Grades
// @Accept json
// @Produce json
// @Param payload body dto.CreateAssignmentRequest true "Assignment payload"
// @Success 201 {object} response.Envelope
// @Router /assignments [post]
func (h *GradeHandler) CreateAssignment(c *gin.Context) {
	var req dto.CreateAssignmentRequest
	if !bindJSON(c, &req) {
		return
	}
	assignment, err := h.grades.CreateAssignment(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, assignment)
}

// Submit godoc
// @Summary Record a student's submission
// @Tags Grades
// @Accept json
// @Produce json
// @Param id path string true "Assignment ID"
// @Param payload body dto.SubmitAssignmentRequest true "Submission payload"
// @Success 201 {object} response.Envelope
// @Router /assignments/{id}/submissions [post]
func (h *GradeHandler) Submit(c *gin.Context) {
	var req dto.SubmitAssignmentRequest
	if !bindJSON(c, &req) {
		return
	}
	submission, err := h.grades.SubmitAssignment(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, submission)
}
