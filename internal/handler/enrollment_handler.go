package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sms-core-api/internal/dto"
	"github.com/noah-isme/sms-core-api/internal/middleware"
	"github.com/noah-isme/sms-core-api/internal/models"
	"github.com/noah-isme/sms-core-api/pkg/response"
)

type enrollmentService interface {
	Enroll(ctx context.Context, req dto.EnrollRequest, actor string) (*models.Enrollment, error)
	BulkEnroll(ctx context.Context, req dto.BulkEnrollRequest, actor string) (*dto.BulkEnrollResult, error)
	Withdraw(ctx context.Context, id string, req dto.WithdrawRequest, actor string) (*models.Enrollment, error)
	Complete(ctx context.Context, id string, req dto.CompleteRequest, actor string) (*models.Enrollment, error)
	Drop(ctx context.Context, id string, req dto.DropRequest, actor string) (*models.Enrollment, error)
	Activate(ctx context.Context, id, actor string) (*models.Enrollment, error)
	Get(ctx context.Context, id string) (*models.EnrollmentDetail, error)
	List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, *models.Pagination, error)
	Statistics(ctx context.Context, courseID string) (*models.EnrollmentStatistics, error)
	Progress(ctx context.Context, id string) (*dto.ProgressReport, error)
}

// EnrollmentHandler exposes enrollment endpoints.
type EnrollmentHandler struct {
	enrollments enrollmentService
}

// NewEnrollmentHandler constructs EnrollmentHandler.
func NewEnrollmentHandler(enrollments enrollmentService) *EnrollmentHandler {
	return &EnrollmentHandler{enrollments: enrollments}
}

// List godoc
// @Summary List enrollments
// @Tags Enrollments
// @Produce json
// @Param student_id query string false "Filter by student"
// @Param course_id query string false "Filter by course"
// @Param status query string false "Filter by status"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /enrollments [get]
func (h *EnrollmentHandler) List(c *gin.Context) {
	filter := models.EnrollmentFilter{
		StudentID: c.Query("student_id"),
		CourseID:  c.Query("course_id"),
		Status:    models.EnrollmentStatus(strings.ToLower(c.Query("status"))),
		Page:      parseQueryInt(c, "page", 1),
		PageSize:  parseQueryInt(c, "limit", 20),
		SortBy:    c.Query("sort"),
		SortOrder: c.Query("order"),
	}
	enrollments, pagination, err := h.enrollments.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, enrollments, pagination, middleware.ExtractMeta(c))
}

// Get godoc
// @Summary Get enrollment
// @Tags Enrollments
// @Produce json
// @Param id path string true "Enrollment ID"
// @Success 200 {object} response.Envelope
// @Router /enrollments/{id} [get]
func (h *EnrollmentHandler) Get(c *gin.Context) {
	enrollment, err := h.enrollments.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	ok(c, enrollment)
}

// Create godoc
// @Summary Enroll student in course
// @Tags Enrollments
// @Accept json
// @Produce json
// @Param payload body dto.EnrollRequest true "Enrollment payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /enrollments [post]
func (h *EnrollmentHandler) Create(c *gin.Context) {
	var req dto.EnrollRequest
	if !bindJSON(c, &req) {
		return
	}
	enrollment, err := h.enrollments.Enroll(c.Request.Context(), req, actorID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, enrollment)
}

// Bulk godoc
// @Summary Enroll several students in one course
// @Tags Enrollments
// @Accept json
// @Produce json
// @Param payload body dto.BulkEnrollRequest true "Bulk payload"
// @Success 200 {object} response.Envelope
// @Router /enrollments/bulk [post]
func (h *EnrollmentHandler) Bulk(c *gin.Context) {
	var req dto.BulkEnrollRequest
	if !bindJSON(c, &req) {
		return
	}
	result, err := h.enrollments.BulkEnroll(c.Request.Context(), req, actorID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	ok(c, result)
}

// Withdraw godoc
// @Summary Withdraw an active enrollment
// @Tags Enrollments
// @Accept json
// @Produce json
// @Param id path string true "Enrollment ID"
// @Param payload body dto.WithdrawRequest false "Reason"
// @Success 200 {object} response.Envelope
// @Router /enrollments/{id}/withdraw [post]
func (h *EnrollmentHandler) Withdraw(c *gin.Context) {
	var req dto.WithdrawRequest
	if !bindOptionalJSON(c, &req) {
		return
	}
	h.respond(c)(h.enrollments.Withdraw(c.Request.Context(), c.Param("id"), req, actorID(c)))
}

// Complete godoc
// @Summary Complete an active enrollment
// @Tags Enrollments
// @Accept json
// @Produce json
// @Param id path string true "Enrollment ID"
// @Param payload body dto.CompleteRequest false "Final marks"
// @Success 200 {object} response.Envelope
// @Router /enrollments/{id}/complete [post]
func (h *EnrollmentHandler) Complete(c *gin.Context) {
	var req dto.CompleteRequest
	if !bindOptionalJSON(c, &req) {
		return
	}
	h.respond(c)(h.enrollments.Complete(c.Request.Context(), c.Param("id"), req, actorID(c)))
}

// Drop godoc
// @Summary Drop an active enrollment
// @Tags Enrollments
// @Accept json
// @Produce json
// @Param id path string true "Enrollment ID"
// @Param payload body dto.DropRequest false "Reason"
// @Success 200 {object} response.Envelope
// @Router /enrollments/{id}/drop [post]
func (h *EnrollmentHandler) Drop(c *gin.Context) {
	var req dto.DropRequest
	if !bindOptionalJSON(c, &req) {
		return
	}
	h.respond(c)(h.enrollments.Drop(c.Request.Context(), c.Param("id"), req, actorID(c)))
}

// Activate godoc
// @Summary Activate a pending enrollment
// @Tags Enrollments
// @Produce json
// @Param id path string true "Enrollment ID"
// @Success 200 {object} response.Envelope
// @Router /enrollments/{id}/activate [post]
func (h *EnrollmentHandler) Activate(c *gin.Context) {
	h.respond(c)(h.enrollments.Activate(c.Request.Context(), c.Param("id"), actorID(c)))
}

func (h *EnrollmentHandler) respond(c *gin.Context) func(*models.Enrollment, error) {
	return func(enrollment *models.Enrollment, err error) {
		if err != nil {
			response.Error(c, err)
			return
		}
		ok(c, enrollment)
	}
}

// Statistics godoc
// @Summary Enrollment counts by status
// @Tags Enrollments
// @Produce json
// @Param course_id query string false "Restrict to one course"
// @Success 200 {object} response.Envelope
// @Router /enrollments/statistics [get]
func (h *EnrollmentHandler) Statistics(c *gin.Context) {
	stats, err := h.enrollments.Statistics(c.Request.Context(), c.Query("course_id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	ok(c, stats)
}

// Progress godoc
// @Summary Weighted progress of an enrollment
// @Tags Enrollments
// @Produce json
// @Param id path string true "Enrollment ID"
// @Success 200 {object} response.Envelope
// @Router /enrollments/{id}/progress [get]
func (h *EnrollmentHandler) Progress(c *gin.Context) {
	report, err := h.enrollments.Progress(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	ok(c, report)
}
