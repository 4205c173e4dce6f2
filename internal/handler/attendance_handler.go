package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sms-core-api/internal/dto"
	"github.com/noah-isme/sms-core-api/internal/models"
	"github.com/noah-isme/sms-core-api/pkg/response"
)

type attendanceService interface {
	Mark(ctx context.Context, req dto.MarkAttendanceRequest, actor string) (*models.Attendance, error)
	BulkMark(ctx context.Context, req dto.BulkMarkAttendanceRequest, actor string) (*dto.BulkAttendanceResult, error)
	Summary(ctx context.Context, query dto.AttendanceQuery) (*models.AttendanceSummary, error)
	Report(ctx context.Context, query dto.AttendanceQuery) (*dto.AttendanceReport, error)
	StudentSummary(ctx context.Context, studentID, courseID string) (*dto.StudentAttendanceSummary, error)
	LowAttendance(ctx context.Context, query dto.LowAttendanceQuery) ([]dto.LowAttendanceStudent, error)
	ExportLowAttendance(ctx context.Context, query dto.LowAttendanceQuery) ([]byte, string, string, error)
}

// AttendanceHandler exposes attendance marking and reporting endpoints.
type AttendanceHandler struct {
	attendance attendanceService
}

// NewAttendanceHandler constructs AttendanceHandler.
func NewAttendanceHandler(attendance attendanceService) *AttendanceHandler {
	return &AttendanceHandler{attendance: attendance}
}

// Mark godoc
// @Summary Mark attendance for one student
// @Tags Attendance
// @Accept json
// @Produce json
// @Param payload body dto.MarkAttendanceRequest true "Attendance payload"
// @Success 201 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /attendance [post]
func (h *AttendanceHandler) Mark(c *gin.Context) {
	var req dto.MarkAttendanceRequest
	if !bindJSON(c, &req) {
		return
	}
	record, err := h.attendance.Mark(c.Request.Context(), req, actorID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, record)
}

// Bulk godoc
// @Summary Mark attendance for a whole course on one date
// @Tags Attendance
// @Accept json
// @Produce json
// @Param payload body dto.BulkMarkAttendanceRequest true "Bulk payload"
// @Success 200 {object} response.Envelope
// @Router /attendance/bulk [post]
func (h *AttendanceHandler) Bulk(c *gin.Context) {
	var req dto.BulkMarkAttendanceRequest
	if !bindJSON(c, &req) {
		return
	}
	result, err := h.attendance.BulkMark(c.Request.Context(), req, actorID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	ok(c, result)
}

// Summary godoc
// @Summary Attendance counts and percentage
// @Tags Attendance
// @Produce json
// @Param student_id query string false "Student"
// @Param course_id query string false "Course"
// @Param from query string false "From date (YYYY-MM-DD)"
// @Param to query string false "To date (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Router /attendance/summary [get]
func (h *AttendanceHandler) Summary(c *gin.Context) {
	var query dto.AttendanceQuery
	if !bindQuery(c, &query) {
		return
	}
	summary, err := h.attendance.Summary(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	ok(c, summary)
}

// Report godoc
// @Summary Attendance summary with daily breakdown
// @Tags Attendance
// @Produce json
// @Param student_id query string false "Student"
// @Param course_id query string false "Course"
// @Param from query string false "From date (YYYY-MM-DD)"
// @Param to query string false "To date (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Router /attendance/report [get]
func (h *AttendanceHandler) Report(c *gin.Context) {
	var query dto.AttendanceQuery
	if !bindQuery(c, &query) {
		return
	}
	report, err := h.attendance.Report(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	ok(c, report)
}

// Low godoc
// @Summary Students below an attendance threshold
// @Tags Attendance
// @Produce json
// @Param threshold query number false "Percentage threshold, default from policy"
// @Param course_id query string false "Course"
// @Success 200 {object} response.Envelope
// @Router /attendance/low [get]
func (h *AttendanceHandler) Low(c *gin.Context) {
	var query dto.LowAttendanceQuery
	if !bindQuery(c, &query) {
		return
	}
	students, err := h.attendance.LowAttendance(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, students, nil, map[string]interface{}{"count": len(students)})
}

// Export godoc
// @Summary Download the low attendance report
// @Tags Attendance
// @Produce text/csv
// @Produce application/pdf
// @Param threshold query number false "Percentage threshold"
// @Param course_id query string false "Course"
// @Param format query string false "csv or pdf"
// @Success 200 {file} file
// @Router /attendance/low/export [get]
func (h *AttendanceHandler) Export(c *gin.Context) {
	var query dto.LowAttendanceQuery
	if !bindQuery(c, &query) {
		return
	}
	body, contentType, filename, err := h.attendance.ExportLowAttendance(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, filename, contentType, body)
}

// Student godoc
// @Summary Attendance dashboard of one student
// @Tags Attendance
// @Produce json
// @Param id path string true "Student ID"
// @Param course_id query string false "Restrict to one course"
// @Success 200 {object} response.Envelope
// @Router /students/{id}/attendance [get]
func (h *AttendanceHandler) Student(c *gin.Context) {
	summary, err := h.attendance.StudentSummary(c.Request.Context(), c.Param("id"), c.Query("course_id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	ok(c, summary)
}
