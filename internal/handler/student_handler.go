package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sms-core-api/internal/dto"
	"github.com/noah-isme/sms-core-api/internal/models"
	"github.com/noah-isme/sms-core-api/pkg/response"
)

type studentService interface {
	CreateStudent(ctx context.Context, req dto.CreateStudentRequest, actor string) (*models.Student, error)
	GetStudent(ctx context.Context, id string) (*models.Student, error)
	UpdateStudent(ctx context.Context, id string, req dto.UpdateStudentRequest, actor string) (*models.Student, error)
	TransferStudent(ctx context.Context, id string, req dto.AssignClassGroupRequest, actor string) (*models.Student, error)
	Dashboard(ctx context.Context, id string) (*dto.StudentDashboard, error)
}

// StudentHandler exposes student records, class group transfers and the dashboard.
type StudentHandler struct {
	students studentService
}

// NewStudentHandler constructs StudentHandler.
func NewStudentHandler(students studentService) *StudentHandler {
	return &StudentHandler{students: students}
}

// Create godoc
// @Summary Register a student
// @Tags Students
// @Accept json
// @Produce json
// @Param payload body dto.CreateStudentRequest true "Student payload"
// @Success 201 {object} response.Envelope
// @Router /students [post]
func (h *StudentHandler) Create(c *gin.Context) {
	var req dto.CreateStudentRequest
	if !bindJSON(c, &req) {
		return
	}
	student, err := h.students.CreateStudent(c.Request.Context(), req, actorID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, student)
}

// Get godoc
// @Summary Get student
// @Tags Students
// @Produce json
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /students/{id} [get]
func (h *StudentHandler) Get(c *gin.Context) {
	student, err := h.students.GetStudent(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	ok(c, student)
}

// Update godoc
// @Summary Change a student's name, status or remarks
// @Tags Students
// @Accept json
// @Produce json
// @Param id path string true "Student ID"
// @Param payload body dto.UpdateStudentRequest true "Fields to change"
// @Success 200 {object} response.Envelope
// @Router /students/{id} [patch]
func (h *StudentHandler) Update(c *gin.Context) {
	var req dto.UpdateStudentRequest
	if !bindJSON(c, &req) {
		return
	}
	student, err := h.students.UpdateStudent(c.Request.Context(), c.Param("id"), req, actorID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	ok(c, student)
}

// Transfer godoc
// @Summary Move a student into a class group
// @Tags Students
// @Accept json
// @Produce json
// @Param id path string true "Student ID"
// @Param payload body dto.AssignClassGroupRequest true "Target class group"
// @Success 200 {object} response.Envelope
// @Router /students/{id}/class-group [put]
func (h *StudentHandler) Transfer(c *gin.Context) {
	var req dto.AssignClassGroupRequest
	if !bindJSON(c, &req) {
		return
	}
	student, err := h.students.TransferStudent(c.Request.Context(), c.Param("id"), req, actorID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	ok(c, student)
}

// Dashboard godoc
// @Summary Student dashboard
// @Description Active courses with progress, attendance and grade summaries and the next assignments due.
// @Tags Students
// @Produce json
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /students/{id}/dashboard [get]
func (h *StudentHandler) Dashboard(c *gin.Context) {
	board, err := h.students.Dashboard(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	ok(c, board)
}
