package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sms-core-api/internal/dto"
	"github.com/noah-isme/sms-core-api/internal/middleware"
	"github.com/noah-isme/sms-core-api/internal/models"
	"github.com/noah-isme/sms-core-api/pkg/response"
)

type catalogService interface {
	CreateClassGroup(ctx context.Context, req dto.CreateClassGroupRequest) (*models.ClassGroupDetail, error)
	GetClassGroup(ctx context.Context, id string) (*models.ClassGroupDetail, error)
	ListClassGroups(ctx context.Context, filter models.ClassGroupFilter) ([]models.ClassGroupDetail, *models.Pagination, error)
	CreateTeacher(ctx context.Context, req dto.CreateTeacherRequest) (*models.Teacher, error)
	CreateCourse(ctx context.Context, req dto.CreateCourseRequest) (*models.CourseDetail, error)
	GetCourse(ctx context.Context, id string) (*models.CourseDetail, error)
	ListCourses(ctx context.Context, filter models.CourseFilter) ([]models.CourseDetail, *models.Pagination, error)
	SetPrerequisites(ctx context.Context, courseID string, req dto.SetPrerequisitesRequest) (*models.CourseDetail, error)
	Eligibility(ctx context.Context, courseID, studentID string) (*dto.EligibilityResult, error)
}

// CatalogHandler exposes class group and course endpoints.
type CatalogHandler struct {
	catalog catalogService
}

// NewCatalogHandler constructs CatalogHandler.
func NewCatalogHandler(catalog catalogService) *CatalogHandler {
	return &CatalogHandler{catalog: catalog}
}

// CreateClassGroup godoc
// @Summary Create class group
// @Tags Catalog
// @Accept json
// @Produce json
// @Param payload body dto.CreateClassGroupRequest true "Class group payload"
// @Success 201 {object} response.Envelope
// @Router /class-groups [post]
func (h *CatalogHandler) CreateClassGroup(c *gin.Context) {
	var req dto.CreateClassGroupRequest
	if !bindJSON(c, &req) {
		return
	}
	group, err := h.catalog.CreateClassGroup(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, group)
}

// ListClassGroups godoc
// @Summary List class groups
// @Tags Catalog
// @Produce json
// @Param academic_year query string false "Academic year"
// @Param grade_level query int false "Grade level"
// @Param active query bool false "Active flag"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /class-groups [get]
func (h *CatalogHandler) ListClassGroups(c *gin.Context) {
	filter := models.ClassGroupFilter{
		AcademicYear: c.Query("academic_year"),
		GradeLevel:   parseQueryInt(c, "grade_level", 0),
		Active:       parseQueryBool(c, "active"),
		Page:         parseQueryInt(c, "page", 1),
		PageSize:     parseQueryInt(c, "limit", 20),
	}
	groups, pagination, err := h.catalog.ListClassGroups(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, groups, pagination, middleware.ExtractMeta(c))
}

// GetClassGroup godoc
// @Summary Get class group with live seat counts
// @Tags Catalog
// @Produce json
// @Param id path string true "Class group ID"
// @Success 200 {object} response.Envelope
// @Router /class-groups/{id} [get]
func (h *CatalogHandler) GetClassGroup(c *gin.Context) {
	group, err := h.catalog.GetClassGroup(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	ok(c, group)
}

// CreateTeacher godoc
// @Summary Register a teacher
// @Tags Catalog
// @Accept json
// @Produce json
// @Param payload body dto.CreateTeacherRequest true "Teacher payload"
// @Success 201 {object} response.Envelope
// @Router /teachers [post]
func (h *CatalogHandler) CreateTeacher(c *gin.Context) {
	var req dto.CreateTeacherRequest
	if !bindJSON(c, &req) {
		return
	}
	teacher, err := h.catalog.CreateTeacher(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, teacher)
}

// CreateCourse godoc
// @Summary Create course
// @Tags Catalog
// @Accept json
// @Produce json
// @Param payload body dto.CreateCourseRequest true "Course payload"
// @Success 201 {object} response.Envelope
// @Router /courses [post]
func (h *CatalogHandler) CreateCourse(c *gin.Context) {
	var req dto.CreateCourseRequest
	if !bindJSON(c, &req) {
		return
	}
	course, err := h.catalog.CreateCourse(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, course)
}

// ListCourses godoc
// @Summary List courses
// @Tags Catalog
// @Produce json
// @Param teacher_id query string false "Teacher"
// @Param class_group_id query string false "Class group"
// @Param active query bool false "Active flag"
// @Param q query string false "Search code or title"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /courses [get]
func (h *CatalogHandler) ListCourses(c *gin.Context) {
	filter := models.CourseFilter{
		TeacherID:    c.Query("teacher_id"),
		ClassGroupID: c.Query("class_group_id"),
		Active:       parseQueryBool(c, "active"),
		Search:       c.Query("q"),
		Page:         parseQueryInt(c, "page", 1),
		PageSize:     parseQueryInt(c, "limit", 20),
	}
	courses, pagination, err := h.catalog.ListCourses(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, courses, pagination, middleware.ExtractMeta(c))
}

// GetCourse godoc
// @Summary Get course with live seat counts and prerequisites
// @Tags Catalog
// @Produce json
// @Param id path string true "Course ID"
// @Success 200 {object} response.Envelope
// @Router /courses/{id} [get]
func (h *CatalogHandler) GetCourse(c *gin.Context) {
	course, err := h.catalog.GetCourse(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	ok(c, course)
}

// SetPrerequisites godoc
// @Summary Replace course prerequisites
// @Tags Catalog
// @Accept json
// @Produce json
// @Param id path string true "Course ID"
// @Param payload body dto.SetPrerequisitesRequest true "Prerequisite ids"
// @Success 200 {object} response.Envelope
// @Router /courses/{id}/prerequisites [put]
func (h *CatalogHandler) SetPrerequisites(c *gin.Context) {
	var req dto.SetPrerequisitesRequest
	if !bindJSON(c, &req) {
		return
	}
	course, err := h.catalog.SetPrerequisites(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	ok(c, course)
}

// Eligibility godoc
// @Summary Check whether a student may enroll in a course
// @Tags Catalog
// @Produce json
// @Param id path string true "Course ID"
// @Param studentId path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /courses/{id}/eligibility/{studentId} [get]
func (h *CatalogHandler) Eligibility(c *gin.Context) {
	result, err := h.catalog.Eligibility(c.Request.Context(), c.Param("id"), c.Param("studentId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	ok(c, result)
}
