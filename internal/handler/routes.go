package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sms-core-api/internal/models"
)

// Handlers bundles every HTTP handler mounted by Register.
type Handlers struct {
	Enrollment *EnrollmentHandler
	Attendance *AttendanceHandler
	Grade      *GradeHandler
	Catalog    *CatalogHandler
	Student    *StudentHandler
	Identity   *IdentityHandler
	Health     *HealthHandler
	Metrics    http.Handler
}

// Guards are the middleware applied to the API group. Require builds a
// permission check for one codename.
type Guards struct {
	Auth      gin.HandlerFunc
	RateLimit gin.HandlerFunc
	Require   func(codename string) gin.HandlerFunc
}

// Register mounts the ops probes on r and the API under prefix.
func Register(r *gin.Engine, prefix string, h Handlers, g Guards) {
	r.GET("/health", h.Health.Health)
	r.GET("/ready", h.Health.Ready)
	if h.Metrics != nil {
		r.GET("/metrics", gin.WrapH(h.Metrics))
	}

	api := r.Group(prefix)
	api.Use(g.Auth)
	if g.RateLimit != nil {
		api.Use(g.RateLimit)
	}
	need := g.Require

	api.GET("/me/access", h.Identity.Access)

	enrollments := api.Group("/enrollments")
	enrollments.POST("", need(models.PermEnrollmentsCreate), h.Enrollment.Create)
	enrollments.POST("/bulk", need(models.PermEnrollmentsCreate), h.Enrollment.Bulk)
	enrollments.GET("", need(models.PermEnrollmentsView), h.Enrollment.List)
	enrollments.GET("/statistics", need(models.PermEnrollmentsView), h.Enrollment.Statistics)
	enrollments.GET("/:id", need(models.PermEnrollmentsView), h.Enrollment.Get)
	enrollments.GET("/:id/progress", need(models.PermEnrollmentsView), h.Enrollment.Progress)
	enrollments.POST("/:id/withdraw", need(models.PermEnrollmentsEdit), h.Enrollment.Withdraw)
	enrollments.POST("/:id/complete", need(models.PermEnrollmentsEdit), h.Enrollment.Complete)
	enrollments.POST("/:id/drop", need(models.PermEnrollmentsEdit), h.Enrollment.Drop)
	enrollments.POST("/:id/activate", need(models.PermEnrollmentsEdit), h.Enrollment.Activate)

	attendance := api.Group("/attendance")
	attendance.POST("", need(models.PermAttendanceCreate), h.Attendance.Mark)
	attendance.POST("/bulk", need(models.PermAttendanceCreate), h.Attendance.Bulk)
	attendance.GET("/summary", need(models.PermAttendanceView), h.Attendance.Summary)
	attendance.GET("/report", need(models.PermAttendanceView), h.Attendance.Report)
	attendance.GET("/low", need(models.PermAttendanceView), h.Attendance.Low)
	attendance.GET("/low/export", need(models.PermReportsExport), h.Attendance.Export)

	api.POST("/grades", need(models.PermGradesCreate), h.Grade.Create)
	api.POST("/assignments", need(models.PermAssignmentsCreate), h.Grade.CreateAssignment)
	api.POST("/assignments/:id/submissions", need(models.PermAssignmentsSubmit), h.Grade.Submit)

	api.POST("/teachers", need(models.PermTeachersCreate), h.Catalog.CreateTeacher)

	students := api.Group("/students")
	students.POST("", need(models.PermStudentsCreate), h.Student.Create)
	students.GET("/:id", need(models.PermStudentsView), h.Student.Get)
	students.PATCH("/:id", need(models.PermStudentsEdit), h.Student.Update)
	students.GET("/:id/dashboard", need(models.PermStudentsView), h.Student.Dashboard)
	students.GET("/:id/attendance", need(models.PermAttendanceView), h.Attendance.Student)
	students.GET("/:id/grades/summary", need(models.PermGradesView), h.Grade.StudentSummary)
	students.PUT("/:id/class-group", need(models.PermStudentsEdit), h.Student.Transfer)

	courses := api.Group("/courses")
	courses.POST("", need(models.PermCoursesCreate), h.Catalog.CreateCourse)
	courses.GET("", need(models.PermCoursesView), h.Catalog.ListCourses)
	courses.GET("/:id", need(models.PermCoursesView), h.Catalog.GetCourse)
	courses.PUT("/:id/prerequisites", need(models.PermCoursesEdit), h.Catalog.SetPrerequisites)
	courses.GET("/:id/eligibility/:studentId", need(models.PermEnrollmentsView), h.Catalog.Eligibility)
	courses.GET("/:id/grades/statistics", need(models.PermGradesView), h.Grade.CourseStatistics)

	groups := api.Group("/class-groups")
	groups.POST("", need(models.PermClassGroupsCreate), h.Catalog.CreateClassGroup)
	groups.GET("", need(models.PermClassGroupsView), h.Catalog.ListClassGroups)
	groups.GET("/:id", need(models.PermClassGroupsView), h.Catalog.GetClassGroup)
}
