package dto

import "github.com/noah-isme/sms-core-api/internal/models"

// CreateStudentRequest registers a student, optionally seated in a class group.
type CreateStudentRequest struct {
	StudentID     string  `json:"student_id" validate:"required,max=50"`
	FullName      string  `json:"full_name" validate:"required,max=255"`
	UserID        *string `json:"user_id" validate:"omitempty,uuid"`
	ClassGroupID  *string `json:"class_group_id" validate:"omitempty,uuid"`
	AdmissionDate string  `json:"admission_date" validate:"omitempty,datetime=2006-01-02"`
	Remarks       string  `json:"remarks" validate:"max=1000"`
}

// UpdateStudentRequest changes the provided fields only.
type UpdateStudentRequest struct {
	FullName *string `json:"full_name" validate:"omitempty,min=1,max=255"`
	Status   *string `json:"status" validate:"omitempty,oneof=active inactive graduated suspended transferred"`
	Remarks  *string `json:"remarks" validate:"omitempty,max=1000"`
}

// DashboardCourse is one active course on the student dashboard.
type DashboardCourse struct {
	EnrollmentID string  `json:"enrollment_id"`
	CourseID     string  `json:"course_id"`
	Code         string  `json:"code"`
	Title        string  `json:"title"`
	Progress     float64 `json:"progress"`
}

// StudentDashboard gathers a student's courses, attendance, grades and open coursework.
type StudentDashboard struct {
	Student             models.Student              `json:"student"`
	ClassGroup          *string                     `json:"class_group"`
	Courses             []DashboardCourse           `json:"courses"`
	Attendance          StudentAttendanceSummary    `json:"attendance"`
	Grades              models.GradeSummary         `json:"grades"`
	UpcomingAssignments []models.UpcomingAssignment `json:"upcoming_assignments"`
}

// CreateTeacherRequest registers a teacher who can own courses.
type CreateTeacherRequest struct {
	EmployeeID string  `json:"employee_id" validate:"required,max=50"`
	FullName   string  `json:"full_name" validate:"required,max=255"`
	UserID     *string `json:"user_id" validate:"omitempty,uuid"`
}
