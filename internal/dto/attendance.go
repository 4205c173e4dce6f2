package dto

import "github.com/noah-isme/sms-core-api/internal/models"

// MarkAttendanceRequest records one student's status for a date.
type MarkAttendanceRequest struct {
	StudentID   string  `json:"student_id" validate:"required"`
	CourseID    string  `json:"course_id" validate:"required"`
	Date        string  `json:"date" validate:"required,datetime=2006-01-02"`
	Status      string  `json:"status" validate:"required,attendance_status"`
	ArrivalTime *string `json:"arrival_time" validate:"omitempty,clock_time"`
	Remarks     string  `json:"remarks" validate:"max=500"`
}

// BulkAttendanceEntry is one row of a bulk mark, keyed by the school student_id.
type BulkAttendanceEntry struct {
	StudentID   string  `json:"student_id"`
	Status      string  `json:"status"`
	ArrivalTime *string `json:"arrival_time"`
	Remarks     string  `json:"remarks"`
}

// BulkMarkAttendanceRequest marks many students in one course on one date.
type BulkMarkAttendanceRequest struct {
	CourseID string                `json:"course_id" validate:"required"`
	Date     string                `json:"date" validate:"required,datetime=2006-01-02"`
	Entries  []BulkAttendanceEntry `json:"entries" validate:"required,min=1"`
}

// BulkAttendanceResult summarises a bulk mark.
type BulkAttendanceResult struct {
	Total         int           `json:"total"`
	Successful    int           `json:"successful"`
	Failed        int           `json:"failed"`
	FailedDetails []BulkFailure `json:"failed_details"`
}

// AttendanceQuery scopes summaries and reports. Dates are YYYY-MM-DD.
type AttendanceQuery struct {
	StudentID string `form:"student_id"`
	CourseID  string `form:"course_id"`
	From      string `form:"from" validate:"omitempty,datetime=2006-01-02"`
	To        string `form:"to" validate:"omitempty,datetime=2006-01-02"`
}

// AttendanceReport is a summary with a per-date breakdown.
type AttendanceReport struct {
	Summary        models.AttendanceSummary `json:"summary"`
	DailyBreakdown []models.AttendanceDay   `json:"daily_breakdown"`
}

// RecentAttendance summarises the trailing window, counting late as present.
type RecentAttendance struct {
	Days         int     `json:"days"`
	TotalClasses int     `json:"total_classes"`
	Present      int     `json:"present"`
	Percentage   float64 `json:"percentage"`
}

// StudentAttendanceSummary is the per-student attendance dashboard.
type StudentAttendanceSummary struct {
	StudentID           string                   `json:"student_id"`
	CourseID            string                   `json:"course_id,omitempty"`
	Overall             models.AttendanceSummary `json:"overall"`
	Recent              RecentAttendance         `json:"recent"`
	ConsecutiveAbsences int                      `json:"consecutive_absences"`
	AtRisk              bool                     `json:"at_risk"`
}

// LowAttendanceStudent is one row of the low-attendance report.
type LowAttendanceStudent struct {
	StudentID            string  `json:"student_id"`
	Name                 string  `json:"name"`
	ClassGroup           *string `json:"class_group"`
	AttendancePercentage float64 `json:"attendance_percentage"`
	TotalClasses         int     `json:"total_classes"`
}

// LowAttendanceQuery selects the report scope. Threshold 0 uses the configured default.
type LowAttendanceQuery struct {
	CourseID  string  `form:"course_id"`
	Threshold float64 `form:"threshold" validate:"gte=0,lte=100"`
	Format    string  `form:"format"`
}
