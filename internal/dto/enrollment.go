package dto

import "github.com/noah-isme/sms-core-api/internal/models"

// EnrollRequest enrolls one student into a course.
type EnrollRequest struct {
	StudentID string `json:"student_id" validate:"required"`
	CourseID  string `json:"course_id" validate:"required"`
}

// BulkEnrollRequest enrolls several students into one course, in order.
type BulkEnrollRequest struct {
	CourseID   string   `json:"course_id" validate:"required"`
	StudentIDs []string `json:"student_ids" validate:"required,min=1,dive,required"`
}

// BulkFailure reports one failed item of a bulk operation.
type BulkFailure struct {
	StudentID string `json:"student_id"`
	Reason    string `json:"reason"`
}

// BulkEnrollResult lists per-student outcomes of a bulk enroll.
type BulkEnrollResult struct {
	Succeeded []models.Enrollment `json:"succeeded"`
	Failed    []BulkFailure       `json:"failed"`
}

// WithdrawRequest carries the free-text withdrawal reason.
type WithdrawRequest struct {
	Reason string `json:"reason" validate:"max=500"`
}

// DropRequest carries the free-text drop reason.
type DropRequest struct {
	Reason string `json:"reason" validate:"max=500"`
}

// CompleteRequest closes an enrollment with its final marks.
type CompleteRequest struct {
	FinalScore *float64 `json:"final_score" validate:"omitempty,gte=0,lte=100"`
	FinalGrade string   `json:"final_grade" validate:"max=2"`
}
