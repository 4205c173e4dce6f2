package dto

// ProgressReport is the weighted progress of a student in a course.
type ProgressReport struct {
	StudentID            string  `json:"student_id"`
	CourseID             string  `json:"course_id"`
	TotalAssignments     int     `json:"total_assignments"`
	SubmittedAssignments int     `json:"submitted_assignments"`
	AssignmentProgress   float64 `json:"assignment_progress"`
	AttendanceRate       float64 `json:"attendance_rate"`
	Progress             float64 `json:"progress"`
}

// AddGradeRequest records a grade. MaxScore defaults to 100 and Date to today.
type AddGradeRequest struct {
	StudentID string   `json:"student_id" validate:"required"`
	CourseID  string   `json:"course_id" validate:"required"`
	Score     *float64 `json:"score" validate:"required,gte=0"`
	MaxScore  *float64 `json:"max_score" validate:"omitempty,gt=0"`
	Grade     string   `json:"grade" validate:"max=2"`
	Date      string   `json:"date" validate:"omitempty,datetime=2006-01-02"`
	Remarks   string   `json:"remarks" validate:"max=500"`
}

// CreateAssignmentRequest adds coursework to a course. MaxScore defaults to 100.
type CreateAssignmentRequest struct {
	CourseID string   `json:"course_id" validate:"required"`
	Title    string   `json:"title" validate:"required,max=255"`
	DueDate  string   `json:"due_date" validate:"omitempty,datetime=2006-01-02"`
	MaxScore *float64 `json:"max_score" validate:"omitempty,gt=0"`
}

// SubmitAssignmentRequest records a student's hand-in. Resubmitting replaces the score.
type SubmitAssignmentRequest struct {
	StudentID string   `json:"student_id" validate:"required"`
	Score     *float64 `json:"score" validate:"omitempty,gte=0"`
}
