package dto

// CreateClassGroupRequest defines a new class group. MaxStudents defaults to 40.
type CreateClassGroupRequest struct {
	GradeLevel     int     `json:"grade_level" validate:"required,min=1,max=12"`
	Section        string  `json:"section" validate:"required,max=10"`
	AcademicYear   string  `json:"academic_year" validate:"required,max=20"`
	MaxStudents    int     `json:"max_students" validate:"omitempty,min=1,max=100"`
	ClassTeacherID *string `json:"class_teacher_id" validate:"omitempty,uuid"`
	RoomNumber     string  `json:"room_number" validate:"max=20"`
}

// CreateCourseRequest defines a new course. Unset numeric fields take defaults.
type CreateCourseRequest struct {
	Code         string   `json:"code" validate:"required,max=20"`
	Title        string   `json:"title" validate:"required,max=200"`
	Description  string   `json:"description"`
	Credits      int      `json:"credits" validate:"omitempty,min=1,max=10"`
	TeacherID    *string  `json:"teacher_id" validate:"omitempty,uuid"`
	ClassGroupID *string  `json:"class_group_id" validate:"omitempty,uuid"`
	MaxStudents  int      `json:"max_students" validate:"omitempty,min=1,max=100"`
	PassingScore *float64 `json:"passing_score" validate:"omitempty,gte=0,lte=100"`
	StartDate    string   `json:"start_date" validate:"omitempty,datetime=2006-01-02"`
	EndDate      string   `json:"end_date" validate:"omitempty,datetime=2006-01-02"`
}

// SetPrerequisitesRequest replaces the prerequisite set of a course.
type SetPrerequisitesRequest struct {
	PrerequisiteIDs []string `json:"prerequisite_ids" validate:"dive,required"`
}

// AssignClassGroupRequest moves a student into a class group. Reason is kept in the student's remarks.
type AssignClassGroupRequest struct {
	ClassGroupID string `json:"class_group_id" validate:"required"`
	Reason       string `json:"reason" validate:"max=500"`
}

// EligibilityResult explains whether a student may enroll in a course.
type EligibilityResult struct {
	Eligible bool   `json:"eligible"`
	Reason   string `json:"reason,omitempty"`
}
