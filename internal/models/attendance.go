package models

import "time"

// AttendanceStatus represents the status for attendance records.
type AttendanceStatus string

const (
	AttendanceStatusPresent AttendanceStatus = "present"
	AttendanceStatusAbsent  AttendanceStatus = "absent"
	AttendanceStatusLate    AttendanceStatus = "late"
	AttendanceStatusExcused AttendanceStatus = "excused"
	AttendanceStatusOnLeave AttendanceStatus = "on_leave"
)

// Valid returns true when the status is a supported value.
func (s AttendanceStatus) Valid() bool {
	switch s {
	case AttendanceStatusPresent, AttendanceStatusAbsent, AttendanceStatusLate,
		AttendanceStatusExcused, AttendanceStatusOnLeave:
		return true
	default:
		return false
	}
}

// EffectivelyPresent reports whether the status counts toward attendance percentage.
// on_leave does not.
func (s AttendanceStatus) EffectivelyPresent() bool {
	return s == AttendanceStatusPresent || s == AttendanceStatusLate || s == AttendanceStatusExcused
}

// Attendance is one student's status in one course on one date.
type Attendance struct {
	ID          string           `db:"id" json:"id"`
	StudentID   string           `db:"student_id" json:"student_id"`
	CourseID    string           `db:"course_id" json:"course_id"`
	Date        time.Time        `db:"date" json:"date"`
	Status      AttendanceStatus `db:"status" json:"status"`
	ArrivalTime *string          `db:"arrival_time" json:"arrival_time,omitempty"`
	Remarks     string           `db:"remarks" json:"remarks,omitempty"`
	MarkedBy    *string          `db:"marked_by" json:"marked_by,omitempty"`
	IsBulkEntry bool             `db:"is_bulk_entry" json:"is_bulk_entry"`
	CreatedAt   time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time        `db:"updated_at" json:"updated_at"`
}

// AttendanceFilter scopes attendance aggregation. Empty fields are unbounded.
type AttendanceFilter struct {
	StudentID string
	CourseID  string
	From      *time.Time
	To        *time.Time
}

// AttendanceStatusCount is one row of a GROUP BY status aggregate.
type AttendanceStatusCount struct {
	Status AttendanceStatus `db:"status"`
	Count  int              `db:"count"`
}

// AttendanceSummary aggregates attendance rows.
type AttendanceSummary struct {
	TotalClasses int     `json:"total_classes"`
	Present      int     `json:"present"`
	Absent       int     `json:"absent"`
	Late         int     `json:"late"`
	Excused      int     `json:"excused"`
	OnLeave      int     `json:"on_leave"`
	Percentage   float64 `json:"percentage"`
}

// SummarizeAttendance folds status counts into a summary. Percentage is
// (present+late+excused)/total*100 rounded to two decimals, 0 when empty.
func SummarizeAttendance(counts []AttendanceStatusCount) AttendanceSummary {
	var s AttendanceSummary
	effective := 0
	for _, c := range counts {
		s.TotalClasses += c.Count
		switch c.Status {
		case AttendanceStatusPresent:
			s.Present += c.Count
		case AttendanceStatusAbsent:
			s.Absent += c.Count
		case AttendanceStatusLate:
			s.Late += c.Count
		case AttendanceStatusExcused:
			s.Excused += c.Count
		case AttendanceStatusOnLeave:
			s.OnLeave += c.Count
		}
		if c.Status.EffectivelyPresent() {
			effective += c.Count
		}
	}
	s.Percentage = Percentage(effective, s.TotalClasses)
	return s
}

// Percentage returns part/total*100 rounded to two decimals, 0 when total is 0.
func Percentage(part, total int) float64 {
	if total <= 0 {
		return 0
	}
	return Round2(float64(part) / float64(total) * 100)
}

// AttendanceDay is the per-date breakdown used by reports.
type AttendanceDay struct {
	Date    time.Time `db:"date" json:"date"`
	Total   int       `db:"total" json:"total"`
	Present int       `db:"present" json:"present"`
	Absent  int       `db:"absent" json:"absent"`
	Late    int       `db:"late" json:"late"`
}

// StudentAttendanceTally counts a student's rows for low-attendance detection.
type StudentAttendanceTally struct {
	StudentRef        string  `db:"student_ref"`
	StudentNumber     string  `db:"student_number"`
	FullName          string  `db:"full_name"`
	GradeLevel        *int    `db:"grade_level"`
	Section           *string `db:"section"`
	Total             int     `db:"total"`
	EffectivePresence int     `db:"effective_present"`
}
