package models

import (
	"fmt"
	"time"
)

// EnrollmentStatus represents the lifecycle of an enrollment.
type EnrollmentStatus string

// Possible enrollment statuses.
const (
	EnrollmentStatusPending   EnrollmentStatus = "pending"
	EnrollmentStatusActive    EnrollmentStatus = "active"
	EnrollmentStatusCompleted EnrollmentStatus = "completed"
	EnrollmentStatusDropped   EnrollmentStatus = "dropped"
	EnrollmentStatusWithdrawn EnrollmentStatus = "withdrawn"
)

// enrollmentTransitions is the only source of legal status changes.
var enrollmentTransitions = map[EnrollmentStatus][]EnrollmentStatus{
	EnrollmentStatusPending:   {EnrollmentStatusActive},
	EnrollmentStatusActive:    {EnrollmentStatusCompleted, EnrollmentStatusDropped, EnrollmentStatusWithdrawn},
	EnrollmentStatusWithdrawn: {EnrollmentStatusActive},
}

// Valid returns true when the status is a supported value.
func (s EnrollmentStatus) Valid() bool {
	switch s {
	case EnrollmentStatusPending, EnrollmentStatusActive, EnrollmentStatusCompleted,
		EnrollmentStatusDropped, EnrollmentStatusWithdrawn:
		return true
	default:
		return false
	}
}

// CanTransition reports whether moving from s to next is allowed.
func (s EnrollmentStatus) CanTransition(next EnrollmentStatus) bool {
	for _, allowed := range enrollmentTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// TransitionError describes a rejected status change.
type TransitionError struct {
	From EnrollmentStatus
	To   EnrollmentStatus
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot change enrollment status from %s to %s", e.From, e.To)
}

// Enrollment records a student's seat in a course.
type Enrollment struct {
	ID             string           `db:"id" json:"id"`
	StudentID      string           `db:"student_id" json:"student_id"`
	CourseID       string           `db:"course_id" json:"course_id"`
	Status         EnrollmentStatus `db:"status" json:"status"`
	EnrollmentDate time.Time        `db:"enrollment_date" json:"enrollment_date"`
	CompletionDate *time.Time       `db:"completion_date" json:"completion_date,omitempty"`
	FinalScore     *float64         `db:"final_score" json:"final_score,omitempty"`
	FinalGrade     string           `db:"final_grade" json:"final_grade,omitempty"`
	EnrolledBy     *string          `db:"enrolled_by" json:"enrolled_by,omitempty"`
	Notes          string           `db:"notes" json:"notes,omitempty"`
	CreatedAt      time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time        `db:"updated_at" json:"updated_at"`
}

// Transition moves the enrollment to next if the state machine allows it.
func (e *Enrollment) Transition(next EnrollmentStatus) error {
	if !e.Status.CanTransition(next) {
		return &TransitionError{From: e.Status, To: next}
	}
	e.Status = next
	return nil
}

// AppendNote adds a line to the free-form notes.
func (e *Enrollment) AppendNote(note string) {
	if note == "" {
		return
	}
	if e.Notes == "" {
		e.Notes = note
		return
	}
	e.Notes = e.Notes + "\n" + note
}

// Snapshot returns the audited fields of the enrollment.
func (e *Enrollment) Snapshot() map[string]interface{} {
	snap := map[string]interface{}{
		"status":          string(e.Status),
		"enrollment_date": e.EnrollmentDate.Format("2006-01-02"),
	}
	if e.CompletionDate != nil {
		snap["completion_date"] = e.CompletionDate.Format("2006-01-02")
	}
	if e.FinalScore != nil {
		snap["final_score"] = *e.FinalScore
	}
	if e.FinalGrade != "" {
		snap["final_grade"] = e.FinalGrade
	}
	return snap
}

// EnrollmentDetail enriches Enrollment with student and course info.
type EnrollmentDetail struct {
	Enrollment
	StudentNumber string `db:"student_number" json:"student_number"`
	StudentName   string `db:"student_name" json:"student_name"`
	CourseCode    string `db:"course_code" json:"course_code"`
	CourseTitle   string `db:"course_title" json:"course_title"`
}

// EnrollmentFilter provides filters for listing enrollments.
type EnrollmentFilter struct {
	StudentID string
	CourseID  string
	Status    EnrollmentStatus
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

// EnrollmentStatistics aggregates enrollment counts by status.
type EnrollmentStatistics struct {
	Total          int     `json:"total"`
	Pending        int     `json:"pending"`
	Active         int     `json:"active"`
	Completed      int     `json:"completed"`
	Withdrawn      int     `json:"withdrawn"`
	Dropped        int     `json:"dropped"`
	CompletionRate float64 `json:"completion_rate"`
}

// NewEnrollmentStatistics builds statistics from per-status counts.
// CompletionRate is a percentage rounded to two decimals and 0 when there are no rows.
func NewEnrollmentStatistics(counts map[EnrollmentStatus]int) EnrollmentStatistics {
	stats := EnrollmentStatistics{
		Pending:   counts[EnrollmentStatusPending],
		Active:    counts[EnrollmentStatusActive],
		Completed: counts[EnrollmentStatusCompleted],
		Withdrawn: counts[EnrollmentStatusWithdrawn],
		Dropped:   counts[EnrollmentStatusDropped],
	}
	for _, n := range counts {
		stats.Total += n
	}
	if stats.Total > 0 {
		stats.CompletionRate = Round2(float64(stats.Completed) / float64(stats.Total) * 100)
	}
	return stats
}
