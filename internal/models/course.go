package models

import "time"

// Course is an enrollable subject offering with bounded capacity.
type Course struct {
	ID           string     `db:"id" json:"id"`
	Code         string     `db:"code" json:"code"`
	Title        string     `db:"title" json:"title"`
	Description  string     `db:"description" json:"description"`
	Credits      int        `db:"credits" json:"credits"`
	TeacherID    *string    `db:"teacher_id" json:"teacher_id,omitempty"`
	ClassGroupID *string    `db:"class_group_id" json:"class_group_id,omitempty"`
	MaxStudents  int        `db:"max_students" json:"max_students"`
	PassingScore float64    `db:"passing_score" json:"passing_score"`
	StartDate    *time.Time `db:"start_date" json:"start_date,omitempty"`
	EndDate      *time.Time `db:"end_date" json:"end_date,omitempty"`
	Active       bool       `db:"is_active" json:"is_active"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updated_at"`
}

// CourseDetail adds live capacity and prerequisite ids to a course.
type CourseDetail struct {
	Course
	EnrolledCount   int      `db:"enrolled_count" json:"enrolled_count"`
	AvailableSeats  int      `db:"-" json:"available_seats"`
	IsFull          bool     `db:"-" json:"is_full"`
	PrerequisiteIDs []string `db:"-" json:"prerequisite_ids"`
}

// Fill computes the derived capacity fields from EnrolledCount.
func (d *CourseDetail) Fill() {
	d.AvailableSeats = d.MaxStudents - d.EnrolledCount
	if d.AvailableSeats < 0 {
		d.AvailableSeats = 0
	}
	d.IsFull = d.EnrolledCount >= d.MaxStudents
	if d.PrerequisiteIDs == nil {
		d.PrerequisiteIDs = []string{}
	}
}

// CourseFilter narrows course listings.
type CourseFilter struct {
	TeacherID    string
	ClassGroupID string
	Active       *bool
	Search       string
	Page         int
	PageSize     int
}
