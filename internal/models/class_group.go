package models

import (
	"fmt"
	"time"
)

// ClassGroup is a grade-level section students belong to, e.g. "Grade 10 - Section A".
type ClassGroup struct {
	ID             string    `db:"id" json:"id"`
	GradeLevel     int       `db:"grade_level" json:"grade_level"`
	Section        string    `db:"section" json:"section"`
	AcademicYear   string    `db:"academic_year" json:"academic_year"`
	MaxStudents    int       `db:"max_students" json:"max_students"`
	ClassTeacherID *string   `db:"class_teacher_id" json:"class_teacher_id,omitempty"`
	RoomNumber     string    `db:"room_number" json:"room_number"`
	Active         bool      `db:"is_active" json:"is_active"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

// FullName renders the display name of the group.
func (g ClassGroup) FullName() string {
	return ClassGroupName(g.GradeLevel, g.Section)
}

// ClassGroupName formats a grade level and section the way reports display them.
func ClassGroupName(gradeLevel int, section string) string {
	return fmt.Sprintf("Grade %d - Section %s", gradeLevel, section)
}

// ClassGroupDetail adds live occupancy to a class group.
type ClassGroupDetail struct {
	ClassGroup
	FullName             string `db:"-" json:"full_name"`
	CurrentStudentsCount int    `db:"current_students_count" json:"current_students_count"`
	AvailableSeats       int    `db:"-" json:"available_seats"`
	IsFull               bool   `db:"-" json:"is_full"`
}

// Fill computes the derived occupancy fields from CurrentStudentsCount.
func (d *ClassGroupDetail) Fill() {
	d.FullName = d.ClassGroup.FullName()
	d.AvailableSeats = d.MaxStudents - d.CurrentStudentsCount
	if d.AvailableSeats < 0 {
		d.AvailableSeats = 0
	}
	d.IsFull = d.CurrentStudentsCount >= d.MaxStudents
}

// ClassGroupFilter narrows class group listings.
type ClassGroupFilter struct {
	AcademicYear string
	GradeLevel   int
	Active       *bool
	Page         int
	PageSize     int
}
