package models

import "time"

// Assignment is coursework counted by the progress aggregator.
type Assignment struct {
	ID        string     `db:"id" json:"id"`
	CourseID  string     `db:"course_id" json:"course_id"`
	Title     string     `db:"title" json:"title"`
	DueDate   *time.Time `db:"due_date" json:"due_date,omitempty"`
	MaxScore  float64    `db:"max_score" json:"max_score"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
}

// Submission is a student's hand-in for an assignment, unique per pair.
type Submission struct {
	ID           string    `db:"id" json:"id"`
	AssignmentID string    `db:"assignment_id" json:"assignment_id"`
	StudentID    string    `db:"student_id" json:"student_id"`
	SubmittedAt  time.Time `db:"submitted_at" json:"submitted_at"`
	Score        *float64  `db:"score" json:"score,omitempty"`
}

// UpcomingAssignment is an assignment still open in one of a student's active courses.
type UpcomingAssignment struct {
	ID          string    `db:"id" json:"id"`
	Title       string    `db:"title" json:"title"`
	CourseID    string    `db:"course_id" json:"course_id"`
	CourseTitle string    `db:"course_title" json:"course_title"`
	DueDate     time.Time `db:"due_date" json:"due_date"`
}
