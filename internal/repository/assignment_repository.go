package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sms-core-api/internal/models"
)

// AssignmentRepository persists coursework and submissions for progress tracking.
type AssignmentRepository struct {
	db *sqlx.DB
}

// NewAssignmentRepository constructs the repository.
func NewAssignmentRepository(db *sqlx.DB) *AssignmentRepository {
	return &AssignmentRepository{db: db}
}

// Create inserts an assignment.
func (r *AssignmentRepository) Create(ctx context.Context, assignment *models.Assignment) error {
	if assignment.ID == "" {
		assignment.ID = uuid.NewString()
	}
	const query = `INSERT INTO assignments (id, course_id, title, due_date, max_score, created_at)
        VALUES ($1, $2, $3, $4, $5, $6)`
	if _, err := conn(ctx, r.db).ExecContext(ctx, query, assignment.ID, assignment.CourseID, assignment.Title,
		assignment.DueDate, assignment.MaxScore, assignment.CreatedAt); err != nil {
		return translate(err, "create assignment")
	}
	return nil
}

// FindByID returns an assignment by primary key.
func (r *AssignmentRepository) FindByID(ctx context.Context, id string) (*models.Assignment, error) {
	const query = `SELECT id, course_id, title, due_date, max_score, created_at FROM assignments WHERE id = $1`
	var assignment models.Assignment
	if err := conn(ctx, r.db).GetContext(ctx, &assignment, query, id); err != nil {
		if isNoRows(err) {
			return nil, sql.ErrNoRows
		}
		return nil, fmt.Errorf("find assignment: %w", err)
	}
	return &assignment, nil
}

// UpsertSubmission records a hand-in; a resubmission replaces the score and time.
func (r *AssignmentRepository) UpsertSubmission(ctx context.Context, submission *models.Submission) (*models.Submission, error) {
	if submission.ID == "" {
		submission.ID = uuid.NewString()
	}
	const query = `INSERT INTO submissions (id, assignment_id, student_id, score, submitted_at)
        VALUES ($1, $2, $3, $4, $5)
        ON CONFLICT (assignment_id, student_id) DO UPDATE SET
            score = EXCLUDED.score,
            submitted_at = EXCLUDED.submitted_at
        RETURNING id, assignment_id, student_id, score, submitted_at`
	var saved models.Submission
	if err := conn(ctx, r.db).GetContext(ctx, &saved, query, submission.ID, submission.AssignmentID, submission.StudentID,
		submission.Score, submission.SubmittedAt); err != nil {
		return nil, fmt.Errorf("upsert submission: %w", err)
	}
	return &saved, nil
}

// CountByCourse returns the number of assignments in a course.
func (r *AssignmentRepository) CountByCourse(ctx context.Context, courseID string) (int, error) {
	const query = `SELECT COUNT(*) FROM assignments WHERE course_id = $1`
	var count int
	if err := conn(ctx, r.db).GetContext(ctx, &count, query, courseID); err != nil {
		return 0, fmt.Errorf("count assignments: %w", err)
	}
	return count, nil
}

// CountSubmitted returns how many distinct assignments of the course the student submitted.
func (r *AssignmentRepository) CountSubmitted(ctx context.Context, courseID, studentID string) (int, error) {
	const query = `SELECT COUNT(DISTINCT s.assignment_id) FROM submissions s
        JOIN assignments a ON a.id = s.assignment_id
        WHERE a.course_id = $1 AND s.student_id = $2`
	var count int
	if err := conn(ctx, r.db).GetContext(ctx, &count, query, courseID, studentID); err != nil {
		return 0, fmt.Errorf("count submissions: %w", err)
	}
	return count, nil
}

// Upcoming lists assignments due from since onwards in the student's active courses, soonest first.
func (r *AssignmentRepository) Upcoming(ctx context.Context, studentID string, since time.Time, limit int) ([]models.UpcomingAssignment, error) {
	const query = `SELECT a.id, a.title, a.course_id, c.title AS course_title, a.due_date
        FROM assignments a
        JOIN courses c ON c.id = a.course_id
        JOIN enrollments e ON e.course_id = a.course_id AND e.student_id = $1 AND e.status = 'active'
        WHERE a.due_date >= $2
        ORDER BY a.due_date, a.title
        LIMIT $3`
	items := []models.UpcomingAssignment{}
	if err := conn(ctx, r.db).SelectContext(ctx, &items, query, studentID, since, limit); err != nil {
		return nil, fmt.Errorf("list upcoming assignments: %w", err)
	}
	return items, nil
}
