package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sms-core-api/internal/models"
)

// GradeRepository persists grades.
type GradeRepository struct {
	db *sqlx.DB
}

// NewGradeRepository constructs the repository.
func NewGradeRepository(db *sqlx.DB) *GradeRepository {
	return &GradeRepository{db: db}
}

// Create inserts a grade.
func (r *GradeRepository) Create(ctx context.Context, grade *models.Grade) error {
	if grade.ID == "" {
		grade.ID = uuid.NewString()
	}
	grade.CreatedAt = time.Now().UTC()
	const query = `INSERT INTO grades (id, student_id, course_id, score, max_score, grade, date, remarks, recorded_by, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	if _, err := conn(ctx, r.db).ExecContext(ctx, query, grade.ID, grade.StudentID, grade.CourseID, grade.Score, grade.MaxScore,
		grade.Letter, grade.Date, grade.Remarks, grade.RecordedBy, grade.CreatedAt); err != nil {
		return fmt.Errorf("create grade: %w", err)
	}
	return nil
}

// ListForStudent returns a student's grades with each course's passing score.
func (r *GradeRepository) ListForStudent(ctx context.Context, studentID, courseID string) ([]models.ScoredGrade, error) {
	query := `SELECT g.id, g.student_id, g.course_id, g.score, g.max_score, g.grade, g.date, g.remarks, g.recorded_by, g.created_at,
        c.passing_score
        FROM grades g
        JOIN courses c ON c.id = g.course_id
        WHERE g.student_id = $1`
	args := []interface{}{studentID}
	if courseID != "" {
		query += ` AND g.course_id = $2`
		args = append(args, courseID)
	}
	query += ` ORDER BY g.date DESC, g.created_at DESC`

	var grades []models.ScoredGrade
	if err := conn(ctx, r.db).SelectContext(ctx, &grades, query, args...); err != nil {
		return nil, fmt.Errorf("list student grades: %w", err)
	}
	return grades, nil
}

// CourseStatistics aggregates all grades of a course against its passing score.
func (r *GradeRepository) CourseStatistics(ctx context.Context, courseID string) (*models.CourseGradeStatistics, error) {
	const query = `SELECT COUNT(g.id) AS total,
        COALESCE(AVG(g.score), 0) AS average,
        COALESCE(MAX(g.score), 0) AS highest,
        COALESCE(MIN(g.score), 0) AS lowest,
        COUNT(g.id) FILTER (WHERE g.score >= c.passing_score) AS passing
        FROM courses c
        LEFT JOIN grades g ON g.course_id = c.id
        WHERE c.id = $1`
	var stats models.CourseGradeStatistics
	if err := conn(ctx, r.db).GetContext(ctx, &stats, query, courseID); err != nil {
		return nil, fmt.Errorf("course grade statistics: %w", err)
	}
	stats.Average = models.Round2(stats.Average)
	stats.PassRate = models.Percentage(stats.Passing, stats.Total)
	return &stats, nil
}
