package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sms-core-api/internal/models"
)

const studentColumns = `id, user_id, student_id, full_name, class_group_id, status, admission_date, remarks, created_at, updated_at`

// StudentRepository persists students.
type StudentRepository struct {
	db *sqlx.DB
}

// NewStudentRepository constructs the repository.
func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

// FindByID returns a student by primary key.
func (r *StudentRepository) FindByID(ctx context.Context, id string) (*models.Student, error) {
	return r.find(ctx, `SELECT `+studentColumns+` FROM students WHERE id = $1`, id)
}

// FindByStudentNumber returns a student by the school-issued student_id.
func (r *StudentRepository) FindByStudentNumber(ctx context.Context, number string) (*models.Student, error) {
	return r.find(ctx, `SELECT `+studentColumns+` FROM students WHERE student_id = $1`, number)
}

func (r *StudentRepository) find(ctx context.Context, query, arg string) (*models.Student, error) {
	var student models.Student
	if err := conn(ctx, r.db).GetContext(ctx, &student, query, arg); err != nil {
		if isNoRows(err) {
			return nil, sql.ErrNoRows
		}
		return nil, fmt.Errorf("find student: %w", err)
	}
	return &student, nil
}

// Create inserts a student. A taken student_id yields ErrDuplicate.
func (r *StudentRepository) Create(ctx context.Context, student *models.Student) error {
	if student.ID == "" {
		student.ID = uuid.NewString()
	}
	const query = `INSERT INTO students (` + studentColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	if _, err := conn(ctx, r.db).ExecContext(ctx, query, student.ID, student.UserID, student.StudentNumber, student.FullName,
		student.ClassGroupID, student.Status, student.AdmissionDate, student.Remarks, student.CreatedAt, student.UpdatedAt); err != nil {
		return translate(err, "create student")
	}
	return nil
}

// Update writes the mutable fields of a student.
func (r *StudentRepository) Update(ctx context.Context, student *models.Student) error {
	const query = `UPDATE students SET full_name = $2, class_group_id = $3, status = $4, remarks = $5, updated_at = $6 WHERE id = $1`
	res, err := conn(ctx, r.db).ExecContext(ctx, query, student.ID, student.FullName, student.ClassGroupID,
		student.Status, student.Remarks, student.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update student: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
