package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sms-core-api/internal/models"
)

const enrollmentColumns = `id, student_id, course_id, status, enrollment_date, completion_date, final_score, final_grade, enrolled_by, notes, created_at, updated_at`

// EnrollmentRepository handles persistence of enrollments.
type EnrollmentRepository struct {
	db *sqlx.DB
}

// NewEnrollmentRepository constructs the repository.
func NewEnrollmentRepository(db *sqlx.DB) *EnrollmentRepository {
	return &EnrollmentRepository{db: db}
}

// List returns enrollments filtered by the provided criteria.
func (r *EnrollmentRepository) List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, int, error) {
	base := `FROM enrollments e
JOIN students s ON s.id = e.student_id
JOIN courses c ON c.id = e.course_id`
	var conditions []string
	var args []interface{}

	if filter.StudentID != "" {
		conditions = append(conditions, fmt.Sprintf("e.student_id = $%d", len(args)+1))
		args = append(args, filter.StudentID)
	}
	if filter.CourseID != "" {
		conditions = append(conditions, fmt.Sprintf("e.course_id = $%d", len(args)+1))
		args = append(args, filter.CourseID)
	}
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("e.status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}

	clause := ""
	if len(conditions) > 0 {
		clause = " WHERE " + strings.Join(conditions, " AND ")
	}

	allowedSorts := map[string]string{
		"enrollment_date": "e.enrollment_date",
		"student_name":    "s.full_name",
		"course_code":     "c.code",
		"status":          "e.status",
	}
	orderBy := allowedSorts[filter.SortBy]
	if orderBy == "" {
		orderBy = "e.enrollment_date"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "DESC"
	}
	page, size := normalisePage(filter.Page, filter.PageSize)

	query := fmt.Sprintf(`SELECT e.id, e.student_id, e.course_id, e.status, e.enrollment_date, e.completion_date, e.final_score,
        e.final_grade, e.enrolled_by, e.notes, e.created_at, e.updated_at,
        s.student_id AS student_number, s.full_name AS student_name, c.code AS course_code, c.title AS course_title
        %s ORDER BY %s %s, e.id LIMIT %d OFFSET %d`, base+clause, orderBy, order, size, (page-1)*size)

	var enrollments []models.EnrollmentDetail
	if err := conn(ctx, r.db).SelectContext(ctx, &enrollments, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list enrollments: %w", err)
	}

	var total int
	if err := conn(ctx, r.db).GetContext(ctx, &total, "SELECT COUNT(*) "+base+clause, args...); err != nil {
		return nil, 0, fmt.Errorf("count enrollments: %w", err)
	}
	return enrollments, total, nil
}

// FindByID returns an enrollment by its ID.
func (r *EnrollmentRepository) FindByID(ctx context.Context, id string) (*models.Enrollment, error) {
	return r.find(ctx, `SELECT `+enrollmentColumns+` FROM enrollments WHERE id = $1`, id)
}

// FindByStudentAndCourse returns the single enrollment row of a (student, course) pair.
func (r *EnrollmentRepository) FindByStudentAndCourse(ctx context.Context, studentID, courseID string) (*models.Enrollment, error) {
	return r.find(ctx, `SELECT `+enrollmentColumns+` FROM enrollments WHERE student_id = $1 AND course_id = $2`, studentID, courseID)
}

func (r *EnrollmentRepository) find(ctx context.Context, query string, args ...interface{}) (*models.Enrollment, error) {
	var enrollment models.Enrollment
	if err := conn(ctx, r.db).GetContext(ctx, &enrollment, query, args...); err != nil {
		if isNoRows(err) {
			return nil, sql.ErrNoRows
		}
		return nil, fmt.Errorf("find enrollment: %w", err)
	}
	return &enrollment, nil
}

// FindDetailByID returns an enrollment with student and course info.
func (r *EnrollmentRepository) FindDetailByID(ctx context.Context, id string) (*models.EnrollmentDetail, error) {
	const query = `SELECT e.id, e.student_id, e.course_id, e.status, e.enrollment_date, e.completion_date, e.final_score,
        e.final_grade, e.enrolled_by, e.notes, e.created_at, e.updated_at,
        s.student_id AS student_number, s.full_name AS student_name, c.code AS course_code, c.title AS course_title
        FROM enrollments e
        JOIN students s ON s.id = e.student_id
        JOIN courses c ON c.id = e.course_id
        WHERE e.id = $1`
	var detail models.EnrollmentDetail
	if err := conn(ctx, r.db).GetContext(ctx, &detail, query, id); err != nil {
		if isNoRows(err) {
			return nil, sql.ErrNoRows
		}
		return nil, fmt.Errorf("find enrollment detail: %w", err)
	}
	return &detail, nil
}

// ExistsActive checks if an active enrollment exists for the pair.
func (r *EnrollmentRepository) ExistsActive(ctx context.Context, studentID, courseID string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM enrollments WHERE student_id = $1 AND course_id = $2 AND status = $3)`
	var exists bool
	if err := conn(ctx, r.db).GetContext(ctx, &exists, query, studentID, courseID, models.EnrollmentStatusActive); err != nil {
		return false, fmt.Errorf("check active enrollment: %w", err)
	}
	return exists, nil
}

// Create persists a new enrollment record. A second row for the pair yields ErrDuplicate.
func (r *EnrollmentRepository) Create(ctx context.Context, enrollment *models.Enrollment) error {
	if enrollment.ID == "" {
		enrollment.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if enrollment.EnrollmentDate.IsZero() {
		enrollment.EnrollmentDate = now
	}
	if enrollment.Status == "" {
		enrollment.Status = models.EnrollmentStatusActive
	}
	enrollment.CreatedAt, enrollment.UpdatedAt = now, now
	const query = `INSERT INTO enrollments (` + enrollmentColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`
	if _, err := conn(ctx, r.db).ExecContext(ctx, query, enrollment.ID, enrollment.StudentID, enrollment.CourseID, enrollment.Status,
		enrollment.EnrollmentDate, enrollment.CompletionDate, enrollment.FinalScore, enrollment.FinalGrade, enrollment.EnrolledBy,
		enrollment.Notes, enrollment.CreatedAt, enrollment.UpdatedAt); err != nil {
		return translate(err, "create enrollment")
	}
	return nil
}

// Save writes the mutable fields of an enrollment, provided the stored status still
// equals expected. A concurrent status change yields ErrStaleStatus.
func (r *EnrollmentRepository) Save(ctx context.Context, enrollment *models.Enrollment, expected models.EnrollmentStatus) error {
	enrollment.UpdatedAt = time.Now().UTC()
	const query = `UPDATE enrollments SET status = $3, enrollment_date = $4, completion_date = $5, final_score = $6,
        final_grade = $7, notes = $8, updated_at = $9
        WHERE id = $1 AND status = $2`
	res, err := conn(ctx, r.db).ExecContext(ctx, query, enrollment.ID, expected, enrollment.Status, enrollment.EnrollmentDate,
		enrollment.CompletionDate, enrollment.FinalScore, enrollment.FinalGrade, enrollment.Notes, enrollment.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update enrollment: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update enrollment rows: %w", err)
	}
	if n == 0 {
		return ErrStaleStatus
	}
	return nil
}

// CountByStatus aggregates enrollments per status, optionally for one course.
func (r *EnrollmentRepository) CountByStatus(ctx context.Context, courseID string) (map[models.EnrollmentStatus]int, error) {
	query := `SELECT status, COUNT(*) AS count FROM enrollments`
	var args []interface{}
	if courseID != "" {
		query += ` WHERE course_id = $1`
		args = append(args, courseID)
	}
	query += ` GROUP BY status`

	var rows []struct {
		Status models.EnrollmentStatus `db:"status"`
		Count  int                     `db:"count"`
	}
	if err := conn(ctx, r.db).SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("count enrollments by status: %w", err)
	}
	counts := make(map[models.EnrollmentStatus]int, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}
