package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/sms-core-api/internal/models"
)

const courseColumns = `id, code, title, description, credits, teacher_id, class_group_id, max_students, passing_score, start_date, end_date, is_active, created_at, updated_at`

// CourseRepository persists courses and their prerequisite edges.
type CourseRepository struct {
	db *sqlx.DB
}

// NewCourseRepository constructs the repository.
func NewCourseRepository(db *sqlx.DB) *CourseRepository {
	return &CourseRepository{db: db}
}

// Create inserts a course. A repeated code yields ErrDuplicate.
func (r *CourseRepository) Create(ctx context.Context, course *models.Course) error {
	if course.ID == "" {
		course.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	course.CreatedAt, course.UpdatedAt = now, now
	const query = `INSERT INTO courses (` + courseColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`
	if _, err := conn(ctx, r.db).ExecContext(ctx, query, course.ID, course.Code, course.Title, course.Description, course.Credits,
		course.TeacherID, course.ClassGroupID, course.MaxStudents, course.PassingScore, course.StartDate, course.EndDate,
		course.Active, course.CreatedAt, course.UpdatedAt); err != nil {
		return translate(err, "create course")
	}
	return nil
}

// FindByID returns a course by ID.
func (r *CourseRepository) FindByID(ctx context.Context, id string) (*models.Course, error) {
	return r.find(ctx, `SELECT `+courseColumns+` FROM courses WHERE id = $1`, id)
}

// LockByID returns a course and holds a row lock until the surrounding transaction
// ends, serialising capacity checks of concurrent enrollments.
func (r *CourseRepository) LockByID(ctx context.Context, id string) (*models.Course, error) {
	return r.find(ctx, `SELECT `+courseColumns+` FROM courses WHERE id = $1 FOR UPDATE`, id)
}

func (r *CourseRepository) find(ctx context.Context, query, id string) (*models.Course, error) {
	var course models.Course
	if err := conn(ctx, r.db).GetContext(ctx, &course, query, id); err != nil {
		if isNoRows(err) {
			return nil, sql.ErrNoRows
		}
		return nil, fmt.Errorf("find course: %w", err)
	}
	return &course, nil
}

// CountActiveEnrollments returns the number of seats currently taken.
func (r *CourseRepository) CountActiveEnrollments(ctx context.Context, courseID string) (int, error) {
	const query = `SELECT COUNT(*) FROM enrollments WHERE course_id = $1 AND status = $2`
	var count int
	if err := conn(ctx, r.db).GetContext(ctx, &count, query, courseID, models.EnrollmentStatusActive); err != nil {
		return 0, fmt.Errorf("count course enrollments: %w", err)
	}
	return count, nil
}

// PrerequisiteIDs lists the direct prerequisites of a course.
func (r *CourseRepository) PrerequisiteIDs(ctx context.Context, courseID string) ([]string, error) {
	const query = `SELECT prerequisite_id FROM course_prerequisites WHERE course_id = $1 ORDER BY prerequisite_id`
	ids := []string{}
	if err := conn(ctx, r.db).SelectContext(ctx, &ids, query, courseID); err != nil {
		return nil, fmt.Errorf("list course prerequisites: %w", err)
	}
	return ids, nil
}

// ReplacePrerequisites swaps the prerequisite set of a course.
func (r *CourseRepository) ReplacePrerequisites(ctx context.Context, courseID string, prerequisiteIDs []string) error {
	db := conn(ctx, r.db)
	if _, err := db.ExecContext(ctx, `DELETE FROM course_prerequisites WHERE course_id = $1`, courseID); err != nil {
		return fmt.Errorf("clear course prerequisites: %w", err)
	}
	if len(prerequisiteIDs) == 0 {
		return nil
	}
	const query = `INSERT INTO course_prerequisites (course_id, prerequisite_id)
        SELECT $1, UNNEST($2::uuid[])`
	if _, err := db.ExecContext(ctx, query, courseID, pq.Array(prerequisiteIDs)); err != nil {
		return translate(err, "insert course prerequisites")
	}
	return nil
}

// CountExisting returns how many of ids reference existing courses.
func (r *CourseRepository) CountExisting(ctx context.Context, ids []string) (int, error) {
	const query = `SELECT COUNT(*) FROM courses WHERE id = ANY($1::uuid[])`
	var count int
	if err := conn(ctx, r.db).GetContext(ctx, &count, query, pq.Array(ids)); err != nil {
		return 0, fmt.Errorf("count courses: %w", err)
	}
	return count, nil
}

// UnmetPrerequisites returns prerequisites the student has no completed enrollment for.
func (r *CourseRepository) UnmetPrerequisites(ctx context.Context, courseID, studentID string) ([]models.Course, error) {
	const query = `SELECT c.id, c.code, c.title, c.description, c.credits, c.teacher_id, c.class_group_id, c.max_students,
        c.passing_score, c.start_date, c.end_date, c.is_active, c.created_at, c.updated_at
        FROM course_prerequisites cp
        JOIN courses c ON c.id = cp.prerequisite_id
        WHERE cp.course_id = $1
          AND NOT EXISTS (
            SELECT 1 FROM enrollments e
            WHERE e.course_id = c.id AND e.student_id = $2 AND e.status = $3
          )
        ORDER BY c.title`
	var courses []models.Course
	if err := conn(ctx, r.db).SelectContext(ctx, &courses, query, courseID, studentID, models.EnrollmentStatusCompleted); err != nil {
		return nil, fmt.Errorf("list unmet prerequisites: %w", err)
	}
	return courses, nil
}

// List returns courses with live enrollment counts.
func (r *CourseRepository) List(ctx context.Context, filter models.CourseFilter) ([]models.CourseDetail, int, error) {
	var conditions []string
	var args []interface{}
	if filter.TeacherID != "" {
		args = append(args, filter.TeacherID)
		conditions = append(conditions, fmt.Sprintf("c.teacher_id = $%d", len(args)))
	}
	if filter.ClassGroupID != "" {
		args = append(args, filter.ClassGroupID)
		conditions = append(conditions, fmt.Sprintf("c.class_group_id = $%d", len(args)))
	}
	if filter.Active != nil {
		args = append(args, *filter.Active)
		conditions = append(conditions, fmt.Sprintf("c.is_active = $%d", len(args)))
	}
	if filter.Search != "" {
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
		conditions = append(conditions, fmt.Sprintf("(LOWER(c.code) LIKE $%d OR LOWER(c.title) LIKE $%d)", len(args), len(args)))
	}
	clause := ""
	if len(conditions) > 0 {
		clause = " WHERE " + strings.Join(conditions, " AND ")
	}

	page, size := normalisePage(filter.Page, filter.PageSize)
	query := fmt.Sprintf(`SELECT c.id, c.code, c.title, c.description, c.credits, c.teacher_id, c.class_group_id, c.max_students,
        c.passing_score, c.start_date, c.end_date, c.is_active, c.created_at, c.updated_at,
        (SELECT COUNT(*) FROM enrollments e WHERE e.course_id = c.id AND e.status = 'active') AS enrolled_count
        FROM courses c%s ORDER BY c.code LIMIT %d OFFSET %d`, clause, size, (page-1)*size)

	var courses []models.CourseDetail
	if err := conn(ctx, r.db).SelectContext(ctx, &courses, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list courses: %w", err)
	}
	for i := range courses {
		courses[i].Fill()
	}

	var total int
	if err := conn(ctx, r.db).GetContext(ctx, &total, "SELECT COUNT(*) FROM courses c"+clause, args...); err != nil {
		return nil, 0, fmt.Errorf("count courses: %w", err)
	}
	return courses, total, nil
}
