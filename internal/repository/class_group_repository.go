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

const classGroupColumns = `id, grade_level, section, academic_year, max_students, class_teacher_id, room_number, is_active, created_at, updated_at`

// ClassGroupRepository persists class groups.
type ClassGroupRepository struct {
	db *sqlx.DB
}

// NewClassGroupRepository constructs the repository.
func NewClassGroupRepository(db *sqlx.DB) *ClassGroupRepository {
	return &ClassGroupRepository{db: db}
}

// Create inserts a class group. A repeated (grade_level, section, academic_year) yields ErrDuplicate.
func (r *ClassGroupRepository) Create(ctx context.Context, group *models.ClassGroup) error {
	if group.ID == "" {
		group.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	group.CreatedAt, group.UpdatedAt = now, now
	const query = `INSERT INTO class_groups (` + classGroupColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	if _, err := conn(ctx, r.db).ExecContext(ctx, query, group.ID, group.GradeLevel, group.Section, group.AcademicYear,
		group.MaxStudents, group.ClassTeacherID, group.RoomNumber, group.Active, group.CreatedAt, group.UpdatedAt); err != nil {
		return translate(err, "create class group")
	}
	return nil
}

// FindByID returns a class group by ID.
func (r *ClassGroupRepository) FindByID(ctx context.Context, id string) (*models.ClassGroup, error) {
	return r.find(ctx, `SELECT `+classGroupColumns+` FROM class_groups WHERE id = $1`, id)
}

// LockByID returns a class group and holds a row lock until the surrounding transaction ends.
func (r *ClassGroupRepository) LockByID(ctx context.Context, id string) (*models.ClassGroup, error) {
	return r.find(ctx, `SELECT `+classGroupColumns+` FROM class_groups WHERE id = $1 FOR UPDATE`, id)
}

func (r *ClassGroupRepository) find(ctx context.Context, query, id string) (*models.ClassGroup, error) {
	var group models.ClassGroup
	if err := conn(ctx, r.db).GetContext(ctx, &group, query, id); err != nil {
		if isNoRows(err) {
			return nil, sql.ErrNoRows
		}
		return nil, fmt.Errorf("find class group: %w", err)
	}
	return &group, nil
}

// CountActiveStudents counts active students assigned to the group.
func (r *ClassGroupRepository) CountActiveStudents(ctx context.Context, id string) (int, error) {
	const query = `SELECT COUNT(*) FROM students WHERE class_group_id = $1 AND status = $2`
	var count int
	if err := conn(ctx, r.db).GetContext(ctx, &count, query, id, models.StudentStatusActive); err != nil {
		return 0, fmt.Errorf("count class group students: %w", err)
	}
	return count, nil
}

// List returns class groups with live occupancy.
func (r *ClassGroupRepository) List(ctx context.Context, filter models.ClassGroupFilter) ([]models.ClassGroupDetail, int, error) {
	var conditions []string
	var args []interface{}
	if filter.AcademicYear != "" {
		args = append(args, filter.AcademicYear)
		conditions = append(conditions, fmt.Sprintf("cg.academic_year = $%d", len(args)))
	}
	if filter.GradeLevel > 0 {
		args = append(args, filter.GradeLevel)
		conditions = append(conditions, fmt.Sprintf("cg.grade_level = $%d", len(args)))
	}
	if filter.Active != nil {
		args = append(args, *filter.Active)
		conditions = append(conditions, fmt.Sprintf("cg.is_active = $%d", len(args)))
	}
	clause := ""
	if len(conditions) > 0 {
		clause = " WHERE " + strings.Join(conditions, " AND ")
	}

	page, size := normalisePage(filter.Page, filter.PageSize)
	query := fmt.Sprintf(`SELECT cg.id, cg.grade_level, cg.section, cg.academic_year, cg.max_students, cg.class_teacher_id,
        cg.room_number, cg.is_active, cg.created_at, cg.updated_at,
        (SELECT COUNT(*) FROM students s WHERE s.class_group_id = cg.id AND s.status = 'active') AS current_students_count
        FROM class_groups cg%s ORDER BY cg.academic_year DESC, cg.grade_level, cg.section LIMIT %d OFFSET %d`,
		clause, size, (page-1)*size)

	var groups []models.ClassGroupDetail
	if err := conn(ctx, r.db).SelectContext(ctx, &groups, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list class groups: %w", err)
	}
	for i := range groups {
		groups[i].Fill()
	}

	var total int
	if err := conn(ctx, r.db).GetContext(ctx, &total, "SELECT COUNT(*) FROM class_groups cg"+clause, args...); err != nil {
		return nil, 0, fmt.Errorf("count class groups: %w", err)
	}
	return groups, total, nil
}
