package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sms-core-api/internal/models"
)

// AttendanceRepository persists course attendance.
type AttendanceRepository struct {
	db *sqlx.DB
}

// NewAttendanceRepository constructs the repository.
func NewAttendanceRepository(db *sqlx.DB) *AttendanceRepository {
	return &AttendanceRepository{db: db}
}

// Upsert writes the record keyed on (student, course, date). An existing row has its
// status, remarks, arrival time and marker overwritten.
func (r *AttendanceRepository) Upsert(ctx context.Context, record *models.Attendance) (*models.Attendance, error) {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	const query = `INSERT INTO attendance (id, student_id, course_id, date, status, arrival_time, remarks, marked_by, is_bulk_entry, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $10)
        ON CONFLICT (student_id, course_id, date) DO UPDATE SET
            status = EXCLUDED.status,
            arrival_time = EXCLUDED.arrival_time,
            remarks = EXCLUDED.remarks,
            marked_by = EXCLUDED.marked_by,
            is_bulk_entry = EXCLUDED.is_bulk_entry,
            updated_at = EXCLUDED.updated_at
        RETURNING id, student_id, course_id, date, status, arrival_time::text AS arrival_time, remarks, marked_by, is_bulk_entry, created_at, updated_at`
	var saved models.Attendance
	if err := conn(ctx, r.db).GetContext(ctx, &saved, query, record.ID, record.StudentID, record.CourseID, record.Date, record.Status,
		record.ArrivalTime, record.Remarks, record.MarkedBy, record.IsBulkEntry, now); err != nil {
		return nil, fmt.Errorf("upsert attendance: %w", err)
	}
	return &saved, nil
}

func attendanceConditions(filter models.AttendanceFilter, alias string) (string, []interface{}) {
	var conditions []string
	var args []interface{}
	if filter.StudentID != "" {
		args = append(args, filter.StudentID)
		conditions = append(conditions, fmt.Sprintf("%s.student_id = $%d", alias, len(args)))
	}
	if filter.CourseID != "" {
		args = append(args, filter.CourseID)
		conditions = append(conditions, fmt.Sprintf("%s.course_id = $%d", alias, len(args)))
	}
	if filter.From != nil {
		args = append(args, *filter.From)
		conditions = append(conditions, fmt.Sprintf("%s.date >= $%d", alias, len(args)))
	}
	if filter.To != nil {
		args = append(args, *filter.To)
		conditions = append(conditions, fmt.Sprintf("%s.date <= $%d", alias, len(args)))
	}
	if len(conditions) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conditions, " AND "), args
}

// StatusCounts aggregates rows per status within the filter.
func (r *AttendanceRepository) StatusCounts(ctx context.Context, filter models.AttendanceFilter) ([]models.AttendanceStatusCount, error) {
	clause, args := attendanceConditions(filter, "a")
	query := `SELECT a.status, COUNT(*) AS count FROM attendance a` + clause + ` GROUP BY a.status`
	var counts []models.AttendanceStatusCount
	if err := conn(ctx, r.db).SelectContext(ctx, &counts, query, args...); err != nil {
		return nil, fmt.Errorf("count attendance statuses: %w", err)
	}
	return counts, nil
}

// RecentStatuses returns up to limit statuses, most recent date first.
func (r *AttendanceRepository) RecentStatuses(ctx context.Context, studentID, courseID string, limit int) ([]models.AttendanceStatus, error) {
	query := `SELECT status FROM attendance WHERE student_id = $1`
	args := []interface{}{studentID}
	if courseID != "" {
		args = append(args, courseID)
		query += fmt.Sprintf(" AND course_id = $%d", len(args))
	}
	args = append(args, limit)
	query += fmt.Sprintf(" ORDER BY date DESC, created_at DESC LIMIT $%d", len(args))

	var statuses []models.AttendanceStatus
	if err := conn(ctx, r.db).SelectContext(ctx, &statuses, query, args...); err != nil {
		return nil, fmt.Errorf("list recent attendance: %w", err)
	}
	return statuses, nil
}

// DailyBreakdown returns per-date counts within the filter, oldest first.
func (r *AttendanceRepository) DailyBreakdown(ctx context.Context, filter models.AttendanceFilter) ([]models.AttendanceDay, error) {
	clause, args := attendanceConditions(filter, "a")
	query := `SELECT a.date,
        COUNT(*) AS total,
        COUNT(*) FILTER (WHERE a.status = 'present') AS present,
        COUNT(*) FILTER (WHERE a.status = 'absent') AS absent,
        COUNT(*) FILTER (WHERE a.status = 'late') AS late
        FROM attendance a` + clause + ` GROUP BY a.date ORDER BY a.date`
	var days []models.AttendanceDay
	if err := conn(ctx, r.db).SelectContext(ctx, &days, query, args...); err != nil {
		return nil, fmt.Errorf("attendance daily breakdown: %w", err)
	}
	return days, nil
}

// TallyByStudent counts every student's attendance rows, optionally within one course.
func (r *AttendanceRepository) TallyByStudent(ctx context.Context, courseID string) ([]models.StudentAttendanceTally, error) {
	clause, args := attendanceConditions(models.AttendanceFilter{CourseID: courseID}, "a")
	query := `SELECT s.id AS student_ref, s.student_id AS student_number, s.full_name, cg.grade_level, cg.section,
        COUNT(*) AS total,
        COUNT(*) FILTER (WHERE a.status IN ('present', 'late', 'excused')) AS effective_present
        FROM attendance a
        JOIN students s ON s.id = a.student_id
        LEFT JOIN class_groups cg ON cg.id = s.class_group_id` + clause + `
        GROUP BY s.id, s.student_id, s.full_name, cg.grade_level, cg.section
        ORDER BY s.student_id`
	var tallies []models.StudentAttendanceTally
	if err := conn(ctx, r.db).SelectContext(ctx, &tallies, query, args...); err != nil {
		return nil, fmt.Errorf("tally attendance by student: %w", err)
	}
	return tallies, nil
}
