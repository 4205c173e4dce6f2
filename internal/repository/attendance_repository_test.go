package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sms-core-api/internal/models"
)

func TestAttendanceRepositoryUpsertOverwritesOnConflict(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAttendanceRepository(db)

	date := time.Date(2024, 9, 2, 0, 0, 0, 0, time.UTC)
	arrival := "08:15"
	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("ON CONFLICT (student_id, course_id, date) DO UPDATE SET")).
		WithArgs(sqlmock.AnyArg(), "s1", "c1", date, models.AttendanceStatusLate, &arrival, "", nil, false, sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id", "student_id", "course_id", "date", "status", "arrival_time", "remarks", "marked_by", "is_bulk_entry", "created_at", "updated_at"}).
			AddRow("a-existing", "s1", "c1", date, "late", "08:15:00", "", nil, false, now, now))

	saved, err := repo.Upsert(context.Background(), &models.Attendance{StudentID: "s1", CourseID: "c1", Date: date, Status: models.AttendanceStatusLate, ArrivalTime: &arrival})
	require.NoError(t, err)
	assert.Equal(t, "a-existing", saved.ID)
	assert.Equal(t, "08:15:00", *saved.ArrivalTime)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAttendanceRepositoryStatusCountsAppliesFilter(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAttendanceRepository(db)

	from := time.Date(2024, 9, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta("FROM attendance a WHERE a.student_id = $1 AND a.course_id = $2 AND a.date >= $3 GROUP BY a.status")).
		WithArgs("s1", "c1", from).
		WillReturnRows(sqlmock.NewRows([]string{"status", "count"}).AddRow("present", 4).AddRow("absent", 1))

	counts, err := repo.StatusCounts(context.Background(), models.AttendanceFilter{StudentID: "s1", CourseID: "c1", From: &from})
	require.NoError(t, err)
	require.Len(t, counts, 2)
	assert.Equal(t, 80.0, models.SummarizeAttendance(counts).Percentage)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAttendanceRepositoryRecentStatuses(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAttendanceRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE student_id = $1 AND course_id = $2 ORDER BY date DESC, created_at DESC LIMIT $3")).
		WithArgs("s1", "c1", 30).
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("absent").AddRow("present"))

	statuses, err := repo.RecentStatuses(context.Background(), "s1", "c1", 30)
	require.NoError(t, err)
	assert.Equal(t, []models.AttendanceStatus{models.AttendanceStatusAbsent, models.AttendanceStatusPresent}, statuses)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAttendanceRepositoryTallyByStudent(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAttendanceRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("LEFT JOIN class_groups cg ON cg.id = s.class_group_id WHERE a.course_id = $1")).
		WithArgs("c1").
		WillReturnRows(sqlmock.NewRows([]string{"student_ref", "student_number", "full_name", "grade_level", "section", "total", "effective_present"}).
			AddRow("s1", "S-001", "Ada", 10, "A", 4, 2).
			AddRow("s2", "S-002", "Alan", nil, nil, 2, 2))

	tallies, err := repo.TallyByStudent(context.Background(), "c1")
	require.NoError(t, err)
	require.Len(t, tallies, 2)
	assert.Nil(t, tallies[1].GradeLevel)
	require.NoError(t, mock.ExpectationsWereMet())
}
