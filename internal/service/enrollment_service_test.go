package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sms-core-api/internal/dto"
	"github.com/noah-isme/sms-core-api/internal/models"
	"github.com/noah-isme/sms-core-api/internal/repository"
	"github.com/noah-isme/sms-core-api/pkg/config"
	appErrors "github.com/noah-isme/sms-core-api/pkg/errors"
)

type enrollmentFixture struct {
	svc      *EnrollmentService
	school   *fakeSchool
	notifier *recordingNotifier
	metrics  *MetricsService
	tx       *fakeTx
}

func newEnrollmentFixture(policy config.PolicyConfig) *enrollmentFixture {
	school := newFakeSchool()
	school.addTeacher("t1", true)
	school.addCourse("c1", 2, "t1")
	for i := 1; i <= 4; i++ {
		school.addStudent(fmt.Sprintf("s%d", i), fmt.Sprintf("ST-%d", i), models.StudentStatusActive, "")
	}

	tx := &fakeTx{}
	catalog := NewCatalogService(tx, fakeGroups{school}, fakeCourses{school}, fakeTeachers{school}, fakeStudents{school}, nil, nil)
	notifier := &recordingNotifier{}
	metrics := NewMetricsService()
	svc := NewEnrollmentService(EnrollmentDeps{
		Tx:          tx,
		Repo:        fakeEnrollments{school},
		Students:    fakeStudents{school},
		Courses:     fakeCourses{school},
		Eligibility: catalog,
		Audit:       fakeAudit{school},
		Notifier:    notifier,
		Metrics:     metrics,
	}, policy, nil, nil)
	svc.now = fixedClock
	return &enrollmentFixture{svc: svc, school: school, notifier: notifier, metrics: metrics, tx: tx}
}

func TestEnrollCreatesActiveEnrollment(t *testing.T) {
	f := newEnrollmentFixture(testPolicy())

	enrollment, err := f.svc.Enroll(context.Background(), dto.EnrollRequest{StudentID: "s1", CourseID: "c1"}, "admin-1")
	require.NoError(t, err)

	assert.Equal(t, models.EnrollmentStatusActive, enrollment.Status)
	assert.Equal(t, dateOnly(fixedNow), enrollment.EnrollmentDate)
	require.NotNil(t, enrollment.EnrolledBy)
	assert.Equal(t, "admin-1", *enrollment.EnrolledBy)
	assert.Equal(t, []string{enrollment.ID}, f.notifier.notified)
	assert.Contains(t, f.school.locked, "course:c1")

	require.Len(t, f.school.audits, 1)
	audit := f.school.audits[0]
	assert.Equal(t, models.AuditActionEnrollmentCreate, audit.Action)
	assert.Equal(t, models.AuditResourceEnrollment, audit.Resource)
	assert.Nil(t, audit.OldValues)
	assert.Equal(t, float64(1), testutil.ToFloat64(f.metrics.enrollmentOps.WithLabelValues("enroll", OutcomeSuccess)))
}

func TestEnrollIgnoresStudentStatus(t *testing.T) {
	f := newEnrollmentFixture(testPolicy())
	f.school.addStudent("s9", "ST-9", models.StudentStatusSuspended, "")

	enrollment, err := f.svc.Enroll(context.Background(), dto.EnrollRequest{StudentID: "s9", CourseID: "c1"}, "")
	require.NoError(t, err)

	assert.Equal(t, models.EnrollmentStatusActive, enrollment.Status)
}

func TestEnrollTwiceIsDuplicate(t *testing.T) {
	f := newEnrollmentFixture(testPolicy())
	ctx := context.Background()

	_, err := f.svc.Enroll(ctx, dto.EnrollRequest{StudentID: "s1", CourseID: "c1"}, "")
	require.NoError(t, err)

	_, err = f.svc.Enroll(ctx, dto.EnrollRequest{StudentID: "s1", CourseID: "c1"}, "")
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrDuplicate))
	assert.Len(t, f.school.enrollmentRows("s1", "c1"), 1)
	assert.Equal(t, float64(1), testutil.ToFloat64(f.metrics.enrollmentOps.WithLabelValues("enroll", OutcomeRejected)))
}

func TestEnrollRejectsBeyondCapacity(t *testing.T) {
	f := newEnrollmentFixture(testPolicy())
	ctx := context.Background()

	for _, id := range []string{"s1", "s2"} {
		_, err := f.svc.Enroll(ctx, dto.EnrollRequest{StudentID: id, CourseID: "c1"}, "")
		require.NoError(t, err)
	}

	_, err := f.svc.Enroll(ctx, dto.EnrollRequest{StudentID: "s3", CourseID: "c1"}, "")
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrBusinessLogic))
	assert.Equal(t, "Course is at full capacity", appErrors.FromError(err).Message)
}

func TestEnrollRejectsTerminalStatuses(t *testing.T) {
	for _, status := range []models.EnrollmentStatus{models.EnrollmentStatusPending, models.EnrollmentStatusCompleted, models.EnrollmentStatusDropped} {
		t.Run(string(status), func(t *testing.T) {
			f := newEnrollmentFixture(testPolicy())
			f.school.addEnrollment("e1", "s1", "c1", status)

			_, err := f.svc.Enroll(context.Background(), dto.EnrollRequest{StudentID: "s1", CourseID: "c1"}, "")
			require.Error(t, err)
			assert.True(t, appErrors.HasCode(err, appErrors.ErrDuplicate))
			assert.Equal(t, "Cannot enroll - current status: "+string(status), appErrors.FromError(err).Message)
		})
	}
}

func TestEnrollMissingEntities(t *testing.T) {
	f := newEnrollmentFixture(testPolicy())

	_, err := f.svc.Enroll(context.Background(), dto.EnrollRequest{StudentID: "ghost", CourseID: "c1"}, "")
	assert.True(t, appErrors.HasCode(err, appErrors.ErrNotFound))

	_, err = f.svc.Enroll(context.Background(), dto.EnrollRequest{StudentID: "s1", CourseID: "ghost"}, "")
	assert.True(t, appErrors.HasCode(err, appErrors.ErrNotFound))

	_, err = f.svc.Enroll(context.Background(), dto.EnrollRequest{CourseID: "c1"}, "")
	assert.True(t, appErrors.HasCode(err, appErrors.ErrValidation))
}

func TestWithdrawThenReenrollReusesRowEvenWhenFull(t *testing.T) {
	f := newEnrollmentFixture(testPolicy())
	ctx := context.Background()

	first, err := f.svc.Enroll(ctx, dto.EnrollRequest{StudentID: "s1", CourseID: "c1"}, "")
	require.NoError(t, err)
	_, err = f.svc.Withdraw(ctx, first.ID, dto.WithdrawRequest{Reason: "moved"}, "")
	require.NoError(t, err)

	for _, id := range []string{"s2", "s3"} {
		_, err := f.svc.Enroll(ctx, dto.EnrollRequest{StudentID: id, CourseID: "c1"}, "")
		require.NoError(t, err)
	}

	again, err := f.svc.Enroll(ctx, dto.EnrollRequest{StudentID: "s1", CourseID: "c1"}, "")
	require.NoError(t, err)
	assert.Equal(t, first.ID, again.ID)
	assert.Equal(t, models.EnrollmentStatusActive, again.Status)
	assert.Len(t, f.school.enrollmentRows("s1", "c1"), 1)
	assert.Len(t, f.notifier.notified, 3, "reactivation does not notify")

	last := f.school.audits[len(f.school.audits)-1]
	assert.Equal(t, models.AuditActionEnrollmentReactivate, last.Action)
}

func TestReactivationRevalidatesWhenConfigured(t *testing.T) {
	policy := testPolicy()
	policy.RevalidateReactivation = true
	f := newEnrollmentFixture(policy)
	f.school.addEnrollment("e1", "s1", "c1", models.EnrollmentStatusWithdrawn)
	f.school.addEnrollment("e2", "s2", "c1", models.EnrollmentStatusActive)
	f.school.addEnrollment("e3", "s3", "c1", models.EnrollmentStatusActive)

	_, err := f.svc.Enroll(context.Background(), dto.EnrollRequest{StudentID: "s1", CourseID: "c1"}, "")
	require.Error(t, err)
	assert.Equal(t, "Course is at full capacity", appErrors.FromError(err).Message)
	assert.Equal(t, models.EnrollmentStatusWithdrawn, f.school.enrollments["e1"].Status)
}

func TestEnrollNotificationFailureDoesNotFail(t *testing.T) {
	f := newEnrollmentFixture(testPolicy())
	f.notifier.err = errors.New("queue buffer full")

	enrollment, err := f.svc.Enroll(context.Background(), dto.EnrollRequest{StudentID: "s1", CourseID: "c1"}, "")
	require.NoError(t, err)
	assert.Equal(t, models.EnrollmentStatusActive, f.school.enrollments[enrollment.ID].Status)
}

func TestEnrollAuditFailureFailsOperation(t *testing.T) {
	f := newEnrollmentFixture(testPolicy())
	f.school.auditErr = errors.New("audit table unavailable")

	_, err := f.svc.Enroll(context.Background(), dto.EnrollRequest{StudentID: "s1", CourseID: "c1"}, "")
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrInternal))
	assert.Empty(t, f.notifier.notified)
	assert.Equal(t, float64(1), testutil.ToFloat64(f.metrics.enrollmentOps.WithLabelValues("enroll", OutcomeError)))
}

func TestBulkEnrollIsolatesFailures(t *testing.T) {
	f := newEnrollmentFixture(testPolicy())
	catalog := f.svc.eligibility
	f.svc.eligibility = eligibilityFunc(func(ctx context.Context, st *models.Student, c *models.Course) (bool, string, error) {
		if st.ID == "s3" {
			panic("boom")
		}
		return catalog.CheckEligibility(ctx, st, c)
	})
	f.school.courses["c1"].MaxStudents = 10

	result, err := f.svc.BulkEnroll(context.Background(), dto.BulkEnrollRequest{
		CourseID:   "c1",
		StudentIDs: []string{"s1", "ghost", "s3", "s1", "s2"},
	}, "admin-1")
	require.NoError(t, err)

	require.Len(t, result.Succeeded, 2)
	assert.Equal(t, "s1", result.Succeeded[0].StudentID)
	assert.Equal(t, "s2", result.Succeeded[1].StudentID)
	assert.Equal(t, []dto.BulkFailure{
		{StudentID: "ghost", Reason: "student not found"},
		{StudentID: "s3", Reason: msgBulkEnrollUnknown},
		{StudentID: "s1", Reason: msgAlreadyEnrolled},
	}, result.Failed)
	assert.Equal(t, float64(3), testutil.ToFloat64(f.metrics.bulkFailures.WithLabelValues("enroll")))
}

func TestWithdrawRecordsReasonAndAudit(t *testing.T) {
	f := newEnrollmentFixture(testPolicy())
	f.school.addEnrollment("e1", "s1", "c1", models.EnrollmentStatusActive).Notes = "joined late"

	enrollment, err := f.svc.Withdraw(context.Background(), "e1", dto.WithdrawRequest{Reason: "family relocation"}, "teacher-1")
	require.NoError(t, err)
	assert.Equal(t, models.EnrollmentStatusWithdrawn, enrollment.Status)
	assert.Equal(t, "joined late\nWithdrawn: family relocation", f.school.enrollments["e1"].Notes)

	require.Len(t, f.school.audits, 1)
	audit := f.school.audits[0]
	assert.Equal(t, models.AuditActionEnrollmentWithdraw, audit.Action)
	assert.JSONEq(t, `{"status":"active"}`, string(audit.OldValues))
	assert.JSONEq(t, `{"status":"withdrawn","reason":"family relocation"}`, string(audit.NewValues))

	var changes map[string]models.AuditChange
	require.NoError(t, json.Unmarshal(audit.Changes, &changes))
	assert.Contains(t, changes, "status")
	assert.Contains(t, changes, "reason")
}

func TestTransitionsRejectIllegalSourceStates(t *testing.T) {
	f := newEnrollmentFixture(testPolicy())
	ctx := context.Background()
	f.school.addEnrollment("e1", "s1", "c1", models.EnrollmentStatusCompleted)

	_, err := f.svc.Withdraw(ctx, "e1", dto.WithdrawRequest{}, "")
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrBusinessLogic))
	assert.Equal(t, "Cannot withdraw - enrollment is completed", appErrors.FromError(err).Message)

	_, err = f.svc.Complete(ctx, "e1", dto.CompleteRequest{}, "")
	assert.Equal(t, "Only active enrollments can be completed", appErrors.FromError(err).Message)

	_, err = f.svc.Drop(ctx, "e1", dto.DropRequest{}, "")
	assert.True(t, appErrors.HasCode(err, appErrors.ErrBusinessLogic))

	_, err = f.svc.Withdraw(ctx, "missing", dto.WithdrawRequest{}, "")
	assert.True(t, appErrors.HasCode(err, appErrors.ErrNotFound))
	assert.Empty(t, f.school.audits)
}

func TestCompleteStoresFinalMarks(t *testing.T) {
	f := newEnrollmentFixture(testPolicy())
	f.school.addEnrollment("e1", "s1", "c1", models.EnrollmentStatusActive)
	score := 88.5

	enrollment, err := f.svc.Complete(context.Background(), "e1", dto.CompleteRequest{FinalScore: &score, FinalGrade: "A"}, "")
	require.NoError(t, err)
	assert.Equal(t, models.EnrollmentStatusCompleted, enrollment.Status)
	require.NotNil(t, enrollment.CompletionDate)
	assert.Equal(t, dateOnly(fixedNow), *enrollment.CompletionDate)
	assert.Equal(t, 88.5, *enrollment.FinalScore)
	assert.Equal(t, "A", enrollment.FinalGrade)
	assert.JSONEq(t, `{"status":"completed","final_score":88.5,"final_grade":"A"}`, string(f.school.audits[0].NewValues))

	bad := 120.0
	_, err = f.svc.Complete(context.Background(), "e1", dto.CompleteRequest{FinalScore: &bad}, "")
	assert.True(t, appErrors.HasCode(err, appErrors.ErrValidation))
}

func TestConcurrentStatusChangeIsRejected(t *testing.T) {
	f := newEnrollmentFixture(testPolicy())
	f.school.addEnrollment("e1", "s1", "c1", models.EnrollmentStatusActive)
	f.school.saveErr = fmt.Errorf("update enrollment: %w", repository.ErrStaleStatus)

	_, err := f.svc.Drop(context.Background(), "e1", dto.DropRequest{Reason: "no show"}, "")
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrBusinessLogic))
}

func TestActivateChecksCapacity(t *testing.T) {
	f := newEnrollmentFixture(testPolicy())
	ctx := context.Background()
	f.school.addEnrollment("e1", "s1", "c1", models.EnrollmentStatusPending)
	f.school.addEnrollment("e2", "s2", "c1", models.EnrollmentStatusActive)

	enrollment, err := f.svc.Activate(ctx, "e1", "")
	require.NoError(t, err)
	assert.Equal(t, models.EnrollmentStatusActive, enrollment.Status)

	f.school.addEnrollment("e3", "s3", "c1", models.EnrollmentStatusPending)
	_, err = f.svc.Activate(ctx, "e3", "")
	require.Error(t, err)
	assert.Equal(t, "Course is at full capacity", appErrors.FromError(err).Message)
	assert.Equal(t, models.EnrollmentStatusPending, f.school.enrollments["e3"].Status)
}

func TestStatistics(t *testing.T) {
	f := newEnrollmentFixture(testPolicy())
	f.school.addCourse("c2", 5, "t1")
	f.school.addEnrollment("e1", "s1", "c1", models.EnrollmentStatusCompleted)
	f.school.addEnrollment("e2", "s2", "c1", models.EnrollmentStatusActive)
	f.school.addEnrollment("e3", "s3", "c1", models.EnrollmentStatusWithdrawn)
	f.school.addEnrollment("e4", "s1", "c2", models.EnrollmentStatusCompleted)

	stats, err := f.svc.Statistics(context.Background(), "c1")
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Total)
	assert.Equal(t, 1, stats.Completed)
	assert.Equal(t, 33.33, stats.CompletionRate)

	all, err := f.svc.Statistics(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, 4, all.Total)
	assert.Equal(t, float64(50), all.CompletionRate)

	_, err = f.svc.Statistics(context.Background(), "ghost")
	assert.True(t, appErrors.HasCode(err, appErrors.ErrNotFound))
}

func TestStatisticsEmptyCourse(t *testing.T) {
	f := newEnrollmentFixture(testPolicy())

	stats, err := f.svc.Statistics(context.Background(), "c1")
	require.NoError(t, err)
	assert.Equal(t, 0, stats.Total)
	assert.Equal(t, float64(0), stats.CompletionRate)
}
