package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/sms-core-api/internal/dto"
	"github.com/noah-isme/sms-core-api/internal/models"
	"github.com/noah-isme/sms-core-api/pkg/config"
	appErrors "github.com/noah-isme/sms-core-api/pkg/errors"
	"github.com/noah-isme/sms-core-api/pkg/export"
)

const msgBulkMarkUnknown = "unexpected error while marking attendance"

type attendanceRepository interface {
	Upsert(ctx context.Context, record *models.Attendance) (*models.Attendance, error)
	StatusCounts(ctx context.Context, filter models.AttendanceFilter) ([]models.AttendanceStatusCount, error)
	RecentStatuses(ctx context.Context, studentID, courseID string, limit int) ([]models.AttendanceStatus, error)
	DailyBreakdown(ctx context.Context, filter models.AttendanceFilter) ([]models.AttendanceDay, error)
	TallyByStudent(ctx context.Context, courseID string) ([]models.StudentAttendanceTally, error)
}

type activeEnrollmentChecker interface {
	ExistsActive(ctx context.Context, studentID, courseID string) (bool, error)
}

type studentLookup interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
	FindByStudentNumber(ctx context.Context, number string) (*models.Student, error)
}

type courseReader interface {
	FindByID(ctx context.Context, id string) (*models.Course, error)
}

// AttendanceService records daily attendance for enrolled students and derives
// percentages, absence streaks and risk flags from it.
type AttendanceService struct {
	tx          txRunner
	repo        attendanceRepository
	enrollments activeEnrollmentChecker
	students    studentLookup
	courses     courseReader
	renderer    *export.Renderer
	metrics     *MetricsService
	policy      config.PolicyConfig
	validator   *validator.Validate
	logger      *zap.Logger
	now         func() time.Time
}

// AttendanceDeps groups the collaborators of AttendanceService.
type AttendanceDeps struct {
	Tx          txRunner
	Repo        attendanceRepository
	Enrollments activeEnrollmentChecker
	Students    studentLookup
	Courses     courseReader
	Renderer    *export.Renderer
	Metrics     *MetricsService
}

// NewAttendanceService constructs AttendanceService.
func NewAttendanceService(deps AttendanceDeps, policy config.PolicyConfig, validate *validator.Validate, logger *zap.Logger) *AttendanceService {
	if validate == nil {
		validate = NewValidator()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if deps.Renderer == nil {
		deps.Renderer = export.NewRenderer()
	}
	return &AttendanceService{
		tx:          deps.Tx,
		repo:        deps.Repo,
		enrollments: deps.Enrollments,
		students:    deps.Students,
		courses:     deps.Courses,
		renderer:    deps.Renderer,
		metrics:     deps.Metrics,
		policy:      policy,
		validator:   validate,
		logger:      logger,
		now:         time.Now,
	}
}

// Mark upserts the status of a student in a course for one date. The student must
// hold an active enrollment at write time; a later mark for the same day overwrites.
func (s *AttendanceService) Mark(ctx context.Context, req dto.MarkAttendanceRequest, actor string) (*models.Attendance, error) {
	return s.mark(ctx, req, actor, false)
}

func (s *AttendanceService) mark(ctx context.Context, req dto.MarkAttendanceRequest, actor string, bulk bool) (*models.Attendance, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid attendance payload")
	}
	status := models.AttendanceStatus(req.Status)
	if status == models.AttendanceStatusLate && (req.ArrivalTime == nil || *req.ArrivalTime == "") {
		return nil, validationError(nil, "arrival_time is required for late status")
	}
	date, err := parseDate(req.Date, "date")
	if err != nil {
		return nil, err
	}

	var saved *models.Attendance
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		enrolled, err := s.enrollments.ExistsActive(ctx, req.StudentID, req.CourseID)
		if err != nil {
			return internalError(err, "failed to verify enrollment")
		}
		if !enrolled {
			return businessError("Student is not enrolled in this course")
		}
		saved, err = s.repo.Upsert(ctx, &models.Attendance{
			StudentID:   req.StudentID,
			CourseID:    req.CourseID,
			Date:        date,
			Status:      status,
			ArrivalTime: req.ArrivalTime,
			Remarks:     req.Remarks,
			MarkedBy:    optionalString(actor),
			IsBulkEntry: bulk,
		})
		if err != nil {
			return internalError(err, "failed to save attendance")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.metrics.RecordAttendanceMark(string(status))
	return saved, nil
}

// BulkMark marks many students of one course for one date. Entries are resolved by
// school student_id and run independently; failures are collected per entry.
func (s *AttendanceService) BulkMark(ctx context.Context, req dto.BulkMarkAttendanceRequest, actor string) (*dto.BulkAttendanceResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid bulk attendance payload")
	}
	if _, err := s.courses.FindByID(ctx, req.CourseID); err != nil {
		return nil, lookupError(err, "course not found", "failed to load course")
	}

	result := &dto.BulkAttendanceResult{Total: len(req.Entries), FailedDetails: []dto.BulkFailure{}}
	for _, entry := range req.Entries {
		err := isolate(func() error {
			student, err := s.students.FindByStudentNumber(ctx, entry.StudentID)
			if err != nil {
				return lookupError(err, "Student not found", "failed to load student")
			}
			_, err = s.mark(ctx, dto.MarkAttendanceRequest{
				StudentID:   student.ID,
				CourseID:    req.CourseID,
				Date:        req.Date,
				Status:      entry.Status,
				ArrivalTime: entry.ArrivalTime,
				Remarks:     entry.Remarks,
			}, actor, true)
			return err
		})
		if err != nil {
			reason, expected := bulkReason(err, msgBulkMarkUnknown)
			if !expected {
				s.logger.Error("bulk attendance entry failed", zap.String("student_id", entry.StudentID), zap.String("course_id", req.CourseID), zap.Error(err))
			}
			s.metrics.RecordBulkFailure("attendance")
			result.FailedDetails = append(result.FailedDetails, dto.BulkFailure{StudentID: entry.StudentID, Reason: reason})
			continue
		}
		result.Successful++
	}
	result.Failed = len(result.FailedDetails)
	return result, nil
}

func (s *AttendanceService) filter(query dto.AttendanceQuery) (models.AttendanceFilter, error) {
	if err := s.validator.Struct(query); err != nil {
		return models.AttendanceFilter{}, validationError(err, "invalid attendance query")
	}
	from, err := parseOptionalDate(query.From, "from")
	if err != nil {
		return models.AttendanceFilter{}, err
	}
	to, err := parseOptionalDate(query.To, "to")
	if err != nil {
		return models.AttendanceFilter{}, err
	}
	if from != nil && to != nil && to.Before(*from) {
		return models.AttendanceFilter{}, validationError(nil, "to must not be before from")
	}
	return models.AttendanceFilter{StudentID: query.StudentID, CourseID: query.CourseID, From: from, To: to}, nil
}

// Summary counts attendance by status within the query scope.
func (s *AttendanceService) Summary(ctx context.Context, query dto.AttendanceQuery) (*models.AttendanceSummary, error) {
	filter, err := s.filter(query)
	if err != nil {
		return nil, err
	}
	return s.summarize(ctx, filter)
}

func (s *AttendanceService) summarize(ctx context.Context, filter models.AttendanceFilter) (*models.AttendanceSummary, error) {
	counts, err := s.repo.StatusCounts(ctx, filter)
	if err != nil {
		return nil, internalError(err, "failed to summarize attendance")
	}
	summary := models.SummarizeAttendance(counts)
	return &summary, nil
}

// Report returns the summary of the scope with a per-date breakdown.
func (s *AttendanceService) Report(ctx context.Context, query dto.AttendanceQuery) (*dto.AttendanceReport, error) {
	filter, err := s.filter(query)
	if err != nil {
		return nil, err
	}
	summary, err := s.summarize(ctx, filter)
	if err != nil {
		return nil, err
	}
	days, err := s.repo.DailyBreakdown(ctx, filter)
	if err != nil {
		return nil, internalError(err, "failed to build attendance breakdown")
	}
	if days == nil {
		days = []models.AttendanceDay{}
	}
	return &dto.AttendanceReport{Summary: *summary, DailyBreakdown: days}, nil
}

// ConsecutiveAbsences counts the run of absences at the head of the student's most
// recent records. Calendar gaps between records are ignored.
func (s *AttendanceService) ConsecutiveAbsences(ctx context.Context, studentID, courseID string) (int, error) {
	statuses, err := s.repo.RecentStatuses(ctx, studentID, courseID, s.policy.StreakWindow)
	if err != nil {
		return 0, internalError(err, "failed to load recent attendance")
	}
	return leadingAbsences(statuses), nil
}

func leadingAbsences(statuses []models.AttendanceStatus) int {
	streak := 0
	for _, status := range statuses {
		if status != models.AttendanceStatusAbsent {
			break
		}
		streak++
	}
	return streak
}

// AtRisk flags a student whose absence streak or overall percentage crosses policy.
// A student with no records has a 0 percentage and is therefore at risk.
func (s *AttendanceService) AtRisk(ctx context.Context, studentID, courseID string) (bool, error) {
	streak, err := s.ConsecutiveAbsences(ctx, studentID, courseID)
	if err != nil {
		return false, err
	}
	summary, err := s.summarize(ctx, models.AttendanceFilter{StudentID: studentID, CourseID: courseID})
	if err != nil {
		return false, err
	}
	return s.atRisk(streak, summary.Percentage), nil
}

func (s *AttendanceService) atRisk(streak int, percentage float64) bool {
	return streak >= s.policy.AtRiskConsecutiveAbsences || percentage < s.policy.AtRiskPercentage
}

// StudentSummary combines overall and recent attendance with the risk indicators.
// The recent window counts present and late only.
func (s *AttendanceService) StudentSummary(ctx context.Context, studentID, courseID string) (*dto.StudentAttendanceSummary, error) {
	if _, err := s.students.FindByID(ctx, studentID); err != nil {
		return nil, lookupError(err, "student not found", "failed to load student")
	}
	overall, err := s.summarize(ctx, models.AttendanceFilter{StudentID: studentID, CourseID: courseID})
	if err != nil {
		return nil, err
	}

	since := dateOnly(s.now()).AddDate(0, 0, -s.policy.RecentWindowDays)
	recentCounts, err := s.repo.StatusCounts(ctx, models.AttendanceFilter{StudentID: studentID, CourseID: courseID, From: &since})
	if err != nil {
		return nil, internalError(err, "failed to summarize recent attendance")
	}
	recent := models.SummarizeAttendance(recentCounts)
	recentPresent := recent.Present + recent.Late

	streak, err := s.ConsecutiveAbsences(ctx, studentID, courseID)
	if err != nil {
		return nil, err
	}

	return &dto.StudentAttendanceSummary{
		StudentID: studentID,
		CourseID:  courseID,
		Overall:   *overall,
		Recent: dto.RecentAttendance{
			Days:         s.policy.RecentWindowDays,
			TotalClasses: recent.TotalClasses,
			Present:      recentPresent,
			Percentage:   models.Percentage(recentPresent, recent.TotalClasses),
		},
		ConsecutiveAbsences: streak,
		AtRisk:              s.atRisk(streak, overall.Percentage),
	}, nil
}

// LowAttendance lists students whose effective attendance is strictly below the
// query threshold. A zero threshold uses the configured default.
func (s *AttendanceService) LowAttendance(ctx context.Context, query dto.LowAttendanceQuery) ([]dto.LowAttendanceStudent, error) {
	if err := s.validator.Struct(query); err != nil {
		return nil, validationError(err, "invalid low attendance query")
	}
	threshold := query.Threshold
	if threshold == 0 {
		threshold = s.policy.LowAttendanceThreshold
	}
	tallies, err := s.repo.TallyByStudent(ctx, query.CourseID)
	if err != nil {
		return nil, internalError(err, "failed to tally attendance")
	}

	students := []dto.LowAttendanceStudent{}
	for _, t := range tallies {
		if t.Total == 0 {
			continue
		}
		raw := float64(t.EffectivePresence) / float64(t.Total) * 100
		if raw >= threshold {
			continue
		}
		var group *string
		if t.GradeLevel != nil && t.Section != nil {
			name := models.ClassGroupName(*t.GradeLevel, *t.Section)
			group = &name
		}
		students = append(students, dto.LowAttendanceStudent{
			StudentID:            t.StudentNumber,
			Name:                 t.FullName,
			ClassGroup:           group,
			AttendancePercentage: models.Round2(raw),
			TotalClasses:         t.Total,
		})
	}
	return students, nil
}

// ExportLowAttendance renders the low-attendance report as CSV or PDF and returns
// the body, its content type and a suggested filename.
func (s *AttendanceService) ExportLowAttendance(ctx context.Context, query dto.LowAttendanceQuery) ([]byte, string, string, error) {
	if err := s.validator.Struct(query); err != nil {
		return nil, "", "", validationError(err, "invalid low attendance query")
	}
	format, err := export.ParseFormat(query.Format)
	if err != nil {
		return nil, "", "", appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, err.Error())
	}
	students, err := s.LowAttendance(ctx, query)
	if err != nil {
		return nil, "", "", err
	}

	data := export.Dataset{
		Headers:        []string{"student_id", "name", "class_group", "attendance_percentage", "total_classes"},
		NumericColumns: []string{"attendance_percentage", "total_classes"},
	}
	for _, st := range students {
		group := ""
		if st.ClassGroup != nil {
			group = *st.ClassGroup
		}
		data.Rows = append(data.Rows, map[string]string{
			"student_id":            st.StudentID,
			"name":                  st.Name,
			"class_group":           group,
			"attendance_percentage": strconv.FormatFloat(st.AttendancePercentage, 'f', 2, 64),
			"total_classes":         strconv.Itoa(st.TotalClasses),
		})
	}

	body, err := s.renderer.Render(format, data, "Low Attendance Report")
	if err != nil {
		return nil, "", "", internalError(err, "failed to render low attendance report")
	}
	filename := fmt.Sprintf("low-attendance-%s.%s", dateOnly(s.now()).Format(dateLayout), format)
	return body, format.ContentType(), filename, nil
}
