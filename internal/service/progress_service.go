package service

import (
	"context"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/sms-core-api/internal/dto"
	"github.com/noah-isme/sms-core-api/internal/models"
	"github.com/noah-isme/sms-core-api/pkg/config"
)

const defaultMaxScore = 100

type assignmentStore interface {
	Create(ctx context.Context, assignment *models.Assignment) error
	FindByID(ctx context.Context, id string) (*models.Assignment, error)
	UpsertSubmission(ctx context.Context, submission *models.Submission) (*models.Submission, error)
	CountByCourse(ctx context.Context, courseID string) (int, error)
	CountSubmitted(ctx context.Context, courseID, studentID string) (int, error)
}

type attendanceCounter interface {
	StatusCounts(ctx context.Context, filter models.AttendanceFilter) ([]models.AttendanceStatusCount, error)
}

type gradeRepository interface {
	Create(ctx context.Context, grade *models.Grade) error
	ListForStudent(ctx context.Context, studentID, courseID string) ([]models.ScoredGrade, error)
	CourseStatistics(ctx context.Context, courseID string) (*models.CourseGradeStatistics, error)
}

// ProgressService derives course progress and grade statistics on demand.
type ProgressService struct {
	assignments assignmentStore
	attendance  attendanceCounter
	grades      gradeRepository
	students    studentReader
	courses     courseReader
	enrollments activeEnrollmentChecker
	policy      config.PolicyConfig
	validator   *validator.Validate
	logger      *zap.Logger
	now         func() time.Time
}

// ProgressDeps groups the collaborators of ProgressService.
type ProgressDeps struct {
	Assignments assignmentStore
	Attendance  attendanceCounter
	Grades      gradeRepository
	Students    studentReader
	Courses     courseReader
	Enrollments activeEnrollmentChecker
}

// NewProgressService constructs ProgressService.
func NewProgressService(deps ProgressDeps, policy config.PolicyConfig, validate *validator.Validate, logger *zap.Logger) *ProgressService {
	if validate == nil {
		validate = NewValidator()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProgressService{
		assignments: deps.Assignments,
		attendance:  deps.Attendance,
		grades:      deps.Grades,
		students:    deps.Students,
		courses:     deps.Courses,
		enrollments: deps.Enrollments,
		policy:      policy,
		validator:   validate,
		logger:      logger,
		now:         time.Now,
	}
}

// Progress weighs assignment completion against the present-only attendance rate.
// A course without assignments reports zero progress.
func (s *ProgressService) Progress(ctx context.Context, studentID, courseID string) (*dto.ProgressReport, error) {
	report := &dto.ProgressReport{StudentID: studentID, CourseID: courseID}

	total, err := s.assignments.CountByCourse(ctx, courseID)
	if err != nil {
		return nil, internalError(err, "failed to count assignments")
	}
	if total == 0 {
		return report, nil
	}
	submitted, err := s.assignments.CountSubmitted(ctx, courseID, studentID)
	if err != nil {
		return nil, internalError(err, "failed to count submissions")
	}
	counts, err := s.attendance.StatusCounts(ctx, models.AttendanceFilter{StudentID: studentID, CourseID: courseID})
	if err != nil {
		return nil, internalError(err, "failed to count attendance")
	}
	summary := models.SummarizeAttendance(counts)

	report.TotalAssignments = total
	report.SubmittedAssignments = submitted
	assignmentProgress := float64(submitted) / float64(total) * 100
	var attendanceRate float64
	if summary.TotalClasses > 0 {
		attendanceRate = float64(summary.Present) / float64(summary.TotalClasses) * 100
	}
	report.AssignmentProgress = models.Round2(assignmentProgress)
	report.AttendanceRate = models.Round2(attendanceRate)
	report.Progress = models.Round2(assignmentProgress*s.policy.ProgressAssignmentWeight + attendanceRate*s.policy.ProgressAttendanceWeight)
	return report, nil
}

// GradeSummary aggregates the student's grades, optionally within one course. Each
// grade passes against its own course's passing score.
func (s *ProgressService) GradeSummary(ctx context.Context, studentID, courseID string) (*models.GradeSummary, error) {
	if _, err := s.students.FindByID(ctx, studentID); err != nil {
		return nil, lookupError(err, "student not found", "failed to load student")
	}
	grades, err := s.grades.ListForStudent(ctx, studentID, courseID)
	if err != nil {
		return nil, internalError(err, "failed to load grades")
	}
	summary := models.SummarizeGrades(grades)
	return &summary, nil
}

// AddGrade records a grade regardless of enrollment status.
func (s *ProgressService) AddGrade(ctx context.Context, req dto.AddGradeRequest, actor string) (*models.Grade, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid grade payload")
	}
	date := dateOnly(s.now())
	if req.Date != "" {
		parsed, err := parseDate(req.Date, "date")
		if err != nil {
			return nil, err
		}
		date = parsed
	}
	maxScore := float64(defaultMaxScore)
	if req.MaxScore != nil {
		maxScore = *req.MaxScore
	}
	if *req.Score > maxScore {
		return nil, validationError(nil, "score must not exceed max_score")
	}
	if _, err := s.students.FindByID(ctx, req.StudentID); err != nil {
		return nil, lookupError(err, "student not found", "failed to load student")
	}
	if _, err := s.courses.FindByID(ctx, req.CourseID); err != nil {
		return nil, lookupError(err, "course not found", "failed to load course")
	}

	grade := &models.Grade{
		StudentID:  req.StudentID,
		CourseID:   req.CourseID,
		Score:      *req.Score,
		MaxScore:   maxScore,
		Letter:     req.Grade,
		Date:       date,
		Remarks:    req.Remarks,
		RecordedBy: optionalString(actor),
	}
	if err := s.grades.Create(ctx, grade); err != nil {
		return nil, internalError(err, "failed to record grade")
	}
	return grade, nil
}

// CourseGradeStatistics summarises every grade recorded in a course.
func (s *ProgressService) CourseGradeStatistics(ctx context.Context, courseID string) (*models.CourseGradeStatistics, error) {
	if _, err := s.courses.FindByID(ctx, courseID); err != nil {
		return nil, lookupError(err, "course not found", "failed to load course")
	}
	stats, err := s.grades.CourseStatistics(ctx, courseID)
	if err != nil {
		return nil, internalError(err, "failed to compute grade statistics")
	}
	return stats, nil
}

// CreateAssignment adds coursework to a course. MaxScore defaults to 100.
func (s *ProgressService) CreateAssignment(ctx context.Context, req dto.CreateAssignmentRequest) (*models.Assignment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid assignment payload")
	}
	due, err := parseOptionalDate(req.DueDate, "due_date")
	if err != nil {
		return nil, err
	}
	if _, err := s.courses.FindByID(ctx, req.CourseID); err != nil {
		return nil, lookupError(err, "course not found", "failed to load course")
	}
	assignment := &models.Assignment{
		CourseID:  req.CourseID,
		Title:     strings.TrimSpace(req.Title),
		DueDate:   due,
		MaxScore:  defaultMaxScore,
		CreatedAt: s.now().UTC(),
	}
	if req.MaxScore != nil {
		assignment.MaxScore = *req.MaxScore
	}
	if err := s.assignments.Create(ctx, assignment); err != nil {
		return nil, internalError(err, "failed to create assignment")
	}
	return assignment, nil
}

// SubmitAssignment records a hand-in from a student actively enrolled in the
// assignment's course. A resubmission replaces the earlier score.
func (s *ProgressService) SubmitAssignment(ctx context.Context, assignmentID string, req dto.SubmitAssignmentRequest) (*models.Submission, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid submission payload")
	}
	assignment, err := s.assignments.FindByID(ctx, assignmentID)
	if err != nil {
		return nil, lookupError(err, "assignment not found", "failed to load assignment")
	}
	if req.Score != nil && *req.Score > assignment.MaxScore {
		return nil, validationError(nil, "score must not exceed the assignment max_score")
	}
	if _, err := s.students.FindByID(ctx, req.StudentID); err != nil {
		return nil, lookupError(err, "student not found", "failed to load student")
	}
	enrolled, err := s.enrollments.ExistsActive(ctx, req.StudentID, assignment.CourseID)
	if err != nil {
		return nil, internalError(err, "failed to verify enrollment")
	}
	if !enrolled {
		return nil, businessError("student is not actively enrolled in this course")
	}
	submission, err := s.assignments.UpsertSubmission(ctx, &models.Submission{
		AssignmentID: assignment.ID,
		StudentID:    req.StudentID,
		Score:        req.Score,
		SubmittedAt:  s.now().UTC(),
	})
	if err != nil {
		return nil, internalError(err, "failed to record submission")
	}
	return submission, nil
}
