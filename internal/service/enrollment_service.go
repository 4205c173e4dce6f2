package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/sms-core-api/internal/dto"
	"github.com/noah-isme/sms-core-api/internal/models"
	"github.com/noah-isme/sms-core-api/internal/repository"
	"github.com/noah-isme/sms-core-api/pkg/config"
)

const (
	enrollmentStatsPrefix  = "enrollment:stats:"
	enrollmentStatsPattern = enrollmentStatsPrefix + "*"

	msgAlreadyEnrolled   = "Student is already enrolled in this course"
	msgBulkEnrollUnknown = "unexpected error while enrolling student"
)

type enrollmentRepository interface {
	List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, int, error)
	FindByID(ctx context.Context, id string) (*models.Enrollment, error)
	FindByStudentAndCourse(ctx context.Context, studentID, courseID string) (*models.Enrollment, error)
	FindDetailByID(ctx context.Context, id string) (*models.EnrollmentDetail, error)
	Create(ctx context.Context, enrollment *models.Enrollment) error
	Save(ctx context.Context, enrollment *models.Enrollment, expected models.EnrollmentStatus) error
	CountByStatus(ctx context.Context, courseID string) (map[models.EnrollmentStatus]int, error)
}

type studentReader interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
}

type courseLocker interface {
	FindByID(ctx context.Context, id string) (*models.Course, error)
	LockByID(ctx context.Context, id string) (*models.Course, error)
	CountActiveEnrollments(ctx context.Context, courseID string) (int, error)
}

type eligibilityChecker interface {
	CheckEligibility(ctx context.Context, student *models.Student, course *models.Course) (bool, string, error)
}

type enrollmentNotifier interface {
	NotifyEnrollment(ctx context.Context, enrollment *models.Enrollment) error
}

type progressCalculator interface {
	Progress(ctx context.Context, studentID, courseID string) (*dto.ProgressReport, error)
}

// EnrollmentService is the capacity and eligibility gate for course seats and
// owns every enrollment status change.
type EnrollmentService struct {
	tx          txRunner
	repo        enrollmentRepository
	students    studentReader
	courses     courseLocker
	eligibility eligibilityChecker
	audit       auditLogger
	notifier    enrollmentNotifier
	progress    progressCalculator
	cache       *CacheService
	metrics     *MetricsService
	policy      config.PolicyConfig
	validator   *validator.Validate
	logger      *zap.Logger
	now         func() time.Time
}

// EnrollmentDeps groups the collaborators of EnrollmentService.
type EnrollmentDeps struct {
	Tx          txRunner
	Repo        enrollmentRepository
	Students    studentReader
	Courses     courseLocker
	Eligibility eligibilityChecker
	Audit       auditLogger
	Notifier    enrollmentNotifier
	Progress    progressCalculator
	Cache       *CacheService
	Metrics     *MetricsService
}

// NewEnrollmentService constructs EnrollmentService.
func NewEnrollmentService(deps EnrollmentDeps, policy config.PolicyConfig, validate *validator.Validate, logger *zap.Logger) *EnrollmentService {
	if validate == nil {
		validate = NewValidator()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EnrollmentService{
		tx:          deps.Tx,
		repo:        deps.Repo,
		students:    deps.Students,
		courses:     deps.Courses,
		eligibility: deps.Eligibility,
		audit:       deps.Audit,
		notifier:    deps.Notifier,
		progress:    deps.Progress,
		cache:       deps.Cache,
		metrics:     deps.Metrics,
		policy:      policy,
		validator:   validate,
		logger:      logger,
		now:         time.Now,
	}
}

func (s *EnrollmentService) today() time.Time {
	return dateOnly(s.now())
}

// Enroll places a student into a course. An existing withdrawn row is reactivated
// in place; any other existing row is a duplicate.
func (s *EnrollmentService) Enroll(ctx context.Context, req dto.EnrollRequest, actor string) (*models.Enrollment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid enrollment payload")
	}

	var (
		result  *models.Enrollment
		created bool
	)
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		student, err := s.students.FindByID(ctx, req.StudentID)
		if err != nil {
			return lookupError(err, "student not found", "failed to load student")
		}
		course, err := s.courses.LockByID(ctx, req.CourseID)
		if err != nil {
			return lookupError(err, "course not found", "failed to load course")
		}

		existing, err := s.repo.FindByStudentAndCourse(ctx, student.ID, course.ID)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return internalError(err, "failed to load enrollment")
		}
		if existing != nil {
			switch existing.Status {
			case models.EnrollmentStatusActive:
				return duplicateError(msgAlreadyEnrolled)
			case models.EnrollmentStatusWithdrawn:
				if s.policy.RevalidateReactivation {
					if err := s.checkEligibility(ctx, student, course); err != nil {
						return err
					}
				}
				result, err = s.reactivate(ctx, existing, actor)
				return err
			default:
				return duplicateError(fmt.Sprintf("Cannot enroll - current status: %s", existing.Status))
			}
		}

		if err := s.checkEligibility(ctx, student, course); err != nil {
			return err
		}
		enrollment := &models.Enrollment{
			StudentID:      student.ID,
			CourseID:       course.ID,
			Status:         models.EnrollmentStatusActive,
			EnrollmentDate: s.today(),
			EnrolledBy:     optionalString(actor),
		}
		if err := s.repo.Create(ctx, enrollment); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return duplicateError(msgAlreadyEnrolled)
			}
			return internalError(err, "failed to create enrollment")
		}
		if err := s.recordAudit(ctx, actor, models.AuditActionEnrollmentCreate, enrollment.ID, nil, enrollment.Snapshot()); err != nil {
			return err
		}
		result, created = enrollment, true
		return nil
	})
	s.afterWrite(ctx, "enroll", err)
	if err != nil {
		return nil, err
	}

	if created && s.notifier != nil {
		if err := s.notifier.NotifyEnrollment(ctx, result); err != nil {
			s.logger.Warn("failed to enqueue enrollment notification", zap.String("enrollment_id", result.ID), zap.Error(err))
		}
	}
	return result, nil
}

func (s *EnrollmentService) checkEligibility(ctx context.Context, student *models.Student, course *models.Course) error {
	ok, reason, err := s.eligibility.CheckEligibility(ctx, student, course)
	if err != nil {
		return err
	}
	if !ok {
		return businessError(reason)
	}
	return nil
}

func (s *EnrollmentService) reactivate(ctx context.Context, enrollment *models.Enrollment, actor string) (*models.Enrollment, error) {
	before := enrollment.Snapshot()
	if err := enrollment.Transition(models.EnrollmentStatusActive); err != nil {
		return nil, businessError(err.Error())
	}
	enrollment.EnrollmentDate = s.today()
	if err := s.save(ctx, enrollment, models.EnrollmentStatusWithdrawn, "Cannot enroll - enrollment changed concurrently"); err != nil {
		return nil, err
	}
	if err := s.recordAudit(ctx, actor, models.AuditActionEnrollmentReactivate, enrollment.ID, before, enrollment.Snapshot()); err != nil {
		return nil, err
	}
	return enrollment, nil
}

// BulkEnroll enrolls each student in input order. Every student is its own unit of
// work: failures are collected and never undo earlier successes.
func (s *EnrollmentService) BulkEnroll(ctx context.Context, req dto.BulkEnrollRequest, actor string) (*dto.BulkEnrollResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid bulk enrollment payload")
	}
	result := &dto.BulkEnrollResult{Succeeded: []models.Enrollment{}, Failed: []dto.BulkFailure{}}
	for _, studentID := range req.StudentIDs {
		var enrollment *models.Enrollment
		err := isolate(func() error {
			var err error
			enrollment, err = s.Enroll(ctx, dto.EnrollRequest{StudentID: studentID, CourseID: req.CourseID}, actor)
			return err
		})
		if err != nil {
			reason, expected := bulkReason(err, msgBulkEnrollUnknown)
			if !expected {
				s.logger.Error("bulk enrollment item failed", zap.String("student_id", studentID), zap.String("course_id", req.CourseID), zap.Error(err))
			}
			s.metrics.RecordBulkFailure("enroll")
			result.Failed = append(result.Failed, dto.BulkFailure{StudentID: studentID, Reason: reason})
			continue
		}
		result.Succeeded = append(result.Succeeded, *enrollment)
	}
	return result, nil
}

// Withdraw moves an active enrollment to withdrawn and records the reason in its notes.
func (s *EnrollmentService) Withdraw(ctx context.Context, id string, req dto.WithdrawRequest, actor string) (*models.Enrollment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid withdrawal payload")
	}
	return s.transition(ctx, id, actor, transitionSpec{
		operation: "withdraw",
		action:    models.AuditActionEnrollmentWithdraw,
		target:    models.EnrollmentStatusWithdrawn,
		rejected:  func(e *models.Enrollment) string { return fmt.Sprintf("Cannot withdraw - enrollment is %s", e.Status) },
		apply: func(ctx context.Context, e *models.Enrollment) (map[string]interface{}, error) {
			if req.Reason != "" {
				e.AppendNote("Withdrawn: " + req.Reason)
			}
			return map[string]interface{}{"status": string(e.Status), "reason": req.Reason}, nil
		},
	})
}

// Complete closes an active enrollment with its final score and grade.
func (s *EnrollmentService) Complete(ctx context.Context, id string, req dto.CompleteRequest, actor string) (*models.Enrollment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid completion payload")
	}
	return s.transition(ctx, id, actor, transitionSpec{
		operation: "complete",
		action:    models.AuditActionEnrollmentComplete,
		target:    models.EnrollmentStatusCompleted,
		rejected:  func(*models.Enrollment) string { return "Only active enrollments can be completed" },
		apply: func(ctx context.Context, e *models.Enrollment) (map[string]interface{}, error) {
			today := s.today()
			e.CompletionDate = &today
			e.FinalScore = req.FinalScore
			e.FinalGrade = req.FinalGrade
			var score interface{}
			if req.FinalScore != nil {
				score = *req.FinalScore
			}
			return map[string]interface{}{"status": string(e.Status), "final_score": score, "final_grade": req.FinalGrade}, nil
		},
	})
}

// Drop moves an active enrollment to dropped.
func (s *EnrollmentService) Drop(ctx context.Context, id string, req dto.DropRequest, actor string) (*models.Enrollment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid drop payload")
	}
	return s.transition(ctx, id, actor, transitionSpec{
		operation: "drop",
		action:    models.AuditActionEnrollmentDrop,
		target:    models.EnrollmentStatusDropped,
		rejected:  func(e *models.Enrollment) string { return fmt.Sprintf("Cannot drop - enrollment is %s", e.Status) },
		apply: func(ctx context.Context, e *models.Enrollment) (map[string]interface{}, error) {
			if req.Reason != "" {
				e.AppendNote("Dropped: " + req.Reason)
			}
			return map[string]interface{}{"status": string(e.Status), "reason": req.Reason}, nil
		},
	})
}

// Activate admits a pending enrollment, subject to the course's live capacity.
func (s *EnrollmentService) Activate(ctx context.Context, id, actor string) (*models.Enrollment, error) {
	return s.transition(ctx, id, actor, transitionSpec{
		operation: "activate",
		action:    models.AuditActionEnrollmentActivate,
		target:    models.EnrollmentStatusActive,
		rejected:  func(e *models.Enrollment) string { return fmt.Sprintf("Cannot activate - enrollment is %s", e.Status) },
		apply: func(ctx context.Context, e *models.Enrollment) (map[string]interface{}, error) {
			course, err := s.courses.LockByID(ctx, e.CourseID)
			if err != nil {
				return nil, lookupError(err, "course not found", "failed to load course")
			}
			count, err := s.courses.CountActiveEnrollments(ctx, course.ID)
			if err != nil {
				return nil, internalError(err, "failed to count course enrollments")
			}
			if count >= course.MaxStudents {
				return nil, businessError(reasonCourseFull)
			}
			return e.Snapshot(), nil
		},
	})
}

type transitionSpec struct {
	operation string
	action    string
	target    models.EnrollmentStatus
	rejected  func(*models.Enrollment) string
	// apply mutates the enrollment after the status change and returns the audited new state.
	apply func(ctx context.Context, e *models.Enrollment) (map[string]interface{}, error)
}

func (s *EnrollmentService) transition(ctx context.Context, id, actor string, spec transitionSpec) (*models.Enrollment, error) {
	var result *models.Enrollment
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		enrollment, err := s.repo.FindByID(ctx, id)
		if err != nil {
			return lookupError(err, "enrollment not found", "failed to load enrollment")
		}
		rejected := spec.rejected(enrollment)
		expected := enrollment.Status
		before := map[string]interface{}{"status": string(expected)}
		if err := enrollment.Transition(spec.target); err != nil {
			return businessError(rejected)
		}
		after, err := spec.apply(ctx, enrollment)
		if err != nil {
			return err
		}
		if err := s.save(ctx, enrollment, expected, rejected); err != nil {
			return err
		}
		if err := s.recordAudit(ctx, actor, spec.action, enrollment.ID, before, after); err != nil {
			return err
		}
		result = enrollment
		return nil
	})
	s.afterWrite(ctx, spec.operation, err)
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *EnrollmentService) save(ctx context.Context, enrollment *models.Enrollment, expected models.EnrollmentStatus, rejected string) error {
	if err := s.repo.Save(ctx, enrollment, expected); err != nil {
		if errors.Is(err, repository.ErrStaleStatus) {
			return businessError(rejected)
		}
		return internalError(err, "failed to update enrollment")
	}
	return nil
}

func (s *EnrollmentService) recordAudit(ctx context.Context, actor, action, enrollmentID string, before, after map[string]interface{}) error {
	if s.audit == nil {
		return nil
	}
	entry, err := auditEntry(actor, action, models.AuditResourceEnrollment, enrollmentID, before, after)
	if err != nil {
		return internalError(err, "failed to encode audit record")
	}
	if err := s.audit.CreateAuditLog(ctx, entry); err != nil {
		return internalError(err, "failed to record audit log")
	}
	return nil
}

// afterWrite runs once the transaction has settled: cached statistics are dropped
// after successful writes, and every outcome is counted.
func (s *EnrollmentService) afterWrite(ctx context.Context, operation string, err error) {
	s.metrics.RecordEnrollmentOperation(operation, outcome(err))
	if err != nil {
		return
	}
	_ = s.cache.Invalidate(ctx, enrollmentStatsPattern)
}

// Get returns an enrollment with student and course display fields.
func (s *EnrollmentService) Get(ctx context.Context, id string) (*models.EnrollmentDetail, error) {
	detail, err := s.repo.FindDetailByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "enrollment not found", "failed to load enrollment")
	}
	return detail, nil
}

// List returns enrollments with pagination metadata.
func (s *EnrollmentService) List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, *models.Pagination, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, nil, validationError(nil, fmt.Sprintf("unknown enrollment status %q", filter.Status))
	}
	enrollments, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, internalError(err, "failed to list enrollments")
	}
	return enrollments, newPagination(filter.Page, filter.PageSize, total), nil
}

// Statistics counts enrollments by status, optionally for one course.
func (s *EnrollmentService) Statistics(ctx context.Context, courseID string) (*models.EnrollmentStatistics, error) {
	key := enrollmentStatsPrefix + "all"
	if courseID != "" {
		key = enrollmentStatsPrefix + courseID
		if _, err := s.courses.FindByID(ctx, courseID); err != nil {
			return nil, lookupError(err, "course not found", "failed to load course")
		}
	}

	var cached models.EnrollmentStatistics
	if hit, _ := s.cache.Get(ctx, key, &cached); hit {
		return &cached, nil
	}

	counts, err := s.repo.CountByStatus(ctx, courseID)
	if err != nil {
		return nil, internalError(err, "failed to compute enrollment statistics")
	}
	stats := models.NewEnrollmentStatistics(counts)
	_ = s.cache.Set(ctx, key, stats, 0)
	return &stats, nil
}

// Progress returns the weighted progress of the enrollment's student in its course.
func (s *EnrollmentService) Progress(ctx context.Context, id string) (*dto.ProgressReport, error) {
	enrollment, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "enrollment not found", "failed to load enrollment")
	}
	return s.progress.Progress(ctx, enrollment.StudentID, enrollment.CourseID)
}
