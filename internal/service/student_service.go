package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/sms-core-api/internal/dto"
	"github.com/noah-isme/sms-core-api/internal/models"
	"github.com/noah-isme/sms-core-api/internal/repository"
)

const dashboardUpcomingLimit = 5

type studentStore interface {
	Create(ctx context.Context, student *models.Student) error
	FindByID(ctx context.Context, id string) (*models.Student, error)
	Update(ctx context.Context, student *models.Student) error
}

type classGroupSeats interface {
	FindByID(ctx context.Context, id string) (*models.ClassGroup, error)
	LockByID(ctx context.Context, id string) (*models.ClassGroup, error)
	CountActiveStudents(ctx context.Context, id string) (int, error)
}

type enrollmentLister interface {
	List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, int, error)
}

type studentProgress interface {
	Progress(ctx context.Context, studentID, courseID string) (*dto.ProgressReport, error)
	GradeSummary(ctx context.Context, studentID, courseID string) (*models.GradeSummary, error)
}

type studentAttendance interface {
	StudentSummary(ctx context.Context, studentID, courseID string) (*dto.StudentAttendanceSummary, error)
}

type upcomingAssignments interface {
	Upcoming(ctx context.Context, studentID string, since time.Time, limit int) ([]models.UpcomingAssignment, error)
}

// StudentService manages student records, class group placement and the student dashboard.
type StudentService struct {
	tx          txRunner
	students    studentStore
	groups      classGroupSeats
	enrollments enrollmentLister
	progress    studentProgress
	attendance  studentAttendance
	assignments upcomingAssignments
	audit       auditLogger
	validator   *validator.Validate
	logger      *zap.Logger
	now         func() time.Time
}

// StudentDeps groups the collaborators of StudentService.
type StudentDeps struct {
	Tx          txRunner
	Students    studentStore
	Groups      classGroupSeats
	Enrollments enrollmentLister
	Progress    studentProgress
	Attendance  studentAttendance
	Assignments upcomingAssignments
	Audit       auditLogger
}

// NewStudentService constructs StudentService.
func NewStudentService(deps StudentDeps, validate *validator.Validate, logger *zap.Logger) *StudentService {
	if validate == nil {
		validate = NewValidator()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StudentService{
		tx:          deps.Tx,
		students:    deps.Students,
		groups:      deps.Groups,
		enrollments: deps.Enrollments,
		progress:    deps.Progress,
		attendance:  deps.Attendance,
		assignments: deps.Assignments,
		audit:       deps.Audit,
		validator:   validate,
		logger:      logger,
		now:         time.Now,
	}
}

// CreateStudent registers an active student. A requested class group must be
// active and have a free seat.
func (s *StudentService) CreateStudent(ctx context.Context, req dto.CreateStudentRequest, actor string) (*models.Student, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid student payload")
	}
	admission, err := parseOptionalDate(req.AdmissionDate, "admission_date")
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()
	student := &models.Student{
		UserID:        req.UserID,
		StudentNumber: strings.TrimSpace(req.StudentID),
		FullName:      strings.TrimSpace(req.FullName),
		Status:        models.StudentStatusActive,
		AdmissionDate: admission,
		Remarks:       req.Remarks,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if req.ClassGroupID != nil {
			group, err := s.claimSeat(ctx, *req.ClassGroupID)
			if err != nil {
				return err
			}
			student.ClassGroupID = &group.ID
		}
		if err := s.students.Create(ctx, student); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return duplicateError(fmt.Sprintf("student id %s already exists", student.StudentNumber))
			}
			return internalError(err, "failed to create student")
		}
		return s.recordAudit(ctx, actor, models.AuditActionStudentCreate, student.ID, nil, student.Snapshot())
	})
	if err != nil {
		return nil, err
	}
	return student, nil
}

// GetStudent returns a student by ID.
func (s *StudentService) GetStudent(ctx context.Context, id string) (*models.Student, error) {
	student, err := s.students.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "student not found", "failed to load student")
	}
	return student, nil
}

// UpdateStudent changes the name, status or remarks of a student.
func (s *StudentService) UpdateStudent(ctx context.Context, id string, req dto.UpdateStudentRequest, actor string) (*models.Student, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid student payload")
	}
	var student *models.Student
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		student, err = s.students.FindByID(ctx, id)
		if err != nil {
			return lookupError(err, "student not found", "failed to load student")
		}
		before := student.Snapshot()
		if req.FullName != nil {
			student.FullName = strings.TrimSpace(*req.FullName)
		}
		if req.Status != nil {
			student.Status = models.StudentStatus(*req.Status)
		}
		if req.Remarks != nil {
			student.Remarks = *req.Remarks
		}
		after := student.Snapshot()
		if len(models.DiffSnapshots(before, after)) == 0 {
			return nil
		}
		student.UpdatedAt = s.now().UTC()
		if err := s.students.Update(ctx, student); err != nil {
			return lookupError(err, "student not found", "failed to update student")
		}
		return s.recordAudit(ctx, actor, models.AuditActionStudentUpdate, student.ID, before, after)
	})
	if err != nil {
		return nil, err
	}
	return student, nil
}

// TransferStudent moves a student into a class group. The group row is locked
// for the capacity check and the move is noted in the student's remarks.
func (s *StudentService) TransferStudent(ctx context.Context, id string, req dto.AssignClassGroupRequest, actor string) (*models.Student, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid class group assignment payload")
	}
	var student *models.Student
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		student, err = s.students.FindByID(ctx, id)
		if err != nil {
			return lookupError(err, "student not found", "failed to load student")
		}
		if student.InClassGroup(req.ClassGroupID) {
			if _, err := s.groups.FindByID(ctx, req.ClassGroupID); err != nil {
				return lookupError(err, "class group not found", "failed to load class group")
			}
			return nil
		}
		target, err := s.claimSeat(ctx, req.ClassGroupID)
		if err != nil {
			return err
		}

		before := student.Snapshot()
		remark := fmt.Sprintf("Assigned to %s on %s.", target.FullName(), dateOnly(s.now()).Format(dateLayout))
		if student.ClassGroupID != nil {
			previous := *student.ClassGroupID
			if group, err := s.groups.FindByID(ctx, previous); err == nil {
				previous = group.FullName()
			}
			remark = fmt.Sprintf("Transferred from %s to %s on %s.", previous, target.FullName(), dateOnly(s.now()).Format(dateLayout))
		}
		if reason := strings.TrimSpace(req.Reason); reason != "" {
			remark += " Reason: " + reason
		}
		student.ClassGroupID = &target.ID
		student.AppendRemark(remark)
		student.UpdatedAt = s.now().UTC()
		if err := s.students.Update(ctx, student); err != nil {
			return lookupError(err, "student not found", "failed to assign class group")
		}
		return s.recordAudit(ctx, actor, models.AuditActionStudentTransfer, student.ID, before, student.Snapshot())
	})
	if err != nil {
		return nil, err
	}
	return student, nil
}

// claimSeat locks an active class group that still has room.
func (s *StudentService) claimSeat(ctx context.Context, groupID string) (*models.ClassGroup, error) {
	group, err := s.groups.LockByID(ctx, groupID)
	if err != nil {
		return nil, lookupError(err, "class group not found", "failed to load class group")
	}
	if !group.Active {
		return nil, businessError("class group is not active")
	}
	count, err := s.groups.CountActiveStudents(ctx, group.ID)
	if err != nil {
		return nil, internalError(err, "failed to count class group students")
	}
	if count >= group.MaxStudents {
		return nil, businessError("class group is at full capacity")
	}
	return group, nil
}

func (s *StudentService) recordAudit(ctx context.Context, actor, action, studentID string, before, after map[string]interface{}) error {
	if s.audit == nil {
		return nil
	}
	entry, err := auditEntry(actor, action, models.AuditResourceStudent, studentID, before, after)
	if err != nil {
		return internalError(err, "failed to encode audit record")
	}
	if err := s.audit.CreateAuditLog(ctx, entry); err != nil {
		return internalError(err, "failed to record audit log")
	}
	return nil
}

// Dashboard gathers the active courses with progress, the attendance and grade
// summaries and the next assignments due for a student.
func (s *StudentService) Dashboard(ctx context.Context, id string) (*dto.StudentDashboard, error) {
	student, err := s.GetStudent(ctx, id)
	if err != nil {
		return nil, err
	}
	board := &dto.StudentDashboard{Student: *student, Courses: []dto.DashboardCourse{}}
	if student.ClassGroupID != nil {
		group, err := s.groups.FindByID(ctx, *student.ClassGroupID)
		if err != nil {
			return nil, lookupError(err, "class group not found", "failed to load class group")
		}
		name := group.FullName()
		board.ClassGroup = &name
	}

	enrollments, _, err := s.enrollments.List(ctx, models.EnrollmentFilter{
		StudentID: id,
		Status:    models.EnrollmentStatusActive,
		PageSize:  100,
	})
	if err != nil {
		return nil, internalError(err, "failed to list enrollments")
	}
	for _, e := range enrollments {
		report, err := s.progress.Progress(ctx, id, e.CourseID)
		if err != nil {
			return nil, err
		}
		board.Courses = append(board.Courses, dto.DashboardCourse{
			EnrollmentID: e.ID,
			CourseID:     e.CourseID,
			Code:         e.CourseCode,
			Title:        e.CourseTitle,
			Progress:     report.Progress,
		})
	}

	attendance, err := s.attendance.StudentSummary(ctx, id, "")
	if err != nil {
		return nil, err
	}
	board.Attendance = *attendance

	grades, err := s.progress.GradeSummary(ctx, id, "")
	if err != nil {
		return nil, err
	}
	board.Grades = *grades

	upcoming, err := s.assignments.Upcoming(ctx, id, dateOnly(s.now()), dashboardUpcomingLimit)
	if err != nil {
		return nil, internalError(err, "failed to list upcoming assignments")
	}
	board.UpcomingAssignments = upcoming
	return board, nil
}
