package service

import (
	"context"
	"database/sql"
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

const (
	defaultClassGroupCapacity = 40
	defaultCourseCapacity     = 30
	defaultCourseCredits      = 3
	defaultPassingScore       = 60
)

// Eligibility reasons, in evaluation order.
const (
	reasonCourseInactive     = "Course is not active"
	reasonNoActiveTeacher    = "Course has no active teacher"
	reasonCourseFull         = "Course is at full capacity"
	reasonPrerequisites      = "Prerequisites not met: %s"
	reasonClassGroupMismatch = "Course is not available for your class"
)

type classGroupStore interface {
	Create(ctx context.Context, group *models.ClassGroup) error
	FindByID(ctx context.Context, id string) (*models.ClassGroup, error)
	LockByID(ctx context.Context, id string) (*models.ClassGroup, error)
	CountActiveStudents(ctx context.Context, id string) (int, error)
	List(ctx context.Context, filter models.ClassGroupFilter) ([]models.ClassGroupDetail, int, error)
}

type courseStore interface {
	Create(ctx context.Context, course *models.Course) error
	FindByID(ctx context.Context, id string) (*models.Course, error)
	LockByID(ctx context.Context, id string) (*models.Course, error)
	CountActiveEnrollments(ctx context.Context, courseID string) (int, error)
	PrerequisiteIDs(ctx context.Context, courseID string) ([]string, error)
	ReplacePrerequisites(ctx context.Context, courseID string, prerequisiteIDs []string) error
	CountExisting(ctx context.Context, ids []string) (int, error)
	UnmetPrerequisites(ctx context.Context, courseID, studentID string) ([]models.Course, error)
	List(ctx context.Context, filter models.CourseFilter) ([]models.CourseDetail, int, error)
}

type teacherStore interface {
	Create(ctx context.Context, teacher *models.Teacher) error
	FindByID(ctx context.Context, id string) (*models.Teacher, error)
}

// CatalogService manages class groups and courses and evaluates enrollment eligibility.
type CatalogService struct {
	tx        txRunner
	groups    classGroupStore
	courses   courseStore
	teachers  teacherStore
	students  studentReader
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewCatalogService constructs CatalogService.
func NewCatalogService(tx txRunner, groups classGroupStore, courses courseStore, teachers teacherStore, students studentReader, validate *validator.Validate, logger *zap.Logger) *CatalogService {
	if validate == nil {
		validate = NewValidator()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CatalogService{tx: tx, groups: groups, courses: courses, teachers: teachers, students: students, validator: validate, logger: logger, now: time.Now}
}

// CreateClassGroup registers a class group.
func (s *CatalogService) CreateClassGroup(ctx context.Context, req dto.CreateClassGroupRequest) (*models.ClassGroupDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid class group payload")
	}
	group := &models.ClassGroup{
		GradeLevel:     req.GradeLevel,
		Section:        strings.TrimSpace(req.Section),
		AcademicYear:   strings.TrimSpace(req.AcademicYear),
		MaxStudents:    req.MaxStudents,
		ClassTeacherID: req.ClassTeacherID,
		RoomNumber:     req.RoomNumber,
		Active:         true,
	}
	if group.MaxStudents == 0 {
		group.MaxStudents = defaultClassGroupCapacity
	}
	if err := s.groups.Create(ctx, group); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, duplicateError(fmt.Sprintf("%s already exists for %s", group.FullName(), group.AcademicYear))
		}
		return nil, internalError(err, "failed to create class group")
	}
	detail := &models.ClassGroupDetail{ClassGroup: *group}
	detail.Fill()
	return detail, nil
}

// GetClassGroup returns a class group with live occupancy.
func (s *CatalogService) GetClassGroup(ctx context.Context, id string) (*models.ClassGroupDetail, error) {
	group, err := s.groups.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "class group not found", "failed to load class group")
	}
	count, err := s.groups.CountActiveStudents(ctx, id)
	if err != nil {
		return nil, internalError(err, "failed to count class group students")
	}
	detail := &models.ClassGroupDetail{ClassGroup: *group, CurrentStudentsCount: count}
	detail.Fill()
	return detail, nil
}

// ListClassGroups returns class groups with pagination metadata.
func (s *CatalogService) ListClassGroups(ctx context.Context, filter models.ClassGroupFilter) ([]models.ClassGroupDetail, *models.Pagination, error) {
	groups, total, err := s.groups.List(ctx, filter)
	if err != nil {
		return nil, nil, internalError(err, "failed to list class groups")
	}
	return groups, newPagination(filter.Page, filter.PageSize, total), nil
}

// CreateTeacher registers an active teacher.
func (s *CatalogService) CreateTeacher(ctx context.Context, req dto.CreateTeacherRequest) (*models.Teacher, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid teacher payload")
	}
	now := s.now().UTC()
	teacher := &models.Teacher{
		UserID:     req.UserID,
		EmployeeID: strings.TrimSpace(req.EmployeeID),
		FullName:   strings.TrimSpace(req.FullName),
		Active:     true,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.teachers.Create(ctx, teacher); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, duplicateError(fmt.Sprintf("employee id %s already exists", teacher.EmployeeID))
		}
		return nil, internalError(err, "failed to create teacher")
	}
	return teacher, nil
}

// CreateCourse registers a course.
func (s *CatalogService) CreateCourse(ctx context.Context, req dto.CreateCourseRequest) (*models.CourseDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid course payload")
	}
	start, err := parseOptionalDate(req.StartDate, "start_date")
	if err != nil {
		return nil, err
	}
	end, err := parseOptionalDate(req.EndDate, "end_date")
	if err != nil {
		return nil, err
	}
	if start != nil && end != nil && end.Before(*start) {
		return nil, validationError(nil, "end_date must not be before start_date")
	}

	course := &models.Course{
		Code:         strings.TrimSpace(req.Code),
		Title:        strings.TrimSpace(req.Title),
		Description:  req.Description,
		Credits:      req.Credits,
		TeacherID:    req.TeacherID,
		ClassGroupID: req.ClassGroupID,
		MaxStudents:  req.MaxStudents,
		PassingScore: defaultPassingScore,
		StartDate:    start,
		EndDate:      end,
		Active:       true,
	}
	if course.Credits == 0 {
		course.Credits = defaultCourseCredits
	}
	if course.MaxStudents == 0 {
		course.MaxStudents = defaultCourseCapacity
	}
	if req.PassingScore != nil {
		course.PassingScore = *req.PassingScore
	}

	if course.TeacherID != nil {
		if _, err := s.teachers.FindByID(ctx, *course.TeacherID); err != nil {
			return nil, lookupError(err, "teacher not found", "failed to load teacher")
		}
	}
	if course.ClassGroupID != nil {
		if _, err := s.groups.FindByID(ctx, *course.ClassGroupID); err != nil {
			return nil, lookupError(err, "class group not found", "failed to load class group")
		}
	}

	if err := s.courses.Create(ctx, course); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, duplicateError(fmt.Sprintf("course code %s already exists", course.Code))
		}
		return nil, internalError(err, "failed to create course")
	}
	detail := &models.CourseDetail{Course: *course}
	detail.Fill()
	return detail, nil
}

// GetCourse returns a course with live seat accounting and its prerequisites.
func (s *CatalogService) GetCourse(ctx context.Context, id string) (*models.CourseDetail, error) {
	course, err := s.courses.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "course not found", "failed to load course")
	}
	count, err := s.courses.CountActiveEnrollments(ctx, id)
	if err != nil {
		return nil, internalError(err, "failed to count course enrollments")
	}
	prereqs, err := s.courses.PrerequisiteIDs(ctx, id)
	if err != nil {
		return nil, internalError(err, "failed to load prerequisites")
	}
	detail := &models.CourseDetail{Course: *course, EnrolledCount: count, PrerequisiteIDs: prereqs}
	detail.Fill()
	return detail, nil
}

// ListCourses returns courses with pagination metadata.
func (s *CatalogService) ListCourses(ctx context.Context, filter models.CourseFilter) ([]models.CourseDetail, *models.Pagination, error) {
	courses, total, err := s.courses.List(ctx, filter)
	if err != nil {
		return nil, nil, internalError(err, "failed to list courses")
	}
	return courses, newPagination(filter.Page, filter.PageSize, total), nil
}

// SetPrerequisites replaces the prerequisite set of a course. Cycles are not detected.
func (s *CatalogService) SetPrerequisites(ctx context.Context, courseID string, req dto.SetPrerequisitesRequest) (*models.CourseDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid prerequisites payload")
	}
	ids := uniqueStrings(req.PrerequisiteIDs)
	for _, id := range ids {
		if id == courseID {
			return nil, validationError(nil, "a course cannot be its own prerequisite")
		}
	}

	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if _, err := s.courses.FindByID(ctx, courseID); err != nil {
			return lookupError(err, "course not found", "failed to load course")
		}
		if len(ids) > 0 {
			found, err := s.courses.CountExisting(ctx, ids)
			if err != nil {
				return internalError(err, "failed to verify prerequisites")
			}
			if found != len(ids) {
				return notFoundError("one or more prerequisite courses not found")
			}
		}
		if err := s.courses.ReplacePrerequisites(ctx, courseID, ids); err != nil {
			return internalError(err, "failed to update prerequisites")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.GetCourse(ctx, courseID)
}

// CheckEligibility evaluates the enrollment gate for a student without a prior
// enrollment row. The first unmet condition wins and is returned as the reason.
func (s *CatalogService) CheckEligibility(ctx context.Context, student *models.Student, course *models.Course) (bool, string, error) {
	if !course.Active {
		return false, reasonCourseInactive, nil
	}

	if course.TeacherID == nil {
		return false, reasonNoActiveTeacher, nil
	}
	teacher, err := s.teachers.FindByID(ctx, *course.TeacherID)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return false, "", internalError(err, "failed to load course teacher")
	}
	if teacher == nil || !teacher.Active {
		return false, reasonNoActiveTeacher, nil
	}

	enrolled, err := s.courses.CountActiveEnrollments(ctx, course.ID)
	if err != nil {
		return false, "", internalError(err, "failed to count course enrollments")
	}
	if enrolled >= course.MaxStudents {
		return false, reasonCourseFull, nil
	}

	unmet, err := s.courses.UnmetPrerequisites(ctx, course.ID, student.ID)
	if err != nil {
		return false, "", internalError(err, "failed to check prerequisites")
	}
	if len(unmet) > 0 {
		titles := make([]string, 0, len(unmet))
		for _, c := range unmet {
			titles = append(titles, c.Title)
		}
		return false, fmt.Sprintf(reasonPrerequisites, strings.Join(titles, ", ")), nil
	}

	if course.ClassGroupID != nil && !student.InClassGroup(*course.ClassGroupID) {
		return false, reasonClassGroupMismatch, nil
	}
	return true, "", nil
}

// Eligibility resolves both entities and explains whether the student may enroll.
func (s *CatalogService) Eligibility(ctx context.Context, courseID, studentID string) (*dto.EligibilityResult, error) {
	student, err := s.students.FindByID(ctx, studentID)
	if err != nil {
		return nil, lookupError(err, "student not found", "failed to load student")
	}
	course, err := s.courses.FindByID(ctx, courseID)
	if err != nil {
		return nil, lookupError(err, "course not found", "failed to load course")
	}
	ok, reason, err := s.CheckEligibility(ctx, student, course)
	if err != nil {
		return nil, err
	}
	return &dto.EligibilityResult{Eligible: ok, Reason: reason}, nil
}

func uniqueStrings(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
