package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sms-core-api/internal/dto"
	"github.com/noah-isme/sms-core-api/internal/models"
	appErrors "github.com/noah-isme/sms-core-api/pkg/errors"
)

func newCatalogFixture() (*CatalogService, *fakeSchool) {
	school := newFakeSchool()
	svc := NewCatalogService(&fakeTx{}, fakeGroups{school}, fakeCourses{school}, fakeTeachers{school}, fakeStudents{school}, nil, nil)
	return svc, school
}

func TestCreateClassGroupDefaultsAndDuplicate(t *testing.T) {
	svc, _ := newCatalogFixture()
	ctx := context.Background()

	group, err := svc.CreateClassGroup(ctx, dto.CreateClassGroupRequest{GradeLevel: 10, Section: "A", AcademicYear: "2024/2025"})
	require.NoError(t, err)
	assert.Equal(t, 40, group.MaxStudents)
	assert.Equal(t, "Grade 10 - Section A", group.FullName)
	assert.Equal(t, 40, group.AvailableSeats)

	_, err = svc.CreateClassGroup(ctx, dto.CreateClassGroupRequest{GradeLevel: 10, Section: "A", AcademicYear: "2024/2025"})
	assert.True(t, appErrors.HasCode(err, appErrors.ErrDuplicate))

	_, err = svc.CreateClassGroup(ctx, dto.CreateClassGroupRequest{GradeLevel: 13, Section: "A", AcademicYear: "2024/2025"})
	assert.True(t, appErrors.HasCode(err, appErrors.ErrValidation))
}

func TestCreateTeacherRejectsTakenEmployeeID(t *testing.T) {
	svc, school := newCatalogFixture()
	ctx := context.Background()

	teacher, err := svc.CreateTeacher(ctx, dto.CreateTeacherRequest{EmployeeID: " EMP-7 ", FullName: "Grace Hopper"})
	require.NoError(t, err)
	assert.True(t, teacher.Active)
	assert.Equal(t, "EMP-7", teacher.EmployeeID)
	assert.Contains(t, school.teachers, teacher.ID)

	_, err = svc.CreateTeacher(ctx, dto.CreateTeacherRequest{EmployeeID: "EMP-7", FullName: "Someone Else"})
	assert.True(t, appErrors.HasCode(err, appErrors.ErrDuplicate))

	_, err = svc.CreateTeacher(ctx, dto.CreateTeacherRequest{FullName: "No Number"})
	assert.True(t, appErrors.HasCode(err, appErrors.ErrValidation))
}

func TestCreateCourseDefaults(t *testing.T) {
	svc, school := newCatalogFixture()
	school.addTeacher("t1", true)
	teacher := "t1"

	course, err := svc.CreateCourse(context.Background(), dto.CreateCourseRequest{Code: "MATH101", Title: "Algebra", TeacherID: &teacher})
	require.NoError(t, err)
	assert.Equal(t, 30, course.MaxStudents)
	assert.Equal(t, 3, course.Credits)
	assert.Equal(t, float64(60), course.PassingScore)
	assert.True(t, course.Active)

	_, err = svc.CreateCourse(context.Background(), dto.CreateCourseRequest{Code: "MATH101", Title: "Again"})
	assert.True(t, appErrors.HasCode(err, appErrors.ErrDuplicate))

	missing := "nobody"
	_, err = svc.CreateCourse(context.Background(), dto.CreateCourseRequest{Code: "BIO", Title: "Biology", TeacherID: &missing})
	assert.True(t, appErrors.HasCode(err, appErrors.ErrNotFound))
}

func TestSetPrerequisites(t *testing.T) {
	svc, school := newCatalogFixture()
	ctx := context.Background()
	school.addCourse("c1", 30, "")
	school.addCourse("c2", 30, "")

	_, err := svc.SetPrerequisites(ctx, "c2", dto.SetPrerequisitesRequest{PrerequisiteIDs: []string{"c2"}})
	assert.True(t, appErrors.HasCode(err, appErrors.ErrValidation))

	_, err = svc.SetPrerequisites(ctx, "c2", dto.SetPrerequisitesRequest{PrerequisiteIDs: []string{"c1", "ghost"}})
	assert.True(t, appErrors.HasCode(err, appErrors.ErrNotFound))

	detail, err := svc.SetPrerequisites(ctx, "c2", dto.SetPrerequisitesRequest{PrerequisiteIDs: []string{"c1", "c1"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"c1"}, detail.PrerequisiteIDs)
}

func TestCheckEligibilityOrder(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name   string
		setup  func(school *fakeSchool)
		reason string
	}{
		{
			name:   "inactive course",
			setup:  func(s *fakeSchool) { s.courses["c1"].Active = false },
			reason: "Course is not active",
		},
		{
			name:   "no teacher",
			setup:  func(s *fakeSchool) { s.courses["c1"].TeacherID = nil },
			reason: "Course has no active teacher",
		},
		{
			name:   "inactive teacher",
			setup:  func(s *fakeSchool) { s.teachers["t1"].Active = false },
			reason: "Course has no active teacher",
		},
		{
			name: "full course",
			setup: func(s *fakeSchool) {
				s.courses["c1"].MaxStudents = 1
				s.addStudent("s9", "ST-9", models.StudentStatusActive, "")
				s.addEnrollment("e9", "s9", "c1", models.EnrollmentStatusActive)
			},
			reason: "Course is at full capacity",
		},
		{
			name: "unmet prerequisites listed by title",
			setup: func(s *fakeSchool) {
				s.addCourse("p2", 30, "").Title = "Physics"
				s.addCourse("p1", 30, "").Title = "Algebra"
				s.prereqs["c1"] = []string{"p2", "p1"}
			},
			reason: "Prerequisites not met: Algebra, Physics",
		},
		{
			name: "class group mismatch",
			setup: func(s *fakeSchool) {
				group := "g2"
				s.courses["c1"].ClassGroupID = &group
			},
			reason: "Course is not available for your class",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, school := newCatalogFixture()
			school.addTeacher("t1", true)
			school.addCourse("c1", 30, "t1")
			school.addStudent("s1", "ST-1", models.StudentStatusActive, "g1")
			tt.setup(school)

			result, err := svc.Eligibility(ctx, "c1", "s1")
			require.NoError(t, err)
			assert.False(t, result.Eligible)
			assert.Equal(t, tt.reason, result.Reason)
		})
	}
}

func TestCheckEligibilityPassesWithCompletedPrerequisite(t *testing.T) {
	svc, school := newCatalogFixture()
	school.addTeacher("t1", true)
	school.addCourse("c1", 30, "t1")
	school.addCourse("p1", 30, "")
	school.prereqs["c1"] = []string{"p1"}
	school.addStudent("s1", "ST-1", models.StudentStatusActive, "")
	school.addEnrollment("e1", "s1", "p1", models.EnrollmentStatusCompleted)

	result, err := svc.Eligibility(context.Background(), "c1", "s1")
	require.NoError(t, err)
	assert.True(t, result.Eligible)
	assert.Empty(t, result.Reason)
}

func TestGetCourseComputesSeats(t *testing.T) {
	svc, school := newCatalogFixture()
	school.addCourse("c1", 2, "")
	school.addStudent("s1", "ST-1", models.StudentStatusActive, "")
	school.addStudent("s2", "ST-2", models.StudentStatusActive, "")
	school.addEnrollment("e1", "s1", "c1", models.EnrollmentStatusActive)
	school.addEnrollment("e2", "s2", "c1", models.EnrollmentStatusWithdrawn)

	detail, err := svc.GetCourse(context.Background(), "c1")
	require.NoError(t, err)
	assert.Equal(t, 1, detail.EnrolledCount)
	assert.Equal(t, 1, detail.AvailableSeats)
	assert.False(t, detail.IsFull)

	_, err = svc.GetCourse(context.Background(), "missing")
	assert.True(t, appErrors.HasCode(err, appErrors.ErrNotFound))
}
