package service

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"time"

	"github.com/noah-isme/sms-core-api/internal/models"
	"github.com/noah-isme/sms-core-api/internal/repository"
	"github.com/noah-isme/sms-core-api/pkg/config"
)

var fixedNow = time.Date(2024, time.March, 15, 9, 30, 0, 0, time.UTC)

func fixedClock() time.Time { return fixedNow }

type fakeTx struct{ calls int }

func (f *fakeTx) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	f.calls++
	return fn(ctx)
}

// fakeSchool is an in-memory backing store shared by the repository fakes below.
type fakeSchool struct {
	seq         int
	students    map[string]*models.Student
	teachers    map[string]*models.Teacher
	groups      map[string]*models.ClassGroup
	courses     map[string]*models.Course
	prereqs     map[string][]string
	enrollments map[string]*models.Enrollment
	attendance  map[string]*models.Attendance
	audits      []*models.AuditLog
	locked      []string

	auditErr error
	saveErr  error
}

func newFakeSchool() *fakeSchool {
	return &fakeSchool{
		students:    map[string]*models.Student{},
		teachers:    map[string]*models.Teacher{},
		groups:      map[string]*models.ClassGroup{},
		courses:     map[string]*models.Course{},
		prereqs:     map[string][]string{},
		enrollments: map[string]*models.Enrollment{},
		attendance:  map[string]*models.Attendance{},
	}
}

func (f *fakeSchool) nextID(prefix string) string {
	f.seq++
	return fmt.Sprintf("%s-%d", prefix, f.seq)
}

func (f *fakeSchool) addStudent(id, number string, status models.StudentStatus, groupID string) *models.Student {
	st := &models.Student{ID: id, StudentNumber: number, FullName: "Student " + number, Status: status}
	if groupID != "" {
		st.ClassGroupID = &groupID
	}
	f.students[id] = st
	return st
}

func (f *fakeSchool) addTeacher(id string, active bool) {
	f.teachers[id] = &models.Teacher{ID: id, FullName: "Teacher " + id, Active: active}
}

func (f *fakeSchool) addCourse(id string, maxStudents int, teacherID string) *models.Course {
	c := &models.Course{ID: id, Code: "C-" + id, Title: "Course " + id, MaxStudents: maxStudents, PassingScore: 60, Active: true}
	if teacherID != "" {
		c.TeacherID = &teacherID
	}
	f.courses[id] = c
	return c
}

func (f *fakeSchool) addEnrollment(id, studentID, courseID string, status models.EnrollmentStatus) *models.Enrollment {
	e := &models.Enrollment{ID: id, StudentID: studentID, CourseID: courseID, Status: status, EnrollmentDate: fixedNow.AddDate(0, -1, 0)}
	f.enrollments[id] = e
	return e
}

func (f *fakeSchool) enrollmentRows(studentID, courseID string) []*models.Enrollment {
	var rows []*models.Enrollment
	for _, e := range f.enrollments {
		if e.StudentID == studentID && e.CourseID == courseID {
			rows = append(rows, e)
		}
	}
	return rows
}

type fakeStudents struct{ *fakeSchool }

func (f fakeStudents) FindByID(ctx context.Context, id string) (*models.Student, error) {
	st, ok := f.students[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *st
	return &cp, nil
}

func (f fakeStudents) FindByStudentNumber(ctx context.Context, number string) (*models.Student, error) {
	for _, st := range f.students {
		if st.StudentNumber == number {
			cp := *st
			return &cp, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (f fakeStudents) Create(ctx context.Context, student *models.Student) error {
	for _, st := range f.students {
		if st.StudentNumber == student.StudentNumber {
			return fmt.Errorf("insert student: %w", repository.ErrDuplicate)
		}
	}
	student.ID = f.nextID("student")
	cp := *student
	f.students[student.ID] = &cp
	return nil
}

func (f fakeStudents) Update(ctx context.Context, student *models.Student) error {
	if _, ok := f.students[student.ID]; !ok {
		return sql.ErrNoRows
	}
	cp := *student
	f.students[student.ID] = &cp
	return nil
}

type fakeTeachers struct{ *fakeSchool }

func (f fakeTeachers) Create(ctx context.Context, teacher *models.Teacher) error {
	for _, t := range f.teachers {
		if t.EmployeeID == teacher.EmployeeID {
			return fmt.Errorf("insert teacher: %w", repository.ErrDuplicate)
		}
	}
	teacher.ID = f.nextID("teacher")
	cp := *teacher
	f.teachers[teacher.ID] = &cp
	return nil
}

func (f fakeTeachers) FindByID(ctx context.Context, id string) (*models.Teacher, error) {
	t, ok := f.teachers[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *t
	return &cp, nil
}

type fakeGroups struct{ *fakeSchool }

func (f fakeGroups) Create(ctx context.Context, group *models.ClassGroup) error {
	for _, g := range f.groups {
		if g.GradeLevel == group.GradeLevel && g.Section == group.Section && g.AcademicYear == group.AcademicYear {
			return fmt.Errorf("insert class group: %w", repository.ErrDuplicate)
		}
	}
	group.ID = f.nextID("group")
	cp := *group
	f.groups[group.ID] = &cp
	return nil
}

func (f fakeGroups) FindByID(ctx context.Context, id string) (*models.ClassGroup, error) {
	g, ok := f.groups[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *g
	return &cp, nil
}

func (f fakeGroups) LockByID(ctx context.Context, id string) (*models.ClassGroup, error) {
	f.fakeSchool.locked = append(f.fakeSchool.locked, "group:"+id)
	return f.FindByID(ctx, id)
}

func (f fakeGroups) CountActiveStudents(ctx context.Context, id string) (int, error) {
	n := 0
	for _, st := range f.students {
		if st.IsActive() && st.InClassGroup(id) {
			n++
		}
	}
	return n, nil
}

func (f fakeGroups) List(ctx context.Context, filter models.ClassGroupFilter) ([]models.ClassGroupDetail, int, error) {
	var out []models.ClassGroupDetail
	for _, g := range f.groups {
		n, _ := f.CountActiveStudents(ctx, g.ID)
		d := models.ClassGroupDetail{ClassGroup: *g, CurrentStudentsCount: n}
		d.Fill()
		out = append(out, d)
	}
	return out, len(out), nil
}

type fakeCourses struct{ *fakeSchool }

func (f fakeCourses) Create(ctx context.Context, course *models.Course) error {
	for _, c := range f.courses {
		if c.Code == course.Code {
			return fmt.Errorf("insert course: %w", repository.ErrDuplicate)
		}
	}
	course.ID = f.nextID("course")
	cp := *course
	f.courses[course.ID] = &cp
	return nil
}

func (f fakeCourses) FindByID(ctx context.Context, id string) (*models.Course, error) {
	c, ok := f.courses[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *c
	return &cp, nil
}

func (f fakeCourses) LockByID(ctx context.Context, id string) (*models.Course, error) {
	f.fakeSchool.locked = append(f.fakeSchool.locked, "course:"+id)
	return f.FindByID(ctx, id)
}

func (f fakeCourses) CountActiveEnrollments(ctx context.Context, courseID string) (int, error) {
	n := 0
	for _, e := range f.enrollments {
		if e.CourseID == courseID && e.Status == models.EnrollmentStatusActive {
			n++
		}
	}
	return n, nil
}

func (f fakeCourses) PrerequisiteIDs(ctx context.Context, courseID string) ([]string, error) {
	return append([]string{}, f.prereqs[courseID]...), nil
}

func (f fakeCourses) ReplacePrerequisites(ctx context.Context, courseID string, ids []string) error {
	f.prereqs[courseID] = append([]string{}, ids...)
	return nil
}

func (f fakeCourses) CountExisting(ctx context.Context, ids []string) (int, error) {
	n := 0
	for _, id := range ids {
		if _, ok := f.courses[id]; ok {
			n++
		}
	}
	return n, nil
}

func (f fakeCourses) UnmetPrerequisites(ctx context.Context, courseID, studentID string) ([]models.Course, error) {
	var unmet []models.Course
	for _, id := range f.prereqs[courseID] {
		met := false
		for _, e := range f.enrollmentRows(studentID, id) {
			if e.Status == models.EnrollmentStatusCompleted {
				met = true
			}
		}
		if !met {
			unmet = append(unmet, *f.courses[id])
		}
	}
	sort.Slice(unmet, func(i, j int) bool { return unmet[i].Title < unmet[j].Title })
	return unmet, nil
}

func (f fakeCourses) List(ctx context.Context, filter models.CourseFilter) ([]models.CourseDetail, int, error) {
	var out []models.CourseDetail
	for _, c := range f.courses {
		n, _ := f.CountActiveEnrollments(ctx, c.ID)
		d := models.CourseDetail{Course: *c, EnrolledCount: n}
		d.Fill()
		out = append(out, d)
	}
	return out, len(out), nil
}

type fakeEnrollments struct{ *fakeSchool }

func (f fakeEnrollments) List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, int, error) {
	var out []models.EnrollmentDetail
	for _, e := range f.enrollments {
		if filter.Status != "" && e.Status != filter.Status {
			continue
		}
		if filter.StudentID != "" && e.StudentID != filter.StudentID {
			continue
		}
		if filter.CourseID != "" && e.CourseID != filter.CourseID {
			continue
		}
		detail := models.EnrollmentDetail{Enrollment: *e}
		if c, ok := f.courses[e.CourseID]; ok {
			detail.CourseCode, detail.CourseTitle = c.Code, c.Title
		}
		out = append(out, detail)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, len(out), nil
}

func (f fakeEnrollments) FindByID(ctx context.Context, id string) (*models.Enrollment, error) {
	e, ok := f.enrollments[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *e
	return &cp, nil
}

func (f fakeEnrollments) FindByStudentAndCourse(ctx context.Context, studentID, courseID string) (*models.Enrollment, error) {
	rows := f.enrollmentRows(studentID, courseID)
	if len(rows) == 0 {
		return nil, sql.ErrNoRows
	}
	cp := *rows[0]
	return &cp, nil
}

func (f fakeEnrollments) FindDetailByID(ctx context.Context, id string) (*models.EnrollmentDetail, error) {
	e, err := f.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return &models.EnrollmentDetail{Enrollment: *e, StudentName: f.students[e.StudentID].FullName, CourseTitle: f.courses[e.CourseID].Title}, nil
}

func (f fakeEnrollments) ExistsActive(ctx context.Context, studentID, courseID string) (bool, error) {
	for _, e := range f.enrollmentRows(studentID, courseID) {
		if e.Status == models.EnrollmentStatusActive {
			return true, nil
		}
	}
	return false, nil
}

func (f fakeEnrollments) Create(ctx context.Context, enrollment *models.Enrollment) error {
	if len(f.enrollmentRows(enrollment.StudentID, enrollment.CourseID)) > 0 {
		return fmt.Errorf("insert enrollment: %w", repository.ErrDuplicate)
	}
	enrollment.ID = f.nextID("enrollment")
	cp := *enrollment
	f.enrollments[enrollment.ID] = &cp
	return nil
}

func (f fakeEnrollments) Save(ctx context.Context, enrollment *models.Enrollment, expected models.EnrollmentStatus) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	stored, ok := f.enrollments[enrollment.ID]
	if !ok || stored.Status != expected {
		return fmt.Errorf("update enrollment: %w", repository.ErrStaleStatus)
	}
	cp := *enrollment
	f.enrollments[enrollment.ID] = &cp
	return nil
}

func (f fakeEnrollments) CountByStatus(ctx context.Context, courseID string) (map[models.EnrollmentStatus]int, error) {
	counts := map[models.EnrollmentStatus]int{}
	for _, e := range f.enrollments {
		if courseID == "" || e.CourseID == courseID {
			counts[e.Status]++
		}
	}
	return counts, nil
}

type fakeAudit struct{ *fakeSchool }

func (f fakeAudit) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	if f.auditErr != nil {
		return f.auditErr
	}
	f.fakeSchool.audits = append(f.fakeSchool.audits, log)
	return nil
}

type fakeAttendance struct{ *fakeSchool }

func attendanceKey(studentID, courseID string, date time.Time) string {
	return studentID + "|" + courseID + "|" + date.Format(dateLayout)
}

func (f fakeAttendance) put(studentID, courseID string, date time.Time, status models.AttendanceStatus) {
	f.attendance[attendanceKey(studentID, courseID, date)] = &models.Attendance{
		ID: f.nextID("att"), StudentID: studentID, CourseID: courseID, Date: date, Status: status,
	}
}

func (f fakeAttendance) Upsert(ctx context.Context, record *models.Attendance) (*models.Attendance, error) {
	key := attendanceKey(record.StudentID, record.CourseID, record.Date)
	if existing, ok := f.attendance[key]; ok {
		record.ID = existing.ID
	} else {
		record.ID = f.nextID("att")
	}
	cp := *record
	f.attendance[key] = &cp
	return &cp, nil
}

func (f fakeAttendance) matching(filter models.AttendanceFilter) []*models.Attendance {
	var rows []*models.Attendance
	for _, a := range f.attendance {
		if filter.StudentID != "" && a.StudentID != filter.StudentID {
			continue
		}
		if filter.CourseID != "" && a.CourseID != filter.CourseID {
			continue
		}
		if filter.From != nil && a.Date.Before(*filter.From) {
			continue
		}
		if filter.To != nil && a.Date.After(*filter.To) {
			continue
		}
		rows = append(rows, a)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Date.After(rows[j].Date) })
	return rows
}

func (f fakeAttendance) StatusCounts(ctx context.Context, filter models.AttendanceFilter) ([]models.AttendanceStatusCount, error) {
	counts := map[models.AttendanceStatus]int{}
	for _, a := range f.matching(filter) {
		counts[a.Status]++
	}
	var out []models.AttendanceStatusCount
	for status, n := range counts {
		out = append(out, models.AttendanceStatusCount{Status: status, Count: n})
	}
	return out, nil
}

func (f fakeAttendance) RecentStatuses(ctx context.Context, studentID, courseID string, limit int) ([]models.AttendanceStatus, error) {
	var out []models.AttendanceStatus
	for _, a := range f.matching(models.AttendanceFilter{StudentID: studentID, CourseID: courseID}) {
		if len(out) == limit {
			break
		}
		out = append(out, a.Status)
	}
	return out, nil
}

func (f fakeAttendance) DailyBreakdown(ctx context.Context, filter models.AttendanceFilter) ([]models.AttendanceDay, error) {
	byDate := map[string]*models.AttendanceDay{}
	for _, a := range f.matching(filter) {
		key := a.Date.Format(dateLayout)
		day, ok := byDate[key]
		if !ok {
			day = &models.AttendanceDay{Date: a.Date}
			byDate[key] = day
		}
		day.Total++
		switch a.Status {
		case models.AttendanceStatusPresent:
			day.Present++
		case models.AttendanceStatusAbsent:
			day.Absent++
		case models.AttendanceStatusLate:
			day.Late++
		}
	}
	var out []models.AttendanceDay
	for _, d := range byDate {
		out = append(out, *d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

func (f fakeAttendance) TallyByStudent(ctx context.Context, courseID string) ([]models.StudentAttendanceTally, error) {
	byStudent := map[string]*models.StudentAttendanceTally{}
	for _, a := range f.matching(models.AttendanceFilter{CourseID: courseID}) {
		t, ok := byStudent[a.StudentID]
		if !ok {
			st := f.students[a.StudentID]
			t = &models.StudentAttendanceTally{StudentRef: st.ID, StudentNumber: st.StudentNumber, FullName: st.FullName}
			if st.ClassGroupID != nil {
				if g, ok := f.groups[*st.ClassGroupID]; ok {
					level, section := g.GradeLevel, g.Section
					t.GradeLevel, t.Section = &level, &section
				}
			}
			byStudent[a.StudentID] = t
		}
		t.Total++
		if a.Status.EffectivelyPresent() {
			t.EffectivePresence++
		}
	}
	var out []models.StudentAttendanceTally
	for _, t := range byStudent {
		out = append(out, *t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StudentNumber < out[j].StudentNumber })
	return out, nil
}

type recordingNotifier struct {
	notified []string
	err      error
}

func (n *recordingNotifier) NotifyEnrollment(ctx context.Context, enrollment *models.Enrollment) error {
	n.notified = append(n.notified, enrollment.ID)
	return n.err
}

type eligibilityFunc func(ctx context.Context, student *models.Student, course *models.Course) (bool, string, error)

func (f eligibilityFunc) CheckEligibility(ctx context.Context, student *models.Student, course *models.Course) (bool, string, error) {
	return f(ctx, student, course)
}

func testPolicy() config.PolicyConfig {
	return config.DefaultPolicy()
}
