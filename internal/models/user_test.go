package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewUserAccessSortsAndDeduplicates(t *testing.T) {
	access := NewUserAccess("u1", []RoleName{RoleTeacher}, []string{"grades.view", "attendance.create", "grades.view", ""})

	assert.Equal(t, []string{"attendance.create", "grades.view"}, access.Permissions)
	assert.True(t, access.Can("grades.view"))
	assert.False(t, access.Can("courses.edit"))
}

func TestSuperAdminCanEverything(t *testing.T) {
	access := NewUserAccess("root", []RoleName{RoleSuperAdmin}, nil)

	assert.True(t, access.Can(PermCoursesEdit))
	assert.Equal(t, []string{}, access.Permissions)
}

func TestDiffSnapshots(t *testing.T) {
	changes := DiffSnapshots(
		map[string]interface{}{"status": "active", "notes": "x"},
		map[string]interface{}{"status": "withdrawn", "notes": "x", "reason": "moved"},
	)

	assert.Len(t, changes, 2)
	assert.Equal(t, AuditChange{Old: "active", New: "withdrawn"}, changes["status"])
	assert.Equal(t, AuditChange{Old: nil, New: "moved"}, changes["reason"])
}

func TestClassGroupDetailFill(t *testing.T) {
	d := ClassGroupDetail{ClassGroup: ClassGroup{GradeLevel: 10, Section: "A", MaxStudents: 2}, CurrentStudentsCount: 2}
	d.Fill()

	assert.Equal(t, "Grade 10 - Section A", d.FullName)
	assert.True(t, d.IsFull)
	assert.Equal(t, 0, d.AvailableSeats)
}
