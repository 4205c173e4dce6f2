package models

import (
	"sort"
	"time"
)

// RoleName identifies a role in the RBAC system.
type RoleName string

const (
	RoleSuperAdmin RoleName = "super_admin"
	RoleAdmin      RoleName = "admin"
	RolePrincipal  RoleName = "principal"
	RoleAccountant RoleName = "accountant"
	RoleTeacher    RoleName = "teacher"
	RoleStudent    RoleName = "student"
	RoleStaff      RoleName = "staff"
	RoleParent     RoleName = "parent"
)

// Permission codenames guarded by the HTTP layer, formatted as module.action.
const (
	PermEnrollmentsView   = "enrollments.view"
	PermEnrollmentsCreate = "enrollments.create"
	PermEnrollmentsEdit   = "enrollments.edit"
	PermAttendanceView    = "attendance.view"
	PermAttendanceCreate  = "attendance.create"
	PermGradesView        = "grades.view"
	PermGradesCreate      = "grades.create"
	PermCoursesView       = "courses.view"
	PermCoursesCreate     = "courses.create"
	PermCoursesEdit       = "courses.edit"
	PermClassGroupsView   = "classgroups.view"
	PermClassGroupsCreate = "classgroups.create"
	PermStudentsView      = "students.view"
	PermStudentsCreate    = "students.create"
	PermStudentsEdit      = "students.edit"
	PermTeachersCreate    = "teachers.create"
	PermAssignmentsCreate = "assignments.create"
	PermAssignmentsSubmit = "assignments.submit"
	PermReportsExport     = "reports.export"
)

// User represents an application user stored in the users table.
type User struct {
	ID        string    `db:"id" json:"id"`
	Email     string    `db:"email" json:"email"`
	FullName  string    `db:"full_name" json:"full_name"`
	Active    bool      `db:"active" json:"active"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Role groups permissions. Inactive roles grant nothing.
type Role struct {
	ID          string   `db:"id" json:"id"`
	Name        RoleName `db:"name" json:"name"`
	Description string   `db:"description" json:"description"`
	Level       int      `db:"level" json:"level"`
	Active      bool     `db:"is_active" json:"is_active"`
}

// Permission is a grantable capability.
type Permission struct {
	ID       string `db:"id" json:"id"`
	Codename string `db:"codename" json:"codename"`
	Name     string `db:"name" json:"name"`
	Module   string `db:"module" json:"module"`
}

// UserAccess is the resolved authorization view of a user.
type UserAccess struct {
	UserID      string     `json:"user_id"`
	Roles       []RoleName `json:"roles"`
	Permissions []string   `json:"permissions"`
}

// NewUserAccess builds an access view with sorted, de-duplicated permissions.
func NewUserAccess(userID string, roles []RoleName, permissions []string) *UserAccess {
	seen := make(map[string]struct{}, len(permissions))
	perms := make([]string, 0, len(permissions))
	for _, p := range permissions {
		if _, ok := seen[p]; ok || p == "" {
			continue
		}
		seen[p] = struct{}{}
		perms = append(perms, p)
	}
	sort.Strings(perms)
	if roles == nil {
		roles = []RoleName{}
	}
	return &UserAccess{UserID: userID, Roles: roles, Permissions: perms}
}

// HasRole reports whether the role is among the active roles.
func (a *UserAccess) HasRole(role RoleName) bool {
	if a == nil {
		return false
	}
	for _, r := range a.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// Can reports whether the user holds the permission. super_admin holds all.
func (a *UserAccess) Can(codename string) bool {
	if a == nil {
		return false
	}
	if a.HasRole(RoleSuperAdmin) {
		return true
	}
	i := sort.SearchStrings(a.Permissions, codename)
	return i < len(a.Permissions) && a.Permissions[i] == codename
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
