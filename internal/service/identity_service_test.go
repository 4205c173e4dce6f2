package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sms-core-api/internal/models"
	appErrors "github.com/noah-isme/sms-core-api/pkg/errors"
)

type fakeUsers struct {
	users   map[string]*models.User
	roles   map[string][]models.RoleName
	perms   map[string][]string
	lookups int
}

func (f *fakeUsers) FindByID(ctx context.Context, id string) (*models.User, error) {
	f.lookups++
	u, ok := f.users[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return u, nil
}

func (f *fakeUsers) ListActiveRoleNames(ctx context.Context, userID string) ([]models.RoleName, error) {
	return f.roles[userID], nil
}

func (f *fakeUsers) ListPermissionCodenames(ctx context.Context, userID string) ([]string, error) {
	return f.perms[userID], nil
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{
		users: map[string]*models.User{
			"u1":    {ID: "u1", Active: true},
			"root":  {ID: "root", Active: true},
			"ghost": {ID: "ghost", Active: false},
		},
		roles: map[string][]models.RoleName{
			"u1":   {models.RoleTeacher, models.RoleStaff},
			"root": {models.RoleSuperAdmin},
		},
		perms: map[string][]string{
			// teacher and staff both grant attendance.view
			"u1": {models.PermAttendanceView, models.PermAttendanceCreate, models.PermAttendanceView, models.PermCoursesView},
		},
	}
}

func TestResolveAccessUnionsPermissions(t *testing.T) {
	svc := NewIdentityService(newFakeUsers(), nil, nil)

	access, err := svc.ResolveAccess(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, []models.RoleName{models.RoleTeacher, models.RoleStaff}, access.Roles)
	assert.Equal(t, []string{"attendance.create", "attendance.view", "courses.view"}, access.Permissions)
}

func TestResolveAccessRejectsUnknownAndInactive(t *testing.T) {
	svc := NewIdentityService(newFakeUsers(), nil, nil)

	_, err := svc.ResolveAccess(context.Background(), "nobody")
	assert.True(t, appErrors.HasCode(err, appErrors.ErrNotFound))

	_, err = svc.ResolveAccess(context.Background(), "ghost")
	assert.True(t, appErrors.HasCode(err, appErrors.ErrInactiveAccount))
}

func TestHasPermission(t *testing.T) {
	svc := NewIdentityService(newFakeUsers(), nil, nil)
	ctx := context.Background()

	ok, err := svc.HasPermission(ctx, "u1", models.PermAttendanceCreate)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = svc.HasPermission(ctx, "u1", models.PermEnrollmentsEdit)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = svc.HasPermission(ctx, "root", models.PermEnrollmentsEdit)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestResolveAccessUsesCache(t *testing.T) {
	users := newFakeUsers()
	repo := newMemoryCache()
	svc := NewIdentityService(users, NewCacheService(repo, nil, time.Minute, nil, true), nil)
	ctx := context.Background()

	_, err := svc.ResolveAccess(ctx, "u1")
	require.NoError(t, err)
	access, err := svc.ResolveAccess(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 1, users.lookups)
	assert.True(t, access.Can(models.PermCoursesView))

	svc.InvalidateAccess(ctx, "u1")
	assert.Equal(t, []string{"identity:access:u1"}, repo.deleted)
	_, err = svc.ResolveAccess(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 2, users.lookups)
}
