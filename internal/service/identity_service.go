package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/noah-isme/sms-core-api/internal/models"
	appErrors "github.com/noah-isme/sms-core-api/pkg/errors"
)

const identityCachePrefix = "identity:access:"

type userStore interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
	ListActiveRoleNames(ctx context.Context, userID string) ([]models.RoleName, error)
	ListPermissionCodenames(ctx context.Context, userID string) ([]string, error)
}

// IdentityService resolves users to their effective roles and permissions.
type IdentityService struct {
	users  userStore
	cache  *CacheService
	logger *zap.Logger
}

// NewIdentityService constructs IdentityService. cache may be nil.
func NewIdentityService(users userStore, cache *CacheService, logger *zap.Logger) *IdentityService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &IdentityService{users: users, cache: cache, logger: logger}
}

// ResolveAccess returns the active roles and permission union of a user.
// Permissions of inactive roles are excluded by the store.
func (s *IdentityService) ResolveAccess(ctx context.Context, userID string) (*models.UserAccess, error) {
	key := identityCachePrefix + userID
	var cached models.UserAccess
	if hit, _ := s.cache.Get(ctx, key, &cached); hit {
		return &cached, nil
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, lookupError(err, "user not found", "failed to load user")
	}
	if !user.Active {
		return nil, appErrors.ErrInactiveAccount
	}

	roles, err := s.users.ListActiveRoleNames(ctx, userID)
	if err != nil {
		return nil, internalError(err, "failed to load roles")
	}
	perms, err := s.users.ListPermissionCodenames(ctx, userID)
	if err != nil {
		return nil, internalError(err, "failed to load permissions")
	}

	access := models.NewUserAccess(userID, roles, perms)
	_ = s.cache.Set(ctx, key, access, 0)
	return access, nil
}

// HasPermission reports whether the user holds the codename through an active role.
func (s *IdentityService) HasPermission(ctx context.Context, userID, codename string) (bool, error) {
	access, err := s.ResolveAccess(ctx, userID)
	if err != nil {
		return false, err
	}
	return access.Can(codename), nil
}

// InvalidateAccess drops the cached access view after role or permission changes.
func (s *IdentityService) InvalidateAccess(ctx context.Context, userID string) {
	if err := s.cache.Delete(ctx, identityCachePrefix+userID); err != nil {
		s.logger.Warn("failed to invalidate identity cache", zap.String("user_id", userID), zap.Error(err))
	}
}
