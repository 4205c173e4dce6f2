package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sms-core-api/internal/models"
)

// UserRepository reads users and their role grants.
type UserRepository struct {
	db *sqlx.DB
}

// NewUserRepository instantiates a new repository.
func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

// FindByID returns a user by ID.
func (r *UserRepository) FindByID(ctx context.Context, id string) (*models.User, error) {
	const query = `SELECT id, email, full_name, active, created_at, updated_at FROM users WHERE id = $1`
	var user models.User
	if err := conn(ctx, r.db).GetContext(ctx, &user, query, id); err != nil {
		if isNoRows(err) {
			return nil, sql.ErrNoRows
		}
		return nil, fmt.Errorf("find user by id: %w", err)
	}
	return &user, nil
}

// ListActiveRoleNames returns the user's active roles, highest level first.
func (r *UserRepository) ListActiveRoleNames(ctx context.Context, userID string) ([]models.RoleName, error) {
	const query = `SELECT r.name FROM user_roles ur
        JOIN roles r ON r.id = ur.role_id
        WHERE ur.user_id = $1 AND r.is_active = TRUE
        ORDER BY r.level DESC, r.name`
	var roles []models.RoleName
	if err := conn(ctx, r.db).SelectContext(ctx, &roles, query, userID); err != nil {
		return nil, fmt.Errorf("list user roles: %w", err)
	}
	return roles, nil
}

// ListPermissionCodenames returns the codenames granted by the user's active roles.
func (r *UserRepository) ListPermissionCodenames(ctx context.Context, userID string) ([]string, error) {
	const query = `SELECT DISTINCT p.codename FROM user_roles ur
        JOIN roles r ON r.id = ur.role_id
        JOIN role_permissions rp ON rp.role_id = r.id
        JOIN permissions p ON p.id = rp.permission_id
        WHERE ur.user_id = $1 AND r.is_active = TRUE
        ORDER BY p.codename`
	var codenames []string
	if err := conn(ctx, r.db).SelectContext(ctx, &codenames, query, userID); err != nil {
		return nil, fmt.Errorf("list user permissions: %w", err)
	}
	return codenames, nil
}
