package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/repsnrecord/apiserver/types"
)

// RoleRepository handles persistence for role assignments. Roles are kept
// separate from user accounts so ids minted by an external identity
// provider can be assigned a role without a local account row.
type RoleRepository struct {
	db *sql.DB
}

func NewRoleRepository(db *sql.DB) *RoleRepository {
	return &RoleRepository{db: db}
}

// Get returns the role assigned to the user. Users without a row default to
// the base role.
func (r *RoleRepository) Get(ctx context.Context, userID string) (string, error) {
	const query = `SELECT role FROM user_roles WHERE user_id = $1`
	var role string
	err := r.db.QueryRowContext(ctx, query, userID).Scan(&role)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.RoleUser, nil
		}
		return "", err
	}
	return role, nil
}

// Exists reports whether a role row exists for the user, distinguishing an
// explicit assignment from the default.
func (r *RoleRepository) Exists(ctx context.Context, userID string) (bool, error) {
	const query = `SELECT 1 FROM user_roles WHERE user_id = $1`
	var one int
	err := r.db.QueryRowContext(ctx, query, userID).Scan(&one)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Set upserts the role assignment for the user.
func (r *RoleRepository) Set(ctx context.Context, userID, role string) (types.UserRole, error) {
	const query = `
		INSERT INTO user_roles (user_id, role)
		VALUES ($1, $2)
		ON CONFLICT (user_id)
		DO UPDATE SET role = EXCLUDED.role, updated_at = NOW()
		RETURNING user_id, role`
	var assigned types.UserRole
	if err := r.db.QueryRowContext(ctx, query, userID, role).Scan(&assigned.UserID, &assigned.Role); err != nil {
		return types.UserRole{}, err
	}
	return assigned, nil
}
