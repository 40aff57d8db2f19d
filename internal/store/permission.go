package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/repsnrecord/apiserver/types"
)

// PermissionRepository handles persistence for trainer permission rows.
// Absence of a row is not an error: it resolves to the documented defaults
// (export allowed, photos withheld).
type PermissionRepository struct {
	db *sql.DB
}

func NewPermissionRepository(db *sql.DB) *PermissionRepository {
	return &PermissionRepository{db: db}
}

// Get returns the permission flags for a (client, trainer) pair, falling
// back to the defaults when no row exists.
func (r *PermissionRepository) Get(ctx context.Context, clientID, trainerID string) (types.TrainerPermission, error) {
	const query = `
		SELECT trainer_id, client_id, allow_export, allow_photos, created_at, updated_at
		FROM trainer_permissions
		WHERE client_id = $1 AND trainer_id = $2`
	var perm types.TrainerPermission
	err := r.db.QueryRowContext(ctx, query, clientID, trainerID).Scan(
		&perm.TrainerID,
		&perm.ClientID,
		&perm.AllowExport,
		&perm.AllowPhotos,
		&perm.CreatedAt,
		&perm.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.TrainerPermission{
				TrainerID:   trainerID,
				ClientID:    clientID,
				AllowExport: types.DefaultAllowExport,
				AllowPhotos: types.DefaultAllowPhotos,
			}, nil
		}
		return types.TrainerPermission{}, err
	}
	return perm, nil
}

// List returns the permission rows for a client, optionally restricted to
// one trainer, newest first.
func (r *PermissionRepository) List(ctx context.Context, clientID, trainerID string) ([]types.TrainerPermission, error) {
	query := `
		SELECT trainer_id, client_id, allow_export, allow_photos, created_at, updated_at
		FROM trainer_permissions
		WHERE client_id = $1`
	args := []any{clientID}
	if trainerID != "" {
		query += ` AND trainer_id = $2`
		args = append(args, trainerID)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var perms []types.TrainerPermission
	for rows.Next() {
		var perm types.TrainerPermission
		if err := rows.Scan(
			&perm.TrainerID,
			&perm.ClientID,
			&perm.AllowExport,
			&perm.AllowPhotos,
			&perm.CreatedAt,
			&perm.UpdatedAt,
		); err != nil {
			return nil, err
		}
		perms = append(perms, perm)
	}
	return perms, rows.Err()
}

// Set upserts the permission flags keyed on the (trainer, client) pair.
func (r *PermissionRepository) Set(ctx context.Context, clientID, trainerID string, allowExport, allowPhotos bool) (types.TrainerPermission, error) {
	const query = `
		INSERT INTO trainer_permissions (trainer_id, client_id, allow_export, allow_photos, updated_at)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (trainer_id, client_id)
		DO UPDATE SET allow_export = $3, allow_photos = $4, updated_at = NOW()
		RETURNING trainer_id, client_id, allow_export, allow_photos, created_at, updated_at`
	var perm types.TrainerPermission
	err := r.db.QueryRowContext(ctx, query, trainerID, clientID, allowExport, allowPhotos).Scan(
		&perm.TrainerID,
		&perm.ClientID,
		&perm.AllowExport,
		&perm.AllowPhotos,
		&perm.CreatedAt,
		&perm.UpdatedAt,
	)
	if err != nil {
		return types.TrainerPermission{}, err
	}
	return perm, nil
}

// EnsureDefaults inserts the default permission row for a pair if none
// exists, leaving any explicit grant untouched.
func (r *PermissionRepository) EnsureDefaults(ctx context.Context, clientID, trainerID string) error {
	const query = `
		INSERT INTO trainer_permissions (trainer_id, client_id, allow_export, allow_photos)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (trainer_id, client_id) DO NOTHING`
	_, err := r.db.ExecContext(ctx, query, trainerID, clientID, types.DefaultAllowExport, types.DefaultAllowPhotos)
	return err
}

// Delete removes the permission row for a pair, reverting it to defaults.
func (r *PermissionRepository) Delete(ctx context.Context, clientID, trainerID string) error {
	const query = `DELETE FROM trainer_permissions WHERE client_id = $1 AND trainer_id = $2`
	_, err := r.db.ExecContext(ctx, query, clientID, trainerID)
	return err
}
