package store

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/repsnrecord/apiserver/types"
)

func TestPermissionGetDefaultsWhenNoRow(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`SELECT trainer_id, client_id, allow_export, allow_photos, created_at, updated_at\s+FROM trainer_permissions`).
		WithArgs("c1", "t1").
		WillReturnRows(sqlmock.NewRows([]string{"trainer_id", "client_id", "allow_export", "allow_photos", "created_at", "updated_at"}))

	repo := NewPermissionRepository(db)
	perm, err := repo.Get(context.Background(), "c1", "t1")
	require.NoError(t, err)

	assert.Equal(t, "t1", perm.TrainerID)
	assert.Equal(t, "c1", perm.ClientID)
	assert.True(t, perm.AllowExport, "export defaults open")
	assert.False(t, perm.AllowPhotos, "photos default closed")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPermissionGetExplicitRow(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	now := time.Now()
	mock.ExpectQuery(`SELECT trainer_id, client_id, allow_export, allow_photos, created_at, updated_at\s+FROM trainer_permissions`).
		WithArgs("c1", "t1").
		WillReturnRows(sqlmock.NewRows([]string{"trainer_id", "client_id", "allow_export", "allow_photos", "created_at", "updated_at"}).
			AddRow("t1", "c1", false, true, now, now))

	repo := NewPermissionRepository(db)
	perm, err := repo.Get(context.Background(), "c1", "t1")
	require.NoError(t, err)

	assert.False(t, perm.AllowExport)
	assert.True(t, perm.AllowPhotos)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPermissionSetUpserts(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	now := time.Now()
	mock.ExpectQuery(`(?s)INSERT INTO trainer_permissions .*ON CONFLICT \(trainer_id, client_id\)`).
		WithArgs("t1", "c1", false, true).
		WillReturnRows(sqlmock.NewRows([]string{"trainer_id", "client_id", "allow_export", "allow_photos", "created_at", "updated_at"}).
			AddRow("t1", "c1", false, true, now, now))

	repo := NewPermissionRepository(db)
	perm, err := repo.Set(context.Background(), "c1", "t1", false, true)
	require.NoError(t, err)

	assert.Equal(t, types.TrainerPermission{
		TrainerID:   "t1",
		ClientID:    "c1",
		AllowExport: false,
		AllowPhotos: true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, perm)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPermissionEnsureDefaultsLeavesExistingRow(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(`(?s)INSERT INTO trainer_permissions .*DO NOTHING`).
		WithArgs("t1", "c1", types.DefaultAllowExport, types.DefaultAllowPhotos).
		WillReturnResult(sqlmock.NewResult(0, 0))

	repo := NewPermissionRepository(db)
	require.NoError(t, repo.EnsureDefaults(context.Background(), "c1", "t1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPermissionDelete(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(`DELETE FROM trainer_permissions`).
		WithArgs("c1", "t1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	repo := NewPermissionRepository(db)
	require.NoError(t, repo.Delete(context.Background(), "c1", "t1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}
