package store

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/repsnrecord/apiserver/types"
)

func TestRoleGetDefaultsToUser(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`SELECT role FROM user_roles`).
		WithArgs("u1").
		WillReturnRows(sqlmock.NewRows([]string{"role"}))

	repo := NewRoleRepository(db)
	role, err := repo.Get(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, types.RoleUser, role)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRoleGetExplicitAssignment(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`SELECT role FROM user_roles`).
		WithArgs("t1").
		WillReturnRows(sqlmock.NewRows([]string{"role"}).AddRow(types.RoleTrainer))

	repo := NewRoleRepository(db)
	role, err := repo.Get(context.Background(), "t1")
	require.NoError(t, err)
	assert.Equal(t, types.RoleTrainer, role)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRoleExists(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`SELECT 1 FROM user_roles`).
		WithArgs("u1").
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}))
	mock.ExpectQuery(`SELECT 1 FROM user_roles`).
		WithArgs("t1").
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(1))

	repo := NewRoleRepository(db)

	exists, err := repo.Exists(context.Background(), "u1")
	require.NoError(t, err)
	assert.False(t, exists)

	exists, err = repo.Exists(context.Background(), "t1")
	require.NoError(t, err)
	assert.True(t, exists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRoleSetUpserts(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`(?s)INSERT INTO user_roles .*ON CONFLICT \(user_id\)`).
		WithArgs("u1", types.RoleTrainer).
		WillReturnRows(sqlmock.NewRows([]string{"user_id", "role"}).AddRow("u1", types.RoleTrainer))

	repo := NewRoleRepository(db)
	assigned, err := repo.Set(context.Background(), "u1", types.RoleTrainer)
	require.NoError(t, err)
	assert.Equal(t, "u1", assigned.UserID)
	assert.Equal(t, types.RoleTrainer, assigned.Role)
	assert.NoError(t, mock.ExpectationsWereMet())
}
