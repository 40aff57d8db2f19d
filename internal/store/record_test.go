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

func TestRecordGetNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`(?s)SELECT .* FROM personal_records\s+WHERE user_id`).
		WithArgs("u1", "Bench", types.RecordMaxWeight).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "exercise_name", "record_type", "value", "achieved_at", "workout_id"}))

	repo := NewRecordRepository(db)
	_, err = repo.Get(context.Background(), "u1", "Bench", types.RecordMaxWeight)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordInsertReturnsGeneratedFields(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	achieved := time.Now()
	mock.ExpectQuery(`(?s)INSERT INTO personal_records .*RETURNING id, achieved_at`).
		WithArgs("u1", "Bench", types.RecordMaxWeight, 100.0, "").
		WillReturnRows(sqlmock.NewRows([]string{"id", "achieved_at"}).AddRow(7, achieved))

	repo := NewRecordRepository(db)
	record, err := repo.Insert(context.Background(), types.PersonalRecord{
		UserID:       "u1",
		ExerciseName: "Bench",
		RecordType:   types.RecordMaxWeight,
		Value:        100,
	})
	require.NoError(t, err)
	assert.Equal(t, 7, record.ID)
	assert.Equal(t, achieved, record.AchievedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordImprove(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	achieved := time.Now()
	mock.ExpectQuery(`(?s)UPDATE personal_records\s+SET value = \$4`).
		WithArgs("u1", "Bench", types.RecordMaxWeight, 105.0, "w-9").
		WillReturnRows(sqlmock.NewRows([]string{"id", "achieved_at"}).AddRow(7, achieved))

	repo := NewRecordRepository(db)
	record, err := repo.Improve(context.Background(), types.PersonalRecord{
		UserID:       "u1",
		ExerciseName: "Bench",
		RecordType:   types.RecordMaxWeight,
		Value:        105,
		WorkoutID:    "w-9",
	})
	require.NoError(t, err)
	assert.Equal(t, 105.0, record.Value)
	assert.Equal(t, achieved, record.AchievedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordListByUser(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	now := time.Now()
	mock.ExpectQuery(`(?s)SELECT .* FROM personal_records\s+WHERE user_id = \$1\s+ORDER BY achieved_at DESC`).
		WithArgs("u1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "exercise_name", "record_type", "value", "achieved_at", "workout_id"}).
			AddRow(2, "u1", "Squat", types.RecordMaxWeight, 140.0, now, "").
			AddRow(1, "u1", "Bench", types.RecordMaxWeight, 100.0, now.Add(-time.Hour), "w-1"))

	repo := NewRecordRepository(db)
	records, err := repo.ListByUser(context.Background(), "u1")
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "Squat", records[0].ExerciseName)
	assert.Equal(t, "w-1", records[1].WorkoutID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
