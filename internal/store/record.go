package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/repsnrecord/apiserver/types"
)

// RecordRepository handles persistence for personal records.
type RecordRepository struct {
	db *sql.DB
}

func NewRecordRepository(db *sql.DB) *RecordRepository {
	return &RecordRepository{db: db}
}

// ListByUser returns all of a user's records, most recently achieved first.
func (r *RecordRepository) ListByUser(ctx context.Context, userID string) ([]types.PersonalRecord, error) {
	const query = `
		SELECT id, user_id, exercise_name, record_type, value, achieved_at, COALESCE(workout_id, '')
		FROM personal_records
		WHERE user_id = $1
		ORDER BY achieved_at DESC`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []types.PersonalRecord
	for rows.Next() {
		var record types.PersonalRecord
		if err := rows.Scan(
			&record.ID,
			&record.UserID,
			&record.ExerciseName,
			&record.RecordType,
			&record.Value,
			&record.AchievedAt,
			&record.WorkoutID,
		); err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

// Get returns the record for one (user, exercise, type) key.
func (r *RecordRepository) Get(ctx context.Context, userID, exerciseName, recordType string) (types.PersonalRecord, error) {
	const query = `
		SELECT id, user_id, exercise_name, record_type, value, achieved_at, COALESCE(workout_id, '')
		FROM personal_records
		WHERE user_id = $1 AND exercise_name = $2 AND record_type = $3`
	var record types.PersonalRecord
	err := r.db.QueryRowContext(ctx, query, userID, exerciseName, recordType).Scan(
		&record.ID,
		&record.UserID,
		&record.ExerciseName,
		&record.RecordType,
		&record.Value,
		&record.AchievedAt,
		&record.WorkoutID,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.PersonalRecord{}, ErrNotFound
		}
		return types.PersonalRecord{}, err
	}
	return record, nil
}

// Insert creates the first record for a key.
func (r *RecordRepository) Insert(ctx context.Context, record types.PersonalRecord) (types.PersonalRecord, error) {
	const query = `
		INSERT INTO personal_records (user_id, exercise_name, record_type, value, workout_id)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''))
		RETURNING id, achieved_at`
	err := r.db.QueryRowContext(
		ctx,
		query,
		record.UserID,
		record.ExerciseName,
		record.RecordType,
		record.Value,
		record.WorkoutID,
	).Scan(&record.ID, &record.AchievedAt)
	if err != nil {
		return types.PersonalRecord{}, err
	}
	return record, nil
}

// Improve replaces the stored value for a key. Callers must have already
// verified the new value strictly exceeds the stored one.
func (r *RecordRepository) Improve(ctx context.Context, record types.PersonalRecord) (types.PersonalRecord, error) {
	const query = `
		UPDATE personal_records
		SET value = $4, achieved_at = NOW(), workout_id = NULLIF($5, ''), updated_at = NOW()
		WHERE user_id = $1 AND exercise_name = $2 AND record_type = $3
		RETURNING id, achieved_at`
	err := r.db.QueryRowContext(
		ctx,
		query,
		record.UserID,
		record.ExerciseName,
		record.RecordType,
		record.Value,
		record.WorkoutID,
	).Scan(&record.ID, &record.AchievedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.PersonalRecord{}, ErrNotFound
		}
		return types.PersonalRecord{}, err
	}
	return record, nil
}
