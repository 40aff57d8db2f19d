package store

import (
	"context"
	"database/sql"

	"github.com/repsnrecord/apiserver/types"
)

// AggregateRepository handles persistence for per-period workout rollups.
// Rollups are computed in the service layer from the document store and
// upserted here.
type AggregateRepository struct {
	db *sql.DB
}

func NewAggregateRepository(db *sql.DB) *AggregateRepository {
	return &AggregateRepository{db: db}
}

// Upsert replaces the rollup for one (user, period type, period start) key.
func (r *AggregateRepository) Upsert(ctx context.Context, agg types.WorkoutAggregate) error {
	const query = `
		INSERT INTO workout_aggregates
			(user_id, period_type, period_start, total_workouts, total_sets, total_reps, total_weight, exercises_count)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (user_id, period_type, period_start)
		DO UPDATE SET
			total_workouts = EXCLUDED.total_workouts,
			total_sets = EXCLUDED.total_sets,
			total_reps = EXCLUDED.total_reps,
			total_weight = EXCLUDED.total_weight,
			exercises_count = EXCLUDED.exercises_count,
			updated_at = NOW()`
	_, err := r.db.ExecContext(
		ctx,
		query,
		agg.UserID,
		agg.PeriodType,
		agg.PeriodStart,
		agg.TotalWorkouts,
		agg.TotalSets,
		agg.TotalReps,
		agg.TotalWeight,
		agg.ExercisesCount,
	)
	return err
}

// List returns the most recent rollups for a user and period type.
func (r *AggregateRepository) List(ctx context.Context, userID, periodType string, limit int) ([]types.WorkoutAggregate, error) {
	if limit <= 0 {
		limit = 12
	}
	const query = `
		SELECT user_id, period_type, period_start, total_workouts, total_sets, total_reps, total_weight, exercises_count
		FROM workout_aggregates
		WHERE user_id = $1 AND period_type = $2
		ORDER BY period_start DESC
		LIMIT $3`
	rows, err := r.db.QueryContext(ctx, query, userID, periodType, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var aggs []types.WorkoutAggregate
	for rows.Next() {
		var agg types.WorkoutAggregate
		if err := rows.Scan(
			&agg.UserID,
			&agg.PeriodType,
			&agg.PeriodStart,
			&agg.TotalWorkouts,
			&agg.TotalSets,
			&agg.TotalReps,
			&agg.TotalWeight,
			&agg.ExercisesCount,
		); err != nil {
			return nil, err
		}
		aggs = append(aggs, agg)
	}
	return aggs, rows.Err()
}
