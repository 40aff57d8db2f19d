package types

import "time"

// Streak summarizes consecutive-day workout runs.
type Streak struct {
	CurrentStreak int `json:"currentStreak"`
	LongestStreak int `json:"longestStreak"`
}

// StreakResult pairs the streak counters with the dates that contributed.
type StreakResult struct {
	Streak     Streak   `json:"streak"`
	StreakDays []string `json:"streakDays"`
}

// MonthlySummary aggregates one calendar month of workouts.
type MonthlySummary struct {
	Month         string `json:"month"` // YYYY-MM
	TotalWorkouts int    `json:"totalWorkouts"`
	TotalSets     int    `json:"totalSets"`
	TotalReps     int    `json:"totalReps"`
	AverageWeight int    `json:"averageWeight"`
}

// MonthCount is one bar of the yearly progress chart.
type MonthCount struct {
	Month string `json:"month"` // Jan..Dec
	Count int    `json:"count"`
}

// Aggregation period types persisted in workout_aggregates.
const (
	PeriodDaily   = "daily"
	PeriodWeekly  = "weekly"
	PeriodMonthly = "monthly"
)

// WorkoutAggregate is a persisted per-period rollup of a user's workouts.
type WorkoutAggregate struct {
	UserID         string    `json:"userId" db:"user_id"`
	PeriodType     string    `json:"periodType" db:"period_type"`
	PeriodStart    time.Time `json:"periodStart" db:"period_start"`
	TotalWorkouts  int       `json:"totalWorkouts" db:"total_workouts"`
	TotalSets      int       `json:"totalSets" db:"total_sets"`
	TotalReps      int       `json:"totalReps" db:"total_reps"`
	TotalWeight    float64   `json:"totalWeight" db:"total_weight"`
	ExercisesCount int       `json:"exercisesCount" db:"exercises_count"`
}
