package types

import "time"

// Personal record categories tracked per exercise.
const (
	RecordMaxWeight = "max_weight"
	RecordMaxReps   = "max_reps"
	RecordMaxVolume = "max_volume"
)

// ValidRecordType reports whether recordType names a tracked category.
func ValidRecordType(recordType string) bool {
	switch recordType {
	case RecordMaxWeight, RecordMaxReps, RecordMaxVolume:
		return true
	}
	return false
}

// PersonalRecord is the best value a user has achieved for one exercise and
// record type. At most one row exists per (user, exercise, type) and the
// value only ever increases.
type PersonalRecord struct {
	ID           int       `json:"id" db:"id"`
	UserID       string    `json:"userId" db:"user_id"`
	ExerciseName string    `json:"exerciseName" db:"exercise_name"`
	RecordType   string    `json:"recordType" db:"record_type"`
	Value        float64   `json:"value" db:"value"`
	AchievedAt   time.Time `json:"achievedAt" db:"achieved_at"`
	WorkoutID    string    `json:"workoutId,omitempty" db:"workout_id"`
}
