package types

import "time"

// Workout is a single logged exercise entry. Entries live in the document
// store; the date is a calendar day string so range queries compare
// lexicographically.
type Workout struct {
	// ID is the hex document id assigned by the store.
	ID string `json:"id" bson:"_id,omitempty"`

	// UserID is the owner of the entry.
	UserID string `json:"userId" bson:"userId"`

	// Date is the calendar day of the workout, formatted YYYY-MM-DD.
	Date string `json:"date" bson:"date"`

	// ExerciseName identifies the exercise performed.
	ExerciseName string `json:"exerciseName" bson:"exerciseName"`

	Sets   int     `json:"sets" bson:"sets"`
	Reps   int     `json:"reps" bson:"reps"`
	Weight float64 `json:"weight" bson:"weight"`

	// Notes is free-form text attached by the user.
	Notes string `json:"notes,omitempty" bson:"notes,omitempty"`

	// Intensity is an optional 0-5 perceived-effort rating.
	Intensity int `json:"intensity,omitempty" bson:"intensity,omitempty"`

	CreatedAt time.Time `json:"createdAt,omitempty" bson:"createdAt,omitempty"`
}

// WorkoutFilter bounds a workout query by owner and optional date range.
// Empty bounds are open.
type WorkoutFilter struct {
	UserID    string
	StartDate string
	EndDate   string
}
