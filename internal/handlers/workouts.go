package handlers

import (
	"context"
	"errors"
	"net/http"
	"regexp"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/repsnrecord/apiserver/internal/store"
	"github.com/repsnrecord/apiserver/types"
)

var dateRe = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// WorkoutStore is the slice of the workout repository the handlers need.
type WorkoutStore interface {
	List(ctx context.Context, filter types.WorkoutFilter) ([]types.Workout, error)
	Create(ctx context.Context, workout types.Workout) (types.Workout, error)
	UpsertByDate(ctx context.Context, workout types.Workout) (types.Workout, error)
	Delete(ctx context.Context, id string) error
}

// WorkoutHandler provides HTTP handlers for workout entries.
type WorkoutHandler struct {
	workouts WorkoutStore
}

func NewWorkoutHandler(workouts WorkoutStore) *WorkoutHandler {
	return &WorkoutHandler{workouts: workouts}
}

// WorkoutRouter registers workout routes on the given router. /workoutlog is
// an alias kept for older clients; /workout-days is the legacy
// overwrite-on-duplicate-date path.
func WorkoutRouter(r chi.Router, workouts WorkoutStore, resolver *IdentityResolver) {
	handler := NewWorkoutHandler(workouts)

	r.Use(resolver.RequireIdentity)
	r.Get("/workouts", handler.List)
	r.Post("/workouts", handler.Create)
	r.Delete("/workouts/{workoutID}", handler.Delete)
	r.Get("/workoutlog", handler.List)
	r.Post("/workoutlog", handler.Create)
	r.Get("/workout-days", handler.List)
	r.Post("/workout-days", handler.UpsertByDate)
}

// List returns the caller's workouts, newest first, optionally bounded by
// startDate/endDate.
func (h *WorkoutHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, err := identityFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	query := r.URL.Query()
	workouts, err := h.workouts.List(r.Context(), types.WorkoutFilter{
		UserID:    userID,
		StartDate: strings.TrimSpace(query.Get("startDate")),
		EndDate:   strings.TrimSpace(query.Get("endDate")),
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list workouts")
		return
	}
	if workouts == nil {
		workouts = []types.Workout{}
	}
	writeJSON(w, http.StatusOK, workouts)
}

func (h *WorkoutHandler) Create(w http.ResponseWriter, r *http.Request) {
	workout, ok := h.parseWorkout(w, r)
	if !ok {
		return
	}

	created, err := h.workouts.Create(r.Context(), workout)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to create workout")
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

// UpsertByDate overwrites the entry for the workout's calendar day if one
// exists, otherwise creates it.
func (h *WorkoutHandler) UpsertByDate(w http.ResponseWriter, r *http.Request) {
	workout, ok := h.parseWorkout(w, r)
	if !ok {
		return
	}

	saved, err := h.workouts.UpsertByDate(r.Context(), workout)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to save workout")
		return
	}
	writeJSON(w, http.StatusOK, saved)
}

func (h *WorkoutHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(chi.URLParam(r, "workoutID"))
	if id == "" {
		writeError(w, http.StatusBadRequest, "workout id is required")
		return
	}

	if err := h.workouts.Delete(r.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "workout not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to delete workout")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *WorkoutHandler) parseWorkout(w http.ResponseWriter, r *http.Request) (types.Workout, bool) {
	userID, err := identityFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return types.Workout{}, false
	}

	var workout types.Workout
	if err := decodeJSON(r, &workout); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return types.Workout{}, false
	}

	workout.ID = ""
	workout.UserID = userID
	workout.Date = strings.TrimSpace(workout.Date)
	workout.ExerciseName = strings.TrimSpace(workout.ExerciseName)
	if !dateRe.MatchString(workout.Date) {
		writeError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
		return types.Workout{}, false
	}
	if workout.ExerciseName == "" {
		writeError(w, http.StatusBadRequest, "exerciseName is required")
		return types.Workout{}, false
	}
	if workout.Sets < 0 || workout.Reps < 0 || workout.Weight < 0 {
		writeError(w, http.StatusBadRequest, "sets, reps, and weight must not be negative")
		return types.Workout{}, false
	}
	if workout.Intensity < 0 || workout.Intensity > 5 {
		writeError(w, http.StatusBadRequest, "intensity must be between 0 and 5")
		return types.Workout{}, false
	}
	return workout, true
}
