package handlers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/repsnrecord/apiserver/internal/services"
	"github.com/repsnrecord/apiserver/types"
)

// RecordHandler provides HTTP handlers for personal records.
type RecordHandler struct {
	recordService *services.RecordService
}

func NewRecordHandler(recordService *services.RecordService) *RecordHandler {
	return &RecordHandler{recordService: recordService}
}

// RecordRouter registers personal-record routes on the given router.
func RecordRouter(r chi.Router, recordService *services.RecordService, resolver *IdentityResolver) {
	handler := NewRecordHandler(recordService)

	r.Use(resolver.RequireIdentity)
	r.Get("/", handler.List)
	r.Post("/", handler.Submit)
}

func (h *RecordHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, err := identityFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	records, err := h.recordService.List(r.Context(), userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list records")
		return
	}
	if records == nil {
		records = []types.PersonalRecord{}
	}
	writeJSON(w, http.StatusOK, records)
}

// Submit evaluates a candidate record. The stored value only changes when
// the candidate strictly exceeds it.
func (h *RecordHandler) Submit(w http.ResponseWriter, r *http.Request) {
	userID, err := identityFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req struct {
		ExerciseName string  `json:"exerciseName"`
		RecordType   string  `json:"recordType"`
		Value        float64 `json:"value"`
		WorkoutID    string  `json:"workoutId"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}
	req.ExerciseName = strings.TrimSpace(req.ExerciseName)
	if req.ExerciseName == "" {
		writeError(w, http.StatusBadRequest, "exerciseName is required")
		return
	}
	if !types.ValidRecordType(req.RecordType) {
		writeError(w, http.StatusBadRequest, "recordType must be max_weight, max_reps, or max_volume")
		return
	}
	if req.Value <= 0 {
		writeError(w, http.StatusBadRequest, "value must be positive")
		return
	}
	result, err := h.recordService.Submit(r.Context(), types.PersonalRecord{
		UserID:       userID,
		ExerciseName: req.ExerciseName,
		RecordType:   req.RecordType,
		Value:        req.Value,
		WorkoutID:    strings.TrimSpace(req.WorkoutID),
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to save record")
		return
	}
	writeJSON(w, http.StatusOK, result)
}
