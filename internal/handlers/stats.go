package handlers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/repsnrecord/apiserver/internal/services"
)

// StatsHandler provides HTTP handlers for streaks, summaries, and
// aggregates.
type StatsHandler struct {
	statsService *services.StatsService
}

func NewStatsHandler(statsService *services.StatsService) *StatsHandler {
	return &StatsHandler{statsService: statsService}
}

// StatsRouter registers stats routes on the given router.
func StatsRouter(r chi.Router, statsService *services.StatsService, resolver *IdentityResolver) {
	handler := NewStatsHandler(statsService)

	r.Use(resolver.RequireIdentity)
	r.Get("/streak", handler.Streak)
	r.Get("/monthly-summary", handler.MonthlySummary)
	r.Get("/progress", handler.Progress)
	r.Get("/aggregation", handler.ListAggregates)
	r.Post("/aggregation", handler.Aggregate)
}

func (h *StatsHandler) Streak(w http.ResponseWriter, r *http.Request) {
	userID, err := identityFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	result, err := h.statsService.Streak(r.Context(), userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to compute streak")
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *StatsHandler) MonthlySummary(w http.ResponseWriter, r *http.Request) {
	userID, err := identityFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	summary, err := h.statsService.MonthlySummary(r.Context(), userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to compute summary")
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// Progress returns per-month workout counts for one year, defaulting to the
// current year.
func (h *StatsHandler) Progress(w http.ResponseWriter, r *http.Request) {
	userID, err := identityFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	year := time.Now().Year()
	if raw := strings.TrimSpace(r.URL.Query().Get("year")); raw != "" {
		year, err = strconv.Atoi(raw)
		if err != nil || year < 2000 || year > 2200 {
			writeError(w, http.StatusBadRequest, "invalid year")
			return
		}
	}

	counts, err := h.statsService.YearlyCounts(r.Context(), userID, year)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to compute progress")
		return
	}
	writeJSON(w, http.StatusOK, counts)
}

// Aggregate recomputes and stores the caller's period aggregates, returning
// the fresh rows.
func (h *StatsHandler) Aggregate(w http.ResponseWriter, r *http.Request) {
	userID, err := identityFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	aggregates, err := h.statsService.Aggregate(r.Context(), userID, strings.TrimSpace(r.URL.Query().Get("period")))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to aggregate workouts")
		return
	}
	writeJSON(w, http.StatusOK, aggregates)
}

func (h *StatsHandler) ListAggregates(w http.ResponseWriter, r *http.Request) {
	userID, err := identityFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	aggregates, err := h.statsService.ListAggregates(r.Context(), userID, strings.TrimSpace(r.URL.Query().Get("period")))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list aggregates")
		return
	}
	writeJSON(w, http.StatusOK, aggregates)
}
