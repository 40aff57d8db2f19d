package handlers

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/repsnrecord/apiserver/internal/services"
)

// ExportHandler serves the CSV and ZIP export downloads.
type ExportHandler struct {
	exportService *services.ExportService
}

func NewExportHandler(exportService *services.ExportService) *ExportHandler {
	return &ExportHandler{exportService: exportService}
}

// ExportRouter registers export routes on the given router. Identity is
// optional at the routing layer; the service rejects unauthenticated
// requests itself so the 400-before-401 ordering for a missing userId is
// preserved.
func ExportRouter(r chi.Router, exportService *services.ExportService, resolver *IdentityResolver) {
	handler := NewExportHandler(exportService)

	r.With(resolver.OptionalIdentity).Get("/csv", handler.ExportCSV)
	r.With(resolver.OptionalIdentity).Get("/zip", handler.ExportZIP)
}

func (h *ExportHandler) ExportCSV(w http.ResponseWriter, r *http.Request) {
	req, ok := h.parseRequest(w, r)
	if !ok {
		return
	}

	data, err := h.exportService.ExportCSV(r.Context(), req)
	if err != nil {
		h.writeExportError(w, r, err)
		return
	}

	filename := fmt.Sprintf("workouts-export-%s.csv", time.Now().Format("2006-01-02"))
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (h *ExportHandler) ExportZIP(w http.ResponseWriter, r *http.Request) {
	req, ok := h.parseRequest(w, r)
	if !ok {
		return
	}
	req.IncludePhotos = includePhotosParam(r.URL.Query().Get("includePhotos"))

	result, err := h.exportService.ExportZIP(r.Context(), req)
	if err != nil {
		h.writeExportError(w, r, err)
		return
	}

	filename := fmt.Sprintf("repsnrecord-export-%s.zip", time.Now().Format("2006-01-02"))
	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(result.Data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(result.Data)
}

func (h *ExportHandler) parseRequest(w http.ResponseWriter, r *http.Request) (services.ExportRequest, bool) {
	query := r.URL.Query()
	clientID := strings.TrimSpace(query.Get("userId"))
	if clientID == "" {
		writeError(w, http.StatusBadRequest, "userId is required")
		return services.ExportRequest{}, false
	}

	identity, _ := identityFromContext(r.Context())
	return services.ExportRequest{
		Identity:    identity,
		ClientID:    clientID,
		RequesterID: strings.TrimSpace(query.Get("requesterId")),
		StartDate:   strings.TrimSpace(query.Get("startDate")),
		EndDate:     strings.TrimSpace(query.Get("endDate")),
	}, true
}

func (h *ExportHandler) writeExportError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, services.ErrUnauthenticated):
		writeError(w, http.StatusUnauthorized, "unauthorized")
	case errors.Is(err, services.ErrForbidden),
		errors.Is(err, services.ErrNotATrainer),
		errors.Is(err, services.ErrExportNotPermitted):
		writeError(w, http.StatusForbidden, err.Error())
	default:
		slog.ErrorContext(r.Context(), "export failed", "error", err)
		writeError(w, http.StatusInternalServerError, "export failed")
	}
}

// includePhotosParam treats photos as included unless the caller explicitly
// declines with "false".
func includePhotosParam(value string) bool {
	return !strings.EqualFold(strings.TrimSpace(value), "false")
}
