package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/repsnrecord/apiserver/internal/services"
	"github.com/repsnrecord/apiserver/internal/store"
	"github.com/repsnrecord/apiserver/types"
)

const formFieldPhoto = "photo"

// PhotoHandler provides HTTP handlers for progress photos.
type PhotoHandler struct {
	photoService *services.PhotoService
}

func NewPhotoHandler(photoService *services.PhotoService) *PhotoHandler {
	return &PhotoHandler{photoService: photoService}
}

// PhotoRouter registers photo routes on the given router. uploadGuard, when
// non-nil, rate-limits the multipart upload endpoint.
func PhotoRouter(r chi.Router, photoService *services.PhotoService, resolver *IdentityResolver, uploadGuard func(http.Handler) http.Handler) {
	handler := NewPhotoHandler(photoService)

	r.Use(resolver.RequireIdentity)
	r.Get("/", handler.List)
	r.Post("/", handler.Register)
	if uploadGuard != nil {
		r.With(uploadGuard).Post("/upload", handler.Upload)
	} else {
		r.Post("/upload", handler.Upload)
	}
	r.Delete("/{photoID}", handler.Delete)
}

// List returns the caller's photos, optionally restricted to one YYYY-MM
// month.
func (h *PhotoHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, err := identityFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	photos, err := h.photoService.List(r.Context(), userID, strings.TrimSpace(r.URL.Query().Get("month")))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list photos")
		return
	}
	if photos == nil {
		photos = []types.Photo{}
	}
	writeJSON(w, http.StatusOK, photos)
}

// Register records metadata for a photo uploaded client-side.
func (h *PhotoHandler) Register(w http.ResponseWriter, r *http.Request) {
	userID, err := identityFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var photo types.Photo
	if err := decodeJSON(r, &photo); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}
	photo.UserID = userID
	photo.FileURL = strings.TrimSpace(photo.FileURL)
	if photo.FileURL == "" {
		writeError(w, http.StatusBadRequest, "fileUrl is required")
		return
	}

	created, err := h.photoService.Register(r.Context(), photo)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to save photo")
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

// Upload accepts a multipart photo binary, stores it, and records its
// metadata.
func (h *PhotoHandler) Upload(w http.ResponseWriter, r *http.Request) {
	userID, err := identityFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, services.MaxPhotoBytes+(1<<20))
	if err := r.ParseMultipartForm(services.MaxPhotoBytes); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	file, header, err := r.FormFile(formFieldPhoto)
	if err != nil {
		writeError(w, http.StatusBadRequest, "photo file is required")
		return
	}
	data, err := readFileLimited(file, services.MaxPhotoBytes)
	_ = file.Close()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	mimeType := strings.TrimSpace(header.Header.Get("Content-Type"))
	takenAt := parseTakenAt(r.FormValue("takenAt"))

	photo, err := h.photoService.Upload(r.Context(), services.UploadInput{
		UserID:      userID,
		Filename:    header.Filename,
		MimeType:    mimeType,
		Data:        data,
		TakenAt:     takenAt,
		Description: strings.TrimSpace(r.FormValue("description")),
	})
	if err != nil {
		if errors.Is(err, services.ErrUnsupportedImage) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to store photo")
		return
	}
	writeJSON(w, http.StatusCreated, photo)
}

// Delete removes a photo's metadata and, best effort, its stored binary.
func (h *PhotoHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, err := identityFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id := strings.TrimSpace(chi.URLParam(r, "photoID"))
	if id == "" {
		writeError(w, http.StatusBadRequest, "photo id is required")
		return
	}

	if err := h.photoService.Delete(r.Context(), id, userID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "photo not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to delete photo")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func parseTakenAt(value string) *time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, value); err == nil {
			return &t
		}
	}
	return nil
}
