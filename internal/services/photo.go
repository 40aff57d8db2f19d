package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/repsnrecord/apiserver/internal/storage"
	"github.com/repsnrecord/apiserver/types"
)

// MaxPhotoBytes caps a single photo upload.
const MaxPhotoBytes = 10 << 20

var ErrUnsupportedImage = errors.New("unsupported image type")

var allowedImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
	"image/heic": true,
	"image/heif": true,
}

// PhotoStore defines persistence operations for photo metadata.
type PhotoStore interface {
	Create(ctx context.Context, photo types.Photo) (types.Photo, error)
	ListByMonth(ctx context.Context, userID, month string) ([]types.Photo, error)
	Get(ctx context.Context, id, userID string) (types.Photo, error)
	Delete(ctx context.Context, id, userID string) error
}

// PhotoService stores photo binaries in object storage and their metadata in
// the relational store. Either can exist without the other: uploads write the
// object first, and external photos are registered metadata-only.
type PhotoService struct {
	store   PhotoStore
	objects *storage.Storage
}

func NewPhotoService(store PhotoStore, objects *storage.Storage) *PhotoService {
	return &PhotoService{store: store, objects: objects}
}

// UploadInput carries a photo binary and its caller-supplied metadata.
type UploadInput struct {
	UserID      string
	Filename    string
	MimeType    string
	Data        []byte
	TakenAt     *time.Time
	Description string
}

// Upload stores the binary and registers its metadata. Pixel dimensions are
// recorded when the format is decodable; formats the server cannot decode
// (HEIC among the accepted set) are stored with zero dimensions.
func (s *PhotoService) Upload(ctx context.Context, input UploadInput) (types.Photo, error) {
	if !allowedImageTypes[input.MimeType] {
		return types.Photo{}, ErrUnsupportedImage
	}
	if len(input.Data) == 0 || len(input.Data) > MaxPhotoBytes {
		return types.Photo{}, fmt.Errorf("photo must be between 1 byte and %d bytes", MaxPhotoBytes)
	}

	var width, height int
	if cfg, _, err := image.DecodeConfig(bytes.NewReader(input.Data)); err == nil {
		width, height = cfg.Width, cfg.Height
	}

	id := uuid.NewString()
	now := time.Now().UTC()
	key := fmt.Sprintf("%s/%04d/%02d/%s%s", input.UserID, now.Year(), now.Month(), id, fileSuffix(input.MimeType, input.Filename))
	if err := s.objects.Put(ctx, key, bytes.NewReader(input.Data), int64(len(input.Data)), input.MimeType); err != nil {
		return types.Photo{}, fmt.Errorf("store photo object: %w", err)
	}

	url := s.objects.URLFor(key)
	photo, err := s.store.Create(ctx, types.Photo{
		ID:          id,
		UserID:      input.UserID,
		FileURL:     url,
		ThumbURL:    url,
		MimeType:    input.MimeType,
		Bytes:       int64(len(input.Data)),
		Width:       width,
		Height:      height,
		TakenAt:     input.TakenAt,
		Description: input.Description,
	})
	if err != nil {
		if delErr := s.objects.Delete(ctx, key); delErr != nil {
			slog.WarnContext(ctx, "orphaned photo object", "key", key, "error", delErr)
		}
		return types.Photo{}, err
	}
	return photo, nil
}

// Register records metadata for a photo hosted elsewhere. No binary is
// stored; the file URL is taken as-is.
func (s *PhotoService) Register(ctx context.Context, photo types.Photo) (types.Photo, error) {
	if photo.ID == "" {
		photo.ID = uuid.NewString()
	}
	if photo.ThumbURL == "" {
		photo.ThumbURL = photo.FileURL
	}
	return s.store.Create(ctx, photo)
}

// List returns the user's photos, optionally restricted to one YYYY-MM month.
func (s *PhotoService) List(ctx context.Context, userID, month string) ([]types.Photo, error) {
	return s.store.ListByMonth(ctx, userID, month)
}

// Get returns one photo scoped to its owner.
func (s *PhotoService) Get(ctx context.Context, id, userID string) (types.Photo, error) {
	return s.store.Get(ctx, id, userID)
}

// Delete removes the metadata row and, best effort, the stored object.
// Metadata-only photos and objects already gone do not fail the delete.
func (s *PhotoService) Delete(ctx context.Context, id, userID string) error {
	photo, err := s.store.Get(ctx, id, userID)
	if err != nil {
		return err
	}
	if err := s.store.Delete(ctx, id, userID); err != nil {
		return err
	}
	if key, ok := s.objectKey(photo.FileURL); ok {
		if err := s.objects.Delete(ctx, key); err != nil {
			slog.WarnContext(ctx, "delete photo object", "key", key, "error", err)
		}
	}
	return nil
}

// objectKey recovers the storage key from a file URL. URLs that do not point
// into the configured bucket belong to externally hosted photos.
func (s *PhotoService) objectKey(fileURL string) (string, bool) {
	marker := "/" + s.objects.Bucket() + "/"
	idx := strings.Index(fileURL, marker)
	if idx < 0 {
		return "", false
	}
	return fileURL[idx+len(marker):], true
}

// fileSuffix picks the object key extension from the declared mime type,
// falling back to the upload filename.
func fileSuffix(mimeType, filename string) string {
	switch mimeType {
	case "image/jpeg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "image/webp":
		return ".webp"
	case "image/heic", "image/heif":
		return ".heic"
	}
	if dot := strings.LastIndex(filename, "."); dot >= 0 {
		return strings.ToLower(filename[dot:])
	}
	return ".jpg"
}
