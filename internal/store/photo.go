package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/repsnrecord/apiserver/types"
)

// Exports cap the number of photos per archive.
const maxExportPhotos = 100

// PhotoRepository handles persistence for photo metadata. The binary
// content lives in object storage.
type PhotoRepository struct {
	db *sql.DB
}

func NewPhotoRepository(db *sql.DB) *PhotoRepository {
	return &PhotoRepository{db: db}
}

const photoColumns = `id, user_id, file_url, thumb_url, COALESCE(mime_type, ''), COALESCE(bytes, 0),
		COALESCE(width, 0), COALESCE(height, 0), taken_at, COALESCE(description, ''), created_at`

func scanPhoto(scanner interface{ Scan(...any) error }) (types.Photo, error) {
	var photo types.Photo
	err := scanner.Scan(
		&photo.ID,
		&photo.UserID,
		&photo.FileURL,
		&photo.ThumbURL,
		&photo.MimeType,
		&photo.Bytes,
		&photo.Width,
		&photo.Height,
		&photo.TakenAt,
		&photo.Description,
		&photo.CreatedAt,
	)
	return photo, err
}

// Create inserts a metadata row.
func (r *PhotoRepository) Create(ctx context.Context, photo types.Photo) (types.Photo, error) {
	const query = `
		INSERT INTO photos (id, user_id, file_url, thumb_url, mime_type, bytes, width, height, taken_at, description)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6, $7, $8, $9, NULLIF($10, ''))
		RETURNING created_at`
	err := r.db.QueryRowContext(
		ctx,
		query,
		photo.ID,
		photo.UserID,
		photo.FileURL,
		photo.ThumbURL,
		photo.MimeType,
		photo.Bytes,
		photo.Width,
		photo.Height,
		photo.TakenAt,
		photo.Description,
	).Scan(&photo.CreatedAt)
	if err != nil {
		return types.Photo{}, err
	}
	return photo, nil
}

// ListForExport returns up to maxExportPhotos metadata rows for the user,
// optionally bounded by taken-at calendar dates, newest first.
func (r *PhotoRepository) ListForExport(ctx context.Context, userID, startDate, endDate string) ([]types.Photo, error) {
	query := `SELECT ` + photoColumns + ` FROM photos WHERE user_id = $1`
	args := []any{userID}
	if startDate != "" {
		args = append(args, startDate)
		query += ` AND DATE(taken_at) >= $2`
	}
	if endDate != "" {
		args = append(args, endDate)
		if startDate != "" {
			query += ` AND DATE(taken_at) <= $3`
		} else {
			query += ` AND DATE(taken_at) <= $2`
		}
	}
	query += fmt.Sprintf(` ORDER BY taken_at DESC LIMIT %d`, maxExportPhotos)

	return r.listQuery(ctx, query, args...)
}

// ListByMonth returns the user's photos, optionally restricted to one
// YYYY-MM month of taken-at timestamps.
func (r *PhotoRepository) ListByMonth(ctx context.Context, userID, month string) ([]types.Photo, error) {
	if month == "" {
		const query = `SELECT ` + photoColumns + `
			FROM photos
			WHERE user_id = $1
			ORDER BY taken_at DESC NULLS LAST, created_at DESC`
		return r.listQuery(ctx, query, userID)
	}

	const query = `SELECT ` + photoColumns + `
		FROM photos
		WHERE user_id = $1
		  AND taken_at >= $2::timestamptz
		  AND taken_at < ($2::timestamptz + INTERVAL '1 month')
		ORDER BY taken_at DESC NULLS LAST, created_at DESC`
	return r.listQuery(ctx, query, userID, month+"-01")
}

func (r *PhotoRepository) listQuery(ctx context.Context, query string, args ...any) ([]types.Photo, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var photos []types.Photo
	for rows.Next() {
		photo, err := scanPhoto(rows)
		if err != nil {
			return nil, err
		}
		photos = append(photos, photo)
	}
	return photos, rows.Err()
}

// Get returns one photo scoped to its owner.
func (r *PhotoRepository) Get(ctx context.Context, id, userID string) (types.Photo, error) {
	const query = `SELECT ` + photoColumns + ` FROM photos WHERE id = $1 AND user_id = $2`
	photo, err := scanPhoto(r.db.QueryRowContext(ctx, query, id, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Photo{}, ErrNotFound
		}
		return types.Photo{}, err
	}
	return photo, nil
}

// Delete removes a photo row scoped to its owner.
func (r *PhotoRepository) Delete(ctx context.Context, id, userID string) error {
	const query = `DELETE FROM photos WHERE id = $1 AND user_id = $2`
	result, err := r.db.ExecContext(ctx, query, id, userID)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// CountByUser returns the user's total photo count.
func (r *PhotoRepository) CountByUser(ctx context.Context, userID string) (int, error) {
	const query = `SELECT COUNT(*) FROM photos WHERE user_id = $1`
	var count int
	if err := r.db.QueryRowContext(ctx, query, userID).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}
