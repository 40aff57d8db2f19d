package store

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/repsnrecord/apiserver/types"
)

// SharedExportRepository handles persistence for client-pushed progress
// snapshots. Rows are immutable after insert except for the is-read flag.
type SharedExportRepository struct {
	db *sql.DB
}

func NewSharedExportRepository(db *sql.DB) *SharedExportRepository {
	return &SharedExportRepository{db: db}
}

// Create inserts a snapshot addressed to the trainer's inbox.
func (r *SharedExportRepository) Create(ctx context.Context, export types.SharedExport) error {
	const query = `
		INSERT INTO shared_exports (from_user_id, to_user_id, export_type, message, data_summary)
		VALUES ($1, $2, $3, NULLIF($4, ''), $5)`
	_, err := r.db.ExecContext(
		ctx,
		query,
		export.FromUserID,
		export.ToUserID,
		export.ExportType,
		export.Message,
		[]byte(export.DataSummary),
	)
	return err
}

// ListInbox returns the most recent snapshots sent to the trainer.
func (r *SharedExportRepository) ListInbox(ctx context.Context, trainerID string, limit int) ([]types.SharedExport, error) {
	if limit <= 0 {
		limit = 50
	}
	const query = `
		SELECT id, from_user_id, to_user_id, export_type, COALESCE(message, ''), data_summary, is_read, created_at
		FROM shared_exports
		WHERE to_user_id = $1
		ORDER BY created_at DESC
		LIMIT $2`
	rows, err := r.db.QueryContext(ctx, query, trainerID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var exports []types.SharedExport
	for rows.Next() {
		var export types.SharedExport
		var summary []byte
		if err := rows.Scan(
			&export.ID,
			&export.FromUserID,
			&export.ToUserID,
			&export.ExportType,
			&export.Message,
			&summary,
			&export.IsRead,
			&export.CreatedAt,
		); err != nil {
			return nil, err
		}
		export.DataSummary = json.RawMessage(summary)
		exports = append(exports, export)
	}
	return exports, rows.Err()
}

// MarkRead flips the is-read flag for one snapshot in the trainer's inbox.
func (r *SharedExportRepository) MarkRead(ctx context.Context, id int, trainerID string) error {
	const query = `UPDATE shared_exports SET is_read = true WHERE id = $1 AND to_user_id = $2`
	result, err := r.db.ExecContext(ctx, query, id, trainerID)
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
