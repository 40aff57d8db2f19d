package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/repsnrecord/apiserver/types"
)

// ConnectionRepository handles persistence for connection requests.
type ConnectionRepository struct {
	db *sql.DB
}

func NewConnectionRepository(db *sql.DB) *ConnectionRepository {
	return &ConnectionRepository{db: db}
}

// ListSent returns every request the user has sent, newest first.
func (r *ConnectionRepository) ListSent(ctx context.Context, userID string) ([]types.ConnectionRequest, error) {
	const query = `
		SELECT id, from_user_id, to_user_id, from_role, status, COALESCE(message, ''), created_at
		FROM connection_requests
		WHERE from_user_id = $1
		ORDER BY created_at DESC`
	return r.list(ctx, query, userID)
}

// ListPendingReceived returns pending requests addressed to the user,
// newest first.
func (r *ConnectionRepository) ListPendingReceived(ctx context.Context, userID string) ([]types.ConnectionRequest, error) {
	const query = `
		SELECT id, from_user_id, to_user_id, from_role, status, COALESCE(message, ''), created_at
		FROM connection_requests
		WHERE to_user_id = $1 AND status = 'pending'
		ORDER BY created_at DESC`
	return r.list(ctx, query, userID)
}

func (r *ConnectionRepository) list(ctx context.Context, query, userID string) ([]types.ConnectionRequest, error) {
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var requests []types.ConnectionRequest
	for rows.Next() {
		var req types.ConnectionRequest
		if err := rows.Scan(&req.ID, &req.FromUserID, &req.ToUserID, &req.FromRole, &req.Status, &req.Message, &req.CreatedAt); err != nil {
			return nil, err
		}
		requests = append(requests, req)
	}
	return requests, rows.Err()
}

// HasPending reports whether a pending request already exists between the
// pair. Duplicate prevention is query-before-insert, matching the product's
// at-most-one-pending rule.
func (r *ConnectionRepository) HasPending(ctx context.Context, fromUserID, toUserID string) (bool, error) {
	const query = `
		SELECT 1 FROM connection_requests
		WHERE from_user_id = $1 AND to_user_id = $2 AND status = 'pending'`
	var one int
	err := r.db.QueryRowContext(ctx, query, fromUserID, toUserID).Scan(&one)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Create inserts a new pending request.
func (r *ConnectionRepository) Create(ctx context.Context, req types.ConnectionRequest) error {
	const query = `
		INSERT INTO connection_requests (from_user_id, to_user_id, from_role, message)
		VALUES ($1, $2, $3, NULLIF($4, ''))`
	_, err := r.db.ExecContext(ctx, query, req.FromUserID, req.ToUserID, req.FromRole, req.Message)
	return err
}

// GetForRecipient loads a request by id, scoped to its recipient.
func (r *ConnectionRepository) GetForRecipient(ctx context.Context, requestID int, toUserID string) (types.ConnectionRequest, error) {
	const query = `
		SELECT id, from_user_id, to_user_id, from_role, status, COALESCE(message, ''), created_at
		FROM connection_requests
		WHERE id = $1 AND to_user_id = $2`
	var req types.ConnectionRequest
	err := r.db.QueryRowContext(ctx, query, requestID, toUserID).Scan(
		&req.ID, &req.FromUserID, &req.ToUserID, &req.FromRole, &req.Status, &req.Message, &req.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.ConnectionRequest{}, ErrNotFound
		}
		return types.ConnectionRequest{}, err
	}
	return req, nil
}

// SetStatus transitions a request to accepted or declined.
func (r *ConnectionRepository) SetStatus(ctx context.Context, requestID int, status string) error {
	const query = `UPDATE connection_requests SET status = $2, updated_at = NOW() WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, requestID, status)
	return err
}

// PendingRecipientIDs returns the ids the user has outstanding requests to.
func (r *ConnectionRepository) PendingRecipientIDs(ctx context.Context, fromUserID string) ([]string, error) {
	const query = `
		SELECT to_user_id FROM connection_requests
		WHERE from_user_id = $1 AND status = 'pending'`
	rows, err := r.db.QueryContext(ctx, query, fromUserID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
