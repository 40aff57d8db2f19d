package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/repsnrecord/apiserver/types"
)

// TrainerClientRepository handles persistence for trainer-client links.
// Links are soft-deleted by flipping status to inactive.
type TrainerClientRepository struct {
	db *sql.DB
}

func NewTrainerClientRepository(db *sql.DB) *TrainerClientRepository {
	return &TrainerClientRepository{db: db}
}

// ListClients returns a trainer's active clients, newest first.
func (r *TrainerClientRepository) ListClients(ctx context.Context, trainerID string) ([]types.TrainerClient, error) {
	const query = `
		SELECT trainer_id, client_id, status, created_at
		FROM trainer_clients
		WHERE trainer_id = $1 AND status = $2
		ORDER BY created_at DESC`
	rows, err := r.db.QueryContext(ctx, query, trainerID, types.LinkStatusActive)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var links []types.TrainerClient
	for rows.Next() {
		var link types.TrainerClient
		if err := rows.Scan(&link.TrainerID, &link.ClientID, &link.Status, &link.CreatedAt); err != nil {
			return nil, err
		}
		links = append(links, link)
	}
	return links, rows.Err()
}

// ActiveTrainerFor returns the trainer linked to the client, if any.
func (r *TrainerClientRepository) ActiveTrainerFor(ctx context.Context, clientID string) (string, error) {
	const query = `
		SELECT trainer_id
		FROM trainer_clients
		WHERE client_id = $1 AND status = $2
		LIMIT 1`
	var trainerID string
	err := r.db.QueryRowContext(ctx, query, clientID, types.LinkStatusActive).Scan(&trainerID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrNotFound
		}
		return "", err
	}
	return trainerID, nil
}

// Upsert creates the link or reactivates an inactive one.
func (r *TrainerClientRepository) Upsert(ctx context.Context, trainerID, clientID string) (types.TrainerClient, error) {
	const query = `
		INSERT INTO trainer_clients (trainer_id, client_id, status)
		VALUES ($1, $2, $3)
		ON CONFLICT (trainer_id, client_id)
		DO UPDATE SET status = $3
		RETURNING trainer_id, client_id, status, created_at`
	var link types.TrainerClient
	err := r.db.QueryRowContext(ctx, query, trainerID, clientID, types.LinkStatusActive).Scan(
		&link.TrainerID,
		&link.ClientID,
		&link.Status,
		&link.CreatedAt,
	)
	if err != nil {
		return types.TrainerClient{}, err
	}
	return link, nil
}

// Deactivate soft-deletes the link.
func (r *TrainerClientRepository) Deactivate(ctx context.Context, trainerID, clientID string) error {
	const query = `
		UPDATE trainer_clients
		SET status = $3
		WHERE trainer_id = $1 AND client_id = $2`
	_, err := r.db.ExecContext(ctx, query, trainerID, clientID, types.LinkStatusInactive)
	return err
}

// ClientIDs returns every client id ever linked to the trainer, regardless
// of status. Used to exclude known clients from user search results.
func (r *TrainerClientRepository) ClientIDs(ctx context.Context, trainerID string) ([]string, error) {
	const query = `SELECT DISTINCT client_id FROM trainer_clients WHERE trainer_id = $1`
	rows, err := r.db.QueryContext(ctx, query, trainerID)
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
