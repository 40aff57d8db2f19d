package store

import (
	"context"
	"database/sql"
)

// SearchRepository finds user ids across every table a user can appear in.
// Identities come from an external provider, so there is no single users
// table guaranteed to contain them all.
type SearchRepository struct {
	db *sql.DB
}

func NewSearchRepository(db *sql.DB) *SearchRepository {
	return &SearchRepository{db: db}
}

// UserIDs returns the distinct user ids whose id or preference email
// matches the pattern (case-insensitive substring).
func (r *SearchRepository) UserIDs(ctx context.Context, q string) ([]string, error) {
	const query = `
		SELECT DISTINCT user_id FROM (
			SELECT user_id FROM user_roles WHERE user_id ILIKE $1
			UNION
			SELECT user_id FROM user_preferences WHERE user_id ILIKE $1 OR email ILIKE $1
			UNION
			SELECT user_id FROM photos WHERE user_id ILIKE $1
			UNION
			SELECT from_user_id AS user_id FROM connection_requests WHERE from_user_id ILIKE $1
			UNION
			SELECT to_user_id AS user_id FROM connection_requests WHERE to_user_id ILIKE $1
		) combined_users`
	pattern := "%" + q + "%"
	rows, err := r.db.QueryContext(ctx, query, pattern)
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
