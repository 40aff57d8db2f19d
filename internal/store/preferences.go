package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/repsnrecord/apiserver/types"
)

// PreferencesRepository handles persistence for user preferences.
type PreferencesRepository struct {
	db *sql.DB
}

func NewPreferencesRepository(db *sql.DB) *PreferencesRepository {
	return &PreferencesRepository{db: db}
}

// Get returns the saved preferences for a user.
func (r *PreferencesRepository) Get(ctx context.Context, userID string) (types.UserPreferences, error) {
	const query = `
		SELECT user_id, COALESCE(email, ''), theme, notifications_enabled, email_reminders, weekly_summary, weight_unit
		FROM user_preferences
		WHERE user_id = $1`
	var prefs types.UserPreferences
	err := r.db.QueryRowContext(ctx, query, userID).Scan(
		&prefs.UserID,
		&prefs.Email,
		&prefs.Theme,
		&prefs.NotificationsEnabled,
		&prefs.EmailReminders,
		&prefs.WeeklySummary,
		&prefs.WeightUnit,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.UserPreferences{}, ErrNotFound
		}
		return types.UserPreferences{}, err
	}
	return prefs, nil
}

// Upsert saves the full preference set for a user.
func (r *PreferencesRepository) Upsert(ctx context.Context, prefs types.UserPreferences) (types.UserPreferences, error) {
	const query = `
		INSERT INTO user_preferences (user_id, email, theme, notifications_enabled, email_reminders, weekly_summary, weight_unit, updated_at)
		VALUES ($1, NULLIF($2, ''), $3, $4, $5, $6, $7, NOW())
		ON CONFLICT (user_id)
		DO UPDATE SET
			email = COALESCE(NULLIF($2, ''), user_preferences.email),
			theme = $3,
			notifications_enabled = $4,
			email_reminders = $5,
			weekly_summary = $6,
			weight_unit = $7,
			updated_at = NOW()
		RETURNING user_id, COALESCE(email, ''), theme, notifications_enabled, email_reminders, weekly_summary, weight_unit`
	var saved types.UserPreferences
	err := r.db.QueryRowContext(
		ctx,
		query,
		prefs.UserID,
		prefs.Email,
		prefs.Theme,
		prefs.NotificationsEnabled,
		prefs.EmailReminders,
		prefs.WeeklySummary,
		prefs.WeightUnit,
	).Scan(
		&saved.UserID,
		&saved.Email,
		&saved.Theme,
		&saved.NotificationsEnabled,
		&saved.EmailReminders,
		&saved.WeeklySummary,
		&saved.WeightUnit,
	)
	if err != nil {
		return types.UserPreferences{}, err
	}
	return saved, nil
}
