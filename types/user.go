package types

import "time"

// Roles a user account can hold. Role elevation is stored separately from
// the account row so externally-authenticated users (no local account) can
// still be assigned a role.
const (
	RoleUser    = "user"
	RoleTrainer = "trainer"
	RoleAdmin   = "admin"
)

// User represents an account in the system.
// It contains identity, role, and audit metadata.
type User struct {
	// ID is the opaque unique identifier of the user. It matches the
	// user_id claim carried in bearer tokens.
	ID string `json:"id" db:"id"`

	// Username is the unique login name chosen by the user.
	Username string `json:"username" db:"username"`

	// Email is the user's email address.
	Email string `json:"email" db:"email"`

	// Name is the user's display or full name.
	Name string `json:"name" db:"name"`

	// Role indicates the user's authorization level within the system
	// ("user", "trainer", or "admin").
	Role string `json:"role" db:"role"`

	// PasswordHash stores the hashed representation of the user's password.
	// This field is never exposed in API responses.
	PasswordHash string `json:"-" db:"password_hash"`

	// CreatedAt is the timestamp when the user account was created.
	CreatedAt time.Time `json:"created_at" db:"created_at"`

	// UpdatedAt is the timestamp of the most recent update to the user account.
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// UserRole is a role assignment for a user id, independent of whether a
// local account row exists.
type UserRole struct {
	UserID string `json:"userId" db:"user_id"`
	Role   string `json:"role" db:"role"`
}

// ValidRole reports whether role is one of the assignable roles.
func ValidRole(role string) bool {
	switch role {
	case RoleUser, RoleTrainer, RoleAdmin:
		return true
	}
	return false
}

// UserPreferences holds per-user display and notification settings.
type UserPreferences struct {
	UserID               string `json:"userId" db:"user_id"`
	Email                string `json:"email,omitempty" db:"email"`
	Theme                string `json:"theme" db:"theme"`
	NotificationsEnabled bool   `json:"notificationsEnabled" db:"notifications_enabled"`
	EmailReminders       bool   `json:"emailReminders" db:"email_reminders"`
	WeeklySummary        bool   `json:"weeklySummary" db:"weekly_summary"`
	WeightUnit           string `json:"weightUnit" db:"weight_unit"`
}

// DefaultPreferences returns the settings applied when a user has never
// saved preferences.
func DefaultPreferences(userID string) UserPreferences {
	return UserPreferences{
		UserID:               userID,
		Theme:                "light",
		NotificationsEnabled: true,
		EmailReminders:       false,
		WeeklySummary:        true,
		WeightUnit:           "lbs",
	}
}
