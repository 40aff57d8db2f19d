package types

import (
	"encoding/json"
	"time"
)

// Trainer-client link statuses. Links are never hard-deleted; removal flips
// the status to inactive.
const (
	LinkStatusActive   = "active"
	LinkStatusInactive = "inactive"
)

// Defaults applied when no permission row exists for a (trainer, client)
// pair. Export is deliberately fail-open and photo sharing fail-closed.
const (
	DefaultAllowExport = true
	DefaultAllowPhotos = false
)

// TrainerClient links a trainer to a client. At most one row exists per
// (trainer, client) pair.
type TrainerClient struct {
	TrainerID string    `json:"trainerId" db:"trainer_id"`
	ClientID  string    `json:"clientId" db:"client_id"`
	Status    string    `json:"status" db:"status"`
	CreatedAt time.Time `json:"addedAt" db:"created_at"`
}

// TrainerPermission records a client's consent for a trainer to export
// their data and to include progress photos in exports. Only the client may
// mutate this record.
type TrainerPermission struct {
	TrainerID   string    `json:"trainerId" db:"trainer_id"`
	ClientID    string    `json:"clientId" db:"client_id"`
	AllowExport bool      `json:"allowExport" db:"allow_export"`
	AllowPhotos bool      `json:"allowPhotos" db:"allow_photos"`
	CreatedAt   time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt   time.Time `json:"updatedAt" db:"updated_at"`
}

// Connection request statuses. Pending requests transition to accepted or
// declined; declined is terminal.
const (
	RequestStatusPending  = "pending"
	RequestStatusAccepted = "accepted"
	RequestStatusDeclined = "declined"
)

// ConnectionRequest is an invitation from one user to another to form a
// trainer-client link.
type ConnectionRequest struct {
	ID         int       `json:"id" db:"id"`
	FromUserID string    `json:"fromUserId" db:"from_user_id"`
	ToUserID   string    `json:"toUserId" db:"to_user_id"`
	FromRole   string    `json:"fromRole" db:"from_role"`
	Status     string    `json:"status" db:"status"`
	Message    string    `json:"message,omitempty" db:"message"`
	CreatedAt  time.Time `json:"createdAt" db:"created_at"`
}

// SharedExport is a client-pushed progress snapshot delivered to a
// trainer's inbox. DataSummary is frozen at share time, not live data.
type SharedExport struct {
	ID          int             `json:"id" db:"id"`
	FromUserID  string          `json:"clientId" db:"from_user_id"`
	ToUserID    string          `json:"trainerId" db:"to_user_id"`
	ExportType  string          `json:"exportType" db:"export_type"`
	Message     string          `json:"message,omitempty" db:"message"`
	DataSummary json.RawMessage `json:"dataSummary" db:"data_summary"`
	IsRead      bool            `json:"isRead" db:"is_read"`
	CreatedAt   time.Time       `json:"createdAt" db:"created_at"`
}

// ShareSummary is the snapshot serialized into SharedExport.DataSummary.
type ShareSummary struct {
	TotalWorkouts  int       `json:"totalWorkouts"`
	TotalPhotos    int       `json:"totalPhotos"`
	RecentWorkouts []Workout `json:"recentWorkouts"`
	SharedAt       time.Time `json:"sharedAt"`
}
