package types

import "time"

// Photo is the metadata record for an uploaded progress picture. The binary
// content lives in object storage; FileURL and ThumbURL point at it.
type Photo struct {
	ID          string     `json:"id" db:"id"`
	UserID      string     `json:"userId" db:"user_id"`
	FileURL     string     `json:"fileUrl" db:"file_url"`
	ThumbURL    string     `json:"thumbUrl" db:"thumb_url"`
	MimeType    string     `json:"mimeType" db:"mime_type"`
	Bytes       int64      `json:"bytes" db:"bytes"`
	Width       int        `json:"width" db:"width"`
	Height      int        `json:"height" db:"height"`
	TakenAt     *time.Time `json:"takenAt" db:"taken_at"`
	Description string     `json:"description,omitempty" db:"description"`
	CreatedAt   time.Time  `json:"createdAt" db:"created_at"`
}
