package model

import (
	"time"

	"github.com/google/uuid"
)

// Button mirrors the `buttons` table. A button is Active while RetiredAt
// is nil and Retired once it is set; only active buttons accept usage.
// UsageCount is the denormalized press counter kept in lockstep with the
// button_uses rows by the usage store.
type Button struct {
	ID          uuid.UUID  `json:"id"`
	Type        string     `json:"type"`
	Title       string     `json:"title"`
	Description *string    `json:"description"`
	Duration    *float64   `json:"duration"`
	Source      *string    `json:"source"`
	CreatedBy   uuid.UUID  `json:"created_by"`
	UsageCount  int64      `json:"usage_count"`
	RetiredAt   *time.Time `json:"retired_at"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// ButtonUse is one recorded press. Origin holds the caller's network
// address when it could be determined.
type ButtonUse struct {
	ID        uuid.UUID `json:"id"`
	ButtonID  uuid.UUID `json:"button_id"`
	Timestamp time.Time `json:"timestamp"`
	Origin    *string   `json:"origin"`
}

// ButtonRetirement is one interval in a button's retirement history. An
// open interval (UnretiredAt nil) exists exactly when the button itself
// carries a retired_at marker; unretiring closes the interval instead of
// deleting it.
type ButtonRetirement struct {
	ID          uuid.UUID  `json:"id"`
	ButtonID    uuid.UUID  `json:"button_id"`
	CreatedBy   uuid.UUID  `json:"created_by"`
	RetiredAt   time.Time  `json:"retired_at"`
	UnretiredAt *time.Time `json:"unretired_at"`
}
