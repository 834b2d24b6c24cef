package model

import (
	"time"

	"github.com/google/uuid"
)

// DeletedUserID is the fixed, well-known identifier of the sentinel
// "deleted user" account. When a real account is removed, the buttons it
// created are re-parented to this identity so that audit history stays
// intact. The row must exist before any user deletion is attempted;
// creating it is a seeding concern.
var DeletedUserID = uuid.MustParse("00000000-0000-0000-0000-000000000000")

// User mirrors the `users` table. Emails are stored lowercased and
// trimmed; HashedPassword holds a bcrypt digest and never leaves the
// server.
//
// Fields:
//  ID             – primary key (UUID, stored as CHAR(36)).
//  Email          – unique, case-normalized email address.
//  FullName       – optional display name.
//  HashedPassword – bcrypt hash of the credential.
//  IsActive       – whether the account may authenticate.
//  IsSuperuser    – whether the account bypasses ownership checks.
//  CreatedAt      – creation timestamp (UTC, set by the store).
//  UpdatedAt      – last update timestamp (UTC, set by the store).
type User struct {
	ID             uuid.UUID `json:"id"`
	Email          string    `json:"email"`
	FullName       *string   `json:"full_name"`
	HashedPassword string    `json:"-"`
	IsActive       bool      `json:"is_active"`
	IsSuperuser    bool      `json:"is_superuser"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}
