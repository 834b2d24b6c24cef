// Package repository implements data access over MySQL. This file
// defines sentinel error values shared across repositories so that
// handlers can translate failure scenarios into stable HTTP responses.
// Row absence is reported as sql.ErrNoRows throughout.
package repository

import "errors"

// ErrEmailExists is returned when a user insert or update collides with
// the unique email index.
var ErrEmailExists = errors.New("email already exists")

// ErrRetired is returned when a usage event is recorded against a
// retired button. Handlers translate this into HTTP 403.
var ErrRetired = errors.New("button is retired")

// ErrAlreadyRetired is returned when retiring a button whose retired_at
// marker is already set.
var ErrAlreadyRetired = errors.New("button is already retired")

// ErrNotRetired is returned when unretiring a button that is not
// currently retired.
var ErrNotRetired = errors.New("button is not currently retired")

// ErrNoRetirementRecord is returned when a button is marked retired but
// no open retirement row can be found for it. Under the retirement
// invariant this should not occur; it is surfaced rather than repaired.
var ErrNoRetirementRecord = errors.New("no retirement record found")

// ErrHasHistory is returned when a non-forced delete would orphan usage
// or retirement history. The caller may retry with force to cascade.
var ErrHasHistory = errors.New("button has usage history")
