package domain

import "errors"

// ErrNotFound is returned by repo and service functions when the requested
// resource does not exist in the database.
// Handlers should map this to HTTP 404.
var ErrNotFound = errors.New("not found")

// ErrValidation is returned by service functions when input fails business
// rule validation (e.g. empty device tag, tag not registered to the claimed
// department). Handlers should map this to HTTP 422 Unprocessable Entity.
var ErrValidation = errors.New("validation error")

// ErrConflict is returned when a submitted status collides with the device's
// current status — either detected up front (duplicate check-in/check-out)
// or by the conditional append when a concurrent submission won the race.
// Handlers should map this to HTTP 409 Conflict.
var ErrConflict = errors.New("conflict")
