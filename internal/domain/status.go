package domain

import "fmt"

// Status is the tracked state of a device tag.
// A device alternates between checked-in and checked-out; StatusNone is the
// initial state of a tag with no event history.
type Status string

const (
	StatusNone       Status = "none"
	StatusCheckedIn  Status = "checked-in"
	StatusCheckedOut Status = "checked-out"
)

// ParseStatus converts a submitted status string into a Status.
// Only the two submittable values are accepted; StatusNone is a derived
// state, never a valid submission.
func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusCheckedIn, StatusCheckedOut:
		return Status(s), nil
	default:
		return StatusNone, fmt.Errorf("%w: status must be %q or %q", ErrValidation, StatusCheckedIn, StatusCheckedOut)
	}
}

// Allowed reports whether a transition from s to next is legal.
//
// From StatusNone both statuses are permitted — a device registered mid
// life-cycle may legitimately start with a check-out. Repeating the current
// status is the only illegal transition, and the error names the status so
// the operator sees exactly which entry already exists.
func (s Status) Allowed(next Status) error {
	if next != StatusCheckedIn && next != StatusCheckedOut {
		return fmt.Errorf("%w: status must be %q or %q", ErrValidation, StatusCheckedIn, StatusCheckedOut)
	}
	if s == next {
		return fmt.Errorf("%w: device is already %s", ErrConflict, s)
	}
	return nil
}
