// Package domain contains the core data types for the ward device tracker.
// This package has zero external dependencies beyond uuid and is imported by
// every other internal package (repo, service, handler).
package domain

import (
	"time"

	"github.com/google/uuid"
)

// Event is one check-in or check-out entry in the append-only device log.
// Events are immutable once written; the only mutation is administrative
// bulk deletion by id.
type Event struct {
	ID         uuid.UUID `json:"id"`
	EmployeeID string    `json:"employee_id"`
	Tag        string    `json:"tag"`
	Department string    `json:"department"` // resolved at write time
	Status     Status    `json:"status"`
	LoggedDate string    `json:"logged_date"` // display string captured at write time
	LoggedTime string    `json:"logged_time"`
	CreatedAt  time.Time `json:"created_at"`
}

// EventFilter narrows a history query. Zero-value fields are ignored.
type EventFilter struct {
	Tag        string
	Department string
	EmployeeID string
	From       *time.Time
	To         *time.Time
}

// DailySummary is one row of the per-department daily roll-up: how many
// check-ins and check-outs a department logged on a given day.
type DailySummary struct {
	Department string    `json:"department"`
	Day        time.Time `json:"day"`
	CheckIns   int64     `json:"check_ins"`
	CheckOuts  int64     `json:"check_outs"`
}
