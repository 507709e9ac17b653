// Package repo contains all database access logic for the ward device tracker.
// Each resource has its own file with an interface and a Postgres implementation.
// No business logic lives here — only SQL and type mapping.
package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/mleitner/wardtrack/internal/domain"
)

// db is the minimal interface satisfied by *pgxpool.Pool, pgx.Conn, and pgx.Tx.
// Accepting this interface instead of *pgxpool.Pool directly allows integration
// tests to pass a transaction that is rolled back after each test, giving free
// per-test isolation without any manual cleanup.
type db interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// EventRepo defines the persistence operations for the append-only event log.
// The service layer depends on this interface, not the concrete Postgres
// implementation, which allows it to be unit-tested with a mock.
type EventRepo interface {
	// AppendIfLast inserts the event only if the most recent event for the
	// same tag is still the one identified by lastID (nil meaning "the tag
	// has no events"). The guard and the insert are a single statement, so
	// two concurrent submissions for the same tag cannot both land: the
	// loser's insert affects zero rows and domain.ErrConflict is returned.
	AppendIfLast(ctx context.Context, e domain.Event, lastID *uuid.UUID) (domain.Event, error)

	// LatestByTag returns the most recent event for a tag, ordered by
	// created_at with the id breaking ties (ids are UUIDv7, so the
	// tie-break follows insertion order). Returns domain.ErrNotFound when
	// the tag has no events.
	LatestByTag(ctx context.Context, tag string) (domain.Event, error)

	// List returns one page of events matching the filter, newest first,
	// together with the total match count.
	List(ctx context.Context, f domain.EventFilter, p domain.PaginationParams) ([]domain.Event, int64, error)

	// DeleteByIDs removes events in bulk and returns how many rows went.
	DeleteByIDs(ctx context.Context, ids []uuid.UUID) (int64, error)

	// SummarizeByDay returns per-department daily check-in/check-out counts
	// for events created within [from, to).
	SummarizeByDay(ctx context.Context, from, to time.Time) ([]domain.DailySummary, error)
}

// pgEventRepo is the Postgres implementation of EventRepo.
type pgEventRepo struct {
	db db
}

// NewEventRepo constructs an EventRepo backed by the provided db connection.
// In production pass *pgxpool.Pool; in tests pass a pgx.Tx for rollback isolation.
func NewEventRepo(db db) EventRepo {
	return &pgEventRepo{db: db}
}

// AppendIfLast performs the guarded insert. IS NOT DISTINCT FROM makes the
// comparison NULL-safe, so a nil lastID matches exactly the "no events yet"
// case instead of always failing.
func (r *pgEventRepo) AppendIfLast(ctx context.Context, e domain.Event, lastID *uuid.UUID) (domain.Event, error) {
	const q = `
		INSERT INTO events (id, employee_id, tag, department, status, logged_date, logged_time)
		SELECT @id, @employee_id, @tag, @department, @status, @logged_date, @logged_time
		WHERE (
			SELECT id FROM events
			WHERE tag = @tag
			ORDER BY created_at DESC, id DESC
			LIMIT 1
		) IS NOT DISTINCT FROM @last_id
		RETURNING id, employee_id, tag, department, status, logged_date, logged_time, created_at`

	args := pgx.NamedArgs{
		"id":          e.ID,
		"employee_id": e.EmployeeID,
		"tag":         e.Tag,
		"department":  e.Department,
		"status":      string(e.Status),
		"logged_date": e.LoggedDate,
		"logged_time": e.LoggedTime,
		"last_id":     nil,
	}
	if lastID != nil {
		args["last_id"] = *lastID
	}

	row := r.db.QueryRow(ctx, q, args)
	result, err := scanEvent(row)
	if err != nil {
		// Zero rows means the guard failed: another event landed for this
		// tag after the caller read its status.
		if errors.Is(err, domain.ErrNotFound) {
			return domain.Event{}, fmt.Errorf("repo.EventRepo.AppendIfLast: %w: event log changed while saving, resubmit to retry", domain.ErrConflict)
		}
		return domain.Event{}, fmt.Errorf("repo.EventRepo.AppendIfLast: %w", err)
	}
	return result, nil
}

// LatestByTag returns the newest event for a tag.
func (r *pgEventRepo) LatestByTag(ctx context.Context, tag string) (domain.Event, error) {
	const q = `
		SELECT id, employee_id, tag, department, status, logged_date, logged_time, created_at
		FROM events
		WHERE tag = @tag
		ORDER BY created_at DESC, id DESC
		LIMIT 1`

	row := r.db.QueryRow(ctx, q, pgx.NamedArgs{"tag": tag})
	result, err := scanEvent(row)
	if err != nil {
		return domain.Event{}, fmt.Errorf("repo.EventRepo.LatestByTag: %w", err)
	}
	return result, nil
}

// List returns one filtered page of events, newest first, plus the total count.
// Empty filter fields collapse to always-true predicates, so one statement
// serves every filter combination.
func (r *pgEventRepo) List(ctx context.Context, f domain.EventFilter, p domain.PaginationParams) ([]domain.Event, int64, error) {
	const where = `
		WHERE (@tag = '' OR tag = @tag)
		  AND (@department = '' OR department = @department)
		  AND (@employee_id = '' OR employee_id = @employee_id)
		  AND (@from::timestamptz IS NULL OR created_at >= @from)
		  AND (@to::timestamptz IS NULL OR created_at < @to)`

	args := pgx.NamedArgs{
		"tag":         f.Tag,
		"department":  f.Department,
		"employee_id": f.EmployeeID,
		"from":        f.From,
		"to":          f.To,
		"limit":       p.Limit,
		"offset":      p.Offset(),
	}

	var total int64
	if err := r.db.QueryRow(ctx, `SELECT count(*) FROM events `+where, args).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("repo.EventRepo.List: count: %w", err)
	}

	q := `
		SELECT id, employee_id, tag, department, status, logged_date, logged_time, created_at
		FROM events ` + where + `
		ORDER BY created_at DESC, id DESC
		LIMIT @limit OFFSET @offset`

	rows, err := r.db.Query(ctx, q, args)
	if err != nil {
		return nil, 0, fmt.Errorf("repo.EventRepo.List: %w", err)
	}
	defer rows.Close()

	events := []domain.Event{}
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("repo.EventRepo.List: scan: %w", err)
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("repo.EventRepo.List: rows: %w", err)
	}
	return events, total, nil
}

// DeleteByIDs removes events in bulk. Unknown ids are skipped silently —
// the caller learns how many rows actually went from the returned count.
func (r *pgEventRepo) DeleteByIDs(ctx context.Context, ids []uuid.UUID) (int64, error) {
	const q = `DELETE FROM events WHERE id = ANY(@ids)`

	tag, err := r.db.Exec(ctx, q, pgx.NamedArgs{"ids": ids})
	if err != nil {
		return 0, fmt.Errorf("repo.EventRepo.DeleteByIDs: %w", err)
	}
	return tag.RowsAffected(), nil
}

// SummarizeByDay rolls events up into per-department daily counts.
func (r *pgEventRepo) SummarizeByDay(ctx context.Context, from, to time.Time) ([]domain.DailySummary, error) {
	const q = `
		SELECT department,
		       date_trunc('day', created_at) AS day,
		       count(*) FILTER (WHERE status = 'checked-in')  AS check_ins,
		       count(*) FILTER (WHERE status = 'checked-out') AS check_outs
		FROM events
		WHERE created_at >= @from AND created_at < @to
		GROUP BY department, day
		ORDER BY day DESC, department`

	rows, err := r.db.Query(ctx, q, pgx.NamedArgs{"from": from, "to": to})
	if err != nil {
		return nil, fmt.Errorf("repo.EventRepo.SummarizeByDay: %w", err)
	}
	defer rows.Close()

	summaries := []domain.DailySummary{}
	for rows.Next() {
		var s domain.DailySummary
		if err := rows.Scan(&s.Department, &s.Day, &s.CheckIns, &s.CheckOuts); err != nil {
			return nil, fmt.Errorf("repo.EventRepo.SummarizeByDay: scan: %w", err)
		}
		summaries = append(summaries, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repo.EventRepo.SummarizeByDay: rows: %w", err)
	}
	return summaries, nil
}

// scanner is satisfied by both pgx.Row and pgx.Rows, allowing the scan
// helpers to be reused for both QueryRow and Query calls.
type scanner interface {
	Scan(dest ...any) error
}

// scanEvent maps a single database row into a domain.Event.
// Rows with a status string outside the known enum are rejected here rather
// than leaking malformed records into the resolver.
func scanEvent(s scanner) (domain.Event, error) {
	var (
		e      domain.Event
		id     pgtype.UUID
		status string
	)
	err := s.Scan(&id, &e.EmployeeID, &e.Tag, &e.Department, &status, &e.LoggedDate, &e.LoggedTime, &e.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Event{}, domain.ErrNotFound
		}
		return domain.Event{}, err
	}

	e.ID = uuid.UUID(id.Bytes)
	e.Status, err = domain.ParseStatus(status)
	if err != nil {
		return domain.Event{}, fmt.Errorf("malformed status %q on event %s: %w", status, e.ID, err)
	}
	return e, nil
}
