package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mleitner/wardtrack/internal/domain"
	"github.com/mleitner/wardtrack/internal/metrics"
	"github.com/mleitner/wardtrack/internal/repo"
)

// TagRegistry is the subset of RegistryService the recorder needs: the
// membership check and the tag-to-department resolution.
type TagRegistry interface {
	IsValidTag(ctx context.Context, tag, department string) bool
	FindDepartmentForTag(ctx context.Context, tag string) string
}

// LogService records check-in/check-out events and resolves device status
// from the event history. It keeps no state of its own: the current status
// is re-derived from the store on every call, and the append is conditional
// on the last-event id observed during that derivation, so two concurrent
// submissions for the same tag cannot both land.
type LogService struct {
	events   repo.EventRepo
	registry TagRegistry
	logger   *slog.Logger
	now      func() time.Time // injectable clock for the display date/time strings
}

// NewLogService constructs a LogService backed by the provided event repo
// and tag registry.
func NewLogService(events repo.EventRepo, registry TagRegistry, logger *slog.Logger) *LogService {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogService{events: events, registry: registry, logger: logger, now: time.Now}
}

// Display formats captured at write time, matching what the entry screens show.
const (
	loggedDateFormat = "02/01/2006"
	loggedTimeFormat = "15:04"
)

// AddLog validates and records one check-in/check-out event.
//
// department may be empty, in which case it is auto-resolved from the tag.
// Fails with domain.ErrValidation when the tag is not registered to the
// department, and with domain.ErrConflict when the requested status repeats
// the device's current status — including the case where a concurrent
// submission changed the status between our read and our append. On success
// exactly one event is durably appended; on any failure, none.
func (s *LogService) AddLog(ctx context.Context, employeeID, tag, department string, status domain.Status) (domain.Event, error) {
	employeeID = strings.TrimSpace(employeeID)
	tag = strings.TrimSpace(tag)

	if employeeID == "" {
		metrics.Submissions.WithLabelValues(metrics.ResultInvalidBody).Inc()
		return domain.Event{}, fmt.Errorf("%w: employee id is required", domain.ErrValidation)
	}
	if tag == "" {
		metrics.Submissions.WithLabelValues(metrics.ResultInvalidBody).Inc()
		return domain.Event{}, fmt.Errorf("%w: device tag is required", domain.ErrValidation)
	}
	if _, err := domain.ParseStatus(string(status)); err != nil {
		metrics.Submissions.WithLabelValues(metrics.ResultInvalidBody).Inc()
		return domain.Event{}, err
	}

	department = strings.TrimSpace(department)
	if department == "" {
		department = s.registry.FindDepartmentForTag(ctx, tag)
	}
	if department == domain.DepartmentUnspecified || !s.registry.IsValidTag(ctx, tag, department) {
		metrics.Submissions.WithLabelValues(metrics.ResultInvalidTag).Inc()
		return domain.Event{}, fmt.Errorf("%w: tag %q is not registered to department %q", domain.ErrValidation, tag, department)
	}

	current, lastID := s.resolve(ctx, tag)

	if err := current.Allowed(status); err != nil {
		metrics.Submissions.WithLabelValues(metrics.ResultDuplicate).Inc()
		return domain.Event{}, fmt.Errorf("service.LogService.AddLog: %w", err)
	}
	// Re-derive and re-check against the same duplicate, independently of
	// the transition table above. Both checks must agree before anything is
	// written; the conditional append below closes the remaining window.
	if again := s.CurrentStatus(ctx, tag); again == status {
		metrics.Submissions.WithLabelValues(metrics.ResultDuplicate).Inc()
		return domain.Event{}, fmt.Errorf("service.LogService.AddLog: %w: device is already %s", domain.ErrConflict, status)
	}

	now := s.now()
	event := domain.Event{
		ID:         uuid.Must(uuid.NewV7()),
		EmployeeID: employeeID,
		Tag:        tag,
		Department: department,
		Status:     status,
		LoggedDate: now.Format(loggedDateFormat),
		LoggedTime: now.Format(loggedTimeFormat),
	}

	result, err := s.events.AppendIfLast(ctx, event, lastID)
	if err != nil {
		if errors.Is(err, domain.ErrConflict) {
			metrics.Submissions.WithLabelValues(metrics.ResultConflict).Inc()
		} else {
			metrics.Submissions.WithLabelValues(metrics.ResultStoreError).Inc()
		}
		return domain.Event{}, fmt.Errorf("service.LogService.AddLog: %w", err)
	}

	metrics.Submissions.WithLabelValues(metrics.ResultAccepted).Inc()
	return result, nil
}

// CurrentStatus returns the device's current status: the status of its most
// recent event, or StatusNone when it has no history. A store failure
// degrades to StatusNone so read-only callers stay responsive; the
// conditional append protects writers from acting on the degraded answer.
func (s *LogService) CurrentStatus(ctx context.Context, tag string) domain.Status {
	status, _ := s.resolve(ctx, tag)
	return status
}

// resolve returns the current status together with the id of the event that
// produced it, nil when the tag has no resolvable history.
func (s *LogService) resolve(ctx context.Context, tag string) (domain.Status, *uuid.UUID) {
	last, err := s.events.LatestByTag(ctx, strings.TrimSpace(tag))
	switch {
	case err == nil:
		return last.Status, &last.ID
	case errors.Is(err, domain.ErrNotFound):
		return domain.StatusNone, nil
	default:
		s.logger.WarnContext(ctx, "status resolution failed, treating as no history", "tag", tag, "error", err)
		return domain.StatusNone, nil
	}
}

// History returns one page of events matching the filter, newest first,
// plus the total match count. Always returns a non-nil slice.
func (s *LogService) History(ctx context.Context, f domain.EventFilter, p domain.PaginationParams) ([]domain.Event, int64, error) {
	events, total, err := s.events.List(ctx, f, p)
	if err != nil {
		return nil, 0, fmt.Errorf("service.LogService.History: %w", err)
	}
	if events == nil {
		events = []domain.Event{}
	}
	return events, total, nil
}

// DeleteLogs removes events in bulk by id and returns how many were deleted.
func (s *LogService) DeleteLogs(ctx context.Context, ids []uuid.UUID) (int64, error) {
	if len(ids) == 0 {
		return 0, fmt.Errorf("%w: at least one event id is required", domain.ErrValidation)
	}
	deleted, err := s.events.DeleteByIDs(ctx, ids)
	if err != nil {
		return 0, fmt.Errorf("service.LogService.DeleteLogs: %w", err)
	}
	return deleted, nil
}

// DailySummary returns per-department daily check-in/check-out counts for
// [from, to). Always returns a non-nil slice.
func (s *LogService) DailySummary(ctx context.Context, from, to time.Time) ([]domain.DailySummary, error) {
	if !to.After(from) {
		return nil, fmt.Errorf("%w: summary range end must be after its start", domain.ErrValidation)
	}
	summaries, err := s.events.SummarizeByDay(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("service.LogService.DailySummary: %w", err)
	}
	if summaries == nil {
		summaries = []domain.DailySummary{}
	}
	return summaries, nil
}
