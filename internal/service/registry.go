// Package service contains the business logic for the ward device tracker.
// Services validate inputs, enforce business rules, and orchestrate repo calls.
// No SQL lives here — services depend on repo interfaces, not implementations.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/mleitner/wardtrack/internal/domain"
	"github.com/mleitner/wardtrack/internal/repo"
)

// RegistryService owns the department registry: key normalization, tag set
// hygiene, and the tag validation reads the recorder depends on.
//
// Validation reads go through the injected RegistryCache; mutation paths
// always hit the repo and invalidate the cache afterwards.
type RegistryService struct {
	repo   repo.RegistryRepo
	cache  RegistryCache
	logger *slog.Logger
}

// NewRegistryService constructs a RegistryService. Pass NopCache in tests to
// make every validation read hit the repo.
func NewRegistryService(r repo.RegistryRepo, cache RegistryCache, logger *slog.Logger) *RegistryService {
	if logger == nil {
		logger = slog.Default()
	}
	return &RegistryService{repo: r, cache: cache, logger: logger}
}

// IsValidTag reports whether tag is registered to the named department.
// Any failure — unknown department, unreachable registry — degrades to
// false so a transient read error rejects the submission instead of
// crashing it. Matching is exact and case-sensitive after trimming.
func (s *RegistryService) IsValidTag(ctx context.Context, tag, department string) bool {
	tag = strings.TrimSpace(tag)
	key := domain.NormalizeKey(department)
	if tag == "" || key == "" {
		return false
	}

	departments, err := s.snapshot(ctx)
	if err != nil {
		s.logger.WarnContext(ctx, "registry read failed, rejecting tag", "tag", tag, "error", err)
		return false
	}
	for _, d := range departments {
		if d.Key == key {
			return d.HasTag(tag)
		}
	}
	return false
}

// FindDepartmentForTag resolves the department owning tag without the
// operator naming it. Strategies run in order — the indexed registry query,
// a full registry scan, then the last cached snapshot — and the first
// success wins. Returns domain.DepartmentUnspecified when every strategy
// fails or no department owns the tag.
func (s *RegistryService) FindDepartmentForTag(ctx context.Context, tag string) string {
	tag = strings.TrimSpace(tag)
	if tag == "" {
		return domain.DepartmentUnspecified
	}

	steps := []resolveStep[domain.Department]{
		{name: "registry query", run: func(ctx context.Context) (domain.Department, error) {
			return s.repo.FindByTag(ctx, tag)
		}},
		{name: "registry scan", run: func(ctx context.Context) (domain.Department, error) {
			departments, err := s.repo.List(ctx)
			if err != nil {
				return domain.Department{}, err
			}
			return firstWithTag(departments, tag)
		}},
		{name: "cached snapshot", run: func(ctx context.Context) (domain.Department, error) {
			departments, ok := s.cache.Last()
			if !ok {
				return domain.Department{}, fmt.Errorf("no snapshot cached")
			}
			return firstWithTag(departments, tag)
		}},
	}

	d, err := firstSuccess(ctx, steps)
	if err != nil {
		s.logger.DebugContext(ctx, "department resolution failed", "tag", tag, "error", err)
		return domain.DepartmentUnspecified
	}
	return d.Name
}

// TagsByDepartment returns the department's registered tags in sorted order.
// Returns domain.ErrNotFound for unknown departments.
func (s *RegistryService) TagsByDepartment(ctx context.Context, department string) ([]string, error) {
	d, err := s.repo.GetByKey(ctx, domain.NormalizeKey(department))
	if err != nil {
		return nil, fmt.Errorf("service.RegistryService.TagsByDepartment: %w", err)
	}
	tags := append([]string(nil), d.Tags...)
	sort.Strings(tags)
	return tags, nil
}

// Departments returns all registered department display names, ordered by name.
// Always returns a non-nil slice so callers can safely range over it.
func (s *RegistryService) Departments(ctx context.Context) ([]string, error) {
	departments, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("service.RegistryService.Departments: %w", err)
	}
	names := make([]string, len(departments))
	for i, d := range departments {
		names[i] = d.Name
	}
	return names, nil
}

// UpsertDepartment creates or replaces a department keyed by the normalized
// display name. Tags are trimmed, deduplicated, and sorted before persisting.
func (s *RegistryService) UpsertDepartment(ctx context.Context, name string, tags []string) (domain.Department, error) {
	key := domain.NormalizeKey(name)
	if key == "" {
		return domain.Department{}, fmt.Errorf("%w: department name is required", domain.ErrValidation)
	}

	d := domain.Department{Key: key, Name: strings.TrimSpace(name), Tags: cleanTags(tags)}
	result, err := s.repo.Upsert(ctx, d)
	if err != nil {
		return domain.Department{}, fmt.Errorf("service.RegistryService.UpsertDepartment: %w", err)
	}
	s.cache.Invalidate()
	return result, nil
}

// AddTag registers a tag to a department, creating the department entry on
// first assignment. Adding an already-registered tag is a no-op.
func (s *RegistryService) AddTag(ctx context.Context, department, tag string) (domain.Department, error) {
	tag = strings.TrimSpace(tag)
	if tag == "" {
		return domain.Department{}, fmt.Errorf("%w: tag is required", domain.ErrValidation)
	}
	key := domain.NormalizeKey(department)
	if key == "" {
		return domain.Department{}, fmt.Errorf("%w: department name is required", domain.ErrValidation)
	}

	d, err := s.repo.GetByKey(ctx, key)
	switch {
	case err == nil:
	case isNotFound(err):
		d = domain.Department{Key: key, Name: strings.TrimSpace(department), Tags: []string{}}
	default:
		return domain.Department{}, fmt.Errorf("service.RegistryService.AddTag: %w", err)
	}

	if !d.HasTag(tag) {
		d.Tags = cleanTags(append(d.Tags, tag))
	}

	result, err := s.repo.Upsert(ctx, d)
	if err != nil {
		return domain.Department{}, fmt.Errorf("service.RegistryService.AddTag: %w", err)
	}
	s.cache.Invalidate()
	return result, nil
}

// RemoveTag unregisters a tag from a department.
// Returns domain.ErrNotFound when the department or the tag is unknown.
func (s *RegistryService) RemoveTag(ctx context.Context, department, tag string) (domain.Department, error) {
	tag = strings.TrimSpace(tag)

	d, err := s.repo.GetByKey(ctx, domain.NormalizeKey(department))
	if err != nil {
		return domain.Department{}, fmt.Errorf("service.RegistryService.RemoveTag: %w", err)
	}
	if !d.HasTag(tag) {
		return domain.Department{}, fmt.Errorf("service.RegistryService.RemoveTag: tag %q: %w", tag, domain.ErrNotFound)
	}

	kept := make([]string, 0, len(d.Tags)-1)
	for _, t := range d.Tags {
		if t != tag {
			kept = append(kept, t)
		}
	}
	d.Tags = kept

	result, err := s.repo.Upsert(ctx, d)
	if err != nil {
		return domain.Department{}, fmt.Errorf("service.RegistryService.RemoveTag: %w", err)
	}
	s.cache.Invalidate()
	return result, nil
}

// RenameDepartment changes a department's display name. When the normalized
// key changes, the tag sets of the source and any existing target entry are
// merged under the target key and the source key is removed — tags follow
// the department through the rename.
func (s *RegistryService) RenameDepartment(ctx context.Context, oldName, newName string) (domain.Department, error) {
	oldKey := domain.NormalizeKey(oldName)
	newKey := domain.NormalizeKey(newName)
	if newKey == "" {
		return domain.Department{}, fmt.Errorf("%w: new department name is required", domain.ErrValidation)
	}

	src, err := s.repo.GetByKey(ctx, oldKey)
	if err != nil {
		return domain.Department{}, fmt.Errorf("service.RegistryService.RenameDepartment: %w", err)
	}

	merged := src.Tags
	if newKey != oldKey {
		if target, err := s.repo.GetByKey(ctx, newKey); err == nil {
			merged = append(merged, target.Tags...)
		} else if !isNotFound(err) {
			return domain.Department{}, fmt.Errorf("service.RegistryService.RenameDepartment: %w", err)
		}
	}

	result, err := s.repo.Upsert(ctx, domain.Department{
		Key:  newKey,
		Name: strings.TrimSpace(newName),
		Tags: cleanTags(merged),
	})
	if err != nil {
		return domain.Department{}, fmt.Errorf("service.RegistryService.RenameDepartment: %w", err)
	}

	if newKey != oldKey {
		if err := s.repo.Delete(ctx, oldKey); err != nil {
			return domain.Department{}, fmt.Errorf("service.RegistryService.RenameDepartment: remove old key: %w", err)
		}
	}

	s.cache.Invalidate()
	return result, nil
}

// DeleteDepartment removes a department and its tag registrations.
func (s *RegistryService) DeleteDepartment(ctx context.Context, name string) error {
	if err := s.repo.Delete(ctx, domain.NormalizeKey(name)); err != nil {
		return fmt.Errorf("service.RegistryService.DeleteDepartment: %w", err)
	}
	s.cache.Invalidate()
	return nil
}

// snapshot returns the registry contents via the cache.
func (s *RegistryService) snapshot(ctx context.Context) ([]domain.Department, error) {
	return s.cache.Get(ctx, s.repo.List)
}

// firstWithTag returns the first department in registry order whose tag set
// contains tag.
func firstWithTag(departments []domain.Department, tag string) (domain.Department, error) {
	for _, d := range departments {
		if d.HasTag(tag) {
			return d, nil
		}
	}
	return domain.Department{}, fmt.Errorf("tag %q: %w", tag, domain.ErrNotFound)
}

// cleanTags trims, drops empties, deduplicates, and sorts a tag set.
func cleanTags(tags []string) []string {
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

func isNotFound(err error) bool {
	return errors.Is(err, domain.ErrNotFound)
}
