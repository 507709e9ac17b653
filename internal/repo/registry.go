package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/mleitner/wardtrack/internal/domain"
)

// RegistryRepo defines the persistence operations for the department registry.
// Rows are keyed by the normalized department key; the tag set lives in a
// text[] column so membership queries stay a single indexed lookup.
type RegistryRepo interface {
	// Upsert creates the department or replaces its display name and tag set,
	// keyed by d.Key. Returns the persisted record.
	Upsert(ctx context.Context, d domain.Department) (domain.Department, error)

	// GetByKey retrieves a department by its normalized key.
	// Returns domain.ErrNotFound if no such department exists.
	GetByKey(ctx context.Context, key string) (domain.Department, error)

	// List returns all departments ordered by display name.
	List(ctx context.Context) ([]domain.Department, error)

	// FindByTag returns the first department (by key order) whose tag set
	// contains tag. Returns domain.ErrNotFound when no department has it.
	FindByTag(ctx context.Context, tag string) (domain.Department, error)

	// Delete removes a department by key.
	// Returns domain.ErrNotFound if it does not exist.
	Delete(ctx context.Context, key string) error
}

// pgRegistryRepo is the Postgres implementation of RegistryRepo.
type pgRegistryRepo struct {
	db db
}

// NewRegistryRepo constructs a RegistryRepo backed by the provided db connection.
func NewRegistryRepo(db db) RegistryRepo {
	return &pgRegistryRepo{db: db}
}

// Upsert inserts or replaces a department row keyed by its normalized key.
func (r *pgRegistryRepo) Upsert(ctx context.Context, d domain.Department) (domain.Department, error) {
	const q = `
		INSERT INTO departments (key, name, tags)
		VALUES (@key, @name, @tags)
		ON CONFLICT (key) DO UPDATE
		SET name = EXCLUDED.name, tags = EXCLUDED.tags, updated_at = now()
		RETURNING key, name, tags, created_at, updated_at`

	args := pgx.NamedArgs{"key": d.Key, "name": d.Name, "tags": d.Tags}

	row := r.db.QueryRow(ctx, q, args)
	result, err := scanDepartment(row)
	if err != nil {
		return domain.Department{}, fmt.Errorf("repo.RegistryRepo.Upsert: %w", err)
	}
	return result, nil
}

// GetByKey retrieves a department by its normalized key.
func (r *pgRegistryRepo) GetByKey(ctx context.Context, key string) (domain.Department, error) {
	const q = `
		SELECT key, name, tags, created_at, updated_at
		FROM departments
		WHERE key = @key`

	row := r.db.QueryRow(ctx, q, pgx.NamedArgs{"key": key})
	result, err := scanDepartment(row)
	if err != nil {
		return domain.Department{}, fmt.Errorf("repo.RegistryRepo.GetByKey: %w", err)
	}
	return result, nil
}

// List returns all departments ordered by display name.
func (r *pgRegistryRepo) List(ctx context.Context) ([]domain.Department, error) {
	const q = `
		SELECT key, name, tags, created_at, updated_at
		FROM departments
		ORDER BY name`

	rows, err := r.db.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("repo.RegistryRepo.List: %w", err)
	}
	defer rows.Close()

	departments := []domain.Department{}
	for rows.Next() {
		d, err := scanDepartment(rows)
		if err != nil {
			return nil, fmt.Errorf("repo.RegistryRepo.List: scan: %w", err)
		}
		departments = append(departments, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repo.RegistryRepo.List: rows: %w", err)
	}
	return departments, nil
}

// FindByTag looks the tag up with an array-contains predicate, which the GIN
// index on tags serves. Key order makes "first match" deterministic.
func (r *pgRegistryRepo) FindByTag(ctx context.Context, tag string) (domain.Department, error) {
	const q = `
		SELECT key, name, tags, created_at, updated_at
		FROM departments
		WHERE tags @> ARRAY[@tag]::text[]
		ORDER BY key
		LIMIT 1`

	row := r.db.QueryRow(ctx, q, pgx.NamedArgs{"tag": tag})
	result, err := scanDepartment(row)
	if err != nil {
		return domain.Department{}, fmt.Errorf("repo.RegistryRepo.FindByTag: %w", err)
	}
	return result, nil
}

// Delete removes a department by its normalized key.
func (r *pgRegistryRepo) Delete(ctx context.Context, key string) error {
	const q = `DELETE FROM departments WHERE key = @key`

	tag, err := r.db.Exec(ctx, q, pgx.NamedArgs{"key": key})
	if err != nil {
		return fmt.Errorf("repo.RegistryRepo.Delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("repo.RegistryRepo.Delete: %w", domain.ErrNotFound)
	}
	return nil
}

// scanDepartment maps a single database row into a domain.Department.
func scanDepartment(s scanner) (domain.Department, error) {
	var d domain.Department
	err := s.Scan(&d.Key, &d.Name, &d.Tags, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Department{}, domain.ErrNotFound
		}
		return domain.Department{}, err
	}
	if d.Tags == nil {
		d.Tags = []string{}
	}
	return d, nil
}
