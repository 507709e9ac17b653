package repo_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mleitner/wardtrack/internal/domain"
	"github.com/mleitner/wardtrack/internal/repo"
	"github.com/mleitner/wardtrack/testutil"
)

// newTestRepos opens a single transaction and returns RegistryRepo and
// EventRepo both backed by the same tx, rolled back when the test finishes.
func newTestRepos(t *testing.T) (repo.RegistryRepo, repo.EventRepo) {
	t.Helper()
	pool := testutil.NewPool(t)

	tx, err := pool.Begin(context.Background())
	require.NoError(t, err, "begin transaction")

	t.Cleanup(func() {
		_ = tx.Rollback(context.Background())
	})

	return repo.NewRegistryRepo(tx), repo.NewEventRepo(tx)
}

func departmentFixture() domain.Department {
	return domain.Department{
		Key:  "er",
		Name: "ER",
		Tags: []string{"ER-01", "ER-02"},
	}
}

// ---- Upsert ----------------------------------------------------------------

func TestRegistryRepo_Upsert_Create(t *testing.T) {
	registry, _ := newTestRepos(t)
	ctx := context.Background()

	got, err := registry.Upsert(ctx, departmentFixture())

	require.NoError(t, err)
	assert.Equal(t, "er", got.Key)
	assert.Equal(t, "ER", got.Name)
	assert.Equal(t, []string{"ER-01", "ER-02"}, got.Tags)
	assert.False(t, got.CreatedAt.IsZero())
	assert.False(t, got.UpdatedAt.IsZero())
}

func TestRegistryRepo_Upsert_ReplacesByKey(t *testing.T) {
	registry, _ := newTestRepos(t)
	ctx := context.Background()

	first, err := registry.Upsert(ctx, departmentFixture())
	require.NoError(t, err)

	// Same key, different display name and tag set — must replace, not duplicate.
	second, err := registry.Upsert(ctx, domain.Department{
		Key: "er", Name: "Er", Tags: []string{"ER-03"},
	})
	require.NoError(t, err)

	assert.Equal(t, first.Key, second.Key)
	assert.Equal(t, "Er", second.Name)
	assert.Equal(t, []string{"ER-03"}, second.Tags)

	all, err := registry.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1, "upsert by key must not create a second row")
}

// ---- GetByKey / List -------------------------------------------------------

func TestRegistryRepo_GetByKey(t *testing.T) {
	registry, _ := newTestRepos(t)
	ctx := context.Background()

	_, err := registry.Upsert(ctx, departmentFixture())
	require.NoError(t, err)

	got, err := registry.GetByKey(ctx, "er")

	require.NoError(t, err)
	assert.Equal(t, "ER", got.Name)
	assert.Equal(t, []string{"ER-01", "ER-02"}, got.Tags)
}

func TestRegistryRepo_GetByKey_NotFound(t *testing.T) {
	registry, _ := newTestRepos(t)

	_, err := registry.GetByKey(context.Background(), "no-such-department")

	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestRegistryRepo_List_OrderedByName(t *testing.T) {
	registry, _ := newTestRepos(t)
	ctx := context.Background()

	_, err := registry.Upsert(ctx, domain.Department{Key: "radiology", Name: "Radiology", Tags: []string{}})
	require.NoError(t, err)
	_, err = registry.Upsert(ctx, domain.Department{Key: "er", Name: "ER", Tags: []string{"ER-01"}})
	require.NoError(t, err)

	got, err := registry.List(ctx)

	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "ER", got[0].Name)
	assert.Equal(t, "Radiology", got[1].Name)
}

func TestRegistryRepo_List_Empty(t *testing.T) {
	registry, _ := newTestRepos(t)

	got, err := registry.List(context.Background())

	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

// ---- FindByTag -------------------------------------------------------------

func TestRegistryRepo_FindByTag(t *testing.T) {
	registry, _ := newTestRepos(t)
	ctx := context.Background()

	_, err := registry.Upsert(ctx, departmentFixture())
	require.NoError(t, err)

	got, err := registry.FindByTag(ctx, "ER-02")

	require.NoError(t, err)
	assert.Equal(t, "er", got.Key)
}

func TestRegistryRepo_FindByTag_NotFound(t *testing.T) {
	registry, _ := newTestRepos(t)
	ctx := context.Background()

	_, err := registry.Upsert(ctx, departmentFixture())
	require.NoError(t, err)

	_, err = registry.FindByTag(ctx, "ICU-01")

	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestRegistryRepo_FindByTag_FirstByKeyOrder(t *testing.T) {
	registry, _ := newTestRepos(t)
	ctx := context.Background()

	// The same tag registered twice — the lower key must win deterministically.
	_, err := registry.Upsert(ctx, domain.Department{Key: "icu", Name: "ICU", Tags: []string{"SHARED-01"}})
	require.NoError(t, err)
	_, err = registry.Upsert(ctx, domain.Department{Key: "er", Name: "ER", Tags: []string{"SHARED-01"}})
	require.NoError(t, err)

	got, err := registry.FindByTag(ctx, "SHARED-01")

	require.NoError(t, err)
	assert.Equal(t, "er", got.Key)
}

// ---- Delete ----------------------------------------------------------------

func TestRegistryRepo_Delete(t *testing.T) {
	registry, _ := newTestRepos(t)
	ctx := context.Background()

	_, err := registry.Upsert(ctx, departmentFixture())
	require.NoError(t, err)

	require.NoError(t, registry.Delete(ctx, "er"))

	_, err = registry.GetByKey(ctx, "er")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestRegistryRepo_Delete_NotFound(t *testing.T) {
	registry, _ := newTestRepos(t)

	err := registry.Delete(context.Background(), "no-such-department")

	assert.ErrorIs(t, err, domain.ErrNotFound)
}
