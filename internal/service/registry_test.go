package service_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mleitner/wardtrack/internal/domain"
	"github.com/mleitner/wardtrack/internal/repo"
	"github.com/mleitner/wardtrack/internal/service"
)

// ---- mock RegistryRepo -----------------------------------------------------

type mockRegistryRepo struct {
	upsert    func(ctx context.Context, d domain.Department) (domain.Department, error)
	getByKey  func(ctx context.Context, key string) (domain.Department, error)
	list      func(ctx context.Context) ([]domain.Department, error)
	findByTag func(ctx context.Context, tag string) (domain.Department, error)
	delete    func(ctx context.Context, key string) error
}

func (m *mockRegistryRepo) Upsert(ctx context.Context, d domain.Department) (domain.Department, error) {
	return m.upsert(ctx, d)
}
func (m *mockRegistryRepo) GetByKey(ctx context.Context, key string) (domain.Department, error) {
	return m.getByKey(ctx, key)
}
func (m *mockRegistryRepo) List(ctx context.Context) ([]domain.Department, error) {
	return m.list(ctx)
}
func (m *mockRegistryRepo) FindByTag(ctx context.Context, tag string) (domain.Department, error) {
	return m.findByTag(ctx, tag)
}
func (m *mockRegistryRepo) Delete(ctx context.Context, key string) error {
	return m.delete(ctx, key)
}

// compile-time check
var _ repo.RegistryRepo = (*mockRegistryRepo)(nil)

func newRegistryService(m *mockRegistryRepo) *service.RegistryService {
	return service.NewRegistryService(m, service.NopCache{}, nil)
}

func erDepartment() domain.Department {
	return domain.Department{Key: "er", Name: "ER", Tags: []string{"ER-01", "ER-02"}}
}

// ---- IsValidTag ------------------------------------------------------------

func TestRegistryService_IsValidTag_Member(t *testing.T) {
	svc := newRegistryService(&mockRegistryRepo{
		list: func(context.Context) ([]domain.Department, error) {
			return []domain.Department{erDepartment()}, nil
		},
	})

	assert.True(t, svc.IsValidTag(context.Background(), "ER-01", "ER"))
	assert.True(t, svc.IsValidTag(context.Background(), " ER-01 ", "  er "), "tag is trimmed, department is normalized")
}

func TestRegistryService_IsValidTag_NotMember(t *testing.T) {
	svc := newRegistryService(&mockRegistryRepo{
		list: func(context.Context) ([]domain.Department, error) {
			return []domain.Department{erDepartment()}, nil
		},
	})

	assert.False(t, svc.IsValidTag(context.Background(), "ER-99", "ER"))
	assert.False(t, svc.IsValidTag(context.Background(), "er-01", "ER"), "tag match is case-sensitive")
	assert.False(t, svc.IsValidTag(context.Background(), "ER-01", "ICU"), "unknown department")
}

func TestRegistryService_IsValidTag_StoreErrorDegradesToFalse(t *testing.T) {
	svc := newRegistryService(&mockRegistryRepo{
		list: func(context.Context) ([]domain.Department, error) {
			return nil, errors.New("registry unreachable")
		},
	})

	assert.False(t, svc.IsValidTag(context.Background(), "ER-01", "ER"))
}

func TestRegistryService_IsValidTag_EmptyInputs(t *testing.T) {
	svc := newRegistryService(&mockRegistryRepo{})

	assert.False(t, svc.IsValidTag(context.Background(), "", "ER"))
	assert.False(t, svc.IsValidTag(context.Background(), "ER-01", "   "))
}

// ---- FindDepartmentForTag --------------------------------------------------

func TestRegistryService_FindDepartmentForTag_PrimaryQuery(t *testing.T) {
	svc := newRegistryService(&mockRegistryRepo{
		findByTag: func(_ context.Context, tag string) (domain.Department, error) {
			assert.Equal(t, "ER-01", tag)
			return erDepartment(), nil
		},
	})

	got := svc.FindDepartmentForTag(context.Background(), "ER-01")

	assert.Equal(t, "ER", got)
}

func TestRegistryService_FindDepartmentForTag_FallsBackToScan(t *testing.T) {
	svc := newRegistryService(&mockRegistryRepo{
		findByTag: func(context.Context, string) (domain.Department, error) {
			return domain.Department{}, errors.New("index query failed")
		},
		list: func(context.Context) ([]domain.Department, error) {
			return []domain.Department{erDepartment()}, nil
		},
	})

	got := svc.FindDepartmentForTag(context.Background(), "ER-02")

	assert.Equal(t, "ER", got)
}

func TestRegistryService_FindDepartmentForTag_FallsBackToSnapshot(t *testing.T) {
	cache := service.NewTTLCache(0)
	boom := errors.New("registry unreachable")
	m := &mockRegistryRepo{
		findByTag: func(context.Context, string) (domain.Department, error) {
			return domain.Department{}, boom
		},
		list: func(context.Context) ([]domain.Department, error) {
			return []domain.Department{erDepartment()}, nil
		},
	}
	svc := service.NewRegistryService(m, cache, nil)

	// Warm the snapshot, then take the registry down entirely.
	require.True(t, svc.IsValidTag(context.Background(), "ER-01", "ER"))
	m.list = func(context.Context) ([]domain.Department, error) { return nil, boom }

	got := svc.FindDepartmentForTag(context.Background(), "ER-01")

	assert.Equal(t, "ER", got, "cached snapshot is the fallback of last resort")
}

func TestRegistryService_FindDepartmentForTag_Unresolved(t *testing.T) {
	boom := errors.New("registry unreachable")
	svc := newRegistryService(&mockRegistryRepo{
		findByTag: func(context.Context, string) (domain.Department, error) {
			return domain.Department{}, boom
		},
		list: func(context.Context) ([]domain.Department, error) { return nil, boom },
	})

	got := svc.FindDepartmentForTag(context.Background(), "ER-01")

	assert.Equal(t, domain.DepartmentUnspecified, got)
}

func TestRegistryService_FindDepartmentForTag_NoOwner(t *testing.T) {
	svc := newRegistryService(&mockRegistryRepo{
		findByTag: func(context.Context, string) (domain.Department, error) {
			return domain.Department{}, domain.ErrNotFound
		},
		list: func(context.Context) ([]domain.Department, error) {
			return []domain.Department{erDepartment()}, nil
		},
	})

	got := svc.FindDepartmentForTag(context.Background(), "ICU-77")

	assert.Equal(t, domain.DepartmentUnspecified, got)
}

// ---- TagsByDepartment / Departments ----------------------------------------

func TestRegistryService_TagsByDepartment_Sorted(t *testing.T) {
	svc := newRegistryService(&mockRegistryRepo{
		getByKey: func(_ context.Context, key string) (domain.Department, error) {
			assert.Equal(t, "er", key)
			return domain.Department{Key: "er", Name: "ER", Tags: []string{"ER-02", "ER-01"}}, nil
		},
	})

	got, err := svc.TagsByDepartment(context.Background(), "ER")

	require.NoError(t, err)
	assert.Equal(t, []string{"ER-01", "ER-02"}, got)
}

func TestRegistryService_TagsByDepartment_NotFound(t *testing.T) {
	svc := newRegistryService(&mockRegistryRepo{
		getByKey: func(context.Context, string) (domain.Department, error) {
			return domain.Department{}, domain.ErrNotFound
		},
	})

	_, err := svc.TagsByDepartment(context.Background(), "ICU")

	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestRegistryService_Departments(t *testing.T) {
	svc := newRegistryService(&mockRegistryRepo{
		list: func(context.Context) ([]domain.Department, error) {
			return []domain.Department{
				{Key: "er", Name: "ER"},
				{Key: "radiology", Name: "Radiology"},
			}, nil
		},
	})

	got, err := svc.Departments(context.Background())

	require.NoError(t, err)
	assert.Equal(t, []string{"ER", "Radiology"}, got)
}

// ---- UpsertDepartment / AddTag / RemoveTag ---------------------------------

func TestRegistryService_UpsertDepartment_NormalizesKeyAndTags(t *testing.T) {
	var captured domain.Department
	svc := newRegistryService(&mockRegistryRepo{
		upsert: func(_ context.Context, d domain.Department) (domain.Department, error) {
			captured = d
			return d, nil
		},
	})

	_, err := svc.UpsertDepartment(context.Background(), "  Emergency  Room ", []string{" ER-02", "ER-01", "ER-02", " "})

	require.NoError(t, err)
	assert.Equal(t, "emergency-room", captured.Key)
	assert.Equal(t, "Emergency  Room", captured.Name)
	assert.Equal(t, []string{"ER-01", "ER-02"}, captured.Tags, "tags trimmed, deduplicated, sorted")
}

func TestRegistryService_UpsertDepartment_EmptyName(t *testing.T) {
	svc := newRegistryService(&mockRegistryRepo{})

	_, err := svc.UpsertDepartment(context.Background(), "   ", nil)

	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestRegistryService_AddTag_CreatesDepartmentOnFirstAssignment(t *testing.T) {
	var captured domain.Department
	svc := newRegistryService(&mockRegistryRepo{
		getByKey: func(context.Context, string) (domain.Department, error) {
			return domain.Department{}, domain.ErrNotFound
		},
		upsert: func(_ context.Context, d domain.Department) (domain.Department, error) {
			captured = d
			return d, nil
		},
	})

	_, err := svc.AddTag(context.Background(), "ICU", "ICU-01")

	require.NoError(t, err)
	assert.Equal(t, "icu", captured.Key)
	assert.Equal(t, []string{"ICU-01"}, captured.Tags)
}

func TestRegistryService_AddTag_Idempotent(t *testing.T) {
	var captured domain.Department
	svc := newRegistryService(&mockRegistryRepo{
		getByKey: func(context.Context, string) (domain.Department, error) {
			return erDepartment(), nil
		},
		upsert: func(_ context.Context, d domain.Department) (domain.Department, error) {
			captured = d
			return d, nil
		},
	})

	_, err := svc.AddTag(context.Background(), "ER", "ER-01")

	require.NoError(t, err)
	assert.Equal(t, []string{"ER-01", "ER-02"}, captured.Tags, "re-adding must not duplicate")
}

func TestRegistryService_RemoveTag(t *testing.T) {
	var captured domain.Department
	svc := newRegistryService(&mockRegistryRepo{
		getByKey: func(context.Context, string) (domain.Department, error) {
			return erDepartment(), nil
		},
		upsert: func(_ context.Context, d domain.Department) (domain.Department, error) {
			captured = d
			return d, nil
		},
	})

	_, err := svc.RemoveTag(context.Background(), "ER", "ER-01")

	require.NoError(t, err)
	assert.Equal(t, []string{"ER-02"}, captured.Tags)
}

func TestRegistryService_RemoveTag_UnknownTag(t *testing.T) {
	svc := newRegistryService(&mockRegistryRepo{
		getByKey: func(context.Context, string) (domain.Department, error) {
			return erDepartment(), nil
		},
	})

	_, err := svc.RemoveTag(context.Background(), "ER", "ER-99")

	assert.ErrorIs(t, err, domain.ErrNotFound)
}

// ---- RenameDepartment ------------------------------------------------------

func TestRegistryService_RenameDepartment_MergesAndRemovesOldKey(t *testing.T) {
	var (
		upserted   domain.Department
		deletedKey string
	)
	svc := newRegistryService(&mockRegistryRepo{
		getByKey: func(_ context.Context, key string) (domain.Department, error) {
			switch key {
			case "er":
				return erDepartment(), nil
			case "emergency":
				return domain.Department{Key: "emergency", Name: "Emergency", Tags: []string{"EM-01"}}, nil
			default:
				return domain.Department{}, domain.ErrNotFound
			}
		},
		upsert: func(_ context.Context, d domain.Department) (domain.Department, error) {
			upserted = d
			return d, nil
		},
		delete: func(_ context.Context, key string) error {
			deletedKey = key
			return nil
		},
	})

	got, err := svc.RenameDepartment(context.Background(), "ER", "Emergency")

	require.NoError(t, err)
	assert.Equal(t, "emergency", got.Key)
	assert.Equal(t, "emergency", upserted.Key)
	assert.Equal(t, []string{"EM-01", "ER-01", "ER-02"}, upserted.Tags, "tag sets merge under the new key")
	assert.Equal(t, "er", deletedKey, "old key is removed")
}

func TestRegistryService_RenameDepartment_SameKeyOnlyRecases(t *testing.T) {
	deleteCalled := false
	svc := newRegistryService(&mockRegistryRepo{
		getByKey: func(_ context.Context, key string) (domain.Department, error) {
			require.Equal(t, "er", key, "same-key rename must not look up a merge target")
			return erDepartment(), nil
		},
		upsert: func(_ context.Context, d domain.Department) (domain.Department, error) {
			return d, nil
		},
		delete: func(context.Context, string) error {
			deleteCalled = true
			return nil
		},
	})

	got, err := svc.RenameDepartment(context.Background(), "ER", "er")

	require.NoError(t, err)
	assert.Equal(t, "er", got.Key)
	assert.Equal(t, "er", got.Name)
	assert.False(t, deleteCalled, "nothing to remove when the key is unchanged")
}

func TestRegistryService_RenameDepartment_SourceMissing(t *testing.T) {
	svc := newRegistryService(&mockRegistryRepo{
		getByKey: func(context.Context, string) (domain.Department, error) {
			return domain.Department{}, domain.ErrNotFound
		},
	})

	_, err := svc.RenameDepartment(context.Background(), "Ghost", "Emergency")

	assert.ErrorIs(t, err, domain.ErrNotFound)
}

// A rename must move tag validity: valid under the new name, invalid under
// the old one once the old key is gone.
func TestRegistryService_Rename_MovesTagValidity(t *testing.T) {
	store := map[string]domain.Department{"er": erDepartment()}
	m := &mockRegistryRepo{
		getByKey: func(_ context.Context, key string) (domain.Department, error) {
			d, ok := store[key]
			if !ok {
				return domain.Department{}, domain.ErrNotFound
			}
			return d, nil
		},
		list: func(context.Context) ([]domain.Department, error) {
			out := []domain.Department{}
			for _, d := range store {
				out = append(out, d)
			}
			return out, nil
		},
		upsert: func(_ context.Context, d domain.Department) (domain.Department, error) {
			store[d.Key] = d
			return d, nil
		},
		delete: func(_ context.Context, key string) error {
			delete(store, key)
			return nil
		},
	}
	svc := service.NewRegistryService(m, service.NopCache{}, nil)
	ctx := context.Background()

	require.True(t, svc.IsValidTag(ctx, "ER-01", "ER"))

	_, err := svc.RenameDepartment(ctx, "ER", "Emergency")
	require.NoError(t, err)

	assert.True(t, svc.IsValidTag(ctx, "ER-01", "Emergency"))
	assert.False(t, svc.IsValidTag(ctx, "ER-01", "ER"))
}
