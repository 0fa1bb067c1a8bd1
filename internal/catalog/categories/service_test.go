package categories

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stocklens/stocklens/internal/query"
	"github.com/stocklens/stocklens/internal/shared"
)

type stubRepo struct {
	items     []Category
	total     int
	lastOrg   int64
	lastPage  query.Page
	created   *CategoryForm
	deleteErr error
}

func (s *stubRepo) List(_ context.Context, organizationID int64, _ query.Filters, _ *query.Sort, page query.Page) ([]Category, int, error) {
	s.lastOrg = organizationID
	s.lastPage = page
	return s.items, s.total, nil
}

func (s *stubRepo) Get(_ context.Context, organizationID, id int64) (Category, error) {
	for _, c := range s.items {
		if c.ID == id && c.OrganizationID == organizationID {
			return c, nil
		}
	}
	return Category{}, shared.ErrNotFound
}

func (s *stubRepo) Create(_ context.Context, organizationID int64, form CategoryForm) (Category, error) {
	s.created = &form
	return Category{ID: 1, OrganizationID: organizationID, Name: form.Name}, nil
}

func (s *stubRepo) Update(_ context.Context, organizationID, id int64, form CategoryForm) (Category, error) {
	return Category{ID: id, OrganizationID: organizationID, Name: form.Name}, nil
}

func (s *stubRepo) Delete(context.Context, int64, int64) error {
	return s.deleteErr
}

var testPrincipal = shared.Principal{OrganizationID: 42, UserID: 7}

func TestListScopesToPrincipalOrganization(t *testing.T) {
	repo := &stubRepo{items: []Category{{ID: 1, OrganizationID: 42, Name: "Tools"}}, total: 1}
	svc := NewService(repo)

	result, err := svc.List(context.Background(), testPrincipal, query.Filters{}, nil, query.Page{})
	require.NoError(t, err)

	assert.Equal(t, int64(42), repo.lastOrg)
	assert.Len(t, result.Items, 1)
	assert.Equal(t, 1, result.Pagination.TotalPages)
}

func TestListRejectsMissingPrincipal(t *testing.T) {
	svc := NewService(&stubRepo{})

	_, err := svc.List(context.Background(), shared.Principal{}, query.Filters{}, nil, query.Page{})
	assert.ErrorIs(t, err, shared.ErrUnauthorized)
}

func TestListEmptyResultHasZeroTotalPages(t *testing.T) {
	svc := NewService(&stubRepo{})

	result, err := svc.List(context.Background(), testPrincipal, query.Filters{}, nil, query.Page{})
	require.NoError(t, err)

	assert.NotNil(t, result.Items)
	assert.Empty(t, result.Items)
	assert.Equal(t, 0, result.Pagination.TotalPages)
}

func TestCreateValidatesName(t *testing.T) {
	repo := &stubRepo{}
	svc := NewService(repo)

	_, err := svc.Create(context.Background(), testPrincipal, CategoryForm{Name: "   "})
	assert.ErrorIs(t, err, shared.ErrValidation)
	assert.Nil(t, repo.created)

	created, err := svc.Create(context.Background(), testPrincipal, CategoryForm{Name: "  Fasteners "})
	require.NoError(t, err)
	assert.Equal(t, "Fasteners", created.Name)
}

func TestDeletePropagatesDependentConflict(t *testing.T) {
	repo := &stubRepo{deleteErr: shared.ErrHasDependents}
	svc := NewService(repo)

	err := svc.Delete(context.Background(), testPrincipal, 3)
	assert.ErrorIs(t, err, shared.ErrHasDependents)
}
