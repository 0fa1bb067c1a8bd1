package products

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stocklens/stocklens/internal/query"
	"github.com/stocklens/stocklens/internal/shared"
)

type stubRepo struct {
	items   []Product
	total   int
	lastOrg int64
	created *ProductForm

	// When set, writes enforce the same category ownership rule as the
	// Postgres implementation.
	ownedCategories map[int64]bool
}

func (s *stubRepo) List(_ context.Context, organizationID int64, _ query.Filters, _ *query.Sort, _ query.Page) ([]Product, int, error) {
	s.lastOrg = organizationID
	return s.items, s.total, nil
}

func (s *stubRepo) Get(_ context.Context, organizationID, id int64) (Product, error) {
	for _, p := range s.items {
		if p.ID == id && p.OrganizationID == organizationID {
			return p, nil
		}
	}
	return Product{}, shared.ErrNotFound
}

func (s *stubRepo) Create(_ context.Context, organizationID int64, form ProductForm) (Product, error) {
	if err := s.categoryOwned(form.CategoryID); err != nil {
		return Product{}, err
	}
	s.created = &form
	return Product{ID: 10, OrganizationID: organizationID, Name: form.Name, SKU: form.SKU}, nil
}

func (s *stubRepo) Update(_ context.Context, organizationID, id int64, form ProductForm) (Product, error) {
	if err := s.categoryOwned(form.CategoryID); err != nil {
		return Product{}, err
	}
	return Product{ID: id, OrganizationID: organizationID, Name: form.Name, SKU: form.SKU}, nil
}

func (s *stubRepo) Delete(context.Context, int64, int64) error { return nil }

func (s *stubRepo) categoryOwned(categoryID *int64) error {
	if s.ownedCategories == nil || categoryID == nil {
		return nil
	}
	if !s.ownedCategories[*categoryID] {
		return fmt.Errorf("%w: category %d not found for this organization", shared.ErrValidation, *categoryID)
	}
	return nil
}

var testPrincipal = shared.Principal{OrganizationID: 5, UserID: 2}

func TestStatusForThresholds(t *testing.T) {
	assert.Equal(t, StatusOutOfStock, StatusFor(0))
	assert.Equal(t, StatusLowStock, StatusFor(1))
	assert.Equal(t, StatusLowStock, StatusFor(30))
	assert.Equal(t, StatusLowStock, StatusFor(50))
	assert.Equal(t, StatusInStock, StatusFor(51))
	assert.Equal(t, StatusInStock, StatusFor(75))
}

func TestGetScopedToOtherTenantIsNotFound(t *testing.T) {
	repo := &stubRepo{items: []Product{{ID: 1, OrganizationID: 99, Name: "Widget"}}}
	svc := NewService(repo)

	_, err := svc.Get(context.Background(), testPrincipal, 1)
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestCreateValidatesForm(t *testing.T) {
	repo := &stubRepo{}
	svc := NewService(repo)

	_, err := svc.Create(context.Background(), testPrincipal, ProductForm{SKU: "SKU-1"})
	assert.ErrorIs(t, err, shared.ErrValidation)

	_, err = svc.Create(context.Background(), testPrincipal, ProductForm{Name: "Widget", SKU: "SKU-1", UnitPrice: -4})
	assert.ErrorIs(t, err, shared.ErrValidation)
	assert.Nil(t, repo.created)

	created, err := svc.Create(context.Background(), testPrincipal, ProductForm{Name: " Widget ", SKU: " SKU-1 ", UnitPrice: 9.5})
	require.NoError(t, err)
	assert.Equal(t, "Widget", created.Name)
	assert.Equal(t, "SKU-1", created.SKU)
}

func TestListRequiresPrincipal(t *testing.T) {
	svc := NewService(&stubRepo{})

	_, err := svc.List(context.Background(), shared.Principal{}, query.Filters{}, nil, query.Page{})
	assert.ErrorIs(t, err, shared.ErrUnauthorized)
}

func TestCreateRejectsForeignCategory(t *testing.T) {
	repo := &stubRepo{ownedCategories: map[int64]bool{3: true}}
	svc := NewService(repo)

	foreign := int64(8)
	_, err := svc.Create(context.Background(), testPrincipal, ProductForm{
		Name:       "Widget",
		SKU:        "SKU-1",
		Barcode:    "100001",
		UnitPrice:  2.5,
		CategoryID: &foreign,
	})
	assert.ErrorIs(t, err, shared.ErrValidation)
	assert.Nil(t, repo.created)
}
