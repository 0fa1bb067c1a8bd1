package stocks

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
	stocks    []Stock
	items     []StockItem
	total     int
	lastOrg   int64
	setItem   *ItemForm
	deleteErr error

	// When set, SetItem enforces the same product ownership rule as the
	// Postgres implementation's scoped upsert.
	ownedProducts map[int64]bool
}

func (s *stubRepo) List(_ context.Context, organizationID int64, _ query.Filters, _ *query.Sort, _ query.Page) ([]Stock, int, error) {
	s.lastOrg = organizationID
	return s.stocks, s.total, nil
}

func (s *stubRepo) Get(_ context.Context, organizationID, id int64) (Stock, error) {
	for _, st := range s.stocks {
		if st.ID == id && st.OrganizationID == organizationID {
			return st, nil
		}
	}
	return Stock{}, shared.ErrNotFound
}

func (s *stubRepo) Items(_ context.Context, organizationID, stockID int64) ([]StockItem, error) {
	if _, err := s.Get(context.Background(), organizationID, stockID); err != nil {
		return nil, err
	}
	return s.items, nil
}

func (s *stubRepo) Create(_ context.Context, organizationID int64, form StockForm) (Stock, error) {
	return Stock{ID: 1, OrganizationID: organizationID, Name: form.Name, Location: form.Location}, nil
}

func (s *stubRepo) Update(_ context.Context, organizationID, id int64, form StockForm) (Stock, error) {
	return Stock{ID: id, OrganizationID: organizationID, Name: form.Name, Location: form.Location}, nil
}

func (s *stubRepo) Delete(context.Context, int64, int64) error {
	return s.deleteErr
}

func (s *stubRepo) SetItem(_ context.Context, _ int64, stockID int64, form ItemForm) (StockItem, error) {
	if s.ownedProducts != nil && !s.ownedProducts[form.ProductID] {
		return StockItem{}, fmt.Errorf("%w: product %d not found for this organization", shared.ErrValidation, form.ProductID)
	}
	s.setItem = &form
	return StockItem{ID: 9, StockID: stockID, ProductID: form.ProductID, Quantity: form.Quantity}, nil
}

func (s *stubRepo) RemoveItem(context.Context, int64, int64, int64) error {
	return nil
}

var testPrincipal = shared.Principal{OrganizationID: 42, UserID: 7}

func TestListScopesToPrincipalOrganization(t *testing.T) {
	repo := &stubRepo{stocks: []Stock{{ID: 1, OrganizationID: 42, Name: "Main"}}, total: 1}
	svc := NewService(repo)

	result, err := svc.List(context.Background(), testPrincipal, query.Filters{}, nil, query.Page{})
	require.NoError(t, err)

	assert.Equal(t, int64(42), repo.lastOrg)
	assert.Len(t, result.Items, 1)
}

func TestListRejectsMissingPrincipal(t *testing.T) {
	svc := NewService(&stubRepo{})

	_, err := svc.List(context.Background(), shared.Principal{}, query.Filters{}, nil, query.Page{})
	assert.ErrorIs(t, err, shared.ErrUnauthorized)
}

func TestItemsRequiresOwnedStock(t *testing.T) {
	repo := &stubRepo{
		stocks: []Stock{{ID: 5, OrganizationID: 99, Name: "Other"}},
		items:  []StockItem{{ID: 1, StockID: 5, ProductID: 2, Quantity: 3}},
	}
	svc := NewService(repo)

	_, err := svc.Items(context.Background(), testPrincipal, 5)
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestCreateValidatesName(t *testing.T) {
	svc := NewService(&stubRepo{})

	_, err := svc.Create(context.Background(), testPrincipal, StockForm{Name: "   "})
	assert.ErrorIs(t, err, shared.ErrValidation)

	created, err := svc.Create(context.Background(), testPrincipal, StockForm{Name: " Central Warehouse ", Location: "Aisle 3"})
	require.NoError(t, err)
	assert.Equal(t, "Central Warehouse", created.Name)
}

func TestSetItemValidatesForm(t *testing.T) {
	repo := &stubRepo{}
	svc := NewService(repo)

	_, err := svc.SetItem(context.Background(), testPrincipal, 1, ItemForm{ProductID: 0, Quantity: 5})
	assert.ErrorIs(t, err, shared.ErrValidation)
	assert.Nil(t, repo.setItem)

	_, err = svc.SetItem(context.Background(), testPrincipal, 1, ItemForm{ProductID: 3, Quantity: -1})
	assert.ErrorIs(t, err, shared.ErrValidation)

	item, err := svc.SetItem(context.Background(), testPrincipal, 1, ItemForm{ProductID: 3, Quantity: 0})
	require.NoError(t, err)
	assert.Equal(t, int64(3), item.ProductID)
}

func TestDeletePropagatesDependentConflict(t *testing.T) {
	svc := NewService(&stubRepo{deleteErr: shared.ErrHasDependents})

	err := svc.Delete(context.Background(), testPrincipal, 3)
	assert.ErrorIs(t, err, shared.ErrHasDependents)
}

func TestSetItemRejectsForeignProduct(t *testing.T) {
	repo := &stubRepo{
		stocks:        []Stock{{ID: 1, OrganizationID: 42, Name: "Main"}},
		ownedProducts: map[int64]bool{3: true},
	}
	svc := NewService(repo)

	_, err := svc.SetItem(context.Background(), testPrincipal, 1, ItemForm{ProductID: 99, Quantity: 5})
	assert.ErrorIs(t, err, shared.ErrValidation)
	assert.Nil(t, repo.setItem)
}
