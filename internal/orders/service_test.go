package orders

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stocklens/stocklens/internal/query"
	"github.com/stocklens/stocklens/internal/shared"
)

type stubRepo struct {
	orders     []Order
	total      int
	lastOrg    int64
	created    *OrderForm
	totalGiven float64
	status     string
	invoiceErr error

	// When set, Create enforces the same product ownership rule as the
	// Postgres implementation's scoped line insert.
	ownedProducts map[int64]bool
}

func (s *stubRepo) List(_ context.Context, organizationID int64, _ query.Filters, _ *query.Sort, _ query.Page) ([]Order, int, error) {
	s.lastOrg = organizationID
	return s.orders, s.total, nil
}

func (s *stubRepo) Get(_ context.Context, organizationID, id int64) (Order, error) {
	for _, o := range s.orders {
		if o.ID == id && o.OrganizationID == organizationID {
			return o, nil
		}
	}
	return Order{}, shared.ErrNotFound
}

func (s *stubRepo) Create(_ context.Context, organizationID int64, reference uuid.UUID, form OrderForm, total float64) (Order, error) {
	if s.ownedProducts != nil {
		for _, line := range form.Lines {
			if !s.ownedProducts[line.ProductID] {
				return Order{}, fmt.Errorf("%w: product %d not found for this organization", shared.ErrValidation, line.ProductID)
			}
		}
	}
	s.created = &form
	s.totalGiven = total
	return Order{ID: 1, OrganizationID: organizationID, Reference: reference, Status: StatusPending, TotalAmount: total}, nil
}

func (s *stubRepo) UpdateStatus(_ context.Context, organizationID, id int64, status string) (Order, error) {
	s.status = status
	return Order{ID: id, OrganizationID: organizationID, Status: status}, nil
}

func (s *stubRepo) Delete(context.Context, int64, int64) error {
	return nil
}

func (s *stubRepo) Invoice(context.Context, int64, int64) (Invoice, error) {
	return Invoice{}, shared.ErrNotFound
}

func (s *stubRepo) CreateInvoice(_ context.Context, _ int64, orderID int64, number uuid.UUID, form InvoiceForm) (Invoice, error) {
	if s.invoiceErr != nil {
		return Invoice{}, s.invoiceErr
	}
	return Invoice{ID: 1, OrderID: orderID, Number: number, Amount: form.Amount, IssuedAt: form.IssuedAt}, nil
}

var testPrincipal = shared.Principal{OrganizationID: 42, UserID: 7}

func validForm() OrderForm {
	return OrderForm{
		OrderType: TypeSales,
		PartyKind: PartyCustomer,
		PartyName: "Acme Retail",
		OrderDate: time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC),
		Lines: []LineForm{
			{ProductID: 1, Quantity: 2, UnitPrice: 25},
			{ProductID: 2, Quantity: 1, UnitPrice: 100},
		},
	}
}

func TestCreateDerivesTotalFromLines(t *testing.T) {
	repo := &stubRepo{}
	svc := NewService(repo)

	created, err := svc.Create(context.Background(), testPrincipal, validForm())
	require.NoError(t, err)

	assert.Equal(t, 150.0, repo.totalGiven)
	assert.Equal(t, StatusPending, created.Status)
	assert.NotEqual(t, uuid.Nil, created.Reference)
}

func TestCreateRejectsEmptyLines(t *testing.T) {
	repo := &stubRepo{}
	svc := NewService(repo)

	form := validForm()
	form.Lines = nil
	_, err := svc.Create(context.Background(), testPrincipal, form)
	assert.ErrorIs(t, err, shared.ErrValidation)
	assert.Nil(t, repo.created)
}

func TestCreateRejectsUnknownOrderType(t *testing.T) {
	svc := NewService(&stubRepo{})

	form := validForm()
	form.OrderType = "TRANSFER"
	_, err := svc.Create(context.Background(), testPrincipal, form)
	assert.ErrorIs(t, err, shared.ErrValidation)
}

func TestStatusTransitions(t *testing.T) {
	cases := []struct {
		current  string
		target   string
		override bool
		ok       bool
	}{
		{StatusPending, StatusProcessing, false, true},
		{StatusPending, StatusShipped, false, false},
		{StatusProcessing, StatusShipped, false, true},
		{StatusShipped, StatusDelivered, false, true},
		{StatusShipped, StatusCancelled, false, true},
		{StatusDelivered, StatusPending, false, false},
		{StatusDelivered, StatusPending, true, true},
		{StatusCancelled, StatusProcessing, false, false},
		{StatusCancelled, StatusCancelled, false, true},
	}
	for _, tc := range cases {
		err := ValidateTransition(tc.current, tc.target, tc.override)
		if tc.ok {
			assert.NoError(t, err, "%s -> %s", tc.current, tc.target)
		} else {
			assert.ErrorIs(t, err, shared.ErrValidation, "%s -> %s", tc.current, tc.target)
		}
	}
}

func TestUpdateStatusChecksCurrentState(t *testing.T) {
	repo := &stubRepo{orders: []Order{{ID: 3, OrganizationID: 42, Status: StatusDelivered}}}
	svc := NewService(repo)

	_, err := svc.UpdateStatus(context.Background(), testPrincipal, 3, StatusForm{Status: StatusPending})
	assert.ErrorIs(t, err, shared.ErrValidation)
	assert.Empty(t, repo.status)

	updated, err := svc.UpdateStatus(context.Background(), testPrincipal, 3, StatusForm{Status: StatusPending, Override: true})
	require.NoError(t, err)
	assert.Equal(t, StatusPending, updated.Status)
}

func TestIssueInvoiceDefaultsToOrderTotal(t *testing.T) {
	repo := &stubRepo{orders: []Order{{ID: 5, OrganizationID: 42, Status: StatusDelivered, TotalAmount: 320}}}
	svc := NewService(repo)

	inv, err := svc.IssueInvoice(context.Background(), testPrincipal, 5, InvoiceForm{IssuedAt: time.Now()})
	require.NoError(t, err)
	assert.Equal(t, 320.0, inv.Amount)
}

func TestIssueInvoicePropagatesDuplicate(t *testing.T) {
	repo := &stubRepo{
		orders:     []Order{{ID: 5, OrganizationID: 42, TotalAmount: 320}},
		invoiceErr: shared.ErrDuplicate,
	}
	svc := NewService(repo)

	_, err := svc.IssueInvoice(context.Background(), testPrincipal, 5, InvoiceForm{Amount: 320, IssuedAt: time.Now()})
	assert.ErrorIs(t, err, shared.ErrDuplicate)
}

func TestGetScopedToTenant(t *testing.T) {
	repo := &stubRepo{orders: []Order{{ID: 8, OrganizationID: 99}}}
	svc := NewService(repo)

	_, err := svc.Get(context.Background(), testPrincipal, 8)
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestListRejectsMissingPrincipal(t *testing.T) {
	svc := NewService(&stubRepo{})

	_, err := svc.List(context.Background(), shared.Principal{}, query.Filters{}, nil, query.Page{})
	assert.ErrorIs(t, err, shared.ErrUnauthorized)
}

func TestMutationsFireChangeNotifier(t *testing.T) {
	repo := &stubRepo{orders: []Order{{ID: 4, OrganizationID: testPrincipal.OrganizationID, Status: StatusPending}}}
	fired := 0
	svc := NewService(repo, WithChangeNotifier(func(context.Context) { fired++ }))

	_, err := svc.Create(context.Background(), testPrincipal, validForm())
	require.NoError(t, err)
	_, err = svc.UpdateStatus(context.Background(), testPrincipal, 4, StatusForm{Status: StatusProcessing})
	require.NoError(t, err)
	require.NoError(t, svc.Delete(context.Background(), testPrincipal, 4))

	assert.Equal(t, 3, fired)
}

func TestChangeNotifierSkippedOnFailure(t *testing.T) {
	fired := 0
	svc := NewService(&stubRepo{}, WithChangeNotifier(func(context.Context) { fired++ }))

	form := validForm()
	form.Lines = nil
	_, err := svc.Create(context.Background(), testPrincipal, form)
	assert.ErrorIs(t, err, shared.ErrValidation)
	assert.Zero(t, fired)
}

func TestCreateRejectsForeignProduct(t *testing.T) {
	repo := &stubRepo{ownedProducts: map[int64]bool{1: true, 2: true}}
	svc := NewService(repo)

	form := validForm()
	form.Lines = append(form.Lines, LineForm{ProductID: 99, Quantity: 1, UnitPrice: 5})
	_, err := svc.Create(context.Background(), testPrincipal, form)
	assert.ErrorIs(t, err, shared.ErrValidation)
	assert.Nil(t, repo.created)
}
