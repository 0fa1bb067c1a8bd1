package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/stocklens/stocklens/internal/query"
	"github.com/stocklens/stocklens/internal/shared"
)

// Service owns order business rules above the repository: total derivation,
// lifecycle transitions and one-invoice-per-order issuance.
type Service struct {
	repo     Repository
	validate *validator.Validate
	notify   ChangeNotifier
}

// ChangeNotifier runs after a successful mutation so dependent read models,
// like the dashboard cache, can refresh. Best effort.
type ChangeNotifier func(ctx context.Context)

// ServiceOption tweaks service construction.
type ServiceOption func(*Service)

// WithChangeNotifier installs the post-mutation hook.
func WithChangeNotifier(fn ChangeNotifier) ServiceOption {
	return func(s *Service) { s.notify = fn }
}

// NewService constructs a Service instance.
func NewService(repo Repository, opts ...ServiceOption) *Service {
	s := &Service{repo: repo, validate: validator.New()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) changed(ctx context.Context) {
	if s.notify != nil {
		s.notify(ctx)
	}
}

// ListResult pairs one page of orders with its pagination metadata.
type ListResult struct {
	Items      []Order           `json:"items"`
	Pagination shared.Pagination `json:"pagination"`
}

func (s *Service) List(ctx context.Context, p shared.Principal, filters query.Filters, sort *query.Sort, page query.Page) (ListResult, error) {
	if !p.Valid() {
		return ListResult{}, shared.ErrUnauthorized
	}
	page = page.Normalize()
	items, total, err := s.repo.List(ctx, p.OrganizationID, filters, sort, page)
	if err != nil {
		return ListResult{}, err
	}
	if items == nil {
		items = []Order{}
	}
	return ListResult{Items: items, Pagination: shared.NewPagination(page.Number, page.Size, total)}, nil
}

func (s *Service) Get(ctx context.Context, p shared.Principal, id int64) (Order, error) {
	if !p.Valid() {
		return Order{}, shared.ErrUnauthorized
	}
	if id <= 0 {
		return Order{}, fmt.Errorf("%w: invalid order id", shared.ErrValidation)
	}
	return s.repo.Get(ctx, p.OrganizationID, id)
}

// Create persists a new PENDING order. The total amount is always derived
// from the lines, never taken from the client.
func (s *Service) Create(ctx context.Context, p shared.Principal, form OrderForm) (Order, error) {
	if !p.Valid() {
		return Order{}, shared.ErrUnauthorized
	}
	form.PartyName = strings.TrimSpace(form.PartyName)
	if err := s.validateStruct(form); err != nil {
		return Order{}, err
	}

	var total float64
	for _, line := range form.Lines {
		total += float64(line.Quantity) * line.UnitPrice
	}
	order, err := s.repo.Create(ctx, p.OrganizationID, uuid.New(), form, total)
	if err != nil {
		return Order{}, err
	}
	s.changed(ctx)
	return order, nil
}

// UpdateStatus applies a lifecycle transition after validating it against
// the current status.
func (s *Service) UpdateStatus(ctx context.Context, p shared.Principal, id int64, form StatusForm) (Order, error) {
	if !p.Valid() {
		return Order{}, shared.ErrUnauthorized
	}
	if id <= 0 {
		return Order{}, fmt.Errorf("%w: invalid order id", shared.ErrValidation)
	}
	if err := s.validateStruct(form); err != nil {
		return Order{}, err
	}

	current, err := s.repo.Get(ctx, p.OrganizationID, id)
	if err != nil {
		return Order{}, err
	}
	if err := ValidateTransition(current.Status, form.Status, form.Override); err != nil {
		return Order{}, err
	}
	order, err := s.repo.UpdateStatus(ctx, p.OrganizationID, id, form.Status)
	if err != nil {
		return Order{}, err
	}
	s.changed(ctx)
	return order, nil
}

func (s *Service) Delete(ctx context.Context, p shared.Principal, id int64) error {
	if !p.Valid() {
		return shared.ErrUnauthorized
	}
	if id <= 0 {
		return fmt.Errorf("%w: invalid order id", shared.ErrValidation)
	}
	if err := s.repo.Delete(ctx, p.OrganizationID, id); err != nil {
		return err
	}
	s.changed(ctx)
	return nil
}

func (s *Service) Invoice(ctx context.Context, p shared.Principal, orderID int64) (Invoice, error) {
	if !p.Valid() {
		return Invoice{}, shared.ErrUnauthorized
	}
	if orderID <= 0 {
		return Invoice{}, fmt.Errorf("%w: invalid order id", shared.ErrValidation)
	}
	return s.repo.Invoice(ctx, p.OrganizationID, orderID)
}

// IssueInvoice creates the order's invoice. When the form carries no amount
// the order total is billed.
func (s *Service) IssueInvoice(ctx context.Context, p shared.Principal, orderID int64, form InvoiceForm) (Invoice, error) {
	if !p.Valid() {
		return Invoice{}, shared.ErrUnauthorized
	}
	if orderID <= 0 {
		return Invoice{}, fmt.Errorf("%w: invalid order id", shared.ErrValidation)
	}
	if err := s.validateStruct(form); err != nil {
		return Invoice{}, err
	}
	if form.Amount == 0 {
		order, err := s.repo.Get(ctx, p.OrganizationID, orderID)
		if err != nil {
			return Invoice{}, err
		}
		form.Amount = order.TotalAmount
	}
	return s.repo.CreateInvoice(ctx, p.OrganizationID, orderID, uuid.New(), form)
}

func (s *Service) validateStruct(v any) error {
	if err := s.validate.Struct(v); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			return fmt.Errorf("%w: %s is invalid", shared.ErrValidation, strings.ToLower(fieldErrs[0].Field()))
		}
		return fmt.Errorf("%w: %v", shared.ErrValidation, err)
	}
	return nil
}
