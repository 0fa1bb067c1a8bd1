package products

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/stocklens/stocklens/internal/query"
	"github.com/stocklens/stocklens/internal/shared"
)

// Service owns product business rules above the repository.
type Service struct {
	repo     Repository
	validate *validator.Validate
}

// NewService constructs a Service instance.
func NewService(repo Repository) *Service {
	return &Service{repo: repo, validate: validator.New()}
}

// ListResult pairs one page of products with its pagination metadata.
type ListResult struct {
	Items      []Product         `json:"items"`
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
		items = []Product{}
	}
	return ListResult{Items: items, Pagination: shared.NewPagination(page.Number, page.Size, total)}, nil
}

func (s *Service) Get(ctx context.Context, p shared.Principal, id int64) (Product, error) {
	if !p.Valid() {
		return Product{}, shared.ErrUnauthorized
	}
	if id <= 0 {
		return Product{}, fmt.Errorf("%w: invalid product id", shared.ErrValidation)
	}
	return s.repo.Get(ctx, p.OrganizationID, id)
}

func (s *Service) Create(ctx context.Context, p shared.Principal, form ProductForm) (Product, error) {
	if !p.Valid() {
		return Product{}, shared.ErrUnauthorized
	}
	form = normalizeForm(form)
	if err := s.validateForm(form); err != nil {
		return Product{}, err
	}
	return s.repo.Create(ctx, p.OrganizationID, form)
}

func (s *Service) Update(ctx context.Context, p shared.Principal, id int64, form ProductForm) (Product, error) {
	if !p.Valid() {
		return Product{}, shared.ErrUnauthorized
	}
	if id <= 0 {
		return Product{}, fmt.Errorf("%w: invalid product id", shared.ErrValidation)
	}
	form = normalizeForm(form)
	if err := s.validateForm(form); err != nil {
		return Product{}, err
	}
	return s.repo.Update(ctx, p.OrganizationID, id, form)
}

func (s *Service) Delete(ctx context.Context, p shared.Principal, id int64) error {
	if !p.Valid() {
		return shared.ErrUnauthorized
	}
	if id <= 0 {
		return fmt.Errorf("%w: invalid product id", shared.ErrValidation)
	}
	return s.repo.Delete(ctx, p.OrganizationID, id)
}

func normalizeForm(form ProductForm) ProductForm {
	form.Name = strings.TrimSpace(form.Name)
	form.SKU = strings.TrimSpace(form.SKU)
	form.Barcode = strings.TrimSpace(form.Barcode)
	return form
}

func (s *Service) validateForm(form ProductForm) error {
	if err := s.validate.Struct(form); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			return fmt.Errorf("%w: %s is invalid", shared.ErrValidation, strings.ToLower(fieldErrs[0].Field()))
		}
		return fmt.Errorf("%w: %v", shared.ErrValidation, err)
	}
	return nil
}
