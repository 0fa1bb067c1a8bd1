package categories

import (
	"context"
	"fmt"
	"strings"

	"github.com/stocklens/stocklens/internal/query"
	"github.com/stocklens/stocklens/internal/shared"
)

// Service owns category business rules above the repository.
type Service struct {
	repo Repository
}

// NewService constructs a Service instance.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// ListResult pairs one page of categories with its pagination metadata.
type ListResult struct {
	Items      []Category        `json:"items"`
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
		items = []Category{}
	}
	return ListResult{Items: items, Pagination: shared.NewPagination(page.Number, page.Size, total)}, nil
}

func (s *Service) Get(ctx context.Context, p shared.Principal, id int64) (Category, error) {
	if !p.Valid() {
		return Category{}, shared.ErrUnauthorized
	}
	if id <= 0 {
		return Category{}, fmt.Errorf("%w: invalid category id", shared.ErrValidation)
	}
	return s.repo.Get(ctx, p.OrganizationID, id)
}

func (s *Service) Create(ctx context.Context, p shared.Principal, form CategoryForm) (Category, error) {
	if !p.Valid() {
		return Category{}, shared.ErrUnauthorized
	}
	if err := validateForm(form); err != nil {
		return Category{}, err
	}
	form.Name = strings.TrimSpace(form.Name)
	return s.repo.Create(ctx, p.OrganizationID, form)
}

func (s *Service) Update(ctx context.Context, p shared.Principal, id int64, form CategoryForm) (Category, error) {
	if !p.Valid() {
		return Category{}, shared.ErrUnauthorized
	}
	if id <= 0 {
		return Category{}, fmt.Errorf("%w: invalid category id", shared.ErrValidation)
	}
	if err := validateForm(form); err != nil {
		return Category{}, err
	}
	form.Name = strings.TrimSpace(form.Name)
	return s.repo.Update(ctx, p.OrganizationID, id, form)
}

func (s *Service) Delete(ctx context.Context, p shared.Principal, id int64) error {
	if !p.Valid() {
		return shared.ErrUnauthorized
	}
	if id <= 0 {
		return fmt.Errorf("%w: invalid category id", shared.ErrValidation)
	}
	return s.repo.Delete(ctx, p.OrganizationID, id)
}

func validateForm(form CategoryForm) error {
	if strings.TrimSpace(form.Name) == "" {
		return fmt.Errorf("%w: category name is required", shared.ErrValidation)
	}
	return nil
}
