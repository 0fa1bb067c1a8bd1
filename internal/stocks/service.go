package stocks

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/stocklens/stocklens/internal/query"
	"github.com/stocklens/stocklens/internal/shared"
)

// Service owns stock-location business rules above the repository.
type Service struct {
	repo     Repository
	validate *validator.Validate
}

// NewService constructs a Service instance.
func NewService(repo Repository) *Service {
	return &Service{repo: repo, validate: validator.New()}
}

// ListResult pairs one page of stocks with its pagination metadata.
type ListResult struct {
	Items      []Stock           `json:"items"`
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
		items = []Stock{}
	}
	return ListResult{Items: items, Pagination: shared.NewPagination(page.Number, page.Size, total)}, nil
}

func (s *Service) Get(ctx context.Context, p shared.Principal, id int64) (Stock, error) {
	if !p.Valid() {
		return Stock{}, shared.ErrUnauthorized
	}
	if id <= 0 {
		return Stock{}, fmt.Errorf("%w: invalid stock id", shared.ErrValidation)
	}
	return s.repo.Get(ctx, p.OrganizationID, id)
}

func (s *Service) Items(ctx context.Context, p shared.Principal, stockID int64) ([]StockItem, error) {
	if !p.Valid() {
		return nil, shared.ErrUnauthorized
	}
	if stockID <= 0 {
		return nil, fmt.Errorf("%w: invalid stock id", shared.ErrValidation)
	}
	items, err := s.repo.Items(ctx, p.OrganizationID, stockID)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []StockItem{}
	}
	return items, nil
}

func (s *Service) Create(ctx context.Context, p shared.Principal, form StockForm) (Stock, error) {
	if !p.Valid() {
		return Stock{}, shared.ErrUnauthorized
	}
	form.Name = strings.TrimSpace(form.Name)
	if err := s.validateStruct(form); err != nil {
		return Stock{}, err
	}
	return s.repo.Create(ctx, p.OrganizationID, form)
}

func (s *Service) Update(ctx context.Context, p shared.Principal, id int64, form StockForm) (Stock, error) {
	if !p.Valid() {
		return Stock{}, shared.ErrUnauthorized
	}
	if id <= 0 {
		return Stock{}, fmt.Errorf("%w: invalid stock id", shared.ErrValidation)
	}
	form.Name = strings.TrimSpace(form.Name)
	if err := s.validateStruct(form); err != nil {
		return Stock{}, err
	}
	return s.repo.Update(ctx, p.OrganizationID, id, form)
}

func (s *Service) Delete(ctx context.Context, p shared.Principal, id int64) error {
	if !p.Valid() {
		return shared.ErrUnauthorized
	}
	if id <= 0 {
		return fmt.Errorf("%w: invalid stock id", shared.ErrValidation)
	}
	return s.repo.Delete(ctx, p.OrganizationID, id)
}

func (s *Service) SetItem(ctx context.Context, p shared.Principal, stockID int64, form ItemForm) (StockItem, error) {
	if !p.Valid() {
		return StockItem{}, shared.ErrUnauthorized
	}
	if stockID <= 0 {
		return StockItem{}, fmt.Errorf("%w: invalid stock id", shared.ErrValidation)
	}
	if err := s.validateStruct(form); err != nil {
		return StockItem{}, err
	}
	return s.repo.SetItem(ctx, p.OrganizationID, stockID, form)
}

func (s *Service) RemoveItem(ctx context.Context, p shared.Principal, stockID, itemID int64) error {
	if !p.Valid() {
		return shared.ErrUnauthorized
	}
	if stockID <= 0 || itemID <= 0 {
		return fmt.Errorf("%w: invalid stock item id", shared.ErrValidation)
	}
	return s.repo.RemoveItem(ctx, p.OrganizationID, stockID, itemID)
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
