package members

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"

	"github.com/stocklens/stocklens/internal/query"
	"github.com/stocklens/stocklens/internal/shared"
)

// Service owns member account rules above the repository. Passwords are
// hashed here; the repository only ever sees the hash.
type Service struct {
	repo     Repository
	validate *validator.Validate
}

// NewService constructs a Service instance.
func NewService(repo Repository) *Service {
	return &Service{repo: repo, validate: validator.New()}
}

// ListResult pairs one page of members with its pagination metadata.
type ListResult struct {
	Items      []Member          `json:"items"`
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
		items = []Member{}
	}
	return ListResult{Items: items, Pagination: shared.NewPagination(page.Number, page.Size, total)}, nil
}

func (s *Service) Get(ctx context.Context, p shared.Principal, id int64) (Member, error) {
	if !p.Valid() {
		return Member{}, shared.ErrUnauthorized
	}
	if id <= 0 {
		return Member{}, fmt.Errorf("%w: invalid member id", shared.ErrValidation)
	}
	return s.repo.Get(ctx, p.OrganizationID, id)
}

func (s *Service) Create(ctx context.Context, p shared.Principal, form MemberForm) (Member, error) {
	if !p.Valid() {
		return Member{}, shared.ErrUnauthorized
	}
	form.Email = strings.ToLower(strings.TrimSpace(form.Email))
	form.Name = strings.TrimSpace(form.Name)
	if err := s.validateStruct(form); err != nil {
		return Member{}, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(form.Password), bcrypt.DefaultCost)
	if err != nil {
		return Member{}, fmt.Errorf("members: hash password: %w", err)
	}
	return s.repo.Create(ctx, p.OrganizationID, form, string(hash))
}

func (s *Service) Update(ctx context.Context, p shared.Principal, id int64, form UpdateForm) (Member, error) {
	if !p.Valid() {
		return Member{}, shared.ErrUnauthorized
	}
	if id <= 0 {
		return Member{}, fmt.Errorf("%w: invalid member id", shared.ErrValidation)
	}
	form.Email = strings.ToLower(strings.TrimSpace(form.Email))
	form.Name = strings.TrimSpace(form.Name)
	if err := s.validateStruct(form); err != nil {
		return Member{}, err
	}

	var hash string
	if form.Password != "" {
		hashed, err := bcrypt.GenerateFromPassword([]byte(form.Password), bcrypt.DefaultCost)
		if err != nil {
			return Member{}, fmt.Errorf("members: hash password: %w", err)
		}
		hash = string(hashed)
	}
	return s.repo.Update(ctx, p.OrganizationID, id, form, hash)
}

func (s *Service) Delete(ctx context.Context, p shared.Principal, id int64) error {
	if !p.Valid() {
		return shared.ErrUnauthorized
	}
	if id <= 0 {
		return fmt.Errorf("%w: invalid member id", shared.ErrValidation)
	}
	if id == p.UserID {
		return fmt.Errorf("%w: cannot delete own account", shared.ErrValidation)
	}
	return s.repo.Delete(ctx, p.OrganizationID, id)
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
