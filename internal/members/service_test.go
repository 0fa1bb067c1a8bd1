package members

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/stocklens/stocklens/internal/query"
	"github.com/stocklens/stocklens/internal/shared"
)

type stubRepo struct {
	members    []Member
	total      int
	lastOrg    int64
	createdPw  string
	updatedPw  string
	createErr  error
	deletedIDs []int64
}

func (s *stubRepo) List(_ context.Context, organizationID int64, _ query.Filters, _ *query.Sort, _ query.Page) ([]Member, int, error) {
	s.lastOrg = organizationID
	return s.members, s.total, nil
}

func (s *stubRepo) Get(_ context.Context, organizationID, id int64) (Member, error) {
	for _, m := range s.members {
		if m.ID == id && m.OrganizationID == organizationID {
			return m, nil
		}
	}
	return Member{}, shared.ErrNotFound
}

func (s *stubRepo) Create(_ context.Context, organizationID int64, form MemberForm, passwordHash string) (Member, error) {
	if s.createErr != nil {
		return Member{}, s.createErr
	}
	s.createdPw = passwordHash
	return Member{ID: 1, OrganizationID: organizationID, Email: form.Email, Name: form.Name, Role: form.Role}, nil
}

func (s *stubRepo) Update(_ context.Context, organizationID, id int64, form UpdateForm, passwordHash string) (Member, error) {
	s.updatedPw = passwordHash
	return Member{ID: id, OrganizationID: organizationID, Email: form.Email, Name: form.Name, Role: form.Role}, nil
}

func (s *stubRepo) Delete(_ context.Context, _, id int64) error {
	s.deletedIDs = append(s.deletedIDs, id)
	return nil
}

var testPrincipal = shared.Principal{OrganizationID: 42, UserID: 7}

func TestCreateHashesPassword(t *testing.T) {
	repo := &stubRepo{}
	svc := NewService(repo)

	created, err := svc.Create(context.Background(), testPrincipal, MemberForm{
		Email:    " Alex@Example.COM ",
		Name:     "Alex",
		Role:     "manager",
		Password: "correct horse battery",
	})
	require.NoError(t, err)

	assert.Equal(t, "alex@example.com", created.Email)
	assert.NotEqual(t, "correct horse battery", repo.createdPw)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(repo.createdPw), []byte("correct horse battery")))
}

func TestCreateRejectsShortPassword(t *testing.T) {
	repo := &stubRepo{}
	svc := NewService(repo)

	_, err := svc.Create(context.Background(), testPrincipal, MemberForm{
		Email:    "alex@example.com",
		Name:     "Alex",
		Role:     "viewer",
		Password: "short",
	})
	assert.ErrorIs(t, err, shared.ErrValidation)
	assert.Empty(t, repo.createdPw)
}

func TestCreatePropagatesDuplicateEmail(t *testing.T) {
	repo := &stubRepo{createErr: shared.ErrDuplicate}
	svc := NewService(repo)

	_, err := svc.Create(context.Background(), testPrincipal, MemberForm{
		Email:    "alex@example.com",
		Name:     "Alex",
		Role:     "viewer",
		Password: "correct horse battery",
	})
	assert.ErrorIs(t, err, shared.ErrDuplicate)
}

func TestUpdateWithoutPasswordKeepsHash(t *testing.T) {
	repo := &stubRepo{}
	svc := NewService(repo)

	_, err := svc.Update(context.Background(), testPrincipal, 3, UpdateForm{
		Email: "alex@example.com",
		Name:  "Alex",
		Role:  "admin",
	})
	require.NoError(t, err)
	assert.Empty(t, repo.updatedPw)
}

func TestDeleteRejectsSelf(t *testing.T) {
	repo := &stubRepo{}
	svc := NewService(repo)

	err := svc.Delete(context.Background(), testPrincipal, testPrincipal.UserID)
	assert.ErrorIs(t, err, shared.ErrValidation)
	assert.Empty(t, repo.deletedIDs)

	require.NoError(t, svc.Delete(context.Background(), testPrincipal, 9))
	assert.Equal(t, []int64{9}, repo.deletedIDs)
}

func TestListRejectsMissingPrincipal(t *testing.T) {
	svc := NewService(&stubRepo{})

	_, err := svc.List(context.Background(), shared.Principal{}, query.Filters{}, nil, query.Page{})
	assert.ErrorIs(t, err, shared.ErrUnauthorized)
}
