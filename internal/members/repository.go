package members

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/stocklens/stocklens/internal/platform/db"
	"github.com/stocklens/stocklens/internal/query"
	"github.com/stocklens/stocklens/internal/shared"
)

// Repository persists organization members in PostgreSQL.
type Repository interface {
	List(ctx context.Context, organizationID int64, filters query.Filters, sort *query.Sort, page query.Page) ([]Member, int, error)
	Get(ctx context.Context, organizationID, id int64) (Member, error)
	Create(ctx context.Context, organizationID int64, form MemberForm, passwordHash string) (Member, error)
	Update(ctx context.Context, organizationID, id int64, form UpdateForm, passwordHash string) (Member, error)
	Delete(ctx context.Context, organizationID, id int64) error
}

type repository struct {
	pool    *pgxpool.Pool
	builder *query.Builder
}

// NewRepository constructs the member repository.
func NewRepository(pool *pgxpool.Pool) (Repository, error) {
	builder, err := query.NewBuilder(query.RuleSet{
		TenantColumn:  "m.organization_id",
		SearchColumns: []string{"m.email", "m.name"},
		Sortable: map[string]string{
			"email":      "m.email",
			"name":       "m.name",
			"created_at": "m.created_at",
		},
		DefaultSort: "created_at",
	}, map[string]query.Rule{
		"role": query.OneOf("m.role", "admin", "manager", "viewer"),
	})
	if err != nil {
		return nil, err
	}
	return &repository{pool: pool, builder: builder}, nil
}

const memberColumns = `m.id, m.organization_id, m.email, m.name, m.role, m.password_hash, m.created_at, m.updated_at`

func (r *repository) List(ctx context.Context, organizationID int64, filters query.Filters, sort *query.Sort, page query.Page) ([]Member, int, error) {
	q, err := r.builder.Build(organizationID, filters, sort, page)
	if err != nil {
		return nil, 0, err
	}

	var total int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM members m WHERE "+q.Where, q.Args...).Scan(&total); err != nil {
		return nil, 0, db.Translate(err)
	}

	pageSQL := fmt.Sprintf("SELECT %s FROM members m WHERE %s ORDER BY %s %s",
		memberColumns, q.Where, q.OrderBy,
		query.NumberFrom("LIMIT ? OFFSET ?", len(q.Args)+1))
	rows, err := r.pool.Query(ctx, pageSQL, append(q.Args, q.Limit, q.Offset)...)
	if err != nil {
		return nil, 0, db.Translate(err)
	}
	defer rows.Close()

	var items []Member
	for rows.Next() {
		var m Member
		if err := rows.Scan(&m.ID, &m.OrganizationID, &m.Email, &m.Name, &m.Role,
			&m.PasswordHash, &m.CreatedAt, &m.UpdatedAt); err != nil {
			return nil, 0, db.Translate(err)
		}
		items = append(items, m)
	}
	return items, total, db.Translate(rows.Err())
}

func (r *repository) Get(ctx context.Context, organizationID, id int64) (Member, error) {
	var m Member
	err := r.pool.QueryRow(ctx,
		"SELECT "+memberColumns+" FROM members m WHERE m.organization_id = $1 AND m.id = $2",
		organizationID, id,
	).Scan(&m.ID, &m.OrganizationID, &m.Email, &m.Name, &m.Role,
		&m.PasswordHash, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return Member{}, db.Translate(err)
	}
	return m, nil
}

func (r *repository) Create(ctx context.Context, organizationID int64, form MemberForm, passwordHash string) (Member, error) {
	now := time.Now().UTC()
	var id int64
	// members carries a unique (organization_id, email) constraint; 23505 is
	// translated to a duplicate error.
	err := r.pool.QueryRow(ctx,
		`INSERT INTO members (organization_id, email, name, role, password_hash, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $6)
		 RETURNING id`,
		organizationID, form.Email, form.Name, form.Role, passwordHash, now,
	).Scan(&id)
	if err != nil {
		return Member{}, db.Translate(err)
	}
	return r.Get(ctx, organizationID, id)
}

func (r *repository) Update(ctx context.Context, organizationID, id int64, form UpdateForm, passwordHash string) (Member, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE members SET email = $1, name = $2, role = $3,
		        password_hash = COALESCE(NULLIF($4, ''), password_hash),
		        updated_at = NOW()
		 WHERE organization_id = $5 AND id = $6`,
		form.Email, form.Name, form.Role, passwordHash, organizationID, id,
	)
	if err != nil {
		return Member{}, db.Translate(err)
	}
	if tag.RowsAffected() == 0 {
		return Member{}, shared.ErrNotFound
	}
	return r.Get(ctx, organizationID, id)
}

func (r *repository) Delete(ctx context.Context, organizationID, id int64) error {
	tag, err := r.pool.Exec(ctx,
		"DELETE FROM members WHERE organization_id = $1 AND id = $2",
		organizationID, id,
	)
	if err != nil {
		return db.Translate(err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}
