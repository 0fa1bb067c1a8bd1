package categories

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/stocklens/stocklens/internal/platform/db"
	"github.com/stocklens/stocklens/internal/query"
	"github.com/stocklens/stocklens/internal/shared"
)

// Repository persists categories in PostgreSQL.
type Repository interface {
	List(ctx context.Context, organizationID int64, filters query.Filters, sort *query.Sort, page query.Page) ([]Category, int, error)
	Get(ctx context.Context, organizationID, id int64) (Category, error)
	Create(ctx context.Context, organizationID int64, form CategoryForm) (Category, error)
	Update(ctx context.Context, organizationID, id int64, form CategoryForm) (Category, error)
	Delete(ctx context.Context, organizationID, id int64) error
}

type repository struct {
	pool    *pgxpool.Pool
	builder *query.Builder
}

// NewRepository constructs the category repository with its filter rules.
func NewRepository(pool *pgxpool.Pool) (Repository, error) {
	builder, err := query.NewBuilder(query.RuleSet{
		TenantColumn:  "c.organization_id",
		SearchColumns: []string{"c.name", "c.description"},
		Sortable: map[string]string{
			"name":       "c.name",
			"created_at": "c.created_at",
		},
		DefaultSort: "created_at",
	}, nil)
	if err != nil {
		return nil, err
	}
	return &repository{pool: pool, builder: builder}, nil
}

const categoryColumns = `c.id, c.organization_id, c.name, c.description,
	(SELECT COUNT(*) FROM products p WHERE p.category_id = c.id) AS product_count,
	c.created_at, c.updated_at`

func (r *repository) List(ctx context.Context, organizationID int64, filters query.Filters, sort *query.Sort, page query.Page) ([]Category, int, error) {
	q, err := r.builder.Build(organizationID, filters, sort, page)
	if err != nil {
		return nil, 0, err
	}

	// The count must run against the same predicate as the page query.
	var total int
	countSQL := "SELECT COUNT(*) FROM categories c WHERE " + q.Where
	if err := r.pool.QueryRow(ctx, countSQL, q.Args...).Scan(&total); err != nil {
		return nil, 0, db.Translate(err)
	}

	pageSQL := fmt.Sprintf("SELECT %s FROM categories c WHERE %s ORDER BY %s %s",
		categoryColumns, q.Where, q.OrderBy,
		query.NumberFrom("LIMIT ? OFFSET ?", len(q.Args)+1))
	rows, err := r.pool.Query(ctx, pageSQL, append(q.Args, q.Limit, q.Offset)...)
	if err != nil {
		return nil, 0, db.Translate(err)
	}
	defer rows.Close()

	var items []Category
	for rows.Next() {
		var c Category
		if err := rows.Scan(&c.ID, &c.OrganizationID, &c.Name, &c.Description, &c.ProductCount, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, 0, db.Translate(err)
		}
		items = append(items, c)
	}
	return items, total, db.Translate(rows.Err())
}

func (r *repository) Get(ctx context.Context, organizationID, id int64) (Category, error) {
	var c Category
	err := r.pool.QueryRow(ctx,
		"SELECT "+categoryColumns+" FROM categories c WHERE c.organization_id = $1 AND c.id = $2",
		organizationID, id,
	).Scan(&c.ID, &c.OrganizationID, &c.Name, &c.Description, &c.ProductCount, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return Category{}, db.Translate(err)
	}
	return c, nil
}

func (r *repository) Create(ctx context.Context, organizationID int64, form CategoryForm) (Category, error) {
	now := time.Now().UTC()
	var c Category
	err := r.pool.QueryRow(ctx,
		`INSERT INTO categories (organization_id, name, description, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $4)
		 RETURNING id, organization_id, name, description, 0, created_at, updated_at`,
		organizationID, form.Name, form.Description, now,
	).Scan(&c.ID, &c.OrganizationID, &c.Name, &c.Description, &c.ProductCount, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return Category{}, db.Translate(err)
	}
	return c, nil
}

func (r *repository) Update(ctx context.Context, organizationID, id int64, form CategoryForm) (Category, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE categories SET name = $1, description = $2, updated_at = NOW()
		 WHERE organization_id = $3 AND id = $4`,
		form.Name, form.Description, organizationID, id,
	)
	if err != nil {
		return Category{}, db.Translate(err)
	}
	if tag.RowsAffected() == 0 {
		return Category{}, shared.ErrNotFound
	}
	return r.Get(ctx, organizationID, id)
}

func (r *repository) Delete(ctx context.Context, organizationID, id int64) error {
	var dependents int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM products p
		 JOIN categories c ON c.id = p.category_id
		 WHERE c.organization_id = $1 AND c.id = $2`,
		organizationID, id,
	).Scan(&dependents)
	if err != nil {
		return db.Translate(err)
	}
	if dependents > 0 {
		return fmt.Errorf("%w: %d products still reference this category", shared.ErrHasDependents, dependents)
	}

	tag, err := r.pool.Exec(ctx,
		"DELETE FROM categories WHERE organization_id = $1 AND id = $2",
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
