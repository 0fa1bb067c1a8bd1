package products

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/stocklens/stocklens/internal/platform/db"
	"github.com/stocklens/stocklens/internal/query"
	"github.com/stocklens/stocklens/internal/shared"
)

// Repository persists products in PostgreSQL.
type Repository interface {
	List(ctx context.Context, organizationID int64, filters query.Filters, sort *query.Sort, page query.Page) ([]Product, int, error)
	Get(ctx context.Context, organizationID, id int64) (Product, error)
	Create(ctx context.Context, organizationID int64, form ProductForm) (Product, error)
	Update(ctx context.Context, organizationID, id int64, form ProductForm) (Product, error)
	Delete(ctx context.Context, organizationID, id int64) error
}

type repository struct {
	pool    *pgxpool.Pool
	builder *query.Builder
}

// NewRepository constructs the product repository. The status filter rules
// mirror the StatusFor thresholds in SQL so list queries and display logic
// never disagree.
func NewRepository(pool *pgxpool.Pool) (Repository, error) {
	builder, err := query.NewBuilder(query.RuleSet{
		TenantColumn:  "p.organization_id",
		SearchColumns: []string{"p.name", "p.sku", "p.barcode"},
		Sortable: map[string]string{
			"name":        "p.name",
			"sku":         "p.sku",
			"unit_price":  "p.unit_price",
			"total_stock": "COALESCE(sq.total_quantity, 0)",
			"created_at":  "p.created_at",
		},
		DefaultSort: "created_at",
	}, map[string]query.Rule{
		"category": query.EqualsInt("p.category_id"),
		"status": query.Raw(map[string]string{
			StatusInStock:    "COALESCE(sq.total_quantity, 0) > 50",
			StatusLowStock:   "COALESCE(sq.total_quantity, 0) BETWEEN 1 AND 50",
			StatusOutOfStock: "COALESCE(sq.total_quantity, 0) = 0",
		}),
	})
	if err != nil {
		return nil, err
	}
	return &repository{pool: pool, builder: builder}, nil
}

const productSelect = `SELECT p.id, p.organization_id, p.category_id, COALESCE(c.name, '') AS category_name,
	p.name, p.sku, p.barcode, p.unit_price, COALESCE(sq.total_quantity, 0) AS total_quantity,
	p.created_at, p.updated_at
FROM products p
LEFT JOIN categories c ON c.id = p.category_id
LEFT JOIN (
	SELECT si.product_id, SUM(si.quantity)::bigint AS total_quantity
	FROM stock_items si
	GROUP BY si.product_id
) sq ON sq.product_id = p.id`

const productCount = `SELECT COUNT(*)
FROM products p
LEFT JOIN (
	SELECT si.product_id, SUM(si.quantity)::bigint AS total_quantity
	FROM stock_items si
	GROUP BY si.product_id
) sq ON sq.product_id = p.id`

func (r *repository) List(ctx context.Context, organizationID int64, filters query.Filters, sort *query.Sort, page query.Page) ([]Product, int, error) {
	q, err := r.builder.Build(organizationID, filters, sort, page)
	if err != nil {
		return nil, 0, err
	}

	// Count and page queries share the WHERE clause, including the derived
	// status predicate, so totals always match the returned rows.
	var total int
	if err := r.pool.QueryRow(ctx, productCount+" WHERE "+q.Where, q.Args...).Scan(&total); err != nil {
		return nil, 0, db.Translate(err)
	}

	pageSQL := fmt.Sprintf("%s WHERE %s ORDER BY %s %s",
		productSelect, q.Where, q.OrderBy,
		query.NumberFrom("LIMIT ? OFFSET ?", len(q.Args)+1))
	rows, err := r.pool.Query(ctx, pageSQL, append(q.Args, q.Limit, q.Offset)...)
	if err != nil {
		return nil, 0, db.Translate(err)
	}
	defer rows.Close()

	var items []Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, 0, db.Translate(err)
		}
		items = append(items, p)
	}
	return items, total, db.Translate(rows.Err())
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner) (Product, error) {
	var p Product
	var categoryID pgtype.Int8
	var totalQuantity int64
	err := row.Scan(&p.ID, &p.OrganizationID, &categoryID, &p.CategoryName,
		&p.Name, &p.SKU, &p.Barcode, &p.UnitPrice, &totalQuantity,
		&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return Product{}, err
	}
	if categoryID.Valid {
		p.CategoryID = &categoryID.Int64
	}
	p.TotalStockQuantity = int(totalQuantity)
	p.Status = StatusFor(p.TotalStockQuantity)
	return p, nil
}

func (r *repository) Get(ctx context.Context, organizationID, id int64) (Product, error) {
	row := r.pool.QueryRow(ctx, productSelect+" WHERE p.organization_id = $1 AND p.id = $2", organizationID, id)
	p, err := scanProduct(row)
	if err != nil {
		return Product{}, db.Translate(err)
	}
	return p, nil
}

// categoryOwned rejects category references outside the tenant before a
// write persists them.
func (r *repository) categoryOwned(ctx context.Context, organizationID int64, categoryID *int64) error {
	if categoryID == nil {
		return nil
	}
	var owned bool
	err := r.pool.QueryRow(ctx,
		"SELECT EXISTS (SELECT 1 FROM categories WHERE organization_id = $1 AND id = $2)",
		organizationID, *categoryID,
	).Scan(&owned)
	if err != nil {
		return db.Translate(err)
	}
	if !owned {
		return fmt.Errorf("%w: category %d not found for this organization", shared.ErrValidation, *categoryID)
	}
	return nil
}

func (r *repository) Create(ctx context.Context, organizationID int64, form ProductForm) (Product, error) {
	if err := r.categoryOwned(ctx, organizationID, form.CategoryID); err != nil {
		return Product{}, err
	}
	now := time.Now().UTC()
	var id int64
	err := r.pool.QueryRow(ctx,
		`INSERT INTO products (organization_id, category_id, name, sku, barcode, unit_price, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $7)
		 RETURNING id`,
		organizationID, optionalID(form.CategoryID), form.Name, form.SKU, form.Barcode, form.UnitPrice, now,
	).Scan(&id)
	if err != nil {
		return Product{}, db.Translate(err)
	}
	return r.Get(ctx, organizationID, id)
}

func (r *repository) Update(ctx context.Context, organizationID, id int64, form ProductForm) (Product, error) {
	if err := r.categoryOwned(ctx, organizationID, form.CategoryID); err != nil {
		return Product{}, err
	}
	tag, err := r.pool.Exec(ctx,
		`UPDATE products SET category_id = $1, name = $2, sku = $3, barcode = $4, unit_price = $5, updated_at = NOW()
		 WHERE organization_id = $6 AND id = $7`,
		optionalID(form.CategoryID), form.Name, form.SKU, form.Barcode, form.UnitPrice, organizationID, id,
	)
	if err != nil {
		return Product{}, db.Translate(err)
	}
	if tag.RowsAffected() == 0 {
		return Product{}, shared.ErrNotFound
	}
	return r.Get(ctx, organizationID, id)
}

func (r *repository) Delete(ctx context.Context, organizationID, id int64) error {
	var dependents int
	err := r.pool.QueryRow(ctx,
		`SELECT (SELECT COUNT(*) FROM stock_items si WHERE si.product_id = p.id) +
		        (SELECT COUNT(*) FROM order_lines ol WHERE ol.product_id = p.id)
		 FROM products p WHERE p.organization_id = $1 AND p.id = $2`,
		organizationID, id,
	).Scan(&dependents)
	if err != nil {
		return db.Translate(err)
	}
	if dependents > 0 {
		return fmt.Errorf("%w: product still referenced by stock or orders", shared.ErrHasDependents)
	}

	tag, err := r.pool.Exec(ctx,
		"DELETE FROM products WHERE organization_id = $1 AND id = $2",
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

func optionalID(id *int64) pgtype.Int8 {
	if id == nil {
		return pgtype.Int8{}
	}
	return pgtype.Int8{Int64: *id, Valid: true}
}
