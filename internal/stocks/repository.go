package stocks

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/stocklens/stocklens/internal/platform/db"
	"github.com/stocklens/stocklens/internal/query"
	"github.com/stocklens/stocklens/internal/shared"
)

// Repository persists stock locations and their items in PostgreSQL.
type Repository interface {
	List(ctx context.Context, organizationID int64, filters query.Filters, sort *query.Sort, page query.Page) ([]Stock, int, error)
	Get(ctx context.Context, organizationID, id int64) (Stock, error)
	Items(ctx context.Context, organizationID, stockID int64) ([]StockItem, error)
	Create(ctx context.Context, organizationID int64, form StockForm) (Stock, error)
	Update(ctx context.Context, organizationID, id int64, form StockForm) (Stock, error)
	Delete(ctx context.Context, organizationID, id int64) error
	SetItem(ctx context.Context, organizationID, stockID int64, form ItemForm) (StockItem, error)
	RemoveItem(ctx context.Context, organizationID, stockID, itemID int64) error
}

type repository struct {
	pool    *pgxpool.Pool
	builder *query.Builder
}

// NewRepository constructs the stock repository with its filter rules.
func NewRepository(pool *pgxpool.Pool) (Repository, error) {
	builder, err := query.NewBuilder(query.RuleSet{
		TenantColumn:  "s.organization_id",
		SearchColumns: []string{"s.name", "s.location"},
		Sortable: map[string]string{
			"name":       "s.name",
			"created_at": "s.created_at",
		},
		DefaultSort: "created_at",
	}, nil)
	if err != nil {
		return nil, err
	}
	return &repository{pool: pool, builder: builder}, nil
}

const stockColumns = `s.id, s.organization_id, s.name, s.location,
	(SELECT COUNT(*) FROM stock_items si WHERE si.stock_id = s.id) AS item_count,
	(SELECT COALESCE(SUM(si.quantity), 0) FROM stock_items si WHERE si.stock_id = s.id)::bigint AS total_quantity,
	s.created_at, s.updated_at`

func (r *repository) List(ctx context.Context, organizationID int64, filters query.Filters, sort *query.Sort, page query.Page) ([]Stock, int, error) {
	q, err := r.builder.Build(organizationID, filters, sort, page)
	if err != nil {
		return nil, 0, err
	}

	var total int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM stocks s WHERE "+q.Where, q.Args...).Scan(&total); err != nil {
		return nil, 0, db.Translate(err)
	}

	pageSQL := fmt.Sprintf("SELECT %s FROM stocks s WHERE %s ORDER BY %s %s",
		stockColumns, q.Where, q.OrderBy,
		query.NumberFrom("LIMIT ? OFFSET ?", len(q.Args)+1))
	rows, err := r.pool.Query(ctx, pageSQL, append(q.Args, q.Limit, q.Offset)...)
	if err != nil {
		return nil, 0, db.Translate(err)
	}
	defer rows.Close()

	var items []Stock
	for rows.Next() {
		var s Stock
		var totalQuantity int64
		if err := rows.Scan(&s.ID, &s.OrganizationID, &s.Name, &s.Location, &s.ItemCount, &totalQuantity, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, 0, db.Translate(err)
		}
		s.TotalQuantity = int(totalQuantity)
		items = append(items, s)
	}
	return items, total, db.Translate(rows.Err())
}

func (r *repository) Get(ctx context.Context, organizationID, id int64) (Stock, error) {
	var s Stock
	var totalQuantity int64
	err := r.pool.QueryRow(ctx,
		"SELECT "+stockColumns+" FROM stocks s WHERE s.organization_id = $1 AND s.id = $2",
		organizationID, id,
	).Scan(&s.ID, &s.OrganizationID, &s.Name, &s.Location, &s.ItemCount, &totalQuantity, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return Stock{}, db.Translate(err)
	}
	s.TotalQuantity = int(totalQuantity)
	return s, nil
}

func (r *repository) Items(ctx context.Context, organizationID, stockID int64) ([]StockItem, error) {
	// The join through stocks keeps the lookup tenant-scoped.
	rows, err := r.pool.Query(ctx,
		`SELECT si.id, si.stock_id, si.product_id, p.name, si.quantity
		 FROM stock_items si
		 JOIN stocks s ON s.id = si.stock_id
		 JOIN products p ON p.id = si.product_id
		 WHERE s.organization_id = $1 AND si.stock_id = $2
		 ORDER BY p.name ASC`,
		organizationID, stockID,
	)
	if err != nil {
		return nil, db.Translate(err)
	}
	defer rows.Close()

	var items []StockItem
	for rows.Next() {
		var item StockItem
		if err := rows.Scan(&item.ID, &item.StockID, &item.ProductID, &item.ProductName, &item.Quantity); err != nil {
			return nil, db.Translate(err)
		}
		items = append(items, item)
	}
	return items, db.Translate(rows.Err())
}

func (r *repository) Create(ctx context.Context, organizationID int64, form StockForm) (Stock, error) {
	now := time.Now().UTC()
	var id int64
	err := r.pool.QueryRow(ctx,
		`INSERT INTO stocks (organization_id, name, location, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $4) RETURNING id`,
		organizationID, form.Name, form.Location, now,
	).Scan(&id)
	if err != nil {
		return Stock{}, db.Translate(err)
	}
	return r.Get(ctx, organizationID, id)
}

func (r *repository) Update(ctx context.Context, organizationID, id int64, form StockForm) (Stock, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE stocks SET name = $1, location = $2, updated_at = NOW()
		 WHERE organization_id = $3 AND id = $4`,
		form.Name, form.Location, organizationID, id,
	)
	if err != nil {
		return Stock{}, db.Translate(err)
	}
	if tag.RowsAffected() == 0 {
		return Stock{}, shared.ErrNotFound
	}
	return r.Get(ctx, organizationID, id)
}

func (r *repository) Delete(ctx context.Context, organizationID, id int64) error {
	var items int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM stock_items si
		 JOIN stocks s ON s.id = si.stock_id
		 WHERE s.organization_id = $1 AND s.id = $2`,
		organizationID, id,
	).Scan(&items)
	if err != nil {
		return db.Translate(err)
	}
	if items > 0 {
		return fmt.Errorf("%w: stock still holds %d items", shared.ErrHasDependents, items)
	}

	tag, err := r.pool.Exec(ctx,
		"DELETE FROM stocks WHERE organization_id = $1 AND id = $2",
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

func (r *repository) SetItem(ctx context.Context, organizationID, stockID int64, form ItemForm) (StockItem, error) {
	// Ownership check before the upsert; stock_items has no tenant column.
	if _, err := r.Get(ctx, organizationID, stockID); err != nil {
		return StockItem{}, err
	}

	// Scoped through products so a foreign product id inserts nothing.
	var item StockItem
	err := r.pool.QueryRow(ctx,
		`INSERT INTO stock_items (stock_id, product_id, quantity)
		 SELECT $1, p.id, $3
		 FROM products p
		 WHERE p.id = $2 AND p.organization_id = $4
		 ON CONFLICT (stock_id, product_id) DO UPDATE SET quantity = EXCLUDED.quantity
		 RETURNING id, stock_id, product_id, quantity`,
		stockID, form.ProductID, form.Quantity, organizationID,
	).Scan(&item.ID, &item.StockID, &item.ProductID, &item.Quantity)
	if errors.Is(err, pgx.ErrNoRows) {
		return StockItem{}, fmt.Errorf("%w: product %d not found for this organization", shared.ErrValidation, form.ProductID)
	}
	if err != nil {
		return StockItem{}, db.Translate(err)
	}
	return item, nil
}

func (r *repository) RemoveItem(ctx context.Context, organizationID, stockID, itemID int64) error {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM stock_items si
		 USING stocks s
		 WHERE s.id = si.stock_id AND s.organization_id = $1 AND si.stock_id = $2 AND si.id = $3`,
		organizationID, stockID, itemID,
	)
	if err != nil {
		return db.Translate(err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}
