package dashboard

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/stocklens/stocklens/internal/platform/db"
)

// SalesRow is one raw daily aggregate of sales orders.
type SalesRow struct {
	Day     time.Time
	Revenue float64
	Orders  int
}

// ProductSalesRow is one raw per-product aggregate of sales order lines.
// HasProduct is false when the line's product id no longer resolves.
type ProductSalesRow struct {
	ProductID   int64
	ProductName string
	HasProduct  bool
	Quantity    int
	Revenue     float64
}

// CategoryValueRow is the raw stock valuation of one category.
type CategoryValueRow struct {
	Category   string
	TotalValue float64
}

// StatusCountRow is one raw status bucket as observed in data.
type StatusCountRow struct {
	Status string
	Count  int
}

// Repository exposes the raw aggregates the engine shapes into series.
type Repository interface {
	SalesByDay(ctx context.Context, organizationID int64, w Window) ([]SalesRow, error)
	ProductSales(ctx context.Context, organizationID int64, w Window) ([]ProductSalesRow, error)
	InventoryValueByCategory(ctx context.Context, organizationID int64) ([]CategoryValueRow, error)
	StatusCounts(ctx context.Context, organizationID int64, w Window) ([]StatusCountRow, error)
	ProductCountBefore(ctx context.Context, organizationID int64, before time.Time) (int, error)
	UnitsInStock(ctx context.Context, organizationID int64) (int, error)
	ActiveOrganizationIDs(ctx context.Context) ([]int64, error)
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs the dashboard repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

func (r *repository) SalesByDay(ctx context.Context, organizationID int64, w Window) ([]SalesRow, error) {
	// Day buckets are UTC-aligned regardless of the session time zone.
	rows, err := r.pool.Query(ctx,
		`SELECT date_trunc('day', o.order_date AT TIME ZONE 'UTC') AS day,
		        COALESCE(SUM(o.total_amount), 0)::float8 AS revenue,
		        COUNT(*) AS orders
		 FROM orders o
		 WHERE o.organization_id = $1 AND o.order_type = 'SALES'
		   AND o.order_date >= $2 AND o.order_date < $3
		 GROUP BY 1
		 ORDER BY 1`,
		organizationID, w.Start, w.End)
	if err != nil {
		return nil, db.Translate(err)
	}
	defer rows.Close()

	var result []SalesRow
	for rows.Next() {
		var row SalesRow
		if err := rows.Scan(&row.Day, &row.Revenue, &row.Orders); err != nil {
			return nil, db.Translate(err)
		}
		result = append(result, row)
	}
	return result, db.Translate(rows.Err())
}

func (r *repository) ProductSales(ctx context.Context, organizationID int64, w Window) ([]ProductSalesRow, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT ol.product_id, COALESCE(p.name, '') AS product_name, p.id IS NOT NULL AS has_product,
		        COALESCE(SUM(ol.quantity), 0)::bigint AS quantity,
		        COALESCE(SUM(ol.quantity * ol.unit_price), 0)::float8 AS revenue
		 FROM order_lines ol
		 JOIN orders o ON o.id = ol.order_id
		 LEFT JOIN products p ON p.id = ol.product_id AND p.organization_id = $1
		 WHERE o.organization_id = $1 AND o.order_type = 'SALES'
		   AND o.order_date >= $2 AND o.order_date < $3
		 GROUP BY ol.product_id, p.id, p.name`,
		organizationID, w.Start, w.End)
	if err != nil {
		return nil, db.Translate(err)
	}
	defer rows.Close()

	var result []ProductSalesRow
	for rows.Next() {
		var row ProductSalesRow
		var qty int64
		if err := rows.Scan(&row.ProductID, &row.ProductName, &row.HasProduct, &qty, &row.Revenue); err != nil {
			return nil, db.Translate(err)
		}
		row.Quantity = int(qty)
		result = append(result, row)
	}
	return result, db.Translate(rows.Err())
}

func (r *repository) InventoryValueByCategory(ctx context.Context, organizationID int64) ([]CategoryValueRow, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT COALESCE(c.name, 'Uncategorized') AS category,
		        COALESCE(SUM(si.quantity * p.unit_price), 0)::float8 AS total_value
		 FROM stock_items si
		 JOIN products p ON p.id = si.product_id
		 LEFT JOIN categories c ON c.id = p.category_id
		 WHERE p.organization_id = $1
		 GROUP BY c.name
		 ORDER BY total_value DESC, category ASC`,
		organizationID)
	if err != nil {
		return nil, db.Translate(err)
	}
	defer rows.Close()

	var result []CategoryValueRow
	for rows.Next() {
		var row CategoryValueRow
		if err := rows.Scan(&row.Category, &row.TotalValue); err != nil {
			return nil, db.Translate(err)
		}
		result = append(result, row)
	}
	return result, db.Translate(rows.Err())
}

func (r *repository) StatusCounts(ctx context.Context, organizationID int64, w Window) ([]StatusCountRow, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT o.status, COUNT(*)
		 FROM orders o
		 WHERE o.organization_id = $1
		   AND o.order_date >= $2 AND o.order_date < $3
		 GROUP BY o.status`,
		organizationID, w.Start, w.End)
	if err != nil {
		return nil, db.Translate(err)
	}
	defer rows.Close()

	var result []StatusCountRow
	for rows.Next() {
		var row StatusCountRow
		if err := rows.Scan(&row.Status, &row.Count); err != nil {
			return nil, db.Translate(err)
		}
		result = append(result, row)
	}
	return result, db.Translate(rows.Err())
}

func (r *repository) ProductCountBefore(ctx context.Context, organizationID int64, before time.Time) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx,
		"SELECT COUNT(*) FROM products WHERE organization_id = $1 AND created_at < $2",
		organizationID, before,
	).Scan(&count)
	if err != nil {
		return 0, db.Translate(err)
	}
	return count, nil
}

func (r *repository) UnitsInStock(ctx context.Context, organizationID int64) (int, error) {
	var units int64
	err := r.pool.QueryRow(ctx,
		`SELECT COALESCE(SUM(si.quantity), 0)::bigint
		 FROM stock_items si
		 JOIN products p ON p.id = si.product_id
		 WHERE p.organization_id = $1`,
		organizationID,
	).Scan(&units)
	if err != nil {
		return 0, db.Translate(err)
	}
	return int(units), nil
}

func (r *repository) ActiveOrganizationIDs(ctx context.Context) ([]int64, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT DISTINCT organization_id FROM orders ORDER BY organization_id`)
	if err != nil {
		return nil, db.Translate(err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, db.Translate(err)
		}
		ids = append(ids, id)
	}
	return ids, db.Translate(rows.Err())
}
