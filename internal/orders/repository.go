package orders

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/stocklens/stocklens/internal/platform/db"
	"github.com/stocklens/stocklens/internal/query"
	"github.com/stocklens/stocklens/internal/shared"
)

// Repository persists orders, lines and invoices in PostgreSQL.
type Repository interface {
	List(ctx context.Context, organizationID int64, filters query.Filters, sort *query.Sort, page query.Page) ([]Order, int, error)
	Get(ctx context.Context, organizationID, id int64) (Order, error)
	Create(ctx context.Context, organizationID int64, reference uuid.UUID, form OrderForm, total float64) (Order, error)
	UpdateStatus(ctx context.Context, organizationID, id int64, status string) (Order, error)
	Delete(ctx context.Context, organizationID, id int64) error
	Invoice(ctx context.Context, organizationID, orderID int64) (Invoice, error)
	CreateInvoice(ctx context.Context, organizationID, orderID int64, number uuid.UUID, form InvoiceForm) (Invoice, error)
}

type repository struct {
	pool    *pgxpool.Pool
	builder *query.Builder
}

// NewRepository constructs the order repository. The status filter accepts a
// comma-separated set, OR within the set and AND against everything else.
func NewRepository(pool *pgxpool.Pool) (Repository, error) {
	builder, err := query.NewBuilder(query.RuleSet{
		TenantColumn:  "o.organization_id",
		SearchColumns: []string{"o.reference::text", "o.party_name"},
		Sortable: map[string]string{
			"order_date":   "o.order_date",
			"total_amount": "o.total_amount",
			"status":       "o.status",
			"created_at":   "o.created_at",
		},
		DefaultSort: "order_date",
	}, map[string]query.Rule{
		"status":     query.OneOf("o.status", AllStatuses...),
		"order_type": query.OneOf("o.order_type", TypeSales, TypePurchase),
		"party_kind": query.OneOf("o.party_kind", PartyCustomer, PartySupplier),
	})
	if err != nil {
		return nil, err
	}
	return &repository{pool: pool, builder: builder}, nil
}

const orderColumns = `o.id, o.organization_id, o.reference, o.order_type, o.status,
	o.party_kind, o.party_name, o.order_date, o.total_amount, o.created_at, o.updated_at`

func (r *repository) List(ctx context.Context, organizationID int64, filters query.Filters, sort *query.Sort, page query.Page) ([]Order, int, error) {
	q, err := r.builder.Build(organizationID, filters, sort, page)
	if err != nil {
		return nil, 0, err
	}

	var total int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM orders o WHERE "+q.Where, q.Args...).Scan(&total); err != nil {
		return nil, 0, db.Translate(err)
	}

	pageSQL := fmt.Sprintf("SELECT %s FROM orders o WHERE %s ORDER BY %s %s",
		orderColumns, q.Where, q.OrderBy,
		query.NumberFrom("LIMIT ? OFFSET ?", len(q.Args)+1))
	rows, err := r.pool.Query(ctx, pageSQL, append(q.Args, q.Limit, q.Offset)...)
	if err != nil {
		return nil, 0, db.Translate(err)
	}
	defer rows.Close()

	var items []Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, 0, db.Translate(err)
		}
		items = append(items, o)
	}
	return items, total, db.Translate(rows.Err())
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (Order, error) {
	var o Order
	err := row.Scan(&o.ID, &o.OrganizationID, &o.Reference, &o.OrderType, &o.Status,
		&o.PartyKind, &o.PartyName, &o.OrderDate, &o.TotalAmount, &o.CreatedAt, &o.UpdatedAt)
	return o, err
}

func (r *repository) Get(ctx context.Context, organizationID, id int64) (Order, error) {
	row := r.pool.QueryRow(ctx,
		"SELECT "+orderColumns+" FROM orders o WHERE o.organization_id = $1 AND o.id = $2",
		organizationID, id)
	o, err := scanOrder(row)
	if err != nil {
		return Order{}, db.Translate(err)
	}
	lines, err := r.lines(ctx, o.ID)
	if err != nil {
		return Order{}, err
	}
	o.Lines = lines
	return o, nil
}

func (r *repository) lines(ctx context.Context, orderID int64) ([]OrderLine, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT ol.id, ol.order_id, ol.product_id, COALESCE(p.name, '') AS product_name,
		        ol.quantity, ol.unit_price, ol.quantity * ol.unit_price AS line_amount
		 FROM order_lines ol
		 LEFT JOIN products p ON p.id = ol.product_id
		 WHERE ol.order_id = $1
		 ORDER BY ol.id`,
		orderID)
	if err != nil {
		return nil, db.Translate(err)
	}
	defer rows.Close()

	var lines []OrderLine
	for rows.Next() {
		var l OrderLine
		if err := rows.Scan(&l.ID, &l.OrderID, &l.ProductID, &l.ProductName,
			&l.Quantity, &l.UnitPrice, &l.LineAmount); err != nil {
			return nil, db.Translate(err)
		}
		lines = append(lines, l)
	}
	return lines, db.Translate(rows.Err())
}

func (r *repository) Create(ctx context.Context, organizationID int64, reference uuid.UUID, form OrderForm, total float64) (Order, error) {
	now := time.Now().UTC()
	var id int64
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx,
			`INSERT INTO orders (organization_id, reference, order_type, status, party_kind, party_name, order_date, total_amount, created_at, updated_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $9)
			 RETURNING id`,
			organizationID, reference, form.OrderType, StatusPending,
			form.PartyKind, form.PartyName, form.OrderDate, total, now,
		).Scan(&id)
		if err != nil {
			return db.Translate(err)
		}
		for _, line := range form.Lines {
			// Scoped through products so a foreign product id inserts nothing.
			tag, err := tx.Exec(ctx,
				`INSERT INTO order_lines (order_id, product_id, quantity, unit_price)
				 SELECT $1, p.id, $3, $4
				 FROM products p
				 WHERE p.id = $2 AND p.organization_id = $5`,
				id, line.ProductID, line.Quantity, line.UnitPrice, organizationID,
			)
			if err != nil {
				return db.Translate(err)
			}
			if tag.RowsAffected() == 0 {
				return fmt.Errorf("%w: product %d not found for this organization", shared.ErrValidation, line.ProductID)
			}
		}
		return nil
	})
	if err != nil {
		return Order{}, err
	}
	return r.Get(ctx, organizationID, id)
}

func (r *repository) UpdateStatus(ctx context.Context, organizationID, id int64, status string) (Order, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE orders SET status = $1, updated_at = NOW()
		 WHERE organization_id = $2 AND id = $3`,
		status, organizationID, id,
	)
	if err != nil {
		return Order{}, db.Translate(err)
	}
	if tag.RowsAffected() == 0 {
		return Order{}, shared.ErrNotFound
	}
	return r.Get(ctx, organizationID, id)
}

func (r *repository) Delete(ctx context.Context, organizationID, id int64) error {
	var invoices int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM invoices i
		 JOIN orders o ON o.id = i.order_id
		 WHERE o.organization_id = $1 AND o.id = $2`,
		organizationID, id,
	).Scan(&invoices)
	if err != nil {
		return db.Translate(err)
	}
	if invoices > 0 {
		return fmt.Errorf("%w: order already invoiced", shared.ErrHasDependents)
	}

	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx,
			`DELETE FROM order_lines ol USING orders o
			 WHERE ol.order_id = o.id AND o.organization_id = $1 AND o.id = $2`,
			organizationID, id,
		); err != nil {
			return db.Translate(err)
		}
		tag, err := tx.Exec(ctx,
			"DELETE FROM orders WHERE organization_id = $1 AND id = $2",
			organizationID, id,
		)
		if err != nil {
			return db.Translate(err)
		}
		if tag.RowsAffected() == 0 {
			return shared.ErrNotFound
		}
		return nil
	})
}

func (r *repository) Invoice(ctx context.Context, organizationID, orderID int64) (Invoice, error) {
	var inv Invoice
	err := r.pool.QueryRow(ctx,
		`SELECT i.id, i.order_id, i.number, i.amount, i.issued_at, i.created_at
		 FROM invoices i
		 JOIN orders o ON o.id = i.order_id
		 WHERE o.organization_id = $1 AND o.id = $2`,
		organizationID, orderID,
	).Scan(&inv.ID, &inv.OrderID, &inv.Number, &inv.Amount, &inv.IssuedAt, &inv.CreatedAt)
	if err != nil {
		return Invoice{}, db.Translate(err)
	}
	return inv, nil
}

func (r *repository) CreateInvoice(ctx context.Context, organizationID, orderID int64, number uuid.UUID, form InvoiceForm) (Invoice, error) {
	// Ownership check first so a cross-tenant order id reads as absent, not
	// as a duplicate invoice.
	if _, err := r.Get(ctx, organizationID, orderID); err != nil {
		return Invoice{}, err
	}

	var inv Invoice
	// invoices.order_id carries a unique constraint; a second insert trips
	// 23505 and is translated to a duplicate error.
	err := r.pool.QueryRow(ctx,
		`INSERT INTO invoices (order_id, number, amount, issued_at, created_at)
		 VALUES ($1, $2, $3, $4, NOW())
		 RETURNING id, order_id, number, amount, issued_at, created_at`,
		orderID, number, form.Amount, form.IssuedAt,
	).Scan(&inv.ID, &inv.OrderID, &inv.Number, &inv.Amount, &inv.IssuedAt, &inv.CreatedAt)
	if err != nil {
		return Invoice{}, db.Translate(err)
	}
	return inv, nil
}
