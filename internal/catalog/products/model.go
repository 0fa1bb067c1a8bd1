package products

import "time"

// Stock status thresholds. The status is derived from the summed stock-item
// quantities, never stored, and must match the SQL predicates in the
// repository's filter rules.
const (
	StatusInStock    = "In Stock"
	StatusLowStock   = "Low Stock"
	StatusOutOfStock = "Out of Stock"

	lowStockThreshold = 50
)

// StatusFor derives the display status from a total stock quantity.
func StatusFor(totalQuantity int) string {
	switch {
	case totalQuantity <= 0:
		return StatusOutOfStock
	case totalQuantity <= lowStockThreshold:
		return StatusLowStock
	default:
		return StatusInStock
	}
}

// Product is a sellable item owned by one organization.
type Product struct {
	ID                 int64     `json:"id"`
	OrganizationID     int64     `json:"organization_id"`
	CategoryID         *int64    `json:"category_id,omitempty"`
	CategoryName       string    `json:"category_name,omitempty"`
	Name               string    `json:"name"`
	SKU                string    `json:"sku"`
	Barcode            string    `json:"barcode"`
	UnitPrice          float64   `json:"unit_price"`
	TotalStockQuantity int       `json:"total_stock_quantity"`
	Status             string    `json:"status"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// ProductForm carries create/update input.
type ProductForm struct {
	Name       string  `json:"name" validate:"required,max=160"`
	SKU        string  `json:"sku" validate:"required,max=64"`
	Barcode    string  `json:"barcode" validate:"max=64"`
	UnitPrice  float64 `json:"unit_price" validate:"gte=0"`
	CategoryID *int64  `json:"category_id" validate:"omitempty,gt=0"`
}
