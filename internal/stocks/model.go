package stocks

import "time"

// Stock is a named stock location owned by one organization.
type Stock struct {
	ID             int64     `json:"id"`
	OrganizationID int64     `json:"organization_id"`
	Name           string    `json:"name"`
	Location       string    `json:"location"`
	ItemCount      int       `json:"item_count"`
	TotalQuantity  int       `json:"total_quantity"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// StockItem holds the quantity of one product at one stock location.
type StockItem struct {
	ID          int64  `json:"id"`
	StockID     int64  `json:"stock_id"`
	ProductID   int64  `json:"product_id"`
	ProductName string `json:"product_name"`
	Quantity    int    `json:"quantity"`
}

// StockForm carries create/update input for a stock location.
type StockForm struct {
	Name     string `json:"name" validate:"required,max=120"`
	Location string `json:"location" validate:"max=240"`
}

// ItemForm sets the quantity of a product at a stock location.
type ItemForm struct {
	ProductID int64 `json:"product_id" validate:"required,gt=0"`
	Quantity  int   `json:"quantity" validate:"gte=0"`
}
