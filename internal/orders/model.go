package orders

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/stocklens/stocklens/internal/shared"
)

// Order types.
const (
	TypeSales    = "SALES"
	TypePurchase = "PURCHASE"
)

// Order lifecycle statuses.
const (
	StatusPending    = "PENDING"
	StatusProcessing = "PROCESSING"
	StatusShipped    = "SHIPPED"
	StatusDelivered  = "DELIVERED"
	StatusCancelled  = "CANCELLED"
)

// AllStatuses enumerates every lifecycle status in display order. Charts and
// filter options iterate this, never the statuses observed in data.
var AllStatuses = []string{
	StatusPending,
	StatusProcessing,
	StatusShipped,
	StatusDelivered,
	StatusCancelled,
}

// Counterparty kinds.
const (
	PartyCustomer = "CUSTOMER"
	PartySupplier = "SUPPLIER"
)

// ValidateTransition checks a status change against the lifecycle policy.
// DELIVERED and CANCELLED are terminal unless the caller holds an override.
func ValidateTransition(current, target string, hasOverride bool) error {
	if current == target {
		return nil
	}
	switch current {
	case StatusPending:
		if target == StatusProcessing || target == StatusCancelled {
			return nil
		}
	case StatusProcessing:
		if target == StatusShipped || target == StatusCancelled {
			return nil
		}
	case StatusShipped:
		if target == StatusDelivered || target == StatusCancelled {
			return nil
		}
	case StatusDelivered, StatusCancelled:
		if hasOverride {
			return nil
		}
	}
	return fmt.Errorf("%w: cannot move order from %s to %s", shared.ErrValidation, current, target)
}

// Order is a tenant-owned sales or purchase order.
type Order struct {
	ID             int64       `json:"id"`
	OrganizationID int64       `json:"organization_id"`
	Reference      uuid.UUID   `json:"reference"`
	OrderType      string      `json:"order_type"`
	Status         string      `json:"status"`
	PartyKind      string      `json:"party_kind"`
	PartyName      string      `json:"party_name"`
	OrderDate      time.Time   `json:"order_date"`
	TotalAmount    float64     `json:"total_amount"`
	Lines          []OrderLine `json:"lines,omitempty"`
	CreatedAt      time.Time   `json:"created_at"`
	UpdatedAt      time.Time   `json:"updated_at"`
}

// OrderLine records one product position on an order.
type OrderLine struct {
	ID          int64   `json:"id"`
	OrderID     int64   `json:"order_id"`
	ProductID   int64   `json:"product_id"`
	ProductName string  `json:"product_name"`
	Quantity    int     `json:"quantity"`
	UnitPrice   float64 `json:"unit_price"`
	LineAmount  float64 `json:"line_amount"`
}

// Invoice is issued at most once per order.
type Invoice struct {
	ID        int64     `json:"id"`
	OrderID   int64     `json:"order_id"`
	Number    uuid.UUID `json:"number"`
	Amount    float64   `json:"amount"`
	IssuedAt  time.Time `json:"issued_at"`
	CreatedAt time.Time `json:"created_at"`
}

// OrderForm carries create input for an order and its lines.
type OrderForm struct {
	OrderType string     `json:"order_type" validate:"required,oneof=SALES PURCHASE"`
	PartyKind string     `json:"party_kind" validate:"required,oneof=CUSTOMER SUPPLIER"`
	PartyName string     `json:"party_name" validate:"required,max=240"`
	OrderDate time.Time  `json:"order_date" validate:"required"`
	Lines     []LineForm `json:"lines" validate:"required,min=1,dive"`
}

// LineForm is one requested order line.
type LineForm struct {
	ProductID int64   `json:"product_id" validate:"required,gt=0"`
	Quantity  int     `json:"quantity" validate:"required,gt=0"`
	UnitPrice float64 `json:"unit_price" validate:"gte=0"`
}

// StatusForm requests a lifecycle transition.
type StatusForm struct {
	Status   string `json:"status" validate:"required,oneof=PENDING PROCESSING SHIPPED DELIVERED CANCELLED"`
	Override bool   `json:"override"`
}

// InvoiceForm carries invoice issue input.
type InvoiceForm struct {
	Amount   float64   `json:"amount" validate:"gte=0"`
	IssuedAt time.Time `json:"issued_at" validate:"required"`
}
