package dashboard

import "github.com/stocklens/stocklens/internal/orders"

// orderStatuses fixes the histogram enumeration; charts never derive it
// from observed data.
var orderStatuses = orders.AllStatuses

// SalesPoint is one zero-filled daily bucket of the sales trend.
type SalesPoint struct {
	Day          string  `json:"day"`
	TotalRevenue float64 `json:"total_revenue"`
	OrderCount   int     `json:"order_count"`
}

// AOVPoint is one monthly average-order-value bucket.
type AOVPoint struct {
	Month             string  `json:"month"`
	AverageOrderValue float64 `json:"average_order_value"`
}

// TopProduct is one ranked row of the top-products chart.
type TopProduct struct {
	ProductName      string  `json:"product_name"`
	QuantitySold     int     `json:"quantity_sold"`
	RevenueGenerated float64 `json:"revenue_generated"`
}

// TopProductsSeries carries the ranked rows plus the count of order lines
// skipped because their product no longer resolves.
type TopProductsSeries struct {
	Items    []TopProduct `json:"items"`
	Warnings int          `json:"warnings"`
}

// CategoryValue is the stock valuation of one category.
type CategoryValue struct {
	Category   string  `json:"category"`
	TotalValue float64 `json:"total_value"`
}

// StatusCount is one histogram bar; every known status appears exactly once.
type StatusCount struct {
	Status string `json:"status"`
	Count  int    `json:"count"`
}

// ChartData aggregates every dashboard series for one tenant and window.
type ChartData struct {
	Window            Window            `json:"window"`
	Sales             []SalesPoint      `json:"sales"`
	AverageOrderValue []AOVPoint        `json:"average_order_value"`
	TopProducts       TopProductsSeries `json:"top_products"`
	InventoryValue    []CategoryValue   `json:"inventory_value"`
	StatusHistogram   []StatusCount     `json:"status_histogram"`
}

// Summary carries the dashboard cards for one tenant and window.
type Summary struct {
	Window  Window           `json:"window"`
	Metrics []MetricSnapshot `json:"metrics"`
}
