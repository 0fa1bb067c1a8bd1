package dashboard

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/stocklens/stocklens/internal/shared"
)

// Default engine knobs, overridable through Config.
const (
	DefaultWindowDays = 30
	DefaultTopN       = 5
)

// Service is the aggregation engine: it shapes raw tenant-scoped aggregates
// into the dashboard chart series and summary cards.
type Service struct {
	logger     *slog.Logger
	repo       Repository
	cache      *Cache
	windowDays int
	topN       int
	now        func() time.Time
}

// Option tweaks engine construction.
type Option func(*Service)

// WithWindowDays overrides the rolling window length.
func WithWindowDays(days int) Option {
	return func(s *Service) {
		if days > 0 {
			s.windowDays = days
		}
	}
}

// WithTopN overrides the top-products truncation.
func WithTopN(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.topN = n
		}
	}
}

// WithClock overrides the time source. Test hook.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// NewService constructs the engine.
func NewService(logger *slog.Logger, repo Repository, cache *Cache, opts ...Option) *Service {
	s := &Service{
		logger:     logger,
		repo:       repo,
		cache:      cache,
		windowDays: DefaultWindowDays,
		topN:       DefaultTopN,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Charts computes every chart series for the principal's organization over
// the rolling window. The five series are independent, so they are built
// concurrently; the whole payload is cached per tenant and window.
func (s *Service) Charts(ctx context.Context, p shared.Principal) (ChartData, error) {
	if !p.Valid() {
		return ChartData{}, shared.ErrUnauthorized
	}
	_, current := PeriodWindows(s.now(), s.windowDays)

	key, err := s.cache.BuildKey(ctx, keyCharts(p.OrganizationID, current))
	if err != nil {
		return ChartData{}, err
	}

	var data ChartData
	err = s.cache.FetchJSON(ctx, key, &data, func(ctx context.Context) (interface{}, error) {
		return s.buildCharts(ctx, p.OrganizationID, current)
	})
	if err != nil {
		return ChartData{}, err
	}
	return data, nil
}

func (s *Service) buildCharts(ctx context.Context, organizationID int64, current Window) (ChartData, error) {
	data := ChartData{Window: current}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		rows, err := s.repo.SalesByDay(ctx, organizationID, current)
		if err != nil {
			return err
		}
		data.Sales = zeroFilledSales(rows, current)
		data.AverageOrderValue = monthlyAOV(rows)
		return nil
	})
	g.Go(func() error {
		rows, err := s.repo.ProductSales(ctx, organizationID, current)
		if err != nil {
			return err
		}
		data.TopProducts = s.rankProducts(organizationID, rows)
		return nil
	})
	g.Go(func() error {
		rows, err := s.repo.InventoryValueByCategory(ctx, organizationID)
		if err != nil {
			return err
		}
		values := make([]CategoryValue, 0, len(rows))
		for _, row := range rows {
			values = append(values, CategoryValue{Category: row.Category, TotalValue: row.TotalValue})
		}
		data.InventoryValue = values
		return nil
	})
	g.Go(func() error {
		rows, err := s.repo.StatusCounts(ctx, organizationID, current)
		if err != nil {
			return err
		}
		data.StatusHistogram = fullHistogram(rows)
		return nil
	})
	if err := g.Wait(); err != nil {
		return ChartData{}, err
	}
	return data, nil
}

// zeroFilledSales emits one bucket per calendar day in the window so trend
// lines stay continuous, even when no orders landed on a day.
func zeroFilledSales(rows []SalesRow, w Window) []SalesPoint {
	lookup := make(map[string]SalesRow, len(rows))
	for _, row := range rows {
		lookup[dayOf(row.Day).Format("2006-01-02")] = row
	}
	days := enumerateDays(w)
	series := make([]SalesPoint, 0, len(days))
	for _, day := range days {
		key := day.Format("2006-01-02")
		point := SalesPoint{Day: key}
		if row, ok := lookup[key]; ok {
			point.TotalRevenue = row.Revenue
			point.OrderCount = row.Orders
		}
		series = append(series, point)
	}
	return series
}

// monthlyAOV folds the daily sales rows into calendar months and derives
// average order value per month, guarding the zero-order case.
func monthlyAOV(rows []SalesRow) []AOVPoint {
	type bucket struct {
		revenue float64
		orders  int
	}
	buckets := make(map[string]*bucket)
	for _, row := range rows {
		key := monthOf(row.Day)
		b, ok := buckets[key]
		if !ok {
			b = &bucket{}
			buckets[key] = b
		}
		b.revenue += row.Revenue
		b.orders += row.Orders
	}

	months := make([]string, 0, len(buckets))
	for key := range buckets {
		months = append(months, key)
	}
	sort.Strings(months)

	series := make([]AOVPoint, 0, len(months))
	for _, month := range months {
		b := buckets[month]
		point := AOVPoint{Month: month}
		if b.orders > 0 {
			point.AverageOrderValue = b.revenue / float64(b.orders)
		}
		series = append(series, point)
	}
	return series
}

// rankProducts orders product aggregates by quantity sold, breaking ties on
// revenue then name so repeated calls rank identically, and truncates to the
// configured top N. Lines whose product no longer resolves are skipped and
// counted as warnings.
func (s *Service) rankProducts(organizationID int64, rows []ProductSalesRow) TopProductsSeries {
	series := TopProductsSeries{Items: []TopProduct{}}
	for _, row := range rows {
		if !row.HasProduct {
			series.Warnings++
			continue
		}
		series.Items = append(series.Items, TopProduct{
			ProductName:      row.ProductName,
			QuantitySold:     row.Quantity,
			RevenueGenerated: row.Revenue,
		})
	}
	if series.Warnings > 0 {
		s.logger.Warn("skipped order lines with dangling product references",
			slog.Int("count", series.Warnings), slog.Int64("org", organizationID))
	}

	sort.Slice(series.Items, func(i, j int) bool {
		a, b := series.Items[i], series.Items[j]
		if a.QuantitySold != b.QuantitySold {
			return a.QuantitySold > b.QuantitySold
		}
		if a.RevenueGenerated != b.RevenueGenerated {
			return a.RevenueGenerated > b.RevenueGenerated
		}
		return a.ProductName < b.ProductName
	})
	if len(series.Items) > s.topN {
		series.Items = series.Items[:s.topN]
	}
	return series
}

// fullHistogram emits one entry per known status in a fixed order, zero
// counts included, so chart legends stay stable across requests.
func fullHistogram(rows []StatusCountRow) []StatusCount {
	observed := make(map[string]int, len(rows))
	for _, row := range rows {
		observed[row.Status] = row.Count
	}
	histogram := make([]StatusCount, 0, len(orderStatuses))
	for _, status := range orderStatuses {
		histogram = append(histogram, StatusCount{Status: status, Count: observed[status]})
	}
	return histogram
}

// Summary computes the dashboard cards, comparing the current window against
// the immediately preceding one.
func (s *Service) Summary(ctx context.Context, p shared.Principal) (Summary, error) {
	if !p.Valid() {
		return Summary{}, shared.ErrUnauthorized
	}
	previous, current := PeriodWindows(s.now(), s.windowDays)

	key, err := s.cache.BuildKey(ctx, keySummary(p.OrganizationID, current))
	if err != nil {
		return Summary{}, err
	}

	var summary Summary
	err = s.cache.FetchJSON(ctx, key, &summary, func(ctx context.Context) (interface{}, error) {
		return s.buildSummary(ctx, p.OrganizationID, previous, current)
	})
	if err != nil {
		return Summary{}, err
	}
	return summary, nil
}

func (s *Service) buildSummary(ctx context.Context, organizationID int64, previous, current Window) (Summary, error) {
	var (
		curSales, prevSales       []SalesRow
		curProducts, prevProducts []ProductSalesRow
		productCount, prevCount   int
		unitsInStock              int
	)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		curSales, err = s.repo.SalesByDay(ctx, organizationID, current)
		return err
	})
	g.Go(func() (err error) {
		prevSales, err = s.repo.SalesByDay(ctx, organizationID, previous)
		return err
	})
	g.Go(func() (err error) {
		curProducts, err = s.repo.ProductSales(ctx, organizationID, current)
		return err
	})
	g.Go(func() (err error) {
		prevProducts, err = s.repo.ProductSales(ctx, organizationID, previous)
		return err
	})
	g.Go(func() (err error) {
		productCount, err = s.repo.ProductCountBefore(ctx, organizationID, current.End)
		return err
	})
	g.Go(func() (err error) {
		prevCount, err = s.repo.ProductCountBefore(ctx, organizationID, previous.End)
		return err
	})
	g.Go(func() (err error) {
		unitsInStock, err = s.repo.UnitsInStock(ctx, organizationID)
		return err
	})
	if err := g.Wait(); err != nil {
		return Summary{}, err
	}

	curRevenue := sumRevenue(curSales)
	prevRevenue := sumRevenue(prevSales)
	curUnits := sumUnits(curProducts)
	prevUnits := sumUnits(prevProducts)

	return Summary{
		Window: current,
		Metrics: []MetricSnapshot{
			{
				Title:  "Products",
				Value:  float64(productCount),
				Change: PercentageChange(float64(productCount), float64(prevCount)),
			},
			{
				// Point-in-time stock level has no previous-period reading.
				Title: "Units in Stock",
				Value: float64(unitsInStock),
			},
			{
				Title:  "Units Sold",
				Value:  float64(curUnits),
				Change: PercentageChange(float64(curUnits), float64(prevUnits)),
			},
			{
				Title:  "Sales Revenue",
				Value:  curRevenue,
				Change: PercentageChange(curRevenue, prevRevenue),
			},
		},
	}, nil
}

// Warm populates the cache for one organization without a user principal.
// Only the background warmup job calls this; request paths go through
// Charts and Summary.
func (s *Service) Warm(ctx context.Context, organizationID int64) error {
	if organizationID <= 0 {
		return shared.ErrUnauthorized
	}
	previous, current := PeriodWindows(s.now(), s.windowDays)

	chartKey, err := s.cache.BuildKey(ctx, keyCharts(organizationID, current))
	if err != nil {
		return err
	}
	var data ChartData
	if err := s.cache.FetchJSON(ctx, chartKey, &data, func(ctx context.Context) (interface{}, error) {
		return s.buildCharts(ctx, organizationID, current)
	}); err != nil {
		return err
	}

	summaryKey, err := s.cache.BuildKey(ctx, keySummary(organizationID, current))
	if err != nil {
		return err
	}
	var summary Summary
	return s.cache.FetchJSON(ctx, summaryKey, &summary, func(ctx context.Context) (interface{}, error) {
		return s.buildSummary(ctx, organizationID, previous, current)
	})
}

func sumRevenue(rows []SalesRow) float64 {
	var total float64
	for _, row := range rows {
		total += row.Revenue
	}
	return total
}

func sumUnits(rows []ProductSalesRow) int {
	var total int
	for _, row := range rows {
		total += row.Quantity
	}
	return total
}
