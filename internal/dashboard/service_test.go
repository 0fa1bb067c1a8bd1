package dashboard

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stocklens/stocklens/internal/shared"
)

type stubRepo struct {
	sales        map[Window][]SalesRow
	productSales map[Window][]ProductSalesRow
	inventory    []CategoryValueRow
	statuses     []StatusCountRow
	productCount map[time.Time]int
	unitsInStock int
}

func (s *stubRepo) SalesByDay(_ context.Context, _ int64, w Window) ([]SalesRow, error) {
	return s.sales[w], nil
}

func (s *stubRepo) ProductSales(_ context.Context, _ int64, w Window) ([]ProductSalesRow, error) {
	return s.productSales[w], nil
}

func (s *stubRepo) InventoryValueByCategory(context.Context, int64) ([]CategoryValueRow, error) {
	return s.inventory, nil
}

func (s *stubRepo) StatusCounts(context.Context, int64, Window) ([]StatusCountRow, error) {
	return s.statuses, nil
}

func (s *stubRepo) ProductCountBefore(_ context.Context, _ int64, before time.Time) (int, error) {
	return s.productCount[before], nil
}

func (s *stubRepo) UnitsInStock(context.Context, int64) (int, error) {
	return s.unitsInStock, nil
}

func (s *stubRepo) ActiveOrganizationIDs(context.Context) ([]int64, error) {
	return []int64{42}, nil
}

var (
	testPrincipal = shared.Principal{OrganizationID: 42, UserID: 7}
	testNow       = time.Date(2026, 3, 31, 12, 0, 0, 0, time.UTC)
)

func newTestService(repo Repository, opts ...Option) *Service {
	opts = append([]Option{WithClock(func() time.Time { return testNow })}, opts...)
	return NewService(slog.Default(), repo, nil, opts...)
}

func TestPercentageChange(t *testing.T) {
	assert.Equal(t, 0.0, PercentageChange(0, 0))
	assert.Equal(t, 100.0, PercentageChange(5, 0))
	assert.Equal(t, -50.0, PercentageChange(50, 100))
	assert.Equal(t, 25.0, PercentageChange(125, 100))
	assert.Equal(t, -100.0, PercentageChange(0, 80))
}

func TestPeriodWindowsAreContiguous(t *testing.T) {
	previous, current := PeriodWindows(testNow, 30)

	assert.Equal(t, previous.End, current.Start)
	assert.True(t, current.Contains(testNow))
	assert.Equal(t, 30*24*time.Hour, current.End.Sub(current.Start))
	assert.Equal(t, current.End.Sub(current.Start), previous.End.Sub(previous.Start))

	boundary := current.Start
	assert.False(t, previous.Contains(boundary))
	assert.True(t, current.Contains(boundary))
}

func TestSalesSeriesBucketsSameDayOrders(t *testing.T) {
	_, current := PeriodWindows(testNow, 30)
	day := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	repo := &stubRepo{
		sales: map[Window][]SalesRow{
			current: {{Day: day, Revenue: 150, Orders: 2}},
		},
	}
	svc := newTestService(repo)

	data, err := svc.Charts(context.Background(), testPrincipal)
	require.NoError(t, err)

	var bucket *SalesPoint
	for i := range data.Sales {
		if data.Sales[i].Day == "2026-03-10" {
			bucket = &data.Sales[i]
		}
	}
	require.NotNil(t, bucket)
	assert.Equal(t, 150.0, bucket.TotalRevenue)
	assert.Equal(t, 2, bucket.OrderCount)

	require.Len(t, data.AverageOrderValue, 1)
	assert.Equal(t, "2026-03", data.AverageOrderValue[0].Month)
	assert.Equal(t, 75.0, data.AverageOrderValue[0].AverageOrderValue)
}

func TestSalesSeriesZeroFillsEveryDay(t *testing.T) {
	svc := newTestService(&stubRepo{})

	data, err := svc.Charts(context.Background(), testPrincipal)
	require.NoError(t, err)

	assert.Len(t, data.Sales, 30)
	for _, point := range data.Sales {
		assert.Zero(t, point.TotalRevenue)
		assert.Zero(t, point.OrderCount)
	}
	for i := 1; i < len(data.Sales); i++ {
		assert.Less(t, data.Sales[i-1].Day, data.Sales[i].Day)
	}
}

func TestTopProductsTieBreaks(t *testing.T) {
	_, current := PeriodWindows(testNow, 30)
	repo := &stubRepo{
		productSales: map[Window][]ProductSalesRow{
			current: {
				{ProductID: 1, ProductName: "Bolt", HasProduct: true, Quantity: 10, Revenue: 100},
				{ProductID: 2, ProductName: "Anchor", HasProduct: true, Quantity: 10, Revenue: 100},
				{ProductID: 3, ProductName: "Washer", HasProduct: true, Quantity: 10, Revenue: 200},
				{ProductID: 4, ProductName: "Nut", HasProduct: true, Quantity: 25, Revenue: 50},
			},
		},
	}
	svc := newTestService(repo)

	data, err := svc.Charts(context.Background(), testPrincipal)
	require.NoError(t, err)

	names := make([]string, 0, len(data.TopProducts.Items))
	for _, item := range data.TopProducts.Items {
		names = append(names, item.ProductName)
	}
	assert.Equal(t, []string{"Nut", "Washer", "Anchor", "Bolt"}, names)
}

func TestTopProductsTruncatesAndCountsDanglingLines(t *testing.T) {
	_, current := PeriodWindows(testNow, 30)
	rows := []ProductSalesRow{
		{ProductID: 99, HasProduct: false, Quantity: 500, Revenue: 5000},
	}
	for i := int64(1); i <= 7; i++ {
		rows = append(rows, ProductSalesRow{
			ProductID: i, ProductName: string(rune('A'+i)), HasProduct: true,
			Quantity: int(i), Revenue: float64(i),
		})
	}
	repo := &stubRepo{productSales: map[Window][]ProductSalesRow{current: rows}}
	svc := newTestService(repo, WithTopN(5))

	data, err := svc.Charts(context.Background(), testPrincipal)
	require.NoError(t, err)

	assert.Len(t, data.TopProducts.Items, 5)
	assert.Equal(t, 1, data.TopProducts.Warnings)
	for _, item := range data.TopProducts.Items {
		assert.NotEmpty(t, item.ProductName)
	}
}

func TestStatusHistogramIncludesZeroCounts(t *testing.T) {
	repo := &stubRepo{statuses: []StatusCountRow{{Status: "PENDING", Count: 3}}}
	svc := newTestService(repo)

	data, err := svc.Charts(context.Background(), testPrincipal)
	require.NoError(t, err)

	require.Len(t, data.StatusHistogram, 5)
	counts := make(map[string]int, 5)
	for _, bar := range data.StatusHistogram {
		counts[bar.Status] = bar.Count
	}
	assert.Equal(t, 3, counts["PENDING"])
	assert.Equal(t, 0, counts["PROCESSING"])
	assert.Equal(t, 0, counts["SHIPPED"])
	assert.Equal(t, 0, counts["DELIVERED"])
	assert.Equal(t, 0, counts["CANCELLED"])
}

func TestSummaryComparesWindows(t *testing.T) {
	previous, current := PeriodWindows(testNow, 30)
	repo := &stubRepo{
		sales: map[Window][]SalesRow{
			current:  {{Day: testNow.AddDate(0, 0, -5), Revenue: 300, Orders: 3}},
			previous: {{Day: testNow.AddDate(0, 0, -35), Revenue: 200, Orders: 2}},
		},
		productSales: map[Window][]ProductSalesRow{
			current:  {{ProductID: 1, ProductName: "Bolt", HasProduct: true, Quantity: 8, Revenue: 300}},
			previous: {{ProductID: 1, ProductName: "Bolt", HasProduct: true, Quantity: 4, Revenue: 200}},
		},
		productCount: map[time.Time]int{current.End: 12, previous.End: 10},
		unitsInStock: 440,
	}
	svc := newTestService(repo)

	summary, err := svc.Summary(context.Background(), testPrincipal)
	require.NoError(t, err)
	require.Len(t, summary.Metrics, 4)

	byTitle := make(map[string]MetricSnapshot, 4)
	for _, m := range summary.Metrics {
		byTitle[m.Title] = m
	}
	assert.Equal(t, 12.0, byTitle["Products"].Value)
	assert.InDelta(t, 20.0, byTitle["Products"].Change, 0.0001)
	assert.Equal(t, 440.0, byTitle["Units in Stock"].Value)
	assert.Zero(t, byTitle["Units in Stock"].Change)
	assert.Equal(t, 8.0, byTitle["Units Sold"].Value)
	assert.InDelta(t, 100.0, byTitle["Units Sold"].Change, 0.0001)
	assert.Equal(t, 300.0, byTitle["Sales Revenue"].Value)
	assert.InDelta(t, 50.0, byTitle["Sales Revenue"].Change, 0.0001)
}

func TestServiceChartsRejectMissingPrincipal(t *testing.T) {
	svc := newTestService(&stubRepo{})

	_, err := svc.Charts(context.Background(), shared.Principal{})
	assert.ErrorIs(t, err, shared.ErrUnauthorized)

	_, err = svc.Summary(context.Background(), shared.Principal{})
	assert.ErrorIs(t, err, shared.ErrUnauthorized)
}
