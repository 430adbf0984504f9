package dashboard

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// fakeStore serves canned aggregation rows. Setting fail makes every call
// return that error, which is how the fan-out failure path is exercised.
// calls is atomic: the service hits the store from concurrent goroutines.
type fakeStore struct {
	kpi        KPIRow
	trend      []TrendRow
	categories []GroupRow
	customers  []GroupRow
	vendors    []GroupRow
	products   []GroupRow
	statuses   []GroupRow
	grades     []GroupRow
	costs      CostComponentRow
	returns    ReturnRow
	aging      []AgingRow
	history    []OrderHistoryRow

	fail  error
	calls atomic.Int64
}

func (s *fakeStore) KPISummary(ctx context.Context, f FilterSpec) (KPIRow, error) {
	s.calls.Add(1)
	return s.kpi, s.fail
}

func (s *fakeStore) MonthlyTrend(ctx context.Context, f FilterSpec) ([]TrendRow, error) {
	s.calls.Add(1)
	return s.trend, s.fail
}

func (s *fakeStore) CategoryBreakdown(ctx context.Context, f FilterSpec) ([]GroupRow, error) {
	s.calls.Add(1)
	return s.categories, s.fail
}

func (s *fakeStore) TopCustomers(ctx context.Context, f FilterSpec, limit int) ([]GroupRow, error) {
	s.calls.Add(1)
	return clampGroups(s.customers, limit), s.fail
}

func (s *fakeStore) TopVendors(ctx context.Context, f FilterSpec, limit int) ([]GroupRow, error) {
	s.calls.Add(1)
	return clampGroups(s.vendors, limit), s.fail
}

func (s *fakeStore) TopProducts(ctx context.Context, f FilterSpec, limit int) ([]GroupRow, error) {
	s.calls.Add(1)
	return clampGroups(s.products, limit), s.fail
}

func (s *fakeStore) StatusDistribution(ctx context.Context, f FilterSpec) ([]GroupRow, error) {
	s.calls.Add(1)
	return s.statuses, s.fail
}

func (s *fakeStore) GradeDistribution(ctx context.Context, f FilterSpec) ([]GroupRow, error) {
	s.calls.Add(1)
	return s.grades, s.fail
}

func (s *fakeStore) CostComponents(ctx context.Context, f FilterSpec) (CostComponentRow, error) {
	s.calls.Add(1)
	return s.costs, s.fail
}

func (s *fakeStore) ReturnStats(ctx context.Context, f FilterSpec) (ReturnRow, error) {
	s.calls.Add(1)
	return s.returns, s.fail
}

func (s *fakeStore) AgingRows(ctx context.Context, f FilterSpec) ([]AgingRow, error) {
	s.calls.Add(1)
	return s.aging, s.fail
}

func (s *fakeStore) CustomerOrderHistory(ctx context.Context, f FilterSpec) ([]OrderHistoryRow, error) {
	s.calls.Add(1)
	return s.history, s.fail
}

func clampGroups(rows []GroupRow, limit int) []GroupRow {
	if limit > 0 && len(rows) > limit {
		return rows[:limit]
	}
	return rows
}

func newFixtureStore() *fakeStore {
	return &fakeStore{
		kpi: KPIRow{
			Revenue:    dec("10000"),
			Cost:       dec("6000"),
			UnitsSold:  40,
			TotalUnits: 55,
			Orders:     25,
		},
		trend: []TrendRow{
			{Month: "2025-03", Revenue: dec("3000"), Cost: dec("1800"), Units: 12},
			{Month: "2025-04", Revenue: dec("3400"), Cost: dec("2000"), Units: 14},
			{Month: "2025-05", Revenue: dec("3600"), Cost: dec("2200"), Units: 14},
		},
		categories: []GroupRow{
			{Key: "Laptop", Revenue: dec("1500"), Cost: dec("1200"), Units: 10},
			{Key: UnknownLabel, Revenue: dec("500"), Cost: dec("300"), Units: 4},
		},
		customers: []GroupRow{
			{Key: "Acme Corp", Revenue: dec("4000"), Cost: dec("2400"), Units: 16, Orders: 10},
			{Key: "Globex", Revenue: dec("3500"), Cost: dec("2100"), Units: 14, Orders: 9},
		},
		vendors: []GroupRow{
			{Key: "Initech Supply", Revenue: dec("6000"), Cost: dec("3600"), Units: 24, Orders: 15},
		},
		products: []GroupRow{
			{Key: "ThinkPad T480", Revenue: dec("2000"), Cost: dec("1700"), Units: 8, Orders: 8},
			{Key: "Latitude 5400", Revenue: dec("1000"), Cost: dec("400"), Units: 5, Orders: 5},
		},
		statuses: []GroupRow{
			{Key: "Sold", Cost: dec("6000"), Units: 40},
			{Key: "In Stock", Cost: dec("2000"), Units: 15},
		},
		grades: []GroupRow{
			{Key: "A", Cost: dec("5000"), Units: 30},
			{Key: UnknownLabel, Cost: dec("3000"), Units: 25},
		},
		costs: CostComponentRow{
			Purchase:  dec("4000"),
			Parts:     dec("800"),
			Freight:   dec("400"),
			Labor:     dec("500"),
			Packaging: dec("200"),
			Customs:   dec("100"),
		},
		returns: ReturnRow{Units: 2, Value: dec("300"), LostProfit: dec("150")},
		aging: []AgingRow{
			{ReceivedDate: "2025-06-01", Value: dec("250")},
			{ReceivedDate: "2025-03-01", Value: dec("750")},
		},
		history: []OrderHistoryRow{
			{Customer: "Acme Corp", FirstOrder: "2024-01-05", LastOrder: "2025-06-20", Orders: 10, Revenue: dec("4000")},
		},
	}
}

func fixedNowService(store Store) *Service {
	svc := NewService(store)
	svc.now = func() time.Time {
		return time.Date(2025, time.June, 30, 0, 0, 0, 0, time.UTC)
	}
	return svc
}

func TestGetDashboardAssemblesAllSections(t *testing.T) {
	store := newFixtureStore()
	svc := fixedNowService(store)

	dash, err := svc.GetDashboard(context.Background(), FilterSpec{})
	require.NoError(t, err)
	require.Equal(t, int64(12), store.calls.Load())

	require.Equal(t, 10000.0, dash.KPI.TotalRevenue)
	require.Equal(t, 6000.0, dash.KPI.TotalCost)
	require.Equal(t, 4000.0, dash.KPI.TotalProfit)
	require.Equal(t, 40.0, dash.KPI.ProfitMargin)
	require.Equal(t, int64(40), dash.KPI.UnitsSold)
	require.Equal(t, int64(55), dash.KPI.TotalUnits)
	require.Equal(t, int64(25), dash.KPI.TotalOrders)
	require.Equal(t, 400.0, dash.KPI.AverageOrderValue)
	require.Equal(t, 5.0, dash.KPI.ReturnRate)

	require.Len(t, dash.MonthlyTrend, 3)
	require.Equal(t, 1200.0, dash.MonthlyTrend[0].Profit)
	require.NotNil(t, dash.Forecast)
	require.Equal(t, "2025-06", dash.Forecast.Month)
	require.Equal(t, 3900.0, dash.Forecast.Revenue)

	require.Len(t, dash.Categories, 2)
	require.Equal(t, "Laptop", dash.Categories[0].Category)
	require.Equal(t, 20.0, dash.Categories[0].Margin)
	require.Equal(t, UnknownLabel, dash.Categories[1].Category)

	require.Len(t, dash.TopCustomers, 2)
	require.Equal(t, "Acme Corp", dash.TopCustomers[0].Name)
	require.Equal(t, 1600.0, dash.TopCustomers[0].Profit)
	require.Len(t, dash.TopVendors, 1)
	require.Len(t, dash.TopProducts, 2)

	require.Len(t, dash.StatusDistribution, 2)
	require.Equal(t, "Sold", dash.StatusDistribution[0].Label)
	require.Equal(t, 6000.0, dash.StatusDistribution[0].Value)
	require.Len(t, dash.GradeDistribution, 2)

	require.Equal(t, 10000.0, dash.Waterfall.GrossRevenue)
	require.Equal(t, 150.0, dash.Waterfall.ReturnImpact)

	require.Len(t, dash.Aging, 5)
	require.Equal(t, int64(1), dash.Aging[0].Count)
	require.Equal(t, int64(1), dash.Aging[3].Count)

	// 4000 + 3500 of a 10000 total.
	require.Equal(t, 75.0, dash.Concentration.Concentration)
	require.True(t, dash.Concentration.AtRisk)

	// ThinkPad cost ratio 85% crosses the highlight threshold.
	require.Len(t, dash.CostBottlenecks, 2)
	require.Equal(t, "ThinkPad T480", dash.CostBottlenecks[0].Name)
	require.True(t, dash.CostBottlenecks[0].HighCost)
	require.False(t, dash.CostBottlenecks[1].HighCost)

	require.Len(t, dash.ChurnRisks, 1)
	require.Equal(t, "Acme Corp", dash.ChurnRisks[0].Customer)
}

func TestGetDashboardPropagatesStoreError(t *testing.T) {
	store := newFixtureStore()
	store.fail = errors.New("connection refused")
	svc := fixedNowService(store)

	_, err := svc.GetDashboard(context.Background(), FilterSpec{})
	require.Error(t, err)
	require.ErrorContains(t, err, "connection refused")
}

func TestGetDashboardIsIdempotent(t *testing.T) {
	store := newFixtureStore()
	svc := fixedNowService(store)

	first, err := svc.GetDashboard(context.Background(), FilterSpec{})
	require.NoError(t, err)
	second, err := svc.GetDashboard(context.Background(), FilterSpec{})
	require.NoError(t, err)

	require.Equal(t, first, second)
	require.Equal(t, int64(24), store.calls.Load(), "each call recomputes from the store")
}

func TestGetDashboardZeroDataset(t *testing.T) {
	svc := fixedNowService(&fakeStore{})

	dash, err := svc.GetDashboard(context.Background(), FilterSpec{})
	require.NoError(t, err)

	require.Zero(t, dash.KPI.TotalRevenue)
	require.Zero(t, dash.KPI.ProfitMargin)
	require.Zero(t, dash.KPI.AverageOrderValue)
	require.Zero(t, dash.KPI.ReturnRate)
	require.Nil(t, dash.Forecast)
	require.Empty(t, dash.MonthlyTrend)
	require.Empty(t, dash.Aging)
	require.Zero(t, dash.Concentration.Concentration)
	require.False(t, dash.Concentration.AtRisk)
}

func TestGetWaterfall(t *testing.T) {
	store := newFixtureStore()
	svc := fixedNowService(store)

	w, err := svc.GetWaterfall(context.Background(), FilterSpec{})
	require.NoError(t, err)
	require.Equal(t, 10000.0, w.GrossRevenue)
	require.Equal(t, 4000.0, w.PurchaseCost)
	require.InDelta(t, w.GrossProfit-w.ReturnImpact, w.NetProfit, 1e-9)
	require.Equal(t, int64(3), store.calls.Load())
}

func TestGetTrendsReturnsForecast(t *testing.T) {
	svc := fixedNowService(newFixtureStore())

	points, forecast, err := svc.GetTrends(context.Background(), FilterSpec{})
	require.NoError(t, err)
	require.Len(t, points, 3)
	require.NotNil(t, forecast)
	require.Equal(t, "2025-06", forecast.Month)
}

func TestGetTopCustomersIncludesConcentration(t *testing.T) {
	svc := fixedNowService(newFixtureStore())

	customers, conc, err := svc.GetTopCustomers(context.Background(), FilterSpec{})
	require.NoError(t, err)
	require.Len(t, customers, 2)
	require.Equal(t, 2, conc.TopCustomers)
	require.Equal(t, 75.0, conc.Concentration)
	require.True(t, conc.AtRisk)
}

func TestGetTopProductsFlagsBottlenecks(t *testing.T) {
	svc := fixedNowService(newFixtureStore())

	products, bottlenecks, err := svc.GetTopProducts(context.Background(), FilterSpec{})
	require.NoError(t, err)
	require.Len(t, products, 2)
	require.Len(t, bottlenecks, 2)
	require.Equal(t, 85.0, bottlenecks[0].CostRatio)
	require.True(t, bottlenecks[0].HighCost)
}
