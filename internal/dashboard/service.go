package dashboard

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

// Store is the aggregation surface the service fans out over. *Repository
// satisfies it; tests substitute an in-memory fake.
type Store interface {
	KPISummary(ctx context.Context, f FilterSpec) (KPIRow, error)
	MonthlyTrend(ctx context.Context, f FilterSpec) ([]TrendRow, error)
	CategoryBreakdown(ctx context.Context, f FilterSpec) ([]GroupRow, error)
	TopCustomers(ctx context.Context, f FilterSpec, limit int) ([]GroupRow, error)
	TopVendors(ctx context.Context, f FilterSpec, limit int) ([]GroupRow, error)
	TopProducts(ctx context.Context, f FilterSpec, limit int) ([]GroupRow, error)
	StatusDistribution(ctx context.Context, f FilterSpec) ([]GroupRow, error)
	GradeDistribution(ctx context.Context, f FilterSpec) ([]GroupRow, error)
	CostComponents(ctx context.Context, f FilterSpec) (CostComponentRow, error)
	ReturnStats(ctx context.Context, f FilterSpec) (ReturnRow, error)
	AgingRows(ctx context.Context, f FilterSpec) ([]AgingRow, error)
	CustomerOrderHistory(ctx context.Context, f FilterSpec) ([]OrderHistoryRow, error)
}

// Top-N caps per view. They bound response size and rendering cost, not
// correctness.
const (
	topCustomersCap   = 10
	topVendorsCap     = 10
	topProductsCap    = 8
	concentrationTopN = 5
	costBottleneckCap = 50
	churnCap          = 20
)

// Service assembles the dashboard document. Aggregations run concurrently and
// the request fails as a whole on the first error; results are recomputed from
// the store on every call.
type Service struct {
	store Store
	now   func() time.Time
}

// NewService wires the aggregation store.
func NewService(store Store) *Service {
	return &Service{store: store, now: func() time.Time { return time.Now().UTC() }}
}

type dashboardData struct {
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
}

func (s *Service) fetch(ctx context.Context, f FilterSpec) (dashboardData, error) {
	var data dashboardData
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		row, err := s.store.KPISummary(ctx, f)
		data.kpi = row
		return err
	})
	g.Go(func() error {
		rows, err := s.store.MonthlyTrend(ctx, f)
		data.trend = rows
		return err
	})
	g.Go(func() error {
		rows, err := s.store.CategoryBreakdown(ctx, f)
		data.categories = rows
		return err
	})
	g.Go(func() error {
		rows, err := s.store.TopCustomers(ctx, f, topCustomersCap)
		data.customers = rows
		return err
	})
	g.Go(func() error {
		rows, err := s.store.TopVendors(ctx, f, topVendorsCap)
		data.vendors = rows
		return err
	})
	g.Go(func() error {
		rows, err := s.store.TopProducts(ctx, f, costBottleneckCap)
		data.products = rows
		return err
	})
	g.Go(func() error {
		rows, err := s.store.StatusDistribution(ctx, f)
		data.statuses = rows
		return err
	})
	g.Go(func() error {
		rows, err := s.store.GradeDistribution(ctx, f)
		data.grades = rows
		return err
	})
	g.Go(func() error {
		row, err := s.store.CostComponents(ctx, f)
		data.costs = row
		return err
	})
	g.Go(func() error {
		row, err := s.store.ReturnStats(ctx, f)
		data.returns = row
		return err
	})
	g.Go(func() error {
		rows, err := s.store.AgingRows(ctx, f)
		data.aging = rows
		return err
	})
	g.Go(func() error {
		rows, err := s.store.CustomerOrderHistory(ctx, f)
		data.history = rows
		return err
	})

	if err := g.Wait(); err != nil {
		return dashboardData{}, err
	}
	return data, nil
}

// GetDashboard runs every aggregation for the filter scope and derives the
// full dashboard document.
func (s *Service) GetDashboard(ctx context.Context, f FilterSpec) (Dashboard, error) {
	data, err := s.fetch(ctx, f)
	if err != nil {
		return Dashboard{}, err
	}

	now := s.now()

	dash := Dashboard{
		KPI:                buildKPI(data.kpi, data.returns),
		MonthlyTrend:       toTrendPoints(data.trend),
		Forecast:           ForecastTrend(data.trend),
		Categories:         toCategoryBreakdowns(data.categories),
		TopCustomers:       toTopPerformers(data.customers, topCustomersCap),
		TopVendors:         toTopPerformers(data.vendors, topVendorsCap),
		TopProducts:        toTopPerformers(data.products, topProductsCap),
		StatusDistribution: toDistribution(data.statuses),
		GradeDistribution:  toDistribution(data.grades),
		Waterfall:          BuildWaterfall(data.kpi.Revenue, data.costs, data.returns.LostProfit),
		Aging:              ComputeAgingBuckets(data.aging, now),
		CostBottlenecks:    CostBottlenecks(data.products),
		ChurnRisks:         ComputeChurnRisk(data.history, now, churnCap),
	}

	top := data.customers
	if len(top) > concentrationTopN {
		top = top[:concentrationTopN]
	}
	dash.Concentration = CustomerConcentration(top, data.kpi.Revenue)

	return dash, nil
}

// GetWaterfall computes only the profitability waterfall for the scope.
func (s *Service) GetWaterfall(ctx context.Context, f FilterSpec) (Waterfall, error) {
	var kpi KPIRow
	var costs CostComponentRow
	var returns ReturnRow

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		row, err := s.store.KPISummary(ctx, f)
		kpi = row
		return err
	})
	g.Go(func() error {
		row, err := s.store.CostComponents(ctx, f)
		costs = row
		return err
	})
	g.Go(func() error {
		row, err := s.store.ReturnStats(ctx, f)
		returns = row
		return err
	})
	if err := g.Wait(); err != nil {
		return Waterfall{}, err
	}
	return BuildWaterfall(kpi.Revenue, costs, returns.LostProfit), nil
}

// GetAging computes only the aging buckets for the scope.
func (s *Service) GetAging(ctx context.Context, f FilterSpec) ([]AgingBucket, error) {
	rows, err := s.store.AgingRows(ctx, f)
	if err != nil {
		return nil, err
	}
	return ComputeAgingBuckets(rows, s.now()), nil
}

// GetTrends returns the monthly trend with the one-period forecast.
func (s *Service) GetTrends(ctx context.Context, f FilterSpec) ([]TrendPoint, *ForecastPoint, error) {
	rows, err := s.store.MonthlyTrend(ctx, f)
	if err != nil {
		return nil, nil, err
	}
	return toTrendPoints(rows), ForecastTrend(rows), nil
}

// GetTopCustomers returns the customer ranking plus concentration.
func (s *Service) GetTopCustomers(ctx context.Context, f FilterSpec) ([]TopPerformer, Concentration, error) {
	var customers []GroupRow
	var kpi KPIRow

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		rows, err := s.store.TopCustomers(ctx, f, topCustomersCap)
		customers = rows
		return err
	})
	g.Go(func() error {
		row, err := s.store.KPISummary(ctx, f)
		kpi = row
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, Concentration{}, err
	}

	top := customers
	if len(top) > concentrationTopN {
		top = top[:concentrationTopN]
	}
	return toTopPerformers(customers, topCustomersCap), CustomerConcentration(top, kpi.Revenue), nil
}

// GetTopVendors returns the vendor ranking.
func (s *Service) GetTopVendors(ctx context.Context, f FilterSpec) ([]TopPerformer, error) {
	rows, err := s.store.TopVendors(ctx, f, topVendorsCap)
	if err != nil {
		return nil, err
	}
	return toTopPerformers(rows, topVendorsCap), nil
}

// GetTopProducts returns the product ranking with cost-bottleneck flags.
func (s *Service) GetTopProducts(ctx context.Context, f FilterSpec) ([]TopPerformer, []CostRatio, error) {
	rows, err := s.store.TopProducts(ctx, f, costBottleneckCap)
	if err != nil {
		return nil, nil, err
	}
	return toTopPerformers(rows, topProductsCap), CostBottlenecks(rows), nil
}

func buildKPI(kpi KPIRow, returns ReturnRow) KPISummary {
	profit := kpi.Revenue.Sub(kpi.Cost)
	aov := decimal.Zero
	if kpi.Orders > 0 {
		aov = kpi.Revenue.DivRound(decimal.NewFromInt(kpi.Orders), 8)
	}
	return KPISummary{
		TotalRevenue:      money(kpi.Revenue),
		TotalCost:         money(kpi.Cost),
		TotalProfit:       money(profit),
		ProfitMargin:      pct(ProfitMargin(profit, kpi.Revenue)),
		UnitsSold:         kpi.UnitsSold,
		TotalUnits:        kpi.TotalUnits,
		TotalOrders:       kpi.Orders,
		AverageOrderValue: money(aov),
		ReturnRate:        pct(ReturnRate(returns.Units, kpi.UnitsSold)),
	}
}

func toTrendPoints(rows []TrendRow) []TrendPoint {
	points := make([]TrendPoint, 0, len(rows))
	for _, r := range rows {
		points = append(points, TrendPoint{
			Month:   r.Month,
			Revenue: money(r.Revenue),
			Cost:    money(r.Cost),
			Profit:  money(r.Revenue.Sub(r.Cost)),
			Units:   r.Units,
		})
	}
	return points
}

func toCategoryBreakdowns(rows []GroupRow) []CategoryBreakdown {
	out := make([]CategoryBreakdown, 0, len(rows))
	for _, r := range rows {
		profit := r.Revenue.Sub(r.Cost)
		out = append(out, CategoryBreakdown{
			Category: r.Key,
			Revenue:  money(r.Revenue),
			Profit:   money(profit),
			Units:    r.Units,
			Margin:   pct(ProfitMargin(profit, r.Revenue)),
		})
	}
	return out
}

func toTopPerformers(rows []GroupRow, limit int) []TopPerformer {
	if limit > 0 && len(rows) > limit {
		rows = rows[:limit]
	}
	out := make([]TopPerformer, 0, len(rows))
	for _, r := range rows {
		out = append(out, TopPerformer{
			Name:    r.Key,
			Revenue: money(r.Revenue),
			Profit:  money(r.Revenue.Sub(r.Cost)),
			Units:   r.Units,
			Orders:  r.Orders,
		})
	}
	return out
}

func toDistribution(rows []GroupRow) []DistributionSlice {
	out := make([]DistributionSlice, 0, len(rows))
	for _, r := range rows {
		out = append(out, DistributionSlice{
			Label: r.Key,
			Units: r.Units,
			Value: money(r.Cost),
		})
	}
	return out
}
