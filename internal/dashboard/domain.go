// Package dashboard implements the aggregation and derived-metric core of the
// executive dashboard: a filter builder, grouped aggregations over the
// inventory relation, and pure post-processing into the shapes the API serves.
package dashboard

import "github.com/shopspring/decimal"

// Raw aggregation rows produced by the repository. Money columns are scanned
// as decimals so sums over large row counts do not accumulate float error.

// KPIRow carries the ungrouped totals for the KPI card.
type KPIRow struct {
	Revenue    decimal.Decimal
	Cost       decimal.Decimal
	UnitsSold  int64
	TotalUnits int64
	Orders     int64
}

// TrendRow is one month bucket of the revenue/cost trend.
type TrendRow struct {
	Month   string
	Revenue decimal.Decimal
	Cost    decimal.Decimal
	Units   int64
}

// GroupRow is one group of a keyed aggregation (category, customer, vendor,
// product, status, grade).
type GroupRow struct {
	Key     string
	Revenue decimal.Decimal
	Cost    decimal.Decimal
	Units   int64
	Orders  int64
}

// CostComponentRow sums each cost component over the sold population.
type CostComponentRow struct {
	Purchase        decimal.Decimal
	Parts           decimal.Decimal
	Freight         decimal.Decimal
	Labor           decimal.Decimal
	Packaging       decimal.Decimal
	Customs         decimal.Decimal
	Standardization decimal.Decimal
}

// ReturnRow summarises returned units: how many, the cost tied up in them,
// and the profit forgone.
type ReturnRow struct {
	Units      int64
	Value      decimal.Decimal
	LostProfit decimal.Decimal
}

// AgingRow is one unit's holding window: received date, sale date when sold
// (empty while held), and the cost value held.
type AgingRow struct {
	ReceivedDate string
	SaleDate     string
	Value        decimal.Decimal
}

// OrderHistoryRow is a customer's ordering footprint used by churn scoring.
type OrderHistoryRow struct {
	Customer   string
	FirstOrder string
	LastOrder  string
	Orders     int64
	Revenue    decimal.Decimal
}

// Response shapes. All currency values are USD rounded to two decimals, all
// percentages to one decimal, per the API contract.

// KPISummary is the headline card of the dashboard.
type KPISummary struct {
	TotalRevenue      float64 `json:"totalRevenue"`
	TotalCost         float64 `json:"totalCost"`
	TotalProfit       float64 `json:"totalProfit"`
	ProfitMargin      float64 `json:"profitMargin"`
	UnitsSold         int64   `json:"unitsSold"`
	TotalUnits        int64   `json:"totalUnits"`
	TotalOrders       int64   `json:"totalOrders"`
	AverageOrderValue float64 `json:"averageOrderValue"`
	ReturnRate        float64 `json:"returnRate"`
}

// TrendPoint is one month of the revenue/profit trend chart.
type TrendPoint struct {
	Month   string  `json:"month"`
	Revenue float64 `json:"revenue"`
	Cost    float64 `json:"cost"`
	Profit  float64 `json:"profit"`
	Units   int64   `json:"units"`
}

// ForecastPoint projects the trend one period forward.
type ForecastPoint struct {
	Month   string  `json:"month"`
	Revenue float64 `json:"revenue"`
}

// CategoryBreakdown is one category's slice of the totals. Records without a
// category are reported under "Unknown" so the slices reconcile with the KPI
// totals.
type CategoryBreakdown struct {
	Category string  `json:"category"`
	Revenue  float64 `json:"revenue"`
	Profit   float64 `json:"profit"`
	Units    int64   `json:"units"`
	Margin   float64 `json:"margin"`
}

// TopPerformer is one row of a top-N ranking (customer, vendor, or product).
type TopPerformer struct {
	Name    string  `json:"name"`
	Revenue float64 `json:"revenue"`
	Profit  float64 `json:"profit"`
	Units   int64   `json:"units"`
	Orders  int64   `json:"orders,omitempty"`
}

// DistributionSlice is one value of the status or grade distribution.
type DistributionSlice struct {
	Label string  `json:"label"`
	Units int64   `json:"units"`
	Value float64 `json:"value"`
}

// Dashboard is the full document assembled by the service.
type Dashboard struct {
	KPI                KPISummary          `json:"kpi"`
	MonthlyTrend       []TrendPoint        `json:"monthlyTrend"`
	Forecast           *ForecastPoint      `json:"forecast,omitempty"`
	Categories         []CategoryBreakdown `json:"categories"`
	TopCustomers       []TopPerformer      `json:"topCustomers"`
	TopVendors         []TopPerformer      `json:"topVendors"`
	TopProducts        []TopPerformer      `json:"topProducts"`
	StatusDistribution []DistributionSlice `json:"statusDistribution"`
	GradeDistribution  []DistributionSlice `json:"gradeDistribution"`
	Waterfall          Waterfall           `json:"waterfall"`
	Aging              []AgingBucket       `json:"aging"`
	Concentration      Concentration       `json:"concentration"`
	CostBottlenecks    []CostRatio         `json:"costBottlenecks"`
	ChurnRisks         []ChurnScore        `json:"churnRisks"`
}

// UnknownLabel is the display key for records missing a grouping dimension.
const UnknownLabel = "Unknown"

// money rounds a decimal to two places for serialization.
func money(d decimal.Decimal) float64 {
	f, _ := d.Round(2).Float64()
	return f
}

// pct rounds a percentage to one place for serialization.
func pct(d decimal.Decimal) float64 {
	f, _ := d.Round(1).Float64()
	return f
}
