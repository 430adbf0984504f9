package dashboard

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// Derived metrics are pure functions over aggregation rows: same input, same
// output, no I/O. Ratios return zero when the denominator is zero, so a zero
// on the dashboard only ever means "no matching data", never "computation
// failed".

var hundred = decimal.NewFromInt(100)

// ProfitMargin computes profit / revenue * 100, zero when revenue is zero.
func ProfitMargin(profit, revenue decimal.Decimal) decimal.Decimal {
	if revenue.IsZero() {
		return decimal.Zero
	}
	return profit.Div(revenue).Mul(hundred)
}

// ReturnRate computes unitsReturned / unitsSold * 100, zero when nothing sold.
func ReturnRate(returned, sold int64) decimal.Decimal {
	if sold == 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(returned).Div(decimal.NewFromInt(sold)).Mul(hundred)
}

// Waterfall is the profitability waterfall. The stage sequence and sign
// convention are fixed: costs render negative, profit checkpoints positive.
type Waterfall struct {
	GrossRevenue  float64 `json:"grossRevenue"`
	PurchaseCost  float64 `json:"purchaseCost"`
	PartsCost     float64 `json:"partsCost"`
	FreightCost   float64 `json:"freightCost"`
	LaborCost     float64 `json:"laborCost"`
	PackagingCost float64 `json:"packagingCost"`
	OtherCosts    float64 `json:"otherCosts"`
	GrossProfit   float64 `json:"grossProfit"`
	GrossMargin   float64 `json:"grossMargin"`
	ReturnImpact  float64 `json:"returnImpact"`
	NetProfit     float64 `json:"netProfit"`
	NetMargin     float64 `json:"netMargin"`

	Stages []WaterfallStage `json:"stages"`
}

// WaterfallStage is one signed bar of the waterfall chart. Checkpoint stages
// (Revenue, Gross Profit, Net Profit) carry running totals, cost stages carry
// negative amounts.
type WaterfallStage struct {
	Name       string  `json:"name"`
	Amount     float64 `json:"amount"`
	Checkpoint bool    `json:"checkpoint"`
}

// BuildWaterfall assembles the waterfall from summed cost components, gross
// revenue, and the profit forgone to returns. Identities hold exactly under
// decimal arithmetic:
//
//	grossProfit = revenue - (purchase+parts+freight+labor+packaging+other)
//	netProfit   = grossProfit - returnImpact
//
// where other = customs + standardization.
func BuildWaterfall(revenue decimal.Decimal, costs CostComponentRow, returnImpact decimal.Decimal) Waterfall {
	other := costs.Customs.Add(costs.Standardization)
	totalCosts := costs.Purchase.
		Add(costs.Parts).
		Add(costs.Freight).
		Add(costs.Labor).
		Add(costs.Packaging).
		Add(other)
	grossProfit := revenue.Sub(totalCosts)
	netProfit := grossProfit.Sub(returnImpact)

	w := Waterfall{
		GrossRevenue:  money(revenue),
		PurchaseCost:  money(costs.Purchase),
		PartsCost:     money(costs.Parts),
		FreightCost:   money(costs.Freight),
		LaborCost:     money(costs.Labor),
		PackagingCost: money(costs.Packaging),
		OtherCosts:    money(other),
		GrossProfit:   money(grossProfit),
		GrossMargin:   pct(ProfitMargin(grossProfit, revenue)),
		ReturnImpact:  money(returnImpact),
		NetProfit:     money(netProfit),
		NetMargin:     pct(ProfitMargin(netProfit, revenue)),
	}
	// Stage order is a rendering contract: Revenue, Purchase, Parts, Freight,
	// Labor, Other, Gross Profit, Returns, Net Profit. The Other bar folds in
	// packaging so the nine bars cover every cost.
	w.Stages = []WaterfallStage{
		{Name: "Revenue", Amount: money(revenue), Checkpoint: true},
		{Name: "Purchase", Amount: money(costs.Purchase.Neg())},
		{Name: "Parts", Amount: money(costs.Parts.Neg())},
		{Name: "Freight", Amount: money(costs.Freight.Neg())},
		{Name: "Labor", Amount: money(costs.Labor.Neg())},
		{Name: "Other", Amount: money(costs.Packaging.Add(other).Neg())},
		{Name: "Gross Profit", Amount: money(grossProfit), Checkpoint: true},
		{Name: "Returns", Amount: money(returnImpact.Neg())},
		{Name: "Net Profit", Amount: money(netProfit), Checkpoint: true},
	}
	return w
}

// CostRatio flags products whose cost consumes most of their revenue.
type CostRatio struct {
	Name      string  `json:"name"`
	Revenue   float64 `json:"revenue"`
	Cost      float64 `json:"cost"`
	CostRatio float64 `json:"costRatio"`
	HighCost  bool    `json:"highCost"`
}

// highCostRatioThreshold marks the highlight band; it filters nothing.
var highCostRatioThreshold = decimal.NewFromInt(80)

// CostBottlenecks computes cost/revenue ratios per product group.
func CostBottlenecks(products []GroupRow) []CostRatio {
	out := make([]CostRatio, 0, len(products))
	for _, p := range products {
		ratio := decimal.Zero
		if !p.Revenue.IsZero() {
			ratio = p.Cost.Div(p.Revenue).Mul(hundred)
		}
		out = append(out, CostRatio{
			Name:      p.Key,
			Revenue:   money(p.Revenue),
			Cost:      money(p.Cost),
			CostRatio: pct(ratio),
			HighCost:  ratio.GreaterThanOrEqual(highCostRatioThreshold),
		})
	}
	return out
}

// AgingBucket is one day-range partition of inventory by time held.
type AgingBucket struct {
	Label    string  `json:"label"`
	MinDays  int     `json:"minDays"`
	MaxDays  int     `json:"maxDays"`
	Count    int64   `json:"count"`
	Value    float64 `json:"value"`
	PctValue float64 `json:"pctValue"`
}

type agingRange struct {
	label    string
	min, max int // max < 0 means open-ended
}

var agingRanges = []agingRange{
	{"0-30", 0, 30},
	{"31-60", 31, 60},
	{"61-90", 61, 90},
	{"91-180", 91, 180},
	{"181+", 181, -1},
}

// ComputeAgingBuckets partitions units by days held, from received date to
// sale date (or now while still held). Each bucket reports count, aggregate
// value, and percent of total value; percentages sum to 100 within rounding.
// When no unit lands in any bucket the result is empty, matching the other
// breakdown lists on an empty scope.
func ComputeAgingBuckets(rows []AgingRow, now time.Time) []AgingBucket {
	buckets := make([]AgingBucket, len(agingRanges))
	values := make([]decimal.Decimal, len(agingRanges))
	for i, r := range agingRanges {
		buckets[i] = AgingBucket{Label: r.label, MinDays: r.min, MaxDays: r.max}
		values[i] = decimal.Zero
	}

	matched := 0
	total := decimal.Zero
	for _, row := range rows {
		received, err := time.Parse(dateLayout, row.ReceivedDate)
		if err != nil {
			continue
		}
		end := now
		if row.SaleDate != "" {
			if sold, err := time.Parse(dateLayout, row.SaleDate); err == nil {
				end = sold
			}
		}
		days := int(end.Sub(received).Hours() / 24)
		if days < 0 {
			days = 0
		}
		idx := bucketIndex(days)
		buckets[idx].Count++
		values[idx] = values[idx].Add(row.Value)
		total = total.Add(row.Value)
		matched++
	}
	if matched == 0 {
		return []AgingBucket{}
	}

	for i := range buckets {
		buckets[i].Value = money(values[i])
		if !total.IsZero() {
			buckets[i].PctValue = pct(values[i].Div(total).Mul(hundred))
		}
	}
	return buckets
}

func bucketIndex(days int) int {
	for i, r := range agingRanges {
		if r.max < 0 || days <= r.max {
			if days >= r.min {
				return i
			}
		}
	}
	return len(agingRanges) - 1
}

// Concentration is the share of revenue held by the top customers.
type Concentration struct {
	TopCustomers  int     `json:"topCustomers"`
	TopRevenue    float64 `json:"topRevenue"`
	TotalRevenue  float64 `json:"totalRevenue"`
	Concentration float64 `json:"concentration"`
	AtRisk        bool    `json:"atRisk"`
}

// concentrationRiskPct flags dependence on few customers; surfaced, not acted on.
var concentrationRiskPct = decimal.NewFromInt(50)

// CustomerConcentration computes the revenue share of the given top customers
// (callers pass the top 5 by revenue) against total revenue.
func CustomerConcentration(top []GroupRow, totalRevenue decimal.Decimal) Concentration {
	topRevenue := decimal.Zero
	for _, c := range top {
		topRevenue = topRevenue.Add(c.Revenue)
	}
	share := decimal.Zero
	if !totalRevenue.IsZero() {
		share = topRevenue.Div(totalRevenue).Mul(hundred)
	}
	return Concentration{
		TopCustomers:  len(top),
		TopRevenue:    money(topRevenue),
		TotalRevenue:  money(totalRevenue),
		Concentration: pct(share),
		AtRisk:        share.GreaterThan(concentrationRiskPct),
	}
}

// ChurnScore flags a customer whose silence exceeds their historical cadence.
type ChurnScore struct {
	Customer      string  `json:"customer"`
	LastOrder     string  `json:"lastOrder"`
	DaysSince     int     `json:"daysSince"`
	CadenceDays   int     `json:"cadenceDays"`
	ThresholdDays int     `json:"thresholdDays"`
	Score         float64 `json:"score"`
	AtRisk        bool    `json:"atRisk"`
	Revenue       float64 `json:"revenue"`
}

const (
	// churnFloorDays is the minimum silence before anyone is flagged.
	churnFloorDays = 90
	// churnCadenceFactor scales the customer's own order cadence into a threshold.
	churnCadenceFactor = 2
)

// ComputeChurnRisk scores customers by recency relative to their historical
// order cadence. Deterministic heuristic: cadence = active span / (orders-1),
// defaulting to the floor for single-order customers; threshold =
// max(cadenceFactor * cadence, floor); score = daysSince / threshold, at risk
// when it exceeds 1. Output is sorted by score descending, capped at limit.
func ComputeChurnRisk(history []OrderHistoryRow, now time.Time, limit int) []ChurnScore {
	scores := make([]ChurnScore, 0, len(history))
	for _, h := range history {
		last, err := time.Parse(dateLayout, h.LastOrder)
		if err != nil {
			continue
		}
		daysSince := int(now.Sub(last).Hours() / 24)
		if daysSince < 0 {
			daysSince = 0
		}

		cadence := churnFloorDays
		if h.Orders > 1 {
			if first, err := time.Parse(dateLayout, h.FirstOrder); err == nil {
				span := int(last.Sub(first).Hours() / 24)
				if span > 0 {
					cadence = span / int(h.Orders-1)
				}
			}
		}
		threshold := cadence * churnCadenceFactor
		if threshold < churnFloorDays {
			threshold = churnFloorDays
		}

		score := float64(daysSince) / float64(threshold)
		scores = append(scores, ChurnScore{
			Customer:      h.Customer,
			LastOrder:     h.LastOrder,
			DaysSince:     daysSince,
			CadenceDays:   cadence,
			ThresholdDays: threshold,
			Score:         score,
			AtRisk:        score > 1,
			Revenue:       money(h.Revenue),
		})
	}

	sort.SliceStable(scores, func(i, j int) bool { return scores[i].Score > scores[j].Score })
	if limit > 0 && len(scores) > limit {
		scores = scores[:limit]
	}
	return scores
}

// ForecastTrend extrapolates revenue one month ahead from the average of the
// last three month-over-month deltas. A placeholder heuristic, not a model;
// it needs at least two observed months.
func ForecastTrend(points []TrendRow) *ForecastPoint {
	if len(points) < 2 {
		return nil
	}
	deltas := []decimal.Decimal{}
	start := len(points) - 4
	if start < 0 {
		start = 0
	}
	window := points[start:]
	for i := 1; i < len(window); i++ {
		deltas = append(deltas, window[i].Revenue.Sub(window[i-1].Revenue))
	}
	sum := decimal.Zero
	for _, d := range deltas {
		sum = sum.Add(d)
	}
	avgDelta := sum.Div(decimal.NewFromInt(int64(len(deltas))))

	last := points[len(points)-1]
	projected := last.Revenue.Add(avgDelta)
	if projected.IsNegative() {
		projected = decimal.Zero
	}

	month := last.Month
	if t, err := time.Parse("2006-01", last.Month); err == nil {
		month = t.AddDate(0, 1, 0).Format("2006-01")
	}
	return &ForecastPoint{Month: month, Revenue: money(projected)}
}
