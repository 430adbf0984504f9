package dashboard

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/renewtrack/renewtrack/internal/platform/httpx"
)

// Repository runs the grouped aggregations against PostgreSQL. Every method
// applies the same FilterSpec predicate and surfaces failures as
// httpx.ErrStoreUnavailable so a request either fully succeeds or fully fails.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs the aggregation repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// soldCond identifies units that belong to an order. sales_id is the order
// grouping key: distinct sales_id counts orders, not units.
const soldCond = "sales_id IS NOT NULL AND sales_id <> ''"

// returnedCond identifies units sent back by the customer.
const returnedCond = "status = 'Returned'"

func storeErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", httpx.ErrStoreUnavailable, op, err)
}

func buildWhere(pred string, extra ...string) string {
	conds := make([]string, 0, len(extra)+1)
	conds = append(conds, extra...)
	if pred != "" {
		conds = append(conds, pred)
	}
	if len(conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(conds, " AND ")
}

func scanDecimal(raw string) decimal.Decimal {
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// KPISummary computes the ungrouped totals: revenue/cost over sold units,
// unit and distinct-order counts, and the overall record count.
func (r *Repository) KPISummary(ctx context.Context, f FilterSpec) (KPIRow, error) {
	pred, args := f.Where(0)
	query := `SELECT
  COALESCE(SUM(final_sales_price) FILTER (WHERE ` + soldCond + `), 0)::text,
  COALESCE(SUM(final_total_cost) FILTER (WHERE ` + soldCond + `), 0)::text,
  COUNT(*) FILTER (WHERE ` + soldCond + `),
  COUNT(DISTINCT sales_id) FILTER (WHERE ` + soldCond + `),
  COUNT(*)
FROM inventory_records` + buildWhere(pred)

	var revenue, cost string
	row := KPIRow{}
	if err := r.pool.QueryRow(ctx, query, args...).Scan(&revenue, &cost, &row.UnitsSold, &row.Orders, &row.TotalUnits); err != nil {
		return KPIRow{}, storeErr("kpi summary", err)
	}
	row.Revenue = scanDecimal(revenue)
	row.Cost = scanDecimal(cost)
	return row, nil
}

// MonthlyTrend buckets sold units by invoice month (YYYY-MM).
func (r *Repository) MonthlyTrend(ctx context.Context, f FilterSpec) ([]TrendRow, error) {
	pred, args := f.Where(0)
	query := `SELECT
  substr(invoice_date, 1, 7) AS month,
  COALESCE(SUM(final_sales_price), 0)::text,
  COALESCE(SUM(final_total_cost), 0)::text,
  COUNT(*)
FROM inventory_records` +
		buildWhere(pred, soldCond, "invoice_date IS NOT NULL", "invoice_date <> ''") + `
GROUP BY 1
ORDER BY 1`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, storeErr("monthly trend", err)
	}
	defer rows.Close()
	return collectTrend(rows)
}

func collectTrend(rows pgx.Rows) ([]TrendRow, error) {
	out := []TrendRow{}
	for rows.Next() {
		var t TrendRow
		var revenue, cost string
		if err := rows.Scan(&t.Month, &revenue, &cost, &t.Units); err != nil {
			return nil, storeErr("monthly trend scan", err)
		}
		t.Revenue = scanDecimal(revenue)
		t.Cost = scanDecimal(cost)
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("monthly trend rows", err)
	}
	return out, nil
}

// CategoryBreakdown sums the sold population per category. Missing categories
// are folded into the Unknown group so the breakdown reconciles with totals.
func (r *Repository) CategoryBreakdown(ctx context.Context, f FilterSpec) ([]GroupRow, error) {
	pred, args := f.Where(0)
	query := `SELECT
  CASE WHEN category IS NULL OR category = '' THEN '` + UnknownLabel + `' ELSE category END AS category,
  COALESCE(SUM(final_sales_price), 0)::text,
  COALESCE(SUM(final_total_cost), 0)::text,
  COUNT(*),
  COUNT(DISTINCT sales_id)
FROM inventory_records` + buildWhere(pred, soldCond) + `
GROUP BY 1
ORDER BY SUM(final_sales_price) DESC NULLS LAST, 1`

	return r.collectGroups(ctx, query, args, "category breakdown")
}

// TopCustomers ranks customers by revenue. Records without a customer name
// are excluded from this ranking, per the grouping rules.
func (r *Repository) TopCustomers(ctx context.Context, f FilterSpec, limit int) ([]GroupRow, error) {
	return r.topByName(ctx, f, "invoicing_name", limit, "top customers")
}

// TopVendors ranks vendors by revenue of the units they supplied.
func (r *Repository) TopVendors(ctx context.Context, f FilterSpec, limit int) ([]GroupRow, error) {
	return r.topByName(ctx, f, "vendor_name", limit, "top vendors")
}

func (r *Repository) topByName(ctx context.Context, f FilterSpec, column string, limit int, op string) ([]GroupRow, error) {
	pred, args := f.Where(0)
	query := `SELECT
  ` + column + `,
  COALESCE(SUM(final_sales_price), 0)::text,
  COALESCE(SUM(final_total_cost), 0)::text,
  COUNT(*),
  COUNT(DISTINCT sales_id)
FROM inventory_records` +
		buildWhere(pred, soldCond, column+" IS NOT NULL", column+" <> ''") + `
GROUP BY 1
ORDER BY SUM(final_sales_price) DESC NULLS LAST, 1
LIMIT ` + fmt.Sprintf("%d", limit)

	return r.collectGroups(ctx, query, args, op)
}

// TopProducts ranks products by revenue. The product key is the trimmed
// make + model display name.
func (r *Repository) TopProducts(ctx context.Context, f FilterSpec, limit int) ([]GroupRow, error) {
	pred, args := f.Where(0)
	query := `SELECT
  btrim(COALESCE(make, '') || ' ' || COALESCE(model, '')) AS product,
  COALESCE(SUM(final_sales_price), 0)::text,
  COALESCE(SUM(final_total_cost), 0)::text,
  COUNT(*),
  COUNT(DISTINCT sales_id)
FROM inventory_records` +
		buildWhere(pred, soldCond, "btrim(COALESCE(make, '') || ' ' || COALESCE(model, '')) <> ''") + `
GROUP BY 1
ORDER BY SUM(final_sales_price) DESC NULLS LAST, 1
LIMIT ` + fmt.Sprintf("%d", limit)

	return r.collectGroups(ctx, query, args, "top products")
}

// StatusDistribution counts units per lifecycle status over the full filtered
// population (not just sold units).
func (r *Repository) StatusDistribution(ctx context.Context, f FilterSpec) ([]GroupRow, error) {
	return r.distribution(ctx, f, "status", "status distribution")
}

// GradeDistribution counts units per grade/condition.
func (r *Repository) GradeDistribution(ctx context.Context, f FilterSpec) ([]GroupRow, error) {
	return r.distribution(ctx, f, "grade_condition", "grade distribution")
}

func (r *Repository) distribution(ctx context.Context, f FilterSpec, column, op string) ([]GroupRow, error) {
	pred, args := f.Where(0)
	query := `SELECT
  CASE WHEN ` + column + ` IS NULL OR ` + column + ` = '' THEN '` + UnknownLabel + `' ELSE ` + column + ` END,
  COALESCE(SUM(final_sales_price), 0)::text,
  COALESCE(SUM(final_total_cost), 0)::text,
  COUNT(*),
  0
FROM inventory_records` + buildWhere(pred) + `
GROUP BY 1
ORDER BY COUNT(*) DESC, 1`

	return r.collectGroups(ctx, query, args, op)
}

func (r *Repository) collectGroups(ctx context.Context, query string, args []any, op string) ([]GroupRow, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, storeErr(op, err)
	}
	defer rows.Close()

	out := []GroupRow{}
	for rows.Next() {
		var g GroupRow
		var revenue, cost string
		if err := rows.Scan(&g.Key, &revenue, &cost, &g.Units, &g.Orders); err != nil {
			return nil, storeErr(op+" scan", err)
		}
		g.Revenue = scanDecimal(revenue)
		g.Cost = scanDecimal(cost)
		out = append(out, g)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr(op+" rows", err)
	}
	return out, nil
}

// CostComponents sums each cost stage over the sold population, feeding the
// profitability waterfall.
func (r *Repository) CostComponents(ctx context.Context, f FilterSpec) (CostComponentRow, error) {
	pred, args := f.Where(0)
	query := `SELECT
  COALESCE(SUM(purchase_price), 0)::text,
  COALESCE(SUM(parts_cost), 0)::text,
  COALESCE(SUM(freight_cost), 0)::text,
  COALESCE(SUM(labor_cost), 0)::text,
  COALESCE(SUM(packaging_cost), 0)::text,
  COALESCE(SUM(customs_cost), 0)::text,
  COALESCE(SUM(standardization_cost), 0)::text
FROM inventory_records` + buildWhere(pred, soldCond)

	var purchase, parts, freight, labor, packaging, customs, standardization string
	if err := r.pool.QueryRow(ctx, query, args...).Scan(
		&purchase, &parts, &freight, &labor, &packaging, &customs, &standardization,
	); err != nil {
		return CostComponentRow{}, storeErr("cost components", err)
	}
	return CostComponentRow{
		Purchase:        scanDecimal(purchase),
		Parts:           scanDecimal(parts),
		Freight:         scanDecimal(freight),
		Labor:           scanDecimal(labor),
		Packaging:       scanDecimal(packaging),
		Customs:         scanDecimal(customs),
		Standardization: scanDecimal(standardization),
	}, nil
}

// ReturnStats summarises returned units: count, cost value, and the profit
// those sales would have carried.
func (r *Repository) ReturnStats(ctx context.Context, f FilterSpec) (ReturnRow, error) {
	pred, args := f.Where(0)
	query := `SELECT
  COUNT(*),
  COALESCE(SUM(final_total_cost), 0)::text,
  COALESCE(SUM(final_sales_price - final_total_cost), 0)::text
FROM inventory_records` + buildWhere(pred, returnedCond)

	var value, lost string
	row := ReturnRow{}
	if err := r.pool.QueryRow(ctx, query, args...).Scan(&row.Units, &value, &lost); err != nil {
		return ReturnRow{}, storeErr("return stats", err)
	}
	row.Value = scanDecimal(value)
	row.LostProfit = scanDecimal(lost)
	return row, nil
}

// AgingRows fetches the holding window of every unit with a received date;
// bucketing happens in the derived-metrics calculator.
func (r *Repository) AgingRows(ctx context.Context, f FilterSpec) ([]AgingRow, error) {
	pred, args := f.Where(0)
	query := `SELECT
  received_date,
  COALESCE(invoice_date, ''),
  COALESCE(final_total_cost, 0)::text
FROM inventory_records` +
		buildWhere(pred, "received_date IS NOT NULL", "received_date <> ''")

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, storeErr("aging rows", err)
	}
	defer rows.Close()

	out := []AgingRow{}
	for rows.Next() {
		var a AgingRow
		var value string
		if err := rows.Scan(&a.ReceivedDate, &a.SaleDate, &value); err != nil {
			return nil, storeErr("aging scan", err)
		}
		a.Value = scanDecimal(value)
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("aging rows", err)
	}
	return out, nil
}

// CustomerOrderHistory returns each named customer's ordering footprint for
// churn scoring: first/last order date, distinct order count, revenue.
func (r *Repository) CustomerOrderHistory(ctx context.Context, f FilterSpec) ([]OrderHistoryRow, error) {
	pred, args := f.Where(0)
	query := `SELECT
  invoicing_name,
  MIN(COALESCE(NULLIF(sales_order_date, ''), invoice_date)),
  MAX(COALESCE(NULLIF(sales_order_date, ''), invoice_date)),
  COUNT(DISTINCT sales_id),
  COALESCE(SUM(final_sales_price), 0)::text
FROM inventory_records` +
		buildWhere(pred, soldCond, "invoicing_name IS NOT NULL", "invoicing_name <> ''") + `
GROUP BY 1`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, storeErr("customer order history", err)
	}
	defer rows.Close()

	out := []OrderHistoryRow{}
	for rows.Next() {
		var h OrderHistoryRow
		var first, last *string
		var revenue string
		if err := rows.Scan(&h.Customer, &first, &last, &h.Orders, &revenue); err != nil {
			return nil, storeErr("customer order history scan", err)
		}
		if first != nil {
			h.FirstOrder = *first
		}
		if last != nil {
			h.LastOrder = *last
		}
		h.Revenue = scanDecimal(revenue)
		out = append(out, h)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("customer order history rows", err)
	}
	return out, nil
}
