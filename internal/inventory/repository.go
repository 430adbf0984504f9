package inventory

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/renewtrack/renewtrack/internal/dashboard"
	"github.com/renewtrack/renewtrack/internal/platform/httpx"
)

// Repository persists inventory records in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs the inventory repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const recordColumns = `id, COALESCE(serial_number, ''), COALESCE(item_id, ''), COALESCE(deal_id, ''),
COALESCE(category, ''), COALESCE(make, ''), COALESCE(model, ''), COALESCE(grade_condition, ''),
COALESCE(purchase_price, 0), COALESCE(parts_cost, 0), COALESCE(freight_cost, 0),
COALESCE(labor_cost, 0), COALESCE(packaging_cost, 0), COALESCE(customs_cost, 0),
COALESCE(standardization_cost, 0), COALESCE(final_sales_price, 0), COALESCE(final_total_cost, 0),
COALESCE(invoice_date, ''), COALESCE(sales_order_date, ''), COALESCE(sales_id, ''),
COALESCE(vendor_name, ''), COALESCE(invoicing_name, ''), COALESCE(purchase_date, ''),
COALESCE(received_date, ''), COALESCE(manufacturing_date, ''), COALESCE(warranty_start, ''),
COALESCE(warranty_end, ''), COALESCE(status, '')`

func storeErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", httpx.ErrStoreUnavailable, op, err)
}

// List returns a page of records under the same filter predicate the
// dashboard aggregations use, plus the total matching count.
func (r *Repository) List(ctx context.Context, f dashboard.FilterSpec, limit, offset int) ([]Record, int, error) {
	pred, args := f.Where(0)
	where := ""
	if pred != "" {
		where = " WHERE " + pred
	}

	var total int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM inventory_records"+where, args...).Scan(&total); err != nil {
		return nil, 0, storeErr("count records", err)
	}

	query := fmt.Sprintf(`SELECT %s
FROM inventory_records%s
ORDER BY id
LIMIT $%d OFFSET $%d`, recordColumns, where, len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, storeErr("list records", err)
	}
	defer rows.Close()

	records := []Record{}
	for rows.Next() {
		var rec Record
		if err := rows.Scan(
			&rec.ID, &rec.SerialNumber, &rec.ItemID, &rec.DealID,
			&rec.Category, &rec.Make, &rec.Model, &rec.GradeCondition,
			&rec.PurchasePrice, &rec.PartsCost, &rec.FreightCost,
			&rec.LaborCost, &rec.PackagingCost, &rec.CustomsCost,
			&rec.StandardizationCost, &rec.FinalSalesPrice, &rec.FinalTotalCost,
			&rec.InvoiceDate, &rec.SalesOrderDate, &rec.SalesID,
			&rec.VendorName, &rec.InvoicingName, &rec.PurchaseDate,
			&rec.ReceivedDate, &rec.ManufacturingDate, &rec.WarrantyStart,
			&rec.WarrantyEnd, &rec.Status,
		); err != nil {
			return nil, 0, storeErr("scan record", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, storeErr("list records", err)
	}
	return records, total, nil
}

var bulkColumns = []string{
	"serial_number", "item_id", "deal_id", "category", "make", "model",
	"grade_condition", "purchase_price", "parts_cost", "freight_cost",
	"labor_cost", "packaging_cost", "customs_cost", "standardization_cost",
	"final_sales_price", "final_total_cost", "invoice_date", "sales_order_date",
	"sales_id", "vendor_name", "invoicing_name", "purchase_date",
	"received_date", "manufacturing_date", "warranty_start", "warranty_end",
	"status", "batch_id",
}

// BulkInsert copies a validated batch into the table, tagging every row with
// the upload batch id.
func (r *Repository) BulkInsert(ctx context.Context, batchID string, records []BulkRecord) (int64, error) {
	rows := make([][]any, 0, len(records))
	for _, rec := range records {
		rows = append(rows, []any{
			rec.SerialNumber, nullIfEmpty(rec.ItemID), nullIfEmpty(rec.DealID),
			nullIfEmpty(rec.Category), nullIfEmpty(rec.Make), nullIfEmpty(rec.Model),
			nullIfEmpty(rec.GradeCondition), rec.PurchasePrice, rec.PartsCost,
			rec.FreightCost, rec.LaborCost, rec.PackagingCost, rec.CustomsCost,
			rec.StandardizationCost, rec.FinalSalesPrice, rec.FinalTotalCost,
			nullIfEmpty(rec.InvoiceDate), nullIfEmpty(rec.SalesOrderDate),
			nullIfEmpty(rec.SalesID), nullIfEmpty(rec.VendorName),
			nullIfEmpty(rec.InvoicingName), nullIfEmpty(rec.PurchaseDate),
			nullIfEmpty(rec.ReceivedDate), nullIfEmpty(rec.ManufacturingDate),
			nullIfEmpty(rec.WarrantyStart), nullIfEmpty(rec.WarrantyEnd),
			nullIfEmpty(rec.Status), batchID,
		})
	}

	inserted, err := r.pool.CopyFrom(ctx,
		pgx.Identifier{"inventory_records"},
		bulkColumns,
		pgx.CopyFromRows(rows),
	)
	if err != nil {
		return 0, storeErr("bulk insert", err)
	}
	return inserted, nil
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
