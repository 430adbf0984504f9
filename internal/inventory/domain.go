// Package inventory provides the thin record-browsing and bulk-ingestion glue
// around the inventory_records relation the dashboard aggregates over.
package inventory

import "math"

// Record is one unit of refurbished stock moving through
// purchase -> grading -> sale -> (optional) return. Dates are YYYY-MM-DD
// text; money fields are USD. Absent values come back as empty strings and
// zeros from the store.
type Record struct {
	ID                  int64   `json:"id"`
	SerialNumber        string  `json:"serialNumber"`
	ItemID              string  `json:"itemId"`
	DealID              string  `json:"dealId"`
	Category            string  `json:"category"`
	Make                string  `json:"make"`
	Model               string  `json:"model"`
	GradeCondition      string  `json:"gradeCondition"`
	PurchasePrice       float64 `json:"purchasePrice"`
	PartsCost           float64 `json:"partsCost"`
	FreightCost         float64 `json:"freightCost"`
	LaborCost           float64 `json:"laborCost"`
	PackagingCost       float64 `json:"packagingCost"`
	CustomsCost         float64 `json:"customsCost"`
	StandardizationCost float64 `json:"standardizationCost"`
	FinalSalesPrice     float64 `json:"finalSalesPrice"`
	FinalTotalCost      float64 `json:"finalTotalCost"`
	InvoiceDate         string  `json:"invoiceDate"`
	SalesOrderDate      string  `json:"salesOrderDate"`
	SalesID             string  `json:"salesId"`
	VendorName          string  `json:"vendorName"`
	InvoicingName       string  `json:"invoicingName"`
	PurchaseDate        string  `json:"purchaseDate"`
	ReceivedDate        string  `json:"receivedDate"`
	ManufacturingDate   string  `json:"manufacturingDate"`
	WarrantyStart       string  `json:"warrantyStart"`
	WarrantyEnd         string  `json:"warrantyEnd"`
	Status              string  `json:"status"`
}

// BulkRecord is one row of a bulk upload. Dates must be YYYY-MM-DD when set.
type BulkRecord struct {
	SerialNumber        string  `json:"serialNumber" validate:"required"`
	ItemID              string  `json:"itemId"`
	DealID              string  `json:"dealId"`
	Category            string  `json:"category"`
	Make                string  `json:"make"`
	Model               string  `json:"model"`
	GradeCondition      string  `json:"gradeCondition"`
	PurchasePrice       float64 `json:"purchasePrice" validate:"gte=0"`
	PartsCost           float64 `json:"partsCost" validate:"gte=0"`
	FreightCost         float64 `json:"freightCost" validate:"gte=0"`
	LaborCost           float64 `json:"laborCost" validate:"gte=0"`
	PackagingCost       float64 `json:"packagingCost" validate:"gte=0"`
	CustomsCost         float64 `json:"customsCost" validate:"gte=0"`
	StandardizationCost float64 `json:"standardizationCost" validate:"gte=0"`
	FinalSalesPrice     float64 `json:"finalSalesPrice" validate:"gte=0"`
	FinalTotalCost      float64 `json:"finalTotalCost" validate:"gte=0"`
	InvoiceDate         string  `json:"invoiceDate" validate:"omitempty,datetime=2006-01-02"`
	SalesOrderDate      string  `json:"salesOrderDate" validate:"omitempty,datetime=2006-01-02"`
	SalesID             string  `json:"salesId"`
	VendorName          string  `json:"vendorName"`
	InvoicingName       string  `json:"invoicingName"`
	PurchaseDate        string  `json:"purchaseDate" validate:"omitempty,datetime=2006-01-02"`
	ReceivedDate        string  `json:"receivedDate" validate:"omitempty,datetime=2006-01-02"`
	ManufacturingDate   string  `json:"manufacturingDate" validate:"omitempty,datetime=2006-01-02"`
	WarrantyStart       string  `json:"warrantyStart" validate:"omitempty,datetime=2006-01-02"`
	WarrantyEnd         string  `json:"warrantyEnd" validate:"omitempty,datetime=2006-01-02"`
	Status              string  `json:"status"`
}

// Pagination contains metadata for paginated listings.
type Pagination struct {
	Page       int `json:"page"`
	PerPage    int `json:"perPage"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}

// NewPagination computes pagination metadata with the listing defaults.
func NewPagination(page, perPage, total int) Pagination {
	if perPage <= 0 {
		perPage = 50
	}
	if perPage > 200 {
		perPage = 200
	}
	if page <= 0 {
		page = 1
	}
	totalPages := int(math.Ceil(float64(total) / float64(perPage)))
	return Pagination{Page: page, PerPage: perPage, Total: total, TotalPages: totalPages}
}
