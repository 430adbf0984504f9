package dashboard

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/renewtrack/renewtrack/internal/platform/httpx"
)

// FilterSpec is an immutable snapshot of the requested scope. Within a field
// values are OR'd, across fields AND'd. A zero-value field imposes no
// constraint. Constructed per request, never persisted.
type FilterSpec struct {
	StartDate string
	EndDate   string
	Status    []string
	Category  []string
	Make      []string
	Customer  []string
	Vendor    []string
	Grade     []string
}

const dateLayout = "2006-01-02"

// ParseFilterSpec builds a FilterSpec from query-string parameters. Set-valued
// fields are comma-separated exact matches against stored values. Malformed
// dates are rejected with httpx.ErrInvalidFilter rather than silently dropped.
func ParseFilterSpec(q url.Values) (FilterSpec, error) {
	spec := FilterSpec{
		StartDate: strings.TrimSpace(q.Get("startDate")),
		EndDate:   strings.TrimSpace(q.Get("endDate")),
		Status:    splitCSV(q.Get("status")),
		Category:  splitCSV(q.Get("category")),
		Make:      splitCSV(q.Get("make")),
		Customer:  splitCSV(q.Get("customer")),
		Vendor:    splitCSV(q.Get("vendor")),
		Grade:     splitCSV(q.Get("gradeCondition")),
	}
	if err := spec.Validate(); err != nil {
		return FilterSpec{}, err
	}
	return spec, nil
}

// Validate checks date fields for parseability and ordering.
func (f FilterSpec) Validate() error {
	var start, end time.Time
	var err error
	if f.StartDate != "" {
		if start, err = time.Parse(dateLayout, f.StartDate); err != nil {
			return fmt.Errorf("%w: startDate %q is not a YYYY-MM-DD date", httpx.ErrInvalidFilter, f.StartDate)
		}
	}
	if f.EndDate != "" {
		if end, err = time.Parse(dateLayout, f.EndDate); err != nil {
			return fmt.Errorf("%w: endDate %q is not a YYYY-MM-DD date", httpx.ErrInvalidFilter, f.EndDate)
		}
	}
	if f.StartDate != "" && f.EndDate != "" && end.Before(start) {
		return fmt.Errorf("%w: endDate precedes startDate", httpx.ErrInvalidFilter)
	}
	return nil
}

// IsZero reports whether the spec imposes no constraint at all.
func (f FilterSpec) IsZero() bool {
	return f.StartDate == "" && f.EndDate == "" &&
		len(f.Status) == 0 && len(f.Category) == 0 && len(f.Make) == 0 &&
		len(f.Customer) == 0 && len(f.Vendor) == 0 && len(f.Grade) == 0
}

// Where renders the spec as a conjunctive SQL predicate over
// inventory_records with positional placeholders starting at argOffset+1.
// An unconstrained spec yields an empty clause (match all). Dates are stored
// as YYYY-MM-DD text, so range comparison is lexicographic; the record date is
// the invoice date falling back to the purchase date for unsold stock.
func (f FilterSpec) Where(argOffset int) (string, []any) {
	var conds []string
	var args []any

	next := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", argOffset+len(args))
	}

	if f.StartDate != "" {
		conds = append(conds, fmt.Sprintf("COALESCE(NULLIF(invoice_date,''), purchase_date) >= %s", next(f.StartDate)))
	}
	if f.EndDate != "" {
		conds = append(conds, fmt.Sprintf("COALESCE(NULLIF(invoice_date,''), purchase_date) <= %s", next(f.EndDate)))
	}
	for _, set := range []struct {
		column string
		values []string
	}{
		{"status", f.Status},
		{"category", f.Category},
		{"make", f.Make},
		{"invoicing_name", f.Customer},
		{"vendor_name", f.Vendor},
		{"grade_condition", f.Grade},
	} {
		if len(set.values) == 0 {
			continue
		}
		conds = append(conds, fmt.Sprintf("%s = ANY(%s)", set.column, next(set.values)))
	}

	return strings.Join(conds, " AND "), args
}

// Merge composes two specs that constrain disjoint fields: date bounds
// tighten to the overlap, value sets carry over per field. When both specs
// constrain the same set field the values union, which widens that field
// rather than intersecting it; callers compose across fields, not within one.
func (f FilterSpec) Merge(other FilterSpec) FilterSpec {
	merged := f
	if other.StartDate != "" && (merged.StartDate == "" || other.StartDate > merged.StartDate) {
		merged.StartDate = other.StartDate
	}
	if other.EndDate != "" && (merged.EndDate == "" || other.EndDate < merged.EndDate) {
		merged.EndDate = other.EndDate
	}
	merged.Status = append(append([]string(nil), f.Status...), other.Status...)
	merged.Category = append(append([]string(nil), f.Category...), other.Category...)
	merged.Make = append(append([]string(nil), f.Make...), other.Make...)
	merged.Customer = append(append([]string(nil), f.Customer...), other.Customer...)
	merged.Vendor = append(append([]string(nil), f.Vendor...), other.Vendor...)
	merged.Grade = append(append([]string(nil), f.Grade...), other.Grade...)
	return merged
}

// CacheKey renders a stable token for the spec, used to key cached narrative
// insights. Aggregation results themselves are never cached.
func (f FilterSpec) CacheKey() string {
	parts := []string{
		f.StartDate, f.EndDate,
		strings.Join(f.Status, ","),
		strings.Join(f.Category, ","),
		strings.Join(f.Make, ","),
		strings.Join(f.Customer, ","),
		strings.Join(f.Vendor, ","),
		strings.Join(f.Grade, ","),
	}
	if f.IsZero() {
		return "all"
	}
	return strings.Join(parts, "|")
}

// splitCSV splits a comma-separated list, dropping empty entries so that an
// empty parameter is equivalent to omitting the field.
func splitCSV(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	values := make([]string, 0, len(parts))
	for _, p := range parts {
		if v := strings.TrimSpace(p); v != "" {
			values = append(values, v)
		}
	}
	if len(values) == 0 {
		return nil
	}
	return values
}
