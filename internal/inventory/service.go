package inventory

import (
	"context"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/renewtrack/renewtrack/internal/dashboard"
	"github.com/renewtrack/renewtrack/internal/platform/httpx"
)

// maxBulkRecords bounds a single upload request.
const maxBulkRecords = 10000

// Store is the persistence surface the service depends on.
type Store interface {
	List(ctx context.Context, f dashboard.FilterSpec, limit, offset int) ([]Record, int, error)
	BulkInsert(ctx context.Context, batchID string, records []BulkRecord) (int64, error)
}

// Service validates and coordinates inventory reads and uploads.
type Service struct {
	store    Store
	validate *validator.Validate
}

// NewService constructs the inventory service.
func NewService(store Store) *Service {
	return &Service{store: store, validate: validator.New()}
}

// ListPage is one page of records with pagination metadata.
type ListPage struct {
	Records    []Record   `json:"records"`
	Pagination Pagination `json:"pagination"`
}

// List returns the requested page under the given filter scope.
func (s *Service) List(ctx context.Context, f dashboard.FilterSpec, page, perPage int) (ListPage, error) {
	meta := NewPagination(page, perPage, 0)
	offset := (meta.Page - 1) * meta.PerPage

	records, total, err := s.store.List(ctx, f, meta.PerPage, offset)
	if err != nil {
		return ListPage{}, err
	}
	return ListPage{Records: records, Pagination: NewPagination(meta.Page, meta.PerPage, total)}, nil
}

// BulkResult reports the outcome of an upload.
type BulkResult struct {
	BatchID  string `json:"batchId"`
	Inserted int64  `json:"inserted"`
}

// BulkInsert validates every row, then copies the batch into the store under
// a fresh batch id.
func (s *Service) BulkInsert(ctx context.Context, records []BulkRecord) (BulkResult, error) {
	if len(records) == 0 {
		return BulkResult{}, fmt.Errorf("%w: empty batch", httpx.ErrValidation)
	}
	if len(records) > maxBulkRecords {
		return BulkResult{}, fmt.Errorf("%w: batch exceeds %d records", httpx.ErrValidation, maxBulkRecords)
	}
	for i, rec := range records {
		if err := s.validate.Struct(rec); err != nil {
			return BulkResult{}, fmt.Errorf("%w: record %d: %v", httpx.ErrValidation, i, err)
		}
	}

	batchID := uuid.New().String()
	inserted, err := s.store.BulkInsert(ctx, batchID, records)
	if err != nil {
		return BulkResult{}, err
	}
	return BulkResult{BatchID: batchID, Inserted: inserted}, nil
}
