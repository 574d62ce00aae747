package port

import (
	"context"

	"github.com/rl1809/record-catalog/internal/core/domain"
)

type RecordRepository interface {
	// CreateRecord persists a new record and returns it with its assigned ID
	CreateRecord(ctx context.Context, record domain.Record) (*domain.Record, error)

	// GetRecord retrieves a record by ID, returns nil if it does not exist
	GetRecord(ctx context.Context, id string) (*domain.Record, error)

	// FindRecords returns one page of records matching the filter
	FindRecords(ctx context.Context, filter domain.RecordFilter, offset, limit int) ([]domain.Record, error)

	// CountRecords counts every record matching the filter, ignoring pagination
	CountRecords(ctx context.Context, filter domain.RecordFilter) (int, error)

	// UpdateRecord saves all fields with a version check for optimistic locking
	UpdateRecord(ctx context.Context, record domain.Record) (*domain.Record, error)

	// AdjustQuantity atomically adds delta to the stock, failing with
	// domain.ErrInsufficientStock if the result would be negative and
	// domain.ErrQuantityOverflow if it would exceed domain.MaxQuantity.
	// Returns nil if the record does not exist.
	AdjustQuantity(ctx context.Context, id string, delta int) (*domain.Record, error)
}

type OrderRepository interface {
	CreateOrder(ctx context.Context, order domain.Order) error

	// GetOrder returns nil if the order does not exist
	GetOrder(ctx context.Context, id string) (*domain.Order, error)

	ListOrders(ctx context.Context) ([]domain.Order, error)
}
