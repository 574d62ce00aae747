package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/rl1809/record-catalog/internal/core/domain"
	"github.com/rl1809/record-catalog/internal/port"
)

const orderKeyPrefix = "order:"

// StockAdjuster is the part of the catalog an order needs.
type StockAdjuster interface {
	AdjustStock(ctx context.Context, id string, delta int) (*domain.Envelope[*domain.Record], error)
}

type OrderService struct {
	stock       StockAdjuster
	orders      port.OrderRepository
	idempotency port.IdempotencyRepository
	logger      *slog.Logger
	tracer      trace.Tracer
}

func NewOrderService(stock StockAdjuster, orders port.OrderRepository, idempotency port.IdempotencyRepository, opts ...Option) *OrderService {
	o := buildOptions(opts)
	return &OrderService{
		stock:       stock,
		orders:      orders,
		idempotency: idempotency,
		logger:      o.logger,
		tracer:      o.tracer,
	}
}

// PlaceOrder takes the ordered quantity out of stock and records the order.
// If the order cannot be saved the stock is given back.
func (s *OrderService) PlaceOrder(ctx context.Context, req domain.PlaceOrder) (_ *domain.Envelope[*domain.Order], err error) {
	ctx, span := s.tracer.Start(ctx, "orders.PlaceOrder", trace.WithAttributes(
		attribute.String("record.id", req.RecordID),
		attribute.Int("order.quantity", req.Quantity),
	))
	defer func() { endSpan(span, err) }()

	if err := req.Validate(); err != nil {
		return nil, err
	}

	if req.RequestID != "" {
		ok, err := s.idempotency.SetIdempotency(ctx, orderKeyPrefix+req.RequestID)
		if err != nil {
			return nil, s.internal(ctx, "PlaceOrder", fmt.Errorf("idempotency check failed: %w", err))
		}
		if !ok {
			return nil, domain.Conflict(domain.ErrDuplicateRequest.Error())
		}
	}

	if _, err := s.stock.AdjustStock(ctx, req.RecordID, -req.Quantity); err != nil {
		var domainErr *domain.Error
		if errors.As(err, &domainErr) {
			return nil, err
		}
		return nil, s.internal(ctx, "PlaceOrder", fmt.Errorf("stock decrement failed: %w", err))
	}

	now := time.Now().UTC()
	order := domain.Order{
		ID:        uuid.NewString(),
		RequestID: req.RequestID,
		RecordID:  req.RecordID,
		Quantity:  req.Quantity,
		Status:    domain.OrderStatusConfirmed,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.orders.CreateOrder(ctx, order); err != nil {
		s.logger.ErrorContext(ctx, "failed to save order", "order_id", order.ID, "error", err)

		// Rollback: restore stock
		if _, rollbackErr := s.stock.AdjustStock(ctx, req.RecordID, req.Quantity); rollbackErr != nil {
			s.logger.ErrorContext(ctx, "CRITICAL rollback failed", "order_id", order.ID, "record_id", req.RecordID, "quantity", req.Quantity, "error", rollbackErr)
		} else {
			s.logger.InfoContext(ctx, "rolled back stock", "order_id", order.ID, "record_id", req.RecordID)
		}
		return nil, domain.Internal("Failed to create order")
	}

	return domain.OK("Order created successfully", &order), nil
}

func (s *OrderService) ListOrders(ctx context.Context) (_ *domain.Envelope[[]domain.Order], err error) {
	ctx, span := s.tracer.Start(ctx, "orders.ListOrders")
	defer func() { endSpan(span, err) }()

	orders, err := s.orders.ListOrders(ctx)
	if err != nil {
		return nil, s.internal(ctx, "ListOrders", fmt.Errorf("list orders: %w", err))
	}
	if orders == nil {
		orders = []domain.Order{}
	}
	return domain.OK("Orders fetched successfully", orders), nil
}

func (s *OrderService) GetOrder(ctx context.Context, id string) (_ *domain.Envelope[*domain.Order], err error) {
	ctx, span := s.tracer.Start(ctx, "orders.GetOrder", trace.WithAttributes(attribute.String("order.id", id)))
	defer func() { endSpan(span, err) }()

	order, err := s.orders.GetOrder(ctx, id)
	if err != nil {
		return nil, s.internal(ctx, "GetOrder", fmt.Errorf("get order %s: %w", id, err))
	}
	if order == nil {
		return nil, domain.NotFound(fmt.Sprintf("Order with ID %s not found", id))
	}
	return domain.OK("Order fetched successfully", order), nil
}

func (s *OrderService) internal(ctx context.Context, op string, cause error) error {
	msg := "Failed to process order"
	s.logger.ErrorContext(ctx, msg, "op", op, "error", cause)
	return domain.Internal(msg)
}
