package service

import (
	"context"
	"log/slog"
	"strings"
	"time"

	apperrors "github.com/utafrali/agrostore/pkg/errors"
	"github.com/utafrali/agrostore/pkg/logger"
	"github.com/utafrali/agrostore/pkg/money"
	"github.com/utafrali/agrostore/services/orderapi/internal/domain"
	"github.com/utafrali/agrostore/services/orderapi/internal/repository"
)

// Validation messages returned for malformed orders.
const (
	MsgItemsRequired   = "items must be a non-empty array"
	MsgItemIdentity    = "each item must have id and name"
	MsgItemNumbers     = "price_cents and quantity must be numbers"
	MsgNegativePrice   = "price_cents must be greater than or equal to 0"
	MsgPriceTooHigh    = "price_cents must be at most 100000000000"
	MsgQuantityTooLow  = "quantity must be at least 1"
	MsgQuantityTooHigh = "quantity must be at most 2147483647"
	MsgTotalTooLarge   = "order total is too large"
	MsgMissingIdentity = "missing user identity"
)

// EventPublisher publishes order events. *event.Producer implements it.
type EventPublisher interface {
	PublishOrderCreated(ctx context.Context, order *domain.Order) error
}

// OrderService implements the business logic for order operations.
type OrderService struct {
	repo   repository.OrderRepository
	events EventPublisher
	logger *slog.Logger
	now    func() time.Time
}

// NewOrderService creates a new order service. events may be nil.
func NewOrderService(repo repository.OrderRepository, events EventPublisher, logger *slog.Logger) *OrderService {
	return &OrderService{
		repo:   repo,
		events: events,
		logger: logger,
		now:    time.Now,
	}
}

// CreateOrderItemInput is one requested line. Pointer fields distinguish a
// missing number from zero.
type CreateOrderItemInput struct {
	ID         string `json:"id" validate:"max=64"`
	Name       string `json:"name" validate:"max=200"`
	PriceCents *int64 `json:"price_cents"`
	Quantity   *int   `json:"quantity"`
}

// CustomerInput is the optional buyer contact.
type CustomerInput struct {
	Name  string `json:"name" validate:"max=200"`
	Phone string `json:"phone" validate:"max=50"`
}

// CreateOrderInput holds the parameters for creating an order.
type CreateOrderInput struct {
	Items    []CreateOrderItemInput `json:"items" validate:"max=100,dive"`
	Customer *CustomerInput         `json:"customer"`
}

// CreateOrder validates input, stores the order for userID and publishes an
// order.created event. A publish failure is logged and does not fail the call.
func (s *OrderService) CreateOrder(ctx context.Context, userID string, input CreateOrderInput) (*domain.Order, error) {
	if userID == "" {
		return nil, apperrors.Unauthorized(MsgMissingIdentity)
	}

	items, err := validateItems(input.Items)
	if err != nil {
		return nil, err
	}

	order := domain.NewOrder(userID, items, normalizeCustomer(input.Customer), s.now())

	if err := s.repo.Create(ctx, order); err != nil {
		return nil, err
	}

	log := logger.Ctx(ctx, s.logger)
	log.InfoContext(ctx, "order created",
		slog.String("order_id", order.ID),
		slog.Int("items", len(order.Items)),
		slog.Int64("total_cents", int64(order.TotalCents)),
	)

	if s.events != nil {
		if err := s.events.PublishOrderCreated(ctx, order); err != nil {
			log.WarnContext(ctx, "failed to publish order.created event",
				slog.String("order_id", order.ID),
				slog.String("error", err.Error()),
			)
		}
	}

	return order, nil
}

// ListOrders returns the user's orders, newest first.
func (s *OrderService) ListOrders(ctx context.Context, userID string) ([]domain.Order, error) {
	if userID == "" {
		return nil, apperrors.Unauthorized(MsgMissingIdentity)
	}
	return s.repo.ListByUser(ctx, userID)
}

// GetOrder returns one of the user's orders. Orders belonging to someone
// else are reported as not found.
func (s *OrderService) GetOrder(ctx context.Context, userID, id string) (*domain.Order, error) {
	if userID == "" {
		return nil, apperrors.Unauthorized(MsgMissingIdentity)
	}
	order, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if order.UserID != userID {
		return nil, apperrors.NotFound("order", id)
	}
	return order, nil
}

func validateItems(in []CreateOrderItemInput) ([]domain.OrderItem, error) {
	if len(in) == 0 {
		return nil, apperrors.InvalidInput(MsgItemsRequired)
	}
	for _, it := range in {
		if strings.TrimSpace(it.ID) == "" || strings.TrimSpace(it.Name) == "" {
			return nil, apperrors.InvalidInput(MsgItemIdentity)
		}
		if it.PriceCents == nil || it.Quantity == nil {
			return nil, apperrors.InvalidInput(MsgItemNumbers)
		}
	}

	items := make([]domain.OrderItem, len(in))
	for i, it := range in {
		if *it.PriceCents < 0 {
			return nil, apperrors.InvalidInput(MsgNegativePrice)
		}
		if money.Cents(*it.PriceCents) > domain.MaxPriceCents {
			return nil, apperrors.InvalidInput(MsgPriceTooHigh)
		}
		if *it.Quantity < 1 {
			return nil, apperrors.InvalidInput(MsgQuantityTooLow)
		}
		if *it.Quantity > domain.MaxQuantity {
			return nil, apperrors.InvalidInput(MsgQuantityTooHigh)
		}
		items[i] = domain.OrderItem{
			ID:         strings.TrimSpace(it.ID),
			Name:       strings.TrimSpace(it.Name),
			PriceCents: money.Cents(*it.PriceCents),
			Quantity:   *it.Quantity,
		}
	}
	if _, err := domain.SumItems(items); err != nil {
		return nil, apperrors.InvalidInput(MsgTotalTooLarge)
	}
	return items, nil
}

func normalizeCustomer(in *CustomerInput) *domain.Customer {
	if in == nil {
		return nil
	}
	c := &domain.Customer{
		Name:  strings.TrimSpace(in.Name),
		Phone: strings.TrimSpace(in.Phone),
	}
	if c.Name == "" && c.Phone == "" {
		return nil
	}
	return c
}
