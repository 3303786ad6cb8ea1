package event

import (
	"context"
	"fmt"
	"log/slog"

	pkgkafka "github.com/utafrali/agrostore/pkg/kafka"
	"github.com/utafrali/agrostore/pkg/logger"
	"github.com/utafrali/agrostore/pkg/money"
	"github.com/utafrali/agrostore/services/orderapi/internal/domain"
)

// TopicOrderCreated carries a snapshot of every newly placed order.
var TopicOrderCreated = pkgkafka.Topic("order", "created")

const (
	AggregateTypeOrder = "order"
	SourceOrderAPI     = "orderapi"
)

// OrderCreatedData is the payload for an order.created event.
type OrderCreatedData struct {
	ID         string          `json:"id"`
	UserID     string          `json:"user_id"`
	Status     string          `json:"status"`
	TotalCents money.Cents     `json:"total_cents"`
	Items      []OrderItemData `json:"items"`
	Customer   *CustomerData   `json:"customer,omitempty"`
}

// OrderItemData is the event payload for an order item.
type OrderItemData struct {
	ProductID  string      `json:"product_id"`
	Name       string      `json:"name"`
	PriceCents money.Cents `json:"price_cents"`
	Quantity   int         `json:"quantity"`
}

// CustomerData is the event payload for the buyer.
type CustomerData struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

// Publisher sends an event to a topic. *pkgkafka.Producer implements it.
type Publisher interface {
	Publish(ctx context.Context, topic string, event *pkgkafka.Event) error
}

// Producer publishes order domain events.
type Producer struct {
	publisher Publisher
	logger    *slog.Logger
}

// NewProducer creates a new event producer for the order API.
func NewProducer(publisher Publisher, logger *slog.Logger) *Producer {
	return &Producer{publisher: publisher, logger: logger}
}

// PublishOrderCreated publishes an order.created event with the order snapshot.
func (p *Producer) PublishOrderCreated(ctx context.Context, order *domain.Order) error {
	items := make([]OrderItemData, len(order.Items))
	for i, item := range order.Items {
		items[i] = OrderItemData{
			ProductID:  item.ID,
			Name:       item.Name,
			PriceCents: item.PriceCents,
			Quantity:   item.Quantity,
		}
	}

	data := OrderCreatedData{
		ID:         order.ID,
		UserID:     order.UserID,
		Status:     order.Status,
		TotalCents: order.TotalCents,
		Items:      items,
	}
	if order.Customer != nil {
		data.Customer = &CustomerData{Name: order.Customer.Name, Phone: order.Customer.Phone}
	}

	event, err := pkgkafka.NewEvent(TopicOrderCreated, order.ID, AggregateTypeOrder, SourceOrderAPI, data)
	if err != nil {
		return fmt.Errorf("create order.created event: %w", err)
	}
	if id := logger.CorrelationIDFromContext(ctx); id != "" {
		event.WithCorrelationID(id)
	}

	if err := p.publisher.Publish(ctx, TopicOrderCreated, event); err != nil {
		return fmt.Errorf("publish order.created event: %w", err)
	}

	p.logger.DebugContext(ctx, "published order.created event",
		slog.String("order_id", order.ID),
		slog.String("user_id", order.UserID),
	)
	return nil
}
