package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/utafrali/agrostore/pkg/database"
	apperrors "github.com/utafrali/agrostore/pkg/errors"
	"github.com/utafrali/agrostore/pkg/money"
	"github.com/utafrali/agrostore/services/orderapi/internal/domain"
)

const (
	insertOrderSQL = `
		INSERT INTO orders (id, user_id, status, total_cents, customer_name, customer_phone, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	insertOrderItemSQL = `
		INSERT INTO order_items (order_id, position, product_id, name, price_cents, quantity)
		VALUES ($1, $2, $3, $4, $5, $6)`

	getOrderSQL = `
		SELECT
			o.id, o.user_id, o.status, o.total_cents, o.customer_name, o.customer_phone, o.created_at,
			COALESCE(
				JSONB_AGG(
					JSONB_BUILD_OBJECT(
						'id', oi.product_id,
						'name', oi.name,
						'price_cents', oi.price_cents,
						'quantity', oi.quantity
					) ORDER BY oi.position
				) FILTER (WHERE oi.order_id IS NOT NULL),
				'[]'::jsonb
			) AS items
		FROM orders o
		LEFT JOIN order_items oi ON o.id = oi.order_id
		WHERE o.id = $1
		GROUP BY o.id, o.user_id, o.status, o.total_cents, o.customer_name, o.customer_phone, o.created_at`

	listOrdersSQL = `
		SELECT id, user_id, status, total_cents, customer_name, customer_phone, created_at
		FROM orders
		WHERE user_id = $1
		ORDER BY created_at DESC, id`

	listOrderItemsSQL = `
		SELECT order_id, product_id, name, price_cents, quantity
		FROM order_items
		WHERE order_id = ANY($1)
		ORDER BY order_id, position`
)

// OrderRepository implements repository.OrderRepository using PostgreSQL.
type OrderRepository struct {
	pool   database.DBTX
	tracer *database.QueryTracer
}

// NewOrderRepository creates a new PostgreSQL-backed order repository.
// tracer may be nil.
func NewOrderRepository(pool database.DBTX, tracer *database.QueryTracer) *OrderRepository {
	return &OrderRepository{pool: pool, tracer: tracer}
}

// Create inserts the order and its items in one transaction.
func (r *OrderRepository) Create(ctx context.Context, o *domain.Order) (err error) {
	ctx, end := r.tracer.Trace(ctx, "CreateOrder", insertOrderSQL)
	defer func() { end(err) }()

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // no-op after commit

	name, phone := customerColumns(o.Customer)
	if _, err = tx.Exec(ctx, insertOrderSQL,
		o.ID, o.UserID, o.Status, int64(o.TotalCents), name, phone, o.CreatedAt,
	); err != nil {
		return fmt.Errorf("insert order: %w", err)
	}

	for i, item := range o.Items {
		if _, err = tx.Exec(ctx, insertOrderItemSQL,
			o.ID, i, item.ID, item.Name, int64(item.PriceCents), item.Quantity,
		); err != nil {
			return fmt.Errorf("insert order item %d: %w", i, err)
		}
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// GetByID retrieves an order with its items in a single query.
func (r *OrderRepository) GetByID(ctx context.Context, id string) (_ *domain.Order, err error) {
	ctx, end := r.tracer.Trace(ctx, "GetOrder", getOrderSQL)
	defer func() { end(err) }()

	var (
		o         domain.Order
		total     int64
		name      *string
		phone     *string
		itemsJSON []byte
	)
	err = r.pool.QueryRow(ctx, getOrderSQL, id).Scan(
		&o.ID, &o.UserID, &o.Status, &total, &name, &phone, &o.CreatedAt, &itemsJSON,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("order", id)
		}
		return nil, fmt.Errorf("scan order: %w", err)
	}

	o.TotalCents = money.Cents(total)
	o.Customer = customerFrom(name, phone)
	o.Items = []domain.OrderItem{}
	if len(itemsJSON) > 0 {
		if err = json.Unmarshal(itemsJSON, &o.Items); err != nil {
			return nil, fmt.Errorf("unmarshal order items: %w", err)
		}
	}
	return &o, nil
}

// ListByUser returns the user's orders newest first. Items are loaded with
// one batch query.
func (r *OrderRepository) ListByUser(ctx context.Context, userID string) (_ []domain.Order, err error) {
	ctx, end := r.tracer.Trace(ctx, "ListOrders", listOrdersSQL)
	defer func() { end(err) }()

	rows, err := r.pool.Query(ctx, listOrdersSQL, userID)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	orders := make([]domain.Order, 0)
	for rows.Next() {
		var (
			o     domain.Order
			total int64
			name  *string
			phone *string
		)
		if err = rows.Scan(&o.ID, &o.UserID, &o.Status, &total, &name, &phone, &o.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan order row: %w", err)
		}
		o.TotalCents = money.Cents(total)
		o.Customer = customerFrom(name, phone)
		o.Items = []domain.OrderItem{}
		orders = append(orders, o)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate order rows: %w", err)
	}
	if len(orders) == 0 {
		return orders, nil
	}

	ids := make([]string, len(orders))
	index := make(map[string]int, len(orders))
	for i := range orders {
		ids[i] = orders[i].ID
		index[orders[i].ID] = i
	}

	itemRows, err := r.pool.Query(ctx, listOrderItemsSQL, ids)
	if err != nil {
		return nil, fmt.Errorf("batch load order items: %w", err)
	}
	defer itemRows.Close()

	for itemRows.Next() {
		var (
			orderID string
			item    domain.OrderItem
			price   int64
		)
		if err = itemRows.Scan(&orderID, &item.ID, &item.Name, &price, &item.Quantity); err != nil {
			return nil, fmt.Errorf("scan order item: %w", err)
		}
		item.PriceCents = money.Cents(price)
		if i, ok := index[orderID]; ok {
			orders[i].Items = append(orders[i].Items, item)
		}
	}
	if err = itemRows.Err(); err != nil {
		return nil, fmt.Errorf("iterate order item rows: %w", err)
	}

	return orders, nil
}

func customerColumns(c *domain.Customer) (*string, *string) {
	if c == nil {
		return nil, nil
	}
	return &c.Name, &c.Phone
}

func customerFrom(name, phone *string) *domain.Customer {
	if name == nil && phone == nil {
		return nil
	}
	c := &domain.Customer{}
	if name != nil {
		c.Name = *name
	}
	if phone != nil {
		c.Phone = *phone
	}
	return c
}
