// Package checkout turns the cart into an order request and submits it.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	apperrors "github.com/utafrali/agrostore/pkg/errors"
	"github.com/utafrali/agrostore/pkg/money"
	"github.com/utafrali/agrostore/services/storefront/internal/api"
	"github.com/utafrali/agrostore/services/storefront/internal/domain"
)

var (
	ErrEmptyCart    = apperrors.InvalidInput("cart is empty")
	ErrMissingName  = apperrors.InvalidInput("name is required")
	ErrMissingPhone = apperrors.InvalidInput("phone is required")

	// ErrSubmissionInProgress rejects a submit while another is outstanding.
	ErrSubmissionInProgress = apperrors.Conflict("order submission already in progress")

	// ErrTransport matches every failure to get an order accepted.
	ErrTransport = errors.New("order submission failed")
)

// TransportError wraps the cause of a failed submission. errors.Is matches
// both ErrTransport and the cause.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %v", ErrTransport, e.Err)
}

func (e *TransportError) Unwrap() []error {
	return []error{ErrTransport, e.Err}
}

// Transport sends the order request.
type Transport interface {
	CreateOrder(ctx context.Context, req api.CreateOrderRequest) (*api.CreateOrderResponse, error)
}

// Cart is the part of the cart store the flow reads and clears.
type Cart interface {
	Lines() []domain.CartLine
	Clear()
}

// Customer holds the contact fields entered at checkout.
type Customer struct {
	Name  string
	Phone string
}

// Result describes an accepted order.
type Result struct {
	OrderID    string
	TotalCents money.Cents
	Status     string
	CreatedAt  time.Time
}

// Flow submits the cart as an order, one submission at a time.
type Flow struct {
	cart       Cart
	transport  Transport
	logger     *slog.Logger
	submitting atomic.Bool
}

// NewFlow creates a checkout flow.
func NewFlow(cart Cart, transport Transport, logger *slog.Logger) *Flow {
	return &Flow{cart: cart, transport: transport, logger: logger}
}

// Submitting reports whether a submission is in flight.
func (f *Flow) Submitting() bool {
	return f.submitting.Load()
}

// Submit validates the cart and customer, sends one order request and clears
// the cart on success. On failure the cart is left as it was.
func (f *Flow) Submit(ctx context.Context, customer Customer) (*Result, error) {
	lines := f.cart.Lines()
	if err := validate(lines, customer); err != nil {
		return nil, err
	}

	if !f.submitting.CompareAndSwap(false, true) {
		return nil, ErrSubmissionInProgress
	}
	defer f.submitting.Store(false)

	req := BuildRequest(lines, customer)

	resp, err := f.transport.CreateOrder(ctx, req)
	if err != nil {
		f.logger.WarnContext(ctx, "order submission failed",
			slog.Int("items", len(req.Items)),
			slog.String("error", err.Error()),
		)
		return nil, &TransportError{Err: err}
	}
	if resp == nil || resp.ID == "" {
		return nil, &TransportError{Err: fmt.Errorf("%w: missing order id", api.ErrMalformedResponse)}
	}

	f.cart.Clear()

	total := requestTotal(req)
	if resp.TotalCents != nil {
		total = *resp.TotalCents
	}

	f.logger.InfoContext(ctx, "order submitted",
		slog.String("order_id", resp.ID.String()),
		slog.Int64("total_cents", int64(total)),
	)

	return &Result{
		OrderID:    resp.ID.String(),
		TotalCents: total,
		Status:     resp.Status,
		CreatedAt:  resp.CreatedAt,
	}, nil
}

func validate(lines []domain.CartLine, customer Customer) error {
	switch {
	case len(lines) == 0:
		return ErrEmptyCart
	case strings.TrimSpace(customer.Name) == "":
		return ErrMissingName
	case strings.TrimSpace(customer.Phone) == "":
		return ErrMissingPhone
	}
	return nil
}

// BuildRequest snapshots lines into the wire request, clamping each price to
// at least zero and each quantity to at least one.
func BuildRequest(lines []domain.CartLine, customer Customer) api.CreateOrderRequest {
	items := make([]api.OrderItem, 0, len(lines))
	for _, l := range lines {
		l = l.Normalized()
		items = append(items, api.OrderItem{
			ID:         l.ID,
			Name:       l.Name,
			PriceCents: l.UnitPriceCents,
			Quantity:   l.Quantity,
		})
	}
	return api.CreateOrderRequest{
		Items: items,
		Customer: &api.Customer{
			Name:  strings.TrimSpace(customer.Name),
			Phone: strings.TrimSpace(customer.Phone),
		},
	}
}

func requestTotal(req api.CreateOrderRequest) money.Cents {
	var total money.Cents
	for _, it := range req.Items {
		total += it.PriceCents.Times(it.Quantity)
	}
	return total
}
