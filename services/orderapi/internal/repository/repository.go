package repository

import (
	"context"

	"github.com/utafrali/agrostore/services/orderapi/internal/domain"
)

// OrderRepository defines the interface for order persistence operations.
type OrderRepository interface {
	// Create inserts a new order and its items atomically.
	Create(ctx context.Context, order *domain.Order) error

	// GetByID retrieves an order and its items. It returns an error matching
	// apperrors.ErrNotFound when no such order exists.
	GetByID(ctx context.Context, id string) (*domain.Order, error)

	// ListByUser returns the user's orders, newest first, with items.
	ListByUser(ctx context.Context, userID string) ([]domain.Order, error)
}

// CatalogRepository defines read access to the product catalog.
type CatalogRepository interface {
	// ListProducts returns every product ordered by id.
	ListProducts(ctx context.Context) ([]domain.Product, error)

	// GetProduct returns one product or an error matching apperrors.ErrNotFound.
	GetProduct(ctx context.Context, id string) (*domain.Product, error)
}
