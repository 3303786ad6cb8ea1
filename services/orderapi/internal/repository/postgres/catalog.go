package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/utafrali/agrostore/pkg/database"
	apperrors "github.com/utafrali/agrostore/pkg/errors"
	"github.com/utafrali/agrostore/pkg/money"
	"github.com/utafrali/agrostore/services/orderapi/internal/domain"
)

const (
	listProductsSQL = `
		SELECT id, name, category, price_cents, unit, image_url, description
		FROM products
		ORDER BY id`

	getProductSQL = `
		SELECT id, name, category, price_cents, unit, image_url, description
		FROM products
		WHERE id = $1`
)

// CatalogRepository implements repository.CatalogRepository using PostgreSQL.
type CatalogRepository struct {
	pool   database.DBTX
	tracer *database.QueryTracer
}

// NewCatalogRepository creates a new PostgreSQL-backed catalog repository.
func NewCatalogRepository(pool database.DBTX, tracer *database.QueryTracer) *CatalogRepository {
	return &CatalogRepository{pool: pool, tracer: tracer}
}

// ListProducts returns every product ordered by id.
func (r *CatalogRepository) ListProducts(ctx context.Context) (_ []domain.Product, err error) {
	ctx, end := r.tracer.Trace(ctx, "ListProducts", listProductsSQL)
	defer func() { end(err) }()

	rows, err := r.pool.Query(ctx, listProductsSQL)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	products := make([]domain.Product, 0)
	for rows.Next() {
		p, scanErr := scanProduct(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("scan product row: %w", scanErr)
		}
		products = append(products, *p)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate product rows: %w", err)
	}
	return products, nil
}

// GetProduct returns one product.
func (r *CatalogRepository) GetProduct(ctx context.Context, id string) (_ *domain.Product, err error) {
	ctx, end := r.tracer.Trace(ctx, "GetProduct", getProductSQL)
	defer func() { end(err) }()

	p, err := scanProduct(r.pool.QueryRow(ctx, getProductSQL, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("product", id)
		}
		return nil, fmt.Errorf("scan product: %w", err)
	}
	return p, nil
}

func scanProduct(row pgx.Row) (*domain.Product, error) {
	var (
		p     domain.Product
		price int64
	)
	if err := row.Scan(&p.ID, &p.Name, &p.Category, &price, &p.Unit, &p.ImageURL, &p.Description); err != nil {
		return nil, err
	}
	p.PriceCents = money.Cents(price)
	return &p, nil
}
