package service

import (
	"context"

	"github.com/utafrali/agrostore/services/orderapi/internal/domain"
	"github.com/utafrali/agrostore/services/orderapi/internal/repository"
)

// CatalogService serves products and categories.
type CatalogService struct {
	repo repository.CatalogRepository
}

// NewCatalogService creates a catalog service over repo, normally the
// Redis-cached repository.
func NewCatalogService(repo repository.CatalogRepository) *CatalogService {
	return &CatalogService{repo: repo}
}

// ListProducts returns the catalog, filtered by category when one is given.
func (s *CatalogService) ListProducts(ctx context.Context, category string) ([]domain.Product, error) {
	products, err := s.repo.ListProducts(ctx)
	if err != nil {
		return nil, err
	}
	if category == "" {
		return products, nil
	}

	out := make([]domain.Product, 0, len(products))
	for _, p := range products {
		if p.InCategory(category) {
			out = append(out, p)
		}
	}
	return out, nil
}

// GetProduct returns one product.
func (s *CatalogService) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	return s.repo.GetProduct(ctx, id)
}

// ListCategories returns the distinct categories of the catalog.
func (s *CatalogService) ListCategories(ctx context.Context) ([]domain.Category, error) {
	products, err := s.repo.ListProducts(ctx)
	if err != nil {
		return nil, err
	}
	return domain.CategoriesOf(products), nil
}
