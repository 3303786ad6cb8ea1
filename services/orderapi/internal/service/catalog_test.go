package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/agrostore/services/orderapi/internal/domain"
)

type mockCatalogRepository struct {
	mock.Mock
}

func (m *mockCatalogRepository) ListProducts(ctx context.Context) ([]domain.Product, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Product), args.Error(1)
}

func (m *mockCatalogRepository) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Product), args.Error(1)
}

var catalog = []domain.Product{
	{ID: "p1", Name: "Cacao en grano", Category: "Cacao y derivados", PriceCents: 1990},
	{ID: "p2", Name: "Café orgánico", Category: "Café", PriceCents: 1450},
	{ID: "p3", Name: "Miel de bosque", Category: "Miel", PriceCents: 890},
	{ID: "p4", Name: "Aguaymanto", Category: "Frutas", PriceCents: 550},
}

func TestCatalogService_ListProducts(t *testing.T) {
	repo := new(mockCatalogRepository)
	repo.On("ListProducts", mock.Anything).Return(catalog, nil)
	svc := NewCatalogService(repo)

	all, err := svc.ListProducts(context.Background(), "")
	require.NoError(t, err)
	assert.Len(t, all, 4)

	byName, err := svc.ListProducts(context.Background(), "Café")
	require.NoError(t, err)
	require.Len(t, byName, 1)
	assert.Equal(t, "p2", byName[0].ID)

	byID, err := svc.ListProducts(context.Background(), "cacao y derivados")
	require.NoError(t, err)
	require.Len(t, byID, 1)
	assert.Equal(t, "p1", byID[0].ID)

	none, err := svc.ListProducts(context.Background(), "Verduras")
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}

func TestCatalogService_ListCategories(t *testing.T) {
	repo := new(mockCatalogRepository)
	repo.On("ListProducts", mock.Anything).Return(catalog, nil)

	cats, err := NewCatalogService(repo).ListCategories(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []domain.Category{
		{ID: "cacao y derivados", Name: "Cacao y derivados"},
		{ID: "café", Name: "Café"},
		{ID: "miel", Name: "Miel"},
		{ID: "frutas", Name: "Frutas"},
	}, cats)
}

func TestCatalogService_Errors(t *testing.T) {
	repo := new(mockCatalogRepository)
	repo.On("ListProducts", mock.Anything).Return(nil, errors.New("db down"))
	svc := NewCatalogService(repo)

	_, err := svc.ListProducts(context.Background(), "")
	assert.Error(t, err)
	_, err = svc.ListCategories(context.Background())
	assert.Error(t, err)
}

func TestCatalogService_GetProduct(t *testing.T) {
	repo := new(mockCatalogRepository)
	p := catalog[2]
	repo.On("GetProduct", mock.Anything, "p3").Return(&p, nil)

	got, err := NewCatalogService(repo).GetProduct(context.Background(), "p3")
	require.NoError(t, err)
	assert.Equal(t, "Miel de bosque", got.Name)
}
