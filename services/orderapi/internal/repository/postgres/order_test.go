package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/agrostore/pkg/database"
	apperrors "github.com/utafrali/agrostore/pkg/errors"
	"github.com/utafrali/agrostore/pkg/money"
	"github.com/utafrali/agrostore/services/orderapi/internal/domain"
)

// --- Test Helpers ---

func newTestOrderRepo(t *testing.T) (*OrderRepository, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := database.NewMockPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return NewOrderRepository(mock, nil), mock
}

func sampleOrder() *domain.Order {
	return &domain.Order{
		ID:         "3f0c9a62-1d7e-4b8f-9f51-2f4f0c1d2e3a",
		Status:     domain.OrderStatusCreated,
		TotalCents: 4870,
		CreatedAt:  time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC),
		UserID:     "user-001",
		Customer:   &domain.Customer{Name: "Ana", Phone: "5555"},
		Items: []domain.OrderItem{
			{ID: "p1", Name: "Cacao en grano", PriceCents: 1990, Quantity: 2},
			{ID: "p3", Name: "Miel de bosque", PriceCents: 890, Quantity: 1},
		},
	}
}

var orderColumns = []string{"id", "user_id", "status", "total_cents", "customer_name", "customer_phone", "created_at"}

// --- Create ---

func TestOrderRepository_Create_Success(t *testing.T) {
	repo, mock := newTestOrderRepo(t)
	o := sampleOrder()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO orders").
		WithArgs(o.ID, o.UserID, o.Status, int64(4870), pgxmock.AnyArg(), pgxmock.AnyArg(), o.CreatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	for i, item := range o.Items {
		mock.ExpectExec("INSERT INTO order_items").
			WithArgs(o.ID, i, item.ID, item.Name, int64(item.PriceCents), item.Quantity).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
	}
	mock.ExpectCommit()

	require.NoError(t, repo.Create(context.Background(), o))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderRepository_Create_BeginError(t *testing.T) {
	repo, mock := newTestOrderRepo(t)

	mock.ExpectBegin().WillReturnError(errors.New("connection refused"))

	err := repo.Create(context.Background(), sampleOrder())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "begin transaction")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderRepository_Create_ItemInsertErrorRollsBack(t *testing.T) {
	repo, mock := newTestOrderRepo(t)
	o := sampleOrder()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO orders").
		WithArgs(o.ID, o.UserID, o.Status, int64(4870), pgxmock.AnyArg(), pgxmock.AnyArg(), o.CreatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("INSERT INTO order_items").
		WithArgs(o.ID, 0, "p1", "Cacao en grano", int64(1990), 2).
		WillReturnError(errors.New("constraint violation"))
	mock.ExpectRollback()

	err := repo.Create(context.Background(), o)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "insert order item 0")
	assert.NoError(t, mock.ExpectationsWereMet())
}

// --- GetByID ---

func TestOrderRepository_GetByID_Success(t *testing.T) {
	repo, mock := newTestOrderRepo(t)
	o := sampleOrder()

	itemsJSON, err := json.Marshal(o.Items)
	require.NoError(t, err)

	name, phone := "Ana", "5555"
	mock.ExpectQuery("FROM orders o").
		WithArgs(o.ID).
		WillReturnRows(pgxmock.NewRows(append(orderColumns, "items")).
			AddRow(o.ID, o.UserID, o.Status, int64(4870), &name, &phone, o.CreatedAt, itemsJSON))

	got, err := repo.GetByID(context.Background(), o.ID)
	require.NoError(t, err)
	assert.Equal(t, o, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderRepository_GetByID_NotFound(t *testing.T) {
	repo, mock := newTestOrderRepo(t)

	mock.ExpectQuery("FROM orders o").
		WithArgs("missing").
		WillReturnError(pgx.ErrNoRows)

	got, err := repo.GetByID(context.Background(), "missing")
	assert.Nil(t, got)
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

// --- ListByUser ---

func TestOrderRepository_ListByUser_BatchesItems(t *testing.T) {
	repo, mock := newTestOrderRepo(t)

	newer := time.Date(2026, 5, 2, 0, 0, 0, 0, time.UTC)
	older := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	name, phone := "Ana", "5555"

	mock.ExpectQuery("FROM orders").
		WithArgs("user-001").
		WillReturnRows(pgxmock.NewRows(orderColumns).
			AddRow("o-2", "user-001", "created", int64(550), &name, &phone, newer).
			AddRow("o-1", "user-001", "created", int64(1990), &name, &phone, older))

	mock.ExpectQuery("FROM order_items").
		WithArgs([]string{"o-2", "o-1"}).
		WillReturnRows(pgxmock.NewRows([]string{"order_id", "product_id", "name", "price_cents", "quantity"}).
			AddRow("o-1", "p1", "Cacao en grano", int64(1990), 1).
			AddRow("o-2", "p4", "Aguaymanto", int64(550), 1))

	orders, err := repo.ListByUser(context.Background(), "user-001")
	require.NoError(t, err)
	require.Len(t, orders, 2)
	assert.Equal(t, "o-2", orders[0].ID)
	assert.Equal(t, money.Cents(550), orders[0].TotalCents)
	require.Len(t, orders[0].Items, 1)
	assert.Equal(t, "p4", orders[0].Items[0].ID)
	require.Len(t, orders[1].Items, 1)
	assert.Equal(t, "p1", orders[1].Items[0].ID)
	assert.Equal(t, &domain.Customer{Name: "Ana", Phone: "5555"}, orders[1].Customer)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderRepository_ListByUser_Empty(t *testing.T) {
	repo, mock := newTestOrderRepo(t)

	mock.ExpectQuery("FROM orders").
		WithArgs("nobody").
		WillReturnRows(pgxmock.NewRows(orderColumns))

	orders, err := repo.ListByUser(context.Background(), "nobody")
	require.NoError(t, err)
	assert.NotNil(t, orders)
	assert.Empty(t, orders)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderRepository_ListByUser_QueryError(t *testing.T) {
	repo, mock := newTestOrderRepo(t)

	mock.ExpectQuery("FROM orders").
		WithArgs("user-001").
		WillReturnError(errors.New("timeout"))

	_, err := repo.ListByUser(context.Background(), "user-001")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "list orders")
}

// --- customer columns ---

func TestCustomerColumns(t *testing.T) {
	n, p := customerColumns(nil)
	assert.Nil(t, n)
	assert.Nil(t, p)
	assert.Nil(t, customerFrom(nil, nil))

	name := "Ana"
	assert.Equal(t, &domain.Customer{Name: "Ana"}, customerFrom(&name, nil))
}
