package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	pgxmock "github.com/pashagolub/pgxmock/v3"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/storelab/orders-api/internal/domain/order"
)

func newMockRepo(t *testing.T) (*OrderRepository, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return NewOrderRepository(mock), mock
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func sampleOrder() *order.Order {
	item, _ := order.NewItem(1, "Widget", nil, 2, dec("50.00"))
	o := &order.Order{
		Number:        "ORD-20250307-AB12",
		CustomerName:  "João Silva",
		CustomerEmail: "joao@example.com",
		ShippingCost:  dec("10.00"),
		Status:        order.StatusPending,
		Address: &order.Address{
			CEP:          "01310-100",
			Street:       "Avenida Paulista",
			Neighborhood: "Bela Vista",
			City:         "São Paulo",
			State:        "SP",
		},
	}
	o.AddItem(item)
	o.RecomputeTotal()
	return o
}

func TestCreate_CommitsAggregate(t *testing.T) {
	repo, mock := newMockRepo(t)
	o := sampleOrder()
	now := time.Now()

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO orders").
		WithArgs(o.Number, o.CustomerName, o.CustomerEmail, o.CustomerPhone,
			o.TotalAmount, o.ShippingCost, o.Status).
		WillReturnRows(pgxmock.NewRows([]string{"id", "created_at", "updated_at"}).
			AddRow(int64(7), now, now))
	mock.ExpectQuery("INSERT INTO addresses").
		WithArgs(int64(7), o.Address.CEP, o.Address.Street, o.Address.Number,
			o.Address.Complement, o.Address.Neighborhood, o.Address.City, o.Address.State).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(3)))
	mock.ExpectQuery("INSERT INTO order_items").
		WithArgs(int64(7), int64(1), "Widget", (*string)(nil), 2, dec("50.00"), dec("100.00")).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(11)))
	mock.ExpectCommit()

	require.NoError(t, repo.Create(context.Background(), o))
	assert.Equal(t, int64(7), o.ID)
	assert.Equal(t, int64(3), o.Address.ID)
	assert.Equal(t, int64(11), o.Items[0].ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreate_DuplicateOrderNumber(t *testing.T) {
	repo, mock := newMockRepo(t)
	o := sampleOrder()

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO orders").
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "orders_order_number_key"})
	mock.ExpectRollback()

	err := repo.Create(context.Background(), o)
	require.ErrorIs(t, err, order.ErrDuplicateOrderNumber)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreate_ItemFailureRollsBack(t *testing.T) {
	repo, mock := newMockRepo(t)
	o := sampleOrder()
	now := time.Now()

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO orders").
		WillReturnRows(pgxmock.NewRows([]string{"id", "created_at", "updated_at"}).
			AddRow(int64(7), now, now))
	mock.ExpectQuery("INSERT INTO addresses").
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(3)))
	mock.ExpectQuery("INSERT INTO order_items").
		WillReturnError(&pgconn.PgError{Code: "23514"})
	mock.ExpectRollback()

	err := repo.Create(context.Background(), o)
	require.Error(t, err)
	assert.NotErrorIs(t, err, order.ErrDuplicateOrderNumber)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGet_NotFound(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery("FROM orders WHERE id").
		WithArgs(int64(99)).
		WillReturnError(pgx.ErrNoRows)

	_, err := repo.Get(context.Background(), 99)
	require.ErrorIs(t, err, order.ErrNotFound)
}

func TestGet_LoadsFullAggregate(t *testing.T) {
	repo, mock := newMockRepo(t)
	now := time.Now()

	mock.ExpectQuery("FROM orders WHERE id").
		WithArgs(int64(7)).
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "order_number", "customer_name", "customer_email", "customer_phone",
			"total_amount", "shipping_cost", "status", "created_at", "updated_at",
		}).AddRow(int64(7), "ORD-20250307-AB12", "João Silva", "joao@example.com", nil,
			dec("110.00"), dec("10.00"), order.StatusPending, now, now))
	mock.ExpectQuery("FROM addresses WHERE order_id").
		WithArgs(int64(7)).
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "cep", "street", "number", "complement", "neighborhood", "city", "state",
		}).AddRow(int64(3), "01310-100", "Avenida Paulista", nil, nil, "Bela Vista", "São Paulo", "SP"))
	mock.ExpectQuery("FROM order_items WHERE order_id").
		WithArgs(int64(7)).
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "product_id", "product_name", "product_image", "quantity", "unit_price", "total_price",
		}).AddRow(int64(11), int64(1), "Widget", nil, 2, dec("50.00"), dec("100.00")))

	o, err := repo.Get(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, "ORD-20250307-AB12", o.Number)
	require.NotNil(t, o.Address)
	assert.Equal(t, "SP", o.Address.State)
	require.Len(t, o.Items, 1)
	assert.True(t, dec("100.00").Equal(o.Items[0].TotalPrice))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestList_ClampsLimit(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM orders`).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(250))
	mock.ExpectQuery("ORDER BY created_at DESC LIMIT").
		WithArgs(listMaxLimit, 0).
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "order_number", "customer_name", "customer_email", "customer_phone",
			"total_amount", "shipping_cost", "status", "created_at", "updated_at",
		}))

	orders, total, err := repo.List(context.Background(), order.ListParams{Limit: 1000})
	require.NoError(t, err)
	assert.Empty(t, orders)
	assert.Equal(t, 250, total)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestList_StatusFilterAndSort(t *testing.T) {
	repo, mock := newMockRepo(t)
	now := time.Now()

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM orders WHERE status`).
		WithArgs("pending").
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery("ORDER BY total_amount ASC LIMIT").
		WithArgs("pending", listDefaultLimit, 0).
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "order_number", "customer_name", "customer_email", "customer_phone",
			"total_amount", "shipping_cost", "status", "created_at", "updated_at",
		}).AddRow(int64(7), "ORD-20250307-AB12", "João Silva", "joao@example.com", nil,
			dec("110.00"), dec("10.00"), order.StatusPending, now, now))

	orders, total, err := repo.List(context.Background(), order.ListParams{
		Status:  "pending",
		OrderBy: order.SortByTotalAmount,
		Sort:    order.SortAsc,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, orders, 1)
	assert.Nil(t, orders[0].Address, "summaries omit the address")
	assert.Empty(t, orders[0].Items, "summaries omit the items")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdate_NotFound(t *testing.T) {
	repo, mock := newMockRepo(t)

	name := "Maria"
	mock.ExpectQuery("UPDATE orders SET").
		WithArgs("Maria", int64(99)).
		WillReturnError(pgx.ErrNoRows)

	_, err := repo.Update(context.Background(), 99, order.Update{CustomerName: &name})
	require.ErrorIs(t, err, order.ErrNotFound)
}

func TestDelete(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectExec("DELETE FROM orders").
		WithArgs(int64(7)).
		WillReturnResult(pgxmock.NewResult("DELETE", 1))
	require.NoError(t, repo.Delete(context.Background(), 7))

	mock.ExpectExec("DELETE FROM orders").
		WithArgs(int64(7)).
		WillReturnResult(pgxmock.NewResult("DELETE", 0))
	require.ErrorIs(t, repo.Delete(context.Background(), 7), order.ErrNotFound)

	require.NoError(t, mock.ExpectationsWereMet())
}
