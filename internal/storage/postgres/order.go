package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/storelab/orders-api/internal/domain/order"
)

// List pagination bounds: the limit is clamped server-side regardless of
// what the caller requests.
const (
	listDefaultLimit = 10
	listMaxLimit     = 100
)

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by PostgreSQL. All
// multi-row writes run inside a single transaction so the aggregate is
// never partially visible.
type OrderRepository struct {
	db DB
}

// NewOrderRepository returns an OrderRepository using the given pool.
func NewOrderRepository(db DB) *OrderRepository {
	return &OrderRepository{db: db}
}

// Create persists the order, its address, and its items as one atomic
// unit, assigning generated IDs and timestamps back onto o. An order
// number collision surfaces as order.ErrDuplicateOrderNumber.
func (r *OrderRepository) Create(ctx context.Context, o *order.Order) error {
	err := withinTx(ctx, r.db, func(tx pgx.Tx) error {
		const insertOrder = `INSERT INTO orders
			(order_number, customer_name, customer_email, customer_phone, total_amount, shipping_cost, status)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			RETURNING id, created_at, updated_at`
		err := tx.QueryRow(ctx, insertOrder,
			o.Number, o.CustomerName, o.CustomerEmail, o.CustomerPhone,
			o.TotalAmount, o.ShippingCost, o.Status,
		).Scan(&o.ID, &o.CreatedAt, &o.UpdatedAt)
		if err != nil {
			if isUniqueViolation(err) {
				return order.ErrDuplicateOrderNumber
			}
			return errors.Wrap(err, "insert order")
		}

		if o.Address != nil {
			const insertAddress = `INSERT INTO addresses
				(order_id, cep, street, number, complement, neighborhood, city, state)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
				RETURNING id`
			a := o.Address
			err = tx.QueryRow(ctx, insertAddress,
				o.ID, a.CEP, a.Street, a.Number, a.Complement, a.Neighborhood, a.City, a.State,
			).Scan(&a.ID)
			if err != nil {
				return errors.Wrap(err, "insert address")
			}
		}

		const insertItem = `INSERT INTO order_items
			(order_id, product_id, product_name, product_image, quantity, unit_price, total_price)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			RETURNING id`
		for i := range o.Items {
			item := &o.Items[i]
			err = tx.QueryRow(ctx, insertItem,
				o.ID, item.ProductID, item.ProductName, item.ProductImage,
				item.Quantity, item.UnitPrice, item.TotalPrice,
			).Scan(&item.ID)
			if err != nil {
				return errors.Wrap(err, "insert order item")
			}
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, order.ErrDuplicateOrderNumber) {
			return order.ErrDuplicateOrderNumber
		}
		return errors.Wrapf(err, "create order %q", o.Number)
	}
	return nil
}

// Get returns the full aggregate (address and items included) or
// order.ErrNotFound.
func (r *OrderRepository) Get(ctx context.Context, id int64) (*order.Order, error) {
	const query = `SELECT id, order_number, customer_name, customer_email, customer_phone,
		total_amount, shipping_cost, status, created_at, updated_at
		FROM orders WHERE id = $1`

	var o order.Order
	err := r.db.QueryRow(ctx, query, id).Scan(
		&o.ID, &o.Number, &o.CustomerName, &o.CustomerEmail, &o.CustomerPhone,
		&o.TotalAmount, &o.ShippingCost, &o.Status, &o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, errors.Wrapf(err, "get order %d", id)
	}

	if err := r.loadAddress(ctx, &o); err != nil {
		return nil, err
	}
	if err := r.loadItems(ctx, &o); err != nil {
		return nil, err
	}
	return &o, nil
}

// List returns order summaries (no address or items) matching the filter,
// plus the total count. The limit defaults to 10 and is clamped to 100.
func (r *OrderRepository) List(ctx context.Context, params order.ListParams) ([]order.Order, int, error) {
	limit := params.Limit
	if limit <= 0 {
		limit = listDefaultLimit
	}
	if limit > listMaxLimit {
		limit = listMaxLimit
	}
	offset := params.Offset
	if offset < 0 {
		offset = 0
	}

	// Identifiers come from a fixed whitelist, never from caller input.
	orderColumn := "created_at"
	if params.OrderBy == order.SortByTotalAmount {
		orderColumn = "total_amount"
	}
	direction := "DESC"
	if params.Sort == order.SortAsc {
		direction = "ASC"
	}

	where := ""
	args := []any{}
	if params.Status != "" {
		where = " WHERE status = $1"
		args = append(args, params.Status)
	}

	var total int
	countQuery := "SELECT COUNT(*) FROM orders" + where
	if err := r.db.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, errors.Wrap(err, "count orders")
	}

	query := fmt.Sprintf(`SELECT id, order_number, customer_name, customer_email, customer_phone,
		total_amount, shipping_cost, status, created_at, updated_at
		FROM orders%s ORDER BY %s %s LIMIT $%d OFFSET $%d`,
		where, orderColumn, direction, len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, errors.Wrap(err, "list orders")
	}
	defer rows.Close()

	var result []order.Order
	for rows.Next() {
		var o order.Order
		if err := rows.Scan(
			&o.ID, &o.Number, &o.CustomerName, &o.CustomerEmail, &o.CustomerPhone,
			&o.TotalAmount, &o.ShippingCost, &o.Status, &o.CreatedAt, &o.UpdatedAt,
		); err != nil {
			return nil, 0, errors.Wrap(err, "scan order")
		}
		result = append(result, o)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, errors.Wrap(err, "list orders")
	}
	return result, total, nil
}

// Update applies the non-nil fields, refreshes updated_at, and returns
// the full aggregate. A missing id is order.ErrNotFound.
func (r *OrderRepository) Update(ctx context.Context, id int64, upd order.Update) (*order.Order, error) {
	if upd.Empty() {
		return r.Get(ctx, id)
	}

	set := []string{}
	args := []any{}
	add := func(column string, value any) {
		args = append(args, value)
		set = append(set, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	if upd.CustomerName != nil {
		add("customer_name", *upd.CustomerName)
	}
	if upd.CustomerEmail != nil {
		add("customer_email", *upd.CustomerEmail)
	}
	if upd.CustomerPhone != nil {
		add("customer_phone", *upd.CustomerPhone)
	}
	if upd.Status != nil {
		add("status", *upd.Status)
	}

	args = append(args, id)
	query := fmt.Sprintf("UPDATE orders SET %s, updated_at = NOW() WHERE id = $%d RETURNING id",
		strings.Join(set, ", "), len(args))

	var updatedID int64
	if err := r.db.QueryRow(ctx, query, args...).Scan(&updatedID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, errors.Wrapf(err, "update order %d", id)
	}
	return r.Get(ctx, id)
}

// Delete removes the order; the address and items go with it via the FK
// cascade. Deleting an absent id is order.ErrNotFound by contract.
func (r *OrderRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, "DELETE FROM orders WHERE id = $1", id)
	if err != nil {
		return errors.Wrapf(err, "delete order %d", id)
	}
	if tag.RowsAffected() == 0 {
		return order.ErrNotFound
	}
	return nil
}

func (r *OrderRepository) loadAddress(ctx context.Context, o *order.Order) error {
	const query = `SELECT id, cep, street, number, complement, neighborhood, city, state
		FROM addresses WHERE order_id = $1`

	var a order.Address
	err := r.db.QueryRow(ctx, query, o.ID).Scan(
		&a.ID, &a.CEP, &a.Street, &a.Number, &a.Complement, &a.Neighborhood, &a.City, &a.State,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil
		}
		return errors.Wrapf(err, "load address for order %d", o.ID)
	}
	o.Address = &a
	return nil
}

func (r *OrderRepository) loadItems(ctx context.Context, o *order.Order) error {
	const query = `SELECT id, product_id, product_name, product_image, quantity, unit_price, total_price
		FROM order_items WHERE order_id = $1 ORDER BY id`

	rows, err := r.db.Query(ctx, query, o.ID)
	if err != nil {
		return errors.Wrapf(err, "load items for order %d", o.ID)
	}
	defer rows.Close()

	for rows.Next() {
		var item order.Item
		if err := rows.Scan(
			&item.ID, &item.ProductID, &item.ProductName, &item.ProductImage,
			&item.Quantity, &item.UnitPrice, &item.TotalPrice,
		); err != nil {
			return errors.Wrap(err, "scan order item")
		}
		o.Items = append(o.Items, item)
	}
	return rows.Err()
}

// isUniqueViolation reports whether err is a PostgreSQL unique constraint
// violation (SQLSTATE 23505).
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
