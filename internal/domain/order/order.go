// Package order holds the order aggregate: an Order together with its
// exclusively-owned Address and line Items, persisted and deleted as one
// unit. The package also defines the repository contract and the service
// that orchestrates order creation.
package order

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/storelab/orders-api/internal/domain/cep"
)

// Status is the order lifecycle state.
type Status string

const (
	StatusPending    Status = "pending"
	StatusConfirmed  Status = "confirmed"
	StatusProcessing Status = "processing"
	StatusShipped    Status = "shipped"
	StatusDelivered  Status = "delivered"
	StatusCancelled  Status = "cancelled"
)

// Valid reports whether s is one of the enumerated statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusProcessing,
		StatusShipped, StatusDelivered, StatusCancelled:
		return true
	}
	return false
}

// Sentinel errors shared across the service and repository layers.
var (
	ErrNotFound             = errors.New("order not found")
	ErrEmptyOrder           = errors.New("order requires at least one item")
	ErrInvalidQuantity      = errors.New("quantity must be at least 1")
	ErrInvalidUnitPrice     = errors.New("unit price must not be negative")
	ErrInvalidStatus        = errors.New("invalid order status")
	ErrDuplicateOrderNumber = errors.New("order number already exists")
)

// Order is the aggregate root.
type Order struct {
	ID            int64
	Number        string
	CustomerName  string
	CustomerEmail string
	CustomerPhone *string
	TotalAmount   decimal.Decimal
	ShippingCost  decimal.Decimal
	Status        Status
	CreatedAt     time.Time
	UpdatedAt     time.Time

	Address *Address
	Items   []Item
}

// Address is the shipping address owned 1:1 by an order. It has no
// independent lifecycle: it is created with the order and removed by the
// storage cascade on delete.
type Address struct {
	ID           int64
	CEP          string
	Street       string
	Number       *string
	Complement   *string
	Neighborhood string
	City         string
	State        string
}

// Item is a single order line. TotalPrice is fixed at construction and
// only changes if quantity or unit price are reset through NewItem.
type Item struct {
	ID           int64
	ProductID    int64
	ProductName  string
	ProductImage *string
	Quantity     int
	UnitPrice    decimal.Decimal
	TotalPrice   decimal.Decimal
}

// NewItem builds a line item, validating the quantity and computing the
// immutable total price (quantity x unit price, 2 decimal places).
func NewItem(productID int64, name string, image *string, quantity int, unitPrice decimal.Decimal) (Item, error) {
	if quantity < 1 {
		return Item{}, ErrInvalidQuantity
	}
	if unitPrice.IsNegative() {
		return Item{}, ErrInvalidUnitPrice
	}
	unitPrice = unitPrice.Round(2)
	return Item{
		ProductID:    productID,
		ProductName:  name,
		ProductImage: image,
		Quantity:     quantity,
		UnitPrice:    unitPrice,
		TotalPrice:   unitPrice.Mul(decimal.NewFromInt(int64(quantity))).Round(2),
	}, nil
}

// AddItem appends a line item to the order. The caller must recompute the
// order total afterwards.
func (o *Order) AddItem(item Item) {
	o.Items = append(o.Items, item)
}

// AttachAddress merges resolver output with the user-supplied house number
// and complement into the owned address.
func (o *Order) AttachAddress(resolved *cep.Address, number, complement *string) {
	o.Address = &Address{
		CEP:          resolved.CEP,
		Street:       resolved.Street,
		Number:       number,
		Complement:   complement,
		Neighborhood: resolved.Neighborhood,
		City:         resolved.City,
		State:        resolved.State,
	}
}

// Subtotal returns the sum of line-item totals, excluding shipping.
func (o *Order) Subtotal() decimal.Decimal {
	sum := decimal.Zero
	for _, item := range o.Items {
		sum = sum.Add(item.TotalPrice)
	}
	return sum
}

// RecomputeTotal sets TotalAmount = subtotal + shipping cost. It must be
// called after every item or shipping-cost change and before persistence.
func (o *Order) RecomputeTotal() {
	o.TotalAmount = o.Subtotal().Add(o.ShippingCost).Round(2)
}

// SortField selects the list ordering column.
type SortField string

const (
	SortByCreatedAt   SortField = "created_at"
	SortByTotalAmount SortField = "total_amount"
)

// SortDir is the list ordering direction.
type SortDir string

const (
	SortAsc  SortDir = "asc"
	SortDesc SortDir = "desc"
)

// ListParams controls filtering, ordering, and pagination for List.
// Zero values fall back to the documented defaults (created_at desc,
// limit 10, offset 0); the repository clamps Limit to its maximum.
type ListParams struct {
	Status  string
	OrderBy SortField
	Sort    SortDir
	Limit   int
	Offset  int
}

// Update carries a partial order mutation. Nil fields are left untouched.
type Update struct {
	CustomerName  *string
	CustomerEmail *string
	// CustomerPhone carries two pointer levels: a nil outer pointer
	// leaves the phone untouched, a nil inner pointer clears it.
	CustomerPhone **string
	Status        *Status
}

// Empty reports whether the update carries no fields.
func (u Update) Empty() bool {
	return u.CustomerName == nil && u.CustomerEmail == nil &&
		u.CustomerPhone == nil && u.Status == nil
}

// Repository defines transactional persistence for the order aggregate.
type Repository interface {
	// Create persists the full aggregate atomically, assigning IDs and
	// timestamps on o. Returns ErrDuplicateOrderNumber when the order
	// number collides with an existing one.
	Create(ctx context.Context, o *Order) error
	// Get returns the full aggregate or ErrNotFound.
	Get(ctx context.Context, id int64) (*Order, error)
	// List returns order summaries (no address or items) and the total
	// count matching the filter.
	List(ctx context.Context, params ListParams) ([]Order, int, error)
	// Update applies a partial mutation, refreshes updated_at, and returns
	// the full aggregate. Returns ErrNotFound when id does not exist.
	Update(ctx context.Context, id int64, upd Update) (*Order, error)
	// Delete removes the order and, via cascade, its address and items.
	// Returns ErrNotFound when id does not exist.
	Delete(ctx context.Context, id int64) error
}
