package order

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/storelab/orders-api/internal/domain/cep"
	"github.com/storelab/orders-api/internal/domain/shipping"
)

// How many order numbers to try before giving up on a create that keeps
// colliding on the unique constraint.
const maxCreateAttempts = 3

var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// ValidationError reports malformed input with field-level detail. It is
// detected before any side effect occurs.
type ValidationError struct {
	Fields map[string][]string
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for field := range e.Fields {
		names = append(names, field)
	}
	sort.Strings(names)
	return fmt.Sprintf("invalid request: %s", strings.Join(names, ", "))
}

func (e *ValidationError) add(field, msg string) {
	if e.Fields == nil {
		e.Fields = make(map[string][]string)
	}
	e.Fields[field] = append(e.Fields[field], msg)
}

func (e *ValidationError) orNil() error {
	if len(e.Fields) == 0 {
		return nil
	}
	return e
}

// AddressResolutionError wraps a cep resolution failure surfaced during
// order creation. Nothing has been persisted when it is returned.
type AddressResolutionError struct {
	Err error
}

func (e *AddressResolutionError) Error() string {
	return fmt.Sprintf("resolve address: %s", e.Err)
}

func (e *AddressResolutionError) Unwrap() error { return e.Err }

// CreateItem is one requested order line.
type CreateItem struct {
	ProductID    int64
	ProductName  string
	ProductImage *string
	Quantity     int
	UnitPrice    decimal.Decimal
}

// CreateAddress is the user-supplied part of the shipping address. Street,
// neighborhood, city, and state come from the resolver.
type CreateAddress struct {
	CEP        string
	Number     *string
	Complement *string
}

// CreateRequest holds the input for creating an order.
type CreateRequest struct {
	CustomerName  string
	CustomerEmail string
	CustomerPhone *string
	Address       CreateAddress
	Items         []CreateItem
}

// Service composes the resolver, the shipping calculator, and the
// repository into the order lifecycle operations.
type Service struct {
	resolver cep.Resolver
	shipping *shipping.Calculator
	orders   Repository
}

// NewService creates a Service with the required dependencies.
func NewService(resolver cep.Resolver, calc *shipping.Calculator, orders Repository) *Service {
	return &Service{
		resolver: resolver,
		shipping: calc,
		orders:   orders,
	}
}

// Create runs the full order-creation workflow: validate the request,
// resolve the address, build the aggregate, quote shipping, generate the
// order number, and persist everything in one transaction. Validation and
// resolution failures happen before any durable effect.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*Order, error) {
	if err := validateCreate(req); err != nil {
		return nil, err
	}

	resolved, err := s.resolver.Resolve(ctx, req.Address.CEP)
	if err != nil {
		return nil, &AddressResolutionError{Err: err}
	}

	o := &Order{
		CustomerName:  req.CustomerName,
		CustomerEmail: req.CustomerEmail,
		CustomerPhone: req.CustomerPhone,
		Status:        StatusPending,
	}
	for _, item := range req.Items {
		built, err := NewItem(item.ProductID, item.ProductName, item.ProductImage, item.Quantity, item.UnitPrice)
		if err != nil {
			return nil, err
		}
		o.AddItem(built)
	}
	o.AttachAddress(resolved, req.Address.Number, req.Address.Complement)

	quote := s.shipping.Quote(resolved.State, o.Subtotal())
	o.ShippingCost = quote.FinalCost
	o.RecomputeTotal()

	// The generator does not guarantee uniqueness; regenerate on a
	// storage-level collision.
	for attempt := 1; ; attempt++ {
		o.Number = GenerateNumber(time.Now())
		err = s.orders.Create(ctx, o)
		if err == nil {
			return o, nil
		}
		if !errors.Is(err, ErrDuplicateOrderNumber) || attempt == maxCreateAttempts {
			return nil, errors.Wrap(err, "create order")
		}
	}
}

// Get returns the full order aggregate or ErrNotFound.
func (s *Service) Get(ctx context.Context, id int64) (*Order, error) {
	return s.orders.Get(ctx, id)
}

// List returns order summaries and the total count matching the filter.
func (s *Service) List(ctx context.Context, params ListParams) ([]Order, int, error) {
	return s.orders.List(ctx, params)
}

// Update applies a partial mutation after validating the supplied fields.
// An out-of-range status fails with ErrInvalidStatus before storage is
// touched, leaving the order unchanged.
func (s *Service) Update(ctx context.Context, id int64, upd Update) (*Order, error) {
	if upd.Status != nil && !upd.Status.Valid() {
		return nil, errors.Wrapf(ErrInvalidStatus, "status %q", *upd.Status)
	}
	if err := validateUpdate(upd); err != nil {
		return nil, err
	}
	return s.orders.Update(ctx, id, upd)
}

// Delete removes the order and its owned address and items. Deleting an
// id that does not exist is ErrNotFound, not a no-op.
func (s *Service) Delete(ctx context.Context, id int64) error {
	return s.orders.Delete(ctx, id)
}

func validateCreate(req CreateRequest) error {
	verr := &ValidationError{}

	validateCustomerName(verr, req.CustomerName, true)
	validateCustomerEmail(verr, req.CustomerEmail, true)

	if strings.TrimSpace(req.Address.CEP) == "" {
		verr.add("address.cep", "required")
	}

	if len(req.Items) == 0 {
		verr.add("items", ErrEmptyOrder.Error())
	}
	for i, item := range req.Items {
		if strings.TrimSpace(item.ProductName) == "" {
			verr.add(fmt.Sprintf("items[%d].product_name", i), "required")
		}
		if item.Quantity < 1 {
			verr.add(fmt.Sprintf("items[%d].quantity", i), ErrInvalidQuantity.Error())
		}
		if item.UnitPrice.IsNegative() {
			verr.add(fmt.Sprintf("items[%d].unit_price", i), ErrInvalidUnitPrice.Error())
		}
	}

	return verr.orNil()
}

func validateUpdate(upd Update) error {
	verr := &ValidationError{}
	if upd.CustomerName != nil {
		validateCustomerName(verr, *upd.CustomerName, false)
	}
	if upd.CustomerEmail != nil {
		validateCustomerEmail(verr, *upd.CustomerEmail, false)
	}
	return verr.orNil()
}

func validateCustomerName(verr *ValidationError, name string, required bool) {
	name = strings.TrimSpace(name)
	if name == "" {
		if required {
			verr.add("customer_name", "required")
		} else {
			verr.add("customer_name", "must be between 3 and 100 characters")
		}
		return
	}
	if len(name) < 3 || len(name) > 100 {
		verr.add("customer_name", "must be between 3 and 100 characters")
	}
}

func validateCustomerEmail(verr *ValidationError, email string, required bool) {
	email = strings.TrimSpace(email)
	if email == "" {
		if required {
			verr.add("customer_email", "required")
		} else {
			verr.add("customer_email", "not a valid email address")
		}
		return
	}
	if !emailPattern.MatchString(email) {
		verr.add("customer_email", "not a valid email address")
	}
}
