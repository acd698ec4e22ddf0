package order

import (
	"context"
	"testing"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/storelab/orders-api/internal/domain/cep"
	"github.com/storelab/orders-api/internal/domain/shipping"
)

// --- Mock implementations ---

type mockResolver struct {
	address *cep.Address
	err     error
	calls   int
}

func (m *mockResolver) Resolve(_ context.Context, _ string) (*cep.Address, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return m.address, nil
}

type mockRepo struct {
	Repository

	created []Order
	// createErrs is consumed one entry per Create call; nil entries mean
	// success. When exhausted, Create succeeds.
	createErrs []error
}

func (m *mockRepo) Create(_ context.Context, o *Order) error {
	var err error
	if len(m.createErrs) > 0 {
		err = m.createErrs[0]
		m.createErrs = m.createErrs[1:]
	}
	if err != nil {
		return err
	}
	o.ID = int64(len(m.created) + 1)
	m.created = append(m.created, *o)
	return nil
}

func (m *mockRepo) Update(_ context.Context, _ int64, _ Update) (*Order, error) {
	return &Order{}, nil
}

// --- Helpers ---

func paulista() *cep.Address {
	return &cep.Address{
		CEP:          "01310-100",
		Street:       "Avenida Paulista",
		Neighborhood: "Bela Vista",
		City:         "São Paulo",
		State:        "SP",
	}
}

func validRequest(items ...CreateItem) CreateRequest {
	return CreateRequest{
		CustomerName:  "João Silva",
		CustomerEmail: "joao@example.com",
		Address:       CreateAddress{CEP: "01310100"},
		Items:         items,
	}
}

func newService(resolver *mockResolver, repo *mockRepo) *Service {
	return NewService(resolver, shipping.NewCalculator(shipping.DefaultConfig()), repo)
}

// --- Tests ---

func TestCreate_ValidationFailed(t *testing.T) {
	resolver := &mockResolver{address: paulista()}
	repo := &mockRepo{}
	svc := newService(resolver, repo)

	_, err := svc.Create(context.Background(), CreateRequest{})

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "customer_name")
	assert.Contains(t, verr.Fields, "customer_email")
	assert.Contains(t, verr.Fields, "address.cep")
	assert.Contains(t, verr.Fields, "items")

	// Fail fast: no lookup, nothing persisted.
	assert.Zero(t, resolver.calls)
	assert.Empty(t, repo.created)
}

func TestCreate_InvalidItemQuantity(t *testing.T) {
	repo := &mockRepo{}
	svc := newService(&mockResolver{address: paulista()}, repo)

	req := validRequest(CreateItem{ProductID: 1, ProductName: "Widget", Quantity: 0, UnitPrice: dec("10.00")})
	_, err := svc.Create(context.Background(), req)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "items[0].quantity")
	assert.Empty(t, repo.created)
}

func TestCreate_AddressResolutionFailed(t *testing.T) {
	repo := &mockRepo{}
	svc := newService(&mockResolver{err: cep.ErrNotFound}, repo)

	req := validRequest(CreateItem{ProductID: 1, ProductName: "Widget", Quantity: 1, UnitPrice: dec("10.00")})
	_, err := svc.Create(context.Background(), req)

	var arErr *AddressResolutionError
	require.ErrorAs(t, err, &arErr)
	assert.ErrorIs(t, err, cep.ErrNotFound)
	assert.Empty(t, repo.created, "resolution failure must persist nothing")
}

func TestCreate_HappyPath_SPRate(t *testing.T) {
	repo := &mockRepo{}
	svc := newService(&mockResolver{address: paulista()}, repo)

	number := "1578"
	req := validRequest(CreateItem{ProductID: 1, ProductName: "Widget", Quantity: 2, UnitPrice: dec("50.00")})
	req.Address.Number = &number

	o, err := svc.Create(context.Background(), req)
	require.NoError(t, err)

	assert.True(t, dec("100.00").Equal(o.Subtotal()), "subtotal: %s", o.Subtotal())
	assert.True(t, dec("10.00").Equal(o.ShippingCost), "shipping: %s", o.ShippingCost)
	assert.True(t, dec("110.00").Equal(o.TotalAmount), "total: %s", o.TotalAmount)
	assert.Equal(t, StatusPending, o.Status)
	assert.Regexp(t, `^ORD-\d{8}-[A-Z0-9]{4}$`, o.Number)

	require.NotNil(t, o.Address)
	assert.Equal(t, "01310-100", o.Address.CEP)
	assert.Equal(t, "1578", *o.Address.Number)

	require.Len(t, repo.created, 1)
}

func TestCreate_FreeShippingOverThreshold(t *testing.T) {
	repo := &mockRepo{}
	resolver := &mockResolver{address: &cep.Address{
		CEP: "29010-000", Street: "Avenida Jerônimo Monteiro",
		Neighborhood: "Centro", City: "Vitória", State: "ES",
	}}
	svc := newService(resolver, repo)

	req := validRequest(CreateItem{ProductID: 7, ProductName: "Monitor", Quantity: 1, UnitPrice: dec("250.00")})
	o, err := svc.Create(context.Background(), req)
	require.NoError(t, err)

	assert.True(t, o.ShippingCost.IsZero(), "shipping: %s", o.ShippingCost)
	assert.True(t, dec("250.00").Equal(o.TotalAmount), "total: %s", o.TotalAmount)
}

func TestCreate_RetriesOnDuplicateNumber(t *testing.T) {
	repo := &mockRepo{createErrs: []error{ErrDuplicateOrderNumber, ErrDuplicateOrderNumber, nil}}
	svc := newService(&mockResolver{address: paulista()}, repo)

	req := validRequest(CreateItem{ProductID: 1, ProductName: "Widget", Quantity: 1, UnitPrice: dec("10.00")})
	o, err := svc.Create(context.Background(), req)

	require.NoError(t, err)
	assert.NotEmpty(t, o.Number)
	require.Len(t, repo.created, 1)
}

func TestCreate_DuplicateNumberExhausted(t *testing.T) {
	repo := &mockRepo{createErrs: []error{
		ErrDuplicateOrderNumber, ErrDuplicateOrderNumber, ErrDuplicateOrderNumber,
	}}
	svc := newService(&mockResolver{address: paulista()}, repo)

	req := validRequest(CreateItem{ProductID: 1, ProductName: "Widget", Quantity: 1, UnitPrice: dec("10.00")})
	_, err := svc.Create(context.Background(), req)

	require.ErrorIs(t, err, ErrDuplicateOrderNumber)
	assert.Empty(t, repo.created)
}

func TestCreate_RepositoryFailureNotRetried(t *testing.T) {
	repo := &mockRepo{createErrs: []error{errors.New("connection refused")}}
	svc := newService(&mockResolver{address: paulista()}, repo)

	req := validRequest(CreateItem{ProductID: 1, ProductName: "Widget", Quantity: 1, UnitPrice: dec("10.00")})
	_, err := svc.Create(context.Background(), req)

	require.Error(t, err)
	assert.Empty(t, repo.created)
}

func TestUpdate_InvalidStatus(t *testing.T) {
	repo := &mockRepo{}
	svc := newService(&mockResolver{}, repo)

	bad := Status("archived")
	_, err := svc.Update(context.Background(), 1, Update{Status: &bad})

	require.ErrorIs(t, err, ErrInvalidStatus)
}

func TestUpdate_InvalidEmail(t *testing.T) {
	svc := newService(&mockResolver{}, &mockRepo{})

	email := "not-an-email"
	_, err := svc.Update(context.Background(), 1, Update{CustomerEmail: &email})

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "customer_email")
}

func TestUpdate_ValidStatusPassesThrough(t *testing.T) {
	svc := newService(&mockResolver{}, &mockRepo{})

	confirmed := StatusConfirmed
	_, err := svc.Update(context.Background(), 1, Update{Status: &confirmed})
	require.NoError(t, err)
}
