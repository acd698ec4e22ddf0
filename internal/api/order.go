package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/storelab/orders-api/internal/domain/order"
)

const (
	defaultListLimit = 10
	maxListLimit     = 100
)

type addressRequest struct {
	CEP        string  `json:"cep"`
	Number     *string `json:"number,omitempty"`
	Complement *string `json:"complement,omitempty"`
}

type orderItemRequest struct {
	ProductID    int64   `json:"product_id"`
	ProductName  string  `json:"product_name"`
	ProductImage *string `json:"product_image,omitempty"`
	Quantity     int     `json:"quantity"`
	UnitPrice    float64 `json:"unit_price"`
}

type createOrderRequest struct {
	CustomerName  string             `json:"customer_name"`
	CustomerEmail string             `json:"customer_email"`
	CustomerPhone *string            `json:"customer_phone,omitempty"`
	Address       addressRequest     `json:"address"`
	Items         []orderItemRequest `json:"items"`
}

type updateOrderRequest struct {
	CustomerName  *string `json:"customer_name,omitempty"`
	CustomerEmail *string `json:"customer_email,omitempty"`
	// Raw so an explicit null (clear the phone) stays distinguishable
	// from an absent field.
	CustomerPhone json.RawMessage `json:"customer_phone,omitempty"`
	Status        *string         `json:"status,omitempty"`
}

type addressResponse struct {
	ID           int64   `json:"id"`
	CEP          string  `json:"cep"`
	Street       string  `json:"street"`
	Number       *string `json:"number"`
	Complement   *string `json:"complement"`
	Neighborhood string  `json:"neighborhood"`
	City         string  `json:"city"`
	State        string  `json:"state"`
}

type orderItemResponse struct {
	ID           int64   `json:"id"`
	ProductID    int64   `json:"product_id"`
	ProductName  string  `json:"product_name"`
	ProductImage *string `json:"product_image"`
	Quantity     int     `json:"quantity"`
	UnitPrice    float64 `json:"unit_price"`
	TotalPrice   float64 `json:"total_price"`
}

type orderResponse struct {
	ID            int64               `json:"id"`
	OrderNumber   string              `json:"order_number"`
	CustomerName  string              `json:"customer_name"`
	CustomerEmail string              `json:"customer_email"`
	CustomerPhone *string             `json:"customer_phone"`
	TotalAmount   float64             `json:"total_amount"`
	ShippingCost  float64             `json:"shipping_cost"`
	Status        string              `json:"status"`
	CreatedAt     time.Time           `json:"created_at"`
	UpdatedAt     time.Time           `json:"updated_at"`
	Address       *addressResponse    `json:"address,omitempty"`
	Items         []orderItemResponse `json:"items,omitempty"`
}

type orderMessageResponse struct {
	Message string        `json:"message"`
	Order   orderResponse `json:"order"`
}

type orderEnvelope struct {
	Order orderResponse `json:"order"`
}

type listOrdersResponse struct {
	Orders []orderResponse `json:"orders"`
	Total  int             `json:"total"`
	Limit  int             `json:"limit"`
	Offset int             `json:"offset"`
}

func toOrderResponse(o *order.Order) orderResponse {
	resp := orderResponse{
		ID:            o.ID,
		OrderNumber:   o.Number,
		CustomerName:  o.CustomerName,
		CustomerEmail: o.CustomerEmail,
		CustomerPhone: o.CustomerPhone,
		TotalAmount:   o.TotalAmount.InexactFloat64(),
		ShippingCost:  o.ShippingCost.InexactFloat64(),
		Status:        string(o.Status),
		CreatedAt:     o.CreatedAt,
		UpdatedAt:     o.UpdatedAt,
	}
	if o.Address != nil {
		resp.Address = &addressResponse{
			ID:           o.Address.ID,
			CEP:          o.Address.CEP,
			Street:       o.Address.Street,
			Number:       o.Address.Number,
			Complement:   o.Address.Complement,
			Neighborhood: o.Address.Neighborhood,
			City:         o.Address.City,
			State:        o.Address.State,
		}
	}
	for _, it := range o.Items {
		resp.Items = append(resp.Items, orderItemResponse{
			ID:           it.ID,
			ProductID:    it.ProductID,
			ProductName:  it.ProductName,
			ProductImage: it.ProductImage,
			Quantity:     it.Quantity,
			UnitPrice:    it.UnitPrice.InexactFloat64(),
			TotalPrice:   it.TotalPrice.InexactFloat64(),
		})
	}
	return resp
}

// CreateOrder handles POST /api/orders.
func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body", nil)
		return
	}

	create := order.CreateRequest{
		CustomerName:  req.CustomerName,
		CustomerEmail: req.CustomerEmail,
		CustomerPhone: req.CustomerPhone,
		Address: order.CreateAddress{
			CEP:        req.Address.CEP,
			Number:     req.Address.Number,
			Complement: req.Address.Complement,
		},
	}
	for _, it := range req.Items {
		create.Items = append(create.Items, order.CreateItem{
			ProductID:    it.ProductID,
			ProductName:  it.ProductName,
			ProductImage: it.ProductImage,
			Quantity:     it.Quantity,
			UnitPrice:    decimal.NewFromFloat(it.UnitPrice),
		})
	}

	o, err := h.orders.Create(r.Context(), create)
	if err != nil {
		writeDomainError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusCreated, orderMessageResponse{
		Message: "Order created successfully",
		Order:   toOrderResponse(o),
	})
}

// ListOrders handles GET /api/orders. Limit and offset are normalized
// here so the response echoes the values actually applied.
func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	params := order.ListParams{
		Status: q.Get("status"),
		Limit:  defaultListLimit,
	}
	if v := q.Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			params.Limit = min(n, maxListLimit)
		}
	}
	if v := q.Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			params.Offset = n
		}
	}
	if v := q.Get("order_by"); v == string(order.SortByTotalAmount) {
		params.OrderBy = order.SortByTotalAmount
	} else {
		params.OrderBy = order.SortByCreatedAt
	}
	if v := q.Get("sort"); v == string(order.SortAsc) {
		params.Sort = order.SortAsc
	} else {
		params.Sort = order.SortDesc
	}

	orders, total, err := h.orders.List(r.Context(), params)
	if err != nil {
		writeDomainError(r.Context(), w, err)
		return
	}

	resp := listOrdersResponse{
		Orders: make([]orderResponse, 0, len(orders)),
		Total:  total,
		Limit:  params.Limit,
		Offset: params.Offset,
	}
	for i := range orders {
		resp.Orders = append(resp.Orders, toOrderResponse(&orders[i]))
	}
	writeJSON(w, http.StatusOK, resp)
}

// GetOrder handles GET /api/orders/{id}.
func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := orderID(w, r)
	if !ok {
		return
	}
	o, err := h.orders.Get(r.Context(), id)
	if err != nil {
		writeDomainError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, orderEnvelope{Order: toOrderResponse(o)})
}

// UpdateOrder handles PUT /api/orders/{id}.
func (h *Handler) UpdateOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := orderID(w, r)
	if !ok {
		return
	}

	var req updateOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body", nil)
		return
	}

	upd := order.Update{
		CustomerName:  req.CustomerName,
		CustomerEmail: req.CustomerEmail,
	}
	if len(req.CustomerPhone) > 0 {
		var phone *string
		if err := json.Unmarshal(req.CustomerPhone, &phone); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid JSON body", nil)
			return
		}
		upd.CustomerPhone = &phone
	}
	if req.Status != nil {
		s := order.Status(*req.Status)
		upd.Status = &s
	}

	o, err := h.orders.Update(r.Context(), id, upd)
	if err != nil {
		writeDomainError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, orderMessageResponse{
		Message: "Order updated successfully",
		Order:   toOrderResponse(o),
	})
}

// DeleteOrder handles DELETE /api/orders/{id}.
func (h *Handler) DeleteOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := orderID(w, r)
	if !ok {
		return
	}
	if err := h.orders.Delete(r.Context(), id); err != nil {
		writeDomainError(r.Context(), w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// orderID parses the {id} path parameter. A non-numeric id cannot match
// any order, so it is reported as not found rather than a syntax error.
func orderID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id < 1 {
		writeError(w, http.StatusNotFound, "Order not found", nil)
		return 0, false
	}
	return id, true
}
