package http

import (
	"encoding/json"
	"time"

	"github.com/utafrali/storefront/internal/domain"
)

// Request bodies accept both snake_case and camelCase spellings of
// multi-word fields. When both are sent the camelCase value wins.

// RegisterRequest is the body of POST /api/v1/auth/register.
type RegisterRequest struct {
	Email     string `json:"email" validate:"required,min=5,shopemail"`
	Password  string `json:"password" validate:"required,min=8"`
	FirstName string `json:"first_name" validate:"required,max=100"`
	LastName  string `json:"last_name" validate:"max=100"`
}

func (r *RegisterRequest) UnmarshalJSON(b []byte) error {
	var raw struct {
		Email          string `json:"email"`
		Password       string `json:"password"`
		FirstName      string `json:"first_name"`
		FirstNameCamel string `json:"firstName"`
		LastName       string `json:"last_name"`
		LastNameCamel  string `json:"lastName"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	*r = RegisterRequest{
		Email:     raw.Email,
		Password:  raw.Password,
		FirstName: firstNonEmpty(raw.FirstNameCamel, raw.FirstName),
		LastName:  firstNonEmpty(raw.LastNameCamel, raw.LastName),
	}
	return nil
}

// LoginRequest is the body of POST /api/v1/auth/login.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,min=5,shopemail"`
	Password string `json:"password" validate:"required"`
}

// UpdateProfileRequest is the body of PUT /api/v1/users/me. Absent fields are left unchanged.
type UpdateProfileRequest struct {
	FirstName *string `json:"first_name" validate:"omitempty,max=100"`
	LastName  *string `json:"last_name" validate:"omitempty,max=100"`
	Avatar    *string `json:"avatar" validate:"omitempty,url"`
}

func (r *UpdateProfileRequest) UnmarshalJSON(b []byte) error {
	var raw struct {
		FirstName      *string `json:"first_name"`
		FirstNameCamel *string `json:"firstName"`
		LastName       *string `json:"last_name"`
		LastNameCamel  *string `json:"lastName"`
		Avatar         *string `json:"avatar"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	*r = UpdateProfileRequest{
		FirstName: firstNonNil(raw.FirstNameCamel, raw.FirstName),
		LastName:  firstNonNil(raw.LastNameCamel, raw.LastName),
		Avatar:    raw.Avatar,
	}
	return nil
}

// CreateProductRequest is the body of POST /api/v1/products. Price is in
// major units (roubles).
type CreateProductRequest struct {
	Title        string   `json:"title" validate:"required,max=255"`
	Description  string   `json:"description" validate:"max=5000"`
	Price        *float64 `json:"price" validate:"required,gte=0,lte=1000000000"`
	QuantityLeft *int     `json:"quantity_left" validate:"required,gte=0"`
	Logo         string   `json:"logo" validate:"omitempty,http_url"`
}

func (r *CreateProductRequest) UnmarshalJSON(b []byte) error {
	var raw struct {
		Title             string   `json:"title"`
		Description       string   `json:"description"`
		Price             *float64 `json:"price"`
		QuantityLeft      *int     `json:"quantity_left"`
		QuantityLeftCamel *int     `json:"quantityLeft"`
		Logo              string   `json:"logo"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	*r = CreateProductRequest{
		Title:        raw.Title,
		Description:  raw.Description,
		Price:        raw.Price,
		QuantityLeft: firstNonNil(raw.QuantityLeftCamel, raw.QuantityLeft),
		Logo:         raw.Logo,
	}
	return nil
}

// AddCartItemRequest is the body of POST /api/v1/cart/items.
type AddCartItemRequest struct {
	ProductID string `json:"product_id" validate:"required,uuid"`
}

func (r *AddCartItemRequest) UnmarshalJSON(b []byte) error {
	var raw struct {
		ProductID      string `json:"product_id"`
		ProductIDCamel string `json:"productId"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	r.ProductID = firstNonEmpty(raw.ProductIDCamel, raw.ProductID)
	return nil
}

// ChangeQuantityRequest is the body of PATCH /api/v1/cart/items/{id}.
type ChangeQuantityRequest struct {
	Delta int `json:"delta" validate:"ne=0"`
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func firstNonNil[T any](values ...*T) *T {
	for _, v := range values {
		if v != nil {
			return v
		}
	}
	return nil
}

// --- Responses ---

// ProductResponse adds the display price to a product.
type ProductResponse struct {
	domain.Product
	DisplayPrice float64 `json:"display_price"`
	Currency     string  `json:"currency"`
}

func newProductResponse(p *domain.Product) *ProductResponse {
	if p == nil {
		return nil
	}
	return &ProductResponse{Product: *p, DisplayPrice: p.DisplayPrice(), Currency: domain.Currency}
}

// CatalogResponse is one load-more window of the catalog.
type CatalogResponse struct {
	Items   []ProductResponse `json:"items"`
	Query   string            `json:"query,omitempty"`
	Page    int               `json:"page"`
	PerPage int               `json:"per_page"`
	Total   int               `json:"total"`
	HasNext bool              `json:"has_next"`
}

// CartItemResponse is a cart line with its product.
type CartItemResponse struct {
	ID        string           `json:"id"`
	ProductID string           `json:"product_id"`
	Quantity  int              `json:"quantity"`
	LineTotal int64            `json:"line_total"`
	Product   *ProductResponse `json:"product,omitempty"`
}

// CartResponse is the caller's cart with its totals.
type CartResponse struct {
	Items         []CartItemResponse `json:"items"`
	TotalQuantity int                `json:"total_quantity"`
	TotalPrice    int64              `json:"total_price"`
	DisplayTotal  float64            `json:"display_total"`
	Currency      string             `json:"currency"`
}

func newCartResponse(c *domain.Cart) CartResponse {
	items := make([]CartItemResponse, 0, len(c.Items))
	for i := range c.Items {
		it := &c.Items[i]
		items = append(items, CartItemResponse{
			ID:        it.ID,
			ProductID: it.ProductID,
			Quantity:  it.Quantity,
			LineTotal: it.LineTotal(),
			Product:   newProductResponse(it.Product),
		})
	}
	total := c.TotalPrice()
	return CartResponse{
		Items:         items,
		TotalQuantity: c.TotalQuantity(),
		TotalPrice:    total,
		DisplayTotal:  domain.ToMajorUnits(total),
		Currency:      domain.Currency,
	}
}

// OrderItemResponse is one line of an order.
type OrderItemResponse struct {
	ID        string           `json:"id"`
	ProductID string           `json:"product_id"`
	Price     int64            `json:"price"`
	Quantity  int              `json:"quantity"`
	LineTotal int64            `json:"line_total"`
	Product   *ProductResponse `json:"product,omitempty"`
}

// OrderResponse is an order card: lines, totals and delivery estimate.
type OrderResponse struct {
	ID            string              `json:"id"`
	Status        string              `json:"status"`
	Items         []OrderItemResponse `json:"items"`
	TotalQuantity int                 `json:"total_quantity"`
	TotalPrice    int64               `json:"total_price"`
	DisplayTotal  float64             `json:"display_total"`
	Currency      string              `json:"currency"`
	CreatedAt     time.Time           `json:"created_at"`
	DeliveryBy    time.Time           `json:"delivery_by"`
	ReceiptURL    string              `json:"receipt_url"`
}

func newOrderResponse(o *domain.Order) OrderResponse {
	items := make([]OrderItemResponse, 0, len(o.Items))
	for i := range o.Items {
		it := &o.Items[i]
		items = append(items, OrderItemResponse{
			ID:        it.ID,
			ProductID: it.ProductID,
			Price:     it.Price,
			Quantity:  it.Quantity,
			LineTotal: it.LineTotal(),
			Product:   newProductResponse(it.Product),
		})
	}
	return OrderResponse{
		ID:            o.ID,
		Status:        o.Status,
		Items:         items,
		TotalQuantity: o.TotalQuantity(),
		TotalPrice:    o.TotalPrice,
		DisplayTotal:  o.DisplayTotal(),
		Currency:      domain.Currency,
		CreatedAt:     o.CreatedAt,
		DeliveryBy:    o.CreatedAt.AddDate(0, 0, domain.DeliveryDays),
		ReceiptURL:    "/api/v1/orders/" + o.ID + "/receipt",
	}
}

func newOrderResponses(orders []domain.Order) []OrderResponse {
	out := make([]OrderResponse, 0, len(orders))
	for i := range orders {
		out = append(out, newOrderResponse(&orders[i]))
	}
	return out
}
