package models

import (
	"time"
)

// CartItem is a user×product row. It is not an order until checkout.
type CartItem struct {
	ID        string    `json:"id" db:"id"`
	UserID    string    `json:"user_id" db:"user_id"`
	ProductID string    `json:"product_id" db:"product_id"`
	Quantity  int       `json:"quantity" db:"quantity"`
	Product   *Product  `json:"product,omitempty"` // Populated when needed
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// LineTotal is price × quantity for the item, zero when the product is not loaded.
func (i CartItem) LineTotal() float64 {
	if i.Product == nil {
		return 0
	}
	return i.Product.Price * float64(i.Quantity)
}

// LineVP is vp × quantity for the item.
func (i CartItem) LineVP() float64 {
	if i.Product == nil {
		return 0
	}
	return i.Product.VP * float64(i.Quantity)
}

// CartTotals holds the figures shown with a cart and charged at checkout.
type CartTotals struct {
	Subtotal  float64 `json:"subtotal"`
	TaxRate   float64 `json:"tax_rate"`
	Tax       float64 `json:"tax"`
	Total     float64 `json:"total"`
	TotalVP   float64 `json:"total_vp"`
	ItemCount int     `json:"item_count"`
}

// ComputeCartTotals is the single place cart and order totals are derived.
func ComputeCartTotals(items []CartItem, taxRate float64) CartTotals {
	var t CartTotals
	t.TaxRate = taxRate
	for _, item := range items {
		t.Subtotal += item.LineTotal()
		t.TotalVP += item.LineVP()
		t.ItemCount += item.Quantity
	}
	t.Subtotal = RoundMoney(t.Subtotal)
	t.Tax = RoundMoney(t.Subtotal * taxRate)
	t.Total = RoundMoney(t.Subtotal + t.Tax)
	t.TotalVP = RoundMoney(t.TotalVP)
	return t
}

// CartResponse represents the response format for cart operations
type CartResponse struct {
	Items []CartItem `json:"items"`
	CartTotals
}

// AddToCartRequest represents a request to add an item to cart
type AddToCartRequest struct {
	ProductID string `json:"product_id" binding:"required"`
	Quantity  int    `json:"quantity" binding:"required,min=1"`
}

// UpdateCartItemRequest represents a request to update cart item quantity
type UpdateCartItemRequest struct {
	Quantity *int `json:"quantity" binding:"required,min=0"` // 0 means remove
}
