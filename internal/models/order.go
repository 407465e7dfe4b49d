package models

import (
	"time"
)

// OrderStatus represents the status of a sale
type OrderStatus string

const (
	OrderStatusPendingPayment OrderStatus = "pending_payment"
	OrderStatusPaid           OrderStatus = "paid"
	OrderStatusProcessing     OrderStatus = "processing"
	OrderStatusShipped        OrderStatus = "shipped"
	OrderStatusDelivered      OrderStatus = "delivered"
	OrderStatusCancelled      OrderStatus = "cancelled"
)

var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPendingPayment: {OrderStatusPaid, OrderStatusCancelled},
	OrderStatusPaid:           {OrderStatusProcessing},
	OrderStatusProcessing:     {OrderStatusShipped},
	OrderStatusShipped:        {OrderStatusDelivered},
}

// IsValid checks if the status is a known value
func (s OrderStatus) IsValid() bool {
	switch s {
	case OrderStatusPendingPayment, OrderStatusPaid, OrderStatusProcessing,
		OrderStatusShipped, OrderStatusDelivered, OrderStatusCancelled:
		return true
	default:
		return false
	}
}

// CanTransitionTo reports whether the order state machine allows s → next.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	for _, allowed := range orderTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// CountsAsRevenue reports whether money has been received for an order in this status.
func (s OrderStatus) CountsAsRevenue() bool {
	switch s {
	case OrderStatusPaid, OrderStatusProcessing, OrderStatusShipped, OrderStatusDelivered:
		return true
	}
	return false
}

// Order is a row of the sales table
type Order struct {
	ID                string      `json:"id" db:"id"`
	UserID            string      `json:"user_id" db:"user_id"`
	Status            OrderStatus `json:"status" db:"status"`
	Subtotal          float64     `json:"subtotal" db:"subtotal"`
	Tax               float64     `json:"tax" db:"tax"`
	Total             float64     `json:"total" db:"total"`
	TotalVP           float64     `json:"total_vp" db:"total_vp"`
	PaymentReference  string      `json:"payment_reference" db:"payment_reference"`
	PaymentProvider   *string     `json:"payment_provider,omitempty" db:"payment_provider"`
	ProviderPaymentID *string     `json:"provider_payment_id,omitempty" db:"provider_payment_id"`
	ShippingAddress   Address     `json:"shipping_address"`
	Items             []OrderItem `json:"items,omitempty"`
	PaidAt            *time.Time  `json:"paid_at,omitempty" db:"paid_at"`
	CreatedAt         time.Time   `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time   `json:"updated_at" db:"updated_at"`
}

// OrderItem represents an item in an order. Name, price and VP are snapshots.
type OrderItem struct {
	ID          string  `json:"id" db:"id"`
	OrderID     string  `json:"order_id" db:"sale_id"`
	ProductID   *string `json:"product_id,omitempty" db:"product_id"`
	ProductName string  `json:"product_name" db:"product_name"`
	Quantity    int     `json:"quantity" db:"quantity"`
	UnitPrice   float64 `json:"unit_price" db:"unit_price"`
	UnitVP      float64 `json:"unit_vp" db:"unit_vp"`
	LineTotal   float64 `json:"line_total" db:"line_total"`
}

// OrderStatusChange represents a status change record
type OrderStatusChange struct {
	ID        string       `json:"id"`
	OrderID   string       `json:"order_id"`
	OldStatus *OrderStatus `json:"old_status,omitempty"`
	NewStatus OrderStatus  `json:"new_status"`
	ChangedBy *string      `json:"changed_by,omitempty"`
	Reason    string       `json:"reason,omitempty"`
	CreatedAt time.Time    `json:"created_at"`
}

// CheckoutRequest optionally overrides the profile address for shipping.
type CheckoutRequest struct {
	ShippingAddress *Address `json:"shipping_address,omitempty"`
}

// PaymentForm is what the client posts to the payment gateway.
type PaymentForm struct {
	Action string            `json:"action"`
	Method string            `json:"method"`
	Fields []PaymentField    `json:"fields"`
	Values map[string]string `json:"values"`
}

// PaymentField is one ordered hidden input of the gateway form.
type PaymentField struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// CheckoutResponse carries the created order and the gateway hand-off.
type CheckoutResponse struct {
	Order   Order       `json:"order"`
	Payment PaymentForm `json:"payment"`
}

// PaymentConfirmation describes a confirmed gateway payment.
type PaymentConfirmation struct {
	Reference         string
	Provider          string
	ProviderPaymentID string
	AmountGross       float64
}

// UpdateOrderStatusRequest represents a request to update order status
type UpdateOrderStatusRequest struct {
	Status OrderStatus `json:"status" binding:"required"`
	Reason string      `json:"reason,omitempty"`
}

// AdminOrderListRequest represents request parameters for admin order listing
type AdminOrderListRequest struct {
	ListParams
	UserID   string `form:"user_id"`
	Status   string `form:"status"`
	DateFrom string `form:"date_from"` // YYYY-MM-DD format
	DateTo   string `form:"date_to"`   // YYYY-MM-DD format
}

// AdminOrderResponse represents an order in admin list view
type AdminOrderResponse struct {
	Order
	UserEmail string `json:"user_email"`
	UserName  string `json:"user_name"`
	ItemCount int    `json:"item_count"`
}

// AdminOrderListResponse represents the response for admin order listing
type AdminOrderListResponse struct {
	Orders     []AdminOrderResponse `json:"orders"`
	Total      int                  `json:"total"`
	Page       int                  `json:"page"`
	Limit      int                  `json:"limit"`
	TotalPages int                  `json:"total_pages"`
}

// AdminOrderDetailResponse represents detailed order information for admin
type AdminOrderDetailResponse struct {
	Order         AdminOrderResponse  `json:"order"`
	Items         []OrderItem         `json:"items"`
	StatusHistory []OrderStatusChange `json:"status_history"`
}
