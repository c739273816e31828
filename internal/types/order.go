package types

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderProcessing     OrderStatus = "processing"
	OrderShipped        OrderStatus = "shipped"
	OrderOutForDelivery OrderStatus = "out_for_delivery"
	OrderDelivered      OrderStatus = "delivered"
	OrderCancelled      OrderStatus = "cancelled"
	OrderReturned       OrderStatus = "returned"
)

var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderProcessing:     {OrderShipped, OrderCancelled},
	OrderShipped:        {OrderOutForDelivery, OrderDelivered},
	OrderOutForDelivery: {OrderDelivered},
	OrderDelivered:      {OrderReturned},
}

func (s OrderStatus) Valid() bool {
	switch s {
	case OrderProcessing, OrderShipped, OrderOutForDelivery, OrderDelivered, OrderCancelled, OrderReturned:
		return true
	}
	return false
}

// CanTransition checks the fulfilment state machine. Cancelled and returned are terminal.
func CanTransition(from, to OrderStatus) bool {
	for _, next := range orderTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

type Order struct {
	ID         int64           `json:"id"`
	Reference  uuid.UUID       `json:"reference"`
	UserID     int64           `json:"user_id"`
	Status     OrderStatus     `json:"status"`
	Subtotal   decimal.Decimal `json:"subtotal"`
	Discount   decimal.Decimal `json:"discount"`
	Total      decimal.Decimal `json:"total"`
	CouponCode *string         `json:"coupon_code,omitempty"`
	Items      []OrderItem     `json:"items,omitempty" db:"-"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

type OrderItem struct {
	ID        int64           `json:"id"`
	ProductID *int64          `json:"product_id,omitempty"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  int             `json:"quantity"`
}

type TrackingEvent struct {
	ID        int64       `json:"id"`
	OrderID   int64       `json:"order_id"`
	Status    OrderStatus `json:"status"`
	Message   string      `json:"message"`
	Timestamp time.Time   `json:"timestamp"`
}

type OrderTracking struct {
	OrderID int64           `json:"order_id"`
	Status  OrderStatus     `json:"status"`
	History []TrackingEvent `json:"history"`
}

type CheckoutRequest struct {
	CouponCode string `json:"coupon_code,omitempty" validate:"omitempty,max=40"`
}

type TrackingRequest struct {
	Status  OrderStatus `json:"status" validate:"required,oneof=processing shipped out_for_delivery delivered cancelled returned"`
	Message string      `json:"message" validate:"max=500"`
}

// NewOrder is what checkout hands to the repository: a priced snapshot of the cart.
type NewOrder struct {
	UserID      int64
	Reference   uuid.UUID
	Items       []OrderItem
	Subtotal    decimal.Decimal
	Discount    decimal.Decimal
	Total       decimal.Decimal
	CouponCode  *string
	// CartItemIDs are the cart lines consumed by this order; CartItemIDs[i] backs Items[i].
	CartItemIDs []int64
}
