package order

import "time"

type Item struct {
	ProductID string  `json:"productId"`
	Quantity  int     `json:"quantity"`
	Price     float64 `json:"price"`
}

type Order struct {
	ID              string    `json:"orderId"`
	PaymentOrderID  string    `json:"paymentOrderId,omitempty"`
	UserID          string    `json:"userId"`
	ShippingAddress string    `json:"shippingAddress"`
	Items           []Item    `json:"items"`
	TotalAmount     float64   `json:"totalAmount"`
	Status          Status    `json:"status"`
	CreatedAt       time.Time `json:"createdAt"`
}

// GuestUserID is the sentinel owner for unauthenticated checkout.
const GuestUserID = "guest"
