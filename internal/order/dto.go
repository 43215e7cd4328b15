package order

// CreateOrderItem is one requested line.
// swagger:model CreateOrderItem
type CreateOrderItem struct {
	ProductID string `json:"productId" example:"4e7d4e5c5cb94a3f9f217e1a4f9f2b2a"`
	Quantity  int    `json:"quantity"  example:"2"`
}

// CreateOrderRequest payload for POST /order/orders. TotalAmount is accepted
// for compatibility with the storefront but never trusted.
// swagger:model CreateOrderRequest
type CreateOrderRequest struct {
	Products      []CreateOrderItem `json:"products"`
	TotalAmount   *float64          `json:"totalAmount,omitempty" example:"20"`
	PaymentMethod PaymentMethod     `json:"paymentMethod" example:"cashOnDelivery"`
}

// CheckoutRequest payload for POST /order/checkout.
// swagger:model CheckoutRequest
type CheckoutRequest struct {
	PaymentMethod PaymentMethod `json:"paymentMethod" example:"esewa"`
}

// UpdateOrderRequest payload for PUT /order/update_orders/:id.
// swagger:model UpdateOrderRequest
type UpdateOrderRequest struct {
	Status               Status `json:"status,omitempty" example:"Cancelled"`
	FulfillmentConfirmed *bool  `json:"fulfillmentConfirmed,omitempty"`
}
