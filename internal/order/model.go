package order

import (
	"time"

	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusPending   Status = "Pending"
	StatusShipped   Status = "Shipped"
	StatusDelivered Status = "Delivered"
	StatusCancelled Status = "Cancelled"
)

type PaymentMethod string

const (
	PaymentEsewa          PaymentMethod = "esewa"
	PaymentCashOnDelivery PaymentMethod = "cashOnDelivery"
)

// Valid rejects the storefront's "selectOne" placeholder and anything unknown.
func (p PaymentMethod) Valid() bool {
	return p == PaymentEsewa || p == PaymentCashOnDelivery
}

// Line is the price-locked copy of a product at purchase time.
type Line struct {
	ProductID    string          `json:"productId"`
	ProductName  string          `json:"productName"`
	ProductImage string          `json:"productImage,omitempty"`
	UnitPrice    decimal.Decimal `json:"productPrice"`
	Quantity     int             `json:"quantity"`
	LineTotal    decimal.Decimal `json:"totalProductPrice"`
}

type Order struct {
	ID                   string          `json:"id"`
	UserID               string          `json:"user"`
	Lines                []Line          `json:"products"`
	Total                decimal.Decimal `json:"totalAmount"`
	PaymentMethod        PaymentMethod   `json:"paymentMethod"`
	Status               Status          `json:"status"`
	FromCart             bool            `json:"fromCart"`
	FulfillmentConfirmed bool            `json:"fulfillmentConfirmed"`
	PaidAt               *time.Time      `json:"paidAt,omitempty"`
	CreatedAt            time.Time       `json:"createdAt"`
	UpdatedAt            time.Time       `json:"updatedAt"`
}

// SumLines is the only source of an order total.
func SumLines(lines []Line) decimal.Decimal {
	total := decimal.Zero
	for _, l := range lines {
		total = total.Add(l.LineTotal)
	}
	return total
}

func (o *Order) Clone() *Order {
	cp := *o
	cp.Lines = append([]Line(nil), o.Lines...)
	if o.PaidAt != nil {
		t := *o.PaidAt
		cp.PaidAt = &t
	}
	return &cp
}
