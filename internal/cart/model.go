package cart

import (
	"time"

	"github.com/shopspring/decimal"
)

// Item is a snapshot of the catalog entry taken when it was first added.
type Item struct {
	ProductID    string          `json:"productId"`
	Quantity     int             `json:"quantity"`
	ProductName  string          `json:"productName"`
	ProductPrice decimal.Decimal `json:"productPrice"`
	ProductImage string          `json:"productImage,omitempty"`
}

type Cart struct {
	UserID    string    `json:"user"`
	Items     []Item    `json:"items"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (c *Cart) find(productID string) int {
	for i := range c.Items {
		if c.Items[i].ProductID == productID {
			return i
		}
	}
	return -1
}

// Clone returns a deep copy so callers never share the items slice.
func (c *Cart) Clone() *Cart {
	cp := *c
	cp.Items = append([]Item(nil), c.Items...)
	if cp.Items == nil {
		cp.Items = []Item{}
	}
	return &cp
}

// AddItemRequest payload for POST /cart/carts.
// swagger:model AddItemRequest
type AddItemRequest struct {
	ProductID string `json:"productId" example:"5f3c1f2f2e7b4a3f9f217e1a4f9f2b2a"`
	Quantity  int    `json:"quantity"  example:"2"`
}

// UpdateItemRequest payload for PUT /cart/update_carts/:id.
// swagger:model UpdateItemRequest
type UpdateItemRequest struct {
	ProductID string `json:"productId"`
	Quantity  *int   `json:"quantity" example:"1"`
}
