package product

import (
	"time"

	"github.com/shopspring/decimal"
)

type Product struct {
	ID          string          `json:"id"`
	Name        string          `json:"productName"`
	Price       decimal.Decimal `json:"productPrice"`
	Description string          `json:"productDescription,omitempty"`
	Category    string          `json:"productCategory,omitempty"`
	Image       string          `json:"productImage,omitempty"`
	Rating      float64         `json:"productRating"`
	Type        string          `json:"productType,omitempty"`
	Stock       int             `json:"stock"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

// ListResponse represents the paginated response of products.
// swagger:model
type ListResponse struct {
	// search query applied
	Q string `json:"q,omitempty"`
	// limit applied
	Limit int `json:"limit"`
	// offset applied
	Offset int `json:"offset"`
	// products found
	Items []Product `json:"items"`
}

// CreateProductRequest payload of creation.
// swagger:model CreateProductRequest
type CreateProductRequest struct {
	Name        string  `json:"productName"        example:"Mechanical Keyboard"`
	Price       string  `json:"productPrice"       example:"199.90"`
	Description string  `json:"productDescription" example:"RGB 60%"`
	Category    string  `json:"productCategory"    example:"peripherals"`
	Image       string  `json:"productImage"       example:"keyboard.png"`
	Rating      float64 `json:"productRating"      example:"4.5"`
	Type        string  `json:"productType"        example:"new"`
	Stock       int     `json:"stock"              example:"10"`
}

// UpdateProductRequest payload of partial update. Nil fields stay unchanged.
// swagger:model UpdateProductRequest
type UpdateProductRequest struct {
	Name        *string  `json:"productName"`
	Price       *string  `json:"productPrice"`
	Description *string  `json:"productDescription"`
	Category    *string  `json:"productCategory"`
	Image       *string  `json:"productImage"`
	Rating      *float64 `json:"productRating"`
	Type        *string  `json:"productType"`
	Stock       *int     `json:"stock"`
}
