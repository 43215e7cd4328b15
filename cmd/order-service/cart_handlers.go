package main

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/MikeMC777/tienda-ecom/internal/cart"
	"github.com/MikeMC777/tienda-ecom/internal/httpx"
)

// @Summary Add a product to the caller's cart
// @Tags cart
// @Security BearerAuth
// @Param body body cart.AddItemRequest true "item"
// @Success 200 {object} httpx.Envelope
// @Router /cart/carts [post]
func addCartItemHandler(carts *cart.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req cart.AddItemRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			httpx.BadRequest(c, "Product ID and valid quantity are required")
			return
		}
		out, err := carts.AddItem(c.Request.Context(), callerID(c), req.ProductID, req.Quantity)
		if err != nil {
			httpx.Fail(c, err)
			return
		}
		httpx.OK(c, http.StatusOK, "Product added to cart successfully", out)
	}
}

func getCartHandler(carts *cart.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		out, err := carts.Get(c.Request.Context(), callerID(c))
		if err != nil {
			httpx.Fail(c, err)
			return
		}
		httpx.OK(c, http.StatusOK, "Cart fetched successfully", out)
	}
}

// updateCartItemHandler takes the product from the body, or from :id when
// the body leaves it out.
func updateCartItemHandler(carts *cart.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req cart.UpdateItemRequest
		if err := c.ShouldBindJSON(&req); err != nil || req.Quantity == nil {
			httpx.BadRequest(c, "Product ID and valid quantity are required")
			return
		}
		productID := req.ProductID
		if productID == "" {
			productID = c.Param("id")
		}
		out, err := carts.UpdateItem(c.Request.Context(), callerID(c), productID, *req.Quantity)
		if err != nil {
			httpx.Fail(c, err)
			return
		}
		httpx.OK(c, http.StatusOK, "Cart updated successfully", out)
	}
}

func clearCartHandler(carts *cart.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := carts.Clear(c.Request.Context(), callerID(c)); err != nil {
			httpx.Fail(c, err)
			return
		}
		httpx.OK(c, http.StatusOK, "Cart cleared successfully", nil)
	}
}
