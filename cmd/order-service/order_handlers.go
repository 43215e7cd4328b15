package main

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/MikeMC777/tienda-ecom/internal/httpx"
	"github.com/MikeMC777/tienda-ecom/internal/order"
)

// @Summary Create an order
// @Tags order
// @Security BearerAuth
// @Param body body order.CreateOrderRequest true "order"
// @Success 201 {object} httpx.Envelope
// @Router /order/orders [post]
func createOrderHandler(orders *order.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req order.CreateOrderRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			httpx.BadRequest(c, "All fields are required")
			return
		}
		o, err := orders.Create(c.Request.Context(), callerID(c), req)
		if err != nil {
			httpx.Fail(c, err)
			return
		}
		httpx.OK(c, http.StatusCreated, "Order created successfully", o)
	}
}

func checkoutHandler(orders *order.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req order.CheckoutRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			httpx.BadRequest(c, "Payment method is required")
			return
		}
		o, err := orders.Checkout(c.Request.Context(), callerID(c), req.PaymentMethod)
		if err != nil {
			httpx.Fail(c, err)
			return
		}
		httpx.OK(c, http.StatusCreated, "Order created successfully", o)
	}
}

func listOrdersHandler(orders *order.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		out, err := orders.List(c.Request.Context(), callerID(c))
		if err != nil {
			httpx.Fail(c, err)
			return
		}
		httpx.OK(c, http.StatusOK, "All orders fetched successfully", out)
	}
}

func getOrderHandler(orders *order.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		o, err := orders.Get(c.Request.Context(), callerID(c), c.Param("id"))
		if err != nil {
			httpx.Fail(c, err)
			return
		}
		httpx.OK(c, http.StatusOK, "Order fetched successfully", o)
	}
}

func updateOrderHandler(orders *order.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req order.UpdateOrderRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			httpx.BadRequest(c, "Invalid request body")
			return
		}
		who, _ := httpx.CurrentIdentity(c)
		o, err := orders.Update(c.Request.Context(), who, c.Param("id"), req)
		if err != nil {
			httpx.Fail(c, err)
			return
		}
		httpx.OK(c, http.StatusOK, "Order updated successfully", o)
	}
}

func deleteOrderHandler(orders *order.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := orders.Delete(c.Request.Context(), callerID(c), c.Param("id")); err != nil {
			httpx.Fail(c, err)
			return
		}
		httpx.OK(c, http.StatusOK, "Order deleted successfully", nil)
	}
}

func listAllOrdersHandler(orders *order.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit, _ := strconv.Atoi(c.Query("limit"))
		offset, _ := strconv.Atoi(c.Query("offset"))
		limit, offset = order.NormalizePage(limit, offset)
		out, err := orders.ListAll(c.Request.Context(), limit, offset)
		if err != nil {
			httpx.Fail(c, err)
			return
		}
		httpx.OK(c, http.StatusOK, "All orders fetched successfully", gin.H{"items": out, "limit": limit, "offset": offset})
	}
}
