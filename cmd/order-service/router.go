package main

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/MikeMC777/tienda-ecom/internal/cart"
	"github.com/MikeMC777/tienda-ecom/internal/config"
	"github.com/MikeMC777/tienda-ecom/internal/httpx"
	"github.com/MikeMC777/tienda-ecom/internal/metrics"
	"github.com/MikeMC777/tienda-ecom/internal/order"
	"github.com/MikeMC777/tienda-ecom/internal/payment"
	"github.com/MikeMC777/tienda-ecom/internal/reconcile"
)

// deps is everything the order-service routes need.
type deps struct {
	carts      *cart.Manager
	orders     *order.Service
	gateway    *payment.Gateway
	reconciler *reconcile.Reconciler
	tokens     httpx.Verifier
	esewa      config.Esewa
	metrics    *metrics.Metrics
	log        *zap.Logger
}

func newRouter(d deps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), httpx.RequestID(), httpx.Logger(d.log))
	if d.metrics != nil {
		r.Use(httpx.Metrics(d.metrics))
	}

	r.GET("/healthz", func(c *gin.Context) { c.String(http.StatusOK, "ok") })

	api := r.Group("/api")
	auth := httpx.AuthGuard(d.tokens)

	carts := api.Group("/cart", auth)
	carts.POST("/carts", addCartItemHandler(d.carts))
	carts.GET("/get_all_carts", getCartHandler(d.carts))
	carts.PUT("/update_carts/:id", updateCartItemHandler(d.carts))
	carts.DELETE("/delete_carts/:id", clearCartHandler(d.carts))

	orders := api.Group("/order", auth)
	orders.POST("/orders", createOrderHandler(d.orders))
	orders.POST("/checkout", checkoutHandler(d.orders))
	orders.GET("/get_all_orders", listOrdersHandler(d.orders))
	orders.GET("/get_single_product/:id", getOrderHandler(d.orders))
	orders.PUT("/update_orders/:id", updateOrderHandler(d.orders))
	orders.DELETE("/delete_orders/:id", deleteOrderHandler(d.orders))
	orders.GET("/admin/orders", httpx.AdminGuard(), listAllOrdersHandler(d.orders))

	esewa := api.Group("/esewa")
	esewa.POST("/create/:id", auth, createPaymentHandler(d.orders, d.gateway))
	esewa.GET("/success", paymentSuccessHandler(d.gateway, d.reconciler, d.esewa))
	esewa.GET("/failure", paymentFailureHandler(d.esewa))

	return r
}

// callerID is only called behind AuthGuard.
func callerID(c *gin.Context) string {
	id, _ := httpx.CurrentIdentity(c)
	return id.UserID
}
