package main

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/MikeMC777/tienda-ecom/internal/apperr"
	"github.com/MikeMC777/tienda-ecom/internal/config"
	"github.com/MikeMC777/tienda-ecom/internal/httpx"
	"github.com/MikeMC777/tienda-ecom/internal/logging"
	"github.com/MikeMC777/tienda-ecom/internal/order"
	"github.com/MikeMC777/tienda-ecom/internal/payment"
	"github.com/MikeMC777/tienda-ecom/internal/reconcile"
)

// @Summary Build the signed eSewa form for one of the caller's orders
// @Tags payment
// @Security BearerAuth
// @Param id path string true "order id"
// @Success 200 {object} payment.FormData
// @Router /esewa/create/{id} [post]
func createPaymentHandler(orders *order.Service, gateway *payment.Gateway) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		o, err := orders.Get(ctx, callerID(c), c.Param("id"))
		if err != nil {
			httpx.Fail(c, err)
			return
		}
		if o.Status != order.StatusPending || o.PaidAt != nil {
			httpx.Fail(c, apperr.Invalid("Order is not awaiting payment"))
			return
		}
		form, err := gateway.BuildRequest(ctx, o.ID, o.Total)
		if err != nil {
			httpx.Fail(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"success":        true,
			"message":        "Order Created Sucessfully",
			"formData":       form,
			"payment_method": string(order.PaymentEsewa),
		})
	}
}

// paymentSuccessHandler never answers with JSON: every outcome is a redirect
// to the storefront.
func paymentSuccessHandler(gateway *payment.Gateway, rec *reconcile.Reconciler, cfg config.Esewa) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		log := logging.FromContext(ctx)

		tx, err := gateway.VerifyCallback(ctx, c.Query("data"))
		if err != nil {
			log.Warn("payment_callback_rejected",
				zap.String("kind", apperr.KindOf(err).String()), zap.Error(err))
			c.Redirect(http.StatusFound, cfg.FrontendFailureURL)
			return
		}
		o, err := rec.Apply(ctx, tx)
		if err != nil {
			log.Warn("payment_reconcile_failed",
				zap.String("order_id", tx.OrderID),
				zap.String("kind", apperr.KindOf(err).String()), zap.Error(err))
			c.Redirect(http.StatusFound, cfg.FrontendFailureURL)
			return
		}
		log.Info("payment_settled", zap.String("order_id", o.ID), zap.String("transaction_uuid", tx.TransactionUUID))
		c.Redirect(http.StatusFound, cfg.FrontendSuccessURL)
	}
}

func paymentFailureHandler(cfg config.Esewa) gin.HandlerFunc {
	return func(c *gin.Context) {
		logging.FromContext(c.Request.Context()).Info("payment_cancelled")
		c.Redirect(http.StatusFound, cfg.FrontendFailureURL)
	}
}
