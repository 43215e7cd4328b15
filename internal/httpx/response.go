// Package httpx holds the gin middleware and the JSON envelope shared by the
// services.
package httpx

import (
	"net/http"
	"sync/atomic"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/MikeMC777/tienda-ecom/internal/apperr"
	"github.com/MikeMC777/tienda-ecom/internal/logging"
)

// Envelope is the body of every JSON response.
// swagger:model Envelope
type Envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

var debugErrors atomic.Bool

// SetDebugErrors toggles echoing the raw error string in failure envelopes.
func SetDebugErrors(on bool) { debugErrors.Store(on) }

func StatusOf(k apperr.Kind) int {
	switch k {
	case apperr.InvalidInput, apperr.InsufficientStock, apperr.StockInconsistency,
		apperr.MalformedCallback, apperr.PaymentNotComplete, apperr.SignatureMismatch:
		return http.StatusBadRequest
	case apperr.Unauthorized:
		return http.StatusUnauthorized
	case apperr.NotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func OK(c *gin.Context, status int, msg string, data any) {
	c.JSON(status, Envelope{Success: true, Message: msg, Data: data})
}

// Fail writes the envelope for err. Internal causes are logged, never shown,
// unless debug errors are on.
func Fail(c *gin.Context, err error) {
	kind := apperr.KindOf(err)
	status := StatusOf(kind)
	if status >= http.StatusInternalServerError {
		logging.FromContext(c.Request.Context()).Error("request_failed",
			zap.String("kind", kind.String()), zap.Error(err))
	}
	_ = c.Error(err)

	env := Envelope{Success: false, Message: apperr.MessageOf(err)}
	if debugErrors.Load() {
		env.Error = err.Error()
	}
	c.AbortWithStatusJSON(status, env)
}

// BadRequest is a shortcut for binding failures.
func BadRequest(c *gin.Context, msg string) {
	Fail(c, apperr.Invalid(msg))
}
