package httpx

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/MikeMC777/tienda-ecom/internal/apperr"
	"github.com/MikeMC777/tienda-ecom/internal/identity"
	"github.com/MikeMC777/tienda-ecom/internal/metrics"
)

func init() { gin.SetMode(gin.TestMode) }

func decode(t *testing.T, w *httptest.ResponseRecorder) Envelope {
	t.Helper()
	var env Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return env
}

func TestStatusOf(t *testing.T) {
	cases := map[apperr.Kind]int{
		apperr.InvalidInput:       http.StatusBadRequest,
		apperr.MalformedCallback:  http.StatusBadRequest,
		apperr.PaymentNotComplete: http.StatusBadRequest,
		apperr.SignatureMismatch:  http.StatusBadRequest,
		apperr.Unauthorized:       http.StatusUnauthorized,
		apperr.NotFound:           http.StatusNotFound,
		apperr.InsufficientStock:  http.StatusBadRequest,
		apperr.StockInconsistency: http.StatusBadRequest,
		apperr.Internal:           http.StatusInternalServerError,
	}
	for k, want := range cases {
		assert.Equal(t, want, StatusOf(k), k.String())
	}
}

func TestFail_HidesInternalDetails(t *testing.T) {
	r := gin.New()
	r.GET("/boom", func(c *gin.Context) { Fail(c, apperr.Internalf(errors.New("pq: connection refused"), "load cart")) })
	r.GET("/missing", func(c *gin.Context) { Fail(c, apperr.NotFoundf("Cart is empty")) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	env := decode(t, w)
	assert.False(t, env.Success)
	assert.Equal(t, "Internal Server Error", env.Message)
	assert.Empty(t, env.Error)

	SetDebugErrors(true)
	defer SetDebugErrors(false)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))
	assert.Contains(t, decode(t, w).Error, "connection refused")

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/missing", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Cart is empty", decode(t, w).Message)
}

func TestAuthGuard(t *testing.T) {
	tokens := identity.NewTokens("secret", time.Hour)
	userTok, err := tokens.Issue(identity.Identity{UserID: "u1"})
	require.NoError(t, err)
	adminTok, err := tokens.Issue(identity.Identity{UserID: "a1", IsAdmin: true})
	require.NoError(t, err)

	r := gin.New()
	r.GET("/me", AuthGuard(tokens), func(c *gin.Context) {
		id, _ := CurrentIdentity(c)
		fromCtx, _ := identity.FromContext(c.Request.Context())
		OK(c, http.StatusOK, "ok", gin.H{"id": id.UserID, "ctx": fromCtx.UserID})
	})
	r.GET("/admin", AuthGuard(tokens), AdminGuard(), func(c *gin.Context) {
		OK(c, http.StatusOK, "ok", nil)
	})

	do := func(path, auth string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, path, nil)
		if auth != "" {
			req.Header.Set("Authorization", auth)
		}
		r.ServeHTTP(w, req)
		return w
	}

	w := do("/me", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Authorization header not found", decode(t, w).Message)

	w = do("/me", "Bearer nonsense")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Invalid token", decode(t, w).Message)

	w = do("/me", "Basic abc")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = do("/me", "Bearer "+userTok)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	data := decode(t, w).Data.(map[string]any)
	assert.Equal(t, "u1", data["id"])
	assert.Equal(t, "u1", data["ctx"])

	assert.Equal(t, http.StatusUnauthorized, do("/admin", "Bearer "+userTok).Code)
	assert.Equal(t, http.StatusOK, do("/admin", "Bearer "+adminTok).Code)
}

func TestMiddleware_RequestIDLoggerMetrics(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	m := metrics.New(prometheus.NewRegistry())

	r := gin.New()
	r.Use(RequestID(), Logger(zap.New(core)), Metrics(m))
	r.GET("/orders/:id", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/orders/42", nil)
	req.Header.Set("X-Request-ID", "rid-1")
	r.ServeHTTP(w, req)

	assert.Equal(t, "rid-1", w.Header().Get("X-Request-ID"))
	entries := logs.FilterMessage("http_request").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "rid-1", entries[0].ContextMap()["request_id"])
	assert.Equal(t, 1.0, testutil.ToFloat64(m.HTTPRequests.WithLabelValues("GET", "/orders/:id", "204")))

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/nope", nil))
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.HTTPRequests.WithLabelValues("GET", "unmatched", "404")))
}
