package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	for _, k := range []string{"STORE", "CART_RETENTION", "ORDER_PENDING_TIMEOUT", "ESEWA_PRODUCT_CODE", "CART_PURGE_CRON"} {
		t.Setenv(k, "")
	}

	cfg := Load()

	assert.Equal(t, StorePostgres, cfg.Store)
	assert.Equal(t, 30*24*time.Hour, cfg.CartRetention)
	assert.Equal(t, 24*time.Hour, cfg.OrderPendingLimit)
	assert.Equal(t, "EPAYTEST", cfg.Esewa.ProductCode)
	assert.Equal(t, "0 0 * * *", cfg.CartPurgeCron)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("STORE", "Memory")
	t.Setenv("CART_CACHE_TTL", "2m")
	t.Setenv("ORDER_PENDING_TIMEOUT", "not-a-duration")
	t.Setenv("DEBUG_ERRORS", "true")
	t.Setenv("TRACE_SAMPLE_RATIO", "0.25")

	cfg := Load()

	assert.Equal(t, StoreMemory, cfg.Store)
	assert.Equal(t, 2*time.Minute, cfg.CartCacheTTL)
	assert.Equal(t, 24*time.Hour, cfg.OrderPendingLimit, "invalid durations fall back to the default")
	assert.True(t, cfg.DebugErrors)
	assert.Equal(t, 0.25, cfg.TraceSampleRatio)
}
