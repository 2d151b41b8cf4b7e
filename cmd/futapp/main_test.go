package main

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/futapp/futapp-api/app/models"
	"github.com/futapp/futapp-api/internal/pkg/config"
	"github.com/futapp/futapp-api/internal/pkg/payme"
)

func TestNewApplication(t *testing.T) {
	cfg, err := config.Parse(map[string]string{
		"APP_ENV":          "dev",
		"DB_DRIVER":        "sqlite",
		"DB_DSN":           "file:app_test?mode=memory&cache=shared",
		"DB_AUTO_MIGRATE":  "true",
		"CACHE_ENABLED":    "false",
		"PAYME_KEY":        "merchant-key",
		"METRICS_PASSWORD": "pw",
	})
	require.NoError(t, err)

	application, err := NewApplication(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = application.Shutdown(context.Background()) })

	resp, err := application.App.Test(httptest.NewRequest(http.MethodGet, "/", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get(fiber.HeaderXRequestID))

	resp, err = application.App.Test(httptest.NewRequest(http.MethodGet, "/healthz", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/payme", strings.NewReader(`{"id":1,"method":"CheckTransaction","params":{"id":"tx1"}}`))
	resp, err = application.App.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	var out payme.Response
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	require.NotNil(t, out.Error)
	assert.Equal(t, payme.CodeAuthFailure, out.Error.Code)

	// stats need Redis
	req = httptest.NewRequest(http.MethodGet, "/api/v1/webhooks/payme/stats", nil)
	req.SetBasicAuth("admin", "pw")
	resp, err = application.App.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusServiceUnavailable, resp.StatusCode)
}

func TestNewApplication_RejectsUnknownDriver(t *testing.T) {
	cfg, err := config.Parse(map[string]string{
		"DB_DRIVER":     "postgres",
		"CACHE_ENABLED": "false",
		"PAYME_KEY":     "k",
	})
	require.NoError(t, err)

	_, err = NewApplication(cfg)
	assert.Error(t, err)
}

func TestNewApplication_ReleasesResourcesOnFailure(t *testing.T) {
	const dsn = "file:failed_startup?mode=memory&cache=shared"
	cfg, err := config.Parse(map[string]string{
		"DB_DRIVER":         "sqlite",
		"DB_DSN":            dsn,
		"DB_AUTO_MIGRATE":   "true",
		"CACHE_ENABLED":     "false",
		"PAYME_KEY":         "k",
		"PAYME_ALLOWED_IPS": "not-an-ip",
	})
	require.NoError(t, err)

	_, err = NewApplication(cfg)
	require.Error(t, err)

	// the shared in-memory database only survives while a connection is open
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })
	assert.False(t, db.Migrator().HasTable(&models.PaymentTransaction{}))
}

func TestNewApplication_AllowListBehindProxy(t *testing.T) {
	cfg, err := config.Parse(map[string]string{
		"DB_DRIVER":           "sqlite",
		"DB_DSN":              "file:proxy_test?mode=memory&cache=shared",
		"DB_AUTO_MIGRATE":     "true",
		"CACHE_ENABLED":       "false",
		"PAYME_KEY":           "merchant-key",
		"PAYME_ALLOWED_IPS":   "185.234.113.1",
		"APP_PROXY_HEADER":    "X-Forwarded-For",
		"APP_TRUSTED_PROXIES": "0.0.0.0/0,::/0",
	})
	require.NoError(t, err)

	application, err := NewApplication(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = application.Shutdown(context.Background()) })

	call := func(forwardedFor string) int {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/payme", strings.NewReader(`{"id":1,"method":"CheckTransaction","params":{"id":"tx1"}}`))
		req.Header.Set("Authorization", "Basic "+base64.StdEncoding.EncodeToString([]byte("Paycom:merchant-key")))
		if forwardedFor != "" {
			req.Header.Set("X-Forwarded-For", forwardedFor)
		}
		resp, err := application.App.Test(req, -1)
		require.NoError(t, err)
		var out payme.Response
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
		return out.Code()
	}

	assert.Equal(t, payme.CodeTransactionNotFound, call("185.234.113.1"))
	assert.Equal(t, payme.CodeAuthFailure, call("8.8.8.8"))
	assert.Equal(t, payme.CodeAuthFailure, call(""))
}

func TestFiberConfig(t *testing.T) {
	fc := fiberConfig(config.App{Name: "futapp-api"})
	assert.Empty(t, fc.ProxyHeader)
	assert.False(t, fc.EnableTrustedProxyCheck)

	fc = fiberConfig(config.App{Name: "futapp-api", ProxyHeader: "X-Real-IP", TrustedProxies: []string{"10.0.0.1"}})
	assert.Equal(t, "X-Real-IP", fc.ProxyHeader)
	assert.True(t, fc.EnableTrustedProxyCheck)
	assert.Equal(t, []string{"10.0.0.1"}, fc.TrustedProxies)
}
