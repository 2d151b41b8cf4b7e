package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMainController_Root(t *testing.T) {
	app := fiber.New()
	app.Get("/", NewMainController(nil).HandleRoot)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, welcomeMessage, body["message"])
}

func TestMainController_Health(t *testing.T) {
	ok := func(ctx context.Context) error { return nil }
	down := func(ctx context.Context) error { return errors.New("connection refused") }

	tests := []struct {
		name   string
		checks map[string]HealthCheck
		status int
	}{
		{"all up", map[string]HealthCheck{"database": ok, "cache": ok}, fiber.StatusOK},
		{"cache down", map[string]HealthCheck{"database": ok, "cache": down}, fiber.StatusServiceUnavailable},
		{"no checks", nil, fiber.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := fiber.New()
			app.Get("/healthz", NewMainController(tt.checks).HandleHealth)

			resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/healthz", nil), -1)
			require.NoError(t, err)
			assert.Equal(t, tt.status, resp.StatusCode)
		})
	}
}
