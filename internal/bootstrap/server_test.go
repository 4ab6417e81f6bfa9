package bootstrap

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Domenick1991/servicebooking/config"
	"github.com/Domenick1991/servicebooking/internal/auth"
	"github.com/stretchr/testify/assert"
)

func testRouterConfig() *config.Config {
	return &config.Config{
		HTTP:     config.HTTPConfig{Address: ":0", AllowedOrigins: []string{"https://app.example.com"}},
		Payments: config.PaymentsConfig{WebhookSecret: "s3cret"},
	}
}

func TestNewRouter_Health(t *testing.T) {
	router := NewRouter(testRouterConfig(), Services{Tokens: auth.NewTokens("secret")}, nil)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestNewRouter_RequiresToken(t *testing.T) {
	router := NewRouter(testRouterConfig(), Services{Tokens: auth.NewTokens("secret")}, nil)

	for _, path := range []string{"/api/v1/bookings", "/api/v1/workers/nearby", "/api/v1/notifications", "/ws/bookings/b-1"} {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusUnauthorized, w.Code, path)
	}
}

func TestNewRouter_WebhookSkipsJWT(t *testing.T) {
	router := NewRouter(testRouterConfig(), Services{Tokens: auth.NewTokens("secret")}, nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/webhooks/payments", nil)
	req.Header.Set("X-Webhook-Secret", "wrong")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "invalid webhook secret")
}
