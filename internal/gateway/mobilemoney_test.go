package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Domenick1991/servicebooking/config"
	"github.com/Domenick1991/servicebooking/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizePhone(t *testing.T) {
	cases := map[string]string{
		"0712 345 678":   "254712345678",
		"0112345678":     "254112345678",
		"712345678":      "254712345678",
		"+254-712345678": "254712345678",
	}
	for in, want := range cases {
		got, err := SanitizePhone(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}

	for _, bad := range []string{"", "12345", "0812345678", "25571234567"} {
		_, err := SanitizePhone(bad)
		assert.ErrorIs(t, err, ErrInvalidPhone, bad)
	}
}

func TestMobileMoneyGateway_RequestPayment(t *testing.T) {
	var got STKPushRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/stkpush", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_ = json.NewEncoder(w).Encode(STKPushResponse{CheckoutRequestID: "ws_CO_1", ResponseCode: "0"})
	}))
	defer srv.Close()

	gw := NewMobileMoneyGateway(config.PaymentsConfig{
		GatewayURL:    srv.URL + "/",
		GatewayAPIKey: "secret",
		CallbackURL:   "https://api.example.com/webhooks/payments",
	}, nil)

	err := gw.RequestPayment(context.Background(), domain.PaymentMethodMpesa, "0712345678", 55, "ref-1")

	require.NoError(t, err)
	assert.Equal(t, "ref-1", got.Reference)
	assert.Equal(t, "MPESA", got.Method)
	assert.Equal(t, "254712345678", got.PhoneNumber)
	assert.Equal(t, "55", got.Amount)
	assert.Equal(t, "https://api.example.com/webhooks/payments", got.CallbackURL)
}

func TestMobileMoneyGateway_Failures(t *testing.T) {
	rejected := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(STKPushResponse{ResponseCode: "1", Description: "insufficient funds"})
	}))
	defer rejected.Close()
	down := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer down.Close()

	ctx := context.Background()

	err := NewMobileMoneyGateway(config.PaymentsConfig{GatewayURL: rejected.URL}, nil).
		RequestPayment(ctx, domain.PaymentMethodMpesa, "0712345678", 10, "ref-2")
	assert.ErrorContains(t, err, "insufficient funds")

	err = NewMobileMoneyGateway(config.PaymentsConfig{GatewayURL: down.URL}, nil).
		RequestPayment(ctx, domain.PaymentMethodMpesa, "0712345678", 10, "ref-3")
	assert.ErrorContains(t, err, "502")

	err = NewMobileMoneyGateway(config.PaymentsConfig{GatewayURL: down.URL}, nil).
		RequestPayment(ctx, domain.PaymentMethodMpesa, "not a phone", 10, "ref-4")
	assert.ErrorIs(t, err, ErrInvalidPhone)
}
