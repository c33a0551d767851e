package provider

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"carbooker/internal/config"
	"carbooker/internal/models"
)

func newPayPalTest(t *testing.T, routes map[string]http.HandlerFunc) *PayPalAdapter {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/oauth2/token", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"access_token":"test-token","token_type":"Bearer","expires_in":3600}`)
	})
	for pattern, handler := range routes {
		mux.HandleFunc(pattern, handler)
	}
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	logger := zerolog.Nop()
	return NewPayPalAdapter(config.PayPalConfig{
		ClientID: "client-id",
		Secret:   "client-secret",
		BaseURL:  server.URL,
	}, 5*time.Second, &logger)
}

func TestPayPalInitiateCharge(t *testing.T) {
	adapter := newPayPalTest(t, map[string]http.HandlerFunc{
		"/v2/checkout/orders": func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))

			var req struct {
				Intent        string `json:"intent"`
				PurchaseUnits []struct {
					ReferenceID string `json:"reference_id"`
					Amount      struct {
						CurrencyCode string `json:"currency_code"`
						Value        string `json:"value"`
					} `json:"amount"`
				} `json:"purchase_units"`
			}
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, "CAPTURE", req.Intent)
			require.Len(t, req.PurchaseUnits, 1)
			assert.Equal(t, "42", req.PurchaseUnits[0].ReferenceID)
			assert.Equal(t, "400.00", req.PurchaseUnits[0].Amount.Value)
			assert.Equal(t, "USD", req.PurchaseUnits[0].Amount.CurrencyCode)

			fmt.Fprint(w, `{"id":"PP-1","status":"CREATED","links":[{"href":"https://paypal.example/approve/PP-1","rel":"approve"}]}`)
		},
	})

	payment := &models.Payment{ID: 42, Amount: 400, Currency: "USD"}
	order := &models.Order{ID: 7}

	result, err := adapter.InitiateCharge(context.Background(), payment, order)
	require.NoError(t, err)
	assert.Equal(t, "PP-1", result.TransactionID)
	assert.Equal(t, StatusPending, result.Status)
	assert.Equal(t, "https://paypal.example/approve/PP-1", result.CheckoutURL)
}

func TestPayPalGetStatus_CapturesApprovedOrder(t *testing.T) {
	var captured bool
	adapter := newPayPalTest(t, map[string]http.HandlerFunc{
		"/v2/checkout/orders/PP-1": func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{"id":"PP-1","status":"APPROVED"}`)
		},
		"/v2/checkout/orders/PP-1/capture": func(w http.ResponseWriter, r *http.Request) {
			captured = true
			assert.Equal(t, http.MethodPost, r.Method)
			fmt.Fprint(w, `{"id":"PP-1","status":"COMPLETED"}`)
		},
	})

	result, err := adapter.GetStatus(context.Background(), "PP-1")
	require.NoError(t, err)
	assert.True(t, captured, "approved orders must be captured")
	assert.Equal(t, StatusSuccess, result.Status)
}

func TestPayPalGetStatus_CreatedStaysPending(t *testing.T) {
	adapter := newPayPalTest(t, map[string]http.HandlerFunc{
		"/v2/checkout/orders/PP-2": func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{"id":"PP-2","status":"CREATED"}`)
		},
	})

	result, err := adapter.GetStatus(context.Background(), "PP-2")
	require.NoError(t, err)
	assert.Equal(t, StatusPending, result.Status)
}

func TestPayPalVerifyWebhook(t *testing.T) {
	adapter := newPayPalTest(t, nil)
	payload := []byte(`{"id":"WH-1","event_type":"CHECKOUT.ORDER.COMPLETED","resource":{"id":"PP-1","status":"COMPLETED","purchase_units":[{"reference_id":"42"}]}}`)

	mac := hmac.New(sha256.New, []byte("client-secret"))
	mac.Write(payload)
	signature := hex.EncodeToString(mac.Sum(nil))

	event, err := adapter.VerifyWebhook(payload, signature)
	require.NoError(t, err)
	assert.Equal(t, "WH-1", event.ID)
	assert.Equal(t, int64(42), event.PaymentID)
	assert.Equal(t, StatusSuccess, event.Status)

	_, err = adapter.VerifyWebhook(payload, "deadbeef")
	assert.Error(t, err)
}

func TestRegistry(t *testing.T) {
	logger := zerolog.Nop()
	stripe := NewStripeAdapter(config.StripeConfig{BaseURL: "https://api.stripe.com"}, time.Second, &logger)
	paypal := NewPayPalAdapter(config.PayPalConfig{BaseURL: "https://api.sandbox.paypal.com"}, time.Second, &logger)

	registry := NewRegistry(stripe, paypal)

	got, err := registry.Get(models.MethodStripe)
	require.NoError(t, err)
	assert.Equal(t, models.MethodStripe, got.Name())

	got, err = registry.Get(models.MethodPayPal)
	require.NoError(t, err)
	assert.Equal(t, models.MethodPayPal, got.Name())

	_, err = registry.Get("bitcoin")
	assert.ErrorIs(t, err, ErrUnsupportedMethod)
}
