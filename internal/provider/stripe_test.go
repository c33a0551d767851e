package provider

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
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

func newStripeTest(t *testing.T, handler http.HandlerFunc) *StripeAdapter {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	logger := zerolog.Nop()
	return NewStripeAdapter(config.StripeConfig{
		SecretKey:     "sk_test_key",
		WebhookSecret: "whsec_test",
		BaseURL:       server.URL,
		SuccessURL:    "https://example.com/success",
		CancelURL:     "https://example.com/cancel",
	}, 5*time.Second, &logger)
}

func TestStripeInitiateCharge(t *testing.T) {
	adapter := newStripeTest(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/checkout/sessions", r.URL.Path)
		assert.Equal(t, "Bearer sk_test_key", r.Header.Get("Authorization"))

		require.NoError(t, r.ParseForm())
		assert.Equal(t, "payment", r.PostForm.Get("mode"))
		assert.Equal(t, "40000", r.PostForm.Get("line_items[0][price_data][unit_amount]"))
		assert.Equal(t, "usd", r.PostForm.Get("line_items[0][price_data][currency]"))
		assert.Equal(t, "42", r.PostForm.Get("metadata[payment_id]"))

		fmt.Fprint(w, `{"id":"cs_test_1","url":"https://checkout.stripe.com/c/pay/cs_test_1","payment_status":"unpaid","status":"open"}`)
	})

	payment := &models.Payment{ID: 42, Amount: 400, Currency: "USD"}
	order := &models.Order{ID: 7}

	result, err := adapter.InitiateCharge(context.Background(), payment, order)
	require.NoError(t, err)
	assert.Equal(t, "cs_test_1", result.TransactionID)
	assert.Equal(t, StatusPending, result.Status)
	assert.NotEmpty(t, result.CheckoutURL)
}

func TestStripeGetStatus(t *testing.T) {
	adapter := newStripeTest(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/checkout/sessions/cs_test_1", r.URL.Path)
		fmt.Fprint(w, `{"id":"cs_test_1","payment_status":"paid","status":"complete"}`)
	})

	result, err := adapter.GetStatus(context.Background(), "cs_test_1")
	require.NoError(t, err)
	assert.Equal(t, StatusSuccess, result.Status)
}

func TestStripeGetStatus_GatewayError(t *testing.T) {
	adapter := newStripeTest(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		fmt.Fprint(w, `{"error":{"message":"boom"}}`)
	})

	_, err := adapter.GetStatus(context.Background(), "cs_test_1")
	require.Error(t, err)

	var provErr *Error
	require.ErrorAs(t, err, &provErr)
	assert.Equal(t, models.MethodStripe, provErr.Provider)
}

func signStripePayload(secret string, timestamp string, payload []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(timestamp))
	mac.Write([]byte("."))
	mac.Write(payload)
	return fmt.Sprintf("t=%s,v1=%s", timestamp, hex.EncodeToString(mac.Sum(nil)))
}

func TestStripeVerifyWebhook(t *testing.T) {
	adapter := newStripeTest(t, nil)
	payload := []byte(`{"id":"evt_1","type":"checkout.session.completed","data":{"object":{"id":"cs_test_1","payment_status":"paid","metadata":{"payment_id":"42"}}}}`)
	header := signStripePayload("whsec_test", "1700000000", payload)

	event, err := adapter.VerifyWebhook(payload, header)
	require.NoError(t, err)
	assert.Equal(t, "evt_1", event.ID)
	assert.Equal(t, EventCheckoutCompleted, event.Type)
	assert.Equal(t, int64(42), event.PaymentID)
	assert.Equal(t, "cs_test_1", event.TransactionID)
	assert.Equal(t, StatusSuccess, event.Status)
}

func TestStripeVerifyWebhook_BadSignature(t *testing.T) {
	adapter := newStripeTest(t, nil)
	payload := []byte(`{"id":"evt_1","type":"checkout.session.completed"}`)

	_, err := adapter.VerifyWebhook(payload, signStripePayload("wrong_secret", "1700000000", payload))
	assert.Error(t, err)

	_, err = adapter.VerifyWebhook(payload, "not-a-signature-header")
	assert.Error(t, err)

	// Tampered payload fails even with a once-valid header.
	header := signStripePayload("whsec_test", "1700000000", payload)
	_, err = adapter.VerifyWebhook([]byte(`{"id":"evt_2"}`), header)
	assert.Error(t, err)
}

func TestStripeVerifyWebhook_ExpiredSession(t *testing.T) {
	adapter := newStripeTest(t, nil)
	payload := []byte(`{"id":"evt_2","type":"checkout.session.expired","data":{"object":{"id":"cs_test_2","payment_status":"unpaid","metadata":{"payment_id":"42"}}}}`)
	header := signStripePayload("whsec_test", "1700000000", payload)

	event, err := adapter.VerifyWebhook(payload, header)
	require.NoError(t, err)
	assert.Equal(t, EventCheckoutExpired, event.Type)
	assert.Equal(t, int64(42), event.PaymentID)
	assert.Equal(t, StatusFailed, event.Status)
}

func TestStripeVerifyWebhook_UnknownEventType(t *testing.T) {
	adapter := newStripeTest(t, nil)
	payload := []byte(`{"id":"evt_9","type":"invoice.created","data":{"object":{"id":"in_1"}}}`)
	header := signStripePayload("whsec_test", "1700000000", payload)

	event, err := adapter.VerifyWebhook(payload, header)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, event.Status)
}
