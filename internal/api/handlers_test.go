package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"carbooker/internal/models"
	"carbooker/internal/provider"
)

func dataAs[T any](t *testing.T, envelope response) T {
	t.Helper()
	raw, err := json.Marshal(envelope.Data)
	require.NoError(t, err)
	var out T
	require.NoError(t, json.Unmarshal(raw, &out))
	return out
}

func TestHealth(t *testing.T) {
	f := newAPIFixture(t, openConfig())

	resp, envelope := f.do(t, http.MethodGet, "/healthz", nil, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, envelope.Success)
}

func TestBookings_CreateAndGet(t *testing.T) {
	f := newAPIFixture(t, openConfig())
	pickup, drop := f.seedLocations(t)

	body := map[string]any{
		"user_id":            f.user.ID,
		"car_id":             f.car.ID,
		"pickup_location_id": pickup.ID,
		"drop_location_id":   drop.ID,
		"pick_up_time":       "2026-03-10T09:00:00Z",
		"drop_off_time":      "2026-03-10T14:00:00Z",
		"payment_type":       "full",
	}
	resp, envelope := f.do(t, http.MethodPost, "/api/v1/bookings", body, nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	created := dataAs[models.Booking](t, envelope)
	assert.Equal(t, 50.0, created.TotalAmount)

	resp, envelope = f.do(t, http.MethodGet, fmt.Sprintf("/api/v1/bookings/%d", created.ID), nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	fetched := dataAs[models.Booking](t, envelope)
	assert.Equal(t, created.ID, fetched.ID)
	require.NotNil(t, fetched.Car)
	assert.Equal(t, "Sedan", fetched.Car.Name)
}

func TestBookings_CarConflict(t *testing.T) {
	f := newAPIFixture(t, openConfig())
	pickup, drop := f.seedLocations(t)

	body := map[string]any{
		"user_id":            f.user.ID,
		"car_id":             f.car.ID,
		"pickup_location_id": pickup.ID,
		"drop_location_id":   drop.ID,
		"pick_up_time":       "2026-03-10T09:00:00Z",
		"drop_off_time":      "2026-03-10T14:00:00Z",
		"payment_type":       "full",
	}
	resp, _ := f.do(t, http.MethodPost, "/api/v1/bookings", body, nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, envelope := f.do(t, http.MethodPost, "/api/v1/bookings", body, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.False(t, envelope.Success)
}

func TestBookings_InvalidJSON(t *testing.T) {
	f := newAPIFixture(t, openConfig())

	req, err := http.NewRequest(http.MethodPost, f.srv.URL+"/api/v1/bookings", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestBookings_UnknownPaymentType(t *testing.T) {
	f := newAPIFixture(t, openConfig())
	pickup, drop := f.seedLocations(t)

	body := map[string]any{
		"user_id":            f.user.ID,
		"car_id":             f.car.ID,
		"pickup_location_id": pickup.ID,
		"drop_location_id":   drop.ID,
		"pick_up_time":       "2026-03-10T09:00:00Z",
		"drop_off_time":      "2026-03-10T14:00:00Z",
		"payment_type":       "installments",
	}
	resp, envelope := f.do(t, http.MethodPost, "/api/v1/bookings", body, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.False(t, envelope.Success)
}

func TestBookings_NotFound(t *testing.T) {
	f := newAPIFixture(t, openConfig())

	resp, _ := f.do(t, http.MethodGet, "/api/v1/bookings/9999", nil, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = f.do(t, http.MethodGet, "/api/v1/bookings/abc", nil, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestOrders_CreateAndCancel(t *testing.T) {
	f := newAPIFixture(t, openConfig())
	pkg := f.seedPackage(t)

	resp, envelope := f.do(t, http.MethodPost, "/api/v1/orders",
		map[string]any{"package_id": pkg.ID, "user_id": f.user.ID}, nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	order := dataAs[models.Order](t, envelope)
	assert.Equal(t, models.OrderPending, order.Status)

	resp, _ = f.do(t, http.MethodPost, fmt.Sprintf("/api/v1/orders/%d/cancel", order.ID), nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, envelope = f.do(t, http.MethodGet, fmt.Sprintf("/api/v1/orders/%d", order.ID), nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	cancelled := dataAs[models.Order](t, envelope)
	assert.Equal(t, models.OrderCancelled, cancelled.Status)

	// Cancelling again violates the state machine.
	resp, _ = f.do(t, http.MethodPost, fmt.Sprintf("/api/v1/orders/%d/cancel", order.ID), nil, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestPayments_CreateVerifyFlow(t *testing.T) {
	f := newAPIFixture(t, openConfig())
	pkg := f.seedPackage(t)

	_, envelope := f.do(t, http.MethodPost, "/api/v1/orders",
		map[string]any{"package_id": pkg.ID, "user_id": f.user.ID}, nil)
	order := dataAs[models.Order](t, envelope)

	f.adapter.initiate = func(_ *models.Payment, _ *models.Order) (*models.ChargeResult, error) {
		return &models.ChargeResult{
			TransactionID: "cs_42",
			Status:        provider.StatusPending,
			CheckoutURL:   "https://checkout.example.com/cs_42",
		}, nil
	}

	resp, envelope := f.do(t, http.MethodPost, "/api/v1/payments",
		map[string]any{"order_id": order.ID, "user_id": f.user.ID, "payment_method": "stripe"}, nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	payment := dataAs[models.Payment](t, envelope)
	assert.Equal(t, 400.0, payment.Amount)
	assert.Equal(t, "https://checkout.example.com/cs_42", payment.CheckoutURL)

	// Verify while the charge is still pending: rejected, nothing mutates.
	f.adapter.status = func(string) (*models.ChargeResult, error) {
		return &models.ChargeResult{TransactionID: "cs_42", Status: provider.StatusPending}, nil
	}
	resp, _ = f.do(t, http.MethodPost, fmt.Sprintf("/api/v1/payments/%d/verify", payment.ID), nil, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// The charge completes; verification settles payment and order.
	f.adapter.status = func(string) (*models.ChargeResult, error) {
		return &models.ChargeResult{TransactionID: "cs_42", Status: provider.StatusSuccess}, nil
	}
	resp, envelope = f.do(t, http.MethodGet, fmt.Sprintf("/api/v1/payments/verify/%d", payment.ID), nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	settled := dataAs[models.Payment](t, envelope)
	assert.Equal(t, models.PaymentSuccess, settled.Status)

	// The verb-after-id form settles idempotently to the same record.
	resp, _ = f.do(t, http.MethodPost, fmt.Sprintf("/api/v1/payments/%d/verify", payment.ID), nil, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	confirmed, err := f.db.GetOrder(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderConfirmed, confirmed.Status)
	assert.Equal(t, models.OrderPaymentPaid, confirmed.PaymentStatus)
}

func TestPayments_UnsupportedMethod(t *testing.T) {
	f := newAPIFixture(t, openConfig())
	pkg := f.seedPackage(t)

	_, envelope := f.do(t, http.MethodPost, "/api/v1/orders",
		map[string]any{"package_id": pkg.ID, "user_id": f.user.ID}, nil)
	order := dataAs[models.Order](t, envelope)

	resp, _ := f.do(t, http.MethodPost, "/api/v1/payments",
		map[string]any{"order_id": order.ID, "user_id": f.user.ID, "payment_method": "cash"}, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestWebhook_SettlesAndAcksReplay(t *testing.T) {
	f := newAPIFixture(t, openConfig())
	pkg := f.seedPackage(t)

	_, envelope := f.do(t, http.MethodPost, "/api/v1/orders",
		map[string]any{"package_id": pkg.ID, "user_id": f.user.ID}, nil)
	order := dataAs[models.Order](t, envelope)

	_, envelope = f.do(t, http.MethodPost, "/api/v1/payments",
		map[string]any{"order_id": order.ID, "user_id": f.user.ID, "payment_method": "stripe"}, nil)
	payment := dataAs[models.Payment](t, envelope)

	f.adapter.verifyHook = func(payload []byte, signature string) (*models.WebhookEvent, error) {
		if signature != "valid" {
			return nil, errors.New("signature mismatch")
		}
		return &models.WebhookEvent{
			ID:        "evt_1",
			Type:      provider.EventCheckoutCompleted,
			PaymentID: payment.ID,
			Status:    provider.StatusSuccess,
			Raw:       payload,
		}, nil
	}

	headers := map[string]string{"Stripe-Signature": "valid"}
	resp, _ := f.do(t, http.MethodPost, "/api/v1/payments/stripe-webhook", map[string]any{}, headers)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// Replays are acknowledged, not re-processed; the generic route is an
	// alias for the same handler.
	resp, _ = f.do(t, http.MethodPost, "/api/v1/webhooks/stripe", map[string]any{}, headers)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = f.do(t, http.MethodPost, "/api/v1/webhooks/stripe", map[string]any{},
		map[string]string{"Stripe-Signature": "forged"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	stored, err := f.db.GetPayment(context.Background(), payment.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentSuccess, stored.Status)
}

func TestPaymentHistory_ListAndExport(t *testing.T) {
	f := newAPIFixture(t, openConfig())
	pkg := f.seedPackage(t)

	_, envelope := f.do(t, http.MethodPost, "/api/v1/orders",
		map[string]any{"package_id": pkg.ID, "user_id": f.user.ID}, nil)
	order := dataAs[models.Order](t, envelope)
	_, envelope = f.do(t, http.MethodPost, "/api/v1/payments",
		map[string]any{"order_id": order.ID, "user_id": f.user.ID, "payment_method": "stripe"}, nil)
	payment := dataAs[models.Payment](t, envelope)

	resp, envelope := f.do(t, http.MethodGet,
		fmt.Sprintf("/api/v1/payment-history?payment_id=%d", payment.ID), nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	entries := dataAs[[]models.PaymentHistory](t, envelope)
	require.Len(t, entries, 2) // created + attempted
	require.NotNil(t, envelope.Meta)
	assert.EqualValues(t, 2, envelope.Meta.Total)

	req, err := http.NewRequest(http.MethodGet, f.srv.URL+"/api/v1/payment-history/export", nil)
	require.NoError(t, err)
	raw, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer raw.Body.Close()
	assert.Equal(t, http.StatusOK, raw.StatusCode)
	assert.Contains(t, raw.Header.Get("Content-Disposition"), ".xlsx")
}

func TestPackages_Lifecycle(t *testing.T) {
	f := newAPIFixture(t, openConfig())
	pickup, drop := f.seedLocations(t)

	body := map[string]any{
		"name":               "Spring Route",
		"pickup_location_id": pickup.ID,
		"drop_location_id":   drop.ID,
		"car_id":             f.car.ID,
		"base_price":         500,
		"discounted_price":   400,
		"start_date":         "2026-04-01T00:00:00Z",
		"end_date":           "2026-04-10T00:00:00Z",
	}
	resp, envelope := f.do(t, http.MethodPost, "/api/v1/packages", body, nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	pkg := dataAs[models.Package](t, envelope)

	// Overlapping window for the same car is rejected.
	body["name"] = "Clashing Route"
	body["start_date"] = "2026-04-05T00:00:00Z"
	body["end_date"] = "2026-04-15T00:00:00Z"
	resp, _ = f.do(t, http.MethodPost, "/api/v1/packages", body, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = f.do(t, http.MethodPut, fmt.Sprintf("/api/v1/packages/%d", pkg.ID),
		map[string]any{"start_date": "2026-05-01T00:00:00Z", "end_date": "2026-05-10T00:00:00Z"}, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = f.do(t, http.MethodDelete, fmt.Sprintf("/api/v1/packages/%d", pkg.ID), nil, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestCarsAndLocations_List(t *testing.T) {
	f := newAPIFixture(t, openConfig())
	f.seedLocations(t)

	resp, envelope := f.do(t, http.MethodGet, "/api/v1/cars", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	cars := dataAs[[]models.Car](t, envelope)
	require.Len(t, cars, 1)
	assert.Equal(t, "Sedan", cars[0].Name)

	resp, envelope = f.do(t, http.MethodGet, "/api/v1/locations", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	locations := dataAs[[]models.Location](t, envelope)
	assert.Len(t, locations, 2)
}

func TestEndpointLabel(t *testing.T) {
	assert.Equal(t, "/api/v1/bookings", endpointLabel("/api/v1/bookings/17"))
	assert.Equal(t, "/api/v1/payments", endpointLabel("/api/v1/payments/3/verify"))
	assert.Equal(t, "/healthz", endpointLabel("/healthz"))
}

func TestPathID(t *testing.T) {
	id, action, ok := pathID("/api/v1/payments/7/verify", "/api/v1/payments/")
	assert.True(t, ok)
	assert.EqualValues(t, 7, id)
	assert.Equal(t, "verify", action)

	_, _, ok = pathID("/api/v1/payments/abc", "/api/v1/payments/")
	assert.False(t, ok)

	_, _, ok = pathID("/api/v1/payments/", "/api/v1/payments/")
	assert.False(t, ok)
}
