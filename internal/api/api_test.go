package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"carbooker/internal/config"
	"carbooker/internal/database"
	"carbooker/internal/export"
	"carbooker/internal/models"
	"carbooker/internal/provider"
	"carbooker/internal/repository"
	"carbooker/internal/service"
)

// stubAdapter lets tests script provider behavior per call.
type stubAdapter struct {
	name       string
	initiate   func(payment *models.Payment, order *models.Order) (*models.ChargeResult, error)
	status     func(transactionID string) (*models.ChargeResult, error)
	verifyHook func(payload []byte, signature string) (*models.WebhookEvent, error)
}

func (a *stubAdapter) Name() string { return a.name }

func (a *stubAdapter) InitiateCharge(_ context.Context, payment *models.Payment, order *models.Order) (*models.ChargeResult, error) {
	if a.initiate == nil {
		return &models.ChargeResult{TransactionID: "txn_1", Status: provider.StatusPending}, nil
	}
	return a.initiate(payment, order)
}

func (a *stubAdapter) GetStatus(_ context.Context, transactionID string) (*models.ChargeResult, error) {
	if a.status == nil {
		return &models.ChargeResult{TransactionID: transactionID, Status: provider.StatusPending}, nil
	}
	return a.status(transactionID)
}

func (a *stubAdapter) VerifyWebhook(payload []byte, signature string) (*models.WebhookEvent, error) {
	return a.verifyHook(payload, signature)
}

type apiFixture struct {
	db      *database.DB
	srv     *httptest.Server
	adapter *stubAdapter
	user    *models.User
	car     *models.Car
}

func newAPIFixture(t *testing.T, cfg config.ServerConfig) *apiFixture {
	t.Helper()
	logger := zerolog.Nop()
	db, err := database.NewDB(filepath.Join(t.TempDir(), "test.db"), &logger)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	adapter := &stubAdapter{name: models.MethodStripe}
	bookings := service.NewBookingService(db, nil, nil, 0.20, &logger)
	orders := service.NewOrderService(db, nil, &logger)
	payments := service.NewPaymentService(db, provider.NewRegistry(adapter),
		repository.NewMemoryDedupStore(), nil, nil, "", 2*time.Second, &logger)

	server := NewServer(cfg, bookings, orders, payments, db, export.NewExporter(t.TempDir()), &logger)
	srv := httptest.NewServer(server.Handler())
	t.Cleanup(srv.Close)

	f := &apiFixture{db: db, srv: srv, adapter: adapter}
	f.user = &models.User{Name: "API User", Email: fmt.Sprintf("api-%d@example.com", seq.Add(1)), Phone: "555-0100"}
	require.NoError(t, db.CreateUser(context.Background(), f.user))
	f.car = &models.Car{Name: "Sedan", Model: "Corolla", Seats: 4, HourlyRate: 10, DailyRate: 100, Available: true}
	require.NoError(t, db.CreateCar(context.Background(), f.car))
	return f
}

var seq atomic.Int64

func (f *apiFixture) seedLocations(t *testing.T) (*models.Location, *models.Location) {
	t.Helper()
	pickup := &models.Location{Name: fmt.Sprintf("pickup-%d", seq.Add(1)), Address: "1 Main St", City: "Springfield"}
	require.NoError(t, f.db.CreateLocation(context.Background(), pickup))
	drop := &models.Location{Name: fmt.Sprintf("drop-%d", seq.Add(1)), Address: "2 Main St", City: "Springfield"}
	require.NoError(t, f.db.CreateLocation(context.Background(), drop))
	return pickup, drop
}

func (f *apiFixture) seedPackage(t *testing.T) *models.Package {
	t.Helper()
	pickup, drop := f.seedLocations(t)
	pkg := &models.Package{
		Name:             "Weekend Special",
		PickupLocationID: pickup.ID,
		DropLocationID:   drop.ID,
		CarID:            f.car.ID,
		BasePrice:        500,
		DiscountedPrice:  400,
		StartDate:        time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		EndDate:          time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC),
		Available:        true,
	}
	require.NoError(t, f.db.CreatePackage(context.Background(), pkg))
	return pkg
}

func (f *apiFixture) do(t *testing.T, method, path string, body any, headers map[string]string) (*http.Response, response) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, f.srv.URL+path, &buf)
	require.NoError(t, err)
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })

	var envelope response
	_ = json.NewDecoder(resp.Body).Decode(&envelope)
	return resp, envelope
}

func openConfig() config.ServerConfig {
	return config.ServerConfig{Port: 0}
}
