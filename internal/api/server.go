// Package api exposes the booking platform over HTTP: bookings, packages,
// orders, payments and the provider webhook endpoints.
package api

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"carbooker/internal/config"
	"carbooker/internal/domain"
	"carbooker/internal/export"
	"carbooker/internal/metrics"
	"carbooker/internal/service"
)

type Server struct {
	cfg      config.ServerConfig
	bookings *service.BookingService
	orders   *service.OrderService
	payments *service.PaymentService
	repo     domain.Repository
	exporter *export.Exporter
	auth     *Auth
	logger   *zerolog.Logger
	server   *http.Server
}

func NewServer(
	cfg config.ServerConfig,
	bookings *service.BookingService,
	orders *service.OrderService,
	payments *service.PaymentService,
	repo domain.Repository,
	exporter *export.Exporter,
	logger *zerolog.Logger,
) *Server {
	s := &Server{
		cfg:      cfg,
		bookings: bookings,
		orders:   orders,
		payments: payments,
		repo:     repo,
		exporter: exporter,
		auth:     NewAuth(cfg),
		logger:   logger,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/api/v1/bookings", s.handleBookings)
	mux.HandleFunc("/api/v1/bookings/", s.handleBookingByID)
	mux.HandleFunc("/api/v1/orders", s.handleOrders)
	mux.HandleFunc("/api/v1/orders/", s.handleOrderByID)
	mux.HandleFunc("/api/v1/payments", s.handlePayments)
	mux.HandleFunc("/api/v1/payments/", s.handlePaymentByID)
	mux.HandleFunc("/api/v1/webhooks/", s.handleWebhook)
	mux.HandleFunc("/api/v1/payment-history", s.handlePaymentHistory)
	mux.HandleFunc("/api/v1/payment-history/export", s.handlePaymentHistoryExport)
	mux.HandleFunc("/api/v1/cars", s.handleCars)
	mux.HandleFunc("/api/v1/cars/", s.handleCarByID)
	mux.HandleFunc("/api/v1/packages", s.handlePackages)
	mux.HandleFunc("/api/v1/packages/", s.handlePackageByID)
	mux.HandleFunc("/api/v1/locations", s.handleLocations)
	mux.HandleFunc("/api/v1/users", s.handleUsers)
	mux.HandleFunc("/api/v1/users/", s.handleUserByID)

	handler := s.loggingMiddleware(s.auth.Wrap(mux))

	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      30 * time.Second,
	}
	return s
}

// Handler returns the fully wrapped root handler.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

func (s *Server) Start() error {
	s.logger.Info().Str("addr", s.server.Addr).Msg("http api listening")
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeMessage(w, http.StatusOK, "ok")
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(recorder, r)

		endpoint := endpointLabel(r.URL.Path)
		metrics.IncHTTP(endpoint)

		s.logger.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", recorder.status).
			Dur("duration", time.Since(start)).
			Msg("http request")
	})
}

// endpointLabel collapses the path to its resource segment so the metric
// label stays low-cardinality.
func endpointLabel(path string) string {
	const prefix = "/api/v1/"
	if !strings.HasPrefix(path, prefix) {
		return path
	}
	rest := strings.TrimPrefix(path, prefix)
	if i := strings.IndexByte(rest, '/'); i >= 0 {
		rest = rest[:i]
	}
	return prefix + rest
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}
