package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v2"

	"carbooker/internal/api"
	"carbooker/internal/config"
	"carbooker/internal/database"
	"carbooker/internal/domain"
	"carbooker/internal/events"
	"carbooker/internal/export"
	"carbooker/internal/google"
	"carbooker/internal/logging"
	"carbooker/internal/metrics"
	"carbooker/internal/models"
	"carbooker/internal/notification"
	"carbooker/internal/provider"
	"carbooker/internal/repository"
	"carbooker/internal/service"
	"carbooker/internal/worker"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	cfg, logger, closer, err := loadConfigAndLogger()
	if err != nil {
		return err
	}
	if closer != nil {
		defer (func() { _ = closer.Close() })()
	}

	db, err := database.NewDB(cfg.Database.Path, logger)
	if err != nil {
		logger.Error().Err(err).Str("db_path", cfg.Database.Path).Msg("init database")
		return err
	}
	defer db.Close()

	if err := seedFleet(db, logger); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dedup := initDedupStore(cfg, logger)
	defer dedup.Close()

	registry := provider.NewRegistry(
		provider.NewStripeAdapter(cfg.Payment.Stripe, cfg.Payment.ProviderCallTimeout(), logger),
		provider.NewPayPalAdapter(cfg.Payment.PayPal, cfg.Payment.ProviderCallTimeout(), logger),
	)

	notifier, err := notification.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ManagerChatID, logger)
	if err != nil {
		logger.Warn().Err(err).Msg("telegram init failed, continuing without notifications")
		notifier, _ = notification.NewTelegramNotifier("", 0, logger)
	}

	eventBus := events.NewEventBus()

	syncWorker := initSheetSync(ctx, cfg, db, logger)

	bookings := service.NewBookingService(db, eventBus, syncWorker, cfg.Payment.DepositRate, logger)
	orders := service.NewOrderService(db, eventBus, logger)
	payments := service.NewPaymentService(db, registry, dedup, eventBus, notifier, cfg.Payment.Currency,
		cfg.Payment.ProviderCallTimeout(), logger)

	subscribeAuditLog(eventBus, logger)

	startMetrics(ctx, cfg, logger)

	server := api.NewServer(cfg.Server, bookings, orders, payments, db, export.NewExporter(cfg.Exports.Path), logger)
	go func() {
		if err := server.Start(); err != nil {
			logger.Error().Err(err).Msg("http server stopped")
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http server shutdown")
	}

	logger.Info().Msg("server stopped")
	return nil
}

func loadConfigAndLogger() (*config.Config, *zerolog.Logger, io.Closer, error) {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("load config: %w", err)
	}

	baseLogger, closer, err := logging.New(cfg.Logging, cfg.App)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("init logger: %w", err)
	}
	logger := baseLogger.With().Str("component", "api-main").Logger()

	return cfg, &logger, closer, nil
}

// seedFleet upserts the fleet definition so a fresh database starts with
// cars. Reserved cars keep their availability across restarts.
func seedFleet(db *database.DB, logger *zerolog.Logger) error {
	carsPath := os.Getenv("CARS_PATH")
	if carsPath == "" {
		carsPath = "configs/cars.yaml"
	}

	data, err := os.ReadFile(carsPath)
	if err != nil {
		if os.IsNotExist(err) {
			logger.Warn().Str("cars_path", carsPath).Msg("no fleet file, skipping seed")
			return nil
		}
		return fmt.Errorf("read fleet file: %w", err)
	}

	var fleet struct {
		Cars []models.Car `yaml:"cars"`
	}
	if err := yaml.Unmarshal(data, &fleet); err != nil {
		return fmt.Errorf("parse fleet file: %w", err)
	}

	ctx := context.Background()
	for i := range fleet.Cars {
		if err := db.UpsertCar(ctx, &fleet.Cars[i]); err != nil {
			return fmt.Errorf("seed car %q: %w", fleet.Cars[i].Name, err)
		}
	}
	logger.Info().Int("cars", len(fleet.Cars)).Msg("fleet seeded")
	return nil
}

// initDedupStore prefers Redis for webhook dedup and falls back to the
// in-process store when Redis is absent or unreachable.
func initDedupStore(cfg *config.Config, logger *zerolog.Logger) domain.DedupStore {
	memory := repository.NewMemoryDedupStore()
	if cfg.Redis.Address == "" {
		logger.Info().Msg("webhook dedup using in-memory store")
		return memory
	}

	client := repository.NewRedisClient(cfg.Redis)
	if err := repository.Ping(context.Background(), client); err != nil {
		logger.Warn().Err(err).Msg("redis unreachable, webhook dedup degraded to memory")
		_ = client.Close()
		return memory
	}

	logger.Info().Str("addr", cfg.Redis.Address).Msg("redis connected")
	return repository.NewFailoverDedupStore(repository.NewRedisDedupStore(client), memory, logger)
}

// initSheetSync wires the spreadsheet mirror when Google credentials are
// configured; bookings work without it.
func initSheetSync(ctx context.Context, cfg *config.Config, db *database.DB, logger *zerolog.Logger) domain.SyncWorker {
	if cfg.Google.CredentialsFile == "" || cfg.Google.BookingsSpreadsheetID == "" {
		return nil
	}

	sheets, err := google.NewSheetsService(ctx, cfg.Google.CredentialsFile, cfg.Google.BookingsSpreadsheetID)
	if err != nil {
		logger.Warn().Err(err).Msg("google sheets init failed, continuing without sheet sync")
		return nil
	}

	w := worker.NewSyncWorker(db, sheets, worker.RetryPolicy{}, logger)
	go w.Start(ctx)
	logger.Info().Msg("sheet sync worker running")
	return w
}

// subscribeAuditLog mirrors every domain event into the structured log.
func subscribeAuditLog(bus *events.EventBus, logger *zerolog.Logger) {
	for _, eventType := range []string{
		events.EventBookingCreated, events.EventBookingUpdated, events.EventBookingCancelled,
		events.EventOrderCreated, events.EventOrderCancelled,
		events.EventPaymentCreated, events.EventPaymentSettled, events.EventPaymentFailed,
	} {
		bus.Subscribe(eventType, func(event *events.Event) error {
			logger.Info().
				Str("event", event.Type).
				RawJSON("payload", event.Payload).
				Msg("domain event")
			return nil
		})
	}
}

func startMetrics(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) {
	if !cfg.Monitoring.PrometheusEnabled {
		return
	}

	metrics.Register()
	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())

		srv := &http.Server{Addr: fmt.Sprintf(":%d", cfg.Monitoring.PrometheusPort), Handler: mux}
		go func() {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("metrics server error")
		}
	}()
}
