package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"funds_transfer/internal/api"
	"funds_transfer/internal/config"
	"funds_transfer/internal/processor"
	"funds_transfer/internal/repository/memory"
	"funds_transfer/internal/service"
	"funds_transfer/pkg/crypto"
	"funds_transfer/pkg/metrics"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"
)

const (
	shutdownTimeout = 30 * time.Second
)

func main() {
	configPath := flag.String("config", "", "path to a config file (yaml, toml or json)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("Failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger := setupLogger(cfg.Logger)
	slog.SetDefault(logger)
	logger.Info("Starting application",
		slog.String("name", cfg.ServiceName),
		slog.String("env", cfg.Environment))

	metricsCollector := metrics.NewMetricsCollector(logger)
	accountRepo := memory.NewAccountRepository()
	notificationService, kafkaPublisher := setupNotificationService(cfg.Notification, metricsCollector, logger)
	engine := processor.NewTransferEngine(accountRepo, notificationService, metricsCollector, cfg.Transfer.LockTimeout, logger)
	apiHandler := api.NewAPIHandler(accountRepo, engine, cfg.HTTP.RequestTimeout, logger)

	httpServer := newHTTPServer(cfg, apiHandler)
	var metricsServer *http.Server
	if cfg.Metrics.Enabled {
		metricsServer = metricsCollector.StartMetricsServer(cfg.Metrics.Addr)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("addr", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		return shutdown(shutdownCtx, logger, httpServer, metricsServer, metricsCollector, notificationService, kafkaPublisher)
	})

	if err := g.Wait(); err != nil {
		logger.Error("Application exited with error", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger.Info("Application shutdown complete")
}

func setupLogger(cfg config.LoggerConfig) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: parseLevel(cfg.Level),
	}

	var handler slog.Handler
	if strings.EqualFold(cfg.Format, "text") {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}
	return slog.New(handler)
}

func parseLevel(level string) slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		return slog.LevelInfo
	}
	return l
}

func setupNotificationService(
	cfg config.NotificationConfig,
	recorder service.DeliveryRecorder,
	logger *slog.Logger,
) (*service.NotificationService, *service.KafkaEventPublisher) {
	var emailService service.EmailService
	if cfg.Email.Enabled {
		emailService = service.NewLogEmailService(logger)
	}

	var webhookService service.WebhookService
	if cfg.Webhook.URL != "" {
		var signer *crypto.Signer
		if cfg.Webhook.Secret != "" {
			signer = crypto.NewSigner(cfg.Webhook.Secret, logger)
		} else {
			logger.Warn("Webhook secret is empty, deliveries will be unsigned")
		}
		webhookService = service.NewHTTPWebhookService(cfg.Webhook.URL, cfg.Webhook.Timeout, signer)
	}

	var kafkaPublisher *service.KafkaEventPublisher
	var eventPublisher service.EventPublisher
	if len(cfg.Kafka.Brokers) > 0 {
		kafkaPublisher = service.NewKafkaEventPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic, logger)
		eventPublisher = kafkaPublisher
	}

	notificationService := service.NewNotificationService(
		emailService,
		webhookService,
		eventPublisher,
		recorder,
		service.NotificationConfig{Workers: cfg.Workers, QueueSize: cfg.QueueSize},
		logger,
	)
	return notificationService, kafkaPublisher
}

func newHTTPServer(cfg *config.Config, apiHandler *api.APIHandler) *http.Server {
	mux := http.NewServeMux()

	apiHandler.RegisterRoutes(mux)

	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"name": "%s", "status": "ok"}`, cfg.ServiceName)
	})

	return &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      mux,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}
}

func shutdown(
	ctx context.Context,
	logger *slog.Logger,
	httpServer *http.Server,
	metricsServer *http.Server,
	metricsCollector *metrics.MetricsCollector,
	notificationService *service.NotificationService,
	kafkaPublisher *service.KafkaEventPublisher,
) error {
	var errs []error

	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error("HTTP server shutdown failed", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	if metricsServer != nil {
		if err := metricsServer.Shutdown(ctx); err != nil {
			logger.Error("Metrics server shutdown failed", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	// Workers drain the queue before the Kafka writer goes away.
	if err := notificationService.Shutdown(ctx); err != nil {
		logger.Error("Notification service shutdown failed", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	if kafkaPublisher != nil {
		if err := kafkaPublisher.Close(); err != nil {
			logger.Error("Kafka publisher close failed", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	if err := metricsCollector.Shutdown(ctx); err != nil {
		logger.Error("Metrics collector shutdown failed", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}
