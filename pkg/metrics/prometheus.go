package metrics

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"
)

type MetricsCollector struct {
	registry         *prometheus.Registry
	transfers        *prometheus.CounterVec
	transferDuration prometheus.Histogram
	lockWait         *prometheus.HistogramVec
	notifications    *prometheus.CounterVec
	accountBalance   *prometheus.GaugeVec
	logger           *slog.Logger
}

func NewMetricsCollector(logger *slog.Logger) *MetricsCollector {
	if logger == nil {
		logger = slog.Default()
	}

	registry := prometheus.NewRegistry()

	collector := &MetricsCollector{
		registry: registry,
		transfers: promauto.With(registry).NewCounterVec(prometheus.CounterOpts{
			Name: "transfers_total",
			Help: "Total number of transfer requests by outcome",
		}, []string{"outcome"}),
		transferDuration: promauto.With(registry).NewHistogram(prometheus.HistogramOpts{
			Name:    "transfer_duration_seconds",
			Help:    "Time taken to execute a transfer, lock waits included",
			Buckets: prometheus.DefBuckets,
		}),
		lockWait: promauto.With(registry).NewHistogramVec(prometheus.HistogramOpts{
			Name:    "account_lock_wait_seconds",
			Help:    "Time spent waiting for a single account lock",
			Buckets: []float64{.0001, .001, .01, .05, .1, .25, .5, 1, 2, 5},
		}, []string{"acquired"}),
		notifications: promauto.With(registry).NewCounterVec(prometheus.CounterOpts{
			Name: "notifications_total",
			Help: "Transfer notifications by channel and delivery status",
		}, []string{"channel", "status"}),
		accountBalance: promauto.With(registry).NewGaugeVec(prometheus.GaugeOpts{
			Name: "account_balance",
			Help: "Account balance after the last completed transfer",
		}, []string{"account_id"}),
		logger: logger,
	}

	return collector
}

func (m *MetricsCollector) RecordTransfer(outcome string, duration time.Duration) {
	m.transfers.WithLabelValues(outcome).Inc()
	m.transferDuration.Observe(duration.Seconds())
}

func (m *MetricsCollector) RecordLockWait(wait time.Duration, acquired bool) {
	m.lockWait.WithLabelValues(strconv.FormatBool(acquired)).Observe(wait.Seconds())
}

func (m *MetricsCollector) RecordNotification(channel, status string) {
	m.notifications.WithLabelValues(channel, status).Inc()
}

// UpdateAccountBalance exports the balance as a float; the gauge is for
// dashboards only and never read back.
func (m *MetricsCollector) UpdateAccountBalance(accountID string, balance decimal.Decimal) {
	m.accountBalance.WithLabelValues(accountID).Set(balance.InexactFloat64())
}

func (m *MetricsCollector) GetHandler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *MetricsCollector) StartMetricsServer(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.GetHandler())

	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		m.logger.Info("Starting metrics server", slog.String("addr", addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			m.logger.Error("Metrics server failed", slog.String("error", err.Error()))
		}
	}()

	return server
}

func (m *MetricsCollector) Shutdown(ctx context.Context) error {
	m.logger.Info("Metrics collector shutdown complete")
	return nil
}
