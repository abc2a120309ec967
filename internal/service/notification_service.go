package service

import (
	"context"
	"encoding/json"
	"fmt"
	"funds_transfer/internal/domain"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

type NotificationType string

const (
	NotificationEmail   NotificationType = "email"
	NotificationWebhook NotificationType = "webhook"
	NotificationKafka   NotificationType = "kafka"
)

const (
	DeliverySent    = "sent"
	DeliveryFailed  = "failed"
	DeliveryDropped = "dropped"
)

const deliveryTimeout = 10 * time.Second

// NotificationService fans transfer notifications out to every configured
// sink. Notify only enqueues; delivery happens on a fixed pool of workers.
type NotificationService struct {
	emailService   EmailService
	webhookService WebhookService
	eventPublisher EventPublisher
	metrics        DeliveryRecorder
	messageQueue   chan NotificationMessage
	workers        int
	shutdownChan   chan struct{}
	shutdownOnce   sync.Once
	wg             sync.WaitGroup
	logger         *slog.Logger
}

type NotificationMessage struct {
	ID        string           `json:"id"`
	Type      NotificationType `json:"-"`
	AccountID string           `json:"account_id"`
	Subject   string           `json:"subject"`
	Message   string           `json:"message"`
	CreatedAt time.Time        `json:"created_at"`
}

type EmailService interface {
	SendEmail(to, subject, body string) error
}

type WebhookService interface {
	SendWebhook(ctx context.Context, msg NotificationMessage) error
}

type EventPublisher interface {
	Publish(ctx context.Context, key string, value []byte) error
}

type DeliveryRecorder interface {
	RecordNotification(channel, status string)
}

type NotificationConfig struct {
	Workers   int
	QueueSize int
}

// NewNotificationService starts the workers immediately. Nil sinks are
// skipped; with no sinks at all every notification is discarded.
func NewNotificationService(
	emailService EmailService,
	webhookService WebhookService,
	eventPublisher EventPublisher,
	metrics DeliveryRecorder,
	cfg NotificationConfig,
	logger *slog.Logger,
) *NotificationService {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 1000
	}

	service := &NotificationService{
		emailService:   emailService,
		webhookService: webhookService,
		eventPublisher: eventPublisher,
		metrics:        metrics,
		messageQueue:   make(chan NotificationMessage, cfg.QueueSize),
		workers:        cfg.Workers,
		shutdownChan:   make(chan struct{}),
		logger:         logger,
	}

	service.startWorkers()

	return service
}

// Notify never blocks: when the queue is full or the service is shutting
// down the notification is dropped and logged.
func (s *NotificationService) Notify(ctx context.Context, account *domain.Account, message string) {
	for _, notificationType := range s.channels() {
		notification := NotificationMessage{
			ID:        uuid.NewString(),
			Type:      notificationType,
			AccountID: account.ID(),
			Subject:   "Account Transfer",
			Message:   message,
			CreatedAt: time.Now(),
		}
		s.enqueue(ctx, notification)
	}
}

func (s *NotificationService) channels() []NotificationType {
	var types []NotificationType
	if s.emailService != nil {
		types = append(types, NotificationEmail)
	}
	if s.webhookService != nil {
		types = append(types, NotificationWebhook)
	}
	if s.eventPublisher != nil {
		types = append(types, NotificationKafka)
	}
	return types
}

func (s *NotificationService) enqueue(ctx context.Context, notification NotificationMessage) {
	select {
	case <-s.shutdownChan:
		s.drop(ctx, notification, "service is shut down")
		return
	default:
	}

	select {
	case s.messageQueue <- notification:
		s.logger.DebugContext(ctx, "Notification queued",
			slog.String("type", string(notification.Type)),
			slog.String("account_id", notification.AccountID),
			slog.String("notification_id", notification.ID))
	default:
		s.drop(ctx, notification, "queue is full")
	}
}

func (s *NotificationService) drop(ctx context.Context, notification NotificationMessage, reason string) {
	s.record(notification.Type, DeliveryDropped)
	s.logger.WarnContext(ctx, "Notification dropped",
		slog.String("type", string(notification.Type)),
		slog.String("account_id", notification.AccountID),
		slog.String("reason", reason))
}

func (s *NotificationService) startWorkers() {
	for i := 0; i < s.workers; i++ {
		s.wg.Add(1)
		go s.worker(i)
	}
}

func (s *NotificationService) worker(id int) {
	defer s.wg.Done()

	s.logger.Info("Notification worker started", slog.Int("worker_id", id))

	for {
		select {
		case msg := <-s.messageQueue:
			s.processNotification(msg, id)
		case <-s.shutdownChan:
			s.drain(id)
			s.logger.Info("Notification worker stopping", slog.Int("worker_id", id))
			return
		}
	}
}

// drain delivers whatever was queued before shutdown.
func (s *NotificationService) drain(workerID int) {
	for {
		select {
		case msg := <-s.messageQueue:
			s.processNotification(msg, workerID)
		default:
			return
		}
	}
}

func (s *NotificationService) processNotification(msg NotificationMessage, workerID int) {
	startTime := time.Now()

	ctx, cancel := context.WithTimeout(context.Background(), deliveryTimeout)
	defer cancel()

	var err error
	switch msg.Type {
	case NotificationEmail:
		err = s.emailService.SendEmail(msg.AccountID, msg.Subject, msg.Message)
	case NotificationWebhook:
		err = s.webhookService.SendWebhook(ctx, msg)
	case NotificationKafka:
		err = s.publish(ctx, msg)
	default:
		err = fmt.Errorf("unknown notification type: %s", msg.Type)
	}

	duration := time.Since(startTime)

	if err != nil {
		s.record(msg.Type, DeliveryFailed)
		s.logger.Error("Failed to send notification",
			slog.String("type", string(msg.Type)),
			slog.String("account_id", msg.AccountID),
			slog.String("error", err.Error()),
			slog.Int("worker_id", workerID),
			slog.Duration("duration", duration))
		return
	}

	s.record(msg.Type, DeliverySent)
	s.logger.Info("Notification sent successfully",
		slog.String("type", string(msg.Type)),
		slog.String("account_id", msg.AccountID),
		slog.Int("worker_id", workerID),
		slog.Duration("duration", duration))
}

func (s *NotificationService) publish(ctx context.Context, msg NotificationMessage) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal notification: %w", err)
	}
	return s.eventPublisher.Publish(ctx, msg.AccountID, payload)
}

func (s *NotificationService) record(notificationType NotificationType, status string) {
	if s.metrics != nil {
		s.metrics.RecordNotification(string(notificationType), status)
	}
}

func (s *NotificationService) Shutdown(ctx context.Context) error {
	s.shutdownOnce.Do(func() {
		close(s.shutdownChan)
	})

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("Notification service shutdown complete")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
