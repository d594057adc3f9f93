package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/alumni-portal-api/internal/models"
	"github.com/noah-isme/alumni-portal-api/pkg/jobs"
)

type notificationUserReader interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

// OutcomeSender delivers a resolution message to a linked chat. The bot
// implements it; a nil sender turns dispatch into a no-op.
type OutcomeSender interface {
	SendOutcome(ctx context.Context, chatID int64, text string) error
}

// NotificationService delivers resolution outcomes to requesters over
// Telegram. Delivery is fire-and-forget: a dropped message never undoes the
// resolution it reports.
type NotificationService struct {
	users   notificationUserReader
	sender  OutcomeSender
	metrics *MetricsService
	queue   *jobs.Queue
	logger  *zap.Logger
}

// NewNotificationService constructs NotificationService and its worker queue.
func NewNotificationService(users notificationUserReader, sender OutcomeSender, metrics *MetricsService, cfg jobs.QueueConfig, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &NotificationService{users: users, sender: sender, metrics: metrics, logger: logger}
	if cfg.Logger == nil {
		cfg.Logger = logger
	}
	s.queue = jobs.NewQueue("notifications", s.handleJob, cfg)
	return s
}

// SetSender installs the delivery channel. Call before Start; the bot is
// constructed after the services it consumes, so wiring happens in two steps.
func (s *NotificationService) SetSender(sender OutcomeSender) {
	s.sender = sender
}

// Start launches the delivery workers.
func (s *NotificationService) Start(ctx context.Context) {
	s.queue.Start(ctx)
}

// Stop drains the delivery workers.
func (s *NotificationService) Stop() {
	s.queue.Stop()
}

// NotifyResolution enqueues an outcome for delivery. Errors are logged and
// swallowed so resolution handlers never block on delivery.
func (s *NotificationService) NotifyResolution(event models.ResolutionEvent) {
	if s.metrics != nil {
		s.metrics.RecordResolution(string(event.Kind), string(event.Outcome))
	}
	job := jobs.Job{
		ID:      uuid.NewString(),
		Type:    "resolution",
		Payload: event,
	}
	if err := s.queue.Enqueue(job); err != nil {
		s.logger.Warn("failed to enqueue resolution notification",
			zap.String("request_id", event.RequestID), zap.Error(err))
	}
}

func (s *NotificationService) handleJob(ctx context.Context, job jobs.Job) error {
	event, ok := job.Payload.(models.ResolutionEvent)
	if !ok {
		s.logger.Error("unexpected notification payload", zap.String("job_id", job.ID))
		return nil
	}
	if s.sender == nil {
		return nil
	}

	user, err := s.users.FindByID(ctx, event.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// Requester deleted between resolution and delivery; drop quietly.
			return nil
		}
		return fmt.Errorf("load notification recipient: %w", err)
	}
	if user.TelegramID == nil {
		s.recordDelivery("skipped")
		return nil
	}

	if err := s.sender.SendOutcome(ctx, *user.TelegramID, FormatOutcomeMessage(event)); err != nil {
		s.recordDelivery("failed")
		return fmt.Errorf("send outcome to chat %d: %w", *user.TelegramID, err)
	}
	s.recordDelivery("delivered")
	return nil
}

func (s *NotificationService) recordDelivery(result string) {
	if s.metrics != nil {
		s.metrics.RecordNotification(result)
	}
}

// FormatOutcomeMessage renders the human-readable outcome text shared by the
// bot and the dispatch worker.
func FormatOutcomeMessage(event models.ResolutionEvent) string {
	var what string
	switch event.Kind {
	case models.RequestKindCourse:
		what = fmt.Sprintf("your enrollment request for %q", event.Subject)
	case models.RequestKindPass:
		what = fmt.Sprintf("your campus pass request for %s", event.Subject)
	default:
		what = "your request"
	}

	var verdict string
	switch event.Outcome {
	case models.RequestStatusApproved:
		verdict = "approved"
	case models.RequestStatusRejected:
		verdict = "rejected"
	default:
		verdict = string(event.Outcome)
	}

	msg := fmt.Sprintf("Update from the alumni portal: %s was %s.", what, verdict)
	if event.Feedback != "" {
		msg += fmt.Sprintf("\nFeedback: %s", event.Feedback)
	}
	return msg
}
