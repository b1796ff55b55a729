package payment

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/newspin/newspin/app/models"
)

// Service reconciles provider webhook events with local payment and
// subscription state. Ingestion is idempotent: the event_id unique index
// dedups re-deliveries, and both confirm and fail are safe to re-apply.
type Service struct {
	repo Repository
	now  func() time.Time
}

// NewService creates a reconciliation service from an injected repository.
func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

// NewServiceFromDB creates a reconciliation service from a GORM DB handle.
func NewServiceFromDB(db *gorm.DB) *Service {
	return NewService(NewRepository(db))
}

// Ingest records and processes one webhook delivery. A payload whose event id
// was already recorded returns the stored event without reprocessing, so the
// provider can re-deliver as often as it likes.
func (s *Service) Ingest(ctx context.Context, provider string, payload []byte) (*models.WebhookEvent, error) {
	ev, err := ParseEvent(payload)
	if err != nil {
		return nil, err
	}

	eventID := ev.ID
	if eventID == "" {
		// Some test payloads omit the id; fall back to a payload hash so the
		// dedup gate still works.
		sum := sha256.Sum256(payload)
		eventID = "hashed_" + hex.EncodeToString(sum[:])
	}

	record := &models.WebhookEvent{
		Provider:  provider,
		EventID:   eventID,
		EventType: ev.Type,
		Status:    models.WebhookEventStatusPending,
		Payload:   models.JSON(payload),
	}
	created, err := s.repo.CreateEventIfNotExists(record)
	if err != nil {
		return nil, err
	}
	if !created {
		existing, err := s.repo.GetEventByEventID(eventID)
		if err != nil {
			return nil, err
		}
		return existing, nil
	}

	s.process(ctx, record, ev)
	if err := s.repo.SaveEvent(record); err != nil {
		return nil, err
	}
	return record, nil
}

// process applies the event's local reaction and marks the record.
func (s *Service) process(ctx context.Context, record *models.WebhookEvent, ev *Event) {
	now := s.now()

	switch KindOf(ev.Type) {
	case KindCheckoutCompleted, KindPaymentSucceeded:
		if err := s.confirmFromEvent(ctx, ev); err != nil {
			record.MarkFailed(err.Error(), now)
			return
		}
		record.MarkProcessed(now)
	case KindPaymentFailed:
		if err := s.failFromEvent(ctx, ev); err != nil {
			record.MarkFailed(err.Error(), now)
			return
		}
		record.MarkProcessed(now)
	case KindDisputeCreated:
		log.Warnf("payment dispute opened, event=%s object=%s", record.EventID, ev.ObjectID)
		record.MarkProcessed(now)
	default:
		record.MarkIgnored(now)
	}
}

// resolvePayment finds the local payment an event refers to, trying the
// metadata id first and falling back to the gateway object references.
func (s *Service) resolvePayment(ev *Event) (*models.Payment, error) {
	if ev.PaymentID != 0 {
		p, err := s.repo.GetPayment(ev.PaymentID)
		if err == nil {
			return p, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
	}
	if ev.PaymentIntent != "" {
		p, err := s.repo.GetPaymentByIntentID(ev.PaymentIntent)
		if err == nil {
			return p, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
	}
	if ev.ObjectID != "" {
		p, err := s.repo.GetPaymentBySessionID(ev.ObjectID)
		if err == nil {
			return p, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
	}
	return nil, ErrPaymentNotFound
}

func (s *Service) confirmFromEvent(ctx context.Context, ev *Event) error {
	p, err := s.resolvePayment(ev)
	if err != nil {
		return err
	}
	return s.ConfirmPayment(ctx, p.ID, ev.PaymentIntent, ev.ObjectID)
}

func (s *Service) failFromEvent(ctx context.Context, ev *Event) error {
	p, err := s.resolvePayment(ev)
	if err != nil {
		return err
	}
	return s.FailPayment(ctx, p.ID, ev.FailureMessage)
}

// ConfirmPayment marks the payment succeeded and activates or extends its
// subscription in the same transaction. Confirming an already succeeded
// payment is a no-op success, which makes webhook re-delivery harmless.
func (s *Service) ConfirmPayment(ctx context.Context, paymentID uint, intentID, sessionID string) error {
	_ = ctx
	now := s.now()
	return s.repo.Transaction(func(tx Repository) error {
		p, err := tx.GetPaymentForUpdate(paymentID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrPaymentNotFound
			}
			return err
		}
		if p.IsSuccessful() {
			return nil
		}

		if intentID != "" && p.StripePaymentIntentID == "" {
			p.StripePaymentIntentID = intentID
		}
		if sessionID != "" && p.StripeSessionID == "" {
			p.StripeSessionID = sessionID
		}
		p.MarkAsSucceeded(now)
		if err := tx.SavePayment(p); err != nil {
			return err
		}
		if err := tx.CreateAttempt(&models.PaymentAttempt{
			PaymentID: p.ID,
			Status:    models.PaymentStatusSucceeded,
		}); err != nil {
			return err
		}

		sub, err := tx.GetSubscriptionByIDForUpdate(p.SubscriptionID)
		if err != nil {
			return err
		}
		plan, err := tx.GetPlan(sub.PlanID)
		if err != nil {
			return err
		}
		// A running subscription gets the new period appended; everything
		// else starts fresh from now.
		sub.Extend(plan.DurationDays, now)
		return tx.SaveSubscription(sub)
	})
}

// FailPayment marks the payment failed and cancels its subscription, removing
// the user's pinned post in the same transaction. A payment that already
// succeeded is left alone; late failure events for settled payments are
// provider noise.
func (s *Service) FailPayment(ctx context.Context, paymentID uint, reason string) error {
	_ = ctx
	now := s.now()
	return s.repo.Transaction(func(tx Repository) error {
		p, err := tx.GetPaymentForUpdate(paymentID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrPaymentNotFound
			}
			return err
		}
		if p.IsSuccessful() {
			return nil
		}
		if p.Status == models.PaymentStatusFailed {
			return nil
		}

		p.MarkAsFailed(reason, now)
		if err := tx.SavePayment(p); err != nil {
			return err
		}
		if err := tx.CreateAttempt(&models.PaymentAttempt{
			PaymentID:    p.ID,
			Status:       models.PaymentStatusFailed,
			ErrorMessage: reason,
		}); err != nil {
			return err
		}

		sub, err := tx.GetSubscriptionByIDForUpdate(p.SubscriptionID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil
			}
			return err
		}
		if sub.Status == models.SubscriptionStatusCancelled ||
			sub.Status == models.SubscriptionStatusExpired {
			return nil
		}
		sub.Cancel()
		if err := tx.SaveSubscription(sub); err != nil {
			return err
		}
		_, err = tx.RemovePin(sub.UserID)
		return err
	})
}

// RetryFailedEvents re-runs failed webhook events recorded within the window,
// oldest first. Events that fail again keep their failed status and stay
// eligible until they age out of the window. Returns how many recovered.
func (s *Service) RetryFailedEvents(ctx context.Context, window time.Duration, limit int) (int, error) {
	if limit <= 0 {
		limit = 50
	}
	since := s.now().Add(-window)

	events, err := s.repo.ListFailedEvents(since, limit)
	if err != nil {
		return 0, err
	}

	recovered := 0
	for i := range events {
		record := &events[i]
		ev, err := ParseEvent([]byte(record.Payload))
		if err != nil {
			record.MarkFailed(err.Error(), s.now())
			if err := s.repo.SaveEvent(record); err != nil {
				return recovered, err
			}
			continue
		}
		s.process(ctx, record, ev)
		if err := s.repo.SaveEvent(record); err != nil {
			return recovered, err
		}
		if record.Status == models.WebhookEventStatusProcessed {
			recovered++
		}
	}
	if recovered > 0 {
		log.Infof("webhook retry sweep recovered %d of %d failed events", recovered, len(events))
	}
	return recovered, nil
}

// IssueRefund creates a gateway refund for a succeeded payment and records it
// locally. amount == 0 refunds the full payment.
func (s *Service) IssueRefund(ctx context.Context, client *StripeClient, paymentID uint, amount float64, reason string, createdByID *uint) (*models.Refund, error) {
	p, err := s.repo.GetPayment(paymentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPaymentNotFound
		}
		return nil, err
	}
	if !p.CanBeRefunded() || p.StripePaymentIntentID == "" {
		return nil, ErrNotRefundable
	}
	if amount <= 0 || amount > p.Amount {
		amount = p.Amount
	}

	result, err := client.CreateRefund(ctx, p.StripePaymentIntentID, amountInCents(amount), reason)
	if err != nil {
		return nil, err
	}

	now := s.now()
	refund := &models.Refund{
		PaymentID:   p.ID,
		Amount:      amount,
		Reason:      reason,
		Status:      models.RefundStatusSucceeded,
		CreatedByID: createdByID,
		ProcessedAt: &now,
	}
	err = s.repo.Transaction(func(tx Repository) error {
		if err := tx.CreateRefund(refund); err != nil {
			return err
		}
		if amount >= p.Amount {
			p.Status = models.PaymentStatusRefunded
			if err := tx.SavePayment(p); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	_ = result
	return refund, nil
}

// ListUserPayments returns the user's payment history page, newest first.
func (s *Service) ListUserPayments(ctx context.Context, userID uint, offset, limit int) ([]models.Payment, error) {
	_ = ctx
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.repo.ListPaymentsByUserID(userID, offset, limit)
}

// CleanupPayments deletes failed and cancelled payments older than the
// retention window. Returns how many rows were removed.
func (s *Service) CleanupPayments(ctx context.Context, retention time.Duration) (int64, error) {
	_ = ctx
	return s.repo.DeleteFinishedPaymentsBefore(s.now().Add(-retention))
}

// CleanupEvents deletes processed and ignored webhook events older than the
// retention window. Failed events are kept for inspection.
func (s *Service) CleanupEvents(ctx context.Context, retention time.Duration) (int64, error) {
	_ = ctx
	return s.repo.DeleteSettledEventsBefore(s.now().Add(-retention))
}
