package payment

import (
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/newspin/newspin/app/models"
)

// Repository is the storage surface of the reconciliation engine. It spans
// payments, webhook events, subscriptions and pins because confirming or
// failing a payment updates all of them in one transaction.
type Repository interface {
	GetPayment(id uint) (*models.Payment, error)
	// GetPaymentForUpdate locks the payment row for the transaction.
	GetPaymentForUpdate(id uint) (*models.Payment, error)
	GetPaymentByIntentID(intentID string) (*models.Payment, error)
	GetPaymentBySessionID(sessionID string) (*models.Payment, error)
	SavePayment(p *models.Payment) error
	CreateAttempt(a *models.PaymentAttempt) error
	CreateRefund(r *models.Refund) error
	ListPaymentsByUserID(userID uint, offset, limit int) ([]models.Payment, error)

	GetSubscriptionByIDForUpdate(id uint) (*models.Subscription, error)
	GetPlan(id uint) (*models.SubscriptionPlan, error)
	SaveSubscription(sub *models.Subscription) error
	// RemovePin deletes the user's pinned post inside the failing transaction.
	RemovePin(userID uint) (bool, error)

	// CreateEventIfNotExists inserts the event unless its event_id was seen
	// before, reporting whether the insert happened. This is the dedup gate.
	CreateEventIfNotExists(e *models.WebhookEvent) (bool, error)
	GetEventByEventID(eventID string) (*models.WebhookEvent, error)
	SaveEvent(e *models.WebhookEvent) error
	// ListFailedEvents returns failed events created after `since`, oldest
	// first, for the retry sweep.
	ListFailedEvents(since time.Time, limit int) ([]models.WebhookEvent, error)

	DeleteFinishedPaymentsBefore(cutoff time.Time) (int64, error)
	DeleteSettledEventsBefore(cutoff time.Time) (int64, error)

	// Transaction runs fn against a repository bound to a single database
	// transaction. A non-nil error from fn rolls everything back.
	Transaction(fn func(Repository) error) error
}

type gormRepository struct {
	db *gorm.DB
}

// NewRepository creates a GORM-backed payment repository.
func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) GetPayment(id uint) (*models.Payment, error) {
	var p models.Payment
	if err := r.db.First(&p, id).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *gormRepository) GetPaymentForUpdate(id uint) (*models.Payment, error) {
	var p models.Payment
	err := r.db.Clauses(clause.Locking{Strength: "UPDATE"}).First(&p, id).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *gormRepository) GetPaymentByIntentID(intentID string) (*models.Payment, error) {
	var p models.Payment
	err := r.db.Where("stripe_payment_intent_id = ?", intentID).First(&p).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *gormRepository) GetPaymentBySessionID(sessionID string) (*models.Payment, error) {
	var p models.Payment
	err := r.db.Where("stripe_session_id = ?", sessionID).First(&p).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *gormRepository) SavePayment(p *models.Payment) error {
	return r.db.Save(p).Error
}

func (r *gormRepository) CreateAttempt(a *models.PaymentAttempt) error {
	return r.db.Create(a).Error
}

func (r *gormRepository) CreateRefund(rf *models.Refund) error {
	return r.db.Create(rf).Error
}

func (r *gormRepository) ListPaymentsByUserID(userID uint, offset, limit int) ([]models.Payment, error) {
	var payments []models.Payment
	err := r.db.Where("user_id = ?", userID).
		Offset(offset).Limit(limit).
		Order("created_at DESC").
		Find(&payments).Error
	return payments, err
}

func (r *gormRepository) GetSubscriptionByIDForUpdate(id uint) (*models.Subscription, error) {
	var sub models.Subscription
	err := r.db.Clauses(clause.Locking{Strength: "UPDATE"}).First(&sub, id).Error
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

func (r *gormRepository) GetPlan(id uint) (*models.SubscriptionPlan, error) {
	var plan models.SubscriptionPlan
	if err := r.db.First(&plan, id).Error; err != nil {
		return nil, err
	}
	return &plan, nil
}

func (r *gormRepository) SaveSubscription(sub *models.Subscription) error {
	return r.db.Save(sub).Error
}

func (r *gormRepository) RemovePin(userID uint) (bool, error) {
	result := r.db.Where("user_id = ?", userID).Delete(&models.PinnedPost{})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *gormRepository) CreateEventIfNotExists(e *models.WebhookEvent) (bool, error) {
	result := r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "event_id"}},
		DoNothing: true,
	}).Create(e)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *gormRepository) GetEventByEventID(eventID string) (*models.WebhookEvent, error) {
	var e models.WebhookEvent
	if err := r.db.Where("event_id = ?", eventID).First(&e).Error; err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *gormRepository) SaveEvent(e *models.WebhookEvent) error {
	return r.db.Save(e).Error
}

func (r *gormRepository) ListFailedEvents(since time.Time, limit int) ([]models.WebhookEvent, error) {
	var events []models.WebhookEvent
	err := r.db.
		Where("status = ? AND created_at >= ?", models.WebhookEventStatusFailed, since).
		Order("created_at ASC").
		Limit(limit).
		Find(&events).Error
	return events, err
}

func (r *gormRepository) DeleteFinishedPaymentsBefore(cutoff time.Time) (int64, error) {
	result := r.db.
		Where("status IN ? AND created_at < ?",
			[]string{models.PaymentStatusFailed, models.PaymentStatusCancelled}, cutoff).
		Delete(&models.Payment{})
	return result.RowsAffected, result.Error
}

func (r *gormRepository) DeleteSettledEventsBefore(cutoff time.Time) (int64, error) {
	result := r.db.
		Where("status IN ? AND created_at < ?",
			[]string{models.WebhookEventStatusProcessed, models.WebhookEventStatusIgnored}, cutoff).
		Delete(&models.WebhookEvent{})
	return result.RowsAffected, result.Error
}

func (r *gormRepository) Transaction(fn func(Repository) error) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		return fn(&gormRepository{db: tx})
	})
}
