package subscription

import (
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/newspin/newspin/app/models"
)

// Repository is the storage surface of the lifecycle engine. It spans
// subscriptions, plans, payments and pinned_posts: every state transition
// touches the subscription row and its cascades in one transaction.
type Repository interface {
	GetPlan(id uint) (*models.SubscriptionPlan, error)
	GetByUserID(userID uint) (*models.Subscription, error)
	// GetByUserIDForUpdate locks the row so concurrent transitions serialize.
	GetByUserIDForUpdate(userID uint) (*models.Subscription, error)
	GetByID(id uint) (*models.Subscription, error)
	Create(sub *models.Subscription) error
	Save(sub *models.Subscription) error
	CreatePayment(payment *models.Payment) error
	// RemovePin deletes the user's pinned post, reporting whether one existed.
	// Called inside the same transaction as the cancel/expire write.
	RemovePin(userID uint) (bool, error)
	// ListLapsedActive returns rows still marked active whose end date lies
	// before `now`, oldest end first, for the expiry sweep.
	ListLapsedActive(now time.Time, limit int) ([]models.Subscription, error)
	// ListEndingWithin returns active non-renewing subscriptions that end
	// between `now` and `now + lead`, for expiry reminders.
	ListEndingWithin(now time.Time, lead time.Duration) ([]models.Subscription, error)
	CountActive(now time.Time) (int64, error)
	// Transaction runs fn against a repository bound to a single database
	// transaction. A non-nil error from fn rolls everything back.
	Transaction(fn func(Repository) error) error
}

type gormRepository struct {
	db *gorm.DB
}

// NewRepository creates a GORM-backed subscription repository.
func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) GetPlan(id uint) (*models.SubscriptionPlan, error) {
	var plan models.SubscriptionPlan
	if err := r.db.First(&plan, id).Error; err != nil {
		return nil, err
	}
	return &plan, nil
}

func (r *gormRepository) GetByUserID(userID uint) (*models.Subscription, error) {
	var sub models.Subscription
	if err := r.db.Preload("Plan").Where("user_id = ?", userID).First(&sub).Error; err != nil {
		return nil, err
	}
	return &sub, nil
}

func (r *gormRepository) GetByUserIDForUpdate(userID uint) (*models.Subscription, error) {
	var sub models.Subscription
	err := r.db.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("user_id = ?", userID).First(&sub).Error
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

func (r *gormRepository) GetByID(id uint) (*models.Subscription, error) {
	var sub models.Subscription
	if err := r.db.Preload("Plan").First(&sub, id).Error; err != nil {
		return nil, err
	}
	return &sub, nil
}

func (r *gormRepository) Create(sub *models.Subscription) error {
	return r.db.Create(sub).Error
}

func (r *gormRepository) Save(sub *models.Subscription) error {
	return r.db.Save(sub).Error
}

func (r *gormRepository) CreatePayment(payment *models.Payment) error {
	return r.db.Create(payment).Error
}

func (r *gormRepository) RemovePin(userID uint) (bool, error) {
	result := r.db.Where("user_id = ?", userID).Delete(&models.PinnedPost{})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *gormRepository) ListLapsedActive(now time.Time, limit int) ([]models.Subscription, error) {
	var subs []models.Subscription
	err := r.db.
		Where("status = ? AND end_date < ?", models.SubscriptionStatusActive, now).
		Order("end_date ASC").
		Limit(limit).
		Find(&subs).Error
	return subs, err
}

func (r *gormRepository) ListEndingWithin(now time.Time, lead time.Duration) ([]models.Subscription, error) {
	var subs []models.Subscription
	err := r.db.Preload("User").Preload("Plan").
		Where("status = ? AND auto_renew = ? AND end_date BETWEEN ? AND ?",
			models.SubscriptionStatusActive, false, now, now.Add(lead)).
		Order("end_date ASC").
		Find(&subs).Error
	return subs, err
}

func (r *gormRepository) CountActive(now time.Time) (int64, error) {
	var count int64
	err := r.db.Model(&models.Subscription{}).
		Where("status = ? AND start_date <= ? AND end_date >= ?",
			models.SubscriptionStatusActive, now, now).
		Count(&count).Error
	return count, err
}

func (r *gormRepository) Transaction(fn func(Repository) error) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		return fn(&gormRepository{db: tx})
	})
}
