package pinning

import (
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/newspin/newspin/app/models"
)

// Repository is the storage surface the guard works against. It spans posts,
// subscriptions and pinned_posts because every pin decision reads all three.
type Repository interface {
	GetPost(id uint) (*models.Post, error)
	GetPostBySlug(slug string) (*models.Post, error)
	GetSubscriptionByUserID(userID uint) (*models.Subscription, error)
	// GetSubscriptionByUserIDForUpdate locks the subscription row for the
	// rest of the transaction so a concurrent cancel cannot race the pin.
	GetSubscriptionByUserIDForUpdate(userID uint) (*models.Subscription, error)
	GetPinByUserID(userID uint) (*models.PinnedPost, error)
	CreatePin(pin *models.PinnedPost) error
	// DeletePinByUserID removes the user's pin and reports whether one existed.
	DeletePinByUserID(userID uint) (bool, error)
	// ListValidPins returns pins whose owner still has a subscription active
	// at `now` and whose post is still published, oldest pin first.
	ListValidPins(now time.Time, offset, limit int) ([]models.PinnedPost, error)
	// Transaction runs fn against a repository bound to a single database
	// transaction. A non-nil error from fn rolls everything back.
	Transaction(fn func(Repository) error) error
}

type gormRepository struct {
	db *gorm.DB
}

// NewRepository creates a GORM-backed pin repository.
func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) GetPost(id uint) (*models.Post, error) {
	var post models.Post
	if err := r.db.First(&post, id).Error; err != nil {
		return nil, err
	}
	return &post, nil
}

func (r *gormRepository) GetPostBySlug(slug string) (*models.Post, error) {
	var post models.Post
	if err := r.db.Where("slug = ?", slug).First(&post).Error; err != nil {
		return nil, err
	}
	return &post, nil
}

func (r *gormRepository) GetSubscriptionByUserID(userID uint) (*models.Subscription, error) {
	var sub models.Subscription
	if err := r.db.Where("user_id = ?", userID).First(&sub).Error; err != nil {
		return nil, err
	}
	return &sub, nil
}

func (r *gormRepository) GetSubscriptionByUserIDForUpdate(userID uint) (*models.Subscription, error) {
	var sub models.Subscription
	err := r.db.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("user_id = ?", userID).First(&sub).Error
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

func (r *gormRepository) GetPinByUserID(userID uint) (*models.PinnedPost, error) {
	var pin models.PinnedPost
	if err := r.db.Where("user_id = ?", userID).First(&pin).Error; err != nil {
		return nil, err
	}
	return &pin, nil
}

func (r *gormRepository) CreatePin(pin *models.PinnedPost) error {
	return r.db.Create(pin).Error
}

func (r *gormRepository) DeletePinByUserID(userID uint) (bool, error) {
	result := r.db.Where("user_id = ?", userID).Delete(&models.PinnedPost{})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *gormRepository) ListValidPins(now time.Time, offset, limit int) ([]models.PinnedPost, error) {
	var pins []models.PinnedPost
	err := r.db.
		Joins("JOIN subscriptions ON subscriptions.user_id = pinned_posts.user_id").
		Joins("JOIN posts ON posts.id = pinned_posts.post_id").
		Where("subscriptions.status = ?", models.SubscriptionStatusActive).
		Where("subscriptions.start_date <= ? AND subscriptions.end_date >= ?", now, now).
		Where("posts.status = ?", models.PostStatusPublished).
		Preload("Post").Preload("Post.Author").
		Order("pinned_posts.pinned_at ASC").
		Offset(offset).Limit(limit).
		Find(&pins).Error
	return pins, err
}

func (r *gormRepository) Transaction(fn func(Repository) error) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		return fn(&gormRepository{db: tx})
	})
}
