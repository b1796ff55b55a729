package repository

import (
	"github.com/newspin/newspin/app/models"
	"gorm.io/gorm"
)

// UserRepository defines the interface for user-related database operations
type UserRepository interface {
	Create(user *models.User) error
	GetByID(id uint) (*models.User, error)
	GetByEmail(email string) (*models.User, error)
	Update(user *models.User) error
	Delete(id uint) error
	List(offset, limit int) ([]models.User, error)
	Count() (int64, error)
}

// PostRepository defines the interface for post-related database operations
type PostRepository interface {
	Create(post *models.Post) error
	GetByID(id uint) (*models.Post, error)
	GetByUUID(uuid string) (*models.Post, error)
	GetBySlug(slug string) (*models.Post, error)
	GetByAuthorID(authorID uint, offset, limit int) ([]models.Post, error)
	Update(post *models.Post) error
	Delete(id uint) error
	ListPublished(offset, limit int) ([]models.Post, error)
	ListPublishedByCategory(categoryID uint, offset, limit int) ([]models.Post, error)
	Count() (int64, error)
	CountPublished() (int64, error)
	CountByAuthorID(authorID uint) (int64, error)
	Search(query string, offset, limit int) ([]models.Post, error)
	IncrementViewCount(id uint, delta int) error
}

// CategoryRepository defines the interface for category operations
type CategoryRepository interface {
	Create(category *models.Category) error
	GetByID(id uint) (*models.Category, error)
	GetBySlug(slug string) (*models.Category, error)
	List() ([]models.Category, error)
	Update(category *models.Category) error
	Delete(id uint) error
}

// CommentRepository defines the interface for comment operations
type CommentRepository interface {
	Create(comment *models.Comment) error
	GetByID(id uint) (*models.Comment, error)
	GetByPostID(postID uint, offset, limit int) ([]models.Comment, error)
	Update(comment *models.Comment) error
	Delete(id uint) error
	CountByPostID(postID uint) (int64, error)
}

// PlanRepository defines the interface for subscription plan operations
type PlanRepository interface {
	Create(plan *models.SubscriptionPlan) error
	GetByID(id uint) (*models.SubscriptionPlan, error)
	GetByName(name string) (*models.SubscriptionPlan, error)
	ListActive() ([]models.SubscriptionPlan, error)
	List() ([]models.SubscriptionPlan, error)
	Update(plan *models.SubscriptionPlan) error
	Delete(id uint) error
}

// Repositories struct holds all repository instances
type Repositories struct {
	User     UserRepository
	Post     PostRepository
	Category CategoryRepository
	Comment  CommentRepository
	Plan     PlanRepository
}

// NewRepositories creates a new instance of all repositories
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		User:     NewUserRepository(db),
		Post:     NewPostRepository(db),
		Category: NewCategoryRepository(db),
		Comment:  NewCommentRepository(db),
		Plan:     NewPlanRepository(db),
	}
}
