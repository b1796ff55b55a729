package repository

import (
	"github.com/newspin/newspin/app/models"
	"gorm.io/gorm"
)

// postRepository implements PostRepository interface
type postRepository struct {
	db *gorm.DB
}

// NewPostRepository creates a new post repository instance
func NewPostRepository(db *gorm.DB) PostRepository {
	return &postRepository{db: db}
}

func (r *postRepository) Create(post *models.Post) error {
	return r.db.Create(post).Error
}

func (r *postRepository) GetByID(id uint) (*models.Post, error) {
	var post models.Post
	err := r.db.Preload("Author").Preload("Category").First(&post, id).Error
	if err != nil {
		return nil, err
	}
	return &post, nil
}

func (r *postRepository) GetByUUID(uuid string) (*models.Post, error) {
	var post models.Post
	err := r.db.Preload("Author").Preload("Category").Where("uuid = ?", uuid).First(&post).Error
	if err != nil {
		return nil, err
	}
	return &post, nil
}

func (r *postRepository) GetBySlug(slug string) (*models.Post, error) {
	var post models.Post
	err := r.db.Preload("Author").Preload("Category").Where("slug = ?", slug).First(&post).Error
	if err != nil {
		return nil, err
	}
	return &post, nil
}

func (r *postRepository) GetByAuthorID(authorID uint, offset, limit int) ([]models.Post, error) {
	var posts []models.Post
	err := r.db.Preload("Category").
		Where("author_id = ?", authorID).
		Offset(offset).Limit(limit).
		Order("created_at DESC").
		Find(&posts).Error
	return posts, err
}

func (r *postRepository) Update(post *models.Post) error {
	return r.db.Save(post).Error
}

func (r *postRepository) Delete(id uint) error {
	return r.db.Delete(&models.Post{}, id).Error
}

func (r *postRepository) ListPublished(offset, limit int) ([]models.Post, error) {
	var posts []models.Post
	err := r.db.Preload("Author").Preload("Category").
		Where("status = ?", models.PostStatusPublished).
		Offset(offset).Limit(limit).
		Order("created_at DESC").
		Find(&posts).Error
	return posts, err
}

func (r *postRepository) ListPublishedByCategory(categoryID uint, offset, limit int) ([]models.Post, error) {
	var posts []models.Post
	err := r.db.Preload("Author").Preload("Category").
		Where("status = ? AND category_id = ?", models.PostStatusPublished, categoryID).
		Offset(offset).Limit(limit).
		Order("created_at DESC").
		Find(&posts).Error
	return posts, err
}

func (r *postRepository) Count() (int64, error) {
	var count int64
	err := r.db.Model(&models.Post{}).Count(&count).Error
	return count, err
}

func (r *postRepository) CountPublished() (int64, error) {
	var count int64
	err := r.db.Model(&models.Post{}).Where("status = ?", models.PostStatusPublished).Count(&count).Error
	return count, err
}

func (r *postRepository) CountByAuthorID(authorID uint) (int64, error) {
	var count int64
	err := r.db.Model(&models.Post{}).Where("author_id = ?", authorID).Count(&count).Error
	return count, err
}

func (r *postRepository) Search(query string, offset, limit int) ([]models.Post, error) {
	var posts []models.Post
	searchTerm := "%" + query + "%"
	err := r.db.Preload("Author").
		Where("status = ? AND (title LIKE ? OR content LIKE ?)", models.PostStatusPublished, searchTerm, searchTerm).
		Offset(offset).Limit(limit).
		Order("created_at DESC").
		Find(&posts).Error
	return posts, err
}

func (r *postRepository) IncrementViewCount(id uint, delta int) error {
	return r.db.Model(&models.Post{}).Where("id = ?", id).
		UpdateColumn("view_count", gorm.Expr("view_count + ?", delta)).Error
}
