package models

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"gorm.io/gorm"

	"github.com/newspin/newspin/internal/pkg/shortener"
)

const (
	PostStatusDraft     = "draft"
	PostStatusPublished = "published"
)

// Post is a blog post. The pinning guard reads only AuthorID and Status from
// here; everything else is plain content.
type Post struct {
	ID         uint           `gorm:"primaryKey" json:"id"`
	UUID       string         `gorm:"type:char(36) CHARACTER SET utf8 COLLATE utf8_bin;uniqueIndex;not null" json:"uuid"`
	Title      string         `gorm:"type:varchar(200);not null" json:"title" validate:"required,min=3,max=200"`
	Slug       string         `gorm:"uniqueIndex;type:varchar(200)" json:"slug"`
	Content    string         `gorm:"type:text" json:"content" validate:"required"`
	CategoryID *uint          `gorm:"index" json:"category_id,omitempty"`
	Category   *Category      `gorm:"foreignKey:CategoryID" json:"category,omitempty"`
	AuthorID   uint           `gorm:"index;not null" json:"author_id"`
	Author     User           `gorm:"foreignKey:AuthorID" json:"author,omitempty"`
	Status     string         `gorm:"type:varchar(10);not null;default:'draft';index" json:"status"`
	ViewCount  int            `gorm:"default:0" json:"view_count"`
	Comments   []Comment      `gorm:"foreignKey:PostID" json:"comments,omitempty"`
	CreatedAt  time.Time      `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt  time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt  gorm.DeletedAt `gorm:"index" json:"-"`
}

func (Post) TableName() string {
	return "posts"
}

// BeforeCreate fills in UUID and slug when not set explicitly. Slug
// collisions get a random base62 suffix so two posts may share a title.
func (p *Post) BeforeCreate(tx *gorm.DB) error {
	if p.UUID == "" {
		p.UUID = uuid.New().String()
	}
	if p.Slug == "" {
		base := slug.Make(p.Title)
		p.Slug = base

		var count int64
		if err := tx.Model(&Post{}).Where("slug = ?", base).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			suffix, err := shortener.GenerateSecureSlug(6)
			if err != nil {
				return err
			}
			p.Slug = base + "-" + suffix
		}
	}
	return nil
}

func (p *Post) Validate() error {
	v := validator.New()
	return v.Struct(p)
}

// IsPublished reports whether the post is visible to readers.
func (p *Post) IsPublished() bool {
	return p.Status == PostStatusPublished
}

// Category groups posts.
type Category struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"uniqueIndex;type:varchar(100);not null" json:"name" validate:"required,min=2,max=100"`
	Slug        string    `gorm:"uniqueIndex;type:varchar(100)" json:"slug"`
	Description string    `gorm:"type:text" json:"description"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (Category) TableName() string {
	return "categories"
}

func (c *Category) BeforeCreate(tx *gorm.DB) error {
	if c.Slug == "" {
		c.Slug = slug.Make(c.Name)
	}
	return nil
}
