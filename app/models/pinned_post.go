package models

import (
	"time"
)

// PinnedPost associates exactly one published post with its subscribed author.
// Both user_id and post_id carry unique indexes: a user pins at most one post
// and a post is pinned by at most one user. Rows are created and removed only
// by the pinning guard so the subscription coupling can never be bypassed.
type PinnedPost struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"uniqueIndex;not null" json:"user_id"`
	User      User      `gorm:"foreignKey:UserID" json:"user,omitempty"`
	PostID    uint      `gorm:"uniqueIndex;not null" json:"post_id"`
	Post      Post      `gorm:"foreignKey:PostID" json:"post,omitempty"`
	PinnedAt  time.Time `gorm:"autoCreateTime;index" json:"pinned_at"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (PinnedPost) TableName() string {
	return "pinned_posts"
}
