package models

import (
	"time"

	"github.com/go-playground/validator/v10"
)

// SubscriptionPlan is a purchasable tier. Rows are read-mostly reference data;
// once a live subscription points at a plan only the IsActive flag may change
// (soft retire).
type SubscriptionPlan struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	Name          string    `gorm:"uniqueIndex;type:varchar(100);not null" json:"name" validate:"required,min=3,max=100"`
	Price         float64   `gorm:"type:decimal(10,2);not null" json:"price" validate:"gte=0"`
	DurationDays  int       `gorm:"not null;default:30" json:"duration_days" validate:"gt=0"`
	// StripePriceID is optional; checkout falls back to inline price data when
	// unset. Nullable so the unique index never collides on plans without one.
	StripePriceID *string `gorm:"type:varchar(255);uniqueIndex" json:"stripe_price_id,omitempty"`
	Features      JSON      `gorm:"type:json" json:"features"`
	IsActive      bool      `gorm:"default:true;index" json:"is_active"`
	CreatedAt     time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (SubscriptionPlan) TableName() string {
	return "subscription_plans"
}

func (p *SubscriptionPlan) Validate() error {
	v := validator.New()
	return v.Struct(p)
}
