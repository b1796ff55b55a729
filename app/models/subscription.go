package models

import (
	"time"
)

const (
	SubscriptionStatusPending   = "pending"
	SubscriptionStatusActive    = "active"
	SubscriptionStatusCancelled = "cancelled"
	SubscriptionStatusExpired   = "expired"
)

// Subscription is the single subscription record a user can hold. The row is
// reused across cancel/expire/re-subscribe so payment history keeps its
// foreign keys (update-in-place lifecycle).
//
// Status transitions go through the subscription service only; nothing else
// writes these fields.
type Subscription struct {
	ID              uint             `gorm:"primaryKey" json:"id"`
	UserID          uint             `gorm:"uniqueIndex;not null" json:"user_id"`
	User            User             `gorm:"foreignKey:UserID" json:"user,omitempty"`
	PlanID          uint             `gorm:"index;not null" json:"plan_id"`
	Plan            SubscriptionPlan `gorm:"foreignKey:PlanID" json:"plan,omitempty"`
	Status          string           `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	StartDate       time.Time        `gorm:"type:timestamp;not null" json:"start_date"`
	EndDate         time.Time        `gorm:"type:timestamp;not null;index" json:"end_date"`
	AutoRenew       bool             `gorm:"default:true" json:"auto_renew"`
	StripePaymentID string           `gorm:"type:varchar(255);index" json:"stripe_payment_id"`
	CreatedAt       time.Time        `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time        `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Subscription) TableName() string {
	return "subscriptions"
}

// IsActive reports whether the subscription entitles the user right now.
// The stored status alone is not authoritative: a row can still read "active"
// after its end date until the expiry sweep flips it, so every permission
// check must go through this predicate.
func (s *Subscription) IsActive() bool {
	return s.IsActiveAt(time.Now())
}

// IsActiveAt is the clock-injected variant of IsActive.
func (s *Subscription) IsActiveAt(now time.Time) bool {
	return s.Status == SubscriptionStatusActive &&
		!now.Before(s.StartDate) && !now.After(s.EndDate)
}

// DaysRemaining returns whole days left on an active subscription, 0 otherwise.
func (s *Subscription) DaysRemaining() int {
	return s.DaysRemainingAt(time.Now())
}

// DaysRemainingAt is the clock-injected variant of DaysRemaining.
func (s *Subscription) DaysRemainingAt(now time.Time) int {
	if !s.IsActiveAt(now) {
		return 0
	}
	return int(s.EndDate.Sub(now).Hours() / 24)
}

// Activate moves the subscription into the active state with a fresh period
// of the given length. Any previous remaining time is discarded; renewals that
// should keep unused days go through Extend instead.
func (s *Subscription) Activate(durationDays int, now time.Time) {
	s.Status = SubscriptionStatusActive
	s.StartDate = now
	s.EndDate = now.AddDate(0, 0, durationDays)
}

// Extend adds days to a currently running subscription without touching the
// start date. When the subscription is not active at `now` it behaves like
// Activate with the given duration.
func (s *Subscription) Extend(days int, now time.Time) {
	if s.IsActiveAt(now) {
		s.EndDate = s.EndDate.AddDate(0, 0, days)
		return
	}
	s.Activate(days, now)
}

// Cancel marks the subscription cancelled and switches off renewal.
func (s *Subscription) Cancel() {
	s.Status = SubscriptionStatusCancelled
	s.AutoRenew = false
}

// Expire marks the subscription expired and switches off renewal.
func (s *Subscription) Expire() {
	s.Status = SubscriptionStatusExpired
	s.AutoRenew = false
}
