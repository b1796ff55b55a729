package models

import (
	"time"
)

const (
	PaymentStatusPending    = "pending"
	PaymentStatusProcessing = "processing"
	PaymentStatusSucceeded  = "succeeded"
	PaymentStatusFailed     = "failed"
	PaymentStatusCancelled  = "cancelled"
	PaymentStatusRefunded   = "refunded"
)

const (
	PaymentMethodStripe = "stripe"
	PaymentMethodPayPal = "paypal"
	PaymentMethodManual = "manual"
)

// Payment records one charge request against a subscription. "succeeded" is
// terminal and only reachable from pending/processing; MarkAsSucceeded and
// MarkAsFailed are the only legal status setters for the reconciliation path.
type Payment struct {
	ID             uint         `gorm:"primaryKey" json:"id"`
	UserID         uint         `gorm:"index:idx_payments_user_status,priority:1;not null" json:"user_id"`
	User           User         `gorm:"foreignKey:UserID" json:"user,omitempty"`
	SubscriptionID uint         `gorm:"index;not null" json:"subscription_id"`
	Subscription   Subscription `gorm:"foreignKey:SubscriptionID" json:"subscription,omitempty"`
	Amount         float64      `gorm:"type:decimal(10,2);not null" json:"amount"`
	Currency       string       `gorm:"type:varchar(3);not null;default:'USD'" json:"currency"`
	Status         string       `gorm:"type:varchar(20);not null;default:'pending';index:idx_payments_user_status,priority:2" json:"status"`
	PaymentMethod  string       `gorm:"type:varchar(20);not null;default:'stripe'" json:"payment_method"`

	// Stripe references
	StripePaymentIntentID string `gorm:"type:varchar(255);index" json:"stripe_payment_intent_id"`
	StripeSessionID       string `gorm:"type:varchar(255);index" json:"stripe_session_id"`
	StripeCustomerID      string `gorm:"type:varchar(255)" json:"stripe_customer_id"`

	Description string `gorm:"type:text" json:"description"`
	Metadata    JSON   `gorm:"type:json" json:"metadata"`

	CreatedAt   time.Time  `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt   time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
	ProcessedAt *time.Time `gorm:"type:timestamp;default:null" json:"processed_at,omitempty"`
}

func (Payment) TableName() string {
	return "payments"
}

// IsSuccessful reports whether the payment reached its terminal success state.
func (p *Payment) IsSuccessful() bool {
	return p.Status == PaymentStatusSucceeded
}

// IsPending reports whether the payment is still awaiting a gateway outcome.
func (p *Payment) IsPending() bool {
	return p.Status == PaymentStatusPending || p.Status == PaymentStatusProcessing
}

// CanBeRefunded reports whether a refund may be issued for this payment.
func (p *Payment) CanBeRefunded() bool {
	return p.IsSuccessful() && p.PaymentMethod == PaymentMethodStripe
}

// MarkAsSucceeded records the terminal success state.
func (p *Payment) MarkAsSucceeded(now time.Time) {
	p.Status = PaymentStatusSucceeded
	p.ProcessedAt = &now
}

// MarkAsFailed records the failure and keeps the gateway reason in metadata.
func (p *Payment) MarkAsFailed(reason string, now time.Time) {
	p.Status = PaymentStatusFailed
	p.ProcessedAt = &now
	if reason != "" {
		_ = p.Metadata.SetString("failure_reason", reason)
	}
}

// PaymentAttempt logs a single gateway charge attempt for a payment.
type PaymentAttempt struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	PaymentID      uint      `gorm:"index;not null" json:"payment_id"`
	Payment        Payment   `gorm:"foreignKey:PaymentID" json:"payment,omitempty"`
	StripeChargeID string    `gorm:"type:varchar(255)" json:"stripe_charge_id"`
	Status         string    `gorm:"type:varchar(50);not null" json:"status"`
	ErrorMessage   string    `gorm:"type:text" json:"error_message"`
	Metadata       JSON      `gorm:"type:json" json:"metadata"`
	CreatedAt      time.Time `gorm:"autoCreateTime;index" json:"created_at"`
}

func (PaymentAttempt) TableName() string {
	return "payment_attempts"
}
