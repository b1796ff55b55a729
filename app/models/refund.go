package models

import (
	"time"
)

const (
	RefundStatusPending   = "pending"
	RefundStatusSucceeded = "succeeded"
	RefundStatusFailed    = "failed"
	RefundStatusCancelled = "cancelled"
)

// Refund tracks money returned against a succeeded payment.
type Refund struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	PaymentID   uint       `gorm:"index;not null" json:"payment_id"`
	Payment     Payment    `gorm:"foreignKey:PaymentID" json:"payment,omitempty"`
	Amount      float64    `gorm:"type:decimal(10,2);not null" json:"amount"`
	Reason      string     `gorm:"type:text" json:"reason"`
	Status      string     `gorm:"type:varchar(20);not null;default:'pending'" json:"status"`
	CreatedByID *uint      `gorm:"index" json:"created_by_id,omitempty"`
	CreatedAt   time.Time  `gorm:"autoCreateTime" json:"created_at"`
	ProcessedAt *time.Time `gorm:"type:timestamp;default:null" json:"processed_at,omitempty"`
}

func (Refund) TableName() string {
	return "refunds"
}

// IsPartial reports whether less than the full payment amount was refunded.
func (r *Refund) IsPartial() bool {
	return r.Amount < r.Payment.Amount
}
