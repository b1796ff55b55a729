package models

import (
	"time"
)

const (
	WebhookProviderStripe = "stripe"
	WebhookProviderPayPal = "paypal"
)

const (
	WebhookEventStatusPending   = "pending"
	WebhookEventStatusProcessed = "processed"
	WebhookEventStatusFailed    = "failed"
	WebhookEventStatusIgnored   = "ignored"
)

// WebhookEvent is the append-only log of provider events. The unique event_id
// index is the dedup key: inserting an already-seen id is detected at the
// storage layer, which makes re-delivery a no-op. The raw payload is retained
// so failed events can be replayed by the retry sweep.
type WebhookEvent struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	Provider     string     `gorm:"type:varchar(20);not null;index:idx_webhook_events_provider_type,priority:1" json:"provider"`
	EventID      string     `gorm:"type:varchar(255);uniqueIndex;not null" json:"event_id"`
	EventType    string     `gorm:"type:varchar(100);not null;index:idx_webhook_events_provider_type,priority:2" json:"event_type"`
	Status       string     `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	Payload      JSON       `gorm:"type:json;not null" json:"payload"`
	ProcessedAt  *time.Time `gorm:"type:timestamp;default:null" json:"processed_at,omitempty"`
	ErrorMessage string     `gorm:"type:text" json:"error_message"`
	CreatedAt    time.Time  `gorm:"autoCreateTime;index" json:"created_at"`
}

func (WebhookEvent) TableName() string {
	return "webhook_events"
}

// MarkProcessed records successful processing.
func (e *WebhookEvent) MarkProcessed(now time.Time) {
	e.Status = WebhookEventStatusProcessed
	e.ProcessedAt = &now
	e.ErrorMessage = ""
}

// MarkFailed records a processing failure; the event stays eligible for the
// retry sweep while inside the retry window.
func (e *WebhookEvent) MarkFailed(message string, now time.Time) {
	e.Status = WebhookEventStatusFailed
	e.ProcessedAt = &now
	e.ErrorMessage = message
}

// MarkIgnored records that the event type carries no local state change.
func (e *WebhookEvent) MarkIgnored(now time.Time) {
	e.Status = WebhookEventStatusIgnored
	e.ProcessedAt = &now
}

// IsSettled reports whether the event already reached a state that must not
// be reprocessed by plain ingestion (everything except failed-within-window
// retries, which go through the sweep).
func (e *WebhookEvent) IsSettled() bool {
	switch e.Status {
	case WebhookEventStatusProcessed, WebhookEventStatusIgnored, WebhookEventStatusFailed:
		return true
	default:
		return false
	}
}
