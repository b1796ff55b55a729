package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSubscriptionIsActiveAt(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	sub := Subscription{
		Status:    SubscriptionStatusActive,
		StartDate: now.AddDate(0, 0, -10),
		EndDate:   now.AddDate(0, 0, 20),
	}

	assert.True(t, sub.IsActiveAt(now))
	assert.True(t, sub.IsActiveAt(sub.StartDate))
	assert.True(t, sub.IsActiveAt(sub.EndDate))
	assert.False(t, sub.IsActiveAt(sub.StartDate.Add(-time.Second)))
	assert.False(t, sub.IsActiveAt(sub.EndDate.Add(time.Second)))

	for _, status := range []string{
		SubscriptionStatusPending,
		SubscriptionStatusCancelled,
		SubscriptionStatusExpired,
	} {
		sub.Status = status
		assert.False(t, sub.IsActiveAt(now), "status %q must not count as active", status)
	}
}

func TestSubscriptionActivate(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	sub := Subscription{Status: SubscriptionStatusPending}

	sub.Activate(30, now)

	assert.Equal(t, SubscriptionStatusActive, sub.Status)
	assert.Equal(t, now, sub.StartDate)
	assert.Equal(t, now.AddDate(0, 0, 30), sub.EndDate)
}

func TestSubscriptionExtendWhileActive(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	sub := Subscription{
		Status:    SubscriptionStatusActive,
		StartDate: now.AddDate(0, 0, -20),
		EndDate:   now.AddDate(0, 0, 10),
	}

	sub.Extend(30, now)

	// Remaining days are kept; the new period is appended to the old end.
	assert.Equal(t, now.AddDate(0, 0, -20), sub.StartDate)
	assert.Equal(t, now.AddDate(0, 0, 40), sub.EndDate)
}

func TestSubscriptionExtendAfterLapse(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	sub := Subscription{
		Status:    SubscriptionStatusActive,
		StartDate: now.AddDate(0, 0, -60),
		EndDate:   now.AddDate(0, 0, -5),
	}

	sub.Extend(30, now)

	// A lapsed row restarts fresh instead of backfilling the gap.
	assert.Equal(t, SubscriptionStatusActive, sub.Status)
	assert.Equal(t, now, sub.StartDate)
	assert.Equal(t, now.AddDate(0, 0, 30), sub.EndDate)
}

func TestSubscriptionDaysRemainingAt(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	sub := Subscription{
		Status:    SubscriptionStatusActive,
		StartDate: now.AddDate(0, 0, -5),
		EndDate:   now.AddDate(0, 0, 25),
	}

	assert.Equal(t, 25, sub.DaysRemainingAt(now))
	assert.Equal(t, 0, sub.DaysRemainingAt(sub.EndDate.Add(time.Second)))

	sub.Status = SubscriptionStatusCancelled
	assert.Equal(t, 0, sub.DaysRemainingAt(now))
}

func TestSubscriptionCancelAndExpire(t *testing.T) {
	sub := Subscription{Status: SubscriptionStatusActive, AutoRenew: true}
	sub.Cancel()
	assert.Equal(t, SubscriptionStatusCancelled, sub.Status)
	assert.False(t, sub.AutoRenew)

	sub = Subscription{Status: SubscriptionStatusActive, AutoRenew: true}
	sub.Expire()
	assert.Equal(t, SubscriptionStatusExpired, sub.Status)
	assert.False(t, sub.AutoRenew)
}
