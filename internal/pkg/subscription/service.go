package subscription

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/newspin/newspin/app/models"
)

// Service drives the subscription state machine. All writes to the
// subscriptions table go through here; transitions run in one transaction
// with the row locked, and losing transitions (cancel, expire) remove the
// user's pinned post in the same transaction.
type Service struct {
	repo Repository
	now  func() time.Time
}

// NewService creates a subscription service from an injected repository.
func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

// NewServiceFromDB creates a subscription service from a GORM DB handle.
func NewServiceFromDB(db *gorm.DB) *Service {
	return NewService(NewRepository(db))
}

// Status summarizes a user's subscription for API responses.
type Status struct {
	HasSubscription bool       `json:"has_subscription"`
	IsActive        bool       `json:"is_active"`
	Status          string     `json:"status,omitempty"`
	PlanID          uint       `json:"plan_id,omitempty"`
	PlanName        string     `json:"plan_name,omitempty"`
	StartDate       *time.Time `json:"start_date,omitempty"`
	EndDate         *time.Time `json:"end_date,omitempty"`
	DaysRemaining   int        `json:"days_remaining"`
	AutoRenew       bool       `json:"auto_renew"`
}

// Subscribe creates or reuses the user's subscription row in pending state and
// opens a matching pending payment for the plan price. The caller sends the
// payment through the gateway; the subscription only becomes active once the
// provider confirms via webhook.
func (s *Service) Subscribe(ctx context.Context, userID, planID uint) (*models.Subscription, *models.Payment, error) {
	_ = ctx
	now := s.now()

	plan, err := s.repo.GetPlan(planID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrPlanNotFound
		}
		return nil, nil, err
	}
	if !plan.IsActive {
		return nil, nil, ErrPlanInactive
	}

	var sub *models.Subscription
	var payment *models.Payment
	err = s.repo.Transaction(func(tx Repository) error {
		existing, err := tx.GetByUserIDForUpdate(userID)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		if existing != nil {
			if existing.IsActiveAt(now) {
				return ErrAlreadySubscribed
			}
			// Reuse the lapsed row so payment history keeps its foreign keys.
			existing.PlanID = plan.ID
			existing.Status = models.SubscriptionStatusPending
			existing.StartDate = now
			existing.EndDate = now.AddDate(0, 0, plan.DurationDays)
			existing.AutoRenew = true
			if err := tx.Save(existing); err != nil {
				return err
			}
			sub = existing
		} else {
			sub = &models.Subscription{
				UserID:    userID,
				PlanID:    plan.ID,
				Status:    models.SubscriptionStatusPending,
				StartDate: now,
				EndDate:   now.AddDate(0, 0, plan.DurationDays),
				AutoRenew: true,
			}
			if err := tx.Create(sub); err != nil {
				return err
			}
		}

		payment = &models.Payment{
			UserID:         userID,
			SubscriptionID: sub.ID,
			Amount:         plan.Price,
			Currency:       "USD",
			Status:         models.PaymentStatusPending,
			PaymentMethod:  models.PaymentMethodStripe,
			Description:    fmt.Sprintf("Subscription to %s", plan.Name),
		}
		return tx.CreatePayment(payment)
	})
	if err != nil {
		return nil, nil, err
	}
	sub.Plan = *plan
	return sub, payment, nil
}

// Activate moves the user's subscription to active with a fresh period from
// its plan. An already running subscription gets extended instead, so a
// double-delivered confirmation never shortens anyone's period.
func (s *Service) Activate(ctx context.Context, userID uint) error {
	_ = ctx
	now := s.now()
	return s.repo.Transaction(func(tx Repository) error {
		sub, err := tx.GetByUserIDForUpdate(userID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		plan, err := tx.GetPlan(sub.PlanID)
		if err != nil {
			return err
		}
		sub.Extend(plan.DurationDays, now)
		return tx.Save(sub)
	})
}

// Extend adds the given number of days to the user's subscription, activating
// it first when it is not currently running.
func (s *Service) Extend(ctx context.Context, userID uint, days int) error {
	_ = ctx
	now := s.now()
	return s.repo.Transaction(func(tx Repository) error {
		sub, err := tx.GetByUserIDForUpdate(userID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		sub.Extend(days, now)
		return tx.Save(sub)
	})
}

// Cancel moves the subscription to cancelled and removes the user's pinned
// post in the same transaction. Cancelling an already cancelled or expired
// subscription is a no-op success.
func (s *Service) Cancel(ctx context.Context, userID uint) error {
	_ = ctx
	return s.repo.Transaction(func(tx Repository) error {
		sub, err := tx.GetByUserIDForUpdate(userID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		if sub.Status == models.SubscriptionStatusCancelled ||
			sub.Status == models.SubscriptionStatusExpired {
			return nil
		}
		sub.Cancel()
		if err := tx.Save(sub); err != nil {
			return err
		}
		_, err = tx.RemovePin(userID)
		return err
	})
}

// SweepExpired flips rows still marked active whose end date has passed to
// expired, unpinning each owner in the same transaction as their row update.
// Returns how many subscriptions were expired.
func (s *Service) SweepExpired(ctx context.Context, batchSize int) (int, error) {
	_ = ctx
	if batchSize <= 0 {
		batchSize = 100
	}
	now := s.now()

	lapsed, err := s.repo.ListLapsedActive(now, batchSize)
	if err != nil {
		return 0, err
	}

	expired := 0
	for i := range lapsed {
		userID := lapsed[i].UserID
		err := s.repo.Transaction(func(tx Repository) error {
			sub, err := tx.GetByUserIDForUpdate(userID)
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return nil
				}
				return err
			}
			// Re-check under the lock; a webhook may have extended it since
			// the list query.
			if sub.Status != models.SubscriptionStatusActive || !sub.EndDate.Before(now) {
				return nil
			}
			sub.Expire()
			if err := tx.Save(sub); err != nil {
				return err
			}
			if _, err := tx.RemovePin(userID); err != nil {
				return err
			}
			expired++
			return nil
		})
		if err != nil {
			return expired, err
		}
	}
	return expired, nil
}

// ExpiringSoon returns active non-renewing subscriptions that end within the
// lead window, for reminder mails.
func (s *Service) ExpiringSoon(ctx context.Context, lead time.Duration) ([]models.Subscription, error) {
	_ = ctx
	return s.repo.ListEndingWithin(s.now(), lead)
}

// GetByUser returns the user's subscription row with its plan.
func (s *Service) GetByUser(ctx context.Context, userID uint) (*models.Subscription, error) {
	_ = ctx
	sub, err := s.repo.GetByUserID(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return sub, nil
}

// GetStatus returns the API-facing summary of the user's subscription. Users
// without a row get a zero-value summary, not an error.
func (s *Service) GetStatus(ctx context.Context, userID uint) (*Status, error) {
	sub, err := s.GetByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return &Status{}, nil
		}
		return nil, err
	}

	now := s.now()
	start := sub.StartDate
	end := sub.EndDate
	return &Status{
		HasSubscription: true,
		IsActive:        sub.IsActiveAt(now),
		Status:          sub.Status,
		PlanID:          sub.PlanID,
		PlanName:        sub.Plan.Name,
		StartDate:       &start,
		EndDate:         &end,
		DaysRemaining:   sub.DaysRemainingAt(now),
		AutoRenew:       sub.AutoRenew,
	}, nil
}

// CountActive reports how many subscriptions are active right now.
func (s *Service) CountActive(ctx context.Context) (int64, error) {
	_ = ctx
	return s.repo.CountActive(s.now())
}
