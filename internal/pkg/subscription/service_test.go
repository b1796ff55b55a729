package subscription

import (
	"context"
	"errors"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/newspin/newspin/app/models"
)

type fakeRepository struct {
	plans         map[uint]*models.SubscriptionPlan
	subscriptions map[uint]*models.Subscription
	payments      []*models.Payment
	pins          map[uint]bool
	nextSubID     uint
}

func newFakeRepository() *fakeRepository {
	return &fakeRepository{
		plans:         map[uint]*models.SubscriptionPlan{},
		subscriptions: map[uint]*models.Subscription{},
		pins:          map[uint]bool{},
		nextSubID:     1,
	}
}

func (f *fakeRepository) GetPlan(id uint) (*models.SubscriptionPlan, error) {
	if p, ok := f.plans[id]; ok {
		copied := *p
		return &copied, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeRepository) GetByUserID(userID uint) (*models.Subscription, error) {
	if s, ok := f.subscriptions[userID]; ok {
		copied := *s
		if plan, ok := f.plans[s.PlanID]; ok {
			copied.Plan = *plan
		}
		return &copied, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeRepository) GetByUserIDForUpdate(userID uint) (*models.Subscription, error) {
	if s, ok := f.subscriptions[userID]; ok {
		copied := *s
		return &copied, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeRepository) GetByID(id uint) (*models.Subscription, error) {
	for _, s := range f.subscriptions {
		if s.ID == id {
			copied := *s
			return &copied, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeRepository) Create(sub *models.Subscription) error {
	sub.ID = f.nextSubID
	f.nextSubID++
	copied := *sub
	f.subscriptions[sub.UserID] = &copied
	return nil
}

func (f *fakeRepository) Save(sub *models.Subscription) error {
	copied := *sub
	f.subscriptions[sub.UserID] = &copied
	return nil
}

func (f *fakeRepository) CreatePayment(payment *models.Payment) error {
	payment.ID = uint(len(f.payments) + 1)
	copied := *payment
	f.payments = append(f.payments, &copied)
	return nil
}

func (f *fakeRepository) RemovePin(userID uint) (bool, error) {
	if !f.pins[userID] {
		return false, nil
	}
	delete(f.pins, userID)
	return true, nil
}

func (f *fakeRepository) ListLapsedActive(now time.Time, limit int) ([]models.Subscription, error) {
	var subs []models.Subscription
	for _, s := range f.subscriptions {
		if s.Status == models.SubscriptionStatusActive && s.EndDate.Before(now) {
			subs = append(subs, *s)
		}
		if len(subs) == limit {
			break
		}
	}
	return subs, nil
}

func (f *fakeRepository) ListEndingWithin(now time.Time, lead time.Duration) ([]models.Subscription, error) {
	var subs []models.Subscription
	for _, s := range f.subscriptions {
		if s.Status != models.SubscriptionStatusActive || s.AutoRenew {
			continue
		}
		if !s.EndDate.Before(now) && !s.EndDate.After(now.Add(lead)) {
			subs = append(subs, *s)
		}
	}
	return subs, nil
}

func (f *fakeRepository) CountActive(now time.Time) (int64, error) {
	var count int64
	for _, s := range f.subscriptions {
		if s.IsActiveAt(now) {
			count++
		}
	}
	return count, nil
}

func (f *fakeRepository) Transaction(fn func(Repository) error) error {
	return fn(f)
}

func testService(repo Repository, now time.Time) *Service {
	s := NewService(repo)
	s.now = func() time.Time { return now }
	return s
}

func monthlyPlan() *models.SubscriptionPlan {
	return &models.SubscriptionPlan{
		ID:           1,
		Name:         "Monthly",
		Price:        9.99,
		DurationDays: 30,
		IsActive:     true,
	}
}

func TestSubscribeCreatesPendingRowAndPayment(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	repo := newFakeRepository()
	repo.plans[1] = monthlyPlan()
	svc := testService(repo, now)

	sub, payment, err := svc.Subscribe(context.Background(), 7, 1)
	if err != nil {
		t.Fatalf("subscribe failed: %v", err)
	}
	if sub.Status != models.SubscriptionStatusPending {
		t.Fatalf("expected pending subscription, got %q", sub.Status)
	}
	if payment.Status != models.PaymentStatusPending || payment.Amount != 9.99 {
		t.Fatalf("unexpected payment: %+v", payment)
	}
	if payment.SubscriptionID != sub.ID {
		t.Fatalf("payment not linked to subscription")
	}
}

func TestSubscribePlanErrors(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	repo := newFakeRepository()
	retired := monthlyPlan()
	retired.IsActive = false
	repo.plans[1] = retired
	svc := testService(repo, now)

	if _, _, err := svc.Subscribe(context.Background(), 7, 99); !errors.Is(err, ErrPlanNotFound) {
		t.Fatalf("missing plan: got %v, want %v", err, ErrPlanNotFound)
	}
	if _, _, err := svc.Subscribe(context.Background(), 7, 1); !errors.Is(err, ErrPlanInactive) {
		t.Fatalf("retired plan: got %v, want %v", err, ErrPlanInactive)
	}
}

func TestSubscribeRejectsActiveSubscriber(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	repo := newFakeRepository()
	repo.plans[1] = monthlyPlan()
	repo.subscriptions[7] = &models.Subscription{
		ID: 1, UserID: 7, PlanID: 1,
		Status:    models.SubscriptionStatusActive,
		StartDate: now.AddDate(0, 0, -5),
		EndDate:   now.AddDate(0, 0, 25),
	}
	svc := testService(repo, now)

	if _, _, err := svc.Subscribe(context.Background(), 7, 1); !errors.Is(err, ErrAlreadySubscribed) {
		t.Fatalf("got %v, want %v", err, ErrAlreadySubscribed)
	}
}

func TestSubscribeReusesLapsedRow(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	repo := newFakeRepository()
	repo.plans[1] = monthlyPlan()
	repo.subscriptions[7] = &models.Subscription{
		ID: 42, UserID: 7, PlanID: 1,
		Status:    models.SubscriptionStatusExpired,
		StartDate: now.AddDate(0, 0, -90),
		EndDate:   now.AddDate(0, 0, -60),
	}
	svc := testService(repo, now)

	sub, _, err := svc.Subscribe(context.Background(), 7, 1)
	if err != nil {
		t.Fatalf("subscribe failed: %v", err)
	}
	if sub.ID != 42 {
		t.Fatalf("expected the old row to be reused, got id %d", sub.ID)
	}
	if sub.Status != models.SubscriptionStatusPending || !sub.AutoRenew {
		t.Fatalf("unexpected reused row: %+v", sub)
	}
}

func TestCancelRemovesPin(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	repo := newFakeRepository()
	repo.subscriptions[7] = &models.Subscription{
		ID: 1, UserID: 7, PlanID: 1,
		Status:    models.SubscriptionStatusActive,
		StartDate: now.AddDate(0, 0, -5),
		EndDate:   now.AddDate(0, 0, 25),
		AutoRenew: true,
	}
	repo.pins[7] = true
	svc := testService(repo, now)

	if err := svc.Cancel(context.Background(), 7); err != nil {
		t.Fatalf("cancel failed: %v", err)
	}
	got := repo.subscriptions[7]
	if got.Status != models.SubscriptionStatusCancelled || got.AutoRenew {
		t.Fatalf("unexpected row after cancel: %+v", got)
	}
	if repo.pins[7] {
		t.Fatalf("pin survived cancel")
	}

	// Cancelling again is a no-op success.
	if err := svc.Cancel(context.Background(), 7); err != nil {
		t.Fatalf("second cancel failed: %v", err)
	}
}

func TestCancelUnknownUser(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	svc := testService(newFakeRepository(), now)

	if err := svc.Cancel(context.Background(), 7); !errors.Is(err, ErrNotFound) {
		t.Fatalf("got %v, want %v", err, ErrNotFound)
	}
}

func TestSweepExpired(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	repo := newFakeRepository()
	repo.subscriptions[7] = &models.Subscription{
		ID: 1, UserID: 7, PlanID: 1,
		Status:    models.SubscriptionStatusActive,
		StartDate: now.AddDate(0, 0, -60),
		EndDate:   now.AddDate(0, 0, -1),
	}
	repo.subscriptions[8] = &models.Subscription{
		ID: 2, UserID: 8, PlanID: 1,
		Status:    models.SubscriptionStatusActive,
		StartDate: now.AddDate(0, 0, -5),
		EndDate:   now.AddDate(0, 0, 25),
	}
	repo.pins[7] = true
	repo.pins[8] = true
	svc := testService(repo, now)

	expired, err := svc.SweepExpired(context.Background(), 100)
	if err != nil {
		t.Fatalf("sweep failed: %v", err)
	}
	if expired != 1 {
		t.Fatalf("expected 1 expired, got %d", expired)
	}
	if repo.subscriptions[7].Status != models.SubscriptionStatusExpired {
		t.Fatalf("lapsed row not expired: %+v", repo.subscriptions[7])
	}
	if repo.pins[7] {
		t.Fatalf("expired user kept the pin")
	}
	if repo.subscriptions[8].Status != models.SubscriptionStatusActive || !repo.pins[8] {
		t.Fatalf("running subscription was touched by the sweep")
	}
}

func TestGetStatusWithoutSubscription(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	svc := testService(newFakeRepository(), now)

	status, err := svc.GetStatus(context.Background(), 7)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if status.HasSubscription || status.IsActive {
		t.Fatalf("expected zero-value status, got %+v", status)
	}
}

func TestGetStatusActive(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	repo := newFakeRepository()
	repo.plans[1] = monthlyPlan()
	repo.subscriptions[7] = &models.Subscription{
		ID: 1, UserID: 7, PlanID: 1,
		Status:    models.SubscriptionStatusActive,
		StartDate: now.AddDate(0, 0, -5),
		EndDate:   now.AddDate(0, 0, 25),
		AutoRenew: true,
	}
	svc := testService(repo, now)

	status, err := svc.GetStatus(context.Background(), 7)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !status.HasSubscription || !status.IsActive {
		t.Fatalf("expected active status, got %+v", status)
	}
	if status.PlanName != "Monthly" || !status.AutoRenew {
		t.Fatalf("unexpected status fields: %+v", status)
	}
	// Computed against the service clock, not the wall clock.
	if status.DaysRemaining != 25 {
		t.Fatalf("expected 25 days remaining, got %d", status.DaysRemaining)
	}
}
