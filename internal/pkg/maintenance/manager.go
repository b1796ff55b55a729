package maintenance

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2/log"

	"github.com/newspin/newspin/internal/pkg/cache"
	"github.com/newspin/newspin/internal/pkg/database"
	"github.com/newspin/newspin/internal/pkg/env"
	"github.com/newspin/newspin/internal/pkg/mail"
	"github.com/newspin/newspin/internal/pkg/metrics/counter"
	"github.com/newspin/newspin/internal/pkg/payment"
	"github.com/newspin/newspin/internal/pkg/subscription"
)

const (
	// expiry sweep batch per tick
	sweepBatchSize = 100

	// webhook retry window and batch
	retryWindow    = 24 * time.Hour
	retryBatchSize = 50

	// retention for finished payments and settled webhook events
	paymentRetention = 90 * 24 * time.Hour
	eventRetention   = 30 * 24 * time.Hour

	// how far ahead expiry reminders look
	reminderLead = 3 * 24 * time.Hour
)

// Manager runs the periodic housekeeping: the subscription expiry sweep,
// the webhook retry sweep, retention cleanups, expiry reminder mails and
// the view counter flush.
type Manager struct {
	subs     *subscription.Service
	payments *payment.Service

	sweepTicker    *time.Ticker
	retryTicker    *time.Ticker
	cleanupTicker  *time.Ticker
	reminderTicker *time.Ticker
	counterTicker  *time.Ticker

	stopCh  chan struct{}
	wg      sync.WaitGroup
	mu      sync.Mutex
	running bool
}

var (
	globalManager *Manager
	managerOnce   sync.Once
)

// GetManager returns the global maintenance manager (singleton)
func GetManager() *Manager {
	managerOnce.Do(func() {
		db := database.GetDB()
		globalManager = &Manager{
			subs:     subscription.NewServiceFromDB(db),
			payments: payment.NewServiceFromDB(db),
			stopCh:   make(chan struct{}),
		}
	})
	return globalManager
}

func intervalFromEnv(key string, fallback time.Duration) time.Duration {
	raw := env.GetEnv(key, "")
	if raw == "" {
		return fallback
	}
	minutes, err := strconv.Atoi(raw)
	if err != nil || minutes <= 0 {
		return fallback
	}
	return time.Duration(minutes) * time.Minute
}

// Start starts the background workers
func (m *Manager) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return
	}

	// Recreate stop channel for each start cycle so manager can be restarted
	// safely. Workers get their own reference; Stop nils the field.
	m.stopCh = make(chan struct{})
	stopCh := m.stopCh
	m.running = true
	log.Info("[Maintenance] Starting background tasks")

	m.sweepTicker = time.NewTicker(intervalFromEnv("SUBSCRIPTION_SWEEP_INTERVAL", 5*time.Minute))
	m.wg.Add(1)
	go m.sweepWorker(stopCh)

	m.retryTicker = time.NewTicker(intervalFromEnv("WEBHOOK_RETRY_INTERVAL", 10*time.Minute))
	m.wg.Add(1)
	go m.retryWorker(stopCh)

	m.cleanupTicker = time.NewTicker(intervalFromEnv("CLEANUP_INTERVAL", 24*60*time.Minute))
	m.wg.Add(1)
	go m.cleanupWorker(stopCh)

	m.reminderTicker = time.NewTicker(intervalFromEnv("REMINDER_INTERVAL", 6*60*time.Minute))
	m.wg.Add(1)
	go m.reminderWorker(stopCh)

	m.counterTicker = time.NewTicker(5 * time.Second)
	m.wg.Add(1)
	go m.counterFlushWorker(stopCh)

	log.Info("[Maintenance] Started successfully")
}

// Stop stops the background workers and waits for them to finish
func (m *Manager) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.running {
		return
	}

	log.Info("[Maintenance] Stopping background tasks...")

	for _, t := range []*time.Ticker{m.sweepTicker, m.retryTicker, m.cleanupTicker, m.reminderTicker, m.counterTicker} {
		if t != nil {
			t.Stop()
		}
	}

	close(m.stopCh)
	m.stopCh = nil
	m.running = false

	m.wg.Wait()

	log.Info("[Maintenance] Stopped successfully")
}

// sweepWorker flips lapsed subscriptions to expired
func (m *Manager) sweepWorker(stopCh <-chan struct{}) {
	defer m.wg.Done()
	for {
		select {
		case <-stopCh:
			log.Info("[Maintenance] Expiry sweep worker stopping")
			return
		case <-m.sweepTicker.C:
			expired, err := m.subs.SweepExpired(context.Background(), sweepBatchSize)
			if err != nil {
				log.Errorf("[Maintenance] Expiry sweep error: %v", err)
			}
			if expired > 0 {
				log.Infof("[Maintenance] Expired %d subscriptions", expired)
			}
		}
	}
}

// retryWorker re-runs failed webhook events inside the retry window
func (m *Manager) retryWorker(stopCh <-chan struct{}) {
	defer m.wg.Done()
	for {
		select {
		case <-stopCh:
			log.Info("[Maintenance] Webhook retry worker stopping")
			return
		case <-m.retryTicker.C:
			if _, err := m.payments.RetryFailedEvents(context.Background(), retryWindow, retryBatchSize); err != nil {
				log.Errorf("[Maintenance] Webhook retry error: %v", err)
			}
		}
	}
}

// cleanupWorker applies the retention windows
func (m *Manager) cleanupWorker(stopCh <-chan struct{}) {
	defer m.wg.Done()
	for {
		select {
		case <-stopCh:
			log.Info("[Maintenance] Cleanup worker stopping")
			return
		case <-m.cleanupTicker.C:
			ctx := context.Background()
			if n, err := m.payments.CleanupPayments(ctx, paymentRetention); err != nil {
				log.Errorf("[Maintenance] Payment cleanup error: %v", err)
			} else if n > 0 {
				log.Infof("[Maintenance] Removed %d old payments", n)
			}
			if n, err := m.payments.CleanupEvents(ctx, eventRetention); err != nil {
				log.Errorf("[Maintenance] Webhook event cleanup error: %v", err)
			} else if n > 0 {
				log.Infof("[Maintenance] Removed %d old webhook events", n)
			}
		}
	}
}

// reminderWorker mails users whose non-renewing subscription ends soon
func (m *Manager) reminderWorker(stopCh <-chan struct{}) {
	defer m.wg.Done()
	for {
		select {
		case <-stopCh:
			log.Info("[Maintenance] Reminder worker stopping")
			return
		case <-m.reminderTicker.C:
			if err := m.sendRemindersOnce(); err != nil {
				log.Errorf("[Maintenance] Reminder error: %v", err)
			}
		}
	}
}

func (m *Manager) sendRemindersOnce() error {
	ctx := context.Background()
	subs, err := m.subs.ExpiringSoon(ctx, reminderLead)
	if err != nil {
		return err
	}

	for i := range subs {
		sub := &subs[i]
		if sub.User.Email == "" {
			continue
		}

		// One reminder per subscription per end date; the marker key expires
		// with the lead window.
		marker := fmt.Sprintf("reminder:subscription:%d:%s", sub.ID, sub.EndDate.Format("2006-01-02"))
		set, err := cache.GetClient().SetNX(ctx, marker, "1", reminderLead).Result()
		if err != nil {
			log.Errorf("[Maintenance] Reminder marker error: %v", err)
			continue
		}
		if !set {
			continue
		}

		subject := "Your subscription is about to expire"
		body := fmt.Sprintf(
			"<p>Hi %s,</p><p>Your <strong>%s</strong> subscription ends on %s. Renew to keep your pinned post on the front page.</p>",
			sub.User.Name, sub.Plan.Name, sub.EndDate.Format("January 2, 2006"),
		)
		if err := mail.SendMail(sub.User.Email, subject, body); err != nil {
			log.Errorf("[Maintenance] Reminder mail to user %d failed: %v", sub.UserID, err)
		}
	}
	return nil
}

// counterFlushWorker periodically flushes pending view counters from Redis to DB
func (m *Manager) counterFlushWorker(stopCh <-chan struct{}) {
	defer m.wg.Done()
	for {
		select {
		case <-stopCh:
			log.Info("[Maintenance] Counter flush worker stopping")
			return
		case <-m.counterTicker.C:
			if err := counter.FlushAll(); err != nil {
				log.Errorf("[Maintenance] Counter flush error: %v", err)
			}
		}
	}
}
