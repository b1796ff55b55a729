package pinning

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/newspin/newspin/app/models"
)

// Guard owns every write to the pinned_posts table. All entry points funnel
// through the same eligibility check: the pinning user must be the author of
// a published post and must hold a subscription that is active right now.
type Guard struct {
	repo Repository
	now  func() time.Time
}

// Eligibility is the diagnostic breakdown behind a pin decision, used by the
// UI to explain why the pin button is disabled.
type Eligibility struct {
	PostExists         bool `json:"post_exists"`
	IsAuthor           bool `json:"is_author"`
	IsPublished        bool `json:"is_published"`
	HasSubscription    bool `json:"has_subscription"`
	SubscriptionActive bool `json:"subscription_active"`
	CanPin             bool `json:"can_pin"`
}

// NewGuard creates a pinning guard from an injected repository.
func NewGuard(repo Repository) *Guard {
	return &Guard{repo: repo, now: time.Now}
}

// NewGuardFromDB creates a pinning guard from a GORM DB handle.
func NewGuardFromDB(db *gorm.DB) *Guard {
	return NewGuard(NewRepository(db))
}

// checkEligibility applies the pin rules in order of specificity. The caller
// already loaded post and subscription; sub may be nil when the user never
// subscribed.
func checkEligibility(post *models.Post, sub *models.Subscription, userID uint, now time.Time) error {
	if post.AuthorID != userID {
		return ErrNotAuthor
	}
	if !post.IsPublished() {
		return ErrNotPublished
	}
	if sub == nil || !sub.IsActiveAt(now) {
		return ErrSubscriptionRequired
	}
	return nil
}

// Pin pins the given post for the user, replacing any previous pin in the
// same transaction. Repinning the already-pinned post is a no-op success.
func (g *Guard) Pin(ctx context.Context, userID, postID uint) (*models.PinnedPost, error) {
	_ = ctx
	now := g.now()

	var pinned *models.PinnedPost
	err := g.repo.Transaction(func(tx Repository) error {
		post, err := tx.GetPost(postID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrPostNotFound
			}
			return err
		}

		// Lock the subscription row so a concurrent cancel cannot slip
		// between the check and the insert.
		sub, err := tx.GetSubscriptionByUserIDForUpdate(userID)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		if err := checkEligibility(post, sub, userID, now); err != nil {
			return err
		}

		existing, err := tx.GetPinByUserID(userID)
		if err == nil && existing.PostID == postID {
			pinned = existing
			return nil
		}
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		if _, err := tx.DeletePinByUserID(userID); err != nil {
			return err
		}
		pin := &models.PinnedPost{UserID: userID, PostID: postID, PinnedAt: now}
		if err := tx.CreatePin(pin); err != nil {
			return err
		}
		pinned = pin
		return nil
	})
	if err != nil {
		return nil, err
	}
	return pinned, nil
}

// Unpin removes the user's pin. Removing a pin never requires an active
// subscription; users can always clean up.
func (g *Guard) Unpin(ctx context.Context, userID uint) error {
	_ = ctx
	removed, err := g.repo.DeletePinByUserID(userID)
	if err != nil {
		return err
	}
	if !removed {
		return ErrNoPinnedPost
	}
	return nil
}

// ToggleBySlug pins the post when it is not the user's current pin and unpins
// it when it is. Returns whether the post ended up pinned.
func (g *Guard) ToggleBySlug(ctx context.Context, userID uint, slug string) (bool, *models.PinnedPost, error) {
	post, err := g.repo.GetPostBySlug(slug)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil, ErrPostNotFound
		}
		return false, nil, err
	}

	existing, err := g.repo.GetPinByUserID(userID)
	if err == nil && existing.PostID == post.ID {
		if err := g.Unpin(ctx, userID); err != nil && !errors.Is(err, ErrNoPinnedPost) {
			return false, nil, err
		}
		return false, nil, nil
	}
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil, err
	}

	pin, err := g.Pin(ctx, userID, post.ID)
	if err != nil {
		return false, nil, err
	}
	return true, pin, nil
}

// OnSubscriptionLost removes the user's pin after a cancel or expiry. Missing
// pins are fine; the cascade must be idempotent.
func (g *Guard) OnSubscriptionLost(ctx context.Context, userID uint) error {
	_ = ctx
	_, err := g.repo.DeletePinByUserID(userID)
	return err
}

// CanPin returns the full eligibility breakdown for a user/post pair without
// changing anything.
func (g *Guard) CanPin(ctx context.Context, userID, postID uint) (*Eligibility, error) {
	_ = ctx
	now := g.now()
	e := &Eligibility{}

	post, err := g.repo.GetPost(postID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return e, nil
		}
		return nil, err
	}
	e.PostExists = true
	e.IsAuthor = post.AuthorID == userID
	e.IsPublished = post.IsPublished()

	sub, err := g.repo.GetSubscriptionByUserID(userID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	if sub != nil {
		e.HasSubscription = true
		e.SubscriptionActive = sub.IsActiveAt(now)
	}

	e.CanPin = e.IsAuthor && e.IsPublished && e.SubscriptionActive
	return e, nil
}

// GetPinnedPost returns the user's current pin, or ErrNoPinnedPost.
func (g *Guard) GetPinnedPost(ctx context.Context, userID uint) (*models.PinnedPost, error) {
	_ = ctx
	pin, err := g.repo.GetPinByUserID(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNoPinnedPost
		}
		return nil, err
	}
	return pin, nil
}

// ListPinned returns the page of currently valid pins, oldest first. Validity
// is re-checked against subscription state at read time, so a pin whose owner
// lapsed between sweeps never shows up even while its row still exists.
func (g *Guard) ListPinned(ctx context.Context, offset, limit int) ([]models.PinnedPost, error) {
	_ = ctx
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return g.repo.ListValidPins(g.now(), offset, limit)
}
