package pinning

import (
	"context"
	"errors"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/newspin/newspin/app/models"
)

// fakeRepository keeps everything in maps. Transaction just runs fn against
// the same fake; rollback behavior is not simulated.
type fakeRepository struct {
	posts         map[uint]*models.Post
	subscriptions map[uint]*models.Subscription
	pins          map[uint]*models.PinnedPost
	nextPinID     uint
}

func newFakeRepository() *fakeRepository {
	return &fakeRepository{
		posts:         map[uint]*models.Post{},
		subscriptions: map[uint]*models.Subscription{},
		pins:          map[uint]*models.PinnedPost{},
		nextPinID:     1,
	}
}

func (f *fakeRepository) GetPost(id uint) (*models.Post, error) {
	if p, ok := f.posts[id]; ok {
		copied := *p
		return &copied, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeRepository) GetPostBySlug(slug string) (*models.Post, error) {
	for _, p := range f.posts {
		if p.Slug == slug {
			copied := *p
			return &copied, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeRepository) GetSubscriptionByUserID(userID uint) (*models.Subscription, error) {
	if s, ok := f.subscriptions[userID]; ok {
		copied := *s
		return &copied, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeRepository) GetSubscriptionByUserIDForUpdate(userID uint) (*models.Subscription, error) {
	return f.GetSubscriptionByUserID(userID)
}

func (f *fakeRepository) GetPinByUserID(userID uint) (*models.PinnedPost, error) {
	if pin, ok := f.pins[userID]; ok {
		copied := *pin
		return &copied, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeRepository) CreatePin(pin *models.PinnedPost) error {
	pin.ID = f.nextPinID
	f.nextPinID++
	copied := *pin
	f.pins[pin.UserID] = &copied
	return nil
}

func (f *fakeRepository) DeletePinByUserID(userID uint) (bool, error) {
	if _, ok := f.pins[userID]; !ok {
		return false, nil
	}
	delete(f.pins, userID)
	return true, nil
}

func (f *fakeRepository) ListValidPins(now time.Time, offset, limit int) ([]models.PinnedPost, error) {
	var pins []models.PinnedPost
	for _, pin := range f.pins {
		sub, ok := f.subscriptions[pin.UserID]
		if !ok || !sub.IsActiveAt(now) {
			continue
		}
		post, ok := f.posts[pin.PostID]
		if !ok || !post.IsPublished() {
			continue
		}
		pins = append(pins, *pin)
	}
	return pins, nil
}

func (f *fakeRepository) Transaction(fn func(Repository) error) error {
	return fn(f)
}

func testGuard(repo Repository, now time.Time) *Guard {
	g := NewGuard(repo)
	g.now = func() time.Time { return now }
	return g
}

func activeSubscription(userID uint, now time.Time) *models.Subscription {
	return &models.Subscription{
		UserID:    userID,
		Status:    models.SubscriptionStatusActive,
		StartDate: now.AddDate(0, 0, -5),
		EndDate:   now.AddDate(0, 0, 25),
	}
}

func TestCheckEligibility(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	published := &models.Post{ID: 1, AuthorID: 7, Status: models.PostStatusPublished}
	draft := &models.Post{ID: 2, AuthorID: 7, Status: models.PostStatusDraft}
	active := activeSubscription(7, now)
	lapsed := &models.Subscription{
		UserID:    7,
		Status:    models.SubscriptionStatusActive,
		StartDate: now.AddDate(0, 0, -60),
		EndDate:   now.AddDate(0, 0, -1),
	}

	tests := []struct {
		name   string
		post   *models.Post
		sub    *models.Subscription
		userID uint
		want   error
	}{
		{name: "all good", post: published, sub: active, userID: 7, want: nil},
		{name: "not the author", post: published, sub: active, userID: 8, want: ErrNotAuthor},
		{name: "draft post", post: draft, sub: active, userID: 7, want: ErrNotPublished},
		{name: "no subscription", post: published, sub: nil, userID: 7, want: ErrSubscriptionRequired},
		{name: "stale active row past end date", post: published, sub: lapsed, userID: 7, want: ErrSubscriptionRequired},
	}

	for _, tt := range tests {
		if got := checkEligibility(tt.post, tt.sub, tt.userID, now); !errors.Is(got, tt.want) {
			t.Fatalf("%s: checkEligibility() = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestCheckEligibilityAuthorBeforeSubscription(t *testing.T) {
	// Someone else's post must report ErrNotAuthor even when the caller has a
	// perfectly good subscription of their own.
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	post := &models.Post{ID: 1, AuthorID: 7, Status: models.PostStatusDraft}

	if got := checkEligibility(post, activeSubscription(8, now), 8, now); !errors.Is(got, ErrNotAuthor) {
		t.Fatalf("checkEligibility() = %v, want %v", got, ErrNotAuthor)
	}
}

func TestGuardPinReplacesPreviousPin(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	repo := newFakeRepository()
	repo.posts[1] = &models.Post{ID: 1, AuthorID: 7, Status: models.PostStatusPublished}
	repo.posts[2] = &models.Post{ID: 2, AuthorID: 7, Status: models.PostStatusPublished}
	repo.subscriptions[7] = activeSubscription(7, now)
	g := testGuard(repo, now)

	if _, err := g.Pin(context.Background(), 7, 1); err != nil {
		t.Fatalf("first pin failed: %v", err)
	}
	pin, err := g.Pin(context.Background(), 7, 2)
	if err != nil {
		t.Fatalf("second pin failed: %v", err)
	}
	if pin.PostID != 2 {
		t.Fatalf("expected pin to move to post 2, got %d", pin.PostID)
	}
	if len(repo.pins) != 1 {
		t.Fatalf("expected exactly one pin row, got %d", len(repo.pins))
	}
}

func TestGuardPinRepinSamePostIsNoop(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	repo := newFakeRepository()
	repo.posts[1] = &models.Post{ID: 1, AuthorID: 7, Status: models.PostStatusPublished}
	repo.subscriptions[7] = activeSubscription(7, now)
	g := testGuard(repo, now)

	first, err := g.Pin(context.Background(), 7, 1)
	if err != nil {
		t.Fatalf("pin failed: %v", err)
	}
	second, err := g.Pin(context.Background(), 7, 1)
	if err != nil {
		t.Fatalf("repin failed: %v", err)
	}
	if second.ID != first.ID {
		t.Fatalf("repin created a new row: %d vs %d", second.ID, first.ID)
	}
}

func TestGuardPinErrors(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	repo := newFakeRepository()
	repo.posts[1] = &models.Post{ID: 1, AuthorID: 7, Status: models.PostStatusPublished}
	g := testGuard(repo, now)

	if _, err := g.Pin(context.Background(), 7, 99); !errors.Is(err, ErrPostNotFound) {
		t.Fatalf("missing post: got %v, want %v", err, ErrPostNotFound)
	}
	if _, err := g.Pin(context.Background(), 7, 1); !errors.Is(err, ErrSubscriptionRequired) {
		t.Fatalf("no subscription: got %v, want %v", err, ErrSubscriptionRequired)
	}
}

func TestGuardUnpin(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	repo := newFakeRepository()
	repo.posts[1] = &models.Post{ID: 1, AuthorID: 7, Status: models.PostStatusPublished}
	repo.subscriptions[7] = activeSubscription(7, now)
	g := testGuard(repo, now)

	if err := g.Unpin(context.Background(), 7); !errors.Is(err, ErrNoPinnedPost) {
		t.Fatalf("unpin without pin: got %v, want %v", err, ErrNoPinnedPost)
	}

	if _, err := g.Pin(context.Background(), 7, 1); err != nil {
		t.Fatalf("pin failed: %v", err)
	}
	if err := g.Unpin(context.Background(), 7); err != nil {
		t.Fatalf("unpin failed: %v", err)
	}
	if len(repo.pins) != 0 {
		t.Fatalf("pin row survived unpin")
	}
}

func TestGuardToggleBySlug(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	repo := newFakeRepository()
	repo.posts[1] = &models.Post{ID: 1, AuthorID: 7, Slug: "my-post", Status: models.PostStatusPublished}
	repo.subscriptions[7] = activeSubscription(7, now)
	g := testGuard(repo, now)

	pinned, pin, err := g.ToggleBySlug(context.Background(), 7, "my-post")
	if err != nil {
		t.Fatalf("toggle on failed: %v", err)
	}
	if !pinned || pin == nil {
		t.Fatalf("expected toggle to pin the post")
	}

	pinned, _, err = g.ToggleBySlug(context.Background(), 7, "my-post")
	if err != nil {
		t.Fatalf("toggle off failed: %v", err)
	}
	if pinned {
		t.Fatalf("expected second toggle to unpin")
	}
}

func TestGuardOnSubscriptionLostIsIdempotent(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	repo := newFakeRepository()
	repo.posts[1] = &models.Post{ID: 1, AuthorID: 7, Status: models.PostStatusPublished}
	repo.subscriptions[7] = activeSubscription(7, now)
	g := testGuard(repo, now)

	if _, err := g.Pin(context.Background(), 7, 1); err != nil {
		t.Fatalf("pin failed: %v", err)
	}
	if err := g.OnSubscriptionLost(context.Background(), 7); err != nil {
		t.Fatalf("cascade failed: %v", err)
	}
	if err := g.OnSubscriptionLost(context.Background(), 7); err != nil {
		t.Fatalf("repeated cascade failed: %v", err)
	}
	if len(repo.pins) != 0 {
		t.Fatalf("pin survived subscription loss")
	}
}

func TestGuardCanPinBreakdown(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	repo := newFakeRepository()
	repo.posts[1] = &models.Post{ID: 1, AuthorID: 7, Status: models.PostStatusPublished}
	g := testGuard(repo, now)

	e, err := g.CanPin(context.Background(), 7, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !e.PostExists || !e.IsAuthor || !e.IsPublished {
		t.Fatalf("unexpected post flags: %+v", e)
	}
	if e.HasSubscription || e.SubscriptionActive || e.CanPin {
		t.Fatalf("expected subscription flags off: %+v", e)
	}

	repo.subscriptions[7] = activeSubscription(7, now)
	e, err = g.CanPin(context.Background(), 7, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !e.CanPin {
		t.Fatalf("expected can_pin after subscribing: %+v", e)
	}

	e, err = g.CanPin(context.Background(), 7, 99)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if e.PostExists || e.CanPin {
		t.Fatalf("expected empty breakdown for missing post: %+v", e)
	}
}
