package pinning

import "errors"

var (
	// ErrPostNotFound is returned when the referenced post does not exist.
	ErrPostNotFound = errors.New("post not found")

	// ErrNotAuthor is returned when a user tries to pin a post they did not
	// write. Authorship is checked before subscription state, so the caller
	// gets the most specific error first.
	ErrNotAuthor = errors.New("only the author can pin a post")

	// ErrNotPublished is returned when the post is still a draft.
	ErrNotPublished = errors.New("only published posts can be pinned")

	// ErrSubscriptionRequired is returned when the user has no subscription
	// that is active right now. Holding a row with status "active" is not
	// enough once the end date has passed.
	ErrSubscriptionRequired = errors.New("an active subscription is required to pin posts")

	// ErrNoPinnedPost is returned by Unpin when there is nothing to remove.
	ErrNoPinnedPost = errors.New("no pinned post")
)
