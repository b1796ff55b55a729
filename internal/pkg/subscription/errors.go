package subscription

import "errors"

var (
	// ErrPlanNotFound is returned when the requested plan does not exist.
	ErrPlanNotFound = errors.New("subscription plan not found")

	// ErrPlanInactive is returned when the plan exists but was retired.
	ErrPlanInactive = errors.New("subscription plan is no longer offered")

	// ErrAlreadySubscribed is returned when the user already holds a
	// subscription that is active right now. Lapsed rows (cancelled, expired,
	// stale pending) do not trigger this; they get reused.
	ErrAlreadySubscribed = errors.New("user already has an active subscription")

	// ErrNotFound is returned when the user has no subscription row at all.
	ErrNotFound = errors.New("no subscription found")
)
