package domain

import "errors"

var (
	ErrPostNotFound       = errors.New("post not found")
	ErrCreatorNotFound    = errors.New("creator not found")
	ErrVisibilityNotFound = errors.New("visibility state not found")
	ErrUnknownTier        = errors.New("unknown tier")

	// ErrSeedNotCompleted signals a tier1 advance attempted before the seed
	// round finished. It is retried on the next pass, never fatal.
	ErrSeedNotCompleted = errors.New("seed distribution not completed")

	// ErrPostExpired signals a promotion attempted on an expired post. The
	// caller treats it as a no-op race, not corruption.
	ErrPostExpired = errors.New("post is expired")

	// ErrPostFrozen signals a promotion attempted on an auditor-frozen post.
	ErrPostFrozen = errors.New("post is frozen")
)
