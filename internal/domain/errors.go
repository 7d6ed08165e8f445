package domain

import "errors"

var (
	// ErrValidation marks malformed or incomplete input.
	ErrValidation = errors.New("validation error")

	// ErrNotFound marks a missing campaign, recipient, or config.
	ErrNotFound = errors.New("not found")

	// ErrConflict marks an operation rejected by the entity's current state.
	ErrConflict = errors.New("conflict")

	// ErrUnauthorized marks a trigger with a bad or missing secret.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrLockNotAcquired marks a batch trigger that lost the campaign lock.
	// Callers should treat it as retryable contention, not a failure.
	ErrLockNotAcquired = errors.New("campaign lock not acquired")

	// ErrNoSmtpConfig marks a user without any outbound SMTP source.
	// Fatal for the current batch; recipients stay pending.
	ErrNoSmtpConfig = errors.New("no smtp configurations available")
)
