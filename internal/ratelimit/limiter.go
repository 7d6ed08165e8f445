package ratelimit

import "context"

// RateLimiter throttles outbound sends per SMTP host so one campaign
// cannot burn a provider's reputation in a single batch.
type RateLimiter interface {
	Allow(ctx context.Context, smtpHost string) (bool, error)
	Wait(ctx context.Context, smtpHost string) error
}
