package trigger

import "context"

// Trigger schedules the next batch hop of a campaign. Implementations
// are fire-and-forget friendly: a lost hop is recovered by re-triggering
// the campaign, never by replaying recipient sends.
type Trigger interface {
	NextBatch(ctx context.Context, campaignID string, batchIndex int) error
}
