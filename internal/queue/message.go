package queue

import (
	"fmt"
	"strings"
)

// BatchMessage is the broker payload for one batch invocation.
// CampaignID plus BatchIndex identify the hop, so redelivery of the
// same message is harmless: batch processing is idempotent under the
// campaign lock and monotonic recipient statuses.
type BatchMessage struct {
	CampaignID string `json:"campaignId"`
	BatchIndex int    `json:"batchIndex"`
}

func (m BatchMessage) Validate() error {
	if strings.TrimSpace(m.CampaignID) == "" {
		return fmt.Errorf("campaignId is required")
	}
	if m.BatchIndex < 0 {
		return fmt.Errorf("batchIndex must be non-negative")
	}
	return nil
}

// Key returns the at-least-once delivery key for the hop.
func (m BatchMessage) Key() string {
	return fmt.Sprintf("%s:%d", m.CampaignID, m.BatchIndex)
}
