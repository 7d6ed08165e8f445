package domain

import (
	"fmt"
	"strings"
	"time"
)

// CampaignStatus represents the lifecycle state of a campaign.
type CampaignStatus string

const (
	CampaignStatusDraft      CampaignStatus = "draft"
	CampaignStatusQueued     CampaignStatus = "queued"
	CampaignStatusProcessing CampaignStatus = "processing"
	CampaignStatusSent       CampaignStatus = "sent"
	CampaignStatusFailed     CampaignStatus = "failed"
	CampaignStatusPartial    CampaignStatus = "partial"
)

func (s CampaignStatus) String() string { return string(s) }

func (s CampaignStatus) IsValid() bool {
	switch s {
	case CampaignStatusDraft, CampaignStatusQueued, CampaignStatusProcessing,
		CampaignStatusSent, CampaignStatusFailed, CampaignStatusPartial:
		return true
	}
	return false
}

// IsTerminal reports whether the campaign has reached a final state.
// A terminal campaign must reject re-entry into processing.
func (s CampaignStatus) IsTerminal() bool {
	switch s {
	case CampaignStatusSent, CampaignStatusFailed, CampaignStatusPartial:
		return true
	}
	return false
}

// Processable reports whether the campaign lock may be acquired
// from this state. Processing is included so the in-progress owner
// can re-enter between batches.
func (s CampaignStatus) Processable() bool {
	switch s {
	case CampaignStatusDraft, CampaignStatusQueued, CampaignStatusProcessing:
		return true
	}
	return false
}

func ParseCampaignStatusFromString(s string) (CampaignStatus, error) {
	st := CampaignStatus(strings.ToLower(strings.TrimSpace(s)))
	if !st.IsValid() {
		return "", fmt.Errorf("%w: invalid campaign status %q", ErrValidation, s)
	}
	return st, nil
}

// Campaign is one bulk-send job targeting a recipient set with a
// single template snapshot and the owner's SMTP source pool.
type Campaign struct {
	ID              string
	UserID          string
	Name            string
	Subject         string
	HTMLContent     string
	ParameterValues map[string]string
	Status          CampaignStatus
	RecipientCount  int
	SuccessCount    int
	FailCount       int
	LastError       *string
	StartedAt       *time.Time
	LastProcessedAt *time.Time
	CompletedAt     *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func (c *Campaign) Validate() error {
	if strings.TrimSpace(c.UserID) == "" {
		return fmt.Errorf("%w: user id is required", ErrValidation)
	}
	if strings.TrimSpace(c.Name) == "" {
		return fmt.Errorf("%w: campaign name is required", ErrValidation)
	}
	if strings.TrimSpace(c.Subject) == "" {
		return fmt.Errorf("%w: subject is required", ErrValidation)
	}
	if strings.TrimSpace(c.HTMLContent) == "" {
		return fmt.Errorf("%w: html content is required", ErrValidation)
	}
	if !c.Status.IsValid() {
		return fmt.Errorf("%w: invalid status %q", ErrValidation, c.Status)
	}
	if c.SuccessCount < 0 || c.FailCount < 0 || c.RecipientCount < 0 {
		return fmt.Errorf("%w: counters must be non-negative", ErrValidation)
	}
	if c.SuccessCount+c.FailCount > c.RecipientCount {
		return fmt.Errorf("%w: success+fail exceeds recipient count", ErrValidation)
	}
	return nil
}

// Processed returns how many recipients have reached a terminal status
// according to the incrementally maintained counters.
func (c *Campaign) Processed() int {
	return c.SuccessCount + c.FailCount
}

// Progress returns completion as a whole percentage.
func (c *Campaign) Progress() int {
	if c.RecipientCount <= 0 {
		return 0
	}
	return int(float64(c.Processed()) / float64(c.RecipientCount) * 100)
}

// FinalStatusFor derives the terminal campaign status from recomputed
// recipient counts: sent when nothing failed, failed when nothing was
// sent, partial otherwise.
func FinalStatusFor(sentCount, failedCount int) CampaignStatus {
	switch {
	case failedCount == 0:
		return CampaignStatusSent
	case sentCount == 0:
		return CampaignStatusFailed
	default:
		return CampaignStatusPartial
	}
}
