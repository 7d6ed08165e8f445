package domain

import "time"

// EmailLogStatus is the terminal outcome recorded for one send.
type EmailLogStatus string

const (
	EmailLogStatusSent   EmailLogStatus = "sent"
	EmailLogStatusFailed EmailLogStatus = "failed"
)

func (s EmailLogStatus) String() string { return string(s) }

// EmailLog is the append-only audit record of a send outcome.
// Rows are only inserted, never updated; intermediate retry attempts
// produce no rows, only the terminal outcome does.
type EmailLog struct {
	ID           string
	CampaignID   string
	RecipientID  string
	SmtpConfigID string
	Status       EmailLogStatus
	ErrorMessage *string
	SentAt       time.Time
}
