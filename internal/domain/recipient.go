package domain

import (
	"fmt"
	"strings"
	"time"
)

// RecipientStatus represents the delivery state of one recipient.
// Transitions are monotonic: once sent or failed, a recipient never
// reverts to pending or flips to the other terminal value.
type RecipientStatus string

const (
	RecipientStatusPending RecipientStatus = "pending"
	RecipientStatusSent    RecipientStatus = "sent"
	RecipientStatusFailed  RecipientStatus = "failed"
)

func (s RecipientStatus) String() string { return string(s) }

func (s RecipientStatus) IsValid() bool {
	switch s {
	case RecipientStatusPending, RecipientStatusSent, RecipientStatusFailed:
		return true
	}
	return false
}

func (s RecipientStatus) IsTerminal() bool {
	return s == RecipientStatusSent || s == RecipientStatusFailed
}

// Recipient belongs to exactly one campaign. Metadata holds free-form
// extra substitution values from the import source.
type Recipient struct {
	ID           string
	CampaignID   string
	Email        string
	Name         *string
	Metadata     map[string]string
	Status       RecipientStatus
	ErrorMessage *string
	SentAt       *time.Time
	CreatedAt    time.Time
}

func (r *Recipient) Validate() error {
	if strings.TrimSpace(r.CampaignID) == "" {
		return fmt.Errorf("%w: campaign id is required", ErrValidation)
	}
	if strings.TrimSpace(r.Email) == "" {
		return fmt.Errorf("%w: recipient email is required", ErrValidation)
	}
	if !r.Status.IsValid() {
		return fmt.Errorf("%w: invalid recipient status %q", ErrValidation, r.Status)
	}
	return nil
}

// DisplayName falls back to the email address when no name was imported.
func (r *Recipient) DisplayName() string {
	if r.Name != nil && strings.TrimSpace(*r.Name) != "" {
		return *r.Name
	}
	return r.Email
}
