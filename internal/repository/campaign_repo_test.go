package repository

import (
	"testing"

	"github.com/ferdikurnia/mailblast/internal/domain"
)

func TestLockStatusSetsFollowDomainPredicates(t *testing.T) {
	t.Parallel()

	for _, s := range processableStatuses {
		if !s.Processable() {
			t.Errorf("%s is in the lock condition but not processable", s)
		}
	}
	for _, s := range terminalStatuses {
		if !s.IsTerminal() {
			t.Errorf("%s is in the terminal set but not terminal", s)
		}
	}

	// Every status is either lockable or terminal; a status in neither
	// set would strand a campaign outside both SQL conditions.
	for _, s := range allCampaignStatuses {
		if s.Processable() == s.IsTerminal() {
			t.Errorf("%s must be exactly one of processable or terminal", s)
		}
	}
	if got := len(processableStatuses) + len(terminalStatuses); got != len(allCampaignStatuses) {
		t.Fatalf("status sets cover %d of %d statuses", got, len(allCampaignStatuses))
	}
}

func TestLockIncludesProcessingForReentry(t *testing.T) {
	t.Parallel()

	found := false
	for _, s := range processableStatuses {
		if s == domain.CampaignStatusProcessing {
			found = true
		}
	}
	if !found {
		t.Fatal("a continuation hop must be able to re-enter a processing campaign")
	}
}
