package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ferdikurnia/mailblast/internal/domain"
)

func newTestFinalizer(t *testing.T, campaigns *fakeCampaignRepo, recipients *fakeRecipientRepo) *Finalizer {
	t.Helper()

	f, err := NewFinalizer(campaigns, recipients, nil, nil)
	if err != nil {
		t.Fatalf("NewFinalizer: %v", err)
	}
	f.now = func() time.Time { return time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC) }
	return f
}

func finalizableCampaign(recipientCount int) *domain.Campaign {
	c := testCampaign()
	c.RecipientCount = recipientCount
	return c
}

func countsByStatus(sent, failed int64) func(ctx context.Context, campaignID string, status domain.RecipientStatus) (int64, error) {
	return func(ctx context.Context, campaignID string, status domain.RecipientStatus) (int64, error) {
		switch status {
		case domain.RecipientStatusSent:
			return sent, nil
		case domain.RecipientStatusFailed:
			return failed, nil
		}
		return 0, nil
	}
}

func TestFinalizeDerivesStatusFromRecounts(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		sent   int64
		failed int64
		want   domain.CampaignStatus
	}{
		{"all sent", 5, 0, domain.CampaignStatusSent},
		{"all failed", 0, 5, domain.CampaignStatusFailed},
		{"mixed", 3, 2, domain.CampaignStatusPartial},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			campaigns := &fakeCampaignRepo{}
			recipients := &fakeRecipientRepo{countByStatusFunc: countsByStatus(tc.sent, tc.failed)}

			var wrote domain.CampaignStatus
			campaigns.finalizeFunc = func(ctx context.Context, id string, status domain.CampaignStatus, sent, failed int, completedAt time.Time) (bool, error) {
				wrote = status
				return true, nil
			}

			f := newTestFinalizer(t, campaigns, recipients)
			res, err := f.Finalize(context.Background(), finalizableCampaign(int(tc.sent+tc.failed)))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if res.Status != tc.want || wrote != tc.want {
				t.Fatalf("status = %s (wrote %s), want %s", res.Status, wrote, tc.want)
			}
			if res.SentCount != int(tc.sent) || res.FailedCount != int(tc.failed) {
				t.Fatalf("counts = %d/%d", res.SentCount, res.FailedCount)
			}
		})
	}
}

func TestFinalizeIsIdempotent(t *testing.T) {
	t.Parallel()

	campaigns := &fakeCampaignRepo{}
	recipients := &fakeRecipientRepo{countByStatusFunc: countsByStatus(4, 1)}

	writes := 0
	campaigns.finalizeFunc = func(ctx context.Context, id string, status domain.CampaignStatus, sent, failed int, completedAt time.Time) (bool, error) {
		writes++
		// Only the first conditional update lands.
		return writes == 1, nil
	}

	f := newTestFinalizer(t, campaigns, recipients)
	campaign := finalizableCampaign(5)

	first, err := f.Finalize(context.Background(), campaign)
	if err != nil {
		t.Fatalf("first finalize: %v", err)
	}
	second, err := f.Finalize(context.Background(), campaign)
	if err != nil {
		t.Fatalf("second finalize: %v", err)
	}

	if first.Status != second.Status || first.SentCount != second.SentCount || first.FailedCount != second.FailedCount {
		t.Fatalf("finalize not idempotent: %+v vs %+v", first, second)
	}
	if first.Status != domain.CampaignStatusPartial {
		t.Fatalf("status = %s, want partial", first.Status)
	}
}

func TestFinalizeRejectsIncompleteRecount(t *testing.T) {
	t.Parallel()

	campaigns := &fakeCampaignRepo{}
	recipients := &fakeRecipientRepo{countByStatusFunc: countsByStatus(2, 0)}

	campaigns.finalizeFunc = func(ctx context.Context, id string, status domain.CampaignStatus, sent, failed int, completedAt time.Time) (bool, error) {
		t.Fatal("must not finalize over missing recipient rows")
		return false, nil
	}

	f := newTestFinalizer(t, campaigns, recipients)
	_, err := f.Finalize(context.Background(), finalizableCampaign(3))
	if !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
	if campaigns.recordedErr == "" {
		t.Fatal("anomaly must be recorded on the campaign")
	}
}
