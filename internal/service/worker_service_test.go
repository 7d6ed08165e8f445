package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ferdikurnia/mailblast/internal/domain"
	"github.com/ferdikurnia/mailblast/internal/queue"
)

func newWorkerFixture(t *testing.T) (*batchFixture, *WorkerService) {
	t.Helper()

	f := newBatchFixture(t)
	w, err := NewWorkerService(&fakeConsumer{}, f.service, 2, nil)
	if err != nil {
		t.Fatalf("NewWorkerService: %v", err)
	}
	return f, w
}

func TestWorkerHandleAcksCompletedHop(t *testing.T) {
	t.Parallel()

	f, w := newWorkerFixture(t)
	campaign := testCampaign()
	campaign.Status = domain.CampaignStatusSent
	f.campaigns.getByIDFunc = func(ctx context.Context, id string) (*domain.Campaign, error) {
		return campaign, nil
	}

	if err := w.handle(context.Background(), queue.BatchMessage{CampaignID: "camp-1", BatchIndex: 2}); err != nil {
		t.Fatalf("terminal campaign hop must ack, got %v", err)
	}
}

func TestWorkerHandleAcksLockContention(t *testing.T) {
	t.Parallel()

	f, w := newWorkerFixture(t)
	f.campaigns.getByIDFunc = func(ctx context.Context, id string) (*domain.Campaign, error) {
		return testCampaign(), nil
	}
	f.campaigns.acquireLockFunc = func(ctx context.Context, id string, now time.Time, lease time.Duration) (bool, error) {
		return false, nil
	}

	if err := w.handle(context.Background(), queue.BatchMessage{CampaignID: "camp-1", BatchIndex: 1}); err != nil {
		t.Fatalf("contended hop must ack, got %v", err)
	}
}

func TestWorkerHandleAcksMissingCampaign(t *testing.T) {
	t.Parallel()

	_, w := newWorkerFixture(t)
	if err := w.handle(context.Background(), queue.BatchMessage{CampaignID: "missing", BatchIndex: 0}); err != nil {
		t.Fatalf("missing campaign hop must ack, got %v", err)
	}
}

func TestWorkerHandleRequeuesInfrastructureFailure(t *testing.T) {
	t.Parallel()

	f, w := newWorkerFixture(t)
	f.campaigns.getByIDFunc = func(ctx context.Context, id string) (*domain.Campaign, error) {
		return testCampaign(), nil
	}
	f.recipients.listPendingFunc = func(ctx context.Context, campaignID string, limit int) ([]domain.Recipient, error) {
		return nil, errors.New("connection refused")
	}

	if err := w.handle(context.Background(), queue.BatchMessage{CampaignID: "camp-1", BatchIndex: 0}); err == nil {
		t.Fatal("infrastructure failure must requeue the hop")
	}
}

func TestWorkerHandleAcksNoSmtpSource(t *testing.T) {
	t.Parallel()

	f, w := newWorkerFixture(t)
	f.campaigns.getByIDFunc = func(ctx context.Context, id string) (*domain.Campaign, error) {
		return testCampaign(), nil
	}
	f.recipients.listPendingFunc = func(ctx context.Context, campaignID string, limit int) ([]domain.Recipient, error) {
		return pendingRecipients("camp-1", "a@example.com"), nil
	}
	f.smtp.nextAvailableFunc = func(ctx context.Context, userID string, now time.Time) (*domain.SmtpConfig, error) {
		return nil, domain.ErrNoSmtpConfig
	}

	if err := w.handle(context.Background(), queue.BatchMessage{CampaignID: "camp-1", BatchIndex: 0}); err != nil {
		t.Fatalf("missing smtp source must not requeue, got %v", err)
	}
}

func TestWorkerStartStopsOnContextCancel(t *testing.T) {
	t.Parallel()

	_, w := newWorkerFixture(t)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Start(ctx) }()

	cancel()
	select {
	case err := <-done:
		if err != nil && !errors.Is(err, context.Canceled) {
			t.Fatalf("unexpected error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not stop on cancel")
	}
}
