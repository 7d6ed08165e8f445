package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ferdikurnia/mailblast/internal/domain"
	"github.com/ferdikurnia/mailblast/internal/observability"
	"github.com/ferdikurnia/mailblast/internal/repository"
)

// FinalizeResult reports the terminal state a campaign settled into.
type FinalizeResult struct {
	Status      domain.CampaignStatus
	SentCount   int
	FailedCount int
}

// Finalizer settles a campaign into its terminal status. Counts are
// recomputed from recipient rows, never taken from the incrementally
// maintained campaign counters, so a crash between a recipient write
// and a counter write cannot skew the final record.
type Finalizer struct {
	campaignRepo  repository.CampaignRepository
	recipientRepo repository.RecipientRepository
	metrics       *observability.Metrics
	logger        *zap.Logger

	now func() time.Time
}

func NewFinalizer(
	campaignRepo repository.CampaignRepository,
	recipientRepo repository.RecipientRepository,
	metrics *observability.Metrics,
	logger *zap.Logger,
) (*Finalizer, error) {
	if campaignRepo == nil {
		return nil, fmt.Errorf("campaign repository is required")
	}
	if recipientRepo == nil {
		return nil, fmt.Errorf("recipient repository is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Finalizer{
		campaignRepo:  campaignRepo,
		recipientRepo: recipientRepo,
		metrics:       metrics,
		logger:        logger,
		now:           time.Now,
	}, nil
}

// Finalize recounts terminal recipients and writes the derived status.
// When the recount does not cover every recipient the campaign is left
// as is and the mismatch is recorded instead of guessing a terminal
// state over missing rows.
func (f *Finalizer) Finalize(ctx context.Context, campaign *domain.Campaign) (*FinalizeResult, error) {
	if campaign == nil {
		return nil, fmt.Errorf("%w: campaign is required", domain.ErrValidation)
	}

	sentCount, failedCount, err := f.recount(ctx, campaign.ID)
	if err != nil {
		return nil, err
	}

	if int(sentCount+failedCount) != campaign.RecipientCount {
		message := fmt.Sprintf("finalize anomaly: %d terminal recipients of %d expected", sentCount+failedCount, campaign.RecipientCount)
		if recErr := f.campaignRepo.RecordError(ctx, campaign.ID, message); recErr != nil {
			f.logger.Error("failed to record finalize anomaly", zap.String("campaignId", campaign.ID), zap.Error(recErr))
		}
		return nil, fmt.Errorf("%w: %s", domain.ErrConflict, message)
	}

	status := domain.FinalStatusFor(int(sentCount), int(failedCount))

	updated, err := f.campaignRepo.Finalize(ctx, campaign.ID, status, int(sentCount), int(failedCount), f.now())
	if err != nil {
		return nil, fmt.Errorf("failed to finalize campaign %s: %w", campaign.ID, err)
	}
	if updated {
		f.metrics.IncCampaignFinalized(status.String())
		f.logger.Info("campaign finalized",
			zap.String("campaignId", campaign.ID),
			zap.String("status", status.String()),
			zap.Int64("sent", sentCount),
			zap.Int64("failed", failedCount),
		)
	}

	// A losing writer still reports the recomputed outcome; both
	// writers derived it from the same recipient rows.
	return &FinalizeResult{
		Status:      status,
		SentCount:   int(sentCount),
		FailedCount: int(failedCount),
	}, nil
}

func (f *Finalizer) recount(ctx context.Context, campaignID string) (sent int64, failed int64, err error) {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		n, err := f.recipientRepo.CountByStatus(gctx, campaignID, domain.RecipientStatusSent)
		if err != nil {
			return fmt.Errorf("failed to count sent recipients: %w", err)
		}
		sent = n
		return nil
	})
	g.Go(func() error {
		n, err := f.recipientRepo.CountByStatus(gctx, campaignID, domain.RecipientStatusFailed)
		if err != nil {
			return fmt.Errorf("failed to count failed recipients: %w", err)
		}
		failed = n
		return nil
	})
	if err := g.Wait(); err != nil {
		return 0, 0, err
	}
	return sent, failed, nil
}
