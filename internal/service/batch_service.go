package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/ferdikurnia/mailblast/internal/domain"
	"github.com/ferdikurnia/mailblast/internal/observability"
	"github.com/ferdikurnia/mailblast/internal/ratelimit"
	"github.com/ferdikurnia/mailblast/internal/repository"
	"github.com/ferdikurnia/mailblast/internal/trigger"
)

const (
	defaultBatchSize    = 20
	defaultMaxDuration  = 60 * time.Second
	defaultSafetyMargin = 8 * time.Second

	batchOutcomeContinued = "continued"
	batchOutcomeFinalized = "finalized"
	batchOutcomeAborted   = "aborted"
)

// BatchResult reports one batch invocation's outcome to the caller.
type BatchResult struct {
	Completed    bool
	Status       domain.CampaignStatus
	NextBatch    int
	Processed    int
	SuccessCount int
	FailedCount  int
	Remaining    int64
}

// BatchService is the per-invocation orchestrator: it acquires the
// campaign lock, drives the sender over one slice of pending recipients
// inside the wall-clock budget, applies relative counter increments,
// and either schedules the next hop or finalizes the campaign.
type BatchService struct {
	campaignRepo  repository.CampaignRepository
	recipientRepo repository.RecipientRepository
	smtpRepo      repository.SmtpConfigRepository
	sender        Sender
	finalizer     *Finalizer
	limiter       ratelimit.RateLimiter
	nextBatch     trigger.Trigger
	metrics       *observability.Metrics
	logger        *zap.Logger

	batchSize    int
	maxDuration  time.Duration
	safetyMargin time.Duration

	now func() time.Time
}

func NewBatchService(
	campaignRepo repository.CampaignRepository,
	recipientRepo repository.RecipientRepository,
	smtpRepo repository.SmtpConfigRepository,
	sender Sender,
	finalizer *Finalizer,
	limiter ratelimit.RateLimiter,
	nextBatch trigger.Trigger,
	metrics *observability.Metrics,
	logger *zap.Logger,
	batchSize int,
	maxDuration time.Duration,
	safetyMargin time.Duration,
) (*BatchService, error) {
	if campaignRepo == nil {
		return nil, fmt.Errorf("campaign repository is required")
	}
	if recipientRepo == nil {
		return nil, fmt.Errorf("recipient repository is required")
	}
	if smtpRepo == nil {
		return nil, fmt.Errorf("smtp config repository is required")
	}
	if sender == nil {
		return nil, fmt.Errorf("sender is required")
	}
	if finalizer == nil {
		return nil, fmt.Errorf("finalizer is required")
	}
	if nextBatch == nil {
		return nil, fmt.Errorf("batch trigger is required")
	}
	if batchSize < 1 {
		batchSize = defaultBatchSize
	}
	if maxDuration <= 0 {
		maxDuration = defaultMaxDuration
	}
	if safetyMargin <= 0 || safetyMargin >= maxDuration {
		safetyMargin = defaultSafetyMargin
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &BatchService{
		campaignRepo:  campaignRepo,
		recipientRepo: recipientRepo,
		smtpRepo:      smtpRepo,
		sender:        sender,
		finalizer:     finalizer,
		limiter:       limiter,
		nextBatch:     nextBatch,
		metrics:       metrics,
		logger:        logger,
		batchSize:     batchSize,
		maxDuration:   maxDuration,
		safetyMargin:  safetyMargin,
		now:           time.Now,
	}, nil
}

// ProcessBatch runs one batch of the campaign identified by campaignID.
// Duplicate invocations are harmless: a held lock surfaces as
// domain.ErrLockNotAcquired and a terminal campaign returns its settled
// state without touching anything.
func (s *BatchService) ProcessBatch(ctx context.Context, campaignID string, batchIndex int) (*BatchResult, error) {
	if campaignID == "" {
		return nil, fmt.Errorf("%w: campaign id is required", domain.ErrValidation)
	}
	if batchIndex < 0 {
		return nil, fmt.Errorf("%w: batch index must be non-negative", domain.ErrValidation)
	}

	start := s.now()
	ctx = observability.WithCampaignID(ctx, campaignID)
	log := observability.WithContextLogger(s.logger, ctx).With(zap.Int("batchIndex", batchIndex))

	campaign, err := s.campaignRepo.GetByID(ctx, campaignID)
	if err != nil {
		return nil, err
	}
	if campaign.Status.IsTerminal() {
		return s.settledResult(campaign), nil
	}

	acquired, err := s.campaignRepo.AcquireLock(ctx, campaignID, start, s.maxDuration)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire campaign lock: %w", err)
	}
	if !acquired {
		// Either another invocation holds the lease or the campaign
		// just went terminal; a fresh read tells them apart.
		current, readErr := s.campaignRepo.GetByID(ctx, campaignID)
		if readErr == nil && current.Status.IsTerminal() {
			return s.settledResult(current), nil
		}
		return nil, domain.ErrLockNotAcquired
	}

	result, err := s.runLocked(ctx, campaign, batchIndex, start, log)
	if err != nil {
		s.releaseLock(ctx, campaignID, log)
		return nil, err
	}
	return result, nil
}

func (s *BatchService) runLocked(ctx context.Context, campaign *domain.Campaign, batchIndex int, start time.Time, log *zap.Logger) (*BatchResult, error) {
	recipients, err := s.recipientRepo.ListPending(ctx, campaign.ID, s.batchSize)
	if err != nil {
		return nil, fmt.Errorf("failed to load pending recipients: %w", err)
	}

	if len(recipients) == 0 {
		return s.finalize(ctx, campaign, start, log)
	}

	deadline := start.Add(s.maxDuration - s.safetyMargin)
	successCount, failedCount, processed, fatal := s.sendAll(ctx, campaign, recipients, deadline, log)

	if successCount > 0 || failedCount > 0 {
		if err := s.campaignRepo.IncrementCounts(ctx, campaign.ID, successCount, failedCount, s.now()); err != nil {
			return nil, fmt.Errorf("failed to update campaign counters: %w", err)
		}
	}

	if fatal != nil {
		s.metrics.IncBatchProcessed(batchOutcomeAborted)
		if recErr := s.campaignRepo.RecordError(ctx, campaign.ID, fatal.Error()); recErr != nil {
			log.Error("failed to record batch error", zap.Error(recErr))
		}
		return nil, fatal
	}

	remaining, err := s.recipientRepo.CountPending(ctx, campaign.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to count remaining recipients: %w", err)
	}

	if remaining == 0 {
		result, err := s.finalize(ctx, campaign, start, log)
		if err != nil {
			return nil, err
		}
		result.Processed = processed
		result.SuccessCount = successCount
		result.FailedCount = failedCount
		return result, nil
	}

	s.releaseLock(ctx, campaign.ID, log)

	// Fire and forget: the current invocation never waits on the next
	// hop, and a lost trigger only stalls the campaign, it cannot
	// corrupt it.
	next := batchIndex + 1
	go func() {
		triggerCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := s.nextBatch.NextBatch(triggerCtx, campaign.ID, next); err != nil {
			log.Error("failed to trigger next batch", zap.Int("nextBatch", next), zap.Error(err))
		}
	}()

	s.metrics.IncBatchProcessed(batchOutcomeContinued)
	s.metrics.ObserveBatchDuration(s.now().Sub(start))
	log.Info("batch processed",
		zap.Int("processed", processed),
		zap.Int("success", successCount),
		zap.Int("failed", failedCount),
		zap.Int64("remaining", remaining),
		zap.Int("nextBatch", next),
	)

	return &BatchResult{
		Status:       domain.CampaignStatusProcessing,
		NextBatch:    next,
		Processed:    processed,
		SuccessCount: successCount,
		FailedCount:  failedCount,
		Remaining:    remaining,
	}, nil
}

// sendAll drives the sender over the slice. One recipient's failure
// never stops its siblings; only a missing SMTP source is fatal because
// it would fail every remaining recipient identically.
func (s *BatchService) sendAll(ctx context.Context, campaign *domain.Campaign, recipients []domain.Recipient, deadline time.Time, log *zap.Logger) (successCount, failedCount, processed int, fatal error) {
	for i := range recipients {
		if !s.now().Before(deadline) {
			log.Info("batch deadline reached, leaving remainder pending",
				zap.Int("processed", processed),
				zap.Int("left", len(recipients)-i),
			)
			break
		}

		recipient := &recipients[i]

		cfg, err := s.smtpRepo.NextAvailable(ctx, campaign.UserID, s.now())
		if err != nil {
			if errors.Is(err, domain.ErrNoSmtpConfig) {
				fatal = fmt.Errorf("%w: user %s has no smtp source configured", domain.ErrNoSmtpConfig, campaign.UserID)
				return successCount, failedCount, processed, fatal
			}
			log.Error("smtp rotation failed, skipping recipient",
				zap.String("recipientId", recipient.ID),
				zap.Error(err),
			)
			continue
		}

		if s.limiter != nil {
			if err := s.limiter.Wait(ctx, cfg.Host); err != nil {
				log.Warn("rate limiter interrupted, skipping recipient",
					zap.String("recipientId", recipient.ID),
					zap.Error(err),
				)
				continue
			}
		}

		status, err := s.sender.Deliver(ctx, campaign, recipient, cfg)
		if err != nil {
			// The terminal write did not land, so the recipient may
			// still be pending. Counting it here would double it on
			// the next pass and overrun the recipient total.
			log.Error("recipient delivery bookkeeping failed, leaving recipient for next pass",
				zap.String("recipientId", recipient.ID),
				zap.Error(err),
			)
			continue
		}

		processed++
		switch status {
		case domain.RecipientStatusSent:
			successCount++
		case domain.RecipientStatusFailed:
			failedCount++
		}
	}

	return successCount, failedCount, processed, nil
}

func (s *BatchService) finalize(ctx context.Context, campaign *domain.Campaign, start time.Time, log *zap.Logger) (*BatchResult, error) {
	res, err := s.finalizer.Finalize(ctx, campaign)
	if err != nil {
		return nil, err
	}

	s.metrics.IncBatchProcessed(batchOutcomeFinalized)
	s.metrics.ObserveBatchDuration(s.now().Sub(start))
	log.Info("campaign completed", zap.String("status", res.Status.String()))

	return &BatchResult{
		Completed:    true,
		Status:       res.Status,
		SuccessCount: res.SentCount,
		FailedCount:  res.FailedCount,
	}, nil
}

func (s *BatchService) settledResult(campaign *domain.Campaign) *BatchResult {
	return &BatchResult{
		Completed:    true,
		Status:       campaign.Status,
		SuccessCount: campaign.SuccessCount,
		FailedCount:  campaign.FailCount,
	}
}

func (s *BatchService) releaseLock(ctx context.Context, campaignID string, log *zap.Logger) {
	if err := s.campaignRepo.ReleaseLock(ctx, campaignID); err != nil {
		log.Error("failed to release campaign lock", zap.Error(err))
	}
}
