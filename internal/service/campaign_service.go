package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ferdikurnia/mailblast/internal/domain"
	"github.com/ferdikurnia/mailblast/internal/repository"
	"github.com/ferdikurnia/mailblast/internal/trigger"
)

// CreateCampaignInput is the creation payload after transport decoding.
type CreateCampaignInput struct {
	UserID          string
	Name            string
	Subject         string
	HTMLContent     string
	ParameterValues map[string]string
	Recipients      []CreateRecipientInput
}

type CreateRecipientInput struct {
	Email    string
	Name     string
	Metadata map[string]string
}

// CampaignStatusView is the read model returned by the status endpoint.
type CampaignStatusView struct {
	Campaign       *domain.Campaign
	Progress       int
	PendingCount   int64
	RecentFailures []domain.Recipient
}

// CampaignService owns campaign lifecycle outside of batch processing:
// creation with the recipient snapshot, progress reads, and deletion.
type CampaignService struct {
	campaignRepo  repository.CampaignRepository
	recipientRepo repository.RecipientRepository
	firstBatch    trigger.Trigger
	logger        *zap.Logger

	now func() time.Time
}

func NewCampaignService(
	campaignRepo repository.CampaignRepository,
	recipientRepo repository.RecipientRepository,
	firstBatch trigger.Trigger,
	logger *zap.Logger,
) (*CampaignService, error) {
	if campaignRepo == nil {
		return nil, fmt.Errorf("campaign repository is required")
	}
	if recipientRepo == nil {
		return nil, fmt.Errorf("recipient repository is required")
	}
	if firstBatch == nil {
		return nil, fmt.Errorf("batch trigger is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &CampaignService{
		campaignRepo:  campaignRepo,
		recipientRepo: recipientRepo,
		firstBatch:    firstBatch,
		logger:        logger,
		now:           time.Now,
	}, nil
}

// Create stores the campaign with its recipient snapshot and kicks off
// batch zero. The campaign starts queued; the first batch invocation
// moves it to processing under the lock.
func (s *CampaignService) Create(ctx context.Context, input CreateCampaignInput) (*domain.Campaign, error) {
	if len(input.Recipients) == 0 {
		return nil, fmt.Errorf("%w: at least one recipient is required", domain.ErrValidation)
	}

	now := s.now()
	campaign := &domain.Campaign{
		ID:              uuid.NewString(),
		UserID:          input.UserID,
		Name:            input.Name,
		Subject:         input.Subject,
		HTMLContent:     input.HTMLContent,
		ParameterValues: input.ParameterValues,
		Status:          domain.CampaignStatusQueued,
		RecipientCount:  len(input.Recipients),
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := campaign.Validate(); err != nil {
		return nil, err
	}

	recipients := make([]*domain.Recipient, 0, len(input.Recipients))
	seen := make(map[string]struct{}, len(input.Recipients))
	for _, in := range input.Recipients {
		email := strings.ToLower(strings.TrimSpace(in.Email))
		if _, dup := seen[email]; dup {
			return nil, fmt.Errorf("%w: duplicate recipient %q", domain.ErrValidation, email)
		}
		seen[email] = struct{}{}

		r := &domain.Recipient{
			ID:         uuid.NewString(),
			CampaignID: campaign.ID,
			Email:      email,
			Metadata:   in.Metadata,
			Status:     domain.RecipientStatusPending,
			CreatedAt:  now,
		}
		if name := strings.TrimSpace(in.Name); name != "" {
			r.Name = &name
		}
		if err := r.Validate(); err != nil {
			return nil, err
		}
		recipients = append(recipients, r)
	}

	if err := s.campaignRepo.Create(ctx, campaign); err != nil {
		return nil, fmt.Errorf("failed to create campaign: %w", err)
	}
	if err := s.recipientRepo.CreateBatch(ctx, recipients); err != nil {
		return nil, fmt.Errorf("failed to create recipients: %w", err)
	}

	go func() {
		triggerCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := s.firstBatch.NextBatch(triggerCtx, campaign.ID, 0); err != nil {
			s.logger.Error("failed to trigger initial batch",
				zap.String("campaignId", campaign.ID),
				zap.Error(err),
			)
		}
	}()

	s.logger.Info("campaign created",
		zap.String("campaignId", campaign.ID),
		zap.String("userId", campaign.UserID),
		zap.Int("recipients", campaign.RecipientCount),
	)

	return campaign, nil
}

// Status reads the campaign with live progress and the most recent
// per-recipient failures for operator diagnostics.
func (s *CampaignService) Status(ctx context.Context, id string) (*CampaignStatusView, error) {
	campaign, err := s.campaignRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	pending, err := s.recipientRepo.CountPending(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to count pending recipients: %w", err)
	}

	failures, err := s.recipientRepo.ListRecentFailures(ctx, id, 10)
	if err != nil {
		return nil, fmt.Errorf("failed to list recent failures: %w", err)
	}

	return &CampaignStatusView{
		Campaign:       campaign,
		Progress:       campaign.Progress(),
		PendingCount:   pending,
		RecentFailures: failures,
	}, nil
}

// Delete removes a campaign that is not mid-processing. Deleting a
// processing campaign is refused so an in-flight batch never writes
// into a void.
func (s *CampaignService) Delete(ctx context.Context, id string) error {
	if _, err := s.campaignRepo.GetByID(ctx, id); err != nil {
		return err
	}
	if err := s.campaignRepo.Delete(ctx, id); err != nil {
		return err
	}

	s.logger.Info("campaign deleted", zap.String("campaignId", id))
	return nil
}
