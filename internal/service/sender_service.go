package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ferdikurnia/mailblast/internal/domain"
	"github.com/ferdikurnia/mailblast/internal/mail"
	"github.com/ferdikurnia/mailblast/internal/observability"
	"github.com/ferdikurnia/mailblast/internal/repository"
	"github.com/ferdikurnia/mailblast/internal/template"
)

const defaultMaxRetries = 3

// Sender delivers one campaign email to one recipient and records the
// terminal outcome. The returned status is the recipient's terminal
// state; the error is reserved for infrastructure failures (a delivery
// failure is absorbed into RecipientStatusFailed, not surfaced).
type Sender interface {
	Deliver(ctx context.Context, campaign *domain.Campaign, recipient *domain.Recipient, cfg *domain.SmtpConfig) (domain.RecipientStatus, error)
}

// RetryingSender wraps a Mailer with bounded retries and exponential
// backoff, then writes the recipient transition and the audit row.
type RetryingSender struct {
	mailer        mail.Mailer
	recipientRepo repository.RecipientRepository
	emailLogRepo  repository.EmailLogRepository
	metrics       *observability.Metrics
	baseURL       string
	maxRetries    int
	logger        *zap.Logger

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

func NewRetryingSender(
	mailer mail.Mailer,
	recipientRepo repository.RecipientRepository,
	emailLogRepo repository.EmailLogRepository,
	metrics *observability.Metrics,
	baseURL string,
	maxRetries int,
	logger *zap.Logger,
) (*RetryingSender, error) {
	if mailer == nil {
		return nil, fmt.Errorf("mailer is required")
	}
	if recipientRepo == nil {
		return nil, fmt.Errorf("recipient repository is required")
	}
	if emailLogRepo == nil {
		return nil, fmt.Errorf("email log repository is required")
	}
	if maxRetries < 1 {
		maxRetries = defaultMaxRetries
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &RetryingSender{
		mailer:        mailer,
		recipientRepo: recipientRepo,
		emailLogRepo:  emailLogRepo,
		metrics:       metrics,
		baseURL:       baseURL,
		maxRetries:    maxRetries,
		logger:        logger,
		now:           time.Now,
		sleep:         sleepWithContext,
	}, nil
}

func (s *RetryingSender) Deliver(ctx context.Context, campaign *domain.Campaign, recipient *domain.Recipient, cfg *domain.SmtpConfig) (domain.RecipientStatus, error) {
	msg := s.buildMessage(campaign, recipient)

	var lastErr error
	for attempt := 1; attempt <= s.maxRetries; attempt++ {
		started := s.now()
		err := s.mailer.Send(ctx, *cfg, msg)
		s.metrics.ObserveEmailSendDuration(cfg.Host, s.now().Sub(started))

		if err == nil {
			return s.recordSent(ctx, campaign, recipient, cfg)
		}

		lastErr = err
		s.logger.Warn("send attempt failed",
			zap.String("campaignId", campaign.ID),
			zap.String("recipientId", recipient.ID),
			zap.String("smtpHost", cfg.Host),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)

		if ctx.Err() != nil {
			break
		}
		if attempt < s.maxRetries {
			backoff := time.Duration(1<<attempt) * time.Second
			if sleepErr := s.sleep(ctx, backoff); sleepErr != nil {
				break
			}
		}
	}

	return s.recordFailed(ctx, campaign, recipient, cfg, lastErr)
}

func (s *RetryingSender) buildMessage(campaign *domain.Campaign, recipient *domain.Recipient) mail.Message {
	params := template.MergeParams(
		campaign.ParameterValues,
		map[string]string{
			"email": recipient.Email,
			"name":  recipient.DisplayName(),
		},
		recipient.Metadata,
	)

	body := template.Render(campaign.HTMLContent, params)
	body = template.AddTracking(body, s.baseURL, campaign.ID, recipient.ID)

	return mail.Message{
		To:       recipient.Email,
		ToName:   recipient.DisplayName(),
		Subject:  template.Render(campaign.Subject, params),
		HTMLBody: body,
	}
}

func (s *RetryingSender) recordSent(ctx context.Context, campaign *domain.Campaign, recipient *domain.Recipient, cfg *domain.SmtpConfig) (domain.RecipientStatus, error) {
	sentAt := s.now()

	transitioned, err := s.recipientRepo.MarkSent(ctx, recipient.ID, sentAt)
	if err != nil {
		return domain.RecipientStatusSent, fmt.Errorf("failed to mark recipient %s sent: %w", recipient.ID, err)
	}
	if !transitioned {
		// Another invocation already settled this recipient. Do not
		// append a second audit row for the same terminal outcome.
		return domain.RecipientStatusSent, nil
	}

	s.metrics.IncEmailSent(cfg.Host)

	log := &domain.EmailLog{
		ID:           uuid.NewString(),
		CampaignID:   campaign.ID,
		RecipientID:  recipient.ID,
		SmtpConfigID: cfg.ID,
		Status:       domain.EmailLogStatusSent,
		SentAt:       sentAt,
	}
	if err := s.emailLogRepo.Create(ctx, log); err != nil {
		return domain.RecipientStatusSent, fmt.Errorf("failed to append email log: %w", err)
	}

	return domain.RecipientStatusSent, nil
}

func (s *RetryingSender) recordFailed(ctx context.Context, campaign *domain.Campaign, recipient *domain.Recipient, cfg *domain.SmtpConfig, cause error) (domain.RecipientStatus, error) {
	message := "send failed"
	if cause != nil {
		message = cause.Error()
	}

	transitioned, err := s.recipientRepo.MarkFailed(ctx, recipient.ID, message)
	if err != nil {
		return domain.RecipientStatusFailed, fmt.Errorf("failed to mark recipient %s failed: %w", recipient.ID, err)
	}
	if !transitioned {
		return domain.RecipientStatusFailed, nil
	}

	s.metrics.IncEmailFailed(cfg.Host, "delivery")

	log := &domain.EmailLog{
		ID:           uuid.NewString(),
		CampaignID:   campaign.ID,
		RecipientID:  recipient.ID,
		SmtpConfigID: cfg.ID,
		Status:       domain.EmailLogStatusFailed,
		ErrorMessage: &message,
		SentAt:       s.now(),
	}
	if err := s.emailLogRepo.Create(ctx, log); err != nil {
		return domain.RecipientStatusFailed, fmt.Errorf("failed to append email log: %w", err)
	}

	return domain.RecipientStatusFailed, nil
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
