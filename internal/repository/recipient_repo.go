package repository

import (
	"context"
	"time"

	"github.com/ferdikurnia/mailblast/internal/domain"
	"gorm.io/gorm"
)

type RecipientRepository interface {
	CreateBatch(ctx context.Context, recipients []*domain.Recipient) error
	ListPending(ctx context.Context, campaignID string, limit int) ([]domain.Recipient, error)
	CountPending(ctx context.Context, campaignID string) (int64, error)
	CountByStatus(ctx context.Context, campaignID string, status domain.RecipientStatus) (int64, error)
	MarkSent(ctx context.Context, id string, sentAt time.Time) (bool, error)
	MarkFailed(ctx context.Context, id string, errorMessage string) (bool, error)
	ListRecentFailures(ctx context.Context, campaignID string, limit int) ([]domain.Recipient, error)
}

type GormRecipientRepo struct {
	db *gorm.DB
}

func NewGormRecipientRepo(db *gorm.DB) *GormRecipientRepo {
	return &GormRecipientRepo{db: db}
}

func (r *GormRecipientRepo) CreateBatch(ctx context.Context, recipients []*domain.Recipient) error {
	models := make([]RecipientModel, 0, len(recipients))
	modelIndexes := make([]int, 0, len(recipients))
	for i, recipient := range recipients {
		model := recipientModelFromDomain(recipient)
		if model != nil {
			models = append(models, *model)
			modelIndexes = append(modelIndexes, i)
		}
	}

	if len(models) == 0 {
		return nil
	}

	if err := r.db.WithContext(ctx).CreateInBatches(&models, 100).Error; err != nil {
		return err
	}

	for i := range models {
		idx := modelIndexes[i]
		if idx < len(recipients) && recipients[idx] != nil {
			*recipients[idx] = *recipientModelToDomain(&models[i])
		}
	}

	return nil
}

// ListPending returns the next slice of the campaign's pending queue.
// Creation order with the id tiebreaker keeps the ordering stable
// across invocations, which is the de facto queue discipline.
func (r *GormRecipientRepo) ListPending(ctx context.Context, campaignID string, limit int) ([]domain.Recipient, error) {
	var models []RecipientModel
	err := r.db.WithContext(ctx).
		Where("campaign_id = ? AND status = ?", campaignID, domain.RecipientStatusPending).
		Order("created_at ASC, id ASC").
		Limit(limit).
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	recipients := make([]domain.Recipient, 0, len(models))
	for i := range models {
		recipients = append(recipients, *recipientModelToDomain(&models[i]))
	}

	return recipients, nil
}

func (r *GormRecipientRepo) CountPending(ctx context.Context, campaignID string) (int64, error) {
	return r.CountByStatus(ctx, campaignID, domain.RecipientStatusPending)
}

func (r *GormRecipientRepo) CountByStatus(ctx context.Context, campaignID string, status domain.RecipientStatus) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&RecipientModel{}).
		Where("campaign_id = ? AND status = ?", campaignID, status).
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}

// MarkSent transitions a recipient to sent only from pending. The bool
// reports whether this call performed the transition; false means the
// recipient was already terminal and must not be touched again.
func (r *GormRecipientRepo) MarkSent(ctx context.Context, id string, sentAt time.Time) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&RecipientModel{}).
		Where("id = ? AND status = ?", id, domain.RecipientStatusPending).
		Updates(map[string]any{
			"status":  domain.RecipientStatusSent,
			"sent_at": sentAt,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// MarkFailed transitions a recipient to failed only from pending,
// recording the last error message.
func (r *GormRecipientRepo) MarkFailed(ctx context.Context, id string, errorMessage string) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&RecipientModel{}).
		Where("id = ? AND status = ?", id, domain.RecipientStatusPending).
		Updates(map[string]any{
			"status":        domain.RecipientStatusFailed,
			"error_message": errorMessage,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *GormRecipientRepo) ListRecentFailures(ctx context.Context, campaignID string, limit int) ([]domain.Recipient, error) {
	var models []RecipientModel
	err := r.db.WithContext(ctx).
		Where("campaign_id = ? AND status = ?", campaignID, domain.RecipientStatusFailed).
		Order("created_at DESC").
		Limit(limit).
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	recipients := make([]domain.Recipient, 0, len(models))
	for i := range models {
		recipients = append(recipients, *recipientModelToDomain(&models[i]))
	}

	return recipients, nil
}
