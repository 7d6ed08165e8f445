package repository

import (
	"context"
	"errors"
	"time"

	"github.com/ferdikurnia/mailblast/internal/domain"
	"gorm.io/gorm"
)

var allCampaignStatuses = []domain.CampaignStatus{
	domain.CampaignStatusDraft,
	domain.CampaignStatusQueued,
	domain.CampaignStatusProcessing,
	domain.CampaignStatusSent,
	domain.CampaignStatusFailed,
	domain.CampaignStatusPartial,
}

// The SQL status conditions are derived from the domain predicates so
// the lock semantics live in exactly one place.
var (
	processableStatuses = statusesWhere(domain.CampaignStatus.Processable)
	terminalStatuses    = statusesWhere(domain.CampaignStatus.IsTerminal)
)

func statusesWhere(pred func(domain.CampaignStatus) bool) []domain.CampaignStatus {
	var out []domain.CampaignStatus
	for _, s := range allCampaignStatuses {
		if pred(s) {
			out = append(out, s)
		}
	}
	return out
}

type CampaignRepository interface {
	Create(ctx context.Context, c *domain.Campaign) error
	GetByID(ctx context.Context, id string) (*domain.Campaign, error)
	AcquireLock(ctx context.Context, id string, now time.Time, lease time.Duration) (bool, error)
	ReleaseLock(ctx context.Context, id string) error
	IncrementCounts(ctx context.Context, id string, success, fail int, now time.Time) error
	RecordError(ctx context.Context, id string, message string) error
	Finalize(ctx context.Context, id string, status domain.CampaignStatus, sentCount, failedCount int, completedAt time.Time) (bool, error)
	Delete(ctx context.Context, id string) error
}

type GormCampaignRepo struct {
	db *gorm.DB
}

func NewGormCampaignRepo(db *gorm.DB) *GormCampaignRepo {
	return &GormCampaignRepo{db: db}
}

func (r *GormCampaignRepo) Create(ctx context.Context, c *domain.Campaign) error {
	model := campaignModelFromDomain(c)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return err
	}
	if c != nil {
		*c = *campaignModelToDomain(model)
	}
	return nil
}

func (r *GormCampaignRepo) GetByID(ctx context.Context, id string) (*domain.Campaign, error) {
	var model CampaignModel
	err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return campaignModelToDomain(&model), nil
}

// AcquireLock performs the atomic conditional transition that
// serializes batch processing. The transition to processing succeeds
// from draft or queued, or from processing whose lease has lapsed; a
// held lease or a terminal status loses. A single conditional UPDATE,
// judged by rows affected, keeps two racing invocations from both
// winning. The lease is sized to the invocation ceiling so a crashed
// batch frees the campaign without manual intervention.
func (r *GormCampaignRepo) AcquireLock(ctx context.Context, id string, now time.Time, lease time.Duration) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&CampaignModel{}).
		Where("id = ? AND status IN ? AND (locked_until IS NULL OR locked_until < ?)", id, processableStatuses, now).
		Updates(map[string]any{
			"status":            domain.CampaignStatusProcessing,
			"started_at":        gorm.Expr("COALESCE(started_at, ?)", now),
			"last_processed_at": now,
			"locked_until":      now.Add(lease),
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// ReleaseLock clears the lease so the continuation hop can re-enter
// immediately instead of waiting out the crash-recovery window.
func (r *GormCampaignRepo) ReleaseLock(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).
		Model(&CampaignModel{}).
		Where("id = ?", id).
		Update("locked_until", nil).Error
}

// IncrementCounts applies relative counter increments so interleaved
// batches never overwrite each other's tallies.
func (r *GormCampaignRepo) IncrementCounts(ctx context.Context, id string, success, fail int, now time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&CampaignModel{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"success_count":     gorm.Expr("success_count + ?", success),
			"fail_count":        gorm.Expr("fail_count + ?", fail),
			"last_processed_at": now,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *GormCampaignRepo) RecordError(ctx context.Context, id string, message string) error {
	result := r.db.WithContext(ctx).
		Model(&CampaignModel{}).
		Where("id = ?", id).
		Update("last_error", message)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Finalize writes the terminal status, final counts, and completion
// timestamp in one conditional update. A campaign already terminal is
// left untouched and reported via the bool.
func (r *GormCampaignRepo) Finalize(ctx context.Context, id string, status domain.CampaignStatus, sentCount, failedCount int, completedAt time.Time) (bool, error) {
	if !status.IsTerminal() {
		return false, domain.ErrValidation
	}

	result := r.db.WithContext(ctx).
		Model(&CampaignModel{}).
		Where("id = ? AND status NOT IN ?", id, terminalStatuses).
		Updates(map[string]any{
			"status":        status,
			"success_count": sentCount,
			"fail_count":    failedCount,
			"completed_at":  completedAt,
			"locked_until":  nil,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// Delete removes a campaign unless it is mid-processing.
func (r *GormCampaignRepo) Delete(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).
		Where("id = ? AND status <> ?", id, domain.CampaignStatusProcessing).
		Delete(&CampaignModel{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrConflict
	}
	return nil
}
