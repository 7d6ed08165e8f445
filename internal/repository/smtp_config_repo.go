package repository

import (
	"context"
	"time"

	"github.com/ferdikurnia/mailblast/internal/domain"
	"gorm.io/gorm"
)

type SmtpConfigRepository interface {
	NextAvailable(ctx context.Context, userID string, now time.Time) (*domain.SmtpConfig, error)
}

type GormSmtpConfigRepo struct {
	db *gorm.DB
}

func NewGormSmtpConfigRepo(db *gorm.DB) *GormSmtpConfigRepo {
	return &GormSmtpConfigRepo{db: db}
}

// NextAvailable rotates through the user's SMTP sources least recently
// used first, bumping last_used in the same statement. The pick and the
// bump must be one atomic step because rotation state is shared by
// stateless invocations; SKIP LOCKED keeps two concurrent batches from
// picking the same row.
func (r *GormSmtpConfigRepo) NextAvailable(ctx context.Context, userID string, now time.Time) (*domain.SmtpConfig, error) {
	var model SmtpConfigModel
	result := r.db.WithContext(ctx).Raw(`
		UPDATE smtp_configs
		SET last_used = ?, updated_at = ?
		WHERE id = (
			SELECT id FROM smtp_configs
			WHERE user_id = ?
			ORDER BY last_used ASC NULLS FIRST, created_at ASC
			LIMIT 1
			FOR UPDATE SKIP LOCKED
		)
		RETURNING *`,
		now, now, userID,
	).Scan(&model)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, domain.ErrNoSmtpConfig
	}

	return smtpConfigModelToDomain(&model), nil
}
