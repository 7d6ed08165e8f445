package repository

import (
	"context"

	"github.com/ferdikurnia/mailblast/internal/domain"
	"gorm.io/gorm"
)

// EmailLogRepository appends audit rows for terminal send outcomes.
// Rows are insert-only.
type EmailLogRepository interface {
	Create(ctx context.Context, l *domain.EmailLog) error
}

type GormEmailLogRepo struct {
	db *gorm.DB
}

func NewGormEmailLogRepo(db *gorm.DB) *GormEmailLogRepo {
	return &GormEmailLogRepo{db: db}
}

func (r *GormEmailLogRepo) Create(ctx context.Context, l *domain.EmailLog) error {
	model := emailLogModelFromDomain(l)
	return r.db.WithContext(ctx).Create(model).Error
}
