package migrations

import (
	"github.com/ferdikurnia/mailblast/internal/repository"
	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"
)

func createEmailLogsTable() *gormigrate.Migration {
	return &gormigrate.Migration{
		ID: "000004_create_email_logs",
		Migrate: func(tx *gorm.DB) error {
			if err := tx.AutoMigrate(&repository.EmailLogModel{}); err != nil {
				return err
			}
			return tx.Exec(`CREATE INDEX IF NOT EXISTS idx_email_logs_campaign_id ON email_logs (campaign_id)`).Error
		},
		Rollback: func(tx *gorm.DB) error {
			return tx.Migrator().DropTable(&repository.EmailLogModel{})
		},
	}
}
