package migrations

import (
	"github.com/ferdikurnia/mailblast/internal/repository"
	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"
)

func createRecipientsTable() *gormigrate.Migration {
	return &gormigrate.Migration{
		ID: "000002_create_recipients",
		Migrate: func(tx *gorm.DB) error {
			if err := tx.AutoMigrate(&repository.RecipientModel{}); err != nil {
				return err
			}
			indexes := []string{
				// Serves the pending-queue scan: campaign_id + creation order, pending rows only.
				`CREATE INDEX IF NOT EXISTS idx_recipients_pending_queue ON recipients (campaign_id, created_at, id) WHERE status = 'pending'`,
				`CREATE INDEX IF NOT EXISTS idx_recipients_campaign_status ON recipients (campaign_id, status)`,
			}
			for _, sql := range indexes {
				if err := tx.Exec(sql).Error; err != nil {
					return err
				}
			}
			return nil
		},
		Rollback: func(tx *gorm.DB) error {
			return tx.Migrator().DropTable(&repository.RecipientModel{})
		},
	}
}
