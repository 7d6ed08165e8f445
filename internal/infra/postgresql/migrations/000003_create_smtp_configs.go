package migrations

import (
	"github.com/ferdikurnia/mailblast/internal/repository"
	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"
)

func createSmtpConfigsTable() *gormigrate.Migration {
	return &gormigrate.Migration{
		ID: "000003_create_smtp_configs",
		Migrate: func(tx *gorm.DB) error {
			if err := tx.AutoMigrate(&repository.SmtpConfigModel{}); err != nil {
				return err
			}
			// Serves the LRU rotation pick.
			return tx.Exec(`CREATE INDEX IF NOT EXISTS idx_smtp_configs_rotation ON smtp_configs (user_id, last_used ASC NULLS FIRST)`).Error
		},
		Rollback: func(tx *gorm.DB) error {
			return tx.Migrator().DropTable(&repository.SmtpConfigModel{})
		},
	}
}
