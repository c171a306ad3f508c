package migration

import (
	"crimson-backend/entities"
	"fmt"

	"gorm.io/gorm"
)

func Migrate(db *gorm.DB) error {
	if err := db.Exec("CREATE EXTENSION IF NOT EXISTS \"uuid-ossp\";").Error; err != nil {
		return fmt.Errorf("error creating uuid-ossp extension: %w", err)
	}

	if err := db.AutoMigrate(&entities.Transaction{}); err != nil {
		return fmt.Errorf("error migrating transaction database: %w", err)
	}
	if err := db.AutoMigrate(&entities.Pin{}); err != nil {
		return fmt.Errorf("error migrating pin database: %w", err)
	}
	if err := db.AutoMigrate(&entities.ReportAnalysis{}); err != nil {
		return fmt.Errorf("error migrating report analysis database: %w", err)
	}

	return nil
}
