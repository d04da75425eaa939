package db

import (
	"fmt"

	"gorm.io/gorm"

	gormModels "fraternitybase/registry/internal/models/gorm"
)

// Migrate creates or updates the registry tables.
func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&gormModels.University{},
		&gormModels.Chapter{},
		&gormModels.ImportBatch{},
		&gormModels.Member{},
	)
	if err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}
