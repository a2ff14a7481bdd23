package db

import (
	"fmt"

	"gorm.io/gorm"

	types "github.com/yungbote/mediaforge-backend/internal/domain"
)

// singleActiveProfileIndex backs the one-active-profile rule; a concurrent second activation
// fails with a unique violation instead of leaving two active rows.
const singleActiveProfileIndex = `CREATE UNIQUE INDEX IF NOT EXISTS idx_caption_profile_single_active ON caption_profile (is_active) WHERE is_active`

func AutoMigrateAll(db *gorm.DB) error {
	if err := db.AutoMigrate(types.Models()...); err != nil {
		return fmt.Errorf("automigrate: %w", err)
	}
	if err := db.Exec(singleActiveProfileIndex).Error; err != nil {
		return fmt.Errorf("create %s: %w", "idx_caption_profile_single_active", err)
	}
	return nil
}
