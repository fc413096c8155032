package db

import (
	"fmt"

	"github.com/fundbridge/fundbridge/internal/models"
	"gorm.io/gorm"
)

// Migrate runs database migrations for the current dialect.
func Migrate(conn *gorm.DB) error {
	if conn == nil {
		return fmt.Errorf("db: nil connection")
	}
	switch DialectName(conn) {
	case DialectSQLite, DialectPostgres, "":
		return migrate(conn)
	default:
		return fmt.Errorf("db: unsupported dialect: %s", DialectName(conn))
	}
}

// migrate applies the schema and secondary lookup indexes. The verification
// path reads contributions by gateway order and payment ids, so both carry
// indexes beyond the defaults gorm derives from the models.
func migrate(conn *gorm.DB) error {
	if errAutoMigrate := conn.AutoMigrate(
		&models.User{},
		&models.Contribution{},
	); errAutoMigrate != nil {
		return fmt.Errorf("db: migrate: %w", errAutoMigrate)
	}

	if errIndex := conn.Exec(`
		CREATE INDEX IF NOT EXISTS idx_users_email_active
		ON users (email, active)
	`).Error; errIndex != nil {
		return fmt.Errorf("db: create users email index: %w", errIndex)
	}
	if errIndex := conn.Exec(`
		CREATE INDEX IF NOT EXISTS idx_contributions_user_created
		ON contributions (user_id, created_at DESC)
	`).Error; errIndex != nil {
		return fmt.Errorf("db: create contributions user index: %w", errIndex)
	}
	if errIndex := conn.Exec(`
		CREATE INDEX IF NOT EXISTS idx_contributions_status_created
		ON contributions (status, created_at DESC)
	`).Error; errIndex != nil {
		return fmt.Errorf("db: create contributions status index: %w", errIndex)
	}
	return nil
}
