package db

import (
	"fmt"

	"github.com/charmbracelet/log"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"habit-stacker-backend/internal/config"
)

// ConnectDB opens the configured database.
func ConnectDB(cfg config.Config) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.DBDriver {
	case "postgres":
		dialector = postgres.Open(cfg.DSN())
	case "sqlite":
		dialector = sqlite.Open(cfg.SQLitePath)
	default:
		return nil, fmt.Errorf("unknown db driver %q", cfg.DBDriver)
	}

	conn, err := Open(dialector)
	if err != nil {
		return nil, fmt.Errorf("connecting to %s: %w", cfg.DBDriver, err)
	}
	log.Info("Connected to database", "driver", cfg.DBDriver)
	return conn, nil
}

// Open wraps gorm.Open with the settings every connection uses.
func Open(dialector gorm.Dialector) (*gorm.DB, error) {
	return gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
}

// Migrate creates or updates every table.
func Migrate(conn *gorm.DB) error {
	if err := conn.AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("migrating schema: %w", err)
	}
	return nil
}
