package database

import (
	"fmt"
	"log"
	"strings"

	"github.com/pathakanu/inboxpilot/internal/model"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// New creates a GORM connection for the reminder archive.
// When databaseURL is provided PostgreSQL is used, otherwise SQLite at sqlitePath.
func New(databaseURL, sqlitePath string, applog *log.Logger) (*gorm.DB, error) {
	var dialector gorm.Dialector
	if databaseURL != "" {
		dialector = postgres.Open(databaseURL)
	} else {
		if sqlitePath == "" {
			sqlitePath = "reminders.db"
		}
		dialector = sqlite.Open(sqlitePath)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("opening archive database: %w", err)
	}

	if err := Migrate(db); err != nil {
		return nil, err
	}

	logBackend(db, sqlitePath, applog)
	return db, nil
}

// Migrate creates or updates the archive schema.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&model.ArchivedReminder{}); err != nil {
		return fmt.Errorf("migrating archive schema: %w", err)
	}
	return nil
}

func logBackend(db *gorm.DB, sqlitePath string, applog *log.Logger) {
	dialector := db.Dialector.Name()
	switch strings.ToLower(dialector) {
	case "postgres":
		applog.Printf("database: archive on PostgreSQL")
	case "sqlite":
		applog.Printf("database: archive on SQLite %s", sqlitePath)
	default:
		applog.Printf("database: archive via %s", dialector)
	}
}
