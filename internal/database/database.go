package database

import (
	"fmt"
	"strings"

	"github.com/pathakanu/remindme/internal/model"
	"github.com/rs/zerolog"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// DefaultSQLitePath is used when no SQLite path is configured.
const DefaultSQLitePath = "reminders.db"

// New creates a GORM database connection and migrates the reminder table.
// driver is "postgres" or "sqlite"; dsn is the connection URL or file path.
func New(driver, dsn string, log zerolog.Logger) (*gorm.DB, error) {
	gormConfig := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	}

	var dialector gorm.Dialector
	switch strings.ToLower(driver) {
	case "postgres", "postgresql":
		if dsn == "" {
			return nil, fmt.Errorf("database: postgres requires a DATABASE_URL")
		}
		dialector = postgres.Open(dsn)
	case "sqlite", "sqlite3", "":
		if dsn == "" {
			dsn = DefaultSQLitePath
		}
		dialector = sqlite.Open(dsn)
	default:
		return nil, fmt.Errorf("database: unsupported driver %q", driver)
	}

	db, err := gorm.Open(dialector, gormConfig)
	if err != nil {
		return nil, err
	}

	if err := db.AutoMigrate(&model.Reminder{}); err != nil {
		return nil, err
	}

	logBackend(db, dsn, log)
	return db, nil
}

func logBackend(db *gorm.DB, dsn string, log zerolog.Logger) {
	dialector := db.Dialector.Name()
	switch strings.ToLower(dialector) {
	case "postgres":
		log.Info().Msg("database: connected to PostgreSQL")
	case "sqlite":
		log.Info().Str("path", dsn).Msg("database: using SQLite")
	default:
		log.Info().Str("dialector", dialector).Msg("database: connected")
	}
}
