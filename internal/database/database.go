package database

import (
	"fmt"
	"time"

	"github.com/MarcoPoloResearchLab/choir/backend/internal/repertoire"
	"go.uber.org/zap"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const (
	// DriverSQLite selects the embedded SQLite driver.
	DriverSQLite = "sqlite"
	// DriverPostgres selects the Postgres driver.
	DriverPostgres = "postgres"
)

// Options selects and tunes the database connection.
type Options struct {
	Driver       string
	Path         string
	DSN          string
	MaxOpenConns int
}

// Open connects to the configured driver and brings the schema up to date.
func Open(options Options, logger *zap.Logger) (*gorm.DB, error) {
	switch options.Driver {
	case DriverSQLite, "":
		return OpenSQLite(options.Path, logger)
	case DriverPostgres:
		return OpenPostgres(options.DSN, options.MaxOpenConns, logger)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", options.Driver)
	}
}

func gormConfig() *gorm.Config {
	return &gorm.Config{
		Logger:         gormlogger.Discard,
		TranslateError: true,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	}
}

func migrate(db *gorm.DB, logger *zap.Logger) error {
	models := append(repertoire.Models(), &appliedMigration{})
	if err := db.AutoMigrate(models...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return applyMigrations(db, logger)
}
