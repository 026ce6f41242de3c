package database

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

const migrationSongTitleLowerIndex = "2026-10-01_songs_title_lower_index"

var errMigrationApplied = errors.New("migration already applied")

// appliedMigration is the ledger row written once a schema change has run.
type appliedMigration struct {
	Name      string    `gorm:"column:name;primaryKey;size:190"`
	AppliedAt time.Time `gorm:"column:applied_at;not null"`
}

func (appliedMigration) TableName() string {
	return "schema_migrations"
}

// schemaChange is a named step that AutoMigrate cannot express.
type schemaChange struct {
	name string
	run  func(*gorm.DB) error
}

var schemaChanges = []schemaChange{
	{name: migrationSongTitleLowerIndex, run: createSongTitleLowerIndex},
}

// applyMigrations runs every pending schema change in order. A change and its ledger
// row commit together, so a failed step is retried on the next start.
func applyMigrations(db *gorm.DB, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	for _, change := range schemaChanges {
		err := db.Transaction(func(tx *gorm.DB) error {
			var ledger appliedMigration
			lookupErr := tx.Take(&ledger, "name = ?", change.name).Error
			switch {
			case lookupErr == nil:
				return errMigrationApplied
			case !errors.Is(lookupErr, gorm.ErrRecordNotFound):
				return lookupErr
			}
			if err := change.run(tx); err != nil {
				return err
			}
			return tx.Create(&appliedMigration{Name: change.name, AppliedAt: time.Now().UTC()}).Error
		})
		if errors.Is(err, errMigrationApplied) {
			continue
		}
		if err != nil {
			return fmt.Errorf("migration %s: %w", change.name, err)
		}
		logger.Info("database migration applied", zap.String("migration", change.name))
	}
	return nil
}

// createSongTitleLowerIndex backs the case-insensitive title search.
func createSongTitleLowerIndex(db *gorm.DB) error {
	return db.Exec("CREATE INDEX IF NOT EXISTS idx_songs_title_lower ON songs (LOWER(title))").Error
}
