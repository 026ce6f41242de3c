package database

import (
	"path/filepath"
	"testing"

	"github.com/MarcoPoloResearchLab/choir/backend/internal/repertoire"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestOpenSQLiteAppliesMigrationsOnce(testContext *testing.T) {
	tempDir := testContext.TempDir()
	databasePath := filepath.Join(tempDir, "migration.db")

	core, logs := observer.New(zap.InfoLevel)
	database, err := OpenSQLite(databasePath, zap.New(core))
	if err != nil {
		testContext.Fatalf("failed to open sqlite: %v", err)
	}

	var record appliedMigration
	if err := database.Where("name = ?", migrationSongTitleLowerIndex).Take(&record).Error; err != nil {
		testContext.Fatalf("expected migration record to be created: %v", err)
	}
	if record.AppliedAt.IsZero() {
		testContext.Fatalf("expected migration timestamp to be set")
	}

	var indexCount int64
	if err := database.Raw("SELECT COUNT(*) FROM sqlite_master WHERE type = 'index' AND name = ?", "idx_songs_title_lower").Scan(&indexCount).Error; err != nil {
		testContext.Fatalf("failed to inspect indexes: %v", err)
	}
	if indexCount != 1 {
		testContext.Fatalf("expected title index to exist, got %d", indexCount)
	}

	if err := applyMigrations(database, zap.New(core)); err != nil {
		testContext.Fatalf("failed to reapply migrations: %v", err)
	}
	if applied := logs.FilterMessage("database migration applied").Len(); applied != 1 {
		testContext.Fatalf("expected migration to be applied once, got %d", applied)
	}
}

func TestOpenSQLiteEnforcesForeignKeys(testContext *testing.T) {
	databasePath := filepath.Join(testContext.TempDir(), "foreign.db")
	database, err := OpenSQLite(databasePath, zap.NewNop())
	if err != nil {
		testContext.Fatalf("failed to open sqlite: %v", err)
	}

	orphan := repertoire.RehearsalSong{RehearsalID: 41, SongID: 42, SongOrder: 1}
	if err := database.Create(&orphan).Error; err == nil {
		testContext.Fatalf("expected orphan association to be rejected")
	}
}

func TestOpenRejectsUnknownDriver(testContext *testing.T) {
	if _, err := Open(Options{Driver: "oracle"}, zap.NewNop()); err == nil {
		testContext.Fatalf("expected unsupported driver error")
	}
	if _, err := Open(Options{Driver: DriverSQLite}, zap.NewNop()); err == nil {
		testContext.Fatalf("expected missing path error")
	}
	if _, err := Open(Options{Driver: DriverPostgres}, zap.NewNop()); err == nil {
		testContext.Fatalf("expected missing dsn error")
	}
}

func TestSQLiteDSNAppendsForeignKeyPragma(testContext *testing.T) {
	testCases := map[string]string{
		"choir.db":                         "choir.db?_pragma=foreign_keys(1)",
		"file:choir.db?cache=shared":       "file:choir.db?cache=shared&_pragma=foreign_keys(1)",
		"choir.db?_pragma=foreign_keys(0)": "choir.db?_pragma=foreign_keys(0)",
	}
	for input, expected := range testCases {
		if actual := sqliteDSN(input); actual != expected {
			testContext.Fatalf("sqliteDSN(%q) = %q, want %q", input, actual, expected)
		}
	}
}
