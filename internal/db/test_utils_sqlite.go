package db

import (
	"testing"

	"github.com/jmoiron/sqlx"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// SetupSQLiteTestDB returns a migrated in-memory store for tests. All
// statements share one connection so every caller sees the same database.
func SetupSQLiteTestDB(t testing.TB) *gorm.DB {
	t.Helper()

	gdb, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		TranslateError:                           true,
		DisableForeignKeyConstraintWhenMigrating: true,
		Logger:                                   logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}

	sqlDB, err := gdb.DB()
	if err != nil {
		t.Fatalf("Failed to unwrap test database: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := Migrate(gdb); err != nil {
		t.Fatalf("Failed to migrate: %v", err)
	}

	t.Cleanup(func() {
		_ = sqlDB.Close()
	})
	return gdb
}

// SetupSQLiteTestReader wraps the test store for sqlx queries.
func SetupSQLiteTestReader(t testing.TB, gdb *gorm.DB) *sqlx.DB {
	t.Helper()

	reader, err := ReaderFromORM(gdb, "sqlite")
	if err != nil {
		t.Fatalf("Failed to build reader: %v", err)
	}
	return reader
}
