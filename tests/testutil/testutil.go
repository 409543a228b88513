package testutil

import (
	"fmt"
	"os"
	"testing"

	"github.com/kendall-kelly/transformers-api/config"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// RequireTestEnvironment ensures that tests are running in the test environment.
// This prevents accidental execution of tests against production or development databases.
// It will fail the test immediately if GO_ENV is not set to "test".
func RequireTestEnvironment(t *testing.T) {
	t.Helper()

	env := os.Getenv("GO_ENV")
	if env != "test" {
		t.Fatalf("SAFETY CHECK FAILED: Tests must run with GO_ENV=test to prevent data loss. Current GO_ENV=%q. Set GO_ENV=test before running tests.", env)
	}
}

// EnsureTestEnvironment sets GO_ENV=test when it is unset and reports
// whether the environment is safe for tests. Use it from TestMain.
func EnsureTestEnvironment() (string, bool) {
	env := os.Getenv("GO_ENV")
	if env == "" {
		if err := os.Setenv("GO_ENV", "test"); err != nil {
			return env, false
		}
		env = "test"
	}
	return env, env == "test"
}

// NewTestDB opens a private in-memory SQLite database with every table migrated
func NewTestDB(t testing.TB) *gorm.DB {
	t.Helper()

	// A named shared-cache database keeps each test isolated while letting
	// every connection of the pool see the same schema.
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_foreign_keys=1", sanitize(t.Name()))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to get test database handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := config.Migrate(db); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}
	return db
}

func sanitize(name string) string {
	out := make([]rune, 0, len(name))
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			out = append(out, r)
		default:
			out = append(out, '_')
		}
	}
	return string(out)
}
