package testutil

import (
	"fmt"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	"github.com/pressly/goose/v3"

	"gearshed/internal/config"
	"gearshed/internal/repository"
)

// SetupTestDB connects to the configured test database and brings its
// schema up to date. Callers skip their tests when it returns an error.
func SetupTestDB(envRelPath, migrationsRelPath string) (*repository.Database, error) {
	_ = godotenv.Load(envRelPath)
	cfg := config.Load()

	dsn := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.Database.Host,
		cfg.Database.Port,
		cfg.Database.User,
		cfg.Database.Password,
		cfg.Database.Name,
		cfg.Database.SSLMode,
	)

	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("connect to test db: %w", err)
	}

	if err = goose.SetDialect("postgres"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set dialect: %w", err)
	}

	if err = goose.Up(db.DB, migrationsRelPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply migrations: %w", err)
	}

	return &repository.Database{DB: db}, nil
}

func RequireDB(t *testing.T, db *repository.Database) {
	t.Helper()
	if db == nil {
		t.Skip("Test database not initialized")
	}
}
