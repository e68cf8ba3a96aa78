package repository

import (
	"log"
	"os"
	"testing"

	"github.com/joho/godotenv"
	"github.com/pressly/goose/v3"

	"gearshed/internal/config"
)

var testDB *Database

func TestMain(m *testing.M) {
	log.Println("[TestMain] Starting test setup for repository package")

	if err := godotenv.Load("../../.env.test"); err != nil {
		log.Printf("[TestMain] Warning: .env.test not loaded: %v", err)
	}
	cfg := config.Load()

	log.Println("[TestMain] Attempting to connect to test database...")
	db, err := New(cfg)
	if err != nil {
		log.Printf("[TestMain] Failed to initialize test database: %v", err)
		code := m.Run()
		os.Exit(code)
	}
	testDB = db

	if err := goose.SetDialect("postgres"); err != nil {
		log.Fatalf("[TestMain] Failed to set goose dialect: %v", err)
	}
	if err := goose.Up(testDB.DB.DB, "../../migrations"); err != nil {
		log.Fatalf("[TestMain] Failed to run migrations: %v", err)
	}
	log.Println("[TestMain] Test database connected successfully")

	code := m.Run()

	testDB.Close()
	os.Exit(code)
}
