package main

import (
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"log"

	"github.com/joho/godotenv"
	"github.com/lib/pq"
	"github.com/pressly/goose/v3"

	"gearshed/internal/config"
)

const migrationsDir = "migrations"

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println(".env not loaded, relying on environment")
	}

	command := flag.String("command", "up", "Migration command: up, down, down-to, status, create")
	name := flag.String("name", "", "Migration name (required for create)")
	targetVersion := flag.Int64("version", 0, "Target version for down-to command")
	flag.Parse()

	cfg := config.Load()

	db, err := sql.Open("postgres", dsnFor(cfg, cfg.Database.Name))
	if err != nil {
		log.Fatalf("Failed to open database connection: %v", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		if *command != "up" || !isDatabaseDoesNotExistError(err) {
			log.Fatalf("Failed to connect to database: %v", err)
		}
		if err := createDatabase(cfg); err != nil {
			log.Fatalf("Failed to create database: %v", err)
		}
		db.Close()
		db, err = sql.Open("postgres", dsnFor(cfg, cfg.Database.Name))
		if err != nil {
			log.Fatalf("Failed to open database connection: %v", err)
		}
		if err := db.Ping(); err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
	}

	if err := goose.SetDialect("postgres"); err != nil {
		log.Fatalf("Failed to set dialect: %v", err)
	}

	switch *command {
	case "up":
		if err := goose.Up(db, migrationsDir); err != nil {
			log.Fatalf("Failed to run migrations: %v", err)
		}
		log.Println("Migrations applied successfully")
	case "down":
		if err := goose.Down(db, migrationsDir); err != nil {
			log.Fatalf("Failed to rollback migrations: %v", err)
		}
		log.Println("Migrations rolled back successfully")
	case "down-to":
		if err := goose.DownTo(db, migrationsDir, *targetVersion); err != nil {
			log.Fatalf("Failed to rollback migrations to version %d: %v", *targetVersion, err)
		}
		log.Printf("Migrations rolled back to version %d successfully", *targetVersion)
	case "status":
		if err := goose.Status(db, migrationsDir); err != nil {
			log.Fatalf("Failed to get migration status: %v", err)
		}
	case "create":
		if *name == "" {
			log.Fatal("Migration name is required for create command")
		}
		if err := goose.Create(db, migrationsDir, *name, "sql"); err != nil {
			log.Fatalf("Failed to create migration: %v", err)
		}
		log.Printf("Created migration: %s", *name)
	default:
		log.Fatalf("Unknown command: %s", *command)
	}
}

func dsnFor(cfg *config.Config, dbName string) string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.Database.Host,
		cfg.Database.Port,
		cfg.Database.User,
		cfg.Database.Password,
		dbName,
		cfg.Database.SSLMode,
	)
}

func isDatabaseDoesNotExistError(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "3D000"
}

func createDatabase(cfg *config.Config) error {
	db, err := sql.Open("postgres", dsnFor(cfg, "postgres"))
	if err != nil {
		return fmt.Errorf("failed to open database connection: %w", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to connect to postgres database: %w", err)
	}

	if _, err := db.Exec(fmt.Sprintf("CREATE DATABASE %s", cfg.Database.Name)); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "42P04" {
			return nil
		}
		return fmt.Errorf("failed to create database: %w", err)
	}

	log.Printf("Database '%s' created successfully", cfg.Database.Name)
	return nil
}
