package main

import (
	"fmt"
	"log"
	"time"

	"github.com/joho/godotenv"

	"gearshed/internal/config"
	"gearshed/internal/domain"
	"gearshed/internal/repository"
	"gearshed/internal/util"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println(".env not loaded, relying on environment")
	}

	cfg := config.Load()
	db, err := repository.New(cfg)
	if err != nil {
		log.Fatalf("failed to initialize database: %v", err)
	}
	defer db.Close()

	log.Println("Starting seed process...")

	if err := truncateTables(db); err != nil {
		log.Fatalf("Failed to truncate tables: %v", err)
	}

	if err := seedUsers(db); err != nil {
		log.Fatalf("Failed to seed users: %v", err)
	}
	if err := seedEquipment(db); err != nil {
		log.Fatalf("Failed to seed equipment: %v", err)
	}

	log.Println("Seed process completed!")
}

func truncateTables(db *repository.Database) error {
	log.Println("Truncating all seed tables...")

	tables := []string{
		"anomaly_results",
		"reallocations",
		"return_request_items",
		"return_requests",
		"borrow_item_units",
		"claim_tokens",
		"borrow_request_items",
		"borrow_requests",
		"equipment_units",
		"equipment_types",
		"sessions",
		"users",
	}

	for _, table := range tables {
		query := fmt.Sprintf("TRUNCATE TABLE %s RESTART IDENTITY CASCADE", table)
		if _, err := db.Exec(query); err != nil {
			return fmt.Errorf("failed to truncate %s: %w", table, err)
		}
		log.Printf("Truncated table: %s", table)
	}

	return nil
}

func seedUsers(db *repository.Database) error {
	userRepo := repository.NewUserRepository(db)

	seeds := []struct {
		email     string
		password  string
		firstName string
		lastName  string
		role      domain.Role
	}{
		{"manager@gearshed.test", "manager123", "Mira", "Santos", domain.RoleEquipmentManager},
		{"alice@gearshed.test", "borrower123", "Alice", "Reyes", domain.RoleBorrower},
		{"ben@gearshed.test", "borrower123", "Ben", "Cruz", domain.RoleBorrower},
	}

	for _, seed := range seeds {
		hashed, err := util.HashPassword(seed.password)
		if err != nil {
			return err
		}
		lastName := seed.lastName
		user := &domain.User{
			Email:     seed.email,
			Password:  hashed,
			FirstName: seed.firstName,
			LastName:  &lastName,
			Role:      seed.role,
		}
		if err := userRepo.Create(user); err != nil {
			return fmt.Errorf("create %s: %w", seed.email, err)
		}
		log.Printf("Seeded user: %s (%s)", seed.email, seed.role)
	}

	return nil
}

func seedEquipment(db *repository.Database) error {
	equipmentRepo := repository.NewEquipmentRepository(db)

	brand := func(s string) *string { return &s }
	seeds := []struct {
		equipmentType domain.EquipmentType
		quantity      int
	}{
		{domain.EquipmentType{Name: "Projector", Brand: brand("Epson"), ItemModel: brand("EB-X51")}, 6},
		{domain.EquipmentType{Name: "DSLR Camera", Brand: brand("Canon"), ItemModel: brand("EOS 250D")}, 4},
		{domain.EquipmentType{Name: "Tripod", Brand: brand("Manfrotto")}, 10},
		{domain.EquipmentType{Name: "Extension Cord"}, 15},
		{domain.EquipmentType{Name: "Wireless Microphone", Brand: brand("Shure"), ItemModel: brand("BLX24")}, 8},
	}

	acquiredAt := time.Now().AddDate(0, -6, 0)
	for _, seed := range seeds {
		et := seed.equipmentType
		if err := equipmentRepo.UpsertType(db, &et); err != nil {
			return fmt.Errorf("upsert %s: %w", et.Name, err)
		}
		if err := equipmentRepo.CreateUnits(db, et.ID, seed.quantity, acquiredAt); err != nil {
			return fmt.Errorf("create units for %s: %w", et.Name, err)
		}
		log.Printf("Seeded equipment: %s x%d", et.Name, seed.quantity)
	}

	return nil
}
