// seed inserts development sample data for local testing.
// Idempotent: skips inserts if the admin user (admin@gc-dz.com) already exists.
package main

import (
	"context"
	"log"
	"os"
	"time"

	companydomain "trasepad/backend/internal/company/domain"
	companyrepo "trasepad/backend/internal/company/repository"
	"trasepad/backend/internal/config"
	"trasepad/backend/internal/db"
	moduledomain "trasepad/backend/internal/module/domain"
	modulerepo "trasepad/backend/internal/module/repository"
	"trasepad/backend/internal/security"
	userdomain "trasepad/backend/internal/user/domain"
	userrepo "trasepad/backend/internal/user/repository"
)

const (
	adminEmail    = "admin@gc-dz.com"
	adminPassword = "password123"
	// Admin sees everything the seeded modules gate on.
	adminFlags = 0xFF
)

var seedModules = []moduledomain.Module{
	{Name: "menu", Title: "Main menu", RequiredFlags: 0},
	{Name: "cmatch", Title: "Company name matcher", RequiredFlags: 1},
	{Name: "f500", Title: "Forest 500 companies", RequiredFlags: 2},
	{Name: "sctn", Title: "SCTN survey", RequiredFlags: 2},
	{Name: "sctndd", Title: "SCTN data display", RequiredFlags: 0},
	{Name: "traffic", Title: "Traffic statistics", RequiredFlags: 4},
}

var seedCompanies = []companydomain.Company{
	{Name: "Acme Holdings Ltd", Year: 2023},
	{Name: "Acme Corp", Year: 2024},
	{Name: "J P Morgan", Year: 2024},
	{Name: "Unilever", Year: 2024},
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is not set; create a .env from .env.example or set DATABASE_URL")
	}

	conn, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer conn.Close()

	ctx := context.Background()
	users := userrepo.NewPostgresRepository(conn)
	modules := modulerepo.NewPostgresRepository(conn)
	companies := companyrepo.NewPostgresRepository(conn)

	existing, err := users.GetByEmail(ctx, adminEmail)
	if err != nil {
		log.Fatalf("seed check: %v", err)
	}
	if existing != nil {
		log.Printf("Seed already applied (%s exists). Skipping.", adminEmail)
		os.Exit(0)
	}

	hasher := security.NewHasher(cfg.BcryptCost)
	passwordHash, err := hasher.Hash([]byte(adminPassword))
	if err != nil {
		log.Fatalf("hash password: %v", err)
	}

	admin := &userdomain.User{
		Email:           adminEmail,
		Username:        userdomain.UsernameFromEmail(adminEmail),
		PermissionFlags: adminFlags,
		PasswordHash:    passwordHash,
		CreatedAt:       time.Now().UTC(),
	}
	if err := users.Create(ctx, admin); err != nil {
		log.Fatalf("create admin user: %v", err)
	}

	for i := range seedModules {
		if err := modules.Create(ctx, &seedModules[i]); err != nil {
			log.Fatalf("create module %s: %v", seedModules[i].Name, err)
		}
	}
	for i := range seedCompanies {
		if err := companies.Create(ctx, &seedCompanies[i]); err != nil {
			log.Fatalf("create company %s: %v", seedCompanies[i].Name, err)
		}
	}

	log.Println("Seed completed successfully.")
	log.Printf("Admin login: %s / %s", admin.Username, adminPassword)
}
