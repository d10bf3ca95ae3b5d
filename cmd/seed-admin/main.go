// Command seed-admin creates the administrator account named by
// ADMIN_EMAIL if it does not exist yet. Running it twice is harmless.
package main

import (
	"context"
	"log"
	"time"

	"github.com/joho/godotenv"

	"github.com/iliyamo/shopease-api/internal/app"
	"github.com/iliyamo/shopease-api/internal/config"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	stores, closeStores, err := app.OpenStores(ctx, cfg)
	if err != nil {
		log.Fatalf("storage: %v", err)
	}
	a := app.New(cfg, stores, nil, nil, nil)
	a.OnClose(closeStores)
	defer a.Close()

	admin, created, err := a.Auth.SeedAdmin(ctx, cfg.AdminName, cfg.AdminEmail, cfg.AdminPassword)
	if err != nil {
		log.Fatalf("seed admin: %v", err)
	}
	if created {
		log.Printf("admin %s created (id=%d)", admin.Email, admin.ID)
		return
	}
	log.Printf("admin %s already exists, nothing to do", admin.Email)
}
