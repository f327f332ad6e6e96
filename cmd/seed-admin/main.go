// seed-admin creates the first admin account when the users table has no admin yet.
//
// Usage:
//
//	DB_USER=... DB_PASSWORD=... DB_HOST=... DB_NAME=... go run ./cmd/seed-admin --username admin --password '...'
//
// ADMIN_USERNAME / ADMIN_PASSWORD / ADMIN_NAME are read when the flags are omitted.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"bitbucket.org/mmdatafocus/tradebooks_backend/config"
	"bitbucket.org/mmdatafocus/tradebooks_backend/models"
	"bitbucket.org/mmdatafocus/tradebooks_backend/utils"
)

func main() {
	username := flag.String("username", os.Getenv("ADMIN_USERNAME"), "admin username")
	password := flag.String("password", os.Getenv("ADMIN_PASSWORD"), "admin password (min 8 characters)")
	name := flag.String("name", os.Getenv("ADMIN_NAME"), "display name")
	migrate := flag.Bool("migrate", false, "run AutoMigrate before seeding")
	flag.Parse()

	if strings.TrimSpace(*username) == "" || *password == "" {
		fmt.Fprintln(os.Stderr, "--username and --password (or ADMIN_USERNAME / ADMIN_PASSWORD) are required")
		os.Exit(1)
	}
	if strings.TrimSpace(*name) == "" {
		*name = *username
	}

	config.ConnectDatabaseWithRetry()
	if config.GetDB() == nil {
		fmt.Fprintln(os.Stderr, "database not initialized (config.GetDB returned nil). Set DB_* env vars.")
		os.Exit(1)
	}
	if *migrate {
		models.MigrateTable()
	}

	// history rows record who made the change
	ctx := utils.WithUser(context.Background(), 0, "seed-admin", "Seed", string(models.UserRoleAdmin))

	user, created, err := models.SeedAdmin(ctx, *username, *name, *password)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to seed admin: %v\n", err)
		os.Exit(1)
	}
	if !created {
		fmt.Println("An admin user already exists; nothing to do.")
		return
	}
	fmt.Printf("Created admin user: username=%q id=%d\n", user.Username, user.ID)
}
