package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"

	"github.com/ilramdhan/farmcalc/config"
	"github.com/ilramdhan/farmcalc/migrations"
	"github.com/ilramdhan/farmcalc/pkg/database"
)

func main() {
	godotenv.Load()

	if len(os.Args) < 2 {
		fmt.Println("Usage: migrate <command>")
		fmt.Println("Commands: up, down, status, version")
		os.Exit(1)
	}

	cfg := config.Load()
	ctx := context.Background()

	pool, err := database.NewPool(ctx, &cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer pool.Close()

	db := database.OpenDB(pool)
	defer db.Close()

	switch os.Args[1] {
	case "up":
		if err := migrations.Up(db); err != nil {
			log.Fatalf("Migration failed: %v", err)
		}
		log.Println("Migrations applied successfully")
	case "down":
		if err := migrations.Down(db); err != nil {
			log.Fatalf("Rollback failed: %v", err)
		}
		log.Println("Rolled back latest migration")
	case "status":
		if err := migrations.Status(db); err != nil {
			log.Fatalf("Failed to read migration status: %v", err)
		}
	case "version":
		version, err := migrations.Version(db)
		if err != nil {
			log.Fatalf("Failed to read schema version: %v", err)
		}
		fmt.Printf("Schema version: %d\n", version)
	default:
		fmt.Printf("Unknown command: %s\n", os.Args[1])
		os.Exit(1)
	}
}
