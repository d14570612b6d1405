package main

import (
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/thecueroom/backend/internal/database"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found, using system environment variables")
	}

	command := "up"
	if len(os.Args) > 1 {
		command = os.Args[1]
	}

	switch command {
	case "up":
		migrateUp()
	case "down":
		log.Println("❌ Migration rollback not yet implemented")
		log.Println("💡 Tip: Use GORM's AutoMigrate for schema updates in development")
		os.Exit(1)
	default:
		fmt.Println("Usage: migrate [up|down]")
		fmt.Println("  up     - Run all pending migrations")
		fmt.Println("  down   - Rollback last migration (not implemented)")
		os.Exit(1)
	}
}

func migrateUp() {
	log.Println("🔄 Connecting to database...")
	if err := database.Initialize(); err != nil {
		log.Fatalf("❌ Failed to connect to database: %v", err)
	}
	defer database.Close()

	log.Println("📈 Running migrations...")
	if err := database.Migrate(); err != nil {
		log.Fatalf("❌ Migration failed: %v", err)
	}
	log.Println("✅ All migrations completed successfully!")
}
