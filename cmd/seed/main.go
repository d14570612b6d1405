package main

import (
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/thecueroom/backend/internal/database"
	"github.com/thecueroom/backend/internal/logger"
	"github.com/thecueroom/backend/internal/seed"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found, using system environment variables")
	}

	if err := logger.Initialize(os.Getenv("LOG_LEVEL"), os.Getenv("LOG_FILE")); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Close()

	command := "dev"
	if len(os.Args) > 1 {
		command = os.Args[1]
	}

	switch command {
	case "dev":
		run("🌱 Seeding development database...", true, func(s *seed.Seeder) error {
			return s.SeedDev()
		})
		log.Println("✅ Seeding complete!")
	case "clean":
		run("🧹 Cleaning seed data...", false, func(s *seed.Seeder) error {
			return s.Clean()
		})
		log.Println("✅ Clean complete!")
	default:
		fmt.Println("Usage: seed [dev|clean]")
		fmt.Println("  dev   - Seed development database with realistic data")
		fmt.Println("  clean - Remove all seed data (use with caution)")
		os.Exit(1)
	}
}

func run(banner string, migrate bool, fn func(*seed.Seeder) error) {
	log.Println(banner)

	if err := database.Initialize(); err != nil {
		log.Fatalf("❌ Failed to connect to database: %v", err)
	}
	defer database.Close()

	if migrate {
		if err := database.Migrate(); err != nil {
			log.Fatalf("❌ Migration failed: %v", err)
		}
	}

	if err := fn(seed.NewSeeder(database.DB)); err != nil {
		log.Fatalf("❌ Command failed: %v", err)
	}
}
