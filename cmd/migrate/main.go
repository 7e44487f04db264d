package main

import (
	"flag"
	"log"

	migrate "github.com/rubenv/sql-migrate"

	"github.com/sruppelQPS/openclaw-meeting-assistant/internal/infrastructure/database"
	"github.com/sruppelQPS/openclaw-meeting-assistant/pkg/config"
)

func main() {
	down := flag.Bool("down", false, "roll back the most recent migration instead of applying")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize database using GORM
	db, err := database.NewPostgresDB(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.CloseDB(db)

	log.Println("✅ Database connected successfully")

	migrations := &migrate.FileMigrationSource{
		Dir: "migrations",
	}

	// Get the underlying SQL database connection from GORM
	sqlDB, err := db.DB()
	if err != nil {
		log.Fatalf("Failed to get database connection: %v", err)
	}

	if *down {
		log.Println("🔄 Rolling back most recent migration...")
		n, err := migrate.ExecMax(sqlDB, "postgres", migrations, migrate.Down, 1)
		if err != nil {
			log.Fatalf("Failed to roll back migration: %v", err)
		}
		log.Printf("✅ Rolled back %d migration(s)", n)
		return
	}

	log.Println("🔄 Applying migrations from migrations/ directory...")
	n, err := migrate.Exec(sqlDB, "postgres", migrations, migrate.Up)
	if err != nil {
		log.Fatalf("Failed to apply migrations: %v", err)
	}

	log.Printf("✅ Successfully applied %d migration(s)!", n)
}
