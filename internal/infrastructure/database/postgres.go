package database

import (
	"fmt"
	"log"
	"time"

	migrate "github.com/rubenv/sql-migrate"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/sruppelQPS/openclaw-meeting-assistant/pkg/config"
)

const migrationsDir = "migrations"

// NewPostgresDB opens a GORM connection to PostgreSQL. Timestamps are
// written in UTC so deadline anchoring stays stable across timezones.
func NewPostgresDB(cfg *config.Config) (*gorm.DB, error) {
	logLevel := logger.Info
	if cfg.Server.Environment == "production" {
		logLevel = logger.Error
	}

	db, err := gorm.Open(postgres.Open(cfg.GetDatabaseDSN()), &gorm.Config{
		Logger:         logger.Default.LogMode(logLevel),
		TranslateError: true,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database object: %w", err)
	}

	sqlDB.SetMaxOpenConns(cfg.Database.MaxConns)
	sqlDB.SetMaxIdleConns(cfg.Database.MinConns)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.Println("✅ Database connected successfully")

	return db, nil
}

// AutoMigrate applies any pending sql-migrate migrations. Meant for
// development; production schemas are managed through cmd/migrate.
func AutoMigrate(db *gorm.DB) error {
	log.Printf("🔄 Applying migrations from %s/ using sql-migrate...", migrationsDir)

	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get db connection during migrate up, error: %v", err)
	}

	source := &migrate.FileMigrationSource{Dir: migrationsDir}
	n, err := migrate.Exec(sqlDB, "postgres", source, migrate.Up)
	if err != nil {
		return fmt.Errorf("failed to apply migration, error: %v", err)
	}

	log.Printf("✅ Applied %d migrations!", n)
	return nil
}

// CloseDB closes the underlying connection pool.
func CloseDB(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database object: %w", err)
	}

	if err := sqlDB.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}

	log.Println("✅ Database connection closed")
	return nil
}
