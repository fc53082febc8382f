package db

import (
	"fmt"
	"log"
	"strings"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/plakabul/plakabul/internal/models"
)

// Init opens a GORM connection for the given URL.
// "sqlite://<path>" selects the embedded single-file store,
// "postgres://<dsn>" a PostgreSQL server.
func Init(dbURL string) (*gorm.DB, error) {
	var dialector gorm.Dialector

	switch {
	case strings.HasPrefix(dbURL, "postgres://"):
		dialector = postgres.Open(strings.TrimPrefix(dbURL, "postgres://"))
		log.Println("Connecting to PostgreSQL database...")
	case strings.HasPrefix(dbURL, "sqlite://"):
		dsn := strings.TrimPrefix(dbURL, "sqlite://")
		dialector = sqlite.Open(dsn)
		log.Println("Connecting to SQLite database at", dsn)
	default:
		return nil, fmt.Errorf("invalid database URL %q: must start with sqlite:// or postgres://", dbURL)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent), // Be quiet by default
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)

	log.Println("Database connection established.")
	return db, nil
}

// Migrate creates the schema idempotently. Index creation is part of the
// model tags; a migration failure is returned to the caller, who may choose
// to keep serving in degraded mode.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(&models.PlakaPost{}, &models.Comment{}, &models.Like{})
}
