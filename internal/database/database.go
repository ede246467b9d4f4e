package database

import (
	"fmt"
	"log"

	"quizzarium-backend/internal/config"
	"quizzarium-backend/internal/models"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// DSN is the libpq connection string for cfg.
func DSN(cfg *config.Config) string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.DBHost, cfg.DBPort, cfg.DBUser, cfg.DBPassword, cfg.DBName, cfg.DBSSLMode,
	)
}

func Connect(cfg *config.Config) *gorm.DB {
	db, err := gorm.Open(postgres.Open(DSN(cfg)), &gorm.Config{})
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	log.Println("database connected")
	return db
}

// Models lists every table in dependency order.
func Models() []interface{} {
	return []interface{}{
		&models.User{},
		&models.Category{},
		&models.Quiz{},
		&models.Question{},
		&models.Answer{},
		&models.Result{},
		&models.SupportTicket{},
	}
}

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(Models()...)
}

func AutoMigrate(db *gorm.DB) {
	if err := Migrate(db); err != nil {
		log.Fatalf("failed to auto-migrate: %v", err)
	}
	log.Println("database migrated")
}
