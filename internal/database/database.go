package database

import (
	"fmt"
	"strings"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"platesync/internal/models"
)

// New opens the catalog database and runs migrations. A sqlite:// URL selects
// the embedded driver, used for local development and tests; anything else is
// treated as a postgres DSN.
func New(databaseURL string) (*gorm.DB, error) {
	var dialector gorm.Dialector
	if strings.HasPrefix(databaseURL, "sqlite://") {
		dialector = sqlite.Open(strings.TrimPrefix(databaseURL, "sqlite://"))
	} else {
		dialector = postgres.Open(databaseURL)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.AutoMigrate(
		&models.Category{},
		&models.Product{},
		&models.ProductAttribute{},
		&models.ProductVariant{},
	); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return db, nil
}
