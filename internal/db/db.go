package db

import (
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"housing-listings-backend/config"
	"housing-listings-backend/internal/model"
)

const sqlitePrefix = "sqlite:"

// Init opens the database connection, tunes the pool and runs migrations.
func Init(cfg *config.DatabaseConfig, log *zap.Logger) (*gorm.DB, error) {
	db, err := gorm.Open(dialector(cfg.DSN), &gorm.Config{
		Logger: logger.Default.LogMode(logLevel(cfg.LogLevel)),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetimeMinutes > 0 {
		sqlDB.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetimeMinutes) * time.Minute)
	}

	log.Info("running database migrations")
	if err := Migrate(db); err != nil {
		return nil, err
	}

	if db.Dialector.Name() == "postgres" {
		if err := applyPostgresIndexes(db); err != nil {
			log.Warn("failed to apply some postgres indexes, continuing without them", zap.Error(err))
		}
	}

	log.Info("database initialization complete", zap.String("dialect", db.Dialector.Name()))
	return db, nil
}

// Migrate creates or updates every table.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(model.All()...); err != nil {
		return fmt.Errorf("automigrate failed: %w", err)
	}
	return nil
}

func dialector(dsn string) gorm.Dialector {
	if strings.HasPrefix(dsn, sqlitePrefix) {
		return sqlite.Open(strings.TrimPrefix(dsn, sqlitePrefix))
	}
	return postgres.Open(dsn)
}

func logLevel(level string) logger.LogLevel {
	switch level {
	case "silent":
		return logger.Silent
	case "error":
		return logger.Error
	case "info":
		return logger.Info
	default:
		return logger.Warn
	}
}

// applyPostgresIndexes adds expression indexes backing the case-insensitive filters.
func applyPostgresIndexes(db *gorm.DB) error {
	ddls := []string{
		"CREATE INDEX IF NOT EXISTS idx_listings_lower_name ON listings (LOWER(name));",
		"CREATE INDEX IF NOT EXISTS idx_properties_lower_city ON properties (LOWER(city));",
		"CREATE INDEX IF NOT EXISTS idx_properties_lower_neighborhood ON properties (LOWER(neighborhood));",
		"CREATE INDEX IF NOT EXISTS idx_applicants_lower_email ON applicants (LOWER(email_address));",
	}

	for _, ddl := range ddls {
		if err := db.Exec(ddl).Error; err != nil {
			return fmt.Errorf("DDL failed on %q: %w", ddl, err)
		}
	}
	return nil
}
