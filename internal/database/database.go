package database

import (
	"fmt"
	"path/filepath"

	"github.com/syllabind/core/internal/config"
	"github.com/syllabind/core/internal/models"
	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// DB is the global database instance. It stays nil when the index driver
// is jsonfile.
var DB *gorm.DB

// Connect opens the index database selected by index.driver and optionally
// runs auto-migration.
func Connect(cfg *config.AppConfig, autoMigrate bool) (*gorm.DB, error) {
	db, err := openDB(cfg, resolveLogLevel(cfg))
	if err != nil {
		return nil, err
	}

	if autoMigrate {
		if err := migrate(db); err != nil {
			return nil, fmt.Errorf("migration failed: %w", err)
		}
	}

	DB = db
	return db, nil
}

func resolveLogLevel(cfg *config.AppConfig) logger.LogLevel {
	if cfg.IsDev() {
		return logger.Info
	}
	return logger.Warn
}

func openDB(cfg *config.AppConfig, logLevel logger.LogLevel) (*gorm.DB, error) {
	gormCfg := &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
	}

	switch cfg.Index.Driver {
	case config.IndexDriverSQLite:
		dsn := cfg.Index.DSN
		if dsn == "" {
			dsn = filepath.Join(cfg.DataDir(), "index.db")
		}
		db, err := gorm.Open(sqlite.Open(dsn), gormCfg)
		if err != nil {
			return nil, fmt.Errorf("sqlite connection failed: %w", err)
		}
		return db, nil
	case config.IndexDriverMySQL:
		db, err := gorm.Open(mysql.New(mysql.Config{
			DSN:               cfg.Index.DSN,
			DefaultStringSize: 191,
		}), gormCfg)
		if err != nil {
			return nil, fmt.Errorf("mysql connection failed: %w", err)
		}
		return db, nil
	default:
		return nil, fmt.Errorf("index driver %q does not use a database", cfg.Index.Driver)
	}
}

// migrate runs GORM auto-migration for all models.
func migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.SyllabusModel{},
	)
}
