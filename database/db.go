// Package database opens and migrates the entity store. The returned handle is
// owned by the process entry point and injected into every service.
package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ytschitwan/portal/config"
	"github.com/ytschitwan/portal/database/model"
	"github.com/ytschitwan/portal/logger"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func entities() []any {
	return []any{
		&model.User{},
		&model.Event{},
		&model.Registration{},
		&model.Contact{},
		&model.AuditLog{},
	}
}

// Open connects to the configured database, applies connection settings and
// runs the schema migration.
func Open(cfg *config.DatabaseConfig) (*gorm.DB, error) {
	if err := cfg.ValidateConfig(); err != nil {
		return nil, err
	}
	if err := cfg.EnsureDirectoryExists(); err != nil {
		return nil, err
	}

	var gormLogger gormlogger.Interface
	if config.IsDebug() {
		gormLogger = gormlogger.Default
	} else {
		gormLogger = gormlogger.Discard
	}

	c := &gorm.Config{
		Logger:                 gormLogger,
		SkipDefaultTransaction: true,
		PrepareStmt:            true,
		TranslateError:         true,
	}

	var dialector gorm.Dialector
	if cfg.IsPostgreSQL() {
		dialector = postgres.Open(cfg.GetDSN())
	} else {
		dialector = sqlite.Open(cfg.GetDSN())
	}

	db, err := gorm.Open(dialector, c)
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", cfg.Type, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if cfg.IsSQLite() {
		// One connection serializes writers; WAL keeps readers cheap.
		sqlDB.SetMaxOpenConns(1)
		if _, err = sqlDB.Exec("PRAGMA foreign_keys = ON;"); err != nil {
			return nil, err
		}
	} else {
		sqlDB.SetMaxOpenConns(25)
		sqlDB.SetMaxIdleConns(5)
		sqlDB.SetConnMaxIdleTime(5 * time.Minute)
	}

	if err := Migrate(db); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}
	return db, nil
}

// Migrate creates or updates the tables and indexes of every entity.
func Migrate(db *gorm.DB) error {
	for _, m := range entities() {
		if err := db.AutoMigrate(m); err != nil {
			logger.Errorf("auto migrating %T: %v", m, err)
			return err
		}
	}
	return nil
}

// Close checkpoints the SQLite WAL (when applicable) and closes the pool.
func Close(db *gorm.DB) error {
	if db == nil {
		return nil
	}
	if db.Dialector.Name() == "sqlite" {
		if err := db.Exec("PRAGMA wal_checkpoint;").Error; err != nil {
			logger.Warning("wal checkpoint failed:", err)
		}
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Ping reports whether the store answers within the context deadline.
func Ping(ctx context.Context, db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

func IsDuplicate(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey)
}

func IsForeignKeyViolation(err error) bool {
	return errors.Is(err, gorm.ErrForeignKeyViolated)
}
