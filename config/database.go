package config

import (
	"fmt"
	"time"

	"rentledger-backend/logger"
	"rentledger-backend/models"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// OpenDB opens a connection for the given driver. Constraint violations are
// translated to gorm.ErrDuplicatedKey.
func OpenDB(driver, dsn string, debug bool) (*gorm.DB, error) {
	logLevel := gormlogger.Silent
	if debug {
		logLevel = gormlogger.Info
	}
	cfg := &gorm.Config{
		Logger:         gormlogger.Default.LogMode(logLevel),
		TranslateError: true,
	}

	var dialector gorm.Dialector
	switch driver {
	case "sqlite":
		dialector = sqlite.Open(dsn)
	case "postgres", "":
		dialector = postgres.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	db, err := gorm.Open(dialector, cfg)
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", driver, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if driver == "sqlite" {
		// sqlite serializes writers; one connection avoids SQLITE_BUSY.
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxIdleConns(25)
		sqlDB.SetMaxOpenConns(100)
		sqlDB.SetConnMaxLifetime(5 * time.Minute)
		sqlDB.SetConnMaxIdleTime(time.Minute)
	}
	return db, nil
}

// ConnectDB opens the configured database and brings the schema up to date.
func ConnectDB(cfg *Config) (*gorm.DB, error) {
	log := logger.WithComponent("database")

	db, err := OpenDB(cfg.DBDriver, cfg.DBURL, cfg.DBDebug)
	if err != nil {
		return nil, err
	}

	if cfg.RunMigrations && cfg.DBDriver == "postgres" {
		if err := RunSQLMigrations(cfg.DBURL); err != nil {
			return nil, fmt.Errorf("sql migrations failed: %w", err)
		}
		log.Info().Msg("sql migrations applied")
	} else if err := AutoMigrate(db); err != nil {
		return nil, err
	}

	log.Info().Str("driver", cfg.DBDriver).Msg("database ready")
	return db, nil
}

func AutoMigrate(db *gorm.DB) error {
	for _, m := range models.All() {
		if err := db.AutoMigrate(m); err != nil {
			return fmt.Errorf("automigrate %T: %w", m, err)
		}
	}
	return nil
}
