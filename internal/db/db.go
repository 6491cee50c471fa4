package db

import (
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"parking-reservation-backend/config"
	"parking-reservation-backend/internal/model"
)

// Models lists every table managed by AutoMigrate.
var Models = []any{
	&model.Spot{},
	&model.SpotStatusOpen{},
	&model.SpotStatusHistory{},
	&model.PushSubscription{},
}

// Init initializes the database connection and runs migrations.
func Init(cfg *config.DatabaseConfig, log *zap.Logger) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case "postgres":
		dialector = postgres.Open(cfg.DSN)
	case "sqlite":
		dialector = sqlite.Open(cfg.DSN)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
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
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetimeMinutes) * time.Minute)

	log.Info("running database migrations", zap.String("driver", cfg.Driver))
	if err := db.AutoMigrate(Models...); err != nil {
		return nil, fmt.Errorf("automigrate failed: %w", err)
	}

	if cfg.EnableTimescale && cfg.Driver == "postgres" {
		log.Info("TimescaleDB is enabled, applying TimescaleDB-specific DDL")
		if err := applyTimescaleDDL(db); err != nil {
			log.Warn("failed to apply some TimescaleDB DDL, continuing without them", zap.Error(err))
		}
	}

	log.Info("database initialization complete")
	return db, nil
}

func applyTimescaleDDL(db *gorm.DB) error {
	ddls := []string{
		"CREATE EXTENSION IF NOT EXISTS timescaledb;",
		"CREATE EXTENSION IF NOT EXISTS btree_gist;",

		"SELECT create_hypertable('spot_status_histories', 'observed_at', if_not_exists => TRUE);",

		"ALTER TABLE spot_status_histories " +
			"ADD CONSTRAINT spot_status_histories_period_valid CHECK (period_start <= period_end);",

		// Range lookups: which spots were unavailable at a given instant.
		"CREATE INDEX IF NOT EXISTS idx_spot_status_history_period_expr ON spot_status_histories " +
			"USING GIST (spot_id, tstzrange(period_start, period_end, '[)'));",

		"CREATE INDEX IF NOT EXISTS idx_spot_status_history_spot_id_observed_at ON spot_status_histories (spot_id, observed_at DESC);",
	}

	for _, ddl := range ddls {
		if err := db.Exec(ddl).Error; err != nil {
			return fmt.Errorf("DDL failed on %q: %w", ddl, err)
		}
	}
	return nil
}
