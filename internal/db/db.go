package db

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"transit-analytics/internal/config"
)

func New(cfg *config.Config, log zerolog.Logger) (*gorm.DB, error) {
	gormCfg := &gorm.Config{
		Logger:                 gormlogger.Default.LogMode(gormlogger.Silent),
		SkipDefaultTransaction: true,
		PrepareStmt:            true,
	}
	if cfg.Environment == "development" {
		gormCfg.Logger = gormlogger.Default.LogMode(gormlogger.Warn)
	}

	database, err := gorm.Open(postgres.Open(cfg.DB.DSN), gormCfg)
	if err != nil {
		if database != nil {
			if sqlDB, dbErr := database.DB(); dbErr == nil {
				sqlDB.Close()
			}
		}
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := prepare(database, cfg, log); err != nil {
		return nil, err
	}
	return database, nil
}

// prepare sizes the pool and checks the warehouse is usable. The pool is
// closed on any failure.
func prepare(database *gorm.DB, cfg *config.Config, log zerolog.Logger) error {
	sqlDB, err := database.DB()
	if err != nil {
		return fmt.Errorf("get sql db: %w", err)
	}
	sqlDB.SetMaxOpenConns(cfg.DB.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.DB.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.DB.ConnMaxLifetime)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(ctx); err != nil {
		sqlDB.Close()
		return fmt.Errorf("ping database: %w", err)
	}

	if err := checkSchema(ctx, database, cfg.DB.StrictSchema, log); err != nil {
		sqlDB.Close()
		return err
	}

	log.Info().
		Int("max_open_conns", cfg.DB.MaxOpenConns).
		Int("max_idle_conns", cfg.DB.MaxIdleConns).
		Msg("database connected")
	return nil
}

func checkSchema(ctx context.Context, database *gorm.DB, strict bool, log zerolog.Logger) error {
	missing, err := VerifySchema(ctx, database)
	if err != nil {
		return err
	}
	if len(missing) == 0 {
		return nil
	}
	if strict {
		return fmt.Errorf("warehouse relations missing: %v", missing)
	}
	log.Warn().Strs("relations", missing).Msg("warehouse relations missing, affected analytics will fail")
	return nil
}
