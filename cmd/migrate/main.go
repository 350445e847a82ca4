package main

// Run database migrations:
//   go run ./cmd/migrate

import (
	"context"
	"os"

	"go.uber.org/zap"

	"labreport-backend/internal/shared/config"
	"labreport-backend/internal/shared/storage/db"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		zap.L().Fatal("load config", zap.Error(err))
	}
	if err := config.InitLogger(cfg.Log); err != nil {
		zap.L().Fatal("init logger", zap.Error(err))
	}
	ctx := context.Background()

	driver, dsn := db.DriverPostgres, cfg.Store.DatabaseURL
	if cfg.Store.Driver == "sqlite" {
		driver = db.DriverSQLite
		dsn, err = db.SQLiteDSN(cfg.Store.SQLitePath)
		if err != nil {
			zap.L().Error("sqlite dsn", zap.Error(err))
			os.Exit(1)
		}
	}

	sqlDB, err := db.Connect(ctx, driver, dsn, db.OptionsFromEnv(db.DefaultMigrateOptions()))
	if err != nil {
		zap.L().Error("failed to connect database", zap.Error(err))
		os.Exit(1)
	}
	defer sqlDB.Close()

	if err := db.RunMigrations(ctx, sqlDB); err != nil {
		zap.L().Error("failed to run migrations", zap.Error(err))
		os.Exit(1)
	}
	zap.L().Info("migrations applied", zap.String("driver", driver))
}
