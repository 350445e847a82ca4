package db

import (
	"context"
	"embed"
	"path"

	"github.com/jmoiron/sqlx"
	"github.com/pressly/goose/v3"
	"github.com/rotisserie/eris"
)

//go:embed migrations/postgres/*.sql migrations/sqlite/*.sql
var migrationFiles embed.FS

// RunMigrations applies the embedded migrations matching the handle's driver. A nil handle is a no-op.
func RunMigrations(ctx context.Context, database *sqlx.DB) error {
	if database == nil {
		return nil
	}
	dialect, dir, err := migrationDialect(database.DriverName())
	if err != nil {
		return err
	}
	goose.SetBaseFS(migrationFiles)
	if err := goose.SetDialect(dialect); err != nil {
		return eris.Wrap(err, "db: set goose dialect")
	}
	if err := goose.UpContext(ctx, database.DB, dir); err != nil {
		return eris.Wrap(err, "db: migrate up")
	}
	return nil
}

func migrationDialect(driver string) (string, string, error) {
	switch driver {
	case DriverPostgres, "postgres":
		return "postgres", path.Join("migrations", "postgres"), nil
	case DriverSQLite, "sqlite3":
		return "sqlite3", path.Join("migrations", "sqlite"), nil
	default:
		return "", "", eris.Errorf("db: no migrations for driver %q", driver)
	}
}
