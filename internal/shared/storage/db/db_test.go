package db

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type nopDriver struct{}

func (d nopDriver) Open(name string) (driver.Conn, error) {
	return nopConn{}, nil
}

type nopConn struct{}

func (nopConn) Prepare(query string) (driver.Stmt, error) { return nopStmt{}, nil }
func (nopConn) Close() error                              { return nil }
func (nopConn) Begin() (driver.Tx, error)                 { return nopTx{}, nil }
func (nopConn) Ping(ctx context.Context) error            { return nil }

type nopStmt struct{}

func (nopStmt) Close() error                                    { return nil }
func (nopStmt) NumInput() int                                   { return -1 }
func (nopStmt) Exec(args []driver.Value) (driver.Result, error) { return nopResult{}, nil }
func (nopStmt) Query(args []driver.Value) (driver.Rows, error)  { return nopRows{}, nil }

type nopTx struct{}

func (nopTx) Commit() error   { return nil }
func (nopTx) Rollback() error { return nil }

type nopResult struct{}

func (nopResult) LastInsertId() (int64, error) { return 0, nil }
func (nopResult) RowsAffected() (int64, error) { return 0, nil }

type nopRows struct{}

func (nopRows) Columns() []string              { return []string{} }
func (nopRows) Close() error                   { return nil }
func (nopRows) Next(dest []driver.Value) error { return driver.ErrBadConn }

var registerTestDriverOnce sync.Once

func withTestDriver(t *testing.T) {
	t.Helper()
	registerTestDriverOnce.Do(func() {
		sql.Register("dbtest", nopDriver{})
	})
	prev := openDB
	openDB = func(name, dsn string) (*sqlx.DB, error) {
		return sqlx.Open("dbtest", dsn)
	}
	t.Cleanup(func() { openDB = prev })
}

func TestConnectRejectsEmptyDSN(t *testing.T) {
	_, err := Connect(context.Background(), DriverPostgres, "  ", DefaultServerOptions())
	require.Error(t, err)
}

func TestOptionsFromEnvAppliesOverrides(t *testing.T) {
	withTestDriver(t)

	t.Setenv("DB_MAX_OPEN_CONNS", "7")
	t.Setenv("DB_MAX_IDLE_CONNS", "3")
	t.Setenv("DB_CONN_MAX_LIFETIME", "20m")
	t.Setenv("DB_CONN_MAX_IDLE_TIME", "45s")
	t.Setenv("DB_PING_TIMEOUT", "1s")

	opts := OptionsFromEnv(DefaultServerOptions())
	db, err := Connect(context.Background(), DriverPostgres, "ignored", opts)
	require.NoError(t, err)
	defer db.Close()

	assert.Equal(t, 7, db.Stats().MaxOpenConnections)
	assert.Equal(t, 3, opts.MaxIdleConns)
	assert.Equal(t, 20*time.Minute, opts.ConnMaxLifetime)
	assert.Equal(t, 45*time.Second, opts.ConnMaxIdleTime)
	assert.Equal(t, time.Second, opts.PingTimeout)
}

func TestOptionsFromEnvIgnoresInvalidValues(t *testing.T) {
	t.Setenv("DB_MAX_OPEN_CONNS", "many")
	t.Setenv("DB_PING_TIMEOUT", "soon")

	opts := OptionsFromEnv(DefaultMigrateOptions())
	assert.Equal(t, 1, opts.MaxOpenConns)
	assert.Equal(t, 5*time.Second, opts.PingTimeout)
}

func TestSQLiteDSNCreatesParentDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "reports.db")
	dsn, err := SQLiteDSN(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(dsn, path+"?"))
	assert.Contains(t, dsn, "busy_timeout(5000)")

	_, err = SQLiteDSN("")
	assert.Error(t, err)
}

func TestMigrationDialect(t *testing.T) {
	dialect, dir, err := migrationDialect(DriverPostgres)
	require.NoError(t, err)
	assert.Equal(t, "postgres", dialect)
	assert.Equal(t, "migrations/postgres", dir)

	dialect, dir, err = migrationDialect(DriverSQLite)
	require.NoError(t, err)
	assert.Equal(t, "sqlite3", dialect)
	assert.Equal(t, "migrations/sqlite", dir)

	_, _, err = migrationDialect("mysql")
	assert.Error(t, err)
}

func TestRunMigrationsSQLite(t *testing.T) {
	dsn, err := SQLiteDSN(filepath.Join(t.TempDir(), "reports.db"))
	require.NoError(t, err)

	db, err := Connect(context.Background(), DriverSQLite, dsn, SQLiteOptions())
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, RunMigrations(context.Background(), db))

	var count int
	require.NoError(t, db.Get(&count, "SELECT COUNT(*) FROM medical_reports"))
	assert.Equal(t, 0, count)

	assert.NoError(t, RunMigrations(context.Background(), nil))
}
