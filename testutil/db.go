// Package testutil holds the Postgres helpers shared by integration tests.
// Everything here is opt-in: without TEST_DATABASE_URL the helpers skip the
// calling test, and MigrateFromEnv reports that nothing was configured.
package testutil

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"sync"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"

	"github.com/tripcircle/coordinator/migrations"
)

// EnvDSN names the variable holding the integration database URL.
const EnvDSN = "TEST_DATABASE_URL"

var (
	poolOnce sync.Once
	pool     *pgxpool.Pool
	poolErr  error
)

// MigrateFromEnv brings the test database up to the latest schema. It is
// meant for TestMain, where there is no *testing.T. It returns false when
// EnvDSN is unset so the caller can run the suite and let each test skip.
func MigrateFromEnv(ctx context.Context) (bool, error) {
	dsn := os.Getenv(EnvDSN)
	if dsn == "" {
		return false, nil
	}
	p, err := sharedPool(ctx, dsn)
	if err != nil {
		return true, err
	}
	db := stdlib.OpenDBFromPool(p)
	defer db.Close()

	if _, err := migrations.Up(ctx, db); err != nil {
		return true, fmt.Errorf("testutil.MigrateFromEnv: %w", err)
	}
	return true, nil
}

// NewTx begins a transaction on the test database and rolls it back when the
// test finishes. Repos accept it in place of the pool, so every test sees
// only its own fixtures.
func NewTx(t *testing.T) pgx.Tx {
	t.Helper()
	ctx := context.Background()
	p, err := sharedPool(ctx, requireDSN(t))
	if err != nil {
		t.Fatalf("testutil.NewTx: %v", err)
	}
	tx, err := p.Begin(ctx)
	if err != nil {
		t.Fatalf("testutil.NewTx: begin: %v", err)
	}
	t.Cleanup(func() { _ = tx.Rollback(context.Background()) })
	return tx
}

// NewSQLDB opens a database/sql handle for tests that drive goose directly.
func NewSQLDB(t *testing.T) *sql.DB {
	t.Helper()
	p, err := sharedPool(context.Background(), requireDSN(t))
	if err != nil {
		t.Fatalf("testutil.NewSQLDB: %v", err)
	}
	db := stdlib.OpenDBFromPool(p)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

// sharedPool opens one pool per test binary. It is never closed; the process
// exit releases the connections.
func sharedPool(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	poolOnce.Do(func() {
		pool, poolErr = pgxpool.New(ctx, dsn)
		if poolErr == nil {
			poolErr = pool.Ping(ctx)
		}
	})
	return pool, poolErr
}

func requireDSN(t *testing.T) string {
	t.Helper()
	dsn := os.Getenv(EnvDSN)
	if dsn == "" {
		t.Skip(EnvDSN + " not set; skipping integration test")
	}
	return dsn
}
