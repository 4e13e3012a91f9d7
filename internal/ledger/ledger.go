// Copyright (c) 2026 xorq-labs
// snowflake-keypair-helper - Snowflake keypair credential management
// This source code is licensed under the MIT license found in the LICENSE file.

// Package ledger keeps an optional local record of generated key fingerprints
// and of the users they were assigned to. It never stores key material.
package ledger // import "github.com/xorq-labs/snowflake-keypair-helper/internal/ledger"

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql" // MySQL driver
	_ "github.com/jackc/pgx/v5/stdlib" // Postgres driver, registered as "pgx"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/mysqldialect"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/xorq-labs/snowflake-keypair-helper/internal/logging"
)

var (
	// ErrUnsupportedDB is returned for a database type other than sqlite, postgres or mysql.
	ErrUnsupportedDB = errors.New("unsupported ledger database type")
	// ErrDuplicate is returned when attempting to insert a record that already exists.
	ErrDuplicate = errors.New("duplicate record")
)

// sqlOpenFunc is swapped in tests.
var sqlOpenFunc = sql.Open

// Store is a bun-backed ledger.
type Store struct {
	db *bun.DB
}

// Open connects to the ledger database and creates its table if missing.
// dbType is one of sqlite, postgres or mysql.
func Open(ctx context.Context, dbType, dsn string) (*Store, error) {
	driverName, err := driverFor(dbType)
	if err != nil {
		return nil, err
	}
	start := time.Now()
	sqlDB, err := sqlOpenFunc(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open ledger database: %w", err)
	}
	// An in-memory SQLite database exists per connection.
	if dbType == "sqlite" && strings.Contains(dsn, "memory") {
		sqlDB.SetMaxOpenConns(1)
	}

	s := &Store{db: createBunDB(sqlDB, dbType)}
	if err := s.migrate(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}
	logging.Debugf("ledger: opened %s in %s", dbType, time.Since(start))
	return s, nil
}

func driverFor(dbType string) (string, error) {
	switch dbType {
	case "sqlite", "mysql":
		return dbType, nil
	case "postgres":
		// The pgx stdlib registers driver name "pgx".
		return "pgx", nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedDB, dbType)
	}
}

func createBunDB(sqlDB *sql.DB, dbType string) *bun.DB {
	switch dbType {
	case "postgres":
		return bun.NewDB(sqlDB, pgdialect.New())
	case "mysql":
		return bun.NewDB(sqlDB, mysqldialect.New())
	default:
		return bun.NewDB(sqlDB, sqlitedialect.New())
	}
}

func (s *Store) migrate(ctx context.Context) error {
	_, err := s.db.NewCreateTable().Model((*Entry)(nil)).IfNotExists().Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to create ledger table: %w", err)
	}
	return nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// MapDBError maps unique constraint violations from any of the supported
// drivers to ErrDuplicate.
func MapDBError(err error) error {
	if err == nil {
		return nil
	}
	le := strings.ToLower(err.Error())
	// MySQL duplicate entry, Postgres unique violation (23505), SQLite unique constraint
	if strings.Contains(le, "duplicate") || strings.Contains(le, "unique") || strings.Contains(le, "23505") || strings.Contains(le, "1062") {
		return fmt.Errorf("%w: %v", ErrDuplicate, err)
	}
	return err
}
