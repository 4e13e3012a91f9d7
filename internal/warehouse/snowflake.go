// Copyright (c) 2026 xorq-labs
// snowflake-keypair-helper - Snowflake keypair credential management
// This source code is licensed under the MIT license found in the LICENSE file.

package warehouse

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	"github.com/snowflakedb/gosnowflake"

	"github.com/xorq-labs/snowflake-keypair-helper/internal/security"
)

// openDB is swapped in tests to avoid a network connection.
var openDB = func(cfg gosnowflake.Config) *sql.DB {
	return sql.OpenDB(gosnowflake.NewConnector(gosnowflake.SnowflakeDriver{}, cfg))
}

// SnowflakeSession is a Session over a single pinned connection, so session
// state such as USE ROLE carries from one Exec to the next.
type SnowflakeSession struct {
	db       *sql.DB
	identity Identity
	creds    Credentials
	keys     KeyMaterial

	mu   sync.Mutex
	conn *sql.Conn
}

// Open authenticates as creds against the target in id and verifies the
// connection with a ping.
func Open(ctx context.Context, id Identity, creds Credentials) (*SnowflakeSession, error) {
	cfg := gosnowflake.Config{
		Account:   id.Account,
		Role:      id.Role,
		Warehouse: id.Warehouse,
		Database:  id.Database,
		Schema:    id.Schema,
		Host:      id.Host,
	}
	if err := creds.configure(&cfg); err != nil {
		return nil, err
	}
	id.User = creds.Username()
	if id.Host == "" {
		id.Host = DefaultHost(id.Account)
	}

	var keys KeyMaterial
	if kp, ok := creds.(KeypairAuth); ok {
		der, err := kp.Keypair.PrivateDER(false)
		if err != nil {
			return nil, err
		}
		keys.DER = der
	}

	db := openDB(cfg)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to %s as %s: %w", id.Account, id.User, err)
	}
	return &SnowflakeSession{db: db, identity: id, creds: creds, keys: keys}, nil
}

func (s *SnowflakeSession) Identity() Identity { return s.identity }

func (s *SnowflakeSession) Authenticator() Authenticator { return s.creds.Authenticator() }

func (s *SnowflakeSession) KeyMaterial() KeyMaterial { return s.keys }

// Password is the session password, empty for keypair and SSO sessions.
func (s *SnowflakeSession) Password() security.Secret {
	switch c := s.creds.(type) {
	case PasswordAuth:
		return c.Password
	case MFAAuth:
		return c.Password
	default:
		return nil
	}
}

// Exec runs statements one at a time, stopping at the first failure.
func (s *SnowflakeSession) Exec(ctx context.Context, statements ...string) ([]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn == nil {
		conn, err := s.db.Conn(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to acquire connection: %w", err)
		}
		s.conn = conn
	}

	var out []Record
	for _, stmt := range statements {
		records, err := queryRecords(ctx, s.conn, stmt)
		if err != nil {
			return out, err
		}
		out = append(out, records...)
	}
	return out, nil
}

// Close releases the pinned connection and the pool.
func (s *SnowflakeSession) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn != nil {
		_ = s.conn.Close()
		s.conn = nil
	}
	return s.db.Close()
}

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func queryRecords(ctx context.Context, q queryer, stmt string) ([]Record, error) {
	rows, err := q.QueryContext(ctx, stmt)
	if err != nil {
		return nil, fmt.Errorf("statement failed: %w", err)
	}
	defer func() { _ = rows.Close() }()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to read columns: %w", err)
	}
	var out []Record
	for rows.Next() {
		vals := make([]sql.NullString, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		rec := make(Record, len(cols))
		for i, c := range cols {
			rec[c] = vals[i].String
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read rows: %w", err)
	}
	return out, nil
}
