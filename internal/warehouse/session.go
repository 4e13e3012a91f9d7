// Copyright (c) 2026 xorq-labs
// snowflake-keypair-helper - Snowflake keypair credential management
// This source code is licensed under the MIT license found in the LICENSE file.

// Package warehouse opens Snowflake sessions and runs statements on them.
//
// Callers depend on the Session interface, so the provisioning operations and
// the token issuer can be driven by an in-memory fake in tests. The concrete
// implementation is backed by github.com/snowflakedb/gosnowflake.
package warehouse // import "github.com/xorq-labs/snowflake-keypair-helper/internal/warehouse"

import (
	"context"
	"errors"
	"strings"

	"github.com/xorq-labs/snowflake-keypair-helper/internal/security"
)

// ErrMissingKeyMaterial is returned when a session cannot supply the private key it authenticated with.
var ErrMissingKeyMaterial = errors.New("session carries no private key material")

// Record is one result row keyed by column name.
type Record map[string]string

// Identity describes who a session is connected as and where.
type Identity struct {
	Account   string
	User      string
	Role      string
	Warehouse string
	Database  string
	Schema    string
	Host      string
}

// DefaultHost derives the Snowflake host name from an account locator.
func DefaultHost(account string) string {
	if account == "" {
		return ""
	}
	return strings.ToLower(account) + ".snowflakecomputing.com"
}

// KeyMaterial is the private key a session authenticated with. At most one
// of DER, PEM or File is set.
type KeyMaterial struct {
	// DER is an unencrypted PKCS8 key.
	DER []byte
	// PEM is key text, armored or bare.
	PEM string
	// File is a path to a PEM key, decrypted with FilePassword if set.
	File         string
	FilePassword security.Secret
}

// IsZero reports whether no key material is present.
func (k KeyMaterial) IsZero() bool {
	return len(k.DER) == 0 && k.PEM == "" && k.File == ""
}

// Executor runs SQL statements in order and returns the rows of each.
type Executor interface {
	Exec(ctx context.Context, statements ...string) ([]Record, error)
}

// Session is an open, authenticated connection.
type Session interface {
	Executor
	Identity() Identity
	Authenticator() Authenticator
	Password() security.Secret
	KeyMaterial() KeyMaterial
	Close() error
}
