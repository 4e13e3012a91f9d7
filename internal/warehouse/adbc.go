// Copyright (c) 2026 xorq-labs
// snowflake-keypair-helper - Snowflake keypair credential management
// This source code is licensed under the MIT license found in the LICENSE file.

package warehouse

import (
	"net/url"

	"github.com/xorq-labs/snowflake-keypair-helper/internal/keypair"
)

// ADBC Snowflake driver option names.
const (
	ADBCOptionAuthType           = "adbc.snowflake.sql.auth_type"
	ADBCOptionJWTPrivateKeyValue = "adbc.snowflake.sql.client_option.jwt_private_key_pkcs8_value"
	ADBCOptionJWTPrivateKeyPwd   = "adbc.snowflake.sql.client_option.jwt_private_key_pkcs8_password"
	ADBCAuthJWT                  = "auth_jwt"

	adbcNoPassword = "nopassword"
)

// ADBCOptions is what an ADBC Snowflake driver needs to reach the same
// target as a session.
type ADBCOptions struct {
	URI       string
	DBOptions map[string]string
}

// ADBCFromSession derives ADBC options from s. Empty database or schema fall
// back to the session's. Keypair sessions get their key re-encrypted as PKCS8
// PEM, the only private key form ADBC accepts inline.
func ADBCFromSession(s Session, database, schema string) (ADBCOptions, error) {
	id := s.Identity()
	if database == "" {
		database = id.Database
	}
	if schema == "" {
		schema = id.Schema
	}

	password := s.Password().Reveal()
	if password == "" {
		password = adbcNoPassword
	}
	q := url.Values{}
	if id.Warehouse != "" {
		q.Set("warehouse", id.Warehouse)
	}
	if id.Role != "" {
		q.Set("role", id.Role)
	}
	uri := url.UserPassword(id.User, password).String() + "@" + id.Host + "/" +
		url.PathEscape(database) + "/" + url.PathEscape(schema)
	if len(q) > 0 {
		uri += "?" + q.Encode()
	}

	opts := ADBCOptions{URI: uri, DBOptions: map[string]string{}}
	if s.Authenticator() == AuthKeypair {
		km := s.KeyMaterial()
		if len(km.DER) == 0 {
			return ADBCOptions{}, ErrMissingKeyMaterial
		}
		kp, err := keypair.FromDER(km.DER, "")
		if err != nil {
			return ADBCOptions{}, err
		}
		private, err := kp.PrivateString()
		if err != nil {
			return ADBCOptions{}, err
		}
		opts.DBOptions[ADBCOptionAuthType] = ADBCAuthJWT
		opts.DBOptions[ADBCOptionJWTPrivateKeyValue] = private
		opts.DBOptions[ADBCOptionJWTPrivateKeyPwd] = kp.Password()
	}
	return opts, nil
}
