// Copyright (c) 2026 xorq-labs
// snowflake-keypair-helper - Snowflake keypair credential management
// This source code is licensed under the MIT license found in the LICENSE file.

package warehouse

import (
	"errors"
	"fmt"
	"strings"

	"github.com/snowflakedb/gosnowflake"

	"github.com/xorq-labs/snowflake-keypair-helper/internal/envfile"
	"github.com/xorq-labs/snowflake-keypair-helper/internal/keypair"
	"github.com/xorq-labs/snowflake-keypair-helper/internal/security"
)

// ErrUnknownAuthenticator is returned for an authenticator name that is not supported.
var ErrUnknownAuthenticator = errors.New("unknown authenticator")

// Authenticator names an authentication mode using Snowflake's own identifiers.
type Authenticator string

const (
	AuthPassword Authenticator = "snowflake"
	AuthMFA      Authenticator = "username_password_mfa"
	AuthKeypair  Authenticator = "snowflake_jwt"
	AuthSSO      Authenticator = "externalbrowser"
)

var authenticatorAliases = map[string]Authenticator{
	"snowflake":             AuthPassword,
	"password":              AuthPassword,
	"username_password_mfa": AuthMFA,
	"mfa":                   AuthMFA,
	"snowflake_jwt":         AuthKeypair,
	"keypair":               AuthKeypair,
	"jwt":                   AuthKeypair,
	"externalbrowser":       AuthSSO,
	"sso":                   AuthSSO,
}

// ParseAuthenticator accepts Snowflake names and the short aliases password,
// mfa, keypair and sso.
func ParseAuthenticator(s string) (Authenticator, error) {
	if a, ok := authenticatorAliases[strings.ToLower(strings.TrimSpace(s))]; ok {
		return a, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownAuthenticator, s)
}

// Credentials is one of PasswordAuth, MFAAuth, KeypairAuth or SSOAuth.
type Credentials interface {
	Authenticator() Authenticator
	Username() string
	// Params is the flat connection-parameter form, with secrets in the clear.
	Params() (map[string]string, error)
	configure(cfg *gosnowflake.Config) error
}

type PasswordAuth struct {
	User     string
	Password security.Secret
}

type MFAAuth struct {
	User     string
	Password security.Secret
	// Passcode is the TOTP code; empty triggers a push notification.
	Passcode security.Secret
}

type KeypairAuth struct {
	User    string
	Keypair keypair.Keypair
}

type SSOAuth struct {
	User string
}

func (PasswordAuth) Authenticator() Authenticator { return AuthPassword }
func (MFAAuth) Authenticator() Authenticator      { return AuthMFA }
func (KeypairAuth) Authenticator() Authenticator  { return AuthKeypair }
func (SSOAuth) Authenticator() Authenticator      { return AuthSSO }

func (a PasswordAuth) Username() string { return a.User }
func (a MFAAuth) Username() string      { return a.User }
func (a KeypairAuth) Username() string  { return a.User }
func (a SSOAuth) Username() string      { return a.User }

func (a PasswordAuth) Params() (map[string]string, error) {
	return map[string]string{
		"authenticator": string(AuthPassword),
		"user":          a.User,
		"password":      a.Password.Reveal(),
	}, nil
}

func (a MFAAuth) Params() (map[string]string, error) {
	p := map[string]string{
		"authenticator": string(AuthMFA),
		"user":          a.User,
		"password":      a.Password.Reveal(),
	}
	if !a.Passcode.IsZero() {
		p["passcode"] = a.Passcode.Reveal()
	}
	return p, nil
}

func (a KeypairAuth) Params() (map[string]string, error) {
	private, err := a.Keypair.PrivateString()
	if err != nil {
		return nil, err
	}
	return map[string]string{
		"authenticator":   string(AuthKeypair),
		"user":            a.User,
		"private_key":     private,
		"private_key_pwd": a.Keypair.Password(),
	}, nil
}

func (a SSOAuth) Params() (map[string]string, error) {
	return map[string]string{
		"authenticator": string(AuthSSO),
		"user":          a.User,
	}, nil
}

func (a PasswordAuth) configure(cfg *gosnowflake.Config) error {
	cfg.Authenticator = gosnowflake.AuthTypeSnowflake
	cfg.User = a.User
	cfg.Password = a.Password.Reveal()
	return nil
}

func (a MFAAuth) configure(cfg *gosnowflake.Config) error {
	cfg.Authenticator = gosnowflake.AuthTypeUsernamePasswordMFA
	cfg.User = a.User
	cfg.Password = a.Password.Reveal()
	cfg.Passcode = a.Passcode.Reveal()
	return nil
}

func (a KeypairAuth) configure(cfg *gosnowflake.Config) error {
	if a.Keypair.PrivateKey() == nil {
		return fmt.Errorf("keypair credentials for %s carry no key", a.User)
	}
	cfg.Authenticator = gosnowflake.AuthTypeJwt
	cfg.User = a.User
	cfg.PrivateKey = a.Keypair.PrivateKey()
	return nil
}

func (a SSOAuth) configure(cfg *gosnowflake.Config) error {
	cfg.Authenticator = gosnowflake.AuthTypeExternalBrowser
	cfg.User = a.User
	return nil
}

// Environment field names, before prefixing.
const (
	FieldAccount   = "account"
	FieldUser      = "user"
	FieldPassword  = "password"
	FieldPasscode  = "passcode"
	FieldRole      = "role"
	FieldWarehouse = "warehouse"
	FieldDatabase  = "database"
	FieldSchema    = "schema"
	FieldHost      = "host"
)

// CredentialsFromEnv reads the fields auth needs from prefixed environment entries.
func CredentialsFromEnv(env map[string]string, auth Authenticator, prefix string) (Credentials, error) {
	get := func(field string) (string, error) {
		name := envfile.EnvName(field, prefix)
		v, ok := env[name]
		if !ok {
			return "", fmt.Errorf("%w: %s", keypair.ErrMissingEntry, name)
		}
		return v, nil
	}

	user, err := get(FieldUser)
	if err != nil {
		return nil, err
	}
	switch auth {
	case AuthPassword, AuthMFA:
		pwd, err := get(FieldPassword)
		if err != nil {
			return nil, err
		}
		if auth == AuthPassword {
			return PasswordAuth{User: user, Password: security.FromString(pwd)}, nil
		}
		return MFAAuth{
			User:     user,
			Password: security.FromString(pwd),
			Passcode: security.FromString(env[envfile.EnvName(FieldPasscode, prefix)]),
		}, nil
	case AuthKeypair:
		kp, err := keypair.FromEnvironment(env, prefix)
		if err != nil {
			return nil, err
		}
		return KeypairAuth{User: user, Keypair: kp}, nil
	case AuthSSO:
		return SSOAuth{User: user}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownAuthenticator, auth)
	}
}

// DetectAuthenticator picks keypair auth when a private key entry is present
// and password auth otherwise.
func DetectAuthenticator(env map[string]string, prefix string) Authenticator {
	if _, ok := env[envfile.EnvName(keypair.FieldPrivateKey, prefix)]; ok {
		return AuthKeypair
	}
	return AuthPassword
}

// Defaults fill connection fields the environment leaves out.
type Defaults struct {
	Database  string
	Schema    string
	Warehouse string
}

// IdentityFromEnv reads the connection target from prefixed environment
// entries. The user is left empty; it comes from the credentials.
func IdentityFromEnv(env map[string]string, prefix string, d Defaults) (Identity, error) {
	lookup := func(field, fallback string) string {
		if v := env[envfile.EnvName(field, prefix)]; v != "" {
			return v
		}
		return fallback
	}
	id := Identity{
		Account:   lookup(FieldAccount, ""),
		Role:      lookup(FieldRole, ""),
		Warehouse: lookup(FieldWarehouse, d.Warehouse),
		Database:  lookup(FieldDatabase, d.Database),
		Schema:    lookup(FieldSchema, d.Schema),
		Host:      lookup(FieldHost, ""),
	}
	if id.Account == "" {
		return Identity{}, fmt.Errorf("%w: %s", keypair.ErrMissingEntry, envfile.EnvName(FieldAccount, prefix))
	}
	if id.Host == "" {
		id.Host = DefaultHost(id.Account)
	}
	return id, nil
}
