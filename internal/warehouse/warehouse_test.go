// Copyright (c) 2026 xorq-labs
// snowflake-keypair-helper - Snowflake keypair credential management
// This source code is licensed under the MIT license found in the LICENSE file.

package warehouse

import (
	"context"
	"database/sql"
	"strings"
	"sync"
	"testing"

	"github.com/snowflakedb/gosnowflake"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/xorq-labs/snowflake-keypair-helper/internal/keypair"
	"github.com/xorq-labs/snowflake-keypair-helper/internal/security"
)

var (
	kpOnce sync.Once
	testKP keypair.Keypair
)

func testKeypair(t *testing.T) keypair.Keypair {
	t.Helper()
	kpOnce.Do(func() {
		kp, err := keypair.Generate("pw")
		if err != nil {
			panic(err)
		}
		testKP = kp
	})
	return testKP
}

// withSQLite routes Open to an in-memory sqlite database and records the
// driver config it was handed.
func withSQLite(t *testing.T) *gosnowflake.Config {
	t.Helper()
	var seen gosnowflake.Config
	prev := openDB
	openDB = func(cfg gosnowflake.Config) *sql.DB {
		seen = cfg
		db, err := sql.Open("sqlite", "file:"+t.Name()+"?mode=memory&cache=shared")
		require.NoError(t, err)
		db.SetMaxOpenConns(1)
		return db
	}
	t.Cleanup(func() { openDB = prev })
	return &seen
}

func TestParseAuthenticator(t *testing.T) {
	for in, want := range map[string]Authenticator{
		"keypair":         AuthKeypair,
		"SNOWFLAKE_JWT":   AuthKeypair,
		"password":        AuthPassword,
		"mfa":             AuthMFA,
		"externalbrowser": AuthSSO,
	} {
		got, err := ParseAuthenticator(in)
		require.NoError(t, err, in)
		require.Equal(t, want, got, in)
	}
	_, err := ParseAuthenticator("oauth")
	require.ErrorIs(t, err, ErrUnknownAuthenticator)
}

func TestCredentialsFromEnv(t *testing.T) {
	kp := testKeypair(t)
	env, err := kp.ToEnvironmentMap(keypair.DefaultEnvOptions())
	require.NoError(t, err)
	env["SNOWFLAKE_USER"] = "loader"
	env["SNOWFLAKE_PASSWORD"] = "hunter2"
	env["SNOWFLAKE_PASSCODE"] = "123456"

	require.Equal(t, AuthKeypair, DetectAuthenticator(env, "SNOWFLAKE_"))

	creds, err := CredentialsFromEnv(env, AuthKeypair, "SNOWFLAKE_")
	require.NoError(t, err)
	kpAuth, ok := creds.(KeypairAuth)
	require.True(t, ok)
	require.True(t, kpAuth.Keypair.Equal(kp))
	require.Equal(t, "loader", kpAuth.Username())

	creds, err = CredentialsFromEnv(env, AuthMFA, "SNOWFLAKE_")
	require.NoError(t, err)
	params, err := creds.Params()
	require.NoError(t, err)
	require.Equal(t, "123456", params["passcode"])
	require.Equal(t, string(AuthMFA), params["authenticator"])

	creds, err = CredentialsFromEnv(env, AuthSSO, "SNOWFLAKE_")
	require.NoError(t, err)
	require.Equal(t, AuthSSO, creds.Authenticator())

	_, err = CredentialsFromEnv(map[string]string{}, AuthPassword, "SNOWFLAKE_")
	require.ErrorIs(t, err, keypair.ErrMissingEntry)
}

func TestPasswordNotFormatted(t *testing.T) {
	creds := PasswordAuth{User: "u", Password: security.FromString("hunter2")}
	require.NotContains(t, strings.ToLower(sprint(creds)), "hunter2")
}

func TestIdentityFromEnv(t *testing.T) {
	env := map[string]string{"SNOWFLAKE_ACCOUNT": "AB12345", "SNOWFLAKE_ROLE": "LOADER"}
	id, err := IdentityFromEnv(env, "SNOWFLAKE_", Defaults{Database: "DB", Schema: "S", Warehouse: "WH"})
	require.NoError(t, err)
	require.Equal(t, Identity{
		Account: "AB12345", Role: "LOADER", Warehouse: "WH", Database: "DB", Schema: "S",
		Host: "ab12345.snowflakecomputing.com",
	}, id)

	_, err = IdentityFromEnv(map[string]string{}, "SNOWFLAKE_", Defaults{})
	require.ErrorIs(t, err, keypair.ErrMissingEntry)
}

func TestOpenKeypairSession(t *testing.T) {
	cfg := withSQLite(t)
	kp := testKeypair(t)
	s, err := Open(context.Background(), Identity{Account: "ab12345"}, KeypairAuth{User: "LOADER", Keypair: kp})
	require.NoError(t, err)
	defer s.Close()

	require.Equal(t, gosnowflake.AuthTypeJwt, cfg.Authenticator)
	require.Equal(t, "LOADER", cfg.User)
	require.True(t, cfg.PrivateKey.Equal(kp.PrivateKey()))

	require.Equal(t, "LOADER", s.Identity().User)
	require.Equal(t, "ab12345.snowflakecomputing.com", s.Identity().Host)
	require.Equal(t, AuthKeypair, s.Authenticator())
	require.True(t, s.Password().IsZero())
	require.NotEmpty(t, s.KeyMaterial().DER)
}

func TestSessionExec(t *testing.T) {
	withSQLite(t)
	s, err := Open(context.Background(), Identity{Account: "ab12345"},
		PasswordAuth{User: "u", Password: security.FromString("pw")})
	require.NoError(t, err)
	defer s.Close()

	require.Equal(t, "pw", s.Password().Reveal())
	require.True(t, s.KeyMaterial().IsZero())

	records, err := ExecScript(context.Background(), s,
		"CREATE TABLE t (status TEXT); INSERT INTO t VALUES ('a;b'); SELECT status FROM t;")
	require.NoError(t, err)
	require.Equal(t, []Record{{"status": "a;b"}}, records)

	_, err = s.Exec(context.Background(), "SELECT nope FROM missing")
	require.Error(t, err)
}

func TestSplitStatements(t *testing.T) {
	got := SplitStatements("USE ROLE USERADMIN;\n  CREATE USER x; ; ALTER USER x SET RSA_PUBLIC_KEY='a;b';")
	require.Equal(t, []string{
		"USE ROLE USERADMIN;",
		"CREATE USER x;",
		"ALTER USER x SET RSA_PUBLIC_KEY='a;b';",
	}, got)
	require.Empty(t, SplitStatements("  \n"))
}
