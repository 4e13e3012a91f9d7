// Copyright (c) 2026 xorq-labs
// snowflake-keypair-helper - Snowflake keypair credential management
// This source code is licensed under the MIT license found in the LICENSE file.

//nolint:errcheck
package cli

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/xorq-labs/snowflake-keypair-helper/internal/config"
	"github.com/xorq-labs/snowflake-keypair-helper/internal/core"
	"github.com/xorq-labs/snowflake-keypair-helper/internal/i18n"
	"github.com/xorq-labs/snowflake-keypair-helper/internal/ledger"
	"github.com/xorq-labs/snowflake-keypair-helper/internal/logging"
	"github.com/xorq-labs/snowflake-keypair-helper/internal/security"
	"github.com/xorq-labs/snowflake-keypair-helper/internal/warehouse"
)

// setupTest isolates a test from user config files and SFKP_* settings.
func setupTest(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "config"))
	t.Setenv("HOME", dir)
	t.Setenv("SFKP_LANGUAGE", "en")
	t.Setenv("SFKP_LEDGER_TYPE", "")
	t.Setenv("SFKP_LEDGER_DSN", "")
	i18n.Init("en")
	return dir
}

// enableLedger points the ledger at a sqlite file in dir.
func enableLedger(t *testing.T, dir string) {
	t.Helper()
	t.Setenv("SFKP_LEDGER_TYPE", "sqlite")
	t.Setenv("SFKP_LEDGER_DSN", filepath.Join(dir, "ledger.db"))
}

// executeCommand runs a fresh root command with args and returns everything
// written to stdout, stderr and the logger.
func executeCommand(t *testing.T, stdin io.Reader, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer
	logging.SetOutput(&out)
	defer logging.SetOutput(os.Stderr)

	root := NewRootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	if stdin != nil {
		root.SetIn(stdin)
	}
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

// fakeSession records statements and answers ALTER USER ... SET with the
// success status Snowflake returns.
type fakeSession struct {
	mu         sync.Mutex
	identity   warehouse.Identity
	statements []string
	execErr    error
	closed     bool
}

func (f *fakeSession) Exec(_ context.Context, statements ...string) ([]warehouse.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.execErr != nil {
		return nil, f.execErr
	}
	var records []warehouse.Record
	for _, s := range statements {
		f.statements = append(f.statements, s)
		records = append(records, warehouse.Record{"status": core.SuccessStatus})
	}
	return records, nil
}

func (f *fakeSession) Identity() warehouse.Identity           { return f.identity }
func (f *fakeSession) Authenticator() warehouse.Authenticator { return warehouse.AuthPassword }
func (f *fakeSession) Password() security.Secret              { return security.FromString("pw") }
func (f *fakeSession) KeyMaterial() warehouse.KeyMaterial     { return warehouse.KeyMaterial{} }

func (f *fakeSession) Close() error {
	f.closed = true
	return nil
}

// stubSession makes every command use s and returns the captured requests.
func stubSession(t *testing.T, s warehouse.Session) *[]sessionRequest {
	t.Helper()
	var reqs []sessionRequest
	orig := openSession
	openSession = func(_ context.Context, _ config.Config, req sessionRequest) (warehouse.Session, error) {
		reqs = append(reqs, req)
		return s, nil
	}
	t.Cleanup(func() { openSession = orig })
	return &reqs
}

func TestListCLICommands(t *testing.T) {
	setupTest(t)

	out, err := executeCommand(t, nil, "list-cli-commands")
	if err != nil {
		t.Fatalf("list-cli-commands failed: %v", err)
	}
	for _, want := range []string{
		"generate-keypair: generate a new keypair and write it to disk",
		"assign-public-key: assign a public key to a user",
		"create-user: create a user",
		"list-cli-commands: list all commands available from this cli",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output:\n%s", want, out)
		}
	}
	if strings.Contains(out, "completion:") || strings.Contains(out, "help:") {
		t.Fatalf("builtin commands should not be listed:\n%s", out)
	}
}

func TestHistoryGermanMessages(t *testing.T) {
	setupTest(t)

	out, err := executeCommand(t, nil, "--language", "de", "history")
	if err != nil {
		t.Fatalf("history failed: %v", err)
	}
	if !strings.Contains(out, "Das Protokoll ist deaktiviert") {
		t.Fatalf("expected German output, got:\n%s", out)
	}
	i18n.Init("en")
}

func TestInitConfigWritesUserConfig(t *testing.T) {
	dir := setupTest(t)

	out, err := executeCommand(t, nil, "--prefix", "SF_", "init-config")
	if err != nil {
		t.Fatalf("init-config failed: %v", err)
	}
	path := filepath.Join(dir, "config", "snowflake-keypair-helper", "snowflake-keypair-helper.yaml")
	if !strings.Contains(out, path) {
		t.Fatalf("expected path %s in output:\n%s", path, out)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("config file not written: %v", err)
	}
	if !strings.Contains(string(data), "prefix: SF_") {
		t.Fatalf("flag value not persisted:\n%s", data)
	}

	// The written file is picked up on the next run.
	if _, err := executeCommand(t, nil, "history"); err != nil {
		t.Fatalf("history failed: %v", err)
	}
	if appConfig.Prefix != "SF_" {
		t.Fatalf("expected prefix from config file, got %q", appConfig.Prefix)
	}
}

func TestInvalidConfigIsRejected(t *testing.T) {
	setupTest(t)
	t.Setenv("SFKP_LEDGER_TYPE", "oracle")
	t.Setenv("SFKP_LEDGER_DSN", "x")

	_, err := executeCommand(t, nil, "history")
	if err == nil || !strings.Contains(err.Error(), "invalid config") {
		t.Fatalf("expected invalid config error, got %v", err)
	}
}

func TestMissingConfigFlagFile(t *testing.T) {
	setupTest(t)

	_, err := executeCommand(t, nil, "--config", filepath.Join(t.TempDir(), "nope.yaml"), "history")
	if err == nil || !strings.Contains(err.Error(), "--config") {
		t.Fatalf("expected --config error, got %v", err)
	}
}

func TestHistoryDisabled(t *testing.T) {
	setupTest(t)

	out, err := executeCommand(t, nil, "history")
	if err != nil {
		t.Fatalf("history failed: %v", err)
	}
	if !strings.Contains(out, "The ledger is disabled") {
		t.Fatalf("unexpected output:\n%s", out)
	}
}

func TestHistoryRecordsGeneratedKeys(t *testing.T) {
	dir := setupTest(t)
	enableLedger(t, dir)

	out, err := executeCommand(t, nil, "history")
	if err != nil {
		t.Fatalf("history failed: %v", err)
	}
	if !strings.Contains(out, "No ledger entries.") {
		t.Fatalf("expected empty ledger, got:\n%s", out)
	}

	if _, err := executeCommand(t, nil, "generate-keypair", "-"); err != nil {
		t.Fatalf("generate-keypair failed: %v", err)
	}
	out, err = executeCommand(t, nil, "history")
	if err != nil {
		t.Fatalf("history failed: %v", err)
	}
	if !strings.Contains(out, "GENERATE_KEYPAIR") || !strings.Contains(out, "SHA256:") {
		t.Fatalf("expected a GENERATE_KEYPAIR entry, got:\n%s", out)
	}
}

func TestLedgerFailureDoesNotFailCommand(t *testing.T) {
	dir := setupTest(t)
	enableLedger(t, dir)

	orig := openLedger
	openLedger = func(_ context.Context, _, _ string) (*ledger.Store, error) {
		return nil, errors.New("boom")
	}
	t.Cleanup(func() { openLedger = orig })

	out, err := executeCommand(t, nil, "generate-keypair", "-")
	if err != nil {
		t.Fatalf("generate-keypair should succeed without a ledger: %v", err)
	}
	if !strings.Contains(out, "ledger unavailable") {
		t.Fatalf("expected a warning about the ledger, got:\n%s", out)
	}
}
