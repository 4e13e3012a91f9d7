// Copyright (c) 2026 xorq-labs
// snowflake-keypair-helper - Snowflake keypair credential management
// This source code is licensed under the MIT license found in the LICENSE file.

package cli

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/xorq-labs/snowflake-keypair-helper/internal/crypto/keyfmt"
	"github.com/xorq-labs/snowflake-keypair-helper/internal/envfile"
	"github.com/xorq-labs/snowflake-keypair-helper/internal/keypair"
)

// generateEnvFile runs generate-keypair into dir and returns the file path.
func generateEnvFile(t *testing.T, dir string, extra ...string) string {
	t.Helper()
	path := filepath.Join(dir, "keypair.env")
	args := append([]string{"generate-keypair", path}, extra...)
	if out, err := executeCommand(t, nil, args...); err != nil {
		t.Fatalf("generate-keypair failed: %v\n%s", err, out)
	}
	return path
}

func TestGenerateKeypairToStdout(t *testing.T) {
	setupTest(t)

	out, err := executeCommand(t, nil, "generate-keypair", "-")
	if err != nil {
		t.Fatalf("generate-keypair failed: %v", err)
	}
	env, err := envfile.Parse(out)
	if err != nil {
		t.Fatalf("stdout is not an env file: %v\n%s", err, out)
	}
	for _, name := range []string{"SNOWFLAKE_PRIVATE_KEY", "SNOWFLAKE_PUBLIC_KEY", "SNOWFLAKE_PRIVATE_KEY_PWD"} {
		if env[name] == "" {
			t.Fatalf("missing %s in output:\n%s", name, out)
		}
	}
	if _, err := keypair.FromEnvironment(env, "SNOWFLAKE_"); err != nil {
		t.Fatalf("printed keypair does not load: %v", err)
	}
}

func TestGenerateKeypairToFile(t *testing.T) {
	dir := setupTest(t)
	path := generateEnvFile(t, dir, "--no-encrypted", "--export")

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("env file not written: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Fatalf("expected 0600 permissions, got %o", perm)
	}
	data, _ := os.ReadFile(path)
	if !strings.HasPrefix(string(data), "export SNOWFLAKE_PRIVATE_KEY=") {
		t.Fatalf("expected export lines, got:\n%s", data)
	}
	if strings.Contains(string(data), "PRIVATE_KEY_PWD") {
		t.Fatalf("unencrypted key must not carry a password entry:\n%s", data)
	}
	kp, err := keypair.FromEnvironmentFile(path, "SNOWFLAKE_")
	if err != nil {
		t.Fatalf("written keypair does not load: %v", err)
	}
	if kp.Password() == "" {
		t.Fatalf("a loaded unencrypted key gets a generated password")
	}
}

func TestGenerateKeypairUsesPrefixAndPassword(t *testing.T) {
	dir := setupTest(t)
	path := generateEnvFile(t, dir, "--password", "s3cret", "--prefix", "SF_")

	kp, err := keypair.FromEnvironmentFile(path, "SF_")
	if err != nil {
		t.Fatalf("keypair with custom prefix does not load: %v", err)
	}
	if kp.Password() != "s3cret" {
		t.Fatalf("expected the given password, got %q", kp.Password())
	}
}

func TestGenerateKeypairDefaultPath(t *testing.T) {
	dir := setupTest(t)
	path := filepath.Join(dir, "default.env")

	if _, err := executeCommand(t, nil, "--env-path", path, "generate-keypair"); err != nil {
		t.Fatalf("generate-keypair failed: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected the configured env path to be written: %v", err)
	}
}

func TestGenerateKeypairPromptPassword(t *testing.T) {
	dir := setupTest(t)
	path := filepath.Join(dir, "prompted.env")

	out, err := executeCommand(t, strings.NewReader("hunter2\nhunter2\n"), "generate-keypair", path, "--prompt-password")
	if err != nil {
		t.Fatalf("generate-keypair failed: %v\n%s", err, out)
	}
	if !strings.Contains(out, "Key password:") {
		t.Fatalf("expected a prompt, got:\n%s", out)
	}
	kp, err := keypair.FromEnvironmentFile(path, "SNOWFLAKE_")
	if err != nil {
		t.Fatalf("keypair does not load: %v", err)
	}
	if kp.Password() != "hunter2" {
		t.Fatalf("expected prompted password, got %q", kp.Password())
	}

	_, err = executeCommand(t, strings.NewReader("a\nb\n"), "generate-keypair", "-", "--prompt-password")
	if !errors.Is(err, errPasswordMismatch) {
		t.Fatalf("expected errPasswordMismatch, got %v", err)
	}
}

func TestGenerateKeypairFlagConflicts(t *testing.T) {
	setupTest(t)

	if _, err := executeCommand(t, nil, "generate-keypair", "-", "--password", "x", "--prompt-password"); err == nil {
		t.Fatalf("expected an error for --password with --prompt-password")
	}
	if _, err := executeCommand(t, nil, "generate-keypair", "-", "--encrypted", "--no-encrypted"); err == nil {
		t.Fatalf("expected an error for --encrypted with --no-encrypted")
	}
	if _, err := executeCommand(t, nil, "generate-keypair", "a", "b"); err == nil {
		t.Fatalf("expected an error for two paths")
	}
}

func TestFingerprint(t *testing.T) {
	dir := setupTest(t)
	path := generateEnvFile(t, dir)
	kp, err := keypair.FromEnvironmentFile(path, "SNOWFLAKE_")
	if err != nil {
		t.Fatalf("keypair does not load: %v", err)
	}
	want, _ := kp.Fingerprint()

	out, err := executeCommand(t, nil, "fingerprint", path)
	if err != nil {
		t.Fatalf("fingerprint failed: %v", err)
	}
	if !strings.Contains(out, "rsa_public_key_fp: "+want) {
		t.Fatalf("expected %s in output:\n%s", want, out)
	}
	if !strings.Contains(out, "openssh: SHA256:") {
		t.Fatalf("expected an openssh fingerprint:\n%s", out)
	}

	if _, err := executeCommand(t, nil, "fingerprint", filepath.Join(dir, "missing.env")); err == nil {
		t.Fatalf("expected an error for a missing env file")
	}
}

func TestShowPublicKeyFormats(t *testing.T) {
	dir := setupTest(t)
	path := generateEnvFile(t, dir)

	out, err := executeCommand(t, nil, "show-public-key", path)
	if err != nil {
		t.Fatalf("show-public-key failed: %v", err)
	}
	if _, err := keyfmt.ParsePublicPEM([]byte(out)); err != nil {
		t.Fatalf("pem output does not parse: %v\n%s", err, out)
	}

	out, err = executeCommand(t, nil, "show-public-key", path, "--format", "oneline")
	if err != nil {
		t.Fatalf("show-public-key failed: %v", err)
	}
	if body := strings.TrimSuffix(out, "\n"); strings.ContainsAny(body, "\n -") {
		t.Fatalf("expected a single bare line, got %q", out)
	}

	var copied string
	orig := copyToClipboard
	copyToClipboard = func(s string) error { copied = s; return nil }
	t.Cleanup(func() { copyToClipboard = orig })

	out, err = executeCommand(t, nil, "show-public-key", path, "--format", "openssh", "--comment", "alice", "--copy")
	if err != nil {
		t.Fatalf("show-public-key failed: %v", err)
	}
	if !strings.HasPrefix(out, "ssh-rsa ") {
		t.Fatalf("expected an authorized_keys line, got %q", out)
	}
	if !strings.HasPrefix(copied, "ssh-rsa ") || !strings.HasSuffix(copied, " alice") {
		t.Fatalf("unexpected clipboard content %q", copied)
	}

	if _, err := executeCommand(t, nil, "show-public-key", path, "--format", "jwk"); !errors.Is(err, ErrUsage) {
		t.Fatalf("expected ErrUsage for unknown format, got %v", err)
	}
}

func TestConvertKey(t *testing.T) {
	dir := setupTest(t)
	kp, err := keypair.Generate("")
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}
	plain, err := kp.PrivatePEMUnencrypted()
	if err != nil {
		t.Fatalf("PrivatePEMUnencrypted failed: %v", err)
	}
	in := filepath.Join(dir, "key.pem")
	if err := os.WriteFile(in, []byte(plain), 0o600); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	der := filepath.Join(dir, "key.der")
	if _, err := executeCommand(t, nil, "convert-key", in, der, "--to", "der"); err != nil {
		t.Fatalf("convert to der failed: %v", err)
	}
	derBytes, _ := os.ReadFile(der)
	if keyfmt.IsEncrypted(derBytes) {
		t.Fatalf("der output should be unencrypted")
	}

	out, err := executeCommand(t, nil, "convert-key", der, "-", "--to", "pem-encrypted", "--to-password", "pw")
	if err != nil {
		t.Fatalf("convert to pem-encrypted failed: %v", err)
	}
	got, err := keyfmt.ParsePrivate([]byte(out), "pw")
	if err != nil {
		t.Fatalf("converted key does not parse: %v", err)
	}
	if !got.Equal(kp.PrivateKey()) {
		t.Fatalf("conversion changed the key")
	}

	out, err = executeCommand(t, nil, "convert-key", in, filepath.Join(dir, "gen.pem"))
	if err != nil {
		t.Fatalf("convert with generated password failed: %v", err)
	}
	if !strings.Contains(out, "password: ") {
		t.Fatalf("expected the generated password on stderr:\n%s", out)
	}

	if _, err := executeCommand(t, nil, "convert-key", in, "-", "--to", "pem", "--to-password", "x"); !errors.Is(err, ErrUsage) {
		t.Fatalf("expected ErrUsage, got %v", err)
	}
	if _, err := executeCommand(t, nil, "convert-key", in, "-", "--to", "pkcs1"); !errors.Is(err, ErrUsage) {
		t.Fatalf("expected ErrUsage, got %v", err)
	}
	if _, err := executeCommand(t, nil, "convert-key", der, "-", "--from-password", "wrong"); !errors.Is(err, keyfmt.ErrDecryption) {
		t.Fatalf("expected ErrDecryption, got %v", err)
	}
}
